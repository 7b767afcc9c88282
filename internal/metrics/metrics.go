package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Outcome string

const (
	Success Outcome = "success"
	Error   Outcome = "error"
)

func (o Outcome) String() string {
	return string(o)
}

var defaultHistogramBucketsSeconds = []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30}

var (
	once sync.Once

	chainCallLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chain_call_latency_seconds",
			Help:    "Histogram of JSON-RPC call durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"method", "status"},
	)

	contractReadErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contract_read_error_count",
			Help: "The total number of failed contract reads by method",
		},
		[]string{"method"},
	)

	pollerDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "poller_duration_seconds",
			Help:    "Histogram of poller durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"type", "status"},
	)

	vaultAPYGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vault_apy_percent",
			Help: "Last displayed APY per vault",
		},
		[]string{"vault"},
	)

	vaultTVLGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vault_tvl",
			Help: "Last observed actual collateral per vault",
		},
		[]string{"vault"},
	)

	apyFallbackCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_apy_fallback_count",
			Help: "Number of derivations where the placeholder APY replaced a non-positive estimate",
		},
		[]string{"vault"},
	)

	txStatusCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tx_status_count",
			Help: "Submitted writes by method and final status",
		},
		[]string{"method", "status"},
	)
)

// Register registers the collectors with the default registry. Safe to call more than once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			chainCallLatency,
			contractReadErrors,
			pollerDurationHistogram,
			vaultAPYGauge,
			vaultTVLGauge,
			apyFallbackCounter,
			txStatusCounter,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func outcome(failure bool) Outcome {
	if failure {
		return Error
	}
	return Success
}

func RecordChainCallLatency(d time.Duration, method string, failure bool) {
	chainCallLatency.WithLabelValues(method, outcome(failure).String()).Observe(d.Seconds())
}

func IncContractReadError(method string) {
	contractReadErrors.WithLabelValues(method).Inc()
}

func SetVaultFigures(vault string, apy, tvl float64) {
	vaultAPYGauge.WithLabelValues(vault).Set(apy)
	vaultTVLGauge.WithLabelValues(vault).Set(tvl)
}

func IncAPYFallback(vault string) {
	apyFallbackCounter.WithLabelValues(vault).Inc()
}

func IncTxStatus(method, status string) {
	txStatusCounter.WithLabelValues(method, status).Inc()
}
