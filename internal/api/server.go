// Package api serves the derived vault summaries, fee breakdowns and pool quotes over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"citadelScope/internal/fixedpoint"
	"citadelScope/internal/metrics"
	"citadelScope/internal/model"
	"citadelScope/internal/pools"
	"citadelScope/internal/snapshot"
)

const requestTimeout = 10 * time.Second

// SnapshotSource provides the latest vault snapshot. *snapshot.Service satisfies it.
type SnapshotSource interface {
	Current() (snapshot.Current, bool)
}

// Quoter prices mints and redeems. *contracts.Reader satisfies it.
type Quoter interface {
	MintTradeInfo(ctx context.Context, pool common.Address, collateralAmount *big.Int) (model.TradeInfo, error)
	RedeemTradeInfo(ctx context.Context, pool common.Address, syntheticAmount *big.Int) (model.TradeInfo, error)
	FeePercentage(ctx context.Context, pool common.Address) (*big.Int, error)
}

// Config names the pool quotes are taken from and its two tokens.
type Config struct {
	Pool       common.Address
	Collateral model.Token
	Synthetic  model.Token
}

type Server struct {
	snapshots SnapshotSource
	quoter    Quoter
	cfg       Config
	logger    *zap.Logger
}

func NewServer(snapshots SnapshotSource, quoter Quoter, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{snapshots: snapshots, quoter: quoter, cfg: cfg, logger: logger}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(s.logRequests)

	r.Get("/health", s.health)
	r.Get("/pools", s.listPools)
	r.Get("/pools/{id}", s.getPool)
	r.Get("/pools/{id}/fees", s.getFees)
	r.Get("/quote/mint", s.quote(true))
	r.Get("/quote/redeem", s.quote(false))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}

// HTTPServer wraps the router with timeouts.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       requestTimeout,
		WriteTimeout:      requestTimeout + 5*time.Second,
	}
}

type healthResponse struct {
	Status string `json:"status"`
	Ready  bool   `json:"ready"`
	Block  uint64 `json:"block_number,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	current, ok := s.snapshots.Current()
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Ready: ok, Block: current.Block})
}

type poolsResponse struct {
	ChainID     uint64            `json:"chain_id"`
	Block       uint64            `json:"block_number"`
	Fingerprint string            `json:"fingerprint"`
	ObservedAt  time.Time         `json:"observed_at"`
	ReadErrors  int               `json:"read_errors"`
	Restored    bool              `json:"restored,omitempty"`
	Pools       []model.PoolVault `json:"pools"`
}

func (s *Server) listPools(w http.ResponseWriter, r *http.Request) {
	current, ok := s.current(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, poolsResponse{
		ChainID:     current.ChainID,
		Block:       current.Block,
		Fingerprint: current.Fingerprint,
		ObservedAt:  current.ObservedAt,
		ReadErrors:  current.ReadErrors,
		Restored:    current.Restored,
		Pools:       current.Vaults,
	})
}

type poolResponse struct {
	model.PoolVault
	Display vaultDisplay `json:"display"`
}

type vaultDisplay struct {
	TVL          string `json:"tvl"`
	APY          string `json:"apy"`
	Utilization  string `json:"utilization"`
	Coverage     string `json:"coverage"`
	Collateral   string `json:"over_collateralization"`
	PositionUSD  string `json:"position_value,omitempty"`
	PositionSize string `json:"position_amount,omitempty"`
}

func (s *Server) getPool(w http.ResponseWriter, r *http.Request) {
	vault, ok := s.vault(w, r)
	if !ok {
		return
	}
	resp := poolResponse{PoolVault: vault, Display: vaultDisplay{
		TVL:         fixedpoint.FormatCompact(vault.TVL),
		APY:         fixedpoint.FormatPercentage(vault.APY, 2),
		Utilization: fixedpoint.FormatPercentage(vault.LPInfo.Utilization, fixedpoint.DefaultPercentagePrecision),
		Coverage:    fixedpoint.FormatPercentage(vault.LPInfo.Coverage, fixedpoint.DefaultPercentagePrecision),
		Collateral:  fixedpoint.FormatPercentage(vault.LPInfo.OverCollateralization, fixedpoint.DefaultPercentagePrecision),
	}}
	if vault.UserPosition != nil {
		resp.Display.PositionUSD = fixedpoint.FormatCurrency(vault.UserPosition.Value, fixedpoint.DefaultCurrencyPrecision)
		resp.Display.PositionSize = fixedpoint.FormatCompact(vault.UserPosition.Amount)
	}
	writeJSON(w, http.StatusOK, resp)
}

type feesResponse struct {
	VaultID string             `json:"vault_id"`
	Fees    model.FeeBreakdown `json:"fees"`
	Total   string             `json:"total_display"`
}

func (s *Server) getFees(w http.ResponseWriter, r *http.Request) {
	current, ok := s.current(w)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	vault, ok := current.Vault(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown pool "+id)
		return
	}
	fees := pools.VaultFees(vault, current.Lending)
	writeJSON(w, http.StatusOK, feesResponse{
		VaultID: vault.ID,
		Fees:    fees,
		Total:   fixedpoint.FormatUSD(fees.Total),
	})
}

type quoteResponse struct {
	Operation      string `json:"operation"`
	Pool           string `json:"pool"`
	TokenIn        string `json:"token_in"`
	TokenOut       string `json:"token_out"`
	AmountIn       string `json:"amount_in"`
	AmountReceived string `json:"amount_received"`
	FeePaid        string `json:"fee_paid"`
	FeePercentage  string `json:"fee_percentage,omitempty"`
	Display        struct {
		AmountReceived string `json:"amount_received"`
		FeePaid        string `json:"fee_paid"`
		FeePercentage  string `json:"fee_percentage,omitempty"`
	} `json:"display"`
}

func (s *Server) quote(mint bool) http.HandlerFunc {
	operation, in, out := "redeem", s.cfg.Synthetic, s.cfg.Collateral
	if mint {
		operation, in, out = "mint", s.cfg.Collateral, s.cfg.Synthetic
	}
	return func(w http.ResponseWriter, r *http.Request) {
		amount, err := fixedpoint.ParseUnits(r.URL.Query().Get("amount"), in.Decimals)
		if err != nil {
			writeError(w, http.StatusBadRequest, "amount: "+err.Error())
			return
		}
		if amount.Sign() == 0 {
			writeError(w, http.StatusBadRequest, "amount must be greater than zero")
			return
		}

		var info model.TradeInfo
		if mint {
			info, err = s.quoter.MintTradeInfo(r.Context(), s.cfg.Pool, amount)
		} else {
			info, err = s.quoter.RedeemTradeInfo(r.Context(), s.cfg.Pool, amount)
		}
		if err != nil {
			s.logger.Warn("quote failed", zap.String("operation", operation), zap.Error(err))
			writeError(w, http.StatusBadGateway, "quote failed")
			return
		}

		resp := quoteResponse{
			Operation:      operation,
			Pool:           s.cfg.Pool.Hex(),
			TokenIn:        in.Symbol,
			TokenOut:       out.Symbol,
			AmountIn:       amount.String(),
			AmountReceived: info.AmountReceived.String(),
			FeePaid:        info.FeePaid.String(),
		}
		resp.Display.AmountReceived = fixedpoint.FormatTokenAmount(info.AmountReceived, out.Decimals, fixedpoint.DefaultTokenPrecision)
		// the pool charges its fee in collateral both ways
		resp.Display.FeePaid = fixedpoint.FormatTokenAmount(info.FeePaid, s.cfg.Collateral.Decimals, fixedpoint.DefaultTokenPrecision)

		// a failed fee read leaves the rate out
		if fee, err := s.quoter.FeePercentage(r.Context(), s.cfg.Pool); err == nil {
			resp.FeePercentage = fee.String()
			resp.Display.FeePercentage = fixedpoint.FormatPercentage(fixedpoint.NewRatio16(fee).Percent(), 2)
		} else {
			s.logger.Warn("fee percentage read failed", zap.Error(err))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) current(w http.ResponseWriter) (snapshot.Current, bool) {
	current, ok := s.snapshots.Current()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no snapshot yet")
		return snapshot.Current{}, false
	}
	return current, true
}

func (s *Server) vault(w http.ResponseWriter, r *http.Request) (model.PoolVault, bool) {
	current, ok := s.current(w)
	if !ok {
		return model.PoolVault{}, false
	}
	id := chi.URLParam(r, "id")
	vault, ok := current.Vault(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown pool "+id)
		return model.PoolVault{}, false
	}
	return vault, true
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ListenAndServe serves until ctx ends, then shuts down gracefully.
func ListenAndServe(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
