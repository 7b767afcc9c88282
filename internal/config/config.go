package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "CITADEL"

// PoolsConfig holds configuration for the one-shot pools command.
type PoolsConfig struct {
	RPCURL   string
	Network  string
	Account  string
	Block    uint64
	Vaults   []string
	Output   string
	LogLevel string
}

// ServeConfig holds configuration for the API server and snapshot poller.
type ServeConfig struct {
	RPCURL       string
	Network      string
	Account      string
	Listen       string
	PollInterval time.Duration
	Out          string
	PGDSN        string
	StateFile    string
	LogLevel     string
}

// TxConfig holds configuration shared by the write commands.
type TxConfig struct {
	RPCURL          string
	Network         string
	PrivateKey      string
	Wait            bool
	ReceiptInterval time.Duration
	ReceiptAttempts uint
	SlippageBps     int64
	Expiry          time.Duration
	LogLevel        string
}

// HistoryConfig holds configuration for a snapshot backfill.
type HistoryConfig struct {
	RPCURL     string
	Network    string
	Account    string
	FromBlock  uint64
	ToBlock    uint64
	Step       uint64
	Out        string
	PGDSN      string
	Checkpoint string
	LogLevel   string
}

// LoadPools merges config file, environment variables, and flags into PoolsConfig.
func LoadPools(cfgFile string, flags *pflag.FlagSet) (PoolsConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"network": "./testnet-addresses.json",
		"output":  "table",
	})
	if err != nil {
		return PoolsConfig{}, err
	}

	return PoolsConfig{
		RPCURL:   v.GetString("rpc"),
		Network:  v.GetString("network"),
		Account:  v.GetString("account"),
		Block:    v.GetUint64("block"),
		Vaults:   getStringSlice(v, "vault"),
		Output:   v.GetString("output"),
		LogLevel: v.GetString("log-level"),
	}, nil
}

// LoadServe merges config file, environment variables, and flags into ServeConfig.
func LoadServe(cfgFile string, flags *pflag.FlagSet) (ServeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"network":       "./testnet-addresses.json",
		"listen":        ":8080",
		"poll-interval": 15 * time.Second,
		"out":           "./data/snapshots.jsonl",
		"state-file":    "./data/snapshot_state.json",
	})
	if err != nil {
		return ServeConfig{}, err
	}

	return ServeConfig{
		RPCURL:       v.GetString("rpc"),
		Network:      v.GetString("network"),
		Account:      v.GetString("account"),
		Listen:       v.GetString("listen"),
		PollInterval: v.GetDuration("poll-interval"),
		Out:          v.GetString("out"),
		PGDSN:        v.GetString("pg-dsn"),
		StateFile:    v.GetString("state-file"),
		LogLevel:     v.GetString("log-level"),
	}, nil
}

// LoadTx merges config file, environment variables, and flags into TxConfig.
func LoadTx(cfgFile string, flags *pflag.FlagSet) (TxConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"network":          "./testnet-addresses.json",
		"wait":             true,
		"receipt-interval": 2 * time.Second,
		"receipt-attempts": uint(90),
		"slippage-bps":     int64(50),
		"expiry":           20 * time.Minute,
	})
	if err != nil {
		return TxConfig{}, err
	}

	return TxConfig{
		RPCURL:          v.GetString("rpc"),
		Network:         v.GetString("network"),
		PrivateKey:      v.GetString("private-key"),
		Wait:            v.GetBool("wait"),
		ReceiptInterval: v.GetDuration("receipt-interval"),
		ReceiptAttempts: v.GetUint("receipt-attempts"),
		SlippageBps:     v.GetInt64("slippage-bps"),
		Expiry:          v.GetDuration("expiry"),
		LogLevel:        v.GetString("log-level"),
	}, nil
}

// LoadHistory merges config file, environment variables, and flags into HistoryConfig.
func LoadHistory(cfgFile string, flags *pflag.FlagSet) (HistoryConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"network":    "./testnet-addresses.json",
		"step":       uint64(1200),
		"out":        "./data/history.jsonl",
		"checkpoint": "./data/history_checkpoint.json",
	})
	if err != nil {
		return HistoryConfig{}, err
	}

	return HistoryConfig{
		RPCURL:     v.GetString("rpc"),
		Network:    v.GetString("network"),
		Account:    v.GetString("account"),
		FromBlock:  v.GetUint64("from-block"),
		ToBlock:    v.GetUint64("to-block"),
		Step:       v.GetUint64("step"),
		Out:        v.GetString("out"),
		PGDSN:      v.GetString("pg-dsn"),
		Checkpoint: v.GetString("checkpoint"),
		LogLevel:   v.GetString("log-level"),
	}, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	return cleanStrings(strings.Split(input, ","))
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
