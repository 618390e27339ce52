package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/idiap/icassp-oov-recognition/internal/boost"
	"github.com/idiap/icassp-oov-recognition/internal/eval"
	"github.com/idiap/icassp-oov-recognition/internal/splice"
)

// Environment variables that override file values.
const (
	EnvDB           = "WFST_DB"
	EnvProviderAddr = "WFST_PROVIDER_ADDR"
	EnvLogLevel     = "WFST_LOG_LEVEL"
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	ev := eval.DefaultEvalConfig()
	return &Config{
		Log:      LogConfig{Level: LogInfo},
		Store:    StoreConfig{Path: "wfst.db"},
		Provider: ProviderConfig{Timeout: 30 * time.Second},
		Splice:   SpliceConfig{Bias: splice.DefaultBias},
		Boost: BoostConfig{
			Factor:      2,
			FullBias:    boost.DefaultFullBias,
			PartialBias: boost.DefaultPartialBias,
		},
		Eval: EvalConfig{MaxStateGrowth: ev.MaxStateGrowth},
	}
}

// Load reads the YAML configuration file at path over the defaults, applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults, applies
// environment overrides and validates the result.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyEnv(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with any set environment variables.
func ApplyEnv(cfg *Config) {
	cfg.Store.Path = envOr(EnvDB, cfg.Store.Path)
	cfg.Provider.Addr = envOr(EnvProviderAddr, cfg.Provider.Addr)
	cfg.Log.Level = LogLevel(envOr(EnvLogLevel, string(cfg.Log.Level)))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Log.Level != "" && !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}
	if cfg.Store.Path == "" {
		errs = append(errs, errors.New("store.path must not be empty"))
	}
	if cfg.Provider.Timeout < 0 {
		errs = append(errs, fmt.Errorf("provider.timeout %s must not be negative", cfg.Provider.Timeout))
	}
	if !finite(cfg.Splice.Bias) {
		errs = append(errs, fmt.Errorf("splice.bias %v must be finite", cfg.Splice.Bias))
	}
	if !finite(cfg.Boost.Factor) || cfg.Boost.Factor <= 0 {
		errs = append(errs, fmt.Errorf("boost.factor %v must be finite and positive", cfg.Boost.Factor))
	}
	if !finite(cfg.Boost.FullBias) {
		errs = append(errs, fmt.Errorf("boost.full_bias %v must be finite", cfg.Boost.FullBias))
	}
	if !finite(cfg.Boost.PartialBias) {
		errs = append(errs, fmt.Errorf("boost.partial_bias %v must be finite", cfg.Boost.PartialBias))
	}
	if cfg.Boost.ContextlessLabel < 0 {
		errs = append(errs, fmt.Errorf("boost.contextless_label %d must not be negative", cfg.Boost.ContextlessLabel))
	}
	if cfg.Eval.MaxStateGrowth < 0 {
		errs = append(errs, fmt.Errorf("eval.max_state_growth %v must not be negative", cfg.Eval.MaxStateGrowth))
	}
	if cfg.Batch.Workers < 0 {
		errs = append(errs, fmt.Errorf("batch.workers %d must not be negative", cfg.Batch.Workers))
	}

	return errors.Join(errs...)
}

// #region conversions
// SpliceOptions returns the splice options described by cfg.
func (c *Config) SpliceOptions() splice.Options {
	opts := splice.DefaultOptions()
	opts.Bias = c.Splice.Bias
	opts.StrictDestination = c.Splice.StrictDestination
	return opts
}

// BoostParams returns the boost parameters described by cfg.
func (c *Config) BoostParams() boost.Params {
	return boost.Params{
		Factor:           c.Boost.Factor,
		ContextlessLabel: c.Boost.ContextlessLabel,
		UnusedLabel:      c.Boost.UnusedLabel,
		FullBias:         c.Boost.FullBias,
		PartialBias:      c.Boost.PartialBias,
	}
}

// EvalConfig returns the eval thresholds described by cfg.
func (c *Config) EvalConfig() eval.EvalConfig {
	ev := eval.DefaultEvalConfig()
	ev.RequireStochastic = c.Eval.RequireStochastic
	ev.RejectNegativeWeights = c.Eval.RejectNegativeWeights
	ev.MaxStateGrowth = c.Eval.MaxStateGrowth
	return ev
}

// #endregion conversions
