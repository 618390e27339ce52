// Package config holds the YAML configuration shared by the command line
// tools.
package config

import (
	"log/slog"
	"time"
)

// LogLevel controls diagnostic verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// SlogLevel maps l to a slog level. Unknown levels map to Info.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Config is the root configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Store    StoreConfig    `yaml:"store"`
	Provider ProviderConfig `yaml:"provider"`
	Splice   SpliceConfig   `yaml:"splice"`
	Boost    BoostConfig    `yaml:"boost"`
	Eval     EvalConfig     `yaml:"eval"`
	Batch    BatchConfig    `yaml:"batch"`
}

type LogConfig struct {
	Level LogLevel `yaml:"level"`
}

// StoreConfig locates the SQLite version store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ProviderConfig selects the algorithm service. An empty Addr keeps every
// operation in process, where only arc sorting and trimming are available.
type ProviderConfig struct {
	Addr    string        `yaml:"addr"`
	Timeout time.Duration `yaml:"timeout"`
}

type SpliceConfig struct {
	// Bias is added to the weight of every arc entering a spliced donor.
	Bias float64 `yaml:"bias"`

	// StrictDestination turns divergent marker destinations in a
	// single-destination replace into an error.
	StrictDestination bool `yaml:"strict_destination"`
}

type BoostConfig struct {
	Factor           float64 `yaml:"factor"`
	ContextlessLabel int     `yaml:"contextless_label"`
	UnusedLabel      int     `yaml:"unused_label"`
	FullBias         float64 `yaml:"full_bias"`
	PartialBias      float64 `yaml:"partial_bias"`
}

type EvalConfig struct {
	RequireStochastic     bool    `yaml:"require_stochastic"`
	RejectNegativeWeights bool    `yaml:"reject_negative_weights"`
	MaxStateGrowth        float64 `yaml:"max_state_growth"`
}

// BatchConfig bounds archive processing. Zero workers means one per CPU.
type BatchConfig struct {
	Workers int `yaml:"workers"`
}
