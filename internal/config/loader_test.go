package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idiap/icassp-oov-recognition/internal/boost"
	"github.com/idiap/icassp-oov-recognition/internal/config"
	"github.com/idiap/icassp-oov-recognition/internal/splice"
)

const fullYAML = `
log:
  level: debug
store:
  path: /tmp/edits.db
provider:
  addr: localhost:50051
  timeout: 5s
splice:
  bias: 1.5
  strict_destination: true
boost:
  factor: 4
  contextless_label: 7
  unused_label: 9
  full_bias: 3
  partial_bias: 1
eval:
  require_stochastic: true
  max_state_growth: 10
batch:
  workers: 3
`

func TestLoadFromReader_Full(t *testing.T) {
	t.Setenv(config.EnvDB, "")
	t.Setenv(config.EnvProviderAddr, "")
	t.Setenv(config.EnvLogLevel, "")

	cfg, err := config.LoadFromReader(strings.NewReader(fullYAML))
	require.NoError(t, err)

	assert.Equal(t, config.LogDebug, cfg.Log.Level)
	assert.Equal(t, "/tmp/edits.db", cfg.Store.Path)
	assert.Equal(t, "localhost:50051", cfg.Provider.Addr)
	assert.Equal(t, 5*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 1.5, cfg.Splice.Bias)
	assert.True(t, cfg.Splice.StrictDestination)
	assert.Equal(t, 4.0, cfg.Boost.Factor)
	assert.Equal(t, 7, cfg.Boost.ContextlessLabel)
	assert.Equal(t, 9, cfg.Boost.UnusedLabel)
	assert.True(t, cfg.Eval.RequireStochastic)
	assert.Equal(t, 3, cfg.Batch.Workers)
}

func TestLoadFromReader_EmptyKeepsDefaults(t *testing.T) {
	t.Setenv(config.EnvDB, "")
	t.Setenv(config.EnvProviderAddr, "")
	t.Setenv(config.EnvLogLevel, "")

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, splice.DefaultBias, cfg.Splice.Bias)
	assert.Equal(t, boost.DefaultPartialBias, cfg.Boost.PartialBias)
}

func TestLoadFromReader_PartialOverride(t *testing.T) {
	t.Setenv(config.EnvDB, "")
	t.Setenv(config.EnvProviderAddr, "")
	t.Setenv(config.EnvLogLevel, "")

	cfg, err := config.LoadFromReader(strings.NewReader("boost:\n  factor: 8\n"))
	require.NoError(t, err)
	assert.Equal(t, 8.0, cfg.Boost.Factor)
	assert.Equal(t, boost.DefaultFullBias, cfg.Boost.FullBias)
	assert.Equal(t, "wfst.db", cfg.Store.Path)
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("boost:\n  factr: 8\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "factr")
}

func TestLoadFromReader_EnvOverrides(t *testing.T) {
	t.Setenv(config.EnvDB, "/var/lib/wfst.db")
	t.Setenv(config.EnvProviderAddr, "algo:9000")
	t.Setenv(config.EnvLogLevel, "warn")

	cfg, err := config.LoadFromReader(strings.NewReader(fullYAML))
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/wfst.db", cfg.Store.Path)
	assert.Equal(t, "algo:9000", cfg.Provider.Addr)
	assert.Equal(t, config.LogWarn, cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	t.Setenv(config.EnvDB, "")
	t.Setenv(config.EnvProviderAddr, "")
	t.Setenv(config.EnvLogLevel, "")

	path := filepath.Join(t.TempDir(), "wfst.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fullYAML), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Batch.Workers)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: open")
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "loud"
	cfg.Store.Path = ""
	cfg.Boost.Factor = 0
	cfg.Batch.Workers = -1

	err := config.Validate(cfg)
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{"log.level", "store.path", "boost.factor", "batch.workers"} {
		assert.Contains(t, msg, want)
	}
}

func TestValidate_Default(t *testing.T) {
	assert.NoError(t, config.Validate(config.Default()))
}

func TestConversions(t *testing.T) {
	cfg := config.Default()
	cfg.Splice.StrictDestination = true
	cfg.Boost.Factor = 5
	cfg.Boost.ContextlessLabel = 2
	cfg.Eval.RejectNegativeWeights = true

	so := cfg.SpliceOptions()
	assert.True(t, so.StrictDestination)
	assert.Equal(t, splice.DefaultBias, so.Bias)

	bp := cfg.BoostParams()
	assert.Equal(t, 5.0, bp.Factor)
	assert.Equal(t, 2, bp.ContextlessLabel)

	ev := cfg.EvalConfig()
	assert.True(t, ev.RejectNegativeWeights)
	assert.Equal(t, 1e-6, ev.StochasticTolerance)
}

func TestLogLevel(t *testing.T) {
	assert.True(t, config.LogError.IsValid())
	assert.False(t, config.LogLevel("trace").IsValid())
	assert.Equal(t, "DEBUG", config.LogDebug.SlogLevel().String())
	assert.Equal(t, "INFO", config.LogLevel("").SlogLevel().String())
}
