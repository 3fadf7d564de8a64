package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "tp-screener.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "local", cfg.OCR.Provider)
	assert.Equal(t, "pdftotext", cfg.OCR.PdfToTextPath)
	assert.InDelta(t, 2.0, cfg.Validation.MaxLoanToAssetsMultiple, 0.001)
	assert.InDelta(t, 0.10, cfg.Validation.MaxPlausibleRate, 0.001)
	assert.InDelta(t, 0.5, cfg.Validation.MediumSourcedThreshold, 0.001)
	assert.InDelta(t, 0.35, cfg.Risk.FinancingWeight, 0.001)
	assert.InDelta(t, 0.25, cfg.Risk.ServicesWeight, 0.001)
	assert.InDelta(t, 0.20, cfg.Risk.DocumentationWeight, 0.001)
	assert.InDelta(t, 0.10, cfg.Risk.MaterialityWeight, 0.001)
	assert.InDelta(t, 0.10, cfg.Risk.ComplexityWeight, 0.001)
	assert.Equal(t, 70, cfg.Risk.TierAThreshold)
	assert.Equal(t, 40, cfg.Risk.TierBThreshold)
	assert.True(t, cfg.Summary.Enabled)
	assert.False(t, cfg.Ensemble.Enabled)
	assert.Equal(t, 2, cfg.Worker.Concurrency)
	assert.Equal(t, 3, cfg.Worker.PollIntervalSecs)
	assert.InDelta(t, 0.25, cfg.Monitoring.FailureRateThreshold, 0.001)
	assert.Equal(t, 500, cfg.Monitoring.QueueDepthThreshold)
	assert.Equal(t, 24, cfg.Monitoring.LookbackHours)
}

func TestLoadFromYAML(t *testing.T) {
	chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/screener
log:
  level: debug
  format: console
server:
  port: 9090
risk:
  tier_a_threshold: 80
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 80, cfg.Risk.TierAThreshold)
	// Defaults still apply for unset values
	assert.Equal(t, 40, cfg.Risk.TierBThreshold)
	assert.InDelta(t, 0.35, cfg.Risk.FinancingWeight, 0.001)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("TPSCREEN_STORE_DRIVER", "postgres")
	t.Setenv("TPSCREEN_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("TPSCREEN_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config matching the shipped defaults for
// validation tests.
func validDefaults(t *testing.T) *Config {
	t.Helper()
	chdirTemp(t)
	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func TestValidateDefaultsPassAllModes(t *testing.T) {
	cfg := validDefaults(t)
	for _, mode := range []string{"analyze", "worker", "serve", "score"} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestValidateWeightsMustSumToOne(t *testing.T) {
	cfg := validDefaults(t)
	cfg.Risk.FinancingWeight = 0.50

	err := cfg.Validate("score")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 1.0")
}

func TestValidateTierOrdering(t *testing.T) {
	cfg := validDefaults(t)
	cfg.Risk.TierAThreshold = 30

	err := cfg.Validate("score")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tier_a_threshold")
}

func TestValidateRateBand(t *testing.T) {
	cfg := validDefaults(t)
	cfg.Validation.MaxPlausibleRate = -0.1

	err := cfg.Validate("analyze")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate band")
}

func TestValidateMistralNeedsKey(t *testing.T) {
	cfg := validDefaults(t)
	cfg.OCR.Provider = "mistral"

	err := cfg.Validate("analyze")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mistral_api_key")

	cfg.OCR.MistralKey = "key"
	assert.NoError(t, cfg.Validate("analyze"))
}

func TestValidateWorkerConcurrencyBounds(t *testing.T) {
	cfg := validDefaults(t)

	cfg.Worker.Concurrency = 0
	err := cfg.Validate("worker")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concurrency must be between 1 and 32")

	cfg.Worker.Concurrency = 33
	err = cfg.Validate("worker")
	require.Error(t, err)

	cfg.Worker.Concurrency = 32
	assert.NoError(t, cfg.Validate("worker"))
}

func TestValidateServePort(t *testing.T) {
	cfg := validDefaults(t)
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults(t)
	err := cfg.Validate("batch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
