package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:             8080,
		RetryMaxAttempts: 3,
		RetryBaseDelay:   500 * time.Millisecond,
		RetryMaxDelay:    10 * time.Second,
		RateMinInterval:  300 * time.Millisecond,
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateRejectsZeroAttempts(t *testing.T) {
	cfg := validConfig()
	cfg.RetryMaxAttempts = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RETRY_MAX_ATTEMPTS")
}

func TestValidateRejectsInvertedDelays(t *testing.T) {
	cfg := validConfig()
	cfg.RetryMaxDelay = cfg.RetryBaseDelay / 2

	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsZeroRateInterval(t *testing.T) {
	cfg := validConfig()
	cfg.RateMinInterval = 0

	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := validConfig()
	cfg.Port = 70000

	assert.Error(t, cfg.Validate())
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("QUOTEDECK_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 3, cfg.RetryMaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, 300*time.Millisecond, cfg.RateMinInterval)
	assert.NotEmpty(t, cfg.UserAgent)
	assert.NotEmpty(t, cfg.QueryBaseURL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("QUOTEDECK_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("RATE_MIN_INTERVAL_MS", "150")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 5, cfg.RetryMaxAttempts)
	assert.Equal(t, 150*time.Millisecond, cfg.RateMinInterval)
}
