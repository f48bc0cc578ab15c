package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("REGSCOUT_DATABASE_URL", "postgres://localhost:5432/regscout")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 10, cfg.RequestsPerMinute)
	assert.Equal(t, 1000, cfg.MinDelayMS)
	assert.Equal(t, 3000, cfg.MaxDelayMS)
	assert.Equal(t, time.Hour, cfg.RobotsTTL)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 8000, cfg.ExtractMaxChars)
	assert.Equal(t, 10, cfg.DrainBatchSize)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, "regscout-raw", cfg.S3Bucket)
	assert.Contains(t, cfg.UserAgent, "RegScoutBot")
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	// t.Setenv restores the original values after the test; the vars must
	// be truly unset for the required check to fire.
	for _, key := range []string{"REGSCOUT_DATABASE_URL", "DATABASE_URL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_RejectsInvertedDelayBounds(t *testing.T) {
	t.Setenv("REGSCOUT_DATABASE_URL", "postgres://localhost:5432/regscout")
	t.Setenv("REGSCOUT_MIN_DELAY_MS", "5000")
	t.Setenv("REGSCOUT_MAX_DELAY_MS", "1000")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MIN_DELAY_MS")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("REGSCOUT_DATABASE_URL", "postgres://localhost:5432/regscout")
	t.Setenv("REGSCOUT_PORT", "9090")
	t.Setenv("REGSCOUT_REQUESTS_PER_MINUTE", "30")
	t.Setenv("REGSCOUT_POLL_INTERVAL", "5s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 30, cfg.RequestsPerMinute)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
}

func TestDelayConversions(t *testing.T) {
	cfg := &Config{MinDelayMS: 1500, MaxDelayMS: 4500}
	assert.Equal(t, 1500*time.Millisecond, cfg.MinDelay())
	assert.Equal(t, 4500*time.Millisecond, cfg.MaxDelay())
}

func TestFeatureToggles(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.HasS3())
	assert.False(t, cfg.HasOpenAI())

	cfg.S3Endpoint = "http://localhost:9000"
	cfg.S3AccessKey = "key"
	assert.False(t, cfg.HasS3())
	cfg.S3SecretKey = "secret"
	assert.True(t, cfg.HasS3())

	cfg.OpenAIAPIKey = "sk-test"
	assert.True(t, cfg.HasOpenAI())
}
