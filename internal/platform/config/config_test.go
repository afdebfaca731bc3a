package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.True(t, cfg.UsesDevSigningKey())
	assert.Equal(t, 5*time.Second, cfg.Pipeline.FetchTimeout)
	assert.Equal(t, "dcaf.events", cfg.Kafka.Topic)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.True(t, cfg.Pipeline.DeviceFingerprints)
	assert.Equal(t, 10, cfg.RateLimit.Auth)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.False(t, cfg.RateLimit.Disabled)
	assert.True(t, cfg.IsDev())
}

func TestFromEnv_SigningKeyRequiredOutsideDev(t *testing.T) {
	t.Setenv("DCAF_ENV", "production")

	_, err := FromEnv()
	require.Error(t, err)
	assert.ErrorContains(t, err, "JWT_SIGNING_KEY")

	t.Setenv("JWT_SIGNING_KEY", devSigningKey)
	_, err = FromEnv()
	require.Error(t, err)

	t.Setenv("JWT_SIGNING_KEY", "prod-key")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.False(t, cfg.IsDev())
	assert.False(t, cfg.UsesDevSigningKey())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("DCAF_ADDR", ":9090")
	t.Setenv("JWT_SIGNING_KEY", "k")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("FETCH_TIMEOUT", "750ms")
	t.Setenv("TOKEN_TTL", "1h")
	t.Setenv("DEVICE_FINGERPRINTS", "false")
	t.Setenv("RATE_LIMIT_AUTH", "3")
	t.Setenv("RATE_LIMIT_WINDOW", "10s")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.False(t, cfg.UsesDevSigningKey())
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 750*time.Millisecond, cfg.Pipeline.FetchTimeout)
	assert.Equal(t, time.Hour, cfg.Pipeline.TokenTTL)
	assert.False(t, cfg.Pipeline.DeviceFingerprints)
	assert.Equal(t, 3, cfg.RateLimit.Auth)
	assert.Equal(t, 30, cfg.RateLimit.Sensitive)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.Window)
}

func TestFromEnv_InvalidValues(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT", "soon")
	t.Setenv("CHALLENGE_TTL", "-1s")
	t.Setenv("LOG_LEVEL", "loud")
	t.Setenv("RATE_LIMIT_SENSITIVE", "-2")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FETCH_TIMEOUT")
	assert.Contains(t, err.Error(), "CHALLENGE_TTL")
	assert.Contains(t, err.Error(), "LOG_LEVEL")
	assert.Contains(t, err.Error(), "RATE_LIMIT_SENSITIVE")
}

func TestPipeline_ApplyYAML(t *testing.T) {
	p := Defaults().Pipeline
	err := p.ApplyYAML([]byte(`
fetch_timeout: 2s
fixtures_path: /etc/dcaf/fixtures.yaml
breaker_failure_threshold: 3
device_fingerprints: false
`))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, p.FetchTimeout)
	assert.Equal(t, "/etc/dcaf/fixtures.yaml", p.FixturesPath)
	assert.Equal(t, 3, p.BreakerThreshold)
	assert.False(t, p.DeviceFingerprints)
	assert.Equal(t, 15*time.Minute, p.TokenTTL, "unset fields keep their value")

	assert.Error(t, p.ApplyYAML([]byte("unknown_knob: 1\n")))
}

func TestLoad_EnvFileAndScoringConfig(t *testing.T) {
	dir := t.TempDir()
	scoring := filepath.Join(dir, "scoring.yaml")
	require.NoError(t, os.WriteFile(scoring, []byte("step_up_ttl: 90s\n"), 0o600))
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("DCAF_EVENTS_TOPIC=audit.events\nSCORING_CONFIG="+scoring+"\n"), 0o600))

	// godotenv does not override variables that are already set, so make
	// sure these two start unset and are cleaned up afterwards.
	t.Setenv("DCAF_EVENTS_TOPIC", "")
	t.Setenv("SCORING_CONFIG", "")
	require.NoError(t, os.Unsetenv("DCAF_EVENTS_TOPIC"))
	require.NoError(t, os.Unsetenv("SCORING_CONFIG"))

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "audit.events", cfg.Kafka.Topic)
	assert.Equal(t, 90*time.Second, cfg.Pipeline.StepUpTTL)

	_, err = Load(filepath.Join(dir, "missing.env"))
	assert.NoError(t, err, "a missing env file is not an error")
}
