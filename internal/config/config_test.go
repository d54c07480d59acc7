package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/kvsession/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kvsession.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, `
REDIS_URL: redis://file:6379/0
log_level: warn
retry_backoff: 2s
retry_max_attempts: 4
`)
	env := envFrom(map[string]string{
		"REDIS_URL":    "redis://env:6379/0",
		"LOG_LEVEL":    "debug",
		"UNRELATED":    "ignored",
		"METRICS_ADDR": ":9000",
	})
	overrides := map[string]string{"log_level": "error"}

	options, err := config.Load(path, env, overrides)
	require.NoError(t, err)

	assert.Equal(t, "redis://env:6379/0", options["redis_url"], "Environment beats the file")
	assert.Equal(t, "error", options["log_level"], "Command line beats the environment")
	assert.Equal(t, "2s", options["retry_backoff"])
	assert.NotContains(t, options, "unrelated")

	cfg, err := config.Decode(options)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, ":9000", cfg.MetricsAddr)
	assert.Equal(t, "redis://env:6379/0", cfg.Session.URL)
	assert.Equal(t, 2*time.Second, cfg.Session.RetryBackoff)
	assert.Equal(t, 4, cfg.Session.RetryMaxAttempts)
	assert.Equal(t, 60*time.Second, cfg.Session.RetryMaxElapsed, "Unset keys keep their defaults")
}

func TestLoad_NumbersAreMilliseconds(t *testing.T) {
	path := writeFile(t, "retry_backoff: 250\nhealth_interval: 1000\n")

	options, err := config.Load(path, nil, nil)
	require.NoError(t, err)
	cfg, err := config.Decode(options)
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Session.RetryBackoff)
	assert.Equal(t, time.Second, cfg.Session.HealthInterval)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), nil, nil)
	assert.Error(t, err, "A named file must exist")

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	options, err := config.Load("", nil, nil)
	require.NoError(t, err, "The default file is optional")
	assert.Empty(t, options)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeFile(t, "redis_url: [unterminated\n")
	_, err := config.Load(path, nil, nil)
	assert.Error(t, err)
}

func TestDecode_Defaults(t *testing.T) {
	cfg, err := config.Decode(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Session.URL)
}

func TestDecode_InvalidSession(t *testing.T) {
	_, err := config.Decode(map[string]any{"retry_max_attempts": "-1"})
	assert.Error(t, err)
}

func TestParseOverrides(t *testing.T) {
	got, err := config.ParseOverrides([]string{"redis_url=redis://h:1/0", "retry_backoff=1s", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"redis_url":     "redis://h:1/0",
		"retry_backoff": "1s",
		"empty":         "",
	}, got)

	_, err = config.ParseOverrides([]string{"novalue"})
	assert.Error(t, err)
	_, err = config.ParseOverrides([]string{"=x"})
	assert.Error(t, err)
}
