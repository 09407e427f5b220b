package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
tracking:
  hash_salt: unit-test-salt
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, defaultPort, cfg.Port)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, defaultDBHost, cfg.Database.Host)
	assert.Equal(t, defaultRedisPort, cfg.Redis.Port)

	assert.Equal(t, 7, cfg.Tracking.RawRetentionDays)
	assert.Equal(t, 30, cfg.Tracking.TrendWindowDays)
	assert.Equal(t, 5*time.Minute, cfg.Tracking.StatsCacheTTL())
	assert.Equal(t, 5*time.Second, cfg.Tracking.DedupWindow())
	assert.Equal(t, 7*24*time.Hour, cfg.Tracking.RawRetention())
}

func TestLoad_OverridesFromFile(t *testing.T) {
	path := writeConfig(t, `
port: 8080
env: production
jwt_secret: s3cret
allowed_origins:
  - https://pixelspace.example
database:
  host: db.internal
  name: views
redis:
  host: cache.internal
tracking:
  hash_salt: unit-test-salt
  raw_retention_days: 14
  trend_window_days: 60
  stats_cache_ttl_seconds: 60
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "views", cfg.Database.Name)
	assert.Equal(t, "cache.internal", cfg.Redis.Host)
	assert.Equal(t, 14, cfg.Tracking.RawRetentionDays)
	assert.Equal(t, time.Minute, cfg.Tracking.StatsCacheTTL())

	// Untouched blocks keep their defaults.
	assert.Equal(t, defaultDBPort, cfg.Database.Port)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing hash salt",
			content: "port: 8080\n",
			wantErr: "hash_salt",
		},
		{
			name: "oversized hash salt",
			content: "tracking:\n  hash_salt: " +
				"xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx\n", // 65 bytes
			wantErr: "hash_salt",
		},
		{
			name:    "port out of range",
			content: "port: 70000\ntracking:\n  hash_salt: ok\n",
			wantErr: "port",
		},
		{
			name:    "trend window shorter than retention",
			content: "tracking:\n  hash_salt: ok\n  raw_retention_days: 10\n  trend_window_days: 7\n",
			wantErr: "trend_window_days",
		},
		{
			name:    "unknown field rejected",
			content: "tracking:\n  hash_salt: ok\n  typo_field: 1\n",
			wantErr: "typo_field",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}
