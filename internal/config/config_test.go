package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "shopkeeper.db", cfg.Local.Path)
	assert.Equal(t, 8*time.Second, cfg.Remote.Timeout)
	assert.True(t, cfg.Remote.Enabled)
	assert.Equal(t, 60*time.Second, cfg.Sync.GraceWindow)
	assert.Equal(t, 15*time.Second, cfg.Sync.FanoutTimeout)
	assert.False(t, cfg.Backup.Enabled())
	assert.Equal(t, 15, cfg.Shipping.PickupCutoff)
	assert.Equal(t, 5, cfg.Shipping.MaxAttempts)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shopkeeper.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
local:
  path: /var/lib/shop/cache.db
remote:
  url: https://catalog.example.com
  timeout: 3s
backup:
  addr: redis:6379
shipping:
  api_key: file-key
  pickup_address:
    first_line: Warehouse 4
`), 0o600))

	t.Setenv("SHOPKEEPER_SYNC_GRACE_WINDOW", "30s")
	t.Setenv("SHOPKEEPER_SHIPPING_API_KEY", "env-key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/shop/cache.db", cfg.Local.Path)
	assert.Equal(t, "https://catalog.example.com", cfg.Remote.URL)
	assert.Equal(t, 3*time.Second, cfg.Remote.Timeout)
	assert.True(t, cfg.Backup.Enabled())
	assert.Equal(t, "shopkeeper:", cfg.Backup.KeyPrefix)
	assert.Equal(t, 30*time.Second, cfg.Sync.GraceWindow)
	assert.Equal(t, "env-key", cfg.Shipping.APIKey)
	assert.Equal(t, "Warehouse 4", cfg.Shipping.PickupAddress.FirstLine)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Sync.RemoteParallel = 0
	cfg.Remote.Timeout = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync.remote_parallel")
	assert.Contains(t, err.Error(), "remote.timeout")
}

func TestValidateServer(t *testing.T) {
	valid := func() *Config {
		return &Config{Server: ServerConfig{
			Addr:        ":8080",
			DBPath:      "catalog.db",
			AuthEnabled: true,
			JWTSecret:   "0123456789abcdef0123456789abcdef",
			TokenTTL:    time.Hour,
			RateLimit:   60,
		}}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "short secret", mutate: func(c *Config) { c.Server.JWTSecret = "short" }, wantErr: "server.jwt_secret"},
		{name: "auth disabled ignores secret", mutate: func(c *Config) {
			c.Server.AuthEnabled = false
			c.Server.JWTSecret = ""
		}},
		{name: "no ttl", mutate: func(c *Config) { c.Server.TokenTTL = 0 }, wantErr: "server.token_ttl"},
		{name: "negative rate limit", mutate: func(c *Config) { c.Server.RateLimit = -1 }, wantErr: "server.rate_limit"},
		{name: "no db path", mutate: func(c *Config) { c.Server.DBPath = "" }, wantErr: "server.db_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.ValidateServer()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
