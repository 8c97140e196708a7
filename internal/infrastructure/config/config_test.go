package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CFO_VAULT_ENCRYPTION_KEY", testKey)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "cfo-sync", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, "sandbox", cfg.Plaid.Environment)
	assert.Equal(t, []string{"transactions"}, cfg.Plaid.Products)
	assert.Equal(t, int64(100), cfg.Stripe.PageSize)
	assert.True(t, cfg.Sync.Enabled)
	assert.Equal(t, "0 */6 * * *", cfg.Sync.Schedule)
	assert.Equal(t, 30, cfg.Sync.DefaultWindowDays)
	assert.Equal(t, 7, cfg.Sync.ScheduledWindowDays)
	assert.Equal(t, 10*time.Minute, cfg.Sync.WebhookDedupTTL)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.CollectorEndpoint)
	assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
	assert.Equal(t, 200*time.Millisecond, cfg.Telemetry.SlowQueryThresh)
	assert.Equal(t, time.Minute, cfg.Telemetry.MetricsInterval)
	assert.False(t, cfg.Telemetry.LogsEnabled)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[app]
name = "from-file"

[database]
driver = "sqlite"
sqlite_path = "/tmp/cfo-test.db"

[vault]
encryption_key = "a passphrase that is long enough"

[sync]
enabled = false
schedule = "*/5 * * * *"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CFO_APP_NAME", "from-env")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.App.Name)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/cfo-test.db", cfg.Database.DSN())
	assert.False(t, cfg.Sync.Enabled)
	assert.Equal(t, "*/5 * * * *", cfg.Sync.Schedule)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{Vault: VaultConfig{EncryptionKey: testKey}}
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing key", func(c *Config) { c.Vault.EncryptionKey = "" }, "vault.encryption_key is required"},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"idle exceeds open", func(c *Config) { c.Database.MaxIdleConns = 100 }, "cannot exceed"},
		{"bad plaid env", func(c *Config) { c.Plaid.Environment = "staging" }, "plaid.environment"},
		{"sampling ratio out of range", func(c *Config) { c.Telemetry.SamplingRatio = 1.5 }, "telemetry.sampling_ratio"},
		{"page size too large", func(c *Config) { c.Stripe.PageSize = 500 }, "stripe.page_size"},
		{"production needs password", func(c *Config) { c.App.Env = "production" }, "database.password"},
		{"production rejects sqlite", func(c *Config) {
			c.App.Env = "production"
			c.Database.Driver = "sqlite"
		}, "must be postgres"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDSN_EscapesPassword(t *testing.T) {
	d := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p@ss/word", DBName: "cfo", SSLMode: "require"}
	assert.Equal(t, "postgres://u:p%40ss%2Fword@db:5432/cfo?sslmode=require", d.DSN())
}
