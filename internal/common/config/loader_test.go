package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
platform:
  base_url: https://platform.example
  app_id: immo
database:
  redis:
    address: localhost:6379
workers:
  run-calculator:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "immo-workers", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, HistoryBackendPlatform, cfg.History.Backend)
	assert.Equal(t, HistorySchemaCurrent, cfg.History.Schema)
	assert.Equal(t, 30*time.Second, GetDuration(cfg.Wizard.AutosaveInterval))
	assert.Equal(t, 30*time.Second, GetDuration(cfg.Sharing.PollInterval))
	assert.Equal(t, 10, cfg.Sharing.PageSize)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
	assert.Empty(t, cfg.Tracing.Endpoint)

	w := cfg.Workers["run-calculator"]
	assert.True(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 30000, w.Timeout)
	assert.Equal(t, 3, w.MaxRetries)
}

func TestLoadFromFile_ExpandsEnv(t *testing.T) {
	t.Setenv("IMMO_TEST_APP_ID", "immo-staging")
	path := writeConfig(t, `
platform:
  base_url: https://platform.example
  app_id: ${IMMO_TEST_APP_ID}
database:
  redis:
    address: localhost:6379
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "immo-staging", cfg.Platform.AppID)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Platform.BaseURL = "https://platform.example"
		cfg.Platform.AppID = "immo"
		cfg.Database.Redis.Address = "localhost:6379"
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no base url", mutate: func(c *Config) { c.Platform.BaseURL = "" }, wantErr: "platform.base_url"},
		{name: "no app id", mutate: func(c *Config) { c.Platform.AppID = "" }, wantErr: "platform.app_id"},
		{name: "camunda without broker", mutate: func(c *Config) { c.Camunda.Enabled = true }, wantErr: "broker_address"},
		{name: "postgres without host", mutate: func(c *Config) { c.History.Backend = HistoryBackendPostgres }, wantErr: "postgres.host"},
		{name: "postgres complete", mutate: func(c *Config) {
			c.History.Backend = HistoryBackendPostgres
			c.Database.Postgres.Host = "db"
			c.Database.Postgres.Database = "immo"
			c.Database.Postgres.User = "immo"
		}},
		{name: "unknown backend", mutate: func(c *Config) { c.History.Backend = "sqlite" }, wantErr: "history.backend"},
		{name: "unknown schema", mutate: func(c *Config) { c.History.Schema = "v3" }, wantErr: "history.schema"},
		{name: "no redis", mutate: func(c *Config) { c.Database.Redis.Address = "" }, wantErr: "redis.address"},
		{name: "events without topic", mutate: func(c *Config) { c.Notifications.Events.Enabled = true }, wantErr: "topic_arn"},
		{name: "email without sender", mutate: func(c *Config) { c.Notifications.Email.Enabled = true }, wantErr: "from_email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "immo", Password: "secret", Database: "immo", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=immo password=secret dbname=immo sslmode=disable", p.GetDSN())
}
