package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/credence/pkg/logger"
)

const (
	testRecordKey = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="
	testTokenKey  = "ZmVkY2JhOTg3NjU0MzIxMGZlZGNiYTk4NzY1NDMyMTA="
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsAndEnvKeys(t *testing.T) {
	t.Setenv("DB_KEY", testRecordKey)
	t.Setenv("MSG_KEY", testTokenKey)

	cfg, err := NewLoader(logger.NewNoopLogger(), t.TempDir()).Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.Equal(t, "env", cfg.Secrets.Source)
	assert.Equal(t, testRecordKey, cfg.Secrets.RecordKey)
	assert.Equal(t, testTokenKey, cfg.Secrets.TokenKey)
	assert.Equal(t, 7*24*time.Hour, cfg.Token.TTL)
	assert.Equal(t, uint32(65536), cfg.Password.Memory)
	assert.Equal(t, uint8(4), cfg.Password.Parallelism)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

func TestLoad_PrefixedEnvWins(t *testing.T) {
	t.Setenv("DB_KEY", "ignored")
	t.Setenv("CREDENCE_SECRETS_RECORD_KEY", testRecordKey)
	t.Setenv("CREDENCE_SECRETS_TOKEN_KEY", testTokenKey)
	t.Setenv("CREDENCE_SERVER_PORT", "9090")

	cfg, err := NewLoader(logger.NewNoopLogger(), t.TempDir()).Load()
	require.NoError(t, err)
	assert.Equal(t, testRecordKey, cfg.Secrets.RecordKey)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_File(t *testing.T) {
	t.Setenv("MSG_KEY", testTokenKey)
	dir := t.TempDir()
	writeConfig(t, dir, fmt.Sprintf(`
server:
  port: 8443
  environment: production
  require_tls: true
database:
  driver: sqlite
  dsn: "file::memory:"
secrets:
  record_key: %s
token:
  ttl: 1h
log:
  level: warn
`, testRecordKey))

	cfg, err := NewLoader(logger.NewNoopLogger(), dir).Load()
	require.NoError(t, err)
	assert.Equal(t, 8443, cfg.Server.Port)
	assert.True(t, cfg.Server.IsProduction())
	assert.True(t, cfg.Server.RequireTLS)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file::memory:", cfg.Database.GetDSN())
	assert.Equal(t, time.Hour, cfg.Token.TTL)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_MissingKeysFails(t *testing.T) {
	t.Setenv("DB_KEY", testRecordKey)

	_, err := NewLoader(logger.NewNoopLogger(), t.TempDir()).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MSG_KEY")
	assert.NotContains(t, err.Error(), testRecordKey)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: 8080, Environment: "test"},
			Database:  DatabaseConfig{Driver: "sqlite"},
			Secrets:   SecretsConfig{Source: "env", RecordKey: testRecordKey, TokenKey: testTokenKey},
			Token:     TokenConfig{TTL: time.Hour},
			Password:  PasswordConfig{Iterations: 1, Parallelism: 1},
			RateLimit: RateLimitConfig{Enabled: true, Backend: "memory", LoginAttempts: 5, Window: time.Minute},
			Audit:     AuditConfig{Enabled: true, Sink: "log"},
			Log:       LogConfig{Level: "info"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad environment", func(c *Config) { c.Server.Environment = "staging" }, "server.environment"},
		{"half tls", func(c *Config) { c.Server.TLSCertFile = "cert.pem" }, "tls_key_file"},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"missing record key", func(c *Config) { c.Secrets.RecordKey = "" }, "DB_KEY"},
		{"vault without address", func(c *Config) { c.Secrets = SecretsConfig{Source: "vault"} }, "vault.address"},
		{"vault with address", func(c *Config) {
			c.Secrets = SecretsConfig{Source: "vault"}
			c.Vault.Address = "http://vault:8200"
		}, ""},
		{"bad source", func(c *Config) { c.Secrets.Source = "file" }, "secrets.source"},
		{"zero ttl", func(c *Config) { c.Token.TTL = 0 }, "token.ttl"},
		{"redis limiter without redis", func(c *Config) { c.RateLimit.Backend = "redis" }, "redis.enabled"},
		{"kafka without brokers", func(c *Config) { c.Audit.Sink = "kafka" }, "audit.brokers"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"tracing without endpoint", func(c *Config) { c.Tracing.Enabled = true }, "tracing.endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSecretsConfig_StringRedacts(t *testing.T) {
	s := SecretsConfig{Source: "env", RecordKey: testRecordKey, TokenKey: testTokenKey}
	for _, out := range []string{s.String(), fmt.Sprintf("%v", s), fmt.Sprintf("%+v", s), fmt.Sprintf("%#v", s)} {
		assert.NotContains(t, out, testRecordKey)
		assert.NotContains(t, out, testTokenKey)
	}

	v := VaultConfig{Address: "http://vault", Token: "s.vaulttoken"}
	assert.NotContains(t, v.String(), "s.vaulttoken")
}

func TestLoader_HandleChange(t *testing.T) {
	t.Setenv("DB_KEY", testRecordKey)
	t.Setenv("MSG_KEY", testTokenKey)
	dir := t.TempDir()
	path := writeConfig(t, dir, "log:\n  level: info\n")

	l := NewLoader(logger.NewNoopLogger(), dir)
	_, err := l.Load()
	require.NoError(t, err)

	writeConfig(t, dir, "log:\n  level: debug\n")
	require.NoError(t, l.v.ReadInConfig())

	var got *Config
	l.handleChange(fsnotify.Event{Name: path, Op: fsnotify.Write}, func(c *Config) { got = c })
	require.NotNil(t, got)
	assert.Equal(t, "debug", got.Log.Level)

	// An invalid change is ignored.
	writeConfig(t, dir, "log:\n  level: loud\n")
	require.NoError(t, l.v.ReadInConfig())
	got = nil
	l.handleChange(fsnotify.Event{Name: path, Op: fsnotify.Write}, func(c *Config) { got = c })
	assert.Nil(t, got)

	// Chmod events are not reloads.
	l.handleChange(fsnotify.Event{Name: path, Op: fsnotify.Chmod}, func(c *Config) { got = c })
	assert.Nil(t, got)
}
