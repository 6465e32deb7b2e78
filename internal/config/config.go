// Package config holds the Credence API configuration and its viper loader.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/credence/pkg/constants"
)

// Config holds the application's configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Secrets   SecretsConfig   `mapstructure:"secrets"`
	Vault     VaultConfig     `mapstructure:"vault"`
	Token     TokenConfig     `mapstructure:"token"`
	Password  PasswordConfig  `mapstructure:"password"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Environment string `mapstructure:"environment"`

	// RequireTLS rejects plain-HTTP requests with 403 on secured routes.
	RequireTLS bool `mapstructure:"require_tls"`
	// TrustForwardedProto accepts X-Forwarded-Proto: https from a terminating proxy.
	TrustForwardedProto bool `mapstructure:"trust_forwarded_proto"`

	TLSCertFile string `mapstructure:"tls_cert_file"`
	TLSKeyFile  string `mapstructure:"tls_key_file"`

	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Addr returns host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsProduction reports whether the server runs in production.
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == constants.EnvironmentProduction
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// GetDSN returns DSN when set, otherwise builds one for the driver.
func (c *DatabaseConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	if c.Driver == "sqlite" {
		return "file::memory:?cache=shared"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// SecretsConfig names where the process keys come from. With source "env" the
// keys are read from RecordKey and TokenKey (DB_KEY and MSG_KEY); with "vault"
// they are fetched from the Vault KV path.
type SecretsConfig struct {
	Source    string `mapstructure:"source"`
	RecordKey string `mapstructure:"record_key"`
	TokenKey  string `mapstructure:"token_key"`
}

// String never prints key material.
func (c SecretsConfig) String() string {
	return fmt.Sprintf("SecretsConfig{Source:%s RecordKey:%s TokenKey:%s}",
		c.Source, redact(c.RecordKey), redact(c.TokenKey))
}

// GoString keeps %#v from printing key material.
func (c SecretsConfig) GoString() string {
	return c.String()
}

type VaultConfig struct {
	Address    string        `mapstructure:"address"`
	Token      string        `mapstructure:"token"`
	MountPath  string        `mapstructure:"mount_path"`
	SecretPath string        `mapstructure:"secret_path"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// String never prints the Vault token.
func (c VaultConfig) String() string {
	return fmt.Sprintf("VaultConfig{Address:%s Token:%s MountPath:%s SecretPath:%s}",
		c.Address, redact(c.Token), c.MountPath, c.SecretPath)
}

func (c VaultConfig) GoString() string {
	return c.String()
}

type TokenConfig struct {
	TTL    time.Duration `mapstructure:"ttl"`
	Issuer string        `mapstructure:"issuer"`
}

// PasswordConfig is the argon2id work factor for new digests.
type PasswordConfig struct {
	Memory      uint32 `mapstructure:"memory"` // KiB
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Backend is "redis" or "memory".
	Backend       string        `mapstructure:"backend"`
	LoginAttempts int           `mapstructure:"login_attempts"`
	Window        time.Duration `mapstructure:"window"`
}

type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Sink is "log", "database" or "kafka".
	Sink    string   `mapstructure:"sink"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("server.port must be in 1..65535")
	}
	switch c.Server.Environment {
	case constants.EnvironmentDevelopment, constants.EnvironmentTest, constants.EnvironmentProduction:
	default:
		add("server.environment %q is not one of development, test, production", c.Server.Environment)
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		add("server.tls_cert_file and server.tls_key_file must be set together")
	}

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		add("database.driver %q is not one of postgres, sqlite", c.Database.Driver)
	}

	switch c.Secrets.Source {
	case "env":
		if strings.TrimSpace(c.Secrets.RecordKey) == "" {
			add("record encryption key missing: set DB_KEY")
		}
		if strings.TrimSpace(c.Secrets.TokenKey) == "" {
			add("token signing key missing: set MSG_KEY")
		}
	case "vault":
		if c.Vault.Address == "" {
			add("vault.address is required when secrets.source is vault")
		}
	default:
		add("secrets.source %q is not one of env, vault", c.Secrets.Source)
	}

	if c.Token.TTL <= 0 {
		add("token.ttl must be positive")
	}
	if c.Password.Iterations < 1 || c.Password.Parallelism < 1 {
		add("password.iterations and password.parallelism must be >= 1")
	}

	if c.RateLimit.Enabled {
		switch c.RateLimit.Backend {
		case "memory":
		case "redis":
			if !c.Redis.Enabled {
				add("rate_limit.backend redis needs redis.enabled")
			}
		default:
			add("rate_limit.backend %q is not one of redis, memory", c.RateLimit.Backend)
		}
		if c.RateLimit.LoginAttempts <= 0 || c.RateLimit.Window <= 0 {
			add("rate_limit.login_attempts and rate_limit.window must be positive")
		}
	}

	if c.Audit.Enabled {
		switch c.Audit.Sink {
		case "log", "database":
		case "kafka":
			if len(c.Audit.Brokers) == 0 || c.Audit.Topic == "" {
				add("audit.brokers and audit.topic are required for the kafka sink")
			}
		default:
			add("audit.sink %q is not one of log, database, kafka", c.Audit.Sink)
		}
	}

	switch constants.LogLevel(c.Log.Level) {
	case constants.LogLevelDebug, constants.LogLevelInfo, constants.LogLevelWarn, constants.LogLevelError:
	default:
		add("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}

	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		add("tracing.endpoint is required when tracing is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***REDACTED***"
}
