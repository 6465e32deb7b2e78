package config

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/turtacn/credence/pkg/constants"
	"github.com/turtacn/credence/pkg/logger"
)

// Loader reads Config from an optional config.yaml and the environment.
type Loader struct {
	v     *viper.Viper
	log   logger.Logger
	mu    sync.Mutex
	paths []string
}

// NewLoader returns a loader searching paths for config.yaml. Without paths
// it searches /etc/credence/ and the working directory.
func NewLoader(log logger.Logger, paths ...string) *Loader {
	if len(paths) == 0 {
		paths = []string{"/etc/credence/", "."}
	}
	return &Loader{v: viper.New(), log: log, paths: paths}
}

// LoadConfig loads the configuration from the default locations.
func LoadConfig(log logger.Logger) (*Config, error) {
	return NewLoader(log).Load()
}

// Load reads, unmarshals and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	v := l.v
	setDefaults(v)

	// Load from config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range l.paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// Load from environment variables
	v.SetEnvPrefix("CREDENCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	cfg, err := l.unmarshal()
	if err != nil {
		return nil, err
	}

	l.log.Info(context.Background(), "Configuration loaded",
		logger.String("config_file", v.ConfigFileUsed()),
		logger.String("environment", cfg.Server.Environment),
		logger.String("key_source", cfg.Secrets.Source),
	)
	return cfg, nil
}

func (l *Loader) unmarshal() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Watch re-reads the config file on change and hands every valid result to
// onChange. Only hot-reloadable settings such as log.level should be applied
// by the callback. It is a no-op when no config file was found.
func (l *Loader) Watch(onChange func(*Config)) bool {
	if l.v.ConfigFileUsed() == "" {
		return false
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		l.handleChange(e, onChange)
	})
	l.v.WatchConfig()
	return true
}

func (l *Loader) handleChange(e fsnotify.Event, onChange func(*Config)) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}
	l.mu.Lock()
	cfg, err := l.unmarshal()
	l.mu.Unlock()
	if err != nil {
		l.log.Warn(context.Background(), "Ignoring invalid config change",
			logger.String("file", e.Name),
			logger.Error(err),
		)
		return
	}
	l.log.Info(context.Background(), "Configuration reloaded", logger.String("file", e.Name))
	onChange(cfg)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", constants.EnvironmentDevelopment)
	v.SetDefault("server.require_tls", false)
	v.SetDefault("server.trust_forwarded_proto", false)
	v.SetDefault("server.tls_cert_file", "")
	v.SetDefault("server.tls_key_file", "")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "credence")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "credence")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("secrets.source", "env")
	v.SetDefault("secrets.record_key", "")
	v.SetDefault("secrets.token_key", "")

	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.mount_path", "secret")
	v.SetDefault("vault.secret_path", "credence")
	v.SetDefault("vault.timeout", "5s")

	v.SetDefault("token.ttl", constants.AuthTokenDefaultTTL.String())
	v.SetDefault("token.issuer", constants.AuthTokenIssuer)

	v.SetDefault("password.memory", constants.Argon2Memory)
	v.SetDefault("password.iterations", constants.Argon2Iterations)
	v.SetDefault("password.parallelism", constants.Argon2Parallelism)
	v.SetDefault("password.salt_length", constants.Argon2SaltLength)
	v.SetDefault("password.key_length", constants.Argon2KeyLength)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.backend", "memory")
	v.SetDefault("rate_limit.login_attempts", constants.DefaultLoginAttemptsPerMinute)
	v.SetDefault("rate_limit.window", constants.DefaultRateLimitWindow.String())

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.sink", "log")
	v.SetDefault("audit.brokers", []string{})
	v.SetDefault("audit.topic", "credence.audit")

	v.SetDefault("log.level", string(constants.LogLevelInfo))
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "stdout")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.service_name", "credence-api")
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// bindEnv maps the conventional variable names onto config keys. Earlier
// names win when several are set.
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("secrets.record_key", "CREDENCE_SECRETS_RECORD_KEY", "DB_KEY")
	_ = v.BindEnv("secrets.token_key", "CREDENCE_SECRETS_TOKEN_KEY", "MSG_KEY")
	_ = v.BindEnv("vault.address", "CREDENCE_VAULT_ADDRESS", "VAULT_ADDR")
	_ = v.BindEnv("vault.token", "CREDENCE_VAULT_TOKEN", "VAULT_TOKEN")
	_ = v.BindEnv("database.dsn", "CREDENCE_DATABASE_DSN", "DATABASE_URL")
}
