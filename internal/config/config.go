// Package config loads shopkeeper settings from a YAML file, SHOPKEEPER_* environment
// variables and built-in defaults, in that order of precedence (env wins).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/iudanet/shopkeeper/internal/client/backup"
	"github.com/iudanet/shopkeeper/internal/client/notify"
	"github.com/iudanet/shopkeeper/internal/client/shipping"
	"github.com/iudanet/shopkeeper/internal/logging"
)

// EnvPrefix is the prefix of environment overrides: SHOPKEEPER_REMOTE_URL overrides remote.url
const EnvPrefix = "SHOPKEEPER"

// Config holds all settings of the client and the catalog server
type Config struct {
	Log      logging.Config  `mapstructure:"log"`
	Local    LocalConfig     `mapstructure:"local"`
	Remote   RemoteConfig    `mapstructure:"remote"`
	Backup   backup.Config   `mapstructure:"backup"`
	Sync     SyncConfig      `mapstructure:"sync"`
	Shipping shipping.Config `mapstructure:"shipping"`
	Outbox   OutboxConfig    `mapstructure:"outbox"`
	Notify   notify.Config   `mapstructure:"notify"`
	Server   ServerConfig    `mapstructure:"server"`
}

// LocalConfig is the device cache
type LocalConfig struct {
	Path       string `mapstructure:"path"`
	QuotaBytes int64  `mapstructure:"quota_bytes"` // 0: без ограничения
}

// RemoteConfig is the catalog API the client talks to
type RemoteConfig struct {
	URL     string        `mapstructure:"url"`
	Enabled bool          `mapstructure:"enabled"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SyncConfig tunes the synchronization engine
type SyncConfig struct {
	GraceWindow    time.Duration `mapstructure:"grace_window"`
	FanoutTimeout  time.Duration `mapstructure:"fanout_timeout"`
	RemoteParallel int           `mapstructure:"remote_parallel"`
}

// OutboxConfig tunes the courier job dispatcher
type OutboxConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxBackoff   time.Duration `mapstructure:"max_backoff"`
}

// ServerConfig is the catalog server
type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	DBPath            string        `mapstructure:"db_path"`
	AuthEnabled       bool          `mapstructure:"auth_enabled"`
	JWTSecret         string        `mapstructure:"jwt_secret"`
	TokenTTL          time.Duration `mapstructure:"token_ttl"`
	AdminUser         string        `mapstructure:"admin_user"`
	AdminPasswordHash string        `mapstructure:"admin_password_hash"` // bcrypt
	RateLimit         int           `mapstructure:"rate_limit"`          // запросов в минуту с одного IP
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stderr")

	v.SetDefault("local.path", "shopkeeper.db")
	v.SetDefault("local.quota_bytes", 0)

	v.SetDefault("remote.url", "http://localhost:8080")
	v.SetDefault("remote.enabled", true)
	v.SetDefault("remote.timeout", 8*time.Second)

	v.SetDefault("backup.addr", "")
	v.SetDefault("backup.password", "")
	v.SetDefault("backup.key_prefix", "shopkeeper:")
	v.SetDefault("backup.db", 0)

	v.SetDefault("sync.grace_window", 60*time.Second)
	v.SetDefault("sync.fanout_timeout", 15*time.Second)
	v.SetDefault("sync.remote_parallel", 4)

	v.SetDefault("shipping.base_url", "https://app.bosta.co")
	v.SetDefault("shipping.api_key", "")
	v.SetDefault("shipping.business_name", "")
	v.SetDefault("shipping.business_phone", "")
	v.SetDefault("shipping.timeout", 10*time.Second)
	v.SetDefault("shipping.pickup_cutoff_hour", 15)
	v.SetDefault("shipping.max_attempts", 5)
	v.SetDefault("shipping.initial_backoff", 30*time.Second)
	v.SetDefault("shipping.pickup_address.city_code", "")
	v.SetDefault("shipping.pickup_address.first_line", "")
	v.SetDefault("shipping.pickup_address.building_number", "")
	v.SetDefault("shipping.pickup_address.floor", "")
	v.SetDefault("shipping.pickup_address.apartment", "")

	v.SetDefault("outbox.poll_interval", 30*time.Second)
	v.SetDefault("outbox.max_backoff", 30*time.Minute)

	v.SetDefault("notify.url", "")
	v.SetDefault("notify.token", "")
	v.SetDefault("notify.timeout", 5*time.Second)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.db_path", "catalog.db")
	v.SetDefault("server.auth_enabled", true)
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.token_ttl", 24*time.Hour)
	v.SetDefault("server.admin_user", "admin")
	v.SetDefault("server.admin_password_hash", "")
	v.SetDefault("server.rate_limit", 120)
}

// Load reads the configuration. With an empty path shopkeeper.yaml is looked up in the
// working directory and in $HOME/.shopkeeper; a missing file is not an error then.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("shopkeeper")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.shopkeeper")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that would make the engine misbehave
func (c *Config) Validate() error {
	var errs []error

	if c.Local.Path == "" {
		errs = append(errs, errors.New("local.path is required"))
	}
	if c.Remote.Enabled && c.Remote.URL == "" {
		errs = append(errs, errors.New("remote.url is required when remote.enabled is set"))
	}
	if c.Remote.Timeout <= 0 {
		errs = append(errs, errors.New("remote.timeout must be positive"))
	}
	if c.Sync.GraceWindow < 0 {
		errs = append(errs, errors.New("sync.grace_window must not be negative"))
	}
	if c.Sync.FanoutTimeout <= 0 {
		errs = append(errs, errors.New("sync.fanout_timeout must be positive"))
	}
	if c.Sync.RemoteParallel < 1 {
		errs = append(errs, errors.New("sync.remote_parallel must be at least 1"))
	}
	if c.Outbox.PollInterval <= 0 {
		errs = append(errs, errors.New("outbox.poll_interval must be positive"))
	}

	return errors.Join(errs...)
}

// ValidateServer checks settings only the catalog server needs
func (c *Config) ValidateServer() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.DBPath == "" {
		errs = append(errs, errors.New("server.db_path is required"))
	}
	if c.Server.AuthEnabled {
		if len(c.Server.JWTSecret) < 32 {
			errs = append(errs, errors.New("server.jwt_secret must be at least 32 bytes when auth is enabled"))
		}
		if c.Server.TokenTTL <= 0 {
			errs = append(errs, errors.New("server.token_ttl must be positive"))
		}
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit must not be negative"))
	}

	return errors.Join(errs...)
}
