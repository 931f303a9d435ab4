// Package config provides configuration management using viper.
// It supports loading from YAML files, a .env file and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Transport modes.
const (
	ModeWebhook = "webhook"
	ModePolling = "polling"
)

// Config holds all application configuration.
type Config struct {
	Bot      BotConfig      `mapstructure:"bot"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
	Mode  string `mapstructure:"mode"`
}

// AdminConfig holds the single operator allowed to use the bot.
type AdminConfig struct {
	UserID string `mapstructure:"user_id"`
}

// ServerConfig holds the webhook HTTP server configuration.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	WebhookPath  string        `mapstructure:"webhook_path"`
	PublicURL    string        `mapstructure:"public_url"`
	SecretToken  string        `mapstructure:"secret_token"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisConfig enables update deduplication when Addr is set.
type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	DedupeTTL time.Duration `mapstructure:"dedupe_ttl"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// A .env file in the working directory is loaded first if present; it never
// overrides variables already set in the environment.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. BOT_TOKEN, ADMIN_USER_ID, DATABASE_HOST
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Admin.UserID = strings.TrimSpace(cfg.Admin.UserID)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.token", "")
	v.SetDefault("bot.mode", ModeWebhook)
	v.SetDefault("admin.user_id", "")

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.webhook_path", "/webhook")
	v.SetDefault("server.public_url", "")
	v.SetDefault("server.secret_token", "")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "betlog")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "betlog")
	v.SetDefault("database.pool_size", 5)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dedupe_ttl", "24h")

	v.SetDefault("log.level", "info")
}

// Validate reports missing or inconsistent settings.
func (c *Config) Validate() error {
	var errs []error
	if c.Bot.Token == "" {
		errs = append(errs, errors.New("bot.token (BOT_TOKEN) is required"))
	}
	if c.Admin.UserID == "" {
		errs = append(errs, errors.New("admin.user_id (ADMIN_USER_ID) is required"))
	}
	if c.Bot.Mode != ModeWebhook && c.Bot.Mode != ModePolling {
		errs = append(errs, fmt.Errorf("bot.mode must be %q or %q, got %q", ModeWebhook, ModePolling, c.Bot.Mode))
	}
	if c.Bot.Mode == ModeWebhook && !strings.HasPrefix(c.Server.WebhookPath, "/") {
		errs = append(errs, fmt.Errorf("server.webhook_path must start with /, got %q", c.Server.WebhookPath))
	}
	return errors.Join(errs...)
}

// IsAuthorized reports whether senderID is the configured operator.
func (c *Config) IsAuthorized(senderID string) bool {
	return c.Admin.UserID != "" && senderID == c.Admin.UserID
}
