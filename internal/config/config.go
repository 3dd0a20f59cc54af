package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port          string
	GinMode       string
	LogLevel      string
	SessionSecret string
	FrontendURL   string
	OpenAIAPIKey  string
	CacheTTL      time.Duration

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Email    EmailConfig
	Outbox   OutboxConfig
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	DSN      string
}

type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	ConnectTimeout time.Duration
}

// Addr returns the host:port pair of the cache store
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret string
	Expire time.Duration
}

type EmailConfig struct {
	Host string
	Port int
	User string
	Pass string
}

// Enabled reports whether credentials for the mail relay are present
func (e EmailConfig) Enabled() bool {
	return e.User != "" && e.Pass != ""
}

type OutboxConfig struct {
	Workers int
	Buffer  int
}

var defaults = map[string]any{
	"port":                  "3000",
	"gin_mode":              "debug",
	"log_level":             "info",
	"db_driver":             "mysql",
	"db_host":               "localhost",
	"db_user":               "taskuser",
	"db_password":           "taskpassword",
	"db_name":               "task_management",
	"jwt_expire":            "7d",
	"redis_host":            "localhost",
	"redis_port":            "6379",
	"redis_connect_timeout": "2s",
	"cache_ttl":             "300s",
	"session_secret":        "default-secret-key-change-me",
	"email_host":            "smtp.gmail.com",
	"email_port":            587,
	"frontend_url":          "http://localhost:3000",
	"outbox_workers":        4,
	"outbox_buffer":         256,
}

// Load reads configuration from an optional .env file and the environment
func Load() (*Config, error) {
	// A missing .env file is the normal case outside local development
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	jwtExpire, err := ParseExpiry(v.GetString("jwt_expire"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRE: %w", err)
	}

	cfg := &Config{
		Port:          v.GetString("port"),
		GinMode:       v.GetString("gin_mode"),
		LogLevel:      v.GetString("log_level"),
		SessionSecret: v.GetString("session_secret"),
		FrontendURL:   v.GetString("frontend_url"),
		OpenAIAPIKey:  v.GetString("openai_api_key"),
		CacheTTL:      v.GetDuration("cache_ttl"),
		Database: DatabaseConfig{
			Driver:   strings.ToLower(v.GetString("db_driver")),
			Host:     v.GetString("db_host"),
			Port:     v.GetString("db_port"),
			User:     v.GetString("db_user"),
			Password: v.GetString("db_password"),
			Name:     v.GetString("db_name"),
			DSN:      v.GetString("db_dsn"),
		},
		Redis: RedisConfig{
			Host:           v.GetString("redis_host"),
			Port:           v.GetString("redis_port"),
			Password:       v.GetString("redis_password"),
			ConnectTimeout: v.GetDuration("redis_connect_timeout"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt_secret"),
			Expire: jwtExpire,
		},
		Email: EmailConfig{
			Host: v.GetString("email_host"),
			Port: v.GetInt("email_port"),
			User: v.GetString("email_user"),
			Pass: v.GetString("email_pass"),
		},
		Outbox: OutboxConfig{
			Workers: v.GetInt("outbox_workers"),
			Buffer:  v.GetInt("outbox_buffer"),
		},
	}

	if cfg.Database.Port == "" {
		cfg.Database.Port = defaultDBPort(cfg.Database.Driver)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail late at runtime
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWT.Expire <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRE must be positive"))
	}
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("CACHE_TTL must be positive"))
	}
	if c.Redis.ConnectTimeout <= 0 {
		errs = append(errs, errors.New("REDIS_CONNECT_TIMEOUT must be positive"))
	}
	if c.Outbox.Workers < 0 || c.Outbox.Buffer < 1 {
		errs = append(errs, errors.New("OUTBOX_WORKERS must be >= 0 and OUTBOX_BUFFER >= 1"))
	}

	return errors.Join(errs...)
}

// ParseExpiry accepts a Go duration ("12h"), a day count ("7d") or a bare
// number of seconds ("3600")
func ParseExpiry(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("empty duration")
	}

	if days, ok := strings.CutSuffix(raw, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", raw)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}

	return time.ParseDuration(raw)
}

func defaultDBPort(driver string) string {
	switch driver {
	case "postgres":
		return "5432"
	case "sqlite":
		return ""
	default:
		return "3306"
	}
}
