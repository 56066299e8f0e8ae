package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/segyhp/loan-documents/internal/words"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Logging   LoggingConfig
	Business  BusinessConfig
	Health    HealthConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	RateLimitRPS    float64
	RateLimitBurst  int
	MaxRequestBytes int64
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host        string
	Port        string
	Password    string
	DB          int
	ScheduleTTL time.Duration
}

type SchedulerConfig struct {
	OverdueSpec    string
	ReminderSpec   string
	ReminderWindow int // days ahead
	Timezone       string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type BusinessConfig struct {
	Currency        string
	AmountSuffix    string
	NumberLocale    string
	DigitsLocale    string
	DefaultCity     string
	MaxInstallments int
}

type HealthConfig struct {
	Timeout time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("ENV", "development")
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("MAX_REQUEST_BYTES", 1<<20)

	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", "5432")
	v.SetDefault("DATABASE_NAME", "loan_documents")
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "5m")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_SCHEDULE_TTL", "10m")

	v.SetDefault("SCHEDULER_OVERDUE_SPEC", "0 0 0 * * *")
	v.SetDefault("SCHEDULER_REMINDER_SPEC", "0 0 9 * * *")
	v.SetDefault("SCHEDULER_REMINDER_WINDOW_DAYS", 3)
	v.SetDefault("SCHEDULER_TIMEZONE", "Asia/Riyadh")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CURRENCY_NAME", "ريال")
	v.SetDefault("AMOUNT_WORDS_SUFFIX", "فقط لا غير")
	v.SetDefault("NUMBER_LOCALE", "ar")
	v.SetDefault("DIGITS_LOCALE", "en")
	v.SetDefault("DEFAULT_CITY", "الرياض")
	v.SetDefault("MAX_INSTALLMENTS", 3650)

	v.SetDefault("HEALTH_CHECK_TIMEOUT", "5s")
}

// Load reads configuration from environment variables and an optional .env
// file. Real environment variables win over the file.
func Load() (*Config, error) {
	// Don't fail if .env file doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./deployments")
	_ = v.ReadInConfig()

	return FromViper(v)
}

// FromViper builds and validates a Config from an already populated viper
// instance.
func FromViper(v *viper.Viper) (*Config, error) {
	config := Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Env:          v.GetString("ENV"),
			ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),

			RateLimitRPS:    v.GetFloat64("RATE_LIMIT_RPS"),
			RateLimitBurst:  v.GetInt("RATE_LIMIT_BURST"),
			MaxRequestBytes: v.GetInt64("MAX_REQUEST_BYTES"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("DATABASE_URL"),
			Host:            v.GetString("DATABASE_HOST"),
			Port:            v.GetString("DATABASE_PORT"),
			Name:            v.GetString("DATABASE_NAME"),
			User:            v.GetString("DATABASE_USER"),
			Password:        v.GetString("DATABASE_PASSWORD"),
			SSLMode:         v.GetString("DATABASE_SSLMODE"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DATABASE_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			Host:        v.GetString("REDIS_HOST"),
			Port:        v.GetString("REDIS_PORT"),
			Password:    v.GetString("REDIS_PASSWORD"),
			DB:          v.GetInt("REDIS_DB"),
			ScheduleTTL: v.GetDuration("REDIS_SCHEDULE_TTL"),
		},
		Scheduler: SchedulerConfig{
			OverdueSpec:    v.GetString("SCHEDULER_OVERDUE_SPEC"),
			ReminderSpec:   v.GetString("SCHEDULER_REMINDER_SPEC"),
			ReminderWindow: v.GetInt("SCHEDULER_REMINDER_WINDOW_DAYS"),
			Timezone:       v.GetString("SCHEDULER_TIMEZONE"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Business: BusinessConfig{
			Currency:        v.GetString("CURRENCY_NAME"),
			AmountSuffix:    v.GetString("AMOUNT_WORDS_SUFFIX"),
			NumberLocale:    v.GetString("NUMBER_LOCALE"),
			DigitsLocale:    v.GetString("DIGITS_LOCALE"),
			DefaultCity:     v.GetString("DEFAULT_CITY"),
			MaxInstallments: v.GetInt("MAX_INSTALLMENTS"),
		},
		Health: HealthConfig{
			Timeout: v.GetDuration("HEALTH_CHECK_TIMEOUT"),
		},
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" && c.Database.Host == "" {
		return fmt.Errorf("DATABASE_URL or DATABASE_HOST is required")
	}

	if c.Server.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative")
	}

	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be greater than 0 when rate limiting is enabled")
	}

	if c.Business.MaxInstallments <= 0 {
		return fmt.Errorf("MAX_INSTALLMENTS must be greater than 0")
	}

	if strings.TrimSpace(c.Business.Currency) == "" {
		return fmt.Errorf("CURRENCY_NAME is required")
	}

	if _, ok := words.ForLocale(c.Business.NumberLocale); !ok {
		return fmt.Errorf("NUMBER_LOCALE %q is not supported", c.Business.NumberLocale)
	}

	if c.Scheduler.ReminderWindow < 0 {
		return fmt.Errorf("SCHEDULER_REMINDER_WINDOW_DAYS must not be negative")
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid IANA zone: %w", err)
	}

	if c.Health.Timeout <= 0 {
		return fmt.Errorf("HEALTH_CHECK_TIMEOUT must be a positive duration")
	}

	return nil
}

// DSN returns the postgres connection string. DATABASE_URL wins over the
// individual fields.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

// Addr returns host:port of the redis server.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// Location returns the business timezone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NumberSystem returns the words system selected by NUMBER_LOCALE.
func (c *Config) NumberSystem() words.NumberSystem {
	system, ok := words.ForLocale(c.Business.NumberLocale)
	if !ok {
		return words.Arabic
	}
	return system
}
