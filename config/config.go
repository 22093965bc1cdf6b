package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	HTTP     ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	Stripe   StripeConfig
	Payments PaymentsConfig
	Jobs     JobsConfig
	Redis    RedisConfig
	Discord  DiscordConfig
	Metrics  MetricsConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type LogConfig struct {
	Level string
}

type StripeConfig struct {
	SecretKey                 string
	WebhookSecret             string
	SignatureToleranceSeconds int64
}

type PaymentsConfig struct {
	BaseURL                 string
	DefaultEmail            string
	DefaultCurrency         string
	CallbackSignatureSecret string
	PollBatchSize           int32
	CreditMaxAttempts       int32
	CreditBatchSize         int32
	PendingTimeout          time.Duration
}

type JobsConfig struct {
	PollInterval        time.Duration
	PollInProcess       bool
	CreditRetryInterval time.Duration
	ExpireInterval      time.Duration
}

type RedisConfig struct {
	URL            string
	Addr           string
	Password       string
	DB             int
	IdempotencyTTL time.Duration
}

type DiscordConfig struct {
	BotToken   string
	APIBaseURL string
	Timeout    time.Duration
}

type MetricsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		return nil, errors.New("DB_DSN environment variable is required")
	}

	driver := strings.ToLower(getEnv("DB_DRIVER", "mysql"))
	if driver != "mysql" && driver != "sqlite3" {
		return nil, errors.New("DB_DRIVER must be mysql or sqlite3")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "coinwallet-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Driver:          driver,
			DSN:             dsn,
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("DB_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
			AutoMigrate:     getBoolEnv("DB_AUTO_MIGRATE", false),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Stripe: StripeConfig{
			SecretKey:                 getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:             getEnv("STRIPE_WEBHOOK_SECRET", ""),
			SignatureToleranceSeconds: int64(getIntEnv("STRIPE_SIGNATURE_TOLERANCE_SECONDS", 300)),
		},
		Payments: PaymentsConfig{
			BaseURL:                 strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
			DefaultEmail:            getEnv("PROMPTPAY_DEFAULT_EMAIL", "customer@example.com"),
			DefaultCurrency:         strings.ToLower(getEnv("PAYMENTS_DEFAULT_CURRENCY", "thb")),
			CallbackSignatureSecret: getEnv("CALLBACK_SIGNATURE_SECRET", ""),
			PollBatchSize:           int32(getIntEnv("PAYMENTS_POLL_BATCH_SIZE", 50)),
			CreditMaxAttempts:       int32(getIntEnv("PAYMENTS_CREDIT_MAX_ATTEMPTS", 5)),
			CreditBatchSize:         int32(getIntEnv("PAYMENTS_CREDIT_BATCH_SIZE", 100)),
			PendingTimeout:          getMinutesEnv("PAYMENTS_PENDING_TIMEOUT_MINUTES", 60*time.Minute),
		},
		Jobs: JobsConfig{
			PollInterval:        getSecondsEnv("PAYMENTS_POLL_INTERVAL_SECONDS", 10*time.Second),
			PollInProcess:       getBoolEnv("PAYMENTS_POLL_IN_PROCESS", true),
			CreditRetryInterval: getMinutesEnv("PAYMENTS_CREDIT_RETRY_INTERVAL_MINUTES", time.Minute),
			ExpireInterval:      getMinutesEnv("PAYMENTS_EXPIRE_INTERVAL_MINUTES", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:            getEnv("REDIS_URL", ""),
			Addr:           getEnv("REDIS_ADDR", ""),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getIntEnv("REDIS_DB", 0),
			IdempotencyTTL: getMinutesEnv("WEBHOOK_IDEMPOTENCY_TTL_MINUTES", 24*time.Hour),
		},
		Discord: DiscordConfig{
			BotToken:   getEnv("DISCORD_BOT_TOKEN", ""),
			APIBaseURL: getEnv("DISCORD_API_BASE_URL", ""),
			Timeout:    getSecondsEnv("DISCORD_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("METRICS_ENABLED", true),
		},
	}, nil
}

func (c RedisConfig) Enabled() bool {
	return c.URL != "" || c.Addr != ""
}

func (c DiscordConfig) Enabled() bool {
	return c.BotToken != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
