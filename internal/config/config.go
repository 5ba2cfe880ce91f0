package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Email     EmailConfig
	WhatsApp  WhatsAppConfig
	Webhook   WebhookConfig
	StatusAPI StatusAPIConfig
	Scheduler SchedulerConfig
	Retention RetentionConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	SnowflakeNode         int64
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	EventsChannel string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters for the admin API.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	AdminEmail            string
	AdminPassword         string
}

// EmailConfig holds SMTP delivery values and inbound routing addresses.
type EmailConfig struct {
	Host             string
	Port             int
	Username         string
	Password         string
	From             string
	AdminEmails      []string
	SupportAddresses []string
}

// WhatsAppConfig holds WhatsApp Cloud API values.
type WhatsAppConfig struct {
	BaseURL        string
	APIVersion     string
	PhoneNumberID  string
	AccessToken    string
	VerifyToken    string
	TimeoutSeconds int
}

// WebhookConfig holds shared secrets for inbound webhook signatures.
type WebhookConfig struct {
	TransactionSecret string
	CRMSecret         string
}

// StatusAPIConfig points at the external transaction status source.
type StatusAPIConfig struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// SchedulerConfig controls background job cadence.
type SchedulerConfig struct {
	Enabled           bool
	SyncInterval      time.Duration
	SyncStaleAfter    time.Duration
	DigestInterval    time.Duration
	AutoCloseInterval time.Duration
	AutoCloseAfter    time.Duration
	CleanupInterval   time.Duration
	ReportInterval    time.Duration
}

// RetentionConfig sets how long operational logs are kept, in days.
type RetentionConfig struct {
	NotificationLogDays int
	WebhookLogDays      int
	StatusUpdateDays    int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-desk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			SnowflakeNode:         int64(getEnvAsInt("APP_SNOWFLAKE_NODE", 1)),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:          getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:      os.Getenv("REDIS_PASSWORD"),
			DB:            redisDB,
			EventsChannel: getEnv("REDIS_EVENTS_CHANNEL", "support-desk.events"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			AdminEmail:            getEnv("AUTH_ADMIN_EMAIL", "admin@example.com"),
			AdminPassword:         os.Getenv("AUTH_ADMIN_PASSWORD"),
		},
		Email: EmailConfig{
			Host:             getEnv("SMTP_HOST", ""),
			Port:             getEnvAsInt("SMTP_PORT", 587),
			Username:         os.Getenv("SMTP_USERNAME"),
			Password:         os.Getenv("SMTP_PASSWORD"),
			From:             getEnv("SMTP_FROM", "support@example.com"),
			AdminEmails:      splitList(getEnv("REPORT_ADMIN_EMAILS", "")),
			SupportAddresses: splitList(getEnv("SUPPORT_EMAIL_ADDRESSES", "support@")),
		},
		WhatsApp: WhatsAppConfig{
			BaseURL:        getEnv("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:     getEnv("WHATSAPP_API_VERSION", "v24.0"),
			PhoneNumberID:  os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			AccessToken:    os.Getenv("WHATSAPP_ACCESS_TOKEN"),
			VerifyToken:    getEnv("WHATSAPP_VERIFY_TOKEN", "change-me"),
			TimeoutSeconds: getEnvAsInt("WHATSAPP_TIMEOUT_SECONDS", 10),
		},
		Webhook: WebhookConfig{
			TransactionSecret: os.Getenv("WEBHOOK_TRANSACTION_SECRET"),
			CRMSecret:         os.Getenv("WEBHOOK_CRM_SECRET"),
		},
		StatusAPI: StatusAPIConfig{
			BaseURL:        getEnv("STATUS_API_BASE_URL", ""),
			APIKey:         os.Getenv("STATUS_API_KEY"),
			TimeoutSeconds: getEnvAsInt("STATUS_API_TIMEOUT_SECONDS", 10),
		},
		Scheduler: SchedulerConfig{
			Enabled:           getEnvAsBool("SCHEDULER_ENABLED", true),
			SyncInterval:      getEnvAsDuration("SCHEDULER_SYNC_INTERVAL", 5*time.Minute),
			SyncStaleAfter:    getEnvAsDuration("SCHEDULER_SYNC_STALE_AFTER", 5*time.Minute),
			DigestInterval:    getEnvAsDuration("SCHEDULER_DIGEST_INTERVAL", time.Hour),
			AutoCloseInterval: getEnvAsDuration("SCHEDULER_AUTO_CLOSE_INTERVAL", 6*time.Hour),
			AutoCloseAfter:    getEnvAsDuration("SCHEDULER_AUTO_CLOSE_AFTER", 24*time.Hour),
			CleanupInterval:   getEnvAsDuration("SCHEDULER_CLEANUP_INTERVAL", 24*time.Hour),
			ReportInterval:    getEnvAsDuration("SCHEDULER_REPORT_INTERVAL", 24*time.Hour),
		},
		Retention: RetentionConfig{
			NotificationLogDays: getEnvAsInt("RETENTION_NOTIFICATION_LOG_DAYS", 30),
			WebhookLogDays:      getEnvAsInt("RETENTION_WEBHOOK_LOG_DAYS", 7),
			StatusUpdateDays:    getEnvAsInt("RETENTION_STATUS_UPDATE_DAYS", 90),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the WhatsApp HTTP client timeout.
func (w WhatsAppConfig) Timeout() time.Duration {
	if w.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(w.TimeoutSeconds) * time.Second
}

// Configured reports whether outbound WhatsApp delivery can be attempted.
func (w WhatsAppConfig) Configured() bool {
	return w.PhoneNumberID != "" && w.AccessToken != ""
}

// Timeout returns the status source HTTP client timeout.
func (s StatusAPIConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Configured reports whether SMTP delivery can be attempted.
func (e EmailConfig) Configured() bool {
	return e.Host != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
