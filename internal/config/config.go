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
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	MagicLink    MagicLinkConfig
	Notification NotificationConfig
	Upload       UploadConfig
	Realtime     RealtimeConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	BaseURL               string
	RequestTimeoutSeconds int
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

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines session authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	AdminEmail            string
	AdminPassword         string
	AdminName             string
}

// MagicLinkConfig controls passwordless ticket access.
type MagicLinkConfig struct {
	TTLHours int
}

// NotificationConfig holds outbound mail settings. An empty SMTPHost selects the log mailer.
type NotificationConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	EmailFrom    string
}

// UploadConfig bounds attachment storage.
type UploadConfig struct {
	Dir      string
	MaxBytes int64
}

// RealtimeConfig tunes the websocket hub and its polling fallback.
type RealtimeConfig struct {
	SendBuffer     int
	PingSeconds    int
	PollWaitSecs   int
	PollIdleSecs   int
	RedisRelay     bool
	RedisChannel   string
	AllowedOrigins string
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
			Name:                  getEnv("APP_NAME", "helpdesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			BaseURL:               strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:3000"), "/"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
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
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			AdminEmail:            os.Getenv("AUTH_ADMIN_EMAIL"),
			AdminPassword:         os.Getenv("AUTH_ADMIN_PASSWORD"),
			AdminName:             getEnv("AUTH_ADMIN_NAME", "Administrator"),
		},
		MagicLink: MagicLinkConfig{
			TTLHours: getEnvAsInt("MAGIC_LINK_TTL_HOURS", 72),
		},
		Notification: NotificationConfig{
			SMTPHost:     os.Getenv("SMTP_HOST"),
			SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
			SMTPUser:     os.Getenv("SMTP_USER"),
			SMTPPassword: os.Getenv("SMTP_PASSWORD"),
			EmailFrom:    getEnv("SMTP_FROM", "noreply@example.com"),
		},
		Upload: UploadConfig{
			Dir:      getEnv("UPLOAD_DIR", "./uploads"),
			MaxBytes: int64(getEnvAsInt("UPLOAD_MAX_BYTES", 10*1024*1024)),
		},
		Realtime: RealtimeConfig{
			SendBuffer:     getEnvAsInt("REALTIME_SEND_BUFFER", 64),
			PingSeconds:    getEnvAsInt("REALTIME_PING_SECONDS", 25),
			PollWaitSecs:   getEnvAsInt("REALTIME_POLL_WAIT_SECONDS", 25),
			PollIdleSecs:   getEnvAsInt("REALTIME_POLL_IDLE_SECONDS", 60),
			RedisRelay:     getEnvAsBool("REALTIME_REDIS_RELAY", false),
			RedisChannel:   getEnv("REALTIME_REDIS_CHANNEL", "helpdesk:realtime"),
			AllowedOrigins: getEnv("REALTIME_ALLOWED_ORIGINS", "*"),
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

// TTL returns the magic token lifetime.
func (m MagicLinkConfig) TTL() time.Duration {
	if m.TTLHours <= 0 {
		return 72 * time.Hour
	}
	return time.Duration(m.TTLHours) * time.Hour
}

// PingInterval returns how often the hub pings idle sockets.
func (r RealtimeConfig) PingInterval() time.Duration {
	return secondsOr(r.PingSeconds, 25)
}

// PollWait returns the long-poll hold time.
func (r RealtimeConfig) PollWait() time.Duration {
	return secondsOr(r.PollWaitSecs, 25)
}

// PollIdle returns how long an unpolled session survives.
func (r RealtimeConfig) PollIdle() time.Duration {
	return secondsOr(r.PollIdleSecs, 60)
}

func secondsOr(val, fallback int) time.Duration {
	if val <= 0 {
		val = fallback
	}
	return time.Duration(val) * time.Second
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
