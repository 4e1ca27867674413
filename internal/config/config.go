package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App        AppConfig
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Log        LogConfig
	Tracing    TracingConfig
	CORS       CORSConfig
	RateLimit  RateLimitConfig
	Redis      RedisConfig
	Storage    StorageConfig
	Mail       MailConfig
	Scheduling SchedulingConfig
	Billing    BillingConfig
	Public     PublicConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Version     string
}

func (a AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// Upper bound applied to every request context.
	RequestTimeout time.Duration
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host               string
	Port               int
	Name               string
	User               string
	Password           string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	SlowQueryThreshold time.Duration
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Issuer          string
}

type LogConfig struct {
	Level      string
	Format     string
	OutputPath string
}

type TracingConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	Insecure     bool
	SampleRate   float64
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         time.Duration
}

type RateLimitConfig struct {
	// Global rate limit per IP
	RequestsPerSecond float64
	BurstSize         int
	// Auth endpoints have stricter limits
	AuthRequestsPerMinute int
}

// RedisConfig backs both the schedule lock and the job queue. An empty URL
// disables both; the API then falls back to in-process locking and skips
// background delivery.
type RedisConfig struct {
	URL         string
	TLSInsecure bool
	QueueName   string
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != ""
}

type StorageConfig struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	Bucket         string
	MaxUploadBytes int64
	PresignTTL     time.Duration
}

func (s StorageConfig) Enabled() bool {
	return s.Endpoint != "" && s.AccessKey != "" && s.SecretKey != ""
}

type MailConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
	TLS         bool
}

func (m MailConfig) Enabled() bool {
	return m.Host != "" && m.FromAddress != ""
}

type SchedulingConfig struct {
	// TTL of the per-veterinarian schedule lock.
	LockTTL time.Duration
	// How long a request waits for the lock before giving up.
	LockWait time.Duration
	// Reminder is sent this long before the appointment starts.
	ReminderLead time.Duration
	// Location used to interpret dates such as ?date=2025-01-31.
	TimeZone string
}

type BillingConfig struct {
	// Percentage, e.g. 16 for 16%.
	DefaultTaxRate float64
	InvoicePrefix  string
}

type PublicConfig struct {
	// Base URL embedded in QR codes, e.g. https://api.vetclinic.io/api/v1
	BaseURL            string
	PhoneDefaultRegion string
}

func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "vetclinic-api"),
			Environment: getEnv("APP_ENV", "development"),
			Version:     getEnv("APP_VERSION", "0.0.0"),
		},
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			RequestTimeout:  getEnvDuration("SERVER_REQUEST_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			Name:               getEnv("DB_NAME", "vetclinic"),
			User:               getEnv("DB_USER", "vetclinic"),
			Password:           getEnv("DB_PASSWORD", ""),
			SSLMode:            getEnv("DB_SSLMODE", "require"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime:    getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime:    getEnvDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			SlowQueryThreshold: getEnvDuration("DB_SLOW_QUERY_THRESHOLD", 200*time.Millisecond),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", ""),
			AccessTokenTTL:  getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTokenTTL: getEnvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
			Issuer:          getEnv("JWT_ISSUER", "vetclinic-api"),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			OutputPath: getEnv("LOG_OUTPUT", "stdout"),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvBool("TRACING_ENABLED", false),
			ServiceName:  getEnv("TRACING_SERVICE_NAME", "vetclinic-api"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4318"),
			Insecure:     getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			SampleRate:   getEnvFloat("TRACING_SAMPLE_RATE", 0.1),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods: getEnvSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvSlice("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type", "X-Request-ID"}),
			MaxAge:         getEnvDuration("CORS_MAX_AGE", 12*time.Hour),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond:     getEnvFloat("RATE_LIMIT_RPS", 50),
			BurstSize:             getEnvInt("RATE_LIMIT_BURST", 100),
			AuthRequestsPerMinute: getEnvInt("RATE_LIMIT_AUTH_RPM", 10),
		},
		Redis: RedisConfig{
			URL:         getEnv("REDIS_URL", ""),
			TLSInsecure: getEnvBool("REDIS_TLS_INSECURE", false),
			QueueName:   getEnv("ASYNQ_QUEUE", "default"),
		},
		Storage: StorageConfig{
			Endpoint:       getEnv("MINIO_ENDPOINT", ""),
			AccessKey:      getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey:      getEnv("MINIO_SECRET_KEY", ""),
			UseSSL:         getEnvBool("MINIO_USE_SSL", false),
			Bucket:         getEnv("MINIO_BUCKET", "vetclinic-attachments"),
			MaxUploadBytes: int64(getEnvInt("MINIO_MAX_UPLOAD_BYTES", 10*1024*1024)),
			PresignTTL:     getEnvDuration("MINIO_PRESIGN_TTL", 15*time.Minute),
		},
		Mail: MailConfig{
			Host:        getEnv("SMTP_HOST", ""),
			Port:        getEnvInt("SMTP_PORT", 587),
			Username:    getEnv("SMTP_USERNAME", ""),
			Password:    getEnv("SMTP_PASSWORD", ""),
			FromAddress: getEnv("SMTP_FROM", ""),
			FromName:    getEnv("SMTP_FROM_NAME", "Vet Clinic"),
			TLS:         getEnvBool("SMTP_TLS", true),
		},
		Scheduling: SchedulingConfig{
			LockTTL:      getEnvDuration("SCHEDULE_LOCK_TTL", 10*time.Second),
			LockWait:     getEnvDuration("SCHEDULE_LOCK_WAIT", 3*time.Second),
			ReminderLead: getEnvDuration("REMINDER_LEAD", 24*time.Hour),
			TimeZone:     getEnv("CLINIC_TIMEZONE", "UTC"),
		},
		Billing: BillingConfig{
			DefaultTaxRate: getEnvFloat("BILLING_TAX_RATE", 16),
			InvoicePrefix:  getEnv("BILLING_INVOICE_PREFIX", "FAC"),
		},
		Public: PublicConfig{
			BaseURL:            strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080/api/v1"), "/"),
			PhoneDefaultRegion: getEnv("PHONE_DEFAULT_REGION", "MX"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate enforces production security requirements.
func validate(cfg *Config) error {
	var errs []string

	if cfg.JWT.Secret == "" {
		errs = append(errs, "JWT_SECRET is required")
	} else if len(cfg.JWT.Secret) < 32 && cfg.App.IsProduction() {
		errs = append(errs, "JWT_SECRET must be at least 32 characters in production")
	}

	if cfg.Database.Password == "" && cfg.App.Environment != "development" {
		errs = append(errs, "DB_PASSWORD is required in non-development environments")
	}

	if cfg.Database.SSLMode == "disable" && cfg.App.IsProduction() {
		errs = append(errs, "DB_SSLMODE=disable is not allowed in production")
	}

	if cfg.Billing.DefaultTaxRate < 0 || cfg.Billing.DefaultTaxRate > 100 {
		errs = append(errs, "BILLING_TAX_RATE must be between 0 and 100")
	}

	if cfg.Scheduling.LockTTL <= 0 {
		errs = append(errs, "SCHEDULE_LOCK_TTL must be positive")
	}

	if _, err := time.LoadLocation(cfg.Scheduling.TimeZone); err != nil {
		errs = append(errs, fmt.Sprintf("CLINIC_TIMEZONE %q is not a valid IANA zone", cfg.Scheduling.TimeZone))
	}

	if cfg.Storage.MaxUploadBytes <= 0 {
		errs = append(errs, "MINIO_MAX_UPLOAD_BYTES must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
