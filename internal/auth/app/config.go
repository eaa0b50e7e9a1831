package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/joho/godotenv"
)

// Store and mail drivers.
const (
	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"

	MailDriverLog  = "log"
	MailDriverSMTP = "smtp"
	MailDriverAMQP = "amqp"
)

type Config struct {
	Issuer         string // Optional: issuer claim for session tokens (default: authcore)
	BootstrapToken string // Optional: token required to perform bootstrap

	SessionSecret   string        // Required outside dev: HS256 secret, at least 32 bytes
	SessionTTL      time.Duration // Session token lifetime (default: 1h)
	VerificationTTL time.Duration // Email verification token lifetime (default: 24h)
	ResetTTL        time.Duration // Password reset token lifetime (default: 10m)

	DBDriver     string // sqlite or postgres (default: sqlite)
	DatabaseFile string // SQLite database file (default: ./auth.db)
	DatabaseURL  string // PostgreSQL connection URL
	PepperFile   string // File holding the password pepper (default: ./pepper)

	FrontendURL        string // Origin used in emailed links (default: http://localhost:3000)
	RevealUnknownEmail bool   // Forgot-password answers 404 for unknown emails

	MailDriver   string // log, smtp or amqp (default: log)
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPTLS      bool
	AMQPURL      string
	AMQPExchange string

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

// LoadConfig reads the configuration from the environment. A .env file in
// the working directory is loaded first when present; real environment
// variables win over it.
func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		Issuer:         getEnvOrDefault("AUTH_ISSUER", "authcore"),
		BootstrapToken: os.Getenv("BOOTSTRAP_TOKEN"),

		SessionSecret:   os.Getenv("AUTH_SESSION_SECRET"),
		SessionTTL:      getEnvDurationOrDefault("AUTH_SESSION_TTL", time.Hour),
		VerificationTTL: getEnvDurationOrDefault("AUTH_VERIFICATION_TTL", 24*time.Hour),
		ResetTTL:        getEnvDurationOrDefault("AUTH_RESET_TTL", 10*time.Minute),

		DBDriver:     strings.ToLower(getEnvOrDefault("AUTH_DB_DRIVER", DBDriverSQLite)),
		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		DatabaseURL:  os.Getenv("AUTH_DATABASE_URL"),
		PepperFile:   getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		FrontendURL:        getEnvOrDefault("AUTH_FRONTEND_URL", "http://localhost:3000"),
		RevealUnknownEmail: getEnvBoolOrDefault("AUTH_RESET_REVEAL_UNKNOWN_EMAIL", false),

		MailDriver:   strings.ToLower(getEnvOrDefault("MAIL_DRIVER", MailDriverLog)),
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     getEnvOrDefault("SMTP_FROM", "no-reply@localhost"),
		SMTPTLS:      getEnvBoolOrDefault("SMTP_TLS", false),
		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: getEnvOrDefault("AMQP_EXCHANGE", "auth.events"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

// IsDev reports whether the service runs in the development environment,
// where a missing session secret is replaced by an ephemeral one.
func (c Config) IsDev() bool {
	return c.Env == "dev"
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	var errs []error

	if c.SessionSecret == "" && !c.IsDev() {
		errs = append(errs, errors.New("AUTH_SESSION_SECRET is required outside dev"))
	}
	if c.SessionSecret != "" && len(c.SessionSecret) < jwtx.MinSecretLength {
		errs = append(errs, fmt.Errorf("AUTH_SESSION_SECRET must be at least %d bytes", jwtx.MinSecretLength))
	}
	for name, d := range map[string]time.Duration{
		"AUTH_SESSION_TTL":      c.SessionTTL,
		"AUTH_VERIFICATION_TTL": c.VerificationTTL,
		"AUTH_RESET_TTL":        c.ResetTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	switch c.DBDriver {
	case DBDriverSQLite:
		if c.DatabaseFile == "" {
			errs = append(errs, errors.New("AUTH_DATABASE_FILE is required for sqlite"))
		}
	case DBDriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("AUTH_DATABASE_URL is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_DB_DRIVER %q", c.DBDriver))
	}

	switch c.MailDriver {
	case MailDriverLog:
	case MailDriverSMTP:
		if c.SMTPHost == "" {
			errs = append(errs, errors.New("SMTP_HOST is required for smtp mail"))
		}
	case MailDriverAMQP:
		if c.AMQPURL == "" {
			errs = append(errs, errors.New("AMQP_URL is required for amqp mail"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MAIL_DRIVER %q", c.MailDriver))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
