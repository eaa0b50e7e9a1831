package app

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no stray .env

	for _, key := range []string{
		"ENV", "AUTH_ISSUER", "AUTH_SESSION_SECRET", "AUTH_SESSION_TTL",
		"AUTH_DB_DRIVER", "MAIL_DRIVER", "AUTH_RESET_REVEAL_UNKNOWN_EMAIL",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	require.Equal(t, "authcore", cfg.Issuer)
	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, time.Hour, cfg.SessionTTL)
	require.Equal(t, 24*time.Hour, cfg.VerificationTTL)
	require.Equal(t, 10*time.Minute, cfg.ResetTTL)
	require.Equal(t, DBDriverSQLite, cfg.DBDriver)
	require.Equal(t, MailDriverLog, cfg.MailDriver)
	require.False(t, cfg.RevealUnknownEmail)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("ENV", "prod")
	t.Setenv("AUTH_SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("AUTH_RESET_TTL", "15") // bare integers are minutes
	t.Setenv("AUTH_DB_DRIVER", "Postgres")
	t.Setenv("AUTH_DATABASE_URL", "postgres://auth@localhost/auth")
	t.Setenv("AUTH_RESET_REVEAL_UNKNOWN_EMAIL", "true")
	t.Setenv("MAIL_DRIVER", "smtp")
	t.Setenv("SMTP_HOST", "mail.example.com")
	t.Setenv("SMTP_PORT", "465")

	cfg := LoadConfig()
	require.Equal(t, 15*time.Minute, cfg.ResetTTL)
	require.Equal(t, DBDriverPostgres, cfg.DBDriver)
	require.True(t, cfg.RevealUnknownEmail)
	require.Equal(t, 465, cfg.SMTPPort)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	valid := Config{
		Env:             "prod",
		SessionSecret:   "0123456789abcdef0123456789abcdef",
		SessionTTL:      time.Hour,
		VerificationTTL: time.Hour,
		ResetTTL:        time.Minute,
		DBDriver:        DBDriverSQLite,
		DatabaseFile:    "auth.db",
		MailDriver:      MailDriverLog,
	}
	require.NoError(t, valid.Validate())

	tests := map[string]func(c *Config){
		"missing secret outside dev": func(c *Config) { c.SessionSecret = "" },
		"short secret":               func(c *Config) { c.SessionSecret = "too-short" },
		"zero reset ttl":             func(c *Config) { c.ResetTTL = 0 },
		"unknown db driver":          func(c *Config) { c.DBDriver = "mysql" },
		"postgres without url":       func(c *Config) { c.DBDriver = DBDriverPostgres },
		"unknown mail driver":        func(c *Config) { c.MailDriver = "pigeon" },
		"amqp without url":           func(c *Config) { c.MailDriver = MailDriverAMQP },
		"smtp without host":          func(c *Config) { c.MailDriver = MailDriverSMTP },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid
			mutate(&c)
			require.Error(t, c.Validate())
		})
	}
}

func TestInitSessionKeys(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	signer, verifier, err := InitSessionKeys(Config{Env: "dev", Issuer: "authcore"}, logger)
	require.NoError(t, err)
	require.NoError(t, signer.Validate())
	require.NotNil(t, verifier)

	_, _, err = InitSessionKeys(Config{Env: "prod", Issuer: "authcore"}, logger)
	require.Error(t, err)

	signer, verifier, err = InitSessionKeys(Config{
		Env:           "prod",
		Issuer:        "authcore",
		SessionSecret: "0123456789abcdef0123456789abcdef",
	}, logger)
	require.NoError(t, err)
	require.NoError(t, signer.Validate())
	require.NotNil(t, verifier)
}
