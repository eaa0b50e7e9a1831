package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/authcore/internal/auth/http"
	"github.com/aussiebroadwan/authcore/internal/auth/service"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/authcore/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/authcore/pkg/cryptox"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/aussiebroadwan/authcore/pkg/mail"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	signer   *jwtx.HS256Signer
	verifier *jwtx.HS256Verifier
	mailer   mail.Mailer
	closers  []io.Closer

	// Services
	credentialService   *service.CredentialService
	accountService      *service.AccountService
	accessGate          *service.AccessGate
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	signer, verifier, err := InitSessionKeys(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session keys: %w", err)
	}
	app.signer, app.verifier = signer, verifier

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initMailer(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initServices(); err != nil {
		app.closeAll()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			app.closeAll()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	if err := app.closeAll(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// closeAll releases the mailer connection and the store, in that order.
func (app *Application) closeAll() error {
	var errs []error
	for _, c := range app.closers {
		if err := c.Close(); err != nil {
			app.logger.Error("error closing mailer", "error", err)
			errs = append(errs, err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// initDatabase opens the configured store and applies migrations
func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DBDriver {
	case DBDriverPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL)
	default:
		host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
		db, err = sqlite.NewStore(host)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize %s database: %w", app.cfg.DBDriver, err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DBDriver)
	return nil
}

// initMailer selects how token emails leave the service
func (app *Application) initMailer() error {
	switch app.cfg.MailDriver {
	case MailDriverSMTP:
		m, err := mail.NewSMTPMailer(mail.SMTPSettings{
			Host:     app.cfg.SMTPHost,
			Port:     app.cfg.SMTPPort,
			Username: app.cfg.SMTPUsername,
			Password: app.cfg.SMTPPassword,
			From:     app.cfg.SMTPFrom,
			UseTLS:   app.cfg.SMTPTLS,
		})
		if err != nil {
			return fmt.Errorf("failed to configure smtp mailer: %w", err)
		}
		app.mailer = m
	case MailDriverAMQP:
		m, err := mail.DialAMQP(mail.AMQPSettings{
			URL:      app.cfg.AMQPURL,
			Exchange: app.cfg.AMQPExchange,
		})
		if err != nil {
			return fmt.Errorf("failed to connect amqp mailer: %w", err)
		}
		app.mailer = m
		app.closers = append(app.closers, m)
	default:
		// Bodies carry live tokens, so they are only logged in dev.
		app.mailer = &mail.LogMailer{Logger: app.logger, IncludeBody: app.cfg.IsDev()}
	}

	app.logger.Info("mailer configured", "driver", app.cfg.MailDriver)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	pepper, err := cryptox.LoadOrGeneratePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	composer, err := mail.NewComposer(app.cfg.FrontendURL)
	if err != nil {
		return fmt.Errorf("invalid frontend url: %w", err)
	}

	app.credentialService = &service.CredentialService{
		Store:  app.db,
		Hasher: cryptox.NewPasswordHasher(pepper),
	}
	validator := &service.TokenValidator{
		Verifier: app.verifier,
		Store:    app.db,
	}
	app.accountService = &service.AccountService{
		Store:       app.db,
		Credentials: app.credentialService,
		Issuer: &service.TokenIssuer{
			Store:           app.db,
			Signer:          app.signer,
			Issuer:          app.cfg.Issuer,
			SessionTTL:      app.cfg.SessionTTL,
			VerificationTTL: app.cfg.VerificationTTL,
			ResetTTL:        app.cfg.ResetTTL,
		},
		Validator: validator,
		Mailer:    app.mailer,
		Composer:  composer,
	}
	app.accessGate = &service.AccessGate{
		Validator: validator,
		Store:     app.db,
	}
	app.bootstrapService = &service.BootstrapService{
		Store:       app.db,
		Credentials: app.credentialService,
		Token:       app.cfg.BootstrapToken,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.signer,
		BuildVersion,
		app.db,
		app.logger,
	)

	// Wire services to router
	router.AccountService = app.accountService
	router.AccessGate = app.accessGate
	router.BootstrapService = app.bootstrapService
	router.RevealUnknownEmail = app.cfg.RevealUnknownEmail
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
