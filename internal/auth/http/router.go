package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/metrics"
	"github.com/aussiebroadwan/authcore/internal/auth/service"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/pkg/httpx"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/aussiebroadwan/authcore/pkg/slogx"

	_ "github.com/aussiebroadwan/authcore/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	signer       jwtx.Signer
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	AccountService   *service.AccountService
	AccessGate       *service.AccessGate
	BootstrapService *service.BootstrapService

	// RevealUnknownEmail makes forgot-password answer 404 for unknown emails.
	RevealUnknownEmail bool
}

func NewRouter(
	signer jwtx.Signer,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		signer:       signer,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// slogx first so panics and metrics see the request-scoped logger; the
	// metrics middleware must hand the mux the same request it inspects for
	// the matched pattern.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.Recover(func(req *http.Request, v any) {
			slogx.FromContext(req.Context()).Error("panic serving request", slog.Any("panic", v))
		}),
		metrics.Middleware,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerPanels()
	r.registerUsers()
	r.registerSystem()
	r.registerBootstrap()

	r.Mux.Handle("GET /metrics", metrics.Handler())
	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			authcore API
//	@version		0.1.0
//	@description	Credential and session authorization service: signup, login, email verification, password reset and role-gated access.
//	@description
//	@description				Session tokens are HS256-signed JWTs presented as "Authorization: Bearer {token}".
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/authcore
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AccountHandler{
		Accounts:           r.AccountService,
		RevealUnknownEmail: r.RevealUnknownEmail,
	}

	r.Mux.HandleFunc("POST /v1/auth/signup", h.HandleSignup)
	r.Mux.HandleFunc("POST /v1/auth/login", h.HandleLogin)
	r.Mux.HandleFunc("GET /v1/auth/verify-email/{token}", h.HandleVerifyEmail)
	r.Mux.HandleFunc("POST /v1/auth/forgot-password", h.HandleForgotPassword)
	r.Mux.HandleFunc("GET /v1/auth/reset-password/{token}", h.HandleCheckResetToken)
	r.Mux.HandleFunc("PUT /v1/auth/reset-password/{token}", h.HandleResetPassword)

	r.Mux.Handle("POST /v1/auth/verify-email/resend",
		httpx.Chain(http.HandlerFunc(h.HandleResendVerification),
			RequireAuth(r.AccessGate),
		),
	)
}

func (r *Router) registerPanels() {
	h := &PanelHandler{Accounts: r.AccountService}

	r.Mux.Handle("GET /v1/auth/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			RequireAuth(r.AccessGate),
		),
	)
	r.Mux.Handle("GET /v1/auth/dashboard",
		httpx.Chain(http.HandlerFunc(h.HandleDashboard),
			RequireVerified(r.AccessGate),
		),
	)
	r.Mux.Handle("GET /v1/auth/moderator",
		httpx.Chain(http.HandlerFunc(h.HandleModerator),
			RequireRoles(r.AccessGate, domain.RoleModerator, domain.RoleAdmin),
		),
	)
	r.Mux.Handle("GET /v1/auth/admin",
		httpx.Chain(http.HandlerFunc(h.HandleAdmin),
			RequireRoles(r.AccessGate, domain.RoleAdmin),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{Accounts: r.AccountService}

	r.Mux.Handle("PUT /v1/users/{id}/role",
		httpx.Chain(http.HandlerFunc(h.HandleAssignRole),
			RequireRoles(r.AccessGate, domain.RoleAdmin),
		),
	)
}

func (r *Router) registerBootstrap() {
	r.Mux.Handle("POST /v1/bootstrap", &BootstrapHandler{BootstrapService: r.BootstrapService})
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.signer))
}
