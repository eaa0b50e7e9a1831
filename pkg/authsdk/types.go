package authsdk

import "time"

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	// Error is the machine-readable code (e.g. "invalid_credentials").
	Error string `json:"error" example:"invalid_credentials"`

	// ErrorDescription is a human-readable description of the error.
	ErrorDescription string `json:"error_description" example:"invalid email or password"`

	// Details holds per-field messages for validation errors.
	Details map[string]string `json:"details,omitempty"`
}

// UserView is the public projection of a user. It never carries the
// password hash or any token digest.
type UserView struct {
	ID              string    `json:"id" example:"01JB8Y4W0Q2T3V5X7Z9B1D3F5H"`
	Name            string    `json:"name" example:"Alice"`
	Email           string    `json:"email" example:"alice@example.com"`
	Role            string    `json:"role" example:"user"`
	IsEmailVerified bool      `json:"is_email_verified"`
	CreatedAt       time.Time `json:"created_at"`
}

// ============================================================================
// Account Types
// ============================================================================

// SignupRequest registers a new account.
type SignupRequest struct {
	Name     string `json:"name" example:"Alice"`
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"correct horse battery staple"`
}

// SignupResponse is returned once the account exists. The verification
// email has been handed to delivery by then.
type SignupResponse struct {
	User UserView `json:"user"`
}

// LoginRequest exchanges credentials for a session token.
type LoginRequest struct {
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"correct horse battery staple"`
}

// LoginResponse carries the session token and the public user view.
type LoginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type" example:"Bearer"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserView  `json:"user"`
}

// ForgotPasswordRequest asks for a password reset email.
type ForgotPasswordRequest struct {
	Email string `json:"email" example:"alice@example.com"`
}

// ResetPasswordRequest sets a new password with a reset token taken from
// the URL path.
type ResetPasswordRequest struct {
	Password string `json:"password" example:"a brand new passphrase"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message" example:"email sent"`
}

// ============================================================================
// Admin Types
// ============================================================================

// AssignRoleRequest changes a user's role.
type AssignRoleRequest struct {
	Role string `json:"role" example:"moderator"`
}

// ListUsersResponse is returned by the admin panel.
type ListUsersResponse struct {
	Message string     `json:"message" example:"Admin panel access granted"`
	Users   []UserView `json:"users"`
}

// PanelResponse is returned by the role-gated demo panels.
type PanelResponse struct {
	Message string   `json:"message"`
	User    UserView `json:"user"`
}

// ============================================================================
// Bootstrap Types
// ============================================================================

// BootstrapRequest creates the first administrator on an empty store.
type BootstrapRequest struct {
	Name     string `json:"name" example:"Administrator"`
	Email    string `json:"email" example:"admin@example.com"`
	Password string `json:"password" example:"a long admin passphrase"`
}

// BootstrapResponse identifies the administrator that was created.
type BootstrapResponse struct {
	User UserView `json:"user"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the database connection status
	Database string `json:"database"`

	// Signer indicates the session signing capability status
	Signer string `json:"signer"`
}
