package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// BootstrapTokenHeader carries the one-time bootstrap secret.
const BootstrapTokenHeader = "X-Bootstrap-Token"

// SDKClient is a client for the authcore service.
// It provides access to unauthenticated operations and can create authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new auth service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Signup registers a new, unverified account.
func (c *SDKClient) Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/signup", req, nil)
	if err != nil {
		return nil, err
	}
	var out SignupResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a Session.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*Session, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/login", LoginRequest{Email: email, Password: password}, nil)
	if err != nil {
		return nil, err
	}
	var out LoginResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return c.NewSession(out.Token, out.ExpiresAt, out.User), nil
}

// VerifyEmail consumes an email verification token.
func (c *SDKClient) VerifyEmail(ctx context.Context, token string) (*UserView, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, "/v1/auth/verify-email/"+url.PathEscape(token), nil, nil)
	if err != nil {
		return nil, err
	}
	var out UserView
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ForgotPassword requests a reset email.
func (c *SDKClient) ForgotPassword(ctx context.Context, email string) error {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/forgot-password", ForgotPasswordRequest{Email: email}, nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// CheckResetToken reports whether a reset token is still usable. It does
// not consume the token.
func (c *SDKClient) CheckResetToken(ctx context.Context, token string) error {
	resp, err := c.doJSON(ctx, http.MethodGet, "/v1/auth/reset-password/"+url.PathEscape(token), nil, nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// ResetPassword consumes a reset token and sets a new password.
func (c *SDKClient) ResetPassword(ctx context.Context, token, password string) error {
	resp, err := c.doJSON(ctx, http.MethodPut, "/v1/auth/reset-password/"+url.PathEscape(token),
		ResetPasswordRequest{Password: password}, nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// Bootstrap creates the first administrator. It only succeeds once.
func (c *SDKClient) Bootstrap(ctx context.Context, bootstrapToken string, req BootstrapRequest) (*BootstrapResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/bootstrap", req, map[string]string{
		BootstrapTokenHeader: bootstrapToken,
	})
	if err != nil {
		return nil, err
	}
	var out BootstrapResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLiveness checks if the service is alive.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// GetReadiness checks if the service is ready to serve traffic.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *SDKClient) health(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	var out HealthResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
