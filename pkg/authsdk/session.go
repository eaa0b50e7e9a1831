package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Session performs requests with a session token.
type Session struct {
	client    *SDKClient
	token     string
	expiresAt time.Time
	user      UserView
}

// NewSession wraps an existing token, e.g. one restored from storage.
func (c *SDKClient) NewSession(token string, expiresAt time.Time, user UserView) *Session {
	return &Session{client: c, token: token, expiresAt: expiresAt, user: user}
}

// Token returns the raw session token.
func (s *Session) Token() string { return s.token }

// User returns the user view captured at login.
func (s *Session) User() UserView { return s.user }

// Expired reports whether the token has passed its expiry.
func (s *Session) Expired() bool { return !s.expiresAt.IsZero() && time.Now().After(s.expiresAt) }

func (s *Session) auth() map[string]string {
	return map[string]string{"Authorization": "Bearer " + s.token}
}

func (s *Session) get(ctx context.Context, path string, target any) error {
	resp, err := s.client.doJSON(ctx, http.MethodGet, path, nil, s.auth())
	if err != nil {
		return err
	}
	return decodeJSON(resp, target, http.StatusOK)
}

// Me returns the current user's view.
func (s *Session) Me(ctx context.Context) (*UserView, error) {
	var out UserView
	if err := s.get(ctx, "/v1/auth/me", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Dashboard requires a verified email.
func (s *Session) Dashboard(ctx context.Context) (*PanelResponse, error) {
	var out PanelResponse
	if err := s.get(ctx, "/v1/auth/dashboard", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ModeratorPanel requires the moderator or admin role.
func (s *Session) ModeratorPanel(ctx context.Context) (*PanelResponse, error) {
	var out PanelResponse
	if err := s.get(ctx, "/v1/auth/moderator", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminListUsers requires the admin role.
func (s *Session) AdminListUsers(ctx context.Context) (*ListUsersResponse, error) {
	var out ListUsersResponse
	if err := s.get(ctx, "/v1/auth/admin", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResendVerification issues a fresh verification email.
func (s *Session) ResendVerification(ctx context.Context) error {
	resp, err := s.client.doJSON(ctx, http.MethodPost, "/v1/auth/verify-email/resend", nil, s.auth())
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// AssignRole changes another user's role. Admin only.
func (s *Session) AssignRole(ctx context.Context, userID, role string) (*UserView, error) {
	resp, err := s.client.doJSON(ctx, http.MethodPut, "/v1/users/"+url.PathEscape(userID)+"/role",
		AssignRoleRequest{Role: role}, s.auth())
	if err != nil {
		return nil, err
	}
	var out UserView
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
