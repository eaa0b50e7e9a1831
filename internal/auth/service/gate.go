package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/metrics"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
)

// Policy declares which gate stages an operation needs beyond
// authentication, which is always required.
type Policy struct {
	RequireVerified bool
	// AllowedRoles empty means any authenticated user.
	AllowedRoles []domain.Role
}

// Authenticated is the policy of operations open to any signed-in user.
var Authenticated = Policy{}

// Verified requires a confirmed email address.
var Verified = Policy{RequireVerified: true}

// RolesOnly admits the listed roles.
func RolesOnly(roles ...domain.Role) Policy {
	return Policy{AllowedRoles: roles}
}

// GateRequest is threaded through the stages. Authenticate fills in
// Principal; RequireVerified fills in User.
type GateRequest struct {
	Token     string
	Principal Principal
	User      *domain.User
}

// GateCheck is one stage of the gate.
type GateCheck interface {
	Check(ctx context.Context, req *GateRequest) error
}

// GateCheckFunc adapts a function to GateCheck.
type GateCheckFunc func(ctx context.Context, req *GateRequest) error

func (f GateCheckFunc) Check(ctx context.Context, req *GateRequest) error { return f(ctx, req) }

// AccessGate authorizes requests through an ordered chain:
// authenticate, then require verified, then authorize by role.
type AccessGate struct {
	Validator *TokenValidator
	Store     store.Store
}

// Checks returns the ordered stages that policy demands.
func (g *AccessGate) Checks(policy Policy) []GateCheck {
	checks := []GateCheck{GateCheckFunc(g.authenticate)}
	if policy.RequireVerified {
		checks = append(checks, GateCheckFunc(g.requireVerified))
	}
	if len(policy.AllowedRoles) > 0 {
		checks = append(checks, authorizeRoles(policy.AllowedRoles))
	}
	return checks
}

// Run passes req through every stage of policy and stops at the first
// failure.
func (g *AccessGate) Run(ctx context.Context, token string, policy Policy) (*GateRequest, error) {
	req := &GateRequest{Token: token}
	for _, c := range g.Checks(policy) {
		if err := c.Check(ctx, req); err != nil {
			metrics.RecordGateDenial(denialReason(err))
			return nil, err
		}
	}
	return req, nil
}

// Authenticate resolves a session token to a Principal.
func (g *AccessGate) Authenticate(ctx context.Context, token string) (Principal, error) {
	req := &GateRequest{Token: token}
	if err := g.authenticate(ctx, req); err != nil {
		metrics.RecordGateDenial(denialReason(err))
		return Principal{}, err
	}
	return req.Principal, nil
}

// Authorize applies the post-authentication stages of policy to an already
// authenticated principal.
func (g *AccessGate) Authorize(ctx context.Context, p Principal, policy Policy) error {
	req := &GateRequest{Principal: p}
	for _, c := range g.Checks(policy)[1:] {
		if err := c.Check(ctx, req); err != nil {
			metrics.RecordGateDenial(denialReason(err))
			return err
		}
	}
	return nil
}

func (g *AccessGate) authenticate(_ context.Context, req *GateRequest) error {
	if req.Token == "" {
		return ErrUnauthenticated
	}
	p, err := g.Validator.ValidateSessionToken(req.Token)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	req.Principal = p
	return nil
}

// requireVerified reads the user on every request so a verification that
// happened after login counts immediately.
func (g *AccessGate) requireVerified(ctx context.Context, req *GateRequest) error {
	u, err := g.Store.Users().GetUserByID(ctx, req.Principal.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: user no longer exists", ErrUnauthenticated)
	case err != nil:
		return storeErr("load user", err)
	}
	if !u.IsEmailVerified {
		return ErrNotVerified
	}
	req.User = &u
	return nil
}

func authorizeRoles(allowed []domain.Role) GateCheck {
	return GateCheckFunc(func(_ context.Context, req *GateRequest) error {
		if !slices.Contains(allowed, req.Principal.Role) {
			return ErrForbidden
		}
		return nil
	})
}

func denialReason(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrNotVerified):
		return "not_verified"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored by WithPrincipal.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
