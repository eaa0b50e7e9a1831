package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/metrics"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/pkg/cryptox"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
)

const (
	DefaultVerificationTTL = 24 * time.Hour
	DefaultResetTTL        = 10 * time.Minute

	sessionKind = "session"
)

// IssuedToken is a single-use token as handed to delivery. Plaintext
// exists only here; the store keeps its fingerprint.
type IssuedToken struct {
	Kind      domain.TokenKind
	Plaintext string
	ExpiresAt time.Time
}

// SessionToken is a signed session credential.
type SessionToken struct {
	Token     string
	ExpiresAt time.Time
}

// DeliverFunc hands an issued token to the user, typically by email.
type DeliverFunc func(ctx context.Context, tok IssuedToken) error

// TokenIssuer mints session tokens and persists the fingerprints of
// verification and reset tokens.
type TokenIssuer struct {
	Store           store.Store
	Signer          jwtx.Signer
	Issuer          string
	SessionTTL      time.Duration
	VerificationTTL time.Duration
	ResetTTL        time.Duration
	Now             func() time.Time
}

func (i *TokenIssuer) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}

func (i *TokenIssuer) ttl(kind domain.TokenKind) time.Duration {
	switch kind {
	case domain.TokenEmailVerification:
		if i.VerificationTTL > 0 {
			return i.VerificationTTL
		}
		return DefaultVerificationTTL
	default:
		if i.ResetTTL > 0 {
			return i.ResetTTL
		}
		return DefaultResetTTL
	}
}

// IssueSessionToken signs {id, role} for the user.
func (i *TokenIssuer) IssueSessionToken(u domain.User) (SessionToken, error) {
	ttl := i.SessionTTL
	if ttl <= 0 {
		ttl = jwtx.DefaultSessionTTL
	}

	claims := jwtx.NewSessionClaims(u.ID, u.Role.String(), i.Issuer, ttl, i.now())
	token, err := i.Signer.Sign(claims)
	if err != nil {
		return SessionToken{}, fmt.Errorf("sign session token: %w", err)
	}

	metrics.RecordTokenIssued(sessionKind)
	return SessionToken{Token: token, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// IssueVerificationToken stores a fresh verification fingerprint for the
// user, superseding any earlier one.
func (i *TokenIssuer) IssueVerificationToken(ctx context.Context, u domain.User) (IssuedToken, error) {
	return i.issue(ctx, domain.TokenEmailVerification, u)
}

// IssueResetToken stores a fresh reset fingerprint for the user.
func (i *TokenIssuer) IssueResetToken(ctx context.Context, u domain.User) (IssuedToken, error) {
	return i.issue(ctx, domain.TokenPasswordReset, u)
}

func (i *TokenIssuer) issue(ctx context.Context, kind domain.TokenKind, u domain.User) (IssuedToken, error) {
	plaintext, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return IssuedToken{}, err
	}

	now := i.now()
	tok := IssuedToken{
		Kind:      kind,
		Plaintext: plaintext,
		ExpiresAt: now.Add(i.ttl(kind)),
	}
	digest := cryptox.FingerprintToken(plaintext)

	users := i.Store.Users()
	switch kind {
	case domain.TokenEmailVerification:
		err = users.SetVerificationToken(ctx, u.ID, digest, tok.ExpiresAt, now)
	case domain.TokenPasswordReset:
		err = users.SetResetToken(ctx, u.ID, digest, tok.ExpiresAt, now)
	default:
		return IssuedToken{}, fmt.Errorf("unknown token kind %q", kind)
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return IssuedToken{}, ErrUserNotFound
	case err != nil:
		return IssuedToken{}, storeErr("store "+string(kind)+" token", err)
	}

	metrics.RecordTokenIssued(string(kind))
	return tok, nil
}

// IssueAndDeliver issues a single-use token and hands it to deliver. The
// fingerprint is durable before delivery starts. If delivery fails the
// fields are cleared again, but only while they still hold this token, so
// a newer concurrent issue survives.
func (i *TokenIssuer) IssueAndDeliver(
	ctx context.Context,
	kind domain.TokenKind,
	u domain.User,
	deliver DeliverFunc,
) (domain.DeliveryState, error) {
	l := slogx.FromContext(ctx)

	tok, err := i.issue(ctx, kind, u)
	if err != nil {
		return domain.DeliveryPending, err
	}
	state := domain.DeliveryPending

	deliveryErr := deliver(ctx, tok)
	state, _ = state.Transition(deliveryErr == nil)
	if state == domain.DeliveryCommitted {
		return state, nil
	}

	metrics.RecordDeliveryFailure(string(kind))
	l.Warn("token delivery failed, rolling back",
		slog.String("kind", string(kind)),
		slog.String("user_id", u.ID),
		slog.Any("error", deliveryErr),
	)

	digest := cryptox.FingerprintToken(tok.Plaintext)
	now := i.now()
	var clearErr error
	switch kind {
	case domain.TokenEmailVerification:
		clearErr = i.Store.Users().ClearVerificationToken(ctx, u.ID, digest, now)
	case domain.TokenPasswordReset:
		clearErr = i.Store.Users().ClearResetToken(ctx, u.ID, digest, now)
	}
	if clearErr != nil && !errors.Is(clearErr, store.ErrNotFound) {
		// The token was never delivered, so leaving it until expiry is
		// harmless; housekeeping clears it eventually.
		l.Error("failed to roll back undelivered token",
			slog.String("kind", string(kind)),
			slog.String("user_id", u.ID),
			slog.Any("error", clearErr),
		)
	}

	return state, fmt.Errorf("%w: %w", ErrDeliveryFailed, deliveryErr)
}

// Principal is the authenticated identity carried by a session token.
type Principal struct {
	ID   string
	Role domain.Role
}

// TokenValidator resolves presented tokens.
type TokenValidator struct {
	Verifier jwtx.Verifier
	Store    store.Store
	Now      func() time.Time
}

func (v *TokenValidator) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// ValidateSessionToken checks signature, algorithm, issuer and expiry. It
// never touches the store.
func (v *TokenValidator) ValidateSessionToken(token string) (Principal, error) {
	claims, err := v.Verifier.Verify(token)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			return Principal{}, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return Principal{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	role := domain.Role(claims.Role)
	if !role.Valid() {
		return Principal{}, fmt.Errorf("%w: unknown role %q", ErrTokenInvalid, claims.Role)
	}
	return Principal{ID: claims.UID, Role: role}, nil
}

// ResolveVerificationToken returns the owner of an unexpired verification
// token without consuming it.
func (v *TokenValidator) ResolveVerificationToken(ctx context.Context, plaintext string) (domain.User, error) {
	if plaintext == "" {
		return domain.User{}, ErrInvalidOrExpiredToken
	}
	u, err := v.Store.Users().GetUserByVerificationToken(ctx, cryptox.FingerprintToken(plaintext), v.now())
	return resolved(u, err, "resolve verification token")
}

// ResolveResetToken returns the owner of an unexpired reset token.
func (v *TokenValidator) ResolveResetToken(ctx context.Context, plaintext string) (domain.User, error) {
	if plaintext == "" {
		return domain.User{}, ErrInvalidOrExpiredToken
	}
	u, err := v.Store.Users().GetUserByResetToken(ctx, cryptox.FingerprintToken(plaintext), v.now())
	return resolved(u, err, "resolve reset token")
}

func resolved(u domain.User, err error, op string) (domain.User, error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.User{}, ErrInvalidOrExpiredToken
	case err != nil:
		return domain.User{}, storeErr(op, err)
	}
	return u, nil
}
