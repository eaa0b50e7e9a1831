package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/metrics"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/pkg/cryptox"
	"github.com/aussiebroadwan/authcore/pkg/mail"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
)

// AccountService implements the account operations: signup, login and the
// verification and password-reset flows.
type AccountService struct {
	Store       store.Store
	Credentials *CredentialService
	Issuer      *TokenIssuer
	Validator   *TokenValidator
	Mailer      mail.Mailer
	Composer    *mail.Composer
	Now         func() time.Time
}

// LoginResult is what a successful login hands back.
type LoginResult struct {
	Session SessionToken
	User    domain.User
}

func (s *AccountService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Signup creates an unverified user and emails a verification link. A
// failed email does not fail the signup: the user can ask for a new link
// once logged in.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (domain.User, error) {
	l := slogx.FromContext(ctx)

	u, err := s.Credentials.CreateUser(ctx, in.Name, in.Email, in.Password)
	if err != nil {
		return domain.User{}, err
	}
	metrics.RecordSignup()
	l.Info("user signed up",
		slog.String("user_id", u.ID),
		slog.String("email", slogx.MaskEmail(u.Email)),
	)

	if _, err := s.Issuer.IssueAndDeliver(ctx, domain.TokenEmailVerification, u, s.emailFor(u)); err != nil {
		l.Warn("verification email not sent at signup",
			slog.String("user_id", u.ID),
			slog.Any("error", err),
		)
	}
	return u, nil
}

// Login checks credentials and issues a session token. Unknown emails and
// wrong passwords fail identically and take comparable time.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return LoginResult{}, err
	}

	u, err := s.Credentials.FindByEmail(ctx, in.Email, true)
	switch {
	case errors.Is(err, ErrUserNotFound):
		s.Credentials.burnPasswordCheck(in.Password)
		metrics.RecordLogin(false)
		return LoginResult{}, ErrInvalidCredentials
	case err != nil:
		return LoginResult{}, err
	}

	if !s.Credentials.VerifyPassword(ctx, u, in.Password) {
		metrics.RecordLogin(false)
		slogx.FromContext(ctx).Info("login rejected", slog.String("user_id", u.ID))
		return LoginResult{}, ErrInvalidCredentials
	}
	u.PasswordHash = ""

	session, err := s.Issuer.IssueSessionToken(u)
	if err != nil {
		return LoginResult{}, err
	}
	metrics.RecordLogin(true)
	return LoginResult{Session: session, User: u}, nil
}

// RequestVerification issues a new verification token for the user and
// emails it. The previous token, if any, stops working.
func (s *AccountService) RequestVerification(ctx context.Context, userID string) error {
	u, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if u.IsEmailVerified {
		return ErrAlreadyVerified
	}

	_, err = s.Issuer.IssueAndDeliver(ctx, domain.TokenEmailVerification, u, s.emailFor(u))
	return err
}

// ConsumeVerification marks the token's owner as verified. The token is
// gone afterwards, so a second presentation fails.
func (s *AccountService) ConsumeVerification(ctx context.Context, plaintext string) (domain.User, error) {
	if plaintext == "" {
		return domain.User{}, ErrInvalidOrExpiredToken
	}

	u, err := s.Store.Users().ConsumeVerificationToken(ctx, cryptox.FingerprintToken(plaintext), s.now())
	u, err = resolved(u, err, "consume verification token")
	metrics.RecordTokenConsumed(string(domain.TokenEmailVerification), err == nil)
	if err != nil {
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("email verified", slog.String("user_id", u.ID))
	return u, nil
}

// RequestPasswordReset emails a reset link. If the email cannot be sent the
// token is withdrawn and ErrDeliveryFailed is returned.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	in := emailInput{Email: domain.NormalizeEmail(email)}
	if err := validateStruct(in); err != nil {
		return err
	}

	u, err := s.Credentials.FindByEmail(ctx, in.Email, false)
	if err != nil {
		return err
	}

	_, err = s.Issuer.IssueAndDeliver(ctx, domain.TokenPasswordReset, u, s.emailFor(u))
	return err
}

// CheckResetToken reports whether a reset token would currently be
// accepted, without consuming it. Frontends call it before showing the new
// password form.
func (s *AccountService) CheckResetToken(ctx context.Context, plaintext string) error {
	_, err := s.Validator.ResolveResetToken(ctx, plaintext)
	return err
}

// ConsumePasswordReset sets a new password for the owner of a reset token.
// Resolution and update share one transaction and the update clears the
// reset fields, so the token works once.
func (s *AccountService) ConsumePasswordReset(ctx context.Context, plaintext, newPassword string) error {
	// Hash outside the transaction; argon2 is slow and sqlite has a single
	// connection.
	hash, err := s.Credentials.hashNewPassword(newPassword)
	if err != nil {
		return err
	}
	if plaintext == "" {
		return ErrInvalidOrExpiredToken
	}

	digest := cryptox.FingerprintToken(plaintext)
	var userID string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByResetToken(ctx, digest, s.now())
		if u, err = resolved(u, err, "resolve reset token"); err != nil {
			return err
		}
		userID = u.ID
		return s.Credentials.updatePassword(ctx, tx.Users(), u.ID, hash)
	})
	metrics.RecordTokenConsumed(string(domain.TokenPasswordReset), err == nil)
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidOrExpiredToken), errors.Is(err, ErrStoreUnavailable):
		return err
	default:
		// Commit failures surface here unwrapped.
		return storeErr("reset password", err)
	}

	slogx.FromContext(ctx).Info("password reset", slog.String("user_id", userID))
	return nil
}

// Me returns the current record of a user.
func (s *AccountService) Me(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.User{}, ErrUserNotFound
	case err != nil:
		return domain.User{}, storeErr("get user", err)
	}
	return u, nil
}

// ListUsers returns every user, oldest first.
func (s *AccountService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.Store.Users().ListUsers(ctx)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	return users, nil
}

// AssignRole changes a user's role. It is the only way a role changes.
// Administrators cannot change their own role, so the last admin cannot
// lock everyone out.
func (s *AccountService) AssignRole(ctx context.Context, actor Principal, userID string, role domain.Role) (domain.User, error) {
	if !role.Valid() {
		return domain.User{}, newValidationError("role", "Role must be one of "+rolesList())
	}
	if actor.ID == userID {
		return domain.User{}, ErrForbidden
	}

	err := s.Store.Users().UpdateRole(ctx, userID, role, s.now())
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.User{}, ErrUserNotFound
	case err != nil:
		return domain.User{}, storeErr("update role", err)
	}

	slogx.FromContext(ctx).Info("role assigned",
		slog.String("user_id", userID),
		slog.String("role", role.String()),
		slog.String("by", actor.ID),
	)
	return s.Me(ctx, userID)
}

func rolesList() string {
	names := make([]string, len(domain.Roles))
	for i, r := range domain.Roles {
		names[i] = r.String()
	}
	return strings.Join(names, ", ")
}

// emailFor returns the delivery step for u: render the email that matches
// the token kind and send it.
func (s *AccountService) emailFor(u domain.User) DeliverFunc {
	return func(ctx context.Context, tok IssuedToken) error {
		validFor := humanDuration(tok.ExpiresAt.Sub(s.now()))

		var (
			msg mail.Message
			err error
		)
		switch tok.Kind {
		case domain.TokenEmailVerification:
			msg, err = s.Composer.VerificationEmail(u.Email, u.Name, tok.Plaintext, validFor)
		case domain.TokenPasswordReset:
			msg, err = s.Composer.PasswordResetEmail(u.Email, u.Name, tok.Plaintext, validFor)
		default:
			err = fmt.Errorf("no email for token kind %q", tok.Kind)
		}
		if err != nil {
			return err
		}
		return s.Mailer.Send(ctx, msg)
	}
}

// humanDuration renders d for an email: "10 minutes", "24 hours".
func humanDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	switch {
	case d >= 48*time.Hour && d%(24*time.Hour) == 0:
		return fmt.Sprintf("%d days", int(d/(24*time.Hour)))
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	default:
		return plural(int(d/time.Minute), "minute")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
