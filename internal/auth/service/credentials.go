package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/pkg/cryptox"
	"github.com/aussiebroadwan/authcore/pkg/idx"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
)

// CredentialService owns user records and their password hashes.
type CredentialService struct {
	Store  store.Store
	Hasher *cryptox.PasswordHasher
	Now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func (s *CredentialService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CreateUser validates the input, normalizes the email and inserts an
// unverified user with the default role.
func (s *CredentialService) CreateUser(ctx context.Context, name, email, password string) (domain.User, error) {
	return s.createUser(ctx, s.Store.Users(), name, email, password, domain.RoleUser, false)
}

func (s *CredentialService) createUser(
	ctx context.Context,
	users store.Users,
	name, email, password string,
	role domain.Role,
	verified bool,
) (domain.User, error) {
	in := SignupInput{
		Name:     strings.TrimSpace(name),
		Email:    domain.NormalizeEmail(email),
		Password: password,
	}
	if err := validateStruct(in); err != nil {
		return domain.User{}, err
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return domain.User{}, err
	}

	now := s.now()
	u := domain.User{
		ID:              idx.NewAt(now).String(),
		Name:            in.Name,
		Email:           in.Email,
		PasswordHash:    hash,
		Role:            role,
		IsEmailVerified: verified,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// The unique index decides; a pre-check would race.
	if err := users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrDuplicateEmail
		}
		return domain.User{}, storeErr("create user", err)
	}

	u.PasswordHash = ""
	return u, nil
}

// FindByEmail looks a user up by normalized email. The password hash is
// only loaded when includePassword is set.
func (s *CredentialService) FindByEmail(ctx context.Context, email string, includePassword bool) (domain.User, error) {
	u, err := s.Store.Users().GetUserByEmail(ctx, domain.NormalizeEmail(email), includePassword)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.User{}, ErrUserNotFound
	case err != nil:
		return domain.User{}, storeErr("find user", err)
	}
	return u, nil
}

// VerifyPassword reports whether candidate matches the user's stored hash.
// A user loaded without its hash never matches.
func (s *CredentialService) VerifyPassword(ctx context.Context, u domain.User, candidate string) bool {
	if u.PasswordHash == "" {
		return false
	}
	err := s.Hasher.Verify(candidate, u.PasswordHash)
	if err != nil && !errors.Is(err, cryptox.ErrPasswordMismatch) {
		slogx.FromContext(ctx).Error("stored password hash is unusable",
			slog.String("user_id", u.ID),
			slog.Any("error", err),
		)
	}
	return err == nil
}

// burnPasswordCheck performs a hash verification whose result is ignored,
// so an unknown email costs the same time as a wrong password.
func (s *CredentialService) burnPasswordCheck(candidate string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.Hasher.Hash("not-a-real-password")
	})
	if s.dummyHash != "" {
		_ = s.Hasher.Verify(candidate, s.dummyHash)
	}
}

// hashNewPassword validates and hashes a replacement password.
func (s *CredentialService) hashNewPassword(password string) (string, error) {
	if err := validateStruct(passwordInput{Password: password}); err != nil {
		return "", err
	}
	return s.Hasher.Hash(password)
}

// UpdatePassword validates and rehashes password and replaces the stored
// hash. Outstanding reset fields are cleared by the same statement.
func (s *CredentialService) UpdatePassword(ctx context.Context, userID, password string) error {
	hash, err := s.hashNewPassword(password)
	if err != nil {
		return err
	}
	return s.updatePassword(ctx, s.Store.Users(), userID, hash)
}

func (s *CredentialService) updatePassword(ctx context.Context, users store.Users, userID, hash string) error {
	err := users.UpdatePassword(ctx, userID, hash, s.now())
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrUserNotFound
	case err != nil:
		return storeErr("update password", err)
	}
	return nil
}
