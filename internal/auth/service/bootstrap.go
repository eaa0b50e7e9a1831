package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
)

var (
	ErrBootstrapDisabled     = errors.New("bootstrap not enabled")
	ErrBootstrapAlready      = errors.New("system already bootstrapped")
	ErrBootstrapUnauthorized = errors.New("unauthorized bootstrap attempt")
)

// BootstrapService creates the first administrator of an empty store. It
// is the only way an admin comes into existence without another admin.
type BootstrapService struct {
	Store       store.Store
	Credentials *CredentialService
	Token       string // Pre-configured bootstrap token
}

// Enabled reports whether a bootstrap token is configured.
func (s *BootstrapService) Enabled() bool {
	return s.Token != ""
}

func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, storeErr("check bootstrap", err)
	}
	return !empty, nil
}

// Bootstrap creates a verified admin when the presented token matches and
// no user exists yet.
func (s *BootstrapService) Bootstrap(ctx context.Context, token, name, email, password string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	// 1. Check if enabled
	if !s.Enabled() {
		return domain.User{}, ErrBootstrapDisabled
	}

	// 2. Validate provided token
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.Token)) != 1 {
		l.Warn("unauthorized bootstrap attempt")
		return domain.User{}, ErrBootstrapUnauthorized
	}

	// 3. Emptiness check and insert share a transaction so two racing
	// bootstraps cannot both succeed.
	var admin domain.User
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		empty, err := tx.Users().IsEmpty(ctx)
		if err != nil {
			return storeErr("check bootstrap", err)
		}
		if !empty {
			return ErrBootstrapAlready
		}

		admin, err = s.Credentials.createUser(ctx, tx.Users(), name, email, password, domain.RoleAdmin, true)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrBootstrapAlready) {
			l.Warn("attempted bootstrap on already-bootstrapped system")
		}
		return domain.User{}, err
	}

	l.Info("successfully bootstrapped system", slog.String("admin_user_id", admin.ID))
	return admin, nil
}
