package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/authcore/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedUser(t *testing.T, s store.Store, email string) domain.User {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	u := domain.User{
		ID:           idx.New().String(),
		Name:         "Test User",
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	empty, err := s.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	u := seedUser(t, s, "alice@example.com")

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Email, got.Email)
	require.Equal(t, domain.RoleUser, got.Role)
	require.False(t, got.IsEmailVerified)
	require.Empty(t, got.PasswordHash, "password hash must not be loaded by default")
	require.True(t, u.CreatedAt.Equal(got.CreatedAt))

	withPw, err := s.Users().GetUserByEmail(ctx, u.Email, true)
	require.NoError(t, err)
	require.Equal(t, u.PasswordHash, withPw.PasswordHash)

	noPw, err := s.Users().GetUserByEmail(ctx, u.Email, false)
	require.NoError(t, err)
	require.Empty(t, noPw.PasswordHash)

	_, err = s.Users().GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	empty, err = s.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.False(t, empty)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, "dup@example.com")

	now := time.Now()
	err := s.Users().CreateUser(context.Background(), domain.User{
		ID: idx.New().String(), Name: "Other", Email: "dup@example.com",
		PasswordHash: "x", Role: domain.RoleUser, CreatedAt: now, UpdatedAt: now,
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestConcurrentCreateOnlyOneWins(t *testing.T) {
	s := newTestStore(t)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			now := time.Now()
			errs[i] = s.Users().CreateUser(context.Background(), domain.User{
				ID: idx.New().String(), Name: fmt.Sprint(i), Email: "race@example.com",
				PasswordHash: "x", Role: domain.RoleUser, CreatedAt: now, UpdatedAt: now,
			})
		}()
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	}
	require.Equal(t, 1, ok)
}

func TestVerificationTokenLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "verify@example.com")
	now := time.Now()

	require.NoError(t, s.Users().SetVerificationToken(ctx, u.ID, "digest-1", now.Add(time.Hour), now))

	// Superseded by a second token.
	require.NoError(t, s.Users().SetVerificationToken(ctx, u.ID, "digest-2", now.Add(time.Hour), now))
	_, err := s.Users().ConsumeVerificationToken(ctx, "digest-1", now)
	require.ErrorIs(t, err, store.ErrNotFound)

	resolved, err := s.Users().GetUserByVerificationToken(ctx, "digest-2", now)
	require.NoError(t, err)
	require.Equal(t, u.ID, resolved.ID)
	require.False(t, resolved.IsEmailVerified, "resolving does not consume")

	got, err := s.Users().ConsumeVerificationToken(ctx, "digest-2", now)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.True(t, got.IsEmailVerified)
	require.Nil(t, got.EmailVerificationDigest)
	require.Nil(t, got.EmailVerificationExpiresAt)

	_, err = s.Users().ConsumeVerificationToken(ctx, "digest-2", now)
	require.ErrorIs(t, err, store.ErrNotFound, "token is single use")
}

func TestVerificationTokenExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "late@example.com")
	now := time.Now()

	require.NoError(t, s.Users().SetVerificationToken(ctx, u.ID, "digest", now.Add(time.Minute), now))

	_, err := s.Users().ConsumeVerificationToken(ctx, "digest", now.Add(time.Minute))
	require.ErrorIs(t, err, store.ErrNotFound, "expiry boundary is exclusive")
}

func TestClearTokenIsCompareAndClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "cas@example.com")
	now := time.Now()

	require.NoError(t, s.Users().SetResetToken(ctx, u.ID, "old", now.Add(time.Minute), now))
	require.NoError(t, s.Users().SetResetToken(ctx, u.ID, "new", now.Add(time.Minute), now))

	// A stale compensation must not wipe the newer token.
	require.NoError(t, s.Users().ClearResetToken(ctx, u.ID, "old", now))
	got, err := s.Users().GetUserByResetToken(ctx, "new", now)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	require.NoError(t, s.Users().ClearResetToken(ctx, u.ID, "new", now))
	_, err = s.Users().GetUserByResetToken(ctx, "new", now)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdatePasswordClearsResetFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "reset@example.com")
	now := time.Now()

	require.NoError(t, s.Users().SetResetToken(ctx, u.ID, "reset-digest", now.Add(10*time.Minute), now))

	err := s.WithTx(ctx, func(tx store.Tx) error {
		got, err := tx.Users().GetUserByResetToken(ctx, "reset-digest", now)
		if err != nil {
			return err
		}
		return tx.Users().UpdatePassword(ctx, got.ID, "new-hash", now)
	})
	require.NoError(t, err)

	withPw, err := s.Users().GetUserByEmail(ctx, u.Email, true)
	require.NoError(t, err)
	require.Equal(t, "new-hash", withPw.PasswordHash)
	require.Nil(t, withPw.ResetPasswordDigest)
	require.Nil(t, withPw.ResetPasswordExpiresAt)

	require.ErrorIs(t, s.Users().UpdatePassword(ctx, "missing", "h", now), store.ErrNotFound)
}

func TestWithTxRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "rollback@example.com")
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdateRole(ctx, u.ID, domain.RoleAdmin, time.Now()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleUser, got.Role)
}

func TestListUsersAndRoles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedUser(t, s, "a@example.com")
	seedUser(t, s, "b@example.com")

	require.NoError(t, s.Users().UpdateRole(ctx, a.ID, domain.RoleModerator, time.Now()))
	require.ErrorIs(t, s.Users().UpdateRole(ctx, "missing", domain.RoleAdmin, time.Now()), store.ErrNotFound)

	users, err := s.Users().ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, domain.RoleModerator, users[0].Role)
}

func TestClearExpiredTokens(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	a := seedUser(t, s, "a@example.com")
	b := seedUser(t, s, "b@example.com")

	require.NoError(t, s.Users().SetVerificationToken(ctx, a.ID, "va", now.Add(-time.Minute), now))
	require.NoError(t, s.Users().SetResetToken(ctx, a.ID, "ra", now.Add(-time.Minute), now))
	require.NoError(t, s.Users().SetResetToken(ctx, b.ID, "rb", now.Add(time.Hour), now))

	n, err := s.Users().ClearExpiredTokens(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	got, err := s.Users().GetUserByID(ctx, a.ID)
	require.NoError(t, err)
	require.Nil(t, got.EmailVerificationDigest)
	require.Nil(t, got.ResetPasswordDigest)

	got, err = s.Users().GetUserByID(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ResetPasswordDigest)
}

func TestDriverErrorsPropagate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := sqlite.NewStoreFromDB(db)
	driverErr := errors.New("disk I/O error")

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id = ?").
		WithArgs("u1").
		WillReturnError(driverErr)

	_, err = s.Users().GetUserByID(context.Background(), "u1")
	require.ErrorIs(t, err, driverErr)
	require.NotErrorIs(t, err, store.ErrNotFound)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errors.New("UNIQUE constraint failed: users.email"))

	now := time.Now()
	err = s.Users().CreateUser(context.Background(), domain.User{ID: "u2", Email: "x@y.z", Role: domain.RoleUser, CreatedAt: now, UpdatedAt: now})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	require.NoError(t, mock.ExpectationsWereMet())
}
