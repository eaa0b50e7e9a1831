package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Sub-repositories are reached through methods so that a
// transaction-scoped Store hands out transaction-scoped repos and nobody
// nests a transaction by accident.
type Store interface {
	Users() Users

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	//
	// Inside fn only use the repos reached through tx: the sqlite driver
	// holds a single connection, so touching the outer Store deadlocks.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users is the credential store. Emails passed in must already be
// normalised with domain.NormalizeEmail. Unless stated otherwise, returned
// users never carry PasswordHash.
type Users interface {
	// CreateUser inserts a new user. An email that is already taken yields
	// ErrAlreadyExists, including when two inserts race.
	CreateUser(ctx context.Context, u domain.User) error

	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail loads PasswordHash only when includePassword is set.
	GetUserByEmail(ctx context.Context, email string, includePassword bool) (domain.User, error)

	// ListUsers returns every user ordered by creation time (oldest first).
	ListUsers(ctx context.Context) ([]domain.User, error)

	// UpdatePassword replaces the hash and clears any reset token in the
	// same statement.
	UpdatePassword(ctx context.Context, userID, newHash string, now time.Time) error

	// UpdateRole sets the user's role.
	UpdateRole(ctx context.Context, userID string, role domain.Role, now time.Time) error

	// SetVerificationToken overwrites the verification digest and expiry,
	// superseding any earlier token.
	SetVerificationToken(ctx context.Context, userID, digest string, expiresAt, now time.Time) error

	// ClearVerificationToken clears the verification fields only while they
	// still hold digest, so a newer token is never wiped by an older
	// compensation.
	ClearVerificationToken(ctx context.Context, userID, digest string, now time.Time) error

	// GetUserByVerificationToken resolves an unexpired verification digest
	// without consuming it.
	GetUserByVerificationToken(ctx context.Context, digest string, now time.Time) (domain.User, error)
	// ConsumeVerificationToken marks the owner of an unexpired digest as
	// verified and clears the fields in one statement. ErrNotFound covers
	// unknown and expired digests alike.
	ConsumeVerificationToken(ctx context.Context, digest string, now time.Time) (domain.User, error)

	// SetResetToken overwrites the reset digest and expiry.
	SetResetToken(ctx context.Context, userID, digest string, expiresAt, now time.Time) error

	// ClearResetToken is the compare-and-clear counterpart of
	// ClearVerificationToken.
	ClearResetToken(ctx context.Context, userID, digest string, now time.Time) error

	// GetUserByResetToken resolves an unexpired reset digest. Digest and
	// expiry are checked in a single predicate; drivers that support it lock
	// the row for the rest of the transaction.
	GetUserByResetToken(ctx context.Context, digest string, now time.Time) (domain.User, error)

	// IsEmpty returns true if there are no users. Inside a transaction it
	// also blocks concurrent IsEmpty callers until that transaction ends, so
	// a check followed by an insert is atomic.
	IsEmpty(ctx context.Context) (bool, error)

	// ClearExpiredTokens nulls out verification and reset fields whose
	// expiry has passed and reports how many tokens were cleared.
	ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}
