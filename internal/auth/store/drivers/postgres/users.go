package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, name, email, role, is_email_verified,
	email_verification_digest, email_verification_expires_at,
	reset_password_digest, reset_password_expires_at,
	created_at, updated_at`

type usersRepo struct {
	q querier
}

func scanUser(row pgx.Row, withPassword bool) (domain.User, error) {
	var (
		u    domain.User
		role string
	)
	dest := []any{
		&u.ID, &u.Name, &u.Email, &role, &u.IsEmailVerified,
		&u.EmailVerificationDigest, &u.EmailVerificationExpiresAt,
		&u.ResetPasswordDigest, &u.ResetPasswordExpiresAt,
		&u.CreatedAt, &u.UpdatedAt,
	}
	if withPassword {
		dest = append(dest, &u.PasswordHash)
	}
	if err := row.Scan(dest...); err != nil {
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, is_email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.IsEmailVerified, u.CreatedAt, u.UpdatedAt,
	)
	return mapConflict(err)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id), false)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string, includePassword bool) (domain.User, error) {
	cols := userColumns
	if includePassword {
		cols += `, password_hash`
	}
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+cols+` FROM users WHERE email = $1`, email), includePassword)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.q.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows, false)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *usersRepo) UpdatePassword(ctx context.Context, userID, newHash string, now time.Time) error {
	return requireOneRow(r.q.Exec(ctx, `
		UPDATE users
		SET password_hash = $1,
		    reset_password_digest = NULL,
		    reset_password_expires_at = NULL,
		    updated_at = $2
		WHERE id = $3`,
		newHash, now, userID,
	))
}

func (r *usersRepo) UpdateRole(ctx context.Context, userID string, role domain.Role, now time.Time) error {
	return requireOneRow(r.q.Exec(ctx,
		`UPDATE users SET role = $1, updated_at = $2 WHERE id = $3`,
		string(role), now, userID,
	))
}

func (r *usersRepo) SetVerificationToken(ctx context.Context, userID, digest string, expiresAt, now time.Time) error {
	return requireOneRow(r.q.Exec(ctx, `
		UPDATE users
		SET email_verification_digest = $1,
		    email_verification_expires_at = $2,
		    updated_at = $3
		WHERE id = $4`,
		digest, expiresAt, now, userID,
	))
}

func (r *usersRepo) ClearVerificationToken(ctx context.Context, userID, digest string, now time.Time) error {
	_, err := r.q.Exec(ctx, `
		UPDATE users
		SET email_verification_digest = NULL,
		    email_verification_expires_at = NULL,
		    updated_at = $1
		WHERE id = $2 AND email_verification_digest = $3`,
		now, userID, digest,
	)
	return err
}

func (r *usersRepo) ConsumeVerificationToken(ctx context.Context, digest string, now time.Time) (domain.User, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE users
		SET is_email_verified = TRUE,
		    email_verification_digest = NULL,
		    email_verification_expires_at = NULL,
		    updated_at = $1
		WHERE email_verification_digest = $2
		  AND email_verification_expires_at > $1
		RETURNING `+userColumns,
		now, digest,
	)
	u, err := scanUser(row, false)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) SetResetToken(ctx context.Context, userID, digest string, expiresAt, now time.Time) error {
	return requireOneRow(r.q.Exec(ctx, `
		UPDATE users
		SET reset_password_digest = $1,
		    reset_password_expires_at = $2,
		    updated_at = $3
		WHERE id = $4`,
		digest, expiresAt, now, userID,
	))
}

func (r *usersRepo) ClearResetToken(ctx context.Context, userID, digest string, now time.Time) error {
	_, err := r.q.Exec(ctx, `
		UPDATE users
		SET reset_password_digest = NULL,
		    reset_password_expires_at = NULL,
		    updated_at = $1
		WHERE id = $2 AND reset_password_digest = $3`,
		now, userID, digest,
	)
	return err
}

func (r *usersRepo) GetUserByVerificationToken(ctx context.Context, digest string, now time.Time) (domain.User, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email_verification_digest = $1
		  AND email_verification_expires_at > $2`,
		digest, now,
	)
	u, err := scanUser(row, false)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

// GetUserByResetToken locks the row so a concurrent consumer of the same
// token waits, then re-evaluates the predicate against the cleared fields.
func (r *usersRepo) GetUserByResetToken(ctx context.Context, digest string, now time.Time) (domain.User, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE reset_password_digest = $1
		  AND reset_password_expires_at > $2
		FOR UPDATE`,
		digest, now,
	)
	u, err := scanUser(row, false)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

// IsEmpty takes a transaction-scoped advisory lock before counting, so
// concurrent bootstrap transactions check and insert one at a time. Outside
// a transaction the lock is released with the statement.
func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, bootstrapLockKey); err != nil {
		return false, err
	}

	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users)`).Scan(&exists); err != nil {
		return false, err
	}
	return !exists, nil
}

func (r *usersRepo) ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	ver, err := r.q.Exec(ctx, `
		UPDATE users
		SET email_verification_digest = NULL,
		    email_verification_expires_at = NULL
		WHERE email_verification_expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}

	reset, err := r.q.Exec(ctx, `
		UPDATE users
		SET reset_password_digest = NULL,
		    reset_password_expires_at = NULL
		WHERE reset_password_expires_at <= $1`, now)
	if err != nil {
		return ver.RowsAffected(), err
	}
	return ver.RowsAffected() + reset.RowsAffected(), nil
}
