package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
)

const userColumns = `id, name, email, role, is_email_verified,
	email_verification_digest, email_verification_expires_at,
	reset_password_digest, reset_password_expires_at,
	created_at, updated_at`

type usersRepo struct {
	q querier
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, withPassword bool) (domain.User, error) {
	var (
		u                        domain.User
		role                     string
		verified                 int64
		verDigest, resetDigest   sql.NullString
		verExpires, resetExpires sql.NullInt64
		createdAt, updatedAt     int64
		passwordHash             string
	)

	dest := []any{
		&u.ID, &u.Name, &u.Email, &role, &verified,
		&verDigest, &verExpires,
		&resetDigest, &resetExpires,
		&createdAt, &updatedAt,
	}
	if withPassword {
		dest = append(dest, &passwordHash)
	}
	if err := row.Scan(dest...); err != nil {
		return domain.User{}, err
	}

	u.Role = domain.Role(role)
	u.IsEmailVerified = verified != 0
	u.EmailVerificationDigest = mapNullStringPtr(verDigest)
	u.EmailVerificationExpiresAt = mapNullMillisPtr(verExpires)
	u.ResetPasswordDigest = mapNullStringPtr(resetDigest)
	u.ResetPasswordExpiresAt = mapNullMillisPtr(resetExpires)
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	u.PasswordHash = passwordHash
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, is_email_verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), boolToInt(u.IsEmailVerified),
		toMillis(u.CreatedAt), toMillis(u.UpdatedAt),
	)
	return mapConflict(err)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row, false)
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
	row := r.q.QueryRowContext(ctx, `SELECT `+cols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row, includePassword)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
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
	return requireOneRow(r.q.ExecContext(ctx, `
		UPDATE users
		SET password_hash = ?,
		    reset_password_digest = NULL,
		    reset_password_expires_at = NULL,
		    updated_at = ?
		WHERE id = ?`,
		newHash, toMillis(now), userID,
	))
}

func (r *usersRepo) UpdateRole(ctx context.Context, userID string, role domain.Role, now time.Time) error {
	return requireOneRow(r.q.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		string(role), toMillis(now), userID,
	))
}

func (r *usersRepo) SetVerificationToken(ctx context.Context, userID, digest string, expiresAt, now time.Time) error {
	return requireOneRow(r.q.ExecContext(ctx, `
		UPDATE users
		SET email_verification_digest = ?,
		    email_verification_expires_at = ?,
		    updated_at = ?
		WHERE id = ?`,
		digest, toMillis(expiresAt), toMillis(now), userID,
	))
}

func (r *usersRepo) ClearVerificationToken(ctx context.Context, userID, digest string, now time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE users
		SET email_verification_digest = NULL,
		    email_verification_expires_at = NULL,
		    updated_at = ?
		WHERE id = ? AND email_verification_digest = ?`,
		toMillis(now), userID, digest,
	)
	return err
}

func (r *usersRepo) ConsumeVerificationToken(ctx context.Context, digest string, now time.Time) (domain.User, error) {
	row := r.q.QueryRowContext(ctx, `
		UPDATE users
		SET is_email_verified = 1,
		    email_verification_digest = NULL,
		    email_verification_expires_at = NULL,
		    updated_at = ?
		WHERE email_verification_digest = ?
		  AND email_verification_expires_at > ?
		RETURNING `+userColumns,
		toMillis(now), digest, toMillis(now),
	)
	u, err := scanUser(row, false)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) SetResetToken(ctx context.Context, userID, digest string, expiresAt, now time.Time) error {
	return requireOneRow(r.q.ExecContext(ctx, `
		UPDATE users
		SET reset_password_digest = ?,
		    reset_password_expires_at = ?,
		    updated_at = ?
		WHERE id = ?`,
		digest, toMillis(expiresAt), toMillis(now), userID,
	))
}

func (r *usersRepo) ClearResetToken(ctx context.Context, userID, digest string, now time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE users
		SET reset_password_digest = NULL,
		    reset_password_expires_at = NULL,
		    updated_at = ?
		WHERE id = ? AND reset_password_digest = ?`,
		toMillis(now), userID, digest,
	)
	return err
}

func (r *usersRepo) GetUserByVerificationToken(ctx context.Context, digest string, now time.Time) (domain.User, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email_verification_digest = ?
		  AND email_verification_expires_at > ?`,
		digest, toMillis(now),
	)
	u, err := scanUser(row, false)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByResetToken(ctx context.Context, digest string, now time.Time) (domain.User, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE reset_password_digest = ?
		  AND reset_password_expires_at > ?`,
		digest, toMillis(now),
	)
	u, err := scanUser(row, false)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

func (r *usersRepo) ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	ms := toMillis(now)
	var total int64

	res, err := r.q.ExecContext(ctx, `
		UPDATE users
		SET email_verification_digest = NULL,
		    email_verification_expires_at = NULL
		WHERE email_verification_expires_at IS NOT NULL
		  AND email_verification_expires_at <= ?`, ms)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	total += n

	res, err = r.q.ExecContext(ctx, `
		UPDATE users
		SET reset_password_digest = NULL,
		    reset_password_expires_at = NULL
		WHERE reset_password_expires_at IS NOT NULL
		  AND reset_password_expires_at <= ?`, ms)
	if err != nil {
		return total, err
	}
	n, _ = res.RowsAffected()
	return total + n, nil
}
