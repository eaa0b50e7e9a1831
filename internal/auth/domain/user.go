package domain

import (
	"strings"
	"time"

	"github.com/aussiebroadwan/authcore/pkg/authsdk"
)

type User struct {
	ID              string
	Name            string
	Email           string // normalised, see NormalizeEmail
	PasswordHash    string // argon2id PHC string, empty unless explicitly loaded
	Role            Role
	IsEmailVerified bool

	// Only fingerprints of single-use tokens are stored.
	EmailVerificationDigest    *string
	EmailVerificationExpiresAt *time.Time
	ResetPasswordDigest        *string
	ResetPasswordExpiresAt     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Public projects the user onto the wire view, dropping the password hash
// and every token field.
func (u User) Public() authsdk.UserView {
	return authsdk.UserView{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Role:            string(u.Role),
		IsEmailVerified: u.IsEmailVerified,
		CreatedAt:       u.CreatedAt,
	}
}

// NormalizeEmail trims and lower-cases an address. Emails are compared and
// stored in this form, which makes uniqueness case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
