package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is the lifetime of a session token when none is configured.
const DefaultSessionTTL = 30 * 24 * time.Hour

// SessionClaims are the claims carried by a session token. The token is
// self-contained: the server keeps no record of issued sessions.
type SessionClaims struct {
	jwt.RegisteredClaims

	// UID is the user id; it mirrors the "sub" claim for clients that read
	// the original field name.
	UID string `json:"uid"`

	// Role at the time of issue.
	Role string `json:"role"`
}

// NewSessionClaims builds minimally-correct claims.
func NewSessionClaims(uid, role, issuer string, ttl time.Duration, now time.Time) SessionClaims {
	return SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		UID:  uid,
		Role: role,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *SessionClaims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateSubject ensures uid and sub agree and are present.
func (c *SessionClaims) ValidateSubject() error {
	if c.UID == "" || c.Subject != c.UID {
		return ErrInvalidClaim
	}
	return nil
}
