package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest HMAC secret accepted, matching the
// 256-bit output of SHA-256.
const MinSecretLength = 32

var ErrWeakSecret = fmt.Errorf("jwtx: secret must be at least %d bytes", MinSecretLength)

// Signer is our interface for anything that can sign session tokens.
type Signer interface {
	Alg() string
	Sign(SessionClaims) (string, error)
	Validate() error
}

// HS256Signer signs tokens with HMAC SHA-256 using an injected secret.
type HS256Signer struct {
	secret []byte
}

// NewHS256Signer creates a signer bound to secret. The secret is copied so
// later mutation by the caller has no effect.
func NewHS256Signer(secret []byte) (*HS256Signer, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	return &HS256Signer{secret: append([]byte(nil), secret...)}, nil
}

func (s *HS256Signer) Alg() string { return jwt.SigningMethodHS256.Alg() }

// Sign turns claims into a compact JWS string.
func (s *HS256Signer) Sign(claims SessionClaims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Validate does a quick sanity check to make sure we actually have a key.
func (s *HS256Signer) Validate() error {
	if len(s.secret) < MinSecretLength {
		return errors.New("jwtx: signer has no usable secret")
	}
	return nil
}
