package service

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var (
	ErrValidation            = errors.New("validation_error")
	ErrDuplicateEmail        = errors.New("duplicate_email")
	ErrInvalidCredentials    = errors.New("invalid_credentials")
	ErrInvalidOrExpiredToken = errors.New("invalid_or_expired_token")
	ErrUserNotFound          = errors.New("user_not_found")
	ErrDeliveryFailed        = errors.New("delivery_failed")
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrNotVerified           = errors.New("not_verified")
	ErrForbidden             = errors.New("forbidden")
	ErrStoreUnavailable      = errors.New("store_unavailable")
	ErrAlreadyVerified       = errors.New("already_verified")

	// Session validation outcomes. The gate collapses both into
	// ErrUnauthenticated.
	ErrTokenInvalid = errors.New("token_invalid")
	ErrTokenExpired = errors.New("token_expired")
)

// ValidationError carries one message per offending input field, keyed by
// the field's JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := slices.Sorted(maps.Keys(e.Fields))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// storeErr marks a driver failure as ErrStoreUnavailable while keeping the
// cause for logs.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
