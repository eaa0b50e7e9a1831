package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidateStructMessages(t *testing.T) {
	err := validateStruct(SignupInput{Name: "", Email: "nope", Password: "123"})
	require.ErrorIs(t, err, ErrValidation)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	require.Equal(t, map[string]string{
		"name":     "Name is required",
		"email":    "Please provide a valid email",
		"password": "Password must be at least 6 characters",
	}, ve.Fields)
	require.Contains(t, ve.Error(), "email: Please provide a valid email")

	require.NoError(t, validateStruct(LoginInput{Email: "a@example.com", Password: "x"}))
}

func TestHumanDuration(t *testing.T) {
	tests := map[time.Duration]string{
		10 * time.Minute:                  "10 minutes",
		time.Minute:                       "1 minute",
		time.Hour:                         "1 hour",
		24 * time.Hour:                    "24 hours",
		72 * time.Hour:                    "3 days",
		10*time.Minute - time.Millisecond: "10 minutes",
	}
	for d, want := range tests {
		require.Equal(t, want, humanDuration(d), d.String())
	}
}
