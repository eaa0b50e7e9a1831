package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "authcore"

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newPair(t *testing.T, opts ...jwtx.VerifierOption) (*jwtx.HS256Signer, *jwtx.HS256Verifier) {
	t.Helper()

	signer, err := jwtx.NewHS256Signer(testSecret)
	require.NoError(t, err)
	require.NoError(t, signer.Validate())

	verifier, err := jwtx.NewHS256Verifier(testSecret, exampleIssuer, opts...)
	require.NoError(t, err)

	return signer, verifier
}

func TestHS256SignAndVerify(t *testing.T) {
	signer, verifier := newPair(t)

	now := time.Now().UTC()
	claims := jwtx.NewSessionClaims("user-123", "admin", exampleIssuer, time.Hour, now)

	token, err := signer.Sign(claims)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-123", got.UID)
	require.Equal(t, "user-123", got.Subject)
	require.Equal(t, "admin", got.Role)
	require.Equal(t, exampleIssuer, got.Issuer)
	require.NotEmpty(t, got.ID)
}

func TestHS256RejectsWeakSecret(t *testing.T) {
	_, err := jwtx.NewHS256Signer([]byte("short"))
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)

	_, err = jwtx.NewHS256Verifier(nil, exampleIssuer)
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)
}

func TestHS256Expiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := now

	signer, verifier := newPair(t, jwtx.WithClock(func() time.Time { return clock }))

	token, err := signer.Sign(jwtx.NewSessionClaims("user-1", "user", exampleIssuer, time.Minute, now))
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.NoError(t, err)

	clock = now.Add(2 * time.Minute)
	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestHS256Rejections(t *testing.T) {
	signer, verifier := newPair(t)
	now := time.Now().UTC()

	otherSigner, err := jwtx.NewHS256Signer([]byte("ffffffffffffffffffffffffffffffff"))
	require.NoError(t, err)

	forged, err := otherSigner.Sign(jwtx.NewSessionClaims("user-1", "admin", exampleIssuer, time.Hour, now))
	require.NoError(t, err)

	wrongIssuer, err := signer.Sign(jwtx.NewSessionClaims("user-1", "user", "someone-else", time.Hour, now))
	require.NoError(t, err)

	mismatched := jwtx.NewSessionClaims("user-1", "user", exampleIssuer, time.Hour, now)
	mismatched.Subject = "user-2"
	mismatchedToken, err := signer.Sign(mismatched)
	require.NoError(t, err)

	// Same secret, different HMAC algorithm: must not be accepted.
	hs384, err := jwt.NewWithClaims(jwt.SigningMethodHS384,
		jwtx.NewSessionClaims("user-1", "admin", exampleIssuer, time.Hour, now)).SignedString(testSecret)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone,
		jwtx.NewSessionClaims("user-1", "admin", exampleIssuer, time.Hour, now)).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtx.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: exampleIssuer, Subject: "user-1"},
		UID:              "user-1",
	}).SignedString(testSecret)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"garbage", "not-a-jwt", jwtx.ErrMalformed},
		{"empty", "", jwtx.ErrMalformed},
		{"wrong secret", forged, jwtx.ErrInvalidSig},
		{"wrong issuer", wrongIssuer, jwtx.ErrIssuer},
		{"uid and sub disagree", mismatchedToken, jwtx.ErrInvalidClaim},
		{"hs384", hs384, nil},
		{"alg none", unsigned, nil},
		{"missing exp", noExpiry, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Verify(tt.token)
			require.Error(t, err)
			require.NotErrorIs(t, err, jwtx.ErrExpired)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
