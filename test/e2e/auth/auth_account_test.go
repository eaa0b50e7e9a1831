package auth_test

import (
	"net/http"
	"testing"

	"github.com/aussiebroadwan/authcore/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestSignupVerifyAndDashboard walks a new account from signup through
// email verification to the verified-only dashboard.
func TestSignupVerifyAndDashboard(t *testing.T) {
	svc, cleanup := setupAuthContainer(t, nil)
	defer cleanup()

	client := authsdk.NewSDKClient(svc.BaseURL)
	session := signupAndLogin(t, client, "Alice", "alice@example.com")

	me, err := session.Me(t.Context())
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", me.Email)
	require.Equal(t, "user", me.Role)
	require.False(t, me.IsEmailVerified)

	_, err = session.Dashboard(t.Context())
	assertAPIError(t, err, http.StatusForbidden, authsdk.ErrorCodeNotVerified)

	verified, err := client.VerifyEmail(t.Context(), svc.mailedToken(t, "verify-email"))
	require.NoError(t, err)
	require.True(t, verified.IsEmailVerified)

	// The same session passes once the email is confirmed.
	panel, err := session.Dashboard(t.Context())
	require.NoError(t, err)
	require.Equal(t, "Welcome to your dashboard", panel.Message)

	err = session.ResendVerification(t.Context())
	assertAPIError(t, err, http.StatusConflict, authsdk.ErrorCodeAlreadyVerified)
}

// TestDuplicateSignup verifies emails are unique regardless of case.
func TestDuplicateSignup(t *testing.T) {
	svc, cleanup := setupAuthContainer(t, nil)
	defer cleanup()

	client := authsdk.NewSDKClient(svc.BaseURL)
	signupAndLogin(t, client, "Bob", "bob@example.com")

	_, err := client.Signup(t.Context(), authsdk.SignupRequest{
		Name:     "Bob Again",
		Email:    "BOB@example.com",
		Password: userPassword,
	})
	assertAPIError(t, err, http.StatusConflict, authsdk.ErrorCodeDuplicateEmail)
}

// TestLoginFailures verifies wrong passwords and unknown emails look alike.
func TestLoginFailures(t *testing.T) {
	svc, cleanup := setupAuthContainer(t, nil)
	defer cleanup()

	client := authsdk.NewSDKClient(svc.BaseURL)
	signupAndLogin(t, client, "Carol", "carol@example.com")

	_, err := client.Login(t.Context(), "carol@example.com", "wrong-password")
	assertAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)

	_, err = client.Login(t.Context(), "nobody@example.com", "wrong-password")
	assertAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)
}

// TestPasswordReset verifies the forgot/reset flow and that reset tokens
// are single use.
func TestPasswordReset(t *testing.T) {
	svc, cleanup := setupAuthContainer(t, nil)
	defer cleanup()

	client := authsdk.NewSDKClient(svc.BaseURL)
	signupAndLogin(t, client, "Dave", "dave@example.com")

	require.NoError(t, client.ForgotPassword(t.Context(), "nobody@example.com"), "unknown emails are not revealed")
	require.NoError(t, client.ForgotPassword(t.Context(), "dave@example.com"))

	token := svc.mailedToken(t, "reset-password")
	require.NoError(t, client.CheckResetToken(t.Context(), token))
	require.NoError(t, client.ResetPassword(t.Context(), token, "a brand new passphrase"))

	err := client.ResetPassword(t.Context(), token, "yet another passphrase")
	assertAPIError(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidOrExpiredToken)

	_, err = client.Login(t.Context(), "dave@example.com", userPassword)
	assertAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)

	_, err = client.Login(t.Context(), "dave@example.com", "a brand new passphrase")
	require.NoError(t, err)
}

// TestRoleAssignment verifies only admins reach the admin panel and that a
// role change applies from the next login.
func TestRoleAssignment(t *testing.T) {
	svc, cleanup := setupAuthContainer(t, nil)
	defer cleanup()

	client := authsdk.NewSDKClient(svc.BaseURL)
	admin := bootstrapService(t, client)
	user := signupAndLogin(t, client, "Erin", "erin@example.com")

	_, err := user.AdminListUsers(t.Context())
	assertAPIError(t, err, http.StatusForbidden, authsdk.ErrorCodeForbidden)
	_, err = user.ModeratorPanel(t.Context())
	assertAPIError(t, err, http.StatusForbidden, authsdk.ErrorCodeForbidden)

	updated, err := admin.AssignRole(t.Context(), user.User().ID, "moderator")
	require.NoError(t, err)
	require.Equal(t, "moderator", updated.Role)

	_, err = admin.AssignRole(t.Context(), admin.User().ID, "user")
	assertAPIError(t, err, http.StatusForbidden, authsdk.ErrorCodeForbidden)

	relogged, err := client.Login(t.Context(), "erin@example.com", userPassword)
	require.NoError(t, err)
	panel, err := relogged.ModeratorPanel(t.Context())
	require.NoError(t, err)
	require.Equal(t, "Moderator panel access granted", panel.Message)
}
