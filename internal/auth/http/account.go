package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/authcore/internal/auth/service"
	"github.com/aussiebroadwan/authcore/pkg/authsdk"
	"github.com/aussiebroadwan/authcore/pkg/httpx"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
)

// resetRequestedMessage is returned for every accepted forgot-password
// request, so the response does not reveal whether the email is known.
const resetRequestedMessage = "If an account exists for that email, a password reset link has been sent"

type AccountHandler struct {
	Accounts *service.AccountService

	// RevealUnknownEmail turns the forgot-password response for an unknown
	// email into a 404 instead of the generic acknowledgement.
	RevealUnknownEmail bool
}

// HandleSignup registers a new account.
//
//	@Summary		Sign up
//	@Description	Creates an unverified account with role "user" and emails a verification link.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.SignupRequest	true	"Account details"
//	@Success		201		{object}	authsdk.SignupResponse	"Account created"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Invalid body or validation failed"
//	@Failure		409		{object}	authsdk.ErrorResponse	"Email already registered"
//	@Failure		503		{object}	authsdk.ErrorResponse	"Store unavailable"
//	@Router			/v1/auth/signup [post].
func (h *AccountHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SignupRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.Accounts.Signup(r.Context(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.SignupResponse{User: u.Public()})
}

// HandleLogin exchanges credentials for a session token.
//
//	@Summary		Log in
//	@Description	Verifies email and password and returns an HS256 session token. Unknown emails and wrong passwords produce the same response.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.LoginResponse	"Session token and user"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Invalid body or validation failed"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid credentials"
//	@Router			/v1/auth/login [post].
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.Accounts.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		Token:     res.Session.Token,
		TokenType: "Bearer",
		ExpiresAt: res.Session.ExpiresAt,
		User:      res.User.Public(),
	})
}

// HandleVerifyEmail consumes an email verification token.
//
//	@Summary		Verify email
//	@Description	Consumes the single-use verification token from the emailed link and marks the account verified.
//	@Tags			Auth
//	@Produce		json
//	@Param			token	path		string					true	"Verification token"
//	@Success		200		{object}	authsdk.UserView		"Verified user"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Invalid or expired token"
//	@Router			/v1/auth/verify-email/{token} [get].
func (h *AccountHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	u, err := h.Accounts.ConsumeVerification(r.Context(), r.PathValue("token"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u.Public())
}

// HandleResendVerification emails a fresh verification link.
//
//	@Summary		Resend verification email
//	@Description	Issues a new verification token for the signed-in user; earlier links stop working.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	authsdk.MessageResponse	"Email sent"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Missing or invalid session"
//	@Failure		409	{object}	authsdk.ErrorResponse	"Already verified"
//	@Failure		500	{object}	authsdk.ErrorResponse	"Email could not be sent"
//	@Security		BearerAuth
//	@Router			/v1/auth/verify-email/resend [post].
func (h *AccountHandler) HandleResendVerification(w http.ResponseWriter, r *http.Request) {
	p, _ := service.PrincipalFrom(r.Context())
	if err := h.Accounts.RequestVerification(r.Context(), p.ID); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Verification email sent"})
}

// HandleForgotPassword emails a password reset link.
//
//	@Summary		Forgot password
//	@Description	Emails a single-use reset link valid for a short time. Unknown emails get the same response as known ones unless the server is configured to reveal them.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ForgotPasswordRequest	true	"Account email"
//	@Success		200		{object}	authsdk.MessageResponse			"Request accepted"
//	@Failure		400		{object}	authsdk.ErrorResponse			"Invalid body or validation failed"
//	@Failure		500		{object}	authsdk.ErrorResponse			"Email could not be sent"
//	@Router			/v1/auth/forgot-password [post].
func (h *AccountHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ForgotPasswordRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	err := h.Accounts.RequestPasswordReset(r.Context(), req.Email)
	if errors.Is(err, service.ErrUserNotFound) && !h.RevealUnknownEmail {
		slogx.FromContext(r.Context()).Info("password reset requested for unknown email",
			"email", slogx.MaskEmail(req.Email),
		)
		err = nil
	}
	if errors.Is(err, service.ErrUserNotFound) {
		httpx.WriteJSON(w, http.StatusNotFound, authsdk.ErrorResponse{
			Error:            authsdk.ErrorCodeUserNotFound,
			ErrorDescription: "No user found with that email",
		})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: resetRequestedMessage})
}

// HandleCheckResetToken reports whether a reset link is still usable.
//
//	@Summary		Check reset token
//	@Description	Reports whether a password reset token would be accepted, without consuming it.
//	@Tags			Auth
//	@Produce		json
//	@Param			token	path		string					true	"Reset token"
//	@Success		200		{object}	authsdk.MessageResponse	"Token is valid"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Invalid or expired token"
//	@Router			/v1/auth/reset-password/{token} [get].
func (h *AccountHandler) HandleCheckResetToken(w http.ResponseWriter, r *http.Request) {
	if err := h.Accounts.CheckResetToken(r.Context(), r.PathValue("token")); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Reset token is valid"})
}

// HandleResetPassword sets a new password with a reset token.
//
//	@Summary		Reset password
//	@Description	Consumes the single-use reset token and replaces the password.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			token	path		string							true	"Reset token"
//	@Param			request	body		authsdk.ResetPasswordRequest	true	"New password"
//	@Success		200		{object}	authsdk.MessageResponse			"Password reset"
//	@Failure		400		{object}	authsdk.ErrorResponse			"Validation failed or invalid/expired token"
//	@Router			/v1/auth/reset-password/{token} [put].
func (h *AccountHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ResetPasswordRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Accounts.ConsumePasswordReset(r.Context(), r.PathValue("token"), req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Password reset successful"})
}
