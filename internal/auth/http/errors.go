package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/authcore/internal/auth/service"
	"github.com/aussiebroadwan/authcore/pkg/authsdk"
	"github.com/aussiebroadwan/authcore/pkg/httpx"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
)

type errorMapping struct {
	target error
	status int
	code   string
	desc   string
}

// errorMappings is the single translation table from service errors to
// HTTP responses. Order matters: the first match wins.
var errorMappings = []errorMapping{
	{httpx.ErrBadJSON, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, "Request body must be valid JSON"},
	{service.ErrDuplicateEmail, http.StatusConflict, authsdk.ErrorCodeDuplicateEmail, "User already exists"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials, "Invalid credentials"},
	{service.ErrInvalidOrExpiredToken, http.StatusBadRequest, authsdk.ErrorCodeInvalidOrExpiredToken, "Invalid or expired token"},
	{service.ErrUserNotFound, http.StatusNotFound, authsdk.ErrorCodeUserNotFound, "User not found"},
	{service.ErrDeliveryFailed, http.StatusInternalServerError, authsdk.ErrorCodeDeliveryFailed, "Email could not be sent"},
	{service.ErrUnauthenticated, http.StatusUnauthorized, authsdk.ErrorCodeUnauthenticated, "Not authorized to access this route"},
	{service.ErrNotVerified, http.StatusForbidden, authsdk.ErrorCodeNotVerified, "Please verify your email to access this route"},
	{service.ErrForbidden, http.StatusForbidden, authsdk.ErrorCodeForbidden, "Your role is not authorized to access this route"},
	{service.ErrAlreadyVerified, http.StatusConflict, authsdk.ErrorCodeAlreadyVerified, "Email is already verified"},
	{service.ErrBootstrapDisabled, http.StatusNotFound, authsdk.ErrorCodeNotFound, "Bootstrap endpoint is not enabled"},
	{service.ErrBootstrapUnauthorized, http.StatusUnauthorized, authsdk.ErrorCodeUnauthenticated, "Invalid bootstrap token"},
	{service.ErrBootstrapAlready, http.StatusConflict, authsdk.ErrorCodeAlreadyBootstrapped, "System has already been bootstrapped"},
	{service.ErrStoreUnavailable, http.StatusServiceUnavailable, authsdk.ErrorCodeServiceUnavailable, "Service temporarily unavailable"},
}

// writeError maps err onto a status code and ErrorResponse. Unexpected
// errors are logged and reported as a generic server error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	var ve *service.ValidationError
	if errors.As(err, &ve) {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            authsdk.ErrorCodeValidation,
			ErrorDescription: "Validation failed for some fields",
			Details:          ve.Fields,
		})
		return
	}

	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		switch m.status {
		case http.StatusUnauthorized:
			if errors.Is(err, service.ErrUnauthenticated) {
				httpx.SetBearerChallenge(w, "invalid_token", m.desc)
			}
			log.Info("request rejected", slog.String("reason", m.code))
		case http.StatusServiceUnavailable, http.StatusInternalServerError:
			log.Error("request failed", slog.String("reason", m.code), slog.Any("error", err))
		}
		httpx.WriteJSON(w, m.status, authsdk.ErrorResponse{
			Error:            m.code,
			ErrorDescription: m.desc,
		})
		return
	}

	log.Error("unhandled error", slog.Any("error", err))
	httpx.WriteJSON(w, http.StatusInternalServerError, authsdk.ErrorResponse{
		Error:            authsdk.ErrorCodeServerError,
		ErrorDescription: "An internal error occurred",
	})
}
