package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error codes carried in ErrorResponse.Error.
const (
	ErrorCodeInvalidRequest        = "invalid_request"
	ErrorCodeValidation            = "validation_error"
	ErrorCodeDuplicateEmail        = "duplicate_email"
	ErrorCodeInvalidCredentials    = "invalid_credentials"
	ErrorCodeInvalidOrExpiredToken = "invalid_or_expired_token"
	ErrorCodeUserNotFound          = "user_not_found"
	ErrorCodeDeliveryFailed        = "delivery_failed"
	ErrorCodeUnauthenticated       = "unauthenticated"
	ErrorCodeNotVerified           = "not_verified"
	ErrorCodeAlreadyVerified       = "already_verified"
	ErrorCodeForbidden             = "forbidden"
	ErrorCodeNotFound              = "not_found"
	ErrorCodeAlreadyBootstrapped   = "already_bootstrapped"
	ErrorCodeServiceUnavailable    = "service_unavailable"
	ErrorCodeServerError           = "server_error"
)

// APIError is a decoded error response.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
	Details     map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Description)
}

// parseErrorResponse turns a non-2xx response body into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
			Details:     errResp.Details,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
