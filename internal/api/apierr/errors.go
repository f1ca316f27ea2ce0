package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/fhecity/internal/api/request"
	"github.com/mcoot/fhecity/internal/fhe"
	"github.com/mcoot/fhecity/internal/model"
	"github.com/mcoot/fhecity/internal/services/auth"
	"github.com/mcoot/fhecity/internal/services/gateway"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeInvalidPosition      = "INVALID_POSITION"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodePlayerNotFound       = "PLAYER_NOT_FOUND"
	CodeAlreadyJoined        = "ALREADY_JOINED"
	CodeNotJoined            = "NOT_JOINED"
	CodeMalformedCiphertext  = "MALFORMED_CIPHERTEXT"
	CodeCiphertextNotAllowed = "CIPHERTEXT_NOT_ALLOWED"
	CodeNotAuthorized        = "NOT_AUTHORIZED"
	CodeConcurrentUpdate     = "CONCURRENT_UPDATE"
	CodeRateLimited          = "RATE_LIMITED"
	CodeUsernameExists       = "USERNAME_EXISTS"
	CodeInvalidUsername      = "INVALID_USERNAME"
	CodePasswordTooShort     = "PASSWORD_TOO_SHORT"
	CodeInvalidDisplayName   = "INVALID_DISPLAY_NAME"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeInternalError        = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}
	var re *request.Error
	if errors.As(err, &re) {
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, re.Message}}
	}

	switch {
	// Gateway input errors wrap engine errors, so they are checked first
	case errors.Is(err, gateway.ErrInvalidInput):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidInput, err.Error()}}

	// Map city errors
	case errors.Is(err, model.ErrAlreadyJoined):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyJoined, "Identity has already joined the city"}}
	case errors.Is(err, model.ErrNotJoined):
		return &httpError{http.StatusNotFound, APIError{CodeNotJoined, "Identity has not joined the city"}}
	case errors.Is(err, model.ErrInvalidPosition):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidPosition, "Position must be between 0 and 8"}}
	case errors.Is(err, model.ErrMalformedCiphertext), errors.Is(err, fhe.ErrMalformed), errors.Is(err, fhe.ErrKindMismatch):
		return &httpError{http.StatusBadRequest, APIError{CodeMalformedCiphertext, "Ciphertext is malformed"}}
	case errors.Is(err, model.ErrCiphertextNotAllowed):
		return &httpError{http.StatusForbidden, APIError{CodeCiphertextNotAllowed, "Caller may not use this ciphertext"}}
	case errors.Is(err, model.ErrConcurrentUpdate):
		return &httpError{http.StatusConflict, APIError{CodeConcurrentUpdate, "Account is busy, retry the request"}}
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}

	// Map gateway errors
	case errors.Is(err, gateway.ErrNotAuthorized):
		return &httpError{http.StatusForbidden, APIError{CodeNotAuthorized, "Caller may not decrypt this ciphertext"}}
	// Map auth errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid username or password"}}
	case errors.Is(err, auth.ErrInvalidSession):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired session"}}
	case errors.Is(err, auth.ErrUsernameExists):
		return &httpError{http.StatusConflict, APIError{CodeUsernameExists, "Username already exists"}}
	case errors.Is(err, auth.ErrInvalidUsername):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidUsername, auth.ErrInvalidUsername.Error()}}
	case errors.Is(err, auth.ErrPasswordTooShort):
		return &httpError{http.StatusBadRequest, APIError{CodePasswordTooShort, auth.ErrPasswordTooShort.Error()}}
	case errors.Is(err, auth.ErrInvalidDisplayName):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidDisplayName, auth.ErrInvalidDisplayName.Error()}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewRateLimitedError creates a too-many-requests error
func NewRateLimitedError() error {
	return &httpError{http.StatusTooManyRequests, APIError{CodeRateLimited, "Too many requests"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
