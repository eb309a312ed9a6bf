package utils

import "net/http"

// AppError is the application-level error carried from the engine to the
// REST boundary. Code selects the HTTP status; Origin keeps the underlying
// cause for logging.
type AppError struct {
	Code    string
	Message string
	Origin  error
}

func (appErr *AppError) Error() string {
	if appErr.Origin != nil {
		return appErr.Message + ": " + appErr.Origin.Error()
	}
	return appErr.Message
}

func (appErr *AppError) Unwrap() error {
	return appErr.Origin
}

// Standard error codes for the messaging core
const (
	// A send with neither content nor attachment, or a malformed request.
	ErrValidation = "VALIDATION_FAILED"

	// Unknown counterpart or message.
	ErrNotFound = "NOT_FOUND"

	// Missing or invalid credentials.
	ErrUnauthorized = "UNAUTHORIZED"

	// Acting user is neither sender nor receiver of the resource.
	ErrForbidden = "FORBIDDEN"

	// Realtime push failed. Logged at the emission site, never surfaced to
	// the sender: the message is already durably stored by then.
	ErrTransport = "TRANSPORT_FAILED"

	// Durable store failure.
	ErrDatabase = "DATABASE_ERROR"

	// Engine actor did not answer within the request timeout.
	ErrActorTimeout = "ACTOR_TIMEOUT"
)

func NewAppError(code string, message string, origin error) *AppError {
	return &AppError{Code: code, Message: message, Origin: origin}
}

func NewValidationError(message string) *AppError {
	return &AppError{Code: ErrValidation, Message: message}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Code: ErrNotFound, Message: message}
}

// IsErrorCode reports whether err is an AppError with the given code.
func IsErrorCode(err error, code string) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// AppErrorToHTTPStatus converts an AppError code to an HTTP status code.
func AppErrorToHTTPStatus(errorCode string) int {
	switch errorCode {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrDatabase, ErrActorTimeout, ErrTransport:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
