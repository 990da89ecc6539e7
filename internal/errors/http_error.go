package errors

import (
	stderrors "errors"
	"net/http"
)

// HTTPError represents an error with an associated HTTP status code.
type HTTPError struct {
	Code    int    `json:"-"`
	Kind    string `json:"error"`
	Message string `json:"message"`
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTPError with the given code and message.
func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{
		Code:    code,
		Kind:    kindForStatus(code),
		Message: message,
	}
}

// Taxonomy shared by every service. Wrap them with fmt.Errorf("...: %w").
var (
	ErrNotFound             = stderrors.New("not found")
	ErrInvalidCredential    = stderrors.New("invalid credential")
	ErrGeocodeFailed        = stderrors.New("geocode failed")
	ErrPermissionDenied     = stderrors.New("permission denied")
	ErrWriteFailed          = stderrors.New("write failed")
	ErrInvalidInput         = stderrors.New("invalid input")
	ErrNoteRequired         = stderrors.New("a note for the client is required")
	ErrInvalidTransition    = stderrors.New("request is no longer pending")
	ErrEmailTaken           = stderrors.New("email already registered")
	ErrListingUnavailable   = stderrors.New("listing is not available")
	ErrConfirmationRequired = stderrors.New("confirmation required")
)

type mapping struct {
	target error
	code   int
	kind   string
}

var mappings = []mapping{
	{ErrNotFound, http.StatusNotFound, "NotFound"},
	{ErrInvalidCredential, http.StatusUnauthorized, "InvalidCredential"},
	{ErrGeocodeFailed, http.StatusUnprocessableEntity, "GeocodeFailed"},
	{ErrPermissionDenied, http.StatusForbidden, "PermissionDenied"},
	{ErrWriteFailed, http.StatusInternalServerError, "WriteFailed"},
	{ErrNoteRequired, http.StatusBadRequest, "NoteRequired"},
	{ErrInvalidInput, http.StatusBadRequest, "InvalidInput"},
	{ErrInvalidTransition, http.StatusConflict, "InvalidTransition"},
	{ErrEmailTaken, http.StatusConflict, "EmailTaken"},
	{ErrListingUnavailable, http.StatusConflict, "ListingUnavailable"},
	{ErrConfirmationRequired, http.StatusPreconditionFailed, "ConfirmationRequired"},
}

// FromError maps any error onto an HTTPError. Unknown errors become a 500
// without leaking their text.
func FromError(err error) *HTTPError {
	var httpErr *HTTPError
	if stderrors.As(err, &httpErr) {
		return httpErr
	}
	for _, m := range mappings {
		if stderrors.Is(err, m.target) {
			msg := err.Error()
			if m.code >= http.StatusInternalServerError {
				// Wrapped driver text stays in the server log.
				msg = "could not save changes"
			}
			return &HTTPError{Code: m.code, Kind: m.kind, Message: msg}
		}
	}
	return &HTTPError{Code: http.StatusInternalServerError, Kind: "Internal", Message: "internal error"}
}

func kindForStatus(code int) string {
	for _, m := range mappings {
		if m.code == code {
			return m.kind
		}
	}
	return http.StatusText(code)
}

// Helper for common errors
var (
	ErrUnauthorized = func(msg string) *HTTPError {
		return &HTTPError{Code: http.StatusUnauthorized, Kind: "Unauthorized", Message: msg}
	}
	ErrBadRequest = func(msg string) *HTTPError {
		return &HTTPError{Code: http.StatusBadRequest, Kind: "InvalidInput", Message: msg}
	}
)
