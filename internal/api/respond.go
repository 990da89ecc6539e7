package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	apperrors "rentmyparking/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("could not encode response", "error", err)
	}
}

// writeError maps err through the error taxonomy. Server-side failures are
// logged with their full text.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	httpErr := apperrors.FromError(err)
	if httpErr.Code >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		slog.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, httpErr.Code, httpErr)
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.ErrBadRequest(fmt.Sprintf("Invalid request body: %v", err))
	}
	return nil
}

// decodeOptionalJSON treats an empty body as the zero value.
func decodeOptionalJSON(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperrors.ErrBadRequest(fmt.Sprintf("Invalid request body: %v", err))
}
