package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sagarc03/storehouse"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// CommitResponse is the body of a successful upload or fetch.
type CommitResponse struct {
	Path string `json:"path"`
}

const (
	codeRequestTooLarge = "request too large"
	codeMalformed       = "malformed request"
	codeInternal        = "internal error"
)

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, status int, code, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   code,
		Kind:    kind,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes the response for err. A *storehouse.Error keeps its
// code, kind and message; anything else is an opaque 500.
func HandleError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var se *storehouse.Error
	if !errors.As(err, &se) {
		logger.Error("request error", "error", err)
		WriteError(w, http.StatusInternalServerError, codeInternal, "", "Internal server error")
		return
	}

	status := se.Kind.StatusCode()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "code", se.Code, "kind", se.Kind, "error", err)
	} else {
		logger.Warn("request rejected", "code", se.Code, "kind", se.Kind, "error", err)
	}

	WriteError(w, status, se.Code, string(se.Kind), se.Message)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
