package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rhuss/relais/pkg/api"
)

// HTTPStatusFromError maps a connection error to an HTTP status code.
// Decode failures are client errors; everything else is reported as a
// server error.
func HTTPStatusFromError(err error) int {
	var decodeErr *api.DecodeError
	if errors.As(err, &decodeErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// ErrorBody is the JSON payload written for transport-level failures
// (oversized bodies, handler errors that escape the stage chain).
type ErrorBody struct {
	Error string `json:"error"`
}

// WriteError writes a JSON error response with the given status code.
// It sets the Content-Type header and writes the HTTP status.
func WriteError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorBody{Error: message})
}
