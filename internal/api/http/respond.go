// Package http exposes the merit-score workflows over a chi router.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mind-engage/meritscore/internal/apperr"
)

type errorBody struct {
	Kind      string              `json:"kind"`
	Error     string              `json:"error"`
	Conflicts []apperr.StudentRef `json:"conflicts,omitempty"`
	Rows      []string            `json:"rows,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps classified errors to their status. Anything else is logged
// and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	body := errorBody{Error: err.Error()}
	switch {
	case apperr.IsValidation(err):
		body.Kind = "validation"
	case apperr.IsAuthorization(err):
		body.Kind = "authorization"
	case apperr.IsNotFound(err):
		body.Kind = "not_found"
	case apperr.IsConflict(err):
		body.Kind = "conflict"
	default:
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		body = errorBody{Kind: "internal", Error: "internal error"}
	}
	if e, ok := apperr.As(err); ok {
		body.Conflicts = e.Conflicts
		body.Rows = e.Rows
	}
	writeJSON(w, status, body)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Validation("http.decode", "bad json: %v", err)
	}
	return nil
}

// queryInt parses an optional integer query parameter; absent means 0.
func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Validation("http.query", "%s must be an integer", key)
	}
	return n, nil
}
