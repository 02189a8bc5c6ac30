package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"messmate/internal/domain"
	"messmate/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Fields are the top-level members of a response envelope.
type Fields map[string]any

// JSON writes {"success": true, ...fields}.
func JSON(w http.ResponseWriter, status int, fields Fields) {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["success"] = true
	write(w, status, out)
}

// Fail writes {"success": false, "error": msg}.
func Fail(w http.ResponseWriter, status int, msg string) {
	write(w, status, map[string]any{"success": false, "error": msg})
}

func write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusOf maps the domain error taxonomy onto HTTP status codes.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrUnknownTransaction),
		errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrAlreadyProcessed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrGateway):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Error logs err and writes the mapped status. Server-side failures are
// reported to the caller without detail.
func Error(w http.ResponseWriter, r *http.Request, logger *zerolog.Logger, err error) {
	status := StatusOf(err)
	l := logging.With(r.Context(), logger)
	msg := err.Error()
	switch {
	case status >= http.StatusInternalServerError && status != http.StatusBadGateway:
		l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		msg = "internal error"
	case status == http.StatusBadGateway:
		l.Warn().Err(err).Str("path", r.URL.Path).Msg("payment gateway unavailable")
		msg = "payment gateway unavailable, please retry"
	default:
		l.Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	Fail(w, status, msg)
}
