package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"cloud.google.com/go/civil"

	"fintrack/internal/domain/user"
	"fintrack/internal/shared/apperr"
	applog "fintrack/internal/shared/log"
	"fintrack/internal/shared/middleware"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status and writes {"error": msg}. Unclassified
// errors are logged and hidden behind a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := apperr.Message(err)
	if status == http.StatusInternalServerError {
		logger := applog.FromContext(r.Context())
		logger.Error().Err(err).
			Str(applog.FieldMethod, r.Method).
			Str(applog.FieldPath, r.URL.Path).
			Msg("request failed")
		msg = "internal server error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func statusFor(err error) int {
	if errors.Is(err, user.ErrInvalidCredentials) {
		return http.StatusUnauthorized
	}
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeMethodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}

// currentUser returns the authenticated user id, writing a 401 when absent.
func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
	}
	return id, ok
}

// parseDate parses an optional YYYY-MM-DD value. Empty input yields the zero date.
func parseDate(field, s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}, nil
	}
	d, err := civil.ParseDate(s)
	if err != nil || !d.IsValid() {
		return civil.Date{}, apperr.Validationf("%s must be a date in YYYY-MM-DD format", field)
	}
	return d, nil
}

func parseOptionalDate(field string, s *string) (*civil.Date, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	d, err := parseDate(field, *s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
