package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	applog "fintrack/internal/shared/log"
)

const RequestIDHeader = "X-Request-ID"

type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w}
}

func (rw *responseWriter) Status() int {
	return rw.status
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.status = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Logging tags each request with a request id, puts a request-scoped logger
// in the context and writes one access log line when the handler returns.
func Logging(logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = applog.Component(logger, applog.ComponentHTTP)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			reqLogger := logger.With().Str(applog.FieldRequestID, requestID).Logger()
			ctx := applog.WithContext(r.Context(), reqLogger)

			wrapped := wrapResponseWriter(w)
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			status := wrapped.status
			if status == 0 {
				status = http.StatusOK
			}

			// re-read: auth may have added the user id
			reqLogger = applog.FromContext(ctx)
			event := reqLogger.Info()
			if status >= http.StatusInternalServerError {
				event = reqLogger.Error()
			}
			event.
				Str(applog.FieldMethod, r.Method).
				Str(applog.FieldPath, r.URL.Path).
				Int(applog.FieldStatusCode, status).
				Dur(applog.FieldDuration, time.Since(start)).
				Str(applog.FieldRemoteAddr, r.RemoteAddr).
				Msg("request")
		})
	}
}
