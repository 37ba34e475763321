package tracing

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
)

// maxRequestIDLen bounds client supplied IDs before they reach logs
const maxRequestIDLen = 128

// LoggerFromContext adds the request ID, when present, to a logger
func LoggerFromContext(ctx context.Context, baseLogger zerolog.Logger) zerolog.Logger {
	if requestID := GetRequestID(ctx); requestID != "" {
		return baseLogger.With().Str("request_id", requestID).Logger()
	}
	return baseLogger
}

// Middleware propagates the client's X-Request-ID or assigns a new one,
// stores it in the request context and echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = NewRequestID()
		}

		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), requestID)))
	})
}
