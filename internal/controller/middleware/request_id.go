package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"tuneplane/internal/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID attaches a request id to the context and echoes it in the
// response header. A caller-supplied id is kept so workers can
// correlate retries.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}
