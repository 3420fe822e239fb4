package router

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/jbeshir/problem-rankings/internal/domain"
)

const requestIDHeader = "X-Request-ID"

// requestIDMiddleware tags each request with an ID, reusing one supplied by the client, and
// attaches it to the context logger.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}

		logger := domain.LoggerFromContext(r.Context()).With("request_id", requestID)
		ctx := domain.ContextWithLogger(r.Context(), logger)

		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
