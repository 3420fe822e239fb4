package controller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jbeshir/problem-rankings/internal/domain"
)

// Response is the success envelope shared by every JSON endpoint.
type Response[T any] struct {
	Success  bool `json:"success"`
	Data     T    `json:"data"`
	Metadata any  `json:"metadata,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON[T any](w http.ResponseWriter, r *http.Request, status int, data T, metadata any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(Response[T]{
		Success:  true,
		Data:     data,
		Metadata: metadata,
	}); err != nil {
		ctx := r.Context()
		logger := domain.LoggerFromContext(ctx)
		logger.ErrorContext(ctx, "unable to write response", "error", err)
	}
}

// writeError writes the error envelope. Only message reaches the client; err is logged.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	ctx := r.Context()
	logger := domain.LoggerFromContext(ctx)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, message, "error", err)
	} else {
		logger.WarnContext(ctx, message, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encodeErr := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); encodeErr != nil {
		logger.ErrorContext(ctx, "unable to write error response", "error", encodeErr)
	}
}

func setCacheControl(w http.ResponseWriter, maxAge time.Duration) {
	if maxAge <= 0 {
		w.Header().Set("Cache-Control", "no-store")
		return
	}
	w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", int(maxAge.Seconds())))
}
