package controller

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jbeshir/problem-rankings/internal/domain"
)

var testTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func testClock() time.Time {
	return testTime
}

func testContext() func(r *http.Request) *http.Request {
	return func(r *http.Request) *http.Request {
		ctx := domain.ContextWithLogger(r.Context(), slog.New(slog.DiscardHandler))
		return r.WithContext(ctx)
	}
}

func testContextWithUserID(userID string) func(r *http.Request) *http.Request {
	return func(r *http.Request) *http.Request {
		ctx := domain.ContextWithLogger(r.Context(), slog.New(slog.DiscardHandler))
		ctx = domain.ContextWithUserID(ctx, userID)
		return r.WithContext(ctx)
	}
}
