package command

import (
	"context"

	"github.com/jbeshir/problem-rankings/internal/domain"
)

// Signal is the outcome of fetching one scoring input. A degraded signal carries the zero value
// and the error that caused it, so callers can tell "absent" from "computed as zero".
type Signal[T any] struct {
	Value    T
	Degraded bool
	Reason   error
}

// fetchSignal runs fetch and degrades any failure to the zero value, logging it under name.
func fetchSignal[T any](
	ctx context.Context,
	name string,
	fetch func(ctx context.Context) (T, error),
) Signal[T] {
	value, err := fetch(ctx)
	if err != nil {
		domain.LoggerFromContext(ctx).WarnContext(ctx, "scoring signal degraded",
			"signal", name,
			"error", err)
		var zero T
		return Signal[T]{Value: zero, Degraded: true, Reason: err}
	}
	return Signal[T]{Value: value}
}
