package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jbeshir/problem-rankings/internal/command"
	"github.com/jbeshir/problem-rankings/internal/domain"
	"github.com/robfig/cron/v3"
)

// TrendingRefresher recomputes the trending cache on a cron schedule so reads rarely miss.
type TrendingRefresher struct {
	// Schedule is a standard five-field cron spec or a descriptor such as "@every 30m".
	Schedule string
	Command  command.Command[command.RefreshTrendingRequest, command.RefreshTrendingResult]
	// RunOnStart refreshes once before waiting for the first scheduled run.
	RunOnStart bool
}

func (j *TrendingRefresher) Run(ctx context.Context) error {
	logger := domain.LoggerFromContext(ctx).With("job", "trending_refresh")
	ctx = domain.ContextWithLogger(ctx, logger)

	scheduler := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := scheduler.AddFunc(j.Schedule, func() { j.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("scheduling trending refresh [%s]: %w", j.Schedule, err)
	}

	if j.RunOnStart {
		j.RunOnce(ctx)
	}

	scheduler.Start()
	logger.InfoContext(ctx, "trending refresh scheduled", "schedule", j.Schedule)

	<-ctx.Done()
	<-scheduler.Stop().Done()
	return nil
}

// RunOnce forces a full recompute. Failures are logged; the next scheduled run retries.
func (j *TrendingRefresher) RunOnce(ctx context.Context) {
	logger := domain.LoggerFromContext(ctx)
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	result, err := j.Command.Execute(ctx, command.RefreshTrendingRequest{Force: true})
	if err != nil {
		logger.ErrorContext(ctx, "trending refresh failed", "error", err)
		return
	}

	logger.InfoContext(ctx, "trending refresh complete",
		"count", result.Count,
		"duration", time.Since(start))
}
