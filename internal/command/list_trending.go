package command

import (
	"context"
	"fmt"
	"time"

	"github.com/jbeshir/problem-rankings/internal/datasources"
	"github.com/jbeshir/problem-rankings/internal/domain"
)

type ListTrendingRequest struct {
	Limit      int
	CategoryID string
	// Refresh skips the cache and recomputes every trending score.
	Refresh bool
}

type ListTrendingResult struct {
	Problems  []TrendingProblem
	FromCache bool
}

// ListTrending serves trending problems from the cache, recomputing on a miss or when asked to.
type ListTrending struct {
	TrendingLister datasources.TrendingRecordLister
	ProblemFetcher datasources.ProblemFetcher
	Calculator     Command[Empty, []TrendingProblem]
	DefaultLimit   int
	Now            func() time.Time
}

func NewListTrending(
	trendingLister datasources.TrendingRecordLister,
	problemFetcher datasources.ProblemFetcher,
	calculator Command[Empty, []TrendingProblem],
	defaultLimit int,
) *ListTrending {
	return &ListTrending{
		TrendingLister: trendingLister,
		ProblemFetcher: problemFetcher,
		Calculator:     calculator,
		DefaultLimit:   defaultLimit,
	}
}

func (c *ListTrending) Execute(ctx context.Context, req ListTrendingRequest) (ListTrendingResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = c.DefaultLimit
	}

	if !req.Refresh {
		cached, err := c.listCached(ctx, req.CategoryID, limit)
		if err != nil {
			domain.LoggerFromContext(ctx).WarnContext(ctx, "failed to read trending cache", "error", err)
		} else if len(cached) > 0 {
			return ListTrendingResult{Problems: cached, FromCache: true}, nil
		} else if req.CategoryID != "" && c.cacheIsWarm(ctx) {
			// The cache holds fresh records, just none in this category.
			return ListTrendingResult{Problems: []TrendingProblem{}, FromCache: true}, nil
		}
	}

	computed, err := c.Calculator.Execute(ctx, Empty{})
	if err != nil {
		return ListTrendingResult{}, fmt.Errorf("calculating trending problems: %w", err)
	}

	problems := make([]TrendingProblem, 0, min(limit, len(computed)))
	for _, t := range computed {
		if len(problems) == limit {
			break
		}
		if req.CategoryID != "" && t.Problem.CategoryID != req.CategoryID {
			continue
		}
		problems = append(problems, t)
	}

	return ListTrendingResult{Problems: problems}, nil
}

// cacheIsWarm reports whether any category has fresh trending records.
func (c *ListTrending) cacheIsWarm(ctx context.Context) bool {
	records, err := c.TrendingLister.ListTrendingRecords(ctx, domain.TrendingFilters{
		FreshAt: nowFrom(c.Now),
		Limit:   1,
	})
	if err != nil {
		domain.LoggerFromContext(ctx).WarnContext(ctx, "failed to read trending cache", "error", err)
		return false
	}
	return len(records) > 0
}

func (c *ListTrending) listCached(ctx context.Context, categoryID string, limit int) ([]TrendingProblem, error) {
	records, err := c.TrendingLister.ListTrendingRecords(ctx, domain.TrendingFilters{
		FreshAt:    nowFrom(c.Now),
		CategoryID: categoryID,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("listing trending records: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ProblemID)
	}

	problems, err := c.ProblemFetcher.FetchProblemsByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching trending problems: %w", err)
	}

	byID := make(map[string]domain.Problem, len(problems))
	for _, p := range problems {
		byID[p.ID] = p
	}

	trending := make([]TrendingProblem, 0, len(records))
	for _, r := range records {
		if p, ok := byID[r.ProblemID]; ok {
			trending = append(trending, TrendingProblem{Problem: p, Record: r})
		}
	}
	return trending, nil
}

type RefreshTrendingRequest struct {
	Force bool
}

type RefreshTrendingResult struct {
	// Count is the number of cached trending records after the call.
	Count        int
	Recalculated bool
}

// RefreshTrending recomputes the trending cache. Without Force it only does so when no fresh
// records exist.
type RefreshTrending struct {
	TrendingLister datasources.TrendingRecordLister
	Calculator     Command[Empty, []TrendingProblem]
	Now            func() time.Time
}

func NewRefreshTrending(
	trendingLister datasources.TrendingRecordLister,
	calculator Command[Empty, []TrendingProblem],
) *RefreshTrending {
	return &RefreshTrending{TrendingLister: trendingLister, Calculator: calculator}
}

func (c *RefreshTrending) Execute(ctx context.Context, req RefreshTrendingRequest) (RefreshTrendingResult, error) {
	if !req.Force {
		records, err := c.TrendingLister.ListTrendingRecords(ctx, domain.TrendingFilters{FreshAt: nowFrom(c.Now)})
		if err != nil {
			domain.LoggerFromContext(ctx).WarnContext(ctx, "failed to read trending cache", "error", err)
		} else if len(records) > 0 {
			return RefreshTrendingResult{Count: len(records)}, nil
		}
	}

	computed, err := c.Calculator.Execute(ctx, Empty{})
	if err != nil {
		return RefreshTrendingResult{}, fmt.Errorf("calculating trending problems: %w", err)
	}
	return RefreshTrendingResult{Count: len(computed), Recalculated: true}, nil
}
