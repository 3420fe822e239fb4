package command

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/jbeshir/problem-rankings/internal/datasources"
	"github.com/jbeshir/problem-rankings/internal/domain"
	"golang.org/x/sync/errgroup"
)

// TrendingProblem pairs a problem with its trending record.
type TrendingProblem struct {
	Problem domain.Problem
	Record  domain.TrendingRecord
}

// CalculateTrending recomputes the trending score of every eligible problem, replaces the cached
// records and returns the problems that scored above the configured minimum, best first.
type CalculateTrending struct {
	ProblemLister     datasources.ProblemLister
	VoteLister        datasources.ProblemVoteLister
	InteractionLister datasources.ProblemInteractionLister
	CategoryAverager  datasources.CategoryVoteAverager
	TrendingWriter    datasources.TrendingRecordWriter
	Config            TrendingConfig
	Now               func() time.Time
}

func NewCalculateTrending(
	problemLister datasources.ProblemLister,
	voteLister datasources.ProblemVoteLister,
	interactionLister datasources.ProblemInteractionLister,
	categoryAverager datasources.CategoryVoteAverager,
	trendingWriter datasources.TrendingRecordWriter,
	config TrendingConfig,
) *CalculateTrending {
	return &CalculateTrending{
		ProblemLister:     problemLister,
		VoteLister:        voteLister,
		InteractionLister: interactionLister,
		CategoryAverager:  categoryAverager,
		TrendingWriter:    trendingWriter,
		Config:            config,
	}
}

// trendingInputs are the batched query results the per-problem scores are computed from.
type trendingInputs struct {
	votes            Signal[[]domain.Vote]
	interactions     Signal[[]domain.Interaction]
	categoryAverages Signal[map[string]float64]
}

func (c *CalculateTrending) Execute(ctx context.Context, _ Empty) ([]TrendingProblem, error) {
	logger := domain.LoggerFromContext(ctx)
	now := nowFrom(c.Now)

	pool, err := c.ProblemLister.ListProblems(ctx, domain.ProblemFilters{
		Statuses:     domain.RankableStatuses,
		MinVotes:     c.Config.MinVotes,
		UpdatedAfter: now.Add(-c.Config.PoolWindow),
	}, domain.ProblemListOptions{
		OrderBy: domain.ProblemOrderingFieldUpdatedAt,
		Limit:   c.Config.PoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("listing trending candidates: %w", err)
	}

	inputs := c.fetchInputs(ctx, pool, now)

	votesByProblem := make(map[string][]time.Time)
	for _, v := range inputs.votes.Value {
		votesByProblem[v.ProblemID] = append(votesByProblem[v.ProblemID], v.CreatedAt)
	}
	interactionsByProblem := make(map[string][]domain.Interaction)
	for _, i := range inputs.interactions.Value {
		interactionsByProblem[i.ProblemID] = append(interactionsByProblem[i.ProblemID], i)
	}

	var trending []TrendingProblem
	for _, p := range pool {
		record, err := c.scoreProblem(p, now,
			votesByProblem[p.ID],
			interactionsByProblem[p.ID],
			inputs.categoryAverages.Value[p.CategoryID])
		if err != nil {
			logger.WarnContext(ctx, "trending score calculation failed",
				"problem_id", p.ID,
				"error", err)
			record = domain.TrendingRecord{ProblemID: p.ID, CalculatedAt: now, ExpiresAt: now.Add(c.Config.TTL)}
		}

		if record.TrendingScore <= c.Config.MinScore {
			continue
		}
		trending = append(trending, TrendingProblem{Problem: p, Record: record})
	}

	sort.SliceStable(trending, func(i, j int) bool {
		a, b := trending[i].Record, trending[j].Record
		if a.TrendingScore != b.TrendingScore {
			return a.TrendingScore > b.TrendingScore
		}
		return a.ProblemID < b.ProblemID
	})

	records := make([]domain.TrendingRecord, 0, len(trending))
	for _, t := range trending {
		records = append(records, t.Record)
	}

	if len(records) > 0 {
		if err := c.TrendingWriter.UpsertTrendingRecords(ctx, records); err != nil {
			logger.WarnContext(ctx, "failed to cache trending records", "error", err)
		}
	}
	if err := c.TrendingWriter.DeleteTrendingRecordsExpiredBefore(ctx, now); err != nil {
		logger.WarnContext(ctx, "failed to prune expired trending records", "error", err)
	}

	logger.InfoContext(ctx, "calculated trending scores",
		"candidates", len(pool),
		"trending", len(trending))

	return trending, nil
}

func (c *CalculateTrending) fetchInputs(ctx context.Context, pool []domain.Problem, now time.Time) trendingInputs {
	var inputs trendingInputs
	if len(pool) == 0 {
		return inputs
	}

	ids := make([]string, 0, len(pool))
	for _, p := range pool {
		ids = append(ids, p.ID)
	}

	var g errgroup.Group
	g.Go(func() error {
		inputs.votes = fetchSignal(ctx, "vote_velocity", func(ctx context.Context) ([]domain.Vote, error) {
			return c.VoteLister.ListVotesForProblems(ctx, ids, now.Add(-c.longestVelocityWindow()))
		})
		return nil
	})
	g.Go(func() error {
		inputs.interactions = fetchSignal(ctx, "engagement",
			func(ctx context.Context) ([]domain.Interaction, error) {
				return c.InteractionLister.ListInteractionsForProblems(ctx, ids, now.Add(-c.Config.EngagementWindow))
			})
		return nil
	})
	g.Go(func() error {
		inputs.categoryAverages = fetchSignal(ctx, "category_boost",
			func(ctx context.Context) (map[string]float64, error) {
				return c.CategoryAverager.AverageCategoryVotes(ctx, now.Add(-c.Config.CategoryWindow))
			})
		return nil
	})
	_ = g.Wait()

	return inputs
}

func (c *CalculateTrending) longestVelocityWindow() time.Duration {
	var longest float64
	for _, w := range c.Config.VelocityWindows {
		longest = math.Max(longest, w.Hours)
	}
	return time.Duration(longest * float64(time.Hour))
}

var errNonFiniteScore = errors.New("non-finite trending score")

func (c *CalculateTrending) scoreProblem(
	p domain.Problem,
	now time.Time,
	voteTimes []time.Time,
	interactions []domain.Interaction,
	categoryAverage float64,
) (domain.TrendingRecord, error) {
	factors := domain.TrendingFactors{
		VoteVelocity: domain.VoteVelocity(voteTimes, c.Config.VelocityWindows, now),
		EngagementScore: domain.EngagementScore(
			interactions, c.Config.InteractionWeights, c.Config.EngagementNormalizer),
		TimeDecayFactor: domain.TimeDecay(
			now.Sub(p.CreatedAt).Hours(), c.Config.DecayHalfLifeHours, c.Config.DecayFloor),
		CategoryBoost: domain.CategoryBoost(
			categoryAverage, c.Config.CategoryBoostDivisor, c.Config.CategoryBoostMax),
		TotalVotes: p.VoteCount,
	}
	score := domain.CombineTrendingScore(factors, c.Config.Weights)

	values := []float64{
		score, factors.VoteVelocity, factors.EngagementScore, factors.TimeDecayFactor, factors.CategoryBoost,
	}
	if slices.ContainsFunc(values, func(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) }) {
		return domain.TrendingRecord{}, errNonFiniteScore
	}

	return domain.TrendingRecord{
		ProblemID:       p.ID,
		TrendingScore:   score,
		VoteVelocity:    factors.VoteVelocity,
		EngagementScore: factors.EngagementScore,
		TimeDecayFactor: factors.TimeDecayFactor,
		CategoryBoost:   factors.CategoryBoost,
		CalculatedAt:    now,
		ExpiresAt:       now.Add(c.Config.TTL),
	}, nil
}
