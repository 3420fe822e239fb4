package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/jbeshir/problem-rankings/internal/datasources/memory"
	"github.com/jbeshir/problem-rankings/internal/domain"
	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func testClock() time.Time {
	return testNow
}

func testContext() context.Context {
	return domain.ContextWithLogger(context.Background(), slog.New(slog.DiscardHandler))
}

func testTrendingConfig() TrendingConfig {
	return TrendingConfig{
		MinVotes:   5,
		PoolWindow: 7 * 24 * time.Hour,
		PoolSize:   500,
		VelocityWindows: []domain.VelocityWindow{
			{Hours: 1, Weight: 0.4},
			{Hours: 6, Weight: 0.3},
			{Hours: 24, Weight: 0.2},
			{Hours: 168, Weight: 0.1},
		},
		DecayHalfLifeHours:   48,
		DecayFloor:           0.01,
		EngagementWindow:     24 * time.Hour,
		InteractionWeights:   domain.DefaultInteractionWeights(),
		EngagementNormalizer: 10,
		CategoryWindow:       7 * 24 * time.Hour,
		CategoryBoostDivisor: 100,
		CategoryBoostMax:     1.5,
		Weights: domain.TrendingWeights{
			Velocity:      0.4,
			Engagement:    0.3,
			TimeDecay:     0.2,
			CategoryBoost: 0.1,
		},
		MinScore:     0.1,
		TTL:          time.Hour,
		DefaultLimit: 20,
	}
}

func testSimilarityConfig() SimilarityConfig {
	return SimilarityConfig{
		CachePeriod:                 time.Hour,
		ContentPoolSize:             200,
		ContentMinScore:             0.1,
		ContentLimit:                20,
		CategoryLimit:               15,
		CategoryBase:                0.7,
		CategoryRatioWeight:         0.3,
		VotingMinShared:             2,
		VotingLimit:                 15,
		InteractionMinShared:        2,
		InteractionLimit:            10,
		InteractionWeightNormalizer: 5,
		Weights: domain.SimilarityWeights{
			domain.SimilarityTypeContent:         0.3,
			domain.SimilarityTypeCategory:        0.25,
			domain.SimilarityTypeVotingPattern:   0.3,
			domain.SimilarityTypeUserInteraction: 0.15,
		},
		DefaultLimit: 10,
	}
}

func testRecommendationConfig() RecommendationConfig {
	return RecommendationConfig{
		CandidatePoolSize:     200,
		SimilarUsersLimit:     50,
		RecentVotesLimit:      20,
		ContentTopMatches:     10,
		TrendingNormalizer:    100,
		InteractionNormalizer: 10,
		Weights: RecommendationWeights{
			Collaborative: 0.3,
			Content:       0.25,
			Trending:      0.2,
			Category:      0.15,
			Interaction:   0.1,
		},
		DiversityLookahead: 10,
		DefaultLimit:       10,
	}
}

// failingRepository is an in-memory repository whose mocked methods fail on demand.
// Methods without an expectation fall through to the in-memory implementation.
type failingRepository struct {
	*memory.Repository
	mock.Mock
}

func newFailingRepository(repo *memory.Repository) *failingRepository {
	return &failingRepository{Repository: repo}
}

func (f *failingRepository) mocked(method string) bool {
	for _, call := range f.ExpectedCalls {
		if call.Method == method {
			return true
		}
	}
	return false
}

func (f *failingRepository) ListProblems(
	ctx context.Context,
	filters domain.ProblemFilters,
	options domain.ProblemListOptions,
) ([]domain.Problem, error) {
	if !f.mocked("ListProblems") {
		return f.Repository.ListProblems(ctx, filters, options)
	}
	args := f.Called(ctx, filters, options)
	return nil, args.Error(0)
}

func (f *failingRepository) ListVotesForProblems(
	ctx context.Context,
	problemIDs []string,
	since time.Time,
) ([]domain.Vote, error) {
	if !f.mocked("ListVotesForProblems") {
		return f.Repository.ListVotesForProblems(ctx, problemIDs, since)
	}
	args := f.Called(ctx, problemIDs, since)
	return nil, args.Error(0)
}

func (f *failingRepository) ListInteractionsForProblems(
	ctx context.Context,
	problemIDs []string,
	since time.Time,
) ([]domain.Interaction, error) {
	if !f.mocked("ListInteractionsForProblems") {
		return f.Repository.ListInteractionsForProblems(ctx, problemIDs, since)
	}
	args := f.Called(ctx, problemIDs, since)
	return nil, args.Error(0)
}

func (f *failingRepository) ListTrendingRecords(
	ctx context.Context,
	filters domain.TrendingFilters,
) ([]domain.TrendingRecord, error) {
	if !f.mocked("ListTrendingRecords") {
		return f.Repository.ListTrendingRecords(ctx, filters)
	}
	args := f.Called(ctx, filters)
	return nil, args.Error(0)
}

func (f *failingRepository) UpsertTrendingRecords(ctx context.Context, records []domain.TrendingRecord) error {
	if !f.mocked("UpsertTrendingRecords") {
		return f.Repository.UpsertTrendingRecords(ctx, records)
	}
	return f.Called(ctx, records).Error(0)
}

func (f *failingRepository) UpsertSimilarityRecords(ctx context.Context, records []domain.SimilarityRecord) error {
	if !f.mocked("UpsertSimilarityRecords") {
		return f.Repository.UpsertSimilarityRecords(ctx, records)
	}
	return f.Called(ctx, records).Error(0)
}

func (f *failingRepository) GetUserPreferences(ctx context.Context, userID string) (domain.UserPreferences, error) {
	if !f.mocked("GetUserPreferences") {
		return f.Repository.GetUserPreferences(ctx, userID)
	}
	return domain.UserPreferences{}, f.Called(ctx, userID).Error(0)
}

func (f *failingRepository) UpsertUserPreferences(ctx context.Context, prefs domain.UserPreferences) error {
	if !f.mocked("UpsertUserPreferences") {
		return f.Repository.UpsertUserPreferences(ctx, prefs)
	}
	return f.Called(ctx, prefs).Error(0)
}

// mockTrendingCalculator stands in for CalculateTrending.
type mockTrendingCalculator struct {
	mock.Mock
}

func (m *mockTrendingCalculator) Execute(ctx context.Context, req Empty) ([]TrendingProblem, error) {
	args := m.Called(ctx, req)
	problems, _ := args.Get(0).([]TrendingProblem)
	return problems, args.Error(1)
}
