package command

import (
	"errors"
	"testing"
	"time"

	"github.com/jbeshir/problem-rankings/internal/datasources"
	"github.com/jbeshir/problem-rankings/internal/datasources/memory"
	"github.com/jbeshir/problem-rankings/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func seedRelatedProblems(repo *memory.Repository) {
	open := func(id, title, description, category string, votes int) domain.Problem {
		return domain.Problem{
			ID: id, Title: title, Description: description, CategoryID: category, VoteCount: votes,
			Status: domain.ProblemStatusOpen, CreatedAt: testNow.Add(-24 * time.Hour), UpdatedAt: testNow.Add(-time.Hour),
		}
	}
	repo.AddProblems(
		open("target", "Urban flood prediction", "Predict urban flooding with street sensors", "climate", 10),
		open("twin", "Urban flood prediction", "Predict urban flooding with street sensors", "climate", 5),
		open("neighbour", "Wildfire smoke", "Distribute masks during wildfire season", "climate", 10),
		open("covoted", "Clinic queue times", "Shorter waiting rooms", "health", 3),
		open("lonely", "Hospital beds", "Track free beds", "health", 1),
	)

	for _, u := range []string{"u1", "u2", "u3", "u4"} {
		repo.AddVotes(domain.Vote{UserID: u, ProblemID: "target", CreatedAt: testNow.Add(-time.Hour)})
	}
	for _, u := range []string{"u1", "u2", "u3"} {
		repo.AddVotes(domain.Vote{UserID: u, ProblemID: "covoted", CreatedAt: testNow.Add(-time.Hour)})
	}
	repo.AddVotes(domain.Vote{UserID: "u1", ProblemID: "lonely", CreatedAt: testNow.Add(-time.Hour)})

	for _, u := range []string{"i1", "i2"} {
		repo.AddInteractions(
			domain.Interaction{UserID: u, ProblemID: "target", Type: domain.InteractionTypeView, Weight: 0.3, Count: 1, LastInteraction: testNow},
			domain.Interaction{UserID: u, ProblemID: "covoted", Type: domain.InteractionTypeShare, Weight: 1.2, Count: 1, LastInteraction: testNow},
		)
	}
}

func newTestListRelatedProblems(repo datasources.Repository) *ListRelatedProblems {
	c := NewListRelatedProblems(repo, testSimilarityConfig())
	c.Now = testClock
	return c
}

func relatedIDs(related []RelatedProblem) []string {
	var ids []string
	for _, r := range related {
		ids = append(ids, r.Problem.ID)
	}
	return ids
}

func TestListRelatedProblems_Execute(t *testing.T) {
	repo := memory.New()
	seedRelatedProblems(repo)
	c := newTestListRelatedProblems(repo)

	result, err := c.Execute(testContext(), ListRelatedProblemsRequest{ProblemID: "target"})
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Equal(t, "target", result.Target.ID)
	require.Equal(t, []string{"neighbour", "twin", "covoted"}, relatedIDs(result.Related))

	neighbour, twin, covoted := result.Related[0], result.Related[1], result.Related[2]

	assert.InDelta(t, 1.0, neighbour.Score, 1e-9)
	assert.Equal(t, map[domain.SimilarityType]float64{domain.SimilarityTypeCategory: 1.0}, neighbour.Breakdown)

	assert.InDelta(t, 1.0, twin.Breakdown[domain.SimilarityTypeContent], 1e-9)
	assert.InDelta(t, 0.85, twin.Breakdown[domain.SimilarityTypeCategory], 1e-9)
	assert.InDelta(t, (0.3*1.0+0.25*0.85)/0.55, twin.Score, 1e-9)

	assert.InDelta(t, 0.75, covoted.Breakdown[domain.SimilarityTypeVotingPattern], 1e-9)
	assert.InDelta(t, 0.24, covoted.Breakdown[domain.SimilarityTypeUserInteraction], 1e-9)
	assert.InDelta(t, (0.3*0.75+0.15*0.24)/0.45, covoted.Score, 1e-9)

	records, err := repo.ListSimilarityRecords(testContext(), []string{"target"}, nil, time.Time{})
	require.NoError(t, err)
	assert.Len(t, records, 5)
}

func TestListRelatedProblems_ServesCache(t *testing.T) {
	repo := memory.New()
	seedRelatedProblems(repo)
	c := newTestListRelatedProblems(repo)

	first, err := c.Execute(testContext(), ListRelatedProblemsRequest{ProblemID: "target"})
	require.NoError(t, err)

	// New co-voters would change the ranking if it were recomputed.
	for _, u := range []string{"u1", "u2", "u3", "u4"} {
		repo.AddVotes(domain.Vote{UserID: u, ProblemID: "lonely", CreatedAt: testNow})
	}

	second, err := c.Execute(testContext(), ListRelatedProblemsRequest{ProblemID: "target"})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, relatedIDs(first.Related), relatedIDs(second.Related))

	refreshed, err := c.Execute(testContext(), ListRelatedProblemsRequest{ProblemID: "target", Refresh: true})
	require.NoError(t, err)
	assert.False(t, refreshed.FromCache)
	assert.Contains(t, relatedIDs(refreshed.Related), "lonely")
}

func TestListRelatedProblems_StaleCacheRecomputes(t *testing.T) {
	repo := memory.New()
	seedRelatedProblems(repo)
	require.NoError(t, repo.UpsertSimilarityRecords(testContext(), []domain.SimilarityRecord{
		{ProblemAID: "target", ProblemBID: "lonely", Type: domain.SimilarityTypeContent, Score: 0.9, CalculatedAt: testNow.Add(-2 * time.Hour)},
	}))

	result, err := newTestListRelatedProblems(repo).Execute(testContext(), ListRelatedProblemsRequest{ProblemID: "target"})
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.NotContains(t, relatedIDs(result.Related), "lonely")
}

func TestListRelatedProblems_Limit(t *testing.T) {
	repo := memory.New()
	seedRelatedProblems(repo)

	result, err := newTestListRelatedProblems(repo).Execute(testContext(), ListRelatedProblemsRequest{ProblemID: "target", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"neighbour"}, relatedIDs(result.Related))
}

func TestListRelatedProblems_NotFound(t *testing.T) {
	_, err := newTestListRelatedProblems(memory.New()).Execute(testContext(), ListRelatedProblemsRequest{ProblemID: "missing"})
	assert.ErrorIs(t, err, ErrProblemNotFound)
}

func TestListRelatedProblems_DegradedSignal(t *testing.T) {
	mem := memory.New()
	seedRelatedProblems(mem)
	repo := newFailingRepository(mem)
	repo.On("ListVotesForProblems", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("db down"))

	result, err := newTestListRelatedProblems(repo).Execute(testContext(), ListRelatedProblemsRequest{ProblemID: "target"})
	require.NoError(t, err)
	require.Equal(t, []string{"neighbour", "twin", "covoted"}, relatedIDs(result.Related))

	covoted := result.Related[2]
	assert.NotContains(t, covoted.Breakdown, domain.SimilarityTypeVotingPattern)
	assert.InDelta(t, 0.24, covoted.Score, 1e-9)
}

func TestListRelatedProblems_AllSignalsFail(t *testing.T) {
	mem := memory.New()
	seedRelatedProblems(mem)
	repo := newFailingRepository(mem)
	repo.On("ListProblems", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("db down"))
	repo.On("ListVotesForProblems", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("db down"))
	repo.On("ListInteractionsForProblems", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("db down"))

	_, err := newTestListRelatedProblems(repo).Execute(testContext(), ListRelatedProblemsRequest{ProblemID: "target"})
	assert.ErrorContains(t, err, "computing similarity for target")
}

func TestListRelatedProblems_CacheWriteFailure(t *testing.T) {
	mem := memory.New()
	seedRelatedProblems(mem)
	repo := newFailingRepository(mem)
	repo.On("UpsertSimilarityRecords", mock.Anything, mock.Anything).Return(errors.New("read only"))

	result, err := newTestListRelatedProblems(repo).Execute(testContext(), ListRelatedProblemsRequest{ProblemID: "target"})
	require.NoError(t, err)
	assert.Len(t, result.Related, 3)
}
