package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jbeshir/problem-rankings/internal/datasources"
	"github.com/jbeshir/problem-rankings/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func setupTestRepository(t *testing.T) *Repository {
	ctx := context.Background()

	db, err := ConnectSQLite(ctx, filepath.Join(t.TempDir(), "rankings.db"))
	require.NoError(t, err)

	r := New(db, sqlbuilder.SQLite)
	t.Cleanup(func() {
		require.NoError(t, r.Close())
	})
	require.NoError(t, r.Migrate(ctx))

	insertProblems(t, r,
		domain.Problem{
			ID: "p1", Title: "Flood maps", Description: "Better flood maps", CategoryID: "climate",
			VoteCount: 10, ProposerID: "u9", Status: domain.ProblemStatusOpen,
			CreatedAt: baseTime.Add(-72 * time.Hour), UpdatedAt: baseTime.Add(-time.Hour),
		},
		domain.Problem{
			ID: "p2", Title: "Heat alerts", CategoryID: "climate",
			VoteCount: 4, ProposerID: "u1", Status: domain.ProblemStatusProposed,
			CreatedAt: baseTime.Add(-24 * time.Hour), UpdatedAt: baseTime.Add(-2 * time.Hour),
		},
		domain.Problem{
			ID: "p3", Title: "Clinic queues", CategoryID: "health",
			VoteCount: 20, ProposerID: "u9", Status: domain.ProblemStatusSolved,
			CreatedAt: baseTime.Add(-10 * 24 * time.Hour), UpdatedAt: baseTime.Add(-3 * time.Hour),
		},
	)
	insertVotes(t, r,
		domain.Vote{UserID: "u1", ProblemID: "p1", CreatedAt: baseTime.Add(-30 * time.Minute)},
		domain.Vote{UserID: "u1", ProblemID: "p3", CreatedAt: baseTime.Add(-5 * time.Hour)},
		domain.Vote{UserID: "u2", ProblemID: "p1", CreatedAt: baseTime.Add(-2 * time.Hour)},
		domain.Vote{UserID: "u2", ProblemID: "p3", CreatedAt: baseTime.Add(-3 * time.Hour)},
		domain.Vote{UserID: "u3", ProblemID: "p3", CreatedAt: baseTime.Add(-48 * time.Hour)},
	)

	return r
}

func insertProblems(t *testing.T, r *Repository, problems ...domain.Problem) {
	ib := r.flavor.NewInsertBuilder()
	ib.InsertInto("problems")
	ib.Cols(problemColumns...)
	for _, p := range problems {
		ib.Values(p.ID, p.Title, p.Description, p.CategoryID, p.VoteCount,
			p.ProposerID, string(p.Status), p.CreatedAt, p.UpdatedAt)
	}

	query, args := ib.Build()
	_, err := r.db.ExecContext(context.Background(), query, args...)
	require.NoError(t, err)
}

func insertVotes(t *testing.T, r *Repository, votes ...domain.Vote) {
	ib := r.flavor.NewInsertBuilder()
	ib.InsertInto("votes")
	ib.Cols(voteColumns...)
	for _, v := range votes {
		ib.Values(v.UserID, v.ProblemID, v.CreatedAt)
	}

	query, args := ib.Build()
	_, err := r.db.ExecContext(context.Background(), query, args...)
	require.NoError(t, err)
}

func insertInteractions(t *testing.T, r *Repository, interactions ...domain.Interaction) {
	ib := r.flavor.NewInsertBuilder()
	ib.InsertInto("user_interactions")
	ib.Cols(interactionColumns...)
	for _, i := range interactions {
		ib.Values(i.UserID, i.ProblemID, string(i.Type), i.Weight, i.Count, i.LastInteraction)
	}

	query, args := ib.Build()
	_, err := r.db.ExecContext(context.Background(), query, args...)
	require.NoError(t, err)
}

func problemIDs(problems []domain.Problem) []string {
	var ids []string
	for _, p := range problems {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestRepository_MigrateIsRepeatable(t *testing.T) {
	r := setupTestRepository(t)
	assert.NoError(t, r.Migrate(context.Background()))
}

func TestRepository_GetProblem(t *testing.T) {
	r := setupTestRepository(t)

	p, err := r.GetProblem(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Flood maps", p.Title)
	assert.Equal(t, "Better flood maps", p.Description)
	assert.Equal(t, domain.ProblemStatusOpen, p.Status)
	assert.Equal(t, 10, p.VoteCount)
	assert.True(t, baseTime.Add(-72*time.Hour).Equal(p.CreatedAt))

	_, err = r.GetProblem(context.Background(), "missing")
	assert.ErrorIs(t, err, datasources.ErrNotFound)
}

func TestRepository_FetchProblemsByID(t *testing.T) {
	r := setupTestRepository(t)

	problems, err := r.FetchProblemsByID(context.Background(), []string{"p3", "missing", "p1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p3", "p1"}, problemIDs(problems))

	problems, err = r.FetchProblemsByID(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestRepository_ListProblems(t *testing.T) {
	r := setupTestRepository(t)

	tests := []struct {
		name     string
		filters  domain.ProblemFilters
		options  domain.ProblemListOptions
		expected []string
	}{
		{
			name:     "all by created_at",
			expected: []string{"p2", "p1", "p3"},
		},
		{
			name:     "by vote_count with limit",
			options:  domain.ProblemListOptions{OrderBy: domain.ProblemOrderingFieldVoteCount, Limit: 2},
			expected: []string{"p3", "p1"},
		},
		{
			name:     "rankable statuses",
			filters:  domain.ProblemFilters{Statuses: domain.RankableStatuses},
			options:  domain.ProblemListOptions{OrderBy: domain.ProblemOrderingFieldUpdatedAt},
			expected: []string{"p1", "p2"},
		},
		{
			name:     "min votes and category",
			filters:  domain.ProblemFilters{MinVotes: 5, CategoryID: "climate"},
			expected: []string{"p1"},
		},
		{
			name:     "excluding proposer and voted",
			filters:  domain.ProblemFilters{ExcludeProposerID: "u1", ExcludeVotedBy: "u1"},
			expected: nil,
		},
		{
			name:     "excluding categories and ids",
			filters:  domain.ProblemFilters{ExcludeCategories: []string{"health"}, ExcludeIDs: []string{"p2"}},
			expected: []string{"p1"},
		},
		{
			name:     "ids and updated after",
			filters:  domain.ProblemFilters{IDs: []string{"p1", "p3"}, UpdatedAfter: baseTime.Add(-150 * time.Minute)},
			expected: []string{"p1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problems, err := r.ListProblems(context.Background(), tt.filters, tt.options)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, problemIDs(problems))
		})
	}
}

func TestRepository_AverageCategoryVotes(t *testing.T) {
	r := setupTestRepository(t)

	averages, err := r.AverageCategoryVotes(context.Background(), baseTime.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"climate": 7}, averages)
}

func TestRepository_Votes(t *testing.T) {
	r := setupTestRepository(t)
	ctx := context.Background()

	votes, err := r.ListVotesForProblems(ctx, []string{"p3"}, baseTime.Add(-6*time.Hour))
	require.NoError(t, err)
	assert.Len(t, votes, 2)

	votes, err = r.ListVotesByUsers(ctx, []string{"u2", "u3"})
	require.NoError(t, err)
	assert.Len(t, votes, 3)

	ids, err := r.ListUserVotedProblemIDs(ctx, "u1", 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p3"}, ids)

	users, err := r.ListSimilarUsers(ctx, "u1", 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u3"}, users)

	users, err = r.ListSimilarUsers(ctx, "u1", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, users)
}

func TestRepository_Interactions(t *testing.T) {
	r := setupTestRepository(t)
	ctx := context.Background()

	insertInteractions(t, r,
		domain.Interaction{UserID: "u1", ProblemID: "p1", Type: domain.InteractionTypeView, Weight: 0.3, Count: 3, LastInteraction: baseTime},
		domain.Interaction{UserID: "u2", ProblemID: "p1", Type: domain.InteractionTypeShare, Weight: 1.2, Count: 1, LastInteraction: baseTime.Add(-48 * time.Hour)},
		domain.Interaction{UserID: "u2", ProblemID: "p2", Type: domain.InteractionTypeView, Weight: 0.3, Count: 1, LastInteraction: baseTime},
	)

	interactions, err := r.ListInteractionsForProblems(ctx, []string{"p1"}, baseTime.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, interactions, 1)
	assert.Equal(t, "u1", interactions[0].UserID)
	assert.Equal(t, domain.InteractionTypeView, interactions[0].Type)
	assert.Equal(t, 3, interactions[0].Count)

	interactions, err = r.ListInteractionsByUsers(ctx, []string{"u2"})
	require.NoError(t, err)
	assert.Len(t, interactions, 2)
}

func TestRepository_TrendingRecords(t *testing.T) {
	r := setupTestRepository(t)
	ctx := context.Background()

	require.NoError(t, r.UpsertTrendingRecords(ctx, []domain.TrendingRecord{
		{ProblemID: "p1", TrendingScore: 50, VoteVelocity: 1.5, CalculatedAt: baseTime, ExpiresAt: baseTime.Add(time.Hour)},
		{ProblemID: "p2", TrendingScore: 80, CalculatedAt: baseTime, ExpiresAt: baseTime.Add(time.Hour)},
		{ProblemID: "p3", TrendingScore: 90, CalculatedAt: baseTime.Add(-2 * time.Hour), ExpiresAt: baseTime.Add(-time.Hour)},
	}))

	records, err := r.ListTrendingRecords(ctx, domain.TrendingFilters{FreshAt: baseTime})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "p2", records[0].ProblemID)
	assert.Equal(t, "p1", records[1].ProblemID)
	assert.Equal(t, 1.5, records[1].VoteVelocity)
	assert.True(t, baseTime.Add(time.Hour).Equal(records[1].ExpiresAt))

	records, err = r.ListTrendingRecords(ctx, domain.TrendingFilters{FreshAt: baseTime, Limit: 1})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "p2", records[0].ProblemID)

	records, err = r.ListTrendingRecords(ctx, domain.TrendingFilters{FreshAt: baseTime, CategoryID: "climate"})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	require.NoError(t, r.UpsertTrendingRecords(ctx, []domain.TrendingRecord{
		{ProblemID: "p1", TrendingScore: 95, CalculatedAt: baseTime, ExpiresAt: baseTime.Add(time.Hour)},
	}))
	records, err = r.ListTrendingRecords(ctx, domain.TrendingFilters{FreshAt: baseTime, ProblemIDs: []string{"p1"}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 95.0, records[0].TrendingScore)

	require.NoError(t, r.DeleteTrendingRecordsExpiredBefore(ctx, baseTime))
	records, err = r.ListTrendingRecords(ctx, domain.TrendingFilters{FreshAt: baseTime.Add(-90 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestRepository_SimilarityRecords(t *testing.T) {
	r := setupTestRepository(t)
	ctx := context.Background()

	require.NoError(t, r.UpsertSimilarityRecords(ctx, []domain.SimilarityRecord{
		{ProblemAID: "p1", ProblemBID: "p2", Type: domain.SimilarityTypeContent, Score: 0.2, CalculatedAt: baseTime},
		{ProblemAID: "p1", ProblemBID: "p2", Type: domain.SimilarityTypeCategory, Score: 0.8, CalculatedAt: baseTime},
		{ProblemAID: "p1", ProblemBID: "p3", Type: domain.SimilarityTypeContent, Score: 0.4, CalculatedAt: baseTime.Add(-2 * time.Hour)},
		{ProblemAID: "p1", ProblemBID: "p2", Type: domain.SimilarityTypeContent, Score: 0.25, CalculatedAt: baseTime},
	}))
	require.NoError(t, r.UpsertSimilarityRecords(ctx, []domain.SimilarityRecord{
		{ProblemAID: "p1", ProblemBID: "p2", Type: domain.SimilarityTypeContent, Score: 0.3, CalculatedAt: baseTime},
	}))

	records, err := r.ListSimilarityRecords(ctx, []string{"p1"}, nil, baseTime.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.SimilarityTypeCategory, records[0].Type)
	assert.Equal(t, 0.3, records[1].Score)

	records, err = r.ListSimilarityRecords(ctx, []string{"p1", "p2"}, []string{"p3"}, time.Time{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "p3", records[0].ProblemBID)
}

func TestRepository_UserPreferences(t *testing.T) {
	r := setupTestRepository(t)
	ctx := context.Background()

	_, err := r.GetUserPreferences(ctx, "u1")
	assert.ErrorIs(t, err, datasources.ErrNotFound)

	prefs := domain.DefaultUserPreferences("u1")
	prefs.CategoryWeights["climate"] = 0.9
	prefs.ExcludeCategories = []string{"health"}
	require.NoError(t, r.UpsertUserPreferences(ctx, prefs))

	stored, err := r.GetUserPreferences(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, prefs, stored)

	prefs.DiversityPreference = 0.7
	prefs.MinVoteThreshold = 3
	require.NoError(t, r.UpsertUserPreferences(ctx, prefs))

	stored, err = r.GetUserPreferences(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0.7, stored.DiversityPreference)
	assert.Equal(t, 3, stored.MinVoteThreshold)
}
