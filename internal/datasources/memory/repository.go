// Package memory is an in-process datastore. It backs tests and local runs without a database.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/jbeshir/problem-rankings/internal/datasources"
	"github.com/jbeshir/problem-rankings/internal/domain"
)

var _ datasources.Repository = (*Repository)(nil)

type similarityKey struct {
	a, b string
	typ  domain.SimilarityType
}

type Repository struct {
	mu           sync.RWMutex
	problems     map[string]domain.Problem
	votes        []domain.Vote
	interactions []domain.Interaction
	trending     map[string]domain.TrendingRecord
	similarities map[similarityKey]domain.SimilarityRecord
	preferences  map[string]domain.UserPreferences
}

func New() *Repository {
	return &Repository{
		problems:     make(map[string]domain.Problem),
		trending:     make(map[string]domain.TrendingRecord),
		similarities: make(map[similarityKey]domain.SimilarityRecord),
		preferences:  make(map[string]domain.UserPreferences),
	}
}

// AddProblems inserts or replaces problems.
func (r *Repository) AddProblems(problems ...domain.Problem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range problems {
		r.problems[p.ID] = p
	}
}

func (r *Repository) AddVotes(votes ...domain.Vote) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.votes = append(r.votes, votes...)
}

func (r *Repository) AddInteractions(interactions ...domain.Interaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interactions = append(r.interactions, interactions...)
}

func (r *Repository) GetProblem(_ context.Context, id string) (domain.Problem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.problems[id]
	if !ok {
		return domain.Problem{}, fmt.Errorf("problem %s: %w", id, datasources.ErrNotFound)
	}
	return p, nil
}

func (r *Repository) FetchProblemsByID(_ context.Context, ids []string) ([]domain.Problem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	problems := make([]domain.Problem, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.problems[id]; ok {
			problems = append(problems, p)
		}
	}
	return problems, nil
}

func (r *Repository) ListProblems(
	_ context.Context,
	filters domain.ProblemFilters,
	options domain.ProblemListOptions,
) ([]domain.Problem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	votedBy := make(map[string]struct{})
	if filters.ExcludeVotedBy != "" {
		for _, v := range r.votes {
			if v.UserID == filters.ExcludeVotedBy {
				votedBy[v.ProblemID] = struct{}{}
			}
		}
	}

	var result []domain.Problem
	for _, p := range r.problems {
		if !matchesFilters(p, filters, votedBy) {
			continue
		}
		result = append(result, p)
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		switch options.OrderBy {
		case domain.ProblemOrderingFieldUpdatedAt:
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.After(b.UpdatedAt)
			}
		case domain.ProblemOrderingFieldVoteCount:
			if a.VoteCount != b.VoteCount {
				return a.VoteCount > b.VoteCount
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	})

	if options.Limit > 0 && len(result) > options.Limit {
		result = result[:options.Limit]
	}
	return result, nil
}

func matchesFilters(p domain.Problem, f domain.ProblemFilters, votedBy map[string]struct{}) bool {
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, p.ID) {
		return false
	}
	if slices.Contains(f.ExcludeIDs, p.ID) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, p.Status) {
		return false
	}
	if f.CategoryID != "" && p.CategoryID != f.CategoryID {
		return false
	}
	if slices.Contains(f.ExcludeCategories, p.CategoryID) {
		return false
	}
	if p.VoteCount < f.MinVotes {
		return false
	}
	if !f.UpdatedAfter.IsZero() && p.UpdatedAt.Before(f.UpdatedAfter) {
		return false
	}
	if f.ExcludeProposerID != "" && p.ProposerID == f.ExcludeProposerID {
		return false
	}
	if _, voted := votedBy[p.ID]; voted {
		return false
	}
	return true
}

func (r *Repository) AverageCategoryVotes(_ context.Context, createdAfter time.Time) (map[string]float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sums := make(map[string]int)
	counts := make(map[string]int)
	for _, p := range r.problems {
		if p.CreatedAt.Before(createdAfter) {
			continue
		}
		sums[p.CategoryID] += p.VoteCount
		counts[p.CategoryID]++
	}

	averages := make(map[string]float64, len(counts))
	for cat, n := range counts {
		averages[cat] = float64(sums[cat]) / float64(n)
	}
	return averages, nil
}

func (r *Repository) ListVotesForProblems(
	_ context.Context,
	problemIDs []string,
	since time.Time,
) ([]domain.Vote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var votes []domain.Vote
	for _, v := range r.votes {
		if slices.Contains(problemIDs, v.ProblemID) && !v.CreatedAt.Before(since) {
			votes = append(votes, v)
		}
	}
	return votes, nil
}

func (r *Repository) ListVotesByUsers(_ context.Context, userIDs []string) ([]domain.Vote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var votes []domain.Vote
	for _, v := range r.votes {
		if slices.Contains(userIDs, v.UserID) {
			votes = append(votes, v)
		}
	}
	return votes, nil
}

func (r *Repository) ListUserVotedProblemIDs(_ context.Context, userID string, limit int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var votes []domain.Vote
	for _, v := range r.votes {
		if v.UserID == userID {
			votes = append(votes, v)
		}
	}
	sort.SliceStable(votes, func(i, j int) bool {
		return votes[i].CreatedAt.After(votes[j].CreatedAt)
	})

	if limit > 0 && len(votes) > limit {
		votes = votes[:limit]
	}

	ids := make([]string, 0, len(votes))
	for _, v := range votes {
		ids = append(ids, v.ProblemID)
	}
	return ids, nil
}

func (r *Repository) ListSimilarUsers(_ context.Context, userID string, limit int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	voted := make(map[string]struct{})
	for _, v := range r.votes {
		if v.UserID == userID {
			voted[v.ProblemID] = struct{}{}
		}
	}

	shared := make(map[string]int)
	for _, v := range r.votes {
		if v.UserID == userID {
			continue
		}
		if _, ok := voted[v.ProblemID]; ok {
			shared[v.UserID]++
		}
	}

	users := slices.Collect(maps.Keys(shared))
	sort.Slice(users, func(i, j int) bool {
		if shared[users[i]] != shared[users[j]] {
			return shared[users[i]] > shared[users[j]]
		}
		return users[i] < users[j]
	})

	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (r *Repository) ListInteractionsForProblems(
	_ context.Context,
	problemIDs []string,
	since time.Time,
) ([]domain.Interaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var interactions []domain.Interaction
	for _, i := range r.interactions {
		if slices.Contains(problemIDs, i.ProblemID) && !i.LastInteraction.Before(since) {
			interactions = append(interactions, i)
		}
	}
	return interactions, nil
}

func (r *Repository) ListInteractionsByUsers(_ context.Context, userIDs []string) ([]domain.Interaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var interactions []domain.Interaction
	for _, i := range r.interactions {
		if slices.Contains(userIDs, i.UserID) {
			interactions = append(interactions, i)
		}
	}
	return interactions, nil
}

func (r *Repository) ListTrendingRecords(
	_ context.Context,
	filters domain.TrendingFilters,
) ([]domain.TrendingRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var records []domain.TrendingRecord
	for id, rec := range r.trending {
		if !rec.IsFresh(filters.FreshAt) {
			continue
		}
		if len(filters.ProblemIDs) > 0 && !slices.Contains(filters.ProblemIDs, id) {
			continue
		}
		if filters.CategoryID != "" {
			p, ok := r.problems[id]
			if !ok || p.CategoryID != filters.CategoryID {
				continue
			}
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].TrendingScore != records[j].TrendingScore {
			return records[i].TrendingScore > records[j].TrendingScore
		}
		return records[i].ProblemID < records[j].ProblemID
	})

	if filters.Limit > 0 && len(records) > filters.Limit {
		records = records[:filters.Limit]
	}
	return records, nil
}

func (r *Repository) UpsertTrendingRecords(_ context.Context, records []domain.TrendingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range records {
		r.trending[rec.ProblemID] = rec
	}
	return nil
}

func (r *Repository) DeleteTrendingRecordsExpiredBefore(_ context.Context, before time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, rec := range r.trending {
		if rec.ExpiresAt.Before(before) {
			delete(r.trending, id)
		}
	}
	return nil
}

func (r *Repository) ListSimilarityRecords(
	_ context.Context,
	problemAIDs, problemBIDs []string,
	calculatedAfter time.Time,
) ([]domain.SimilarityRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var records []domain.SimilarityRecord
	for key, rec := range r.similarities {
		if !slices.Contains(problemAIDs, key.a) {
			continue
		}
		if len(problemBIDs) > 0 && !slices.Contains(problemBIDs, key.b) {
			continue
		}
		if rec.CalculatedAt.Before(calculatedAfter) {
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.ProblemAID != b.ProblemAID {
			return a.ProblemAID < b.ProblemAID
		}
		if a.ProblemBID != b.ProblemBID {
			return a.ProblemBID < b.ProblemBID
		}
		return a.Type < b.Type
	})
	return records, nil
}

func (r *Repository) UpsertSimilarityRecords(_ context.Context, records []domain.SimilarityRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range records {
		r.similarities[similarityKey{a: rec.ProblemAID, b: rec.ProblemBID, typ: rec.Type}] = rec
	}
	return nil
}

func (r *Repository) GetUserPreferences(_ context.Context, userID string) (domain.UserPreferences, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prefs, ok := r.preferences[userID]
	if !ok {
		return domain.UserPreferences{}, fmt.Errorf("preferences for %s: %w", userID, datasources.ErrNotFound)
	}
	return clonePreferences(prefs), nil
}

func (r *Repository) UpsertUserPreferences(_ context.Context, prefs domain.UserPreferences) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.preferences[prefs.UserID] = clonePreferences(prefs)
	return nil
}

func clonePreferences(p domain.UserPreferences) domain.UserPreferences {
	p.CategoryWeights = maps.Clone(p.CategoryWeights)
	p.InteractionWeights = maps.Clone(p.InteractionWeights)
	p.ExcludeCategories = slices.Clone(p.ExcludeCategories)
	return p
}
