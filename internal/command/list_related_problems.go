package command

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jbeshir/problem-rankings/internal/datasources"
	"github.com/jbeshir/problem-rankings/internal/domain"
	"golang.org/x/sync/errgroup"
)

type ListRelatedProblemsRequest struct {
	ProblemID string
	Limit     int
	// Refresh ignores cached similarity records and recomputes every signal.
	Refresh bool
}

// RelatedProblem is a problem with its hybrid similarity to the target and the per-signal scores.
type RelatedProblem struct {
	Problem   domain.Problem
	Score     float64
	Breakdown map[domain.SimilarityType]float64
}

type ListRelatedProblemsResult struct {
	Target    domain.Problem
	Related   []RelatedProblem
	FromCache bool
}

// ListRelatedProblems ranks other problems by their similarity to a target problem.
type ListRelatedProblems struct {
	ProblemGetter     datasources.ProblemGetter
	ProblemFetcher    datasources.ProblemFetcher
	ProblemLister     datasources.ProblemLister
	VoteLister        ProblemVoteRepository
	InteractionLister ProblemInteractionRepository
	SimilarityCache   datasources.SimilarityCacheRepository
	Config            SimilarityConfig
	Now               func() time.Time
}

// ProblemVoteRepository lists votes both by problem and by voter.
type ProblemVoteRepository interface {
	datasources.ProblemVoteLister
	datasources.UserVoteLister
}

// ProblemInteractionRepository lists interactions both by problem and by user.
type ProblemInteractionRepository interface {
	datasources.ProblemInteractionLister
	datasources.UserInteractionLister
}

func NewListRelatedProblems(
	repo datasources.Repository,
	config SimilarityConfig,
) *ListRelatedProblems {
	return &ListRelatedProblems{
		ProblemGetter:     repo,
		ProblemFetcher:    repo,
		ProblemLister:     repo,
		VoteLister:        repo,
		InteractionLister: repo,
		SimilarityCache:   repo,
		Config:            config,
	}
}

func (c *ListRelatedProblems) Execute(
	ctx context.Context,
	req ListRelatedProblemsRequest,
) (ListRelatedProblemsResult, error) {
	logger := domain.LoggerFromContext(ctx)
	now := nowFrom(c.Now)

	target, err := c.ProblemGetter.GetProblem(ctx, req.ProblemID)
	if errors.Is(err, datasources.ErrNotFound) {
		return ListRelatedProblemsResult{}, fmt.Errorf("%w: %s", ErrProblemNotFound, req.ProblemID)
	}
	if err != nil {
		return ListRelatedProblemsResult{}, fmt.Errorf("getting problem %s: %w", req.ProblemID, err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = c.Config.DefaultLimit
	}

	var records []domain.SimilarityRecord
	fromCache := false
	if !req.Refresh {
		cached, err := c.SimilarityCache.ListSimilarityRecords(
			ctx, []string{target.ID}, nil, now.Add(-c.Config.CachePeriod))
		if err != nil {
			logger.WarnContext(ctx, "failed to read similarity cache", "error", err)
		} else if len(cached) > 0 {
			records = cached
			fromCache = true
		}
	}

	if !fromCache {
		records, err = c.computeRecords(ctx, target, now)
		if err != nil {
			return ListRelatedProblemsResult{}, err
		}

		if len(records) > 0 {
			if err := c.SimilarityCache.UpsertSimilarityRecords(ctx, records); err != nil {
				logger.WarnContext(ctx, "failed to cache similarity records", "error", err)
			}
		}
	}

	ranked := domain.RankBySimilarity(records, c.Config.Weights, limit)
	related, err := c.attachProblems(ctx, ranked)
	if err != nil {
		return ListRelatedProblemsResult{}, err
	}

	return ListRelatedProblemsResult{Target: target, Related: related, FromCache: fromCache}, nil
}

func (c *ListRelatedProblems) attachProblems(
	ctx context.Context,
	ranked []domain.ScoredProblem,
) ([]RelatedProblem, error) {
	if len(ranked) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(ranked))
	for _, s := range ranked {
		ids = append(ids, s.ProblemID)
	}

	problems, err := c.ProblemFetcher.FetchProblemsByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching related problems: %w", err)
	}
	byID := make(map[string]domain.Problem, len(problems))
	for _, p := range problems {
		byID[p.ID] = p
	}

	related := make([]RelatedProblem, 0, len(ranked))
	for _, s := range ranked {
		p, ok := byID[s.ProblemID]
		if !ok {
			continue
		}
		related = append(related, RelatedProblem{Problem: p, Score: s.Score, Breakdown: s.Breakdown})
	}
	return related, nil
}

// computeRecords runs the four signals concurrently. A failed signal contributes nothing; only
// the failure of every signal is an error.
func (c *ListRelatedProblems) computeRecords(
	ctx context.Context,
	target domain.Problem,
	now time.Time,
) ([]domain.SimilarityRecord, error) {
	type signalFetcher struct {
		typ   domain.SimilarityType
		fetch func(ctx context.Context, target domain.Problem) ([]scoredCandidate, error)
	}
	fetchers := []signalFetcher{
		{domain.SimilarityTypeContent, c.contentSimilarity},
		{domain.SimilarityTypeCategory, c.categorySimilarity},
		{domain.SimilarityTypeVotingPattern, c.votingPatternSimilarity},
		{domain.SimilarityTypeUserInteraction, c.interactionSimilarity},
	}

	signals := make([]Signal[[]scoredCandidate], len(fetchers))
	var g errgroup.Group
	for i, f := range fetchers {
		g.Go(func() error {
			signals[i] = fetchSignal(ctx, string(f.typ), func(ctx context.Context) ([]scoredCandidate, error) {
				return f.fetch(ctx, target)
			})
			return nil
		})
	}
	_ = g.Wait()

	var records []domain.SimilarityRecord
	var reasons []error
	for i, s := range signals {
		if s.Degraded {
			reasons = append(reasons, s.Reason)
			continue
		}
		for _, cand := range s.Value {
			records = append(records, domain.SimilarityRecord{
				ProblemAID:   target.ID,
				ProblemBID:   cand.problemID,
				Score:        cand.score,
				Type:         fetchers[i].typ,
				CalculatedAt: now,
			})
		}
	}

	if len(reasons) == len(fetchers) {
		return nil, fmt.Errorf("computing similarity for %s: %w", target.ID, errors.Join(reasons...))
	}
	return records, nil
}

type scoredCandidate struct {
	problemID string
	score     float64
}

// topCandidates sorts by descending score, ties by ID, and keeps at most limit.
func topCandidates(candidates []scoredCandidate, limit int) []scoredCandidate {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].problemID < candidates[j].problemID
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func (c *ListRelatedProblems) contentSimilarity(
	ctx context.Context,
	target domain.Problem,
) ([]scoredCandidate, error) {
	pool, err := c.ProblemLister.ListProblems(ctx, domain.ProblemFilters{
		Statuses:   domain.RankableStatuses,
		ExcludeIDs: []string{target.ID},
	}, domain.ProblemListOptions{
		OrderBy: domain.ProblemOrderingFieldUpdatedAt,
		Limit:   c.Config.ContentPoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("listing content candidates: %w", err)
	}

	targetTokens := domain.Tokenize(target.Text())

	var candidates []scoredCandidate
	for _, p := range pool {
		score := domain.Jaccard(targetTokens, domain.Tokenize(p.Text()))
		if score > c.Config.ContentMinScore {
			candidates = append(candidates, scoredCandidate{problemID: p.ID, score: score})
		}
	}
	return topCandidates(candidates, c.Config.ContentLimit), nil
}

func (c *ListRelatedProblems) categorySimilarity(
	ctx context.Context,
	target domain.Problem,
) ([]scoredCandidate, error) {
	if target.CategoryID == "" {
		return nil, nil
	}

	sameCategory, err := c.ProblemLister.ListProblems(ctx, domain.ProblemFilters{
		CategoryID: target.CategoryID,
		ExcludeIDs: []string{target.ID},
	}, domain.ProblemListOptions{
		OrderBy: domain.ProblemOrderingFieldVoteCount,
		Limit:   c.Config.CategoryLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("listing problems in category %s: %w", target.CategoryID, err)
	}

	candidates := make([]scoredCandidate, 0, len(sameCategory))
	for _, p := range sameCategory {
		ratio := domain.VoteRatio(target.VoteCount, p.VoteCount)
		candidates = append(candidates, scoredCandidate{
			problemID: p.ID,
			score:     c.Config.CategoryBase + c.Config.CategoryRatioWeight*ratio,
		})
	}
	return topCandidates(candidates, c.Config.CategoryLimit), nil
}

func (c *ListRelatedProblems) votingPatternSimilarity(
	ctx context.Context,
	target domain.Problem,
) ([]scoredCandidate, error) {
	targetVotes, err := c.VoteLister.ListVotesForProblems(ctx, []string{target.ID}, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("listing voters of %s: %w", target.ID, err)
	}

	voters := distinctUsers(len(targetVotes), func(i int) string { return targetVotes[i].UserID })
	if len(voters) == 0 {
		return nil, nil
	}

	votes, err := c.VoteLister.ListVotesByUsers(ctx, voters)
	if err != nil {
		return nil, fmt.Errorf("listing votes of co-voters: %w", err)
	}

	sharedVoters := make(map[string]map[string]struct{})
	for _, v := range votes {
		if v.ProblemID == target.ID {
			continue
		}
		if sharedVoters[v.ProblemID] == nil {
			sharedVoters[v.ProblemID] = make(map[string]struct{})
		}
		sharedVoters[v.ProblemID][v.UserID] = struct{}{}
	}

	var candidates []scoredCandidate
	for problemID, users := range sharedVoters {
		if len(users) < c.Config.VotingMinShared {
			continue
		}
		candidates = append(candidates, scoredCandidate{
			problemID: problemID,
			score:     math.Min(float64(len(users))/float64(len(voters)), 1),
		})
	}
	return topCandidates(candidates, c.Config.VotingLimit), nil
}

func (c *ListRelatedProblems) interactionSimilarity(
	ctx context.Context,
	target domain.Problem,
) ([]scoredCandidate, error) {
	targetInteractions, err := c.InteractionLister.ListInteractionsForProblems(ctx, []string{target.ID}, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("listing interactions with %s: %w", target.ID, err)
	}

	users := distinctUsers(len(targetInteractions), func(i int) string { return targetInteractions[i].UserID })
	if len(users) == 0 {
		return nil, nil
	}

	interactions, err := c.InteractionLister.ListInteractionsByUsers(ctx, users)
	if err != nil {
		return nil, fmt.Errorf("listing interactions of co-interacting users: %w", err)
	}

	type overlap struct {
		users  map[string]struct{}
		weight float64
	}
	overlaps := make(map[string]*overlap)
	for _, i := range interactions {
		if i.ProblemID == target.ID {
			continue
		}
		o, ok := overlaps[i.ProblemID]
		if !ok {
			o = &overlap{users: make(map[string]struct{})}
			overlaps[i.ProblemID] = o
		}
		o.users[i.UserID] = struct{}{}
		o.weight += i.Weight
	}

	var candidates []scoredCandidate
	for problemID, o := range overlaps {
		shared := float64(len(o.users))
		if len(o.users) < c.Config.InteractionMinShared || shared == 0 {
			continue
		}
		userRatio := shared / float64(len(users))
		weightFactor := o.weight / shared / c.Config.InteractionWeightNormalizer
		candidates = append(candidates, scoredCandidate{
			problemID: problemID,
			score:     math.Min(userRatio*weightFactor, 1),
		})
	}
	return topCandidates(candidates, c.Config.InteractionLimit), nil
}

func distinctUsers(n int, userAt func(i int) string) []string {
	seen := make(map[string]struct{}, n)
	var users []string
	for i := 0; i < n; i++ {
		u := userAt(i)
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		users = append(users, u)
	}
	return users
}
