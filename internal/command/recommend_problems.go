package command

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jbeshir/problem-rankings/internal/datasources"
	"github.com/jbeshir/problem-rankings/internal/domain"
	"golang.org/x/sync/errgroup"
)

type RecommendProblemsRequest struct {
	UserID string
	Limit  int
}

// RecommendationBreakdown holds the unweighted signal scores behind a recommendation.
type RecommendationBreakdown struct {
	Collaborative float64 `json:"collaborative"`
	Content       float64 `json:"content"`
	Trending      float64 `json:"trending"`
	Category      float64 `json:"category"`
	Interaction   float64 `json:"interaction"`
}

type RecommendedProblem struct {
	Problem   domain.Problem
	Score     float64
	Breakdown RecommendationBreakdown
}

type RecommendProblemsResult struct {
	Preferences     domain.UserPreferences
	Recommendations []RecommendedProblem
	// DegradedSignals names the signals that could not be computed and scored as zero.
	DegradedSignals []string
	CandidateCount  int
}

// RecommendProblemsRepository is everything RecommendProblems reads.
type RecommendProblemsRepository interface {
	datasources.ProblemLister
	datasources.SimilarUsersLister
	datasources.UserVoteLister
	datasources.UserVotedProblemsLister
	datasources.SimilarityRecordLister
	datasources.TrendingRecordLister
	datasources.UserInteractionLister
}

// RecommendProblems scores unseen problems for a user and re-ranks them for diversity.
type RecommendProblems struct {
	Repository  RecommendProblemsRepository
	Preferences Command[string, domain.UserPreferences]
	Config      RecommendationConfig
	Now         func() time.Time
}

func NewRecommendProblems(
	repository RecommendProblemsRepository,
	preferences Command[string, domain.UserPreferences],
	config RecommendationConfig,
) *RecommendProblems {
	return &RecommendProblems{
		Repository:  repository,
		Preferences: preferences,
		Config:      config,
	}
}

// recommendationSignals map candidate problem IDs to signal scores in [0, 1].
type recommendationSignals struct {
	collaborative Signal[map[string]float64]
	content       Signal[map[string]float64]
	trending      Signal[map[string]float64]
	interaction   Signal[map[string]float64]
}

func (c *RecommendProblems) Execute(
	ctx context.Context,
	req RecommendProblemsRequest,
) (RecommendProblemsResult, error) {
	logger := domain.LoggerFromContext(ctx)

	limit := req.Limit
	if limit <= 0 {
		limit = c.Config.DefaultLimit
	}

	prefs, err := c.Preferences.Execute(ctx, req.UserID)
	if err != nil {
		logger.WarnContext(ctx, "using default preferences", "error", err)
		prefs = domain.DefaultUserPreferences(req.UserID)
	}

	candidates, err := c.Repository.ListProblems(ctx, domain.ProblemFilters{
		Statuses:          domain.RankableStatuses,
		ExcludeCategories: prefs.ExcludeCategories,
		MinVotes:          prefs.MinVoteThreshold,
		ExcludeProposerID: req.UserID,
		ExcludeVotedBy:    req.UserID,
	}, domain.ProblemListOptions{
		OrderBy: domain.ProblemOrderingFieldCreatedAt,
		Limit:   c.Config.CandidatePoolSize,
	})
	if err != nil {
		return RecommendProblemsResult{}, fmt.Errorf("listing recommendation candidates: %w", err)
	}

	result := RecommendProblemsResult{Preferences: prefs, CandidateCount: len(candidates)}
	if len(candidates) == 0 {
		return result, nil
	}

	signals := c.fetchSignals(ctx, req.UserID, candidates)
	for name, degraded := range map[string]bool{
		"collaborative": signals.collaborative.Degraded,
		"content":       signals.content.Degraded,
		"trending":      signals.trending.Degraded,
		"interaction":   signals.interaction.Degraded,
	} {
		if degraded {
			result.DegradedSignals = append(result.DegradedSignals, name)
		}
	}
	sort.Strings(result.DegradedSignals)

	w := c.Config.Weights
	byID := make(map[string]RecommendedProblem, len(candidates))
	scored := make([]domain.DiversityCandidate, 0, len(candidates))
	for _, p := range candidates {
		breakdown := RecommendationBreakdown{
			Collaborative: signals.collaborative.Value[p.ID],
			Content:       signals.content.Value[p.ID],
			Trending:      signals.trending.Value[p.ID],
			Category:      math.Min(prefs.CategoryWeights[p.CategoryID], 1),
			Interaction:   signals.interaction.Value[p.ID],
		}
		score := w.Collaborative*breakdown.Collaborative +
			w.Content*breakdown.Content +
			w.Trending*breakdown.Trending*prefs.TrendingPreference +
			w.Category*breakdown.Category +
			w.Interaction*breakdown.Interaction

		byID[p.ID] = RecommendedProblem{Problem: p, Score: score, Breakdown: breakdown}
		scored = append(scored, domain.DiversityCandidate{ProblemID: p.ID, CategoryID: p.CategoryID, Score: score})
	}

	reranked := domain.RerankForDiversity(scored, limit, prefs.DiversityPreference, c.Config.DiversityLookahead)
	result.Recommendations = make([]RecommendedProblem, 0, len(reranked))
	for _, r := range reranked {
		result.Recommendations = append(result.Recommendations, byID[r.ProblemID])
	}

	return result, nil
}

func (c *RecommendProblems) fetchSignals(
	ctx context.Context,
	userID string,
	candidates []domain.Problem,
) recommendationSignals {
	ids := make([]string, 0, len(candidates))
	for _, p := range candidates {
		ids = append(ids, p.ID)
	}

	var signals recommendationSignals
	var g errgroup.Group
	g.Go(func() error {
		signals.collaborative = fetchSignal(ctx, "collaborative", func(ctx context.Context) (map[string]float64, error) {
			return c.collaborativeScores(ctx, userID, ids)
		})
		return nil
	})
	g.Go(func() error {
		signals.content = fetchSignal(ctx, "content", func(ctx context.Context) (map[string]float64, error) {
			return c.contentScores(ctx, userID, ids)
		})
		return nil
	})
	g.Go(func() error {
		signals.trending = fetchSignal(ctx, "trending", func(ctx context.Context) (map[string]float64, error) {
			return c.trendingScores(ctx, ids)
		})
		return nil
	})
	g.Go(func() error {
		signals.interaction = fetchSignal(ctx, "interaction", func(ctx context.Context) (map[string]float64, error) {
			return c.interactionScores(ctx, userID)
		})
		return nil
	})
	_ = g.Wait()

	return signals
}

// collaborativeScores is the share of the user's most similar voters who voted each candidate.
func (c *RecommendProblems) collaborativeScores(
	ctx context.Context,
	userID string,
	candidateIDs []string,
) (map[string]float64, error) {
	similarUsers, err := c.Repository.ListSimilarUsers(ctx, userID, c.Config.SimilarUsersLimit)
	if err != nil {
		return nil, fmt.Errorf("listing similar users: %w", err)
	}
	if len(similarUsers) == 0 {
		return nil, nil
	}

	votes, err := c.Repository.ListVotesByUsers(ctx, similarUsers)
	if err != nil {
		return nil, fmt.Errorf("listing votes of similar users: %w", err)
	}

	candidates := make(map[string]struct{}, len(candidateIDs))
	for _, id := range candidateIDs {
		candidates[id] = struct{}{}
	}

	voters := make(map[string]map[string]struct{})
	for _, v := range votes {
		if _, ok := candidates[v.ProblemID]; !ok {
			continue
		}
		if voters[v.ProblemID] == nil {
			voters[v.ProblemID] = make(map[string]struct{})
		}
		voters[v.ProblemID][v.UserID] = struct{}{}
	}

	scores := make(map[string]float64, len(voters))
	for id, users := range voters {
		scores[id] = math.Min(float64(len(users))/float64(len(similarUsers)), 1)
	}
	return scores, nil
}

// contentScores averages each candidate's best cached similarity scores against the problems the
// user voted for most recently. Records are read in both directions.
func (c *RecommendProblems) contentScores(
	ctx context.Context,
	userID string,
	candidateIDs []string,
) (map[string]float64, error) {
	voted, err := c.Repository.ListUserVotedProblemIDs(ctx, userID, c.Config.RecentVotesLimit)
	if err != nil {
		return nil, fmt.Errorf("listing voted problems: %w", err)
	}
	if len(voted) == 0 {
		return nil, nil
	}

	fromVoted, err := c.Repository.ListSimilarityRecords(ctx, voted, candidateIDs, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("listing similarity records from voted problems: %w", err)
	}
	toVoted, err := c.Repository.ListSimilarityRecords(ctx, candidateIDs, voted, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("listing similarity records to voted problems: %w", err)
	}

	matches := make(map[string][]float64)
	for _, r := range fromVoted {
		matches[r.ProblemBID] = append(matches[r.ProblemBID], r.Score)
	}
	for _, r := range toVoted {
		matches[r.ProblemAID] = append(matches[r.ProblemAID], r.Score)
	}

	scores := make(map[string]float64, len(matches))
	for id, values := range matches {
		sort.Sort(sort.Reverse(sort.Float64Slice(values)))
		if c.Config.ContentTopMatches > 0 && len(values) > c.Config.ContentTopMatches {
			values = values[:c.Config.ContentTopMatches]
		}
		var sum float64
		for _, v := range values {
			sum += v
		}
		scores[id] = math.Max(0, math.Min(sum/float64(len(values)), 1))
	}
	return scores, nil
}

func (c *RecommendProblems) trendingScores(ctx context.Context, candidateIDs []string) (map[string]float64, error) {
	records, err := c.Repository.ListTrendingRecords(ctx, domain.TrendingFilters{
		FreshAt:    nowFrom(c.Now),
		ProblemIDs: candidateIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("listing trending records: %w", err)
	}

	scores := make(map[string]float64, len(records))
	for _, r := range records {
		scores[r.ProblemID] = normalize(r.TrendingScore, c.Config.TrendingNormalizer)
	}
	return scores, nil
}

// interactionScores sums the user's own interaction weights per problem.
func (c *RecommendProblems) interactionScores(ctx context.Context, userID string) (map[string]float64, error) {
	interactions, err := c.Repository.ListInteractionsByUsers(ctx, []string{userID})
	if err != nil {
		return nil, fmt.Errorf("listing user interactions: %w", err)
	}

	totals := make(map[string]float64)
	for _, i := range interactions {
		totals[i.ProblemID] += i.Weight
	}

	scores := make(map[string]float64, len(totals))
	for id, total := range totals {
		scores[id] = normalize(total, c.Config.InteractionNormalizer)
	}
	return scores, nil
}

// normalize divides v by divisor and clamps the result to [0, 1].
func normalize(v, divisor float64) float64 {
	if divisor <= 0 {
		return 0
	}
	return math.Max(0, math.Min(v/divisor, 1))
}
