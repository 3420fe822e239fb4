package datasources

import (
	"context"
	"errors"
	"time"

	"github.com/jbeshir/problem-rankings/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Repository combines every datastore capability the service needs.
type Repository interface {
	ProblemRepository
	VoteRepository
	InteractionRepository
	TrendingCacheRepository
	SimilarityCacheRepository
	UserPreferencesRepository
}

type ProblemRepository interface {
	ProblemGetter
	ProblemFetcher
	ProblemLister
	CategoryVoteAverager
}

// ProblemGetter returns ErrNotFound when the problem does not exist.
type ProblemGetter interface {
	GetProblem(ctx context.Context, id string) (domain.Problem, error)
}

// ProblemFetcher returns the problems that exist, in the order of ids.
type ProblemFetcher interface {
	FetchProblemsByID(ctx context.Context, ids []string) ([]domain.Problem, error)
}

type ProblemLister interface {
	ListProblems(
		ctx context.Context,
		filters domain.ProblemFilters,
		options domain.ProblemListOptions,
	) ([]domain.Problem, error)
}

// CategoryVoteAverager returns the average vote count per category over problems created after
// createdAfter. Categories without such problems are absent.
type CategoryVoteAverager interface {
	AverageCategoryVotes(ctx context.Context, createdAfter time.Time) (map[string]float64, error)
}

type VoteRepository interface {
	ProblemVoteLister
	UserVoteLister
	UserVotedProblemsLister
	SimilarUsersLister
}

// ProblemVoteLister lists votes cast on any of problemIDs at or after since.
type ProblemVoteLister interface {
	ListVotesForProblems(ctx context.Context, problemIDs []string, since time.Time) ([]domain.Vote, error)
}

// UserVoteLister lists every vote cast by any of userIDs.
type UserVoteLister interface {
	ListVotesByUsers(ctx context.Context, userIDs []string) ([]domain.Vote, error)
}

// UserVotedProblemsLister lists the problems a user voted for, most recent vote first.
type UserVotedProblemsLister interface {
	ListUserVotedProblemIDs(ctx context.Context, userID string, limit int) ([]string, error)
}

// SimilarUsersLister lists the users sharing the most votes with userID, best first.
type SimilarUsersLister interface {
	ListSimilarUsers(ctx context.Context, userID string, limit int) ([]string, error)
}

type InteractionRepository interface {
	ProblemInteractionLister
	UserInteractionLister
}

// ProblemInteractionLister lists interactions with any of problemIDs last touched at or after since.
type ProblemInteractionLister interface {
	ListInteractionsForProblems(
		ctx context.Context,
		problemIDs []string,
		since time.Time,
	) ([]domain.Interaction, error)
}

// UserInteractionLister lists every interaction of any of userIDs.
type UserInteractionLister interface {
	ListInteractionsByUsers(ctx context.Context, userIDs []string) ([]domain.Interaction, error)
}
