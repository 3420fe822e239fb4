package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jbeshir/problem-rankings/internal/domain"
)

var voteColumns = []string{"user_id", "problem_id", "created_at"}

type voteRow struct {
	UserID    string    `db:"user_id"`
	ProblemID string    `db:"problem_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *Repository) selectVotes(ctx context.Context, query string, args []interface{}) ([]domain.Vote, error) {
	var rows []voteRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	votes := make([]domain.Vote, 0, len(rows))
	for _, row := range rows {
		votes = append(votes, domain.Vote{
			UserID:    row.UserID,
			ProblemID: row.ProblemID,
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return votes, nil
}

func (r *Repository) ListVotesForProblems(
	ctx context.Context,
	problemIDs []string,
	since time.Time,
) ([]domain.Vote, error) {
	if len(problemIDs) == 0 {
		return nil, nil
	}

	sb := r.flavor.NewSelectBuilder()
	sb.Select(voteColumns...)
	sb.From("votes")
	sb.Where(
		sb.In("problem_id", stringArgs(problemIDs)...),
		sb.GreaterEqualThan("created_at", since.UTC()),
	)

	query, args := sb.Build()
	votes, err := r.selectVotes(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("listing votes for problems: %w", err)
	}
	return votes, nil
}

func (r *Repository) ListVotesByUsers(ctx context.Context, userIDs []string) ([]domain.Vote, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	sb := r.flavor.NewSelectBuilder()
	sb.Select(voteColumns...)
	sb.From("votes")
	sb.Where(sb.In("user_id", stringArgs(userIDs)...))

	query, args := sb.Build()
	votes, err := r.selectVotes(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("listing votes by users: %w", err)
	}
	return votes, nil
}

func (r *Repository) ListUserVotedProblemIDs(ctx context.Context, userID string, limit int) ([]string, error) {
	sb := r.flavor.NewSelectBuilder()
	sb.Select("problem_id")
	sb.From("votes")
	sb.Where(sb.Equal("user_id", userID))
	sb.OrderBy("created_at DESC", "problem_id")
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("listing voted problems of %s: %w", userID, err)
	}
	return ids, nil
}

type sharedVotesRow struct {
	UserID string `db:"user_id"`
	Shared int    `db:"shared_votes"`
}

func (r *Repository) ListSimilarUsers(ctx context.Context, userID string, limit int) ([]string, error) {
	voted := r.flavor.NewSelectBuilder()
	voted.Select("problem_id")
	voted.From("votes")
	voted.Where(voted.Equal("user_id", userID))

	sb := r.flavor.NewSelectBuilder()
	sb.Select("user_id", sb.As("COUNT(*)", "shared_votes"))
	sb.From("votes")
	sb.Where(
		sb.In("problem_id", voted),
		sb.NotEqual("user_id", userID),
	)
	sb.GroupBy("user_id")
	sb.OrderBy("shared_votes DESC", "user_id")
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()

	var rows []sharedVotesRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing users similar to %s: %w", userID, err)
	}

	users := make([]string, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.UserID)
	}
	return users, nil
}

var interactionColumns = []string{
	"user_id", "problem_id", "interaction_type", "weight", "interaction_count", "last_interaction",
}

type interactionRow struct {
	UserID          string    `db:"user_id"`
	ProblemID       string    `db:"problem_id"`
	Type            string    `db:"interaction_type"`
	Weight          float64   `db:"weight"`
	Count           int       `db:"interaction_count"`
	LastInteraction time.Time `db:"last_interaction"`
}

func (r *Repository) selectInteractions(
	ctx context.Context,
	query string,
	args []interface{},
) ([]domain.Interaction, error) {
	var rows []interactionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	interactions := make([]domain.Interaction, 0, len(rows))
	for _, row := range rows {
		interactions = append(interactions, domain.Interaction{
			UserID:          row.UserID,
			ProblemID:       row.ProblemID,
			Type:            domain.InteractionType(row.Type),
			Weight:          row.Weight,
			Count:           row.Count,
			LastInteraction: row.LastInteraction.UTC(),
		})
	}
	return interactions, nil
}

func (r *Repository) ListInteractionsForProblems(
	ctx context.Context,
	problemIDs []string,
	since time.Time,
) ([]domain.Interaction, error) {
	if len(problemIDs) == 0 {
		return nil, nil
	}

	sb := r.flavor.NewSelectBuilder()
	sb.Select(interactionColumns...)
	sb.From("user_interactions")
	sb.Where(
		sb.In("problem_id", stringArgs(problemIDs)...),
		sb.GreaterEqualThan("last_interaction", since.UTC()),
	)

	query, args := sb.Build()
	interactions, err := r.selectInteractions(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("listing interactions for problems: %w", err)
	}
	return interactions, nil
}

func (r *Repository) ListInteractionsByUsers(ctx context.Context, userIDs []string) ([]domain.Interaction, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	sb := r.flavor.NewSelectBuilder()
	sb.Select(interactionColumns...)
	sb.From("user_interactions")
	sb.Where(sb.In("user_id", stringArgs(userIDs)...))

	query, args := sb.Build()
	interactions, err := r.selectInteractions(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("listing interactions by users: %w", err)
	}
	return interactions, nil
}
