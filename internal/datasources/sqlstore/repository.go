package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jbeshir/problem-rankings/internal/datasources"
	"github.com/jbeshir/problem-rankings/internal/domain"
	"github.com/jmoiron/sqlx"
)

var _ datasources.Repository = (*Repository)(nil)

type Repository struct {
	db     *sqlx.DB
	flavor sqlbuilder.Flavor
}

func New(db *sqlx.DB, flavor sqlbuilder.Flavor) *Repository {
	return &Repository{db: db, flavor: flavor}
}

func (r *Repository) Close() error {
	return r.db.Close()
}

var problemColumns = []string{
	"id", "title", "description", "category_id", "vote_count",
	"proposer_id", "status", "created_at", "updated_at",
}

type problemRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Description sql.NullString `db:"description"`
	CategoryID  sql.NullString `db:"category_id"`
	VoteCount   int            `db:"vote_count"`
	ProposerID  sql.NullString `db:"proposer_id"`
	Status      string         `db:"status"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (row problemRow) toDomain() domain.Problem {
	return domain.Problem{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description.String,
		CategoryID:  row.CategoryID.String,
		VoteCount:   row.VoteCount,
		ProposerID:  row.ProposerID.String,
		Status:      domain.ProblemStatus(row.Status),
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

func (r *Repository) GetProblem(ctx context.Context, id string) (domain.Problem, error) {
	sb := r.flavor.NewSelectBuilder()
	sb.Select(problemColumns...)
	sb.From("problems")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var row problemRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Problem{}, fmt.Errorf("problem %s: %w", id, datasources.ErrNotFound)
		}
		return domain.Problem{}, fmt.Errorf("fetching problem %s: %w", id, err)
	}
	return row.toDomain(), nil
}

func (r *Repository) FetchProblemsByID(ctx context.Context, ids []string) ([]domain.Problem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	sb := r.flavor.NewSelectBuilder()
	sb.Select(problemColumns...)
	sb.From("problems")
	sb.Where(sb.In("id", stringArgs(ids)...))

	query, args := sb.Build()

	var rows []problemRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("fetching problems by ID: %w", err)
	}

	byID := make(map[string]domain.Problem, len(rows))
	for _, row := range rows {
		byID[row.ID] = row.toDomain()
	}

	// Build results in the same order as the input IDs
	problems := make([]domain.Problem, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			problems = append(problems, p)
		}
	}
	return problems, nil
}

func (r *Repository) ListProblems(
	ctx context.Context,
	filters domain.ProblemFilters,
	options domain.ProblemListOptions,
) ([]domain.Problem, error) {
	sb := r.flavor.NewSelectBuilder()
	sb.Select(problemColumns...)
	sb.From("problems")

	conds := r.buildProblemConditions(sb, filters)
	if len(conds) > 0 {
		sb.Where(conds...)
	}

	ordering, err := buildProblemOrder(options)
	if err != nil {
		return nil, fmt.Errorf("building problems order by clause: %w", err)
	}
	sb.OrderBy(ordering, "id")

	if options.Limit > 0 {
		sb.Limit(options.Limit)
	}

	query, args := sb.Build()

	var rows []problemRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("running problems query: %w", err)
	}

	problems := make([]domain.Problem, 0, len(rows))
	for _, row := range rows {
		problems = append(problems, row.toDomain())
	}
	return problems, nil
}

func (r *Repository) buildProblemConditions(sb *sqlbuilder.SelectBuilder, filters domain.ProblemFilters) []string {
	var conds []string

	if len(filters.IDs) > 0 {
		conds = append(conds, sb.In("id", stringArgs(filters.IDs)...))
	}

	if len(filters.ExcludeIDs) > 0 {
		conds = append(conds, sb.NotIn("id", stringArgs(filters.ExcludeIDs)...))
	}

	if len(filters.Statuses) > 0 {
		statuses := make([]interface{}, 0, len(filters.Statuses))
		for _, s := range filters.Statuses {
			statuses = append(statuses, string(s))
		}
		conds = append(conds, sb.In("status", statuses...))
	}

	if filters.CategoryID != "" {
		conds = append(conds, sb.Equal("category_id", filters.CategoryID))
	}

	if len(filters.ExcludeCategories) > 0 {
		// NOT IN alone would drop uncategorised problems.
		conds = append(conds, sb.Or(
			sb.IsNull("category_id"),
			sb.NotIn("category_id", stringArgs(filters.ExcludeCategories)...),
		))
	}

	if filters.MinVotes > 0 {
		conds = append(conds, sb.GreaterEqualThan("vote_count", filters.MinVotes))
	}

	if !filters.UpdatedAfter.IsZero() {
		conds = append(conds, sb.GreaterEqualThan("updated_at", filters.UpdatedAfter.UTC()))
	}

	if filters.ExcludeProposerID != "" {
		conds = append(conds, sb.Or(
			sb.IsNull("proposer_id"),
			sb.NotEqual("proposer_id", filters.ExcludeProposerID),
		))
	}

	if filters.ExcludeVotedBy != "" {
		voted := r.flavor.NewSelectBuilder()
		voted.Select("problem_id")
		voted.From("votes")
		voted.Where(voted.Equal("user_id", filters.ExcludeVotedBy))
		conds = append(conds, sb.NotIn("id", voted))
	}

	return conds
}

func buildProblemOrder(options domain.ProblemListOptions) (string, error) {
	switch options.OrderBy {
	case "", domain.ProblemOrderingFieldCreatedAt:
		return "created_at DESC", nil
	case domain.ProblemOrderingFieldUpdatedAt:
		return "updated_at DESC", nil
	case domain.ProblemOrderingFieldVoteCount:
		return "vote_count DESC", nil
	default:
		return "", fmt.Errorf("unknown ordering field: %s", options.OrderBy)
	}
}

type categoryAverageRow struct {
	CategoryID sql.NullString `db:"category_id"`
	Average    float64        `db:"average_votes"`
}

func (r *Repository) AverageCategoryVotes(ctx context.Context, createdAfter time.Time) (map[string]float64, error) {
	sb := r.flavor.NewSelectBuilder()
	sb.Select("category_id", sb.As("AVG(vote_count)", "average_votes"))
	sb.From("problems")
	sb.Where(sb.GreaterEqualThan("created_at", createdAfter.UTC()))
	sb.GroupBy("category_id")

	query, args := sb.Build()

	var rows []categoryAverageRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("averaging category votes: %w", err)
	}

	averages := make(map[string]float64, len(rows))
	for _, row := range rows {
		if !row.CategoryID.Valid {
			continue
		}
		averages[row.CategoryID.String] = row.Average
	}
	return averages, nil
}

func stringArgs(values []string) []interface{} {
	args := make([]interface{}, 0, len(values))
	for _, v := range values {
		args = append(args, v)
	}
	return args
}
