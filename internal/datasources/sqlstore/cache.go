package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jbeshir/problem-rankings/internal/datasources"
	"github.com/jbeshir/problem-rankings/internal/domain"
)

// upsertBatchSize keeps multi-row inserts under every dialect's placeholder limit.
const upsertBatchSize = 200

// upsertSuffix returns the dialect's clause turning an insert into an upsert on keys.
func (r *Repository) upsertSuffix(keys, updated []string) string {
	sets := make([]string, 0, len(updated))
	if r.flavor == sqlbuilder.MySQL {
		for _, col := range updated {
			sets = append(sets, col+" = VALUES("+col+")")
		}
		return "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}

	for _, col := range updated {
		sets = append(sets, col+" = excluded."+col)
	}
	return "ON CONFLICT (" + strings.Join(keys, ", ") + ") DO UPDATE SET " + strings.Join(sets, ", ")
}

var trendingColumns = []string{
	"problem_id", "trending_score", "vote_velocity", "engagement_score",
	"time_decay_factor", "category_boost", "calculated_at", "expires_at",
}

type trendingRow struct {
	ProblemID       string    `db:"problem_id"`
	TrendingScore   float64   `db:"trending_score"`
	VoteVelocity    float64   `db:"vote_velocity"`
	EngagementScore float64   `db:"engagement_score"`
	TimeDecayFactor float64   `db:"time_decay_factor"`
	CategoryBoost   float64   `db:"category_boost"`
	CalculatedAt    time.Time `db:"calculated_at"`
	ExpiresAt       time.Time `db:"expires_at"`
}

func (r *Repository) ListTrendingRecords(
	ctx context.Context,
	filters domain.TrendingFilters,
) ([]domain.TrendingRecord, error) {
	sb := r.flavor.NewSelectBuilder()
	sb.Select(trendingColumns...)
	sb.From("trending_cache")

	conds := []string{sb.GreaterThan("expires_at", filters.FreshAt.UTC())}

	if len(filters.ProblemIDs) > 0 {
		conds = append(conds, sb.In("problem_id", stringArgs(filters.ProblemIDs)...))
	}

	if filters.CategoryID != "" {
		inCategory := r.flavor.NewSelectBuilder()
		inCategory.Select("id")
		inCategory.From("problems")
		inCategory.Where(inCategory.Equal("category_id", filters.CategoryID))
		conds = append(conds, sb.In("problem_id", inCategory))
	}

	sb.Where(conds...)
	sb.OrderBy("trending_score DESC", "problem_id")
	if filters.Limit > 0 {
		sb.Limit(filters.Limit)
	}

	query, args := sb.Build()

	var rows []trendingRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing trending records: %w", err)
	}

	records := make([]domain.TrendingRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, domain.TrendingRecord{
			ProblemID:       row.ProblemID,
			TrendingScore:   row.TrendingScore,
			VoteVelocity:    row.VoteVelocity,
			EngagementScore: row.EngagementScore,
			TimeDecayFactor: row.TimeDecayFactor,
			CategoryBoost:   row.CategoryBoost,
			CalculatedAt:    row.CalculatedAt.UTC(),
			ExpiresAt:       row.ExpiresAt.UTC(),
		})
	}
	return records, nil
}

func (r *Repository) UpsertTrendingRecords(ctx context.Context, records []domain.TrendingRecord) error {
	// A single statement may not touch the same key twice, so keep the last record per problem.
	latest := make(map[string]int, len(records))
	var unique []domain.TrendingRecord
	for _, rec := range records {
		if i, ok := latest[rec.ProblemID]; ok {
			unique[i] = rec
			continue
		}
		latest[rec.ProblemID] = len(unique)
		unique = append(unique, rec)
	}

	suffix := r.upsertSuffix([]string{"problem_id"}, trendingColumns[1:])
	for start := 0; start < len(unique); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(unique))

		ib := r.flavor.NewInsertBuilder()
		ib.InsertInto("trending_cache")
		ib.Cols(trendingColumns...)
		for _, rec := range unique[start:end] {
			ib.Values(
				rec.ProblemID, rec.TrendingScore, rec.VoteVelocity, rec.EngagementScore,
				rec.TimeDecayFactor, rec.CategoryBoost, rec.CalculatedAt.UTC(), rec.ExpiresAt.UTC(),
			)
		}
		ib.SQL(suffix)

		query, args := ib.Build()
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upserting trending records: %w", err)
		}
	}
	return nil
}

func (r *Repository) DeleteTrendingRecordsExpiredBefore(ctx context.Context, before time.Time) error {
	del := r.flavor.NewDeleteBuilder()
	del.DeleteFrom("trending_cache")
	del.Where(del.LessThan("expires_at", before.UTC()))

	query, args := del.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting expired trending records: %w", err)
	}
	return nil
}

var similarityColumns = []string{
	"problem_a_id", "problem_b_id", "similarity_type", "similarity_score", "calculated_at",
}

type similarityRow struct {
	ProblemAID   string    `db:"problem_a_id"`
	ProblemBID   string    `db:"problem_b_id"`
	Type         string    `db:"similarity_type"`
	Score        float64   `db:"similarity_score"`
	CalculatedAt time.Time `db:"calculated_at"`
}

func (r *Repository) ListSimilarityRecords(
	ctx context.Context,
	problemAIDs, problemBIDs []string,
	calculatedAfter time.Time,
) ([]domain.SimilarityRecord, error) {
	if len(problemAIDs) == 0 {
		return nil, nil
	}

	sb := r.flavor.NewSelectBuilder()
	sb.Select(similarityColumns...)
	sb.From("problem_similarities")

	conds := []string{
		sb.In("problem_a_id", stringArgs(problemAIDs)...),
		sb.GreaterEqualThan("calculated_at", calculatedAfter.UTC()),
	}
	if len(problemBIDs) > 0 {
		conds = append(conds, sb.In("problem_b_id", stringArgs(problemBIDs)...))
	}
	sb.Where(conds...)
	sb.OrderBy("problem_a_id", "problem_b_id", "similarity_type")

	query, args := sb.Build()

	var rows []similarityRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing similarity records: %w", err)
	}

	records := make([]domain.SimilarityRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, domain.SimilarityRecord{
			ProblemAID:   row.ProblemAID,
			ProblemBID:   row.ProblemBID,
			Type:         domain.SimilarityType(row.Type),
			Score:        row.Score,
			CalculatedAt: row.CalculatedAt.UTC(),
		})
	}
	return records, nil
}

func (r *Repository) UpsertSimilarityRecords(ctx context.Context, records []domain.SimilarityRecord) error {
	type key struct {
		a, b string
		typ  domain.SimilarityType
	}
	latest := make(map[key]int, len(records))
	var unique []domain.SimilarityRecord
	for _, rec := range records {
		k := key{rec.ProblemAID, rec.ProblemBID, rec.Type}
		if i, ok := latest[k]; ok {
			unique[i] = rec
			continue
		}
		latest[k] = len(unique)
		unique = append(unique, rec)
	}

	suffix := r.upsertSuffix(similarityColumns[:3], similarityColumns[3:])
	for start := 0; start < len(unique); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(unique))

		ib := r.flavor.NewInsertBuilder()
		ib.InsertInto("problem_similarities")
		ib.Cols(similarityColumns...)
		for _, rec := range unique[start:end] {
			ib.Values(rec.ProblemAID, rec.ProblemBID, string(rec.Type), rec.Score, rec.CalculatedAt.UTC())
		}
		ib.SQL(suffix)

		query, args := ib.Build()
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upserting similarity records: %w", err)
		}
	}
	return nil
}

var preferencesColumns = []string{
	"user_id", "category_weights", "interaction_weights", "diversity_preference",
	"trending_preference", "exclude_categories", "min_vote_threshold",
}

type preferencesRow struct {
	UserID              string  `db:"user_id"`
	CategoryWeights     string  `db:"category_weights"`
	InteractionWeights  string  `db:"interaction_weights"`
	DiversityPreference float64 `db:"diversity_preference"`
	TrendingPreference  float64 `db:"trending_preference"`
	ExcludeCategories   string  `db:"exclude_categories"`
	MinVoteThreshold    int     `db:"min_vote_threshold"`
}

func (r *Repository) GetUserPreferences(ctx context.Context, userID string) (domain.UserPreferences, error) {
	sb := r.flavor.NewSelectBuilder()
	sb.Select(preferencesColumns...)
	sb.From("user_recommendation_preferences")
	sb.Where(sb.Equal("user_id", userID))

	query, args := sb.Build()

	var row preferencesRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.UserPreferences{}, fmt.Errorf("preferences for %s: %w", userID, datasources.ErrNotFound)
		}
		return domain.UserPreferences{}, fmt.Errorf("fetching preferences for %s: %w", userID, err)
	}

	prefs := domain.UserPreferences{
		UserID:              row.UserID,
		DiversityPreference: row.DiversityPreference,
		TrendingPreference:  row.TrendingPreference,
		MinVoteThreshold:    row.MinVoteThreshold,
	}
	if err := unmarshalColumn(row.CategoryWeights, &prefs.CategoryWeights); err != nil {
		return domain.UserPreferences{}, fmt.Errorf("decoding category weights of %s: %w", userID, err)
	}
	if err := unmarshalColumn(row.InteractionWeights, &prefs.InteractionWeights); err != nil {
		return domain.UserPreferences{}, fmt.Errorf("decoding interaction weights of %s: %w", userID, err)
	}
	if err := unmarshalColumn(row.ExcludeCategories, &prefs.ExcludeCategories); err != nil {
		return domain.UserPreferences{}, fmt.Errorf("decoding excluded categories of %s: %w", userID, err)
	}
	return prefs, nil
}

func (r *Repository) UpsertUserPreferences(ctx context.Context, prefs domain.UserPreferences) error {
	categoryWeights, err := marshalColumn(prefs.CategoryWeights, "{}")
	if err != nil {
		return fmt.Errorf("encoding category weights: %w", err)
	}
	interactionWeights, err := marshalColumn(prefs.InteractionWeights, "{}")
	if err != nil {
		return fmt.Errorf("encoding interaction weights: %w", err)
	}
	excludeCategories, err := marshalColumn(prefs.ExcludeCategories, "[]")
	if err != nil {
		return fmt.Errorf("encoding excluded categories: %w", err)
	}

	ib := r.flavor.NewInsertBuilder()
	ib.InsertInto("user_recommendation_preferences")
	ib.Cols(preferencesColumns...)
	ib.Values(
		prefs.UserID, categoryWeights, interactionWeights, prefs.DiversityPreference,
		prefs.TrendingPreference, excludeCategories, prefs.MinVoteThreshold,
	)
	ib.SQL(r.upsertSuffix(preferencesColumns[:1], preferencesColumns[1:]))

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting preferences for %s: %w", prefs.UserID, err)
	}
	return nil
}

func marshalColumn[T any](v T, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

func unmarshalColumn[T any](s string, dst *T) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), dst)
}
