package datasources

import (
	"context"
	"time"

	"github.com/jbeshir/problem-rankings/internal/domain"
)

type TrendingCacheRepository interface {
	TrendingRecordLister
	TrendingRecordWriter
}

// TrendingRecordLister lists records still fresh at filters.FreshAt, highest score first.
type TrendingRecordLister interface {
	ListTrendingRecords(ctx context.Context, filters domain.TrendingFilters) ([]domain.TrendingRecord, error)
}

// TrendingRecordWriter replaces cached trending records keyed by problem ID.
type TrendingRecordWriter interface {
	UpsertTrendingRecords(ctx context.Context, records []domain.TrendingRecord) error
	DeleteTrendingRecordsExpiredBefore(ctx context.Context, before time.Time) error
}

type SimilarityCacheRepository interface {
	SimilarityRecordLister
	SimilarityRecordWriter
}

// SimilarityRecordLister lists records with problem_a_id in problemAIDs, restricted to
// problemBIDs when non-empty, calculated at or after calculatedAfter.
type SimilarityRecordLister interface {
	ListSimilarityRecords(
		ctx context.Context,
		problemAIDs, problemBIDs []string,
		calculatedAfter time.Time,
	) ([]domain.SimilarityRecord, error)
}

// SimilarityRecordWriter upserts records keyed by (problem_a_id, problem_b_id, similarity_type).
type SimilarityRecordWriter interface {
	UpsertSimilarityRecords(ctx context.Context, records []domain.SimilarityRecord) error
}

type UserPreferencesRepository interface {
	UserPreferencesGetter
	UserPreferencesWriter
}

// UserPreferencesGetter returns ErrNotFound when the user has no stored preferences.
type UserPreferencesGetter interface {
	GetUserPreferences(ctx context.Context, userID string) (domain.UserPreferences, error)
}

type UserPreferencesWriter interface {
	UpsertUserPreferences(ctx context.Context, prefs domain.UserPreferences) error
}
