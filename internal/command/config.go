package command

import (
	"time"

	"github.com/jbeshir/problem-rankings/internal/domain"
)

// TrendingConfig holds the constants of the trending computation.
type TrendingConfig struct {
	// MinVotes, PoolWindow and PoolSize select the candidate pool: problems with at least
	// MinVotes votes updated within PoolWindow, newest-updated first, at most PoolSize.
	MinVotes   int           `yaml:"min_votes"`
	PoolWindow time.Duration `yaml:"pool_window"`
	PoolSize   int           `yaml:"pool_size"`

	VelocityWindows []domain.VelocityWindow `yaml:"velocity_windows"`

	DecayHalfLifeHours float64 `yaml:"decay_half_life_hours"`
	DecayFloor         float64 `yaml:"decay_floor"`

	EngagementWindow     time.Duration                      `yaml:"engagement_window"`
	InteractionWeights   map[domain.InteractionType]float64 `yaml:"interaction_weights"`
	EngagementNormalizer float64                            `yaml:"engagement_normalizer"`

	CategoryWindow       time.Duration `yaml:"category_window"`
	CategoryBoostDivisor float64       `yaml:"category_boost_divisor"`
	CategoryBoostMax     float64       `yaml:"category_boost_max"`

	Weights domain.TrendingWeights `yaml:"weights"`

	// Scores at or below MinScore are not cached.
	MinScore float64       `yaml:"min_score"`
	TTL      time.Duration `yaml:"ttl"`

	DefaultLimit int `yaml:"default_limit"`
}

// SimilarityConfig holds the constants of the related-problems computation.
type SimilarityConfig struct {
	CachePeriod time.Duration `yaml:"cache_period"`

	ContentPoolSize int     `yaml:"content_pool_size"`
	ContentMinScore float64 `yaml:"content_min_score"`
	ContentLimit    int     `yaml:"content_limit"`

	CategoryLimit       int     `yaml:"category_limit"`
	CategoryBase        float64 `yaml:"category_base"`
	CategoryRatioWeight float64 `yaml:"category_ratio_weight"`

	VotingMinShared int `yaml:"voting_min_shared"`
	VotingLimit     int `yaml:"voting_limit"`

	InteractionMinShared        int     `yaml:"interaction_min_shared"`
	InteractionLimit            int     `yaml:"interaction_limit"`
	InteractionWeightNormalizer float64 `yaml:"interaction_weight_normalizer"`

	Weights domain.SimilarityWeights `yaml:"weights"`

	DefaultLimit int `yaml:"default_limit"`
}

// RecommendationWeights weight the personal recommendation signals.
type RecommendationWeights struct {
	Collaborative float64 `yaml:"collaborative"`
	Content       float64 `yaml:"content"`
	Trending      float64 `yaml:"trending"`
	Category      float64 `yaml:"category"`
	Interaction   float64 `yaml:"interaction"`
}

// RecommendationConfig holds the constants of personal recommendations.
type RecommendationConfig struct {
	CandidatePoolSize int `yaml:"candidate_pool_size"`
	SimilarUsersLimit int `yaml:"similar_users_limit"`

	// RecentVotesLimit is how many of the user's latest votes seed the content signal, and
	// ContentTopMatches how many of a candidate's best matches against them are averaged.
	RecentVotesLimit  int `yaml:"recent_votes_limit"`
	ContentTopMatches int `yaml:"content_top_matches"`

	TrendingNormalizer    float64 `yaml:"trending_normalizer"`
	InteractionNormalizer float64 `yaml:"interaction_normalizer"`

	Weights RecommendationWeights `yaml:"weights"`

	DiversityLookahead int `yaml:"diversity_lookahead"`

	DefaultLimit int `yaml:"default_limit"`
}
