package app

import (
	"fmt"
	"os"
	"time"

	"github.com/jbeshir/problem-rankings/internal/command"
	"github.com/jbeshir/problem-rankings/internal/domain"
	"gopkg.in/yaml.v3"
)

// ScoringConfig groups the constants of every ranking computation.
type ScoringConfig struct {
	Trending       command.TrendingConfig       `yaml:"trending"`
	Similarity     command.SimilarityConfig     `yaml:"similarity"`
	Recommendation command.RecommendationConfig `yaml:"recommendation"`
}

func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Trending:       DefaultTrendingConfig(),
		Similarity:     DefaultSimilarityConfig(),
		Recommendation: DefaultRecommendationConfig(),
	}
}

func DefaultTrendingConfig() command.TrendingConfig {
	return command.TrendingConfig{
		MinVotes:   5,
		PoolWindow: 7 * 24 * time.Hour,
		PoolSize:   500,
		VelocityWindows: []domain.VelocityWindow{
			{Hours: 1, Weight: 0.4},
			{Hours: 6, Weight: 0.3},
			{Hours: 24, Weight: 0.2},
			{Hours: 168, Weight: 0.1},
		},
		DecayHalfLifeHours:   48,
		DecayFloor:           0.01,
		EngagementWindow:     24 * time.Hour,
		InteractionWeights:   domain.DefaultInteractionWeights(),
		EngagementNormalizer: 10,
		CategoryWindow:       7 * 24 * time.Hour,
		CategoryBoostDivisor: 100,
		CategoryBoostMax:     1.5,
		Weights: domain.TrendingWeights{
			Velocity:      0.4,
			Engagement:    0.3,
			TimeDecay:     0.2,
			CategoryBoost: 0.1,
		},
		MinScore:     0.1,
		TTL:          time.Hour,
		DefaultLimit: 20,
	}
}

func DefaultSimilarityConfig() command.SimilarityConfig {
	return command.SimilarityConfig{
		CachePeriod:                 time.Hour,
		ContentPoolSize:             200,
		ContentMinScore:             0.1,
		ContentLimit:                20,
		CategoryLimit:               15,
		CategoryBase:                0.7,
		CategoryRatioWeight:         0.3,
		VotingMinShared:             2,
		VotingLimit:                 15,
		InteractionMinShared:        2,
		InteractionLimit:            10,
		InteractionWeightNormalizer: 5,
		Weights: domain.SimilarityWeights{
			domain.SimilarityTypeContent:         0.3,
			domain.SimilarityTypeCategory:        0.25,
			domain.SimilarityTypeVotingPattern:   0.3,
			domain.SimilarityTypeUserInteraction: 0.15,
		},
		DefaultLimit: 10,
	}
}

func DefaultRecommendationConfig() command.RecommendationConfig {
	return command.RecommendationConfig{
		CandidatePoolSize:     200,
		SimilarUsersLimit:     50,
		RecentVotesLimit:      20,
		ContentTopMatches:     10,
		TrendingNormalizer:    100,
		InteractionNormalizer: 10,
		Weights: command.RecommendationWeights{
			Collaborative: 0.3,
			Content:       0.25,
			Trending:      0.2,
			Category:      0.15,
			Interaction:   0.1,
		},
		DiversityLookahead: 10,
		DefaultLimit:       10,
	}
}

// LoadScoringConfig overlays the YAML file at path onto the defaults. Keys absent from the file
// keep their default; an empty path returns the defaults.
func LoadScoringConfig(path string) (ScoringConfig, error) {
	config := DefaultScoringConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ScoringConfig{}, fmt.Errorf("reading scoring config: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return ScoringConfig{}, fmt.Errorf("parsing scoring config %s: %w", path, err)
	}
	return config, nil
}
