package domain

import (
	"math"
	"time"
)

// TrendingRecord is the cached trending computation for one problem.
type TrendingRecord struct {
	ProblemID       string    `json:"problem_id"`
	TrendingScore   float64   `json:"trending_score"`
	VoteVelocity    float64   `json:"vote_velocity"`
	EngagementScore float64   `json:"engagement_score"`
	TimeDecayFactor float64   `json:"time_decay_factor"`
	CategoryBoost   float64   `json:"category_boost"`
	CalculatedAt    time.Time `json:"calculated_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// IsFresh reports whether the record may still be served at the given instant.
func (r TrendingRecord) IsFresh(at time.Time) bool {
	return at.Before(r.ExpiresAt)
}

// TrendingFilters select cached trending records. Zero values mean no restriction, except
// FreshAt which must be set.
type TrendingFilters struct {
	FreshAt    time.Time
	CategoryID string
	ProblemIDs []string
	Limit      int
}

// VelocityWindow is a look-back window used for vote velocity.
type VelocityWindow struct {
	Hours  float64 `yaml:"hours"`
	Weight float64 `yaml:"weight"`
}

// TimeDecay returns 0.5^(ageHours/halfLifeHours), floored at floor.
// Negative ages are treated as zero so the result never exceeds 1.
func TimeDecay(ageHours, halfLifeHours, floor float64) float64 {
	if ageHours < 0 {
		ageHours = 0
	}
	decay := math.Pow(0.5, ageHours/halfLifeHours)
	return math.Max(decay, floor)
}

// VoteVelocity is the weighted average of votes-per-hour across the given windows.
// Votes with timestamps after now are counted in every window.
func VoteVelocity(voteTimes []time.Time, windows []VelocityWindow, now time.Time) float64 {
	var weighted, totalWeight float64
	for _, w := range windows {
		if w.Hours <= 0 {
			continue
		}
		since := now.Add(-time.Duration(w.Hours * float64(time.Hour)))
		count := 0
		for _, t := range voteTimes {
			if !t.Before(since) {
				count++
			}
		}
		weighted += w.Weight * (float64(count) / w.Hours)
		totalWeight += w.Weight
	}

	if totalWeight == 0 {
		return 0
	}
	return weighted / totalWeight
}

// EngagementScore sums interaction counts weighted by type, divided by normalizer and capped at 1.
// Types without a configured weight contribute nothing.
func EngagementScore(
	interactions []Interaction,
	typeWeights map[InteractionType]float64,
	normalizer float64,
) float64 {
	if normalizer <= 0 {
		return 0
	}

	var total float64
	for _, i := range interactions {
		total += float64(i.Count) * typeWeights[i.Type]
	}
	return math.Min(total/normalizer, 1)
}

// CategoryBoost maps the recent average vote count of a category onto [1, maxBoost].
func CategoryBoost(avgVotes, divisor, maxBoost float64) float64 {
	if avgVotes <= 0 || divisor <= 0 {
		return 1
	}
	return math.Min(1+avgVotes/divisor, maxBoost)
}

// TrendingFactors are the per-problem inputs to CombineTrendingScore.
type TrendingFactors struct {
	VoteVelocity    float64
	EngagementScore float64
	TimeDecayFactor float64
	CategoryBoost   float64
	TotalVotes      int
}

// TrendingWeights weight the factors in the base trending score.
type TrendingWeights struct {
	Velocity      float64 `yaml:"velocity"`
	Engagement    float64 `yaml:"engagement"`
	TimeDecay     float64 `yaml:"time_decay"`
	CategoryBoost float64 `yaml:"category_boost"`
}

// CombineTrendingScore blends the factors, adds a log-scaled vote bonus and scales to 0-100ish.
// The result is never negative.
func CombineTrendingScore(f TrendingFactors, w TrendingWeights) float64 {
	base := f.VoteVelocity*w.Velocity +
		f.EngagementScore*w.Engagement +
		f.TimeDecayFactor*w.TimeDecay +
		f.CategoryBoost*w.CategoryBoost

	voteBonus := math.Log10(math.Max(float64(f.TotalVotes), 1)) / 3

	return math.Max((base+voteBonus)*100, 0)
}
