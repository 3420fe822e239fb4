package domain

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
)

type SimilarityType string

const (
	SimilarityTypeContent         SimilarityType = "content"
	SimilarityTypeCategory        SimilarityType = "category"
	SimilarityTypeVotingPattern   SimilarityType = "voting_pattern"
	SimilarityTypeUserInteraction SimilarityType = "user_interaction"
)

// SimilarityRecord is one cached signal score between two problems.
// There is at most one record per (ProblemAID, ProblemBID, Type).
type SimilarityRecord struct {
	ProblemAID   string         `json:"problem_a_id"`
	ProblemBID   string         `json:"problem_b_id"`
	Score        float64        `json:"similarity_score"`
	Type         SimilarityType `json:"similarity_type"`
	CalculatedAt time.Time      `json:"calculated_at"`
}

// SimilarityWeights weight each signal type in the hybrid score.
type SimilarityWeights map[SimilarityType]float64

// ScoredProblem is a problem ID with its hybrid score and the signal scores it was built from.
type ScoredProblem struct {
	ProblemID string                     `json:"problem_id"`
	Score     float64                    `json:"score"`
	Breakdown map[SimilarityType]float64 `json:"breakdown"`
}

var nonWordPattern = regexp.MustCompile(`\W+`)

// Tokenize lowercases text, splits it on non-word characters and keeps the distinct tokens
// longer than two characters.
func Tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range nonWordPattern.Split(strings.ToLower(text), -1) {
		if len(tok) > 2 {
			tokens[tok] = struct{}{}
		}
	}
	return tokens
}

// Jaccard returns |a∩b| / |a∪b|. Two empty sets have similarity 0.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}

	intersection := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// VoteRatio is the symmetric ratio min(a/b, b/a), 1 when both are zero.
func VoteRatio(a, b int) float64 {
	if a <= 0 && b <= 0 {
		return 1
	}
	if a <= 0 || b <= 0 {
		return 0
	}
	return math.Min(float64(a)/float64(b), float64(b)/float64(a))
}

// CombineSimilarity is the weighted average of the present signal scores, normalized by the sum
// of the weights of those signals. It reports false when no weighted signal is present.
func CombineSimilarity(scores map[SimilarityType]float64, weights SimilarityWeights) (float64, bool) {
	var weighted, totalWeight float64
	for typ, score := range scores {
		w := weights[typ]
		if w <= 0 {
			continue
		}
		weighted += clamp01(score) * w
		totalWeight += w
	}

	if totalWeight == 0 {
		return 0, false
	}
	return clamp01(weighted / totalWeight), true
}

// RankBySimilarity groups records by candidate problem, combines each candidate's signals and
// returns them sorted by descending score (ties by ID) truncated to limit. limit <= 0 means no limit.
func RankBySimilarity(records []SimilarityRecord, weights SimilarityWeights, limit int) []ScoredProblem {
	byProblem := make(map[string]map[SimilarityType]float64)
	for _, r := range records {
		scores, ok := byProblem[r.ProblemBID]
		if !ok {
			scores = make(map[SimilarityType]float64)
			byProblem[r.ProblemBID] = scores
		}
		if existing, ok := scores[r.Type]; !ok || r.Score > existing {
			scores[r.Type] = r.Score
		}
	}

	ranked := make([]ScoredProblem, 0, len(byProblem))
	for id, scores := range byProblem {
		score, ok := CombineSimilarity(scores, weights)
		if !ok {
			continue
		}
		ranked = append(ranked, ScoredProblem{ProblemID: id, Score: score, Breakdown: scores})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ProblemID < ranked[j].ProblemID
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(v, 1))
}
