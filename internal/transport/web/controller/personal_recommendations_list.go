package controller

import (
	"net/http"
	"time"

	"github.com/jbeshir/problem-rankings/internal/command"
	"github.com/jbeshir/problem-rankings/internal/domain"
)

type PersonalRecommendationsList struct {
	Command command.Command[command.RecommendProblemsRequest, command.RecommendProblemsResult]
	Now     func() time.Time
}

type RecommendedProblemResponse struct {
	domain.Problem
	RecommendationScore float64                         `json:"recommendation_score"`
	Breakdown           command.RecommendationBreakdown `json:"breakdown"`
}

type PersonalRecommendationsMetadata struct {
	Count           int                    `json:"count"`
	CandidateCount  int                    `json:"candidate_count"`
	DegradedSignals []string               `json:"degraded_signals,omitempty"`
	Preferences     domain.UserPreferences `json:"preferences"`
	GeneratedAt     time.Time              `json:"generated_at"`
}

func (c PersonalRecommendationsList) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := domain.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, r, http.StatusUnauthorized, "authentication required", nil)
		return
	}

	limit, err := parseLimit(r.URL.Query())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid limit", err)
		return
	}

	result, err := c.Command.Execute(r.Context(), command.RecommendProblemsRequest{UserID: userID, Limit: limit})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "unable to generate recommendations", err)
		return
	}

	data := make([]RecommendedProblemResponse, 0, len(result.Recommendations))
	for _, rec := range result.Recommendations {
		data = append(data, RecommendedProblemResponse{
			Problem:             rec.Problem,
			RecommendationScore: rec.Score,
			Breakdown:           rec.Breakdown,
		})
	}

	setCacheControl(w, 0)
	writeJSON(w, r, http.StatusOK, data, PersonalRecommendationsMetadata{
		Count:           len(data),
		CandidateCount:  result.CandidateCount,
		DegradedSignals: result.DegradedSignals,
		Preferences:     result.Preferences,
		GeneratedAt:     now(c.Now),
	})
}
