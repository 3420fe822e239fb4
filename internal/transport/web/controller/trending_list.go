package controller

import (
	"net/http"
	"time"

	"github.com/jbeshir/problem-rankings/internal/command"
	"github.com/jbeshir/problem-rankings/internal/domain"
)

type TrendingList struct {
	Command     command.Command[command.ListTrendingRequest, command.ListTrendingResult]
	CacheMaxAge time.Duration
	Now         func() time.Time
}

// TrendingProblemResponse is a problem with the factors of its trending score.
type TrendingProblemResponse struct {
	domain.Problem
	TrendingScore   float64   `json:"trending_score"`
	VoteVelocity    float64   `json:"vote_velocity"`
	EngagementScore float64   `json:"engagement_score"`
	TimeDecayFactor float64   `json:"time_decay_factor"`
	CategoryBoost   float64   `json:"category_boost"`
	CalculatedAt    time.Time `json:"calculated_at"`
}

type TrendingListMetadata struct {
	Count       int       `json:"count"`
	FromCache   bool      `json:"from_cache"`
	CategoryID  string    `json:"category_id,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

func (c TrendingList) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := parseLimit(q)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid limit", err)
		return
	}
	refresh, err := parseBool(q, "refresh")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid refresh flag", err)
		return
	}

	result, err := c.Command.Execute(r.Context(), command.ListTrendingRequest{
		Limit:      limit,
		CategoryID: q.Get("category_id"),
		Refresh:    refresh,
	})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "unable to list trending problems", err)
		return
	}

	data := make([]TrendingProblemResponse, 0, len(result.Problems))
	for _, p := range result.Problems {
		data = append(data, trendingProblemResponse(p))
	}

	if refresh {
		setCacheControl(w, 0)
	} else {
		setCacheControl(w, c.CacheMaxAge)
	}
	writeJSON(w, r, http.StatusOK, data, TrendingListMetadata{
		Count:       len(data),
		FromCache:   result.FromCache,
		CategoryID:  q.Get("category_id"),
		GeneratedAt: now(c.Now),
	})
}

func trendingProblemResponse(p command.TrendingProblem) TrendingProblemResponse {
	return TrendingProblemResponse{
		Problem:         p.Problem,
		TrendingScore:   p.Record.TrendingScore,
		VoteVelocity:    p.Record.VoteVelocity,
		EngagementScore: p.Record.EngagementScore,
		TimeDecayFactor: p.Record.TimeDecayFactor,
		CategoryBoost:   p.Record.CategoryBoost,
		CalculatedAt:    p.Record.CalculatedAt,
	}
}

func now(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock()
}
