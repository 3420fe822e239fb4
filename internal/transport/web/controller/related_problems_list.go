package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jbeshir/problem-rankings/internal/command"
	"github.com/jbeshir/problem-rankings/internal/domain"
)

type RelatedProblemsList struct {
	Command command.Command[command.ListRelatedProblemsRequest, command.ListRelatedProblemsResult]
	Now     func() time.Time
}

type RelatedProblemResponse struct {
	domain.Problem
	SimilarityScore float64                            `json:"similarity_score"`
	Breakdown       map[domain.SimilarityType]float64 `json:"breakdown"`
}

type RelatedProblemsMetadata struct {
	ProblemID   string    `json:"problem_id"`
	Count       int       `json:"count"`
	FromCache   bool      `json:"from_cache"`
	GeneratedAt time.Time `json:"generated_at"`
}

func (c RelatedProblemsList) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	problemID := mux.Vars(r)["problem_id"]
	logger := domain.LoggerFromContext(r.Context())
	ctx := domain.ContextWithLogger(r.Context(), logger.With("problem_id", problemID))
	r = r.WithContext(ctx)

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

	result, err := c.Command.Execute(ctx, command.ListRelatedProblemsRequest{
		ProblemID: problemID,
		Limit:     limit,
		Refresh:   refresh,
	})
	if errors.Is(err, command.ErrProblemNotFound) {
		writeError(w, r, http.StatusNotFound, "problem not found", err)
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "unable to list related problems", err)
		return
	}

	data := make([]RelatedProblemResponse, 0, len(result.Related))
	for _, related := range result.Related {
		data = append(data, RelatedProblemResponse{
			Problem:         related.Problem,
			SimilarityScore: related.Score,
			Breakdown:       related.Breakdown,
		})
	}

	writeJSON(w, r, http.StatusOK, data, RelatedProblemsMetadata{
		ProblemID:   problemID,
		Count:       len(data),
		FromCache:   result.FromCache,
		GeneratedAt: now(c.Now),
	})
}
