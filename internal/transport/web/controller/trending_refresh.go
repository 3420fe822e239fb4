package controller

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/jbeshir/problem-rankings/internal/command"
)

type TrendingRefresh struct {
	Command command.Command[command.RefreshTrendingRequest, command.RefreshTrendingResult]
	Now     func() time.Time
}

type TrendingRefreshRequest struct {
	ForceRecalculate bool `json:"force_recalculate"`
}

type TrendingRefreshResponse struct {
	Count        int  `json:"count"`
	Recalculated bool `json:"recalculated"`
}

type TrendingRefreshMetadata struct {
	RefreshedAt time.Time `json:"refreshed_at"`
}

func (c TrendingRefresh) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body TrendingRefreshRequest
	// An empty body means a non-forced refresh.
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := c.Command.Execute(r.Context(), command.RefreshTrendingRequest{Force: body.ForceRecalculate})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "unable to refresh trending problems", err)
		return
	}

	writeJSON(w, r, http.StatusOK, TrendingRefreshResponse{
		Count:        result.Count,
		Recalculated: result.Recalculated,
	}, TrendingRefreshMetadata{RefreshedAt: now(c.Now)})
}
