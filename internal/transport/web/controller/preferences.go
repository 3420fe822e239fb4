package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jbeshir/problem-rankings/internal/command"
	"github.com/jbeshir/problem-rankings/internal/domain"
)

type PreferencesGet struct {
	Command command.Command[string, domain.UserPreferences]
}

func (c PreferencesGet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := domain.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, r, http.StatusUnauthorized, "authentication required", nil)
		return
	}

	prefs, err := c.Command.Execute(r.Context(), userID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "unable to get preferences", err)
		return
	}

	setCacheControl(w, 0)
	writeJSON(w, r, http.StatusOK, prefs, nil)
}

// PreferencesUpdateRequest is a partial update; absent fields keep their stored value.
type PreferencesUpdateRequest struct {
	CategoryWeights     map[string]float64                 `json:"category_weights"`
	InteractionWeights  map[domain.InteractionType]float64 `json:"interaction_weights"`
	DiversityPreference *float64                           `json:"diversity_preference"`
	TrendingPreference  *float64                           `json:"trending_preference"`
	ExcludeCategories   []string                           `json:"exclude_categories"`
	MinVoteThreshold    *int                               `json:"min_vote_threshold"`
}

type PreferencesUpdate struct {
	Command command.Command[command.UpdatePreferencesRequest, domain.UserPreferences]
}

func (c PreferencesUpdate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := domain.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, r, http.StatusUnauthorized, "authentication required", nil)
		return
	}

	var body PreferencesUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}

	prefs, err := c.Command.Execute(r.Context(), command.UpdatePreferencesRequest{
		UserID:              userID,
		CategoryWeights:     body.CategoryWeights,
		InteractionWeights:  body.InteractionWeights,
		DiversityPreference: body.DiversityPreference,
		TrendingPreference:  body.TrendingPreference,
		ExcludeCategories:   body.ExcludeCategories,
		MinVoteThreshold:    body.MinVoteThreshold,
	})
	if errors.Is(err, command.ErrInvalidPreferences) {
		writeError(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "unable to update preferences", err)
		return
	}

	writeJSON(w, r, http.StatusOK, prefs, nil)
}
