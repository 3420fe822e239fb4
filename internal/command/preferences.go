package command

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jbeshir/problem-rankings/internal/datasources"
	"github.com/jbeshir/problem-rankings/internal/domain"
)

// GetPreferences returns a user's recommendation preferences, storing the defaults on first access.
type GetPreferences struct {
	Preferences datasources.UserPreferencesRepository
}

func NewGetPreferences(preferences datasources.UserPreferencesRepository) *GetPreferences {
	return &GetPreferences{Preferences: preferences}
}

func (c *GetPreferences) Execute(ctx context.Context, userID string) (domain.UserPreferences, error) {
	prefs, err := c.Preferences.GetUserPreferences(ctx, userID)
	if err == nil {
		return prefs, nil
	}
	if !errors.Is(err, datasources.ErrNotFound) {
		return domain.UserPreferences{}, fmt.Errorf("getting preferences: %w", err)
	}

	prefs = domain.DefaultUserPreferences(userID)
	if err := c.Preferences.UpsertUserPreferences(ctx, prefs); err != nil {
		domain.LoggerFromContext(ctx).WarnContext(ctx, "failed to store default preferences", "error", err)
	}
	return prefs, nil
}

// UpdatePreferencesRequest holds the fields to change. Nil fields keep their current value; an
// empty non-nil ExcludeCategories clears the excluded set.
type UpdatePreferencesRequest struct {
	UserID              string
	CategoryWeights     map[string]float64
	InteractionWeights  map[domain.InteractionType]float64
	DiversityPreference *float64
	TrendingPreference  *float64
	ExcludeCategories   []string
	MinVoteThreshold    *int
}

// UpdatePreferences validates and merges a partial preferences update.
type UpdatePreferences struct {
	Preferences datasources.UserPreferencesRepository
}

func NewUpdatePreferences(preferences datasources.UserPreferencesRepository) *UpdatePreferences {
	return &UpdatePreferences{Preferences: preferences}
}

func (c *UpdatePreferences) Execute(
	ctx context.Context,
	req UpdatePreferencesRequest,
) (domain.UserPreferences, error) {
	if err := validatePreferencesUpdate(req); err != nil {
		return domain.UserPreferences{}, err
	}

	prefs, err := c.Preferences.GetUserPreferences(ctx, req.UserID)
	if errors.Is(err, datasources.ErrNotFound) {
		prefs = domain.DefaultUserPreferences(req.UserID)
	} else if err != nil {
		return domain.UserPreferences{}, fmt.Errorf("getting preferences: %w", err)
	}

	if req.CategoryWeights != nil {
		prefs.CategoryWeights = req.CategoryWeights
	}
	if req.InteractionWeights != nil {
		prefs.InteractionWeights = req.InteractionWeights
	}
	if req.DiversityPreference != nil {
		prefs.DiversityPreference = *req.DiversityPreference
	}
	if req.TrendingPreference != nil {
		prefs.TrendingPreference = *req.TrendingPreference
	}
	if req.ExcludeCategories != nil {
		prefs.ExcludeCategories = req.ExcludeCategories
	}
	if req.MinVoteThreshold != nil {
		prefs.MinVoteThreshold = *req.MinVoteThreshold
	}

	if err := c.Preferences.UpsertUserPreferences(ctx, prefs); err != nil {
		return domain.UserPreferences{}, fmt.Errorf("storing preferences: %w", err)
	}
	return prefs, nil
}

func validatePreferencesUpdate(req UpdatePreferencesRequest) error {
	if req.CategoryWeights == nil && req.InteractionWeights == nil && req.DiversityPreference == nil &&
		req.TrendingPreference == nil && req.ExcludeCategories == nil && req.MinVoteThreshold == nil {
		return fmt.Errorf("%w: no preference fields given", ErrInvalidPreferences)
	}

	for category, w := range req.CategoryWeights {
		if !inUnitRange(w) {
			return fmt.Errorf("%w: category weight for %s must be between 0 and 1", ErrInvalidPreferences, category)
		}
	}
	for typ, w := range req.InteractionWeights {
		if !slices.Contains(domain.ValidInteractionTypes, typ) {
			return fmt.Errorf("%w: unknown interaction type %s", ErrInvalidPreferences, typ)
		}
		if w < 0 {
			return fmt.Errorf("%w: interaction weight for %s must not be negative", ErrInvalidPreferences, typ)
		}
	}
	if req.DiversityPreference != nil && !inUnitRange(*req.DiversityPreference) {
		return fmt.Errorf("%w: diversity_preference must be between 0 and 1", ErrInvalidPreferences)
	}
	if req.TrendingPreference != nil && !inUnitRange(*req.TrendingPreference) {
		return fmt.Errorf("%w: trending_preference must be between 0 and 1", ErrInvalidPreferences)
	}
	if req.MinVoteThreshold != nil && *req.MinVoteThreshold < 0 {
		return fmt.Errorf("%w: min_vote_threshold must not be negative", ErrInvalidPreferences)
	}
	return nil
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}
