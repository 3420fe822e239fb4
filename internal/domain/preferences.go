package domain

// UserPreferences tune personal recommendations for one user.
type UserPreferences struct {
	UserID              string                      `json:"user_id"`
	CategoryWeights     map[string]float64          `json:"category_weights"`
	InteractionWeights  map[InteractionType]float64 `json:"interaction_weights"`
	DiversityPreference float64                     `json:"diversity_preference"`
	TrendingPreference  float64                     `json:"trending_preference"`
	ExcludeCategories   []string                    `json:"exclude_categories"`
	MinVoteThreshold    int                         `json:"min_vote_threshold"`
}

// DefaultInteractionWeights are the per-type weights used for engagement.
func DefaultInteractionWeights() map[InteractionType]float64 {
	return map[InteractionType]float64{
		InteractionTypeVote:     1.0,
		InteractionTypeFavorite: 0.8,
		InteractionTypeView:     0.3,
		InteractionTypeShare:    1.2,
		InteractionTypeComment:  0.9,
	}
}

// DefaultUserPreferences returns the preferences a user gets on first access.
func DefaultUserPreferences(userID string) UserPreferences {
	return UserPreferences{
		UserID:              userID,
		CategoryWeights:     map[string]float64{},
		InteractionWeights:  DefaultInteractionWeights(),
		DiversityPreference: 0.3,
		TrendingPreference:  0.5,
		ExcludeCategories:   []string{},
		MinVoteThreshold:    0,
	}
}
