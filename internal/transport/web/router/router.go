package router

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jbeshir/problem-rankings/internal/command"
	"github.com/jbeshir/problem-rankings/internal/domain"
	"github.com/jbeshir/problem-rankings/internal/transport/web/controller"
)

// Commands are the use cases served over HTTP.
type Commands struct {
	ListTrending      command.Command[command.ListTrendingRequest, command.ListTrendingResult]
	RefreshTrending   command.Command[command.RefreshTrendingRequest, command.RefreshTrendingResult]
	ListRelated       command.Command[command.ListRelatedProblemsRequest, command.ListRelatedProblemsResult]
	Recommend         command.Command[command.RecommendProblemsRequest, command.RecommendProblemsResult]
	GetPreferences    command.Command[string, domain.UserPreferences]
	UpdatePreferences command.Command[command.UpdatePreferencesRequest, domain.UserPreferences]
}

func MakeRouter(
	commands Commands,
	rssFeedBaseURL string,
	trendingCacheMaxAge time.Duration,
	corsAllowedOrigins []string,
	authMiddleware func(http.Handler) http.Handler,
) (http.Handler, error) {
	r := mux.NewRouter()
	r.Use(authMiddleware)

	r.Handle("/health", controller.Health{}).Methods(http.MethodGet)

	r.Handle("/recommendations/trending", controller.TrendingList{
		Command:     commands.ListTrending,
		CacheMaxAge: trendingCacheMaxAge,
	}).Methods(http.MethodGet)

	r.Handle("/recommendations/trending", requireAuthMiddleware(controller.TrendingRefresh{
		Command: commands.RefreshTrending,
	})).Methods(http.MethodPost)

	rssFeed := controller.TrendingRSS{
		FeedBaseURL: rssFeedBaseURL,
		FeedPath:    "/recommendations/trending/rss",
		Command:     commands.ListTrending,
		CacheMaxAge: trendingCacheMaxAge,
	}
	r.Handle(rssFeed.FeedPath, rssFeed).Methods(http.MethodGet)

	r.Handle("/recommendations/personal", requireAuthMiddleware(controller.PersonalRecommendationsList{
		Command: commands.Recommend,
	})).Methods(http.MethodGet)

	r.Handle("/recommendations/personal", requireAuthMiddleware(controller.PreferencesUpdate{
		Command: commands.UpdatePreferences,
	})).Methods(http.MethodPost)

	r.Handle("/recommendations/personal/preferences", requireAuthMiddleware(controller.PreferencesGet{
		Command: commands.GetPreferences,
	})).Methods(http.MethodGet)

	r.Handle("/problems/{problem_id}/related", controller.RelatedProblemsList{
		Command: commands.ListRelated,
	}).Methods(http.MethodGet)

	// CORS wraps the router so preflight requests are answered before route matching.
	return requestIDMiddleware(corsMiddleware(corsAllowedOrigins)(r)), nil
}
