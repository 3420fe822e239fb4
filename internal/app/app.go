package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jbeshir/problem-rankings/internal/command"
	"github.com/jbeshir/problem-rankings/internal/datasources"
	"github.com/jbeshir/problem-rankings/internal/datasources/memory"
	"github.com/jbeshir/problem-rankings/internal/datasources/sqlstore"
	"github.com/jbeshir/problem-rankings/internal/jobs"
	"github.com/jbeshir/problem-rankings/internal/transport/web/router"
	"github.com/jbeshir/problem-rankings/internal/transport/web/server"
)

const DriverMemory = "memory"

type Component interface {
	Run(ctx context.Context) error
}

// Commands are the use cases wired over one repository.
type Commands struct {
	CalculateTrending *command.CalculateTrending
	ListTrending      *command.ListTrending
	RefreshTrending   *command.RefreshTrending
	ListRelated       *command.ListRelatedProblems
	Recommend         *command.RecommendProblems
	GetPreferences    *command.GetPreferences
	UpdatePreferences *command.UpdatePreferences
}

func NewCommands(repo datasources.Repository, scoring ScoringConfig) Commands {
	calculateTrending := command.NewCalculateTrending(repo, repo, repo, repo, repo, scoring.Trending)
	getPreferences := command.NewGetPreferences(repo)

	return Commands{
		CalculateTrending: calculateTrending,
		ListTrending:      command.NewListTrending(repo, repo, calculateTrending, scoring.Trending.DefaultLimit),
		RefreshTrending:   command.NewRefreshTrending(repo, calculateTrending),
		ListRelated:       command.NewListRelatedProblems(repo, scoring.Similarity),
		Recommend:         command.NewRecommendProblems(repo, getPreferences, scoring.Recommendation),
		GetPreferences:    getPreferences,
		UpdatePreferences: command.NewUpdatePreferences(repo),
	}
}

func Setup(ctx context.Context) ([]Component, error) {
	scoring, err := LoadScoringConfig(GetEnvAsStringOr("SCORING_CONFIG_PATH", ""))
	if err != nil {
		return nil, fmt.Errorf("loading scoring config: %w", err)
	}

	repo, err := SetupRepository(ctx, MustGetEnvAsString(ctx, "DATASTORE_DRIVER"), GetEnvAsStringOr("DATASTORE_URI", ""))
	if err != nil {
		return nil, fmt.Errorf("setting up datastore: %w", err)
	}

	authMiddleware, err := setupAuthMiddleware(ctx)
	if err != nil {
		return nil, fmt.Errorf("setting up auth middleware: %w", err)
	}

	commands := NewCommands(repo, scoring)

	httpRouter, err := router.MakeRouter(
		router.Commands{
			ListTrending:      commands.ListTrending,
			RefreshTrending:   commands.RefreshTrending,
			ListRelated:       commands.ListRelated,
			Recommend:         commands.Recommend,
			GetPreferences:    commands.GetPreferences,
			UpdatePreferences: commands.UpdatePreferences,
		},
		MustGetEnvAsString(ctx, "RSS_FEED_BASE_URL"),
		scoring.Trending.TTL,
		MustGetEnvAsStrings(ctx, "CORS_ALLOWED_ORIGINS"),
		authMiddleware,
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create HTTP router: %w", err)
	}

	components := []Component{
		&server.Server{
			TLSDisabled:       MustGetEnvAsBoolean(ctx, "HTTP_TLS_DISABLED"),
			TLSDisabledPort:   MustGetEnvAsInt(ctx, "PORT"),
			AutocertHostnames: MustGetEnvAsStrings(ctx, "HTTP_AUTOCERT_HOSTNAMES"),
			ShutdownTimeout:   MustGetEnvAsDuration(ctx, "HTTP_SHUTDOWN_TIMEOUT"),
			Router:            httpRouter,
		},
	}

	if schedule := GetEnvAsStringOr("TRENDING_REFRESH_SCHEDULE", ""); schedule != "" {
		components = append(components, &jobs.TrendingRefresher{
			Schedule:   schedule,
			Command:    commands.RefreshTrending,
			RunOnStart: true,
		})
	}

	return components, nil
}

// SetupRepository opens the configured datastore. SQL stores have their schema created if missing.
func SetupRepository(ctx context.Context, driver, uri string) (datasources.Repository, error) {
	if driver == DriverMemory {
		return memory.New(), nil
	}

	repo, err := sqlstore.Open(ctx, driver, uri)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s datastore: %w", driver, err)
	}
	if err := repo.Migrate(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("migrating %s datastore: %w", driver, err)
	}
	return repo, nil
}

func setupAuthMiddleware(ctx context.Context) (func(http.Handler) http.Handler, error) {
	var validators []router.AuthValidator

	for _, driver := range MustGetEnvAsStrings(ctx, "AUTH_DRIVERS") {
		switch driver {
		case "auth0":
			v, err := router.NewAuth0Validator(
				MustGetEnvAsString(ctx, "AUTH0_DOMAIN"),
				MustGetEnvAsString(ctx, "AUTH0_AUDIENCE"),
			)
			if err != nil {
				return nil, fmt.Errorf("creating Auth0 validator: %w", err)
			}
			validators = append(validators, v)
		default:
			return nil, fmt.Errorf("unknown auth driver [%s]", driver)
		}
	}

	return router.NewAuthMiddleware(validators), nil
}
