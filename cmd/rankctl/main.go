package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jbeshir/problem-rankings/internal/app"
	"github.com/jbeshir/problem-rankings/internal/domain"
	"github.com/spf13/cobra"

	_ "github.com/joho/godotenv/autoload"
)

type globalOptions struct {
	driver        string
	uri           string
	scoringConfig string
	jsonOutput    bool
}

func main() {
	logLevel := slog.LevelWarn
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		if err := logLevel.UnmarshalText([]byte(lvl)); err != nil {
			fmt.Fprintf(os.Stderr, "invalid LOG_LEVEL: %s\n", lvl)
			os.Exit(1)
		}
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	ctx := domain.ContextWithLogger(context.Background(), logger)

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "rankctl",
		Short:         "Inspect and maintain problem rankings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.driver, "driver", app.GetEnvAsStringOr("DATASTORE_DRIVER", "sqlite"),
		"datastore driver (mysql, postgres, sqlite)")
	root.PersistentFlags().StringVar(&opts.uri, "uri", app.GetEnvAsStringOr("DATASTORE_URI", "rankings.db"),
		"datastore connection URI or SQLite file path")
	root.PersistentFlags().StringVar(&opts.scoringConfig, "scoring-config", app.GetEnvAsStringOr("SCORING_CONFIG_PATH", ""),
		"YAML file overriding scoring constants")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output as JSON")

	root.AddCommand(trendingCmd(opts))
	root.AddCommand(relatedCmd(opts))
	root.AddCommand(recommendCmd(opts))
	root.AddCommand(migrateCmd(opts))

	return root
}

func trendingCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trending",
		Short: "Compute or show trending problems",
	}
	cmd.AddCommand(trendingRefreshCmd(opts))
	cmd.AddCommand(trendingListCmd(opts))
	return cmd
}

func trendingRefreshCmd(opts *globalOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Recompute the trending cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrendingRefresh(cmd.Context(), cmd.OutOrStdout(), opts, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", true, "recompute even when the cache is fresh")
	return cmd
}

func trendingListCmd(opts *globalOptions) *cobra.Command {
	var (
		limit    int
		category string
		refresh  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show trending problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrendingList(cmd.Context(), cmd.OutOrStdout(), opts, limit, category, refresh)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "max problems to show (default: from scoring config)")
	cmd.Flags().StringVar(&category, "category", "", "only show problems in this category")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore the cache")
	return cmd
}

func relatedCmd(opts *globalOptions) *cobra.Command {
	var (
		limit   int
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "related <problem-id>",
		Short: "Show problems related to a problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelated(cmd.Context(), cmd.OutOrStdout(), opts, args[0], limit, refresh)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "max problems to show (default: from scoring config)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached similarity scores")
	return cmd
}

func recommendCmd(opts *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recommend <user-id>",
		Short: "Show personal recommendations for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecommend(cmd.Context(), cmd.OutOrStdout(), opts, args[0], limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "max problems to show (default: from scoring config)")
	return cmd
}

func migrateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the ranking tables if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
}
