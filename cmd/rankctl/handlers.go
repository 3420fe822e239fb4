package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/jbeshir/problem-rankings/internal/app"
	"github.com/jbeshir/problem-rankings/internal/command"
	"github.com/jbeshir/problem-rankings/internal/domain"
)

// openCommands opens the datastore and wires the commands over it. The returned func closes the
// datastore when it holds a connection.
func openCommands(ctx context.Context, opts *globalOptions) (app.Commands, func(), error) {
	scoring, err := app.LoadScoringConfig(opts.scoringConfig)
	if err != nil {
		return app.Commands{}, nil, fmt.Errorf("loading scoring config: %w", err)
	}

	repo, err := app.SetupRepository(ctx, opts.driver, opts.uri)
	if err != nil {
		return app.Commands{}, nil, err
	}

	closeRepo := func() {
		if closer, ok := repo.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				domain.LoggerFromContext(ctx).WarnContext(ctx, "closing datastore", "error", err)
			}
		}
	}
	return app.NewCommands(repo, scoring), closeRepo, nil
}

func runTrendingRefresh(ctx context.Context, out io.Writer, opts *globalOptions, force bool) error {
	commands, closeRepo, err := openCommands(ctx, opts)
	if err != nil {
		return err
	}
	defer closeRepo()

	result, err := commands.RefreshTrending.Execute(ctx, command.RefreshTrendingRequest{Force: force})
	if err != nil {
		return fmt.Errorf("refreshing trending: %w", err)
	}

	if opts.jsonOutput {
		return writeJSON(out, map[string]any{
			"count":        result.Count,
			"recalculated": result.Recalculated,
		})
	}
	if result.Recalculated {
		_, err = fmt.Fprintf(out, "Recalculated trending scores: %d problems cached\n", result.Count)
	} else {
		_, err = fmt.Fprintf(out, "Trending cache is fresh: %d problems cached\n", result.Count)
	}
	return err
}

func runTrendingList(
	ctx context.Context,
	out io.Writer,
	opts *globalOptions,
	limit int,
	category string,
	refresh bool,
) error {
	commands, closeRepo, err := openCommands(ctx, opts)
	if err != nil {
		return err
	}
	defer closeRepo()

	result, err := commands.ListTrending.Execute(ctx, command.ListTrendingRequest{
		Limit:      limit,
		CategoryID: category,
		Refresh:    refresh,
	})
	if err != nil {
		return fmt.Errorf("listing trending: %w", err)
	}

	if opts.jsonOutput {
		rows := make([]map[string]any, 0, len(result.Problems))
		for _, tp := range result.Problems {
			rows = append(rows, map[string]any{
				"problem":  tp.Problem,
				"trending": tp.Record,
			})
		}
		return writeJSON(out, rows)
	}

	if len(result.Problems) == 0 {
		_, err = fmt.Fprintln(out, "No trending problems.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tID\tSCORE\tVELOCITY\tENGAGEMENT\tDECAY\tBOOST\tTITLE")
	for i, tp := range result.Problems {
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%.2f\t%.2f\t%.3f\t%.2f\t%s\n",
			i+1,
			tp.Problem.ID,
			tp.Record.TrendingScore,
			tp.Record.VoteVelocity,
			tp.Record.EngagementScore,
			tp.Record.TimeDecayFactor,
			tp.Record.CategoryBoost,
			truncate(tp.Problem.Title, 60),
		)
	}
	return tw.Flush()
}

func runRelated(ctx context.Context, out io.Writer, opts *globalOptions, problemID string, limit int, refresh bool) error {
	commands, closeRepo, err := openCommands(ctx, opts)
	if err != nil {
		return err
	}
	defer closeRepo()

	result, err := commands.ListRelated.Execute(ctx, command.ListRelatedProblemsRequest{
		ProblemID: problemID,
		Limit:     limit,
		Refresh:   refresh,
	})
	if err != nil {
		return fmt.Errorf("listing related problems: %w", err)
	}

	if opts.jsonOutput {
		rows := make([]map[string]any, 0, len(result.Related))
		for _, rp := range result.Related {
			rows = append(rows, map[string]any{
				"problem":          rp.Problem,
				"similarity_score": rp.Score,
				"breakdown":        rp.Breakdown,
			})
		}
		return writeJSON(out, rows)
	}

	fmt.Fprintf(out, "Related to %s: %s\n\n", result.Target.ID, result.Target.Title)
	if len(result.Related) == 0 {
		_, err = fmt.Fprintln(out, "No related problems.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSCORE\tCONTENT\tCATEGORY\tVOTING\tINTERACTION\tTITLE")
	for _, rp := range result.Related {
		fmt.Fprintf(tw, "%s\t%.3f\t%s\t%s\t%s\t%s\t%s\n",
			rp.Problem.ID,
			rp.Score,
			breakdownCell(rp.Breakdown, domain.SimilarityTypeContent),
			breakdownCell(rp.Breakdown, domain.SimilarityTypeCategory),
			breakdownCell(rp.Breakdown, domain.SimilarityTypeVotingPattern),
			breakdownCell(rp.Breakdown, domain.SimilarityTypeUserInteraction),
			truncate(rp.Problem.Title, 60),
		)
	}
	return tw.Flush()
}

func runRecommend(ctx context.Context, out io.Writer, opts *globalOptions, userID string, limit int) error {
	commands, closeRepo, err := openCommands(ctx, opts)
	if err != nil {
		return err
	}
	defer closeRepo()

	result, err := commands.Recommend.Execute(ctx, command.RecommendProblemsRequest{
		UserID: userID,
		Limit:  limit,
	})
	if err != nil {
		return fmt.Errorf("recommending problems: %w", err)
	}

	if opts.jsonOutput {
		rows := make([]map[string]any, 0, len(result.Recommendations))
		for _, rec := range result.Recommendations {
			rows = append(rows, map[string]any{
				"problem":              rec.Problem,
				"recommendation_score": rec.Score,
				"breakdown":            rec.Breakdown,
			})
		}
		return writeJSON(out, map[string]any{
			"recommendations":  rows,
			"candidate_count":  result.CandidateCount,
			"degraded_signals": result.DegradedSignals,
		})
	}

	if len(result.DegradedSignals) > 0 {
		fmt.Fprintf(out, "Degraded signals: %s\n", strings.Join(result.DegradedSignals, ", "))
	}
	if len(result.Recommendations) == 0 {
		_, err = fmt.Fprintf(out, "No recommendations from %d candidates.\n", result.CandidateCount)
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tID\tSCORE\tCOLLAB\tCONTENT\tTRENDING\tCATEGORY\tINTERACTION\tTITLE")
	for i, rec := range result.Recommendations {
		fmt.Fprintf(tw, "%d\t%s\t%.3f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%s\n",
			i+1,
			rec.Problem.ID,
			rec.Score,
			rec.Breakdown.Collaborative,
			rec.Breakdown.Content,
			rec.Breakdown.Trending,
			rec.Breakdown.Category,
			rec.Breakdown.Interaction,
			truncate(rec.Problem.Title, 60),
		)
	}
	return tw.Flush()
}

func runMigrate(ctx context.Context, out io.Writer, opts *globalOptions) error {
	if opts.driver == app.DriverMemory {
		return fmt.Errorf("the %s driver has no schema to migrate", app.DriverMemory)
	}

	// SetupRepository migrates SQL datastores on open.
	_, closeRepo, err := openCommands(ctx, opts)
	if err != nil {
		return err
	}
	defer closeRepo()

	_, err = fmt.Fprintf(out, "Migrated %s datastore\n", opts.driver)
	return err
}

func breakdownCell(breakdown map[domain.SimilarityType]float64, t domain.SimilarityType) string {
	score, ok := breakdown[t]
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.2f", score)
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
