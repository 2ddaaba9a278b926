package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Adstedt/contentmax-sub005/internal/application/pipeline"
)

type runOptions struct {
	paths pipeline.SnapshotPaths
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the pipeline in-process from snapshot files",
		Long: `Run builds the taxonomy, merges duplicate categories, aggregates
metrics and scores every node, entirely in memory.  Nothing is persisted;
use the worker for durable runs or "export" to write reports.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := FromCommand(cmd)

			snap, err := pipeline.LoadSnapshot(opts.paths)
			if err != nil {
				return err
			}

			svc := pipeline.NewService(cc.Config.Pipeline, pipeline.Deps{}, cc.Logger)
			res, err := svc.Run(cmd.Context(), snap)
			if err != nil {
				return err
			}
			return PrintResult(cc.Opts, runView{res.Summary})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.paths.Products, "products", "", "product snapshot JSON (required)")
	flags.StringVar(&opts.paths.Search, "search", "", "search metrics JSON")
	flags.StringVar(&opts.paths.Behavioral, "behavioral", "", "behavioral metrics JSON")
	flags.StringVar(&opts.paths.URLMap, "url-map", "", "URL to node id map JSON")
	_ = cmd.MarkFlagRequired("products")

	return cmd
}

// runView renders a run summary as a two-column table for text output.
type runView struct {
	pipeline.RunSummary
}

func (v runView) Rows() ([]string, [][]string) {
	rows := [][]string{
		{"run id", string(v.RunID)},
		{"elapsed", v.FinishedAt.Sub(v.StartedAt).String()},
		{"products", strconv.Itoa(v.Products)},
		{"unassigned products", strconv.Itoa(v.UnassignedProducts)},
		{"nodes", strconv.Itoa(v.Nodes)},
		{"merged categories", strconv.Itoa(v.Merges)},
		{"unmatched search rows", strconv.Itoa(v.SearchUnmatched)},
		{"unmatched behavioral rows", strconv.Itoa(v.BehaviorUnmatched)},
		{"scored nodes", strconv.Itoa(v.ScoredNodes)},
		{"quick wins", strconv.Itoa(v.QuickWins)},
	}
	stages := make([]string, 0, len(v.StageDurations))
	for stage := range v.StageDurations {
		stages = append(stages, stage)
	}
	sort.Strings(stages)
	for _, stage := range stages {
		rows = append(rows, []string{fmt.Sprintf("stage %s", stage), v.StageDurations[stage].String()})
	}
	return []string{"FIELD", "VALUE"}, rows
}
