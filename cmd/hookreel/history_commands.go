package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hookreel/internal/history"
	"hookreel/internal/pipeline"
	"hookreel/internal/services"
)

const stampLayout = "2006-01-02 15:04"

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent pipeline runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.HistoryPath())
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				status := run.Status
				if run.FailedStage != "" {
					status = fmt.Sprintf("%s (%s)", status, run.FailedStage)
				}
				rows = append(rows, []string{
					shortRunID(run.RunID),
					run.StartedAt.Local().Format(stampLayout),
					status,
					strconv.Itoa(len(run.CompletedStages)),
					strconv.Itoa(run.Items),
					fmt.Sprintf("%d/%d", run.VideosSucceeded, run.VideosAttempted),
					run.Duration.Round(time.Second).String(),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Status", "Stages", "Items", "Videos", "Duration"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	return cmd
}

func newCheckpointCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoint",
		Short: "Show the last saved checkpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			cp, err := pipeline.LoadCheckpoint(cfg.CheckpointPath())
			if errors.Is(err, services.ErrNotFound) {
				fmt.Fprintf(out, "No checkpoint at %s\n", cfg.CheckpointPath())
				return nil
			}
			if err != nil {
				return err
			}
			failed := strings.Join(cp.FailedStages, ", ")
			if failed == "" {
				failed = "none"
			}
			fmt.Fprintln(out, renderKeyValues([][]string{
				{"Run ID", cp.RunID},
				{"Saved", cp.Timestamp.Local().Format(stampLayout)},
				{"Current stage", cp.CurrentStage},
				{"Completed", strings.Join(cp.CompletedStages, ", ")},
				{"Failed", failed},
				{"Last artifact", cp.LastArtifact()},
			}))
			if len(cp.FailedStages) > 0 && cp.LastArtifact() != "" {
				fmt.Fprintf(out, "Resume with: hookreel run --resume-from %s --input %s\n", cp.FailedStages[len(cp.FailedStages)-1], cp.LastArtifact())
			}
			return nil
		},
	}
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
