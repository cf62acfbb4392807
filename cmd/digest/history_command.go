package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/Adda-Baaj/khobor-digest/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent digest runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Store.HistoryPath == "" {
				return fmt.Errorf("store.history_path is not configured")
			}

			hist, err := history.Open(cfg.Store.HistoryPath)
			if err != nil {
				return err
			}
			defer hist.Close()

			runs, err := hist.Recent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}
			renderRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show (0 for all)")
	return cmd
}

func renderRuns(w io.Writer, runs []history.Run) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Finished", "Target", "Persisted", "Candidates", "Unique", "Matched", "Published"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})

	for _, run := range runs {
		tw.AppendRow(table.Row{
			run.FinishedAt.UTC().Format(time.RFC3339),
			run.TargetDate,
			strconv.Itoa(run.Persisted),
			strconv.Itoa(run.Candidates),
			strconv.Itoa(run.Unique),
			strconv.Itoa(run.Matched),
			run.Published,
		})
	}
	tw.Render()
}
