package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"compressum/internal/history"
	"compressum/internal/transcode"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent transcode jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, toHistoryJSON(entries))
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No jobs recorded yet")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					shortID(e.ID),
					string(e.State),
					e.StartedAt.Local().Format("2006-01-02 15:04:05"),
					formatElapsed(e),
					filepath.Base(e.InputPath),
					e.OutputPath,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Job", "State", "Started", "Elapsed", "Input", "Output"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultListLimit, "Number of jobs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")

	cmd.AddCommand(newHistoryShowCommand(ctx))
	cmd.AddCommand(newHistoryClearCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job, including the tail of ffmpeg's output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			entry, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if entry == nil {
				return fmt.Errorf("no job matches %q", args[0])
			}
			if asJSON {
				return writeJSON(cmd, toHistoryJSON([]history.Entry{*entry})[0])
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job:        %s\n", entry.ID)
			fmt.Fprintf(out, "State:      %s\n", entry.State)
			fmt.Fprintf(out, "Input:      %s\n", entry.InputPath)
			fmt.Fprintf(out, "Output:     %s\n", entry.OutputPath)
			fmt.Fprintf(out, "Preset:     %s\n", entry.Preset)
			fmt.Fprintf(out, "Started:    %s\n", entry.StartedAt.Local().Format(time.RFC3339))
			if !entry.FinishedAt.IsZero() {
				fmt.Fprintf(out, "Finished:   %s (%s)\n", entry.FinishedAt.Local().Format(time.RFC3339), formatElapsed(*entry))
				fmt.Fprintf(out, "Exit code:  %d\n", entry.ExitCode)
			}
			if entry.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:      %s\n", entry.ErrorMessage)
			}
			if tail := strings.TrimSpace(entry.OutputTail); tail != "" {
				fmt.Fprintln(out, "\nffmpeg output (tail):")
				fmt.Fprintln(out, tail)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return errors.New("refusing to clear history without --yes")
			}
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", removed)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "yes", "y", false, "Confirm deletion")
	return cmd
}

type historyJSON struct {
	ID           string `json:"id"`
	State        string `json:"state"`
	InputPath    string `json:"input_path"`
	OutputPath   string `json:"output_path"`
	Preset       string `json:"preset"`
	ExitCode     int    `json:"exit_code"`
	ErrorMessage string `json:"error,omitempty"`
	OutputTail   string `json:"output_tail,omitempty"`
	StartedAt    string `json:"started_at"`
	FinishedAt   string `json:"finished_at,omitempty"`
	ElapsedMS    int64  `json:"elapsed_ms,omitempty"`
}

func toHistoryJSON(entries []history.Entry) []historyJSON {
	items := make([]historyJSON, 0, len(entries))
	for _, e := range entries {
		item := historyJSON{
			ID:           e.ID,
			State:        string(e.State),
			InputPath:    e.InputPath,
			OutputPath:   e.OutputPath,
			Preset:       e.Preset,
			ExitCode:     e.ExitCode,
			ErrorMessage: e.ErrorMessage,
			OutputTail:   e.OutputTail,
			StartedAt:    e.StartedAt.UTC().Format(time.RFC3339Nano),
			ElapsedMS:    e.Elapsed().Milliseconds(),
		}
		if !e.FinishedAt.IsZero() {
			item.FinishedAt = e.FinishedAt.UTC().Format(time.RFC3339Nano)
		}
		items = append(items, item)
	}
	return items
}

func formatElapsed(e history.Entry) string {
	if e.State == transcode.StateRunning || e.FinishedAt.IsZero() {
		return "-"
	}
	return e.Elapsed().Round(time.Second).String()
}
