package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"slowlooking/pkg/render"
	"slowlooking/pkg/schema"
)

func newLibraryCommand(ctx *commandContext) *cobra.Command {
	libCmd := &cobra.Command{
		Use:   "library",
		Short: "Browse and manage saved journeys",
	}

	libCmd.AddCommand(newLibraryListCommand(ctx))
	libCmd.AddCommand(newLibraryShowCommand(ctx))
	libCmd.AddCommand(newLibraryStatsCommand(ctx))
	libCmd.AddCommand(newLibrarySaveCommand(ctx))
	return libCmd
}

func newLibraryListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved journeys, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := ctx.openLibrary()
			if err != nil {
				return err
			}
			entries, err := lib.List()
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Library is empty")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.JourneyID,
					e.Title,
					e.Artist,
					strconv.Itoa(e.StepsCount),
					strconv.Itoa(e.DurationMinutes),
					e.CompletedAt,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Title", "Artist", "Steps", "Minutes", "Completed"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				!isTerminal(out),
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newLibraryShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show a saved journey",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := ctx.openLibrary()
			if err != nil {
				return err
			}
			j, ok, err := lib.Get(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("journey %s not found", args[0])
			}
			if asJSON {
				return writeJSON(cmd, j)
			}
			return render.WriteText(cmd.OutOrStdout(), j)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newLibraryStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show library totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := ctx.openLibrary()
			if err != nil {
				return err
			}
			s, err := lib.Stats()
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, s)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Journeys: %d\n", s.TotalJourneys)
			fmt.Fprintf(out, "Steps:    %d\n", s.TotalSteps)
			fmt.Fprintf(out, "Minutes:  %d\n", s.TotalMinutes)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newLibrarySaveCommand(ctx *commandContext) *cobra.Command {
	var completedAt string

	cmd := &cobra.Command{
		Use:   "save FILE",
		Short: "Save a journey JSON file to the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read journey: %w", err)
			}
			j, err := schema.Parse(data)
			if err != nil {
				return fmt.Errorf("invalid journey %s: %w", args[0], err)
			}
			lib, err := ctx.openLibrary()
			if err != nil {
				return err
			}
			entry, err := lib.Save(cmd.Context(), j, completedAt)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved journey %s (%s by %s)\n", entry.JourneyID, entry.Title, entry.Artist)
			return nil
		},
	}

	cmd.Flags().StringVar(&completedAt, "completed-at", "", "Completion time in RFC 3339 (default now)")
	return cmd
}
