package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"slowlooking/pkg/llm"
	"slowlooking/pkg/model"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var fingerprint string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent generation attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}

			var rows []model.GenerationAttempt
			if fingerprint != "" {
				rows, err = st.AttemptsForFingerprint(cmd.Context(), fingerprint)
			} else {
				rows, err = st.RecentAttempts(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No generation attempts recorded")
				return nil
			}

			table := make([][]string, 0, len(rows))
			for _, a := range rows {
				table = append(table, []string{
					a.CreatedAt.Local().Format(time.DateTime),
					string(a.Status),
					a.ImageFilename,
					a.Provider,
					a.Latency.Round(time.Millisecond).String(),
					llm.Truncate(a.Error, 50),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Time", "Status", "Image", "Provider", "Latency", "Error"},
				table,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				!isTerminal(out),
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of attempts to show")
	cmd.Flags().StringVar(&fingerprint, "fingerprint", "", "Show every attempt for one image fingerprint")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
