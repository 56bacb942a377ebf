package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"slowlooking/pkg/batch"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var outputDir string
	var delay time.Duration
	var noCache bool

	cmd := &cobra.Command{
		Use:   "batch DIR",
		Short: "Create journeys for every image in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if outputDir == "" {
				outputDir = cfg.Batch.OutputDir
			}
			if !cmd.Flags().Changed("delay") {
				delay = time.Duration(cfg.Batch.Delay)
			}

			gen, err := ctx.newGenerator(cmd.Context())
			if err != nil {
				return err
			}

			stderr := cmd.ErrOrStderr()
			runner := batch.NewRunner(gen, outputDir, delay,
				batch.WithCache(!noCache),
				batch.WithProgress(func(pos, total int, o batch.Outcome) {
					switch {
					case o.Status == batch.StatusError:
						fmt.Fprintf(stderr, "[%d/%d] %s: error: %s\n", pos, total, o.Filename, o.Error)
					case o.Cached:
						fmt.Fprintf(stderr, "[%d/%d] %s: cached (%d steps)\n", pos, total, o.Filename, *o.Steps)
					default:
						fmt.Fprintf(stderr, "[%d/%d] %s: %d steps\n", pos, total, o.Filename, *o.Steps)
					}
				}),
			)

			rep, runErr := runner.Run(cmd.Context(), args[0])
			if rep == nil {
				return runErr
			}

			out := cmd.OutOrStdout()
			if err := batch.RenderTable(out, rep, !isTerminal(out)); err != nil {
				return err
			}
			fmt.Fprintf(out, "Report saved to %s\n", filepath.Join(outputDir, batch.ReportFile))
			return runErr
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for journeys and the report (default from config)")
	cmd.Flags().DurationVar(&delay, "delay", 0, "Wait between model calls (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Ignore cached journeys and call the model for every image")
	return cmd
}
