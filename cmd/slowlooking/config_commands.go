package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"slowlooking/pkg/config"
	"slowlooking/pkg/fileutil"
	"slowlooking/pkg/probe"
)

func newInitConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "init-config",
		Short:       "Generate the default config file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ctx.configPath()
			if fileutil.FileExists(path) {
				fmt.Fprintf(cmd.OutOrStdout(), "Config file already exists: %s\n", path)
				return nil
			}
			if err := config.GenerateDefault(path); err != nil {
				return fmt.Errorf("failed to generate config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config file generated: %s\n", path)
			return nil
		},
	}
	return cmd
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the API key, provider, cache, library and ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := probe.Run(cmd.Context(), timeout, healthProbes(ctx, cfg))

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				detail := "ok"
				if r.Error != nil {
					detail = r.Error.Error()
				}
				rows = append(rows, []string{r.Probe.Name, r.Status(), r.Duration.Round(time.Millisecond).String(), detail})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Check", "Status", "Took", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
				!isTerminal(out),
			))
			return probe.Analyze(results)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", probe.DefaultTimeout, "Time limit for each check")
	return cmd
}

func healthProbes(ctx *commandContext, cfg *config.Config) []probe.Probe {
	return []probe.Probe{
		{
			Name:     "api key",
			Critical: true,
			Check:    func(context.Context) error { return cfg.RequireKey() },
		},
		{
			Name:     "provider",
			Critical: true,
			Check: func(c context.Context) error {
				p, err := ctx.newProvider(c)
				if err != nil {
					return err
				}
				if err := p.HealthCheck(c); err != nil {
					return fmt.Errorf("%s model %s: %w", cfg.LLM.Provider, cfg.LLM.Model, err)
				}
				return nil
			},
		},
		{
			Name:     "cache",
			Critical: true,
			Check:    func(context.Context) error { return dirWritable(cfg.Cache.Dir) },
		},
		{
			Name:     "library",
			Critical: true,
			Check: func(context.Context) error {
				lib, err := ctx.openLibrary()
				if err != nil {
					return err
				}
				_, err = lib.List()
				return err
			},
		},
		{
			Name: "ledger",
			Check: func(c context.Context) error {
				st, err := ctx.openStore(c)
				if err != nil {
					return err
				}
				_, err = st.RecentAttempts(c, 1)
				return err
			},
		},
	}
}

// dirWritable creates dir if needed and writes a scratch file into it.
func dirWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return err
	}
	return os.Remove(name)
}
