package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"slowlooking/pkg/fileutil"
	"slowlooking/pkg/render"
)

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var noCache bool
	var save bool
	var outPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "create IMAGE",
		Short: "Create a guided journey for one artwork image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imagePath := args[0]
			data, err := os.ReadFile(imagePath)
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			gen, err := ctx.newGenerator(cmd.Context())
			if err != nil {
				return err
			}

			res, err := gen.CreateJourney(cmd.Context(), data, filepath.Base(imagePath), !noCache)
			if err != nil {
				return err
			}
			j := res.Journey

			if res.Cached {
				fmt.Fprintf(cmd.ErrOrStderr(), "Using cached journey %s\n", j.ID)
			}

			if outPath != "" {
				if err := fileutil.WriteJSONAtomic(outPath, j); err != nil {
					return fmt.Errorf("write journey: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Journey written to %s\n", outPath)
			}

			if save {
				lib, err := ctx.openLibrary()
				if err != nil {
					return err
				}
				entry, err := lib.Save(cmd.Context(), j, "")
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Saved journey %s to library\n", entry.JourneyID)
			}

			if asJSON {
				return writeJSON(cmd, j)
			}
			return render.WriteText(cmd.OutOrStdout(), j)
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Ignore any cached journey and call the model")
	cmd.Flags().BoolVar(&save, "save", false, "Save the journey to the library")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Also write the journey JSON to this file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the journey as JSON instead of text")
	return cmd
}
