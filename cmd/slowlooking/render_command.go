package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"slowlooking/pkg/fileutil"
	"slowlooking/pkg/model"
	"slowlooking/pkg/render"
	"slowlooking/pkg/schema"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render JOURNEY IMAGE OUTPUT",
		Short: "Draw a journey's regions onto its image",
		Long: "Draw every step's region onto IMAGE and write the result to OUTPUT (.png or .jpg).\n" +
			"JOURNEY is a journey JSON file or the id of a saved journey.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := loadJourney(ctx, args[0])
			if err != nil {
				return err
			}
			if err := render.OverlayFile(args[1], j, args[2]); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s by %s\n", j.Artwork.DisplayTitle(), j.Artwork.DisplayArtist())
			for _, s := range j.Steps {
				r := s.Region
				fmt.Fprintf(out, "  Step %d: %s at (%.2f, %.2f) size %.2f x %.2f\n", s.StepNumber, r.Title, r.X, r.Y, r.Width, r.Height)
			}
			fmt.Fprintf(out, "Visual saved to %s\n", args[2])
			return nil
		},
	}
	return cmd
}

// loadJourney reads ref as a journey file, falling back to a library id.
func loadJourney(ctx *commandContext, ref string) (*model.Journey, error) {
	if fileutil.FileExists(ref) {
		data, err := os.ReadFile(ref)
		if err != nil {
			return nil, err
		}
		j, err := schema.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("invalid journey %s: %w", ref, err)
		}
		return j, nil
	}

	lib, err := ctx.openLibrary()
	if err != nil {
		return nil, err
	}
	j, ok, err := lib.Get(ref)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("journey %s not found as a file or in the library", ref)
	}
	return j, nil
}
