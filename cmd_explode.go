package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/chazu/strata/pkg/decompose"
	"github.com/chazu/strata/pkg/wall"
)

var (
	explodeWalls []string
	explodeOut   string
	purgeOut     string
)

var explodeCmd = &cobra.Command{
	Use:   "explode <model>",
	Short: "Decompose composite walls into single-layer walls",
	Long: `Replaces each composite wall with one wall per layer, placed on the
layer's centerline and trimmed at junctions so corners stay closed. All walls
are processed in one transaction; nothing is written if it fails.

YAML and SQLite models are updated in place unless --out is given. Script
models are read-only and need --out.

Example:
  strata explode house.db
  strata explode house.strata --wall W1 --wall W2 --out exploded.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runExplode,
}

var purgeCmd = &cobra.Command{
	Use:   "purge <model>",
	Short: "Delete generated wall types that no wall uses",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := newApp().Purge(cmd.Context(), args[0], purgeOut)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "purged %d type(s)\n", len(res.Purged))
		for _, name := range res.Purged {
			fmt.Fprintf(out, "  - %s\n", name)
		}
		if len(res.Kept) > 0 {
			fmt.Fprintf(out, "kept %d type(s) still in use\n", len(res.Kept))
		}
		for _, err := range res.Errors {
			fmt.Fprintf(out, "  ! %v\n", err)
		}
		return nil
	},
}

func init() {
	explodeCmd.Flags().StringArrayVarP(&explodeWalls, "wall", "w", nil, "wall to decompose (repeatable; default all walls)")
	explodeCmd.Flags().StringVarP(&explodeOut, "out", "o", "", "write the result to this model file")
	purgeCmd.Flags().StringVarP(&purgeOut, "out", "o", "", "write the result to this model file")
}

func runExplode(cmd *cobra.Command, args []string) error {
	ids := make([]wall.ID, len(explodeWalls))
	for i, w := range explodeWalls {
		ids[i] = wall.ID(w)
	}

	report, err := newApp().Explode(cmd.Context(), args[0], ids, explodeOut)
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), report)
	return nil
}

func printReport(w io.Writer, report decompose.BatchReport) {
	for _, res := range report.Results {
		if !res.Removed {
			fmt.Fprintf(w, "%s: skipped\n", res.WallID)
		} else {
			fmt.Fprintf(w, "%s: %d segment(s), %d junction(s)\n", res.WallID, len(res.Segments), len(res.Junctions))
		}
		for _, s := range res.Segments {
			marker := " "
			if host, ok := res.HostSegment(); ok && host.ID == s.ID {
				marker = "*"
			}
			fmt.Fprintf(w, "  %s %d %-12s %-40s %.1f mm\n", marker, s.LayerIndex, s.Key.Function, s.Type.Name, s.Thickness)
		}
		for _, e := range res.Errors {
			fmt.Fprintf(w, "  ! %v\n", e)
		}
	}
	fmt.Fprintf(w, "processed %d, skipped %d, %d segment(s), %d new type(s)\n",
		report.Processed, report.Skipped, report.Segments(), report.TypesCreated)
}
