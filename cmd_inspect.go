package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/strata/pkg/model"
	"github.com/chazu/strata/pkg/tessellate"
	"github.com/chazu/strata/pkg/wall"
)

var (
	junctionTolerance float64
	meshOut           string
	meshMerge         bool
)

// ErrInvalidModel is returned by validate when the model has errors.
var ErrInvalidModel = errors.New("model has errors")

var junctionsCmd = &cobra.Command{
	Use:   "junctions <model> <wall>",
	Short: "List the walls joined to the ends of a wall",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		js, err := newApp().Junctions(cmd.Context(), args[0], wall.ID(args[1]), junctionTolerance)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(js) == 0 {
			fmt.Fprintln(out, "no junctions")
			return nil
		}
		for _, j := range js {
			fmt.Fprintf(out, "%-5s -> %s %-5s at (%.1f, %.1f)  %.1f mm\n",
				j.Target, j.Connected, j.ConnectedEnd, j.Point.X, j.Point.Y, j.Distance)
		}
		return nil
	},
}

var layersCmd = &cobra.Command{
	Use:   "layers <model> <wall>",
	Short: "Show the layer centerlines of a composite wall",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		geoms, err := newApp().Layers(cmd.Context(), args[0], wall.ID(args[1]))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, g := range geoms {
			fmt.Fprintf(out, "%d %-12s %-16s %7.1f mm  offset %8.1f  %v\n",
				g.Index, g.Layer.Function, g.Layer.MaterialCode(), g.Thickness, g.Offset, g.Centerline)
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <model>",
	Short: "Check a model for errors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		findings, err := newApp().Validate(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, f := range findings {
			fmt.Fprintf(out, "%s: %v\n", f.Severity, f)
		}
		if model.HasErrors(findings) {
			return ErrInvalidModel
		}
		fmt.Fprintln(out, "ok")
		return nil
	},
}

var meshCmd = &cobra.Command{
	Use:   "mesh <model>",
	Short: "Tessellate the walls of a model and print the meshes as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := newApp().Mesh(cmd.Context(), args[0], tessellate.Options{Merge: meshMerge})
		if err != nil {
			return err
		}
		if meshOut == "" {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		f, err := os.Create(meshOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", meshOut, err)
		}
		if err := writeJSON(f, res); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	},
}

func init() {
	junctionsCmd.Flags().Float64VarP(&junctionTolerance, "tolerance", "t", 0, "endpoint distance in mm (default from config)")
	meshCmd.Flags().StringVarP(&meshOut, "out", "o", "", "write JSON to this file instead of stdout")
	meshCmd.Flags().BoolVar(&meshMerge, "merge", false, "one mesh per wall instead of one per layer")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
