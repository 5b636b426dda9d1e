package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chazu/strata/pkg/config"
	"github.com/chazu/strata/pkg/kernel/sdfx"
	"github.com/chazu/strata/pkg/modelfile"
	"github.com/chazu/strata/pkg/tessellate"
	"github.com/chazu/strata/pkg/wall"
)

// smallWall is a one metre two-layer wall, coarse enough to mesh quickly.
const smallWall = `
(def t (wall-type "T-300" :name "Block and insulation"
  (layer :structure 200 :material "Block")
  (layer :insulation 100 :material "Wool")))
(wall "W1" :type t :from (pt 0 0) :to (pt 1000 0) :height 500)
`

func newTestApp(t *testing.T) *App {
	t.Helper()
	a := NewApp(config.Default(), zaptest.NewLogger(t))
	a.kernel = &sdfx.Kernel{CellSize: 20, MaxCells: 64}
	return a
}

// TestE2EEvaluate runs the full pipeline: Lisp source -> engine -> document
// -> tessellate -> meshes.
func TestE2EEvaluate(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate(smallWall, tessellate.Options{})

	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}
	if len(result.Meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(result.Meshes))
	}

	want := []struct{ part, function, color string }{
		{"W1/0 Structure", "Structure", functionColors["Structure"]},
		{"W1/1 Insulation", "Insulation", functionColors["Insulation"]},
	}
	for i, m := range result.Meshes {
		if m.PartName != want[i].part {
			t.Errorf("mesh %d: part %q, want %q", i, m.PartName, want[i].part)
		}
		if m.Function != want[i].function {
			t.Errorf("mesh %d: function %q, want %q", i, m.Function, want[i].function)
		}
		if m.Color != want[i].color {
			t.Errorf("mesh %d: color %q, want %q", i, m.Color, want[i].color)
		}
		if len(m.Vertices) == 0 || len(m.Normals) == 0 || len(m.Indices) == 0 {
			t.Errorf("mesh %d: empty geometry", i)
		}
	}
}

func TestE2EEvaluateMerged(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate(smallWall, tessellate.Options{Merge: true})
	require.Empty(t, result.Errors)
	require.Len(t, result.Meshes, 1)
	assert.Equal(t, "W1", result.Meshes[0].PartName)
	assert.Equal(t, colorPalette[0], result.Meshes[0].Color)
}

func TestE2EEmptySource(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate("", tessellate.Options{})

	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors for empty source: %v", result.Errors)
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes for empty source, got %d", len(result.Meshes))
	}
	// Slices are non-nil so JSON has [] rather than null.
	if result.Meshes == nil || result.Errors == nil || result.Warnings == nil {
		t.Error("result slices should be non-nil")
	}
}

func TestE2ESyntaxError(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate("(+ 1 2)\n(wall \"W1\"", tessellate.Options{})

	if len(result.Errors) == 0 {
		t.Fatal("expected eval errors for syntax error")
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes on error, got %d", len(result.Meshes))
	}
}

func TestE2EInvalidModel(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate(`(wall "W1" :type "missing" :from (pt 0 0) :to (pt 1000 0) :height 500)`, tessellate.Options{})
	assert.NotEmpty(t, result.Errors)
	assert.Empty(t, result.Meshes)
}

func copyExample(t *testing.T, name string) string {
	t.Helper()
	src, err := os.ReadFile(filepath.Join("examples", name))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, src, 0o644))
	return path
}

func TestExplodeScriptNeedsOut(t *testing.T) {
	app := newTestApp(t)
	path := copyExample(t, "corner.strata")

	_, err := app.Explode(context.Background(), path, nil, "")
	assert.ErrorIs(t, err, ErrScriptOutput)
}

func TestExplodeCornerExample(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)
	path := copyExample(t, "corner.strata")
	out := filepath.Join(t.TempDir(), "corner.yaml")

	report, err := app.Explode(ctx, path, nil, out)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Skipped) // P1 has a single layer
	assert.Equal(t, 4, report.Segments())
	assert.Equal(t, 2, report.TypesCreated)

	doc, err := modelfile.Read(ctx, out, nil)
	require.NoError(t, err)
	_, ok := doc.WallByID("W1")
	assert.False(t, ok, "W1 should have been replaced")
	_, ok = doc.WallByID("P1")
	assert.True(t, ok)
	assert.Len(t, doc.Walls, 5)

	// The concrete layers meet at the inside of the corner.
	w1 := report.Results[0]
	require.Len(t, w1.Segments, 2)
	assert.InDelta(t, 4992.5, w1.Segments[0].Centerline.End.X, 1e-6)
	assert.InDelta(t, 7.5, w1.Segments[0].Centerline.End.Y, 1e-6)
	host, ok := w1.HostSegment()
	require.True(t, ok)
	assert.Equal(t, wall.Structure, host.Key.Function)

	// A second run over the result has nothing left to split.
	again, err := app.Explode(ctx, out, nil, "")
	require.NoError(t, err)
	assert.Zero(t, again.Processed)
	assert.Equal(t, 5, again.Skipped)
}

func TestExplodeAndPurgeSQLite(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)

	doc, err := modelfile.Read(ctx, filepath.Join("examples", "corner.strata"), nil)
	require.NoError(t, err)
	db := filepath.Join(t.TempDir(), "corner.db")
	require.NoError(t, modelfile.Save(ctx, db, doc))

	report, err := app.Explode(ctx, db, []wall.ID{"W1"}, "")
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.True(t, report.Results[0].Removed)

	// The database was updated in place.
	after, err := modelfile.Read(ctx, db, nil)
	require.NoError(t, err)
	_, ok := after.WallByID("W1")
	assert.False(t, ok)
	assert.Len(t, after.Types, 4)

	// Generated types in use survive a purge.
	res, err := app.Purge(ctx, db, "")
	require.NoError(t, err)
	assert.Empty(t, res.Purged)
	assert.Len(t, res.Kept, 2)
}

func TestJunctionsAndLayers(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)
	path := filepath.Join("examples", "corner.strata")

	js, err := app.Junctions(ctx, path, "W2", 0)
	require.NoError(t, err)
	require.Len(t, js, 2)
	assert.Equal(t, wall.ID("W1"), js[0].Connected)
	assert.Equal(t, wall.Start, js[0].Target)
	assert.Equal(t, wall.End, js[0].ConnectedEnd)
	assert.Equal(t, wall.ID("P1"), js[1].Connected)
	assert.Equal(t, wall.End, js[1].Target)
	assert.InDelta(t, 300, js[1].Distance, 1e-9)

	// P1 starts 300 mm from W2's end: a junction only within tolerance.
	js, err = app.Junctions(ctx, path, "P1", 200)
	require.NoError(t, err)
	assert.Empty(t, js)

	geoms, err := app.Layers(ctx, path, "W1")
	require.NoError(t, err)
	require.Len(t, geoms, 2)
	assert.InDelta(t, 7.5, geoms[0].Centerline.Start.Y, 1e-9)
	assert.InDelta(t, -100, geoms[1].Centerline.Start.Y, 1e-9)

	_, err = app.Layers(ctx, path, "P1")
	assert.ErrorIs(t, err, wall.ErrNotComposite)
	_, err = app.Layers(ctx, path, "nope")
	assert.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"validate", filepath.Join("examples", "corner.strata")})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.True(t, strings.HasSuffix(out.String(), "ok\n"), out.String())
}
