package modelfile

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/strata/pkg/model/modeltest"
	"github.com/chazu/strata/pkg/store"
	"github.com/chazu/strata/pkg/wall"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
		err  bool
	}{
		{"corner.strata", Script, false},
		{"a/b/model.LISP", Script, false},
		{"model.yaml", YAML, false},
		{"model.yml", YAML, false},
		{"model.db", SQLite, false},
		{"model.sqlite", SQLite, false},
		{"model.json", 0, true},
		{"model", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := DetectFormat(tt.path)
			if tt.err {
				assert.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	doc := modeltest.Corner()
	doc.Walls[1].Justification = wall.FinishInterior
	doc.Walls[1].Flipped = true

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, doc))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "version: \"1\"\n"), out)
	assert.Contains(t, out, "justification: finish-interior")
	assert.Contains(t, out, "function: Structure")

	got, err := ReadYAML(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(doc, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadYAMLRejectsUnknownFields(t *testing.T) {
	_, err := ReadYAML(strings.NewReader("version: \"1\"\nwalls: []\ncolour: red\n"))
	assert.Error(t, err)

	_, err = ReadYAML(strings.NewReader("version: \"7\"\n"))
	assert.ErrorContains(t, err, "unsupported")

	doc, err := ReadYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, doc.Walls)
}

func TestReadYAMLHandWritten(t *testing.T) {
	src := `
version: "1"
levels:
  - {id: L1, name: Ground, elevation: 0}
types:
  - id: T-160
    name: Exterior 160
    kind: basic
    layers:
      - {function: stru, material: {name: Concrete}, thickness: 100}
      - {function: Insulation, thickness: 60}
walls:
  - id: W1
    type: T-160
    curve: {start: {x: 0, y: 0, z: 0}, end: {x: 4000, y: 0, z: 0}}
    justification: core-exterior
    height: 2700
    level: L1
    attributes: {mark: A}
`
	doc, err := ReadYAML(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, doc.Types, 1)
	assert.Equal(t, wall.Structure, doc.Types[0].Layers[0].Function)
	assert.Equal(t, wall.Insulation, doc.Types[0].Layers[1].Function)
	require.Len(t, doc.Walls, 1)
	assert.Equal(t, wall.CoreExterior, doc.Walls[0].Justification)
	assert.Equal(t, 4000.0, doc.Walls[0].Curve.End.X)
	assert.Equal(t, "A", doc.Walls[0].Attributes[wall.AttrMark])
}

func TestOpenAndSave(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	doc := modeltest.SingleWall()

	for _, name := range []string{"model.yaml", "model.db"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, Save(ctx, path, doc))

			s, err := Open(ctx, path, nil)
			require.NoError(t, err)
			defer s.Close()

			got, err := s.Document(ctx)
			require.NoError(t, err)
			require.Len(t, got.Walls, 1)
			assert.Equal(t, doc.Walls[0].Attributes, got.Walls[0].Attributes)

			err = s.RunInTransaction(ctx, "read", func(tx store.Store) error {
				spec, err := tx.WallSpec(ctx, "W1")
				if err != nil {
					return err
				}
				assert.Len(t, spec.Layers, 3)
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestOpenScript(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tiny.strata")
	src := `
(level "L1")
(wall-type "T-generic" (layer :structure 200))
(wall-type "T-2" (layer :structure 100) (layer :insulation 50))
(wall "W1" :type "T-2" :from (pt 0 0) :to (pt 3000 0) :height 2500 :level "L1")
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	s, err := Open(ctx, path, nil)
	require.NoError(t, err)
	doc, err := s.Document(ctx)
	require.NoError(t, err)
	assert.Len(t, doc.Walls, 1)

	assert.ErrorIs(t, Save(ctx, path, doc), ErrReadOnly)
}

func TestOpenScriptWithErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.strata")
	require.NoError(t, os.WriteFile(path, []byte(`(wall "W1")`), 0o644))

	_, err := Open(context.Background(), path, nil)
	assert.ErrorContains(t, err, "bad.strata")
}
