// Package storetest is a conformance suite run against every store
// implementation.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/strata/pkg/geom"
	"github.com/chazu/strata/pkg/model"
	"github.com/chazu/strata/pkg/model/modeltest"
	"github.com/chazu/strata/pkg/store"
	"github.com/chazu/strata/pkg/wall"
)

// Opener returns a fresh, empty backend. Cleanup is the opener's concern.
type Opener func(t *testing.T) store.Backend

var errAbort = errors.New("abort")

// Run executes the suite.
func Run(t *testing.T, open Opener) {
	t.Run("LoadRoundTrip", func(t *testing.T) { testLoadRoundTrip(t, open) })
	t.Run("LoadRejectsInvalid", func(t *testing.T) { testLoadRejectsInvalid(t, open) })
	t.Run("WallSpec", func(t *testing.T) { testWallSpec(t, open) })
	t.Run("Walls", func(t *testing.T) { testWalls(t, open) })
	t.Run("WallBase", func(t *testing.T) { testWallBase(t, open) })
	t.Run("Types", func(t *testing.T) { testTypes(t, open) })
	t.Run("NoTemplate", func(t *testing.T) { testNoTemplate(t, open) })
	t.Run("Segments", func(t *testing.T) { testSegments(t, open) })
	t.Run("Rollback", func(t *testing.T) { testRollback(t, open) })
}

func loaded(t *testing.T, open Opener, doc model.Document) store.Backend {
	t.Helper()
	b := open(t)
	require.NoError(t, b.Load(context.Background(), doc))
	return b
}

func testLoadRoundTrip(t *testing.T, open Opener) {
	for name, doc := range map[string]model.Document{
		"single": modeltest.SingleWall(),
		"corner": modeltest.Corner(),
	} {
		t.Run(name, func(t *testing.T) {
			b := loaded(t, open, doc)
			got, err := b.Document(context.Background())
			require.NoError(t, err)
			if diff := cmp.Diff(doc, got); diff != "" {
				t.Errorf("document mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func testLoadRejectsInvalid(t *testing.T, open Opener) {
	doc := modeltest.SingleWall()
	doc.Walls[0].Type = "missing"
	b := open(t)
	assert.Error(t, b.Load(context.Background(), doc))
}

func testWallSpec(t *testing.T, open Opener) {
	b := loaded(t, open, modeltest.Corner())
	ctx := context.Background()

	err := b.RunInTransaction(ctx, "spec", func(s store.Store) error {
		spec, err := s.WallSpec(ctx, "W1")
		require.NoError(t, err)
		assert.Equal(t, wall.ID("W1"), spec.WallID)
		assert.Equal(t, "Core and finish 215", spec.TypeName)
		assert.InDelta(t, 215, spec.Width, 1e-9)
		assert.Len(t, spec.Layers, 2)
		assert.Equal(t, geom.Pt(5000, 0), spec.Curve.End)

		spec, err = s.WallSpec(ctx, "P1")
		assert.ErrorIs(t, err, wall.ErrNotComposite)
		assert.ErrorIs(t, err, wall.ErrSingleLayer)
		assert.Len(t, spec.Layers, 1)

		_, err = s.WallSpec(ctx, "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func testWalls(t *testing.T, open Opener) {
	b := loaded(t, open, modeltest.Corner())
	ctx := context.Background()

	require.NoError(t, b.RunInTransaction(ctx, "walls", func(s store.Store) error {
		refs, err := s.Walls(ctx, "W1")
		require.NoError(t, err)
		require.Len(t, refs, 2)
		assert.Equal(t, wall.ID("W2"), refs[0].ID)
		assert.Equal(t, wall.ID("P1"), refs[1].ID)
		require.NotNil(t, refs[0].Curve)
		assert.Equal(t, geom.Pt(5000, 4000), refs[0].Curve.End)
		return nil
	}))
}

// testWallBase checks that references carry the level elevation plus the
// base offset, for listed walls and created segments alike.
func testWallBase(t *testing.T, open Opener) {
	doc := modeltest.Corner()
	doc.Levels = append(doc.Levels, model.Level{ID: "L2", Name: "First", Elevation: 3000})
	doc.Walls[1].Level = "L2"
	doc.Walls[1].Attributes = wall.Attributes{wall.AttrBaseOffset: "150"}
	b := loaded(t, open, doc)
	ctx := context.Background()

	require.NoError(t, b.RunInTransaction(ctx, "base", func(s store.Store) error {
		refs, err := s.Walls(ctx, "")
		require.NoError(t, err)
		require.Len(t, refs, 3)
		assert.InDelta(t, 0, refs[0].Base, 1e-9)
		assert.InDelta(t, 3150, refs[1].Base, 1e-9)
		assert.Equal(t, geom.Pt(5000, 4000), refs[1].Curve.End, "curve stays level-relative")
		assert.Equal(t, geom.Pt3(5000, 4000, 3150), refs[1].Absolute().End)

		ref, err := s.CreateWallSegment(ctx, store.SegmentParams{
			Source:     "W2",
			Centerline: *modeltest.Line(5100, 0, 5100, 4000),
			Type:       wall.TypeRef{ID: "T-generic"},
			Level:      "L2",
			Height:     3000,
			Attributes: wall.Attributes{wall.AttrBaseOffset: "150"},
		})
		require.NoError(t, err)
		assert.InDelta(t, 3150, ref.Base, 1e-9)
		return nil
	}))
}

func testTypes(t *testing.T, open Opener) {
	b := loaded(t, open, modeltest.SingleWall())
	ctx := context.Background()
	layer := wall.LayerSpec{Function: wall.Insulation, Material: wall.Material{Name: "Mineral wool"}, Thickness: 50}

	require.NoError(t, b.RunInTransaction(ctx, "types", func(s store.Store) error {
		ref, err := s.CreateSingleLayerType(ctx, model.Basic, "Strata-Isol-Mine-50mm", layer)
		require.NoError(t, err)
		assert.NotEmpty(t, ref.ID)

		found, ok, err := s.FindTypeByName(ctx, "strata-isol-mine-50MM")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, ref, found)

		_, err = s.CreateSingleLayerType(ctx, model.Basic, "STRATA-ISOL-MINE-50MM", layer)
		assert.ErrorIs(t, err, store.ErrDuplicateName)

		_, ok, err = s.FindTypeByName(ctx, "Strata-Isol-Mine-60mm")
		require.NoError(t, err)
		assert.False(t, ok)

		types, err := s.WallTypes(ctx)
		require.NoError(t, err)
		require.Len(t, types, 3)
		assert.Equal(t, []wall.LayerSpec{layer}, types[2].Layers)

		inUse, err := s.TypeInUse(ctx, ref.ID)
		require.NoError(t, err)
		assert.False(t, inUse)
		inUse, err = s.TypeInUse(ctx, "T-160")
		require.NoError(t, err)
		assert.True(t, inUse)

		assert.ErrorIs(t, s.DeleteElement(ctx, "T-160"), store.ErrInUse)
		require.NoError(t, s.DeleteElement(ctx, ref.ID))
		_, ok, err = s.FindTypeByName(ctx, ref.Name)
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	}))
}

func testNoTemplate(t *testing.T, open Opener) {
	b := loaded(t, open, modeltest.NoTemplate())
	ctx := context.Background()

	require.NoError(t, b.RunInTransaction(ctx, "no template", func(s store.Store) error {
		_, err := s.CreateSingleLayerType(ctx, model.Basic, "Strata-Stru-Conc-100mm",
			wall.LayerSpec{Function: wall.Structure, Thickness: 100})
		assert.ErrorIs(t, err, store.ErrNoTemplate)
		return nil
	}))
}

func testSegments(t *testing.T, open Opener) {
	b := loaded(t, open, modeltest.SingleWall())
	ctx := context.Background()
	centerline := geom.Line{Start: geom.Pt(0, 30), End: geom.Pt(5000, 30)}

	var created wall.ID
	require.NoError(t, b.RunInTransaction(ctx, "segments", func(s store.Store) error {
		ref, err := s.CreateWallSegment(ctx, store.SegmentParams{
			Source:     "W1",
			Centerline: centerline,
			Type:       wall.TypeRef{ID: "T-generic"},
			Level:      "L1",
			Height:     3000,
			Attributes: wall.Attributes{wall.AttrBaseConstraint: "L1"},
		})
		require.NoError(t, err)
		created = ref.ID

		_, err = s.CreateWallSegment(ctx, store.SegmentParams{
			Source: "W1", Centerline: centerline, Type: wall.TypeRef{ID: "missing"}, Height: 3000,
		})
		assert.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.CreateWallSegment(ctx, store.SegmentParams{
			Source: "W1", Centerline: geom.Line{}, Type: wall.TypeRef{ID: "T-generic"}, Height: 3000,
		})
		assert.Error(t, err)

		require.NoError(t, s.DeleteElement(ctx, "W1"))
		assert.ErrorIs(t, s.DeleteElement(ctx, "W1"), store.ErrNotFound)
		return nil
	}))

	doc, err := b.Document(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Walls, 1)
	w := doc.Walls[0]
	assert.Equal(t, created, w.ID)
	assert.Equal(t, wall.WallCenterline, w.Justification)
	require.NotNil(t, w.Curve)
	assert.Equal(t, centerline, *w.Curve)
	assert.Equal(t, wall.Attributes{wall.AttrBaseConstraint: "L1"}, w.Attributes)
}

func testRollback(t *testing.T, open Opener) {
	b := loaded(t, open, modeltest.SingleWall())
	ctx := context.Background()

	err := b.RunInTransaction(ctx, "rollback", func(s store.Store) error {
		if err := s.DeleteElement(ctx, "W1"); err != nil {
			return err
		}
		if _, err := s.CreateSingleLayerType(ctx, model.Basic, "Scratch",
			wall.LayerSpec{Function: wall.Other, Thickness: 5}); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	doc, err := b.Document(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(modeltest.SingleWall(), doc); diff != "" {
		t.Errorf("rolled back transaction left changes (-want +got):\n%s", diff)
	}
}
