package layout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/strata/pkg/geom"
	"github.com/chazu/strata/pkg/wall"
)

func threeLayer() wall.CompositeWallSpec {
	return wall.CompositeWallSpec{
		WallID: "w1",
		Curve:  geom.Line{Start: geom.Pt(0, 0), End: geom.Pt(5000, 0)},
		Width:  160,
		Height: 3000,
		Layers: []wall.LayerSpec{
			{Function: wall.Structure, Material: wall.Material{Name: "Concrete"}, Thickness: 100},
			{Function: wall.Insulation, Material: wall.Material{Name: "Mineral wool"}, Thickness: 50},
			{Function: wall.Finish1, Material: wall.Material{Name: "Plaster"}, Thickness: 10},
		},
	}
}

func TestResolveThreeLayerWall(t *testing.T) {
	layers, err := Resolve(threeLayer())
	require.NoError(t, err)
	require.Len(t, layers, 3)

	wantY := []float64{30, -45, -75}
	var total float64
	for i, g := range layers {
		total += g.Thickness
		assert.InDelta(t, wantY[i], g.Centerline.Start.Y, 1e-9, "layer %d start", i)
		assert.InDelta(t, wantY[i], g.Centerline.End.Y, 1e-9, "layer %d end", i)
		assert.InDelta(t, 5000, g.Centerline.Length(), 1e-9)
		assert.True(t, geom.Parallel(g.Centerline, layers[0].Centerline))
	}
	assert.InDelta(t, 160, total, 1e-9)

	for i := 1; i < len(layers); i++ {
		prev, cur := layers[i-1], layers[i]
		spacing := math.Abs(cur.Offset - prev.Offset)
		assert.InDelta(t, (prev.Thickness+cur.Thickness)/2, spacing, 1e-9, "spacing %d", i)
	}
}

func TestResolveLayersAreContiguous(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*wall.CompositeWallSpec)
	}{
		{"centerline", func(*wall.CompositeWallSpec) {}},
		{"flipped", func(s *wall.CompositeWallSpec) { s.Flipped = true }},
		{"diagonal", func(s *wall.CompositeWallSpec) {
			s.Curve = geom.Line{Start: geom.Pt(-300, 120), End: geom.Pt(2700, 4120)}
		}},
		{"exterior finish", func(s *wall.CompositeWallSpec) { s.Justification = wall.FinishExterior }},
		{"core interior", func(s *wall.CompositeWallSpec) { s.Justification = wall.CoreInterior }},
		{"many thin layers", func(s *wall.CompositeWallSpec) {
			s.Layers = nil
			s.Width = 0
			for i := 0; i < 7; i++ {
				th := 12.5 + float64(i)*3.3
				s.Layers = append(s.Layers, wall.LayerSpec{Function: wall.Function(i), Thickness: th})
				s.Width += th
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := threeLayer()
			tt.mod(&spec)
			layers, err := Resolve(spec)
			require.NoError(t, err)

			assert.InDelta(t, 0, layers[0].ExteriorFace(), 1e-9)
			assert.InDelta(t, spec.Width, layers[len(layers)-1].InteriorFace(), 1e-9)
			for i := 0; i+1 < len(layers); i++ {
				assert.InDelta(t, layers[i].InteriorFace(), layers[i+1].ExteriorFace(), 1e-9, "faces %d/%d", i, i+1)
				gap := math.Abs(layers[i+1].Offset-layers[i].Offset) - (layers[i].Thickness+layers[i+1].Thickness)/2
				assert.InDelta(t, 0, gap, 1e-9, "gap %d/%d", i, i+1)
			}
		})
	}
}

func TestResolveFlippedMirrorsOffsets(t *testing.T) {
	spec := threeLayer()
	spec.Flipped = true
	layers, err := Resolve(spec)
	require.NoError(t, err)

	for i, want := range []float64{-30, 45, 75} {
		assert.InDelta(t, want, layers[i].Centerline.Start.Y, 1e-9)
	}
	assert.InDelta(t, 1, layers[0].Normal.Y, 1e-12)
}

func TestResolveJustification(t *testing.T) {
	t.Run("exterior face on reference curve", func(t *testing.T) {
		spec := threeLayer()
		spec.Justification = wall.FinishExterior
		layers, err := Resolve(spec)
		require.NoError(t, err)
		assert.InDelta(t, 50, layers[0].Offset, 1e-9)
		assert.InDelta(t, 155, layers[2].Offset, 1e-9)
	})

	t.Run("core centerline", func(t *testing.T) {
		spec := threeLayer()
		spec.Layers[0], spec.Layers[2] = spec.Layers[2], spec.Layers[0]
		spec.Layers[1], spec.Layers[2] = spec.Layers[2], spec.Layers[1]
		// finish 10, structure 100, insulation 50
		spec.Justification = wall.CoreCenterline
		layers, err := Resolve(spec)
		require.NoError(t, err)
		assert.Equal(t, wall.Structure, layers[1].Layer.Function)
		assert.InDelta(t, 0, layers[1].Offset, 1e-9)
		assert.InDelta(t, -20, ReferencePosition(spec), 1e-9)
	})

	t.Run("recenter", func(t *testing.T) {
		spec := threeLayer()
		spec.Justification = wall.FinishInterior
		direct, err := Resolve(spec)
		require.NoError(t, err)
		centered, err := Resolve(Recenter(spec))
		require.NoError(t, err)
		for i := range direct {
			assert.InDelta(t, direct[i].Centerline.Start.Y, centered[i].Centerline.Start.Y, 1e-9)
		}
	})
}

func TestResolveNothingToDecompose(t *testing.T) {
	single := threeLayer()
	single.Layers = single.Layers[:1]
	single.Width = 100
	_, err := Resolve(single)
	assert.ErrorIs(t, err, wall.ErrNotComposite)

	noCurve := threeLayer()
	noCurve.Curve = geom.Line{}
	_, err = Resolve(noCurve)
	assert.ErrorIs(t, err, wall.ErrGeometryUnavailable)

	noWidth := threeLayer()
	noWidth.Width = 0
	_, err = Resolve(noWidth)
	assert.ErrorIs(t, err, wall.ErrGeometryUnavailable)

	mismatch := threeLayer()
	mismatch.Width = 170
	_, err = Resolve(mismatch)
	assert.ErrorIs(t, err, ErrWidthMismatch)
}

func TestLayersAcceptsSingleLayer(t *testing.T) {
	tests := []struct {
		name   string
		just   wall.Justification
		offset float64
	}{
		{"centerline", wall.WallCenterline, 0},
		{"finish exterior", wall.FinishExterior, 50},
		{"finish interior", wall.FinishInterior, -50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			single := threeLayer()
			single.Layers = single.Layers[:1]
			single.Width = 100
			single.Justification = tt.just

			geoms, err := Layers(single)
			require.NoError(t, err)
			require.Len(t, geoms, 1)
			assert.InDelta(t, 100, geoms[0].Thickness, 1e-9)
			assert.InDelta(t, tt.offset, geoms[0].Offset, 1e-9)
		})
	}

	empty := threeLayer()
	empty.Layers = nil
	_, err := Layers(empty)
	assert.ErrorIs(t, err, wall.ErrNotComposite)
}
