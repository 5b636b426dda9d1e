package junction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/strata/pkg/geom"
	"github.com/chazu/strata/pkg/store"
	"github.com/chazu/strata/pkg/wall"
)

func ref(id string, x0, y0, x1, y1 float64) store.WallRef {
	return store.WallRef{ID: wall.ID(id), Curve: &geom.Line{Start: geom.Pt(x0, y0), End: geom.Pt(x1, y1)}}
}

var target = ref("A", 0, 0, 5000, 0)

func TestDetectToleranceBoundary(t *testing.T) {
	tests := []struct {
		name   string
		gap    float64
		expect bool
	}{
		{"touching", 0, true},
		{"one below", DefaultTolerance - 1, true},
		{"exactly at", DefaultTolerance, true},
		{"one above", DefaultTolerance + 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := ref("B", 5000+tt.gap, 0, 5000+tt.gap, 3000)
			js := Detect(target, []store.WallRef{other}, DefaultTolerance)
			if !tt.expect {
				assert.Empty(t, js)
				return
			}
			require.Len(t, js, 1)
			assert.Equal(t, wall.ID("B"), js[0].Connected)
			assert.Equal(t, wall.End, js[0].Target)
			assert.Equal(t, wall.Start, js[0].ConnectedEnd)
			assert.Equal(t, target.Curve.End, js[0].Point)
			assert.InDelta(t, tt.gap, js[0].Distance, 1e-9)
		})
	}
}

func TestDetectEndpointRoles(t *testing.T) {
	others := []store.WallRef{
		ref("ss", 0, 100, 0, 3000),       // its start near target start
		ref("se", -3000, 0, -10, 0),      // its end near target start
		ref("es", 5000, 0, 5000, -3000),  // its start at target end
		ref("ee", 5000, 4000, 5000, 200), // its end near target end
		{ID: "nocurve"},
		ref("far", 2000, 2000, 3000, 2000),
	}
	js := Detect(target, others, DefaultTolerance)
	require.Len(t, js, 4)

	want := []struct {
		id            wall.ID
		target, other wall.Endpoint
	}{
		{"ss", wall.Start, wall.Start},
		{"se", wall.Start, wall.End},
		{"es", wall.End, wall.Start},
		{"ee", wall.End, wall.End},
	}
	for i, w := range want {
		assert.Equal(t, w.id, js[i].Connected, "junction %d", i)
		assert.Equal(t, w.target, js[i].Target, "junction %d", i)
		assert.Equal(t, w.other, js[i].ConnectedEnd, "junction %d", i)
	}
}

func TestDetectShortWallTouchesBothEnds(t *testing.T) {
	short := ref("A", 0, 0, 300, 0)
	others := []store.WallRef{ref("B", 0, 0, 0, 3000)}

	js := Detect(short, others, DefaultTolerance)
	require.Len(t, js, 2)
	assert.Equal(t, wall.Start, js[0].Target)
	assert.Equal(t, wall.End, js[1].Target)
	assert.Equal(t, wall.Start, js[1].ConnectedEnd)
}

func TestDetectUsesThreeDimensionalDistance(t *testing.T) {
	upper := store.WallRef{ID: "up", Curve: &geom.Line{Start: geom.Pt3(5000, 0, 3000), End: geom.Pt3(5000, 3000, 3000)}}
	assert.Empty(t, Detect(target, []store.WallRef{upper}, DefaultTolerance))
}

func TestDetectComparesAbsoluteElevations(t *testing.T) {
	tests := []struct {
		name       string
		targetBase float64
		otherBase  float64
		otherZ     float64
		expect     bool
	}{
		{"same level", 0, 0, 0, true},
		{"level above", 0, 3000, 0, false},
		{"both on upper level", 3000, 3000, 0, true},
		{"base offset lines up", 0, 3000, -3000, true},
		{"offset within tolerance", 0, 200, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := target
			a.Base = tt.targetBase
			other := store.WallRef{
				ID:    "B",
				Curve: &geom.Line{Start: geom.Pt3(5000, 0, tt.otherZ), End: geom.Pt3(5000, 4000, tt.otherZ)},
				Base:  tt.otherBase,
			}
			js := Detect(a, []store.WallRef{other}, DefaultTolerance)
			if !tt.expect {
				assert.Empty(t, js)
				return
			}
			require.Len(t, js, 1)
			assert.Equal(t, geom.Pt(5000, 0), js[0].Point, "point stays level-relative")
		})
	}
}

func TestDetectWithoutTargetCurve(t *testing.T) {
	assert.Empty(t, Detect(store.WallRef{ID: "A"}, []store.WallRef{ref("B", 0, 0, 0, 10)}, DefaultTolerance))
}
