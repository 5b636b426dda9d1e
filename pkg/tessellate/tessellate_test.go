package tessellate_test

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/chazu/strata/pkg/kernel"
	"github.com/chazu/strata/pkg/kernel/sdfx"
	"github.com/chazu/strata/pkg/model"
	"github.com/chazu/strata/pkg/model/modeltest"
	"github.com/chazu/strata/pkg/tessellate"
	"github.com/chazu/strata/pkg/wall"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPartsOfCompositeWall(t *testing.T) {
	doc := modeltest.SingleWall()
	parts, errs := tessellate.Parts(&doc)
	require.Empty(t, errs)
	require.Len(t, parts, 3)

	wantY := []float64{30, -45, -75}
	for i, p := range parts {
		assert.Equal(t, wall.ID("W1"), p.Wall)
		assert.Equal(t, i, p.Layer)
		assert.InDelta(t, wantY[i], p.Centerline.Start.Y, 1e-9)
		assert.Equal(t, 3000.0, p.Height)
		assert.Equal(t, 0.0, p.Base)
	}
	assert.Equal(t, wall.Structure, parts[0].Function)
	assert.Equal(t, "W1/1 Insulation", parts[1].Name())
}

func TestPartsOfSingleLayerWall(t *testing.T) {
	doc := modeltest.Corner()
	doc.Levels[0].Elevation = 3000
	p1, _ := doc.WallByID("P1")
	p1.Justification = wall.FinishExterior
	p1.Attributes = wall.Attributes{wall.AttrBaseOffset: "150"}

	parts, errs := tessellate.Parts(&doc)
	require.Empty(t, errs)
	require.Len(t, parts, 5)

	last := parts[4]
	assert.Equal(t, wall.ID("P1"), last.Wall)
	assert.Equal(t, 200.0, last.Thickness)
	assert.Equal(t, 3150.0, last.Base)
	// The exterior face is on the curve, so the centerline sits half the
	// width to the right of the direction of travel.
	assert.InDelta(t, 3900, last.Centerline.Start.Y, 1e-9)
}

func TestPartsSkipsUnplaceableWalls(t *testing.T) {
	doc := modeltest.Corner()
	doc.Walls = append(doc.Walls,
		model.Wall{ID: "nocurve", Type: "T-215", Height: 3000},
		model.Wall{ID: "ghost", Type: "T-missing", Curve: modeltest.Line(0, 0, 1, 0), Height: 3000},
	)
	parts, errs := tessellate.Parts(&doc)
	assert.Len(t, parts, 5)
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], wall.ErrGeometryUnavailable)
}

// recorder is a kernel that records the operations applied to boxes.
type recorder struct {
	mu  sync.Mutex
	ops []string
	err error
}

type recSolid struct{ min, max [3]float64 }

func (s *recSolid) BoundingBox() (min, max [3]float64) { return s.min, s.max }

func (r *recorder) record(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

func (r *recorder) count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, o := range r.ops {
		if o == op {
			n++
		}
	}
	return n
}

func (r *recorder) Box(x, y, z float64) kernel.Solid {
	r.record("box")
	return &recSolid{max: [3]float64{x, y, z}}
}

func (r *recorder) Union(a, b kernel.Solid) kernel.Solid {
	r.record("union")
	return a
}

func (r *recorder) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	r.record("translate")
	return s
}

func (r *recorder) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	r.record("rotate")
	return s
}

func (r *recorder) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	r.record("mesh")
	if r.err != nil {
		return nil, r.err
	}
	return &kernel.Mesh{Vertices: []float32{0, 0, 0}}, nil
}

func TestTessellateMerge(t *testing.T) {
	doc := modeltest.Corner()

	r := &recorder{}
	meshes, err := tessellate.Tessellate(&doc, r, tessellate.Options{})
	require.NoError(t, err)
	require.Len(t, meshes, 5)
	assert.Equal(t, "W1/0 Structure", meshes[0].PartName)
	assert.Equal(t, "Finish1", meshes[1].Function)

	r = &recorder{}
	meshes, err = tessellate.Tessellate(&doc, r, tessellate.Options{Merge: true})
	require.NoError(t, err)
	require.Len(t, meshes, 3)
	assert.Equal(t, []string{"W1", "W2", "P1"}, []string{meshes[0].PartName, meshes[1].PartName, meshes[2].PartName})
	assert.Empty(t, meshes[0].Function)
	assert.Equal(t, "Structure", meshes[2].Function)

	assert.Equal(t, 2, r.count("union"))
	assert.Equal(t, 5, r.count("box"))
}

func TestTessellateKeepsDocumentOrder(t *testing.T) {
	doc := modeltest.Corner()
	want, err := tessellate.Tessellate(&doc, &recorder{}, tessellate.Options{Workers: 1})
	require.NoError(t, err)

	got, err := tessellate.Tessellate(&doc, &recorder{}, tessellate.Options{Workers: 4})
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].PartName, got[i].PartName)
	}
}

func TestTessellateKernelFailure(t *testing.T) {
	doc := modeltest.Corner()
	boom := errors.New("boom")
	meshes, err := tessellate.Tessellate(&doc, &recorder{err: boom}, tessellate.Options{})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, meshes)
}

func TestTessellateLogsSkippedWalls(t *testing.T) {
	doc := modeltest.Corner()
	doc.Walls = append(doc.Walls, model.Wall{ID: "nocurve", Type: "T-215", Height: 3000})
	core, logs := observer.New(zapcore.WarnLevel)

	meshes, err := tessellate.Tessellate(&doc, &recorder{}, tessellate.Options{Log: zap.New(core)})
	require.NoError(t, err)
	assert.Len(t, meshes, 5)

	entries := logs.FilterMessage("wall not tessellated").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "nocurve")
}

func TestTessellateNilDocument(t *testing.T) {
	meshes, err := tessellate.Tessellate(nil, &recorder{}, tessellate.Options{})
	assert.NoError(t, err)
	assert.Nil(t, meshes)
}

func TestSlabPlacement(t *testing.T) {
	k := sdfx.New()
	doc := modeltest.Corner()
	parts, _ := tessellate.Parts(&doc)

	// W2 runs along +Y; its structure layer is centred on x = 4992.5.
	w2 := parts[2]
	require.Equal(t, wall.ID("W2"), w2.Wall)
	min, max := tessellate.Slab(k, w2).BoundingBox()

	const tol = 1e-3
	assert.InDelta(t, 4892.5, min[0], tol)
	assert.InDelta(t, 5092.5, max[0], tol)
	assert.InDelta(t, 0, min[1], tol)
	assert.InDelta(t, 4000, max[1], tol)
	assert.InDelta(t, 0, min[2], tol)
	assert.InDelta(t, 3000, max[2], tol)
}

func TestTessellateWithSdfx(t *testing.T) {
	doc := model.Document{
		Types: []model.WallType{modeltest.GenericType()},
		Walls: []model.Wall{{ID: "P", Type: "T-generic", Curve: modeltest.Line(0, 0, 400, 400), Height: 300}},
	}
	k := &sdfx.Kernel{CellSize: 10, MaxCells: 80}

	meshes, err := tessellate.Tessellate(&doc, k, tessellate.Options{})
	require.NoError(t, err)
	require.Len(t, meshes, 1)
	m := meshes[0]
	require.False(t, m.IsEmpty())

	min, max, ok := m.Bounds()
	require.True(t, ok)
	// A 200 mm slab along the diagonal spans 400 + 200/sqrt2 in plan.
	half := 100 / math.Sqrt2
	cell := 20.0
	assert.InDelta(t, -half, float64(min[0]), cell)
	assert.InDelta(t, 400+half, float64(max[0]), cell)
	assert.InDelta(t, 300, float64(max[2]), cell)
}
