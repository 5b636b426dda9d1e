// Package tessellate turns the walls of a model into triangle meshes, one
// per layer (or one per wall when merged), using a geometry kernel.
package tessellate

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/strata/pkg/geom"
	"github.com/chazu/strata/pkg/kernel"
	"github.com/chazu/strata/pkg/layout"
	"github.com/chazu/strata/pkg/logging"
	"github.com/chazu/strata/pkg/model"
	"github.com/chazu/strata/pkg/wall"
)

// Options control tessellation.
type Options struct {
	// Merge unions the layers of each wall into a single mesh.
	Merge bool
	// Workers bounds the number of meshes built at once; 0 means
	// GOMAXPROCS.
	Workers int
	// Log receives a warning for every wall left out. Nil discards them.
	Log *zap.Logger
}

// Part is one slab of a wall: a layer of a composite wall, or a whole
// single-layer wall. Base is the elevation of its underside.
type Part struct {
	Wall       wall.ID
	Layer      int
	Function   wall.Function
	Centerline geom.Line
	Thickness  float64
	Height     float64
	Base       float64
}

// Name labels the part in mesh output.
func (p Part) Name() string {
	return fmt.Sprintf("%s/%d %s", p.Wall, p.Layer, p.Function)
}

// Parts lists the slabs of every wall in doc. Walls that cannot be placed
// are left out and reported in the returned errors. Curves are relative to
// their level; a base_offset attribute raises the wall further.
func Parts(doc *model.Document) ([]Part, []error) {
	var parts []Part
	var errs []error
	for _, w := range doc.Walls {
		p, err := wallParts(doc, w)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		parts = append(parts, p...)
	}
	return parts, errs
}

func wallParts(doc *model.Document, w model.Wall) ([]Part, error) {
	t, ok := doc.TypeByID(w.Type)
	if !ok {
		return nil, fmt.Errorf("wall %s: unknown type %s", w.ID, w.Type)
	}
	if w.Curve == nil || w.Curve.IsDegenerate() {
		return nil, wall.NewError(wall.GeometryUnavailable, w.ID, nil)
	}
	if w.Height <= 0 {
		return nil, wall.NewError(wall.GeometryUnavailable, w.ID, fmt.Errorf("height %g", w.Height))
	}

	base := w.Curve.Start.Z + doc.Elevation(w)
	offset, _, err := w.Attributes.Length(wall.AttrBaseOffset)
	if err != nil {
		return nil, fmt.Errorf("wall %s: %w", w.ID, err)
	}
	base += offset

	spec := model.Spec(w, *t)
	geoms, err := layout.Resolve(spec)
	switch {
	case err == nil:
		parts := make([]Part, 0, len(geoms))
		for _, g := range geoms {
			parts = append(parts, Part{
				Wall:       w.ID,
				Layer:      g.Index,
				Function:   g.Layer.Function,
				Centerline: g.Centerline,
				Thickness:  g.Thickness,
				Height:     w.Height,
				Base:       base,
			})
		}
		return parts, nil
	case errors.Is(err, wall.ErrNotComposite):
		fn := wall.Other
		if len(t.Layers) > 0 {
			fn = t.Layers[0].Function
		}
		width := spec.Width
		if width <= 0 {
			return nil, wall.NewError(wall.GeometryUnavailable, w.ID, fmt.Errorf("type %s has no width", t.ID))
		}
		return []Part{{
			Wall:       w.ID,
			Function:   fn,
			Centerline: layout.Recenter(spec).Curve,
			Thickness:  width,
			Height:     w.Height,
			Base:       base,
		}}, nil
	default:
		return nil, wall.NewError(wall.GeometryUnavailable, w.ID, err)
	}
}

// Slab builds the solid of a part: a box along the centerline, centred on
// it across the thickness, rising Height from Base.
func Slab(k kernel.Kernel, p Part) kernel.Solid {
	length := p.Centerline.Length()
	s := k.Box(length, p.Thickness, p.Height)
	s = k.Translate(s, 0, -p.Thickness/2, 0)
	if a := p.Centerline.Angle(); a != 0 {
		s = k.Rotate(s, 0, 0, a*180/math.Pi)
	}
	start := p.Centerline.Start
	return k.Translate(s, start.X, start.Y, p.Base)
}

// job is one mesh to build: a single part, or every part of a wall when
// merging.
type job struct {
	name     string
	function string
	parts    []Part
}

func jobs(parts []Part, merge bool) []job {
	var out []job
	if !merge {
		for _, p := range parts {
			out = append(out, job{name: p.Name(), function: p.Function.String(), parts: []Part{p}})
		}
		return out
	}
	for i := 0; i < len(parts); {
		j := i + 1
		for j < len(parts) && parts[j].Wall == parts[i].Wall {
			j++
		}
		jb := job{name: string(parts[i].Wall), parts: parts[i:j]}
		if j-i == 1 {
			jb.function = parts[i].Function.String()
		}
		out = append(out, jb)
		i = j
	}
	return out
}

func (jb job) mesh(k kernel.Kernel) (*kernel.Mesh, error) {
	solid := Slab(k, jb.parts[0])
	for _, p := range jb.parts[1:] {
		solid = k.Union(solid, Slab(k, p))
	}
	m, err := k.ToMesh(solid)
	if err != nil {
		return nil, fmt.Errorf("tessellate: %s: %w", jb.name, err)
	}
	m.PartName = jb.name
	m.Function = jb.function
	return m, nil
}

// Tessellate meshes every wall of doc, in document order. Walls that cannot
// be placed are skipped and logged; a kernel failure aborts. The kernel
// must be safe for concurrent use when opts.Workers is not 1.
func Tessellate(doc *model.Document, k kernel.Kernel, opts Options) ([]*kernel.Mesh, error) {
	if doc == nil {
		return nil, nil
	}
	log := logging.OrNop(opts.Log)
	parts, skipped := Parts(doc)
	for _, err := range skipped {
		log.Warn("wall not tessellated", zap.Error(err))
	}
	todo := jobs(parts, opts.Merge)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	meshes := make([]*kernel.Mesh, len(todo))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, jb := range todo {
		g.Go(func() error {
			m, err := jb.mesh(k)
			if err != nil {
				return err
			}
			meshes[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return meshes, nil
}
