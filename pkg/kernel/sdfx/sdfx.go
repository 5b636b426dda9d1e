// Package sdfx implements kernel.Kernel with the github.com/deadsy/sdfx
// signed distance field library.
package sdfx

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/strata/pkg/kernel"
)

var _ kernel.Kernel = (*Kernel)(nil)

// Defaults for marching cubes resolution.
const (
	DefaultCellSize = 10.0 // mm
	DefaultMaxCells = 400
	minCells        = 8
)

type solid struct {
	s sdf.SDF3
}

func (s *solid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	return [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}, [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
}

// Kernel meshes solids with uniform marching cubes. The number of cells
// along the longest side of a solid is its length divided by CellSize,
// clamped to MaxCells. Features thinner than a cell may be lost.
type Kernel struct {
	CellSize float64
	MaxCells int
}

// New returns a Kernel with the default resolution.
func New() *Kernel {
	return &Kernel{CellSize: DefaultCellSize, MaxCells: DefaultMaxCells}
}

func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*solid).s
}

func wrap(s sdf.SDF3) kernel.Solid {
	return &solid{s: s}
}

// Box creates a box with its minimum corner at the origin. sdf.Box3D is
// centred, so it is shifted by half its size.
func (k *Kernel) Box(x, y, z float64) kernel.Solid {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Box3D: %v", err))
	}
	return wrap(sdf.Transform3D(s, sdf.Translate3d(v3.Vec{X: x / 2, Y: y / 2, Z: z / 2})))
}

func (k *Kernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

func (k *Kernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return wrap(sdf.Transform3D(unwrap(s), sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})))
}

// Rotate rotates a solid by Euler angles in degrees, X first.
func (k *Kernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.RotateZ(radians(z)).Mul(sdf.RotateY(radians(y))).Mul(sdf.RotateX(radians(x)))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// cells returns the marching cubes resolution for s.
func (k *Kernel) cells(s sdf.SDF3) int {
	size := s.BoundingBox().Size()
	longest := math.Max(size.X, math.Max(size.Y, size.Z))
	n := minCells
	if k.CellSize > 0 {
		n = int(math.Ceil(longest / k.CellSize))
	}
	if k.MaxCells > 0 && n > k.MaxCells {
		n = k.MaxCells
	}
	if n < minCells {
		n = minCells
	}
	return n
}

// ToMesh converts a solid to a triangle mesh with per-face normals.
func (k *Kernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	s3 := unwrap(s)
	triangles := render.ToTriangles(s3, render.NewMarchingCubesUniform(k.cells(s3)))
	if len(triangles) == 0 {
		return nil, fmt.Errorf("solid produced no triangles at %d cells", k.cells(s3))
	}

	numVerts := len(triangles) * 3
	m := &kernel.Mesh{
		Vertices: make([]float32, 0, numVerts*3),
		Normals:  make([]float32, 0, numVerts*3),
		Indices:  make([]uint32, 0, numVerts),
	}
	for i, tri := range triangles {
		n := tri.Normal()
		for j := 0; j < 3; j++ {
			v := tri[j]
			m.Vertices = append(m.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
			m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
			m.Indices = append(m.Indices, uint32(i*3+j))
		}
	}
	return m, nil
}
