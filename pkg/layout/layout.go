// Package layout resolves the placement of every layer of a composite wall.
//
// Offsets are measured along the wall normal (dir.y, -dir.x), the right
// hand side of the reference curve's direction of travel, negated when the
// wall is flipped. The exterior face sits at -width/2 and layers are laid
// out from there toward the interior face in declaration order, so
// consecutive layers always share a face.
package layout

import (
	"errors"
	"fmt"

	"github.com/chazu/strata/pkg/wall"
)

// ErrWidthMismatch is returned when the layer thicknesses do not add up to
// the wall width.
var ErrWidthMismatch = errors.New("layer thicknesses do not match wall width")

// Resolve computes one LayerGeometry per layer of spec, in layer order.
//
// A wall with at most one layer yields wall.ErrNotComposite. A wall with a
// degenerate curve or no width yields wall.ErrGeometryUnavailable. Both
// mean there is nothing to decompose.
func Resolve(spec wall.CompositeWallSpec) ([]wall.LayerGeometry, error) {
	if !spec.IsComposite() {
		return nil, fmt.Errorf("wall %s has %d layer(s): %w", spec.WallID, len(spec.Layers), wall.ErrNotComposite)
	}
	return Layers(spec)
}

// Layers is Resolve for any layered wall, a single-layer one included. It
// is used to place the layers of walls joined to the one being decomposed.
func Layers(spec wall.CompositeWallSpec) ([]wall.LayerGeometry, error) {
	if len(spec.Layers) == 0 {
		return nil, fmt.Errorf("wall %s has no layers: %w", spec.WallID, wall.ErrNotComposite)
	}
	if spec.Curve.IsDegenerate() {
		return nil, fmt.Errorf("wall %s has no usable location curve: %w", spec.WallID, wall.ErrGeometryUnavailable)
	}
	if spec.Width <= 0 {
		return nil, fmt.Errorf("wall %s has no measurable width: %w", spec.WallID, wall.ErrGeometryUnavailable)
	}
	if err := spec.CheckWidth(); err != nil {
		return nil, fmt.Errorf("wall %s: %w: %v", spec.WallID, ErrWidthMismatch, err)
	}

	normal := spec.Curve.Normal()
	if spec.Flipped {
		normal = normal.MulScalar(-1)
	}
	half := spec.Width / 2
	ref := ReferencePosition(spec)

	out := make([]wall.LayerGeometry, len(spec.Layers))
	var cumulative float64
	for i, l := range spec.Layers {
		center := -half + cumulative + l.Thickness/2
		offset := center - ref
		out[i] = wall.LayerGeometry{
			Index:      i,
			Layer:      l,
			Centerline: spec.Curve.Offset(normal, offset),
			Thickness:  l.Thickness,
			Normal:     normal,
			Offset:     offset,
			FaceOffset: cumulative + l.Thickness/2,
		}
		cumulative += l.Thickness
	}
	return out, nil
}

// ReferencePosition returns where the wall's reference curve lies, measured
// from the wall centerline along the wall normal.
func ReferencePosition(spec wall.CompositeWallSpec) float64 {
	half := spec.Width / 2
	switch spec.Justification {
	case wall.FinishExterior:
		return -half
	case wall.FinishInterior:
		return half
	case wall.CoreExterior, wall.CoreInterior, wall.CoreCenterline:
		outer, inner := coreFaces(spec)
		switch spec.Justification {
		case wall.CoreExterior:
			return -half + outer
		case wall.CoreInterior:
			return -half + inner
		}
		return -half + (outer+inner)/2
	}
	return 0
}

// coreFaces returns the exterior and interior faces of the core, measured
// from the exterior face of the wall.
func coreFaces(spec wall.CompositeWallSpec) (outer, inner float64) {
	first, last := spec.CoreSpan()
	var cumulative float64
	for i, l := range spec.Layers {
		if i == first {
			outer = cumulative
		}
		cumulative += l.Thickness
		if i == last {
			inner = cumulative
		}
	}
	return outer, inner
}

// Recenter re-expresses spec with its reference curve on the wall centerline,
// whatever its original justification.
func Recenter(spec wall.CompositeWallSpec) wall.CompositeWallSpec {
	normal := spec.Curve.Normal()
	if spec.Flipped {
		normal = normal.MulScalar(-1)
	}
	out := spec
	out.Curve = spec.Curve.Offset(normal, -ReferencePosition(spec))
	out.Justification = wall.WallCenterline
	return out
}
