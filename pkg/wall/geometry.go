package wall

import (
	v2 "github.com/deadsy/sdfx/vec/v2"

	"github.com/chazu/strata/pkg/geom"
)

// LayerGeometry is the resolved placement of one layer.
type LayerGeometry struct {
	Index      int
	Layer      LayerSpec
	Centerline geom.Line
	Thickness  float64
	// Normal points from the exterior face toward the interior face.
	Normal v2.Vec
	// Offset is the signed distance of the centerline from the reference
	// curve along Normal.
	Offset float64
	// FaceOffset is the distance of the centerline from the exterior face
	// of the assembly.
	FaceOffset float64
}

// ExteriorFace returns the offset of the layer's exterior face from the
// assembly's exterior face.
func (g LayerGeometry) ExteriorFace() float64 {
	return g.FaceOffset - g.Thickness/2
}

// InteriorFace returns the offset of the layer's interior face from the
// assembly's exterior face.
func (g LayerGeometry) InteriorFace() float64 {
	return g.FaceOffset + g.Thickness/2
}
