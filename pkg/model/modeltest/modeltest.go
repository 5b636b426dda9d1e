// Package modeltest builds small documents shared by store, engine and
// decomposition tests.
package modeltest

import (
	"github.com/chazu/strata/pkg/geom"
	"github.com/chazu/strata/pkg/model"
	"github.com/chazu/strata/pkg/wall"
)

// Line returns a pointer to a Z=0 line, for use as a wall curve.
func Line(x0, y0, x1, y1 float64) *geom.Line {
	return &geom.Line{Start: geom.Pt(x0, y0), End: geom.Pt(x1, y1)}
}

// GenericType is a single-layer basic type usable as a creation template.
func GenericType() model.WallType {
	return model.WallType{
		ID: "T-generic", Name: "Generic 200", Kind: model.Basic,
		Layers: []wall.LayerSpec{{Function: wall.Structure, Thickness: 200}},
	}
}

// ThreeLayerType is Structure 100 / Insulation 50 / Finish1 10.
func ThreeLayerType() model.WallType {
	return model.WallType{
		ID: "T-160", Name: "Exterior 160", Kind: model.Basic,
		Layers: []wall.LayerSpec{
			{Function: wall.Structure, Material: wall.Material{ID: "M-conc", Name: "Concrete"}, Thickness: 100},
			{Function: wall.Insulation, Material: wall.Material{ID: "M-wool", Name: "Mineral wool"}, Thickness: 50},
			{Function: wall.Finish1, Material: wall.Material{ID: "M-plas", Name: "Plaster"}, Thickness: 10},
		},
	}
}

// CoreFinishType is Structure 200 / Finish1 15.
func CoreFinishType() model.WallType {
	return model.WallType{
		ID: "T-215", Name: "Core and finish 215", Kind: model.Basic,
		Layers: []wall.LayerSpec{
			{Function: wall.Structure, Material: wall.Material{ID: "M-conc", Name: "Concrete"}, Thickness: 200},
			{Function: wall.Finish1, Material: wall.Material{ID: "M-plas", Name: "Plaster"}, Thickness: 15},
		},
	}
}

// Level returns the ground level.
func Level() model.Level {
	return model.Level{ID: "L1", Name: "Ground", Elevation: 0}
}

// SingleWall is one straight 5 m three-layer wall.
func SingleWall() model.Document {
	return model.Document{
		Levels: []model.Level{Level()},
		Types:  []model.WallType{GenericType(), ThreeLayerType()},
		Walls: []model.Wall{{
			ID: "W1", Type: "T-160", Curve: Line(0, 0, 5000, 0), Height: 3000, Level: "L1",
			Attributes: wall.Attributes{
				wall.AttrBaseConstraint: "L1",
				wall.AttrBaseOffset:     "0",
				wall.AttrMark:           "EXT-1",
			},
		}},
	}
}

// Corner is two Structure/Finish1 walls sharing the point (5000, 0), plus
// a single-layer partition whose start lies 300 mm from the far end of W2.
func Corner() model.Document {
	return model.Document{
		Levels: []model.Level{Level()},
		Types:  []model.WallType{GenericType(), CoreFinishType()},
		Walls: []model.Wall{
			{ID: "W1", Type: "T-215", Curve: Line(0, 0, 5000, 0), Height: 3000, Level: "L1"},
			{ID: "W2", Type: "T-215", Curve: Line(5000, 0, 5000, 4000), Height: 3000, Level: "L1"},
			{ID: "P1", Type: "T-generic", Curve: Line(5300, 4000, 8000, 4000), Height: 3000, Level: "L1"},
		},
	}
}

// NoTemplate is SingleWall without any single-layer type to clone.
func NoTemplate() model.Document {
	d := SingleWall()
	d.Types = []model.WallType{ThreeLayerType()}
	return d
}
