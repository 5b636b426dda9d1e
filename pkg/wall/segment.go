package wall

import (
	"fmt"
	"math"

	"github.com/chazu/strata/pkg/geom"
)

// WallTypeKey identifies the generated single-layer type a layer maps to.
// It travels with every segment so that grouping never parses type names.
type WallTypeKey struct {
	Function    Function
	Material    string // cleaned material code
	ThicknessMM int
}

// NewTypeKey builds a key, rounding the thickness to whole millimetres.
func NewTypeKey(f Function, materialCode string, thickness float64) WallTypeKey {
	return WallTypeKey{
		Function:    f,
		Material:    materialCode,
		ThicknessMM: int(math.Round(thickness)),
	}
}

// Name formats the generated type name: <prefix>-<function>-<material>-<mm>mm.
func (k WallTypeKey) Name(prefix string) string {
	return fmt.Sprintf("%s-%s-%s-%dmm", prefix, k.Function.Code(), k.Material, k.ThicknessMM)
}

// GroupKey drops the thickness from the key.
func (k WallTypeKey) GroupKey() GroupKey {
	return GroupKey{Function: k.Function, Material: k.Material}
}

// GroupKey groups segments that share a function and material.
type GroupKey struct {
	Function Function
	Material string
}

func (k GroupKey) String() string {
	return k.Function.Code() + "-" + k.Material
}

// TypeRef references a wall type in the model store.
type TypeRef struct {
	ID   ID
	Name string
}

// WallSegment is a single-layer wall produced from one layer of a composite
// wall. Its centerline is adjusted by trimming before it is committed.
type WallSegment struct {
	ID         string
	Source     ID
	LayerIndex int
	Key        WallTypeKey
	Type       TypeRef
	Centerline geom.Line
	Thickness  float64
	Height     float64
	Level      ID
	Attributes Attributes
}

// Endpoint selects one end of a curve.
type Endpoint int

const (
	Start Endpoint = iota
	End
)

func (e Endpoint) String() string {
	if e == End {
		return "end"
	}
	return "start"
}

// Of returns the selected endpoint of a line.
func (e Endpoint) Of(l geom.Line) geom.Point {
	if e == End {
		return l.End
	}
	return l.Start
}

// Junction records that an endpoint of the decomposed wall lies within
// tolerance of an endpoint of another wall.
type Junction struct {
	Connected ID
	// Point is the decomposed wall's endpoint.
	Point        geom.Point
	Target       Endpoint
	ConnectedEnd Endpoint
	Distance     float64
}

func (j Junction) String() string {
	return fmt.Sprintf("%s <-> %s@%s (%.1fmm)", j.Target, j.Connected, j.ConnectedEnd, j.Distance)
}

// WallGroup holds the segments that share a group key.
type WallGroup struct {
	Key      GroupKey
	Segments []*WallSegment
}

// Representative returns the first segment of the group.
func (g *WallGroup) Representative() *WallSegment {
	if len(g.Segments) == 0 {
		return nil
	}
	return g.Segments[0]
}

// GroupSegments groups segments by function and material, preserving the
// order in which each key is first seen.
func GroupSegments(segs []*WallSegment) []*WallGroup {
	var groups []*WallGroup
	index := make(map[GroupKey]*WallGroup)
	for _, s := range segs {
		k := s.Key.GroupKey()
		g, ok := index[k]
		if !ok {
			g = &WallGroup{Key: k}
			index[k] = g
			groups = append(groups, g)
		}
		g.Segments = append(g.Segments, s)
	}
	return groups
}
