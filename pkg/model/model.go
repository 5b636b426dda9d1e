// Package model holds the element records a model store persists: levels,
// wall types and walls, plus whole documents used for import and export.
package model

import (
	"fmt"
	"strings"

	"github.com/chazu/strata/pkg/geom"
	"github.com/chazu/strata/pkg/wall"
)

// TypeKind distinguishes simple layered types from the kinds that cannot be
// decomposed or used as templates.
type TypeKind int

const (
	Basic TypeKind = iota
	Curtain
	Stacked
)

var typeKindNames = [...]string{
	Basic:   "basic",
	Curtain: "curtain",
	Stacked: "stacked",
}

func (k TypeKind) String() string {
	if k < 0 || int(k) >= len(typeKindNames) {
		return fmt.Sprintf("TypeKind(%d)", int(k))
	}
	return typeKindNames[k]
}

// ParseTypeKind parses a kind name, case-insensitive.
func ParseTypeKind(s string) (TypeKind, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for i, name := range typeKindNames {
		if name == want {
			return TypeKind(i), nil
		}
	}
	return Basic, fmt.Errorf("unknown wall type kind %q", s)
}

// MarshalText encodes the kind by name.
func (k TypeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *TypeKind) UnmarshalText(text []byte) error {
	parsed, err := ParseTypeKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Level is a named elevation walls are hosted on.
type Level struct {
	ID        wall.ID `json:"id" yaml:"id"`
	Name      string  `json:"name" yaml:"name"`
	Elevation float64 `json:"elevation" yaml:"elevation"`
}

// WallType is a wall type with its ordered layers, exterior first.
type WallType struct {
	ID     wall.ID          `json:"id" yaml:"id"`
	Name   string           `json:"name" yaml:"name"`
	Kind   TypeKind         `json:"kind" yaml:"kind"`
	Layers []wall.LayerSpec `json:"layers" yaml:"layers"`
}

// Width returns the sum of the layer thicknesses.
func (t WallType) Width() float64 {
	var w float64
	for _, l := range t.Layers {
		w += l.Thickness
	}
	return w
}

// Wall is a placed wall instance.
type Wall struct {
	ID            wall.ID            `json:"id" yaml:"id"`
	Type          wall.ID            `json:"type" yaml:"type"`
	Curve         *geom.Line         `json:"curve,omitempty" yaml:"curve,omitempty"`
	Justification wall.Justification `json:"justification" yaml:"justification"`
	Flipped       bool               `json:"flipped,omitempty" yaml:"flipped,omitempty"`
	Height        float64            `json:"height" yaml:"height"`
	Level         wall.ID            `json:"level,omitempty" yaml:"level,omitempty"`
	Attributes    wall.Attributes    `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Document is a complete model.
type Document struct {
	Levels []Level    `json:"levels,omitempty" yaml:"levels,omitempty"`
	Types  []WallType `json:"types" yaml:"types"`
	Walls  []Wall     `json:"walls" yaml:"walls"`
}

// TypeByID returns the type with the given ID.
func (d *Document) TypeByID(id wall.ID) (*WallType, bool) {
	for i := range d.Types {
		if d.Types[i].ID == id {
			return &d.Types[i], true
		}
	}
	return nil, false
}

// WallByID returns the wall with the given ID.
func (d *Document) WallByID(id wall.ID) (*Wall, bool) {
	for i := range d.Walls {
		if d.Walls[i].ID == id {
			return &d.Walls[i], true
		}
	}
	return nil, false
}

// LevelByID returns the level with the given ID.
func (d *Document) LevelByID(id wall.ID) (*Level, bool) {
	for i := range d.Levels {
		if d.Levels[i].ID == id {
			return &d.Levels[i], true
		}
	}
	return nil, false
}

// Elevation returns the elevation of the level hosting w, or 0 when the
// wall has no known level.
func (d *Document) Elevation(w Wall) float64 {
	if l, ok := d.LevelByID(w.Level); ok {
		return l.Elevation
	}
	return 0
}

// BaseOffset returns the base_offset of w. An unreadable offset counts as
// zero; Validate reports it.
func BaseOffset(w Wall) float64 {
	v, _, err := w.Attributes.Length(wall.AttrBaseOffset)
	if err != nil {
		return 0
	}
	return v
}

// Spec assembles the decomposition input for a wall of type t.
func Spec(w Wall, t WallType) wall.CompositeWallSpec {
	spec := wall.CompositeWallSpec{
		WallID:        w.ID,
		TypeName:      t.Name,
		Justification: w.Justification,
		Flipped:       w.Flipped,
		Width:         t.Width(),
		Height:        w.Height,
		Level:         w.Level,
		Layers:        append([]wall.LayerSpec(nil), t.Layers...),
		Attributes:    w.Attributes.Clone(),
	}
	if w.Curve != nil {
		spec.Curve = *w.Curve
	}
	return spec
}

// CheckDecomposable reports why a wall of type t cannot be decomposed, or
// nil if it can.
func CheckDecomposable(w Wall, t WallType) error {
	if t.Kind != Basic {
		return fmt.Errorf("wall %s has %s type %q: %w", w.ID, t.Kind, t.Name, wall.ErrNotComposite)
	}
	if len(t.Layers) == 1 {
		return fmt.Errorf("wall %s type %q: %w", w.ID, t.Name, wall.ErrSingleLayer)
	}
	if len(t.Layers) == 0 {
		return fmt.Errorf("wall %s type %q has no layers: %w", w.ID, t.Name, wall.ErrNotComposite)
	}
	if w.Curve == nil || w.Curve.IsDegenerate() {
		return fmt.Errorf("wall %s has no location curve: %w", w.ID, wall.ErrGeometryUnavailable)
	}
	return nil
}
