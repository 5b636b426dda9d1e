package wall

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/strata/pkg/geom"
)

// WidthEpsilon is the tolerance between a wall's width and the sum of its
// layer thicknesses.
const WidthEpsilon = 1e-6

// Justification names the line of the wall that its reference curve
// represents.
type Justification int

const (
	WallCenterline Justification = iota
	CoreCenterline
	FinishExterior
	FinishInterior
	CoreExterior
	CoreInterior
)

var justificationNames = [...]string{
	WallCenterline: "wall-centerline",
	CoreCenterline: "core-centerline",
	FinishExterior: "finish-exterior",
	FinishInterior: "finish-interior",
	CoreExterior:   "core-exterior",
	CoreInterior:   "core-interior",
}

func (j Justification) String() string {
	if j < 0 || int(j) >= len(justificationNames) {
		return fmt.Sprintf("Justification(%d)", int(j))
	}
	return justificationNames[j]
}

// ParseJustification accepts the kebab-case name of a justification,
// case-insensitive; underscores are treated as hyphens.
func ParseJustification(s string) (Justification, error) {
	want := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for i, name := range justificationNames {
		if want == name {
			return Justification(i), nil
		}
	}
	return WallCenterline, fmt.Errorf("unknown justification %q", s)
}

// MarshalText encodes the justification by name.
func (j Justification) MarshalText() ([]byte, error) {
	return []byte(j.String()), nil
}

// UnmarshalText decodes a justification name.
func (j *Justification) UnmarshalText(text []byte) error {
	parsed, err := ParseJustification(string(text))
	if err != nil {
		return err
	}
	*j = parsed
	return nil
}

// CompositeWallSpec is everything decomposition needs to know about one
// wall. It is read from the model store and owned by a single run.
type CompositeWallSpec struct {
	WallID        ID
	TypeName      string
	Curve         geom.Line
	Justification Justification
	// Flipped swaps which side of the reference curve is exterior.
	Flipped    bool
	Width      float64
	Height     float64
	Level      ID
	Layers     []LayerSpec
	Attributes Attributes
}

// IsComposite reports whether the wall has more than one layer.
func (s CompositeWallSpec) IsComposite() bool {
	return len(s.Layers) > 1
}

// LayerWidth returns the sum of layer thicknesses.
func (s CompositeWallSpec) LayerWidth() float64 {
	var sum float64
	for _, l := range s.Layers {
		sum += l.Thickness
	}
	return sum
}

// CheckWidth verifies that the layer thicknesses add up to the wall width.
func (s CompositeWallSpec) CheckWidth() error {
	for i, l := range s.Layers {
		if l.Thickness <= 0 {
			return fmt.Errorf("layer %d has non-positive thickness %g", i, l.Thickness)
		}
	}
	if sum := s.LayerWidth(); math.Abs(sum-s.Width) > WidthEpsilon {
		return fmt.Errorf("layer thicknesses sum to %g, wall width is %g", sum, s.Width)
	}
	return nil
}

// CoreSpan returns the index range [first, last] of Structure layers.
// A wall without a Structure layer treats every layer as core.
func (s CompositeWallSpec) CoreSpan() (first, last int) {
	first, last = -1, -1
	for i, l := range s.Layers {
		if l.Function != Structure {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	if first < 0 {
		return 0, len(s.Layers) - 1
	}
	return first, last
}
