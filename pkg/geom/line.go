// Package geom provides the plan-view curve primitives used by wall
// decomposition. Points carry a Z coordinate but every in-plane operation
// (offset, projection, intersection) works in XY and keeps the Z of the
// curve it started from.
package geom

import (
	"errors"
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Epsilon is the length below which two points are considered identical.
const Epsilon = 1e-6

// ErrDegenerate is returned when a line would have zero plan length.
var ErrDegenerate = errors.New("geom: degenerate line")

// Point is a location in model space, in millimetres.
type Point = v3.Vec

// Pt returns a point on the Z=0 plane.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Pt3 returns a point with an explicit elevation.
func Pt3(x, y, z float64) Point {
	return Point{X: x, Y: y, Z: z}
}

// Plan drops the Z coordinate.
func Plan(p Point) v2.Vec {
	return v2.Vec{X: p.X, Y: p.Y}
}

// Distance is the 3D distance between two points.
func Distance(a, b Point) float64 {
	return b.Sub(a).Length()
}

// Line is a bounded straight curve from Start to End.
type Line struct {
	Start Point `json:"start" yaml:"start"`
	End   Point `json:"end" yaml:"end"`
}

// NewLine builds a bounded line, rejecting zero-length input.
func NewLine(start, end Point) (Line, error) {
	l := Line{Start: start, End: end}
	if l.Length() < Epsilon {
		return Line{}, fmt.Errorf("%w: %s", ErrDegenerate, l)
	}
	return l, nil
}

func (l Line) String() string {
	return fmt.Sprintf("(%.1f, %.1f, %.1f) -> (%.1f, %.1f, %.1f)",
		l.Start.X, l.Start.Y, l.Start.Z, l.End.X, l.End.Y, l.End.Z)
}

// Length returns the plan length of the line.
func (l Line) Length() float64 {
	return Plan(l.End).Sub(Plan(l.Start)).Length()
}

// IsDegenerate reports whether the line has no measurable plan length.
func (l Line) IsDegenerate() bool {
	return l.Length() < Epsilon
}

// Direction returns the unit plan direction from Start to End.
// A degenerate line has a zero direction.
func (l Line) Direction() v2.Vec {
	d := Plan(l.End).Sub(Plan(l.Start))
	if d.Length() < Epsilon {
		return v2.Vec{}
	}
	return d.Normalize()
}

// Normal returns the in-plane unit normal (dir.y, -dir.x), i.e. the right
// hand side of the direction of travel.
func (l Line) Normal() v2.Vec {
	d := l.Direction()
	return v2.Vec{X: d.Y, Y: -d.X}
}

// Angle returns the plan heading of the line in radians.
func (l Line) Angle() float64 {
	d := l.Direction()
	return math.Atan2(d.Y, d.X)
}

// Translate moves both endpoints by an in-plane vector.
func (l Line) Translate(v v2.Vec) Line {
	shift := Point{X: v.X, Y: v.Y}
	return Line{Start: l.Start.Add(shift), End: l.End.Add(shift)}
}

// Offset translates the line by d along the given unit normal.
func (l Line) Offset(normal v2.Vec, d float64) Line {
	return l.Translate(normal.MulScalar(d))
}

// Extend lengthens the line by margin at both ends.
func (l Line) Extend(margin float64) Line {
	d := l.Direction()
	shift := Point{X: d.X * margin, Y: d.Y * margin}
	return Line{Start: l.Start.Sub(shift), End: l.End.Add(shift)}
}

// WithStart returns a copy of the line with a new start point.
func (l Line) WithStart(p Point) Line {
	return Line{Start: p, End: l.End}
}

// WithEnd returns a copy of the line with a new end point.
func (l Line) WithEnd(p Point) Line {
	return Line{Start: l.Start, End: p}
}

// Midpoint returns the point halfway along the line.
func (l Line) Midpoint() Point {
	return l.Start.Add(l.End).MulScalar(0.5)
}

// Project returns the orthogonal projection of p onto the infinite line
// through l. The result keeps the elevation of the line.
func (l Line) Project(p Point) Point {
	d := l.Direction()
	t := Plan(p).Sub(Plan(l.Start)).Dot(d)
	return l.pointAt(t)
}

// pointAt returns the point at plan distance t from Start along the line,
// interpolating Z.
func (l Line) pointAt(t float64) Point {
	d := l.Direction()
	length := l.Length()
	z := l.Start.Z
	if length > Epsilon {
		z = l.Start.Z + (l.End.Z-l.Start.Z)*t/length
	}
	return Point{X: l.Start.X + d.X*t, Y: l.Start.Y + d.Y*t, Z: z}
}

// lineParam solves a.Start + s*da = b.Start + u*db in plan, returning the
// plan distance s along a. ok is false for parallel lines.
func lineParam(a, b Line) (s float64, ok bool) {
	da, db := a.Direction(), b.Direction()
	denom := da.Cross(db)
	if math.Abs(denom) < 1e-9 {
		return 0, false
	}
	w := Plan(b.Start).Sub(Plan(a.Start))
	return w.Cross(db) / denom, true
}

// IntersectLines returns the intersection of the infinite lines through a
// and b. The Z of the result follows a.
func IntersectLines(a, b Line) (Point, bool) {
	if a.IsDegenerate() || b.IsDegenerate() {
		return Point{}, false
	}
	s, ok := lineParam(a, b)
	if !ok {
		return Point{}, false
	}
	return a.pointAt(s), true
}

// segment returns the plan view of l as an sdf line.
func (l Line) segment() sdf.Line2 {
	return sdf.Line2{Plan(l.Start), Plan(l.End)}
}

// Intersect returns the intersection of the bounded lines a and b, if they
// cross within Epsilon of both segments. Collinear lines only intersect
// where they touch end to end; an overlap has no single crossing. The Z of
// the result follows a.
func Intersect(a, b Line) (Point, bool) {
	if a.IsDegenerate() || b.IsDegenerate() {
		return Point{}, false
	}
	sa, sb := a.Extend(Epsilon).segment(), b.Extend(Epsilon).segment()
	hits := sa.IntersectLine(&sb)
	var hit v2.Vec
	switch {
	case len(hits) == 1:
		hit = hits[0]
	case len(hits) == 2 && hits[0].Sub(hits[1]).Length() <= 4*Epsilon:
		hit = hits[0].Add(hits[1]).MulScalar(0.5)
	default:
		return Point{}, false
	}
	return a.Project(Point{X: hit.X, Y: hit.Y}), true
}

// Parallel reports whether two lines have parallel (or anti-parallel)
// directions.
func Parallel(a, b Line) bool {
	return math.Abs(a.Direction().Cross(b.Direction())) < 1e-9
}
