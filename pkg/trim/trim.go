// Package trim moves the endpoint of a wall segment onto a target point
// projected onto the segment's own line.
package trim

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/chazu/strata/pkg/geom"
	"github.com/chazu/strata/pkg/logging"
	"github.com/chazu/strata/pkg/wall"
)

// Outcome describes what Apply did to a segment.
type Outcome int

const (
	Skipped Outcome = iota
	Negligible
	Trimmed
	Extended
)

var outcomeNames = [...]string{"skipped", "negligible", "trimmed", "extended"}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
	return outcomeNames[o]
}

// Changed reports whether the segment's centerline was modified.
func (o Outcome) Changed() bool {
	return o == Trimmed || o == Extended
}

// Defaults, in millimetres.
const (
	DefaultNegligible = 1.0
	DefaultMinLength  = 50.0
)

// Engine trims and extends segment centerlines.
type Engine struct {
	// Length changes smaller than Negligible are not applied.
	Negligible float64
	// Segments shorter than MinLength after the change are left alone.
	MinLength float64

	log *zap.Logger
}

// New returns an Engine with the given thresholds. A nil logger discards
// output.
func New(negligible, minLength float64, log *zap.Logger) *Engine {
	return &Engine{Negligible: negligible, MinLength: minLength, log: logging.OrNop(log)}
}

// Apply projects target onto the infinite line through seg's centerline and
// moves the chosen endpoint there. The segment is modified only when the
// outcome is Trimmed or Extended. A change that would leave the segment
// shorter than MinLength, or reverse its direction, fails with
// wall.ErrTrimDegenerate and leaves the segment untouched.
func (e *Engine) Apply(seg *wall.WallSegment, target geom.Point, end wall.Endpoint) (Outcome, error) {
	line := seg.Centerline
	if line.IsDegenerate() {
		return Skipped, wall.LayerError(wall.TrimDegenerate, seg.Source, seg.LayerIndex, geom.ErrDegenerate)
	}

	p := line.Project(target)
	oldLen := line.Length()

	// Signed plan length of the would-be segment; negative means the
	// moved endpoint crossed the fixed one.
	d := line.Direction()
	var next geom.Line
	var newLen float64
	switch end {
	case wall.End:
		next = line.WithEnd(p)
		newLen = geom.Plan(p).Sub(geom.Plan(line.Start)).Dot(d)
	default:
		next = line.WithStart(p)
		newLen = geom.Plan(line.End).Sub(geom.Plan(p)).Dot(d)
	}

	delta := newLen - oldLen
	if delta < 0 {
		delta = -delta
	}
	if delta < e.Negligible {
		return Negligible, nil
	}

	if newLen < 0 {
		e.log.Debug("trim reverses segment",
			zap.String("wall", seg.Source.String()),
			zap.Int("layer", seg.LayerIndex),
			zap.Stringer("end", end))
		return Skipped, wall.LayerError(wall.TrimDegenerate, seg.Source, seg.LayerIndex,
			fmt.Errorf("%s would move past the opposite end", end))
	}
	if newLen < e.MinLength {
		e.log.Debug("trim too short",
			zap.String("wall", seg.Source.String()),
			zap.Int("layer", seg.LayerIndex),
			zap.Float64("length", newLen))
		return Skipped, wall.LayerError(wall.TrimDegenerate, seg.Source, seg.LayerIndex,
			fmt.Errorf("length %.1fmm below minimum %.1fmm", newLen, e.MinLength))
	}

	seg.Centerline = next
	if newLen > oldLen {
		return Extended, nil
	}
	return Trimmed, nil
}
