package decompose

import (
	"errors"

	"go.uber.org/multierr"

	"github.com/chazu/strata/pkg/correspond"
	"github.com/chazu/strata/pkg/geom"
	"github.com/chazu/strata/pkg/wall"
)

// Segment is a single-layer wall created by a decomposition.
type Segment struct {
	ID         wall.ID
	LayerIndex int
	Type       wall.TypeRef
	Key        wall.WallTypeKey
	Centerline geom.Line
	Thickness  float64
}

// Result describes the decomposition of one wall.
type Result struct {
	WallID    wall.ID
	Segments  []Segment
	Junctions []wall.Junction
	// Adjustments lists every trim attempt, one per segment and junction.
	Adjustments []correspond.Adjustment
	// Host is the index into Segments of the layer that would carry hosted
	// elements, or -1 when nothing was created.
	Host int
	// Removed is set when the original wall was deleted.
	Removed bool
	Errors  []error
}

// Err combines the errors recorded for the wall, or returns nil.
func (r Result) Err() error {
	return multierr.Combine(r.Errors...)
}

// HostSegment returns the host segment, if any.
func (r Result) HostSegment() (Segment, bool) {
	if r.Host < 0 || r.Host >= len(r.Segments) {
		return Segment{}, false
	}
	return r.Segments[r.Host], true
}

// Has reports whether an error of the given kind was recorded.
func (r Result) Has(kind wall.Kind) bool {
	for _, err := range r.Errors {
		if errors.Is(err, kind.Sentinel()) {
			return true
		}
	}
	return false
}

func (r *Result) record(err error) {
	if err != nil {
		r.Errors = append(r.Errors, err)
	}
}

// BatchReport summarises a batch.
type BatchReport struct {
	Results []Result
	// Processed counts walls that were replaced by segments.
	Processed int
	// Skipped counts walls left in place.
	Skipped int
	// TypesCreated counts generated types created by the batch.
	TypesCreated int
}

// Segments returns the number of segments created by the batch.
func (b BatchReport) Segments() int {
	n := 0
	for _, r := range b.Results {
		n += len(r.Segments)
	}
	return n
}

// Err combines the errors of every wall in the batch.
func (b BatchReport) Err() error {
	var err error
	for _, r := range b.Results {
		err = multierr.Append(err, r.Err())
	}
	return err
}

// PurgeResult summarises a purge of generated types.
type PurgeResult struct {
	Purged []string
	// Kept lists types still referenced by walls.
	Kept []string
	// Failed lists unused types the store refused to delete; Errors holds
	// the reasons in the same order.
	Failed []string
	Errors []error
}

// Err combines the delete failures of the purge, or returns nil.
func (p PurgeResult) Err() error {
	return multierr.Combine(p.Errors...)
}
