// Package junction finds walls whose endpoints touch the endpoints of a
// wall being decomposed.
package junction

import (
	"github.com/chazu/strata/pkg/geom"
	"github.com/chazu/strata/pkg/store"
	"github.com/chazu/strata/pkg/wall"
)

// DefaultTolerance is the endpoint distance, in millimetres, under which
// two walls are considered joined.
const DefaultTolerance = 500.0

// pairs is the order in which endpoint pairs are tested.
var pairs = [...]struct{ target, other wall.Endpoint }{
	{wall.Start, wall.Start},
	{wall.Start, wall.End},
	{wall.End, wall.Start},
	{wall.End, wall.End},
}

// Detect returns one Junction for every endpoint pair of target and another
// wall lying within tolerance (inclusive). Walls are visited in the order
// given, pairs in start-start, start-end, end-start, end-end order. Walls
// without a curve are skipped. A wall touching both ends, or touching one
// end with both of its own, yields several junctions.
//
// Distances are measured between absolute endpoints, so walls on different
// levels only meet where their bases line up. Junction points stay relative
// to the target's level.
func Detect(target store.WallRef, others []store.WallRef, tolerance float64) []wall.Junction {
	at := target.Absolute()
	if at == nil {
		return nil
	}
	var out []wall.Junction
	for _, o := range others {
		oc := o.Absolute()
		if oc == nil {
			continue
		}
		for _, p := range pairs {
			d := geom.Distance(p.target.Of(*at), p.other.Of(*oc))
			if d > tolerance {
				continue
			}
			out = append(out, wall.Junction{
				Connected:    o.ID,
				Point:        p.target.Of(*target.Curve),
				Target:       p.target,
				ConnectedEnd: p.other,
				Distance:     d,
			})
		}
	}
	return out
}
