// Package correspond maps the layer groups of a decomposed wall onto the
// layers of a wall it joins, and trims the segments to meet them.
package correspond

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/chazu/strata/pkg/geom"
	"github.com/chazu/strata/pkg/layout"
	"github.com/chazu/strata/pkg/logging"
	"github.com/chazu/strata/pkg/trim"
	"github.com/chazu/strata/pkg/wall"
)

// DefaultExtendMargin is how far, in millimetres, both centerlines are
// extended when they do not cross directly.
const DefaultExtendMargin = 1000.0

// Match is the rule that paired a group with a connected layer.
type Match int

const (
	NoMatch Match = iota
	ExactMatch
	FunctionMatch
	StructureMatch
)

func (m Match) String() string {
	switch m {
	case ExactMatch:
		return "exact"
	case FunctionMatch:
		return "function"
	case StructureMatch:
		return "structure"
	default:
		return "none"
	}
}

// Via is how the target point of a group was found.
type Via int

const (
	ViaJunction Via = iota
	ViaIntersection
	ViaExtension
)

func (v Via) String() string {
	switch v {
	case ViaIntersection:
		return "intersection"
	case ViaExtension:
		return "extension"
	default:
		return "junction"
	}
}

// Connection is a junction together with what is known about the wall on
// the other side. Spec is only used when Layered is true, which holds for
// composite walls and for basic walls with a single layer.
type Connection struct {
	Junction wall.Junction
	Layered  bool
	Spec     wall.CompositeWallSpec
}

// Adjustment records how one segment was moved for one junction.
type Adjustment struct {
	Segment *wall.WallSegment
	Group   wall.GroupKey
	Match   Match
	Via     Via
	Target  geom.Point
	Outcome trim.Outcome
}

// Resolver pairs groups with connected layers and applies the trims.
type Resolver struct {
	Trim   *trim.Engine
	Margin float64

	log *zap.Logger
}

// New returns a Resolver. A nil logger discards output.
func New(t *trim.Engine, margin float64, log *zap.Logger) *Resolver {
	return &Resolver{Trim: t, Margin: margin, log: logging.OrNop(log)}
}

// Apply moves the junction end of every segment in groups. For a connected
// wall without layers every group goes to the junction point. Otherwise
// each group is aligned with its corresponding layer of the connected wall.
// The returned errors are non-fatal: unresolved correspondences (the
// junction point is used instead) and trims that were refused.
func (r *Resolver) Apply(groups []*wall.WallGroup, c Connection) ([]Adjustment, []error) {
	return r.apply(groups, c, r.layers(c))
}

// ApplyAll applies every connection in order. Where several connections
// meet the same end of the wall, each group is only trimmed against those
// giving it the best match at that end. A corner met by the single-layer
// segments of an already decomposed wall thus aligns every group with its
// own counterpart instead of a Structure fallback.
func (r *Resolver) ApplyAll(groups []*wall.WallGroup, conns []Connection) ([]Adjustment, []error) {
	layers := make([][]wall.LayerGeometry, len(conns))
	matches := make([][]Match, len(conns))
	best := make(map[wall.Endpoint][]Match, 2)
	for i, c := range conns {
		layers[i] = r.layers(c)
		matches[i] = make([]Match, len(groups))
		end := c.Junction.Target
		if best[end] == nil {
			best[end] = make([]Match, len(groups))
		}
		if layers[i] == nil {
			continue
		}
		for gi, g := range groups {
			_, m := Select(g.Key, layers[i])
			matches[i][gi] = m
			if better(m, best[end][gi]) {
				best[end][gi] = m
			}
		}
	}

	var adjs []Adjustment
	var errs []error
	for i, c := range conns {
		end := c.Junction.Target
		keep := make([]*wall.WallGroup, 0, len(groups))
		for gi, g := range groups {
			if b := best[end][gi]; b != NoMatch && matches[i][gi] != b {
				r.log.Debug("group aligned by another junction",
					zap.Stringer("group", g.Key),
					zap.String("connected", c.Junction.Connected.String()),
					zap.Stringer("match", b))
				continue
			}
			keep = append(keep, g)
		}
		a, e := r.apply(keep, c, layers[i])
		adjs = append(adjs, a...)
		errs = append(errs, e...)
	}
	return adjs, errs
}

// better reports whether m is a stronger match than cur.
func better(m, cur Match) bool {
	return m != NoMatch && (cur == NoMatch || m < cur)
}

// layers places the layers of the connected wall, or returns nil when it
// has none to align with.
func (r *Resolver) layers(c Connection) []wall.LayerGeometry {
	if !c.Layered {
		return nil
	}
	layers, err := layout.Layers(c.Spec)
	if err != nil {
		r.log.Debug("connected wall layers unavailable",
			zap.String("connected", c.Junction.Connected.String()),
			zap.Error(err))
		return nil
	}
	return layers
}

func (r *Resolver) apply(groups []*wall.WallGroup, c Connection, layers []wall.LayerGeometry) ([]Adjustment, []error) {
	var adjs []Adjustment
	var errs []error
	for _, g := range groups {
		rep := g.Representative()
		if rep == nil {
			continue
		}
		target, match, via := c.Junction.Point, NoMatch, ViaJunction
		if layers != nil {
			var ok bool
			target, match, via, ok = r.target(g, rep, layers, c.Junction)
			if !ok {
				errs = append(errs, wall.LayerError(wall.JunctionCorrespondenceNotFound,
					rep.Source, rep.LayerIndex,
					fmt.Errorf("group %s against wall %s", g.Key, c.Junction.Connected)))
			}
		}
		for _, seg := range g.Segments {
			out, err := r.Trim.Apply(seg, target, c.Junction.Target)
			if err != nil {
				errs = append(errs, err)
			}
			adjs = append(adjs, Adjustment{
				Segment: seg,
				Group:   g.Key,
				Match:   match,
				Via:     via,
				Target:  target,
				Outcome: out,
			})
		}
	}
	return adjs, errs
}

// target finds the point where a group should end against the connected
// layers. ok is false only when no layer corresponds to the group. A
// corresponding layer that never crosses the group, as in a straight
// continuation, leaves the group at the junction point.
func (r *Resolver) target(g *wall.WallGroup, rep *wall.WallSegment, layers []wall.LayerGeometry, j wall.Junction) (geom.Point, Match, Via, bool) {
	layer, match := Select(g.Key, layers)
	if match == NoMatch {
		return j.Point, NoMatch, ViaJunction, false
	}
	if p, ok := geom.Intersect(rep.Centerline, layer.Centerline); ok {
		return p, match, ViaIntersection, true
	}
	if p, ok := geom.Intersect(rep.Centerline.Extend(r.Margin), layer.Centerline.Extend(r.Margin)); ok {
		return p, match, ViaExtension, true
	}
	r.log.Debug("no intersection with corresponding layer",
		zap.String("wall", rep.Source.String()),
		zap.Stringer("group", g.Key),
		zap.Int("connectedLayer", layer.Index))
	return j.Point, match, ViaJunction, true
}

// Select picks the connected layer corresponding to a group: the first
// layer with the same function and material, else the first with the same
// function, else the first Structure layer.
func Select(key wall.GroupKey, layers []wall.LayerGeometry) (wall.LayerGeometry, Match) {
	functionIdx, structureIdx := -1, -1
	for i, l := range layers {
		if l.Layer.Function != key.Function {
			if l.Layer.Function == wall.Structure && structureIdx < 0 {
				structureIdx = i
			}
			continue
		}
		if l.Layer.MaterialCode() == key.Material {
			return l, ExactMatch
		}
		if functionIdx < 0 {
			functionIdx = i
		}
		if l.Layer.Function == wall.Structure && structureIdx < 0 {
			structureIdx = i
		}
	}
	switch {
	case functionIdx >= 0:
		return layers[functionIdx], FunctionMatch
	case structureIdx >= 0:
		return layers[structureIdx], StructureMatch
	}
	return wall.LayerGeometry{}, NoMatch
}

// NotFound reports whether err is an unresolved correspondence.
func NotFound(err error) bool {
	return errors.Is(err, wall.ErrCorrespondenceNotFound)
}
