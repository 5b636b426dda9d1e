package decompose

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/chazu/strata/pkg/correspond"
	"github.com/chazu/strata/pkg/junction"
	"github.com/chazu/strata/pkg/layout"
	"github.com/chazu/strata/pkg/store"
	"github.com/chazu/strata/pkg/wall"
)

// snapshot is the model as it stood when a batch began. Junctions and
// correspondences are computed against it, so a wall decomposed earlier in
// the batch still presents its original layers to its neighbours.
type snapshot struct {
	refs  []store.WallRef
	specs map[wall.ID]wallState
}

type wallState struct {
	spec wall.CompositeWallSpec
	err  error
}

func (s *snapshot) others(id wall.ID) []store.WallRef {
	out := make([]store.WallRef, 0, len(s.refs))
	for _, r := range s.refs {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}

// ref returns the snapshot reference of id.
func (s *snapshot) ref(id wall.ID) store.WallRef {
	for _, r := range s.refs {
		if r.ID == id {
			return r
		}
	}
	return store.WallRef{ID: id}
}

func (s *snapshot) connection(j wall.Junction) correspond.Connection {
	st := s.specs[j.Connected]
	layered := st.err == nil || errors.Is(st.err, wall.ErrSingleLayer)
	return correspond.Connection{Junction: j, Layered: layered, Spec: st.spec}
}

func takeSnapshot(ctx context.Context, s store.Store) (*snapshot, error) {
	refs, err := s.Walls(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list walls: %w", err)
	}
	snap := &snapshot{refs: refs, specs: make(map[wall.ID]wallState, len(refs))}
	for _, r := range refs {
		spec, err := s.WallSpec(ctx, r.ID)
		switch {
		case err == nil,
			errors.Is(err, wall.ErrNotComposite),
			errors.Is(err, wall.ErrGeometryUnavailable):
			snap.specs[r.ID] = wallState{spec: spec, err: err}
		default:
			return nil, fmt.Errorf("read wall %s: %w", r.ID, err)
		}
	}
	return snap, nil
}

// Batch decomposes every wall in ids inside one store transaction. Walls
// that cannot be decomposed are skipped and their errors recorded; the
// returned error is set only when the transaction itself failed, in which
// case nothing was changed.
func (d *Decomposer) Batch(ctx context.Context, ids []wall.ID) (BatchReport, error) {
	before := d.cache.Stats().Created
	var report BatchReport

	err := d.tx.RunInTransaction(ctx, "Decompose walls", func(s store.Store) error {
		report = BatchReport{}
		snap, err := takeSnapshot(ctx, s)
		if err != nil {
			return err
		}
		seen := make(map[wall.ID]bool, len(ids))
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := d.decomposeWall(ctx, s, snap, id)
			if err != nil {
				return err
			}
			if res.Removed {
				report.Processed++
			} else {
				report.Skipped++
			}
			report.Results = append(report.Results, res)
		}
		return nil
	})
	if err != nil {
		// Types created inside the failed transaction no longer exist.
		d.cache.Reset()
		d.log.Error("decomposition rolled back", zap.Error(err))
		return report, wall.NewError(wall.TransactionFatal, "", err)
	}

	report.TypesCreated = d.cache.Stats().Created - before
	d.log.Info("decomposition finished",
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped),
		zap.Int("segments", report.Segments()),
		zap.Int("typesCreated", report.TypesCreated))
	return report, nil
}

// decomposeWall handles one wall. Only store failures that leave the
// transaction unusable are returned as errors.
func (d *Decomposer) decomposeWall(ctx context.Context, s store.Store, snap *snapshot, id wall.ID) (Result, error) {
	res := Result{WallID: id, Host: -1}
	log := d.log.With(zap.String("wall", id.String()))

	st, ok := snap.specs[id]
	if !ok {
		res.record(wall.NewError(wall.GeometryUnavailable, id, store.ErrNotFound))
		log.Warn("wall not found")
		return res, nil
	}
	if st.err != nil {
		kind := wall.GeometryUnavailable
		if errors.Is(st.err, wall.ErrNotComposite) {
			kind = wall.NotComposite
		}
		res.record(wall.NewError(kind, id, st.err))
		log.Info("wall skipped", zap.Error(st.err))
		return res, nil
	}
	spec := st.spec

	geoms, err := layout.Resolve(spec)
	if err != nil {
		res.record(wall.NewError(wall.GeometryUnavailable, id, err))
		log.Warn("layer geometry unavailable", zap.Error(err))
		return res, nil
	}

	attrs := spec.Attributes.ForSegment()
	var segs []*wall.WallSegment
	for _, g := range geoms {
		ref, err := d.cache.Resolve(ctx, s, g.Layer)
		if err != nil {
			res.record(wall.LayerError(wall.TypeCreationFailed, id, g.Index, err))
			log.Warn("layer type unavailable", zap.Int("layer", g.Index), zap.Error(err))
			continue
		}
		segs = append(segs, &wall.WallSegment{
			Source:     id,
			LayerIndex: g.Index,
			Key:        g.Layer.Key(),
			Type:       ref,
			Centerline: g.Centerline,
			Thickness:  g.Thickness,
			Height:     spec.Height,
			Level:      spec.Level,
			Attributes: attrs.Clone(),
		})
	}
	if len(segs) == 0 {
		log.Warn("no layer could be typed; wall left in place")
		return res, nil
	}

	res.Junctions = junction.Detect(snap.ref(id), snap.others(id), d.opts.Tolerance)
	conns := make([]correspond.Connection, len(res.Junctions))
	for i, j := range res.Junctions {
		conns[i] = snap.connection(j)
	}
	adjs, errs := d.resolver.ApplyAll(wall.GroupSegments(segs), conns)
	res.Adjustments = adjs
	for _, e := range errs {
		res.record(e)
	}

	for _, seg := range segs {
		created, err := s.CreateWallSegment(ctx, store.SegmentParams{
			Source:     id,
			Centerline: seg.Centerline,
			Type:       seg.Type,
			Level:      seg.Level,
			Height:     seg.Height,
			Attributes: seg.Attributes,
		})
		if err != nil {
			res.record(wall.LayerError(wall.SegmentCreationFailed, id, seg.LayerIndex, err))
			log.Warn("segment not created", zap.Int("layer", seg.LayerIndex), zap.Error(err))
			continue
		}
		seg.ID = created.ID.String()
		res.Segments = append(res.Segments, Segment{
			ID:         created.ID,
			LayerIndex: seg.LayerIndex,
			Type:       seg.Type,
			Key:        seg.Key,
			Centerline: seg.Centerline,
			Thickness:  seg.Thickness,
		})
	}
	if len(res.Segments) == 0 {
		log.Warn("no segment created; wall left in place")
		return res, nil
	}

	if err := s.DeleteElement(ctx, id); err != nil {
		return res, fmt.Errorf("remove wall %s: %w", id, err)
	}
	res.Removed = true
	res.Host = hostIndex(res.Segments)

	log.Info("wall decomposed",
		zap.Int("segments", len(res.Segments)),
		zap.Int("junctions", len(res.Junctions)),
		zap.Int("errors", len(res.Errors)))
	return res, nil
}

// hostIndex picks the first Structure segment, else the thickest.
func hostIndex(segs []Segment) int {
	best := -1
	for i, s := range segs {
		if s.Key.Function == wall.Structure {
			return i
		}
		if best < 0 || s.Thickness > segs[best].Thickness {
			best = i
		}
	}
	return best
}
