// Package decompose splits composite walls into one single-layer wall per
// layer, joins the new walls to their neighbours and removes the original.
package decompose

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/chazu/strata/pkg/config"
	"github.com/chazu/strata/pkg/correspond"
	"github.com/chazu/strata/pkg/junction"
	"github.com/chazu/strata/pkg/logging"
	"github.com/chazu/strata/pkg/model"
	"github.com/chazu/strata/pkg/store"
	"github.com/chazu/strata/pkg/trim"
	"github.com/chazu/strata/pkg/typecache"
	"github.com/chazu/strata/pkg/wall"
)

// Options are the tunables of a Decomposer. Lengths are in millimetres.
type Options struct {
	Tolerance    float64
	Negligible   float64
	MinLength    float64
	ExtendMargin float64
	Prefix       string
	TemplateKind model.TypeKind
}

// DefaultOptions returns the built-in tolerances.
func DefaultOptions() Options {
	return Options{
		Tolerance:    junction.DefaultTolerance,
		Negligible:   trim.DefaultNegligible,
		MinLength:    trim.DefaultMinLength,
		ExtendMargin: correspond.DefaultExtendMargin,
		Prefix:       typecache.DefaultPrefix,
		TemplateKind: model.Basic,
	}
}

// OptionsFromConfig reads the decomposition settings of cfg.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	kind, err := model.ParseTypeKind(cfg.Types.TemplateKind)
	if err != nil {
		return Options{}, fmt.Errorf("types.template_kind: %w", err)
	}
	return Options{
		Tolerance:    cfg.Decompose.ToleranceMM,
		Negligible:   cfg.Decompose.NegligibleMM,
		MinLength:    cfg.Decompose.MinLengthMM,
		ExtendMargin: cfg.Decompose.ExtendMarginMM,
		Prefix:       cfg.Types.Prefix,
		TemplateKind: kind,
	}, nil
}

// Decomposer runs decompositions against a model store. The type cache it
// holds lives as long as the Decomposer, so repeated batches share it.
// A Decomposer is not safe for concurrent use.
type Decomposer struct {
	tx       store.Transactor
	opts     Options
	cache    *typecache.Cache
	resolver *correspond.Resolver
	log      *zap.Logger
}

// New returns a Decomposer over tx. A nil logger discards output.
func New(tx store.Transactor, opts Options, log *zap.Logger) *Decomposer {
	log = logging.OrNop(log)
	t := trim.New(opts.Negligible, opts.MinLength, log.Named("trim"))
	return &Decomposer{
		tx:       tx,
		opts:     opts,
		cache:    typecache.New(opts.Prefix, opts.TemplateKind, log.Named("types")),
		resolver: correspond.New(t, opts.ExtendMargin, log.Named("correspond")),
		log:      log,
	}
}

// Options returns the settings the Decomposer was built with.
func (d *Decomposer) Options() Options { return d.opts }

// CacheStats reports the type cache counters accumulated so far.
func (d *Decomposer) CacheStats() typecache.Stats { return d.cache.Stats() }

// Decompose decomposes a single wall. The returned error is set only when
// the store transaction failed; per-layer problems are in the Result.
func (d *Decomposer) Decompose(ctx context.Context, id wall.ID) (Result, error) {
	report, err := d.Batch(ctx, []wall.ID{id})
	if len(report.Results) == 0 {
		return Result{WallID: id, Host: -1}, err
	}
	return report.Results[0], err
}

// DetectJunctions lists the junctions of one wall against every other wall
// of the model. A tolerance of zero or less uses the configured one.
func (d *Decomposer) DetectJunctions(ctx context.Context, id wall.ID, tolerance float64) ([]wall.Junction, error) {
	if tolerance <= 0 {
		tolerance = d.opts.Tolerance
	}
	var out []wall.Junction
	err := d.tx.RunInTransaction(ctx, "Detect junctions", func(s store.Store) error {
		refs, err := s.Walls(ctx, "")
		if err != nil {
			return fmt.Errorf("list walls: %w", err)
		}
		target, others, err := splitRefs(refs, id)
		if err != nil {
			return err
		}
		out = junction.Detect(target, others, tolerance)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// splitRefs separates the wall id from the rest of refs.
func splitRefs(refs []store.WallRef, id wall.ID) (store.WallRef, []store.WallRef, error) {
	var target store.WallRef
	found := false
	others := make([]store.WallRef, 0, len(refs))
	for _, r := range refs {
		if r.ID == id {
			target, found = r, true
			continue
		}
		others = append(others, r)
	}
	if !found {
		return target, nil, fmt.Errorf("wall %s: %w", id, store.ErrNotFound)
	}
	if target.Curve == nil || target.Curve.IsDegenerate() {
		return target, nil, wall.NewError(wall.GeometryUnavailable, id, nil)
	}
	return target, others, nil
}
