package decompose

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/chazu/strata/pkg/store"
)

// PurgeUnusedGeneratedTypes deletes every generated type that no wall
// references. Types without the generated prefix are never touched. A type
// the store refuses to delete is reported in Failed and the purge goes on;
// only failures to list types or check their use abort it.
func (d *Decomposer) PurgeUnusedGeneratedTypes(ctx context.Context) (PurgeResult, error) {
	var res PurgeResult
	err := d.tx.RunInTransaction(ctx, "Purge generated types", func(s store.Store) error {
		res = PurgeResult{}
		types, err := s.WallTypes(ctx)
		if err != nil {
			return fmt.Errorf("list types: %w", err)
		}
		for _, t := range types {
			if !d.cache.IsGenerated(t.Name) {
				continue
			}
			used, err := s.TypeInUse(ctx, t.ID)
			if err != nil {
				return fmt.Errorf("check type %s: %w", t.Name, err)
			}
			if used {
				res.Kept = append(res.Kept, t.Name)
				continue
			}
			if err := s.DeleteElement(ctx, t.ID); err != nil {
				d.log.Warn("generated type not deleted", zap.String("type", t.Name), zap.Error(err))
				res.Failed = append(res.Failed, t.Name)
				res.Errors = append(res.Errors, fmt.Errorf("delete type %s: %w", t.Name, err))
				continue
			}
			res.Purged = append(res.Purged, t.Name)
		}
		return nil
	})
	if err != nil {
		d.cache.Reset()
		return PurgeResult{}, err
	}
	for _, name := range res.Purged {
		d.cache.Forget(name)
	}
	d.log.Info("purged generated types",
		zap.Int("purged", len(res.Purged)),
		zap.Int("kept", len(res.Kept)),
		zap.Int("failed", len(res.Failed)))
	return res, nil
}
