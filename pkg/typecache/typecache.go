// Package typecache maps layers to generated single-layer wall types,
// creating each type at most once.
package typecache

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/chazu/strata/pkg/logging"
	"github.com/chazu/strata/pkg/model"
	"github.com/chazu/strata/pkg/store"
	"github.com/chazu/strata/pkg/wall"
)

// DefaultPrefix starts every generated type name.
const DefaultPrefix = "Strata"

// Stats counts cache activity.
type Stats struct {
	Lookups int // calls to Resolve
	Hits    int // answered from memory
	Found   int // answered by an existing stored type
	Created int // new types created
}

// Cache resolves layers to generated types. Names are compared
// case-insensitively. A Cache is not safe for concurrent use.
type Cache struct {
	prefix  string
	kind    model.TypeKind
	log     *zap.Logger
	entries map[string]wall.TypeRef
	stats   Stats
}

// New returns an empty cache. Types are created from a template of the
// given kind.
func New(prefix string, kind model.TypeKind, log *zap.Logger) *Cache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Cache{
		prefix:  prefix,
		kind:    kind,
		log:     logging.OrNop(log),
		entries: make(map[string]wall.TypeRef),
	}
}

// Prefix returns the generated type name prefix.
func (c *Cache) Prefix() string { return c.prefix }

// Name returns the generated type name for a layer.
func (c *Cache) Name(layer wall.LayerSpec) string {
	return layer.Key().Name(c.prefix)
}

// Resolve returns the generated type for layer: from memory, else an
// existing stored type of the same name, else a newly created one.
func (c *Cache) Resolve(ctx context.Context, s store.Store, layer wall.LayerSpec) (wall.TypeRef, error) {
	key := layer.Key()
	name := key.Name(c.prefix)
	fold := model.FoldName(name)
	c.stats.Lookups++

	if ref, ok := c.entries[fold]; ok {
		c.stats.Hits++
		return ref, nil
	}

	ref, ok, err := s.FindTypeByName(ctx, name)
	if err != nil {
		return wall.TypeRef{}, fmt.Errorf("look up type %q: %w", name, err)
	}
	if ok {
		c.stats.Found++
		c.entries[fold] = ref
		c.log.Debug("reusing stored type", zap.String("type", ref.Name), zap.String("id", ref.ID.String()))
		return ref, nil
	}

	ref, err = s.CreateSingleLayerType(ctx, c.kind, name, layer)
	if errors.Is(err, store.ErrDuplicateName) {
		// Created under another spelling since the lookup.
		ref, ok, err = s.FindTypeByName(ctx, name)
		if err == nil && !ok {
			err = fmt.Errorf("type %q reported as duplicate but not found", name)
		}
		if err != nil {
			return wall.TypeRef{}, fmt.Errorf("look up type %q after duplicate: %w", name, err)
		}
		c.stats.Found++
		c.entries[fold] = ref
		return ref, nil
	}
	if err != nil {
		return wall.TypeRef{}, fmt.Errorf("create type %q: %w", name, err)
	}

	c.stats.Created++
	c.entries[fold] = ref
	c.log.Info("created type",
		zap.String("type", name),
		zap.String("function", key.Function.String()),
		zap.String("material", key.Material),
		zap.Int("thickness_mm", key.ThicknessMM))
	return ref, nil
}

// IsGenerated reports whether a type name carries the cache's prefix.
func (c *Cache) IsGenerated(name string) bool {
	p := model.FoldName(c.prefix + "-")
	n := model.FoldName(name)
	return len(n) > len(p) && n[:len(p)] == p
}

// Forget drops a type name from memory, e.g. after the type was deleted.
func (c *Cache) Forget(name string) {
	delete(c.entries, model.FoldName(name))
}

// Reset drops every entry. Used when a transaction the entries were
// created in is rolled back.
func (c *Cache) Reset() {
	c.entries = make(map[string]wall.TypeRef)
}

// Len returns the number of cached names.
func (c *Cache) Len() int { return len(c.entries) }

// Stats returns a copy of the activity counters.
func (c *Cache) Stats() Stats { return c.stats }
