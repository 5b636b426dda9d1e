// Package memory is an in-process model store. Transactions work on a copy
// of the document that replaces the committed one only when the
// transaction function succeeds.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/chazu/strata/pkg/model"
	"github.com/chazu/strata/pkg/store"
	"github.com/chazu/strata/pkg/wall"
)

// Compile-time interface checks.
var (
	_ store.Backend = (*Store)(nil)
	_ store.Store   = (*tx)(nil)
)

// Store holds a model document in memory. It is safe for concurrent use;
// transactions are serialised.
type Store struct {
	mu  sync.Mutex
	doc model.Document
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// NewFromDocument returns a store holding a copy of doc, after validation.
func NewFromDocument(doc model.Document) (*Store, error) {
	s := New()
	if err := s.Load(context.Background(), doc); err != nil {
		return nil, err
	}
	return s, nil
}

// RunInTransaction runs fn against a private copy of the document and
// commits it if fn returns nil.
func (s *Store) RunInTransaction(ctx context.Context, name string, fn func(store.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction %q: %w", name, err)
	}
	t := &tx{doc: store.CloneDocument(s.doc)}
	if err := fn(t); err != nil {
		return fmt.Errorf("transaction %q: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction %q: %w", name, err)
	}
	s.doc = t.doc
	return nil
}

// Load replaces the stored document with a copy of doc. Documents with
// error-severity validation findings are rejected.
func (s *Store) Load(ctx context.Context, doc model.Document) error {
	if findings := model.Validate(doc); model.HasErrors(findings) {
		return fmt.Errorf("load: invalid document: %v", findings)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = store.CloneDocument(doc)
	return nil
}

// Document returns a copy of the committed document.
func (s *Store) Document(ctx context.Context) (model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.CloneDocument(s.doc), nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// tx is the store.Store view of one transaction.
type tx struct {
	doc model.Document
}

func (t *tx) WallSpec(ctx context.Context, id wall.ID) (wall.CompositeWallSpec, error) {
	w, ok := t.doc.WallByID(id)
	if !ok {
		return wall.CompositeWallSpec{}, fmt.Errorf("wall %s: %w", id, store.ErrNotFound)
	}
	typ, ok := t.doc.TypeByID(w.Type)
	if !ok {
		return wall.CompositeWallSpec{}, fmt.Errorf("type %s of wall %s: %w", w.Type, id, store.ErrNotFound)
	}
	return model.Spec(*w, *typ), model.CheckDecomposable(*w, *typ)
}

func (t *tx) Walls(ctx context.Context, excluding wall.ID) ([]store.WallRef, error) {
	refs := make([]store.WallRef, 0, len(t.doc.Walls))
	for _, w := range t.doc.Walls {
		if w.ID == excluding {
			continue
		}
		refs = append(refs, store.NewWallRef(w, t.doc.Elevation(w)))
	}
	return refs, nil
}

func (t *tx) CreateSingleLayerType(ctx context.Context, kind model.TypeKind, name string, layer wall.LayerSpec) (wall.TypeRef, error) {
	if _, ok := t.findType(name); ok {
		return wall.TypeRef{}, fmt.Errorf("create type %q: %w", name, store.ErrDuplicateName)
	}
	var template *model.WallType
	for i := range t.doc.Types {
		if typ := &t.doc.Types[i]; typ.Kind == kind && len(typ.Layers) == 1 {
			template = typ
			break
		}
	}
	if template == nil {
		return wall.TypeRef{}, fmt.Errorf("create type %q from %s template: %w", name, kind, store.ErrNoTemplate)
	}
	if layer.Thickness <= 0 {
		return wall.TypeRef{}, fmt.Errorf("create type %q: non-positive thickness %g", name, layer.Thickness)
	}

	created := model.WallType{
		ID:     wall.ID(uuid.NewString()),
		Name:   name,
		Kind:   template.Kind,
		Layers: []wall.LayerSpec{layer},
	}
	t.doc.Types = append(t.doc.Types, created)
	return wall.TypeRef{ID: created.ID, Name: created.Name}, nil
}

func (t *tx) FindTypeByName(ctx context.Context, name string) (wall.TypeRef, bool, error) {
	typ, ok := t.findType(name)
	if !ok {
		return wall.TypeRef{}, false, nil
	}
	return wall.TypeRef{ID: typ.ID, Name: typ.Name}, true, nil
}

func (t *tx) findType(name string) (*model.WallType, bool) {
	for i := range t.doc.Types {
		if model.SameName(t.doc.Types[i].Name, name) {
			return &t.doc.Types[i], true
		}
	}
	return nil, false
}

func (t *tx) CreateWallSegment(ctx context.Context, p store.SegmentParams) (store.WallRef, error) {
	if p.Centerline.IsDegenerate() {
		return store.WallRef{}, fmt.Errorf("create segment of %s: zero-length centerline", p.Source)
	}
	if p.Height <= 0 {
		return store.WallRef{}, fmt.Errorf("create segment of %s: non-positive height %g", p.Source, p.Height)
	}
	if _, ok := t.doc.TypeByID(p.Type.ID); !ok {
		return store.WallRef{}, fmt.Errorf("create segment of %s: type %s: %w", p.Source, p.Type.ID, store.ErrNotFound)
	}

	curve := p.Centerline
	w := model.Wall{
		ID:            wall.ID(uuid.NewString()),
		Type:          p.Type.ID,
		Curve:         &curve,
		Justification: wall.WallCenterline,
		Height:        p.Height,
		Level:         p.Level,
		Attributes:    p.Attributes.Clone(),
	}
	t.doc.Walls = append(t.doc.Walls, w)
	return store.NewWallRef(w, t.doc.Elevation(w)), nil
}

func (t *tx) DeleteElement(ctx context.Context, id wall.ID) error {
	for i, w := range t.doc.Walls {
		if w.ID == id {
			t.doc.Walls = append(t.doc.Walls[:i], t.doc.Walls[i+1:]...)
			return nil
		}
	}
	for i, typ := range t.doc.Types {
		if typ.ID != id {
			continue
		}
		if inUse, _ := t.TypeInUse(ctx, id); inUse {
			return fmt.Errorf("delete type %s: %w", id, store.ErrInUse)
		}
		t.doc.Types = append(t.doc.Types[:i], t.doc.Types[i+1:]...)
		return nil
	}
	return fmt.Errorf("delete %s: %w", id, store.ErrNotFound)
}

func (t *tx) WallTypes(ctx context.Context) ([]model.WallType, error) {
	return store.CloneDocument(model.Document{Types: t.doc.Types}).Types, nil
}

func (t *tx) TypeInUse(ctx context.Context, id wall.ID) (bool, error) {
	for _, w := range t.doc.Walls {
		if w.Type == id {
			return true, nil
		}
	}
	return false, nil
}
