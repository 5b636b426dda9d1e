// Package store defines the model store the decomposition core works
// against. Implementations live in the memory and sqlite subpackages.
package store

import (
	"context"
	"errors"

	"github.com/chazu/strata/pkg/geom"
	"github.com/chazu/strata/pkg/model"
	"github.com/chazu/strata/pkg/wall"
)

var (
	// ErrNotFound is returned when an element does not exist.
	ErrNotFound = errors.New("element not found")
	// ErrDuplicateName is returned when a type name is already taken,
	// compared case-insensitively.
	ErrDuplicateName = errors.New("type name already exists")
	// ErrNoTemplate is returned when no single-layer type of the requested
	// kind exists to create a new type from.
	ErrNoTemplate = errors.New("no single-layer template type")
	// ErrInUse is returned when deleting a type that walls still reference.
	ErrInUse = errors.New("element is in use")
)

// WallRef is a wall as seen by junction detection. Curve is nil for walls
// without a usable location curve. Curve is relative to the wall's level;
// Base is the level elevation plus the wall's base offset.
type WallRef struct {
	ID    wall.ID
	Curve *geom.Line
	Base  float64
}

// NewWallRef builds the reference of w hosted on a level at elevation.
func NewWallRef(w model.Wall, elevation float64) WallRef {
	ref := WallRef{ID: w.ID, Base: elevation + model.BaseOffset(w)}
	if w.Curve != nil {
		c := *w.Curve
		ref.Curve = &c
	}
	return ref
}

// Absolute returns the curve raised by Base, or nil without a curve.
func (r WallRef) Absolute() *geom.Line {
	if r.Curve == nil {
		return nil
	}
	lift := geom.Pt3(0, 0, r.Base)
	return &geom.Line{Start: r.Curve.Start.Add(lift), End: r.Curve.End.Add(lift)}
}

// SegmentParams describes a single-layer wall to create.
type SegmentParams struct {
	Source     wall.ID
	Centerline geom.Line
	Type       wall.TypeRef
	Level      wall.ID
	Height     float64
	Attributes wall.Attributes
}

// Store is the set of model operations decomposition needs. All methods
// are called from one goroutine inside a transaction.
type Store interface {
	// WallSpec returns the decomposition input of a wall. It fails with
	// ErrNotFound, wall.ErrNotComposite or wall.ErrGeometryUnavailable; in
	// the latter two cases the partially filled spec is still returned.
	WallSpec(ctx context.Context, id wall.ID) (wall.CompositeWallSpec, error)
	// Walls enumerates every wall except one, in a stable order.
	Walls(ctx context.Context, excluding wall.ID) ([]WallRef, error)
	// CreateSingleLayerType clones the first single-layer type of the given
	// kind into a new type named name holding layer.
	CreateSingleLayerType(ctx context.Context, kind model.TypeKind, name string, layer wall.LayerSpec) (wall.TypeRef, error)
	// FindTypeByName looks a type up by name, case-insensitively.
	FindTypeByName(ctx context.Context, name string) (wall.TypeRef, bool, error)
	// CreateWallSegment places a new wall on its own centerline.
	CreateWallSegment(ctx context.Context, p SegmentParams) (WallRef, error)
	// DeleteElement removes a wall or a wall type.
	DeleteElement(ctx context.Context, id wall.ID) error
	// WallTypes lists every type.
	WallTypes(ctx context.Context) ([]model.WallType, error)
	// TypeInUse reports whether any wall references the type.
	TypeInUse(ctx context.Context, id wall.ID) (bool, error)
}

// Transactor runs fn atomically. If fn returns an error nothing it did is
// kept; otherwise every mutation is committed together.
type Transactor interface {
	RunInTransaction(ctx context.Context, name string, fn func(Store) error) error
}

// Loader imports and exports whole documents.
type Loader interface {
	Load(ctx context.Context, doc model.Document) error
	Document(ctx context.Context) (model.Document, error)
}

// Backend is a complete model store.
type Backend interface {
	Transactor
	Loader
	Close() error
}
