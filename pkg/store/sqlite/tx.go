package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/chazu/strata/pkg/model"
	"github.com/chazu/strata/pkg/store"
	"github.com/chazu/strata/pkg/wall"
)

// txStore is the store.Store view of one database transaction.
type txStore struct {
	tx *sql.Tx
}

func (s *txStore) WallSpec(ctx context.Context, id wall.ID) (wall.CompositeWallSpec, error) {
	row := s.tx.QueryRowContext(ctx, `SELECT `+wallColumns+` FROM walls WHERE wall_id = ?`, string(id))
	w, err := scanWall(row)
	if err == sql.ErrNoRows {
		return wall.CompositeWallSpec{}, fmt.Errorf("wall %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return wall.CompositeWallSpec{}, fmt.Errorf("get wall %s: %w", id, err)
	}
	typ, ok, err := getType(ctx, s.tx, w.Type)
	if err != nil {
		return wall.CompositeWallSpec{}, err
	}
	if !ok {
		return wall.CompositeWallSpec{}, fmt.Errorf("type %s of wall %s: %w", w.Type, id, store.ErrNotFound)
	}
	return model.Spec(w, typ), model.CheckDecomposable(w, typ)
}

func (s *txStore) Walls(ctx context.Context, excluding wall.ID) ([]store.WallRef, error) {
	walls, err := listWalls(ctx, s.tx, excluding)
	if err != nil {
		return nil, err
	}
	levels, err := listLevels(ctx, s.tx)
	if err != nil {
		return nil, err
	}
	doc := model.Document{Levels: levels}
	refs := make([]store.WallRef, len(walls))
	for i, w := range walls {
		refs[i] = store.NewWallRef(w, doc.Elevation(w))
	}
	return refs, nil
}

func (s *txStore) elevation(ctx context.Context, level wall.ID) (float64, error) {
	var e float64
	err := s.tx.QueryRowContext(ctx, `SELECT elevation FROM levels WHERE level_id = ?`, string(level)).Scan(&e)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("level %s: %w", level, err)
	}
	return e, nil
}

func (s *txStore) CreateSingleLayerType(ctx context.Context, kind model.TypeKind, name string, layer wall.LayerSpec) (wall.TypeRef, error) {
	if _, found, err := s.FindTypeByName(ctx, name); err != nil {
		return wall.TypeRef{}, err
	} else if found {
		return wall.TypeRef{}, fmt.Errorf("create type %q: %w", name, store.ErrDuplicateName)
	}

	const templateQuery = `SELECT t.type_id FROM wall_types t
WHERE t.kind = ? AND (SELECT COUNT(*) FROM type_layers l WHERE l.type_id = t.type_id) = 1
ORDER BY t.rowid LIMIT 1`
	var templateID string
	err := s.tx.QueryRowContext(ctx, templateQuery, kind.String()).Scan(&templateID)
	if err == sql.ErrNoRows {
		return wall.TypeRef{}, fmt.Errorf("create type %q from %s template: %w", name, kind, store.ErrNoTemplate)
	}
	if err != nil {
		return wall.TypeRef{}, fmt.Errorf("find template: %w", err)
	}
	if layer.Thickness <= 0 {
		return wall.TypeRef{}, fmt.Errorf("create type %q: non-positive thickness %g", name, layer.Thickness)
	}

	created := model.WallType{
		ID:     wall.ID(uuid.NewString()),
		Name:   name,
		Kind:   kind,
		Layers: []wall.LayerSpec{layer},
	}
	if err := insertType(ctx, s.tx, created); err != nil {
		return wall.TypeRef{}, err
	}
	return wall.TypeRef{ID: created.ID, Name: created.Name}, nil
}

func (s *txStore) FindTypeByName(ctx context.Context, name string) (wall.TypeRef, bool, error) {
	var id, stored string
	err := s.tx.QueryRowContext(ctx,
		`SELECT type_id, name FROM wall_types WHERE name_fold = ?`, model.FoldName(name)).Scan(&id, &stored)
	if err == sql.ErrNoRows {
		return wall.TypeRef{}, false, nil
	}
	if err != nil {
		return wall.TypeRef{}, false, fmt.Errorf("find type %q: %w", name, err)
	}
	return wall.TypeRef{ID: wall.ID(id), Name: stored}, true, nil
}

func (s *txStore) CreateWallSegment(ctx context.Context, p store.SegmentParams) (store.WallRef, error) {
	if p.Centerline.IsDegenerate() {
		return store.WallRef{}, fmt.Errorf("create segment of %s: zero-length centerline", p.Source)
	}
	if p.Height <= 0 {
		return store.WallRef{}, fmt.Errorf("create segment of %s: non-positive height %g", p.Source, p.Height)
	}
	if _, ok, err := getType(ctx, s.tx, p.Type.ID); err != nil {
		return store.WallRef{}, err
	} else if !ok {
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
		Attributes:    p.Attributes,
	}
	if err := insertWall(ctx, s.tx, w); err != nil {
		return store.WallRef{}, err
	}
	elevation, err := s.elevation(ctx, w.Level)
	if err != nil {
		return store.WallRef{}, err
	}
	return store.NewWallRef(w, elevation), nil
}

func (s *txStore) DeleteElement(ctx context.Context, id wall.ID) error {
	res, err := s.tx.ExecContext(ctx, `DELETE FROM walls WHERE wall_id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("delete wall %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	} else if n > 0 {
		return nil
	}

	inUse, err := s.TypeInUse(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return fmt.Errorf("delete type %s: %w", id, store.ErrInUse)
	}
	res, err = s.tx.ExecContext(ctx, `DELETE FROM wall_types WHERE type_id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("delete type %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *txStore) WallTypes(ctx context.Context) ([]model.WallType, error) {
	return listTypes(ctx, s.tx)
}

func (s *txStore) TypeInUse(ctx context.Context, id wall.ID) (bool, error) {
	var n int
	if err := s.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM walls WHERE type_id = ?`, string(id)).Scan(&n); err != nil {
		return false, fmt.Errorf("type %s usage: %w", id, err)
	}
	return n > 0, nil
}
