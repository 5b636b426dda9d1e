package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/chazu/strata/pkg/geom"
	"github.com/chazu/strata/pkg/model"
	"github.com/chazu/strata/pkg/wall"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertLevel(ctx context.Context, q queryer, l model.Level) error {
	const stmt = `INSERT INTO levels (level_id, name, elevation) VALUES (?, ?, ?)`
	if _, err := q.ExecContext(ctx, stmt, string(l.ID), l.Name, l.Elevation); err != nil {
		return fmt.Errorf("insert level %s: %w", l.ID, err)
	}
	return nil
}

func insertType(ctx context.Context, q queryer, t model.WallType) error {
	const stmt = `INSERT INTO wall_types (type_id, name, name_fold, kind) VALUES (?, ?, ?, ?)`
	if _, err := q.ExecContext(ctx, stmt, string(t.ID), t.Name, model.FoldName(t.Name), t.Kind.String()); err != nil {
		return fmt.Errorf("insert type %s: %w", t.ID, err)
	}
	const layerStmt = `INSERT INTO type_layers (type_id, layer_index, function, material_id, material_name, thickness)
VALUES (?, ?, ?, ?, ?, ?)`
	for i, l := range t.Layers {
		_, err := q.ExecContext(ctx, layerStmt,
			string(t.ID), i, l.Function.String(), string(l.Material.ID), l.Material.Name, l.Thickness)
		if err != nil {
			return fmt.Errorf("insert layer %d of type %s: %w", i, t.ID, err)
		}
	}
	return nil
}

func insertWall(ctx context.Context, q queryer, w model.Wall) error {
	const stmt = `INSERT INTO walls (wall_id, type_id, has_curve, x0, y0, z0, x1, y1, z1,
	justification, flipped, height, level_id, attributes_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var c geom.Line
	hasCurve := w.Curve != nil
	if hasCurve {
		c = *w.Curve
	}
	attrs := w.Attributes
	if attrs == nil {
		attrs = wall.Attributes{}
	}
	attrJSON, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("marshal attributes of wall %s: %w", w.ID, err)
	}
	_, err = q.ExecContext(ctx, stmt,
		string(w.ID), string(w.Type), boolToInt(hasCurve),
		c.Start.X, c.Start.Y, c.Start.Z, c.End.X, c.End.Y, c.End.Z,
		w.Justification.String(), boolToInt(w.Flipped), w.Height, string(w.Level), string(attrJSON),
	)
	if err != nil {
		return fmt.Errorf("insert wall %s: %w", w.ID, err)
	}
	return nil
}

func listLevels(ctx context.Context, q queryer) ([]model.Level, error) {
	rows, err := q.QueryContext(ctx, `SELECT level_id, name, elevation FROM levels ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	defer rows.Close()

	var out []model.Level
	for rows.Next() {
		var l model.Level
		var id string
		if err := rows.Scan(&id, &l.Name, &l.Elevation); err != nil {
			return nil, fmt.Errorf("scan level: %w", err)
		}
		l.ID = wall.ID(id)
		out = append(out, l)
	}
	return out, rows.Err()
}

func listTypes(ctx context.Context, q queryer) ([]model.WallType, error) {
	rows, err := q.QueryContext(ctx, `SELECT type_id, name, kind FROM wall_types ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list types: %w", err)
	}
	var out []model.WallType
	for rows.Next() {
		var t model.WallType
		var id, kind string
		if err := rows.Scan(&id, &t.Name, &kind); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan type: %w", err)
		}
		t.ID = wall.ID(id)
		if t.Kind, err = model.ParseTypeKind(kind); err != nil {
			rows.Close()
			return nil, fmt.Errorf("type %s: %w", id, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("list types: %w", err)
	}
	rows.Close()

	for i := range out {
		if out[i].Layers, err = typeLayers(ctx, q, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func typeLayers(ctx context.Context, q queryer, id wall.ID) ([]wall.LayerSpec, error) {
	const query = `SELECT function, material_id, material_name, thickness
FROM type_layers WHERE type_id = ? ORDER BY layer_index`
	rows, err := q.QueryContext(ctx, query, string(id))
	if err != nil {
		return nil, fmt.Errorf("layers of type %s: %w", id, err)
	}
	defer rows.Close()

	var out []wall.LayerSpec
	for rows.Next() {
		var l wall.LayerSpec
		var fn, matID string
		if err := rows.Scan(&fn, &matID, &l.Material.Name, &l.Thickness); err != nil {
			return nil, fmt.Errorf("scan layer of type %s: %w", id, err)
		}
		if l.Function, err = wall.ParseFunction(fn); err != nil {
			return nil, fmt.Errorf("layer of type %s: %w", id, err)
		}
		l.Material.ID = wall.ID(matID)
		out = append(out, l)
	}
	return out, rows.Err()
}

func getType(ctx context.Context, q queryer, id wall.ID) (model.WallType, bool, error) {
	var t model.WallType
	var kind string
	err := q.QueryRowContext(ctx, `SELECT name, kind FROM wall_types WHERE type_id = ?`, string(id)).Scan(&t.Name, &kind)
	if err == sql.ErrNoRows {
		return model.WallType{}, false, nil
	}
	if err != nil {
		return model.WallType{}, false, fmt.Errorf("get type %s: %w", id, err)
	}
	t.ID = id
	if t.Kind, err = model.ParseTypeKind(kind); err != nil {
		return model.WallType{}, false, err
	}
	if t.Layers, err = typeLayers(ctx, q, id); err != nil {
		return model.WallType{}, false, err
	}
	return t, true, nil
}

const wallColumns = `wall_id, type_id, has_curve, x0, y0, z0, x1, y1, z1,
	justification, flipped, height, level_id, attributes_json`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanWall(s scanner) (model.Wall, error) {
	var (
		w                 model.Wall
		id, typeID, level string
		just, attrJSON    string
		hasCurve, flipped int
		c                 geom.Line
	)
	err := s.Scan(&id, &typeID, &hasCurve,
		&c.Start.X, &c.Start.Y, &c.Start.Z, &c.End.X, &c.End.Y, &c.End.Z,
		&just, &flipped, &w.Height, &level, &attrJSON)
	if err != nil {
		return model.Wall{}, err
	}
	w.ID = wall.ID(id)
	w.Type = wall.ID(typeID)
	w.Level = wall.ID(level)
	w.Flipped = flipped != 0
	if hasCurve != 0 {
		w.Curve = &c
	}
	if w.Justification, err = wall.ParseJustification(just); err != nil {
		return model.Wall{}, fmt.Errorf("wall %s: %w", id, err)
	}
	var attrs wall.Attributes
	if err := json.Unmarshal([]byte(attrJSON), &attrs); err != nil {
		return model.Wall{}, fmt.Errorf("wall %s attributes: %w", id, err)
	}
	if len(attrs) > 0 {
		w.Attributes = attrs
	}
	return w, nil
}

// listWalls lists every wall except excluding, in insertion order.
func listWalls(ctx context.Context, q queryer, excluding wall.ID) ([]model.Wall, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+wallColumns+` FROM walls WHERE wall_id <> ? ORDER BY rowid`, string(excluding))
	if err != nil {
		return nil, fmt.Errorf("list walls: %w", err)
	}
	defer rows.Close()

	var out []model.Wall
	for rows.Next() {
		w, err := scanWall(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wall: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
