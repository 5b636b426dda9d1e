package store

import (
	"github.com/chazu/strata/pkg/model"
	"github.com/chazu/strata/pkg/wall"
)

// CloneDocument returns a deep copy of doc.
func CloneDocument(doc model.Document) model.Document {
	out := model.Document{
		Levels: append([]model.Level(nil), doc.Levels...),
		Types:  make([]model.WallType, len(doc.Types)),
		Walls:  make([]model.Wall, len(doc.Walls)),
	}
	for i, t := range doc.Types {
		t.Layers = append([]wall.LayerSpec(nil), t.Layers...)
		out.Types[i] = t
	}
	for i, w := range doc.Walls {
		if w.Curve != nil {
			c := *w.Curve
			w.Curve = &c
		}
		w.Attributes = w.Attributes.Clone()
		out.Walls[i] = w
	}
	return out
}
