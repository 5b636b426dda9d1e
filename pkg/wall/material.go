package wall

import (
	"strings"
	"unicode"
)

// maxCodeRunes bounds the length of a cleaned material code.
const maxCodeRunes = 4

// defaultMaterialCode is used when a name cleans down to nothing.
const defaultMaterialCode = "Def"

// Material references a material in the model store.
type Material struct {
	ID   ID     `json:"id,omitempty" yaml:"id,omitempty"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// IsZero reports whether no material is assigned.
func (m Material) IsZero() bool {
	return m.ID == "" && m.Name == ""
}

// CleanCode strips whitespace and punctuation from name and truncates the
// remainder to four runes.
func CleanCode(name string) string {
	var b strings.Builder
	n := 0
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			continue
		}
		b.WriteRune(r)
		n++
		if n == maxCodeRunes {
			break
		}
	}
	if b.Len() == 0 {
		return defaultMaterialCode
	}
	return b.String()
}

// LayerSpec is one layer of a composite wall.
type LayerSpec struct {
	Function  Function `json:"function" yaml:"function"`
	Material  Material `json:"material,omitempty" yaml:"material,omitempty"`
	Thickness float64  `json:"thickness" yaml:"thickness"`
}

// MaterialCode returns the cleaned material code of the layer. A layer
// without a material is coded by its function's display name.
func (l LayerSpec) MaterialCode() string {
	if l.Material.Name == "" {
		return CleanCode(l.Function.String())
	}
	return CleanCode(l.Material.Name)
}

// Key returns the generated type key for the layer.
func (l LayerSpec) Key() WallTypeKey {
	return NewTypeKey(l.Function, l.MaterialCode(), l.Thickness)
}
