// Package wall defines the domain values shared by every stage of composite
// wall decomposition: layer functions and materials, composite wall specs,
// per-layer geometry, generated type keys, decomposed segments, junctions
// and the error kinds recorded while a batch runs.
package wall

// ID identifies an element (wall, wall type or level) in the model store.
type ID string

// String returns the raw identifier.
func (id ID) String() string { return string(id) }

// IsZero reports whether the ID is empty.
func (id ID) IsZero() bool { return id == "" }
