// Package kernel defines the solid modelling operations used to turn walls
// into triangle meshes. The sdfx subpackage implements it.
package kernel

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel builds and meshes solids. Implementations must be safe for
// concurrent use.
type Kernel interface {
	// Box returns an x by y by z box with its minimum corner at the origin.
	Box(x, y, z float64) Solid

	Union(a, b Solid) Solid

	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	ToMesh(s Solid) (*Mesh, error)
}
