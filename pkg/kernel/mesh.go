package kernel

// Mesh is a triangle mesh. Vertices and normals hold three floats per
// vertex, indices three entries per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	// Function is the layer function the part was built from, if any.
	Function string `json:"function,omitempty"`
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Bounds returns the axis-aligned bounds of the vertices. ok is false for
// an empty mesh.
func (m *Mesh) Bounds() (min, max [3]float32, ok bool) {
	if m.IsEmpty() {
		return min, max, false
	}
	for i := 0; i < 3; i++ {
		min[i], max[i] = m.Vertices[i], m.Vertices[i]
	}
	for v := 3; v+2 < len(m.Vertices); v += 3 {
		for i := 0; i < 3; i++ {
			c := m.Vertices[v+i]
			if c < min[i] {
				min[i] = c
			}
			if c > max[i] {
				max[i] = c
			}
		}
	}
	return min, max, true
}
