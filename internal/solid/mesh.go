// Package solid extrudes 2D profiles into triangulated solids. Two
// backends tessellate the flat caps: ear clipping over hole-bridged
// polygons and trapezoidal scanline decomposition. Both share the same
// side-wall construction, so either backend yields a closed manifold
// for the same profile.
package solid

import "math"

// Vec3 is a mesh vertex in mm.
type Vec3 struct {
	X, Y, Z float64
}

// Mesh is an indexed triangle surface. Vertices are deduplicated on
// insert so shared corners reference one entry.
type Mesh struct {
	Vertices []Vec3
	Faces    [][3]int

	index map[Vec3]int
}

func NewMesh() *Mesh {
	return &Mesh{index: make(map[Vec3]int)}
}

// vertex interns v and returns its index.
func (m *Mesh) vertex(v Vec3) int {
	if m.index == nil {
		m.index = make(map[Vec3]int, len(m.Vertices))
		for i, u := range m.Vertices {
			m.index[u] = i
		}
	}
	if i, ok := m.index[v]; ok {
		return i
	}
	i := len(m.Vertices)
	m.Vertices = append(m.Vertices, v)
	m.index[v] = i
	return i
}

// Add appends one triangle, dropping it when two corners coincide.
func (m *Mesh) Add(a, b, c Vec3) {
	ia, ib, ic := m.vertex(a), m.vertex(b), m.vertex(c)
	if ia == ib || ib == ic || ic == ia {
		return
	}
	m.Faces = append(m.Faces, [3]int{ia, ib, ic})
}

func (m *Mesh) TriangleCount() int { return len(m.Faces) }

// Bounds returns the axis-aligned extent. Zero meshes report zeros.
func (m *Mesh) Bounds() (minV, maxV Vec3) {
	if len(m.Vertices) == 0 {
		return Vec3{}, Vec3{}
	}
	minV = m.Vertices[0]
	maxV = m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		minV.X = math.Min(minV.X, v.X)
		minV.Y = math.Min(minV.Y, v.Y)
		minV.Z = math.Min(minV.Z, v.Z)
		maxV.X = math.Max(maxV.X, v.X)
		maxV.Y = math.Max(maxV.Y, v.Y)
		maxV.Z = math.Max(maxV.Z, v.Z)
	}
	return minV, maxV
}

// TranslateToOrigin shifts the mesh so its minimum corner sits at the
// origin, which keeps slicers from placing the part off the build plate.
func (m *Mesh) TranslateToOrigin() {
	if len(m.Vertices) == 0 {
		return
	}
	minV, _ := m.Bounds()
	for i := range m.Vertices {
		m.Vertices[i].X -= minV.X
		m.Vertices[i].Y -= minV.Y
		m.Vertices[i].Z -= minV.Z
	}
	m.index = nil // stale after mutation
}

// Normal returns the unit normal of face i, or the zero vector for a
// degenerate face.
func (m *Mesh) Normal(i int) Vec3 {
	f := m.Faces[i]
	a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
	ux, uy, uz := b.X-a.X, b.Y-a.Y, b.Z-a.Z
	vx, vy, vz := c.X-a.X, c.Y-a.Y, c.Z-a.Z
	nx, ny, nz := uy*vz-uz*vy, uz*vx-ux*vz, ux*vy-uy*vx
	length := math.Sqrt(nx*nx + ny*ny + nz*nz)
	if length == 0 {
		return Vec3{}
	}
	return Vec3{nx / length, ny / length, nz / length}
}

// RemoveDegenerate drops zero-area faces.
func (m *Mesh) RemoveDegenerate() {
	out := m.Faces[:0]
	for i, f := range m.Faces {
		if (m.Normal(i) == Vec3{}) {
			continue
		}
		out = append(out, f)
	}
	m.Faces = out
}

// Merge appends every face of other into m, re-interning vertices.
func (m *Mesh) Merge(other *Mesh) {
	for _, f := range other.Faces {
		m.Add(other.Vertices[f[0]], other.Vertices[f[1]], other.Vertices[f[2]])
	}
}
