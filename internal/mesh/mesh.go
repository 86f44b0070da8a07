// Package mesh is an in-memory polygon mesh and scene standing in for the
// host application's geometry.
package mesh

import (
	"github.com/google/uuid"

	"github.com/Faultbox/morphutil/pkg/bsp"
	"github.com/Faultbox/morphutil/pkg/math"
	"github.com/Faultbox/morphutil/pkg/morph"
)

// ID identifies a mesh across saves.
type ID = uuid.UUID

// Mesh is a polygon mesh. Faces hold vertex indices in winding order.
type Mesh struct {
	ID   ID
	Name string

	points   []math.Vec3
	faces    [][]int
	revision int
}

// New creates a mesh with a fresh ID. points and faces are copied.
func New(name string, points []math.Vec3, faces [][]int) *Mesh {
	return NewWithID(uuid.New(), name, points, faces)
}

// NewWithID creates a mesh with a known ID, e.g. when reloading.
func NewWithID(id ID, name string, points []math.Vec3, faces [][]int) *Mesh {
	m := &Mesh{ID: id, Name: name}
	m.points = append([]math.Vec3(nil), points...)
	m.faces = make([][]int, len(faces))
	for i, f := range faces {
		m.faces[i] = append([]int(nil), f...)
	}
	return m
}

// VertexCount returns the number of control points.
func (m *Mesh) VertexCount() int {
	return len(m.points)
}

// Point returns control point i.
func (m *Mesh) Point(i int) math.Vec3 {
	return m.points[i]
}

// SetPoint moves control point i.
func (m *Mesh) SetPoint(i int, p math.Vec3) {
	m.points[i] = p
}

// Commit marks the current points as published.
func (m *Mesh) Commit() {
	m.revision++
}

// Revision counts commits and topology changes.
func (m *Mesh) Revision() int {
	return m.revision
}

// Points returns a copy of every control point.
func (m *Mesh) Points() []math.Vec3 {
	return append([]math.Vec3(nil), m.points...)
}

// Faces returns the face list. It must not be modified.
func (m *Mesh) Faces() [][]int {
	return m.faces
}

// Bounds returns the bounding box of the control points.
func (m *Mesh) Bounds() math.Box {
	return math.BoxOf(m.points)
}

// ReplaceTopology swaps in new points and faces.
func (m *Mesh) ReplaceTopology(points []math.Vec3, faces [][]int) {
	m.points = points
	m.faces = faces
	m.revision++
}

// AddPoint appends a control point and returns its index. Adding points
// makes any morph store bound to the mesh stale.
func (m *Mesh) AddPoint(p math.Vec3) int {
	m.points = append(m.points, p)
	m.revision++
	return len(m.points) - 1
}

// Transform moves every control point by mat, the way a user moving or
// rotating the whole object would.
func (m *Mesh) Transform(mat math.Mat4) {
	for i, p := range m.points {
		m.points[i] = mat.TransformVec3(p)
	}
	m.revision++
}

// CleanupRedundant merges control points at exactly the same position. It
// knows nothing about morph targets.
func (m *Mesh) CleanupRedundant() {
	res := morph.Merge(m.points, m.faces, nil, 0, bsp.DefaultOptions())
	if res.Removed() == 0 {
		return
	}
	m.ReplaceTopology(res.Points, res.Faces)
}

var (
	_ morph.Mesh     = (*Mesh)(nil)
	_ morph.FaceMesh = (*Mesh)(nil)
)
