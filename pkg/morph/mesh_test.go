package morph

import "github.com/Faultbox/morphutil/pkg/math"

// testMesh is an in-memory FaceMesh that records host calls.
type testMesh struct {
	points  []math.Vec3
	faces   [][]int
	writes  int
	commits int
	cleaned int
}

func newTestMesh(points []math.Vec3, faces [][]int) *testMesh {
	return &testMesh{points: append([]math.Vec3(nil), points...), faces: faces}
}

func (m *testMesh) VertexCount() int      { return len(m.points) }
func (m *testMesh) Point(i int) math.Vec3 { return m.points[i] }
func (m *testMesh) Commit()               { m.commits++ }
func (m *testMesh) Faces() [][]int        { return m.faces }
func (m *testMesh) CleanupRedundant()     { m.cleaned++ }

func (m *testMesh) SetPoint(i int, p math.Vec3) {
	m.points[i] = p
	m.writes++
}

func (m *testMesh) ReplaceTopology(points []math.Vec3, faces [][]int) {
	m.points = points
	m.faces = faces
}

// unitSquare returns the corners of the unit square in the XY plane.
func unitSquare() []math.Vec3 {
	return []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0}}
}
