package morph

import (
	"fmt"

	"github.com/Faultbox/morphutil/pkg/math"
)

// Mesh is the host-side vertex access the blender writes through.
type Mesh interface {
	VertexCount() int
	Point(i int) math.Vec3
	SetPoint(i int, p math.Vec3)
	// Commit publishes the SetPoint calls made since the last Commit.
	Commit()
}

// Blend returns the base positions with every weighted target delta added,
// plus a mask of vertices referenced by any target regardless of weight.
// Overlapping targets add up; nothing is normalized.
func Blend(base []math.Vec3, targets []Target) ([]math.Vec3, []bool) {
	out := append([]math.Vec3(nil), base...)
	touched := make([]bool, len(base))

	for ti := range targets {
		for _, idx := range targets[ti].Indices {
			touched[idx] = true
		}
	}

	for ti := range targets {
		t := &targets[ti]
		w := clamp01(t.Weight)
		if w == 0 {
			continue
		}
		for i, idx := range t.Indices {
			out[idx] = out[idx].Add(t.Positions[i].Sub(base[idx]).Scale(w))
		}
	}
	return out, touched
}

// Commit blends s into m and returns how many vertices were written. Only
// vertices referenced by a target are written. When the vertex counts
// disagree the mesh was edited behind the store's back: nothing is written
// and ErrStructuralMismatch is returned.
func Commit(s *Store, m Mesh) (int, error) {
	if n := m.VertexCount(); n != len(s.base) {
		return 0, fmt.Errorf("%w: base %d, mesh %d", ErrStructuralMismatch, len(s.base), n)
	}
	if len(s.targets) == 0 {
		return 0, nil
	}

	positions, touched := Blend(s.base, s.targets)
	written := 0
	for i, ok := range touched {
		if !ok {
			continue
		}
		m.SetPoint(i, positions[i])
		written++
	}
	m.Commit()
	return written, nil
}
