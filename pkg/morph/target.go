package morph

import "github.com/Faultbox/morphutil/pkg/math"

// Target is a named, weighted sparse displacement of the base vertices.
// Indices[i] is the base vertex whose displaced position is Positions[i].
// Normals is either empty or parallel to Indices; blending ignores it.
type Target struct {
	Name      string
	Indices   []int
	Positions []math.Vec3
	Normals   []math.Vec3
	Weight    float32
}

// Len returns the number of affected vertices.
func (t *Target) Len() int {
	return len(t.Indices)
}

// Clone returns a deep copy of t.
func (t *Target) Clone() Target {
	return Target{
		Name:      t.Name,
		Indices:   append([]int(nil), t.Indices...),
		Positions: append([]math.Vec3(nil), t.Positions...),
		Normals:   append([]math.Vec3(nil), t.Normals...),
		Weight:    t.Weight,
	}
}

// clamp01 limits w to [0, 1]; NaN becomes 0.
func clamp01(w float32) float32 {
	if !(w > 0) {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}
