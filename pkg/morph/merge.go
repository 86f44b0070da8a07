package morph

import (
	"fmt"

	"github.com/Faultbox/morphutil/pkg/bsp"
	"github.com/Faultbox/morphutil/pkg/math"
)

// DefaultMergeEpsilon is the per-axis distance under which two rest
// positions are treated as the same vertex.
const DefaultMergeEpsilon float32 = 1e-6

// FaceMesh is a Mesh whose topology can be rewritten.
type FaceMesh interface {
	Mesh
	Faces() [][]int
	// ReplaceTopology swaps in a new vertex list and face list together.
	ReplaceTopology(points []math.Vec3, faces [][]int)
	// CleanupRedundant is the host's own duplicate removal, which knows
	// nothing about morph targets.
	CleanupRedundant()
}

// MergeResult is the outcome of Merge. Inputs are never modified.
type MergeResult struct {
	Points  []math.Vec3 // canonical points in original order
	Faces   [][]int     // faces in new indices
	Alias   []int       // old index -> canonical old index
	Remap   []int       // old index -> new index, -1 when removed
	Targets []Target    // targets with entries on removed vertices dropped
}

// Removed returns how many points were dropped.
func (r *MergeResult) Removed() int {
	return len(r.Alias) - len(r.Points)
}

// Merge collapses points lying within eps of an earlier point. Points are
// visited in ascending order; the first unassigned point of a cluster becomes
// canonical and every neighbour it finds is aliased to it. A later canonical
// point may take over a neighbour already aliased elsewhere, but canonical
// points always alias themselves.
func Merge(points []math.Vec3, faces [][]int, targets []Target, eps float32, opts bsp.Options) MergeResult {
	n := len(points)
	ix := bsp.Build(points, opts)

	alias := make([]int, n)
	remap := make([]int, n)
	for i := range alias {
		alias[i] = -1
		remap[i] = -1
	}

	next := 0
	for i := 0; i < n; i++ {
		if alias[i] >= 0 {
			continue
		}
		alias[i] = i
		remap[i] = next
		next++
		for _, j := range ix.RangeQuery(points[i], eps) {
			if remap[j] >= 0 {
				continue
			}
			alias[j] = i
		}
	}

	res := MergeResult{
		Points: make([]math.Vec3, 0, next),
		Alias:  alias,
		Remap:  remap,
	}
	for i, p := range points {
		if remap[i] >= 0 {
			res.Points = append(res.Points, p)
		}
	}

	res.Faces = make([][]int, len(faces))
	for fi, f := range faces {
		nf := make([]int, len(f))
		for k, v := range f {
			if v < 0 || v >= n {
				nf[k] = v
				continue
			}
			nf[k] = remap[alias[v]]
		}
		res.Faces[fi] = nf
	}

	res.Targets = make([]Target, len(targets))
	for ti := range targets {
		res.Targets[ti] = remapTarget(&targets[ti], remap)
	}
	return res
}

// remapTarget renumbers t through remap and drops entries whose vertex was
// removed, together with their paired position and normal.
func remapTarget(t *Target, remap []int) Target {
	out := Target{Name: t.Name, Weight: t.Weight}
	keepNormals := len(t.Normals) == len(t.Indices)
	for i, idx := range t.Indices {
		if idx < 0 || idx >= len(remap) || remap[idx] < 0 {
			continue
		}
		out.Indices = append(out.Indices, remap[idx])
		out.Positions = append(out.Positions, t.Positions[i])
		if keepNormals {
			out.Normals = append(out.Normals, t.Normals[i])
		}
	}
	return out
}

// CleanupRedundant merges duplicate rest vertices of the store and of m in
// step, keeping every target's indices valid. When the mesh no longer has as
// many vertices as the base, the store cannot vouch for the mapping: m gets
// the host's plain cleanup, the store is left alone and
// ErrStructuralMismatch is returned.
func (s *Store) CleanupRedundant(m FaceMesh, eps float32, opts bsp.Options) (MergeResult, error) {
	if n := m.VertexCount(); n != len(s.base) {
		m.CleanupRedundant()
		return MergeResult{}, fmt.Errorf("%w: base %d, mesh %d", ErrStructuralMismatch, len(s.base), n)
	}
	if eps < 0 {
		return MergeResult{}, fmt.Errorf("%w: negative epsilon %v", ErrInvalidArgument, eps)
	}

	res := Merge(s.base, m.Faces(), s.targets, eps, opts)

	live := make([]math.Vec3, 0, len(res.Points))
	for i, r := range res.Remap {
		if r >= 0 {
			live = append(live, m.Point(i))
		}
	}
	m.ReplaceTopology(live, res.Faces)
	s.replace(res.Points, res.Targets)
	return res, nil
}
