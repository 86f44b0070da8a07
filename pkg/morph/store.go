// Package morph holds morph targets over a base vertex set and blends them
// into a host mesh. It also merges duplicate vertices while keeping target
// indices consistent, and snapshots weights across batch operations.
package morph

import (
	"fmt"

	"github.com/Faultbox/morphutil/pkg/math"
)

// Store holds the rest positions of one mesh and its morph targets.
// Target ids are positions in the target list; removing a target shifts the
// ids of every later target down by one.
type Store struct {
	base     []math.Vec3
	targets  []Target
	selected int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{selected: -1}
}

// Clear drops the base positions and every target.
func (s *Store) Clear() {
	s.base = nil
	s.targets = nil
	s.selected = -1
}

// SetupBase captures points as the rest shape and clears all targets.
func (s *Store) SetupBase(points []math.Vec3) {
	s.Clear()
	s.base = append([]math.Vec3(nil), points...)
}

// SetupFrom captures the current vertices of m as the rest shape.
func (s *Store) SetupFrom(m Mesh) {
	points := make([]math.Vec3, m.VertexCount())
	for i := range points {
		points[i] = m.Point(i)
	}
	s.Clear()
	s.base = points
}

// SetBase replaces the rest positions without touching targets. Used when
// loading persisted data. A base too short for an index held by a target is
// rejected with ErrInvalidArgument and the store is left unchanged.
func (s *Store) SetBase(points []math.Vec3) error {
	for ti := range s.targets {
		for _, idx := range s.targets[ti].Indices {
			if idx >= len(points) {
				return fmt.Errorf("%w: target %d uses vertex %d, new base has %d", ErrInvalidArgument, ti, idx, len(points))
			}
		}
	}
	s.base = append([]math.Vec3(nil), points...)
	return nil
}

// Base returns the rest positions. The slice must not be modified.
func (s *Store) Base() []math.Vec3 {
	return s.base
}

// BaseLen returns the number of rest vertices.
func (s *Store) BaseLen() int {
	return len(s.base)
}

// Len returns the number of targets.
func (s *Store) Len() int {
	return len(s.targets)
}

// Target returns target id. The returned value shares its slices with the
// store and must not be modified.
func (s *Store) Target(id int) (Target, error) {
	if err := s.check(id); err != nil {
		return Target{}, err
	}
	return s.targets[id], nil
}

// Targets returns the target list. It must not be modified.
func (s *Store) Targets() []Target {
	return s.targets
}

func (s *Store) check(id int) error {
	if id < 0 || id >= len(s.targets) {
		return fmt.Errorf("%w: id %d of %d", ErrTargetNotFound, id, len(s.targets))
	}
	return nil
}

func (s *Store) validate(indices []int, positions []math.Vec3) error {
	if len(indices) == 0 || len(indices) != len(positions) {
		return fmt.Errorf("%w: %d indices, %d positions", ErrInvalidArgument, len(indices), len(positions))
	}
	for _, idx := range indices {
		if idx < 0 || idx >= len(s.base) {
			return fmt.Errorf("%w: vertex %d outside base of %d", ErrInvalidArgument, idx, len(s.base))
		}
	}
	return nil
}

// AppendTarget adds a target at weight 1 and returns its id. The lists are
// copied. Empty or mismatched lists leave the store unchanged.
func (s *Store) AppendTarget(name string, indices []int, positions []math.Vec3) (int, error) {
	if err := s.validate(indices, positions); err != nil {
		return -1, err
	}
	s.targets = append(s.targets, Target{
		Name:      name,
		Indices:   append([]int(nil), indices...),
		Positions: append([]math.Vec3(nil), positions...),
		Weight:    1,
	})
	return len(s.targets) - 1, nil
}

// UpdateTarget redefines the shape of target id. The target is first blended
// out of m at weight 0 so the mesh never shows the old and new shapes mixed,
// then its lists are replaced and its weight reset to 1. The caller commits
// again to show the new shape. m may be nil when no mesh is bound.
func (s *Store) UpdateTarget(id int, indices []int, positions []math.Vec3, m Mesh) error {
	if err := s.check(id); err != nil {
		return err
	}
	if err := s.validate(indices, positions); err != nil {
		return err
	}

	s.targets[id].Weight = 0
	if m != nil {
		if _, err := Commit(s, m); err != nil {
			return err
		}
	}

	t := &s.targets[id]
	t.Indices = append([]int(nil), indices...)
	t.Positions = append([]math.Vec3(nil), positions...)
	t.Normals = nil
	t.Weight = 1
	return nil
}

// SetWeight sets the weight of target id, clamped to [0, 1].
func (s *Store) SetWeight(id int, w float32) error {
	if err := s.check(id); err != nil {
		return err
	}
	s.targets[id].Weight = clamp01(w)
	return nil
}

// Weight returns the weight of target id, or 0 when id is out of range.
func (s *Store) Weight(id int) float32 {
	if s.check(id) != nil {
		return 0
	}
	return s.targets[id].Weight
}

// Weights returns a copy of every target weight in id order.
func (s *Store) Weights() []float32 {
	w := make([]float32, len(s.targets))
	for i := range s.targets {
		w[i] = s.targets[i].Weight
	}
	return w
}

// SetWeights restores a vector previously returned by Weights. It fails with
// ErrStructuralMismatch when the target count has changed since.
func (s *Store) SetWeights(w []float32) error {
	if len(w) != len(s.targets) {
		return fmt.Errorf("%w: %d weights for %d targets", ErrStructuralMismatch, len(w), len(s.targets))
	}
	for i := range s.targets {
		s.targets[i].Weight = clamp01(w[i])
	}
	return nil
}

// ZeroAllWeights sets every weight to 0, keeping the targets themselves.
func (s *Store) ZeroAllWeights() {
	for i := range s.targets {
		s.targets[i].Weight = 0
	}
}

// Name returns the name of target id.
func (s *Store) Name(id int) string {
	if s.check(id) != nil {
		return ""
	}
	return s.targets[id].Name
}

// SetName renames target id.
func (s *Store) SetName(id int, name string) error {
	if err := s.check(id); err != nil {
		return err
	}
	s.targets[id].Name = name
	return nil
}

// RemoveTarget deletes target id. Callers wanting visual continuity zero its
// weight and commit first.
func (s *Store) RemoveTarget(id int) error {
	s.selected = -1
	if err := s.check(id); err != nil {
		return err
	}
	s.targets = append(s.targets[:id], s.targets[id+1:]...)
	return nil
}

// RemoveAll drops every target. With restore set the mesh is first returned
// to its rest shape.
func (s *Store) RemoveAll(m Mesh, restore bool) error {
	if restore && m != nil {
		s.ZeroAllWeights()
		if _, err := Commit(s, m); err != nil {
			return err
		}
	}
	s.Clear()
	return nil
}

// Select marks target id as the one being edited; -1 clears the selection.
func (s *Store) Select(id int) {
	if id < -1 || id >= len(s.targets) {
		id = -1
	}
	s.selected = id
}

// Selected returns the selected target id or -1.
func (s *Store) Selected() int {
	return s.selected
}

// Transform maps the rest positions and every target position through point,
// and target normals through dir when it is non-nil. Weights, names and
// indices are kept.
func (s *Store) Transform(point, dir func(math.Vec3) math.Vec3) {
	base := make([]math.Vec3, len(s.base))
	for i, p := range s.base {
		base[i] = point(p)
	}
	targets := make([]Target, len(s.targets))
	for ti := range s.targets {
		t := s.targets[ti].Clone()
		for i, p := range t.Positions {
			t.Positions[i] = point(p)
		}
		if dir != nil {
			for i, n := range t.Normals {
				t.Normals[i] = dir(n)
			}
		}
		targets[ti] = t
	}
	s.replace(base, targets)
}

// replace swaps in new state computed elsewhere.
func (s *Store) replace(base []math.Vec3, targets []Target) {
	s.base = base
	s.targets = targets
	if s.selected >= len(targets) {
		s.selected = -1
	}
}
