package morphctl

import (
	"github.com/Faultbox/morphutil/pkg/formats"
	"github.com/Faultbox/morphutil/pkg/math"
	"github.com/Faultbox/morphutil/pkg/morph"
)

func toVec3(v [3]float32) math.Vec3 {
	return math.Vec3{X: v[0], Y: v[1], Z: v[2]}
}

func fromVec3(v math.Vec3) [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}

// ToStore replaces the contents of s with a decoded record.
func ToStore(md *formats.MorphData, s *morph.Store) error {
	base := make([]math.Vec3, len(md.Base))
	for i, v := range md.Base {
		base[i] = toVec3(v)
	}
	s.Clear()
	if err := s.SetBase(base); err != nil {
		return err
	}

	for _, t := range md.Targets {
		indices := make([]int, len(t.Indices))
		for i, idx := range t.Indices {
			indices[i] = int(idx)
		}
		positions := make([]math.Vec3, len(t.Vertices))
		for i, v := range t.Vertices {
			positions[i] = toVec3(v)
		}
		id, err := s.AppendTarget(t.Name, indices, positions)
		if err != nil {
			s.Clear()
			return err
		}
		if err := s.SetWeight(id, t.Weight); err != nil {
			s.Clear()
			return err
		}
	}
	return nil
}

// FromStore builds a record from the rest shape and targets of s. Normals
// are not persisted.
func FromStore(s *morph.Store) *formats.MorphData {
	md := &formats.MorphData{
		Version: formats.MorphVersion,
		Base:    make([][3]float32, s.BaseLen()),
	}
	for i, p := range s.Base() {
		md.Base[i] = fromVec3(p)
	}
	for _, t := range s.Targets() {
		mt := formats.MorphTarget{
			Name:     t.Name,
			Indices:  make([]int32, len(t.Indices)),
			Vertices: make([][3]float32, len(t.Positions)),
			Weight:   t.Weight,
		}
		for i, idx := range t.Indices {
			mt.Indices[i] = int32(idx)
		}
		for i, p := range t.Positions {
			mt.Vertices[i] = fromVec3(p)
		}
		md.Targets = append(md.Targets, mt)
	}
	return md
}
