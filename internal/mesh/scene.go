package mesh

// Scene holds meshes by ID, in insertion order.
type Scene struct {
	order  []ID
	meshes map[ID]*Mesh
}

// NewScene returns an empty scene.
func NewScene() *Scene {
	return &Scene{meshes: make(map[ID]*Mesh)}
}

// Add inserts m, replacing any mesh with the same ID in place.
func (s *Scene) Add(m *Mesh) {
	if _, ok := s.meshes[m.ID]; !ok {
		s.order = append(s.order, m.ID)
	}
	s.meshes[m.ID] = m
}

// Get returns the mesh with the given ID.
func (s *Scene) Get(id ID) (*Mesh, bool) {
	m, ok := s.meshes[id]
	return m, ok
}

// Remove deletes a mesh. It reports whether the mesh was present.
func (s *Scene) Remove(id ID) bool {
	if _, ok := s.meshes[id]; !ok {
		return false
	}
	delete(s.meshes, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Meshes returns every mesh in insertion order.
func (s *Scene) Meshes() []*Mesh {
	out := make([]*Mesh, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.meshes[id])
	}
	return out
}

// Len returns the number of meshes.
func (s *Scene) Len() int {
	return len(s.order)
}
