package morph

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Faultbox/morphutil/pkg/math"
)

func TestAppendTarget(t *testing.T) {
	s := NewStore()
	s.SetupBase(unitSquare())

	id, err := s.AppendTarget("lift", []int{0}, []math.Vec3{{X: 0, Y: 0, Z: 1}})
	if err != nil {
		t.Fatalf("AppendTarget() error = %v", err)
	}
	if id != 0 || s.Len() != 1 {
		t.Fatalf("id = %d, Len() = %d, want 0 and 1", id, s.Len())
	}
	if w := s.Weight(id); w != 1 {
		t.Errorf("new target weight = %v, want 1", w)
	}
	if s.Name(id) != "lift" {
		t.Errorf("Name() = %q, want %q", s.Name(id), "lift")
	}
}

func TestAppendTargetRejectsBadInput(t *testing.T) {
	tests := []struct {
		name      string
		indices   []int
		positions []math.Vec3
	}{
		{"mismatched", []int{0, 1, 2}, []math.Vec3{{}, {}}},
		{"empty", nil, nil},
		{"out of range", []int{4}, []math.Vec3{{}}},
		{"negative", []int{-1}, []math.Vec3{{}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStore()
			s.SetupBase(unitSquare())
			id, err := s.AppendTarget("bad", tc.indices, tc.positions)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("error = %v, want ErrInvalidArgument", err)
			}
			if id != -1 || s.Len() != 0 {
				t.Errorf("store changed: id = %d, Len() = %d", id, s.Len())
			}
		})
	}
}

func TestAppendTargetCopiesInput(t *testing.T) {
	s := NewStore()
	s.SetupBase(unitSquare())
	indices := []int{1}
	positions := []math.Vec3{{X: 2, Y: 0, Z: 0}}
	id, _ := s.AppendTarget("x", indices, positions)

	indices[0] = 3
	positions[0] = math.Vec3{}

	tg, _ := s.Target(id)
	if tg.Indices[0] != 1 || tg.Positions[0] != (math.Vec3{X: 2}) {
		t.Errorf("target aliases caller slices: %+v", tg)
	}
}

func TestSetWeightClamps(t *testing.T) {
	s := NewStore()
	s.SetupBase(unitSquare())
	id, _ := s.AppendTarget("t", []int{0}, []math.Vec3{{X: 0, Y: 0, Z: 1}})

	tests := []struct {
		in, want float32
	}{
		{0.25, 0.25},
		{-3, 0},
		{7, 1},
		{1, 1},
		{0, 0},
	}
	for _, tc := range tests {
		if err := s.SetWeight(id, tc.in); err != nil {
			t.Fatalf("SetWeight(%v) error = %v", tc.in, err)
		}
		if got := s.Weight(id); got != tc.want {
			t.Errorf("SetWeight(%v): Weight() = %v, want %v", tc.in, got, tc.want)
		}
	}

	if err := s.SetWeight(5, 1); !errors.Is(err, ErrTargetNotFound) {
		t.Errorf("SetWeight(5) error = %v, want ErrTargetNotFound", err)
	}
}

func TestSetWeightsLengthMismatch(t *testing.T) {
	s := NewStore()
	s.SetupBase(unitSquare())
	s.AppendTarget("a", []int{0}, []math.Vec3{{}})

	if err := s.SetWeights([]float32{0.5, 0.5}); !errors.Is(err, ErrStructuralMismatch) {
		t.Errorf("SetWeights() error = %v, want ErrStructuralMismatch", err)
	}
	if w := s.Weight(0); w != 1 {
		t.Errorf("weight changed to %v on failed SetWeights", w)
	}
}

func TestUpdateTarget(t *testing.T) {
	base := unitSquare()
	s := NewStore()
	s.SetupBase(base)
	m := newTestMesh(base, nil)

	id, _ := s.AppendTarget("t", []int{0}, []math.Vec3{{X: 0, Y: 0, Z: 1}})
	s.SetWeight(id, 0.5)
	if _, err := Commit(s, m); err != nil {
		t.Fatal(err)
	}

	if err := s.UpdateTarget(id, []int{2}, []math.Vec3{{X: 1, Y: 1, Z: 2}}, m); err != nil {
		t.Fatalf("UpdateTarget() error = %v", err)
	}
	// The old shape was blended out before the lists changed.
	if m.points[0] != base[0] {
		t.Errorf("vertex 0 = %v, want rest %v", m.points[0], base[0])
	}
	if s.Weight(id) != 1 {
		t.Errorf("weight after update = %v, want 1", s.Weight(id))
	}

	Commit(s, m)
	if want := (math.Vec3{X: 1, Y: 1, Z: 2}); m.points[2] != want {
		t.Errorf("vertex 2 = %v, want %v", m.points[2], want)
	}

	if err := s.UpdateTarget(id, []int{0, 1}, []math.Vec3{{}}, m); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("mismatched update error = %v, want ErrInvalidArgument", err)
	}
}

func TestRemoveTarget(t *testing.T) {
	s := NewStore()
	s.SetupBase(unitSquare())
	s.AppendTarget("a", []int{0}, []math.Vec3{{}})
	s.AppendTarget("b", []int{1}, []math.Vec3{{}})
	s.AppendTarget("c", []int{2}, []math.Vec3{{}})
	s.Select(2)

	if err := s.RemoveTarget(1); err != nil {
		t.Fatalf("RemoveTarget() error = %v", err)
	}
	var names []string
	for i := 0; i < s.Len(); i++ {
		names = append(names, s.Name(i))
	}
	if diff := cmp.Diff([]string{"a", "c"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if s.Selected() != -1 {
		t.Errorf("Selected() = %d after remove, want -1", s.Selected())
	}
	if err := s.RemoveTarget(2); !errors.Is(err, ErrTargetNotFound) {
		t.Errorf("RemoveTarget(2) error = %v, want ErrTargetNotFound", err)
	}
}

func TestRemoveAllRestoresMesh(t *testing.T) {
	base := unitSquare()
	s := NewStore()
	s.SetupBase(base)
	m := newTestMesh(base, nil)
	s.AppendTarget("a", []int{0, 3}, []math.Vec3{{X: 0, Y: 0, Z: 1}, {X: 0, Y: 1, Z: 1}})
	Commit(s, m)

	if err := s.RemoveAll(m, true); err != nil {
		t.Fatalf("RemoveAll() error = %v", err)
	}
	if diff := cmp.Diff(base, m.points); diff != "" {
		t.Errorf("mesh not restored (-want +got):\n%s", diff)
	}
	if s.Len() != 0 || s.BaseLen() != 0 {
		t.Errorf("store not cleared: Len=%d BaseLen=%d", s.Len(), s.BaseLen())
	}
}

func TestSetupBaseClearsTargets(t *testing.T) {
	s := NewStore()
	s.SetupBase(unitSquare())
	s.AppendTarget("a", []int{0}, []math.Vec3{{}})

	s.SetupBase(unitSquare()[:2])
	if s.Len() != 0 || s.BaseLen() != 2 {
		t.Errorf("Len=%d BaseLen=%d, want 0 and 2", s.Len(), s.BaseLen())
	}
}

func TestSetBase(t *testing.T) {
	s := NewStore()
	s.SetupBase(unitSquare())
	if _, err := s.AppendTarget("a", []int{3}, []math.Vec3{{X: 0, Y: 1, Z: 1}}); err != nil {
		t.Fatalf("AppendTarget() error = %v", err)
	}

	if err := s.SetBase(unitSquare()[:3]); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("shrinking below a target index: got %v, want ErrInvalidArgument", err)
	}
	if s.BaseLen() != 4 {
		t.Errorf("BaseLen() = %d after rejected SetBase, want 4", s.BaseLen())
	}

	moved := unitSquare()
	for i := range moved {
		moved[i] = moved[i].Add(math.Vec3{Z: 2})
	}
	if err := s.SetBase(moved); err != nil {
		t.Fatalf("SetBase() error = %v", err)
	}
	if diff := cmp.Diff(moved, s.Base()); diff != "" {
		t.Errorf("base mismatch (-want +got):\n%s", diff)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want targets kept", s.Len())
	}

	if err := s.SetWeight(0, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBase(unitSquare()[:3]); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("second shrink: got %v, want ErrInvalidArgument", err)
	}
	got, touched := Blend(s.Base(), s.Targets())
	if len(got) != 4 || !touched[3] {
		t.Errorf("Blend() after rejected shrink = %v, %v", got, touched)
	}
}
