package morphctl

import (
	"go.uber.org/zap"

	"github.com/Faultbox/morphutil/internal/logger"
	"github.com/Faultbox/morphutil/internal/mesh"
	"github.com/Faultbox/morphutil/pkg/morph"
)

// Session groups the controllers of a scene so their weights can be saved,
// zeroed and restored together around batch work on rest shapes.
type Session struct {
	scene *mesh.Scene
	ctrls map[mesh.ID]*Controller
	stack morph.WeightStack[mesh.ID]
	log   *zap.Logger
}

// NewSession returns a session over scene.
func NewSession(scene *mesh.Scene) *Session {
	return &Session{
		scene: scene,
		ctrls: make(map[mesh.ID]*Controller),
		log:   logger.Named("session"),
	}
}

// Bind registers c for its mesh, replacing any earlier controller.
func (s *Session) Bind(c *Controller) {
	if c.Mesh() == nil {
		return
	}
	s.ctrls[c.Key()] = c
}

// Controller returns the controller bound to mesh id.
func (s *Session) Controller(id mesh.ID) (*Controller, bool) {
	c, ok := s.ctrls[id]
	return c, ok
}

// sources returns the bound controllers of meshes still in the scene that
// have targets, in scene order.
func (s *Session) sources() []morph.WeightSource[mesh.ID] {
	var out []morph.WeightSource[mesh.ID]
	for _, m := range s.scene.Meshes() {
		c, ok := s.ctrls[m.ID]
		if !ok || c.Mesh() != m || c.Store().Len() == 0 {
			continue
		}
		out = append(out, c)
	}
	return out
}

// PushAllWeights saves the weights of every mesh. With zero set every mesh
// is then shown in its rest shape.
func (s *Session) PushAllWeights(zero bool) error {
	sources := s.sources()
	if err := s.stack.Push(sources, zero); err != nil {
		return err
	}
	s.log.Debug("weights pushed", zap.Int("meshes", len(sources)), zap.Int("depth", s.stack.Depth()))
	if !zero {
		return nil
	}
	return s.recommit(sources)
}

// PopAllWeights restores the most recently pushed weights and recommits the
// meshes. It reports false when nothing was pushed. A mesh whose target count
// changed in between keeps its weights and is reported in the error.
func (s *Session) PopAllWeights() (bool, error) {
	restored, ok, err := s.stack.Pop()
	if !ok {
		return false, nil
	}
	if err != nil {
		s.log.Warn("weights not restored", zap.Error(err))
	}
	if cerr := s.recommit(restored); err == nil {
		err = cerr
	}
	return true, err
}

// Depth returns how many pushes are outstanding.
func (s *Session) Depth() int {
	return s.stack.Depth()
}

// CurrentWeights returns the weights the user last set on mesh id: the
// weights saved by the outermost push while one is outstanding, the live
// weights otherwise.
func (s *Session) CurrentWeights(id mesh.ID) ([]float32, bool) {
	if w, ok := s.stack.Current(id); ok {
		return w, true
	}
	c, ok := s.ctrls[id]
	if !ok {
		return nil, false
	}
	return c.Weights(), true
}

func (s *Session) recommit(sources []morph.WeightSource[mesh.ID]) error {
	var first error
	for _, src := range sources {
		c := src.(*Controller)
		if _, err := c.commit(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
