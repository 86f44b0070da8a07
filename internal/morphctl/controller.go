// Package morphctl binds a morph store to one mesh and keeps the mesh, the
// store and the persisted record in step. It is the layer a host UI or the
// command line tool talks to.
package morphctl

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/morphutil/internal/attrstore"
	"github.com/Faultbox/morphutil/internal/config"
	"github.com/Faultbox/morphutil/internal/logger"
	"github.com/Faultbox/morphutil/internal/mesh"
	"github.com/Faultbox/morphutil/pkg/formats"
	"github.com/Faultbox/morphutil/pkg/math"
	"github.com/Faultbox/morphutil/pkg/morph"
	"github.com/Faultbox/morphutil/pkg/rebase"
)

// ErrNoMesh is returned by operations that need a bound mesh.
var ErrNoMesh = errors.New("no mesh bound")

// Controller edits the morph targets of a single mesh.
type Controller struct {
	cfg   *config.Config
	db    *attrstore.Store
	store *morph.Store
	mesh  *mesh.Mesh
	log   *zap.Logger
}

// New creates a controller. db may be nil, in which case Save, Load and
// HasTargets report that nothing is stored.
func New(cfg *config.Config, db *attrstore.Store) *Controller {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Controller{
		cfg:   cfg,
		db:    db,
		store: morph.NewStore(),
		log:   logger.Named("morphctl"),
	}
}

// Store returns the underlying target store.
func (c *Controller) Store() *morph.Store {
	return c.store
}

// Mesh returns the bound mesh, nil before Setup or Load.
func (c *Controller) Mesh() *mesh.Mesh {
	return c.mesh
}

// Key returns the bound mesh ID.
func (c *Controller) Key() mesh.ID {
	if c.mesh == nil {
		return mesh.ID{}
	}
	return c.mesh.ID
}

// Weights returns the current target weights.
func (c *Controller) Weights() []float32 {
	return c.store.Weights()
}

// SetWeights restores a weight vector without committing.
func (c *Controller) SetWeights(w []float32) error {
	return c.store.SetWeights(w)
}

// Setup binds m and captures its current vertices as the rest shape. Any
// targets held before are dropped.
func (c *Controller) Setup(m *mesh.Mesh) {
	c.mesh = m
	c.store.SetupFrom(m)
	c.log.Debug("setup",
		zap.Stringer("mesh", m.ID),
		zap.Int("base_vertices", c.store.BaseLen()))
}

func (c *Controller) requireMesh() error {
	if c.mesh == nil {
		return ErrNoMesh
	}
	if n := c.mesh.VertexCount(); n != c.store.BaseLen() {
		c.log.Warn("mesh changed outside morph editing",
			zap.Stringer("mesh", c.mesh.ID),
			zap.Int("base_vertices", c.store.BaseLen()),
			zap.Int("mesh_vertices", n))
		return fmt.Errorf("%w: base %d, mesh %d", morph.ErrStructuralMismatch, c.store.BaseLen(), n)
	}
	return nil
}

// livePositions reads the current mesh positions of indices.
func (c *Controller) livePositions(indices []int) ([]math.Vec3, error) {
	out := make([]math.Vec3, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= c.mesh.VertexCount() {
			return nil, fmt.Errorf("%w: vertex %d outside mesh of %d", morph.ErrInvalidArgument, idx, c.mesh.VertexCount())
		}
		out[i] = c.mesh.Point(idx)
	}
	return out, nil
}

// Append records the current mesh positions of indices as a new target and
// returns its id.
func (c *Controller) Append(name string, indices []int) (int, error) {
	if err := c.requireMesh(); err != nil {
		return -1, err
	}
	positions, err := c.livePositions(indices)
	if err != nil {
		return -1, err
	}
	id, err := c.store.AppendTarget(name, indices, positions)
	if err != nil {
		return -1, err
	}
	c.store.Select(id)
	c.log.Debug("target appended", zap.Int("id", id), zap.String("name", name), zap.Int("vertices", len(indices)))
	return id, nil
}

// Update redefines target id from the current mesh positions of indices.
func (c *Controller) Update(id int, indices []int) error {
	if err := c.requireMesh(); err != nil {
		return err
	}
	positions, err := c.livePositions(indices)
	if err != nil {
		return err
	}
	if err := c.store.UpdateTarget(id, indices, positions, c.mesh); err != nil {
		return err
	}
	_, err = c.commit()
	return err
}

// SetWeight sets the weight of target id and commits.
func (c *Controller) SetWeight(id int, w float32) error {
	if err := c.store.SetWeight(id, w); err != nil {
		return err
	}
	if c.mesh == nil {
		return nil
	}
	_, err := c.commit()
	return err
}

// Remove blends target id out of the mesh, then deletes it.
func (c *Controller) Remove(id int) error {
	if err := c.store.SetWeight(id, 0); err != nil {
		return err
	}
	if c.mesh != nil {
		if _, err := c.commit(); err != nil {
			return err
		}
	}
	return c.store.RemoveTarget(id)
}

// RemoveAll drops every target and the persisted record. With restore set
// the mesh first returns to its rest shape.
func (c *Controller) RemoveAll(restore bool) error {
	var m morph.Mesh
	if c.mesh != nil {
		m = c.mesh
	}
	if err := c.store.RemoveAll(m, restore); err != nil {
		return err
	}
	if c.mesh != nil {
		c.store.SetupFrom(c.mesh)
	}
	if c.db == nil || c.mesh == nil {
		return nil
	}
	if err := c.db.Delete(c.mesh.ID, attrstore.MorphStreamID); err != nil {
		return fmt.Errorf("deleting morph record: %w", err)
	}
	return nil
}

// ZeroAll sets every weight to 0 and commits, showing the rest shape.
func (c *Controller) ZeroAll() error {
	c.store.ZeroAllWeights()
	if c.mesh == nil {
		return nil
	}
	_, err := c.commit()
	return err
}

// UpdateMesh re-blends the targets into the mesh. With checkModify set a
// rigid move applied to the mesh since the last commit is first carried over
// to the rest shape and every target, see Rebase.
func (c *Controller) UpdateMesh(checkModify bool) (int, error) {
	if err := c.requireMesh(); err != nil {
		return 0, err
	}
	if checkModify {
		if _, err := c.Rebase(); err != nil {
			return 0, err
		}
	}
	return c.commit()
}

// Rebase carries a rigid move of the mesh over to the rest shape and every
// target without committing. It reports whether anything moved. Nothing
// happens when rebasing is disabled, without targets, or when the rest shape
// is too degenerate to estimate a move from.
func (c *Controller) Rebase() (bool, error) {
	if err := c.requireMesh(); err != nil {
		return false, err
	}
	if !c.cfg.Rebase.Enabled || c.store.Len() == 0 {
		return false, nil
	}
	changed, err := rebase.Rebase(c.store, c.mesh, c.cfg.RebaseOptions())
	switch {
	case rebase.IsDegenerate(err):
		c.log.Debug("rebase skipped", zap.Stringer("mesh", c.mesh.ID), zap.Error(err))
		return false, nil
	case err != nil:
		return false, err
	case changed:
		c.log.Debug("rebased", zap.Stringer("mesh", c.mesh.ID))
	}
	return changed, nil
}

func (c *Controller) commit() (int, error) {
	n, err := morph.Commit(c.store, c.mesh)
	if err != nil {
		c.log.Warn("commit failed", zap.Stringer("mesh", c.mesh.ID), zap.Error(err))
		return 0, err
	}
	return n, nil
}

// Cleanup merges duplicate vertices of the mesh, keeping every target
// consistent, and returns how many vertices were removed. When the mesh has
// drifted from the rest shape the mesh is cleaned on its own and
// ErrStructuralMismatch is returned.
func (c *Controller) Cleanup() (int, error) {
	if c.mesh == nil {
		return 0, ErrNoMesh
	}
	res, err := c.store.CleanupRedundant(c.mesh, c.cfg.Merge.Epsilon, c.cfg.BSPOptions())
	if err != nil {
		c.log.Warn("cleanup without morph bookkeeping", zap.Stringer("mesh", c.mesh.ID), zap.Error(err))
		return 0, err
	}
	removed := res.Removed()
	c.log.Debug("cleanup", zap.Stringer("mesh", c.mesh.ID), zap.Int("removed", removed))
	return removed, nil
}

// Save writes the morph record of the bound mesh. A mesh without targets has
// its record removed instead.
func (c *Controller) Save() error {
	if c.mesh == nil {
		return ErrNoMesh
	}
	if c.db == nil {
		return nil
	}
	if c.store.Len() == 0 {
		return c.db.Delete(c.mesh.ID, attrstore.MorphStreamID)
	}

	data, err := FromStore(c.store).EncodeWith(formats.Options{Names: c.cfg.Charset()})
	if err != nil {
		return fmt.Errorf("encoding morph record: %w", err)
	}
	if err := c.db.PutNamed(c.mesh.ID, attrstore.MorphStreamID, c.mesh.Name, data); err != nil {
		return fmt.Errorf("saving morph record: %w", err)
	}
	c.log.Debug("saved", zap.Stringer("mesh", c.mesh.ID), zap.Int("targets", c.store.Len()), zap.Int("bytes", len(data)))
	return nil
}

// Load binds m and reads its stored targets. It reports whether a record was
// found; without one the current vertices of m become the rest shape.
func (c *Controller) Load(m *mesh.Mesh) (bool, error) {
	if c.db == nil {
		c.Setup(m)
		return false, nil
	}
	data, err := c.db.Get(m.ID, attrstore.MorphStreamID)
	if errors.Is(err, attrstore.ErrNotFound) || (err == nil && !formats.HasMorphData(data)) {
		c.Setup(m)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("loading morph record: %w", err)
	}

	md, err := formats.ParseMorphDataWith(data, formats.Options{Names: c.cfg.Charset()})
	if err != nil {
		return false, fmt.Errorf("parsing morph record of %s: %w", m.ID, err)
	}
	if err := c.Bind(m, md); err != nil {
		return false, err
	}
	return true, nil
}

// Bind binds m to the rest shape and targets of a decoded record. The
// controller is unchanged when the record holds an invalid target.
func (c *Controller) Bind(m *mesh.Mesh, md *formats.MorphData) error {
	store := morph.NewStore()
	if err := ToStore(md, store); err != nil {
		return err
	}

	c.mesh = m
	c.store = store
	if len(md.Base) != m.VertexCount() {
		c.log.Warn("stored rest shape does not match mesh",
			zap.Stringer("mesh", m.ID),
			zap.Int("base_vertices", len(md.Base)),
			zap.Int("mesh_vertices", m.VertexCount()))
	}
	c.log.Debug("bound", zap.Stringer("mesh", m.ID), zap.Int("targets", store.Len()))
	return nil
}

// HasTargets reports whether a morph record is stored for m.
func (c *Controller) HasTargets(m *mesh.Mesh) (bool, error) {
	if c.db == nil {
		return false, nil
	}
	return c.db.Has(m.ID, attrstore.MorphStreamID)
}

var _ morph.WeightSource[mesh.ID] = (*Controller)(nil)
