// Package rebase recovers a rigid motion applied to a mesh behind the morph
// store's back, so the rest shape and every target can follow it before the
// next blend.
package rebase

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Faultbox/morphutil/pkg/math"
	"github.com/Faultbox/morphutil/pkg/morph"
)

// Reasons an estimate cannot be made. Each wraps morph.ErrDegenerateGeometry.
var (
	ErrTooFewPoints = fmt.Errorf("%w: fewer than 3 usable vertices", morph.ErrDegenerateGeometry)
	ErrZeroAxis     = fmt.Errorf("%w: reference axis has zero length", morph.ErrDegenerateGeometry)
	ErrNoTwistPoint = fmt.Errorf("%w: every vertex is parallel to the reference axis", morph.ErrDegenerateGeometry)
)

// Options tunes the twist search and the identity test.
type Options struct {
	MaxIterations int     // refinement rounds
	Divisions     int     // samples per round
	ShrinkFactor  float32 // next half-width as a fraction of the current width
	ExitAngleDeg  float32 // stop once the half-width drops below this
	ParallelCos   float32 // cosine above which a vertex is too close to the axis
	Tolerance     float32 // zero and identity tolerance
}

// DefaultOptions returns the tuning used by the host plugin.
func DefaultOptions() Options {
	return Options{
		MaxIterations: 20,
		Divisions:     8,
		ShrinkFactor:  0.2,
		ExitAngleDeg:  0.1,
		ParallelCos:   0.95,
		Tolerance:     1e-3,
	}
}

// Transform maps a rest position to its current position:
// translate by -SrcCenter, rotate by R1, then R2, translate by +DstCenter.
type Transform struct {
	SrcCenter math.Vec3
	DstCenter math.Vec3
	R1        math.Quat
	R2        math.Quat
}

// Identity returns a transform that changes nothing.
func Identity() Transform {
	return Transform{R1: math.QuatIdentity(), R2: math.QuatIdentity()}
}

// Apply transforms a point.
func (t Transform) Apply(v math.Vec3) math.Vec3 {
	return t.R2.Rotate(t.R1.Rotate(v.Sub(t.SrcCenter))).Add(t.DstCenter)
}

// ApplyDirection rotates a direction, ignoring the translation.
func (t Transform) ApplyDirection(d math.Vec3) math.Vec3 {
	return t.R2.Rotate(t.R1.Rotate(d))
}

// IsIdentity reports whether t moves nothing by more than tol.
func (t Transform) IsIdentity(tol float32) bool {
	return t.SrcCenter.Sub(t.DstCenter).IsZero(tol) && t.R1.IsIdentity(tol) && t.R2.IsIdentity(tol)
}

// Mat4 returns t as a single matrix.
func (t Transform) Mat4() math.Mat4 {
	return math.Translate(t.DstCenter).
		Mul(t.R2.ToMat4()).
		Mul(t.R1.ToMat4()).
		Mul(math.Translate(t.SrcCenter.Scale(-1)))
}

// Candidates returns the vertices usable for estimation: those not moved by
// any target whose weight is above tol.
func Candidates(n int, targets []morph.Target, tol float32) []int {
	use := make([]bool, n)
	for i := range use {
		use[i] = true
	}
	for ti := range targets {
		if math32.Abs(targets[ti].Weight) <= tol {
			continue
		}
		for _, idx := range targets[ti].Indices {
			if idx >= 0 && idx < n {
				use[idx] = false
			}
		}
	}

	var out []int
	for i, ok := range use {
		if ok {
			out = append(out, i)
		}
	}
	return out
}

// Estimate finds the rigid transform carrying base onto live, using only
// vertices that no weighted target moves.
func Estimate(base, live []math.Vec3, targets []morph.Target, opts Options) (Transform, error) {
	if len(base) != len(live) {
		return Transform{}, fmt.Errorf("%w: base %d, live %d", morph.ErrStructuralMismatch, len(base), len(live))
	}

	idx := Candidates(len(base), targets, opts.Tolerance)
	if len(idx) < 3 {
		return Transform{}, ErrTooFewPoints
	}
	src := make([]math.Vec3, len(idx))
	dst := make([]math.Vec3, len(idx))
	for i, v := range idx {
		src[i] = base[v]
		dst[i] = live[v]
	}

	box := math.BoxOf(src)
	i0 := nearest(src, box.Min, -1)
	i1 := nearest(src, box.Max, i0)

	t := Transform{SrcCenter: src[i0], DstCenter: dst[i0]}

	srcAxis := src[i1].Sub(src[i0])
	dstAxis := dst[i1].Sub(dst[i0])
	if srcAxis.Length() < opts.Tolerance || dstAxis.Length() < opts.Tolerance {
		return Transform{}, ErrZeroAxis
	}
	srcAxis = srcAxis.Normalize()
	dstAxis = dstAxis.Normalize()
	t.R1 = math.QuatFromTo(srcAxis, dstAxis)

	i2 := -1
	for i, p := range src {
		if i == i0 || i == i1 {
			continue
		}
		d := p.Sub(src[i0])
		l := d.Length()
		if l < opts.Tolerance {
			continue
		}
		if d.Scale(1/l).Dot(srcAxis) > opts.ParallelCos {
			continue
		}
		i2 = i
		break
	}
	if i2 < 0 {
		return Transform{}, ErrNoTwistPoint
	}

	from := t.R1.Rotate(src[i2].Sub(src[i0]))
	to := dst[i2].Sub(dst[i0])
	t.R2 = math.QuatFromAxisAngle(dstAxis, twist(from, to, dstAxis, opts))
	return t, nil
}

// nearest returns the index of the point closest to target, skipping skip.
func nearest(points []math.Vec3, target math.Vec3, skip int) int {
	best := -1
	var bestDist float32
	for i, p := range points {
		if i == skip {
			continue
		}
		d := p.Distance(target)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// twist searches for the angle about axis that best carries from onto to.
// Each round samples the bracket evenly, keeps the best sample, then narrows
// the bracket around it.
func twist(from, to, axis math.Vec3, opts Options) float32 {
	divisions := opts.Divisions
	if divisions < 1 {
		divisions = 1
	}
	exit := opts.ExitAngleDeg * math32.Pi / 180

	lo, hi := float32(0), 2*math32.Pi
	var best float32
	for round := 0; round < opts.MaxIterations; round++ {
		step := (hi - lo) / float32(divisions)
		bestLen := float32(-1)
		for i := 0; i < divisions; i++ {
			a := lo + step*float32(i)
			l := math.QuatFromAxisAngle(axis, a).Rotate(from).Distance(to)
			if bestLen < 0 || l < bestLen {
				best, bestLen = a, l
			}
		}

		half := (hi - lo) * opts.ShrinkFactor
		if half < exit {
			break
		}
		lo, hi = best-half, best+half
	}
	return best
}

// Rebase estimates how m moved away from the store's rest shape and carries
// the rest shape and every target along. It reports whether anything
// changed. On any error the store is left untouched.
func Rebase(s *morph.Store, m morph.Mesh, opts Options) (bool, error) {
	if n := m.VertexCount(); n != s.BaseLen() {
		return false, fmt.Errorf("%w: base %d, mesh %d", morph.ErrStructuralMismatch, s.BaseLen(), n)
	}
	live := make([]math.Vec3, m.VertexCount())
	for i := range live {
		live[i] = m.Point(i)
	}

	t, err := Estimate(s.Base(), live, s.Targets(), opts)
	if err != nil {
		return false, err
	}
	if t.IsIdentity(opts.Tolerance) {
		return false, nil
	}
	s.Transform(t.Apply, t.ApplyDirection)
	return true, nil
}

// IsDegenerate reports whether err means the geometry could not support an
// estimate, as opposed to a store/mesh disagreement.
func IsDegenerate(err error) bool {
	return errors.Is(err, morph.ErrDegenerateGeometry)
}
