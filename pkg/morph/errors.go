package morph

import "errors"

// Failure kinds. All of them are recoverable: the store is left unchanged
// whenever one is returned.
var (
	// ErrStructuralMismatch means the live mesh no longer has as many
	// vertices as the stored base; the stored data is stale.
	ErrStructuralMismatch = errors.New("morph: base vertex count does not match mesh")

	// ErrDegenerateGeometry means a geometric estimate had nothing usable
	// to work with (empty set, zero-length axis, collinear points).
	ErrDegenerateGeometry = errors.New("morph: degenerate geometry")

	// ErrInvalidArgument means index and position lists were empty,
	// of different lengths, or referenced vertices outside the base.
	ErrInvalidArgument = errors.New("morph: invalid argument")

	// ErrTargetNotFound means a target id was out of range.
	ErrTargetNotFound = errors.New("morph: target not found")
)
