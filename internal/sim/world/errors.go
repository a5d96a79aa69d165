package world

import "errors"

var (
	// ErrOutOfBounds reports a local coordinate outside [0, ChunkSize).
	// This is a caller bug, not a runtime condition to route around.
	ErrOutOfBounds = errors.New("world: local coordinate out of chunk bounds")

	// ErrCellMissing reports a generated chunk with a hole in it. Generation
	// populates every in-chunk coordinate, so this should never happen in
	// correct operation; it is surfaced instead of silently defaulting to Air.
	ErrCellMissing = errors.New("world: cell missing from generated chunk")
)
