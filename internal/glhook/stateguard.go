// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package glhook

// SavedGLState is the subset of application-visible GL state spec.md §4.2
// requires saving before any overlay draw and restoring unconditionally
// afterward: program, VAO, bound buffers, active texture, FBO, viewport,
// blend state, unpack alignment, and sampler binding.
type SavedGLState struct {
	Program        uint32
	VAO            uint32
	ArrayBuffer    uint32
	ElementBuffer   uint32
	ActiveTexture  uint32
	BoundTexture2D uint32
	FBO            uint32
	Viewport       [4]int32
	BlendEnabled   bool
	BlendSrc       uint32
	BlendDst       uint32
	UnpackAlign    int32
	Sampler        uint32
}

// StateBackend is the real-GL-call boundary: Save/Restore are implemented
// by the cgo shim, this package only orders the scoped acquire/release so
// the ordering invariant (restore on every exit path, including panics) is
// exercised without linking GL.
type StateBackend interface {
	Save() SavedGLState
	Restore(SavedGLState)
}

// WithSavedState runs draw with the backend's GL state saved beforehand and
// unconditionally restored afterward, even if draw panics — spec.md §4.6's
// "must restore the saved GL state on all exit paths".
func WithSavedState(backend StateBackend, draw func()) {
	saved := backend.Save()
	defer backend.Restore(saved)
	draw()
}
