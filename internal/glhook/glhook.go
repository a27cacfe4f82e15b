// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package glhook implements the GL/EGL/GLX interposer dispatch core from
// spec.md §4.2: a symbol table the cgo dlsym shim consults before falling
// through to the real loader, per-context overlay state keyed by the
// underlying GL context handle, and the scoped GL-state save/restore guard
// every overlay draw must use. The actual GL calls (glGetIntegerv and
// friends) are abstracted behind the StateBackend interface so this package
// stays pure Go and testable without a real GL context.
package glhook

import "sync"

// InterposedSymbol names one of the swap-buffer entry points this layer
// short-circuits; every other dlsym lookup falls through to the real
// loader untouched (spec.md §6 GL interposer ABI).
type InterposedSymbol string

const (
	SymEGLSwapBuffers                InterposedSymbol = "eglSwapBuffers"
	SymEGLSwapBuffersWithDamageKHR   InterposedSymbol = "eglSwapBuffersWithDamageKHR"
	SymEGLSwapBuffersWithDamageEXT   InterposedSymbol = "eglSwapBuffersWithDamageEXT"
	SymGLXSwapBuffers                InterposedSymbol = "glXSwapBuffers"
	SymGLXSwapBuffersMscOML          InterposedSymbol = "glXSwapBuffersMscOML"
)

// interposed is the fixed set of symbols this layer ever claims; anything
// else passed to Lookup must fall through to the real loader.
var interposed = map[InterposedSymbol]struct{}{
	SymEGLSwapBuffers:              {},
	SymEGLSwapBuffersWithDamageKHR: {},
	SymEGLSwapBuffersWithDamageEXT: {},
	SymGLXSwapBuffers:              {},
	SymGLXSwapBuffersMscOML:        {},
}

// IsInterposed reports whether name is one of the symbols this layer
// short-circuits rather than forwarding to RTLD_NEXT.
func IsInterposed(name string) bool {
	_, ok := interposed[InterposedSymbol(name)]
	return ok
}

// SizeQueryMethod selects how the interposer learns the current drawable
// size before composing the HUD, per spec.md §4.2's scissor/viewport
// policy. The windowing system's own query is the default.
type SizeQueryMethod string

const (
	SizeQueryViewport    SizeQueryMethod = "viewport"
	SizeQueryScissorBox  SizeQueryMethod = "scissor_box"
	SizeQueryWindowSystem SizeQueryMethod = "window_system"
)

// ContextHandle is the opaque GL/EGL context pointer the real loader hands
// back from eglGetCurrentContext/glXGetCurrentContext, used only as a map
// key.
type ContextHandle uintptr

// ContextState is captured once per GL/EGL context on first use: the
// overlay's own texture/program/VAO/VBO/FBO objects and uniform locations.
// Backend-specific object IDs are carried as opaque uint32s (GL names),
// since this package never calls GL itself.
type ContextState struct {
	Texture        uint32
	Program        uint32
	VAO, VBO       uint32
	CacheFBO       uint32
	UniformLocs    map[string]int32
	Inited         bool
	AtlasUploaded  bool
}

// Registry owns one ContextState per GL context, guarded by its own mutex
// since swap calls from different contexts (rare, but possible with
// multi-window applications) must not block each other's lazy init.
type Registry struct {
	mu       sync.Mutex
	contexts map[ContextHandle]*ContextState
}

// NewRegistry returns an empty context registry.
func NewRegistry() *Registry {
	return &Registry{contexts: make(map[ContextHandle]*ContextState)}
}

// StateFor returns the ContextState for handle, lazily constructing one on
// first use. The returned pointer is stable for the context's lifetime.
func (r *Registry) StateFor(handle ContextHandle) *ContextState {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.contexts[handle]
	if !ok {
		st = &ContextState{UniformLocs: make(map[string]int32)}
		r.contexts[handle] = st
	}
	return st
}

// Forget drops the state for handle, called when the application destroys
// a GL context so the registry doesn't leak entries for dead contexts.
func (r *Registry) Forget(handle ContextHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.contexts, handle)
}

// Count reports how many contexts currently have tracked state; exported
// for tests asserting Forget actually released an entry.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contexts)
}
