// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package glhook

import (
	"testing"

	"github.com/mangohud/overlayd/internal/hud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsInterposed(t *testing.T) {
	assert.True(t, IsInterposed("glXSwapBuffers"))
	assert.True(t, IsInterposed("eglSwapBuffersWithDamageEXT"))
	assert.False(t, IsInterposed("glClear"))
}

func TestRegistryLazyInitAndForget(t *testing.T) {
	r := NewRegistry()
	require.Equal(t, 0, r.Count())

	st := r.StateFor(1)
	assert.False(t, st.Inited)
	assert.Equal(t, 1, r.Count())

	same := r.StateFor(1)
	assert.Same(t, st, same)

	r.Forget(1)
	assert.Equal(t, 0, r.Count())
}

type fakeBackend struct {
	saved, restored int
}

func (f *fakeBackend) Save() SavedGLState {
	f.saved++
	return SavedGLState{Program: 42}
}

func (f *fakeBackend) Restore(s SavedGLState) {
	f.restored++
	if s.Program != 42 {
		panic("state not threaded through")
	}
}

func TestWithSavedStateAlwaysRestores(t *testing.T) {
	backend := &fakeBackend{}
	assert.Panics(t, func() {
		WithSavedState(backend, func() { panic("draw failed") })
	})
	assert.Equal(t, 1, backend.saved)
	assert.Equal(t, 1, backend.restored)
}

func TestHandleSwapNoContextIsNoop(t *testing.T) {
	registry := NewRegistry()
	called := false
	i := NewInterceptor(registry, func() ContextHandle { return 0 }, nil, nil)
	ok := i.HandleSwap(func() bool { called = true; return true })
	assert.True(t, ok)
	assert.True(t, called)
	assert.Equal(t, 0, registry.Count())
}

func TestHandleSwapInitializesStateAndForwards(t *testing.T) {
	registry := NewRegistry()
	backend := &fakeBackend{}
	i := NewInterceptor(registry, func() ContextHandle { return 7 }, backend, hud.NoopCompositor{})

	ok := i.HandleSwap(func() bool { return true })
	assert.True(t, ok)
	assert.Equal(t, 1, registry.Count())
	assert.Equal(t, 1, backend.saved)
	assert.Equal(t, 1, backend.restored)

	st := registry.StateFor(7)
	assert.True(t, st.Inited)
}
