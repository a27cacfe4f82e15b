// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package abi

import "sync"

// HandleMap is a typed, mutex-guarded object map keyed by a Vulkan handle,
// per SPEC_FULL §9's "raw pointer object-maps keyed by Vulkan handles"
// design note: insert/remove are scoped to create/destroy hooks, every
// other access goes through Get under a read lock. This avoids the
// source's device<->swapchain back-pointer cycles — a swapchain stores the
// owning device's Handle, not a pointer, and the loader guarantees the
// device outlives every swapchain created from it.
type HandleMap[V any] struct {
	mu sync.RWMutex
	m  map[Handle]*V
}

// NewHandleMap returns an empty map.
func NewHandleMap[V any]() *HandleMap[V] {
	return &HandleMap[V]{m: make(map[Handle]*V)}
}

// Insert registers value under handle, write-locked.
func (h *HandleMap[V]) Insert(handle Handle, value *V) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.m[handle] = value
}

// Get looks up handle, read-locked.
func (h *HandleMap[V]) Get(handle Handle) (*V, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.m[handle]
	return v, ok
}

// Remove deletes handle, write-locked. Removing an absent handle is a
// no-op.
func (h *HandleMap[V]) Remove(handle Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.m, handle)
}

// Len reports the number of live entries, for tests.
func (h *HandleMap[V]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.m)
}
