// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build !(linux && cgo)

// Package libdrm provides a stub implementation for builds without cgo:
// Open always fails, which is the correct behavior on a build that cannot
// touch the render node ioctl path at all.
package libdrm

import "fmt"

// Handle is never constructed in this build.
type Handle struct{}

// Open always fails: cgo plus libdrm/libdrm_amdgpu are required.
func Open(string) (*Handle, error) {
	return nil, fmt.Errorf("libdrm: built without cgo support")
}

// Busy always reports unavailable.
func (h *Handle) Busy() (bool, error) {
	return false, fmt.Errorf("libdrm: built without cgo support")
}

// Close is a no-op.
func (h *Handle) Close() {}
