// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build !(linux && cgo)

// Package nvml provides a stub implementation for builds without cgo or on
// non-Linux targets: Open always fails, matching the "no NVIDIA GPU
// detected" path any real build also takes on a machine with no driver.
package nvml

import "fmt"

// Throttle mirrors the cgo build's reason classification.
type Throttle struct {
	Power, Temp, Other bool
}

// Instant is one raw NVML poll; always zero-valued in this build.
type Instant struct {
	LoadPercent  float64
	TempC        float64
	VRAMUsedGiB  float64
	VRAMTotalGiB float64
	CoreClockMHz float64
	MemClockMHz  float64
	PowerW       float64
	PowerLimitW  float64
	FanPercent   float64
	Throttle     Throttle
}

// Handle is never constructed in this build.
type Handle struct{}

// Open always fails: cgo is required to dlopen libnvidia-ml.
func Open(string) (*Handle, error) {
	return nil, fmt.Errorf("nvml: built without cgo support")
}

// Sample always returns a zero Instant.
func (h *Handle) Sample() Instant { return Instant{} }

// Close is a no-op.
func (h *Handle) Close() {}
