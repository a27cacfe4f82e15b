// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package framestats implements the fixed-size frametime ring and the
// background percentile engine the HUD and benchmark logger read from.
package framestats

import "time"

// ringSize is the convention-fixed capacity of the frametime ring; it is
// never resized.
const ringSize = 200

// Ring is a single-writer, single-reader fixed-size history of frame times.
// The present thread is the only writer; the HUD renderer is the only
// reader, so no locking is required for the happy path of "latest N
// frametimes" reads that never race the writer's current index.
type Ring struct {
	entries        [ringSize]time.Duration
	nFrames        uint64
	lastPresentAt  time.Time
}

// NewRing returns an empty ring.
func NewRing() *Ring {
	return &Ring{}
}

// RecordPresent writes frametime = now - lastPresentAt at index n%200 and
// advances n_frames. The first call has no prior present time and records a
// zero frametime.
func (r *Ring) RecordPresent(now time.Time) time.Duration {
	var frametime time.Duration
	if !r.lastPresentAt.IsZero() {
		frametime = now.Sub(r.lastPresentAt)
	}
	r.entries[r.nFrames%ringSize] = frametime
	r.nFrames++
	r.lastPresentAt = now
	return frametime
}

// NFrames returns the total number of presents recorded.
func (r *Ring) NFrames() uint64 { return r.nFrames }

// Latest returns the most recently recorded frametime, or 0 if nothing has
// been recorded yet.
func (r *Ring) Latest() time.Duration {
	if r.nFrames == 0 {
		return 0
	}
	return r.entries[(r.nFrames-1)%ringSize]
}

// Snapshot copies every populated slot into a new slice, oldest first. It
// is used by the HUD's frametime graph and is safe to call concurrently
// with RecordPresent since it only ever reads slots the writer has already
// finished writing.
func (r *Ring) Snapshot() []time.Duration {
	n := ringSize
	if r.nFrames < ringSize {
		n = int(r.nFrames)
	}
	out := make([]time.Duration, n)
	start := r.nFrames - uint64(n)
	for i := 0; i < n; i++ {
		out[i] = r.entries[(start+uint64(i))%ringSize]
	}
	return out
}
