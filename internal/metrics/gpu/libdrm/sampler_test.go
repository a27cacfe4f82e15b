// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package libdrm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSampler_StartsAllIdle(t *testing.T) {
	s := NewSampler(nil, "card0")
	busyCount := 0
	s.buf.Do(func(v any) {
		if b, ok := v.(bool); ok && b {
			busyCount++
		}
	})
	assert.Equal(t, 0, busyCount)
}

func TestSampler_RingTracksBusyFraction(t *testing.T) {
	s := NewSampler(nil, "card0")

	// Mark a quarter of the ring busy.
	for i := 0; i < bufSize/4; i++ {
		s.buf.Value = true
		s.buf = s.buf.Next()
	}

	busyCount := 0
	s.buf.Do(func(v any) {
		if b, ok := v.(bool); ok && b {
			busyCount++
		}
	})
	assert.Equal(t, bufSize/4, busyCount)
}

func TestSampler_RingIsFullSize(t *testing.T) {
	s := NewSampler(nil, "card0")
	assert.Equal(t, bufSize, s.buf.Len())
}
