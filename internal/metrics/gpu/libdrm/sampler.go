// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package libdrm

import (
	"container/ring"
	"context"
	"time"

	"github.com/mangohud/overlayd/internal/metrics/gpu"
)

// Sampling cadence and ring buffer size mirror the original GRBM_STATUS
// poller exactly: a register read every 3.5ms into a 512-sample ring, with
// load reported as the fraction of samples where the busy bit was set.
const (
	samplePeriod = 3500 * time.Microsecond
	bufSize      = 512
)

// Sampler polls GRBM_STATUS and reduces a 512-sample ring into a load
// percentage published after every sample.
type Sampler struct {
	handle *Handle
	device string
	buf    *ring.Ring
}

// NewSampler wraps an already-open Handle with a 512-slot sample ring,
// each slot initialized to "not busy" so a cold start reports 0% load
// rather than undefined memory, unlike the C original's raw deque.
func NewSampler(handle *Handle, device string) *Sampler {
	buf := ring.New(bufSize)
	for i := 0; i < bufSize; i++ {
		buf.Value = false
		buf = buf.Next()
	}
	return &Sampler{handle: handle, device: device, buf: buf}
}

// Run polls until ctx is canceled, publishing the current ring's busy
// fraction after every sample (the ring always holds bufSize entries, so
// every poll yields a fresh, fully-populated load estimate).
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(samplePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			busy, err := s.handle.Busy()
			if err != nil {
				gpu.IncSampleError(s.device, "libdrm")
				continue
			}
			s.buf.Value = busy
			s.buf = s.buf.Next()
			s.publish()
		}
	}
}

func (s *Sampler) publish() {
	busyCount := 0
	s.buf.Do(func(v any) {
		if b, ok := v.(bool); ok && b {
			busyCount++
		}
	})
	load := float64(busyCount) / float64(bufSize) * 100
	gpu.RecordSample(s.device, "libdrm", load, 0, 0, 0, 0, 0, 0)
}
