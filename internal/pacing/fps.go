// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pacing

import (
	"sync"
	"time"

	"github.com/mangohud/overlayd/internal/metrics"
)

// FPSLimiter enforces a wall-clock target frame interval with overhead
// compensation, embedding a QueueLimiter it keeps in lockstep: active()
// implies max_in_flight == 1, inactive implies 0.
type FPSLimiter struct {
	mu sync.Mutex

	targetNS   int64
	overheadNS int64
	frameStart time.Time
	frameEnd   time.Time
	useEarly   bool

	queue *QueueLimiter
	clock clock
}

// NewFPSLimiter constructs an inactive limiter bound to queue, which it will
// drive via SetMaxInFlight as the fps target is changed.
func NewFPSLimiter(queue *QueueLimiter) *FPSLimiter {
	return &FPSLimiter{queue: queue, clock: realClock{}, frameEnd: time.Now()}
}

// SetFPSLimit sets the target fps (0 disables limiting) and whether the
// sleep happens before (early, latency-sensitive) or after (late,
// power-sensitive) the present call.
func (f *FPSLimiter) SetFPSLimit(fps float64, early bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var target int64
	if fps > 0 {
		target = int64(1e9 / fps)
	}
	changed := target != f.targetNS
	f.targetNS = target
	f.useEarly = early

	if changed && f.queue != nil {
		if target > 0 {
			f.queue.SetMaxInFlight(1)
		} else {
			f.queue.SetMaxInFlight(0)
		}
	}
}

// SetTargetFPS updates the target fps (0 disables limiting) without
// touching the configured early/late placement, per spec.md §4.3.c: the IPC
// control surface only ever resets the numeric target, never the method.
func (f *FPSLimiter) SetTargetFPS(fps float64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var target int64
	if fps > 0 {
		target = int64(1e9 / fps)
	}
	changed := target != f.targetNS
	f.targetNS = target

	if changed && f.queue != nil {
		if target > 0 {
			f.queue.SetMaxInFlight(1)
		} else {
			f.queue.SetMaxInFlight(0)
		}
	}
}

// Active reports whether a positive target fps is currently configured.
func (f *FPSLimiter) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.targetNS > 0
}

// Limit sleeps to hold the target frame interval if isEarly matches the
// configured placement, compensating for scheduler overhead observed on
// prior calls. It is strictly cooperative: worst case it sleeps for
// target_ns + target_ns/2.
func (f *FPSLimiter) Limit(isEarly bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.targetNS == 0 || isEarly != f.useEarly {
		return
	}

	f.frameStart = f.clock.Now()
	work := f.frameStart.Sub(f.frameEnd).Nanoseconds()
	if work < 0 {
		work = 0
	}

	sleep := f.targetNS - work - f.overheadNS
	if sleep > 0 {
		before := f.clock.Now()
		f.clock.Sleep(time.Duration(sleep))
		elapsed := f.clock.Now().Sub(before).Nanoseconds()
		over := elapsed - sleep
		if over >= 0 && over <= f.targetNS/2 {
			f.overheadNS = over
		}
		metrics.ObserveFPSLimiterSleep(float64(sleep) / 1e9)
	}

	f.frameEnd = f.clock.Now()
}
