// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pacing

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mangohud/overlayd/internal/metrics"
)

// Fence is the minimal handle the dispatch core needs from a real
// VkFence-backed object: whether its prior submission has signaled, and how
// to reset it for reuse. A nil Fence is a sentinel for "fence creation
// failed"; callers must treat it as already-consumed rather than stalling
// on it forever.
type Fence interface {
	Wait() error
	Reset() error
}

// QueueLimiter bounds the number of GPU-side submissions a present queue may
// have outstanding before the CPU is made to wait, using a small marker
// submission per frame rather than the application's own fences.
type QueueLimiter struct {
	mu           sync.Mutex
	maxInFlight  uint32
	inFlight     []Fence
	pool         []Fence
	cursor       int
	acquireFence func() Fence // lazily produces pool fences; nil entries are sentinels
	maxDepthSeen atomic.Uint64
	waits        atomic.Uint64
	waitedNS     atomic.Uint64
	queueLabel   string
}

// NewQueueLimiter constructs a limiter with maxInFlight == 0 (disabled).
// acquireFence is called at most poolSize times to lazily build the fence
// pool; it must return nil (a sentinel) on construction failure rather than
// panicking.
func NewQueueLimiter(queueLabel string, acquireFence func() Fence) *QueueLimiter {
	const poolSize = 8
	return &QueueLimiter{
		pool:         make([]Fence, poolSize),
		acquireFence: acquireFence,
		queueLabel:   queueLabel,
	}
}

// SetMaxInFlight updates the throttle depth. Setting it to 0 disables
// throttling entirely.
func (q *QueueLimiter) SetMaxInFlight(n uint32) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.maxInFlight = n
}

// ThrottleBeforeSubmit blocks until in_flight.len() < max_in_flight, popping
// and waiting on the oldest outstanding fence each iteration. Must be called
// strictly before the inner QueueSubmit.
func (q *QueueLimiter) ThrottleBeforeSubmit() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.maxInFlight == 0 {
		return nil
	}

	for uint32(len(q.inFlight)) >= q.maxInFlight {
		oldest := q.inFlight[0]
		q.inFlight = q.inFlight[1:]
		if oldest == nil {
			continue // sentinel: treat as already consumed
		}
		t0 := time.Now()
		err := oldest.Wait()
		q.waits.Add(1)
		q.waitedNS.Add(uint64(time.Since(t0).Nanoseconds()))
		if err != nil {
			return err
		}
		if err := oldest.Reset(); err != nil {
			return err
		}
	}
	return nil
}

// MarkAfterSubmit acquires a pool fence round-robin, records it as
// outstanding, and tracks the deepest in-flight depth observed. Call this
// strictly after a successful inner QueueSubmit.
func (q *QueueLimiter) MarkAfterSubmit() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.maxInFlight == 0 {
		return
	}

	if q.pool[q.cursor] == nil && q.acquireFence != nil {
		q.pool[q.cursor] = q.acquireFence()
	}
	f := q.pool[q.cursor]
	q.cursor = (q.cursor + 1) % len(q.pool)

	q.inFlight = append(q.inFlight, f)
	depth := uint64(len(q.inFlight))
	for {
		cur := q.maxDepthSeen.Load()
		if depth <= cur || q.maxDepthSeen.CompareAndSwap(cur, depth) {
			break
		}
	}
	metrics.IncQueueSubmission(q.queueLabel)
}

// MaxDepthSeen returns the deepest in-flight depth observed since creation.
func (q *QueueLimiter) MaxDepthSeen() uint64 { return q.maxDepthSeen.Load() }

// Waits returns the number of times ThrottleBeforeSubmit has had to block on
// an outstanding fence since creation.
func (q *QueueLimiter) Waits() uint64 { return q.waits.Load() }

// WaitedNS returns the cumulative time spent blocked on outstanding fences
// in ThrottleBeforeSubmit, in nanoseconds.
func (q *QueueLimiter) WaitedNS() uint64 { return q.waitedNS.Load() }

// Depth returns the current in-flight fence count, for invariant assertions.
func (q *QueueLimiter) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inFlight)
}
