// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pacing

import "testing"

type fakeFence struct {
	signaled bool
	reset    bool
}

func (f *fakeFence) Wait() error  { f.signaled = true; return nil }
func (f *fakeFence) Reset() error { f.reset = true; return nil }

func newFakeAcquire() func() Fence {
	return func() Fence { return &fakeFence{} }
}

func TestQueueLimiterBoundsInFlight(t *testing.T) {
	q := NewQueueLimiter("present", newFakeAcquire())
	q.SetMaxInFlight(2)

	for i := 0; i < 5; i++ {
		if err := q.ThrottleBeforeSubmit(); err != nil {
			t.Fatalf("ThrottleBeforeSubmit: %v", err)
		}
		q.MarkAfterSubmit()
		if depth := q.Depth(); depth > 2 {
			t.Fatalf("in_flight depth = %d, want <= 2", depth)
		}
	}
}

func TestQueueLimiterDisabledNeverThrottles(t *testing.T) {
	q := NewQueueLimiter("present", newFakeAcquire())
	// maxInFlight left at zero (disabled)
	for i := 0; i < 100; i++ {
		if err := q.ThrottleBeforeSubmit(); err != nil {
			t.Fatalf("ThrottleBeforeSubmit: %v", err)
		}
		q.MarkAfterSubmit()
	}
	if depth := q.Depth(); depth != 0 {
		t.Fatalf("expected disabled limiter to never record depth, got %d", depth)
	}
}

func TestQueueLimiterFenceResetBeforeReuse(t *testing.T) {
	var acquired []*fakeFence
	acquire := func() Fence {
		f := &fakeFence{}
		acquired = append(acquired, f)
		return f
	}
	q := NewQueueLimiter("present", acquire)
	q.SetMaxInFlight(1)

	for i := 0; i < 3; i++ {
		if err := q.ThrottleBeforeSubmit(); err != nil {
			t.Fatalf("ThrottleBeforeSubmit: %v", err)
		}
		q.MarkAfterSubmit()
	}

	if len(acquired) == 0 {
		t.Fatal("expected at least one fence to be acquired")
	}
	if !acquired[0].signaled {
		t.Error("expected the first fence to have been waited on before reuse")
	}
	if !acquired[0].reset {
		t.Error("expected the first fence to have been reset before reuse")
	}
}

func TestQueueLimiterSentinelFenceSkipped(t *testing.T) {
	calls := 0
	acquire := func() Fence {
		calls++
		if calls == 1 {
			return nil // sentinel: fence creation failed
		}
		return &fakeFence{}
	}
	q := NewQueueLimiter("present", acquire)
	q.SetMaxInFlight(1)

	if err := q.ThrottleBeforeSubmit(); err != nil {
		t.Fatalf("ThrottleBeforeSubmit: %v", err)
	}
	q.MarkAfterSubmit() // acquires sentinel nil fence

	if err := q.ThrottleBeforeSubmit(); err != nil {
		t.Fatalf("ThrottleBeforeSubmit with sentinel fence: %v", err)
	}
	q.MarkAfterSubmit()
}
