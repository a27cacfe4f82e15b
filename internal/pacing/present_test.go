// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pacing

import (
	"errors"
	"testing"
	"time"
)

type fakeWaiter struct {
	failFirst bool
	calls     int
}

func (w *fakeWaiter) WaitForPresent(swapchain, presentID uint64, timeout time.Duration) error {
	w.calls++
	if w.failFirst && timeout == 0 {
		return errors.New("timeout")
	}
	return nil
}

func TestPresentLimiterMonotonicIDs(t *testing.T) {
	p := NewPresentLimiter("dev0", &fakeWaiter{})
	const swapchain = 1

	var last uint64
	for i := 0; i < 5; i++ {
		id := p.OnPresent(swapchain)
		if id <= last {
			t.Fatalf("present id not monotonic: got %d after %d", id, last)
		}
		last = id
		p.OnPresentResult(swapchain, id, PresentSuccess)
	}
}

func TestPresentLimiterDiscardsNonSuccess(t *testing.T) {
	p := NewPresentLimiter("dev0", &fakeWaiter{})
	const swapchain = 1

	id := p.OnPresent(swapchain)
	p.OnPresentResult(swapchain, id, PresentOther)

	s := p.state(swapchain)
	if s.lastQueued != 0 {
		t.Errorf("expected lastQueued to remain 0 after non-success result, got %d", s.lastQueued)
	}
}

func TestPresentLimiterThrottleTwoPhaseWait(t *testing.T) {
	waiter := &fakeWaiter{failFirst: true}
	p := NewPresentLimiter("dev0", waiter)
	const swapchain = 1

	for i := 0; i < 3; i++ {
		id := p.OnPresent(swapchain)
		p.OnPresentResult(swapchain, id, PresentSuccess)
	}

	p.Throttle(swapchain, 0)

	if waiter.calls != 2 {
		t.Errorf("expected two-phase wait (0ns then 2ms), got %d calls", waiter.calls)
	}
}
