// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pacing

import (
	"sync"
	"time"

	"github.com/mangohud/overlayd/internal/metrics"
)

// PresentWaiter is the driver hook a PresentLimiter calls to block on a past
// frame's scanout. Implementations wrap vkWaitForPresentKHR.
type PresentWaiter interface {
	WaitForPresent(swapchain uint64, presentID uint64, timeout time.Duration) error
}

type swapchainPacing struct {
	nextID        uint64
	lastAssigned  uint64
	lastQueued    uint64
	lastCompleted uint64
}

// PresentLimiter throttles how many presents may be queued ahead of scanout
// using VK_KHR_present_wait. One instance serves every swapchain of a
// device; per-swapchain state lives under a single mutex because present
// rates are low enough that contention never matters.
type PresentLimiter struct {
	mu      sync.Mutex
	states  map[uint64]*swapchainPacing
	waiter  PresentWaiter
	device  string
}

// NewPresentLimiter constructs a limiter bound to the given device label
// (used only for metric labeling) and driver waiter.
func NewPresentLimiter(device string, waiter PresentWaiter) *PresentLimiter {
	return &PresentLimiter{
		states: make(map[uint64]*swapchainPacing),
		waiter: waiter,
		device: device,
	}
}

func (p *PresentLimiter) state(swapchain uint64) *swapchainPacing {
	s, ok := p.states[swapchain]
	if !ok {
		s = &swapchainPacing{}
		p.states[swapchain] = s
	}
	return s
}

// OnPresent assigns a fresh monotonic present ID to swapchain and returns it
// for the caller to stash in its present-info id buffer.
func (p *PresentLimiter) OnPresent(swapchain uint64) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.state(swapchain)
	s.nextID++
	s.lastAssigned = s.nextID
	return s.nextID
}

// PresentResult is the outcome QueuePresentKHR reported for one swapchain.
type PresentResult int

const (
	PresentSuccess PresentResult = iota
	PresentSuboptimal
	PresentOther
)

// OnPresentResult advances lastQueued/nextID for swapchain when the driver
// reports success or suboptimal; any other result is discarded.
func (p *PresentLimiter) OnPresentResult(swapchain uint64, id uint64, result PresentResult) {
	if result != PresentSuccess && result != PresentSuboptimal {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.state(swapchain)
	if id > s.lastQueued {
		s.lastQueued = id
	}
	if id > s.nextID {
		s.nextID = id
	}
}

// Throttle blocks the caller until at most allowedAhead presents are queued
// ahead of scanout for swapchain. It polls with a zero timeout first, then
// retries once with a 2ms bounded wait, matching the driver's own two-phase
// wait discipline for VK_KHR_present_wait.
func (p *PresentLimiter) Throttle(swapchain uint64, allowedAhead uint64) {
	p.mu.Lock()
	s := p.state(swapchain)
	depth := s.lastQueued - s.lastCompleted
	if depth <= allowedAhead {
		p.mu.Unlock()
		return
	}
	waitID := s.lastQueued - allowedAhead
	alreadyDone := waitID <= s.lastCompleted
	p.mu.Unlock()

	if alreadyDone || p.waiter == nil {
		return
	}

	if err := p.waiter.WaitForPresent(swapchain, waitID, 0); err != nil {
		if err := p.waiter.WaitForPresent(swapchain, waitID, 2*time.Millisecond); err != nil {
			metrics.IncPresentWait(p.device, "timeout")
			return
		}
	}

	p.mu.Lock()
	s = p.state(swapchain)
	if waitID > s.lastCompleted {
		s.lastCompleted = waitID
	}
	p.mu.Unlock()
	metrics.IncPresentWait(p.device, "ok")
}
