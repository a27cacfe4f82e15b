// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package abi

import (
	"time"

	xglog "github.com/mangohud/overlayd/internal/log"
	"github.com/mangohud/overlayd/internal/framestats"
	"github.com/mangohud/overlayd/internal/hud"
	"github.com/mangohud/overlayd/internal/pacing"
)

// PresentInfo is the subset of VkPresentInfoKHR the dispatch core inspects
// and may mutate (appending the HUD compositor's completion semaphore to
// the wait list, per spec.md §4.6).
type PresentInfo struct {
	Device     Handle
	Queue      Handle
	Swapchain  Handle
	WaitSemaphores []uint64
}

// NextQueuePresentFunc is the loader's real QueuePresentKHR.
type NextQueuePresentFunc func(PresentInfo) Result

// ProbeRenderNodeFunc learns the render-node minor number from
// VK_EXT_physical_device_drm properties. Called at most once per device.
type ProbeRenderNodeFunc func(device Handle) (minor int, err error)

// TargetFPSFunc returns the current target FPS from the IPC control
// surface (0 disables the limiter).
type TargetFPSFunc func() float64

// PresentDeps bundles everything QueuePresentKHR needs beyond the Core's
// own object maps: the frame-pacing primitives, the frame-statistics ring,
// the HUD compositor, and the render-node probe.
type PresentDeps struct {
	FPSLimiter     *pacing.FPSLimiter
	PresentLimiter *pacing.PresentLimiter
	AllowedAhead   uint64
	Ring           *framestats.Ring
	Compositor     hud.Compositor
	ProbeRenderNode ProbeRenderNodeFunc
	TargetFPS      TargetFPSFunc
	Now            func() time.Time
}

// QueuePresentKHR implements spec.md §4.1's QueuePresentKHR hot path in
// the eight numbered steps the contract lays out. Any inner-call failure
// is returned unmodified; a HUD compositor failure only downgrades to "no
// HUD this frame" (spec.md §7's present-path failure taxonomy), it never
// changes the application's observed result.
func (c *Core) QueuePresentKHR(info PresentInfo, deps PresentDeps, next NextQueuePresentFunc) Result {
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}

	// Step 1: probe the render node once per device.
	if dev, ok := c.devices.Get(info.Device); ok && !dev.RenderNodeProbed && deps.ProbeRenderNode != nil {
		minor, err := deps.ProbeRenderNode(info.Device)
		dev.RenderNodeProbed = true
		if err != nil {
			xglog.WithComponent("abi").Warn().Err(err).Msg("render node probe failed, HUD GPU metrics disabled")
		} else {
			dev.RenderNodeMinor = minor
		}
	}

	// Step 2: record the queue as a present queue.
	c.MarkPresentQueue(info.Queue)

	// Step 3: early sleep.
	if deps.FPSLimiter != nil {
		deps.FPSLimiter.Limit(true)
	}

	// Step 4: refresh the target FPS. Only the numeric target is live here —
	// fps_limit_method is fixed at startup and must not be reset every frame.
	if deps.FPSLimiter != nil && deps.TargetFPS != nil {
		deps.FPSLimiter.SetTargetFPS(deps.TargetFPS())
	}

	var presentID uint64
	if deps.PresentLimiter != nil {
		presentID = deps.PresentLimiter.OnPresent(uint64(info.Swapchain))
		deps.PresentLimiter.Throttle(uint64(info.Swapchain), deps.AllowedAhead)
	}

	// Step 5: HUD compositor pass; its failure never touches info beyond
	// appending a wait semaphore on success.
	extended := info
	if deps.Compositor != nil {
		out, err := deps.Compositor.Compose(hud.Input{Now: now()})
		if err != nil || out.Degraded {
			if err != nil {
				xglog.WithComponent("abi").Warn().Err(err).Msg("hud compose failed, skipping HUD this frame")
			}
		} else if out.CompleteSemaphore != 0 {
			extended.WaitSemaphores = append(append([]uint64(nil), info.WaitSemaphores...), out.CompleteSemaphore)
		}
	}

	// Step 6: the inner present call.
	result := next(extended)

	if deps.PresentLimiter != nil {
		deps.PresentLimiter.OnPresentResult(uint64(info.Swapchain), presentID, presentResultFor(result))
	}

	// Step 7: late sleep.
	if deps.FPSLimiter != nil {
		deps.FPSLimiter.Limit(false)
	}

	// Step 8: update the rolling stats ring.
	if deps.Ring != nil {
		deps.Ring.RecordPresent(now())
	}

	return result
}

func presentResultFor(r Result) pacing.PresentResult {
	switch r {
	case Success:
		return pacing.PresentSuccess
	case Suboptimal:
		return pacing.PresentSuboptimal
	default:
		return pacing.PresentOther
	}
}
