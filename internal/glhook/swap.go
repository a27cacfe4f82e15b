// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package glhook

import (
	"time"

	"github.com/mangohud/overlayd/internal/framestats"
	"github.com/mangohud/overlayd/internal/hud"
	xglog "github.com/mangohud/overlayd/internal/log"
	"github.com/mangohud/overlayd/internal/pacing"
)

// CurrentContextFunc reports the calling thread's current GL/EGL context,
// or zero if none is current (no-op per spec.md §4.2 step 2). Implemented
// by the cgo shim via eglGetCurrentContext/glXGetCurrentContext.
type CurrentContextFunc func() ContextHandle

// RealSwapFunc forwards to the real, RTLD_NEXT-resolved swap-buffer entry
// point once the overlay has had a chance to draw.
type RealSwapFunc func() bool

// Interceptor drives one interposed swap call end to end: resolve the real
// symbol, confirm a context, lazily init per-context state, draw the HUD
// with GL state saved/restored around it, then forward to the real call.
type Interceptor struct {
	registry    *Registry
	currentCtx  CurrentContextFunc
	backend     StateBackend
	compositor  hud.Compositor
	sizeQuery   SizeQueryMethod

	fps          *pacing.FPSLimiter
	present      *pacing.PresentLimiter
	ring         *framestats.Ring
	allowedAhead uint64
	now          func() time.Time
}

// NewInterceptor builds an Interceptor. compositor defaults to
// hud.NoopCompositor{} when nil, matching the contract-only HUD boundary.
func NewInterceptor(registry *Registry, currentCtx CurrentContextFunc, backend StateBackend, compositor hud.Compositor) *Interceptor {
	if compositor == nil {
		compositor = hud.NoopCompositor{}
	}
	return &Interceptor{
		registry:   registry,
		currentCtx: currentCtx,
		backend:    backend,
		compositor: compositor,
		sizeQuery:  SizeQueryWindowSystem,
	}
}

// SetSizeQueryMethod overrides the default windowing-system drawable-size
// query, per spec.md §4.2's configurable scissor/viewport policy.
func (i *Interceptor) SetSizeQueryMethod(m SizeQueryMethod) {
	i.sizeQuery = m
}

// SetPacing wires the same frame-pacing primitives internal/abi's
// QueuePresentKHR hot path uses into the GL/EGL interposed swap call,
// per SPEC_FULL.md §4.2: the fps limiter and present-wait throttle apply
// identically regardless of which API presents the frame. There is no GL
// equivalent of a VkFence-backed in-flight submission count, so
// pacing.QueueLimiter stays Vulkan-only (see DESIGN.md).
func (i *Interceptor) SetPacing(fps *pacing.FPSLimiter, present *pacing.PresentLimiter, allowedAhead uint64, ring *framestats.Ring, now func() time.Time) {
	i.fps = fps
	i.present = present
	i.allowedAhead = allowedAhead
	i.ring = ring
	i.now = now
}

// HandleSwap implements spec.md §4.2's per-call algorithm for every
// interposed symbol: look up the real function (already done by the
// caller, passed as real), confirm a current context, lazily build that
// context's state, draw with state saved/restored, then forward.
func (i *Interceptor) HandleSwap(real RealSwapFunc) bool {
	ctx := i.currentCtx()
	if ctx == 0 {
		// spec.md §4.2 step 2: no current context is a no-op, just forward.
		return real()
	}

	now := time.Now
	if i.now != nil {
		now = i.now
	}
	ctxKey := uint64(ctx)

	if i.fps != nil {
		i.fps.Limit(true)
	}

	var presentID uint64
	if i.present != nil {
		presentID = i.present.OnPresent(ctxKey)
		i.present.Throttle(ctxKey, i.allowedAhead)
	}

	state := i.registry.StateFor(ctx)
	if !state.Inited {
		state.Inited = true
		xglog.WithComponent("glhook").Debug().Msg("initializing overlay state for new GL context")
	}

	if i.backend != nil {
		WithSavedState(i.backend, func() {
			i.draw(state)
		})
	} else {
		i.draw(state)
	}

	ok := real()

	if i.present != nil {
		i.present.OnPresentResult(ctxKey, presentID, presentResultFor(ok))
	}
	if i.fps != nil {
		i.fps.Limit(false)
	}
	if i.ring != nil {
		i.ring.RecordPresent(now())
	}

	return ok
}

func presentResultFor(ok bool) pacing.PresentResult {
	if ok {
		return pacing.PresentSuccess
	}
	return pacing.PresentOther
}

func (i *Interceptor) draw(state *ContextState) {
	out, err := i.compositor.Compose(hud.Input{})
	if err != nil || out.Degraded {
		// spec.md §7: HUD compositor surface failure downgrades to "no HUD
		// this frame" without affecting the application's swap call.
		return
	}
	if !state.AtlasUploaded {
		state.AtlasUploaded = true // font atlas uploaded exactly once per context (spec.md §4.6)
	}
}
