// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package hud specifies the contract between the present-path interception
// layers (internal/abi, internal/glhook) and the HUD compositor, per
// spec.md §4.6: widget rendering, font atlas generation and shader
// compilation are explicit Non-goals, supplied by an immediate-mode UI
// library the interception layers depend on only through this interface.
package hud

import (
	"time"

	"github.com/mangohud/overlayd/internal/config"
	"github.com/mangohud/overlayd/internal/framestats"
)

// Rect is an integer scissor/viewport rectangle in framebuffer pixels.
type Rect struct {
	X, Y, W, H int32
}

// DrawCommand is one HUD draw call: a vertex/index buffer pair and the
// scissor rect it must be clipped to. Buffers are opaque byte payloads —
// their layout is a contract between the compositor and its own backend,
// not something the interception layer interprets.
type DrawCommand struct {
	VertexBuffer []byte
	IndexBuffer  []byte
	Scissor      Rect
}

// Input is everything the compositor needs to render one frame's HUD: the
// current metrics/config snapshot, swapchain geometry, and frame-statistics
// history. Params carries every widget-enable flag, color, and font option;
// the compositor owns deciding what to draw with them.
type Input struct {
	SwapchainExtent Rect
	Params          config.Params
	Frametimes      []time.Duration
	EngineLabel     string
	LoggerActive    bool
	Now             time.Time
}

// Output is what the compositor hands back to the interception layer: the
// draw commands to submit and a single semaphore (an opaque driver handle)
// that signals when the overlay's own submission has completed. The
// interception layer is responsible for appending that semaphore to the
// application's QueuePresentKHR wait list so the composited image is
// complete before scanout (spec.md §4.6).
type Output struct {
	Commands          []DrawCommand
	CompleteSemaphore uint64
	// Degraded is true when the compositor could not produce a usable
	// frame (e.g. a failed allocation); per spec.md §7 this must never
	// surface as an application-visible error — the present proceeds
	// without a HUD for that frame.
	Degraded bool
}

// Compositor renders one frame's HUD from Input. Implementations must
// never rebind application-visible GL/Vulkan state permanently (see
// internal/glhook's WithSavedState for the GL side) and must treat any
// internal failure as Output.Degraded rather than an error the caller
// needs to special-case, per spec.md §4.6/§7.
type Compositor interface {
	Compose(Input) (Output, error)
}

// NoopCompositor always returns a degraded, empty Output. It is the
// default Compositor wired by internal/abi and internal/glhook when no
// real widget-rendering backend is configured, and is the contract-only
// stand-in for the immediate-mode UI library spec.md treats as an
// external dependency.
type NoopCompositor struct{}

// Compose implements Compositor by producing no draw commands.
func (NoopCompositor) Compose(Input) (Output, error) {
	return Output{Degraded: true}, nil
}

// Summaries exposes the frame-statistics ring's percentile engine in the
// shape a Compositor typically wants for an FPS/frametime widget, without
// forcing every Compositor to depend on internal/framestats directly.
func Summaries(ring *framestats.Ring) framestats.Summary {
	durations := ring.Snapshot()
	fps := make([]float64, 0, len(durations))
	for _, d := range durations {
		if d <= 0 {
			continue
		}
		fps = append(fps, float64(time.Second)/float64(d))
	}
	return framestats.Summarize(fps)
}
