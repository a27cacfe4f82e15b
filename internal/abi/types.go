// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package abi is the pure-Go Vulkan dispatch core spec.md §4.1/§6
// describes: the present-path interception layer that observes the
// application's Vulkan usage without altering its rendering, extends the
// device extension set, and drives frame pacing plus the HUD on every
// present. It is the dispatch core a cgo shim (cmd/layer) would export as
// the actual vkGetInstanceProcAddr/vkGetDeviceProcAddr table; this package
// is what is implemented and tested, the shim is a thin, untested
// forwarding layer (SPEC_FULL §1).
package abi

import (
	"errors"

	"github.com/mangohud/overlayd/internal/vk"
)

// Handle is an opaque Vulkan object handle (VkInstance, VkDevice,
// VkSwapchainKHR, VkQueue, VkCommandBuffer, ...). The dispatch core never
// interprets its bits, only uses it as a map key.
type Handle uint64

// Result mirrors the small subset of VkResult this layer's contract cares
// about. Every hook function returns the inner dispatch's Result verbatim
// on success or failure — spec.md §7's "Application-visible Vulkan error:
// returned unchanged to the caller."
type Result int

const (
	Success Result = iota
	Incomplete
	Suboptimal
	ErrorOutOfDate
	ErrorSurfaceLost
	ErrorDeviceLost
	ErrorInitializationFailed
	ErrorUnknown
)

// IsSuccess reports whether r represents VK_SUCCESS.
func (r Result) IsSuccess() bool { return r == Success }

var (
	// ErrNextUnresolvable is returned by CreateInstance when the loader's
	// next CreateInstance entry point could not be resolved at all (as
	// opposed to being resolved and then failing), per spec.md §4.1.
	ErrNextUnresolvable = errors.New("abi: next CreateInstance entry point is unresolvable")
)

// instanceRequiredExtensions are unconditionally added to
// VkInstanceCreateInfo.ppEnabledExtensionNames if not already present
// (spec.md §4.1 CreateInstance).
var instanceRequiredExtensions = []string{
	"VK_KHR_external_memory_capabilities",
	"VK_KHR_external_semaphore_capabilities",
	"VK_EXT_debug_utils",
}

// deviceRequiredExtensions are unconditionally added to
// VkDeviceCreateInfo.ppEnabledExtensionNames (spec.md §4.1 CreateDevice):
// DMA-BUF export, external memory/semaphore, format modifiers, and the
// core feature extensions the overlay's own submissions rely on.
var deviceRequiredExtensions = []string{
	"VK_EXT_external_memory_dma_buf",
	"VK_KHR_external_memory_fd",
	"VK_KHR_external_semaphore_fd",
	"VK_EXT_image_drm_format_modifier",
	"VK_KHR_bind_memory2",
	"VK_KHR_get_memory_requirements2",
	"VK_KHR_sampler_ycbcr_conversion",
	"VK_KHR_image_format_list",
	"VK_KHR_maintenance1",
}

// mergeExtensions appends every entry of required not already present in
// existing, preserving existing's order and never duplicating.
func mergeExtensions(existing, required []string) []string {
	have := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		have[e] = struct{}{}
	}
	out := append([]string(nil), existing...)
	for _, r := range required {
		if _, ok := have[r]; ok {
			continue
		}
		out = append(out, r)
		have[r] = struct{}{}
	}
	return out
}

// InstanceRecord is the per-VkInstance state the layer tracks (spec.md §3
// doesn't name this record explicitly, but CreateDevice/physical-device
// probing needs to recall which instance a device came from).
type InstanceRecord struct {
	Handle           Handle
	ApplicationName  string
	EngineName       vk.EngineName
	EngineRawLabel   string
	ExtensionsAdded  []string
}

// DeviceRecord is the per-VkDevice record spec.md §3 describes: the
// loader's SetDeviceLoaderData callback (needed for correct queue
// dispatch), the extensions this layer injected, and the render-node minor
// learned from the first QueuePresentKHR call.
type DeviceRecord struct {
	Handle             Handle
	Instance           Handle
	ExtensionsAdded    []string
	SetDeviceLoaderData SetDeviceLoaderDataFunc
	RenderNodeMinor    int
	RenderNodeProbed   bool
}

// SetDeviceLoaderDataFunc is the loader callback CreateDevice must locate
// by walking VkDeviceCreateInfo.pNext, per spec.md §4.1, and retain for
// correct queue dispatch.
type SetDeviceLoaderDataFunc func(device Handle, object Handle) Result

// QueueRecord is the per-VkQueue record spec.md §3 describes.
type QueueRecord struct {
	Handle       Handle
	Device       Handle
	FamilyIndex  uint32
	Flags        uint32
	IsPresent    bool
}

// CommandBufferLevel distinguishes primary from secondary command buffers,
// since only primary buffers carry a timestamp query pool (spec.md §3).
type CommandBufferLevel int

const (
	LevelPrimary CommandBufferLevel = iota
	LevelSecondary
)

// CommandBufferRecord is the per-VkCommandBuffer record spec.md §3
// describes: level, whether it is currently enqueued (submitted but not
// yet retired), and the owning queue once submitted.
type CommandBufferRecord struct {
	Handle    Handle
	Level     CommandBufferLevel
	Enqueued  bool
	Queue     Handle
}
