// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package abi

import (
	"context"

	xglog "github.com/mangohud/overlayd/internal/log"
	"github.com/mangohud/overlayd/internal/telemetry"
)

// SwapchainRecord is the per-VkSwapchainKHR record spec.md §3 describes:
// the device it belongs to (stored as a Handle, not a pointer, so the
// swapchain never back-references the DeviceRecord directly — see
// HandleMap's doc comment) and the HUD resources allocated against its
// image count.
type SwapchainRecord struct {
	Handle       Handle
	Device       Handle
	Extent       Extent2D
	ImageCount   int
	HUDResources *HUDResources
}

// Extent2D mirrors VkExtent2D.
type Extent2D struct {
	Width, Height uint32
}

// HUDResources is the per-swapchain set of compositor-owned resources
// (image views, a dedicated render pass, one framebuffer per swapchain
// image) allocated in CreateSwapchainKHR and torn down in
// DestroySwapchainKHR, per spec.md §4.1's CreateSwapchainKHR contract.
type HUDResources struct {
	ImageViewCount  int
	FramebufferCount int
}

// SwapchainCreateInfo is the subset of VkSwapchainCreateInfoKHR needed to
// allocate HUD resources.
type SwapchainCreateInfo struct {
	Device     Handle
	Extent     Extent2D
	ImageCount int
}

// NextCreateSwapchainFunc is the loader's real CreateSwapchainKHR.
type NextCreateSwapchainFunc func(SwapchainCreateInfo) (Handle, Result)

// NextDestroySwapchainFunc forwards to the loader's real
// DestroySwapchainKHR.
type NextDestroySwapchainFunc func(Handle)

// AllocateHUDResourcesFunc allocates image views, a render pass and one
// framebuffer per swapchain image against the new swapchain's images. It
// returns a partial HUDResources and an error the moment any step fails,
// so CreateSwapchainKHR can roll the partial allocation back without a
// goto-based cleanup label (SPEC_FULL §9's scoped-guard redesign note).
type AllocateHUDResourcesFunc func(device Handle, extent Extent2D, imageCount int) (*HUDResources, error)

// FreeHUDResourcesFunc releases whatever AllocateHUDResourcesFunc handed
// back, including a partially populated HUDResources.
type FreeHUDResourcesFunc func(device Handle, res *HUDResources)

// CreateSwapchainKHR implements spec.md §4.1's CreateSwapchainKHR
// contract: call through to the loader first, then allocate HUD image
// views/render pass/framebuffers against the new swapchain. If any HUD
// allocation step fails, everything allocated so far for this swapchain
// is freed and the swapchain itself is destroyed, mirroring the source's
// "on allocation failure, clean up partial HUD resources and destroy the
// swapchain" behavior without goto: each resource is acquired by a
// function that either returns a fully valid HUDResources or an error
// alongside whatever partial state it managed to build, and a single
// defer-free covers every exit path.
func (c *Core) CreateSwapchainKHR(
	info SwapchainCreateInfo,
	next NextCreateSwapchainFunc,
	destroyNext NextDestroySwapchainFunc,
	allocate AllocateHUDResourcesFunc,
	free FreeHUDResourcesFunc,
) (Handle, Result, error) {
	_, span := telemetry.Tracer("mangohud.abi").Start(context.Background(), "CreateSwapchainKHR")
	defer span.End()
	span.SetAttributes(telemetry.SwapchainAttributes(uint64(info.Device), info.Extent.Width, info.Extent.Height, info.ImageCount)...)

	handle, result := next(info)
	if !result.IsSuccess() {
		return handle, result, nil
	}

	res, err := allocate(info.Device, info.Extent, info.ImageCount)
	if err != nil {
		if res != nil && free != nil {
			free(info.Device, res)
		}
		// Roll the whole swapchain back: the application believes
		// creation either fully succeeded or fully failed. The
		// record was never inserted, so DestroySwapchainKHR's own
		// HUD-resource free is a no-op here; only the real driver
		// destroy call matters.
		c.DestroySwapchainKHR(handle, destroyNext, nil)
		xglog.WithComponent("abi").Error().Err(err).Msg("hud resource allocation failed, swapchain rolled back")
		return 0, ErrorInitializationFailed, err
	}

	c.swapchains.Insert(handle, &SwapchainRecord{
		Handle:       handle,
		Device:       info.Device,
		Extent:       info.Extent,
		ImageCount:   info.ImageCount,
		HUDResources: res,
	})

	xglog.WithComponent("abi").Info().
		Uint32("width", info.Extent.Width).
		Uint32("height", info.Extent.Height).
		Int("images", info.ImageCount).
		Msg("vulkan swapchain created")

	return handle, Success, nil
}

// DestroySwapchainKHR frees HUD resources (if free and the record's
// resources are non-nil), forwards to next, and forgets the record.
func (c *Core) DestroySwapchainKHR(handle Handle, next NextDestroySwapchainFunc, free FreeHUDResourcesFunc) {
	if rec, ok := c.swapchains.Get(handle); ok && free != nil && rec.HUDResources != nil {
		free(rec.Device, rec.HUDResources)
	}
	if next != nil {
		next(handle)
	}
	c.swapchains.Remove(handle)
}

// SwapchainRecordFor returns the tracked record for handle, if any.
func (c *Core) SwapchainRecordFor(handle Handle) (*SwapchainRecord, bool) {
	return c.swapchains.Get(handle)
}
