// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package abi

import (
	"errors"
	"testing"
	"time"

	"github.com/mangohud/overlayd/internal/framestats"
	"github.com/mangohud/overlayd/internal/hud"
	"github.com/mangohud/overlayd/internal/pacing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInstanceAddsRequiredExtensionsAndNormalizesEngine(t *testing.T) {
	c := NewCore()
	var seen InstanceCreateInfo
	next := func(info InstanceCreateInfo) (Handle, Result) {
		seen = info
		return 100, Success
	}

	handle, result, err := c.CreateInstance(InstanceCreateInfo{
		ApplicationName: "game",
		EngineName:      "dxvk",
	}, next)

	require.NoError(t, err)
	assert.Equal(t, Handle(100), handle)
	assert.True(t, result.IsSuccess())
	assert.Contains(t, seen.EnabledExtensions, "VK_EXT_debug_utils")

	rec, ok := c.InstanceRecord(handle)
	require.True(t, ok)
	assert.Equal(t, "DXVK", string(rec.EngineName))
	assert.NotEmpty(t, rec.ExtensionsAdded)
}

func TestCreateInstanceNilNextFails(t *testing.T) {
	c := NewCore()
	_, result, err := c.CreateInstance(InstanceCreateInfo{}, nil)
	assert.ErrorIs(t, err, ErrNextUnresolvable)
	assert.Equal(t, ErrorInitializationFailed, result)
}

func TestCreateInstanceFailurePropagatesWithoutTracking(t *testing.T) {
	c := NewCore()
	next := func(InstanceCreateInfo) (Handle, Result) { return 0, ErrorOutOfDate }
	handle, result, err := c.CreateInstance(InstanceCreateInfo{}, next)
	require.NoError(t, err)
	assert.Equal(t, ErrorOutOfDate, result)
	_, ok := c.InstanceRecord(handle)
	assert.False(t, ok)
}

func TestDestroyInstanceForgetsRecord(t *testing.T) {
	c := NewCore()
	next := func(InstanceCreateInfo) (Handle, Result) { return 1, Success }
	handle, _, err := c.CreateInstance(InstanceCreateInfo{}, next)
	require.NoError(t, err)

	var destroyed Handle
	c.DestroyInstance(handle, func(h Handle) { destroyed = h })
	assert.Equal(t, handle, destroyed)
	_, ok := c.InstanceRecord(handle)
	assert.False(t, ok)
}

func TestCreateDeviceMergesExtensionsAndCapturesLoaderCallback(t *testing.T) {
	c := NewCore()
	called := false
	loaderFn := func(device, object Handle) Result { called = true; return Success }

	next := func(info DeviceCreateInfo) (Handle, Result) { return 5, Success }
	handle, result := c.CreateDevice(DeviceCreateInfo{
		Instance:            1,
		SetDeviceLoaderData: loaderFn,
	}, next)

	assert.True(t, result.IsSuccess())
	rec, ok := c.DeviceRecord(handle)
	require.True(t, ok)
	assert.NotEmpty(t, rec.ExtensionsAdded)
	require.NotNil(t, rec.SetDeviceLoaderData)
	rec.SetDeviceLoaderData(0, 0)
	assert.True(t, called)
}

func TestGetDeviceQueueTracksFamilyAndPresentFlag(t *testing.T) {
	c := NewCore()
	c.GetDeviceQueue(1, 2, 10, false)
	rec, ok := c.QueueRecordFor(10)
	require.True(t, ok)
	assert.EqualValues(t, 2, rec.FamilyIndex)
	assert.False(t, rec.IsPresent)

	c.MarkPresentQueue(10)
	rec, _ = c.QueueRecordFor(10)
	assert.True(t, rec.IsPresent)
}

func TestMarkPresentQueueOnUnknownQueueIsNoop(t *testing.T) {
	c := NewCore()
	assert.NotPanics(t, func() { c.MarkPresentQueue(999) })
}

func TestCreateSwapchainRollsBackOnHUDAllocationFailure(t *testing.T) {
	c := NewCore()
	destroyCalled := false
	freedPartial := false

	next := func(SwapchainCreateInfo) (Handle, Result) { return 42, Success }
	destroyNext := func(h Handle) {
		destroyCalled = true
		assert.Equal(t, Handle(42), h)
	}
	allocate := func(device Handle, extent Extent2D, imageCount int) (*HUDResources, error) {
		return &HUDResources{ImageViewCount: 1}, errors.New("render pass creation failed")
	}
	free := func(device Handle, res *HUDResources) { freedPartial = true }

	handle, result, err := c.CreateSwapchainKHR(SwapchainCreateInfo{ImageCount: 3}, next, destroyNext, allocate, free)
	require.Error(t, err)
	assert.Equal(t, Handle(0), handle)
	assert.Equal(t, ErrorInitializationFailed, result)
	assert.True(t, freedPartial)
	assert.True(t, destroyCalled, "HUD allocation failure must destroy the swapchain at the driver level")

	_, ok := c.SwapchainRecordFor(42)
	assert.False(t, ok)
}

func TestCreateSwapchainSuccessTracksRecord(t *testing.T) {
	c := NewCore()
	next := func(SwapchainCreateInfo) (Handle, Result) { return 7, Success }
	allocate := func(device Handle, extent Extent2D, imageCount int) (*HUDResources, error) {
		return &HUDResources{ImageViewCount: imageCount, FramebufferCount: imageCount}, nil
	}

	handle, result, err := c.CreateSwapchainKHR(SwapchainCreateInfo{ImageCount: 3, Extent: Extent2D{Width: 1920, Height: 1080}}, next, nil, allocate, nil)
	require.NoError(t, err)
	assert.True(t, result.IsSuccess())

	rec, ok := c.SwapchainRecordFor(handle)
	require.True(t, ok)
	assert.Equal(t, 3, rec.HUDResources.ImageViewCount)
}

func TestDestroySwapchainFreesAndForgets(t *testing.T) {
	c := NewCore()
	next := func(SwapchainCreateInfo) (Handle, Result) { return 9, Success }
	allocate := func(Handle, Extent2D, int) (*HUDResources, error) { return &HUDResources{}, nil }
	handle, _, err := c.CreateSwapchainKHR(SwapchainCreateInfo{}, next, nil, allocate, nil)
	require.NoError(t, err)

	freed := false
	c.DestroySwapchainKHR(handle, nil, func(Handle, *HUDResources) { freed = true })
	assert.True(t, freed)
	_, ok := c.SwapchainRecordFor(handle)
	assert.False(t, ok)
}

// TestQueueSubmitRespectsMaxInFlight is invariant #1 from spec.md §8: for
// max_in_flight = k, in_flight.len() never exceeds k at the point of any
// submit return.
func TestQueueSubmitRespectsMaxInFlight(t *testing.T) {
	c := NewCore()
	fences := 0
	limiter := pacing.NewQueueLimiter("present", func() pacing.Fence {
		fences++
		return &fakeFence{}
	})
	limiter.SetMaxInFlight(2)

	next := func(QueueSubmitInfo) Result { return Success }
	for i := 0; i < 5; i++ {
		result, err := c.QueueSubmit(QueueSubmitInfo{Queue: 1}, limiter, next)
		require.NoError(t, err)
		assert.True(t, result.IsSuccess())
		assert.LessOrEqual(t, limiter.Depth(), 2)
	}
}

type fakeFence struct{ signaled bool }

func (f *fakeFence) Wait() error  { f.signaled = true; return nil }
func (f *fakeFence) Reset() error { return nil }

func TestQueueSubmitMarksCommandBuffersEnqueued(t *testing.T) {
	c := NewCore()
	c.AllocateCommandBuffers([]Handle{1, 2}, LevelPrimary)

	next := func(QueueSubmitInfo) Result { return Success }
	_, err := c.QueueSubmit(QueueSubmitInfo{Queue: 5, CommandBuffers: []Handle{1, 2}}, nil, next)
	require.NoError(t, err)

	rec, ok := c.CommandBufferRecordFor(1)
	require.True(t, ok)
	assert.True(t, rec.Enqueued)
	assert.Equal(t, Handle(5), rec.Queue)
}

func TestResetCommandBufferClearsEnqueued(t *testing.T) {
	c := NewCore()
	c.AllocateCommandBuffers([]Handle{3}, LevelPrimary)
	next := func(QueueSubmitInfo) Result { return Success }
	_, _ = c.QueueSubmit(QueueSubmitInfo{Queue: 1, CommandBuffers: []Handle{3}}, nil, next)

	c.ResetCommandBuffer(3)
	rec, _ := c.CommandBufferRecordFor(3)
	assert.False(t, rec.Enqueued)
}

func TestFreeCommandBuffersForgetsRecords(t *testing.T) {
	c := NewCore()
	c.AllocateCommandBuffers([]Handle{4}, LevelSecondary)
	c.FreeCommandBuffers([]Handle{4})
	_, ok := c.CommandBufferRecordFor(4)
	assert.False(t, ok)
}

// TestQueuePresentKHRRunsAllEightSteps exercises spec.md §4.1's
// QueuePresentKHR contract end to end: render-node probe runs once, the
// present queue gets recorded, the ring advances, and a successful HUD
// compose appends its semaphore to the wait list.
func TestQueuePresentKHRRunsAllEightSteps(t *testing.T) {
	c := NewCore()
	next := func(DeviceCreateInfo) (Handle, Result) { return 1, Success }
	deviceHandle, result := c.CreateDevice(DeviceCreateInfo{}, next)
	require.True(t, result.IsSuccess())

	c.GetDeviceQueue(deviceHandle, 0, 55, false)

	probeCalls := 0
	ring := framestats.NewRing()
	compositor := fakeCompositor{semaphore: 77}

	deps := PresentDeps{
		Ring:       ring,
		Compositor: compositor,
		ProbeRenderNode: func(Handle) (int, error) {
			probeCalls++
			return 128, nil
		},
		Now: func() time.Time { return time.Unix(0, int64(ring.NFrames())*1_000_000) },
	}

	var seenWaits []uint64
	innerNext := func(info PresentInfo) Result {
		seenWaits = info.WaitSemaphores
		return Success
	}

	result2 := c.QueuePresentKHR(PresentInfo{Device: deviceHandle, Queue: 55, Swapchain: 1}, deps, innerNext)
	assert.True(t, result2.IsSuccess())
	assert.Contains(t, seenWaits, uint64(77))
	assert.EqualValues(t, 1, ring.NFrames())

	rec, ok := c.QueueRecordFor(55)
	require.True(t, ok)
	assert.True(t, rec.IsPresent)

	devRec, ok := c.DeviceRecord(deviceHandle)
	require.True(t, ok)
	assert.True(t, devRec.RenderNodeProbed)
	assert.Equal(t, 128, devRec.RenderNodeMinor)

	// Second present must not re-probe.
	c.QueuePresentKHR(PresentInfo{Device: deviceHandle, Queue: 55, Swapchain: 1}, deps, innerNext)
	assert.Equal(t, 1, probeCalls)
}

func TestQueuePresentKHRDegradedHUDStillPresents(t *testing.T) {
	c := NewCore()
	ring := framestats.NewRing()
	innerCalled := false
	next := func(info PresentInfo) Result {
		innerCalled = true
		assert.Empty(t, info.WaitSemaphores)
		return Success
	}

	deps := PresentDeps{Ring: ring, Compositor: hud.NoopCompositor{}}
	result := c.QueuePresentKHR(PresentInfo{Device: 1, Queue: 1, Swapchain: 1}, deps, next)
	assert.True(t, result.IsSuccess())
	assert.True(t, innerCalled)
}

func TestQueuePresentKHRInnerFailurePropagatesUnmodified(t *testing.T) {
	c := NewCore()
	next := func(PresentInfo) Result { return ErrorDeviceLost }
	result := c.QueuePresentKHR(PresentInfo{Device: 1, Queue: 1, Swapchain: 1}, PresentDeps{}, next)
	assert.Equal(t, ErrorDeviceLost, result)
}

type fakeCompositor struct{ semaphore uint64 }

func (f fakeCompositor) Compose(hud.Input) (hud.Output, error) {
	return hud.Output{CompleteSemaphore: f.semaphore}, nil
}
