// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package abi

import (
	"context"

	xglog "github.com/mangohud/overlayd/internal/log"
	"github.com/mangohud/overlayd/internal/telemetry"
)

// DeviceCreateInfo is the subset of VkDeviceCreateInfo this layer inspects
// and mutates.
type DeviceCreateInfo struct {
	Instance            Handle
	EnabledExtensions    []string
	SetDeviceLoaderData  SetDeviceLoaderDataFunc // located by walking pNext, per spec.md §4.1
}

// NextCreateDeviceFunc is the loader's real CreateDevice, called with the
// extended create info.
type NextCreateDeviceFunc func(DeviceCreateInfo) (Handle, Result)

// NextDestroyDeviceFunc forwards to the loader's real DestroyDevice.
type NextDestroyDeviceFunc func(Handle)

// CreateDevice implements spec.md §4.1's CreateDevice contract: add the
// DMA-BUF export + external memory/semaphore + format-modifier + related
// extensions, locate and retain the loader's SetDeviceLoaderData callback,
// then call through.
func (c *Core) CreateDevice(info DeviceCreateInfo, next NextCreateDeviceFunc) (Handle, Result) {
	_, span := telemetry.Tracer("mangohud.abi").Start(context.Background(), "CreateDevice")
	defer span.End()

	extended := info
	extended.EnabledExtensions = mergeExtensions(info.EnabledExtensions, deviceRequiredExtensions)

	handle, result := next(extended)
	if !result.IsSuccess() {
		return handle, result
	}

	rec := &DeviceRecord{
		Handle:              handle,
		Instance:            info.Instance,
		ExtensionsAdded:     diffAdded(info.EnabledExtensions, extended.EnabledExtensions),
		SetDeviceLoaderData: info.SetDeviceLoaderData,
	}
	c.devices.Insert(handle, rec)
	span.SetAttributes(telemetry.DeviceAttributes(uint64(rec.Instance), len(rec.ExtensionsAdded))...)

	xglog.WithComponent("abi").Info().
		Strs("extensions_added", rec.ExtensionsAdded).
		Msg("vulkan device created")

	return handle, Success
}

// DestroyDevice forwards to next and forgets the device record plus every
// queue that belonged to it.
func (c *Core) DestroyDevice(handle Handle, next NextDestroyDeviceFunc) {
	if next != nil {
		next(handle)
	}
	c.devices.Remove(handle)

	c.queues.mu.Lock()
	for q, rec := range c.queues.m {
		if rec.Device == handle {
			delete(c.queues.m, q)
		}
	}
	c.queues.mu.Unlock()
}

// DeviceRecord returns the tracked record for handle, if any.
func (c *Core) DeviceRecord(handle Handle) (*DeviceRecord, bool) {
	return c.devices.Get(handle)
}

// GetDeviceQueue records handle -> familyIndex in the core's queue map,
// which is shared by every device, per spec.md §4.1.
func (c *Core) GetDeviceQueue(device Handle, familyIndex uint32, queue Handle, isPresent bool) {
	c.queues.Insert(queue, &QueueRecord{
		Handle:      queue,
		Device:      device,
		FamilyIndex: familyIndex,
		IsPresent:   isPresent,
	})
}

// GetDeviceQueue2 is the extended-info variant; flags carries the queue
// creation flags absent from GetDeviceQueue.
func (c *Core) GetDeviceQueue2(device Handle, familyIndex uint32, flags uint32, queue Handle, isPresent bool) {
	c.queues.Insert(queue, &QueueRecord{
		Handle:      queue,
		Device:      device,
		FamilyIndex: familyIndex,
		Flags:       flags,
		IsPresent:   isPresent,
	})
}

// QueueRecordFor returns the tracked record for a queue handle, if any.
func (c *Core) QueueRecordFor(queue Handle) (*QueueRecord, bool) {
	return c.queues.Get(queue)
}

// MarkPresentQueue flags an already-recorded queue as used for present,
// per spec.md §4.1 QueuePresentKHR step 2 ("record the queue as a present
// queue"). A queue not yet seen via GetDeviceQueue(2) is a no-op: the
// application must have obtained the queue handle through one of those
// calls before presenting on it.
func (c *Core) MarkPresentQueue(queue Handle) {
	if rec, ok := c.queues.Get(queue); ok {
		rec.IsPresent = true
	}
}
