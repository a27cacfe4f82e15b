// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package abi

import (
	"context"

	xglog "github.com/mangohud/overlayd/internal/log"
	"github.com/mangohud/overlayd/internal/telemetry"
	"github.com/mangohud/overlayd/internal/vk"
)

// InstanceCreateInfo is the subset of VkInstanceCreateInfo this layer
// inspects and mutates: the application's own pApplicationInfo fields are
// preserved verbatim, only the extension list is extended.
type InstanceCreateInfo struct {
	ApplicationName    string
	EngineName         string // raw pEngineName, before normalization
	EnabledExtensions  []string
}

// NextCreateInstanceFunc is the loader's real CreateInstance entry point,
// called with the (possibly extended) create info. A nil function means
// the next entry point could not be resolved at all.
type NextCreateInstanceFunc func(InstanceCreateInfo) (Handle, Result)

// NextDestroyInstanceFunc forwards to the loader's real DestroyInstance.
type NextDestroyInstanceFunc func(Handle)

// Core owns the object maps the hook functions below need. Pacing
// limiters and the HUD compositor are not held here; they are passed in
// per call. internal/overlay constructs exactly one Core per hooked process.
type Core struct {
	instances  *HandleMap[InstanceRecord]
	devices    *HandleMap[DeviceRecord]
	queues     *HandleMap[QueueRecord]
	swapchains *HandleMap[SwapchainRecord]
	cmdbufs    *HandleMap[CommandBufferRecord]
}

// NewCore builds an empty dispatch core ready to receive CreateInstance.
func NewCore() *Core {
	return &Core{
		instances:  NewHandleMap[InstanceRecord](),
		devices:    NewHandleMap[DeviceRecord](),
		queues:     NewHandleMap[QueueRecord](),
		swapchains: NewHandleMap[SwapchainRecord](),
		cmdbufs:    NewHandleMap[CommandBufferRecord](),
	}
}

// CreateInstance implements spec.md §4.1's CreateInstance contract: add
// the three required instance extensions if missing, preserve
// pApplicationInfo, capture and normalize pEngineName, and fail with
// ErrorInitializationFailed if next is nil (the loader's entry point is
// unresolvable).
func (c *Core) CreateInstance(info InstanceCreateInfo, next NextCreateInstanceFunc) (Handle, Result, error) {
	_, span := telemetry.Tracer("mangohud.abi").Start(context.Background(), "CreateInstance")
	defer span.End()

	if next == nil {
		return 0, ErrorInitializationFailed, ErrNextUnresolvable
	}

	extended := info
	extended.EnabledExtensions = mergeExtensions(info.EnabledExtensions, instanceRequiredExtensions)

	handle, result := next(extended)
	if !result.IsSuccess() {
		return handle, result, nil
	}

	rec := &InstanceRecord{
		Handle:          handle,
		ApplicationName: info.ApplicationName,
		EngineName:      vk.NormalizeEngineName(info.EngineName),
		EngineRawLabel:  vk.DisplayLabel(info.EngineName),
		ExtensionsAdded: diffAdded(info.EnabledExtensions, extended.EnabledExtensions),
	}
	c.instances.Insert(handle, rec)
	span.SetAttributes(telemetry.InstanceAttributes(string(rec.EngineName), rec.ApplicationName, len(rec.ExtensionsAdded))...)

	xglog.WithComponent("abi").Info().
		Str("engine", string(rec.EngineName)).
		Strs("extensions_added", rec.ExtensionsAdded).
		Msg("vulkan instance created")

	return handle, Success, nil
}

// DestroyInstance forwards to next and forgets the instance record.
func (c *Core) DestroyInstance(handle Handle, next NextDestroyInstanceFunc) {
	if next != nil {
		next(handle)
	}
	c.instances.Remove(handle)
}

// InstanceRecord returns the tracked record for handle, if any.
func (c *Core) InstanceRecord(handle Handle) (*InstanceRecord, bool) {
	return c.instances.Get(handle)
}

func diffAdded(before, after []string) []string {
	have := make(map[string]struct{}, len(before))
	for _, e := range before {
		have[e] = struct{}{}
	}
	var added []string
	for _, e := range after {
		if _, ok := have[e]; !ok {
			added = append(added, e)
		}
	}
	return added
}
