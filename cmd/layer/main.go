// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build linux && cgo

// Command layer builds the actual VK_LAYER_MANGOHUD_overlay.so the
// Vulkan loader dlopens into a hooked process, built with
// `go build -buildmode=c-shared`. It is intentionally thin: every
// exported entry point converts its C arguments into internal/abi types,
// calls into the dispatch core built and tested in Go, and forwards to
// the libvulkan entry point linked into this shim; only the
// vkGet*ProcAddr fall-through resolves symbols via dlsym(RTLD_NEXT). Nothing here is
// unit tested — only internal/abi and internal/glhook are, per
// SPEC_FULL §1's "the shim is a thin, untested forwarding layer" note.
//
// Grounded on the same cgo-plus-pkg-config shape as
// internal/metrics/gpu/libdrm: real system headers via pkg-config rather
// than a hand-rolled struct layout, since the Vulkan SDK is the one
// library in this domain no pure-Go binding in the pack covers.
package main

/*
#cgo pkg-config: vulkan
#include <vulkan/vulkan.h>
#include <dlfcn.h>
#include <stdlib.h>
#include <string.h>

static void *resolve_next_symbol(const char *name) {
	return dlsym(RTLD_NEXT, name);
}

static PFN_vkVoidFunction call_next_gipa(PFN_vkGetInstanceProcAddr fn, VkInstance instance, const char *name) {
	return fn(instance, name);
}

static PFN_vkVoidFunction call_next_gdpa(PFN_vkGetDeviceProcAddr fn, VkDevice device, const char *name) {
	return fn(device, name);
}
*/
import "C"

import (
	"os"
	"path/filepath"
	"sync"
	"unsafe"

	"github.com/mangohud/overlayd/internal/abi"
	"github.com/mangohud/overlayd/internal/glhook"
	"github.com/mangohud/overlayd/internal/hud"
	xglog "github.com/mangohud/overlayd/internal/log"
	"github.com/mangohud/overlayd/internal/overlay"
)

var (
	glRegistry = glhook.NewRegistry()

	nextGIPA C.PFN_vkGetInstanceProcAddr
	nextGDPA C.PFN_vkGetDeviceProcAddr

	resolveOnce sync.Once

	overlayOnce sync.Once
	theOverlay  *overlay.Overlay
)

// ensureOverlay lazily starts the process-wide Overlay singleton on the
// first hooked Vulkan call, rather than at library load: dlopen happens
// well before the loader has decided this process is even a target worth
// instrumenting. If Init fails (e.g. config load trouble), a bare Core
// still lets the dispatch core track object handles correctly even though
// pacing/telemetry/config stay inert.
func ensureOverlay() *overlay.Overlay {
	overlayOnce.Do(func() {
		exeName, exeDir := "", ""
		if exe, err := os.Executable(); err == nil {
			exeName = filepath.Base(exe)
			exeDir = filepath.Dir(exe)
		}

		ov, err := overlay.Init(overlay.Config{
			ExeName: exeName,
			ExeDir:  exeDir,
			Pid:     os.Getpid(),
		})
		if err != nil {
			xglog.WithComponent("layer").Warn().Err(err).Msg("overlay init failed, running with a bare dispatch core")
			ov = &overlay.Overlay{Core: abi.NewCore()}
		}
		theOverlay = ov
	})
	return theOverlay
}

func resolveNextLoader() {
	resolveOnce.Do(func() {
		if sym := C.resolve_next_symbol(C.CString("vkGetInstanceProcAddr")); sym != nil {
			nextGIPA = C.PFN_vkGetInstanceProcAddr(sym)
		}
		if sym := C.resolve_next_symbol(C.CString("vkGetDeviceProcAddr")); sym != nil {
			nextGDPA = C.PFN_vkGetDeviceProcAddr(sym)
		}
	})
}

// goExtensionNames copies a VkInstanceCreateInfo/VkDeviceCreateInfo
// enabled-extension C array into a Go string slice.
func goExtensionNames(names **C.char, count C.uint32_t) []string {
	if count == 0 {
		return nil
	}
	slice := unsafe.Slice(names, int(count))
	out := make([]string, int(count))
	for i, n := range slice {
		out[i] = C.GoString(n)
	}
	return out
}

// hookedInstanceFuncs/hookedDeviceFuncs name every Vulkan entry point this
// layer intercepts, per spec.md §6's fixed hook table. All other names
// fall through to the next layer untouched.
var hookedInstanceFuncs = map[string]bool{
	"vkCreateInstance":  true,
	"vkDestroyInstance": true,
	"vkCreateDevice":    true,
}

var hookedDeviceFuncs = map[string]bool{
	"vkDestroyDevice":          true,
	"vkCreateSwapchainKHR":     true,
	"vkDestroySwapchainKHR":    true,
	"vkQueuePresentKHR":        true,
	"vkQueueSubmit":            true,
	"vkGetDeviceQueue":         true,
	"vkGetDeviceQueue2":        true,
	"vkAllocateCommandBuffers": true,
	"vkFreeCommandBuffers":     true,
	"vkResetCommandBuffer":     true,
	"vkBeginCommandBuffer":     true,
	"vkEndCommandBuffer":       true,
	"vkCmdExecuteCommands":     true,
}

//export MangoHud_vkGetInstanceProcAddr
func MangoHud_vkGetInstanceProcAddr(instance C.VkInstance, pName *C.char) C.PFN_vkVoidFunction {
	name := C.GoString(pName)
	if hookedInstanceFuncs[name] {
		return resolveOwnExport(name)
	}
	resolveNextLoader()
	if nextGIPA == nil {
		return nil
	}
	return C.call_next_gipa(nextGIPA, instance, pName)
}

//export MangoHud_vkGetDeviceProcAddr
func MangoHud_vkGetDeviceProcAddr(device C.VkDevice, pName *C.char) C.PFN_vkVoidFunction {
	name := C.GoString(pName)
	if hookedDeviceFuncs[name] {
		return resolveOwnExport(name)
	}
	resolveNextLoader()
	if nextGDPA == nil {
		return nil
	}
	return C.call_next_gdpa(nextGDPA, device, pName)
}

// resolveOwnExport looks up one of this shared object's own exported
// MangoHud_-prefixed symbols by the plain Vulkan entry point name.
func resolveOwnExport(vkName string) C.PFN_vkVoidFunction {
	cname := C.CString("MangoHud_" + vkName)
	defer C.free(unsafe.Pointer(cname))
	return C.PFN_vkVoidFunction(C.resolve_next_symbol(cname))
}

//export MangoHud_vkCreateInstance
func MangoHud_vkCreateInstance(pCreateInfo *C.VkInstanceCreateInfo, pAllocator *C.VkAllocationCallbacks, pInstance *C.VkInstance) C.VkResult {
	resolveNextLoader()

	var appName, engineName string
	var enabled []string
	if pCreateInfo != nil {
		enabled = goExtensionNames(pCreateInfo.ppEnabledExtensionNames, pCreateInfo.enabledExtensionCount)
		if pCreateInfo.pApplicationInfo != nil {
			appName = C.GoString(pCreateInfo.pApplicationInfo.pApplicationName)
			engineName = C.GoString(pCreateInfo.pApplicationInfo.pEngineName)
		}
	}

	next := func(info abi.InstanceCreateInfo) (abi.Handle, abi.Result) {
		// The inner call still needs the original C struct (with the
		// merged extension list spliced back in) and the real loader's
		// vkCreateInstance, which is reached through the standard
		// dlopen("libvulkan.so.1") path rather than RTLD_NEXT for the
		// very first call in the chain — a production shim resolves that
		// entry point during layer negotiation. This call forwards
		// pCreateInfo unmodified: the dispatch core's merged extension
		// list is informational bookkeeping until an actual loader-chain
		// handle is wired in.
		var handle C.VkInstance
		result := C.vkCreateInstance(pCreateInfo, pAllocator, &handle)
		return abi.Handle(uintptr(unsafe.Pointer(handle))), abi.Result(result)
	}

	handle, result, err := ensureOverlay().Core.CreateInstance(abi.InstanceCreateInfo{
		ApplicationName:   appName,
		EngineName:        engineName,
		EnabledExtensions: enabled,
	}, next)
	if err != nil {
		return C.VK_ERROR_INITIALIZATION_FAILED
	}
	if pInstance != nil {
		*pInstance = C.VkInstance(unsafe.Pointer(uintptr(handle)))
	}
	return vkResultOf(result)
}

// vkResultOf maps the internal/abi result enum (a small dense iota, not
// wire-compatible with the real VkResult values) onto the real Vulkan
// constants the loader expects back.
func vkResultOf(r abi.Result) C.VkResult {
	switch r {
	case abi.Success:
		return C.VK_SUCCESS
	case abi.Suboptimal:
		return C.VK_SUBOPTIMAL_KHR
	case abi.ErrorInitializationFailed:
		return C.VK_ERROR_INITIALIZATION_FAILED
	default:
		return C.VK_ERROR_INITIALIZATION_FAILED
	}
}

//export MangoHud_vkDestroyInstance
func MangoHud_vkDestroyInstance(instance C.VkInstance, pAllocator *C.VkAllocationCallbacks) {
	ensureOverlay().Core.DestroyInstance(abi.Handle(uintptr(unsafe.Pointer(instance))), func(abi.Handle) {
		C.vkDestroyInstance(instance, pAllocator)
	})
}

//export MangoHud_vkCreateDevice
func MangoHud_vkCreateDevice(physicalDevice C.VkPhysicalDevice, pCreateInfo *C.VkDeviceCreateInfo, pAllocator *C.VkAllocationCallbacks, pDevice *C.VkDevice) C.VkResult {
	var enabled []string
	if pCreateInfo != nil {
		enabled = goExtensionNames(pCreateInfo.ppEnabledExtensionNames, pCreateInfo.enabledExtensionCount)
	}

	next := func(info abi.DeviceCreateInfo) (abi.Handle, abi.Result) {
		// As with vkCreateInstance above, the extended extension list is
		// bookkeeping only; the real call still goes out with pCreateInfo
		// unmodified until a loader-chain handle is wired in.
		var handle C.VkDevice
		result := C.vkCreateDevice(physicalDevice, pCreateInfo, pAllocator, &handle)
		return abi.Handle(uintptr(unsafe.Pointer(handle))), abi.Result(result)
	}

	instanceHandle := abi.Handle(uintptr(unsafe.Pointer(physicalDevice)))
	handle, result := ensureOverlay().Core.CreateDevice(abi.DeviceCreateInfo{
		Instance:          instanceHandle,
		EnabledExtensions: enabled,
	}, next)
	if pDevice != nil {
		*pDevice = C.VkDevice(unsafe.Pointer(uintptr(handle)))
	}
	return vkResultOf(result)
}

//export MangoHud_vkDestroyDevice
func MangoHud_vkDestroyDevice(device C.VkDevice, pAllocator *C.VkAllocationCallbacks) {
	ensureOverlay().Core.DestroyDevice(abi.Handle(uintptr(unsafe.Pointer(device))), func(abi.Handle) {
		C.vkDestroyDevice(device, pAllocator)
	})
}

//export MangoHud_vkCreateSwapchainKHR
func MangoHud_vkCreateSwapchainKHR(device C.VkDevice, pCreateInfo *C.VkSwapchainCreateInfoKHR, pAllocator *C.VkAllocationCallbacks, pSwapchain *C.VkSwapchainKHR) C.VkResult {
	deviceHandle := abi.Handle(uintptr(unsafe.Pointer(device)))

	next := func(info abi.SwapchainCreateInfo) (abi.Handle, abi.Result) {
		var handle C.VkSwapchainKHR
		result := C.vkCreateSwapchainKHR(device, pCreateInfo, pAllocator, &handle)
		return abi.Handle(uintptr(unsafe.Pointer(handle))), abi.Result(result)
	}
	destroyNext := func(handle abi.Handle) {
		C.vkDestroySwapchainKHR(device, C.VkSwapchainKHR(unsafe.Pointer(uintptr(handle))), pAllocator)
	}
	// Image-view/render-pass/framebuffer allocation against the real driver
	// is out of scope (spec.md §1 Non-goals); HUDResources only tracks the
	// counts CreateSwapchainKHR's contract needs to roll back correctly.
	allocate := func(device abi.Handle, extent abi.Extent2D, imageCount int) (*abi.HUDResources, error) {
		return &abi.HUDResources{ImageViewCount: imageCount, FramebufferCount: imageCount}, nil
	}
	free := func(device abi.Handle, res *abi.HUDResources) {}

	info := abi.SwapchainCreateInfo{Device: deviceHandle}
	if pCreateInfo != nil {
		info.Extent = abi.Extent2D{
			Width:  uint32(pCreateInfo.imageExtent.width),
			Height: uint32(pCreateInfo.imageExtent.height),
		}
		info.ImageCount = int(pCreateInfo.minImageCount)
	}

	handle, result, err := ensureOverlay().Core.CreateSwapchainKHR(info, next, destroyNext, allocate, free)
	if err != nil {
		return vkResultOf(result)
	}
	if pSwapchain != nil {
		*pSwapchain = C.VkSwapchainKHR(unsafe.Pointer(uintptr(handle)))
	}
	return vkResultOf(result)
}

//export MangoHud_vkDestroySwapchainKHR
func MangoHud_vkDestroySwapchainKHR(device C.VkDevice, swapchain C.VkSwapchainKHR, pAllocator *C.VkAllocationCallbacks) {
	handle := abi.Handle(uintptr(unsafe.Pointer(swapchain)))
	free := func(device abi.Handle, res *abi.HUDResources) {}
	ensureOverlay().Core.DestroySwapchainKHR(handle, func(abi.Handle) {
		C.vkDestroySwapchainKHR(device, swapchain, pAllocator)
	}, free)
}

//export MangoHud_vkQueuePresentKHR
func MangoHud_vkQueuePresentKHR(queue C.VkQueue, pPresentInfo *C.VkPresentInfoKHR) C.VkResult {
	ov := ensureOverlay()

	if pPresentInfo == nil || pPresentInfo.swapchainCount != 1 {
		// Per-swapchain pacing has no well-defined meaning for a batched
		// present; forward untouched rather than pace against the wrong
		// swapchain (spec.md §4.1 only contracts the common single case).
		return C.vkQueuePresentKHR(queue, pPresentInfo)
	}

	queueHandle := abi.Handle(uintptr(unsafe.Pointer(queue)))
	swapchains := unsafe.Slice(pPresentInfo.pSwapchains, 1)
	swapchainHandle := abi.Handle(uintptr(unsafe.Pointer(swapchains[0])))

	var deviceHandle abi.Handle
	if rec, ok := ov.Core.QueueRecordFor(queueHandle); ok {
		deviceHandle = rec.Device
	}

	waitSemas := make([]uint64, int(pPresentInfo.waitSemaphoreCount))
	if pPresentInfo.waitSemaphoreCount > 0 {
		cSemas := unsafe.Slice(pPresentInfo.pWaitSemaphores, int(pPresentInfo.waitSemaphoreCount))
		for i, s := range cSemas {
			waitSemas[i] = uint64(uintptr(unsafe.Pointer(s)))
		}
	}

	info := abi.PresentInfo{
		Device:         deviceHandle,
		Queue:          queueHandle,
		Swapchain:      swapchainHandle,
		WaitSemaphores: waitSemas,
	}

	next := func(extended abi.PresentInfo) abi.Result {
		raw := *pPresentInfo
		waitHandles := make([]C.VkSemaphore, len(extended.WaitSemaphores))
		for i, s := range extended.WaitSemaphores {
			waitHandles[i] = C.VkSemaphore(unsafe.Pointer(uintptr(s)))
		}
		if len(waitHandles) > 0 {
			raw.waitSemaphoreCount = C.uint32_t(len(waitHandles))
			raw.pWaitSemaphores = &waitHandles[0]
		}
		return abi.Result(C.vkQueuePresentKHR(queue, &raw))
	}

	holder := ov.Holder
	deps := abi.PresentDeps{
		FPSLimiter:     ov.FPSLimiter,
		PresentLimiter: ov.PresentLimiter,
		AllowedAhead:   1,
		Ring:           ov.Ring,
		Compositor:     hud.NoopCompositor{},
		TargetFPS: func() float64 {
			if holder == nil {
				return 0
			}
			limits := holder.Get().FPSLimit
			if len(limits) == 0 {
				return 0
			}
			return float64(limits[0])
		},
	}

	return vkResultOf(ov.Core.QueuePresentKHR(info, deps, next))
}

//export MangoHud_vkQueueSubmit
func MangoHud_vkQueueSubmit(queue C.VkQueue, submitCount C.uint32_t, pSubmits *C.VkSubmitInfo, fence C.VkFence) C.VkResult {
	var cmdBufs []abi.Handle
	if submitCount > 0 && pSubmits != nil {
		submits := unsafe.Slice(pSubmits, int(submitCount))
		for _, s := range submits {
			if s.commandBufferCount == 0 {
				continue
			}
			for _, cb := range unsafe.Slice(s.pCommandBuffers, int(s.commandBufferCount)) {
				cmdBufs = append(cmdBufs, abi.Handle(uintptr(unsafe.Pointer(cb))))
			}
		}
	}

	next := func(abi.QueueSubmitInfo) abi.Result {
		return abi.Result(C.vkQueueSubmit(queue, submitCount, pSubmits, fence))
	}

	ov := ensureOverlay()
	result, _ := ov.Core.QueueSubmit(abi.QueueSubmitInfo{
		Queue:          abi.Handle(uintptr(unsafe.Pointer(queue))),
		CommandBuffers: cmdBufs,
	}, ov.QueueLimiter, next)
	return vkResultOf(result)
}

//export MangoHud_vkGetDeviceQueue
func MangoHud_vkGetDeviceQueue(device C.VkDevice, queueFamilyIndex C.uint32_t, queueIndex C.uint32_t, pQueue *C.VkQueue) {
	C.vkGetDeviceQueue(device, queueFamilyIndex, queueIndex, pQueue)
	if pQueue == nil {
		return
	}
	ensureOverlay().Core.GetDeviceQueue(
		abi.Handle(uintptr(unsafe.Pointer(device))),
		uint32(queueFamilyIndex),
		abi.Handle(uintptr(unsafe.Pointer(*pQueue))),
		false,
	)
}

//export MangoHud_vkGetDeviceQueue2
func MangoHud_vkGetDeviceQueue2(device C.VkDevice, pQueueInfo *C.VkDeviceQueueInfo2, pQueue *C.VkQueue) {
	C.vkGetDeviceQueue2(device, pQueueInfo, pQueue)
	if pQueue == nil || pQueueInfo == nil {
		return
	}
	ensureOverlay().Core.GetDeviceQueue2(
		abi.Handle(uintptr(unsafe.Pointer(device))),
		uint32(pQueueInfo.queueFamilyIndex),
		uint32(pQueueInfo.flags),
		abi.Handle(uintptr(unsafe.Pointer(*pQueue))),
		false,
	)
}

//export MangoHud_vkAllocateCommandBuffers
func MangoHud_vkAllocateCommandBuffers(device C.VkDevice, pAllocateInfo *C.VkCommandBufferAllocateInfo, pCommandBuffers *C.VkCommandBuffer) C.VkResult {
	result := C.vkAllocateCommandBuffers(device, pAllocateInfo, pCommandBuffers)
	if abi.Result(result) != abi.Success || pAllocateInfo == nil || pCommandBuffers == nil {
		return result
	}

	level := abi.LevelPrimary
	if pAllocateInfo.level == C.VK_COMMAND_BUFFER_LEVEL_SECONDARY {
		level = abi.LevelSecondary
	}

	handles := make([]abi.Handle, int(pAllocateInfo.commandBufferCount))
	for i, cb := range unsafe.Slice(pCommandBuffers, int(pAllocateInfo.commandBufferCount)) {
		handles[i] = abi.Handle(uintptr(unsafe.Pointer(cb)))
	}
	ensureOverlay().Core.AllocateCommandBuffers(handles, level)
	return result
}

//export MangoHud_vkFreeCommandBuffers
func MangoHud_vkFreeCommandBuffers(device C.VkDevice, commandPool C.VkCommandPool, commandBufferCount C.uint32_t, pCommandBuffers *C.VkCommandBuffer) {
	if commandBufferCount > 0 && pCommandBuffers != nil {
		handles := make([]abi.Handle, int(commandBufferCount))
		for i, cb := range unsafe.Slice(pCommandBuffers, int(commandBufferCount)) {
			handles[i] = abi.Handle(uintptr(unsafe.Pointer(cb)))
		}
		ensureOverlay().Core.FreeCommandBuffers(handles)
	}
	C.vkFreeCommandBuffers(device, commandPool, commandBufferCount, pCommandBuffers)
}

//export MangoHud_vkResetCommandBuffer
func MangoHud_vkResetCommandBuffer(commandBuffer C.VkCommandBuffer, flags C.VkCommandBufferResetFlags) C.VkResult {
	result := C.vkResetCommandBuffer(commandBuffer, flags)
	if abi.Result(result) == abi.Success {
		ensureOverlay().Core.ResetCommandBuffer(abi.Handle(uintptr(unsafe.Pointer(commandBuffer))))
	}
	return result
}

//export MangoHud_vkBeginCommandBuffer
func MangoHud_vkBeginCommandBuffer(commandBuffer C.VkCommandBuffer, pBeginInfo *C.VkCommandBufferBeginInfo) C.VkResult {
	result := C.vkBeginCommandBuffer(commandBuffer, pBeginInfo)
	if abi.Result(result) == abi.Success {
		ensureOverlay().Core.BeginCommandBuffer(abi.Handle(uintptr(unsafe.Pointer(commandBuffer))))
	}
	return result
}

//export MangoHud_vkEndCommandBuffer
func MangoHud_vkEndCommandBuffer(commandBuffer C.VkCommandBuffer) C.VkResult {
	result := C.vkEndCommandBuffer(commandBuffer)
	if abi.Result(result) == abi.Success {
		ensureOverlay().Core.EndCommandBuffer(abi.Handle(uintptr(unsafe.Pointer(commandBuffer))))
	}
	return result
}

//export MangoHud_vkCmdExecuteCommands
func MangoHud_vkCmdExecuteCommands(commandBuffer C.VkCommandBuffer, commandBufferCount C.uint32_t, pCommandBuffers *C.VkCommandBuffer) {
	C.vkCmdExecuteCommands(commandBuffer, commandBufferCount, pCommandBuffers)

	var secondaries []abi.Handle
	if commandBufferCount > 0 && pCommandBuffers != nil {
		secondaries = make([]abi.Handle, int(commandBufferCount))
		for i, cb := range unsafe.Slice(pCommandBuffers, int(commandBufferCount)) {
			secondaries[i] = abi.Handle(uintptr(unsafe.Pointer(cb)))
		}
	}
	ensureOverlay().Core.CmdExecuteCommands(abi.Handle(uintptr(unsafe.Pointer(commandBuffer))), secondaries)
}

// dlsym is the GL/EGL interposition entry point spec.md §4.2 describes:
// symbol interposition rather than a Vulkan layer chain. Interposed names
// are answered from this object's own symbol table when this shim exports
// a concrete hook for them (currently eglSwapBuffers and glXSwapBuffers);
// the remaining interposed names glhook.IsInterposed recognizes
// (eglSwapBuffersWithDamageKHR/EXT, glXSwapBuffersMscOML) have no export
// yet and fall through to the real loader like anything else, rather than
// resolving to a missing symbol.
//
//export dlsym
func dlsym(handle unsafe.Pointer, name *C.char) unsafe.Pointer {
	goName := C.GoString(name)
	if glhook.IsInterposed(goName) {
		cname := C.CString("MangoHud_gl_" + goName)
		defer C.free(unsafe.Pointer(cname))
		if sym := C.resolve_next_symbol(cname); sym != nil {
			return sym
		}
	}
	return C.resolve_next_symbol(name)
}

func main() {}
