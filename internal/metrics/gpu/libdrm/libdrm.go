// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build linux && cgo

// Package libdrm is the fallback AMD GPU load sampler used when the
// gpu_metrics sysfs blob (internal/metrics/gpu/amdgpu) is unavailable:
// radeonsi/DRM kernels expose GRBM_STATUS through libdrm's
// amdgpu_read_mm_registers ioctl wrapper, which requires an open render
// node fd rather than a handful of dlsym-able symbols, so this package
// links libdrm/libdrm_amdgpu directly via pkg-config instead of the
// dlopen pattern internal/metrics/gpu/nvml uses.
package libdrm

/*
#cgo pkg-config: libdrm libdrm_amdgpu
#include <xf86drm.h>
#include <libdrm/amdgpu.h>
#include <fcntl.h>
#include <unistd.h>
#include <string.h>

#define LIBDRM_GRBM_STATUS 0x8010

static int libdrm_open_render_node(const char *primary_path, char *renderd_out, size_t renderd_out_len) {
	drmDevicePtr devices[32];
	int count = drmGetDevices2(0, devices, 32);
	if (count < 0) return -1;

	int found = -1;
	const int required = (1 << DRM_NODE_PRIMARY) | (1 << DRM_NODE_RENDER);
	for (int i = 0; i < count; i++) {
		if ((devices[i]->available_nodes & required) != required) continue;
		if (devices[i]->nodes[DRM_NODE_PRIMARY] && strcmp(devices[i]->nodes[DRM_NODE_PRIMARY], primary_path) == 0) {
			strncpy(renderd_out, devices[i]->nodes[DRM_NODE_RENDER], renderd_out_len - 1);
			found = 0;
			break;
		}
	}
	drmFreeDevices(devices, count);
	return found;
}

static int libdrm_init(const char *renderd_path, amdgpu_device_handle *handle_out, int *fd_out) {
	int fd = open(renderd_path, O_RDWR);
	if (fd < 0) return -1;

	uint32_t major, minor;
	if (amdgpu_device_initialize(fd, &major, &minor, handle_out)) {
		close(fd);
		return -2;
	}
	*fd_out = fd;
	return 0;
}

static int libdrm_read_busy(amdgpu_device_handle handle) {
	uint32_t reg = 0;
	if (amdgpu_read_mm_registers(handle, LIBDRM_GRBM_STATUS / 4, 1, 0xffffffff, 0, &reg)) {
		return -1;
	}
	return (reg & (1U << 31)) ? 1 : 0;
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// Handle wraps an initialized libdrm amdgpu device bound to one render node.
type Handle struct {
	dev C.amdgpu_device_handle
	fd  C.int
}

// Open resolves primaryPath's render node and initializes libdrm against
// it. primaryPath is the DRM primary (card) node, e.g. "/dev/dri/card0".
func Open(primaryPath string) (*Handle, error) {
	cPrimary := C.CString(primaryPath)
	defer C.free(unsafe.Pointer(cPrimary))

	renderBuf := make([]byte, 256)
	cRender := (*C.char)(unsafe.Pointer(&renderBuf[0]))
	if rc := C.libdrm_open_render_node(cPrimary, cRender, C.size_t(len(renderBuf))); rc != 0 {
		return nil, fmt.Errorf("libdrm: no render node found for %q", primaryPath)
	}

	var handle C.amdgpu_device_handle
	var fd C.int
	if rc := C.libdrm_init(cRender, &handle, &fd); rc != 0 {
		return nil, fmt.Errorf("libdrm: amdgpu_device_initialize failed (rc=%d)", int(rc))
	}
	return &Handle{dev: handle, fd: fd}, nil
}

// Busy polls GRBM_STATUS once and reports whether the busy bit (bit 31) is
// set.
func (h *Handle) Busy() (bool, error) {
	rc := C.libdrm_read_busy(h.dev)
	if rc < 0 {
		return false, fmt.Errorf("libdrm: amdgpu_read_mm_registers failed")
	}
	return rc == 1, nil
}

// Close releases the render node fd.
func (h *Handle) Close() {
	C.close(h.fd)
}
