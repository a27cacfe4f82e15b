// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build linux && cgo

// Package nvml samples NVIDIA GPU telemetry via NVML, loaded with dlopen
// at runtime so the overlay has no compile-time or load-time dependency on
// libnvidia-ml: a machine with no NVIDIA driver installed simply never
// finds the library and this sampler reports itself unavailable.
package nvml

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stddef.h>

typedef int nvmlReturn_t;
typedef void* nvmlDevice_t;

typedef struct {
	unsigned long long total;
	unsigned long long free;
	unsigned long long used;
} nvmlMemory_t;

typedef struct {
	unsigned int gpu;
	unsigned int memory;
} nvmlUtilization_t;

static void *nvml_lib = NULL;

typedef nvmlReturn_t (*init_t)(void);
typedef nvmlReturn_t (*shutdown_t)(void);
typedef nvmlReturn_t (*get_by_pci_t)(const char*, nvmlDevice_t*);
typedef nvmlReturn_t (*get_by_index_t)(unsigned int, nvmlDevice_t*);
typedef nvmlReturn_t (*get_util_t)(nvmlDevice_t, nvmlUtilization_t*);
typedef nvmlReturn_t (*get_temp_t)(nvmlDevice_t, int, unsigned int*);
typedef nvmlReturn_t (*get_mem_t)(nvmlDevice_t, nvmlMemory_t*);
typedef nvmlReturn_t (*get_clock_t)(nvmlDevice_t, int, unsigned int*);
typedef nvmlReturn_t (*get_power_t)(nvmlDevice_t, unsigned int*);
typedef nvmlReturn_t (*get_power_limit_t)(nvmlDevice_t, unsigned int*);
typedef nvmlReturn_t (*get_fan_t)(nvmlDevice_t, unsigned int*);
typedef nvmlReturn_t (*get_throttle_t)(nvmlDevice_t, unsigned long long*);

static init_t f_init;
static shutdown_t f_shutdown;
static get_by_pci_t f_get_by_pci;
static get_by_index_t f_get_by_index;
static get_util_t f_get_util;
static get_temp_t f_get_temp;
static get_mem_t f_get_mem;
static get_clock_t f_get_clock;
static get_power_t f_get_power;
static get_power_limit_t f_get_power_limit;
static get_fan_t f_get_fan;
static get_throttle_t f_get_throttle;

static int nvml_load(void) {
	nvml_lib = dlopen("libnvidia-ml.so.1", RTLD_LAZY);
	if (!nvml_lib) nvml_lib = dlopen("libnvidia-ml.so", RTLD_LAZY);
	if (!nvml_lib) return -1;

	f_init = (init_t)dlsym(nvml_lib, "nvmlInit_v2");
	f_shutdown = (shutdown_t)dlsym(nvml_lib, "nvmlShutdown");
	f_get_by_pci = (get_by_pci_t)dlsym(nvml_lib, "nvmlDeviceGetHandleByPciBusId_v2");
	f_get_by_index = (get_by_index_t)dlsym(nvml_lib, "nvmlDeviceGetHandleByIndex_v2");
	f_get_util = (get_util_t)dlsym(nvml_lib, "nvmlDeviceGetUtilizationRates");
	f_get_temp = (get_temp_t)dlsym(nvml_lib, "nvmlDeviceGetTemperature");
	f_get_mem = (get_mem_t)dlsym(nvml_lib, "nvmlDeviceGetMemoryInfo");
	f_get_clock = (get_clock_t)dlsym(nvml_lib, "nvmlDeviceGetClockInfo");
	f_get_power = (get_power_t)dlsym(nvml_lib, "nvmlDeviceGetPowerUsage");
	f_get_power_limit = (get_power_limit_t)dlsym(nvml_lib, "nvmlDeviceGetPowerManagementLimit");
	f_get_fan = (get_fan_t)dlsym(nvml_lib, "nvmlDeviceGetFanSpeed");
	f_get_throttle = (get_throttle_t)dlsym(nvml_lib, "nvmlDeviceGetCurrentClocksThrottleReasons");

	if (!f_init || !f_get_by_index) return -2;
	return f_init();
}

static nvmlDevice_t nvml_resolve_device(const char *pci_bus_id) {
	nvmlDevice_t dev = NULL;
	if (pci_bus_id && pci_bus_id[0] && f_get_by_pci) {
		if (f_get_by_pci(pci_bus_id, &dev) == 0) return dev;
	}
	if (f_get_by_index(0, &dev) == 0) return dev;
	return NULL;
}

static int nvml_sample(nvmlDevice_t dev, unsigned int *util, unsigned int *temp_gpu,
	unsigned long long *mem_used, unsigned long long *mem_total,
	unsigned int *core_clk, unsigned int *mem_clk,
	unsigned int *power_mw, unsigned int *power_limit_mw, unsigned int *fan_pct,
	unsigned long long *throttle_bits) {
	nvmlUtilization_t u = {0};
	nvmlMemory_t m = {0};
	if (f_get_util) { if (f_get_util(dev, &u) == 0) *util = u.gpu; }
	if (f_get_temp) f_get_temp(dev, 0, temp_gpu); // NVML_TEMPERATURE_GPU
	if (f_get_mem) { if (f_get_mem(dev, &m) == 0) { *mem_used = m.used; *mem_total = m.total; } }
	if (f_get_clock) {
		f_get_clock(dev, 0, core_clk); // NVML_CLOCK_GRAPHICS
		f_get_clock(dev, 2, mem_clk); // NVML_CLOCK_MEM
	}
	if (f_get_power) f_get_power(dev, power_mw);
	if (f_get_power_limit) f_get_power_limit(dev, power_limit_mw);
	if (f_get_fan) f_get_fan(dev, fan_pct);
	if (f_get_throttle) f_get_throttle(dev, throttle_bits);
	return 0;
}

static void nvml_unload(void) {
	if (f_shutdown) f_shutdown();
	if (nvml_lib) dlclose(nvml_lib);
	nvml_lib = NULL;
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// Instant is one raw NVML poll, before the rolling-window reduction.
type Instant struct {
	LoadPercent  float64
	TempC        float64
	VRAMUsedGiB  float64
	VRAMTotalGiB float64
	CoreClockMHz float64
	MemClockMHz  float64
	PowerW       float64
	PowerLimitW  float64
	FanPercent   float64
	Throttle     Throttle
}

// Throttle mirrors NVML's nvmlClocksThrottleReasons bitmask, grouped per
// spec.md §4.4's temp/power/other classification.
type Throttle struct {
	Power, Temp, Other bool
}

const (
	reasonTempBits  = 0x60
	reasonPowerBits = 0x8C
	reasonOtherBits = 0x112
)

func throttleFromReasons(bits uint64) Throttle {
	return Throttle{
		Temp:  bits&reasonTempBits != 0,
		Power: bits&reasonPowerBits != 0,
		Other: bits&reasonOtherBits != 0,
	}
}

// Handle wraps an initialized NVML session bound to a single device.
type Handle struct {
	dev C.nvmlDevice_t
}

// Open initializes NVML and resolves a device by PCI bus id, falling back
// to device index 0 per spec.md §4.4. Returns an error (never panics) if
// NVML cannot be loaded — absence of an NVIDIA GPU is not fatal to the
// overlay.
func Open(pciBusID string) (*Handle, error) {
	if rc := C.nvml_load(); rc != 0 {
		return nil, fmt.Errorf("nvml: libnvidia-ml not available (rc=%d)", int(rc))
	}

	var cBusID *C.char
	if pciBusID != "" {
		cBusID = C.CString(pciBusID)
		defer C.free(unsafe.Pointer(cBusID))
	}

	dev := C.nvml_resolve_device(cBusID)
	if dev == nil {
		C.nvml_unload()
		return nil, fmt.Errorf("nvml: no device found (pci_bus_id=%q)", pciBusID)
	}
	return &Handle{dev: dev}, nil
}

// Sample polls every NVML field this sampler understands in one call.
func (h *Handle) Sample() Instant {
	var util, tempGPU, coreClk, memClk, powerMW, powerLimitMW, fanPct C.uint
	var memUsed, memTotal, throttleBits C.ulonglong

	C.nvml_sample(h.dev, &util, &tempGPU, &memUsed, &memTotal, &coreClk, &memClk,
		&powerMW, &powerLimitMW, &fanPct, &throttleBits)

	return Instant{
		LoadPercent:  float64(util),
		TempC:        float64(tempGPU),
		VRAMUsedGiB:  float64(memUsed) / (1 << 30),
		VRAMTotalGiB: float64(memTotal) / (1 << 30),
		CoreClockMHz: float64(coreClk),
		MemClockMHz:  float64(memClk),
		PowerW:       float64(powerMW) / 1000.0,
		PowerLimitW:  float64(powerLimitMW) / 1000.0,
		FanPercent:   float64(fanPct),
		Throttle:     throttleFromReasons(uint64(throttleBits)),
	}
}

// Close shuts down the NVML session.
func (h *Handle) Close() {
	C.nvml_unload()
}
