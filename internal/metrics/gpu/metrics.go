// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package gpu exposes vendor-agnostic Prometheus gauges fed by whichever
// vendor sampler (AMDGPU, NVML, libdrm, Intel, MSM) is active for the
// current device. The label set is the lowest common denominator across
// vendors; a sampler that cannot measure a field simply never calls its
// setter, leaving the gauge at its zero value.
package gpu

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Load = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mangohud",
			Subsystem: "gpu",
			Name:      "load_percent",
			Help:      "GPU core load percentage (0-100)",
		},
		[]string{"device", "vendor"},
	)

	Temperature = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mangohud",
			Subsystem: "gpu",
			Name:      "temperature_celsius",
			Help:      "GPU junction/edge temperature in Celsius",
		},
		[]string{"device", "sensor"}, // sensor: "edge"|"junction"|"mem"
	)

	CoreClockHz = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mangohud",
			Subsystem: "gpu",
			Name:      "core_clock_hz",
			Help:      "GPU core clock frequency in Hz",
		},
		[]string{"device"},
	)

	MemClockHz = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mangohud",
			Subsystem: "gpu",
			Name:      "mem_clock_hz",
			Help:      "GPU memory clock frequency in Hz",
		},
		[]string{"device"},
	)

	VRAMUsedBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mangohud",
			Subsystem: "gpu",
			Name:      "vram_used_bytes",
			Help:      "GPU VRAM currently in use, in bytes",
		},
		[]string{"device"},
	)

	VRAMTotalBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mangohud",
			Subsystem: "gpu",
			Name:      "vram_total_bytes",
			Help:      "GPU VRAM total capacity, in bytes",
		},
		[]string{"device"},
	)

	PowerWatts = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mangohud",
			Subsystem: "gpu",
			Name:      "power_watts",
			Help:      "GPU board power draw in watts",
		},
		[]string{"device"},
	)

	PowerLimitWatts = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mangohud",
			Subsystem: "gpu",
			Name:      "power_limit_watts",
			Help:      "GPU power management limit in watts, where the backend exposes one",
		},
		[]string{"device"},
	)

	FanRPM = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mangohud",
			Subsystem: "gpu",
			Name:      "fan_rpm",
			Help:      "GPU fan speed in RPM",
		},
		[]string{"device"},
	)

	SampleErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mangohud",
			Subsystem: "gpu",
			Name:      "sample_errors_total",
			Help:      "Total sampler read failures by device and vendor backend",
		},
		[]string{"device", "vendor"},
	)

	ThrottleTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mangohud",
			Subsystem: "gpu",
			Name:      "throttle_total",
			Help:      "Total sampling windows in which the GPU reported a throttle reason",
		},
		[]string{"device", "reason"}, // reason: power|current|temp|other
	)
)

// RecordSample updates every gauge from a single poll of one device.
// Every gauge is written; a field the backend can't measure is passed as
// zero and published as zero.
func RecordSample(device, vendor string, loadPct, coreHz, memHz float64, vramUsed, vramTotal int64, watts, fanRPM float64) {
	Load.WithLabelValues(device, vendor).Set(loadPct)
	CoreClockHz.WithLabelValues(device).Set(coreHz)
	MemClockHz.WithLabelValues(device).Set(memHz)
	VRAMUsedBytes.WithLabelValues(device).Set(float64(vramUsed))
	VRAMTotalBytes.WithLabelValues(device).Set(float64(vramTotal))
	PowerWatts.WithLabelValues(device).Set(watts)
	FanRPM.WithLabelValues(device).Set(fanRPM)
}

// RecordPowerLimit updates the power management limit gauge for device, for
// backends (currently only NVML) that expose one.
func RecordPowerLimit(device string, watts float64) {
	PowerLimitWatts.WithLabelValues(device).Set(watts)
}

// RecordTemperature updates a single temperature sensor reading for device.
func RecordTemperature(device, sensor string, celsius float64) {
	Temperature.WithLabelValues(device, sensor).Set(celsius)
}

// IncSampleError records a failed poll attempt for device/vendor.
func IncSampleError(device, vendor string) {
	SampleErrorsTotal.WithLabelValues(device, vendor).Inc()
}

// RecordThrottle increments the diagnostic per-reason throttle counter for
// device when a reduced sampling window reports that reason active. This
// supplements spec.md's boolean throttle flags with a cumulative counter
// (SPEC_FULL §4.4) for HUD/debug display of how often each reason fires.
func RecordThrottle(device, reason string, active bool) {
	if active {
		ThrottleTotal.WithLabelValues(device, reason).Inc()
	}
}
