// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package amdgpu reads the AMDGPU driver's binary gpu_metrics blob
// (normally exposed at /sys/class/drm/card*/device/gpu_metrics) and
// reduces a rolling window of raw samples into the shared GPU snapshot.
//
// The structure layouts below are transcribed byte-offset-by-byte from
// the kernel's amdgpu_smu.h gpu_metrics_v1_3/v2_2 tables rather than read
// via a tagged Go struct, since Go's struct alignment for mixed
// uint16/uint32/uint64 fields is not guaranteed to match a foreign C ABI.
package amdgpu

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Header mirrors struct metrics_table_header: 2 bytes size + 2 bytes
// revision, always at the start of the blob regardless of version.
type Header struct {
	StructureSize   uint16
	FormatRevision  uint8
	ContentRevision uint8
}

const headerSize = 4

// Recognized structure sizes, named for the kernel table version that
// produces them. v1_0 (80 bytes) is deliberately excluded: it predates
// natural alignment and is rejected outright.
const (
	sizeV1_0 = 80
	sizeV1_1 = 96
	sizeV1_2 = 104
	sizeV1_3 = 120 // also covers v2_0/v2_1, which reuse the v1_3 layout
	sizeV2_2 = 128
)

// byte offsets into the v1_3 layout (format_revision == 1, discrete GPUs).
const (
	offV13TemperatureEdge    = 4
	offV13AverageGfxActivity = 16
	offV13AverageSocketPower = 22
	offV13CurrentGfxclk      = 54
	offV13CurrentUclk        = 58
	offV13IndepThrottle      = 112
)

// byte offsets into the v2_2 layout (format_revision == 2, APUs).
const (
	offV22TemperatureGfx     = 4
	offV22AverageGfxActivity = 28
	offV22AverageCPUPower    = 42
	offV22AverageGfxPower    = 46
	offV22CurrentGfxclk      = 76
	offV22CurrentUclk        = 80
	offV22IndepThrottle      = 120
)

// Throttle bit layout of indep_throttle_status, per
// amdgpu_smu.h's ASIC-independent throttle status: byte 0 power, byte 2
// current, bytes 4-5 temperature, byte 7 other.
type Throttle struct {
	Power, Current, Temp, Other bool
}

func throttleFromBits(v uint64) Throttle {
	return Throttle{
		Power:   (v>>0)&0xFF != 0,
		Current: (v>>16)&0xFF != 0,
		Temp:    (v>>32)&0xFFFF != 0,
		Other:   (v>>56)&0xFF != 0,
	}
}

// Instant is one raw gpu_metrics poll, before the 100-sample reduction.
type Instant struct {
	LoadPercent   float64
	PowerW        float64
	CoreClockMHz  float64
	MemClockMHz   float64
	GPUTempC      float64
	Throttle      Throttle
	IsAPU         bool
}

// CheckVersion reports whether header describes a gpu_metrics structure
// this sampler knows how to parse, matching spec.md's version gate
// (invariant #10): 80 is rejected, {96,104,120,128} with
// format_revision in {1,2} are accepted, everything else is rejected.
func CheckVersion(h Header) bool {
	switch h.StructureSize {
	case sizeV1_0:
		return false
	case sizeV1_1, sizeV1_2, sizeV1_3, sizeV2_2:
		return h.FormatRevision == 1 || h.FormatRevision == 2
	default:
		return false
	}
}

// ParseHeader reads just the metrics_table_header from buf.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < headerSize {
		return Header{}, fmt.Errorf("gpu_metrics blob too short for header: %d bytes", len(buf))
	}
	return Header{
		StructureSize:   binary.LittleEndian.Uint16(buf[0:2]),
		FormatRevision:  buf[2],
		ContentRevision: buf[3],
	}, nil
}

// ParseInstant decodes one gpu_metrics blob into an Instant sample. The
// caller must have already validated the header with CheckVersion.
func ParseInstant(buf []byte) (Instant, error) {
	h, err := ParseHeader(buf)
	if err != nil {
		return Instant{}, err
	}
	if !CheckVersion(h) {
		return Instant{}, fmt.Errorf("unsupported gpu_metrics version %d.%d (size %d)", h.FormatRevision, h.ContentRevision, h.StructureSize)
	}

	var inst Instant
	le := binary.LittleEndian

	switch h.FormatRevision {
	case 1:
		if len(buf) < sizeV1_3 {
			return Instant{}, fmt.Errorf("gpu_metrics v1_3 blob truncated: %d bytes", len(buf))
		}
		loadRaw := le.Uint16(buf[offV13AverageGfxActivity:])
		inst.LoadPercent = centipercentToPercent(loadRaw)
		inst.PowerW = float64(le.Uint16(buf[offV13AverageSocketPower:]))
		inst.CoreClockMHz = float64(le.Uint16(buf[offV13CurrentGfxclk:]))
		inst.MemClockMHz = float64(le.Uint16(buf[offV13CurrentUclk:]))
		inst.GPUTempC = float64(le.Uint16(buf[offV13TemperatureEdge:]))
		inst.Throttle = throttleFromBits(le.Uint64(buf[offV13IndepThrottle:]))
	case 2:
		if len(buf) < sizeV2_2 {
			return Instant{}, fmt.Errorf("gpu_metrics v2_2 blob truncated: %d bytes", len(buf))
		}
		inst.IsAPU = true
		loadRaw := le.Uint16(buf[offV22AverageGfxActivity:])
		inst.LoadPercent = centipercentToPercent(loadRaw)
		gfxPowerMW := le.Uint16(buf[offV22AverageGfxPower:])
		cpuPowerMW := le.Uint16(buf[offV22AverageCPUPower:])
		inst.PowerW = float64(gfxPowerMW)/1000.0 + float64(cpuPowerMW)/1000.0
		inst.CoreClockMHz = float64(le.Uint16(buf[offV22CurrentGfxclk:]))
		inst.MemClockMHz = float64(le.Uint16(buf[offV22CurrentUclk:]))
		inst.GPUTempC = float64(le.Uint16(buf[offV22TemperatureGfx:])) / 100.0
		inst.Throttle = throttleFromBits(le.Uint64(buf[offV22IndepThrottle:]))
	default:
		return Instant{}, fmt.Errorf("unreachable: format_revision %d passed CheckVersion", h.FormatRevision)
	}
	return inst, nil
}

// centipercentToPercent matches the original sampler's runtime detection of
// GPUs that report load in centipercent (0-10000) rather than percent
// (0-100): any raw value over 100 is assumed centipercent and divided.
func centipercentToPercent(raw uint16) float64 {
	v := float64(raw)
	if v > 100 {
		v /= 100
	}
	return v
}

// ReadMetricsFile reads and parses one instant sample from path (normally
// /sys/class/drm/card*/device/gpu_metrics).
func ReadMetricsFile(path string) (Instant, error) {
	buf, err := os.ReadFile(path) // #nosec G304 -- path is a driver-exposed sysfs file chosen at init
	if err != nil {
		return Instant{}, fmt.Errorf("read gpu_metrics: %w", err)
	}
	return ParseInstant(buf)
}

// Probe reports whether path points at a gpu_metrics blob this sampler
// supports, without fully parsing it. Used at startup capability probing.
func Probe(path string) bool {
	buf, err := os.ReadFile(path) // #nosec G304 -- fixed sysfs path chosen at init
	if err != nil {
		return false
	}
	h, err := ParseHeader(buf)
	if err != nil {
		return false
	}
	return CheckVersion(h)
}
