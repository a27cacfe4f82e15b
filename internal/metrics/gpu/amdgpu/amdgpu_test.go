// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package amdgpu

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckVersion(t *testing.T) {
	cases := []struct {
		name   string
		h      Header
		accept bool
	}{
		{"v1_0 rejected unconditionally", Header{StructureSize: 80, FormatRevision: 1}, false},
		{"v1_1 accepted", Header{StructureSize: 96, FormatRevision: 1}, true},
		{"v1_2 accepted", Header{StructureSize: 104, FormatRevision: 2}, true},
		{"v1_3 accepted", Header{StructureSize: sizeV1_3, FormatRevision: 1}, true},
		{"v2_2 accepted", Header{StructureSize: sizeV2_2, FormatRevision: 2}, true},
		{"unknown size rejected", Header{StructureSize: 200, FormatRevision: 1}, false},
		{"known size, unknown revision rejected", Header{StructureSize: sizeV1_3, FormatRevision: 3}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.accept, CheckVersion(tc.h))
		})
	}
}

// buildV13Blob constructs a synthetic gpu_metrics_v1_3 blob with the fields
// scenario S4 specifies, zeroing everything else.
func buildV13Blob(t *testing.T, gfxActivity, socketPower, gfxclk, uclk, tempEdge uint16, indepThrottle uint64) []byte {
	t.Helper()
	buf := make([]byte, sizeV1_3)
	binary.LittleEndian.PutUint16(buf[0:2], sizeV1_3)
	buf[2] = 1 // format_revision
	buf[3] = 3 // content_revision
	binary.LittleEndian.PutUint16(buf[offV13TemperatureEdge:], tempEdge)
	binary.LittleEndian.PutUint16(buf[offV13AverageGfxActivity:], gfxActivity)
	binary.LittleEndian.PutUint16(buf[offV13AverageSocketPower:], socketPower)
	binary.LittleEndian.PutUint16(buf[offV13CurrentGfxclk:], gfxclk)
	binary.LittleEndian.PutUint16(buf[offV13CurrentUclk:], uclk)
	binary.LittleEndian.PutUint64(buf[offV13IndepThrottle:], indepThrottle)
	return buf
}

// TestParseInstant_ScenarioS4 matches spec.md §8 Scenario S4 exactly.
func TestParseInstant_ScenarioS4(t *testing.T) {
	buf := buildV13Blob(t, 6400, 33, 2165, 1000, 36, 0)

	inst, err := ParseInstant(buf)
	require.NoError(t, err)

	assert.Equal(t, 64.0, inst.LoadPercent)
	assert.Equal(t, 33.0, inst.PowerW)
	assert.Equal(t, 2165.0, inst.CoreClockMHz)
	assert.Equal(t, 1000.0, inst.MemClockMHz)
	assert.Equal(t, 36.0, inst.GPUTempC)
	assert.False(t, inst.Throttle.Power)
	assert.False(t, inst.Throttle.Current)
	assert.False(t, inst.Throttle.Temp)
	assert.False(t, inst.Throttle.Other)
	assert.False(t, inst.IsAPU)
}

func TestParseInstant_LoadBelow100NotDivided(t *testing.T) {
	buf := buildV13Blob(t, 64, 33, 2165, 1000, 36, 0)
	inst, err := ParseInstant(buf)
	require.NoError(t, err)
	assert.Equal(t, 64.0, inst.LoadPercent)
}

func TestThrottleFromBits(t *testing.T) {
	var bits uint64
	bits |= 1 << 0          // power byte, bit 0
	bits |= 1 << 16         // current byte, bit 0
	bits |= 1 << 32         // temp word, bit 0
	bits |= 1 << 56         // other byte, bit 0

	thr := throttleFromBits(bits)
	assert.True(t, thr.Power)
	assert.True(t, thr.Current)
	assert.True(t, thr.Temp)
	assert.True(t, thr.Other)
}

func TestParseInstant_APUPath(t *testing.T) {
	buf := make([]byte, sizeV2_2)
	binary.LittleEndian.PutUint16(buf[0:2], sizeV2_2)
	buf[2] = 2 // format_revision: APU
	buf[3] = 1
	binary.LittleEndian.PutUint16(buf[offV22TemperatureGfx:], 4500) // 45.00C
	binary.LittleEndian.PutUint16(buf[offV22AverageGfxActivity:], 50)
	binary.LittleEndian.PutUint16(buf[offV22AverageGfxPower:], 8000)  // 8W
	binary.LittleEndian.PutUint16(buf[offV22AverageCPUPower:], 12000) // 12W
	binary.LittleEndian.PutUint16(buf[offV22CurrentGfxclk:], 1800)
	binary.LittleEndian.PutUint16(buf[offV22CurrentUclk:], 1333)

	inst, err := ParseInstant(buf)
	require.NoError(t, err)
	assert.True(t, inst.IsAPU)
	assert.Equal(t, 45.0, inst.GPUTempC)
	assert.Equal(t, 20.0, inst.PowerW)
	assert.Equal(t, 50.0, inst.LoadPercent)
	assert.Equal(t, 1800.0, inst.CoreClockMHz)
	assert.Equal(t, 1333.0, inst.MemClockMHz)
}

func TestParseHeader_TooShort(t *testing.T) {
	_, err := ParseHeader([]byte{1, 2})
	assert.Error(t, err)
}

func TestProbe(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/gpu_metrics"
	require.NoError(t, os.WriteFile(path, buildV13Blob(t, 10, 10, 10, 10, 10, 0), 0o600))
	assert.True(t, Probe(path))
	assert.False(t, Probe(dir+"/missing"))
}
