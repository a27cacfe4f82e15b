// SPDX-License-Identifier: MIT

package gpu

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordSample(t *testing.T) {
	Load.Reset()
	VRAMUsedBytes.Reset()
	VRAMTotalBytes.Reset()
	PowerWatts.Reset()
	FanRPM.Reset()

	RecordSample("renderD128", "amdgpu", 75.5, 1800e6, 1000e6, 512*1024*1024, 8*1024*1024*1024, 180.2, 1800)

	if got := testutil.ToFloat64(Load.WithLabelValues("renderD128", "amdgpu")); got != 75.5 {
		t.Errorf("Load = %f, want 75.5", got)
	}
	if got := testutil.ToFloat64(VRAMUsedBytes.WithLabelValues("renderD128")); got != 512*1024*1024 {
		t.Errorf("VRAMUsedBytes = %f, want %d", got, 512*1024*1024)
	}
	if got := testutil.ToFloat64(PowerWatts.WithLabelValues("renderD128")); got != 180.2 {
		t.Errorf("PowerWatts = %f, want 180.2", got)
	}
}

func TestRecordTemperature(t *testing.T) {
	Temperature.Reset()

	RecordTemperature("renderD128", "edge", 62.0)
	RecordTemperature("renderD128", "junction", 71.5)

	if got := testutil.ToFloat64(Temperature.WithLabelValues("renderD128", "edge")); got != 62.0 {
		t.Errorf("edge temperature = %f, want 62.0", got)
	}
	if got := testutil.ToFloat64(Temperature.WithLabelValues("renderD128", "junction")); got != 71.5 {
		t.Errorf("junction temperature = %f, want 71.5", got)
	}
}

func TestIncSampleError(t *testing.T) {
	SampleErrorsTotal.Reset()

	IncSampleError("renderD128", "nvml")
	IncSampleError("renderD128", "nvml")

	if got := testutil.ToFloat64(SampleErrorsTotal.WithLabelValues("renderD128", "nvml")); got != 2 {
		t.Errorf("SampleErrorsTotal = %f, want 2", got)
	}
}

func TestRecordThrottle(t *testing.T) {
	ThrottleTotal.Reset()

	RecordThrottle("renderD128", "power", false)
	RecordThrottle("renderD128", "power", true)
	RecordThrottle("renderD128", "power", true)

	if got := testutil.ToFloat64(ThrottleTotal.WithLabelValues("renderD128", "power")); got != 2 {
		t.Errorf("ThrottleTotal = %f, want 2 (inactive samples must not increment)", got)
	}
}

func TestRecordPowerLimit(t *testing.T) {
	PowerLimitWatts.Reset()

	RecordPowerLimit("renderD128", 320.0)

	if got := testutil.ToFloat64(PowerLimitWatts.WithLabelValues("renderD128")); got != 320.0 {
		t.Errorf("PowerLimitWatts = %f, want 320.0", got)
	}
}

func TestMetricNames(t *testing.T) {
	tests := []struct {
		name         string
		metric       prometheus.Collector
		expectedDesc string
	}{
		{"Load", Load, "mangohud_gpu_load_percent"},
		{"Temperature", Temperature, "mangohud_gpu_temperature_celsius"},
		{"CoreClockHz", CoreClockHz, "mangohud_gpu_core_clock_hz"},
		{"VRAMUsedBytes", VRAMUsedBytes, "mangohud_gpu_vram_used_bytes"},
		{"PowerWatts", PowerWatts, "mangohud_gpu_power_watts"},
		{"SampleErrorsTotal", SampleErrorsTotal, "mangohud_gpu_sample_errors_total"},
		{"ThrottleTotal", ThrottleTotal, "mangohud_gpu_throttle_total"},
		{"PowerLimitWatts", PowerLimitWatts, "mangohud_gpu_power_limit_watts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			reg.MustRegister(tt.metric)

			metricFamilies, err := reg.Gather()
			if err != nil {
				t.Fatalf("failed to gather metrics: %v", err)
			}

			found := false
			for _, mf := range metricFamilies {
				if mf.GetName() == tt.expectedDesc {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected metric %s not found", tt.expectedDesc)
			}
		})
	}
}

func BenchmarkRecordSample(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		RecordSample("renderD128", "amdgpu", 75.5, 1800e6, 1000e6, 512*1024*1024, 8*1024*1024*1024, 180.2, 1800)
	}
}
