// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package amdgpu

import (
	"context"
	"time"

	"github.com/mangohud/overlayd/internal/metrics/gpu"
)

// sampleCount matches spec.md §4.4: a 500ms update period over a 5ms
// polling period yields a 100-sample rolling window.
const (
	pollingPeriod = 5 * time.Millisecond
	updatePeriod  = 500 * time.Millisecond
	sampleCount   = int(updatePeriod / pollingPeriod)
)

// Sampler polls a gpu_metrics sysfs path on a fixed period and reduces the
// rolling window into the vendor-agnostic GPU snapshot gauges.
type Sampler struct {
	path   string
	device string
	buf    []Instant
}

// NewSampler returns a sampler for the gpu_metrics file at path, labeling
// published gauges with device.
func NewSampler(path, device string) *Sampler {
	return &Sampler{path: path, device: device, buf: make([]Instant, 0, sampleCount)}
}

// Run polls until ctx is canceled, publishing a reduced snapshot every
// sampleCount raw samples (~500ms). Read errors are swallowed per-sample
// (spec.md §7 "transient driver error"); a persistent failure simply never
// advances the published gauges.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(pollingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			inst, err := ReadMetricsFile(s.path)
			if err != nil {
				gpu.IncSampleError(s.device, "amdgpu")
				continue
			}
			s.buf = append(s.buf, inst)
			if len(s.buf) >= sampleCount {
				s.publish()
				s.buf = s.buf[:0]
			}
		}
	}
}

// publish reduces the buffered window per spec.md §4.4: arithmetic mean for
// loads/clocks/temperatures/power, logical OR for throttle flags.
func (s *Sampler) publish() {
	var loadSum, powerSum, coreSum, memSum, tempSum float64
	var thr Throttle
	n := float64(len(s.buf))
	for _, v := range s.buf {
		loadSum += v.LoadPercent
		powerSum += v.PowerW
		coreSum += v.CoreClockMHz
		memSum += v.MemClockMHz
		tempSum += v.GPUTempC
		thr.Power = thr.Power || v.Throttle.Power
		thr.Current = thr.Current || v.Throttle.Current
		thr.Temp = thr.Temp || v.Throttle.Temp
		thr.Other = thr.Other || v.Throttle.Other
	}

	gpu.RecordSample(s.device, "amdgpu", loadSum/n, coreSum/n*1e6, memSum/n*1e6, 0, 0, powerSum/n, 0)
	gpu.RecordTemperature(s.device, "edge", tempSum/n)
	gpu.RecordThrottle(s.device, "power", thr.Power)
	gpu.RecordThrottle(s.device, "current", thr.Current)
	gpu.RecordThrottle(s.device, "temp", thr.Temp)
	gpu.RecordThrottle(s.device, "other", thr.Other)
}
