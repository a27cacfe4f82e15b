// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package nvml

import (
	"context"
	"time"

	"github.com/mangohud/overlayd/internal/metrics/gpu"
)

const (
	pollingPeriod = 5 * time.Millisecond
	updatePeriod  = 500 * time.Millisecond
	sampleCount   = int(updatePeriod / pollingPeriod)
)

// Sampler reduces a rolling window of NVML polls into the shared GPU
// snapshot gauges, same cadence and reduction rules as the AMDGPU sampler.
type Sampler struct {
	handle *Handle
	device string
	buf    []Instant
}

// NewSampler wraps an already-open Handle.
func NewSampler(handle *Handle, device string) *Sampler {
	return &Sampler{handle: handle, device: device, buf: make([]Instant, 0, sampleCount)}
}

// Run polls until ctx is canceled.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(pollingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.buf = append(s.buf, s.handle.Sample())
			if len(s.buf) >= sampleCount {
				s.publish()
				s.buf = s.buf[:0]
			}
		}
	}
}

func (s *Sampler) publish() {
	var loadSum, tempSum, coreSum, memSum, powerSum, powerLimitSum, vramUsedSum, vramTotalSum, fanSum float64
	var thr Throttle
	n := float64(len(s.buf))
	for _, v := range s.buf {
		loadSum += v.LoadPercent
		tempSum += v.TempC
		coreSum += v.CoreClockMHz
		memSum += v.MemClockMHz
		powerSum += v.PowerW
		powerLimitSum += v.PowerLimitW
		vramUsedSum += v.VRAMUsedGiB
		vramTotalSum += v.VRAMTotalGiB
		fanSum += v.FanPercent
		thr.Power = thr.Power || v.Throttle.Power
		thr.Temp = thr.Temp || v.Throttle.Temp
		thr.Other = thr.Other || v.Throttle.Other
	}

	const gib = 1 << 30
	gpu.RecordSample(s.device, "nvml", loadSum/n, coreSum/n*1e6, memSum/n*1e6,
		int64(vramUsedSum/n*gib), int64(vramTotalSum/n*gib), powerSum/n, fanSum/n)
	gpu.RecordTemperature(s.device, "gpu", tempSum/n)
	gpu.RecordPowerLimit(s.device, powerLimitSum/n)
	gpu.RecordThrottle(s.device, "power", thr.Power)
	gpu.RecordThrottle(s.device, "temp", thr.Temp)
	gpu.RecordThrottle(s.device, "other", thr.Other)
}
