// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package msm samples Qualcomm Adreno GPU load from the msm DRM driver's
// per-fd accounting exposed under /proc/self/fdinfo, the same source the
// kernel's `drm-engine-gpu` accounting line provides to any process holding
// an open DRM fd for the device.
package msm

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mangohud/overlayd/internal/metrics/gpu"
)

const fdinfoDir = "/proc/self/fdinfo"

// findEngineFds scans /proc/self/fdinfo for entries whose driver line names
// msm and which expose a drm-engine-gpu accounting field, returning their
// paths. Re-scanned only once at startup: fd numbers and the set of open
// DRM fds are assumed stable for the sampler's lifetime, matching the
// original sampler's one-shot find_fd().
func findEngineFds(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if hasMsmEngine(path) {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

func hasMsmEngine(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	foundDriver := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "msm") {
			foundDriver = true
		}
		if foundDriver && strings.Contains(line, "drm-engine-gpu") {
			return true
		}
	}
	return false
}

// readGPUTimeNS sums the drm-engine-gpu nanosecond counters across every
// tracked fdinfo path. A counter is cumulative for the life of the fd, so
// callers difference successive reads to get a load delta.
func readGPUTimeNS(paths []string) uint64 {
	var total uint64
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		total += scanEngineNS(f)
		f.Close()
	}
	return total
}

func scanEngineNS(f *os.File) uint64 {
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		const prefix = "drm-engine-gpu:"
		idx := strings.Index(line, prefix)
		if idx < 0 {
			continue
		}
		fields := strings.Fields(line[idx+len(prefix):])
		if len(fields) == 0 {
			continue
		}
		ns, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			continue
		}
		return ns
	}
	return 0
}

// Sampler reports Adreno GPU load as the fraction of wall-clock time the
// drm-engine-gpu counter advanced between two polls, per spec.md's load =
// Δgpu_ns/Δwall_ns*100 clamped to 100.
type Sampler struct {
	device string
	fds    []string

	prevGPU  uint64
	prevWall time.Time
}

// NewSampler scans /proc/self/fdinfo once for msm engine accounting fds.
// It returns an error only when the fdinfo directory cannot be read. When
// no fd exposing drm-engine-gpu accounting is found (this process holds no
// open Adreno DRM fd, not necessarily an absence of an Adreno GPU), it
// returns a Sampler whose Available reports false.
func NewSampler(device string) (*Sampler, error) {
	fds, err := findEngineFds(fdinfoDir)
	if err != nil {
		return nil, err
	}
	return &Sampler{device: device, fds: fds}, nil
}

// Available reports whether any msm engine accounting fd was found.
func (s *Sampler) Available() bool { return len(s.fds) > 0 }

// Run polls at the shared 5ms cadence, publishing a load gauge on the same
// 500ms schedule as the other vendor samplers, reusing a mean reduction
// over the rolling window for consistency with amdgpu/nvml even though a
// single load percentage is msm's only published signal.
func (s *Sampler) Run(ctx context.Context) {
	const (
		pollingPeriod = 5 * time.Millisecond
		updatePeriod  = 500 * time.Millisecond
		sampleCount   = int(updatePeriod / pollingPeriod)
	)

	ticker := time.NewTicker(pollingPeriod)
	defer ticker.Stop()

	var loads []float64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if l, ok := s.poll(); ok {
				loads = append(loads, l)
			}
			if len(loads) >= sampleCount {
				s.publish(loads)
				loads = loads[:0]
			}
		}
	}
}

// poll reads the cumulative GPU-busy counter and converts the delta since
// the previous poll into a load percentage, clamped to 100.
func (s *Sampler) poll() (float64, bool) {
	gpuNow := readGPUTimeNS(s.fds)
	wallNow := time.Now()

	defer func() {
		s.prevGPU = gpuNow
		s.prevWall = wallNow
	}()

	if s.prevWall.IsZero() || gpuNow < s.prevGPU {
		return 0, false
	}

	wallDelta := wallNow.Sub(s.prevWall).Nanoseconds()
	if wallDelta <= 0 {
		return 0, false
	}

	gpuDelta := gpuNow - s.prevGPU
	load := float64(gpuDelta) / float64(wallDelta) * 100
	if load > 100 {
		load = 100
	}
	return load, true
}

func (s *Sampler) publish(loads []float64) {
	var sum float64
	for _, l := range loads {
		sum += l
	}
	gpu.RecordSample(s.device, "msm", sum/float64(len(loads)), 0, 0, 0, 0, 0, 0)
}
