// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package supervisor probes for exactly one usable GPU vendor sampler
// (AMDGPU sysfs, NVML, libdrm register polling, Intel's intel_gpu_top, or
// MSM fdinfo accounting) and runs it for the life of the process. Only one
// vendor is ever active at a time, matching spec.md's single-GPU-sampler
// model. The process-wide singleton is grounded on the teacher's deleted
// jobs.InitPiconPool: a sync.Once-guarded global plus Start/Stop methods
// each independently guarded against a double call.
package supervisor

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	xglog "github.com/mangohud/overlayd/internal/log"
	"github.com/mangohud/overlayd/internal/metrics/gpu/amdgpu"
	"github.com/mangohud/overlayd/internal/metrics/gpu/intel"
	"github.com/mangohud/overlayd/internal/metrics/gpu/libdrm"
	"github.com/mangohud/overlayd/internal/metrics/gpu/msm"
	"github.com/mangohud/overlayd/internal/metrics/gpu/nvml"
)

// Vendor names the sampler backend a Supervisor selected.
type Vendor string

const (
	VendorAmdgpu Vendor = "amdgpu"
	VendorNvml   Vendor = "nvml"
	VendorLibdrm Vendor = "libdrm"
	VendorIntel  Vendor = "intel"
	VendorMsm    Vendor = "msm"
	VendorNone   Vendor = "none"
)

// Config carries every vendor-probe input a Supervisor needs. Fields left
// at their zero value simply make that vendor's probe fail, falling
// through to the next candidate.
type Config struct {
	Device string

	AmdgpuMetricsPath string            // e.g. /sys/class/drm/card0/device/gpu_metrics
	NvmlPCIBusID      string
	LibdrmPrimaryPath string            // e.g. /dev/dri/card0
	IntelCommand      intel.CommandFunc // nil defaults to intel.DefaultCommand
}

// Supervisor owns the single active vendor sampler goroutine.
type Supervisor struct {
	cfg    Config
	vendor Vendor

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

var (
	global     *Supervisor
	globalOnce sync.Once
)

// Init initializes and starts the process-wide Supervisor singleton on its
// first call; subsequent calls return the already-running instance and
// ignore cfg.
func Init(cfg Config) *Supervisor {
	globalOnce.Do(func() {
		global = New(cfg)
		global.Start()
	})
	return global
}

// New builds an unstarted Supervisor. Exported for tests that need an
// isolated instance rather than the process-wide singleton.
func New(cfg Config) *Supervisor {
	return &Supervisor{cfg: cfg, vendor: VendorNone}
}

// Vendor reports which backend Start selected, or VendorNone before Start
// runs or when no vendor could be probed.
func (s *Supervisor) Vendor() Vendor { return s.vendor }

// Start probes vendors in priority order and launches the first one that
// succeeds. Safe to call multiple times; only the first call has effect.
func (s *Supervisor) Start() {
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel

		logger := xglog.WithComponent("gpu_supervisor")
		vendor, run := s.probe()
		s.vendor = vendor
		if run == nil {
			logger.Warn().Msg("no GPU vendor sampler available")
			return
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			run(gctx)
			return nil
		})

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			_ = g.Wait()
		}()

		logger.Info().Str("vendor", string(vendor)).Msg("GPU sampler started")
	})
}

// Stop cancels the running sampler and waits for it to exit. Safe to call
// multiple times or before Start.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
	})
}

// probe tries each vendor's availability check in priority order — sysfs
// gpu_metrics first (cheapest, no subprocess/ioctl), then NVML, then
// libdrm register polling, then MSM fdinfo accounting, then the Intel
// subprocess sampler as the final fallback — and returns the first usable
// one's run function.
func (s *Supervisor) probe() (Vendor, func(context.Context)) {
	if s.cfg.AmdgpuMetricsPath != "" && amdgpu.Probe(s.cfg.AmdgpuMetricsPath) {
		sampler := amdgpu.NewSampler(s.cfg.AmdgpuMetricsPath, s.cfg.Device)
		return VendorAmdgpu, sampler.Run
	}

	if handle, err := nvml.Open(s.cfg.NvmlPCIBusID); err == nil {
		sampler := nvml.NewSampler(handle, s.cfg.Device)
		return VendorNvml, func(ctx context.Context) {
			defer handle.Close()
			sampler.Run(ctx)
		}
	}

	if s.cfg.LibdrmPrimaryPath != "" {
		if handle, err := libdrm.Open(s.cfg.LibdrmPrimaryPath); err == nil {
			sampler := libdrm.NewSampler(handle, s.cfg.Device)
			return VendorLibdrm, func(ctx context.Context) {
				defer handle.Close()
				sampler.Run(ctx)
			}
		}
	}

	if msmSampler, err := msm.NewSampler(s.cfg.Device); err == nil && msmSampler.Available() {
		return VendorMsm, msmSampler.Run
	}

	cmdFn := s.cfg.IntelCommand
	if cmdFn == nil {
		cmdFn = intel.DefaultCommand
	}
	intelSampler := intel.NewSampler(cmdFn, s.cfg.Device)
	return VendorIntel, intelSampler.Run
}
