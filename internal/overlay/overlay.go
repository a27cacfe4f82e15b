// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package overlay is the process-wide runtime that wires config, the
// blacklist, frame pacing, GPU/CPU sampling, frame statistics, the
// benchmark logger, the control surface, and the Vulkan dispatch core
// together into the one instance a hooked process runs for its lifetime
// (spec.md §5's worker list). The singleton shape is grounded on
// internal/metrics/gpu/supervisor.Supervisor: a sync.Once-guarded global
// plus independently-guarded Start/Stop.
package overlay

import (
	"context"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mangohud/overlayd/internal/abi"
	"github.com/mangohud/overlayd/internal/blacklist"
	"github.com/mangohud/overlayd/internal/config"
	"github.com/mangohud/overlayd/internal/config/presets"
	"github.com/mangohud/overlayd/internal/control"
	"github.com/mangohud/overlayd/internal/framestats"
	xglog "github.com/mangohud/overlayd/internal/log"
	"github.com/mangohud/overlayd/internal/logbench"
	"github.com/mangohud/overlayd/internal/metrics/cpu"
	gpusupervisor "github.com/mangohud/overlayd/internal/metrics/gpu/supervisor"
	"github.com/mangohud/overlayd/internal/pacing"
	"github.com/mangohud/overlayd/internal/telemetry"
)

// Config carries the process-identifying inputs Overlay needs to build its
// config loader, GPU probe, and telemetry resource attributes.
type Config struct {
	ExeName string
	ExeDir  string
	WineExe string
	Pid     int

	ProcRoot string // defaults to "/proc"

	GPU       gpusupervisor.Config
	Telemetry telemetry.Config

	CPUPollInterval time.Duration // defaults to 1s
}

// Overlay owns every long-lived subsystem for one hooked process.
type Overlay struct {
	cfg Config

	Holder    *config.Holder
	Blacklist *blacklist.List

	QueueLimiter   *pacing.QueueLimiter
	PresentLimiter *pacing.PresentLimiter
	FPSLimiter     *pacing.FPSLimiter

	GPU *gpusupervisor.Supervisor
	CPU *cpu.Sampler

	Ring        *framestats.Ring
	Percentiles *framestats.PercentileEngine

	Logger *logbench.Logger

	Socket   *control.Socket
	Keybinds *control.Poller
	Exporter *control.Exporter

	Telemetry *telemetry.Provider

	Core *abi.Core

	Presets     *presets.Catalog
	presetLevel int

	otelListenAddr    string
	otelStartupDelayS int

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

var (
	global     *Overlay
	globalOnce sync.Once
	globalErr  error
)

// Init builds and starts the process-wide Overlay singleton on its first
// call; subsequent calls return the already-running instance and ignore
// cfg.
func Init(cfg Config) (*Overlay, error) {
	globalOnce.Do(func() {
		global, globalErr = New(cfg)
		if globalErr == nil {
			global.Start()
		}
	})
	return global, globalErr
}

// New constructs an unstarted Overlay. Exported for tests that need an
// isolated instance rather than the process-wide singleton.
func New(cfg Config) (*Overlay, error) {
	if cfg.ProcRoot == "" {
		cfg.ProcRoot = "/proc"
	}
	if cfg.CPUPollInterval <= 0 {
		cfg.CPUPollInterval = time.Second
	}

	logger := xglog.WithComponent("overlay")

	loader := config.NewLoader(cfg.ExeName, cfg.ExeDir, cfg.WineExe)
	params, err := loader.Load()
	if err != nil {
		logger.Warn().Err(err).Msg("config load failed, falling back to defaults")
		params = config.Default()
	}

	holder := config.NewHolder(params, loader, firstExistingCandidate(loader))

	bl := blacklist.New(params.Blacklist, nil)

	queueLimiter := pacing.NewQueueLimiter("present", nil)
	fpsLimiter := pacing.NewFPSLimiter(queueLimiter)
	fpsLimiter.SetFPSLimit(firstFPSLimit(params.FPSLimit), params.FPSLimitMethod == config.LimitEarly)
	presentLimiter := pacing.NewPresentLimiter(cfg.ExeName, nil)

	var cpuSampler *cpu.Sampler
	if s, err := cpu.NewSampler(cfg.ProcRoot); err != nil {
		logger.Warn().Err(err).Msg("cpu sampler unavailable")
	} else {
		cpuSampler = s
	}

	var socket *control.Socket
	if params.Control != "" {
		socket, err = control.NewSocket(params.Control, cfg.ExeName)
		if err != nil {
			logger.Warn().Err(err).Msg("control socket unavailable")
		}
	}

	var exporter *control.Exporter
	if params.OTel {
		exporter = control.NewExporter(control.ExporterConfig{
			ListenAddr: params.OTelListen,
			IntervalMs: int64(params.OTelIntervalMS),
			Exec:       cfg.ExeName,
			Pid:        cfg.Pid,
		})
	}

	catalog, err := presets.Load()
	if err != nil {
		logger.Warn().Err(err).Msg("preset catalog unavailable")
	}

	ov := &Overlay{
		cfg:            cfg,
		Holder:         holder,
		Presets:        catalog,
		Blacklist:      bl,
		QueueLimiter:   queueLimiter,
		PresentLimiter: presentLimiter,
		FPSLimiter:     fpsLimiter,
		CPU:            cpuSampler,
		Ring:           framestats.NewRing(),
		Percentiles:    framestats.NewPercentileEngine([]float64{0.001, 0.01, 0.97}),
		Logger:         logbench.New(params.OutputFolder, cfg.ExeName),
		Socket:            socket,
		Keybinds:          control.NewPoller(params.Keys),
		Exporter:          exporter,
		Core:              abi.NewCore(),
		otelListenAddr:    params.OTelListen,
		otelStartupDelayS: params.OTelStartupDelayS,
	}
	return ov, nil
}

// firstExistingCandidate returns the first config candidate path that
// currently exists, or the first candidate at all if none do (so a file
// created later is still picked up by the watcher), or "" if there are no
// candidates.
func firstExistingCandidate(loader *config.Loader) string {
	candidates := loader.CandidatePaths()
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return ""
}

func firstFPSLimit(limits []uint32) float64 {
	if len(limits) == 0 {
		return 0
	}
	return float64(limits[0])
}

// Start launches every background worker: the GPU supervisor, a CPU
// sampling ticker, the config file watcher, the control socket's accept
// loop, and the Prometheus exporter if configured. Safe to call multiple
// times; only the first call has effect.
func (o *Overlay) Start() {
	o.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		o.cancel = cancel

		o.GPU = gpusupervisor.Init(o.cfg.GPU)

		if provider, err := telemetry.NewProvider(ctx, o.cfg.Telemetry); err != nil {
			xglog.WithComponent("overlay").Warn().Err(err).Msg("telemetry provider init failed")
		} else {
			o.Telemetry = provider
		}

		g, gctx := errgroup.WithContext(ctx)

		if o.CPU != nil {
			g.Go(func() error {
				o.runCPUSampler(gctx)
				return nil
			})
		}

		g.Go(func() error {
			if err := o.Holder.StartWatcher(gctx); err != nil {
				xglog.WithComponent("overlay").Warn().Err(err).Msg("config watcher failed to start")
			}
			<-gctx.Done()
			return nil
		})

		if o.Socket != nil {
			g.Go(func() error {
				o.Socket.Serve(gctx)
				return nil
			})
		}

		if o.Exporter != nil {
			g.Go(func() error {
				o.Exporter.Start(gctx, o.otelListenAddr, time.Duration(o.otelStartupDelayS)*time.Second)
				<-gctx.Done()
				return nil
			})
		}

		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			_ = g.Wait()
		}()
	})
}

func (o *Overlay) runCPUSampler(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.CPUPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := o.CPU.Poll(); err != nil {
				xglog.WithComponent("overlay").Debug().Err(err).Msg("cpu poll failed")
			}
		}
	}
}

// Stop cancels every background worker and waits for them to exit. Safe to
// call multiple times or before Start.
func (o *Overlay) Stop() {
	o.stopOnce.Do(func() {
		if o.cancel != nil {
			o.cancel()
		}
		o.wg.Wait()

		o.Percentiles.Shutdown()
		o.Holder.Stop()
		if o.Socket != nil {
			_ = o.Socket.Close()
		}
		if o.Exporter != nil {
			o.Exporter.Stop(context.Background())
		}
		if o.GPU != nil {
			o.GPU.Stop()
		}
		if o.Telemetry != nil {
			_ = o.Telemetry.Shutdown(context.Background())
		}
	})
}
