// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package overlay

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mangohud/overlayd/internal/config"
	"github.com/mangohud/overlayd/internal/control"
	xglog "github.com/mangohud/overlayd/internal/log"
	"github.com/mangohud/overlayd/internal/logbench"
)

// Tick runs once per present: it drains the control socket (spec.md §5
// "Control socket commands take effect on the next present, not
// mid-frame"), evaluates every keybind via isPressed, and executes
// whatever fired. It must never be called concurrently with itself — the
// present thread is always single-threaded per swapchain.
func (o *Overlay) Tick(now time.Time, isPressed control.KeyStateFunc) []control.Action {
	if o.Socket != nil {
		for _, cmd := range o.Socket.Drain() {
			if start, ok := control.ApplyCapture(cmd); ok {
				o.setCapture(now, start)
			}
		}
	}

	fired := o.Keybinds.Poll(isPressed)
	for _, action := range fired {
		o.handleAction(now, action)
	}
	return fired
}

func (o *Overlay) handleAction(now time.Time, action control.Action) {
	logger := xglog.WithComponent("overlay")

	switch action {
	case control.ActionToggleLogging:
		o.setCapture(now, !o.Logger.Active())
	case control.ActionReloadConfig:
		if err := o.Holder.Reload(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("keybind-triggered reload failed")
		}
	case control.ActionCyclePosition:
		params := o.Holder.Get().Clone()
		params.Position = control.NextPosition(params.Position)
		snap := config.BuildSnapshot(params)
		o.Holder.Swap(&snap)
	case control.ActionUploadLastLog:
		o.uploadLast(context.Background())
	case control.ActionUploadAllLogs:
		o.uploadAll(context.Background())
	case control.ActionResetFPSMetrics:
		o.Percentiles.RequestRecompute()
	case control.ActionCyclePreset:
		o.cyclePreset()
	case control.ActionToggleHUD, control.ActionCycleFPSLimit:
		// Handled by the HUD compositor / FPS limit cycler directly; the
		// overlay runtime has no state of its own to flip here.
	}
}

// cyclePreset advances to the next rung of the HUD verbosity ladder and
// applies its enabled-metric set as an overlay on top of the current
// config snapshot.
func (o *Overlay) cyclePreset() {
	if o.Presets == nil || o.Presets.Len() == 0 {
		return
	}
	o.presetLevel = o.Presets.NextLevel(o.presetLevel)
	preset := o.Presets.At(o.presetLevel)

	params := o.Holder.Get().Clone()
	params.Enabled = make(map[string]bool, len(preset.Enabled))
	for k, v := range preset.Enabled {
		params.Enabled[k] = v
	}
	snap := config.BuildSnapshot(params)
	o.Holder.Swap(&snap)
}

func (o *Overlay) setCapture(now time.Time, start bool) {
	if start {
		params := o.Holder.Get()
		o.Logger.Start(now, params.LogDuration)
		return
	}
	if _, _, err := o.Logger.Stop(now); err != nil {
		xglog.WithComponent("overlay").Warn().Err(err).Msg("failed stopping capture")
	}
}

// uploadLast stops the current run (if any) and uploads the full CSV it
// just wrote.
func (o *Overlay) uploadLast(ctx context.Context) {
	params := o.Holder.Get()
	if !params.PermitUpload || params.UploadURL == "" {
		return
	}
	lastPath, _, err := o.Logger.Stop(time.Now())
	if err != nil || lastPath == "" {
		return
	}
	if err := logbench.Upload(ctx, lastPath, params.UploadURL); err != nil {
		xglog.WithComponent("overlay").Warn().Err(err).Msg("log upload failed")
	}
}

// uploadAll stops the current run (if any), then uploads every full-log
// CSV found under OutputFolder — the benchmark logger only ever knows
// about the run it is currently recording, so enumerating past runs is
// the overlay runtime's job.
func (o *Overlay) uploadAll(ctx context.Context) {
	params := o.Holder.Get()
	if !params.PermitUpload || params.UploadURL == "" {
		return
	}
	o.Logger.Stop(time.Now())

	logger := xglog.WithComponent("overlay")
	entries, err := os.ReadDir(params.OutputFolder)
	if err != nil {
		logger.Warn().Err(err).Msg("upload_all: cannot list output folder")
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, "_summary.csv") {
			continue
		}
		path := filepath.Join(params.OutputFolder, name)
		if err := logbench.Upload(ctx, path, params.UploadURL); err != nil {
			logger.Warn().Err(err).Str("file", name).Msg("log upload failed")
		}
	}
}
