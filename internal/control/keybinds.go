// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package control implements the overlay's command surface: keybind
// polling, the abstract Unix control socket, and the Prometheus exporter.
package control

import (
	"github.com/mangohud/overlayd/internal/config"
	"github.com/mangohud/overlayd/internal/metrics"
)

// Action identifies a keybind-triggered or control-socket-triggered
// command the overlay runtime must execute on the next present.
type Action string

const (
	ActionToggleLogging   Action = "toggle_logging"
	ActionCycleFPSLimit   Action = "cycle_fps_limit"
	ActionCyclePreset     Action = "cycle_preset"
	ActionToggleHUD       Action = "toggle_hud"
	ActionReloadConfig    Action = "reload_config"
	ActionUploadLastLog   Action = "upload_last_log"
	ActionUploadAllLogs   Action = "upload_all_logs"
	ActionCyclePosition   Action = "cycle_position"
	ActionResetFPSMetrics Action = "reset_fps_metrics"
)

// KeyStateFunc reports whether every key in combo is currently held. It
// must not block or take any rendering lock; the Poller calls it once per
// configured bind on every present.
type KeyStateFunc func(combo config.KeyCombo) bool

// Poller tracks per-bind press state and fires an Action only on the
// rising edge (previous poll "not pressed", current poll "pressed"), per
// spec.md's keybind rising-edge filter.
type Poller struct {
	binds []bind
}

type bind struct {
	action Action
	combo  config.KeyCombo
	held   bool
}

// NewPoller builds a Poller from the configured Keybinds, skipping any
// combo that is empty (unbound).
func NewPoller(keys config.Keybinds) *Poller {
	p := &Poller{}
	p.add(ActionToggleLogging, keys.ToggleLogging)
	p.add(ActionCycleFPSLimit, keys.CycleFPSLimit)
	p.add(ActionCyclePreset, keys.CyclePreset)
	p.add(ActionToggleHUD, keys.ToggleHUD)
	p.add(ActionReloadConfig, keys.ReloadConfig)
	p.add(ActionUploadLastLog, keys.UploadLog)
	p.add(ActionUploadAllLogs, keys.UploadAllLogs)
	p.add(ActionCyclePosition, keys.CyclePosition)
	p.add(ActionResetFPSMetrics, keys.ResetFPSMetric)
	return p
}

func (p *Poller) add(action Action, combo config.KeyCombo) {
	if len(combo) == 0 {
		return
	}
	p.binds = append(p.binds, bind{action: action, combo: combo})
}

// Poll evaluates every configured bind against isPressed and returns the
// actions that fired on this call (rising edge only). Called once per
// present from the present thread; isPressed itself must be non-blocking.
func (p *Poller) Poll(isPressed KeyStateFunc) []Action {
	var fired []Action
	for i := range p.binds {
		b := &p.binds[i]
		pressed := isPressed(b.combo)
		if pressed && !b.held {
			fired = append(fired, b.action)
			metrics.IncKeybindPress(string(b.action))
		}
		b.held = pressed
	}
	return fired
}
