// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// LimitMethod selects when fpsLimiter sleeps relative to the present call.
type LimitMethod string

const (
	LimitEarly LimitMethod = "early"
	LimitLate  LimitMethod = "late"
)

// Position is the on-screen anchor for the HUD.
type Position string

const (
	PositionTopLeft     Position = "top-left"
	PositionTopRight    Position = "top-right"
	PositionBottomLeft  Position = "bottom-left"
	PositionBottomRight Position = "bottom-right"
)

// KeyCombo is a set of key names that must all be held for a bind to fire,
// e.g. {"Shift_L", "F12"}.
type KeyCombo []string

// Keybinds holds every configurable key combination.
type Keybinds struct {
	ToggleHUD      KeyCombo
	ToggleLogging  KeyCombo
	ReloadConfig   KeyCombo
	UploadLog      KeyCombo
	UploadAllLogs  KeyCombo
	CycleFPSLimit  KeyCombo
	CyclePreset    KeyCombo
	CyclePosition  KeyCombo
	ResetFPSMetric KeyCombo
}

// Params is the immutable-per-reload set of recognized overlay options.
// A Params value is never mutated after construction; a reload produces a
// brand new value that replaces the old one wholesale (see Snapshot).
type Params struct {
	FPSLimit       []uint32
	FPSLimitMethod LimitMethod

	Keys Keybinds

	OutputFolder string
	LogDuration  time.Duration
	LogInterval  time.Duration

	Presets []string

	Blacklist map[string]struct{}

	Control string // abstract control-socket name, empty disables it

	OTel              bool // enables the Prometheus exporter, name kept for upstream compatibility
	OTelListen        string
	OTelIntervalMS    int
	OTelStartupDelayS int

	Position Position

	FontSize  float64
	FontFile  string
	FontScale float64

	Enabled map[string]bool // per-metric enable flags, e.g. "fps", "gpu_temp", "cpu_load"

	Colors map[string]string // color overrides, by widget key, "RRGGBB"

	PermitUpload bool
	UploadURL    string
}

// Default returns the built-in defaults applied before any file or
// environment override is considered.
func Default() Params {
	return Params{
		FPSLimit:       nil,
		FPSLimitMethod: LimitLate,
		Keys: Keybinds{
			ToggleHUD:      KeyCombo{"Shift_L", "F12"},
			ToggleLogging:  KeyCombo{"Shift_L", "F2"},
			ReloadConfig:   KeyCombo{"Shift_L", "F4"},
			UploadLog:      KeyCombo{"Shift_L", "F3"},
			CycleFPSLimit:  KeyCombo{"Shift_L", "F1"},
			CyclePreset:    KeyCombo{"Shift_L", "F5"},
			CyclePosition:  KeyCombo{"Shift_L", "F6"},
			ResetFPSMetric: KeyCombo{"Shift_L", "F7"},
		},
		OutputFolder: "/tmp/mangohud",
		LogDuration:  0,
		LogInterval:  500 * time.Millisecond,
		Blacklist:    map[string]struct{}{},
		OTelIntervalMS:    1000,
		OTelStartupDelayS: 0,
		Position:          PositionTopLeft,
		FontSize:          24,
		FontScale:         1.0,
		Enabled:           map[string]bool{"fps": true, "frametime": true, "gpu_stats": true, "cpu_stats": true},
		Colors:            map[string]string{},
	}
}

// Clone returns a deep copy so callers can build a new Params from an
// existing one without ever aliasing the mutable maps/slices of the
// original — Params must never be mutated in place once published.
func (p Params) Clone() Params {
	out := p
	out.FPSLimit = append([]uint32(nil), p.FPSLimit...)
	out.Presets = append([]string(nil), p.Presets...)
	out.Blacklist = make(map[string]struct{}, len(p.Blacklist))
	for k := range p.Blacklist {
		out.Blacklist[k] = struct{}{}
	}
	out.Enabled = make(map[string]bool, len(p.Enabled))
	for k, v := range p.Enabled {
		out.Enabled[k] = v
	}
	out.Colors = make(map[string]string, len(p.Colors))
	for k, v := range p.Colors {
		out.Colors[k] = v
	}
	out.Keys = p.Keys
	return out
}
