// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package vk is the pure-Go Vulkan dispatch-core surface: the bits of the
// CreateInstance/CreateDevice hot path that are pure data transforms rather
// than loader plumbing, starting with engine-name normalization for HUD
// display. The loader-facing object maps and per-call hooks live in
// internal/abi; this package is the first thing abi.CreateInstance consults.
package vk

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// EngineName is the normalized, HUD-displayable name for an application's
// VkApplicationInfo.pEngineName, per spec.md §4.1's engine capture
// requirement and SPEC_FULL's supplemented display-name table.
type EngineName string

const (
	EngineDXVK     EngineName = "DXVK"
	EngineVKD3D    EngineName = "vkd3d"
	EngineZink     EngineName = "Zink"
	EngineDamavand EngineName = "Damavand"
	EngineFeral3D  EngineName = "Feral3D"
	EngineGeneric  EngineName = "Vulkan"
)

// titleCaser normalizes arbitrary third-party pEngineName strings that
// don't match a known engine (e.g. a custom game engine) into a consistent
// Title Case for HUD display, rather than echoing whatever casing the
// application happened to pass.
var titleCaser = cases.Title(language.English)

// engineAliases maps every casing/spelling variant observed in the wild to
// its canonical display name. Matching is done against the lower-cased,
// trimmed input.
var engineAliases = map[string]EngineName{
	"dxvk":     EngineDXVK,
	"vkd3d":    EngineVKD3D,
	"vkd3d-proton": EngineVKD3D,
	"zink":     EngineZink,
	"damavand": EngineDamavand,
	"feral3d":  EngineFeral3D,
	"feral 3d": EngineFeral3D,
}

// NormalizeEngineName maps a raw VkApplicationInfo.pEngineName to a
// canonical display name. Unknown or empty input yields generic "Vulkan",
// never the raw string unmodified, so the HUD always shows a recognizable
// label.
func NormalizeEngineName(raw string) EngineName {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return EngineGeneric
	}
	if name, ok := engineAliases[key]; ok {
		return name
	}
	return EngineGeneric
}

// DisplayLabel returns a Title Case rendering of an arbitrary, unrecognized
// engine string for diagnostic logging, so a custom engine name still reads
// consistently instead of whatever mixed casing the application supplied.
func DisplayLabel(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return string(EngineGeneric)
	}
	return titleCaser.String(trimmed)
}
