// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mangohud/overlayd/internal/log"
)

type envLookupFunc func(string) (string, bool)

// Loader resolves Params from the candidate chain in spec.md §4.7 plus
// environment variables, tracking which keys were actually consumed for
// diagnostics (mirroring the teacher's ConsumedEnvKeys bookkeeping).
type Loader struct {
	ExeName         string // basename of the hooked executable, used for per-exe candidates
	ExeDir          string
	WineExe         string // basename of the wine target binary, if running under wine
	ConsumedEnvKeys map[string]struct{}

	lookupEnvFn envLookupFunc
}

// NewLoader creates a loader for the given executable context.
func NewLoader(exeName, exeDir, wineExe string) *Loader {
	return NewLoaderWithEnv(exeName, exeDir, wineExe, os.LookupEnv)
}

// NewLoaderWithEnv injects an environment source for testability.
func NewLoaderWithEnv(exeName, exeDir, wineExe string, lookup envLookupFunc) *Loader {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &Loader{
		ExeName:         exeName,
		ExeDir:          exeDir,
		WineExe:         wineExe,
		ConsumedEnvKeys: make(map[string]struct{}),
		lookupEnvFn:     lookup,
	}
}

func (l *Loader) lookup(key string) (string, bool) {
	l.ConsumedEnvKeys[key] = struct{}{}
	return l.lookupEnvFn(key)
}

// xdgConfigHome returns $XDG_CONFIG_HOME, falling back to $HOME/.config.
func (l *Loader) xdgConfigHome() string {
	if v, ok := l.lookup("XDG_CONFIG_HOME"); ok && v != "" {
		return v
	}
	if home, ok := l.lookup("HOME"); ok && home != "" {
		return filepath.Join(home, ".config")
	}
	return ""
}

// CandidatePaths returns the ordered list of config file paths to probe,
// per spec.md §4.7: first hit wins.
func (l *Loader) CandidatePaths() []string {
	var candidates []string
	if v, ok := l.lookup("MANGOHUD_CONFIGFILE"); ok && v != "" {
		candidates = append(candidates, v)
	}
	xdg := l.xdgConfigHome()
	if xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "MangoHud", "MangoHud.conf"))
		if l.ExeName != "" {
			candidates = append(candidates, filepath.Join(xdg, "MangoHud", l.ExeName+".conf"))
		}
	}
	if l.ExeDir != "" {
		candidates = append(candidates, filepath.Join(l.ExeDir, "MangoHud.conf"))
	}
	if xdg != "" && l.WineExe != "" {
		candidates = append(candidates, filepath.Join(xdg, "MangoHud", "wine-"+l.WineExe+".conf"))
	}
	return candidates
}

// resolvedFile pairs a successfully parsed candidate with the path it came
// from, so callers and logs can report which file actually won.
type resolvedFile struct {
	path string
	raw  *RawFile
}

// resolveFile walks CandidatePaths in order and returns the first one that
// exists and parses. A missing file is not an error; only I/O errors on a
// file that does exist are.
func (l *Loader) resolveFile() (*resolvedFile, []string, error) {
	var skipped []string
	for _, path := range l.CandidatePaths() {
		if _, err := os.Stat(path); err != nil {
			skipped = append(skipped, path)
			continue
		}
		raw, err := ParseFile(path)
		if err != nil {
			return nil, skipped, fmt.Errorf("parse config file %s: %w", path, err)
		}
		return &resolvedFile{path: path, raw: raw}, skipped, nil
	}
	return nil, skipped, nil
}

// Load builds Params: defaults, then the winning file (if any), then
// MANGOHUD_CONFIG inline overrides, then individual environment variables —
// each layer only overriding keys the layer above actually set.
func (l *Loader) Load() (Params, error) {
	logger := log.WithComponent("config")
	p := Default()

	resolved, skipped, err := l.resolveFile()
	if err != nil {
		return p, err
	}
	for _, s := range skipped {
		logger.Debug().Str("path", s).Msg("config candidate not found, trying next")
	}

	var raw *RawFile
	if resolved != nil {
		logger.Info().Str("path", resolved.path).Msg("config file selected")
		raw = resolved.raw
	} else {
		raw = &RawFile{Values: map[string]string{}}
		logger.Debug().Msg("no config file found, using defaults and environment only")
	}

	if inline, ok := l.lookup("MANGOHUD_CONFIG"); ok && inline != "" {
		inlineRaw := ParseInline(inline)
		for k, v := range inlineRaw.Values {
			raw.Values[k] = v
		}
	}

	applyRaw(&p, raw.Values)
	applyEnvOverrides(&p)

	return p, nil
}

// applyEnvOverrides applies individual MANGOHUD_* environment variables on
// top of the file/inline layers, using the generic env-parsing helpers so a
// one-off override doesn't require an entire config file. These intentionally
// read the real process environment (not Loader's injectable lookupEnvFn,
// which only covers the candidate-path discovery variables) since they are
// a deployment-time override mechanism, not part of file-candidate discovery.
func applyEnvOverrides(p *Params) {
	p.OutputFolder = ParseString("MANGOHUD_OUTPUT_FOLDER", p.OutputFolder)
	p.Control = ParseString("MANGOHUD_CONTROL", p.Control)
	p.UploadURL = ParseString("MANGOHUD_UPLOAD_URL", p.UploadURL)

	p.LogDuration = ParseDuration("MANGOHUD_LOG_DURATION", p.LogDuration)
	p.LogInterval = ParseDuration("MANGOHUD_LOG_INTERVAL", p.LogInterval)

	p.OTel = ParseBool("MANGOHUD_OTEL", p.OTel)
	p.PermitUpload = ParseBool("MANGOHUD_PERMIT_UPLOAD", p.PermitUpload)

	p.OTelListen = ParseString("MANGOHUD_OTEL_LISTEN", p.OTelListen)
	p.OTelIntervalMS = ParseInt("MANGOHUD_OTEL_INTERVAL_MS", p.OTelIntervalMS)
	p.OTelStartupDelayS = ParseInt("MANGOHUD_OTEL_STARTUP_DELAY_S", p.OTelStartupDelayS)

	p.FontSize = ParseFloat("MANGOHUD_FONT_SIZE", p.FontSize)
	p.FontScale = ParseFloat("MANGOHUD_FONT_SCALE", p.FontScale)
}

// applyRaw walks every recognized key and, if present, assigns it onto p.
// Unrecognized keys are ignored, matching spec.md's "non-exhaustive" grammar.
func applyRaw(p *Params, kv map[string]string) {
	get := func(key string) (string, bool) { v, ok := kv[key]; return v, ok }

	if v, ok := get("fps_limit"); ok {
		p.FPSLimit = parseUintList(v)
	}
	if v, ok := get("fps_limit_method"); ok {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "early":
			p.FPSLimitMethod = LimitEarly
		case "late":
			p.FPSLimitMethod = LimitLate
		}
	}
	if v, ok := get("output_folder"); ok {
		p.OutputFolder = v
	}
	if v, ok := get("log_duration"); ok {
		if secs, err := strconv.Atoi(v); err == nil {
			p.LogDuration = time.Duration(secs) * time.Second
		}
	}
	if v, ok := get("log_interval"); ok {
		if ms, err := strconv.Atoi(v); err == nil {
			p.LogInterval = time.Duration(ms) * time.Millisecond
		}
	}
	if v, ok := get("preset"); ok {
		p.Presets = splitList(v)
	}
	if v, ok := get("blacklist"); ok {
		p.Blacklist = map[string]struct{}{}
		for _, name := range splitList(v) {
			p.Blacklist[name] = struct{}{}
		}
	}
	if v, ok := get("control"); ok {
		p.Control = v
	}
	if v, ok := get("otel"); ok {
		p.OTel = parseBoolLoose(v)
	}
	if v, ok := get("otel_listen"); ok {
		p.OTelListen = v
	}
	if v, ok := get("otel_interval_ms"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			p.OTelIntervalMS = n
		}
	}
	if v, ok := get("otel_startup_delay_s"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			p.OTelStartupDelayS = n
		}
	}
	if v, ok := get("position"); ok {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "top-left", "tl":
			p.Position = PositionTopLeft
		case "top-right", "tr":
			p.Position = PositionTopRight
		case "bottom-left", "bl":
			p.Position = PositionBottomLeft
		case "bottom-right", "br":
			p.Position = PositionBottomRight
		}
	}
	if v, ok := get("font_size"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			p.FontSize = f
		}
	}
	if v, ok := get("font_file"); ok {
		p.FontFile = v
	}
	if v, ok := get("font_scale"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			p.FontScale = f
		}
	}
	if v, ok := get("permit_upload"); ok {
		p.PermitUpload = parseBoolLoose(v)
	}
	if v, ok := get("upload_url"); ok {
		p.UploadURL = v
	}
}

func parseUintList(s string) []uint32 {
	var out []uint32
	for _, part := range splitList(s) {
		if n, err := strconv.ParseUint(part, 10, 32); err == nil {
			out = append(out, uint32(n))
		}
	}
	return out
}

func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func parseBoolLoose(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
