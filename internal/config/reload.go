// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	xglog "github.com/mangohud/overlayd/internal/log"
	"github.com/mangohud/overlayd/internal/telemetry"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Holder holds Params with atomic reloading capability. It is the runtime
// home for spec.md §3's "referenced by Arc-equivalent shared ownership;
// never mutated in place" requirement: every reload — whether driven by a
// keybind, a control-socket command, or a watched file change — produces a
// brand new *Snapshot and swaps it in, never touching the old one.
type Holder struct {
	reloadOpMu sync.Mutex
	epoch      atomic.Uint64
	snapshot   atomic.Pointer[Snapshot]
	loader     *Loader
	configPath string
	configDir  string
	configFile string
	watcher    *fsnotify.Watcher
	logger     zerolog.Logger

	reloadMu        sync.RWMutex
	reloadListeners []chan<- Params
}

// NewHolder creates a Holder seeded with an already-loaded Params value.
// configPath, if non-empty, is the file StartWatcher watches for changes
// (normally the winning candidate from Loader.CandidatePaths).
func NewHolder(initial Params, loader *Loader, configPath string) *Holder {
	h := &Holder{
		loader:          loader,
		configPath:      configPath,
		logger:          xglog.WithComponent("config"),
		reloadListeners: make([]chan<- Params, 0),
	}
	snap := BuildSnapshot(initial)
	h.Swap(&snap)
	return h
}

// Get returns the current Params (thread-safe read).
func (h *Holder) Get() Params {
	return h.Snapshot().App
}

// Current returns the current immutable snapshot pointer.
func (h *Holder) Current() *Snapshot {
	return h.snapshot.Load()
}

// Swap atomically installs next, assigning it the next monotonic Epoch.
func (h *Holder) Swap(next *Snapshot) (prev *Snapshot) {
	if next == nil {
		return h.snapshot.Load()
	}
	next.Epoch = h.epoch.Add(1)
	return h.snapshot.Swap(next)
}

// Snapshot returns a copy of the current immutable snapshot.
func (h *Holder) Snapshot() Snapshot {
	snap := h.Current()
	if snap == nil {
		return Snapshot{}
	}
	return *snap
}

// Reload re-runs the loader and, only if the result is valid, atomically
// replaces the current Params. On any failure the previous configuration is
// left untouched and an error is returned — spec.md §7's "Config reload
// with invalid values: log a warning, keep the previous params."
func (h *Holder) Reload(ctx context.Context) error {
	_, span := telemetry.Tracer("mangohud.config").Start(ctx, "Reload")
	defer span.End()

	h.reloadOpMu.Lock()
	defer h.reloadOpMu.Unlock()

	h.logger.Info().Str("event", "config.reload_start").Msg("reloading configuration")

	oldCfg := Params{}
	if oldSnap := h.Current(); oldSnap != nil {
		oldCfg = oldSnap.App
	}

	newCfg, err := h.loader.Load()
	if err != nil {
		h.logger.Error().Err(err).Str("event", "config.reload_failed").Msg("failed to load new configuration")
		span.SetAttributes(telemetry.ConfigReloadAttributes(h.epoch.Load(), false)...)
		return fmt.Errorf("load config: %w", err)
	}

	if err := Validate(newCfg); err != nil {
		h.logger.Error().Err(err).Str("event", "config.validation_failed").Msg("new configuration failed validation, keeping previous")
		span.SetAttributes(telemetry.ConfigReloadAttributes(h.epoch.Load(), false)...)
		return fmt.Errorf("validate config: %w", err)
	}

	newSnap := BuildSnapshot(newCfg)
	h.Swap(&newSnap)

	h.notifyListeners(newCfg)
	h.logChanges(oldCfg, newCfg)

	span.SetAttributes(telemetry.ConfigReloadAttributes(h.epoch.Load(), true)...)
	h.logger.Info().Str("event", "config.reload_success").Msg("configuration reloaded successfully")
	return nil
}

// StartWatcher watches the config file directory for atomic-replace writes
// (tmp+rename, as editors do) and debounces bursts of events into a single
// Reload, per spec.md §5 "Control socket commands take effect on the next
// present, not mid-frame" — the same debounce discipline applies to file
// watches so a half-written file is never read.
func (h *Holder) StartWatcher(ctx context.Context) error {
	if h.configPath == "" {
		h.logger.Info().Str("event", "config.watcher_disabled").Msg("no config file to watch")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher
	h.configDir = filepath.Dir(h.configPath)
	h.configFile = filepath.Base(h.configPath)

	if err := watcher.Add(h.configDir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	h.logger.Info().Str("event", "config.watcher_started").Str("path", h.configPath).Msg("watching config file for changes")
	go h.watchLoop(ctx)
	return nil
}

func (h *Holder) watchLoop(ctx context.Context) {
	var debounceTimer *time.Timer
	const debounceDuration = 250 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str("event", "config.watcher_stopped").Msg("config watcher stopped")
			if h.watcher != nil {
				_ = h.watcher.Close()
			}
			return

		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if h.configFile != "" && filepath.Base(event.Name) != h.configFile {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				h.logger.Debug().Str("event", "config.file_changed").Str("op", event.Op.String()).Msg("config file changed")
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					if err := h.Reload(ctx); err != nil {
						h.logger.Error().Err(err).Str("event", "config.auto_reload_failed").Msg("automatic config reload failed")
					}
				})
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Str("event", "config.watcher_error").Msg("config watcher error")
		}
	}
}

// Stop stops the config watcher, if running.
func (h *Holder) Stop() {
	if h.watcher != nil {
		_ = h.watcher.Close()
	}
}

// RegisterListener registers a channel to receive Params on every successful
// reload. Sends are non-blocking: a full channel is skipped, not awaited,
// so a slow listener can never stall the reloader.
func (h *Holder) RegisterListener(ch chan<- Params) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()
	h.reloadListeners = append(h.reloadListeners, ch)
}

func (h *Holder) notifyListeners(newCfg Params) {
	h.reloadMu.RLock()
	defer h.reloadMu.RUnlock()
	for _, ch := range h.reloadListeners {
		select {
		case ch <- newCfg:
		default:
			h.logger.Warn().Str("event", "config.listener_skip").Msg("skipped notifying listener (channel full)")
		}
	}
}

func (h *Holder) logChanges(old, newCfg Params) {
	if !equalUint32Slice(old.FPSLimit, newCfg.FPSLimit) {
		h.logger.Info().Interface("old", old.FPSLimit).Interface("new", newCfg.FPSLimit).Msg("config changed: fps_limit")
	}
	if old.FPSLimitMethod != newCfg.FPSLimitMethod {
		h.logger.Info().Str("old", string(old.FPSLimitMethod)).Str("new", string(newCfg.FPSLimitMethod)).Msg("config changed: fps_limit_method")
	}
	if old.Position != newCfg.Position {
		h.logger.Info().Str("old", string(old.Position)).Str("new", string(newCfg.Position)).Msg("config changed: position")
	}
	if old.OTel != newCfg.OTel {
		h.logger.Info().Bool("old", old.OTel).Bool("new", newCfg.OTel).Msg("config changed: otel")
	}
	if old.Control != newCfg.Control {
		h.logger.Info().Str("old", old.Control).Str("new", newCfg.Control).Msg("config changed: control")
	}
}

func equalUint32Slice(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
