// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package blacklist decides whether the overlay should stay inactive for
// the current process: launcher/helper executables by basename, plus any
// process that has mapped a GTK library into its address space.
package blacklist

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mangohud/overlayd/internal/metrics"
	"github.com/mangohud/overlayd/internal/telemetry"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// forceRecheckMinInterval bounds how often ForceRecheck may actually drop
// the cache: a reload storm (e.g. a config file being saved repeatedly by
// an editor) must not turn every IsBlacklisted call back into a full scan.
const forceRecheckMinInterval = time.Second

// defaultNames are the built-in launcher/helper executables MangoHud has
// always declined to hook.
var defaultNames = []string{
	"steam", "steamwebhelper", "ibus-daemon", "start.exe", "zsnes",
}

// List holds the effective blacklist: the built-in defaults plus any
// user-added entries from Params.Blacklist. Lookups for a given process
// are cached after the first call; ForceRecheck clears the cache so a
// preset reload can re-evaluate it.
type List struct {
	mu        sync.RWMutex
	names     map[string]struct{}
	group     singleflight.Group
	cache     map[string]bool
	gtkScan   func(pid int) bool
	recheckRL *rate.Limiter
}

// New builds a List from user-added entries. gtkScan, if nil, defaults to
// scanning /proc/<pid>/maps for a libgtk shared object.
func New(userEntries map[string]struct{}, gtkScan func(pid int) bool) *List {
	names := make(map[string]struct{}, len(defaultNames)+len(userEntries))
	for _, n := range defaultNames {
		names[n] = struct{}{}
	}
	for n := range userEntries {
		names[n] = struct{}{}
	}
	if gtkScan == nil {
		gtkScan = scanProcMapsForGTK
	}
	return &List{
		names:     names,
		cache:     make(map[string]bool),
		gtkScan:   gtkScan,
		recheckRL: rate.NewLimiter(rate.Every(forceRecheckMinInterval), 1),
	}
}

// Add inserts name into the blacklist. Adding the same name twice is a
// no-op, matching the spec's idempotence requirement.
func (l *List) Add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names[name] = struct{}{}
}

// IsBlacklisted resolves whether pid/exePath should be blacklisted,
// preferring wineExe (the Wine target binary) over the Wine preloader's own
// basename when both are known. The verdict is cached per key (wineExe
// when given, otherwise exePath) until ForceRecheck is called.
func (l *List) IsBlacklisted(pid int, exePath, wineExe string) bool {
	key := exePath
	if wineExe != "" {
		key = wineExe
	}

	l.mu.RLock()
	if v, ok := l.cache[key]; ok {
		l.mu.RUnlock()
		return v
	}
	l.mu.RUnlock()

	v, _, _ := l.group.Do(key, func() (interface{}, error) {
		verdict := l.resolve(pid, key)
		l.mu.Lock()
		l.cache[key] = verdict
		l.mu.Unlock()
		return verdict, nil
	})
	return v.(bool)
}

func (l *List) resolve(pid int, key string) bool {
	_, span := telemetry.Tracer("mangohud.blacklist").Start(context.Background(), "resolve")
	defer span.End()

	base := filepath.Base(key)
	blacklisted, reason := l.decide(pid, base)
	span.SetAttributes(telemetry.BlacklistDecisionAttributes(key, reason, blacklisted)...)
	return blacklisted
}

func (l *List) decide(pid int, base string) (blacklisted bool, reason string) {
	l.mu.RLock()
	_, named := l.names[base]
	l.mu.RUnlock()
	if named {
		metrics.IncBlacklistSkip("basename")
		return true, "basename"
	}

	if pid > 0 && l.gtkScan(pid) {
		metrics.IncBlacklistSkip("gtk_library")
		return true, "gtk_library"
	}
	return false, ""
}

// ForceRecheck drops every cached verdict so the next IsBlacklisted call
// re-evaluates from scratch. Callers trigger this after a preset reload.
// Calls arriving within forceRecheckMinInterval of the last honoured call
// are silently absorbed, so a burst of reloads only pays for one rescan.
func (l *List) ForceRecheck() {
	if !l.recheckRL.Allow() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]bool)
}

func scanProcMapsForGTK(pid int) bool {
	f, err := os.Open(filepath.Join("/proc", strconv.Itoa(pid), "maps")) // #nosec G304 -- pid is our own caller's process
	if err != nil {
		return false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if strings.Contains(sc.Text(), "libgtk-") {
			return true
		}
	}
	return false
}
