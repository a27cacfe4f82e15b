// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package blacklist

import "testing"

func TestIsBlacklistedDefaultName(t *testing.T) {
	l := New(nil, func(int) bool { return false })
	if !l.IsBlacklisted(1234, "/usr/bin/steam", "") {
		t.Error("expected steam to be blacklisted by default")
	}
}

func TestIsBlacklistedUnknownName(t *testing.T) {
	l := New(nil, func(int) bool { return false })
	if l.IsBlacklisted(1234, "/usr/bin/mygame", "") {
		t.Error("expected an unknown executable to not be blacklisted")
	}
}

func TestAddIdempotent(t *testing.T) {
	l := New(nil, func(int) bool { return false })
	l.Add("x")
	l.Add("x")
	if _, ok := l.names["x"]; !ok {
		t.Fatal("expected x to be present")
	}
	if len(l.names) != len(defaultNames)+1 {
		t.Errorf("expected exactly one new entry, names=%v", l.names)
	}
}

func TestWineExePreferredOverPreloaderBasename(t *testing.T) {
	l := New(nil, func(int) bool { return false })
	if l.IsBlacklisted(1, "/usr/bin/wine-preloader", "steam.exe") {
		t.Fatal("wine.exe target not in blacklist, should not be blacklisted")
	}
	if !l.IsBlacklisted(1, "/usr/bin/wine-preloader", "steam") {
		t.Fatal("expected the wine target basename steam to be blacklisted")
	}
}

func TestGTKLibraryDetection(t *testing.T) {
	l := New(nil, func(pid int) bool { return pid == 42 })
	if !l.IsBlacklisted(42, "/usr/bin/mygame", "") {
		t.Error("expected process with a mapped GTK library to be blacklisted")
	}
	if l.IsBlacklisted(43, "/usr/bin/othergame", "") {
		t.Error("expected process without a mapped GTK library to not be blacklisted")
	}
}

func TestForceRecheckClearsCache(t *testing.T) {
	calls := 0
	l := New(nil, func(int) bool { calls++; return calls == 1 })

	if !l.IsBlacklisted(7, "/usr/bin/game", "") {
		t.Fatal("expected first check to blacklist via gtk scan")
	}
	if !l.IsBlacklisted(7, "/usr/bin/game", "") {
		t.Fatal("expected cached verdict to remain true without a second scan")
	}
	if calls != 1 {
		t.Fatalf("expected gtkScan called once before recheck, got %d", calls)
	}

	l.ForceRecheck()
	if l.IsBlacklisted(7, "/usr/bin/game", "") {
		t.Fatal("expected post-recheck scan (calls==2) to return false")
	}
	if calls != 2 {
		t.Fatalf("expected gtkScan called again after ForceRecheck, got %d", calls)
	}
}
