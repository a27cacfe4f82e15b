// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package logbench

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTryLogNoopWhenInactive(t *testing.T) {
	l := New(t.TempDir(), "game")
	l.TryLog(time.Now(), LogRow{FPS: 60})
	if len(l.rows) != 0 {
		t.Errorf("expected no rows recorded while inactive, got %d", len(l.rows))
	}
}

func TestStartTryLogStopWritesFiles(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, "game")
	start := time.Unix(1700000000, 0)
	l.Start(start, 0)

	for i := 0; i < 5; i++ {
		l.TryLog(start.Add(time.Duration(i)*time.Second), LogRow{FPS: 60 + float64(i), GPULoad: 50, CPULoad: 30})
	}

	full, summary, err := l.Stop(start.Add(5 * time.Second))
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if l.Active() {
		t.Error("expected logger to be inactive after Stop")
	}

	for _, path := range []string{full, summary} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected %s to exist: %v", path, err)
		}
	}

	fullContents, err := os.ReadFile(full)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(fullContents), strings.Join(fullLogHeader, ",")) {
		t.Errorf("full log missing expected header: %q", string(fullContents))
	}

	summaryContents, err := os.ReadFile(summary)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(summaryContents), strings.Join(summaryHeader, ",")) {
		t.Errorf("summary missing expected header: %q", string(summaryContents))
	}
	if !strings.Contains(string(summaryContents), "50.0,30.0") {
		t.Errorf("summary missing mean gpu/cpu load columns: %q", string(summaryContents))
	}
}

func TestLogDurationAutoStops(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, "game")
	start := time.Unix(1700000000, 0)
	l.Start(start, 2*time.Second)

	l.TryLog(start.Add(time.Second), LogRow{FPS: 60})
	if !l.Active() {
		t.Fatal("expected logger still active before log_duration elapses")
	}
	l.TryLog(start.Add(2*time.Second), LogRow{FPS: 60})
	if l.Active() {
		t.Error("expected logger to auto-stop once log_duration elapses")
	}
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	l := New(t.TempDir(), "game")
	full, summary, err := l.Stop(time.Now())
	if err != nil || full != "" || summary != "" {
		t.Errorf("Stop() on idle logger = (%q, %q, %v), want empty/nil", full, summary, err)
	}
}

func TestOutputFilenameConvention(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, "mygame")
	start := time.Date(2026, 7, 31, 10, 30, 0, 0, time.UTC)
	l.Start(start, 0)
	l.TryLog(start, LogRow{FPS: 60})
	full, summary, err := l.Stop(start)
	if err != nil {
		t.Fatal(err)
	}
	wantFull := filepath.Join(dir, "mygame_2026-07-31_10-30-00.csv")
	wantSummary := filepath.Join(dir, "mygame_2026-07-31_10-30-00_summary.csv")
	if full != wantFull {
		t.Errorf("full path = %q, want %q", full, wantFull)
	}
	if summary != wantSummary {
		t.Errorf("summary path = %q, want %q", summary, wantSummary)
	}
}
