// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package logbench implements the benchmark CSV logger: a rolling buffer
// of per-present samples, started and stopped by keybind, control command,
// log_duration timeout, or process exit, with a percentile summary row
// written on stop.
package logbench

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/mangohud/overlayd/internal/framestats"
	"github.com/mangohud/overlayd/internal/metrics"
)

// LogRow is one sampled present, matching the full-log CSV column order.
type LogRow struct {
	FPS          float64
	FrameTime    time.Duration
	CPULoad      float64
	GPULoad      float64
	CPUTemp      float64
	GPUTemp      float64
	GPUCoreClock float64
	GPUMemClock  float64
	GPUVRAMUsed  float64
	GPUPower     float64
	RAMUsed      float64
	Elapsed      time.Duration
}

// Logger is the benchmark run state machine. A single Logger instance is
// shared by the present thread (TryLog) and the control/keybind paths
// (Start/Stop); all mutation goes through mu.
type Logger struct {
	mu           sync.Mutex
	active       bool
	rows         []LogRow
	startedAt    time.Time
	outputFolder string
	program      string
	logDuration  time.Duration
}

// New returns an idle logger writing into outputFolder when started.
// program names the hooked executable, used in the output filename.
func New(outputFolder, program string) *Logger {
	return &Logger{outputFolder: outputFolder, program: program}
}

// Active reports whether a run is currently being recorded.
func (l *Logger) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Start begins a new run at now, replacing any previous unflushed rows.
// logDuration, if positive, causes the run to auto-stop once that much
// time has elapsed; a zero duration means "until stopped explicitly".
func (l *Logger) Start(now time.Time, logDuration time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active = true
	l.rows = l.rows[:0]
	l.startedAt = now
	l.logDuration = logDuration
}

// TryLog appends one row if the logger is active, and auto-stops the run
// if log_duration has elapsed. It is called once per present and must
// never block on anything but its own mutex.
func (l *Logger) TryLog(now time.Time, row LogRow) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.active {
		return
	}
	row.Elapsed = now.Sub(l.startedAt)
	l.rows = append(l.rows, row)
	metrics.IncLogBenchRow()

	if l.logDuration > 0 && row.Elapsed >= l.logDuration {
		l.active = false
	}
}

// Stop ends the current run (a no-op when no run is active and no rows
// are buffered) and writes the full
// log plus the summary CSV to outputFolder. It returns the paths of both
// files so callers can queue them for upload.
func (l *Logger) Stop(now time.Time) (fullPath, summaryPath string, err error) {
	l.mu.Lock()
	rows := append([]LogRow(nil), l.rows...)
	wasActive := l.active
	l.active = false
	l.mu.Unlock()

	if !wasActive && len(rows) == 0 {
		return "", "", nil
	}

	base := fmt.Sprintf("%s_%s", l.program, now.Format("2006-01-02_15-04-05"))
	fullPath = filepath.Join(l.outputFolder, base+".csv")
	summaryPath = filepath.Join(l.outputFolder, base+"_summary.csv")

	if err := writeFullCSV(fullPath, rows); err != nil {
		return "", "", fmt.Errorf("write full log: %w", err)
	}

	summary := summarize(rows)
	if err := writeSummaryCSV(summaryPath, summary); err != nil {
		return "", "", fmt.Errorf("write summary: %w", err)
	}

	return fullPath, summaryPath, nil
}

type summaryRow struct {
	stats    framestats.Summary
	gpuLoad  float64
	cpuLoad  float64
}

func summarize(rows []LogRow) summaryRow {
	if len(rows) == 0 {
		return summaryRow{}
	}
	fps := make([]float64, len(rows))
	var gpuSum, cpuSum float64
	for i, r := range rows {
		fps[i] = r.FPS
		gpuSum += r.GPULoad
		cpuSum += r.CPULoad
	}
	n := float64(len(rows))
	return summaryRow{
		stats:   framestats.Summarize(fps),
		gpuLoad: gpuSum / n,
		cpuLoad: cpuSum / n,
	}
}
