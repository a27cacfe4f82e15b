// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package logbench

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/renameio/v2"
)

var fullLogHeader = []string{
	"fps", "frametime", "cpu_load", "gpu_load", "cpu_temp", "gpu_temp",
	"gpu_core_clock", "gpu_mem_clock", "gpu_vram_used", "gpu_power", "ram_used", "elapsed",
}

var summaryHeader = []string{
	"0.1% Min FPS", "1% Min FPS", "97% Percentile FPS", "Average FPS", "GPU Load", "CPU Load",
}

// writeFullCSV writes the full per-present log atomically: renameio
// buffers the CSV in a pending temp file, fsyncs it, and renames it into
// place, so a crash mid-write never leaves a truncated log at path.
func writeFullCSV(path string, rows []LogRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return err
	}
	defer pending.Cleanup()

	w := csv.NewWriter(pending)
	if err := w.Write(fullLogHeader); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			formatFixed(r.FPS),
			strconv.FormatInt(r.FrameTime.Nanoseconds(), 10),
			formatFixed(r.CPULoad),
			formatFixed(r.GPULoad),
			formatFixed(r.CPUTemp),
			formatFixed(r.GPUTemp),
			formatFixed(r.GPUCoreClock),
			formatFixed(r.GPUMemClock),
			formatFixed(r.GPUVRAMUsed),
			formatFixed(r.GPUPower),
			formatFixed(r.RAMUsed),
			strconv.FormatInt(r.Elapsed.Nanoseconds(), 10),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return pending.CloseAtomicallyReplace()
}

func writeSummaryCSV(path string, s summaryRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return err
	}
	defer pending.Cleanup()

	w := csv.NewWriter(pending)
	if err := w.Write(summaryHeader); err != nil {
		return err
	}
	record := []string{
		formatFixed(s.stats.Min01Pct),
		formatFixed(s.stats.Min1Pct),
		formatFixed(s.stats.P97),
		formatFixed(s.stats.Avg),
		formatFixed(s.gpuLoad),
		formatFixed(s.cpuLoad),
	}
	if err := w.Write(record); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return pending.CloseAtomicallyReplace()
}

func formatFixed(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
