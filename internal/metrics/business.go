// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics provides Prometheus metrics collection for the overlay
// runtime itself: frame pacing, present timing, and control-plane activity.
// Vendor GPU/CPU telemetry gauges live in the metrics/gpu and metrics/cpu
// subpackages since each sampler owns a distinct label set.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesPresentedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mangohud_frames_presented_total",
		Help: "Total number of frames presented by the hooked application",
	})

	frameTimeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mangohud_frame_time_seconds",
		Help:    "Time between consecutive present calls",
		Buckets: []float64{0.001, 0.002, 0.004, 0.008, 0.012, 0.016, 0.02, 0.033, 0.05, 0.1},
	})

	fpsCurrent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mangohud_fps_current",
		Help: "Current frames-per-second over the rolling frame stats window",
	})

	fpsLimiterSleepSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mangohud_fps_limiter_sleep_seconds",
		Help:    "Time spent sleeping to honor the configured fps_limit",
		Buckets: prometheus.DefBuckets,
	})

	presentWaitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mangohud_present_wait_total",
		Help: "Total present-wait outcomes by device",
	}, []string{"device", "outcome"}) // outcome=ok|timeout

	queueSubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mangohud_queue_submissions_total",
		Help: "Total GPU queue submissions observed by the dispatch core",
	}, []string{"queue"})

	configReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mangohud_config_reloads_total",
		Help: "Total configuration reload attempts by outcome",
	}, []string{"outcome"}) // outcome=success|load_error|validation_error

	keybindPressesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mangohud_keybind_presses_total",
		Help: "Total keybind activations by action",
	}, []string{"action"})

	controlCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mangohud_control_commands_total",
		Help: "Total control socket commands processed by command and outcome",
	}, []string{"command", "outcome"})

	logBenchRowsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mangohud_logbench_rows_written_total",
		Help: "Total benchmark CSV rows written",
	})

	logBenchUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mangohud_logbench_uploads_total",
		Help: "Total benchmark log upload attempts by outcome",
	}, []string{"outcome"}) // outcome=success|error

	blacklistSkipsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mangohud_blacklist_skips_total",
		Help: "Total process launches the overlay declined to hook, by reason",
	}, []string{"reason"}) // reason=basename|gtk_library

	hudRenderSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mangohud_hud_render_seconds",
		Help:    "Time spent building and drawing the HUD for one frame",
		Buckets: []float64{0.0001, 0.0002, 0.0005, 0.001, 0.002, 0.005, 0.01},
	})
)

// IncFramesPresented records a single present call and its frame time.
func IncFramesPresented(frameTime float64) {
	framesPresentedTotal.Inc()
	frameTimeSeconds.Observe(frameTime)
}

// SetFPSCurrent updates the current FPS gauge.
func SetFPSCurrent(fps float64) { fpsCurrent.Set(fps) }

// ObserveFPSLimiterSleep records time slept by the fps limiter.
func ObserveFPSLimiterSleep(seconds float64) { fpsLimiterSleepSeconds.Observe(seconds) }

// IncPresentWait records a VK_KHR_present_wait outcome for a device.
func IncPresentWait(device, outcome string) {
	presentWaitTotal.WithLabelValues(device, outcome).Inc()
}

// IncQueueSubmission records a GPU queue submission.
func IncQueueSubmission(queue string) { queueSubmissionsTotal.WithLabelValues(queue).Inc() }

// IncConfigReload records a config reload attempt outcome.
func IncConfigReload(outcome string) { configReloadsTotal.WithLabelValues(outcome).Inc() }

// IncKeybindPress records a keybind activation.
func IncKeybindPress(action string) { keybindPressesTotal.WithLabelValues(action).Inc() }

// IncControlCommand records a processed control socket command.
func IncControlCommand(command, outcome string) {
	controlCommandsTotal.WithLabelValues(command, outcome).Inc()
}

// IncLogBenchRow records one benchmark CSV row written.
func IncLogBenchRow() { logBenchRowsWritten.Inc() }

// IncLogBenchUpload records a benchmark log upload attempt outcome.
func IncLogBenchUpload(outcome string) { logBenchUploadsTotal.WithLabelValues(outcome).Inc() }

// IncBlacklistSkip records a process the overlay declined to hook.
func IncBlacklistSkip(reason string) { blacklistSkipsTotal.WithLabelValues(reason).Inc() }

// ObserveHUDRender records time spent rendering one HUD frame.
func ObserveHUDRender(seconds float64) { hudRenderSeconds.Observe(seconds) }
