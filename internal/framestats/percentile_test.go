// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package framestats

import (
	"testing"
	"time"
)

func metricValue(t *testing.T, metrics []Metric, name string) float64 {
	t.Helper()
	for _, m := range metrics {
		if m.Name == name {
			return m.Value
		}
	}
	t.Fatalf("no metric named %q in %v", name, metrics)
	return 0
}

func feedAndWait(e *PercentileEngine, fps []float64) {
	base := time.Unix(1000, 0)
	for i, v := range fps {
		e.Observe(base.Add(time.Duration(i)*time.Millisecond), v)
	}
	// Observe already triggers a synchronous-enough recompute request; give
	// the worker goroutine a moment to drain its single-slot wake channel.
	for i := 0; i < 1000; i++ {
		if len(e.Metrics()) > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPercentileEngineSeriesOneToHundred(t *testing.T) {
	fps := make([]float64, 100)
	for i := range fps {
		fps[i] = float64(i + 1)
	}

	e := NewPercentileEngine([]float64{0.001, 0.01, 0.97})
	defer e.Shutdown()
	feedAndWait(e, fps)

	metrics := e.Metrics()
	if got := metricValue(t, metrics, "AVG"); got != 50.5 {
		t.Errorf("AVG = %v, want 50.5", got)
	}
	if got := metricValue(t, metrics, "97%"); got != 97 {
		t.Errorf("97%% = %v, want 97", got)
	}
	if got := metricValue(t, metrics, "1%"); got != 1 {
		t.Errorf("1%% min = %v, want 1", got)
	}
	if got := metricValue(t, metrics, "0.1%"); got != 1 {
		t.Errorf("0.1%% min = %v, want 1", got)
	}
}

func TestPercentileEngineScenarioS3(t *testing.T) {
	fps := []float64{120, 60, 60, 60, 30, 60, 60, 60, 60, 60}

	e := NewPercentileEngine([]float64{0.001, 0.01, 0.97})
	defer e.Shutdown()
	feedAndWait(e, fps)

	metrics := e.Metrics()
	if got := metricValue(t, metrics, "0.1%"); got != 30 {
		t.Errorf("0.1%% min = %v, want 30", got)
	}
	if got := metricValue(t, metrics, "1%"); got != 30 {
		t.Errorf("1%% min = %v, want 30", got)
	}
	if got := metricValue(t, metrics, "AVG"); got != 63 {
		t.Errorf("AVG = %v, want 63.0", got)
	}
	if got := metricValue(t, metrics, "97%"); got != 120 {
		t.Errorf("97%% = %v, want 120", got)
	}
}

func TestPercentileEngineDropsInvalidPercentiles(t *testing.T) {
	e := NewPercentileEngine([]float64{0, 1, -0.5, 1.5, 0.5})
	defer e.Shutdown()
	feedAndWait(e, []float64{60, 60})

	metrics := e.Metrics()
	for _, name := range []string{"0%", "100%", "-50%", "150%"} {
		for _, m := range metrics {
			if m.Name == name {
				t.Errorf("expected invalid percentile %q to be dropped", name)
			}
		}
	}
	// 0.5 is valid (strictly between 0 and 1) and should survive.
	metricValue(t, metrics, "50%")
}

func TestPercentileEngineTrimsHistoryOlderThanTenMinutes(t *testing.T) {
	e := NewPercentileEngine([]float64{0.5})
	defer e.Shutdown()

	old := time.Unix(1000, 0)
	e.Observe(old, 10)
	recent := old.Add(11 * time.Minute)
	e.Observe(recent, 90)

	for i := 0; i < 1000; i++ {
		if len(e.Metrics()) > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	got := metricValue(t, e.Metrics(), "AVG")
	if got != 90 {
		t.Errorf("AVG = %v, want 90 (old sample should have been trimmed)", got)
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[float64]string{
		0.01:  "1%",
		0.97:  "97%",
		0.001: "0.1%",
		0.5:   "50%",
	}
	for p, want := range cases {
		if got := displayName(p); got != want {
			t.Errorf("displayName(%v) = %q, want %q", p, got, want)
		}
	}
}
