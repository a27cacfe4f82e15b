// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package control

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExporter_ProcessInfoCarriesPidAndExec(t *testing.T) {
	_ = NewExporter(ExporterConfig{Exec: "mangoapp", Pid: 4242, IntervalMs: 1000})
	t.Cleanup(processInfo.Reset)

	got := testutil.ToFloat64(processInfo.WithLabelValues("4242", "mangoapp"))
	assert.Equal(t, 1.0, got)
}

func TestExporter_SetListenAddrRestartsOnlyOnChange(t *testing.T) {
	e := NewExporter(ExporterConfig{Exec: "mangoapp", IntervalMs: 1000})
	t.Cleanup(processInfo.Reset)

	require.NoError(t, e.SetListenAddr("127.0.0.1:0"))
	firstSrv := e.srv
	require.NotNil(t, firstSrv)

	// Same address: server must not be replaced.
	require.NoError(t, e.SetListenAddr(firstSrv.Addr))
	assert.Same(t, firstSrv, e.srv)

	// Different address: server must be replaced.
	require.NoError(t, e.SetListenAddr(":0"))
	assert.NotSame(t, firstSrv, e.srv)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	e.Stop(ctx)
}

func TestExporter_ScrapeServesRenderedPayload(t *testing.T) {
	reg := prometheus.NewRegistry()
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "exporter_test_gauge",
		Help: "test gauge",
	})
	gauge.Set(7)
	reg.MustRegister(gauge)

	e := &Exporter{gatherer: reg}
	e.payload.Store("")
	e.intervalMs.Store(1000)

	payload, err := e.render()
	require.NoError(t, err)
	assert.Contains(t, payload, "exporter_test_gauge 7")
	e.payload.Store(payload)

	rr := httptest.NewRecorder()
	e.handleScrape(rr, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rr.Code)
	assert.Equal(t, "text/plain; version=0.0.4", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "exporter_test_gauge 7")
}

func TestExporter_SetIntervalDoesNotRestartServer(t *testing.T) {
	e := NewExporter(ExporterConfig{Exec: "mangoapp", IntervalMs: 1000})
	t.Cleanup(processInfo.Reset)

	require.NoError(t, e.SetListenAddr("127.0.0.1:0"))
	srv := e.srv
	require.NotNil(t, srv)

	e.SetInterval(16)
	assert.Equal(t, int64(16), e.intervalMs.Load())
	assert.Same(t, srv, e.srv)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	e.Stop(ctx)
}
