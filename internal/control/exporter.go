// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package control

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog"

	xglog "github.com/mangohud/overlayd/internal/log"
)

var processInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "mangohud",
		Name:      "process_info",
		Help:      "Constant info metric carrying the hooked process's pid and executable name",
	},
	[]string{"pid", "exec"},
)

// ExporterConfig is the subset of Params the Prometheus exporter reacts to.
type ExporterConfig struct {
	ListenAddr string
	IntervalMs int64
	Exec       string
	Pid        int
}

// Exporter renders the process's Prometheus metrics on a fixed interval
// into a cached text payload and serves that payload over plain HTTP,
// matching spec.md §4.7: a collector ticks every otel_interval_ms and a
// minimal HTTP server answers each scrape with the most recently rendered
// payload rather than gathering live per-request. Listen-address changes
// restart the server; interval changes are picked up by the next tick
// without a restart.
//
// The server is built on net/http.Server rather than a literal
// one-connection-at-a-time accept loop: keep-alives are disabled, so the
// standard server closes each connection after writing its response (no
// persistent scrape connections), and the observable behavior — one full
// request/response cycle per scrape — matches without hand-rolling a
// custom listener loop.
type Exporter struct {
	gatherer prometheus.Gatherer

	intervalMs atomic.Int64
	payload    atomic.Value // string

	mu     sync.Mutex
	addr   string
	srv    *http.Server
	cancel context.CancelFunc
}

// NewExporter builds an Exporter bound to the default Prometheus registry.
func NewExporter(cfg ExporterConfig) *Exporter {
	pid := cfg.Pid
	if pid == 0 {
		pid = os.Getpid()
	}
	processInfo.Reset()
	processInfo.WithLabelValues(strconv.Itoa(pid), cfg.Exec).Set(1)

	e := &Exporter{
		gatherer: prometheus.DefaultGatherer,
	}
	e.payload.Store("")
	e.intervalMs.Store(cfg.IntervalMs)
	return e
}

// Start begins the collector loop and, if listenAddr is non-empty, the
// HTTP server. startupDelay defers the first sample, matching
// otel_startup_delay_s.
func (e *Exporter) Start(ctx context.Context, listenAddr string, startupDelay time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	logger := xglog.WithComponent("prometheus_exporter")

	go func() {
		if startupDelay > 0 {
			select {
			case <-time.After(startupDelay):
			case <-ctx.Done():
				return
			}
		}
		e.collectLoop(ctx, logger)
	}()

	if listenAddr != "" {
		if err := e.SetListenAddr(listenAddr); err != nil {
			logger.Warn().Err(err).Str("addr", listenAddr).Msg("failed to start prometheus HTTP server")
		}
	}
}

// Stop cancels the collector loop and shuts down any running HTTP server.
func (e *Exporter) Stop(ctx context.Context) {
	e.mu.Lock()
	cancel := e.cancel
	srv := e.srv
	e.srv = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if srv != nil {
		_ = srv.Shutdown(ctx)
	}
}

// SetInterval updates the collector tick period; picked up by the next
// tick without restarting anything.
func (e *Exporter) SetInterval(ms int64) {
	e.intervalMs.Store(ms)
}

// SetListenAddr restarts the HTTP server on addr if it differs from the
// currently bound address, matching spec.md's "changes to otel_listen
// restart the server".
func (e *Exporter) SetListenAddr(addr string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if addr == e.addr && e.srv != nil {
		return nil
	}

	if e.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.srv.Shutdown(shutdownCtx)
		e.srv = nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", xglog.Middleware()(http.HandlerFunc(e.handleScrape)))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv.SetKeepAlivesEnabled(false)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("exporter: listen on %q: %w", addr, err)
	}

	logger := xglog.WithComponent("prometheus_exporter")
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn().Err(err).Str("addr", addr).Msg("prometheus HTTP server stopped")
		}
	}()

	e.srv = srv
	e.addr = addr
	return nil
}

func (e *Exporter) handleScrape(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(e.payload.Load().(string)))
}

func (e *Exporter) collectLoop(ctx context.Context, logger zerolog.Logger) {
	interval := time.Duration(e.intervalMs.Load()) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			payload, err := e.render()
			if err != nil {
				logger.Warn().Err(err).Msg("failed to render prometheus payload")
			} else {
				e.payload.Store(payload)
				logger.Debug().
					Str("bytes", humanize.Bytes(uint64(len(payload)))).
					Dur("render_time", time.Since(start)).
					Msg("rendered prometheus payload")
			}

			if next := time.Duration(e.intervalMs.Load()) * time.Millisecond; next > 0 && next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

// render gathers the registry and encodes it as Prometheus text format.
func (e *Exporter) render() (string, error) {
	mfs, err := e.gatherer.Gather()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
