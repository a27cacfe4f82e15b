// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package logbench

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/mangohud/overlayd/internal/metrics"
	"github.com/mangohud/overlayd/internal/platform/httpx"
	mhnet "github.com/mangohud/overlayd/internal/platform/net"
)

const uploadTimeout = 15 * time.Second

// Upload gzip-compresses the CSV at path and POSTs it to uploadURL as a
// multipart/form-data body with a single "logfile" form file field, which
// must be a direct http(s) URL with no embedded credentials. It records a
// mangohud_logbench_uploads_total outcome either way.
func Upload(ctx context.Context, path, uploadURL string) error {
	u, ok := mhnet.ParseDirectHTTPURL(uploadURL)
	if !ok {
		metrics.IncLogBenchUpload("error")
		return fmt.Errorf("invalid upload url %q", mhnet.SanitizeURL(uploadURL))
	}

	raw, err := os.ReadFile(path) // #nosec G304 -- path originates from this process's own completed log write
	if err != nil {
		metrics.IncLogBenchUpload("error")
		return fmt.Errorf("read log file: %w", err)
	}

	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	if _, err := gw.Write(raw); err != nil {
		metrics.IncLogBenchUpload("error")
		return fmt.Errorf("compress log file: %w", err)
	}
	if err := gw.Close(); err != nil {
		metrics.IncLogBenchUpload("error")
		return fmt.Errorf("finalize compressed log file: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("logfile", filepath.Base(path)+".gz")
	if err != nil {
		metrics.IncLogBenchUpload("error")
		return fmt.Errorf("build multipart form: %w", err)
	}
	if _, err := part.Write(gzBuf.Bytes()); err != nil {
		metrics.IncLogBenchUpload("error")
		return fmt.Errorf("write multipart form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		metrics.IncLogBenchUpload("error")
		return fmt.Errorf("finalize multipart form: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, u.String(), &body)
	if err != nil {
		metrics.IncLogBenchUpload("error")
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Mangohud-Filename", filepath.Base(path))

	resp, err := httpx.NewClient(uploadTimeout).Do(req)
	if err != nil {
		metrics.IncLogBenchUpload("error")
		return fmt.Errorf("upload log file: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		metrics.IncLogBenchUpload("error")
		return fmt.Errorf("upload rejected: status %s", resp.Status)
	}

	metrics.IncLogBenchUpload("success")
	return nil
}
