// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package intel samples Intel GPU telemetry by spawning `intel_gpu_top -J`
// and parsing its streamed JSON objects incrementally. The subprocess emits
// a top-level JSON array whose objects are separated by commas and never
// closed while intel_gpu_top keeps running, so the objects are extracted
// one at a time by watching for a closing "},", "}" or "}]" line rather than
// waiting for encoding/json to see a complete top-level value. A failed
// initial spawn is retried with bounded exponential backoff; once the
// subprocess has run and later exits, the sampler permanently disables
// itself for the process lifetime, matching spec.md §4.4/§7.
package intel

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/cenkalti/backoff/v5"
	xglog "github.com/mangohud/overlayd/internal/log"
	"github.com/mangohud/overlayd/internal/metrics/gpu"
)

// Sample is one decoded intel_gpu_top JSON object's fields of interest.
type Sample struct {
	LoadPercent float64
	CoreClock   float64
	PowerGPU    float64
	PowerPkg    float64
}

type engine struct {
	Busy float64 `json:"busy"`
}

type wireSample struct {
	Engines   map[string]engine `json:"engines"`
	Frequency struct {
		Actual float64 `json:"actual"`
	} `json:"frequency"`
	Power struct {
		GPU     float64 `json:"GPU"`
		Package float64 `json:"Package"`
	} `json:"power"`
}

func (w wireSample) toSample() Sample {
	s := Sample{CoreClock: w.Frequency.Actual, PowerGPU: w.Power.GPU, PowerPkg: w.Power.Package}
	if e, ok := w.Engines["Render/3D/0"]; ok {
		s.LoadPercent = e.Busy
	}
	return s
}

// CommandFunc builds the command to spawn; overridable for tests and for
// the steam-runtime-launch-client wrapping path spec.md §4.4 describes.
type CommandFunc func(ctx context.Context) *exec.Cmd

// DefaultCommand spawns intel_gpu_top directly, 500ms sample period.
func DefaultCommand(ctx context.Context) *exec.Cmd {
	return exec.CommandContext(ctx, "intel_gpu_top", "-J", "-s", "500")
}

// ContainerCommand wraps the spawn through steam-runtime-launch-client, for
// processes running inside the Steam Runtime container.
func ContainerCommand(ctx context.Context) *exec.Cmd {
	return exec.CommandContext(ctx, "steam-runtime-launch-client", "--alongside-steam", "--host", "--", "intel_gpu_top", "-J", "-s", "500")
}

// Sampler owns the intel_gpu_top subprocess.
type Sampler struct {
	cmdFn    CommandFunc
	device   string
	disabled bool
}

// NewSampler builds a sampler using cmdFn to construct the subprocess.
func NewSampler(cmdFn CommandFunc, device string) *Sampler {
	return &Sampler{cmdFn: cmdFn, device: device}
}

// Disabled reports whether the sampler has permanently stopped.
func (s *Sampler) Disabled() bool { return s.disabled }

// Run spawns the subprocess (retrying the initial spawn with bounded
// exponential backoff) and streams samples into the GPU gauges until ctx
// is canceled or the subprocess exits, at which point the sampler
// permanently disables itself for the remainder of the process lifetime.
func (s *Sampler) Run(ctx context.Context) {
	logger := xglog.WithComponent("intel_gpu")

	cmd, stdout, err := s.spawnWithBackoff(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("intel_gpu_top spawn failed permanently, disabling gpu stats")
		s.disabled = true
		gpu.IncSampleError(s.device, "intel")
		return
	}

	if err := streamSamples(ctx, stdout, func(sample Sample) {
		gpu.RecordSample(s.device, "intel", sample.LoadPercent, sample.CoreClock*1e6, 0, 0, 0,
			sample.PowerGPU+sample.PowerPkg, 0)
	}); err != nil && ctx.Err() == nil {
		logger.Warn().Err(err).Msg("intel_gpu_top stream ended")
	}

	_ = cmd.Wait()
	s.disabled = true
	logger.Info().Msg("intel_gpu_top exited, disabling gpu stats for the remainder of this session")
}

func (s *Sampler) spawnWithBackoff(ctx context.Context) (*exec.Cmd, io.ReadCloser, error) {
	type spawned struct {
		cmd    *exec.Cmd
		stdout io.ReadCloser
	}
	op := func() (spawned, error) {
		cmd := s.cmdFn(ctx)
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return spawned{}, err
		}
		if err := cmd.Start(); err != nil {
			return spawned{}, err
		}
		return spawned{cmd: cmd, stdout: stdout}, nil
	}
	sp, err := backoff.Retry(ctx, op, backoff.WithMaxTries(5), backoff.WithBackOff(backoff.NewExponentialBackOff()))
	if err != nil {
		return nil, nil, fmt.Errorf("spawn intel_gpu_top: %w", err)
	}
	return sp.cmd, sp.stdout, nil
}

// streamSamples reads intel_gpu_top -J's line-oriented array-of-objects
// output, accumulating lines until a line that closes a JSON object (just
// "}" or "},", possibly followed by the array's closing "]") is seen, then
// decodes the accumulated buffer as a single object. This mirrors the
// boundary heuristic the original C sampler used instead of depending on
// the array ever being fully closed, since intel_gpu_top never terminates
// the array while it keeps running.
func streamSamples(ctx context.Context, r io.Reader, onSample func(Sample)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var buf strings.Builder
	first := true // the very first object is typically an incomplete fragment; skip it
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "[" || trimmed == "" {
			continue
		}
		buf.WriteString(line)
		buf.WriteByte('\n')

		if isObjectBoundary(trimmed) {
			text := strings.TrimRight(strings.TrimSpace(buf.String()), ",]")
			buf.Reset()
			if first {
				first = false
				continue
			}
			var w wireSample
			if err := json.Unmarshal([]byte(text), &w); err == nil {
				onSample(w.toSample())
			}
		}
	}
	return scanner.Err()
}

// isObjectBoundary reports whether a trimmed line closes a top-level JSON
// object in intel_gpu_top's streamed array: "}", "}," or "}]" with nothing else.
func isObjectBoundary(trimmed string) bool {
	return trimmed == "}" || trimmed == "}," || trimmed == "}]"
}
