// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// RawFile is the parsed, line-oriented contents of a MangoHud config file:
// no sections, `key=value` or a bare `key` (meaning value "1"), `#` comments
// to end of line. Order is preserved for diagnostics but lookups are by key.
type RawFile struct {
	Order  []string
	Values map[string]string
}

// ParseFile reads and parses path. It never fails on unrecognized keys —
// per spec.md §6 the grammar has no notion of "unknown key", only of
// whether a recognized Params field later chooses to consume it.
func ParseFile(path string) (*RawFile, error) {
	f, err := os.Open(path) // #nosec G304 -- operator-provided config path
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseReader(f)
}

// ParseReader parses the bare key=value / bare-key grammar from r.
func ParseReader(r io.Reader) (*RawFile, error) {
	out := &RawFile{Values: map[string]string{}}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, hasEq := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if hasEq {
			value = strings.TrimSpace(value)
		} else {
			value = "1"
		}
		if _, exists := out.Values[key]; !exists {
			out.Order = append(out.Order, key)
		}
		out.Values[key] = value
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ParseInline parses the MANGOHUD_CONFIG inline override, which uses the
// same grammar but with entries separated by ':' instead of newlines.
func ParseInline(s string) *RawFile {
	out := &RawFile{Values: map[string]string{}}
	for _, part := range strings.Split(s, ":") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, hasEq := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if hasEq {
			value = strings.TrimSpace(value)
		} else {
			value = "1"
		}
		if _, exists := out.Values[key]; !exists {
			out.Order = append(out.Order, key)
		}
		out.Values[key] = value
	}
	return out
}
