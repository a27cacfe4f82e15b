// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"net"
	"strings"
)

// Validate rejects Params that would crash or misbehave the overlay runtime.
// It never mutates p; the caller decides whether to keep the previous
// configuration on error, per spec.md §7's reload-failure behavior.
func Validate(p Params) error {
	switch p.FPSLimitMethod {
	case LimitEarly, LimitLate:
	default:
		return fmt.Errorf("%w: fps_limit_method %q (want early or late)", ErrInvalidValue, p.FPSLimitMethod)
	}

	for _, limit := range p.FPSLimit {
		if limit == 0 {
			return fmt.Errorf("%w: fps_limit entries must be positive, got 0", ErrInvalidValue)
		}
	}

	switch p.Position {
	case PositionTopLeft, PositionTopRight, PositionBottomLeft, PositionBottomRight:
	default:
		return fmt.Errorf("%w: position %q", ErrInvalidValue, p.Position)
	}

	if p.FontSize <= 0 {
		return fmt.Errorf("%w: font_size must be positive, got %f", ErrInvalidValue, p.FontSize)
	}
	if p.FontScale <= 0 {
		return fmt.Errorf("%w: font_scale must be positive, got %f", ErrInvalidValue, p.FontScale)
	}

	if p.OTel && p.OTelListen != "" {
		if _, _, err := net.SplitHostPort(p.OTelListen); err != nil {
			return fmt.Errorf("%w: otel_listen %q: %v", ErrInvalidValue, p.OTelListen, err)
		}
	}
	if p.OTelIntervalMS < 0 {
		return fmt.Errorf("%w: otel_interval_ms must be non-negative, got %d", ErrInvalidValue, p.OTelIntervalMS)
	}
	if p.OTelStartupDelayS < 0 {
		return fmt.Errorf("%w: otel_startup_delay_s must be non-negative, got %d", ErrInvalidValue, p.OTelStartupDelayS)
	}

	if p.PermitUpload && strings.TrimSpace(p.UploadURL) == "" {
		return fmt.Errorf("%w: permit_upload is set but upload_url is empty", ErrInvalidValue)
	}

	return nil
}
