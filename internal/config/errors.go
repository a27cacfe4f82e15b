// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "errors"

var (
	// ErrUnknownConfigField classifies a preset catalog entry referencing a
	// field the embedded schema doesn't recognize.
	ErrUnknownConfigField = errors.New("unknown config field")
	// ErrInvalidValue classifies a recognized key with a value that can't be
	// parsed into its expected type.
	ErrInvalidValue = errors.New("invalid config value")
)
