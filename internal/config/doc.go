// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads and hot-reloads MangoHud's overlay parameters.
//
// Params are parsed from a flat `key=value` file (see ParseFile) and from
// environment variables, combined with ENV taking precedence over the file,
// and both taking precedence over built-in defaults. The effective result is
// published as an immutable *Snapshot behind an atomic pointer so the present
// thread, the HUD, and background samplers all observe either the previous
// configuration or the next one, never a torn mix of the two.
package config
