// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// SPDX-License-Identifier: MIT

package config

// Snapshot is the immutable, effective configuration at a point in time.
// Epoch increments monotonically on every successful Swap so callers can
// assert "no mixed config" was observed across an operation. Params is
// referenced, never copied-then-mutated, so concurrent readers always see
// either the previous Snapshot or the next one in full.
type Snapshot struct {
	Epoch uint64
	App   Params
}

// BuildSnapshot wraps a validated Params into a Snapshot; Epoch is assigned
// by Holder.Swap.
func BuildSnapshot(app Params) Snapshot {
	return Snapshot{App: app}
}
