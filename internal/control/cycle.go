// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package control

import "github.com/mangohud/overlayd/internal/config"

// FPSLimitCycler advances through a configured fps_limit list on each
// ActionCycleFPSLimit, wrapping to the first entry after the last.
type FPSLimitCycler struct {
	values []uint32
	idx    int
}

// NewFPSLimitCycler builds a cycler over values, starting before index 0
// so the first Next() call yields values[0].
func NewFPSLimitCycler(values []uint32) *FPSLimitCycler {
	return &FPSLimitCycler{values: values, idx: -1}
}

// Next advances to the next configured fps_limit and returns it. ok is
// false if no fps_limit values are configured at all.
func (c *FPSLimitCycler) Next() (limit uint32, ok bool) {
	if len(c.values) == 0 {
		return 0, false
	}
	c.idx = (c.idx + 1) % len(c.values)
	return c.values[c.idx], true
}

// positionOrder is the fixed cycle order for ActionCyclePosition.
var positionOrder = []config.Position{
	config.PositionTopLeft,
	config.PositionTopRight,
	config.PositionBottomRight,
	config.PositionBottomLeft,
}

// NextPosition returns the position that follows current in the fixed
// cycle order, wrapping back to top-left after bottom-left.
func NextPosition(current config.Position) config.Position {
	for i, p := range positionOrder {
		if p == current {
			return positionOrder[(i+1)%len(positionOrder)]
		}
	}
	return positionOrder[0]
}
