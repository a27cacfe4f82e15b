// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package abi

import (
	xglog "github.com/mangohud/overlayd/internal/log"
	"github.com/mangohud/overlayd/internal/pacing"
)

// QueueSubmitInfo is the subset of a VkQueueSubmit call the dispatch core
// needs to throttle and track.
type QueueSubmitInfo struct {
	Queue          Handle
	CommandBuffers []Handle
}

// NextQueueSubmitFunc is the loader's real QueueSubmit.
type NextQueueSubmitFunc func(QueueSubmitInfo) Result

// QueueSubmit wraps the inner QueueSubmit with the configured
// QueueLimiter's throttle-before/mark-after pair (spec.md §4.1) and flips
// every named command buffer's Enqueued bit while it is in flight.
func (c *Core) QueueSubmit(info QueueSubmitInfo, limiter *pacing.QueueLimiter, next NextQueueSubmitFunc) (Result, error) {
	if limiter != nil {
		if err := limiter.ThrottleBeforeSubmit(); err != nil {
			return ErrorDeviceLost, err
		}
	}

	for _, cb := range info.CommandBuffers {
		if rec, ok := c.cmdbufs.Get(cb); ok {
			rec.Enqueued = true
			rec.Queue = info.Queue
		}
	}

	result := next(info)

	if limiter != nil && result.IsSuccess() {
		limiter.MarkAfterSubmit()
	}

	if !result.IsSuccess() {
		xglog.WithComponent("abi").Warn().Int("result", int(result)).Msg("queue submit failed")
	}

	return result, nil
}
