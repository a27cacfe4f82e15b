// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package pacing implements the three frame-pacing primitives the overlay
// injects between the application and the driver: a queue limiter bounding
// in-flight GPU submissions, a present limiter built on VK_KHR_present_wait,
// and an fps limiter that sleeps to hold a target frame interval.
package pacing

import "time"

// clock abstracts time so tests can advance it deterministically instead of
// sleeping in real time.
type clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time     { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }
