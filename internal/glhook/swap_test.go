// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package glhook

import (
	"testing"
	"time"

	"github.com/mangohud/overlayd/internal/framestats"
	"github.com/mangohud/overlayd/internal/hud"
	"github.com/mangohud/overlayd/internal/pacing"
	"github.com/stretchr/testify/assert"
)

func TestHandleSwapDrivesFramePacingAndStats(t *testing.T) {
	registry := NewRegistry()
	i := NewInterceptor(registry, func() ContextHandle { return 9 }, nil, hud.NoopCompositor{})

	queue := pacing.NewQueueLimiter("gl", nil)
	fps := pacing.NewFPSLimiter(queue)
	fps.SetFPSLimit(0, true) // disabled: must not block the test on a real sleep
	present := pacing.NewPresentLimiter("gl", nil)
	ring := framestats.NewRing()

	fixedNow := time.Unix(1700000000, 0)
	i.SetPacing(fps, present, 1, ring, func() time.Time { return fixedNow })

	ok := i.HandleSwap(func() bool { return true })
	assert.True(t, ok)
	assert.Equal(t, uint64(1), ring.NFrames())
}

func TestHandleSwapPacingNoopsWithoutConfiguredLimiters(t *testing.T) {
	registry := NewRegistry()
	i := NewInterceptor(registry, func() ContextHandle { return 3 }, nil, hud.NoopCompositor{})

	called := false
	ok := i.HandleSwap(func() bool { called = true; return true })
	assert.True(t, ok)
	assert.True(t, called)
}
