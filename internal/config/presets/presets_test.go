// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package presets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadParsesEmbeddedLadder(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)
	require.Equal(t, 5, cat.Len())

	assert.Equal(t, "no_display", cat.At(0).Name)
	assert.Equal(t, "full", cat.At(4).Name)
	assert.True(t, cat.At(4).Enabled["gpu_fan"])
	assert.False(t, cat.At(0).Enabled["fps"])
}

func TestAtWrapsBothDirections(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cat.At(0).Name, cat.At(5).Name)
	assert.Equal(t, cat.At(4).Name, cat.At(-1).Name)
}

func TestNextLevelWrapsToZero(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cat.NextLevel(4))
	assert.Equal(t, 3, cat.NextLevel(2))
}

func TestLoadIsCachedAcrossCalls(t *testing.T) {
	a, err := Load()
	require.NoError(t, err)
	b, err := Load()
	require.NoError(t, err)
	assert.Same(t, a, b)
}
