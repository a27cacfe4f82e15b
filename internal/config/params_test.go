// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestCloneDoesNotAliasMutableFields(t *testing.T) {
	p := Default()
	p.FPSLimit = []uint32{60}
	p.Presets = []string{"default"}
	p.Blacklist["steam"] = struct{}{}
	p.Enabled["gpu_temp"] = true
	p.Colors["fps"] = "FFFFFF"

	clone := p.Clone()
	if diff := cmp.Diff(p, clone); diff != "" {
		t.Errorf("clone must be deeply equal to the original (-want +got):\n%s", diff)
	}

	clone.FPSLimit[0] = 30
	clone.Presets[0] = "full"
	clone.Blacklist["wine"] = struct{}{}
	clone.Enabled["gpu_temp"] = false
	clone.Colors["fps"] = "000000"

	assert.Equal(t, uint32(60), p.FPSLimit[0], "mutating the clone's slice must not affect the original")
	assert.Equal(t, "default", p.Presets[0])
	_, wineInOriginal := p.Blacklist["wine"]
	assert.False(t, wineInOriginal)
	assert.True(t, p.Enabled["gpu_temp"])
	assert.Equal(t, "FFFFFF", p.Colors["fps"])
}

func TestValidateAcceptsDefault(t *testing.T) {
	assert.NoError(t, Validate(Default()))
}

func TestValidateRejectsBadFPSLimitMethod(t *testing.T) {
	p := Default()
	p.FPSLimitMethod = "sometimes"
	assert.ErrorIs(t, Validate(p), ErrInvalidValue)
}

func TestValidateRejectsZeroFPSLimitEntry(t *testing.T) {
	p := Default()
	p.FPSLimit = []uint32{60, 0}
	assert.ErrorIs(t, Validate(p), ErrInvalidValue)
}

func TestValidateRejectsUnknownPosition(t *testing.T) {
	p := Default()
	p.Position = "center"
	assert.ErrorIs(t, Validate(p), ErrInvalidValue)
}

func TestValidateRejectsNonPositiveFontSizeAndScale(t *testing.T) {
	p := Default()
	p.FontSize = 0
	assert.ErrorIs(t, Validate(p), ErrInvalidValue)

	p = Default()
	p.FontScale = -1
	assert.ErrorIs(t, Validate(p), ErrInvalidValue)
}

func TestValidateRejectsMalformedOTelListenOnlyWhenEnabled(t *testing.T) {
	p := Default()
	p.OTelListen = "not-a-host-port"
	assert.NoError(t, Validate(p), "otel_listen is only validated when otel is enabled")

	p.OTel = true
	assert.ErrorIs(t, Validate(p), ErrInvalidValue)

	p.OTelListen = "127.0.0.1:9001"
	assert.NoError(t, Validate(p))
}

func TestValidateRejectsPermitUploadWithoutURL(t *testing.T) {
	p := Default()
	p.PermitUpload = true
	assert.ErrorIs(t, Validate(p), ErrInvalidValue)

	p.UploadURL = "https://example.invalid/upload"
	assert.NoError(t, Validate(p))
}
