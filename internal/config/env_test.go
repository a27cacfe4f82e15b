// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseStringUsesEnvWhenSetAndNonEmpty(t *testing.T) {
	t.Setenv("MANGOHUD_TEST_STRING", "hello")
	assert.Equal(t, "hello", ParseString("MANGOHUD_TEST_STRING", "fallback"))
}

func TestParseStringFallsBackWhenUnsetOrEmpty(t *testing.T) {
	assert.Equal(t, "fallback", ParseString("MANGOHUD_TEST_STRING_UNSET", "fallback"))
	t.Setenv("MANGOHUD_TEST_STRING_EMPTY", "")
	assert.Equal(t, "fallback", ParseString("MANGOHUD_TEST_STRING_EMPTY", "fallback"))
}

func TestParseIntInvalidFallsBackToDefault(t *testing.T) {
	t.Setenv("MANGOHUD_TEST_INT", "not-a-number")
	assert.Equal(t, 42, ParseInt("MANGOHUD_TEST_INT", 42))

	t.Setenv("MANGOHUD_TEST_INT", "7")
	assert.Equal(t, 7, ParseInt("MANGOHUD_TEST_INT", 42))
}

func TestParseDurationParsesGoDurationFormat(t *testing.T) {
	t.Setenv("MANGOHUD_TEST_DURATION", "5s")
	assert.Equal(t, 5*time.Second, ParseDuration("MANGOHUD_TEST_DURATION", time.Second))

	t.Setenv("MANGOHUD_TEST_DURATION", "bogus")
	assert.Equal(t, time.Second, ParseDuration("MANGOHUD_TEST_DURATION", time.Second))
}

func TestParseBoolAcceptsLooseSynonyms(t *testing.T) {
	for _, v := range []string{"true", "1", "yes"} {
		t.Setenv("MANGOHUD_TEST_BOOL", v)
		assert.True(t, ParseBool("MANGOHUD_TEST_BOOL", false), "value %q should parse true", v)
	}
	for _, v := range []string{"false", "0", "no"} {
		t.Setenv("MANGOHUD_TEST_BOOL", v)
		assert.False(t, ParseBool("MANGOHUD_TEST_BOOL", true), "value %q should parse false", v)
	}
	t.Setenv("MANGOHUD_TEST_BOOL", "maybe")
	assert.True(t, ParseBool("MANGOHUD_TEST_BOOL", true), "unrecognized value falls back to default")
}

func TestParseFloatInvalidFallsBackToDefault(t *testing.T) {
	t.Setenv("MANGOHUD_TEST_FLOAT", "1.5")
	assert.Equal(t, 1.5, ParseFloat("MANGOHUD_TEST_FLOAT", 2.0))

	t.Setenv("MANGOHUD_TEST_FLOAT", "nope")
	assert.Equal(t, 2.0, ParseFloat("MANGOHUD_TEST_FLOAT", 2.0))
}
