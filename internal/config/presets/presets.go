// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package presets loads the built-in HUD verbosity ladder
// (no_display/minimal/default/detailed/full) that ActionCyclePreset steps
// through. The catalog is embedded YAML, parsed once and cached by
// internal/cache, since the catalog never changes at runtime.
package presets

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mangohud/overlayd/internal/cache"
)

//go:embed presets.yaml
var catalogYAML []byte

const catalogCacheKey = "presets.catalog"

// Preset is one rung of the HUD verbosity ladder.
type Preset struct {
	Level   int             `yaml:"level"`
	Name    string          `yaml:"name"`
	Enabled map[string]bool `yaml:"enabled"`
}

type catalogFile struct {
	Presets []Preset `yaml:"presets"`
}

// Catalog is the parsed, level-ordered preset ladder.
type Catalog struct {
	presets []Preset
}

var (
	sharedCache = cache.NewMemoryCache(0)
	parseOnce   sync.Once
	parseErr    error
)

// Load returns the parsed catalog, parsing the embedded YAML once and
// caching the result for the process lifetime.
func Load() (*Catalog, error) {
	if v, ok := sharedCache.Get(catalogCacheKey); ok {
		return v.(*Catalog), nil
	}

	parseOnce.Do(func() {
		var raw catalogFile
		if err := yaml.Unmarshal(catalogYAML, &raw); err != nil {
			parseErr = fmt.Errorf("parse preset catalog: %w", err)
			return
		}
		sort.Slice(raw.Presets, func(i, j int) bool { return raw.Presets[i].Level < raw.Presets[j].Level })
		sharedCache.Set(catalogCacheKey, &Catalog{presets: raw.Presets}, 0)
	})
	if parseErr != nil {
		return nil, parseErr
	}
	v, _ := sharedCache.Get(catalogCacheKey)
	return v.(*Catalog), nil
}

// Len reports how many presets the ladder has.
func (c *Catalog) Len() int { return len(c.presets) }

// At returns the preset at level, wrapping around the ladder in either
// direction so CyclePreset never has to range-check.
func (c *Catalog) At(level int) Preset {
	n := len(c.presets)
	if n == 0 {
		return Preset{}
	}
	level %= n
	if level < 0 {
		level += n
	}
	return c.presets[level]
}

// NextLevel returns the level that follows current, wrapping to 0 after
// the last preset.
func (c *Catalog) NextLevel(current int) int {
	if len(c.presets) == 0 {
		return 0
	}
	return (current + 1) % len(c.presets)
}
