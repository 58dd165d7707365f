// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"hearaid/internal/dsp/wdrc"
)

// The band boundary table shared by every preset: three bands covering
// the speech range. Content below 250 Hz and at or above 8 kHz passes
// through uncompressed.
var presetBoundaries = []float64{250, 1000, 4000, 8000}

// presets maps preset names to per-band tuning. The default table is
// the baseline fitting; the loss presets raise ratios and high-band
// makeup gain, music softens compression to preserve dynamics, and
// speech emphasizes the consonant bands.
var presets = map[string][]wdrc.Params{
	"default": {
		{ThresholdDB: -50, Ratio: 2, KneeDB: 10, GainDB: 15, Attack: 10 * time.Millisecond, Release: 100 * time.Millisecond},
		{ThresholdDB: -45, Ratio: 3, KneeDB: 8, GainDB: 10, Attack: 5 * time.Millisecond, Release: 50 * time.Millisecond},
		{ThresholdDB: -40, Ratio: 4, KneeDB: 6, GainDB: 5, Attack: 3 * time.Millisecond, Release: 25 * time.Millisecond},
	},
	"mild": {
		{ThresholdDB: -55, Ratio: 1.5, KneeDB: 10, GainDB: 6, Attack: 10 * time.Millisecond, Release: 100 * time.Millisecond},
		{ThresholdDB: -50, Ratio: 1.5, KneeDB: 10, GainDB: 10, Attack: 10 * time.Millisecond, Release: 100 * time.Millisecond},
		{ThresholdDB: -45, Ratio: 2, KneeDB: 8, GainDB: 12, Attack: 8 * time.Millisecond, Release: 80 * time.Millisecond},
	},
	"moderate": {
		{ThresholdDB: -50, Ratio: 2.5, KneeDB: 10, GainDB: 10, Attack: 10 * time.Millisecond, Release: 100 * time.Millisecond},
		{ThresholdDB: -45, Ratio: 2.5, KneeDB: 8, GainDB: 15, Attack: 8 * time.Millisecond, Release: 80 * time.Millisecond},
		{ThresholdDB: -40, Ratio: 3, KneeDB: 6, GainDB: 18, Attack: 5 * time.Millisecond, Release: 50 * time.Millisecond},
	},
	"severe": {
		{ThresholdDB: -45, Ratio: 4, KneeDB: 8, GainDB: 15, Attack: 5 * time.Millisecond, Release: 200 * time.Millisecond},
		{ThresholdDB: -40, Ratio: 4, KneeDB: 6, GainDB: 20, Attack: 5 * time.Millisecond, Release: 200 * time.Millisecond},
		{ThresholdDB: -35, Ratio: 5, KneeDB: 6, GainDB: 22, Attack: 3 * time.Millisecond, Release: 150 * time.Millisecond},
	},
	"music": {
		{ThresholdDB: -60, Ratio: 1.2, KneeDB: 12, GainDB: 6, Attack: 20 * time.Millisecond, Release: 500 * time.Millisecond},
		{ThresholdDB: -55, Ratio: 1.2, KneeDB: 12, GainDB: 4, Attack: 20 * time.Millisecond, Release: 500 * time.Millisecond},
		{ThresholdDB: -50, Ratio: 1.5, KneeDB: 10, GainDB: 6, Attack: 15 * time.Millisecond, Release: 400 * time.Millisecond},
	},
	"speech": {
		{ThresholdDB: -48, Ratio: 2, KneeDB: 8, GainDB: 8, Attack: 8 * time.Millisecond, Release: 150 * time.Millisecond},
		{ThresholdDB: -45, Ratio: 3, KneeDB: 8, GainDB: 14, Attack: 8 * time.Millisecond, Release: 150 * time.Millisecond},
		{ThresholdDB: -40, Ratio: 3, KneeDB: 6, GainDB: 16, Attack: 5 * time.Millisecond, Release: 100 * time.Millisecond},
	},
}

// PresetBands returns the band table for a named preset. The returned
// value holds fresh slices; callers own them.
func PresetBands(name string) (wdrc.Bands, error) {
	params, ok := presets[name]
	if !ok {
		return wdrc.Bands{}, fmt.Errorf("unknown preset %q (have: %s)", name, PresetNames())
	}
	return wdrc.Bands{
		Boundaries: append([]float64(nil), presetBoundaries...),
		Params:     append([]wdrc.Params(nil), params...),
	}, nil
}

// PresetNames returns the sorted, comma-separated preset names.
func PresetNames() string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
