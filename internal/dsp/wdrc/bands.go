// SPDX-License-Identifier: MIT
//
// Package wdrc implements frequency-domain Wide Dynamic Range
// Compression: the per-band gain engine a hearing aid uses to boost
// quiet sounds more than loud ones. A Processor splits each audio block
// into spectral bins, routes every bin inside the configured frequency
// range to its band's Compressor, and reassembles the block.
package wdrc

import "time"

// Params holds the immutable tuning for one compression band.
type Params struct {
	ThresholdDB float64       // level where compression starts (dB)
	Ratio       float64       // compression ratio, >= 1
	KneeDB      float64       // soft-knee width (dB), >= 0
	GainDB      float64       // band makeup gain (dB)
	Attack      time.Duration // envelope rise time constant
	Release     time.Duration // envelope fall time constant
}

// Bands pairs an ordered boundary table with per-band parameters.
// Boundaries holds NumBands+1 strictly increasing frequencies in Hz;
// band i owns the half-open interval [Boundaries[i], Boundaries[i+1]).
// The zero value is a valid empty table (everything passes through).
type Bands struct {
	Boundaries []float64
	Params     []Params
}

// NumBands returns the number of configured bands.
func (b Bands) NumBands() int {
	return len(b.Params)
}

// Index returns the band owning freq, or -1 when freq falls below the
// lowest boundary or at/above the highest. A frequency exactly on an
// interior boundary belongs to the upper band. A malformed table
// (non-increasing boundaries) simply fails to match, which downstream
// turns into pass-through rather than a fault.
func (b Bands) Index(freq float64) int {
	n := len(b.Boundaries) - 1
	if len(b.Params) < n {
		n = len(b.Params)
	}
	for i := 0; i < n; i++ {
		if freq >= b.Boundaries[i] && freq < b.Boundaries[i+1] {
			return i
		}
	}
	return -1
}

// Low returns the lower boundary of band i.
func (b Bands) Low(i int) float64 {
	return b.Boundaries[i]
}

// High returns the upper boundary of band i.
func (b Bands) High(i int) float64 {
	return b.Boundaries[i+1]
}
