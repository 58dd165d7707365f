// SPDX-License-Identifier: MIT
package wdrc

import "math"

const (
	// magnitudeEpsilon keeps the dB conversion finite for zero input.
	magnitudeEpsilon = 1e-9

	// outputCeiling hard-limits the processed magnitude to avoid
	// downstream clipping.
	outputCeiling = 0.99
)

// Compressor is the WDRC engine for a single band. It owns one
// envelope-follower state (in dB) that persists across calls for the
// lifetime of the compressor and is never reset implicitly. Parameters
// are fixed at construction; validation happens at the configuration
// boundary, not here.
//
// Not safe for concurrent use. ProcessMagnitude is deterministic,
// allocation-free, and never produces non-finite values.
type Compressor struct {
	thresholdDB float64
	ratio       float64
	kneeDB      float64
	bandGainDB  float64

	// Smoothing coefficients, computed once from the time constants
	// and the audio sample rate.
	alphaAttack  float64
	alphaRelease float64

	envelopeDB float64
	lastGainDB float64 // last gain reduction, for telemetry
}

// NewCompressor creates a band compressor for the given sample rate.
// The envelope starts at 0 dB, matching a silent startup.
func NewCompressor(sampleRate float64, p Params) *Compressor {
	return &Compressor{
		thresholdDB:  p.ThresholdDB,
		ratio:        p.Ratio,
		kneeDB:       p.KneeDB,
		bandGainDB:   p.GainDB,
		alphaAttack:  math.Exp(-1.0 / (sampleRate * p.Attack.Seconds())),
		alphaRelease: math.Exp(-1.0 / (sampleRate * p.Release.Seconds())),
	}
}

// ProcessMagnitude compresses one spectral magnitude. The envelope is
// advanced first (attack branch when the input is louder than the
// envelope, release branch otherwise), then the soft-knee curve turns
// the envelope overshoot into a gain reduction, and finally the band
// makeup gain and the ±0.99 ceiling are applied.
func (c *Compressor) ProcessMagnitude(input float64) float64 {
	inputDB := 20 * math.Log10(math.Abs(input)+magnitudeEpsilon)

	if inputDB > c.envelopeDB {
		c.envelopeDB = c.alphaAttack*c.envelopeDB + (1-c.alphaAttack)*inputDB
	} else {
		c.envelopeDB = c.alphaRelease*c.envelopeDB + (1-c.alphaRelease)*inputDB
	}

	gainDB := c.gainReductionDB(c.envelopeDB)
	c.lastGainDB = gainDB

	output := input * math.Pow(10, (-gainDB+c.bandGainDB)/20)

	if output > outputCeiling {
		output = outputCeiling
	}
	if output < -outputCeiling {
		output = -outputCeiling
	}
	return output
}

// gainReductionDB evaluates the static soft-knee curve for a given
// envelope level. The quadratic knee region meets the zero branch at
// diff = -knee/2 and the linear branch at diff = +knee/2, so the curve
// is continuous and differentiable at both edges.
func (c *Compressor) gainReductionDB(envelopeDB float64) float64 {
	diff := envelopeDB - c.thresholdDB
	half := c.kneeDB / 2

	switch {
	case c.kneeDB > 0 && math.Abs(diff) <= half:
		k := diff + half
		return (c.ratio - 1) * k * k / (2 * c.kneeDB)
	case diff > half:
		return (c.ratio - 1) * diff
	default:
		return 0
	}
}

// EnvelopeDB returns the current envelope level in dB.
func (c *Compressor) EnvelopeDB() float64 {
	return c.envelopeDB
}

// GainReductionDB returns the gain reduction applied by the most
// recent ProcessMagnitude call, in dB.
func (c *Compressor) GainReductionDB() float64 {
	return c.lastGainDB
}

// Reset returns the envelope to 0 dB. Never called implicitly.
func (c *Compressor) Reset() {
	c.envelopeDB = 0
	c.lastGainDB = 0
}
