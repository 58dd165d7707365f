// SPDX-License-Identifier: MIT
package audio

import "math"

// Pip tone parameters: a short 1 kHz beep repeated once per volume step.
const (
	pipFrequency = 1000.0 // Hz
	pipAmplitude = 0.5
	pipOnSec     = 0.2 // tone duration
	pipGapSec    = 0.1 // silence between pips
)

// pipTone is a sample-accurate state machine that renders volume
// confirmation pips. It is driven one sample at a time from the audio
// callback and never allocates.
type pipTone struct {
	phaseStep  float64 // radians per sample at pipFrequency
	onSamples  int
	gapSamples int

	remaining int     // pips left to play, 0 when idle
	cursor    int     // sample position within the current on+gap cycle
	phase     float64 // running sine phase
}

func (p *pipTone) init(sampleRate float64) {
	p.phaseStep = 2 * math.Pi * pipFrequency / sampleRate
	p.onSamples = int(pipOnSec * sampleRate)
	p.gapSamples = int(pipGapSec * sampleRate)
}

// start begins a burst of count pips, replacing any burst in progress.
func (p *pipTone) start(count int) {
	if count <= 0 {
		return
	}
	p.remaining = count
	p.cursor = 0
	p.phase = 0
}

// active reports whether a burst is still playing.
func (p *pipTone) active() bool {
	return p.remaining > 0
}

// next returns the additive pip sample for the current position and
// advances the state machine by one sample.
func (p *pipTone) next() float64 {
	if p.remaining <= 0 {
		return 0
	}

	var sample float64
	if p.cursor < p.onSamples {
		sample = pipAmplitude * math.Sin(p.phase)
		p.phase += p.phaseStep
		if p.phase > 2*math.Pi {
			p.phase -= 2 * math.Pi
		}
	}

	p.cursor++
	if p.cursor >= p.onSamples+p.gapSamples {
		p.cursor = 0
		p.phase = 0
		p.remaining--
	}

	return sample
}
