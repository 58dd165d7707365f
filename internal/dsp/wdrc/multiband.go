// SPDX-License-Identifier: MIT
package wdrc

import (
	"fmt"
	"math"
	"math/cmplx"

	"hearaid/internal/dsp/spectral"
)

// BandMetrics is a telemetry snapshot for one band.
type BandMetrics struct {
	LowHz           float64 `json:"low_hz"`
	HighHz          float64 `json:"high_hz"`
	EnvelopeDB      float64 `json:"envelope_db"`
	GainReductionDB float64 `json:"gain_reduction_db"`
}

// Processor is the frequency-domain multiband compressor. It owns the
// spectral transform, one Compressor per band, and the band table, all
// fixed at construction. Process never allocates, never blocks, and
// runs to completion on the caller's thread.
//
// A Processor is single-owner: exactly one goroutine may call Process
// for the lifetime of the audio stream. Tuning changes require building
// a new Processor; there is no concurrent reconfiguration.
type Processor struct {
	sampleRate  float64
	transform   *spectral.Transform
	bands       Bands
	compressors []*Compressor
	binHz       float64 // frequency step between adjacent bins
}

// New constructs a Processor for the given sample rate, transform size
// (power of 2), and band table. Construction failure leaves nothing
// partially usable: either a complete Processor or an error.
func New(sampleRate float64, fftSize int, bands Bands) (*Processor, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("sample rate must be positive and finite, got %f", sampleRate)
	}

	transform, err := spectral.New(fftSize)
	if err != nil {
		return nil, fmt.Errorf("spectral transform: %w", err)
	}

	compressors := make([]*Compressor, bands.NumBands())
	for i := range compressors {
		compressors[i] = NewCompressor(sampleRate, bands.Params[i])
	}

	return &Processor{
		sampleRate:  sampleRate,
		transform:   transform,
		bands:       bands,
		compressors: compressors,
		binHz:       sampleRate / float64(fftSize),
	}, nil
}

// Process compresses one audio block. input and output are caller-owned
// linear-scale sample slices of equal length <= the transform size;
// they are neither stored nor aliased past the call.
//
// Bins are visited in ascending index order, so all bins of one band
// advance that band's shared envelope sequentially within the block.
// Content outside [Boundaries[0], Boundaries[NumBands]), including the
// Nyquist bin, passes through unmodified.
func (p *Processor) Process(input, output []float64) {
	p.transform.Load(input)
	p.transform.Analyze()

	n := p.transform.Size()
	for i := 0; i < n/2; i++ {
		band := p.bands.Index(float64(i) * p.binHz)
		if band < 0 {
			continue
		}

		bin := p.transform.Bin(i)
		re, im := real(bin), imag(bin)
		mag := math.Sqrt(re*re + im*im)
		phase := math.Atan2(im, re)

		mag = p.compressors[band].ProcessMagnitude(mag)

		out := complex(mag*math.Cos(phase), mag*math.Sin(phase))
		p.transform.SetBin(i, out)
		// Restore conjugate symmetry for the bins we touched; untouched
		// bins keep the symmetry the forward transform produced.
		if i != 0 {
			p.transform.SetBin(n-i, cmplx.Conj(out))
		}
	}

	p.transform.Synthesize()
	p.transform.Store(output)
}

// Snapshot copies per-band telemetry into dst and returns the number of
// entries written. Call from the goroutine that owns Process.
func (p *Processor) Snapshot(dst []BandMetrics) int {
	n := len(p.compressors)
	if len(dst) < n {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = BandMetrics{
			LowHz:           p.bands.Low(i),
			HighHz:          p.bands.High(i),
			EnvelopeDB:      p.compressors[i].EnvelopeDB(),
			GainReductionDB: p.compressors[i].GainReductionDB(),
		}
	}
	return n
}

// NumBands returns the number of configured bands.
func (p *Processor) NumBands() int {
	return len(p.compressors)
}

// SampleRate returns the audio sample rate in Hz.
func (p *Processor) SampleRate() float64 {
	return p.sampleRate
}

// FFTSize returns the transform size N.
func (p *Processor) FFTSize() int {
	return p.transform.Size()
}

// Close releases the spectral transform. Call exactly once when the
// audio path shuts down.
func (p *Processor) Close() error {
	return p.transform.Close()
}
