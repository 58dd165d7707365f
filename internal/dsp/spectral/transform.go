// SPDX-License-Identifier: MIT
//
// Package spectral provides the fixed-size forward/inverse transform
// used by the multiband processor. A Transform owns one pre-allocated
// spectrum buffer and a Hamming coefficient table; nothing is allocated
// after construction, so Analyze and Synthesize are safe to call from
// the real-time audio callback.
package spectral

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"hearaid/pkg/bitint"
)

// Transform performs an N-point complex transform in place on its own
// work buffer. The forward+inverse round trip scales amplitude by N
// (gonum's unnormalized contract); Store divides the result back down.
type Transform struct {
	size     int
	fft      *fourier.CmplxFFT
	spectrum []complex128
	coeffs   []float64 // Hamming window table, built once
}

// New creates a Transform of the given size. The size must be a power
// of 2 so the underlying FFT stays on its fast path.
func New(size int) (*Transform, error) {
	if !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("transform size must be a power of 2, got %d", size)
	}

	// Build the Hamming table by applying the window to a ones slice.
	coeffs := make([]float64, size)
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	window.Hamming(coeffs)

	return &Transform{
		size:     size,
		fft:      fourier.NewCmplxFFT(size),
		spectrum: make([]complex128, size),
		coeffs:   coeffs,
	}, nil
}

// Size returns the transform length N.
func (t *Transform) Size() int {
	return t.size
}

// Load copies block into the real parts of the work buffer, zeroing the
// imaginary parts and zero-padding [len(block), N). Blocks longer than
// N are truncated; passing one is a caller contract violation.
func (t *Transform) Load(block []float64) {
	n := len(block)
	if n > t.size {
		n = t.size
	}
	for i := 0; i < n; i++ {
		t.spectrum[i] = complex(block[i], 0)
	}
	for i := n; i < t.size; i++ {
		t.spectrum[i] = 0
	}
}

// Analyze applies the Hamming window to the loaded block and computes
// the forward transform in place. Only bins 0..N/2-1 are independently
// meaningful for a real input; bins above N/2 carry the conjugate
// mirror produced by the transform itself.
func (t *Transform) Analyze() {
	for i := range t.spectrum {
		t.spectrum[i] *= complex(t.coeffs[i], 0)
	}
	t.fft.Coefficients(t.spectrum, t.spectrum)
}

// Synthesize computes the inverse transform in place, leaving
// time-domain samples (scaled by N) in the real parts.
func (t *Transform) Synthesize() {
	t.fft.Sequence(t.spectrum, t.spectrum)
}

// Store writes the first len(block) time-domain samples into block,
// dividing by N to undo the round-trip scaling.
func (t *Transform) Store(block []float64) {
	n := len(block)
	if n > t.size {
		n = t.size
	}
	scale := 1.0 / float64(t.size)
	for i := 0; i < n; i++ {
		block[i] = real(t.spectrum[i]) * scale
	}
}

// Bin returns the current value of spectral bin i.
func (t *Transform) Bin(i int) complex128 {
	return t.spectrum[i]
}

// SetBin overwrites spectral bin i. Restoring conjugate symmetry for
// the mirrored upper half is the caller's responsibility.
func (t *Transform) SetBin(i int, c complex128) {
	t.spectrum[i] = c
}

// Close releases the transform. The gonum FFT holds no native
// resources, so this is a no-op kept for the ownership contract: the
// processor that owns a Transform closes it exactly once on teardown.
func (t *Transform) Close() error {
	return nil
}
