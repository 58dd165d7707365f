// SPDX-License-Identifier: MIT
package wdrc

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/dsp/window"
)

const (
	testSampleRate = 44100.0
	testFFTSize    = 512
)

func defaultTestBands() Bands {
	return Bands{
		Boundaries: []float64{250, 1000, 4000, 8000},
		Params: []Params{
			{ThresholdDB: -50, Ratio: 2, KneeDB: 10, GainDB: 15, Attack: 10 * time.Millisecond, Release: 100 * time.Millisecond},
			{ThresholdDB: -45, Ratio: 3, KneeDB: 8, GainDB: 10, Attack: 5 * time.Millisecond, Release: 50 * time.Millisecond},
			{ThresholdDB: -40, Ratio: 4, KneeDB: 6, GainDB: 5, Attack: 3 * time.Millisecond, Release: 25 * time.Millisecond},
		},
	}
}

// hammingTable mirrors the analysis window so tests can compare the
// processor output against the windowed input.
func hammingTable(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0
	}
	window.Hamming(w)
	return w
}

func sine(n int, freq, amp float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/testSampleRate)
	}
	return s
}

func TestNewValidation(t *testing.T) {
	bands := defaultTestBands()

	_, err := New(testSampleRate, 500, bands) // not a power of 2
	assert.Error(t, err)

	_, err = New(0, testFFTSize, bands)
	assert.Error(t, err)

	_, err = New(-44100, testFFTSize, bands)
	assert.Error(t, err)

	_, err = New(math.NaN(), testFFTSize, bands)
	assert.Error(t, err)

	p, err := New(testSampleRate, testFFTSize, bands)
	require.NoError(t, err)
	assert.Equal(t, 3, p.NumBands())
	assert.Equal(t, testFFTSize, p.FFTSize())
	assert.Equal(t, testSampleRate, p.SampleRate())
	assert.NoError(t, p.Close())
}

func TestEmptyTablePassesThrough(t *testing.T) {
	p, err := New(testSampleRate, testFFTSize, Bands{})
	require.NoError(t, err)
	defer p.Close()

	input := sine(testFFTSize, 440, 0.5)
	output := make([]float64, testFFTSize)
	p.Process(input, output)

	win := hammingTable(testFFTSize)
	for i := range input {
		assert.InDelta(t, input[i]*win[i], output[i], 1e-9, "sample %d", i)
	}
}

func TestEmptyTableImpulseIdentity(t *testing.T) {
	p, err := New(testSampleRate, testFFTSize, Bands{})
	require.NoError(t, err)
	defer p.Close()

	// An impulse at the window's unity point survives the whole
	// analyze/synthesize round trip within rounding.
	input := make([]float64, testFFTSize)
	input[testFFTSize/2-1] = 0.5
	output := make([]float64, testFFTSize)
	p.Process(input, output)

	assert.InDelta(t, 0.5, output[testFFTSize/2-1], 1e-4)
}

func TestUnityRatioIsTransparent(t *testing.T) {
	// Ratio 1 with zero makeup gain makes every band a no-op, so the
	// full pipeline (classify, polar conversion, mirroring) must be
	// transparent for any signal quiet enough to stay under the
	// magnitude ceiling.
	bands := defaultTestBands()
	for i := range bands.Params {
		bands.Params[i].Ratio = 1
		bands.Params[i].GainDB = 0
	}
	p, err := New(testSampleRate, testFFTSize, bands)
	require.NoError(t, err)
	defer p.Close()

	input := sine(testFFTSize, 500, 1e-3)
	output := make([]float64, testFFTSize)
	p.Process(input, output)

	win := hammingTable(testFFTSize)
	for i := range input {
		assert.InDelta(t, input[i]*win[i], output[i], 1e-9, "sample %d", i)
	}
}

func TestOutOfBandContentPassesThrough(t *testing.T) {
	bands := Bands{
		Boundaries: []float64{250, 1000},
		Params: []Params{
			{ThresholdDB: -50, Ratio: 2, KneeDB: 10, GainDB: 0, Attack: 10 * time.Millisecond, Release: 100 * time.Millisecond},
		},
	}
	p, err := New(testSampleRate, testFFTSize, bands)
	require.NoError(t, err)
	defer p.Close()

	// 6 kHz is far outside the single 250-1000 Hz band; only spectral
	// leakage reaches the compressed bins.
	input := sine(testFFTSize, 6000, 1e-3)
	output := make([]float64, testFFTSize)
	p.Process(input, output)

	win := hammingTable(testFFTSize)
	for i := range input {
		assert.InDelta(t, input[i]*win[i], output[i], 1e-5, "sample %d", i)
	}
}

func TestInBandContentIsCompressed(t *testing.T) {
	bands := defaultTestBands()
	for i := range bands.Params {
		bands.Params[i].GainDB = 0 // isolate gain reduction
	}
	p, err := New(testSampleRate, testFFTSize, bands)
	require.NoError(t, err)
	defer p.Close()

	input := sine(testFFTSize, 500, 2e-3)
	output := make([]float64, testFFTSize)
	p.Process(input, output)

	win := hammingTable(testFFTSize)
	var inRMS, outRMS float64
	for i := range input {
		w := input[i] * win[i]
		inRMS += w * w
		outRMS += output[i] * output[i]
	}
	assert.Less(t, outRMS, inRMS, "in-band content above threshold must be attenuated")
}

func TestEnvelopeStatePersistsAcrossBlocks(t *testing.T) {
	p, err := New(testSampleRate, testFFTSize, defaultTestBands())
	require.NoError(t, err)
	defer p.Close()

	input := sine(testFFTSize, 500, 2e-3)
	first := make([]float64, testFFTSize)
	second := make([]float64, testFFTSize)

	p.Process(input, first)
	metricsAfterFirst := make([]BandMetrics, p.NumBands())
	p.Snapshot(metricsAfterFirst)

	p.Process(input, second)
	metricsAfterSecond := make([]BandMetrics, p.NumBands())
	p.Snapshot(metricsAfterSecond)

	// The band-0 envelope keeps moving between identical blocks; it is
	// never reset between calls.
	assert.NotEqual(t, metricsAfterFirst[0].EnvelopeDB, metricsAfterSecond[0].EnvelopeDB)
}

func TestSnapshotReportsBandRanges(t *testing.T) {
	p, err := New(testSampleRate, testFFTSize, defaultTestBands())
	require.NoError(t, err)
	defer p.Close()

	metrics := make([]BandMetrics, p.NumBands())
	n := p.Snapshot(metrics)
	require.Equal(t, 3, n)

	assert.Equal(t, 250.0, metrics[0].LowHz)
	assert.Equal(t, 1000.0, metrics[0].HighHz)
	assert.Equal(t, 1000.0, metrics[1].LowHz)
	assert.Equal(t, 4000.0, metrics[1].HighHz)
	assert.Equal(t, 4000.0, metrics[2].LowHz)
	assert.Equal(t, 8000.0, metrics[2].HighHz)

	// Undersized destination is clamped, not overrun.
	small := make([]BandMetrics, 1)
	assert.Equal(t, 1, p.Snapshot(small))
}

func TestProcessHotPathAllocs(t *testing.T) {
	p, err := New(testSampleRate, testFFTSize, defaultTestBands())
	require.NoError(t, err)
	defer p.Close()

	input := sine(testFFTSize, 1500, 0.01)
	output := make([]float64, testFFTSize)

	// Warm-up call.
	p.Process(input, output)

	allocs := testing.AllocsPerRun(100, func() {
		p.Process(input, output)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Process hot path, got %.1f", allocs)
	}
}

func TestShortBlockZeroPads(t *testing.T) {
	p, err := New(testSampleRate, testFFTSize, Bands{})
	require.NoError(t, err)
	defer p.Close()

	input := sine(300, 440, 0.1)
	output := make([]float64, 300)
	p.Process(input, output)

	win := hammingTable(testFFTSize)
	for i := range input {
		assert.InDelta(t, input[i]*win[i], output[i], 1e-9, "sample %d", i)
	}
}

func BenchmarkProcess(b *testing.B) {
	p, err := New(testSampleRate, testFFTSize, defaultTestBands())
	if err != nil {
		b.Fatal(err)
	}
	defer p.Close()

	// Speech-band test signal with harmonics.
	input := make([]float64, testFFTSize)
	for i := range input {
		ts := float64(i) / testSampleRate
		input[i] = 0.3*math.Sin(2*math.Pi*440*ts) +
			0.2*math.Sin(2*math.Pi*880*ts) +
			0.1*math.Sin(2*math.Pi*1320*ts)
	}
	output := make([]float64, testFFTSize)

	b.ReportAllocs()
	for b.Loop() {
		p.Process(input, output)
	}
}
