// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync/atomic"
	"testing"

	"hearaid/internal/config"
	"hearaid/internal/dsp/wdrc"
)

// newTestEngine builds an engine around the default configuration
// without touching any audio hardware.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	cfg := config.New()
	bands, err := cfg.Bands()
	if err != nil {
		t.Fatalf("Bands failed: %v", err)
	}
	processor, err := wdrc.New(cfg.Audio.SampleRate, cfg.Processing.FFTSize, bands)
	if err != nil {
		t.Fatalf("wdrc.New failed: %v", err)
	}

	engine := &Engine{
		config:      cfg,
		processor:   processor,
		inBlock:     make([]float64, cfg.Audio.FramesPerBuffer),
		outBlock:    make([]float64, cfg.Processing.FFTSize),
		volumeLevel: int32(cfg.Processing.GainLevel),
		pipsEnabled: cfg.Processing.Pips,
		metrics:     make([]wdrc.BandMetrics, processor.NumBands()),
	}
	engine.pips.init(cfg.Audio.SampleRate)
	return engine
}

// sineBlock fills a float32 buffer with a sine at the given frequency.
func sineBlock(buf []float32, freq, sampleRate, amplitude float64) {
	for i := range buf {
		buf[i] = float32(amplitude * math.Sin(2*math.Pi*freq*float64(i)/sampleRate))
	}
}

func TestProcessStreamMute(t *testing.T) {
	engine := newTestEngine(t)
	engine.pipsEnabled = false
	engine.SetVolumeLevel(0)

	in := make([]float32, engine.config.Audio.FramesPerBuffer)
	out := make([]float32, len(in))
	sineBlock(in, 440, engine.config.Audio.SampleRate, 0.5)

	engine.processStream(in, out)

	for i, sample := range out {
		if sample != 0 {
			t.Fatalf("muted output nonzero at %d: %v", i, sample)
		}
	}
}

func TestProcessStreamProducesOutput(t *testing.T) {
	engine := newTestEngine(t)
	engine.SetVolumeLevel(config.NumGainLevels - 1)

	in := make([]float32, engine.config.Audio.FramesPerBuffer)
	out := make([]float32, len(in))
	sineBlock(in, 440, engine.config.Audio.SampleRate, 0.01)

	engine.processStream(in, out)

	var energy float64
	for _, sample := range out {
		if math.IsNaN(float64(sample)) || math.IsInf(float64(sample), 0) {
			t.Fatal("output contains non-finite samples")
		}
		energy += float64(sample) * float64(sample)
	}
	if energy == 0 {
		t.Error("processed output is silent")
	}
}

func TestProcessStreamPipPlaysWhenMuted(t *testing.T) {
	engine := newTestEngine(t)
	engine.SetVolumeLevel(0)
	atomic.StoreInt32(&engine.pendingPips, 1)

	in := make([]float32, engine.config.Audio.FramesPerBuffer)
	out := make([]float32, len(in))

	engine.processStream(in, out)

	// Pips confirm the volume change even at level 0, so the tone must
	// survive the mute.
	var peak float64
	for _, sample := range out {
		if a := math.Abs(float64(sample)); a > peak {
			peak = a
		}
	}
	if peak < 0.1 {
		t.Errorf("pip tone peak %v, want an audible tone", peak)
	}
	if got := atomic.LoadInt32(&engine.pendingPips); got != 0 {
		t.Errorf("pending pips not consumed: %d", got)
	}
}

func TestBandMetricsSnapshot(t *testing.T) {
	engine := newTestEngine(t)

	in := make([]float32, engine.config.Audio.FramesPerBuffer)
	out := make([]float32, len(in))
	sineBlock(in, 500, engine.config.Audio.SampleRate, 0.5)

	for i := 0; i < 10; i++ {
		engine.processStream(in, out)
	}

	metrics := make([]wdrc.BandMetrics, engine.NumBands())
	n := engine.BandMetrics(metrics)
	if n != engine.NumBands() {
		t.Fatalf("BandMetrics wrote %d bands, want %d", n, engine.NumBands())
	}

	for i, m := range metrics {
		if m.HighHz <= m.LowHz {
			t.Errorf("band %d range inverted: %v..%v", i, m.LowHz, m.HighHz)
		}
	}
	// A loud 500 Hz tone should have charged the first band's envelope.
	if metrics[0].EnvelopeDB <= -180 {
		t.Errorf("band 0 envelope %v dB, want charged above the floor", metrics[0].EnvelopeDB)
	}
}

func TestProcessStreamHotPathAllocs(t *testing.T) {
	engine := newTestEngine(t)
	engine.pipsEnabled = false

	in := make([]float32, engine.config.Audio.FramesPerBuffer)
	out := make([]float32, len(in))
	sineBlock(in, 440, engine.config.Audio.SampleRate, 0.1)

	allocs := testing.AllocsPerRun(50, func() {
		engine.processStream(in, out)
	})

	if allocs > 0 {
		t.Errorf("Expected zero allocations in stream callback, got %.1f", allocs)
	}
}

func BenchmarkProcessStream(b *testing.B) {
	cfg := config.New()
	bands, err := cfg.Bands()
	if err != nil {
		b.Fatal(err)
	}
	processor, err := wdrc.New(cfg.Audio.SampleRate, cfg.Processing.FFTSize, bands)
	if err != nil {
		b.Fatal(err)
	}

	engine := &Engine{
		config:      cfg,
		processor:   processor,
		inBlock:     make([]float64, cfg.Audio.FramesPerBuffer),
		outBlock:    make([]float64, cfg.Processing.FFTSize),
		volumeLevel: int32(cfg.Processing.GainLevel),
		metrics:     make([]wdrc.BandMetrics, processor.NumBands()),
	}
	engine.pips.init(cfg.Audio.SampleRate)

	in := make([]float32, cfg.Audio.FramesPerBuffer)
	out := make([]float32, len(in))
	sineBlock(in, 440, cfg.Audio.SampleRate, 0.1)

	b.ReportAllocs()
	b.ResetTimer()

	for b.Loop() {
		engine.processStream(in, out)
	}
}
