// SPDX-License-Identifier: MIT
/*
Package audio implements the real-time hearing path:
- Duplex capture/playback through PortAudio
- Frequency-domain multiband compression per block
- Stepped master volume with audible pip feedback
- WAV recording of the processed output

Thread Safety:
- Atomic operations for recording and volume state
- Pre-allocated buffers to avoid GC in the hot path
- Locks the OS thread during audio processing
*/
package audio

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"hearaid/internal/config"
	"hearaid/internal/dsp/wdrc"
	applog "hearaid/internal/log"
)

type Engine struct {
	// Core configuration and state.
	config *config.Config

	// Device selection and stream handling.
	inputDevice   *portaudio.DeviceInfo
	outputDevice  *portaudio.DeviceInfo
	inputLatency  time.Duration
	outputLatency time.Duration
	stream        *portaudio.Stream

	// Multiband compression over the capture block.
	processor *wdrc.Processor
	inBlock   []float64
	outBlock  []float64

	// Master volume step and pip feedback.
	volumeLevel int32 // Atomic, 0..config.NumGainLevels-1
	pendingPips int32 // Atomic pip count handed to the callback
	pipsEnabled bool
	pips        pipTone

	// Latest per-band metrics, copied out of the callback.
	metricsMu sync.Mutex
	metrics   []wdrc.BandMetrics

	// Recording state and buffers.
	isRecording int32 // Atomic flag for thread-safe state
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *goaudio.IntBuffer
	sampleScale float64 // Full-scale integer value for the configured bit depth
}

// Discrete master volume multipliers, one per gain level.
var volumeSteps = [config.NumGainLevels]float64{0.0, 0.25, 0.5, 0.75, 1.0}

func NewEngine(cfg *config.Config) (*Engine, error) {
	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}
	outputDevice, err := OutputDevice(cfg.Audio.OutputDevice)
	if err != nil {
		return nil, err
	}

	bands, err := cfg.Bands()
	if err != nil {
		return nil, err
	}
	processor, err := wdrc.New(cfg.Audio.SampleRate, cfg.Processing.FFTSize, bands)
	if err != nil {
		return nil, fmt.Errorf("failed to build processor: %w", err)
	}

	engine := &Engine{
		config:       cfg,
		inputDevice:  inputDevice,
		outputDevice: outputDevice,
		processor:    processor,
		inBlock:      make([]float64, cfg.Audio.FramesPerBuffer),
		outBlock:     make([]float64, cfg.Processing.FFTSize),
		volumeLevel:  int32(cfg.Processing.GainLevel),
		pipsEnabled:  cfg.Processing.Pips,
		metrics:      make([]wdrc.BandMetrics, processor.NumBands()),
	}
	engine.pips.init(cfg.Audio.SampleRate)

	if cfg.Audio.LowLatency {
		engine.inputLatency = inputDevice.DefaultLowInputLatency
		engine.outputLatency = outputDevice.DefaultLowOutputLatency
	} else {
		engine.inputLatency = inputDevice.DefaultHighInputLatency
		engine.outputLatency = outputDevice.DefaultHighOutputLatency
	}

	return engine, nil
}

func (e *Engine) StartStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   e.outputDevice,
			Latency:  e.outputLatency,
		},
		FramesPerBuffer: e.config.Audio.FramesPerBuffer,
		SampleRate:      e.config.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processStream)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	e.stream = stream

	if err := e.stream.Start(); err != nil {
		e.stream.Close()
		e.stream = nil
		return fmt.Errorf("failed to start stream: %w", err)
	}

	applog.Infof("stream started: in=%q out=%q rate=%.0f frames=%d",
		e.inputDevice.Name, e.outputDevice.Name,
		e.config.Audio.SampleRate, e.config.Audio.FramesPerBuffer)

	return nil
}

func (e *Engine) StopStream() error {
	if e.stream != nil {
		if err := e.stream.Stop(); err != nil {
			return err
		}

		if err := e.stream.Close(); err != nil {
			return err
		}

		e.stream = nil
	}

	return nil
}

// processStream is the core audio processing callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No dynamic allocations in the hot path
func (e *Engine) processStream(in, out []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	frames := len(in)
	if frames > len(e.inBlock) {
		frames = len(e.inBlock)
	}
	for i := 0; i < frames; i++ {
		e.inBlock[i] = float64(in[i])
	}

	e.processor.Process(e.inBlock[:frames], e.outBlock)

	// Fold in the master volume step and any pending pip tone.
	volume := volumeSteps[atomic.LoadInt32(&e.volumeLevel)]
	if n := atomic.SwapInt32(&e.pendingPips, 0); n > 0 {
		e.pips.start(int(n))
	}
	for i := 0; i < frames; i++ {
		sample := e.outBlock[i]*volume + e.pips.next()
		if sample > 1.0 {
			sample = 1.0
		} else if sample < -1.0 {
			sample = -1.0
		}
		e.outBlock[i] = sample
		out[i] = float32(sample)
	}
	for i := frames; i < len(out); i++ {
		out[i] = 0
	}

	// Publish per-band envelope and gain-reduction readings. TryLock keeps
	// the audio thread from ever blocking on a slow reader.
	if e.metricsMu.TryLock() {
		e.processor.Snapshot(e.metrics)
		e.metricsMu.Unlock()
	}

	// Write the processed output to the WAV file if recording.
	if atomic.LoadInt32(&e.isRecording) == 1 && e.wavEncoder != nil {
		for i := 0; i < frames; i++ {
			e.sampleBuf.Data[i] = int(e.outBlock[i] * e.sampleScale)
		}
		e.sampleBuf.Data = e.sampleBuf.Data[:frames]

		if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
			applog.Errorf("wav write failed: %v", err)
		}
	}
}

// BandMetrics copies the most recent per-band readings into dst and
// returns the number of bands written.
func (e *Engine) BandMetrics(dst []wdrc.BandMetrics) int {
	e.metricsMu.Lock()
	defer e.metricsMu.Unlock()

	n := copy(dst, e.metrics)
	return n
}

// NumBands reports how many compression bands the engine runs.
func (e *Engine) NumBands() int {
	return e.processor.NumBands()
}
