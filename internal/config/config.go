// SPDX-License-Identifier: MIT
//
// Package config loads and validates the runtime configuration:
// audio device settings, the compression preset (band boundary table
// and per-band WDRC tuning), recording, and monitoring options.
// Configuration is resolved once at startup; the DSP core consumes an
// immutable band table and is never reconfigured in flight.
package config

import (
	"fmt"
	"time"

	"hearaid/internal/dsp/wdrc"
	"hearaid/pkg/bitint"
)

// Core configuration constants that bound the audio engine.
const (
	DefaultSampleRate      = 44100 // CD-quality audio
	DefaultFramesPerBuffer = 512   // One transform per buffer
	DefaultFFTSize         = 512
	DefaultPreset          = "default"
	DefaultGainLevel       = 2 // 50% master volume
	DefaultWSAddr          = ":8080"
	DefaultUDPTarget       = "127.0.0.1:9090"
	DefaultBitDepth        = 16

	// -1 selects the system default device.
	DefaultDeviceID = -1

	// Hardware and processing limits.
	MinSampleRate   = 8000
	MaxSampleRate   = 192000
	MaxBufferFrames = 8192

	// Master volume runs in discrete steps: 0, 25, 50, 75, 100%.
	NumGainLevels = 5
)

// Config is the root application configuration, loaded from YAML with
// environment overrides applied on top.
type Config struct {
	Debug      bool             `yaml:"debug"`
	LogLevel   string           `yaml:"log_level"`
	Audio      AudioConfig      `yaml:"audio"`
	Processing ProcessingConfig `yaml:"processing"`
	Recording  RecordingConfig  `yaml:"recording"`
	Monitor    MonitorConfig    `yaml:"monitor"`
}

// AudioConfig holds device and stream settings.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default)
	OutputDevice    int     `yaml:"output_device"`     // PortAudio device index (-1 for default)
	SampleRate      float64 `yaml:"sample_rate"`       // Hz
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // samples per processing block
	LowLatency      bool    `yaml:"low_latency"`       // request low-latency device settings
}

// ProcessingConfig selects the compression tuning.
type ProcessingConfig struct {
	Preset    string       `yaml:"preset"`          // named preset, see presets.go
	FFTSize   int          `yaml:"fft_size"`        // transform size, power of 2
	GainLevel int          `yaml:"gain_level"`      // master volume step, 0..NumGainLevels-1
	Pips      bool         `yaml:"pips"`            // audible feedback on volume changes
	Bands     []BandConfig `yaml:"bands,omitempty"` // custom table, overrides the preset
}

// BandConfig is one band of a custom compression table. Bands must be
// contiguous: each band's high edge is the next band's low edge.
type BandConfig struct {
	LowHz       float64 `yaml:"low_hz"`
	HighHz      float64 `yaml:"high_hz"`
	ThresholdDB float64 `yaml:"threshold_db"`
	Ratio       float64 `yaml:"ratio"`
	KneeDB      float64 `yaml:"knee_db"`
	GainDB      float64 `yaml:"gain_db"`
	AttackMs    float64 `yaml:"attack_ms"`
	ReleaseMs   float64 `yaml:"release_ms"`
}

// RecordingConfig controls recording of the processed output.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"`
	BitDepth   int    `yaml:"bit_depth"`
}

// MonitorConfig controls the telemetry publishers and the terminal UI.
type MonitorConfig struct {
	WSEnabled   bool          `yaml:"ws_enabled"`
	WSAddr      string        `yaml:"ws_addr"`
	UDPEnabled  bool          `yaml:"udp_enabled"`
	UDPTarget   string        `yaml:"udp_target"`
	UDPInterval time.Duration `yaml:"udp_interval"`
	TUI         bool          `yaml:"tui"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			OutputDevice:    DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      false,
		},
		Processing: ProcessingConfig{
			Preset:    DefaultPreset,
			FFTSize:   DefaultFFTSize,
			GainLevel: DefaultGainLevel,
			Pips:      true,
		},
		Recording: RecordingConfig{
			Enabled:    false,
			OutputFile: "",
			BitDepth:   DefaultBitDepth,
		},
		Monitor: MonitorConfig{
			WSEnabled:   false,
			WSAddr:      DefaultWSAddr,
			UDPEnabled:  false,
			UDPTarget:   DefaultUDPTarget,
			UDPInterval: 33 * time.Millisecond,
			TUI:         false,
		},
	}
}

// Validate checks the configuration before the engine is built. The
// DSP core does not re-validate; malformed tables that slip past this
// boundary degrade to pass-through rather than crashing.
func (c *Config) Validate() error {
	a := &c.Audio
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %v outside [%d, %d]", a.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if a.FramesPerBuffer <= 0 || a.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer %d outside (0, %d]", a.FramesPerBuffer, MaxBufferFrames)
	}

	p := &c.Processing
	if !bitint.IsPowerOfTwo(p.FFTSize) {
		return fmt.Errorf("processing.fft_size %d is not a power of 2", p.FFTSize)
	}
	if a.FramesPerBuffer > p.FFTSize {
		return fmt.Errorf("audio.frames_per_buffer %d exceeds processing.fft_size %d", a.FramesPerBuffer, p.FFTSize)
	}
	if p.GainLevel < 0 || p.GainLevel >= NumGainLevels {
		return fmt.Errorf("processing.gain_level %d outside [0, %d)", p.GainLevel, NumGainLevels)
	}

	if len(p.Bands) > 0 {
		if err := validateBandTable(p.Bands); err != nil {
			return fmt.Errorf("processing.bands: %w", err)
		}
	} else if _, ok := presets[p.Preset]; !ok {
		return fmt.Errorf("unknown preset %q (have: %s)", p.Preset, PresetNames())
	}

	if c.Recording.Enabled {
		switch c.Recording.BitDepth {
		case 16, 24, 32:
		default:
			return fmt.Errorf("recording.bit_depth %d not one of 16, 24, 32", c.Recording.BitDepth)
		}
	}

	if c.Monitor.UDPEnabled && c.Monitor.UDPInterval <= 0 {
		return fmt.Errorf("monitor.udp_interval must be positive when UDP is enabled")
	}

	return nil
}

// Bands resolves the active band table: the custom table when one is
// configured, the named preset otherwise.
func (c *Config) Bands() (wdrc.Bands, error) {
	if len(c.Processing.Bands) > 0 {
		if err := validateBandTable(c.Processing.Bands); err != nil {
			return wdrc.Bands{}, err
		}
		return bandsFromTable(c.Processing.Bands), nil
	}
	return PresetBands(c.Processing.Preset)
}

func validateBandTable(table []BandConfig) error {
	for i, b := range table {
		if b.HighHz <= b.LowHz {
			return fmt.Errorf("band %d: high_hz %v must exceed low_hz %v", i, b.HighHz, b.LowHz)
		}
		if i > 0 && b.LowHz != table[i-1].HighHz {
			return fmt.Errorf("band %d: low_hz %v must equal previous high_hz %v", i, b.LowHz, table[i-1].HighHz)
		}
		if b.Ratio < 1 {
			return fmt.Errorf("band %d: ratio %v below 1", i, b.Ratio)
		}
		if b.KneeDB < 0 {
			return fmt.Errorf("band %d: knee_db %v negative", i, b.KneeDB)
		}
		if b.AttackMs <= 0 || b.ReleaseMs <= 0 {
			return fmt.Errorf("band %d: attack_ms and release_ms must be positive", i)
		}
	}
	return nil
}

func bandsFromTable(table []BandConfig) wdrc.Bands {
	boundaries := make([]float64, 0, len(table)+1)
	params := make([]wdrc.Params, 0, len(table))
	for i, b := range table {
		if i == 0 {
			boundaries = append(boundaries, b.LowHz)
		}
		boundaries = append(boundaries, b.HighHz)
		params = append(params, wdrc.Params{
			ThresholdDB: b.ThresholdDB,
			Ratio:       b.Ratio,
			KneeDB:      b.KneeDB,
			GainDB:      b.GainDB,
			Attack:      time.Duration(b.AttackMs * float64(time.Millisecond)),
			Release:     time.Duration(b.ReleaseMs * float64(time.Millisecond)),
		})
	}
	return wdrc.Bands{Boundaries: boundaries, Params: params}
}
