// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"hearaid/internal/config"
	"hearaid/internal/dsp/wdrc"
	applog "hearaid/internal/log"
)

// ProcessWAV runs the multiband compressor over a WAV file block by
// block and writes the result to outputPath. Multichannel input is
// mixed to mono by taking the first channel. The file's own sample
// rate drives the compressor time constants; the configured preset or
// band table and gain level are applied as in the live path.
func ProcessWAV(cfg *config.Config, inputPath, outputPath string) (err error) {
	inputFile, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer inputFile.Close()

	decoder := wav.NewDecoder(inputFile)
	if !decoder.IsValidFile() {
		return fmt.Errorf("invalid WAV file: %s", inputPath)
	}

	format := decoder.Format()
	bitDepth := int(decoder.BitDepth)
	scale, err := fullScaleFor(bitDepth)
	if err != nil {
		return err
	}

	bands, err := cfg.Bands()
	if err != nil {
		return err
	}
	processor, err := wdrc.New(float64(format.SampleRate), cfg.Processing.FFTSize, bands)
	if err != nil {
		return fmt.Errorf("failed to build processor: %w", err)
	}
	defer processor.Close()

	outputFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	encoder := wav.NewEncoder(outputFile, format.SampleRate, bitDepth, 1, 1)

	// The encoder rewrites the WAV header on Close, so close errors on
	// the success path must not be dropped.
	defer func() {
		if closeErr := encoder.Close(); err == nil {
			err = closeErr
		}
		if closeErr := outputFile.Close(); err == nil {
			err = closeErr
		}
	}()

	blockSize := cfg.Audio.FramesPerBuffer
	channels := format.NumChannels

	intBuf := &goaudio.IntBuffer{
		Format: format,
		Data:   make([]int, blockSize*channels),
	}
	in := make([]float64, blockSize)
	out := make([]float64, cfg.Processing.FFTSize)
	outBuf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: format.SampleRate},
		SourceBitDepth: bitDepth,
		Data:           make([]int, blockSize),
	}

	volume := volumeSteps[cfg.Processing.GainLevel]
	var totalFrames int64

	for {
		intBuf.Data = intBuf.Data[:cap(intBuf.Data)]
		n, err := decoder.PCMBuffer(intBuf)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read audio data: %w", err)
		}
		if n == 0 {
			break
		}
		frames := n / channels

		for i := 0; i < frames; i++ {
			in[i] = float64(intBuf.Data[i*channels]) / scale
		}

		processor.Process(in[:frames], out)

		outBuf.Data = outBuf.Data[:cap(outBuf.Data)]
		for i := 0; i < frames; i++ {
			sample := out[i] * volume
			if sample > 1.0 {
				sample = 1.0
			} else if sample < -1.0 {
				sample = -1.0
			}
			outBuf.Data[i] = int(sample * scale)
		}
		outBuf.Data = outBuf.Data[:frames]

		if err := encoder.Write(outBuf); err != nil {
			return fmt.Errorf("failed to write audio data: %w", err)
		}
		totalFrames += int64(frames)
	}

	applog.Infof("processed %d frames: %s -> %s", totalFrames, inputPath, outputPath)

	return nil
}
