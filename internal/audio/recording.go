package audio

import (
	"fmt"
	"os"
	"sync/atomic"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// StartRecording begins writing the processed output signal to a WAV
// file at the configured bit depth.
func (e *Engine) StartRecording(filename string) error {
	if atomic.LoadInt32(&e.isRecording) == 1 {
		return fmt.Errorf("already recording")
	}

	bitDepth := e.config.Recording.BitDepth
	scale, err := fullScaleFor(bitDepth)
	if err != nil {
		return err
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	e.outputFile = file

	e.wavEncoder = wav.NewEncoder(file, int(e.config.Audio.SampleRate),
		bitDepth, 1, 1)
	e.sampleScale = scale

	e.sampleBuf = &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: 1,
			SampleRate:  int(e.config.Audio.SampleRate),
		},
		SourceBitDepth: bitDepth,
		Data:           make([]int, e.config.Audio.FramesPerBuffer),
	}

	atomic.StoreInt32(&e.isRecording, 1)

	return nil
}

func (e *Engine) StopRecording() error {
	if atomic.LoadInt32(&e.isRecording) == 0 {
		return nil
	}

	atomic.StoreInt32(&e.isRecording, 0)

	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			return err
		}
		e.wavEncoder = nil
	}

	if e.outputFile != nil {
		if err := e.outputFile.Close(); err != nil {
			return err
		}
		e.outputFile = nil
	}

	return nil
}

func (e *Engine) Close() error {
	if atomic.LoadInt32(&e.isRecording) == 1 {
		if err := e.StopRecording(); err != nil {
			return err
		}
	}

	if err := e.StopStream(); err != nil {
		return err
	}

	return e.processor.Close()
}

// fullScaleFor maps a PCM bit depth to its positive full-scale value.
func fullScaleFor(bitDepth int) (float64, error) {
	switch bitDepth {
	case 16:
		return 32767, nil
	case 24:
		return 8388607, nil
	case 32:
		return 2147483647, nil
	default:
		return 0, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}
}
