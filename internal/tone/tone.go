/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package tone renders calibration sines for checking the meter end to end.
package tone

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"hdxmeter/internal/codec"
	"hdxmeter/pkg/spec"
)

var ErrUnknownFormat = errors.New("tone: unknown output format")

type Options struct {
	Frequency  float64 // Hz
	Amplitude  float64 // 0..1 of full scale
	Duration   time.Duration
	SampleRate int
	Channels   int
}

func (o Options) withDefaults() Options {
	if o.SampleRate <= 0 {
		o.SampleRate = spec.SampleRate
	}
	if o.Channels <= 0 {
		o.Channels = spec.Channels
	}
	o.Amplitude = math.Max(0, math.Min(o.Amplitude, 1))
	return o
}

// PCM returns interleaved 16-bit samples of the tone.
func PCM(opts Options) []int16 {
	opts = opts.withDefaults()
	frames := int(math.Round(opts.Duration.Seconds() * float64(opts.SampleRate)))
	pcm := make([]int16, frames*opts.Channels)
	peak := opts.Amplitude * 32767
	for i := range frames {
		v := int16(peak * math.Sin(2*math.Pi*opts.Frequency*float64(i)/float64(opts.SampleRate)))
		for c := range opts.Channels {
			pcm[i*opts.Channels+c] = v
		}
	}
	return pcm
}

// WriteWAV encodes the tone as 16-bit PCM WAV.
func WriteWAV(w io.WriteSeeker, opts Options) error {
	opts = opts.withDefaults()
	pcm := PCM(opts)
	data := make([]int, len(pcm))
	for i, v := range pcm {
		data[i] = int(v)
	}

	enc := wav.NewEncoder(w, opts.SampleRate, 16, opts.Channels, 1)
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: opts.Channels, SampleRate: opts.SampleRate},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	return enc.Close()
}

// WriteFile renders the tone to path, choosing the container from the
// extension. key seals .hdxo output and is ignored for .wav.
func WriteFile(path string, opts Options, key []byte) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".wav" && ext != ".hdxo" {
		return fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if ext == ".wav" {
		err = WriteWAV(f, opts)
	} else {
		opts.SampleRate = spec.SampleRate
		opts.Channels = spec.Channels
		_, err = codec.EncodePCM(f, PCM(opts), key)
	}
	if err != nil {
		return err
	}
	return f.Close()
}
