/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package audio

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Sampler yields the most recent time-domain samples.
type Sampler interface {
	Samples(n int) []float64
}

type AnalyserOptions struct {
	FFTSize     int
	Smoothing   float64
	MinDecibels float64
	MaxDecibels float64
}

// Analyser keeps a smoothed frequency-domain snapshot of a sampler.
type Analyser struct {
	src  Sampler
	opts AnalyserOptions

	mu       sync.Mutex
	smoothed []float64
}

func NewAnalyser(src Sampler, opts AnalyserOptions) *Analyser {
	return &Analyser{
		src:      src,
		opts:     opts,
		smoothed: make([]float64, opts.FFTSize/2),
	}
}

func (a *Analyser) FrequencyBinCount() int { return a.opts.FFTSize / 2 }

// ByteFrequencyData fills dst with the current magnitude of every bin mapped
// from [MinDecibels, MaxDecibels] onto 0..255. dst is grown when too short.
func (a *Analyser) ByteFrequencyData(dst []uint8) []uint8 {
	n := a.opts.FFTSize
	bins := n / 2
	if cap(dst) < bins {
		dst = make([]uint8, bins)
	}
	dst = dst[:bins]
	if bins == 0 {
		return dst
	}

	x := a.src.Samples(n)
	if len(x) < n {
		padded := make([]float64, n)
		copy(padded[n-len(x):], x)
		x = padded
	}
	window.Apply(x, window.Blackman)
	coeffs := fft.FFTReal(x)

	tau := a.opts.Smoothing
	scale := 255 / (a.opts.MaxDecibels - a.opts.MinDecibels)

	a.mu.Lock()
	defer a.mu.Unlock()
	for k := range bins {
		mag := cmplx.Abs(coeffs[k]) / float64(n)
		v := tau*a.smoothed[k] + (1-tau)*mag
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		a.smoothed[k] = v

		db := 20 * math.Log10(v)
		scaled := (db - a.opts.MinDecibels) * scale
		switch {
		case math.IsNaN(scaled), scaled <= 0:
			dst[k] = 0
		case scaled >= 255:
			dst[k] = 255
		default:
			dst[k] = uint8(scaled)
		}
	}
	return dst
}

// Reset drops the smoothing history.
func (a *Analyser) Reset() {
	a.mu.Lock()
	clear(a.smoothed)
	a.mu.Unlock()
}
