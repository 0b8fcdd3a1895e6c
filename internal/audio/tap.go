/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package audio

import (
	"sync"

	"github.com/faiface/beep"
)

// Tap passes audio through untouched while copying a mono mix of it into a
// ring buffer for analysis.
type Tap struct {
	s beep.Streamer

	mu   sync.Mutex
	buf  []float64
	pos  int
	size int
}

func NewTap(s beep.Streamer, size int) *Tap {
	if size < 1 {
		size = 1
	}
	return &Tap{
		s:    s,
		buf:  make([]float64, size),
		size: size,
	}
}

func (t *Tap) Stream(samples [][2]float64) (int, bool) {
	n, ok := t.s.Stream(samples)
	t.mu.Lock()
	for i := range n {
		t.buf[t.pos] = (samples[i][0] + samples[i][1]) / 2
		t.pos = (t.pos + 1) % t.size
	}
	t.mu.Unlock()
	return n, ok
}

func (t *Tap) Err() error {
	return t.s.Err()
}

// Samples returns the last n samples in chronological order. Slots never
// written read as silence.
func (t *Tap) Samples(n int) []float64 {
	if n > t.size {
		n = t.size
	}
	out := make([]float64, n)
	t.mu.Lock()
	start := (t.pos - n + t.size) % t.size
	for i := range n {
		out[i] = t.buf[(start+i)%t.size]
	}
	t.mu.Unlock()
	return out
}

// Clear forgets captured audio, e.g. after the source was rewound.
func (t *Tap) Clear() {
	t.mu.Lock()
	clear(t.buf)
	t.pos = 0
	t.mu.Unlock()
}
