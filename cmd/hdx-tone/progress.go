/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

type Progress struct {
	w       io.Writer
	total   int
	current int
	mu      sync.Mutex
}

func NewProgress(w io.Writer, total int) *Progress {
	return &Progress{w: w, total: total}
}

func (p *Progress) Add(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = min(p.current+n, p.total)
	p.draw()
}

func (p *Progress) draw() {
	if p.w == nil || p.total <= 0 {
		return
	}
	width := 30
	percent := float64(p.current) / float64(p.total)
	filled := int(float64(width) * percent)

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	fmt.Fprintf(p.w, "\r [RENDER] [%s] %d%% (%d/%d tones)", bar, int(percent*100), p.current, p.total)

	if p.current == p.total {
		fmt.Fprintln(p.w)
	}
}
