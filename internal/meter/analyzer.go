/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package meter turns the audio of the current media element into a level
// reading and paints it as a gauge every frame.
package meter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"hdxmeter/internal/audio"
	"hdxmeter/internal/media"
	"hdxmeter/pkg/spec"
)

var (
	ErrUnsupported = errors.New("meter: audio processing unavailable")
	ErrNotRoutable = errors.New("meter: element has no routable audio output")
)

// FrequencySource is the analyser side of a binding.
type FrequencySource interface {
	FrequencyBinCount() int
	ByteFrequencyData(dst []uint8) []uint8
}

// Binding is the one-time analysis tap of an element.
type Binding struct {
	Element  media.Element
	Tap      *audio.Tap
	Analyser FrequencySource

	mu  sync.Mutex
	buf []uint8
}

type AnalyzerOptions struct {
	audio.AnalyserOptions
	// Reference is the bin mean that reads as level 1.
	Reference float64
}

// Analyzer binds elements to the shared audio context and reads their level.
type Analyzer struct {
	opts    AnalyzerOptions
	context func() (*audio.Context, error)
	logger  zerolog.Logger

	group singleflight.Group

	mu       sync.Mutex
	ctx      *audio.Context
	bindings map[media.Element]*Binding
}

// NewAnalyzer creates an analyzer. context returns the shared audio context,
// typically by way of audio.Shared. Zero options take the stock defaults.
func NewAnalyzer(opts AnalyzerOptions, context func() (*audio.Context, error), logger zerolog.Logger) *Analyzer {
	if opts.FFTSize <= 0 {
		opts.FFTSize = spec.FFTSize
		opts.Smoothing = spec.Smoothing
	}
	if opts.MinDecibels == 0 && opts.MaxDecibels == 0 {
		opts.MinDecibels, opts.MaxDecibels = spec.MinDecibels, spec.MaxDecibels
	}
	if opts.Reference <= 0 {
		opts.Reference = spec.LevelReference
	}
	return &Analyzer{
		opts:     opts,
		context:  context,
		logger:   logger.With().Str("component", "analyzer").Logger(),
		bindings: make(map[media.Element]*Binding),
	}
}

// Binding returns the existing binding of el, if any.
func (a *Analyzer) Binding(el media.Element) (*Binding, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.bindings[el]
	return b, ok
}

// Bind returns el's binding, creating it on first use. Concurrent calls for
// the same element share one tap.
func (a *Analyzer) Bind(ctx context.Context, el media.Element) (*Binding, error) {
	if el == nil {
		return nil, errors.New("meter: bind nil element")
	}
	if b, ok := a.Binding(el); ok {
		return b, nil
	}

	key := fmt.Sprintf("%s\x00%p", el.ID(), el)
	v, err, _ := a.group.Do(key, func() (any, error) {
		if b, ok := a.Binding(el); ok {
			return b, nil
		}
		return a.bind(ctx, el)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Binding), nil
}

func (a *Analyzer) bind(ctx context.Context, el media.Element) (*Binding, error) {
	routable, ok := el.(audio.Routable)
	if !ok {
		return nil, fmt.Errorf("bind %s: %w", el.ID(), ErrNotRoutable)
	}

	actx, err := a.sharedContext()
	if err != nil {
		return nil, err
	}
	if actx.State() == audio.Suspended {
		if err := actx.Resume(ctx); err != nil {
			return nil, fmt.Errorf("bind %s: %w: %w", el.ID(), ErrUnsupported, err)
		}
	}

	tap, err := actx.Tap(routable, a.opts.FFTSize)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", el.ID(), err)
	}
	b := &Binding{
		Element:  el,
		Tap:      tap,
		Analyser: audio.NewAnalyser(tap, a.opts.AnalyserOptions),
	}

	a.mu.Lock()
	if a.ctx != actx {
		a.mu.Unlock()
		return nil, fmt.Errorf("bind %s: %w", el.ID(), audio.ErrClosed)
	}
	a.bindings[el] = b
	a.mu.Unlock()
	a.logger.Debug().Str("element", el.ID()).Msg("element bound")
	return b, nil
}

func (a *Analyzer) sharedContext() (*audio.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ctx != nil && a.ctx.State() != audio.Closed {
		return a.ctx, nil
	}
	if a.context == nil {
		return nil, ErrUnsupported
	}
	c, err := a.context()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	if c == nil {
		return nil, ErrUnsupported
	}
	a.ctx = c
	return c, nil
}

// ReadLevel returns the mean bin magnitude of b normalized by Reference and
// clamped to [0,1]. A nil binding or a paused element reads 0.
func (a *Analyzer) ReadLevel(b *Binding) float64 {
	if b == nil || b.Analyser == nil {
		return 0
	}
	if b.Element != nil && b.Element.Paused() {
		return 0
	}
	return b.level(a.opts.Reference)
}

func (b *Binding) level(reference float64) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = b.Analyser.ByteFrequencyData(b.buf)
	if len(b.buf) == 0 || reference <= 0 {
		return 0
	}
	var sum float64
	for _, v := range b.buf {
		sum += float64(v)
	}
	level := sum / float64(len(b.buf)) / reference
	switch {
	case level > 1:
		return 1
	case level < 0:
		return 0
	}
	return level
}

// Reset forgets the audio captured so far and the analyser's smoothing, so
// the next reading reflects only what plays from now on.
func (b *Binding) Reset() {
	if b == nil {
		return
	}
	if b.Tap != nil {
		b.Tap.Clear()
	}
	if r, ok := b.Analyser.(interface{ Reset() }); ok {
		r.Reset()
	}
	b.mu.Lock()
	clear(b.buf)
	b.mu.Unlock()
}

// Close drops every binding together with the audio context they share.
// Bindings are never torn down per element.
func (a *Analyzer) Close() error {
	a.mu.Lock()
	c := a.ctx
	a.ctx = nil
	a.bindings = make(map[media.Element]*Binding)
	a.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.Close()
}
