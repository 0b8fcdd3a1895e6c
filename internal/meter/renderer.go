/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package meter

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hdxmeter/internal/media"
	"hdxmeter/pkg/spec"
)

// Registry is the part of media.Registry the renderer follows.
type Registry interface {
	Current() media.Element
	Subscribe(fn func()) (dispose func())
}

// Meter binds elements and reads their level. *Analyzer implements it.
type Meter interface {
	Bind(ctx context.Context, el media.Element) (*Binding, error)
	ReadLevel(b *Binding) float64
}

// Surface receives every finished frame.
type Surface interface {
	Present(frame *image.RGBA) error
}

type State int

const (
	Idle State = iota
	Metering
)

func (s State) String() string {
	if s == Metering {
		return "metering"
	}
	return "idle"
}

type RendererOptions struct {
	FPS     int
	Width   int
	Height  int
	Surface Surface
}

// Renderer paints the level of the current element once per frame.
type Renderer struct {
	reg    Registry
	meter  Meter
	gauge  *Gauge
	opts   RendererOptions
	logger zerolog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	dispose func()
	loops   sync.WaitGroup
	stop    sync.Once

	mu      sync.Mutex
	canvas  *image.RGBA
	current media.Element
	binding *Binding
	gen     uint64
	last    Reading
	started bool
	stopped bool
}

func NewRenderer(reg Registry, meter Meter, gauge *Gauge, opts RendererOptions, logger zerolog.Logger) *Renderer {
	if gauge == nil {
		gauge = NewGauge()
	}
	if opts.FPS <= 0 {
		opts.FPS = spec.FramesPerSecond
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = spec.GaugeWidth, spec.GaugeHeight
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Renderer{
		reg:    reg,
		meter:  meter,
		gauge:  gauge,
		opts:   opts,
		logger: logger.With().Str("component", "renderer").Logger(),
		ctx:    ctx,
		cancel: cancel,
		canvas: image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height)),
	}
	r.last = gauge.Draw(r.canvas, 0)
	r.retarget()
	r.dispose = reg.Subscribe(r.retarget)
	return r
}

// retarget follows a registry notification. Binding happens off the caller's
// goroutine and only here, never per frame.
func (r *Renderer) retarget() {
	el := r.reg.Current()

	r.mu.Lock()
	if el == r.current {
		r.mu.Unlock()
		return
	}
	r.gen++
	gen := r.gen
	r.current = el
	r.binding = nil
	if el == nil || r.stopped {
		r.mu.Unlock()
		return
	}
	r.loops.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.loops.Done()
		b, err := r.meter.Bind(r.ctx, el)
		if err != nil {
			level := zerolog.WarnLevel
			if errors.Is(err, ErrUnsupported) || errors.Is(err, context.Canceled) {
				level = zerolog.DebugLevel
			}
			r.logger.WithLevel(level).Err(err).Str("element", el.ID()).Msg("level binding failed")
			return
		}
		r.mu.Lock()
		if r.gen == gen {
			// a returning element keeps its tap; drop what it captured last time
			b.Reset()
			r.binding = b
		}
		r.mu.Unlock()
	}()
}

// State reports Idle until the current element is bound.
func (r *Renderer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil && r.binding != nil {
		return Metering
	}
	return Idle
}

// Frame draws one frame and presents it.
func (r *Renderer) Frame() Reading {
	r.mu.Lock()
	cur, b := r.current, r.binding
	r.mu.Unlock()

	level := 0.0
	if cur != nil && b != nil {
		level = r.meter.ReadLevel(b)
	}

	r.mu.Lock()
	reading := r.gauge.Draw(r.canvas, level)
	r.last = reading
	canvas := r.canvas
	r.mu.Unlock()

	if r.opts.Surface != nil {
		if err := r.opts.Surface.Present(canvas); err != nil {
			r.logger.Debug().Err(err).Msg("present frame")
		}
	}
	return reading
}

// Last returns the most recent reading.
func (r *Renderer) Last() Reading {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Snapshot copies the last painted frame.
func (r *Renderer) Snapshot() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	img := image.NewRGBA(r.canvas.Bounds())
	copy(img.Pix, r.canvas.Pix)
	return img
}

// Run draws a frame per tick until ctx ends, ticks closes or Stop is called.
func (r *Renderer) Run(ctx context.Context, ticks <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.ctx.Done():
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			r.Frame()
		}
	}
}

// Start runs frames at the configured rate in the background. Only the first
// call starts a loop.
func (r *Renderer) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped || r.started {
		return
	}
	r.started = true
	ticker := time.NewTicker(time.Second / time.Duration(r.opts.FPS))
	r.loops.Add(1)
	go func() {
		defer r.loops.Done()
		defer ticker.Stop()
		r.Run(ctx, ticker.C)
	}()
}

// Stop ends the frame loop and unsubscribes from the registry. Bindings stay
// with the analyzer.
func (r *Renderer) Stop() {
	r.stop.Do(func() {
		r.mu.Lock()
		r.stopped = true
		r.mu.Unlock()
		r.cancel()
		if r.dispose != nil {
			r.dispose()
		}
		r.loops.Wait()
	})
}
