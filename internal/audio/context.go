/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package audio is the processing graph behind playback and metering: one
// shared output context, per-element taps and analyser nodes.
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"

	"hdxmeter/pkg/spec"
)

var (
	ErrClosed        = errors.New("audio: context closed")
	ErrSuspended     = errors.New("audio: context suspended")
	ErrAlreadyRouted = errors.New("audio: element output already routed")
)

// Output is the device the context mixes into.
type Output interface {
	Init(sr beep.SampleRate, bufferSize int) error
	Play(s ...beep.Streamer)
	Lock()
	Unlock()
	Clear()
}

type speakerOutput struct{}

func (speakerOutput) Init(sr beep.SampleRate, bufferSize int) error {
	return speaker.Init(sr, bufferSize)
}
func (speakerOutput) Play(s ...beep.Streamer) { speaker.Play(s...) }
func (speakerOutput) Lock()                   { speaker.Lock() }
func (speakerOutput) Unlock()                 { speaker.Unlock() }
func (speakerOutput) Clear()                  { speaker.Clear() }

// Speaker is the process-wide beep speaker.
var Speaker Output = speakerOutput{}

type State int

const (
	Suspended State = iota
	Running
	Closed
)

func (s State) String() string {
	switch s {
	case Suspended:
		return "suspended"
	case Running:
		return "running"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Context owns the output device. It starts suspended; the device is opened on
// the first Resume.
type Context struct {
	out    Output
	rate   beep.SampleRate
	buffer time.Duration

	mu       sync.Mutex
	state    State
	resuming chan struct{}
	initErr  error
}

func NewContext(out Output, rate beep.SampleRate, buffer time.Duration) *Context {
	if rate <= 0 {
		rate = spec.SampleRate
	}
	if buffer <= 0 {
		buffer = spec.BufferMillis * time.Millisecond
	}
	return &Context{out: out, rate: rate, buffer: buffer}
}

func (c *Context) SampleRate() beep.SampleRate { return c.rate }

func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Resume opens the output device if the context is suspended. Opening may
// block; callers give up through ctx while the open continues in the
// background.
func (c *Context) Resume(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case Running:
		c.mu.Unlock()
		return nil
	case Closed:
		c.mu.Unlock()
		return ErrClosed
	}
	if c.resuming == nil {
		done := make(chan struct{})
		c.resuming = done
		go c.open(done)
	}
	done := c.resuming
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case Running:
		return nil
	case Closed:
		return ErrClosed
	}
	return fmt.Errorf("resume audio context: %w", c.initErr)
}

func (c *Context) open(done chan struct{}) {
	err := c.out.Init(c.rate, c.rate.N(c.buffer))

	c.mu.Lock()
	c.initErr = err
	if err == nil && c.state == Suspended {
		c.state = Running
	}
	c.resuming = nil
	c.mu.Unlock()
	close(done)
}

// Play mixes s into the output.
func (c *Context) Play(s beep.Streamer) error {
	switch c.State() {
	case Closed:
		return ErrClosed
	case Suspended:
		return ErrSuspended
	}
	c.out.Play(s)
	return nil
}

// Lock excludes the mixer. Pipeline fields of playing streamers change only
// while it is held.
func (c *Context) Lock()   { c.out.Lock() }
func (c *Context) Unlock() { c.out.Unlock() }

// Tap splices a tap into el's output route. An element can be routed once.
func (c *Context) Tap(el Routable, size int) (*Tap, error) {
	if c.State() == Closed {
		return nil, ErrClosed
	}
	var tap *Tap
	err := el.Route(func(up beep.Streamer) beep.Streamer {
		tap = NewTap(up, size)
		return tap
	})
	if err != nil {
		return nil, err
	}
	return tap, nil
}

// Close silences the mixer. A closed context cannot be resumed.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		return nil
	}
	wasRunning := c.state == Running
	c.state = Closed
	c.mu.Unlock()

	if wasRunning {
		c.out.Clear()
	}
	releaseShared(c)
	return nil
}

// Routable is implemented by elements whose audio output can be redirected
// through the graph. Route may succeed only once per element.
type Routable interface {
	Route(fn func(beep.Streamer) beep.Streamer) error
}

var (
	sharedMu sync.Mutex
	shared   *Context
)

// Shared returns the live process-wide context, building one with build when
// there is none. At most one context is live at a time.
func Shared(build func() (*Context, error)) (*Context, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared != nil && shared.State() != Closed {
		return shared, nil
	}
	c, err := build()
	if err != nil {
		return nil, fmt.Errorf("create audio context: %w", err)
	}
	shared = c
	return c, nil
}

func releaseShared(c *Context) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared == c {
		shared = nil
	}
}
