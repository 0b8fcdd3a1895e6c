/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package player provides the concrete media element: a file-backed track
// mixed into the shared audio context.
package player

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
	"github.com/rs/zerolog"

	"hdxmeter/internal/audio"
	"hdxmeter/internal/codec"
	"hdxmeter/internal/media"
)

var (
	ErrDetached          = errors.New("player: track has no source")
	ErrUnsupportedFormat = errors.New("player: unsupported file format")
)

type Options struct {
	ID    string
	Title string
	Path  string
	Kind  media.Kind
	// Key opens sealed .hdxo files.
	Key []byte
	// Gain in volume steps of base 2, 0 is unity.
	Gain float64
}

// output is the route head. Its streamer is swapped under the mixer lock when
// a tap is spliced in.
type output struct{ s beep.Streamer }

func (o *output) Stream(samples [][2]float64) (int, bool) { return o.s.Stream(samples) }
func (o *output) Err() error                              { return o.s.Err() }

// Track is a media element playing one file.
//
// Lock order is t.mu, then the context lock. The end-of-stream callback runs
// inside the mixer and only touches atomics.
type Track struct {
	opts   Options
	actx   *audio.Context
	logger zerolog.Logger

	mu       sync.Mutex
	src      beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	out      *output
	routed   bool
	detached bool

	queued atomic.Bool
	paused atomic.Bool
	ended  atomic.Bool
}

// NewTrack opens the file behind opts. The track starts paused.
func NewTrack(actx *audio.Context, opts Options, logger zerolog.Logger) (*Track, error) {
	if opts.ID == "" {
		opts.ID = filepath.Base(opts.Path)
	}
	t := &Track{
		opts:   opts,
		actx:   actx,
		logger: logger.With().Str("component", "track").Str("track", opts.ID).Logger(),
	}
	t.volume = &effects.Volume{Base: 2, Volume: opts.Gain}
	t.ctrl = &beep.Ctrl{Streamer: t.volume, Paused: true}
	t.out = &output{s: t.ctrl}
	t.paused.Store(true)

	if err := t.open(); err != nil {
		return nil, err
	}
	return t, nil
}

// Open decodes path by extension.
func Open(path string, key []byte) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}
	var (
		s      beep.StreamSeekCloser
		format beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		s, format, err = wav.Decode(f)
	case ".mp3":
		s, format, err = mp3.Decode(f)
	case ".hdxo":
		s, format, err = codec.Decode(f, key)
	default:
		err = ErrUnsupportedFormat
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("open %s: %w", path, err)
	}
	return s, format, nil
}

// open replaces the decoded source. Called with t.mu held.
func (t *Track) open() error {
	src, format, err := Open(t.opts.Path, t.opts.Key)
	if err != nil {
		return err
	}
	var s beep.Streamer = src
	if rate := t.actx.SampleRate(); format.SampleRate != rate {
		s = beep.Resample(4, format.SampleRate, rate, src)
	}

	t.actx.Lock()
	old := t.src
	t.src, t.format = src, format
	t.volume.Streamer = s
	t.ctrl.Streamer = t.volume
	t.ctrl.Paused = true
	t.actx.Unlock()

	t.detached = false
	t.paused.Store(true)
	t.ended.Store(false)
	if old != nil {
		old.Close()
	}
	return nil
}

func (t *Track) ID() string       { return t.opts.ID }
func (t *Track) Title() string    { return t.opts.Title }
func (t *Track) Path() string     { return t.opts.Path }
func (t *Track) Kind() media.Kind { return t.opts.Kind }

// Play resumes the audio context when needed and starts mixing the track. A
// track that reached its end starts over.
func (t *Track) Play(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.detached {
		return ErrDetached
	}
	if err := t.actx.Resume(ctx); err != nil {
		return fmt.Errorf("play %s: %w", t.opts.ID, err)
	}
	if t.ended.Load() {
		if err := t.seek(0); err != nil {
			return err
		}
	}

	t.actx.Lock()
	t.ctrl.Paused = false
	t.actx.Unlock()
	t.paused.Store(false)
	t.ended.Store(false)

	if t.queued.CompareAndSwap(false, true) {
		if err := t.actx.Play(beep.Seq(t.out, beep.Callback(t.finish))); err != nil {
			t.queued.Store(false)
			return fmt.Errorf("play %s: %w", t.opts.ID, err)
		}
	}
	t.logger.Debug().Msg("playing")
	return nil
}

// finish runs inside the mixer once the route head is drained.
func (t *Track) finish() {
	t.queued.Store(false)
	t.paused.Store(true)
	t.ended.Store(true)
}

func (t *Track) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.actx.Lock()
	t.ctrl.Paused = true
	t.actx.Unlock()
	t.paused.Store(true)
	return nil
}

// Paused reports true before the first Play, after Pause and at the end.
func (t *Track) Paused() bool {
	return t.paused.Load() || t.ended.Load()
}

// Ended reports whether the track played to its end.
func (t *Track) Ended() bool { return t.ended.Load() }

func (t *Track) Seek(pos time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.detached {
		return ErrDetached
	}
	return t.seek(pos)
}

func (t *Track) seek(pos time.Duration) error {
	t.actx.Lock()
	defer t.actx.Unlock()
	n := max(0, min(t.format.SampleRate.N(pos), t.src.Len()))
	if err := t.src.Seek(n); err != nil {
		return fmt.Errorf("seek %s: %w", t.opts.ID, err)
	}
	if n < t.src.Len() {
		t.ended.Store(false)
	}
	return nil
}

func (t *Track) Position() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.detached {
		return 0
	}
	t.actx.Lock()
	defer t.actx.Unlock()
	return t.format.SampleRate.D(t.src.Position())
}

// Duration is the length of the source.
func (t *Track) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.detached {
		return 0
	}
	t.actx.Lock()
	defer t.actx.Unlock()
	return t.format.SampleRate.D(t.src.Len())
}

// SetGain changes the gain while playing.
func (t *Track) SetGain(gain float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.actx.Lock()
	t.volume.Volume = gain
	t.actx.Unlock()
	t.opts.Gain = gain
}

// Detach drops the source. The mixer lets go of the track on its next pull.
func (t *Track) Detach() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.detached {
		return nil
	}
	t.actx.Lock()
	t.ctrl.Streamer = nil
	src := t.src
	t.src = nil
	t.actx.Unlock()

	t.detached = true
	t.paused.Store(true)
	if src == nil {
		return nil
	}
	if err := src.Close(); err != nil {
		return fmt.Errorf("detach %s: %w", t.opts.ID, err)
	}
	return nil
}

// Reload discards decoded data. An attached track reopens its file; a
// detached one only resets.
func (t *Track) Reload() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.detached {
		t.paused.Store(true)
		t.ended.Store(false)
		return nil
	}
	return t.open()
}

// Route splices fn into the track's output. Allowed once.
func (t *Track) Route(fn func(beep.Streamer) beep.Streamer) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.routed {
		return audio.ErrAlreadyRouted
	}
	t.actx.Lock()
	t.out.s = fn(t.out.s)
	t.actx.Unlock()
	t.routed = true
	return nil
}
