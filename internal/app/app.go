/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package app wires the playback coordinator, the level meter and the scene
// into one unit shared by the daemon and the gauge window.
package app

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/rs/zerolog"

	"hdxmeter/internal/audio"
	"hdxmeter/internal/config"
	"hdxmeter/internal/logging"
	"hdxmeter/internal/media"
	"hdxmeter/internal/meter"
	"hdxmeter/internal/player"
	"hdxmeter/internal/scene"
	"hdxmeter/internal/security"
)

var ErrNoCurrent = errors.New("app: nothing is playing")

type App struct {
	Config   config.Config
	Document *media.Document
	Registry *media.Registry
	Analyzer *meter.Analyzer
	Renderer *meter.Renderer
	Stage    *scene.Stage

	logger zerolog.Logger
	out    audio.Output
	key    []byte
	close  sync.Once

	mu   sync.Mutex
	actx *audio.Context
}

// New builds the app. out is the output device, normally audio.Speaker.
// surface may be nil.
func New(cfg config.Config, out audio.Output, surface meter.Surface, logger zerolog.Logger) *App {
	a := &App{
		Config:   cfg,
		Document: media.NewDocument(),
		logger:   logging.Component(logger, "app"),
		out:      out,
		key:      security.StreamKey(cfg.Key),
	}
	a.Registry = media.NewRegistry(a.Document, logger)
	a.Analyzer = meter.NewAnalyzer(meter.AnalyzerOptions{
		AnalyserOptions: audio.AnalyserOptions{
			FFTSize:     cfg.FFTSize,
			Smoothing:   cfg.Smoothing,
			MinDecibels: cfg.MinDecibels,
			MaxDecibels: cfg.MaxDecibels,
		},
		Reference: cfg.Reference,
	}, a.AudioContext, logger)
	a.Renderer = meter.NewRenderer(a.Registry, a.Analyzer, meter.NewGauge(), meter.RendererOptions{
		FPS:     cfg.FPS,
		Width:   cfg.Width,
		Height:  cfg.Height,
		Surface: surface,
	}, logger)
	a.Stage = scene.NewStage(a.Document, a.Registry, a.OpenElement, logger)
	return a
}

// AudioContext returns the process-wide audio context.
func (a *App) AudioContext() (*audio.Context, error) {
	actx, err := audio.Shared(func() (*audio.Context, error) {
		return audio.NewContext(a.out, beep.SampleRate(a.Config.SampleRate), a.Config.Buffer), nil
	})
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.actx = actx
	a.mu.Unlock()
	return actx, nil
}

// OpenElement creates the track for a scene entry.
func (a *App) OpenElement(e scene.Entry) (media.Element, error) {
	actx, err := a.AudioContext()
	if err != nil {
		return nil, err
	}
	return player.NewTrack(actx, player.Options{
		ID:    e.ID,
		Title: e.Title,
		Path:  e.Path,
		Kind:  e.MediaKind(),
		Key:   a.key,
	}, a.logger)
}

// LoadScene reads the configured scene and mounts it.
func (a *App) LoadScene() error {
	s, err := scene.Load(a.Config.Scene)
	if err != nil {
		return err
	}
	a.Stage.Apply(s)
	return nil
}

// Start runs the frame loop, and the scene watcher when enabled, until ctx
// ends.
func (a *App) Start(ctx context.Context) {
	a.Renderer.Start(ctx)
	a.Watch(ctx)
}

// Watch reloads the scene file in the background when watching is enabled.
func (a *App) Watch(ctx context.Context) {
	if !a.Config.Watch || a.Config.Scene == "" {
		return
	}
	go func() {
		if err := a.Stage.Watch(ctx, a.Config.Scene); err != nil {
			a.logger.Warn().Err(err).Msg("scene watch disabled")
		}
	}()
}

// Play makes id current, stopping the previous element, then starts it.
func (a *App) Play(ctx context.Context, id string) (media.Element, error) {
	el, err := a.Stage.Ensure(id)
	if err != nil {
		return nil, err
	}
	a.Registry.SetCurrent(el)
	if err := el.Play(ctx); err != nil {
		a.Registry.SetCurrent(nil)
		return nil, fmt.Errorf("play %s: %w", id, err)
	}
	return el, nil
}

func (a *App) Pause() error {
	el := a.Registry.Current()
	if el == nil {
		return ErrNoCurrent
	}
	return el.Pause()
}

func (a *App) Resume(ctx context.Context) error {
	el := a.Registry.Current()
	if el == nil {
		return ErrNoCurrent
	}
	return el.Play(ctx)
}

func (a *App) Seek(d time.Duration) error {
	el := a.Registry.Current()
	if el == nil {
		return ErrNoCurrent
	}
	return el.Seek(d)
}

// PlayNth plays the nth scene entry, counting from zero.
func (a *App) PlayNth(ctx context.Context, n int) (media.Element, error) {
	entries := a.Entries()
	if n < 0 || n >= len(entries) {
		return nil, fmt.Errorf("entry %d: %w", n, media.ErrNotMounted)
	}
	return a.Play(ctx, entries[n].ID)
}

// TogglePause pauses the current element, or resumes it when paused.
func (a *App) TogglePause(ctx context.Context) error {
	el := a.Registry.Current()
	if el == nil {
		return ErrNoCurrent
	}
	if el.Paused() {
		return el.Play(ctx)
	}
	return el.Pause()
}

// Stop clears the current element, pausing and rewinding it.
func (a *App) Stop() {
	a.Registry.SetCurrent(nil)
}

// SetGain changes the gain of the current track.
func (a *App) SetGain(gain float64) error {
	tr, ok := a.Registry.Current().(*player.Track)
	if !ok {
		return ErrNoCurrent
	}
	tr.SetGain(gain)
	return nil
}

// Snapshot writes the last gauge frame as PNG.
func (a *App) Snapshot(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, a.Renderer.Snapshot()); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return f.Close()
}

// Status describes what is playing.
type Status struct {
	Current  string        `json:"current"`
	Title    string        `json:"title,omitempty"`
	Paused   bool          `json:"paused"`
	Position time.Duration `json:"position_ns"`
	State    string        `json:"state"`
	Level    float64       `json:"level"`
	Label    string        `json:"label"`
	Elements int           `json:"elements"`
}

// Entry is a scene entry as listed to clients.
type Entry struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Title   string `json:"title,omitempty"`
	Mounted bool   `json:"mounted"`
}

// Entries lists the scene in file order.
func (a *App) Entries() []Entry {
	s := a.Stage.Scene()
	if s == nil {
		return nil
	}
	out := make([]Entry, 0, len(s.Elements))
	for _, e := range s.Elements {
		_, mounted := a.Document.Lookup(e.ID)
		out = append(out, Entry{ID: e.ID, Kind: e.MediaKind().String(), Title: e.Title, Mounted: mounted})
	}
	return out
}

func (a *App) Status() Status {
	reading := a.Renderer.Last()
	st := Status{
		State:    a.Renderer.State().String(),
		Level:    reading.Level,
		Label:    reading.Label,
		Elements: a.Document.Len(),
		Paused:   true,
	}
	if el := a.Registry.Current(); el != nil {
		st.Current = el.ID()
		st.Paused = el.Paused()
		st.Position = el.Position()
		if tr, ok := el.(*player.Track); ok {
			st.Title = tr.Title()
		}
	}
	return st
}

// Close panic-stops all media, ends the frame loop and releases the audio
// device. Safe to call more than once.
func (a *App) Close() {
	a.close.Do(func() {
		a.Registry.Close()
		a.Renderer.Stop()
		if err := a.Analyzer.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("close analyzer")
		}
		a.mu.Lock()
		actx := a.actx
		a.mu.Unlock()
		if actx != nil {
			actx.Close()
		}
		a.logger.Info().Msg("shut down")
	})
}
