/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package app

import (
	"context"
	"errors"
	"flag"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/faiface/beep"
	"github.com/rs/zerolog"

	"hdxmeter/internal/config"
	"hdxmeter/internal/media"
	"hdxmeter/internal/meter"
	"hdxmeter/internal/tone"
)

type silentOutput struct{ mu sync.Mutex }

func (*silentOutput) Init(beep.SampleRate, int) error { return nil }
func (*silentOutput) Play(...beep.Streamer)           {}
func (o *silentOutput) Lock()                         { o.mu.Lock() }
func (o *silentOutput) Unlock()                       { o.mu.Unlock() }
func (*silentOutput) Clear()                          {}

func newApp(t *testing.T) *App {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"a.wav", "b.wav"} {
		opts := tone.Options{Frequency: 440, Amplitude: 0.5, Duration: 200 * time.Millisecond}
		if err := tone.WriteFile(filepath.Join(dir, name), opts, nil); err != nil {
			t.Fatal(err)
		}
	}
	scenePath := filepath.Join(dir, "scene.yaml")
	doc := "elements:\n  - {id: a, path: a.wav, title: First}\n  - {id: b, path: b.wav}\n"
	if err := os.WriteFile(scenePath, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Parse(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-scene", scenePath, "-watch=false"})
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	a := New(cfg, &silentOutput{}, nil, zerolog.Nop())
	t.Cleanup(a.Close)
	if err := a.LoadScene(); err != nil {
		t.Fatalf("load scene: %v", err)
	}
	return a
}

func TestPlaySwitchesCurrent(t *testing.T) {
	a := newApp(t)
	if a.Document.Len() != 2 {
		t.Fatalf("mounted %d elements", a.Document.Len())
	}

	first, err := a.Play(context.Background(), "a")
	if err != nil {
		t.Fatalf("play a: %v", err)
	}
	st := a.Status()
	if st.Current != "a" || st.Title != "First" || st.Paused {
		t.Fatalf("unexpected status %+v", st)
	}

	if _, err := a.Play(context.Background(), "b"); err != nil {
		t.Fatalf("play b: %v", err)
	}
	if !first.Paused() || first.Position() != 0 {
		t.Fatal("previous element kept playing")
	}
	if a.Status().Current != "b" {
		t.Fatalf("current %q", a.Status().Current)
	}

	deadline := time.Now().Add(2 * time.Second)
	for a.Renderer.State() != meter.Metering {
		if time.Now().After(deadline) {
			t.Fatal("current element never bound to the meter")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := a.Play(context.Background(), "missing"); err == nil {
		t.Fatal("expected an error for an unknown element")
	}
}

func TestTransportWithoutCurrent(t *testing.T) {
	a := newApp(t)
	if err := a.Pause(); !errors.Is(err, ErrNoCurrent) {
		t.Fatalf("expected ErrNoCurrent, got %v", err)
	}
	if err := a.Resume(context.Background()); !errors.Is(err, ErrNoCurrent) {
		t.Fatalf("expected ErrNoCurrent, got %v", err)
	}
	if err := a.SetGain(1); !errors.Is(err, ErrNoCurrent) {
		t.Fatalf("expected ErrNoCurrent, got %v", err)
	}

	a.Play(context.Background(), "a")
	if err := a.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if !a.Status().Paused {
		t.Fatal("pause did not stick")
	}
	if err := a.SetGain(-1); err != nil {
		t.Fatalf("gain: %v", err)
	}
	a.Stop()
	if st := a.Status(); st.Current != "" || st.State != "idle" {
		t.Fatalf("unexpected status after stop %+v", st)
	}
}

func TestStopAllThenReplay(t *testing.T) {
	a := newApp(t)
	a.Play(context.Background(), "a")
	a.Registry.StopAll()
	if a.Document.Len() != 0 || a.Registry.Current() != nil {
		t.Fatal("stop-all left media behind")
	}

	if _, err := a.Play(context.Background(), "a"); err != nil {
		t.Fatalf("replay after stop-all: %v", err)
	}
	if a.Document.Len() != 1 {
		t.Fatalf("expected the element remounted, %d mounted", a.Document.Len())
	}
}

func TestSnapshot(t *testing.T) {
	a := newApp(t)
	a.Renderer.Frame()
	path := filepath.Join(t.TempDir(), "gauge.png")
	if err := a.Snapshot(path); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != a.Config.Width || b.Dy() != a.Config.Height {
		t.Fatalf("snapshot is %v", b)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	a := newApp(t)
	a.Play(context.Background(), "a")
	a.Close()
	a.Close()
	if a.Document.Len() != 0 {
		t.Fatal("close left media mounted")
	}
}

func TestEntriesAndSeek(t *testing.T) {
	a := newApp(t)
	entries := a.Entries()
	if len(entries) != 2 || entries[0].ID != "a" || entries[0].Kind != "audio" || !entries[0].Mounted {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if err := a.Seek(time.Second); !errors.Is(err, ErrNoCurrent) {
		t.Fatalf("expected ErrNoCurrent, got %v", err)
	}
	a.Play(context.Background(), "a")
	a.Pause()
	if err := a.Seek(100 * time.Millisecond); err != nil {
		t.Fatalf("seek: %v", err)
	}
	if pos := a.Status().Position; pos < 90*time.Millisecond || pos > 110*time.Millisecond {
		t.Fatalf("position %v after seek", pos)
	}
}

func TestPlayNthAndToggle(t *testing.T) {
	a := newApp(t)
	if _, err := a.PlayNth(context.Background(), 5); !errors.Is(err, media.ErrNotMounted) {
		t.Fatalf("expected ErrNotMounted, got %v", err)
	}
	if err := a.TogglePause(context.Background()); !errors.Is(err, ErrNoCurrent) {
		t.Fatalf("expected ErrNoCurrent, got %v", err)
	}

	el, err := a.PlayNth(context.Background(), 1)
	if err != nil {
		t.Fatalf("play nth: %v", err)
	}
	if el.ID() != "b" {
		t.Fatalf("played %s", el.ID())
	}
	a.TogglePause(context.Background())
	if !el.Paused() {
		t.Fatal("toggle did not pause")
	}
	a.TogglePause(context.Background())
	if el.Paused() {
		t.Fatal("toggle did not resume")
	}
}

// orderElement records the registry state at the moment it starts playing.
type orderElement struct {
	id   string
	reg  *media.Registry
	fail error

	mu        sync.Mutex
	playing   bool
	sawSelf   bool
	sawOthers []bool
	others    []*orderElement
}

func (e *orderElement) ID() string       { return e.id }
func (e *orderElement) Kind() media.Kind { return media.KindAudio }

func (e *orderElement) Play(context.Context) error {
	others := make([]bool, 0, len(e.others))
	for _, o := range e.others {
		others = append(others, !o.Paused())
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sawSelf = e.reg.Current() == media.Element(e)
	e.sawOthers = others
	if e.fail != nil {
		return e.fail
	}
	e.playing = true
	return nil
}

func (e *orderElement) Pause() error {
	e.mu.Lock()
	e.playing = false
	e.mu.Unlock()
	return nil
}

func (e *orderElement) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.playing
}

func (e *orderElement) Seek(time.Duration) error { return nil }
func (e *orderElement) Position() time.Duration  { return 0 }
func (e *orderElement) Detach() error            { return nil }
func (e *orderElement) Reload() error            { return nil }

func TestPlayMakesCurrentBeforeStarting(t *testing.T) {
	a := newApp(t)
	x := &orderElement{id: "x", reg: a.Registry}
	y := &orderElement{id: "y", reg: a.Registry, others: []*orderElement{x}}
	broken := &orderElement{id: "broken", reg: a.Registry, fail: errors.New("no device")}
	for _, el := range []media.Element{x, y, broken} {
		if err := a.Document.Mount(el); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := a.Play(context.Background(), "x"); err != nil {
		t.Fatalf("play x: %v", err)
	}
	if _, err := a.Play(context.Background(), "y"); err != nil {
		t.Fatalf("play y: %v", err)
	}
	y.mu.Lock()
	sawSelf, sawOthers := y.sawSelf, y.sawOthers
	y.mu.Unlock()
	if !sawSelf {
		t.Fatal("y started before it was current")
	}
	if len(sawOthers) != 1 || sawOthers[0] {
		t.Fatalf("x was still playing when y started: %v", sawOthers)
	}

	if _, err := a.Play(context.Background(), "broken"); err == nil {
		t.Fatal("expected the play failure")
	}
	if cur := a.Registry.Current(); cur != nil {
		t.Fatalf("failed element left current: %s", cur.ID())
	}
	if !y.Paused() {
		t.Fatal("previous element kept playing")
	}
}
