/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package player

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/faiface/beep"
	"github.com/rs/zerolog"

	"hdxmeter/internal/audio"
	"hdxmeter/internal/media"
	"hdxmeter/internal/security"
	"hdxmeter/internal/tone"
)

// mixer is a manually pumped stand-in for the speaker.
type mixer struct {
	mu        sync.Mutex
	streamers []beep.Streamer
	queued    int
}

func (m *mixer) Init(beep.SampleRate, int) error { return nil }
func (m *mixer) Lock()                           { m.mu.Lock() }
func (m *mixer) Unlock()                         { m.mu.Unlock() }

func (m *mixer) Play(s ...beep.Streamer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamers = append(m.streamers, s...)
	m.queued += len(s)
}

func (m *mixer) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamers = nil
}

func (m *mixer) active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.streamers)
}

// pump mixes n samples the way the speaker does.
func (m *mixer) pump(n int) [][2]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	mix := make([][2]float64, n)
	buf := make([][2]float64, n)
	for i := 0; i < len(m.streamers); {
		got, ok := m.streamers[i].Stream(buf)
		for j := range got {
			mix[j][0] += buf[j][0]
			mix[j][1] += buf[j][1]
		}
		if !ok {
			m.streamers = append(m.streamers[:i], m.streamers[i+1:]...)
			continue
		}
		i++
	}
	return mix
}

func fixture(t *testing.T, name string, opts tone.Options, key []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := tone.WriteFile(path, opts, key); err != nil {
		t.Fatalf("fixture %s: %v", name, err)
	}
	return path
}

func toneOpts(d time.Duration) tone.Options {
	return tone.Options{Frequency: 440, Amplitude: 0.5, Duration: d, SampleRate: 48000, Channels: 2}
}

func newTrack(t *testing.T, m *mixer, id string) (*Track, *audio.Context) {
	t.Helper()
	actx := audio.NewContext(m, 48000, 100*time.Millisecond)
	tr, err := NewTrack(actx, Options{ID: id, Path: fixture(t, id+".wav", toneOpts(100*time.Millisecond), nil)}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new track: %v", err)
	}
	return tr, actx
}

func TestTrackPlayPause(t *testing.T) {
	m := &mixer{}
	tr, _ := newTrack(t, m, "a")
	if !tr.Paused() {
		t.Fatal("new track should start paused")
	}
	if tr.Duration() != 100*time.Millisecond {
		t.Fatalf("duration %v", tr.Duration())
	}

	if err := tr.Play(context.Background()); err != nil {
		t.Fatalf("play: %v", err)
	}
	if tr.Paused() || m.active() != 1 {
		t.Fatalf("expected playing track in the mixer, paused=%v active=%d", tr.Paused(), m.active())
	}
	m.pump(2400)
	if tr.Position() != 50*time.Millisecond {
		t.Fatalf("position %v after 2400 samples", tr.Position())
	}

	tr.Pause()
	m.pump(2400)
	if !tr.Paused() || tr.Position() != 50*time.Millisecond {
		t.Fatalf("paused track advanced to %v", tr.Position())
	}

	tr.Play(context.Background())
	if m.queued != 1 {
		t.Fatalf("resuming queued the track again, %d queues", m.queued)
	}
}

func TestTrackEndsAndRestarts(t *testing.T) {
	m := &mixer{}
	tr, _ := newTrack(t, m, "a")
	tr.Play(context.Background())

	for i := 0; i < 10 && !tr.Ended(); i++ {
		m.pump(1024)
	}
	m.pump(16)
	if !tr.Ended() || !tr.Paused() {
		t.Fatal("track did not end")
	}
	if m.active() != 0 {
		t.Fatal("ended track still in the mixer")
	}

	if err := tr.Play(context.Background()); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if tr.Ended() || tr.Position() != 0 || m.active() != 1 {
		t.Fatalf("replay did not start over: ended=%v pos=%v active=%d", tr.Ended(), tr.Position(), m.active())
	}
}

func TestTrackSeek(t *testing.T) {
	m := &mixer{}
	tr, _ := newTrack(t, m, "a")
	if err := tr.Seek(30 * time.Millisecond); err != nil {
		t.Fatalf("seek: %v", err)
	}
	if tr.Position() != 30*time.Millisecond {
		t.Fatalf("position %v", tr.Position())
	}
	if err := tr.Seek(time.Hour); err != nil {
		t.Fatalf("seek past end: %v", err)
	}
	if tr.Position() != tr.Duration() {
		t.Fatalf("seek past end landed at %v", tr.Position())
	}
}

func TestTrackRouteOnce(t *testing.T) {
	m := &mixer{}
	tr, actx := newTrack(t, m, "a")
	if err := actx.Resume(context.Background()); err != nil {
		t.Fatalf("resume: %v", err)
	}

	tap, err := actx.Tap(tr, 256)
	if err != nil {
		t.Fatalf("tap: %v", err)
	}
	if _, err := actx.Tap(tr, 256); !errors.Is(err, audio.ErrAlreadyRouted) {
		t.Fatalf("expected ErrAlreadyRouted, got %v", err)
	}

	tr.Play(context.Background())
	m.pump(512)
	loud := false
	for _, v := range tap.Samples(256) {
		if v > 0.1 || v < -0.1 {
			loud = true
		}
	}
	if !loud {
		t.Fatal("tap captured no audio")
	}
}

func TestTrackDetachReload(t *testing.T) {
	m := &mixer{}
	tr, _ := newTrack(t, m, "a")
	tr.Play(context.Background())
	m.pump(1000)

	if err := tr.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if tr.Position() != 0 || !tr.Paused() {
		t.Fatalf("reload kept state: pos=%v paused=%v", tr.Position(), tr.Paused())
	}

	if err := tr.Detach(); err != nil {
		t.Fatalf("detach: %v", err)
	}
	if err := tr.Detach(); err != nil {
		t.Fatalf("second detach: %v", err)
	}
	m.pump(16)
	if m.active() != 0 {
		t.Fatal("mixer kept a detached track")
	}
	if err := tr.Play(context.Background()); !errors.Is(err, ErrDetached) {
		t.Fatalf("expected ErrDetached, got %v", err)
	}
	if err := tr.Seek(0); !errors.Is(err, ErrDetached) {
		t.Fatalf("expected ErrDetached, got %v", err)
	}
	if err := tr.Reload(); err != nil || tr.Position() != 0 {
		t.Fatalf("reload of detached track: %v", err)
	}
}

func TestOpenFormats(t *testing.T) {
	actx := audio.NewContext(&mixer{}, 48000, 100*time.Millisecond)
	if _, err := NewTrack(actx, Options{Path: filepath.Join(t.TempDir(), "song.ogg")}, zerolog.Nop()); err == nil {
		t.Fatal("expected error for a missing file")
	}

	key := security.StreamKey("secret")
	sealed := fixture(t, "b.hdxo", toneOpts(60*time.Millisecond), key)
	if _, err := NewTrack(actx, Options{Path: sealed}, zerolog.Nop()); err == nil {
		t.Fatal("opened a sealed stream without its key")
	}
	tr, err := NewTrack(actx, Options{Path: sealed, Key: key}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open hdxo: %v", err)
	}
	if tr.ID() != "b.hdxo" || tr.Duration() != 60*time.Millisecond {
		t.Fatalf("unexpected track %s of %v", tr.ID(), tr.Duration())
	}

	resampled := fixture(t, "c.wav", tone.Options{Frequency: 440, Amplitude: 0.5, Duration: 50 * time.Millisecond, SampleRate: 44100, Channels: 1}, nil)
	if _, err := NewTrack(actx, Options{Path: resampled}, zerolog.Nop()); err != nil {
		t.Fatalf("open 44.1kHz wav: %v", err)
	}
}

func TestUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Open(path, nil); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestRegistrySwitchesTracks(t *testing.T) {
	m := &mixer{}
	actx := audio.NewContext(m, 48000, 100*time.Millisecond)
	doc := media.NewDocument()
	reg := media.NewRegistry(doc, zerolog.Nop())
	defer reg.Close()

	tracks := make([]*Track, 3)
	for i, id := range []string{"a", "b", "c"} {
		tr, err := NewTrack(actx, Options{ID: id, Path: fixture(t, id+".wav", toneOpts(100*time.Millisecond), nil)}, zerolog.Nop())
		if err != nil {
			t.Fatalf("new track: %v", err)
		}
		doc.Mount(tr)
		tracks[i] = tr
	}
	a, b := tracks[0], tracks[1]

	a.Play(context.Background())
	reg.SetCurrent(a)
	m.pump(1200)

	b.Play(context.Background())
	reg.SetCurrent(b)
	if !a.Paused() || a.Position() != 0 {
		t.Fatalf("previous track not stopped: paused=%v pos=%v", a.Paused(), a.Position())
	}
	if b.Paused() || reg.Current() != b {
		t.Fatal("new track is not the playing current")
	}

	for _, tr := range tracks {
		tr.Play(context.Background())
	}
	reg.StopAll()
	for _, tr := range tracks {
		if !tr.Paused() || tr.Position() != 0 {
			t.Fatalf("%s survived stop-all", tr.ID())
		}
	}
	if doc.Len() != 0 || reg.Current() != nil {
		t.Fatal("stop-all left elements behind")
	}
}
