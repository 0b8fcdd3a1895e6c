/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hdxmeter/internal/scene"
	"hdxmeter/internal/security"
	"hdxmeter/internal/tone"
)

func TestParseFreqs(t *testing.T) {
	got, err := parseFreqs(" 440, 1000.5,,")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != 440 || got[1] != 1000.5 {
		t.Fatalf("got %v", got)
	}
	for _, bad := range []string{"", "abc", "-5", "0"} {
		if _, err := parseFreqs(bad); err == nil {
			t.Errorf("%q: expected an error", bad)
		}
	}
}

func TestBatchWritesTonesAndScene(t *testing.T) {
	for _, ext := range []string{"wav", "hdxo"} {
		t.Run(ext, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "out")
			b := batch{
				dest:      dir,
				freqs:     []float64{440, 1000},
				opts:      tone.Options{Amplitude: 0.5, Duration: 100 * time.Millisecond},
				ext:       ext,
				key:       security.StreamKey("calibrate"),
				workers:   2,
				sceneFile: "scene.yaml",
			}
			failed, err := b.run()
			if err != nil || failed != 0 {
				t.Fatalf("run: failed=%d err=%v", failed, err)
			}
			for _, name := range []string{"tone-440hz." + ext, "tone-1000hz." + ext} {
				if fi, err := os.Stat(filepath.Join(dir, name)); err != nil || fi.Size() == 0 {
					t.Fatalf("%s missing: %v", name, err)
				}
			}

			s, err := scene.Load(filepath.Join(dir, "scene.yaml"))
			if err != nil {
				t.Fatalf("load scene: %v", err)
			}
			e, ok := s.Lookup("tone-440hz")
			if !ok || e.Path != filepath.Join(dir, "tone-440hz."+ext) || e.Title != "440 Hz" {
				t.Fatalf("unexpected entry %+v", e)
			}
		})
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 2)
	p.Add(1)
	p.Add(5)
	out := buf.String()
	if !strings.Contains(out, "50% (1/2 tones)") || !strings.HasSuffix(out, "100% (2/2 tones)\n") {
		t.Fatalf("unexpected progress output %q", out)
	}
}
