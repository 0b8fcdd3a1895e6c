/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package media

import (
	"errors"
	"testing"
)

func TestDocumentMountLookup(t *testing.T) {
	doc := NewDocument()
	a, b := newFake("a"), newFake("b")
	b.kind = KindVideo
	mount(t, doc, a, b)

	got, ok := doc.Lookup("b")
	if !ok || got != b {
		t.Fatalf("lookup b: got %v, %v", got, ok)
	}
	if got.Kind() != KindVideo {
		t.Fatalf("expected video kind, got %v", got.Kind())
	}
	if _, ok := doc.Lookup("missing"); ok {
		t.Fatal("lookup of missing id succeeded")
	}

	els := doc.Elements()
	if len(els) != 2 || els[0] != a || els[1] != b {
		t.Fatalf("expected mount order [a b], got %v", els)
	}
}

func TestDocumentRejectsDuplicateID(t *testing.T) {
	doc := NewDocument()
	mount(t, doc, newFake("a"))
	if err := doc.Mount(newFake("a")); !errors.Is(err, ErrDuplicateElement) {
		t.Fatalf("expected ErrDuplicateElement, got %v", err)
	}
}

func TestDocumentUnmount(t *testing.T) {
	doc := NewDocument()
	a := newFake("a")
	mount(t, doc, a)

	if err := doc.Remove(a); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := doc.Unmount(a); !errors.Is(err, ErrNotMounted) {
		t.Fatalf("expected ErrNotMounted, got %v", err)
	}
}

func TestDocumentSnapshotIsDetached(t *testing.T) {
	doc := NewDocument()
	mount(t, doc, newFake("a"))
	snap := doc.Elements()
	mount(t, doc, newFake("b"))
	if len(snap) != 1 {
		t.Fatalf("snapshot changed after mount: %d elements", len(snap))
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"", KindAudio, true},
		{"audio", KindAudio, true},
		{"video", KindVideo, true},
		{"image", KindAudio, false},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err == nil) != tt.ok {
			t.Fatalf("ParseKind(%q) error = %v", tt.in, err)
		}
		if tt.ok && got != tt.want {
			t.Fatalf("ParseKind(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
