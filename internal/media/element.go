/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package media coordinates playback across independently mounted media
// elements: at most one element is current, and a panic stop can silence every
// element in the document.
package media

import (
	"context"
	"errors"
	"time"
)

var (
	ErrDuplicateElement = errors.New("media: element id already mounted")
	ErrNotMounted       = errors.New("media: element not mounted")
)

// Kind tells audio elements from video elements. Both carry an audio track.
type Kind int

const (
	KindAudio Kind = iota
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// ParseKind maps a scene kind name to a Kind. Empty means audio.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "audio":
		return KindAudio, nil
	case "video":
		return KindVideo, nil
	default:
		return KindAudio, errors.New("media: unknown kind " + s)
	}
}

// Element is a playable media element owned by whichever widget mounted it.
// The registry only observes and controls it.
type Element interface {
	ID() string
	Kind() Kind

	Play(ctx context.Context) error
	Pause() error
	Paused() bool

	Seek(pos time.Duration) error
	Position() time.Duration

	// Detach drops the element's media source.
	Detach() error
	// Reload resets the element and discards any buffered data.
	Reload() error
}

// Source enumerates the media elements currently in the document.
type Source interface {
	Elements() []Element
	Remove(el Element) error
}
