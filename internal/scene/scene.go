/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package scene describes which media elements a page mounts. A scene is a
// YAML file that may change while the daemon runs.
package scene

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"hdxmeter/internal/media"
)

var ErrInvalid = errors.New("scene: invalid")

type Entry struct {
	ID    string `yaml:"id"`
	Kind  string `yaml:"kind,omitempty"`
	Path  string `yaml:"path"`
	Title string `yaml:"title,omitempty"`
}

// MediaKind parses Kind. Empty means audio.
func (e Entry) MediaKind() media.Kind {
	k, err := media.ParseKind(e.Kind)
	if err != nil {
		return media.KindAudio
	}
	return k
}

type Scene struct {
	Elements []Entry `yaml:"elements"`
}

func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a scene. Relative element paths are resolved against dir.
func Parse(data []byte, dir string) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	seen := make(map[string]bool, len(s.Elements))
	for i := range s.Elements {
		e := &s.Elements[i]
		switch {
		case e.ID == "":
			return nil, fmt.Errorf("%w: element %d has no id", ErrInvalid, i)
		case seen[e.ID]:
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalid, e.ID)
		case e.Path == "":
			return nil, fmt.Errorf("%w: element %q has no path", ErrInvalid, e.ID)
		}
		if e.Kind != "" {
			if _, err := media.ParseKind(e.Kind); err != nil {
				return nil, fmt.Errorf("%w: element %q: %w", ErrInvalid, e.ID, err)
			}
		}
		if !filepath.IsAbs(e.Path) && dir != "" {
			e.Path = filepath.Join(dir, e.Path)
		}
		seen[e.ID] = true
	}
	return &s, nil
}

func (s *Scene) Lookup(id string) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	for _, e := range s.Elements {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Diff lists what changed between two scenes, in scene order.
type Diff struct {
	Added   []Entry
	Removed []Entry
	Changed []Entry
}

func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

func Compare(prev, next *Scene) Diff {
	var d Diff
	for _, e := range entries(next) {
		old, ok := prev.Lookup(e.ID)
		switch {
		case !ok:
			d.Added = append(d.Added, e)
		case old != e:
			d.Changed = append(d.Changed, e)
		}
	}
	for _, e := range entries(prev) {
		if _, ok := next.Lookup(e.ID); !ok {
			d.Removed = append(d.Removed, e)
		}
	}
	return d
}

func entries(s *Scene) []Entry {
	if s == nil {
		return nil
	}
	return s.Elements
}
