/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package scene

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"hdxmeter/internal/media"
)

// Opener creates the element for an entry.
type Opener func(Entry) (media.Element, error)

// Stage keeps a document in line with a scene: it mounts what the scene adds
// and stops and unmounts what the scene drops.
type Stage struct {
	doc    *media.Document
	reg    *media.Registry
	open   Opener
	logger zerolog.Logger

	mu    sync.Mutex
	scene *Scene
}

func NewStage(doc *media.Document, reg *media.Registry, open Opener, logger zerolog.Logger) *Stage {
	return &Stage{
		doc:    doc,
		reg:    reg,
		open:   open,
		logger: logger.With().Str("component", "stage").Logger(),
	}
}

// Scene returns the scene last applied.
func (s *Stage) Scene() *Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene
}

// Apply brings the document in line with next. Entries that fail to open are
// logged and skipped.
func (s *Stage) Apply(next *Scene) Diff {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := Compare(s.scene, next)
	for _, e := range d.Removed {
		s.unmount(e.ID)
	}
	for _, e := range d.Changed {
		s.unmount(e.ID)
		s.mount(e)
	}
	for _, e := range d.Added {
		s.mount(e)
	}
	s.scene = next
	if !d.Empty() {
		s.logger.Info().
			Int("added", len(d.Added)).
			Int("removed", len(d.Removed)).
			Int("changed", len(d.Changed)).
			Msg("scene applied")
	}
	return d
}

// Ensure returns the mounted element id, mounting it from the scene when it
// is missing, for example after a panic stop emptied the document.
func (s *Stage) Ensure(id string) (media.Element, error) {
	if el, ok := s.doc.Lookup(id); ok {
		return el, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.scene.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("element %q: %w", id, media.ErrNotMounted)
	}
	if el, ok := s.doc.Lookup(id); ok {
		return el, nil
	}
	return s.mount(e)
}

func (s *Stage) mount(e Entry) (media.Element, error) {
	el, err := s.open(e)
	if err != nil {
		s.logger.Warn().Err(err).Str("element", e.ID).Msg("open element")
		return nil, err
	}
	if err := s.doc.Mount(el); err != nil {
		s.logger.Warn().Err(err).Str("element", e.ID).Msg("mount element")
		el.Detach()
		return nil, err
	}
	s.logger.Debug().Str("element", e.ID).Str("path", e.Path).Msg("mounted")
	return el, nil
}

func (s *Stage) unmount(id string) {
	el, ok := s.doc.Lookup(id)
	if !ok {
		return
	}
	if s.reg.Current() == el {
		s.reg.SetCurrent(nil)
	}
	if err := el.Pause(); err != nil {
		s.logger.Warn().Err(err).Str("element", id).Msg("pause element")
	}
	if err := el.Detach(); err != nil {
		s.logger.Warn().Err(err).Str("element", id).Msg("detach element")
	}
	if err := s.doc.Unmount(el); err != nil {
		s.logger.Warn().Err(err).Str("element", id).Msg("unmount element")
	}
	s.logger.Debug().Str("element", id).Msg("unmounted")
}

// Watch reloads path on every change until ctx ends. Invalid scenes are
// logged and leave the document as it is.
func (s *Stage) Watch(ctx context.Context, path string) error {
	w, err := NewWatcher(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	defer w.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-w.Events:
			if !ok {
				return nil
			}
			next, err := Load(path)
			if err != nil {
				s.logger.Error().Err(err).Msg("reload scene")
				continue
			}
			s.Apply(next)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn().Err(err).Msg("scene watcher")
		}
	}
}
