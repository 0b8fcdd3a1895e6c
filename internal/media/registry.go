/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package media

import (
	"sync"

	"github.com/rs/zerolog"
)

// ListenerID identifies a registered listener.
type ListenerID uint64

type listener struct {
	id ListenerID
	fn func()
}

// Registry designates the single current element. Listeners are called with no
// payload after every state change and re-query Current themselves.
//
// Transitions are applied before SetCurrent or StopAll returns, on any
// goroutine. Element calls run with only the transition lock held, so Current
// never waits on an element. A transition issued while listeners are being
// notified gets its own notification round, run by the notifying call once the
// round in flight completes.
type Registry struct {
	src    Source
	logger zerolog.Logger

	transition sync.Mutex

	mu        sync.Mutex
	current   Element
	listeners []listener
	nextID    ListenerID
	notifying bool
	rounds    int
}

// NewRegistry creates a registry that panic-stops the elements listed by src.
func NewRegistry(src Source, logger zerolog.Logger) *Registry {
	return &Registry{
		src:    src,
		logger: logger.With().Str("component", "registry").Logger(),
	}
}

// Current returns the current element or nil.
func (r *Registry) Current() Element {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// SetCurrent pauses and rewinds the previous current element, adopts el and
// notifies listeners. Setting the element that is already current is a no-op.
// A nil el clears the current element.
func (r *Registry) SetCurrent(el Element) {
	r.transition.Lock()
	r.mu.Lock()
	prev := r.current
	r.mu.Unlock()
	if el == prev {
		r.transition.Unlock()
		return
	}
	if prev != nil {
		r.attempt(prev, "pause", prev.Pause)
		r.attempt(prev, "rewind", func() error { return prev.Seek(0) })
	}
	r.mu.Lock()
	r.current = el
	r.mu.Unlock()
	r.transition.Unlock()

	r.logger.Debug().Str("element", elementID(el)).Msg("current changed")
	r.notify()
}

// StopAll force-stops every element in the document, tracked or not, then
// clears the current element and notifies listeners. It never panics and a
// failure on one element does not keep the others playing.
func (r *Registry) StopAll() {
	r.transition.Lock()
	r.mu.Lock()
	current := r.current
	r.mu.Unlock()
	r.stopEverything(current)
	r.mu.Lock()
	r.current = nil
	r.mu.Unlock()
	r.transition.Unlock()

	r.notify()
}

// AddListener registers fn and returns its id.
func (r *Registry) AddListener(fn func()) ListenerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.listeners = append(r.listeners, listener{id: r.nextID, fn: fn})
	return r.nextID
}

// RemoveListener unregisters id. Unknown ids are ignored.
func (r *Registry) RemoveListener(id ListenerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, l := range r.listeners {
		if l.id == id {
			r.listeners = append(r.listeners[:i:i], r.listeners[i+1:]...)
			return
		}
	}
}

// Subscribe registers fn and returns a disposer. Calling the disposer more
// than once is harmless.
func (r *Registry) Subscribe(fn func()) (dispose func()) {
	id := r.AddListener(fn)
	var once sync.Once
	return func() {
		once.Do(func() { r.RemoveListener(id) })
	}
}

// Close panic-stops the document and drops every listener.
func (r *Registry) Close() {
	r.StopAll()
	r.mu.Lock()
	r.listeners = nil
	r.mu.Unlock()
}

// notify runs one notification round, or queues it behind the round in flight.
func (r *Registry) notify() {
	r.mu.Lock()
	if r.notifying {
		r.rounds++
		r.mu.Unlock()
		return
	}
	r.notifying = true

	for {
		notify := make([]listener, len(r.listeners))
		copy(notify, r.listeners)
		r.mu.Unlock()

		for _, l := range notify {
			r.call(l)
		}

		r.mu.Lock()
		if r.rounds == 0 {
			r.notifying = false
			r.mu.Unlock()
			return
		}
		r.rounds--
	}
}

func (r *Registry) stopEverything(current Element) {
	var elements []Element
	if r.src != nil {
		func() {
			defer func() {
				if p := recover(); p != nil {
					r.logger.Error().Interface("panic", p).Msg("enumerate elements")
				}
			}()
			elements = r.src.Elements()
		}()
	}
	for _, el := range elements {
		r.stopElement(el)
		if r.src != nil {
			r.attempt(el, "remove", func() error { return r.src.Remove(el) })
		}
	}
	// A current element already unmounted by its widget is still silenced.
	if current != nil && !contains(elements, current) {
		r.stopElement(current)
	}
	r.logger.Info().Int("elements", len(elements)).Msg("stopped all media")
}

func (r *Registry) stopElement(el Element) {
	r.attempt(el, "pause", el.Pause)
	r.attempt(el, "rewind", func() error { return el.Seek(0) })
	r.attempt(el, "detach", el.Detach)
	r.attempt(el, "reload", el.Reload)
}

// attempt runs one step of an element's stop sequence. Errors and panics are
// logged and swallowed.
func (r *Registry) attempt(el Element, step string, fn func() error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn().Str("element", elementID(el)).Str("step", step).
				Interface("panic", p).Msg("media step panicked")
		}
	}()
	if err := fn(); err != nil {
		r.logger.Warn().Err(err).Str("element", elementID(el)).Str("step", step).
			Msg("media step failed")
	}
}

func (r *Registry) call(l listener) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error().Uint64("listener", uint64(l.id)).Interface("panic", p).
				Msg("listener panicked")
		}
	}()
	l.fn()
}

func contains(elements []Element, el Element) bool {
	for _, e := range elements {
		if e == el {
			return true
		}
	}
	return false
}

func elementID(el Element) (id string) {
	if el == nil {
		return "<none>"
	}
	defer func() {
		if recover() != nil {
			id = "<unknown>"
		}
	}()
	return el.ID()
}
