/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package media

import (
	"fmt"
	"sync"
)

// Document is the live collection of mounted media elements.
type Document struct {
	mu       sync.Mutex
	elements []Element
}

func NewDocument() *Document {
	return &Document{}
}

func (d *Document) Mount(el Element) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.elements {
		if e.ID() == el.ID() {
			return fmt.Errorf("mount %s: %w", el.ID(), ErrDuplicateElement)
		}
	}
	d.elements = append(d.elements, el)
	return nil
}

func (d *Document) Unmount(el Element) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, e := range d.elements {
		if e == el {
			d.elements = append(d.elements[:i], d.elements[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("unmount %s: %w", el.ID(), ErrNotMounted)
}

// Remove is Unmount under the Source contract.
func (d *Document) Remove(el Element) error {
	return d.Unmount(el)
}

func (d *Document) Lookup(id string) (Element, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.elements {
		if e.ID() == id {
			return e, true
		}
	}
	return nil, false
}

// Elements returns a fresh snapshot in mount order.
func (d *Document) Elements() []Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Element, len(d.elements))
	copy(out, d.elements)
	return out
}

func (d *Document) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.elements)
}
