/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */
package main

import (
	"net"
	"sync"

	"github.com/rs/zerolog"

	"hdxmeter/internal/app"
	"hdxmeter/internal/logging"
)

// daemon is the control surface of one running app. The first connection to
// issue a control command owns playback until it disconnects.
type daemon struct {
	app    *app.App
	logger zerolog.Logger

	controlMu    sync.Mutex
	controlOwner net.Conn

	sinkMu    sync.Mutex
	eventSink func(string)

	dispose func()
}

func newDaemon(a *app.App, logger zerolog.Logger) *daemon {
	d := &daemon{
		app:    a,
		logger: logging.Component(logger, "ipc"),
	}
	d.dispose = a.Registry.Subscribe(func() { d.emitEvent("TRACK_CHANGED") })
	return d
}

func (d *daemon) setSink(fn func(string)) {
	d.sinkMu.Lock()
	d.eventSink = fn
	d.sinkMu.Unlock()
}

func (d *daemon) sink() func(string) {
	d.sinkMu.Lock()
	defer d.sinkMu.Unlock()
	return d.eventSink
}

// close stops pushing registry events.
func (d *daemon) close() {
	d.dispose()
	d.setSink(nil)
}
