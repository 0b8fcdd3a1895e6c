/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"context"
	"time"

	"hdxmeter/internal/media"
)

type ender interface {
	Ended() bool
}

// engineLoop watches the current element and pushes an ENDED event once when
// it plays out.
func (d *daemon) engineLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	var last media.Element
	reported := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		el := d.app.Registry.Current()
		if el != last {
			last, reported = el, false
		}
		e, ok := el.(ender)
		if !ok {
			continue
		}
		switch ended := e.Ended(); {
		case ended && !reported:
			reported = true
			d.logger.Debug().Str("element", el.ID()).Msg("ended")
			d.emitEvent("ENDED")
		case !ended:
			reported = false
		}
	}
}
