/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */
package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"hdxmeter/internal/app"
	"hdxmeter/internal/media"
)

func (d *daemon) emitEvent(t string) {
	sink := d.sink()
	if sink == nil {
		return
	}
	st := d.app.Status()
	ev := map[string]interface{}{
		"type":        t,
		"current":     st.Current,
		"paused":      st.Paused,
		"position_ns": st.Position,
		"state":       st.State,
	}
	b, _ := json.Marshal(ev)
	sink("EVENT " + string(b))
}

// reply maps a command error to its protocol line.
func reply(err error, ok string) string {
	switch {
	case err == nil:
		return ok
	case errors.Is(err, media.ErrNotMounted):
		return "ERR NOT_FOUND"
	case errors.Is(err, app.ErrNoCurrent):
		return "ERR NO_CURRENT"
	default:
		return "ERR INTERNAL"
	}
}

func (d *daemon) cmdPlay(id string) string {
	_, err := d.app.Play(context.Background(), id)
	if err != nil {
		d.logger.Warn().Err(err).Str("element", id).Msg("play")
	}
	return reply(err, "Playing "+id)
}

func (d *daemon) cmdPause() string {
	err := d.app.Pause()
	if err == nil {
		d.emitEvent("STATUS")
	}
	return reply(err, "Paused")
}

func (d *daemon) cmdResume() string {
	err := d.app.Resume(context.Background())
	if err == nil {
		d.emitEvent("STATUS")
	}
	return reply(err, "Resume Playing")
}

func (d *daemon) cmdSeek(pos time.Duration) string {
	return reply(d.app.Seek(pos), "OK")
}

func (d *daemon) cmdGain(gain float64) string {
	return reply(d.app.SetGain(gain), "OK")
}

func (d *daemon) cmdStop() string {
	d.app.Stop()
	return "Stopped"
}

func (d *daemon) cmdStopAll() string {
	d.app.Registry.StopAll()
	return "Stopped All"
}

func (d *daemon) cmdSnapshot(path string) string {
	err := d.app.Snapshot(path)
	if err != nil {
		d.logger.Warn().Err(err).Str("path", path).Msg("snapshot")
	}
	return reply(err, "OK")
}

func (d *daemon) cmdReload() string {
	err := d.app.LoadScene()
	if err != nil {
		d.logger.Warn().Err(err).Msg("reload scene")
	}
	return reply(err, "Scene Loaded")
}
