/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"hdxmeter/pkg/spec"
)

func (d *daemon) isOwner(c net.Conn) bool {
	d.controlMu.Lock()
	defer d.controlMu.Unlock()
	return d.controlOwner == c
}

func (d *daemon) claimOwner(c net.Conn) bool {
	d.controlMu.Lock()
	defer d.controlMu.Unlock()
	if d.controlOwner == nil {
		d.controlOwner = c
		return true
	}
	return d.controlOwner == c
}

// releaseOwner drops control held by c and stops what it was playing.
func (d *daemon) releaseOwner(c net.Conn) {
	d.controlMu.Lock()
	owned := d.controlOwner == c
	if owned {
		d.controlOwner = nil
	}
	d.controlMu.Unlock()
	if !owned {
		return
	}
	d.setSink(nil)
	d.cmdStop()
	d.logger.Info().Msg("control released")
}

// startIPC serves the control socket at path until ctx ends.
func (d *daemon) startIPC(ctx context.Context, path string) error {
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("listen %s: %w", path, err)
	}
	defer os.Remove(path)
	return d.serve(ctx, ln)
}

func (d *daemon) serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			d.logger.Warn().Err(err).Msg("accept")
			continue
		}
		go d.handleConn(c)
	}
}

func argFloat(parts []string, idx int) (float64, bool) {
	if len(parts) <= idx {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(parts[idx]), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func argString(parts []string, idx int) (string, bool) {
	if len(parts) <= idx {
		return "", false
	}
	v := strings.TrimSpace(parts[idx])
	return v, v != ""
}

func writeLine(c net.Conn, msg string) {
	c.Write([]byte(msg + "\n"))
}

func writeJSON(c net.Conn, v interface{}) {
	j, _ := json.Marshal(v)
	c.Write(append(j, '\n'))
}

func (d *daemon) handleConn(c net.Conn) {
	defer func() {
		d.releaseOwner(c)
		c.Close()
	}()

	sc := bufio.NewScanner(c)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		// verb plus one raw argument, which may contain spaces
		parts := strings.SplitN(line, " ", 2)
		cmd := strings.ToUpper(parts[0])

		switch cmd {
		case "ABOUT":
			writeLine(c, fmt.Sprintf("%s V.%d.%d", spec.ServerName, spec.VersionMajor, spec.VersionMinor))
			continue

		case "PING":
			writeLine(c, "Pong")
			continue

		case "WHOAMI":
			if d.isOwner(c) {
				writeLine(c, "OWNER")
			} else {
				writeLine(c, "OBSERVER")
			}
			continue

		case "STATUS":
			writeJSON(c, d.app.Status())
			continue

		case "LIST":
			entries := d.app.Entries()
			if len(entries) == 0 {
				writeLine(c, "NO ELEMENT YET")
			} else {
				writeJSON(c, entries)
			}
			continue

		case "LEVEL":
			r := d.app.Renderer.Last()
			writeLine(c, fmt.Sprintf("%.3f %s", r.Level, r.Label))
			continue
		}

		if !d.claimOwner(c) {
			writeLine(c, "ERR CONTROL_LOCKED")
			continue
		}
		d.setSink(func(msg string) {
			if _, err := c.Write([]byte(msg + "\n")); err != nil {
				go d.releaseOwner(c)
			}
		})

		switch cmd {
		case "PLAY":
			id, ok := argString(parts, 1)
			if !ok {
				writeLine(c, "ERR ARG")
				continue
			}
			writeLine(c, d.cmdPlay(id))

		case "PAUSE":
			writeLine(c, d.cmdPause())

		case "RESUME":
			writeLine(c, d.cmdResume())

		case "SEEK":
			secs, ok := argFloat(parts, 1)
			if !ok || secs < 0 {
				writeLine(c, "ERR ARG")
				continue
			}
			writeLine(c, d.cmdSeek(time.Duration(secs*float64(time.Second))))

		case "GAIN":
			gain, ok := argFloat(parts, 1)
			if !ok {
				writeLine(c, "ERR ARG")
				continue
			}
			writeLine(c, d.cmdGain(gain))

		case "STOP":
			writeLine(c, d.cmdStop())

		case "STOP-ALL":
			writeLine(c, d.cmdStopAll())

		case "SNAPSHOT":
			path, ok := argString(parts, 1)
			if !ok {
				writeLine(c, "ERR ARG")
				continue
			}
			writeLine(c, d.cmdSnapshot(path))

		case "RELOAD":
			writeLine(c, d.cmdReload())

		default:
			writeLine(c, "ERR UNKNOWN")
		}
	}
}
