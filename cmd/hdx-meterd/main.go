/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"hdxmeter/internal/app"
	"hdxmeter/internal/audio"
	"hdxmeter/internal/config"
	"hdxmeter/internal/logging"
	"hdxmeter/pkg/spec"
)

func main() {
	cfg, err := config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	a := app.New(cfg, audio.Speaker, nil, logger)
	defer a.Close()
	if err := a.LoadScene(); err != nil {
		logger.Error().Err(err).Str("scene", cfg.Scene).Msg("load scene")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Start(ctx)
	d := newDaemon(a, logger)
	defer d.close()
	go d.engineLoop(ctx, cfg.FrameInterval())

	logger.Info().
		Str("socket", cfg.Socket).
		Int("elements", a.Document.Len()).
		Msgf("%s V.%d.%d ready", spec.ServerName, spec.VersionMajor, spec.VersionMinor)
	if err := d.startIPC(ctx, cfg.Socket); err != nil {
		logger.Error().Err(err).Msg("ipc")
	}
}
