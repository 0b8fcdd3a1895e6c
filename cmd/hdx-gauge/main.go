/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/rs/zerolog"

	"hdxmeter/internal/app"
	"hdxmeter/internal/audio"
	"hdxmeter/internal/config"
	"hdxmeter/internal/logging"
)

const (
	version_major = 1
	version_minor = 0
	app_name      = "HDX-Gauge"
)

var digitKeys = []ebiten.Key{
	ebiten.KeyDigit1, ebiten.KeyDigit2, ebiten.KeyDigit3,
	ebiten.KeyDigit4, ebiten.KeyDigit5, ebiten.KeyDigit6,
	ebiten.KeyDigit7, ebiten.KeyDigit8, ebiten.KeyDigit9,
}

// frameSurface keeps a copy of the last gauge frame for the window.
type frameSurface struct {
	mu  sync.Mutex
	pix []byte
}

func (s *frameSurface) Present(img *image.RGBA) error {
	s.mu.Lock()
	s.pix = append(s.pix[:0], img.Pix...)
	s.mu.Unlock()
	return nil
}

type game struct {
	app     *app.App
	surface *frameSurface
	ctx     context.Context
	logger  zerolog.Logger
}

func (g *game) Update() error {
	if ebiten.IsWindowBeingClosed() {
		g.app.Close()
		return ebiten.Termination
	}
	for i, k := range digitKeys {
		if inpututil.IsKeyJustPressed(k) {
			if _, err := g.app.PlayNth(g.ctx, i); err != nil {
				g.logger.Warn().Err(err).Int("entry", i+1).Msg("play")
			}
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		if err := g.app.TogglePause(g.ctx); err != nil && !errors.Is(err, app.ErrNoCurrent) {
			g.logger.Warn().Err(err).Msg("toggle pause")
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		g.app.Registry.StopAll()
	}
	g.app.Renderer.Frame()
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	g.surface.mu.Lock()
	defer g.surface.mu.Unlock()
	if len(g.surface.pix) == 4*g.app.Config.Width*g.app.Config.Height {
		screen.WritePixels(g.surface.pix)
	}
}

func (g *game) Layout(int, int) (int, int) {
	return g.app.Config.Width, g.app.Config.Height
}

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

	surface := &frameSurface{}
	a := app.New(cfg, audio.Speaker, surface, logger)
	defer a.Close()
	if err := a.LoadScene(); err != nil {
		logger.Error().Err(err).Str("scene", cfg.Scene).Msg("load scene")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Watch(ctx)

	g := &game{app: a, surface: surface, ctx: ctx, logger: logging.Component(logger, "window")}
	ebiten.SetTPS(cfg.FPS)
	ebiten.SetWindowSize(cfg.Width*2, cfg.Height*2)
	ebiten.SetWindowTitle(fmt.Sprintf("%s V.%d.%d", app_name, version_major, version_minor))
	ebiten.SetWindowClosingHandled(true)
	if err := ebiten.RunGame(g); err != nil {
		logger.Fatal().Err(err).Msg("window")
	}
}
