/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package config loads runtime settings from the environment and lets command
// line flags override them.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable shared by the HDX meter commands.
type Config struct {
	Socket string `env:"HDX_METER_SOCKET" envDefault:"/tmp/hdx-meterd.sock"`
	Scene  string `env:"HDX_METER_SCENE" envDefault:"scene.yaml"`
	Watch  bool   `env:"HDX_METER_WATCH" envDefault:"true"`
	Key    string `env:"HDX_METER_KEY"`

	SampleRate int           `env:"HDX_METER_SAMPLE_RATE" envDefault:"48000"`
	Buffer     time.Duration `env:"HDX_METER_BUFFER" envDefault:"100ms"`

	FFTSize     int     `env:"HDX_METER_FFT_SIZE" envDefault:"256"`
	Smoothing   float64 `env:"HDX_METER_SMOOTHING" envDefault:"0.8"`
	MinDecibels float64 `env:"HDX_METER_MIN_DB" envDefault:"-100"`
	MaxDecibels float64 `env:"HDX_METER_MAX_DB" envDefault:"-30"`
	Reference   float64 `env:"HDX_METER_REFERENCE" envDefault:"128"`

	FPS    int `env:"HDX_METER_FPS" envDefault:"60"`
	Width  int `env:"HDX_METER_WIDTH" envDefault:"240"`
	Height int `env:"HDX_METER_HEIGHT" envDefault:"150"`

	LogLevel  string `env:"HDX_METER_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"HDX_METER_LOG_FORMAT" envDefault:"console"`
}

// Parse loads defaults from the environment and then applies flags from args.
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	if fs == nil {
		return Config{}, errors.New("flag parser is required")
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.Socket, "socket", cfg.Socket, "control socket path")
	fs.StringVar(&cfg.Scene, "scene", cfg.Scene, "scene file listing mounted media")
	fs.BoolVar(&cfg.Watch, "watch", cfg.Watch, "reload the scene file when it changes")
	fs.StringVar(&cfg.Key, "key", cfg.Key, "passphrase for sealed .hdxo media")
	fs.IntVar(&cfg.SampleRate, "rate", cfg.SampleRate, "output sample rate")
	fs.DurationVar(&cfg.Buffer, "buffer", cfg.Buffer, "output buffer length")
	fs.IntVar(&cfg.FFTSize, "fft", cfg.FFTSize, "analyser window size (power of two)")
	fs.Float64Var(&cfg.Smoothing, "smoothing", cfg.Smoothing, "analyser smoothing constant in [0,1]")
	fs.Float64Var(&cfg.Reference, "reference", cfg.Reference, "bin mean that reads as a full gauge")
	fs.IntVar(&cfg.FPS, "fps", cfg.FPS, "gauge frames per second")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: console or json")

	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the analyser or the output device cannot use.
func (c Config) Validate() error {
	if c.FFTSize < 32 || c.FFTSize > 32768 || c.FFTSize&(c.FFTSize-1) != 0 {
		return fmt.Errorf("fft size %d: must be a power of two in [32, 32768]", c.FFTSize)
	}
	if c.Smoothing < 0 || c.Smoothing > 1 {
		return fmt.Errorf("smoothing %v: must be in [0, 1]", c.Smoothing)
	}
	if c.MinDecibels >= c.MaxDecibels {
		return fmt.Errorf("decibel range [%v, %v] is empty", c.MinDecibels, c.MaxDecibels)
	}
	if c.Reference <= 0 {
		return fmt.Errorf("reference %v: must be positive", c.Reference)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate %d: must be positive", c.SampleRate)
	}
	if c.Buffer <= 0 {
		return fmt.Errorf("buffer %v: must be positive", c.Buffer)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps %d: must be positive", c.FPS)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("gauge size %dx%d: must be positive", c.Width, c.Height)
	}
	return nil
}

// FrameInterval is the tick period of the gauge loop.
func (c Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FPS)
}
