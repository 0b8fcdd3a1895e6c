/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package spec

import "math"

const (
	// === IDENTITY & VERSIONING ===
	VersionMajor = 1
	VersionMinor = 0
	ServerName   = "HDX-Meterd"

	// === MAGIC NUMBERS ===
	// FrameMagicV1 opens every .hdxo stream (length-prefixed opus frames).
	FrameMagicV1 = "HDXO01"
	// FrameFlagSealed marks a stream whose frames are AES-GCM sealed.
	FrameFlagSealed = 0x01

	// === SECURITY & ENGINE SPECS ===
	Salt         = "SALT"
	SampleRate   = 48000
	Channels     = 2
	FrameSize    = 20                            // ms per opus frame
	FrameSamples = SampleRate / 1000 * FrameSize // samples per channel per frame
	MaxFrameLen  = 4000                          // upper bound of one encoded (and sealed) frame
	BufferMillis = 100

	// === ANALYSER DEFAULTS ===
	// 256-point window, 0.8 smoothing, bins mapped from -100..-30 dB onto 0..255.
	FFTSize     = 256
	Smoothing   = 0.8
	MinDecibels = -100.0
	MaxDecibels = -30.0
	// LevelReference is the byte-bin mean that reads as a full gauge. Tunable,
	// not a calibrated unit.
	LevelReference = 128.0

	// === GAUGE ===
	FramesPerSecond = 60
	GaugeWidth      = 240
	GaugeHeight     = 150
	ZoneSafe        = 0.60 // upper bound of the low/safe zone
	ZoneCaution     = 0.85 // upper bound of the mid/caution zone
)

// Upper semicircle in screen coordinates (y grows downward).
const (
	GaugeStartAngle = math.Pi
	GaugeEndAngle   = 2 * math.Pi
)
