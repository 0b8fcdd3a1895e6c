/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package codec reads and writes .hdxo streams: a short header followed by
// opus frames, each prefixed with its big-endian uint16 length and optionally
// AES-GCM sealed.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hraban/opus"

	"hdxmeter/internal/security"
	"hdxmeter/pkg/spec"
)

var (
	ErrFrameTooLarge = errors.New("codec: frame exceeds maximum length")
	ErrBadMagic      = errors.New("codec: not an hdxo stream")
	ErrKeyRequired   = errors.New("codec: sealed stream needs a key")
)

const headerLen = len(spec.FrameMagicV1) + 1

// samplesPerFrame is the interleaved int16 count of one 20ms stereo frame.
const samplesPerFrame = spec.FrameSamples * spec.Channels

// Writer encodes 48kHz stereo PCM into an .hdxo stream.
type Writer struct {
	w      io.Writer
	enc    *opus.Encoder
	sealer *security.Sealer
	buf    []byte
	frames int
}

// NewWriter writes the stream header. A non-nil key seals every frame.
func NewWriter(w io.Writer, key []byte) (*Writer, error) {
	enc, err := opus.NewEncoder(spec.SampleRate, spec.Channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("opus encoder: %w", err)
	}
	wr := &Writer{w: w, enc: enc, buf: make([]byte, 1500)}

	var flags byte
	if key != nil {
		if wr.sealer, err = security.NewSealer(key); err != nil {
			return nil, err
		}
		flags |= spec.FrameFlagSealed
	}
	header := append([]byte(spec.FrameMagicV1), flags)
	if _, err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return wr, nil
}

// WriteFrame encodes exactly one frame of interleaved PCM. Short input is
// padded with silence.
func (w *Writer) WriteFrame(pcm []int16) error {
	if len(pcm) > samplesPerFrame {
		return fmt.Errorf("write frame: %d samples, want at most %d", len(pcm), samplesPerFrame)
	}
	if len(pcm) < samplesPerFrame {
		chunk := make([]int16, samplesPerFrame)
		copy(chunk, pcm)
		pcm = chunk
	}
	n, err := w.enc.Encode(pcm, w.buf)
	if err != nil {
		return fmt.Errorf("opus encode: %w", err)
	}
	return w.WritePacket(w.buf[:n])
}

// WritePacket frames an already encoded opus packet.
func (w *Writer) WritePacket(packet []byte) error {
	payload := packet
	if w.sealer != nil {
		sealed, err := w.sealer.Seal(packet)
		if err != nil {
			return fmt.Errorf("seal frame: %w", err)
		}
		payload = sealed
	}
	if len(payload) > spec.MaxFrameLen {
		return fmt.Errorf("frame %d: %d bytes: %w", w.frames, len(payload), ErrFrameTooLarge)
	}

	var size [2]byte
	binary.BigEndian.PutUint16(size[:], uint16(len(payload)))
	if _, err := w.w.Write(size[:]); err != nil {
		return err
	}
	if _, err := w.w.Write(payload); err != nil {
		return err
	}
	w.frames++
	return nil
}

// Frames returns the number of frames written so far.
func (w *Writer) Frames() int { return w.frames }

// EncodePCM splits interleaved stereo PCM into 20ms frames and writes a
// complete stream. The last frame is padded with silence.
func EncodePCM(dst io.Writer, pcm []int16, key []byte) (frames int, err error) {
	w, err := NewWriter(dst, key)
	if err != nil {
		return 0, err
	}
	for i := 0; i < len(pcm); i += samplesPerFrame {
		end := min(i+samplesPerFrame, len(pcm))
		if err := w.WriteFrame(pcm[i:end]); err != nil {
			return w.Frames(), err
		}
	}
	return w.Frames(), nil
}
