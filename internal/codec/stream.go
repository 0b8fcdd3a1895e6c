/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/faiface/beep"
	"github.com/hraban/opus"

	"hdxmeter/internal/security"
	"hdxmeter/pkg/spec"
)

// maxFrameSamples is the longest opus frame (120ms) per channel.
const maxFrameSamples = spec.SampleRate / 1000 * 120

// Stream lazily decodes an .hdxo stream. Frames are indexed up front so the
// stream can seek; every frame is assumed to hold 20ms.
type Stream struct {
	rc     io.ReadSeekCloser
	sealer *security.Sealer
	dec    *opus.Decoder

	index   []int64
	frame   int
	pos     int
	pcm     []int16
	block   [][2]float64
	buffer  [][2]float64
	payload []byte
	err     error
}

// Decode reads the header of rc and indexes its frames. key is required when
// the stream is sealed and ignored otherwise.
func Decode(rc io.ReadSeekCloser, key []byte) (*Stream, beep.Format, error) {
	format := beep.Format{SampleRate: spec.SampleRate, NumChannels: spec.Channels, Precision: 2}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(rc, header); err != nil {
		return nil, format, fmt.Errorf("read header: %w", ErrBadMagic)
	}
	if string(header[:len(spec.FrameMagicV1)]) != spec.FrameMagicV1 {
		return nil, format, ErrBadMagic
	}

	s := &Stream{
		rc:      rc,
		pcm:     make([]int16, maxFrameSamples*spec.Channels),
		block:   make([][2]float64, maxFrameSamples),
		payload: make([]byte, spec.MaxFrameLen),
	}
	if header[headerLen-1]&spec.FrameFlagSealed != 0 {
		if key == nil {
			return nil, format, ErrKeyRequired
		}
		sealer, err := security.NewSealer(key)
		if err != nil {
			return nil, format, err
		}
		s.sealer = sealer
	}
	if err := s.buildIndex(); err != nil {
		return nil, format, err
	}
	if err := s.Seek(0); err != nil {
		return nil, format, err
	}
	return s, format, nil
}

func (s *Stream) buildIndex() error {
	end, err := s.rc.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("index frames: %w", err)
	}
	offset := int64(headerLen)
	var size [2]byte
	for offset+2 <= end {
		if _, err := s.rc.Seek(offset, io.SeekStart); err != nil {
			return fmt.Errorf("index frames: %w", err)
		}
		if _, err := io.ReadFull(s.rc, size[:]); err != nil {
			return fmt.Errorf("index frames: %w", err)
		}
		n := int64(binary.BigEndian.Uint16(size[:]))
		if n > spec.MaxFrameLen {
			return fmt.Errorf("frame %d: %d bytes: %w", len(s.index), n, ErrFrameTooLarge)
		}
		if offset+2+n > end {
			// Truncated tail, usually an interrupted write.
			break
		}
		s.index = append(s.index, offset)
		offset += 2 + n
	}
	return nil
}

func (s *Stream) Stream(samples [][2]float64) (int, bool) {
	filled := 0
	for filled < len(samples) {
		if len(s.buffer) == 0 {
			if s.err != nil || s.frame >= len(s.index) {
				break
			}
			if err := s.decodeNext(); err != nil {
				s.err = err
				break
			}
			continue
		}
		n := copy(samples[filled:], s.buffer)
		s.buffer = s.buffer[n:]
		filled += n
		s.pos += n
	}
	return filled, filled > 0
}

func (s *Stream) decodeNext() error {
	var sz uint16
	if err := binary.Read(s.rc, binary.BigEndian, &sz); err != nil {
		return fmt.Errorf("frame %d: %w", s.frame, err)
	}
	if int(sz) > len(s.payload) {
		return fmt.Errorf("frame %d: %w", s.frame, ErrFrameTooLarge)
	}
	payload := s.payload[:sz]
	if _, err := io.ReadFull(s.rc, payload); err != nil {
		return fmt.Errorf("frame %d: %w", s.frame, err)
	}
	if s.sealer != nil {
		opened, err := s.sealer.Open(payload)
		if err != nil {
			return fmt.Errorf("frame %d: open: %w", s.frame, err)
		}
		payload = opened
	}

	n, err := s.dec.Decode(payload, s.pcm)
	if err != nil {
		return fmt.Errorf("frame %d: decode: %w", s.frame, err)
	}
	out := s.block[:n]
	for i := range out {
		out[i] = [2]float64{
			float64(s.pcm[i*2]) / 32768.0,
			float64(s.pcm[i*2+1]) / 32768.0,
		}
	}
	s.buffer = out
	s.frame++
	return nil
}

func (s *Stream) Err() error { return s.err }

// Len is the stream length in samples per channel.
func (s *Stream) Len() int { return len(s.index) * spec.FrameSamples }

func (s *Stream) Position() int { return s.pos }

// Seek moves to sample p. The decoder restarts at the enclosing frame.
func (s *Stream) Seek(p int) error {
	if p < 0 || p > s.Len() {
		return fmt.Errorf("seek %d: out of range [0, %d]", p, s.Len())
	}
	dec, err := opus.NewDecoder(spec.SampleRate, spec.Channels)
	if err != nil {
		return fmt.Errorf("opus decoder: %w", err)
	}
	s.dec = dec
	s.buffer = nil
	s.err = nil
	s.frame = p / spec.FrameSamples
	s.pos = s.frame * spec.FrameSamples
	if s.frame >= len(s.index) {
		s.pos = p
		return nil
	}
	if _, err := s.rc.Seek(s.index[s.frame], io.SeekStart); err != nil {
		return err
	}

	if skip := p - s.pos; skip > 0 {
		if err := s.decodeNext(); err != nil {
			return err
		}
		skip = min(skip, len(s.buffer))
		s.buffer = s.buffer[skip:]
		s.pos += skip
	}
	return nil
}

func (s *Stream) Close() error {
	if s.rc == nil {
		return errors.New("codec: stream already closed")
	}
	err := s.rc.Close()
	s.rc = nil
	return err
}
