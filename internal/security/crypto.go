/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"hdxmeter/pkg/spec"
)

var ErrShortFrame = errors.New("security: sealed frame shorter than nonce")

// DeriveKey menghasilkan kunci 32-byte dari password dan salt
func DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, 4096, 32, sha256.New)
}

// StreamKey derives the frame key of an .hdxo stream from a passphrase.
// An empty passphrase means the stream is not sealed.
func StreamKey(passphrase string) []byte {
	if passphrase == "" {
		return nil
	}
	return DeriveKey(passphrase, []byte(spec.Salt))
}

// Sealer seals and opens frames with AES-GCM. The nonce is prefixed to each
// sealed frame.
type Sealer struct {
	gcm cipher.AEAD
}

func NewSealer(key []byte) (*Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("frame cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("frame cipher: %w", err)
	}
	return &Sealer{gcm: gcm}, nil
}

// Overhead is the number of bytes sealing adds to a frame.
func (s *Sealer) Overhead() int {
	return s.gcm.NonceSize() + s.gcm.Overhead()
}

// Seal mengenkripsi data dengan nonce acak
func (s *Sealer) Seal(data []byte) ([]byte, error) {
	nonce := make([]byte, s.gcm.NonceSize(), s.gcm.NonceSize()+len(data)+s.gcm.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return s.gcm.Seal(nonce, nonce, data, nil), nil
}

func (s *Sealer) Open(data []byte) ([]byte, error) {
	n := s.gcm.NonceSize()
	if len(data) < n {
		return nil, ErrShortFrame
	}
	return s.gcm.Open(nil, data[:n], data[n:], nil)
}

// Encrypt and Decrypt are one-shot variants of Seal and Open.
func Encrypt(data []byte, key []byte) ([]byte, error) {
	s, err := NewSealer(key)
	if err != nil {
		return nil, err
	}
	return s.Seal(data)
}

func Decrypt(data []byte, key []byte) ([]byte, error) {
	s, err := NewSealer(key)
	if err != nil {
		return nil, err
	}
	return s.Open(data)
}
