// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the persistence collaborator for chatcore.
package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// EncryptedPrefix marks a stored value as encrypted
// (format: ENC:base64(salt|nonce|ciphertext)).
const EncryptedPrefix = "ENC:"

const (
	// saltSize is the size of the per-value key derivation salt.
	saltSize = 32

	// nonceSize is the AES-GCM nonce size (96 bits).
	nonceSize = 12

	// keySize is the AES-256 key size.
	keySize = 32

	// pbkdf2Iterations follows the OWASP recommendation for PBKDF2-SHA-256.
	pbkdf2Iterations = 600000
)

var (
	// ErrInvalidCiphertext indicates a stored value that is not in the
	// expected encrypted format.
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")

	// ErrDecryptionFailed indicates a wrong passphrase or tampered data.
	ErrDecryptionFailed = errors.New("decryption failed: authentication tag mismatch")

	// ErrEmptyPassphrase indicates encryption was requested without a passphrase.
	ErrEmptyPassphrase = errors.New("encryption passphrase is empty")
)

// =============================================================================
// ENCRYPTED KV
// =============================================================================

// EncryptedKV wraps another KV and encrypts every value at rest with
// AES-256-GCM, deriving the key from a passphrase via PBKDF2-SHA-256.
// Key names stay in the clear; they identify well-known slots, not secrets.
type EncryptedKV struct {
	inner      KV
	passphrase []byte
}

// NewEncryptedKV creates an encrypting wrapper around inner.
func NewEncryptedKV(inner KV, passphrase string) (*EncryptedKV, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	return &EncryptedKV{inner: inner, passphrase: []byte(passphrase)}, nil
}

// Get decrypts and returns the value stored under name.
func (s *EncryptedKV) Get(name string) (string, error) {
	stored, err := s.inner.Get(name)
	if err != nil {
		return "", err
	}
	return s.decrypt(stored)
}

// Set encrypts value and durably stores it under name.
func (s *EncryptedKV) Set(name, value string) error {
	sealed, err := s.encrypt(value)
	if err != nil {
		return err
	}
	return s.inner.Set(name, sealed)
}

// Delete removes the value stored under name.
func (s *EncryptedKV) Delete(name string) error {
	return s.inner.Delete(name)
}

func (s *EncryptedKV) encrypt(plaintext string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := s.aead(salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)

	blob := make([]byte, 0, saltSize+nonceSize+len(sealed))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, sealed...)

	return EncryptedPrefix + base64.StdEncoding.EncodeToString(blob), nil
}

func (s *EncryptedKV) decrypt(stored string) (string, error) {
	if !strings.HasPrefix(stored, EncryptedPrefix) {
		return "", ErrInvalidCiphertext
	}

	blob, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, EncryptedPrefix))
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	if len(blob) < saltSize+nonceSize {
		return "", ErrInvalidCiphertext
	}

	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]
	ciphertext := blob[saltSize+nonceSize:]

	gcm, err := s.aead(salt)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

func (s *EncryptedKV) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(s.passphrase, salt, pbkdf2Iterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
