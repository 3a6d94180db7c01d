// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the persistence collaborator for chatcore.
package storage

import (
	"os"
	"path/filepath"

	"github.com/jeranaias/chatcore/internal/util"
)

// =============================================================================
// FILE-BACKED KV
// =============================================================================

// FileKV stores each named value as one file under a base directory.
// Writes go through an atomic tmp+fsync+rename sequence, so a value is
// either the previous snapshot or the new one, never a torn write.
type FileKV struct {
	// BaseDir is the directory holding one file per key.
	BaseDir string
}

// NewFileKV creates a file-backed store rooted at baseDir.
func NewFileKV(baseDir string) (*FileKV, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &FileKV{BaseDir: baseDir}, nil
}

// Get returns the value stored under name.
func (s *FileKV) Get(name string) (string, error) {
	if !validKey(name) {
		return "", ErrInvalidKey
	}
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrKeyNotFound
		}
		return "", err
	}
	return string(data), nil
}

// Set durably stores value under name.
func (s *FileKV) Set(name, value string) error {
	if !validKey(name) {
		return ErrInvalidKey
	}
	return util.AtomicWriteFile(s.path(name), []byte(value), 0644)
}

// Delete removes the value stored under name. Deleting an absent key is
// not an error.
func (s *FileKV) Delete(name string) error {
	if !validKey(name) {
		return ErrInvalidKey
	}
	err := os.Remove(s.path(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *FileKV) path(name string) string {
	return filepath.Join(s.BaseDir, name)
}
