// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the persistence collaborator for chatcore.
package storage

import "errors"

var (
	// ErrKeyNotFound is returned when a named value does not exist.
	// Use errors.Is(err, ErrKeyNotFound) to check for this error.
	ErrKeyNotFound = errors.New("key not found")

	// ErrInvalidKey is returned for empty or path-unsafe key names.
	ErrInvalidKey = errors.New("invalid key name")
)

// KV is the persistence contract: get/set string storage keyed by name.
//
// Set must be durable before it returns; the conversation store relies on
// that to guarantee no mutation is lost on abrupt termination.
type KV interface {
	Get(name string) (string, error)
	Set(name, value string) error
	Delete(name string) error
}

// validKey rejects names that would escape the backing namespace.
func validKey(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return name[0] != '.'
}
