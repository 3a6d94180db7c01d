// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides shared helper functions for the chatcore library.
//
// This package contains common helpers used throughout the library for
// string truncation and crash-safe file operations.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe string truncation with ellipsis
//   - TruncateWidth: Display-width aware truncation (CJK safe)
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//
// # Usage
//
//	// Truncate long strings safely for previews
//	preview := util.TruncateWidth(firstMessage, 80)
//
//	// Write snapshots atomically to prevent data loss
//	err := util.AtomicWriteFile(path, data, 0644)
package util
