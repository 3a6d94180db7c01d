// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the persistence collaborator for chatcore.
//
// The client keeps its canonical conversation collection and its
// session flags in a simple named-value store: load once at startup,
// mutate in memory, write back synchronously on every mutation. This
// package supplies that store.
//
// # Key Types
//
//   - KV: the get/set string storage contract
//   - FileKV: one file per key with atomic, fsynced writes
//   - SQLiteKV: a kv table in a SQLite database (modernc.org/sqlite)
//   - EncryptedKV: AES-256-GCM at-rest encryption over any KV
//
// # Usage
//
//	kv, err := storage.NewFileKV(dir)
//	err = kv.Set("conversations", snapshot)
//	snapshot, err = kv.Get("conversations")
//
// Writes are durable before Set returns; a crash immediately after a
// mutation never loses that mutation.
package storage
