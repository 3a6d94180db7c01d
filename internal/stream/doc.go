// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes the JSON Lines chat response stream.
//
// The server answers a chat request with a sequence of newline-delimited
// JSON objects over a single response body. This package turns the
// arbitrarily-fragmented byte stream into discrete protocol chunks and
// classifies terminal conditions.
//
// # Key Types
//
//   - LineSplitter: reassembles complete lines from byte fragments
//   - Chunk: one parsed unit of the streaming response
//   - Reader: line-by-line consumption of a response body with cancellation
//   - StreamError: structured error signaled by the server mid-stream
//   - ProtocolError: a line that violates the wire contract
//
// # Usage
//
//	reader := stream.NewReader(resp.Body)
//	err := reader.Process(ctx, func(chunk *stream.Chunk) error {
//	    return store.Apply(chunk)
//	})
//
// Process stops at the first error chunk; no later lines are ever handed to
// the callback.
package stream
