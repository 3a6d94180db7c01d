// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes the JSON Lines chat response stream.
package stream

import "fmt"

// StreamError is a structured error the server signaled mid-stream through an
// error chunk. It carries the original status and detail payload so callers
// can render server-specific messages. Local state applied from chunks before
// the error is preserved.
type StreamError struct {
	Status int
	Detail map[string]any
}

func (e *StreamError) Error() string {
	if detail, ok := e.Detail["detail"]; ok {
		return fmt.Sprintf("stream error (status %d): %v", e.Status, detail)
	}
	return fmt.Sprintf("stream error (status %d)", e.Status)
}

// ProtocolError indicates a stream line that could not be parsed as a valid
// chunk. It is a contract violation rather than an application-level failure
// and is fatal for the stream that produced it.
type ProtocolError struct {
	Line string
	Err  error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("malformed stream line: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}
