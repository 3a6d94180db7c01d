// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes the JSON Lines chat response stream.
package stream

import (
	"context"
	"errors"
	"io"
)

// readBufferSize is the size of the read buffer for the response body.
const readBufferSize = 4096

// Handler receives each parsed chunk in arrival order. Returning an error
// stops the stream; no further chunks are delivered.
type Handler func(*Chunk) error

// =============================================================================
// STREAM READER
// =============================================================================

// Reader consumes a response body line by line, yielding parsed chunks.
// It suspends awaiting each network read, so observers see intermediate
// progress between lines.
type Reader struct {
	r        io.Reader
	splitter LineSplitter
}

// NewReader creates a stream reader over a response body.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Process reads the stream until end-of-stream, the first terminal chunk, or
// context cancellation, calling handler for each parsed chunk.
//
// An error chunk surfaces as a *StreamError and a malformed line as a
// *ProtocolError; in both cases no later lines are processed, even when more
// bytes are already buffered. On cancellation, processing stops at the last
// fully-parsed line. An empty body yields no chunks and a nil error.
func (r *Reader) Process(ctx context.Context, handler Handler) error {
	buf := make([]byte, readBufferSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.r.Read(buf)
		if n > 0 {
			if herr := r.handleLines(ctx, r.splitter.Push(buf[:n]), handler); herr != nil {
				return herr
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				// A trailing line without a final '\n' still counts.
				if line, ok := r.splitter.Flush(); ok {
					return r.handleLines(ctx, []string{line}, handler)
				}
				return nil
			}
			return err
		}
	}
}

func (r *Reader) handleLines(ctx context.Context, lines []string, handler Handler) error {
	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk, err := ParseLine(line)
		if err != nil {
			return err
		}
		if chunk == nil {
			continue
		}
		if err := handler(chunk); err != nil {
			return err
		}
	}
	return nil
}
