// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes the JSON Lines chat response stream.
package stream

import "bytes"

// =============================================================================
// LINE SPLITTER
// =============================================================================

// LineSplitter turns successive byte fragments into complete text lines.
//
// Fragments may split a line, or even a multi-byte UTF-8 character, at any
// byte boundary. Bytes are buffered until a '\n' arrives, so characters are
// never decoded across a fragment boundary and reassemble intact. The
// trailing partial line, if any, is surfaced by Flush at end-of-stream.
type LineSplitter struct {
	buf []byte
}

// Push appends a fragment and returns all lines completed by it, in order.
// The '\n' delimiter is not part of the returned lines.
func (s *LineSplitter) Push(p []byte) []string {
	s.buf = append(s.buf, p...)

	var lines []string
	for {
		i := bytes.IndexByte(s.buf, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(s.buf[:i]))
		s.buf = s.buf[i+1:]
	}
	return lines
}

// Flush returns the buffered partial line (the bytes after the last '\n')
// and clears the buffer. The second return is false when nothing remains.
func (s *LineSplitter) Flush() (string, bool) {
	if len(s.buf) == 0 {
		return "", false
	}
	line := string(s.buf)
	s.buf = nil
	return line, true
}

// Pending reports whether an incomplete line is buffered.
func (s *LineSplitter) Pending() bool {
	return len(s.buf) > 0
}
