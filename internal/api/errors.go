// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the chat service.
package api

import "fmt"

// TransportError indicates the request could not be completed at all:
// network failure, server unreachable, or an unreadable response. It is
// never retried automatically.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError is a request-level failure: the server answered with a non-2xx
// status and a {detail} body. The detail is preserved so callers can render
// server-specific messages.
type APIError struct {
	Status int
	Detail any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %v", e.Status, e.Detail)
}
