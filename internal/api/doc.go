// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the chat service.
//
// The chat exchange is a POST whose response body is a stream of
// newline-delimited JSON chunks; everything else is plain JSON over
// request/response. Request-level failures (non-2xx with a {detail}
// body) surface as *APIError, connection failures as *TransportError,
// and mid-stream errors as *stream.StreamError.
//
// # Key Types
//
//   - Client: the HTTP client, with a separate streaming transport that
//     carries no overall timeout
//   - ChatRequest: the outgoing exchange, always carrying the entire
//     message history of the conversation
//
// # Usage
//
//	client, err := api.NewClient(api.Config{BaseURL: "https://chat.example.edu/api"})
//	err = client.Query(ctx, req, send.StreamOpened, func(chunk *stream.Chunk) error {
//	    return send.Apply(chunk)
//	})
package api
