// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat owns the canonical conversation state and reconciles the
// streaming protocol into it.
//
// The Store holds the conversation collection and the active conversation
// reference; nothing else mutates conversation state. A Send is one
// streaming exchange against a conversation, moving through
// Idle → Sending → Streaming → {Completed, Failed} and folding each
// protocol chunk into local state in a fixed order: conversation id,
// confirmed user message, content delta, assistant finalization.
//
// Every mutation is written back to persistent storage before it returns.
// Listings are always recomputed from the canonical collection, sorted by
// most recent update; sort order is never stored.
//
// # Usage
//
//	store, err := chat.NewStore(kv)
//	send, err := store.BeginSend("What are the opening hours?")
//	send.StreamOpened()
//	err = send.Apply(chunk) // per streamed chunk
//	send.Complete()
package chat
