// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// A Conversation is an append-only ordered sequence of Messages exchanged
// between one user and the assistant. Conversations have no id until the
// server assigns one on the first round-trip; Messages have no id until the
// server confirms them.
//
// # Key Types
//
//   - Conversation: id, rating, timestamps, and the ordered message list
//   - Message: role, content, feedback, and attached sources
//   - Source: a cited document with url and relevance score
//   - ConversationListItem: derived projection for sidebar listings
//
// # Usage
//
// Create a local conversation and append the user's turn:
//
//	conv := model.NewConversation()
//	conv.AppendUserMessage("What are the library opening hours?")
//
// Project it for a listing:
//
//	item := conv.ListItem()
package model
