// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import "time"

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// FEEDBACK TYPE
// =============================================================================

// Feedback is a user's thumbs-up/down verdict on an assistant message.
type Feedback string

const (
	FeedbackGood Feedback = "good"
	FeedbackBad  Feedback = "bad"
)

// =============================================================================
// SOURCE TYPE
// =============================================================================

// Source is a document cited by a finalized assistant message.
// Sources are immutable once attached.
type Source struct {
	URL     string  `json:"url"`
	Score   float64 `json:"score"`
	Title   string  `json:"title,omitempty"`
	Favicon string  `json:"favicon,omitempty"`
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
//
// Before server confirmation a message has no ID and its identity is its
// position in the conversation. Content is appended to while an assistant
// message streams; Feedback may be set by the user after confirmation.
type Message struct {
	// ID is the server-assigned id. Nil until the server confirms the
	// message. Zero is a valid server id, hence the pointer.
	ID *int64 `json:"id,omitempty"`

	Role    Role   `json:"role"`
	Content string `json:"content"`

	// NonAnswer marks responses where the assistant declined to answer.
	NonAnswer bool `json:"non_answer,omitempty"`

	// Feedback is nil while the user has given none.
	Feedback *Feedback `json:"feedback,omitempty"`

	// CreatedAt is zero until the server confirms the message.
	CreatedAt time.Time `json:"created_at,omitzero"`

	// Sources are attached only to finalized assistant messages.
	Sources []Source `json:"sources,omitempty"`
}

// NewUserMessage creates an unconfirmed user message.
func NewUserMessage(content string) *Message {
	return &Message{
		Role:    RoleUser,
		Content: content,
	}
}

// NewAssistantMessage creates an empty in-progress assistant message.
func NewAssistantMessage() *Message {
	return &Message{
		Role:    RoleAssistant,
		Sources: []Source{},
	}
}

// Confirmed reports whether the server has assigned this message an id.
func (m *Message) Confirmed() bool {
	return m.ID != nil
}

// AppendContent appends a streamed fragment to the visible content.
func (m *Message) AppendContent(fragment string) {
	m.Content += fragment
}
