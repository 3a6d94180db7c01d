// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/chatcore/internal/util"
)

// PreviewWidth is the maximum display width of a listing preview.
const PreviewWidth = 80

var (
	// ErrIDConflict is returned when an id assignment targets a conversation
	// that already carries a different id.
	ErrIDConflict = errors.New("conversation already has a different id")

	// ErrInvalidID is returned for ids that are not UUID-formatted.
	ErrInvalidID = errors.New("invalid conversation id")
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a complete chat exchange with history and metadata.
//
// Messages are append-only in arrival order: no reordering, no deletion of
// individual messages. UpdatedAt is never earlier than CreatedAt and is
// advanced exactly when a message is appended or finalized.
type Conversation struct {
	// ID is the server-assigned UUID. Empty until the first round-trip.
	ID string `json:"id,omitempty"`

	// Rating is the user's explicit quality rating, nil until submitted.
	Rating *int `json:"rating,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []*Message `json:"messages"`
}

// ConversationListItem is the derived projection used for listings.
// It is recomputed from the canonical conversation on every read,
// never stored independently.
type ConversationListItem struct {
	ID        string    `json:"id,omitempty"`
	Rating    *int      `json:"rating,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Preview   string    `json:"preview"`
}

// NewConversation creates a local placeholder conversation: no id yet,
// created and updated now, empty message list.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]*Message, 0),
	}
}

// ValidateID reports whether id is a well-formed conversation UUID.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Append adds a message and advances UpdatedAt.
func (c *Conversation) Append(msg *Message) {
	c.Messages = append(c.Messages, msg)
	c.Touch()
}

// AppendUserMessage creates and appends an optimistic user message.
func (c *Conversation) AppendUserMessage(content string) *Message {
	msg := NewUserMessage(content)
	c.Append(msg)
	return msg
}

// Touch advances UpdatedAt to now.
func (c *Conversation) Touch() {
	c.UpdatedAt = time.Now()
}

// PendingUserMessage returns the most recent user message that the server
// has not confirmed yet, or nil.
func (c *Conversation) PendingUserMessage() *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		msg := c.Messages[i]
		if msg.Role == RoleUser && !msg.Confirmed() {
			return msg
		}
	}
	return nil
}

// LastAssistantMessage returns the trailing assistant message if the
// conversation currently ends with one, or nil. Streamed deltas and
// finalization always target this message.
func (c *Conversation) LastAssistantMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	last := c.Messages[len(c.Messages)-1]
	if last.Role != RoleAssistant {
		return nil
	}
	return last
}

// MessageByID returns the message with the given server-assigned id, or nil.
func (c *Conversation) MessageByID(id int64) *Message {
	for _, msg := range c.Messages {
		if msg.ID != nil && *msg.ID == id {
			return msg
		}
	}
	return nil
}

// =============================================================================
// IDENTITY
// =============================================================================

// AssignID sets the server-assigned id. Assigning the id a second time is a
// no-op when identical and an error when it differs; an existing id is never
// silently overwritten.
func (c *Conversation) AssignID(id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if c.ID == id {
		return nil
	}
	if c.ID != "" {
		return ErrIDConflict
	}
	c.ID = id
	return nil
}

// =============================================================================
// PROJECTION
// =============================================================================

// Preview returns the first message's content collapsed to one line and
// truncated for display.
func (c *Conversation) Preview() string {
	if len(c.Messages) == 0 {
		return ""
	}
	return util.TruncateWidth(util.CollapseLines(c.Messages[0].Content), PreviewWidth)
}

// ListItem projects the conversation for a sidebar listing.
func (c *Conversation) ListItem() ConversationListItem {
	return ConversationListItem{
		ID:        c.ID,
		Rating:    c.Rating,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Preview:   c.Preview(),
	}
}
