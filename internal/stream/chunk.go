// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes the JSON Lines chat response stream.
package stream

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/jeranaias/chatcore/internal/model"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// WireMessage is a server-confirmed message as it appears on the wire.
type WireMessage struct {
	ID        int64           `json:"id"`
	Role      model.Role      `json:"role"`
	Content   string          `json:"content"`
	NonAnswer bool            `json:"non_answer,omitempty"`
	Feedback  *model.Feedback `json:"feedback,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	Sources   []model.Source  `json:"sources"`
}

// ToMessage converts the wire form into the local model.
func (w *WireMessage) ToMessage() *model.Message {
	id := w.ID
	sources := w.Sources
	if sources == nil {
		sources = []model.Source{}
	}
	return &model.Message{
		ID:        &id,
		Role:      w.Role,
		Content:   w.Content,
		NonAnswer: w.NonAnswer,
		Feedback:  w.Feedback,
		CreatedAt: w.CreatedAt,
		Sources:   sources,
	}
}

// Chunk is one parsed unit of the streaming response. A single chunk may
// carry several fields at once (e.g. a conversation id together with the
// confirmed user message); the reconciler applies them in a fixed order:
// conversation id, then user message, then content delta, then assistant
// finalization.
type Chunk struct {
	ConversationID   string       `json:"conversation_id,omitempty"`
	UserMessage      *WireMessage `json:"user_message,omitempty"`
	AssistantMessage *WireMessage `json:"assistant_message,omitempty"`

	// Content is a fragment of assistant text to append to the in-progress
	// assistant message. The final AssistantMessage content supersedes
	// whatever the deltas accumulated.
	Content   string `json:"content,omitempty"`
	NonAnswer bool   `json:"non_answer,omitempty"`

	// Streaming errors are signaled through a chunk carrying both fields.
	ErrorStatusCode int            `json:"error_status_code,omitempty"`
	ErrorContent    map[string]any `json:"error_content,omitempty"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseLine parses one line of the stream.
//
// Blank and whitespace-only lines yield (nil, nil). A line carrying both an
// error status and an error payload terminates the stream with a
// *StreamError. A line that is not valid JSON terminates it with a
// *ProtocolError.
func ParseLine(line string) (*Chunk, error) {
	if strings.TrimSpace(line) == "" {
		return nil, nil
	}

	var chunk Chunk
	if err := json.Unmarshal([]byte(line), &chunk); err != nil {
		return nil, &ProtocolError{Line: line, Err: err}
	}

	if chunk.ErrorStatusCode != 0 && chunk.ErrorContent != nil {
		return nil, &StreamError{
			Status: chunk.ErrorStatusCode,
			Detail: chunk.ErrorContent,
		}
	}

	return &chunk, nil
}
