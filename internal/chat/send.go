// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat owns the canonical conversation state and reconciles the
// streaming protocol into it.
package chat

import (
	"strings"

	"github.com/jeranaias/chatcore/internal/model"
	"github.com/jeranaias/chatcore/internal/stream"
)

// =============================================================================
// SEND STATE
// =============================================================================

// SendState is the lifecycle of one streaming send operation.
type SendState int

const (
	SendIdle SendState = iota
	SendSending
	SendStreaming
	SendCompleted
	SendFailed
)

// String returns the state name.
func (s SendState) String() string {
	switch s {
	case SendIdle:
		return "idle"
	case SendSending:
		return "sending"
	case SendStreaming:
		return "streaming"
	case SendCompleted:
		return "completed"
	case SendFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// =============================================================================
// SEND OPERATION
// =============================================================================

// Send is one streaming exchange bound to a conversation. The binding is
// fixed at BeginSend: switching the store's active conversation does not
// cancel a running send, which keeps updating its own conversation.
//
// Failed is terminal for the one attempt only; the conversation stays
// usable and a retry reuses its id and full message history.
type Send struct {
	store *Store
	conv  *model.Conversation
	state SendState
}

// BeginSend starts a send for the active conversation: the user's message
// is appended optimistically (visible before any network response, with no
// id yet) and the mutation is persisted. At most one send may be in flight
// against the active conversation.
func (s *Store) BeginSend(content string) (*Send, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		s.active = model.NewConversation()
	}
	if s.inflight[s.active] {
		return nil, ErrSendInFlight
	}

	conv := s.active
	conv.AppendUserMessage(content)
	s.inflight[conv] = true

	if err := s.persistLocked(); err != nil {
		delete(s.inflight, conv)
		return nil, err
	}
	s.notifyLocked()

	return &Send{store: s, conv: conv, state: SendSending}, nil
}

// Conversation returns the conversation this send is bound to.
func (snd *Send) Conversation() *model.Conversation {
	return snd.conv
}

// State returns the current send state.
func (snd *Send) State() SendState {
	snd.store.mu.Lock()
	defer snd.store.mu.Unlock()
	return snd.state
}

// History snapshots the full message history for the outgoing request; the
// server is stateless per request except for identity continuity through
// the conversation id.
func (snd *Send) History() (conversationID string, messages []*model.Message) {
	snd.store.mu.Lock()
	defer snd.store.mu.Unlock()
	return snd.conv.ID, append([]*model.Message(nil), snd.conv.Messages...)
}

// StreamOpened marks the transition from Sending to Streaming once the
// response stream is open.
func (snd *Send) StreamOpened() {
	snd.store.mu.Lock()
	defer snd.store.mu.Unlock()
	if snd.state == SendSending {
		snd.state = SendStreaming
	}
}

// Complete marks the send finished and releases the in-flight slot.
func (snd *Send) Complete() {
	snd.finish(SendCompleted)
}

// Fail marks the send failed and releases the in-flight slot. Local state
// already applied (the optimistic user message, any partial assistant
// content) is deliberately not rolled back.
func (snd *Send) Fail() {
	snd.finish(SendFailed)
}

func (snd *Send) finish(state SendState) {
	snd.store.mu.Lock()
	defer snd.store.mu.Unlock()
	if snd.state == SendCompleted || snd.state == SendFailed {
		return
	}
	snd.state = state
	delete(snd.store.inflight, snd.conv)
}

// =============================================================================
// CHUNK RECONCILIATION
// =============================================================================

// Apply folds one protocol chunk into the bound conversation. Fields
// present on the same chunk are applied in a fixed order: conversation id,
// then user message, then content delta, then assistant finalization.
// The mutation is persisted before Apply returns.
func (snd *Send) Apply(chunk *stream.Chunk) error {
	s := snd.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if chunk.ConversationID != "" {
		snd.applyConversationID(chunk.ConversationID)
	}
	if chunk.UserMessage != nil {
		snd.applyUserMessage(chunk.UserMessage)
	}
	if chunk.Content != "" || chunk.NonAnswer {
		snd.applyContentDelta(chunk.Content, chunk.NonAnswer)
	}
	if chunk.AssistantMessage != nil {
		snd.applyAssistantMessage(chunk.AssistantMessage)
	}

	if err := s.persistLocked(); err != nil {
		return err
	}
	s.notifyLocked()
	return nil
}

// applyConversationID assigns the server id. A conflicting assignment to a
// conversation that already has a different id is ignored; an existing id
// is never overwritten. Once the conversation has an id it joins the
// canonical collection.
func (snd *Send) applyConversationID(id string) {
	if err := snd.conv.AssignID(id); err != nil {
		return
	}
	snd.store.insertLocked(snd.conv)
}

// applyUserMessage replaces the optimistic placeholder (the most recent
// user message without an id) with the server-confirmed one, preserving
// its position.
func (snd *Send) applyUserMessage(wire *stream.WireMessage) {
	confirmed := wire.ToMessage()
	if pending := snd.conv.PendingUserMessage(); pending != nil {
		*pending = *confirmed
		return
	}
	snd.conv.Append(confirmed)
}

// applyContentDelta appends the fragment to the in-progress assistant
// message, creating it on first delta. The non-answer flag is applied
// whenever set, including on chunks that carry no fragment.
func (snd *Send) applyContentDelta(fragment string, nonAnswer bool) {
	msg := snd.conv.LastAssistantMessage()
	if msg == nil {
		msg = model.NewAssistantMessage()
		snd.conv.Append(msg)
	}
	if fragment != "" {
		msg.AppendContent(fragment)
	}
	if nonAnswer {
		msg.NonAnswer = true
	}
}

// applyAssistantMessage replaces the in-progress assistant message with the
// finalized one. The finalized content is authoritative and overrides
// whatever the deltas accumulated.
func (snd *Send) applyAssistantMessage(wire *stream.WireMessage) {
	final := wire.ToMessage()
	if msg := snd.conv.LastAssistantMessage(); msg != nil {
		*msg = *final
		snd.conv.Touch()
		return
	}
	snd.conv.Append(final)
}
