// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat owns the canonical conversation state and reconciles the
// streaming protocol into it.
package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/jeranaias/chatcore/internal/model"
	"github.com/jeranaias/chatcore/internal/storage"
)

// conversationsKey is the storage slot holding the conversation snapshot.
const conversationsKey = "conversations"

// snapshot is the persisted form of the canonical collection.
type snapshot struct {
	Conversations []*model.Conversation `json:"conversations"`
}

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// Store owns the canonical conversation collection and the active
// conversation reference. The collection holds at most one entry per
// conversation id; the active conversation may be a transient unsaved
// conversation that is not in the collection yet.
//
// The snapshot is loaded once at construction and written back inside every
// mutating method, before that method returns.
type Store struct {
	mu sync.Mutex
	kv storage.KV

	conversations []*model.Conversation
	active        *model.Conversation

	inflight map[*model.Conversation]bool
	onChange func()
}

// NewStore loads the persisted collection from kv. The active reference
// starts as a fresh unsaved conversation.
func NewStore(kv storage.KV) (*Store, error) {
	s := &Store{
		kv:       kv,
		active:   model.NewConversation(),
		inflight: make(map[*model.Conversation]bool),
	}

	raw, err := kv.Get(conversationsKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("corrupt conversation snapshot: %w", err)
	}
	s.conversations = snap.Conversations
	return s, nil
}

// SetOnChange registers a callback invoked after every state mutation.
// The presentation layer uses it to re-read the store. The callback runs
// with the store lock held and must not call back into the store.
func (s *Store) SetOnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// =============================================================================
// READS
// =============================================================================

// Active returns the active conversation. Callers must treat it as
// read-only; all mutation goes through Store and Send methods.
func (s *Store) Active() *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Get returns the conversation with the given id from the canonical
// collection.
func (s *Store) Get(id string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv := s.findLocked(id); conv != nil {
		return conv, nil
	}
	return nil, &NotFoundError{Resource: "conversation", ID: id}
}

// List projects the canonical collection for display: most recently updated
// first, ties broken by ascending id. The order is computed on every call
// and never stored.
func (s *Store) List() []model.ConversationListItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]model.ConversationListItem, 0, len(s.conversations))
	for _, conv := range s.conversations {
		items = append(items, conv.ListItem())
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].UpdatedAt.Equal(items[j].UpdatedAt) {
			return items[i].UpdatedAt.After(items[j].UpdatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items
}

// =============================================================================
// ACTIVE CONVERSATION MANAGEMENT
// =============================================================================

// SetActive switches the active reference to the conversation with the
// given id. A send already in flight against the previous active
// conversation keeps running and keeps updating that conversation.
func (s *Store) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findLocked(id)
	if conv == nil {
		return &NotFoundError{Resource: "conversation", ID: id}
	}
	s.active = conv
	s.notifyLocked()
	return nil
}

// StartNew makes a fresh unsaved conversation active and returns it.
func (s *Store) StartNew() *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = model.NewConversation()
	s.notifyLocked()
	return s.active
}

// Upsert folds a conversation fetched from the server into the canonical
// collection, replacing any entry with the same id. The collection never
// holds two entries for one id.
func (s *Store) Upsert(conv *model.Conversation) error {
	if conv.ID == "" {
		return model.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(conv)
	if err := s.persistLocked(); err != nil {
		return err
	}
	s.notifyLocked()
	return nil
}

// Remove deletes the conversation from the canonical collection. The
// deletion is irreversible from the client's perspective. If the removed
// conversation was active, the active reference resets to a fresh unsaved
// conversation.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, conv := range s.conversations {
		if conv.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return &NotFoundError{Resource: "conversation", ID: id}
	}

	removed := s.conversations[idx]
	s.conversations = append(s.conversations[:idx], s.conversations[idx+1:]...)
	if s.active == removed {
		s.active = model.NewConversation()
	}

	if err := s.persistLocked(); err != nil {
		return err
	}
	s.notifyLocked()
	return nil
}

// =============================================================================
// FEEDBACK AND RATING
// =============================================================================

// SetFeedback records the user's verdict on a confirmed message, looked up
// by its server-assigned id. Passing nil clears the verdict. The operation
// is idempotent per message id and touches neither UpdatedAt nor message
// order. Unconfirmed messages have no id and therefore surface a
// *NotFoundError.
func (s *Store) SetFeedback(messageID int64, fb *model.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := s.findMessageLocked(messageID)
	if msg == nil {
		return &NotFoundError{Resource: "message", ID: strconv.FormatInt(messageID, 10)}
	}

	msg.Feedback = fb
	if err := s.persistLocked(); err != nil {
		return err
	}
	s.notifyLocked()
	return nil
}

// SubmitRating stores the explicit rating on the conversation. Rating a
// conversation is terminal for its prompting; the eligibility policy never
// fires again once Rating is set.
func (s *Store) SubmitRating(conversationID string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findLocked(conversationID)
	if conv == nil {
		return &NotFoundError{Resource: "conversation", ID: conversationID}
	}

	conv.Rating = &value
	if err := s.persistLocked(); err != nil {
		return err
	}
	s.notifyLocked()
	return nil
}

// =============================================================================
// INTERNAL
// =============================================================================

// findLocked returns the canonical conversation with the given id, also
// matching the active conversation once it has that id.
func (s *Store) findLocked(id string) *model.Conversation {
	if id == "" {
		return nil
	}
	for _, conv := range s.conversations {
		if conv.ID == id {
			return conv
		}
	}
	if s.active != nil && s.active.ID == id {
		return s.active
	}
	return nil
}

func (s *Store) findMessageLocked(messageID int64) *model.Message {
	if s.active != nil {
		if msg := s.active.MessageByID(messageID); msg != nil {
			return msg
		}
	}
	for _, conv := range s.conversations {
		if msg := conv.MessageByID(messageID); msg != nil {
			return msg
		}
	}
	return nil
}

// insertLocked adds conv to the collection, replacing any entry that
// carries the same id.
func (s *Store) insertLocked(conv *model.Conversation) {
	for i, existing := range s.conversations {
		if existing.ID == conv.ID {
			if existing != conv {
				s.conversations[i] = conv
			}
			return
		}
	}
	s.conversations = append(s.conversations, conv)
}

// persistLocked writes the snapshot synchronously; the mutation that
// triggered it is not complete until the write is durable.
func (s *Store) persistLocked() error {
	data, err := json.Marshal(snapshot{Conversations: s.conversations})
	if err != nil {
		return fmt.Errorf("failed to encode conversations: %w", err)
	}
	if err := s.kv.Set(conversationsKey, string(data)); err != nil {
		return fmt.Errorf("failed to persist conversations: %w", err)
	}
	return nil
}

func (s *Store) notifyLocked() {
	if s.onChange != nil {
		s.onChange()
	}
}
