// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package rating decides when to show the one-time conversation rating prompt.
package rating

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jeranaias/chatcore/internal/model"
	"github.com/jeranaias/chatcore/internal/storage"
)

// promptedKey is the storage slot holding the prompted conversation ids.
const promptedKey = "rating_prompted"

// =============================================================================
// PROMPT TRACKER
// =============================================================================

// Tracker remembers which conversations have already been prompted for a
// rating. The set is loaded once at startup and written back on every
// mutation, so a conversation reloaded later in the same session (or after
// a restart) is never prompted twice.
type Tracker struct {
	mu       sync.Mutex
	kv       storage.KV
	prompted map[string]bool
}

// NewTracker loads the prompted set from kv.
func NewTracker(kv storage.KV) (*Tracker, error) {
	t := &Tracker{kv: kv, prompted: make(map[string]bool)}

	raw, err := kv.Get(promptedKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load prompted set: %w", err)
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("corrupt prompted set: %w", err)
	}
	for _, id := range ids {
		t.prompted[id] = true
	}
	return t, nil
}

// ShouldPrompt evaluates the eligibility policy against the tracked set.
func (t *Tracker) ShouldPrompt(conv *model.Conversation) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ShouldPrompt(conv, t.prompted)
}

// MarkPrompted records that the prompt was shown for the conversation and
// persists the set before returning.
func (t *Tracker) MarkPrompted(conversationID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.prompted[conversationID] {
		return nil
	}
	t.prompted[conversationID] = true
	return t.persistLocked()
}

// Prompted reports whether the conversation was already prompted.
func (t *Tracker) Prompted(conversationID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.prompted[conversationID]
}

func (t *Tracker) persistLocked() error {
	ids := make([]string, 0, len(t.prompted))
	for id := range t.prompted {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode prompted set: %w", err)
	}
	return t.kv.Set(promptedKey, string(data))
}
