// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package rating decides when to show the one-time conversation rating prompt.
package rating

import (
	"testing"

	"github.com/jeranaias/chatcore/internal/model"
	"github.com/jeranaias/chatcore/internal/storage"
)

const testConvID = "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"

// conversationWith builds a confirmed conversation with n messages.
func conversationWith(t *testing.T, n int) *model.Conversation {
	t.Helper()
	conv := model.NewConversation()
	if err := conv.AssignID(testConvID); err != nil {
		t.Fatalf("AssignID failed: %v", err)
	}
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			conv.AppendUserMessage("question")
		} else {
			conv.Append(model.NewAssistantMessage())
		}
	}
	return conv
}

// =============================================================================
// POLICY TESTS
// =============================================================================

func TestShouldPrompt_Threshold(t *testing.T) {
	tests := []struct {
		messages int
		want     bool
	}{
		{0, false},
		{4, false},
		{5, false},
		{6, true},
		{7, true},
		{12, true},
	}

	for _, tc := range tests {
		conv := conversationWith(t, tc.messages)
		got := ShouldPrompt(conv, map[string]bool{})
		if got != tc.want {
			t.Errorf("ShouldPrompt with %d messages = %v, want %v", tc.messages, got, tc.want)
		}
	}
}

func TestShouldPrompt_AlreadyPrompted(t *testing.T) {
	conv := conversationWith(t, 6)
	prompted := map[string]bool{testConvID: true}

	if ShouldPrompt(conv, prompted) {
		t.Error("Prompted conversation must not re-fire")
	}
}

func TestShouldPrompt_AlreadyRated(t *testing.T) {
	conv := conversationWith(t, 12)
	value := 7
	conv.Rating = &value

	if ShouldPrompt(conv, map[string]bool{}) {
		t.Error("Rated conversation must never prompt again")
	}
}

func TestShouldPrompt_UnsavedConversation(t *testing.T) {
	conv := model.NewConversation()
	for i := 0; i < 8; i++ {
		conv.AppendUserMessage("x")
	}

	if ShouldPrompt(conv, map[string]bool{}) {
		t.Error("Conversation without an id cannot prompt")
	}
}

func TestShouldPrompt_NilConversation(t *testing.T) {
	if ShouldPrompt(nil, map[string]bool{}) {
		t.Error("Nil conversation must not prompt")
	}
}

// =============================================================================
// TRACKER TESTS
// =============================================================================

func TestTracker_FiresExactlyOnce(t *testing.T) {
	kv, _ := storage.NewFileKV(t.TempDir())
	tracker, err := NewTracker(kv)
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}

	// The conversation crosses the threshold repeatedly across sends.
	fired := 0
	for _, count := range []int{6, 8, 10, 12} {
		conv := conversationWith(t, count)
		if tracker.ShouldPrompt(conv) {
			fired++
			if err := tracker.MarkPrompted(conv.ID); err != nil {
				t.Fatalf("MarkPrompted failed: %v", err)
			}
		}
	}

	if fired != 1 {
		t.Errorf("Prompt fired %d times across the conversation lifetime, want exactly 1", fired)
	}
}

func TestTracker_SurvivesReload(t *testing.T) {
	kv, _ := storage.NewFileKV(t.TempDir())

	tracker, err := NewTracker(kv)
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}
	if err := tracker.MarkPrompted(testConvID); err != nil {
		t.Fatalf("MarkPrompted failed: %v", err)
	}

	// A tracker built from the same storage must remember the prompt.
	reloaded, err := NewTracker(kv)
	if err != nil {
		t.Fatalf("NewTracker (reload) failed: %v", err)
	}
	if !reloaded.Prompted(testConvID) {
		t.Error("Prompted state lost across reload")
	}

	conv := conversationWith(t, 9)
	if reloaded.ShouldPrompt(conv) {
		t.Error("Reloaded conversation must not be prompted twice")
	}
}

func TestTracker_MarkPromptedIdempotent(t *testing.T) {
	kv, _ := storage.NewFileKV(t.TempDir())
	tracker, _ := NewTracker(kv)

	if err := tracker.MarkPrompted(testConvID); err != nil {
		t.Fatalf("MarkPrompted failed: %v", err)
	}
	if err := tracker.MarkPrompted(testConvID); err != nil {
		t.Errorf("Second MarkPrompted failed: %v", err)
	}
}
