// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat owns the canonical conversation state and reconciles the
// streaming protocol into it.
package chat

import (
	"errors"
	"testing"
	"time"

	"github.com/jeranaias/chatcore/internal/model"
	"github.com/jeranaias/chatcore/internal/storage"
	"github.com/jeranaias/chatcore/internal/stream"
)

const (
	convID      = "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"
	otherConvID = "0f8fad5b-d9cb-469f-a165-70867728950e"
)

func newTestStore(t *testing.T) (*Store, storage.KV) {
	t.Helper()
	kv, err := storage.NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKV failed: %v", err)
	}
	store, err := NewStore(kv)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store, kv
}

func wireUser(id int64, content string) *stream.WireMessage {
	return &stream.WireMessage{
		ID: id, Role: model.RoleUser, Content: content,
		CreatedAt: time.Now(), Sources: []model.Source{},
	}
}

func wireAssistant(id int64, content string, sources ...model.Source) *stream.WireMessage {
	return &stream.WireMessage{
		ID: id, Role: model.RoleAssistant, Content: content,
		CreatedAt: time.Now(), Sources: sources,
	}
}

// =============================================================================
// SEND SCENARIO TESTS
// =============================================================================

func TestSend_FullExchange(t *testing.T) {
	store, _ := newTestStore(t)

	send, err := store.BeginSend("Message 1")
	if err != nil {
		t.Fatalf("BeginSend failed: %v", err)
	}

	// The optimistic message is visible before any network response.
	active := store.Active()
	if len(active.Messages) != 1 {
		t.Fatalf("Messages = %d, want the optimistic user message", len(active.Messages))
	}
	if active.Messages[0].Confirmed() {
		t.Error("Optimistic message must have no id")
	}
	before := active.UpdatedAt

	send.StreamOpened()
	if send.State() != SendStreaming {
		t.Errorf("State = %v, want streaming", send.State())
	}

	time.Sleep(2 * time.Millisecond)

	chunks := []*stream.Chunk{
		{ConversationID: convID},
		{UserMessage: wireUser(0, "Message 1")},
		{AssistantMessage: wireAssistant(1, "Hi")},
	}
	for _, c := range chunks {
		if err := send.Apply(c); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
	}
	send.Complete()

	conv := store.Active()
	if conv.ID != convID {
		t.Errorf("ID = %q, want %q", conv.ID, convID)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("Messages = %d, want exactly 2", len(conv.Messages))
	}
	if !conv.Messages[0].Confirmed() || *conv.Messages[0].ID != 0 {
		t.Error("Optimistic message should be replaced by the confirmed one (id 0)")
	}
	if conv.Messages[1].Content != "Hi" {
		t.Errorf("Assistant content = %q, want %q", conv.Messages[1].Content, "Hi")
	}
	if !conv.UpdatedAt.After(before) {
		t.Error("UpdatedAt should have advanced")
	}

	// The conversation joined the canonical collection when it got its id.
	items := store.List()
	if len(items) != 1 || items[0].ID != convID {
		t.Errorf("List = %+v, want the new conversation", items)
	}
}

func TestSend_DeltasThenFinal(t *testing.T) {
	store, _ := newTestStore(t)
	send, _ := store.BeginSend("question")
	send.StreamOpened()

	for _, c := range []*stream.Chunk{
		{ConversationID: convID},
		{UserMessage: wireUser(0, "question")},
		{Content: "Hel"},
		{Content: "lo"},
	} {
		if err := send.Apply(c); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
	}

	conv := store.Active()
	if got := conv.Messages[1].Content; got != "Hello" {
		t.Errorf("Streamed content = %q, want %q", got, "Hello")
	}

	// The finalized content is authoritative over accumulated deltas.
	src := model.Source{URL: "https://example.edu/doc", Score: 0.9}
	if err := send.Apply(&stream.Chunk{AssistantMessage: wireAssistant(1, "Hello!", src)}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	msg := conv.Messages[1]
	if msg.Content != "Hello!" {
		t.Errorf("Final content = %q, want %q", msg.Content, "Hello!")
	}
	if msg.ID == nil || *msg.ID != 1 {
		t.Error("Final assistant message should carry its server id")
	}
	if len(msg.Sources) != 1 {
		t.Errorf("Sources = %+v, want the cited document", msg.Sources)
	}
	if len(conv.Messages) != 2 {
		t.Errorf("Messages = %d; finalization must replace, not append", len(conv.Messages))
	}
}

func TestSend_StandaloneNonAnswerChunk(t *testing.T) {
	store, _ := newTestStore(t)
	send, _ := store.BeginSend("question")
	send.StreamOpened()

	for _, c := range []*stream.Chunk{
		{ConversationID: convID},
		{UserMessage: wireUser(0, "question")},
		{Content: "I cannot answer that"},
		{NonAnswer: true},
	} {
		if err := send.Apply(c); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
	}

	msg := store.Active().Messages[1]
	if !msg.NonAnswer {
		t.Error("non-answer flag on a chunk without content must still apply")
	}
	if msg.Content != "I cannot answer that" {
		t.Errorf("Content = %q; a flag-only chunk must not alter content", msg.Content)
	}
}

func TestSend_NonAnswerBeforeFirstDelta(t *testing.T) {
	store, _ := newTestStore(t)
	send, _ := store.BeginSend("question")
	send.StreamOpened()

	if err := send.Apply(&stream.Chunk{ConversationID: convID}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := send.Apply(&stream.Chunk{NonAnswer: true}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	msg := store.Active().LastAssistantMessage()
	if msg == nil {
		t.Fatal("flag-only chunk should create the in-progress assistant message")
	}
	if !msg.NonAnswer {
		t.Error("non-answer flag should be set")
	}
	if msg.Content != "" {
		t.Errorf("Content = %q, want empty", msg.Content)
	}
}

func TestSend_FailurePreservesPartialState(t *testing.T) {
	store, _ := newTestStore(t)
	send, _ := store.BeginSend("question")
	send.StreamOpened()

	send.Apply(&stream.Chunk{ConversationID: convID})
	send.Apply(&stream.Chunk{Content: "partial answer"})
	send.Fail()

	// No rollback: the optimistic message and the partial assistant content
	// both survive the failed send.
	conv := store.Active()
	if len(conv.Messages) != 2 {
		t.Fatalf("Messages = %d, want optimistic + partial assistant", len(conv.Messages))
	}
	if conv.Messages[1].Content != "partial answer" {
		t.Errorf("Partial content = %q", conv.Messages[1].Content)
	}
	if send.State() != SendFailed {
		t.Errorf("State = %v, want failed", send.State())
	}

	// The conversation remains usable: a retry starts a fresh send that
	// reuses the existing id and history.
	retry, err := store.BeginSend("retry")
	if err != nil {
		t.Fatalf("BeginSend after failure: %v", err)
	}
	id, history := retry.History()
	if id != convID {
		t.Errorf("Retry conversation id = %q, want %q", id, convID)
	}
	if len(history) != 3 {
		t.Errorf("Retry history = %d messages, want full history", len(history))
	}
}

func TestSend_IDAssignedAtMostOnce(t *testing.T) {
	store, _ := newTestStore(t)
	send, _ := store.BeginSend("hi")

	send.Apply(&stream.Chunk{ConversationID: convID})
	send.Apply(&stream.Chunk{ConversationID: otherConvID})

	if got := store.Active().ID; got != convID {
		t.Errorf("ID = %q; a different id must never overwrite the first", got)
	}
	if len(store.List()) != 1 {
		t.Errorf("List = %d entries, want 1", len(store.List()))
	}
}

func TestSend_InFlightGuard(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.BeginSend("first"); err != nil {
		t.Fatalf("BeginSend failed: %v", err)
	}

	_, err := store.BeginSend("second")
	if !errors.Is(err, ErrSendInFlight) {
		t.Errorf("Expected ErrSendInFlight, got %v", err)
	}
}

func TestSend_EmptyContent(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.BeginSend("   \n"); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("Expected ErrEmptyMessage, got %v", err)
	}
}

func TestSend_ContinuesAfterActiveSwitch(t *testing.T) {
	store, _ := newTestStore(t)

	send, _ := store.BeginSend("slow question")
	send.StreamOpened()
	send.Apply(&stream.Chunk{ConversationID: convID})
	bound := send.Conversation()

	// Switching the active conversation does not cancel the send.
	store.StartNew()
	if store.Active() == bound {
		t.Fatal("StartNew should have replaced the active reference")
	}

	// Starting a send against the new active conversation is allowed while
	// the first one is still streaming.
	second, err := store.BeginSend("new conversation question")
	if err != nil {
		t.Fatalf("BeginSend on new active conversation: %v", err)
	}
	_ = second

	// The first send still updates its own, now inactive, conversation.
	send.Apply(&stream.Chunk{UserMessage: wireUser(0, "slow question")})
	send.Apply(&stream.Chunk{AssistantMessage: wireAssistant(1, "late answer")})
	send.Complete()

	conv, err := store.Get(convID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(conv.Messages) != 2 || conv.Messages[1].Content != "late answer" {
		t.Errorf("Inactive conversation not updated by its in-flight send: %+v", conv.Messages)
	}
}

// =============================================================================
// LIST ORDERING TESTS
// =============================================================================

func TestList_DerivedOrdering(t *testing.T) {
	store, _ := newTestStore(t)

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mk := func(id string, updated time.Time) *model.Conversation {
		conv := model.NewConversation()
		conv.AssignID(id)
		conv.AppendUserMessage("preview " + id)
		conv.CreatedAt = updated.Add(-time.Hour)
		conv.UpdatedAt = updated
		return conv
	}

	// Insertion order deliberately disagrees with timestamp order.
	a := mk(convID, base.Add(1*time.Minute))
	b := mk(otherConvID, base.Add(30*time.Minute))
	store.Upsert(a)
	store.Upsert(b)

	items := store.List()
	if items[0].ID != otherConvID || items[1].ID != convID {
		t.Fatalf("List order = [%s %s], want most recently updated first", items[0].ID, items[1].ID)
	}

	// Mutating UpdatedAt re-sorts on the next read; order is never stored.
	a.UpdatedAt = base.Add(2 * time.Hour)
	items = store.List()
	if items[0].ID != convID {
		t.Error("List must re-derive ordering from the mutated timestamp")
	}
}

func TestList_TieBreakByID(t *testing.T) {
	store, _ := newTestStore(t)

	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for _, id := range []string{convID, otherConvID} {
		conv := model.NewConversation()
		conv.AssignID(id)
		conv.CreatedAt = ts
		conv.UpdatedAt = ts
		store.Upsert(conv)
	}

	items := store.List()
	// otherConvID ("0f8f...") sorts before convID ("9b1d...").
	if items[0].ID != otherConvID || items[1].ID != convID {
		t.Errorf("Equal timestamps must tie-break by ascending id, got [%s %s]",
			items[0].ID, items[1].ID)
	}
}

// =============================================================================
// REMOVAL TESTS
// =============================================================================

func TestRemove_ActiveResets(t *testing.T) {
	store, _ := newTestStore(t)

	send, _ := store.BeginSend("hello")
	send.Apply(&stream.Chunk{ConversationID: convID})
	send.Complete()

	if err := store.Remove(convID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	active := store.Active()
	if active.ID != "" || len(active.Messages) != 0 {
		t.Error("Removing the active conversation must reset to a fresh unsaved one")
	}
	for _, item := range store.List() {
		if item.ID == convID {
			t.Error("Removed conversation still listed")
		}
	}
}

func TestRemove_NotFound(t *testing.T) {
	store, _ := newTestStore(t)
	var nf *NotFoundError
	if err := store.Remove(convID); !errors.As(err, &nf) {
		t.Errorf("Expected *NotFoundError, got %v", err)
	}
}

// =============================================================================
// FEEDBACK AND RATING TESTS
// =============================================================================

func TestSetFeedback(t *testing.T) {
	store, _ := newTestStore(t)
	send, _ := store.BeginSend("q")
	send.Apply(&stream.Chunk{ConversationID: convID})
	send.Apply(&stream.Chunk{UserMessage: wireUser(0, "q")})
	send.Apply(&stream.Chunk{AssistantMessage: wireAssistant(1, "a")})
	send.Complete()

	conv := store.Active()
	beforeUpdated := conv.UpdatedAt

	good := model.FeedbackGood
	if err := store.SetFeedback(1, &good); err != nil {
		t.Fatalf("SetFeedback failed: %v", err)
	}
	if conv.Messages[1].Feedback == nil || *conv.Messages[1].Feedback != model.FeedbackGood {
		t.Error("Feedback not applied")
	}

	// Idempotent per id, and UpdatedAt is untouched.
	if err := store.SetFeedback(1, &good); err != nil {
		t.Errorf("Repeated SetFeedback failed: %v", err)
	}
	if !conv.UpdatedAt.Equal(beforeUpdated) {
		t.Error("Feedback must not advance UpdatedAt")
	}

	// Clearing (feedback = none) works the same way.
	if err := store.SetFeedback(1, nil); err != nil {
		t.Fatalf("Clearing feedback failed: %v", err)
	}
	if conv.Messages[1].Feedback != nil {
		t.Error("Feedback not cleared")
	}
}

func TestSetFeedback_UnconfirmedMessage(t *testing.T) {
	store, _ := newTestStore(t)
	store.BeginSend("optimistic only")

	var nf *NotFoundError
	good := model.FeedbackGood
	if err := store.SetFeedback(7, &good); !errors.As(err, &nf) {
		t.Errorf("Expected *NotFoundError for an unknown message id, got %v", err)
	}
}

func TestSubmitRating(t *testing.T) {
	store, _ := newTestStore(t)
	send, _ := store.BeginSend("q")
	send.Apply(&stream.Chunk{ConversationID: convID})
	send.Complete()

	if err := store.SubmitRating(convID, 7); err != nil {
		t.Fatalf("SubmitRating failed: %v", err)
	}
	conv, _ := store.Get(convID)
	if conv.Rating == nil || *conv.Rating != 7 {
		t.Errorf("Rating = %v, want 7", conv.Rating)
	}

	var nf *NotFoundError
	if err := store.SubmitRating(otherConvID, 5); !errors.As(err, &nf) {
		t.Errorf("Expected *NotFoundError, got %v", err)
	}
}

// =============================================================================
// PERSISTENCE TESTS
// =============================================================================

func TestStore_PersistsAcrossReload(t *testing.T) {
	store, kv := newTestStore(t)

	send, _ := store.BeginSend("remember me")
	send.Apply(&stream.Chunk{ConversationID: convID})
	send.Apply(&stream.Chunk{UserMessage: wireUser(0, "remember me")})
	send.Apply(&stream.Chunk{AssistantMessage: wireAssistant(1, "stored")})
	send.Complete()

	reloaded, err := NewStore(kv)
	if err != nil {
		t.Fatalf("NewStore (reload) failed: %v", err)
	}

	conv, err := reloaded.Get(convID)
	if err != nil {
		t.Fatalf("Get after reload failed: %v", err)
	}
	if len(conv.Messages) != 2 || conv.Messages[1].Content != "stored" {
		t.Errorf("Reloaded conversation = %+v", conv.Messages)
	}

	// The reloaded active reference is a fresh unsaved conversation.
	if reloaded.Active().ID != "" {
		t.Error("Active reference must start fresh after reload")
	}
}

func TestStore_ChangeNotification(t *testing.T) {
	store, _ := newTestStore(t)

	var changes int
	store.SetOnChange(func() { changes++ })

	send, _ := store.BeginSend("hello")
	send.Apply(&stream.Chunk{ConversationID: convID})

	if changes != 2 {
		t.Errorf("Change notifications = %d, want one per mutation", changes)
	}
}
