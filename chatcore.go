// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatcore is the conversational client core: it keeps the
// canonical conversation collection, runs streaming exchanges against the
// chat service, and persists everything locally.
//
// # Key Types
//
//   - Client: the facade wiring config, transport, store, rating and notices
//   - Conversation / Message: the canonical data model (re-exported)
//   - Notice: the single-slot transient notification (re-exported)
//
// # Usage
//
//	cfg, err := chatcore.LoadConfig()
//	if err != nil {
//	    return err
//	}
//	client, err := chatcore.New(cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	if err := client.Send(ctx, "hello"); err != nil {
//	    // conversation state is preserved; the send may be retried
//	}
package chatcore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/chatcore/internal/api"
	"github.com/jeranaias/chatcore/internal/chat"
	"github.com/jeranaias/chatcore/internal/config"
	"github.com/jeranaias/chatcore/internal/model"
	"github.com/jeranaias/chatcore/internal/notice"
	"github.com/jeranaias/chatcore/internal/rating"
	"github.com/jeranaias/chatcore/internal/storage"
	"github.com/jeranaias/chatcore/internal/stream"
)

// consentKey stores the user's data-collection consent flag.
const consentKey = "consent"

// PassphraseEnv names the environment variable holding the storage
// encryption passphrase. It is never read from the config file.
const PassphraseEnv = "CHATCORE_PASSPHRASE"

// =============================================================================
// CLIENT
// =============================================================================

// Client is the conversational client core. All methods are safe for
// concurrent use.
type Client struct {
	cfg     *config.Config
	api     *api.Client
	store   *chat.Store
	tracker *rating.Tracker
	notices *notice.Slot
	kv      storage.KV
	closer  io.Closer

	onRatingPrompt func(conversationID string)
}

// New creates a client from cfg, building the persistence backend the
// config selects. With encryption enabled the passphrase comes from
// the CHATCORE_PASSPHRASE environment variable.
func New(cfg *config.Config) (*Client, error) {
	kv, closer, err := openKV(cfg)
	if err != nil {
		return nil, err
	}

	c, err := NewWithKV(cfg, kv)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}
	c.closer = closer
	return c, nil
}

// NewWithKV creates a client on top of an existing persistence backend.
func NewWithKV(cfg *config.Config, kv storage.KV) (*Client, error) {
	apiClient, err := api.NewClient(api.Config{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           cfg.Timeout(),
		RequestsPerSecond: cfg.API.RequestsPerSecond,
	})
	if err != nil {
		return nil, err
	}

	store, err := chat.NewStore(kv)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation store: %w", err)
	}

	tracker, err := rating.NewTracker(kv)
	if err != nil {
		return nil, fmt.Errorf("failed to load rating tracker: %w", err)
	}

	return &Client{
		cfg:     cfg,
		api:     apiClient,
		store:   store,
		tracker: tracker,
		notices: notice.NewSlot(cfg.NoticeDuration()),
		kv:      kv,
	}, nil
}

// openKV builds the persistence backend selected by the config.
func openKV(cfg *config.Config) (storage.KV, io.Closer, error) {
	dir, err := cfg.DataDir()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, err
	}

	var kv storage.KV
	var closer io.Closer
	switch strings.ToLower(cfg.Storage.Backend) {
	case "sqlite":
		db, err := storage.NewSQLiteKV(filepath.Join(dir, "chatcore.db"))
		if err != nil {
			return nil, nil, err
		}
		kv, closer = db, db
	default:
		fkv, err := storage.NewFileKV(filepath.Join(dir, "state"))
		if err != nil {
			return nil, nil, err
		}
		kv = fkv
	}

	if cfg.Storage.EncryptionEnabled {
		enc, err := storage.NewEncryptedKV(kv, os.Getenv(PassphraseEnv))
		if err != nil {
			if closer != nil {
				closer.Close()
			}
			return nil, nil, err
		}
		kv = enc
	}
	return kv, closer, nil
}

// Close releases the persistence backend.
func (c *Client) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// =============================================================================
// OBSERVERS
// =============================================================================

// SetOnChange registers fn to run after every conversation state change.
// The callback runs with internal locks held and must not call back into
// the client.
func (c *Client) SetOnChange(fn func()) {
	c.store.SetOnChange(fn)
}

// SetOnRatingPrompt registers fn to run when a conversation becomes
// eligible for its one-time rating prompt.
func (c *Client) SetOnRatingPrompt(fn func(conversationID string)) {
	c.onRatingPrompt = fn
}

// =============================================================================
// SENDING
// =============================================================================

// Send runs one complete streaming exchange on the active conversation:
// the user message is appended optimistically, the whole history goes out
// in the request, and each streamed chunk is folded into the conversation
// as it arrives.
//
// On any failure the send is marked failed and local state is kept as-is;
// retrying reuses the conversation's id and full history. After a
// successful exchange the rating prompt fires if the conversation just
// became eligible. Eligibility is evaluated once the whole exchange
// completes rather than per streamed chunk, so a prompt never appears for
// a send that later fails mid-stream.
func (c *Client) Send(ctx context.Context, content string) error {
	snd, err := c.store.BeginSend(content)
	if err != nil {
		return err
	}

	conversationID, history := snd.History()
	req := api.ChatRequest{
		ConversationID: conversationID,
		Messages:       make([]api.ChatMessage, 0, len(history)),
	}
	for _, msg := range history {
		req.Messages = append(req.Messages, api.ChatMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	err = c.api.Query(ctx, req, snd.StreamOpened, func(chunk *stream.Chunk) error {
		return snd.Apply(chunk)
	})
	if err != nil {
		snd.Fail()
		c.postSendFailure(err)
		return err
	}

	snd.Complete()
	c.maybePromptRating(snd.Conversation())
	return nil
}

// postSendFailure surfaces a send failure as a transient notice.
func (c *Client) postSendFailure(err error) {
	message := "Message could not be sent"
	var apiErr *api.APIError
	var streamErr *stream.StreamError
	switch {
	case errors.As(err, &apiErr):
		message = fmt.Sprintf("Message failed: %v", apiErr.Detail)
	case errors.As(err, &streamErr):
		if detail, ok := streamErr.Detail["detail"]; ok {
			message = fmt.Sprintf("Message failed: %v", detail)
		}
	}
	c.notices.Post(message, notice.KindDanger, 0)
}

// maybePromptRating fires the one-time rating prompt when the conversation
// has just crossed the eligibility threshold.
func (c *Client) maybePromptRating(conv *model.Conversation) {
	if !c.tracker.ShouldPrompt(conv) {
		return
	}
	if err := c.tracker.MarkPrompted(conv.ID); err != nil {
		return
	}
	if c.onRatingPrompt != nil {
		c.onRatingPrompt(conv.ID)
	}
}

// =============================================================================
// CONVERSATION ACCESS
// =============================================================================

// Active returns the active conversation.
func (c *Client) Active() *model.Conversation {
	return c.store.Active()
}

// Conversations lists locally known conversations, most recently updated
// first.
func (c *Client) Conversations() []model.ConversationListItem {
	return c.store.List()
}

// StartNew makes a fresh local conversation active. The previous active
// conversation stays in the collection if it earned an id.
func (c *Client) StartNew() *model.Conversation {
	return c.store.StartNew()
}

// Open activates the conversation with the given id, fetching it from the
// server when it is not known locally.
func (c *Client) Open(ctx context.Context, id string) error {
	if err := c.store.SetActive(id); err == nil {
		return nil
	}

	conv, err := c.api.FetchConversation(ctx, id)
	if err != nil {
		return err
	}
	if err := c.store.Upsert(conv); err != nil {
		return err
	}
	return c.store.SetActive(id)
}

// RemoteConversations lists the user's conversations as the server knows
// them.
func (c *Client) RemoteConversations(ctx context.Context) ([]model.ConversationListItem, error) {
	return c.api.FetchConversations(ctx)
}

// Hide removes the conversation from the server-side listing and drops it
// locally. Irreversible.
func (c *Client) Hide(ctx context.Context, id string) error {
	if err := c.api.HideConversation(ctx, id); err != nil {
		return err
	}
	if err := c.store.Remove(id); err != nil {
		var nfe *chat.NotFoundError
		if !errors.As(err, &nfe) {
			return err
		}
	}
	c.notices.Post("Conversation hidden", notice.KindSuccess, 0)
	return nil
}

// =============================================================================
// FEEDBACK AND RATING
// =============================================================================

// SetFeedback records the user's verdict on a confirmed message, on the
// server and locally. A nil feedback clears the verdict.
func (c *Client) SetFeedback(ctx context.Context, messageID int64, fb *model.Feedback) error {
	if err := c.api.PostFeedback(ctx, messageID, fb); err != nil {
		return err
	}
	return c.store.SetFeedback(messageID, fb)
}

// SubmitRating records the explicit conversation rating, on the server and
// locally. Submitting is terminal: the conversation is never prompted
// again.
func (c *Client) SubmitRating(ctx context.Context, conversationID string, value int) error {
	if err := c.api.PostRating(ctx, conversationID, value); err != nil {
		return err
	}
	if err := c.store.SubmitRating(conversationID, value); err != nil {
		return err
	}
	c.notices.Post("Thanks for your rating", notice.KindSuccess, 0)
	return nil
}

// =============================================================================
// NOTICES
// =============================================================================

// Notice returns the currently visible notice, if any.
func (c *Client) Notice() (notice.Notice, bool) {
	return c.notices.Current()
}

// PostNotice shows a transient notice, replacing any current one. A
// non-positive duration selects the configured default.
func (c *Client) PostNotice(message string, kind notice.Kind) {
	c.notices.Post(message, kind, 0)
}

// ClearNotice dismisses the current notice immediately.
func (c *Client) ClearNotice() {
	c.notices.Clear()
}

// =============================================================================
// SESSION AND CONSENT
// =============================================================================

// StartSession establishes the server session; the session cookie is held
// by the underlying transport for all later requests.
func (c *Client) StartSession(ctx context.Context) error {
	return c.api.StartSession(ctx)
}

// ConsentGiven reports whether the user has recorded data-collection
// consent.
func (c *Client) ConsentGiven() bool {
	v, err := c.kv.Get(consentKey)
	return err == nil && v == "true"
}

// GiveConsent records data-collection consent on the server and locally.
func (c *Client) GiveConsent(ctx context.Context) error {
	if err := c.api.PutConsent(ctx); err != nil {
		return err
	}
	return c.kv.Set(consentKey, "true")
}
