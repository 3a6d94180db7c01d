// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the chat service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/chatcore/internal/model"
	"github.com/jeranaias/chatcore/internal/stream"
)

// Configuration constants for the chat service client.
const (
	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// DefaultRequestsPerSecond is the client-side politeness limit.
	DefaultRequestsPerSecond = 5

	// defaultBurst allows short bursts above the steady rate.
	defaultBurst = 10
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatMessage is one turn of the outgoing history.
type ChatMessage struct {
	Role    model.Role `json:"role"`
	Content string     `json:"content"`
}

// ChatRequest is the body of the streaming chat exchange. It always carries
// the entire message history of the conversation; the server is stateless
// per request except for identity continuity via the conversation id.
type ChatRequest struct {
	ConversationID string        `json:"conversation_id,omitempty"`
	Messages       []ChatMessage `json:"messages"`
}

// feedbackRequest is the body of the message feedback endpoint.
type feedbackRequest struct {
	MessageID int64           `json:"message_id"`
	Feedback  *model.Feedback `json:"feedback"`
}

// ratingRequest is the body of the conversation rating endpoint.
type ratingRequest struct {
	ConversationID string `json:"conversation_id"`
	Rating         int    `json:"rating"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Config holds client construction options.
type Config struct {
	// BaseURL is the service root, e.g. "https://chat.example.edu/api".
	BaseURL string

	// Timeout bounds non-streaming requests (default: DefaultTimeout).
	Timeout time.Duration

	// RequestsPerSecond is the politeness limit (default:
	// DefaultRequestsPerSecond; negative disables limiting).
	RequestsPerSecond float64
}

// Client talks to the chat service. Streaming requests use a dedicated
// http.Client with no overall timeout; the stream is bounded by its context
// instead. Both clients share one cookie jar so the session cookie issued
// by the server travels on every request.
type Client struct {
	baseURL   string
	client    *http.Client
	streaming *http.Client
	limiter   *rate.Limiter
}

// NewClient creates a client for the service at cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("api: base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("api: failed to create cookie jar: %w", err)
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	var limiter *rate.Limiter
	switch {
	case cfg.RequestsPerSecond == 0:
		limiter = rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), defaultBurst)
	case cfg.RequestsPerSecond > 0:
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), defaultBurst)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
			Jar:       jar,
		},
		streaming: &http.Client{
			Transport: transport,
			Jar:       jar,
			// No timeout for streaming - bounded via context
		},
		limiter: limiter,
	}, nil
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// Query sends the chat request and feeds each streamed chunk to handler.
//
// A non-2xx response fails with *APIError before any chunk is delivered.
// Mid-stream errors surface as *stream.StreamError and malformed lines as
// *stream.ProtocolError; in both cases no later chunks reach the handler.
// opened, when non-nil, is called once the response stream is open.
func (c *Client) Query(ctx context.Context, req ChatRequest, opened func(), handler stream.Handler) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("api: failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("api: failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.streaming.Do(httpReq)
	if err != nil {
		return &TransportError{Op: "query", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(resp)
	}

	if opened != nil {
		opened()
	}
	return stream.NewReader(resp.Body).Process(ctx, handler)
}

// =============================================================================
// CONVERSATION ENDPOINTS
// =============================================================================

// FetchConversation loads one conversation with its full message history.
func (c *Client) FetchConversation(ctx context.Context, id string) (*model.Conversation, error) {
	if err := model.ValidateID(id); err != nil {
		return nil, err
	}
	var conv model.Conversation
	if err := c.doJSON(ctx, http.MethodGet, "/conversation/"+id, nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// FetchConversations lists the user's conversations.
func (c *Client) FetchConversations(ctx context.Context) ([]model.ConversationListItem, error) {
	var items []model.ConversationListItem
	if err := c.doJSON(ctx, http.MethodGet, "/conversations", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// HideConversation removes the conversation from the server-side listing.
// Irreversible from the client's perspective.
func (c *Client) HideConversation(ctx context.Context, id string) error {
	if err := model.ValidateID(id); err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPut, "/conversation/"+id+"/hide", nil, nil)
}

// PostFeedback submits the user's verdict on a confirmed message.
// A nil feedback clears the verdict.
func (c *Client) PostFeedback(ctx context.Context, messageID int64, fb *model.Feedback) error {
	return c.doJSON(ctx, http.MethodPost, "/feedback", feedbackRequest{MessageID: messageID, Feedback: fb}, nil)
}

// PostRating submits the explicit conversation rating.
func (c *Client) PostRating(ctx context.Context, conversationID string, value int) error {
	if err := model.ValidateID(conversationID); err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPost, "/rating", ratingRequest{ConversationID: conversationID, Rating: value}, nil)
}

// =============================================================================
// SESSION ENDPOINTS
// =============================================================================

// StartSession asks the server for a session; the response sets an httpOnly
// cookie that the shared jar carries on subsequent requests.
func (c *Client) StartSession(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/start_session", nil, nil)
}

// PutConsent records the user's data-collection consent on the server.
func (c *Client) PutConsent(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPut, "/me/consent", nil, nil)
}

// =============================================================================
// INTERNAL
// =============================================================================

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// doJSON performs a non-streaming request, decoding a JSON response into
// out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("api: failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(resp)
	}

	if out == nil {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}
	return nil
}

// decodeError turns a non-2xx response into an *APIError, falling back to
// a *TransportError when the body carries no readable detail.
func (c *Client) decodeError(resp *http.Response) error {
	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return &TransportError{
			Op:  "decode error response",
			Err: fmt.Errorf("status %d with unreadable body: %w", resp.StatusCode, err),
		}
	}
	return &APIError{Status: resp.StatusCode, Detail: payload.Detail}
}
