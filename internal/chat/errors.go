// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat owns the canonical conversation state and reconciles the
// streaming protocol into it.
package chat

import (
	"errors"
	"fmt"
)

// ErrSendInFlight is returned when a send is started while another send is
// still streaming against the active conversation.
var ErrSendInFlight = errors.New("a send is already in flight for the active conversation")

// ErrEmptyMessage is returned when a send is started with no content.
var ErrEmptyMessage = errors.New("message content is empty")

// NotFoundError is returned when an operation references a conversation or
// message that does not exist locally. Feedback on a message the server has
// not confirmed yet surfaces this way, since unconfirmed messages have no id
// to reference.
type NotFoundError struct {
	Resource string // "conversation" or "message"
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}
