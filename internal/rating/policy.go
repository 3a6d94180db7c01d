// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package rating decides when to show the one-time conversation rating prompt.
package rating

import "github.com/jeranaias/chatcore/internal/model"

// PromptThreshold is the message count at which a conversation first becomes
// eligible for the rating prompt: three complete user/assistant turns.
const PromptThreshold = 6

// DefaultValue is the rating pre-selected when the prompt is shown.
const DefaultValue = 5

// ShouldPrompt is the pure eligibility decision: the conversation has
// reached the threshold, carries no rating yet, and its id is not in the
// prompted set. Conversations without a server-assigned id never prompt;
// a rating needs an id to be submitted against.
func ShouldPrompt(conv *model.Conversation, prompted map[string]bool) bool {
	if conv == nil || conv.ID == "" {
		return false
	}
	if conv.Rating != nil {
		return false
	}
	if prompted[conv.ID] {
		return false
	}
	return len(conv.Messages) >= PromptThreshold
}
