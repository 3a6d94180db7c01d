// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatcore

import (
	"github.com/jeranaias/chatcore/internal/chat"
	"github.com/jeranaias/chatcore/internal/config"
	"github.com/jeranaias/chatcore/internal/model"
	"github.com/jeranaias/chatcore/internal/notice"
	"github.com/jeranaias/chatcore/internal/rating"
)

// Config re-exports the configuration so a Client can be constructed
// without reaching into internal packages.
type Config = config.Config

// LoadConfig loads configuration from the default config file, falling back
// to built-in defaults when no file exists.
func LoadConfig() (*Config, error) {
	return config.Load()
}

// LoadConfigFromPath loads configuration from a specific file path.
func LoadConfigFromPath(path string) (*Config, error) {
	return config.LoadFromPath(path)
}

// DefaultConfig returns a Config with the built-in default values.
func DefaultConfig() *Config {
	return config.Default()
}

// Data model re-exports so consumers never import internal packages.
type (
	Conversation         = model.Conversation
	ConversationListItem = model.ConversationListItem
	Message              = model.Message
	Role                 = model.Role
	Feedback             = model.Feedback
	Source               = model.Source

	Notice     = notice.Notice
	NoticeKind = notice.Kind

	SendState = chat.SendState
)

const (
	RoleUser      = model.RoleUser
	RoleAssistant = model.RoleAssistant

	FeedbackGood = model.FeedbackGood
	FeedbackBad  = model.FeedbackBad

	NoticeInfo    = notice.KindInfo
	NoticeSuccess = notice.KindSuccess
	NoticeWarning = notice.KindWarning
	NoticeDanger  = notice.KindDanger

	SendIdle      = chat.SendIdle
	SendSending   = chat.SendSending
	SendStreaming = chat.SendStreaming
	SendCompleted = chat.SendCompleted
	SendFailed    = chat.SendFailed

	// RatingPromptThreshold is the message count at which a conversation
	// becomes eligible for its one-time rating prompt.
	RatingPromptThreshold = rating.PromptThreshold

	// RatingDefaultValue is the preselected rating value.
	RatingDefaultValue = rating.DefaultValue
)

// Sentinel errors re-exported from the store.
var (
	ErrSendInFlight = chat.ErrSendInFlight
	ErrEmptyMessage = chat.ErrEmptyMessage
	ErrInvalidID    = model.ErrInvalidID
)
