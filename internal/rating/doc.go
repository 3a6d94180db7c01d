// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package rating decides when to show the one-time conversation rating prompt.
//
// A conversation becomes eligible once it reaches six messages (three
// complete user/assistant turns) and has been neither rated nor prompted
// before. Eligibility is evaluated after each assistant finalization; the
// prompt fires at most once per conversation, ever.
//
// # Key Types
//
//   - ShouldPrompt: the pure eligibility decision
//   - Tracker: the persisted per-conversation prompted set
package rating
