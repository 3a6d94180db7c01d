// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package notice provides the single-slot transient notification.
package notice

import (
	"sync"
	"time"
)

// =============================================================================
// NOTICE TYPES
// =============================================================================

// Kind classifies a notice for presentation.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindDanger  Kind = "danger"
)

// DefaultDuration is the auto-dismiss duration used when a caller passes
// no explicit duration.
const DefaultDuration = 2 * time.Second

// Notice is one transient user-facing message.
type Notice struct {
	Message string
	Kind    Kind
	Expiry  time.Time
}

// =============================================================================
// NOTICE SLOT
// =============================================================================

// Slot is a process-wide single-slot holder for the current notice.
// At most one countdown is live: posting replaces the slot value and cancels
// the previous timer outright, no stacking, no overlap.
type Slot struct {
	mu         sync.Mutex
	current    *Notice
	timer      *time.Timer
	generation uint64

	defaultDuration time.Duration
}

// NewSlot creates a notice slot. A non-positive defaultDuration selects
// DefaultDuration.
func NewSlot(defaultDuration time.Duration) *Slot {
	if defaultDuration <= 0 {
		defaultDuration = DefaultDuration
	}
	return &Slot{defaultDuration: defaultDuration}
}

// Post replaces any prior notice and (re)starts the countdown. A
// non-positive duration selects the slot's default.
func (s *Slot) Post(message string, kind Kind, duration time.Duration) {
	if duration <= 0 {
		duration = s.defaultDuration
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}

	s.generation++
	gen := s.generation
	s.current = &Notice{
		Message: message,
		Kind:    kind,
		Expiry:  time.Now().Add(duration),
	}

	// The generation guard keeps a stale timer that already fired from
	// clearing a notice posted after it.
	s.timer = time.AfterFunc(duration, func() {
		s.expire(gen)
	})
}

// Current returns the live notice, if any.
func (s *Slot) Current() (Notice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Notice{}, false
	}
	return *s.current, true
}

// Clear removes the notice and cancels its countdown.
func (s *Slot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
	s.current = nil
}

func (s *Slot) expire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	s.current = nil
	s.timer = nil
}
