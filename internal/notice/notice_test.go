// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package notice provides the single-slot transient notification.
package notice

import (
	"testing"
	"time"
)

// =============================================================================
// SLOT TESTS
// =============================================================================

func TestSlot_PostAndCurrent(t *testing.T) {
	slot := NewSlot(0)
	slot.Post("copied", KindInfo, time.Minute)

	n, ok := slot.Current()
	if !ok {
		t.Fatal("Expected a live notice")
	}
	if n.Message != "copied" || n.Kind != KindInfo {
		t.Errorf("Notice = %+v", n)
	}
	if !n.Expiry.After(time.Now()) {
		t.Error("Expiry should be in the future")
	}
}

func TestSlot_Empty(t *testing.T) {
	slot := NewSlot(0)
	if _, ok := slot.Current(); ok {
		t.Error("New slot should hold no notice")
	}
}

func TestSlot_Expires(t *testing.T) {
	slot := NewSlot(0)
	slot.Post("short lived", KindSuccess, 20*time.Millisecond)

	time.Sleep(80 * time.Millisecond)
	if _, ok := slot.Current(); ok {
		t.Error("Notice should have expired")
	}
}

func TestSlot_ReplaceRestartsCountdown(t *testing.T) {
	slot := NewSlot(0)
	slot.Post("first", KindInfo, 30*time.Millisecond)
	slot.Post("second", KindDanger, time.Minute)

	// Past the first notice's expiry: the replacement must still be live,
	// since posting cancels the earlier countdown outright.
	time.Sleep(80 * time.Millisecond)

	n, ok := slot.Current()
	if !ok {
		t.Fatal("Replacement notice should still be live")
	}
	if n.Message != "second" || n.Kind != KindDanger {
		t.Errorf("Notice = %+v, want the replacement", n)
	}
}

func TestSlot_Clear(t *testing.T) {
	slot := NewSlot(0)
	slot.Post("to clear", KindWarning, time.Minute)
	slot.Clear()

	if _, ok := slot.Current(); ok {
		t.Error("Cleared slot should hold no notice")
	}
}

func TestSlot_DefaultDuration(t *testing.T) {
	slot := NewSlot(40 * time.Millisecond)
	slot.Post("defaulted", KindInfo, 0)

	if _, ok := slot.Current(); !ok {
		t.Fatal("Notice should be live immediately after posting")
	}

	time.Sleep(120 * time.Millisecond)
	if _, ok := slot.Current(); ok {
		t.Error("Notice should expire after the slot default duration")
	}
}
