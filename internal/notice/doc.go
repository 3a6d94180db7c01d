// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package notice provides the single-slot transient notification.
//
// A Slot holds at most one short-lived notice ("copied", "rating
// submitted") with a timer-backed expiry. Posting a new notice replaces
// any prior one and restarts the countdown; only the expiry timer clears
// the slot autonomously.
//
// # Usage
//
//	slot := notice.NewSlot(0) // default duration
//	slot.Post("Your feedback has been submitted successfully!", notice.KindSuccess, 0)
//	if n, ok := slot.Current(); ok {
//	    render(n)
//	}
package notice
