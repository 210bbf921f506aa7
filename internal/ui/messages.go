// Package ui provides the Bubble Tea TUI for swipedeck.
package ui

// BoardChanged is sent when the board's card set or transforms change
// outside of Update (refills, removals, timer-driven phase changes).
type BoardChanged struct{}

// FrameTick advances spring animations by one frame.
type FrameTick struct{}

// PulseDone ends the swipe-counter highlight started at seq.
type PulseDone struct {
	Seq int
}

// HintExpired hides the swipe hint.
type HintExpired struct{}

// HistoryLoaded carries the most recent committed titles, newest first.
type HistoryLoaded struct {
	Titles []string
	Err    error
}
