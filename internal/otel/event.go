// Package otel provides structured observability for swipedeck.
//
// Events are typed structs serialized as JSONL lines. The Logger writes
// events asynchronously via a buffered channel and background drain goroutine.
// An optional RingBuffer keeps the most recent events in memory for the
// debug overlay.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Page source
	KindFetchStart    EventKind = "fetch.start"
	KindFetchComplete EventKind = "fetch.complete"
	KindFetchFallback EventKind = "fetch.fallback"
	KindCacheHit      EventKind = "cache.hit"
	KindSourceReset   EventKind = "source.reset"

	// Deck
	KindDeckInit         EventKind = "deck.init"
	KindDeckRemove       EventKind = "deck.remove"
	KindDeckRefill       EventKind = "deck.refill"
	KindRefillSuppressed EventKind = "deck.refill_suppressed"
	KindDuplicate        EventKind = "deck.duplicate"

	// Gesture
	KindGestureStart  EventKind = "gesture.start"
	KindGestureCommit EventKind = "gesture.commit"
	KindGestureSettle EventKind = "gesture.settle"

	// System
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"
)

// Event is the universal observability record. Every field except Kind and
// Time is optional.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"` // "source", "deck", "gesture", "ui", "main"
	SessionID string         `json:"session_id,omitempty"`
	ItemID    int            `json:"item_id,omitempty"`
	Cursor    int            `json:"cursor,omitempty"`
	PageSize  int            `json:"page_size,omitempty"`
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"` // computed from Dur at marshal time
	Count     int            `json:"count,omitempty"`
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	a := struct {
		Alias
	}{Alias: Alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
