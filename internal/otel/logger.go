package otel

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const writerChanSize = 2048

// unattributed is the drop bucket for events without a Comp.
const unattributed = "-"

type queued struct {
	line []byte
	ev   Event
}

// Logger writes events as JSONL from a single drain goroutine and mirrors
// them into an optional ring buffer. Lost events are tallied per component
// so a noisy subsystem is visible in the shutdown summary.
//
// A nil *Logger discards everything.
type Logger struct {
	session string
	out     io.Writer
	queue   chan queued
	done    chan struct{}

	mu    sync.Mutex // guards ring and drops
	ring  *RingBuffer
	drops map[string]uint64

	total  atomic.Uint64
	closed atomic.Bool
	once   sync.Once
}

func NewLogger(w io.Writer) *Logger {
	l := &Logger{
		session: uuid.NewString(),
		out:     w,
		queue:   make(chan queued, writerChanSize),
		done:    make(chan struct{}),
		drops:   make(map[string]uint64),
	}
	go l.drain()
	return l
}

// NewNullLogger discards output but still feeds an attached ring buffer.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard)
}

func (l *Logger) drain() {
	defer close(l.done)
	for q := range l.queue {
		if _, err := l.out.Write(q.line); err != nil {
			l.drop(q.ev.Comp)
		}
		l.mu.Lock()
		rb := l.ring
		l.mu.Unlock()
		if rb != nil {
			rb.Push(q.ev)
		}
	}
}

func (l *Logger) drop(comp string) {
	if comp == "" {
		comp = unattributed
	}
	l.total.Add(1)
	l.mu.Lock()
	l.drops[comp]++
	l.mu.Unlock()
}

// Emit stamps Time and SessionID and queues e without blocking. Events
// arriving on a full queue or after Close are dropped.
func (l *Logger) Emit(e Event) {
	if l == nil {
		return
	}
	if l.closed.Load() {
		l.drop(e.Comp)
		return
	}
	defer func() {
		// lost the race with Close
		if recover() != nil {
			l.drop(e.Comp)
		}
	}()

	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = l.session

	line, err := json.Marshal(e)
	if err != nil {
		l.drop(e.Comp)
		return
	}
	select {
	case l.queue <- queued{line: append(line, '\n'), ev: e}:
	default:
		l.drop(e.Comp)
	}
}

func (l *Logger) Info(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelInfo, Kind: kind, Comp: comp, Msg: msg})
}

func (l *Logger) Warn(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelWarn, Kind: kind, Comp: comp, Msg: msg})
}

// Error records err under kind. A nil err leaves Err empty.
func (l *Logger) Error(kind EventKind, comp string, err error) {
	e := Event{Level: LevelError, Kind: kind, Comp: comp}
	if err != nil {
		e.Err = err.Error()
	}
	l.Emit(e)
}

func (l *Logger) SessionID() string {
	if l == nil {
		return ""
	}
	return l.session
}

func (l *Logger) SetRingBuffer(rb *RingBuffer) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.ring = rb
	l.mu.Unlock()
}

// Dropped returns the number of events lost so far.
func (l *Logger) Dropped() uint64 {
	if l == nil {
		return 0
	}
	return l.total.Load()
}

// DroppedBy returns a copy of the per-component drop counts. Events with no
// Comp are counted under "-".
func (l *Logger) DroppedBy() map[string]uint64 {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]uint64, len(l.drops))
	for k, v := range l.drops {
		out[k] = v
	}
	return out
}

// Close flushes queued events and stops the drain goroutine. Safe to call
// more than once.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.once.Do(func() {
		l.closed.Store(true)
		close(l.queue)
		<-l.done
		if l.total.Load() > 0 {
			fmt.Fprintf(os.Stderr, "swipedeck: session %s dropped events: %s\n", l.session, formatDrops(l.DroppedBy()))
		}
	})
}

// formatDrops renders counts as "deck=2 source=1", sorted by component.
func formatDrops(m map[string]uint64) string {
	comps := make([]string, 0, len(m))
	for c := range m {
		comps = append(comps, c)
	}
	sort.Strings(comps)
	parts := make([]string, len(comps))
	for i, c := range comps {
		parts[i] = fmt.Sprintf("%s=%d", c, m[c])
	}
	return strings.Join(parts, " ")
}
