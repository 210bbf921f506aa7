package otel

import "sync"

// DefaultRingSize is the ring capacity used when a non-positive size is given.
const DefaultRingSize = 256

// RingBuffer is a fixed-size circular buffer of Events. Goroutine-safe.
type RingBuffer struct {
	mu    sync.Mutex
	buf   []Event
	head  int // next write position
	count int // valid entries (0..len(buf))
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingBuffer{buf: make([]Event, size)}
}

// Push adds an event, overwriting the oldest if full. The Extra map is
// copied so later writes by the emitter don't alias the stored event.
func (r *RingBuffer) Push(e Event) {
	if e.Extra != nil {
		cp := make(map[string]any, len(e.Extra))
		for k, v := range e.Extra {
			cp[k] = v
		}
		e.Extra = cp
	}
	r.mu.Lock()
	r.buf[r.head] = e
	r.head = (r.head + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
	r.mu.Unlock()
}

// Snapshot returns all buffered events, oldest first.
func (r *RingBuffer) Snapshot() []Event {
	return r.Last(r.Cap())
}

// Last returns the n most recent events, oldest first. Returns nil for
// n <= 0 or an empty buffer.
func (r *RingBuffer) Last(n int) []Event {
	if n <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return nil
	}
	if n > r.count {
		n = r.count
	}

	size := len(r.buf)
	result := make([]Event, n)
	start := (r.head - n + size) % size
	if start+n <= size {
		copy(result, r.buf[start:start+n])
	} else {
		first := copy(result, r.buf[start:])
		copy(result[first:], r.buf[:n-first])
	}
	return result
}

// Len returns the number of buffered events.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Cap returns the buffer capacity.
func (r *RingBuffer) Cap() int {
	return len(r.buf)
}

// Stats returns counts by EventKind over all buffered events.
func (r *RingBuffer) Stats() map[EventKind]int {
	counts := make(map[EventKind]int)
	for _, e := range r.Snapshot() {
		counts[e.Kind]++
	}
	return counts
}
