package otel

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for i, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var decoded map[string]any
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			t.Fatalf("line %d: invalid JSON: %v", i, err)
		}
		out = append(out, decoded)
	}
	return out
}

func TestEmitWritesValidJSONL(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindFetchStart, Level: LevelInfo, Comp: "source", Cursor: 2, PageSize: 5})
	l.Close()

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	ev := lines[0]
	if ev["kind"] != "fetch.start" {
		t.Errorf("kind = %v, want fetch.start", ev["kind"])
	}
	if ev["comp"] != "source" {
		t.Errorf("comp = %v, want source", ev["comp"])
	}
	if ev["cursor"] != float64(2) || ev["page_size"] != float64(5) {
		t.Errorf("cursor/page_size = %v/%v, want 2/5", ev["cursor"], ev["page_size"])
	}
}

func TestEmitSetsTimeAndSessionID(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	before := time.Now()
	l.Emit(Event{Kind: KindStartup})
	l.Close()
	after := time.Now()

	var ev Event
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Time.Before(before) || ev.Time.After(after) {
		t.Errorf("time %v not in [%v, %v]", ev.Time, before, after)
	}
	if ev.SessionID == "" || ev.SessionID != l.SessionID() {
		t.Errorf("session_id = %q, want %q", ev.SessionID, l.SessionID())
	}
}

func TestDurToMs(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindFetchComplete, Dur: 1500 * time.Millisecond})
	l.Close()

	lines := decodeLines(t, &buf)
	if got, ok := lines[0]["dur_ms"].(float64); !ok || got != 1500 {
		t.Errorf("dur_ms = %v, want 1500", lines[0]["dur_ms"])
	}
}

func TestOmitempty(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindStartup})
	l.Close()

	line := strings.TrimSpace(buf.String())
	for _, field := range []string{"dur_ms", "count", "item_id", "cursor", "page_size", "err", "msg", "extra"} {
		if strings.Contains(line, `"`+field+`"`) {
			t.Errorf("expected field %q to be omitted, found in: %s", field, line)
		}
	}
}

func TestConcurrentEmit(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			l.Emit(Event{Kind: KindDeckRemove, ItemID: id + 1})
		}(i)
	}
	wg.Wait()
	l.Close()

	if lines := decodeLines(t, &buf); len(lines) != 100 {
		t.Errorf("expected 100 lines, got %d", len(lines))
	}
}

func TestNilLoggerIsNoop(t *testing.T) {
	var l *Logger
	l.Emit(Event{Kind: KindStartup})
	l.Info(KindStartup, "main", "x")
	l.SetRingBuffer(NewRingBuffer(4))
	l.Close()
	if l.Dropped() != 0 || l.SessionID() != "" || l.DroppedBy() != nil {
		t.Error("nil logger should report zero state")
	}
}

func TestCloseIdempotentAndDropsAfter(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindStartup})
	l.Close()
	l.Close()
	l.Emit(Event{Kind: KindShutdown, Comp: "main"})

	if lines := decodeLines(t, &buf); len(lines) != 1 {
		t.Errorf("expected 1 line, got %d", len(lines))
	}
	if l.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", l.Dropped())
	}
	if got := l.DroppedBy()["main"]; got != 1 {
		t.Errorf("DroppedBy()[main] = %d, want 1", got)
	}
}

type blockingWriter struct {
	started chan struct{}
	block   chan struct{}
	once    sync.Once
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	w.once.Do(func() {
		close(w.started)
		<-w.block
	})
	return len(p), nil
}

func TestDropCounter(t *testing.T) {
	bw := &blockingWriter{started: make(chan struct{}), block: make(chan struct{})}
	l := NewLogger(bw)

	l.Emit(Event{Kind: KindFetchStart})
	<-bw.started

	for i := 0; i < writerChanSize+10; i++ {
		l.Emit(Event{Kind: KindFetchStart, Comp: "source"})
	}
	l.Emit(Event{Kind: KindDeckRemove, Comp: "deck"})
	l.Emit(Event{Kind: KindStartup})

	by := l.DroppedBy()
	if by["source"] == 0 {
		t.Error("expected source drops when channel is full, got 0")
	}
	if by["deck"] != 1 || by[unattributed] != 1 {
		t.Errorf("DroppedBy() = %v, want deck=1 and %s=1", by, unattributed)
	}
	if sum := by["source"] + by["deck"] + by[unattributed]; sum != l.Dropped() {
		t.Errorf("per-component sum %d != Dropped() %d", sum, l.Dropped())
	}

	close(bw.block)
	l.Close()
}

func TestFormatDropsSortedByComponent(t *testing.T) {
	got := formatDrops(map[string]uint64{"source": 1, "deck": 2, unattributed: 3})
	if want := "-=3 deck=2 source=1"; got != want {
		t.Errorf("formatDrops = %q, want %q", got, want)
	}
}

func TestConvenienceHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Info(KindStartup, "main", "starting")
	l.Warn(KindFetchFallback, "source", "timeout")
	l.Error(KindError, "deck", errors.New("boom"))
	l.Close()

	lines := decodeLines(t, &buf)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}

	tests := []struct {
		level, kind, comp string
	}{
		{"info", "sys.startup", "main"},
		{"warn", "fetch.fallback", "source"},
		{"error", "sys.error", "deck"},
	}
	for i, tt := range tests {
		if lines[i]["level"] != tt.level || lines[i]["kind"] != tt.kind || lines[i]["comp"] != tt.comp {
			t.Errorf("line %d = %v, want level=%s kind=%s comp=%s", i, lines[i], tt.level, tt.kind, tt.comp)
		}
	}
	if lines[2]["err"] != "boom" {
		t.Errorf("err = %v, want boom", lines[2]["err"])
	}
}
