package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/swipedeck/internal/card"
	"github.com/abelbrown/swipedeck/internal/clock"
	"github.com/abelbrown/swipedeck/internal/gesture"
	"github.com/abelbrown/swipedeck/internal/otel"
)

type fakeCommitter struct {
	commits int
	phase   gesture.Phase
}

func (f *fakeCommitter) Commit()              { f.commits++ }
func (f *fakeCommitter) Phase() gesture.Phase { return f.phase }

type fakeDeck struct {
	swipes    int
	refilling bool
	n         int
}

func (d *fakeDeck) Swipes() int     { return d.swipes }
func (d *fakeDeck) Refilling() bool { return d.refilling }
func (d *fakeDeck) Len() int        { return d.n }

func newTestModel(g committer, d deckStats, items ...card.Item) (Model, *Board, *Pointer) {
	board := NewBoard(nil)
	for _, it := range items {
		board.Materialize(it)
	}
	pointer := NewPointer(8, 16)
	m := New(Config{Board: board, Pointer: pointer, Gesture: g, Deck: d})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return next.(Model), board, pointer
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestViewBeforeReady(t *testing.T) {
	m := New(Config{Board: NewBoard(nil), Pointer: NewPointer(8, 16), Gesture: &fakeCommitter{}, Deck: &fakeDeck{}})
	if got := m.View(); got != "Loading..." {
		t.Errorf("View() = %q", got)
	}
}

func TestViewRendersFrontCard(t *testing.T) {
	m, _, _ := newTestModel(&fakeCommitter{}, &fakeDeck{n: 2},
		card.Item{ID: 12, Title: "Paul Jarvis", Body: "Photo by Paul Jarvis - 2500x1667",
			MediaRef: "https://picsum.photos/id/12/2500/1667", Metrics: &card.Metrics{Width: 2500, Height: 1667}},
		card.Item{ID: 13, Title: "Behind"},
	)

	view := m.View()
	for _, want := range []string{"Card #12", "Paul Jarvis", "2500 × 1667", "+1 more", "Swipes: 0", swipeHint} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "Card #13") {
		t.Error("card behind the front should not render")
	}
}

func TestViewEmptyStack(t *testing.T) {
	m, _, _ := newTestModel(&fakeCommitter{}, &fakeDeck{})
	if !strings.Contains(m.View(), "No cards left.") {
		t.Errorf("expected empty placeholder, got:\n%s", m.View())
	}

	m, _, _ = newTestModel(&fakeCommitter{}, &fakeDeck{refilling: true})
	if !strings.Contains(m.View(), "Loading cards...") {
		t.Errorf("expected loading placeholder, got:\n%s", m.View())
	}
}

func TestRefillIndicatorInStatusBar(t *testing.T) {
	m, _, _ := newTestModel(&fakeCommitter{}, &fakeDeck{refilling: true, n: 2}, card.Item{ID: 1})
	if !strings.Contains(m.View(), "Loading more...") {
		t.Errorf("status bar should show refill, got:\n%s", m.View())
	}
}

func TestTruncateTitle(t *testing.T) {
	long := strings.Repeat("é", 60)
	got := truncateTitle(long)
	if want := strings.Repeat("é", 50) + "..."; got != want {
		t.Errorf("truncateTitle() = %q, want %q", got, want)
	}
	if got := truncateTitle("short"); got != "short" {
		t.Errorf("truncateTitle(short) = %q", got)
	}
}

func TestCommitKeys(t *testing.T) {
	g := &fakeCommitter{}
	m, _, _ := newTestModel(g, &fakeDeck{n: 1}, card.Item{ID: 1})

	for _, msg := range []tea.KeyMsg{
		runes("l"), {Type: tea.KeyRight}, runes("n"), {Type: tea.KeyLeft}, {Type: tea.KeySpace},
	} {
		m, _ = update(t, m, msg)
	}
	if g.commits != 5 {
		t.Errorf("commits = %d, want 5", g.commits)
	}
}

func TestQuitKey(t *testing.T) {
	m, _, _ := newTestModel(&fakeCommitter{}, &fakeDeck{})
	_, cmd := update(t, m, runes("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestDebugToggle(t *testing.T) {
	ring := otel.NewRingBuffer(16)
	board := NewBoard(nil)
	m := New(Config{Board: board, Pointer: NewPointer(8, 16), Gesture: &fakeCommitter{}, Deck: &fakeDeck{}, Ring: ring})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	if m.Debug() {
		t.Error("debug should be hidden initially")
	}

	m, _ = update(t, m, runes("D"))
	if !m.Debug() {
		t.Fatal("D should show debug overlay")
	}
	if view := m.View(); !strings.Contains(view, "[DEBUG]") {
		t.Errorf("debug view should contain '[DEBUG]', got:\n%s", view)
	}

	m, _ = update(t, m, runes("D"))
	if m.Debug() {
		t.Error("second D should hide debug overlay")
	}
}

func TestHintExpires(t *testing.T) {
	m, _, _ := newTestModel(&fakeCommitter{}, &fakeDeck{}, card.Item{ID: 1})
	m, _ = update(t, m, HintExpired{})
	if strings.Contains(m.View(), swipeHint) {
		t.Error("hint should be hidden after expiry")
	}
}

func TestSwipePulse(t *testing.T) {
	d := &fakeDeck{n: 1}
	m, _, _ := newTestModel(&fakeCommitter{}, d, card.Item{ID: 1})

	m, _ = update(t, m, BoardChanged{})
	if m.pulse {
		t.Fatal("no swipe yet, no pulse")
	}

	d.swipes = 1
	m, cmd := update(t, m, BoardChanged{})
	if !m.pulse || cmd == nil {
		t.Fatal("swipe should start the pulse")
	}
	if !strings.Contains(m.View(), "Swipes: 1") {
		t.Error("counter should show 1")
	}

	d.swipes = 2
	m, _ = update(t, m, BoardChanged{})
	m, _ = update(t, m, PulseDone{Seq: 1})
	if !m.pulse {
		t.Error("stale PulseDone should not end the newer pulse")
	}
	m, _ = update(t, m, PulseDone{Seq: 2})
	if m.pulse {
		t.Error("pulse should end")
	}
}

func TestHistoryFooter(t *testing.T) {
	m, _, _ := newTestModel(&fakeCommitter{}, &fakeDeck{n: 1}, card.Item{ID: 1})
	m, _ = update(t, m, HistoryLoaded{Titles: []string{"Paul Jarvis", "Alejandro Escamilla"}})
	if !strings.Contains(m.View(), "Recent: Paul Jarvis · Alejandro Escamilla") {
		t.Errorf("footer missing history:\n%s", m.View())
	}
}

func TestLoadHistoryUsesProvider(t *testing.T) {
	board := NewBoard(nil)
	m := New(Config{
		Board: board, Pointer: NewPointer(8, 16), Gesture: &fakeCommitter{}, Deck: &fakeDeck{},
		History: func(n int) ([]string, error) {
			if n != historySize {
				t.Errorf("history limit = %d, want %d", n, historySize)
			}
			return []string{"x"}, nil
		},
	})
	msg := m.loadHistory()()
	got, ok := msg.(HistoryLoaded)
	if !ok || len(got.Titles) != 1 || got.Titles[0] != "x" {
		t.Errorf("loadHistory() = %#v", msg)
	}
}

// dragRig wires a real gesture machine to the model's board and pointer.
type dragRig struct {
	m         Model
	board     *Board
	clock     *clock.Fake
	machine   *gesture.Machine
	committed []int
}

func newDragRig(t *testing.T) *dragRig {
	t.Helper()
	r := &dragRig{clock: clock.NewFake(time.Unix(0, 0))}
	r.board = NewBoard(nil)
	r.board.Materialize(card.Item{ID: 1, Title: "front"})
	r.board.Materialize(card.Item{ID: 2, Title: "next"})

	pointer := NewPointer(8, 16)
	r.machine = gesture.New(gesture.DefaultConfig(), r.board, func(id int) { r.committed = append(r.committed, id) },
		gesture.WithClock(r.clock))
	r.machine.Attach(pointer)
	t.Cleanup(r.machine.Close)

	r.m = New(Config{Board: r.board, Pointer: pointer, Gesture: r.machine, Deck: &fakeDeck{n: 2}})
	r.m, _ = update(t, r.m, tea.WindowSizeMsg{Width: 80, Height: 30})
	return r
}

func mouse(action tea.MouseAction, x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: action, Button: tea.MouseButtonLeft}
}

func TestMouseDragCommits(t *testing.T) {
	r := newDragRig(t)

	r.m, _ = update(t, r.m, mouse(tea.MouseActionPress, 40, 5))
	if r.machine.Phase() != gesture.Dragging {
		t.Fatalf("press on card should start a drag, phase=%v", r.machine.Phase())
	}

	// 8 rows of 16px is past the 100px threshold.
	r.m, _ = update(t, r.m, mouse(tea.MouseActionMotion, 40, 13))
	if off := r.board.Snapshot()[0].Offset; off.Y != 128 {
		t.Errorf("live offset = %+v, want Y=128", off)
	}

	r.m, _ = update(t, r.m, mouse(tea.MouseActionRelease, 40, 13))
	if r.machine.Phase() != gesture.Committing {
		t.Fatalf("phase = %v, want committing", r.machine.Phase())
	}
	if !r.m.ticking {
		t.Error("exit animation should start the frame loop")
	}

	r.clock.Advance(gesture.DefaultExitDuration)
	if len(r.committed) != 1 || r.committed[0] != 1 {
		t.Errorf("committed = %v, want [1]", r.committed)
	}
	if id, _ := r.board.Front(); id != 2 {
		t.Errorf("front after commit = %d, want 2", id)
	}
}

func TestMouseShortDragSettles(t *testing.T) {
	r := newDragRig(t)

	r.m, _ = update(t, r.m, mouse(tea.MouseActionPress, 40, 5))
	r.m, _ = update(t, r.m, mouse(tea.MouseActionMotion, 40, 8))
	r.m, _ = update(t, r.m, mouse(tea.MouseActionRelease, 40, 8))

	if r.machine.Phase() != gesture.Settling {
		t.Fatalf("phase = %v, want settling", r.machine.Phase())
	}
	for i := 0; i < 600; i++ {
		r.m, _ = update(t, r.m, FrameTick{})
		if !r.m.ticking {
			break
		}
	}
	if off := r.board.Snapshot()[0].Offset; off != (gesture.Point{}) {
		t.Errorf("card should spring back to rest, offset=%+v", off)
	}
}

func TestMousePressOffCardIgnored(t *testing.T) {
	r := newDragRig(t)
	r.m, _ = update(t, r.m, mouse(tea.MouseActionPress, 0, 0))
	if r.machine.Phase() != gesture.Idle {
		t.Errorf("press off the card started a drag")
	}
}

func TestEscCancelsDrag(t *testing.T) {
	r := newDragRig(t)
	r.m, _ = update(t, r.m, mouse(tea.MouseActionPress, 40, 5))
	r.m, _ = update(t, r.m, mouse(tea.MouseActionMotion, 40, 20))
	r.m, _ = update(t, r.m, tea.KeyMsg{Type: tea.KeyEsc})

	if r.machine.Phase() != gesture.Settling {
		t.Errorf("esc should settle, phase=%v", r.machine.Phase())
	}
}

func TestBlurReleasesDrag(t *testing.T) {
	r := newDragRig(t)
	r.m, _ = update(t, r.m, mouse(tea.MouseActionPress, 40, 5))
	r.m, _ = update(t, r.m, mouse(tea.MouseActionMotion, 40, 20))
	r.m, _ = update(t, r.m, tea.BlurMsg{})

	if r.machine.Phase() != gesture.Committing {
		t.Errorf("leaving past the threshold should commit, phase=%v", r.machine.Phase())
	}
}
