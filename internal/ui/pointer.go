package ui

import (
	"math"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/swipedeck/internal/gesture"
)

// Pointer fans terminal mouse input out to gesture subscribers. It
// implements gesture.Source.
type Pointer struct {
	cellW, cellH float64

	mu     sync.Mutex
	nextID int
	subs   map[int]func(gesture.PointerEvent)
}

// NewPointer creates a Pointer that maps terminal cells to pixels using the
// given cell size.
func NewPointer(cellW, cellH float64) *Pointer {
	if cellW <= 0 {
		cellW = 1
	}
	if cellH <= 0 {
		cellH = 1
	}
	return &Pointer{cellW: cellW, cellH: cellH, subs: make(map[int]func(gesture.PointerEvent))}
}

// Subscribe implements gesture.Source.
func (p *Pointer) Subscribe(fn func(gesture.PointerEvent)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

// Dispatch delivers ev to every subscriber.
func (p *Pointer) Dispatch(ev gesture.PointerEvent) {
	p.mu.Lock()
	fns := make([]func(gesture.PointerEvent), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Point converts a terminal cell to surface pixels.
func (p *Pointer) Point(x, y int) gesture.Point {
	return gesture.Point{X: float64(x) * p.cellW, Y: float64(y) * p.cellH}
}

// CellOffset converts a pixel offset back to whole cells.
func (p *Pointer) CellOffset(off gesture.Point) (dx, dy int) {
	return int(math.Round(off.X / p.cellW)), int(math.Round(off.Y / p.cellH))
}

// FromMouse maps a left-button mouse event to a pointer event. Other buttons
// and wheel events report false.
func (p *Pointer) FromMouse(msg tea.MouseMsg) (gesture.PointerEvent, bool) {
	at := p.Point(msg.X, msg.Y)
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return gesture.PointerEvent{}, false
		}
		return gesture.PointerEvent{Kind: gesture.PointerDown, At: at}, true
	case tea.MouseActionMotion:
		return gesture.PointerEvent{Kind: gesture.PointerMove, At: at}, true
	case tea.MouseActionRelease:
		return gesture.PointerEvent{Kind: gesture.PointerUp, At: at}, true
	}
	return gesture.PointerEvent{}, false
}

