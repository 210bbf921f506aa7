package ui

import (
	"math"
	"sync"

	"github.com/charmbracelet/harmonica"

	"github.com/abelbrown/swipedeck/internal/card"
	"github.com/abelbrown/swipedeck/internal/gesture"
	"github.com/abelbrown/swipedeck/internal/sanitize"
)

// settleEpsilon is how close (pixels, degrees) a spring must get before it
// snaps to its target.
const settleEpsilon = 0.5

// CardView is a render snapshot of one card.
type CardView struct {
	Item     card.Item
	Offset   gesture.Point
	Rotation float64
	Exiting  bool
}

type boardCard struct {
	item    card.Item
	pos     gesture.Point
	vel     gesture.Point
	rot     float64
	rotVel  float64
	target  gesture.Transform
	animate bool
	exiting bool
}

// Board is the render sink shared by the stream controller and the gesture
// machine. It holds materialized cards in stack order and their live
// transforms. Safe for concurrent use; every change pokes Changes().
type Board struct {
	sanitizer sanitize.Sanitizer
	settle    harmonica.Spring
	exit      harmonica.Spring

	mu    sync.Mutex
	cards []*boardCard

	changed chan struct{}
}

// NewBoard creates a Board. Untrusted item text is passed through s on
// Materialize; nil uses the default sanitizer.
func NewBoard(s sanitize.Sanitizer) *Board {
	if s == nil {
		s = sanitize.New()
	}
	return &Board{
		sanitizer: s,
		// Critically damped: no overshoot past the resting position.
		settle:  harmonica.NewSpring(harmonica.FPS(60), 12.0, 1.0),
		exit:    harmonica.NewSpring(harmonica.FPS(60), 18.0, 1.0),
		changed: make(chan struct{}, 1),
	}
}

// Changes is poked (non-blocking, coalesced) after every board change.
func (b *Board) Changes() <-chan struct{} {
	return b.changed
}

// Notify pokes Changes without changing the board.
func (b *Board) Notify() {
	select {
	case b.changed <- struct{}{}:
	default:
	}
}

// Materialize implements deck.Sink.
func (b *Board) Materialize(it card.Item) {
	it.Title = b.sanitizer.Sanitize(it.Title)
	it.Body = b.sanitizer.Sanitize(it.Body)
	it.MediaRef = sanitize.URL(it.MediaRef)

	b.mu.Lock()
	b.cards = append(b.cards, &boardCard{item: it})
	b.mu.Unlock()
	b.Notify()
}

// Dematerialize implements deck.Sink.
func (b *Board) Dematerialize(id int) {
	b.mu.Lock()
	for i, c := range b.cards {
		if c.item.ID == id {
			b.cards = append(b.cards[:i], b.cards[i+1:]...)
			break
		}
	}
	b.mu.Unlock()
	b.Notify()
}

// Front implements gesture.Surface: the first card not already leaving.
func (b *Board) Front() (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.cards {
		if !c.exiting {
			return c.item.ID, true
		}
	}
	return 0, false
}

// ApplyLiveTransform implements gesture.Surface. Animated transforms ease in
// on Step; the rest apply immediately.
func (b *Board) ApplyLiveTransform(id int, t gesture.Transform) {
	b.mu.Lock()
	if c := b.find(id); c != nil {
		c.target = t
		c.animate = t.Animate
		if !t.Animate {
			c.pos, c.rot = t.Offset, t.Rotation
			c.vel, c.rotVel = gesture.Point{}, 0
		}
	}
	b.mu.Unlock()
	b.Notify()
}

// PlayExitAnimation implements gesture.Surface.
func (b *Board) PlayExitAnimation(id int, t gesture.Transform) {
	b.mu.Lock()
	if c := b.find(id); c != nil {
		c.target = t
		c.animate = true
		c.exiting = true
	}
	b.mu.Unlock()
	b.Notify()
}

func (b *Board) find(id int) *boardCard {
	for _, c := range b.cards {
		if c.item.ID == id {
			return c
		}
	}
	return nil
}

// Step advances every animating card by one frame. Returns whether any card
// is still moving.
func (b *Board) Step() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	moving := false
	for _, c := range b.cards {
		if !c.animate {
			continue
		}
		s := b.settle
		if c.exiting {
			s = b.exit
		}
		c.pos.X, c.vel.X = s.Update(c.pos.X, c.vel.X, c.target.Offset.X)
		c.pos.Y, c.vel.Y = s.Update(c.pos.Y, c.vel.Y, c.target.Offset.Y)
		c.rot, c.rotVel = s.Update(c.rot, c.rotVel, c.target.Rotation)

		if near(c.pos.X, c.target.Offset.X) && near(c.pos.Y, c.target.Offset.Y) &&
			near(c.rot, c.target.Rotation) && near(c.vel.X, 0) && near(c.vel.Y, 0) {
			c.pos, c.rot = c.target.Offset, c.target.Rotation
			c.vel, c.rotVel = gesture.Point{}, 0
			c.animate = false
			continue
		}
		moving = true
	}
	return moving
}

func near(a, b float64) bool {
	return math.Abs(a-b) < settleEpsilon
}

// Animating reports whether Step still has work to do.
func (b *Board) Animating() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.cards {
		if c.animate {
			return true
		}
	}
	return false
}

// Snapshot returns the cards in stack order.
func (b *Board) Snapshot() []CardView {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]CardView, len(b.cards))
	for i, c := range b.cards {
		out[i] = CardView{Item: c.item, Offset: c.pos, Rotation: c.rot, Exiting: c.exiting}
	}
	return out
}

// Len returns the number of materialized cards.
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.cards)
}
