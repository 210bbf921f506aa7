// Package deck owns the ordered stack of pending items. It prefetches a batch
// whenever the stack drops below the low-water mark, drops duplicates, and
// drives the render sink so every item is materialized exactly once.
package deck

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/abelbrown/swipedeck/internal/card"
	"github.com/abelbrown/swipedeck/internal/clock"
	"github.com/abelbrown/swipedeck/internal/logging"
	"github.com/abelbrown/swipedeck/internal/otel"
)

// Defaults.
const (
	DefaultLowWaterMark = 3
	DefaultBatchSize    = 5
	DefaultRemoveDelay  = 300 * time.Millisecond
)

// pager interface for dependency injection (testing).
type pager interface {
	FetchPage(ctx context.Context, pageSize int) (card.Page, error)
}

// Sink renders items. Materialize is called once per item entering the
// stack; Dematerialize once per removed item, after the removal delay.
type Sink interface {
	Materialize(item card.Item)
	Dematerialize(id int)
}

// History records committed items.
type History interface {
	RecordCommit(item card.Item, at time.Time) error
}

// Config holds the controller tunables.
type Config struct {
	LowWaterMark int
	BatchSize    int
	RemoveDelay  time.Duration
}

// DefaultConfig returns the stock tunables.
func DefaultConfig() Config {
	return Config{
		LowWaterMark: DefaultLowWaterMark,
		BatchSize:    DefaultBatchSize,
		RemoveDelay:  DefaultRemoveDelay,
	}
}

// Controller manages the stack. Safe for concurrent use; sink and history
// calls are made without holding the lock.
// Uses context cancellation as the ONLY stop mechanism for refills.
type Controller struct {
	pager   pager
	sink    Sink
	cfg     Config
	clock   clock.Clock
	history History
	log     *log.Logger
	events  *otel.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	stack        []card.Item
	materialized map[int]bool // rendered and not yet dematerialized
	pending      map[int]clock.Timer
	refilling    bool
	swipes       int
	closed       bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock used for removal delays.
func WithClock(c clock.Clock) Option {
	return func(d *Controller) { d.clock = c }
}

// WithHistory records every committed item.
func WithHistory(h History) Option {
	return func(d *Controller) { d.history = h }
}

// WithLogger sets the text logger.
func WithLogger(l *log.Logger) Option {
	return func(d *Controller) { d.log = logging.Component(l, "deck") }
}

// WithEvents sets the telemetry event logger.
func WithEvents(e *otel.Logger) Option {
	return func(d *Controller) { d.events = e }
}

// New creates a Controller fetching from p and rendering into sink.
// Non-positive tunables fall back to their defaults.
func New(p pager, sink Sink, cfg Config, opts ...Option) *Controller {
	def := DefaultConfig()
	if cfg.LowWaterMark <= 0 {
		cfg.LowWaterMark = def.LowWaterMark
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.RemoveDelay < 0 {
		cfg.RemoveDelay = def.RemoveDelay
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Controller{
		pager:        p,
		sink:         sink,
		cfg:          cfg,
		clock:        clock.Real{},
		log:          logging.Discard(),
		ctx:          ctx,
		cancel:       cancel,
		materialized: make(map[int]bool),
		pending:      make(map[int]clock.Timer),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Initialize fetches the first page of initialCount items and materializes
// it. Returns the source's validation error for a bad count.
func (d *Controller) Initialize(ctx context.Context, initialCount int) error {
	start := time.Now()
	page, err := d.pager.FetchPage(ctx, initialCount)
	if err != nil {
		return err
	}

	added := d.merge(page)
	d.log.Info("deck initialized", "fetched", len(page), "added", added)
	d.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindDeckInit, Comp: "deck", PageSize: initialCount, Count: added, Dur: time.Since(start)})
	return nil
}

// Remove evicts id from the stack. Unknown ids are ignored. The sink is told
// to dematerialize after the removal delay, and a refill starts if the stack
// fell below the low-water mark.
func (d *Controller) Remove(id int) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}

	idx := -1
	for i, it := range d.stack {
		if it.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		d.mu.Unlock()
		d.log.Debug("remove ignored, not in stack", "id", id)
		return
	}

	item := d.stack[idx]
	d.stack = append(d.stack[:idx], d.stack[idx+1:]...)
	d.swipes++
	remaining := len(d.stack)

	d.pending[id] = d.clock.AfterFunc(d.cfg.RemoveDelay, func() { d.dematerialize(id) })

	low := remaining < d.cfg.LowWaterMark
	startRefill := low && !d.refilling
	if startRefill {
		d.refilling = true
		d.wg.Add(1)
	}
	d.mu.Unlock()

	d.log.Debug("removed", "id", id, "remaining", remaining)
	d.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindDeckRemove, Comp: "deck", ItemID: id, Count: remaining})

	if d.history != nil {
		if err := d.history.RecordCommit(item, d.clock.Now()); err != nil {
			d.log.Warn("history record failed", "id", id, "err", err)
		}
	}

	switch {
	case startRefill:
		go d.refill()
	case low:
		d.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindRefillSuppressed, Comp: "deck", Count: remaining})
	}
}

// refill fetches one batch and merges it. Runs on its own goroutine; the
// caller has already set refilling and added to the wait group.
func (d *Controller) refill() {
	defer d.wg.Done()

	start := time.Now()
	page, err := d.pager.FetchPage(d.ctx, d.cfg.BatchSize)

	added := 0
	if err != nil {
		d.log.Warn("refill failed", "err", err)
	} else if d.ctx.Err() == nil {
		added = d.merge(page)
	}

	d.mu.Lock()
	d.refilling = false
	remaining := len(d.stack)
	d.mu.Unlock()

	d.log.Debug("refill complete", "added", added, "stack", remaining)
	d.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindDeckRefill, Comp: "deck", PageSize: d.cfg.BatchSize, Count: added, Dur: time.Since(start)})
}

// merge appends every item of page not already in the stack or still
// materialized, in page order, and returns how many were appended.
func (d *Controller) merge(page card.Page) int {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0
	}

	present := make(map[int]bool, len(d.stack)+len(d.materialized))
	for _, it := range d.stack {
		present[it.ID] = true
	}
	for id := range d.materialized {
		present[id] = true
	}

	var fresh []card.Item
	for _, it := range page {
		if present[it.ID] {
			continue
		}
		present[it.ID] = true
		d.stack = append(d.stack, it)
		d.materialized[it.ID] = true
		fresh = append(fresh, it)
	}
	d.mu.Unlock()

	if dup := len(page) - len(fresh); dup > 0 {
		d.log.Debug("dropped duplicates", "count", dup)
		d.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindDuplicate, Comp: "deck", Count: dup})
	}

	for _, it := range fresh {
		d.sink.Materialize(it)
	}
	return len(fresh)
}

func (d *Controller) dematerialize(id int) {
	d.mu.Lock()
	if _, ok := d.pending[id]; !ok {
		d.mu.Unlock()
		return
	}
	delete(d.pending, id)
	delete(d.materialized, id)
	d.mu.Unlock()

	d.sink.Dematerialize(id)
}

// Stack returns a copy of the current stack, front first.
func (d *Controller) Stack() []card.Item {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]card.Item, len(d.stack))
	copy(out, d.stack)
	return out
}

// Len returns the stack length.
func (d *Controller) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.stack)
}

// Swipes returns the number of committed removals.
func (d *Controller) Swipes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.swipes
}

// Refilling reports whether a refill is in flight.
func (d *Controller) Refilling() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.refilling
}

// Wait blocks until any in-flight refill finishes.
func (d *Controller) Wait() {
	d.wg.Wait()
}

// Close cancels an in-flight refill, drops pending removal timers and waits
// for the refill goroutine. Further calls are no-ops.
func (d *Controller) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for id, t := range d.pending {
		t.Stop()
		delete(d.pending, id)
	}
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
}
