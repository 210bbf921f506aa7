// Package gesture turns a pointer interaction on the front item into a drag,
// decides at release whether it commits or settles back, and reports commits
// through a single callback.
package gesture

import (
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/abelbrown/swipedeck/internal/clock"
	"github.com/abelbrown/swipedeck/internal/logging"
	"github.com/abelbrown/swipedeck/internal/otel"
)

// Defaults.
const (
	DefaultThreshold      = 100.0
	DefaultMaxRotation    = 15.0
	DefaultExitDistance   = 1000.0
	DefaultExitDuration   = 100 * time.Millisecond
	DefaultSettleDuration = 200 * time.Millisecond
)

// Axis restricts which displacement components count.
type Axis int

const (
	AxisVertical Axis = iota
	AxisHorizontal
	AxisFree
)

// Direction restricts the sign of motion on the permitted axis.
type Direction int

const (
	DirectionAny Direction = iota
	DirectionPositive
	DirectionNegative
)

// Phase is a machine state.
type Phase int

const (
	Idle Phase = iota
	Dragging
	Settling
	Committing
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Settling:
		return "settling"
	case Committing:
		return "committing"
	}
	return "unknown"
}

// Point is a pointer position in surface pixels.
type Point struct {
	X, Y float64
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Len returns the Euclidean length of p.
func (p Point) Len() float64 { return math.Hypot(p.X, p.Y) }

// Transform is the visual offset applied to an item. Animate asks the surface
// to ease into it rather than jump.
type Transform struct {
	Offset   Point
	Rotation float64 // degrees
	Animate  bool
}

// EventKind identifies a pointer event.
type EventKind int

const (
	PointerDown EventKind = iota
	PointerMove
	PointerUp
	PointerLeave
	PointerCancel
)

// PointerEvent is one pointer sample.
type PointerEvent struct {
	Kind EventKind
	At   Point
}

// Surface is the host the machine drives.
type Surface interface {
	// Front returns the id of the item that currently accepts drags.
	Front() (int, bool)
	ApplyLiveTransform(id int, t Transform)
	PlayExitAnimation(id int, t Transform)
}

// Source delivers pointer events until unsubscribed.
type Source interface {
	Subscribe(fn func(PointerEvent)) (unsubscribe func())
}

// Config holds the machine tunables.
type Config struct {
	Threshold      float64
	MaxRotation    float64
	ExitDistance   float64
	ExitDuration   time.Duration
	SettleDuration time.Duration
	Axis           Axis
	Direction      Direction
}

// DefaultConfig returns the stock tunables: vertical axis, downward only.
func DefaultConfig() Config {
	return Config{
		Threshold:      DefaultThreshold,
		MaxRotation:    DefaultMaxRotation,
		ExitDistance:   DefaultExitDistance,
		ExitDuration:   DefaultExitDuration,
		SettleDuration: DefaultSettleDuration,
		Axis:           AxisVertical,
		Direction:      DirectionPositive,
	}
}

// Session is the state of the interaction in progress.
type Session struct {
	Phase        Phase
	Target       int
	Origin       Point
	Displacement Point
}

// Machine is the drag state machine. Safe for concurrent use; surface and
// commit callbacks run without holding the lock.
type Machine struct {
	cfg       Config
	surface   Surface
	clock     clock.Clock
	committed func(id int)
	log       *log.Logger
	events    *otel.Logger

	mu      sync.Mutex
	sess    Session
	timer   clock.Timer
	started time.Time
	unsub   func()
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock sets the clock used for phase timers.
func WithClock(c clock.Clock) Option {
	return func(m *Machine) { m.clock = c }
}

// WithLogger sets the text logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Machine) { m.log = logging.Component(l, "gesture") }
}

// WithEvents sets the telemetry event logger.
func WithEvents(e *otel.Logger) Option {
	return func(m *Machine) { m.events = e }
}

// New creates a Machine driving surface. committed is called once per
// committed item, after the exit animation delay.
func New(cfg Config, surface Surface, committed func(id int), opts ...Option) *Machine {
	def := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.ExitDistance <= 0 {
		cfg.ExitDistance = def.ExitDistance
	}
	if cfg.MaxRotation < 0 {
		cfg.MaxRotation = def.MaxRotation
	}
	if committed == nil {
		committed = func(int) {}
	}
	m := &Machine{
		cfg:       cfg,
		surface:   surface,
		clock:     clock.Real{},
		committed: committed,
		log:       logging.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Attach subscribes the machine to src, replacing any previous subscription.
func (m *Machine) Attach(src Source) {
	unsub := src.Subscribe(m.Handle)
	m.mu.Lock()
	prev := m.unsub
	m.unsub = unsub
	m.mu.Unlock()
	if prev != nil {
		prev()
	}
}

// Session returns a snapshot of the current interaction.
func (m *Machine) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.Phase
}

// Handle feeds one pointer event through the machine.
func (m *Machine) Handle(ev PointerEvent) {
	switch ev.Kind {
	case PointerDown:
		m.press(ev.At)
	case PointerMove:
		m.move(ev.At)
	case PointerUp, PointerLeave:
		m.release(false)
	case PointerCancel:
		m.release(true)
	}
}

func (m *Machine) press(at Point) {
	m.mu.Lock()
	if m.sess.Phase != Idle {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	// Front is read outside the lock; the surface may call back into us.
	id, ok := m.surface.Front()
	if !ok {
		return
	}

	m.mu.Lock()
	if m.sess.Phase != Idle {
		m.mu.Unlock()
		return
	}
	m.sess = Session{Phase: Dragging, Target: id, Origin: at}
	m.started = m.clock.Now()
	m.mu.Unlock()

	m.log.Debug("drag started", "id", id)
	m.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindGestureStart, Comp: "gesture", ItemID: id})
}

func (m *Machine) move(at Point) {
	m.mu.Lock()
	if m.sess.Phase != Dragging {
		m.mu.Unlock()
		return
	}
	d := m.constrain(at.Sub(m.sess.Origin))
	m.sess.Displacement = d
	id := m.sess.Target
	t := Transform{Offset: d, Rotation: m.rotation(d)}
	m.mu.Unlock()

	m.surface.ApplyLiveTransform(id, t)
}

func (m *Machine) release(cancelled bool) {
	m.mu.Lock()
	if m.sess.Phase != Dragging {
		m.mu.Unlock()
		return
	}
	d := m.sess.Displacement
	if !cancelled && d.Len() > m.cfg.Threshold {
		m.commitLocked(d)
		return
	}
	m.settleLocked()
}

// Commit flings the front item out as if dragged twice the threshold along
// the permitted direction. Ignored unless idle or when there is no front item.
func (m *Machine) Commit() {
	m.mu.Lock()
	if m.sess.Phase != Idle {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	id, ok := m.surface.Front()
	if !ok {
		return
	}

	m.mu.Lock()
	if m.sess.Phase != Idle {
		m.mu.Unlock()
		return
	}
	m.sess = Session{Phase: Dragging, Target: id}
	m.started = m.clock.Now()
	m.commitLocked(m.syntheticDisplacement())
}

// commitLocked enters Committing. Called with mu held; releases it.
func (m *Machine) commitLocked(d Point) {
	id := m.sess.Target
	m.sess.Phase = Committing
	m.sess.Displacement = d
	exit := m.exitTransform(d)
	held := m.clock.Now().Sub(m.started)
	m.timer = m.clock.AfterFunc(m.cfg.ExitDuration, func() { m.finish(Committing, id) })
	m.mu.Unlock()

	m.log.Debug("committing", "id", id, "dx", d.X, "dy", d.Y)
	m.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindGestureCommit, Comp: "gesture", ItemID: id, Dur: held})
	m.surface.PlayExitAnimation(id, exit)
}

// settleLocked enters Settling. Called with mu held; releases it.
func (m *Machine) settleLocked() {
	id := m.sess.Target
	m.sess.Phase = Settling
	m.timer = m.clock.AfterFunc(m.cfg.SettleDuration, func() { m.finish(Settling, id) })
	m.mu.Unlock()

	m.log.Debug("settling", "id", id)
	m.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindGestureSettle, Comp: "gesture", ItemID: id})
	m.surface.ApplyLiveTransform(id, Transform{Animate: true})
}

// finish returns to Idle from phase and, after a commit, reports the item.
func (m *Machine) finish(phase Phase, id int) {
	m.mu.Lock()
	if m.sess.Phase != phase || m.sess.Target != id {
		m.mu.Unlock()
		return
	}
	m.sess = Session{}
	m.timer = nil
	m.mu.Unlock()

	if phase == Committing {
		m.committed(id)
	}
}

// Close cancels a pending phase timer, drops the pointer subscription and
// returns the machine to Idle without reporting anything.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.sess = Session{}
	unsub := m.unsub
	m.unsub = nil
	m.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// constrain applies the axis and direction restrictions to a raw displacement.
func (m *Machine) constrain(d Point) Point {
	switch m.cfg.Axis {
	case AxisVertical:
		d.X = 0
		d.Y = clampDirection(d.Y, m.cfg.Direction)
	case AxisHorizontal:
		d.Y = 0
		d.X = clampDirection(d.X, m.cfg.Direction)
	case AxisFree:
		d.X = clampDirection(d.X, m.cfg.Direction)
		d.Y = clampDirection(d.Y, m.cfg.Direction)
	}
	return d
}

func clampDirection(v float64, dir Direction) float64 {
	switch dir {
	case DirectionPositive:
		return math.Max(v, 0)
	case DirectionNegative:
		return math.Min(v, 0)
	}
	return v
}

func (m *Machine) rotation(d Point) float64 {
	r := m.cfg.MaxRotation * d.X / m.cfg.Threshold
	return math.Max(-m.cfg.MaxRotation, math.Min(m.cfg.MaxRotation, r))
}

// exitTransform carries d out to ExitDistance along its own direction.
func (m *Machine) exitTransform(d Point) Transform {
	n := d.Len()
	if n == 0 {
		return Transform{Animate: true}
	}
	scale := m.cfg.ExitDistance / n
	off := Point{X: d.X * scale, Y: d.Y * scale}
	return Transform{Offset: off, Rotation: m.rotation(off), Animate: true}
}

// syntheticDisplacement points 2x the threshold along the permitted axis and
// direction. Unrestricted directions fling along +axis.
func (m *Machine) syntheticDisplacement() Point {
	v := 2 * m.cfg.Threshold
	if m.cfg.Direction == DirectionNegative {
		v = -v
	}
	if m.cfg.Axis == AxisHorizontal {
		return Point{X: v}
	}
	return Point{Y: v}
}
