package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/abelbrown/swipedeck/internal/gesture"
	"github.com/abelbrown/swipedeck/internal/otel"
)

const (
	frameInterval    = time.Second / 60
	pulseDuration    = 200 * time.Millisecond
	defaultHintDelay = 4 * time.Second
	historySize      = 5
	maxCardWidth     = 52
	headerLines      = 2 // title row + hint row
	footerLines      = 3 // depth + history + status bar
	swipeHint        = "Swipe down to see the next card"
)

// committer triggers a programmatic swipe on the front card.
type committer interface {
	Commit()
	Phase() gesture.Phase
}

// deckStats is the read side of the stream controller.
type deckStats interface {
	Swipes() int
	Refilling() bool
	Len() int
}

// Config wires a Model to its collaborators.
type Config struct {
	Board   *Board
	Pointer *Pointer
	Gesture committer
	Deck    deckStats
	Ring    *otel.RingBuffer // optional: enables the debug overlay

	// History returns up to n recently committed titles, newest first.
	History func(n int) ([]string, error)

	HintDuration time.Duration // zero uses 4s
}

// Model is the root Bubble Tea model.
// IMPORTANT: Model never mutates the stack. Cards arrive through the Board,
// removals happen in the controller after a gesture commits.
type Model struct {
	board   *Board
	pointer *Pointer
	gesture committer
	deck    deckStats
	ring    *otel.RingBuffer
	history func(n int) ([]string, error)

	keys    keyMap
	spinner spinner.Model

	hintDelay    time.Duration
	showHint     bool
	pulse        bool
	pulseSeq     int
	lastSwipes   int
	recent       []string
	ticking      bool
	debugVisible bool
	err          error

	width  int
	height int
	ready  bool
}

// New creates a Model.
func New(cfg Config) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorHighlight)

	hint := cfg.HintDuration
	if hint <= 0 {
		hint = defaultHintDelay
	}

	return Model{
		board:     cfg.Board,
		pointer:   cfg.Pointer,
		gesture:   cfg.Gesture,
		deck:      cfg.Deck,
		ring:      cfg.Ring,
		history:   cfg.History,
		keys:      defaultKeyMap(),
		spinner:   s,
		hintDelay: hint,
		showHint:  true,
	}
}

// Init starts listening for board changes and schedules the hint timeout.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.listen(),
		m.spinner.Tick,
		tea.Tick(m.hintDelay, func(time.Time) tea.Msg { return HintExpired{} }),
	)
}

// listen blocks until the board changes.
func (m Model) listen() tea.Cmd {
	ch := m.board.Changes()
	return func() tea.Msg {
		<-ch
		return BoardChanged{}
	}
}

func (m Model) loadHistory() tea.Cmd {
	if m.history == nil {
		return nil
	}
	fn := m.history
	return func() tea.Msg {
		titles, err := fn(historySize)
		return HistoryLoaded{Titles: titles, Err: err}
	}
}

func frame() tea.Cmd {
	return tea.Tick(frameInterval, func(time.Time) tea.Msg { return FrameTick{} })
}

// Update handles messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		ev, ok := m.pointer.FromMouse(msg)
		if !ok {
			return m, nil
		}
		if ev.Kind == gesture.PointerDown && !m.overFront(msg.X, msg.Y) {
			return m, nil
		}
		m.pointer.Dispatch(ev)
		return m.startFrames()

	case tea.BlurMsg:
		m.pointer.Dispatch(gesture.PointerEvent{Kind: gesture.PointerLeave})
		return m.startFrames()

	case BoardChanged:
		var cmds []tea.Cmd
		cmds = append(cmds, m.listen())
		if swipes := m.deck.Swipes(); swipes != m.lastSwipes {
			m.lastSwipes = swipes
			m.pulse = true
			m.pulseSeq++
			seq := m.pulseSeq
			cmds = append(cmds,
				tea.Tick(pulseDuration, func(time.Time) tea.Msg { return PulseDone{Seq: seq} }),
				m.loadHistory(),
			)
		}
		var cmd tea.Cmd
		m, cmd = m.startFrames()
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case FrameTick:
		if m.board.Step() {
			return m, frame()
		}
		m.ticking = false
		return m, nil

	case PulseDone:
		if msg.Seq == m.pulseSeq {
			m.pulse = false
		}
		return m, nil

	case HintExpired:
		m.showHint = false
		return m, nil

	case HistoryLoaded:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.recent = msg.Titles
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleKeyMsg processes keyboard input.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.err != nil {
		m.err = nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Debug):
		m.debugVisible = !m.debugVisible
		return m, nil

	case key.Matches(msg, m.keys.Like), key.Matches(msg, m.keys.Nope), key.Matches(msg, m.keys.Skip):
		m.gesture.Commit()
		return m.startFrames()

	case key.Matches(msg, m.keys.Cancel):
		m.pointer.Dispatch(gesture.PointerEvent{Kind: gesture.PointerCancel})
		return m.startFrames()
	}

	return m, nil
}

// startFrames begins the frame loop if a card is animating and no loop is
// running.
func (m Model) startFrames() (Model, tea.Cmd) {
	if m.ticking || !m.board.Animating() {
		return m, nil
	}
	m.ticking = true
	return m, frame()
}

// View renders the UI.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.debugVisible && m.ring != nil {
		return debugOverlay(m.ring, m.width, m.height-1) + "\n" + debugStatusBar(m.width)
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	if m.showHint {
		b.WriteString(Hint.Render(swipeHint))
	}
	b.WriteString("\n")
	b.WriteString(m.renderCards())
	b.WriteString("\n")
	b.WriteString(m.renderDepth())
	b.WriteString("\n")
	b.WriteString(m.renderHistory())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m Model) renderHeader() string {
	title := Header.Render("swipedeck")
	counter := Counter
	if m.pulse {
		counter = CounterPulse
	}
	count := counter.Render(fmt.Sprintf("Swipes: %d", m.deck.Swipes()))
	pad := m.width - lipgloss.Width(title) - lipgloss.Width(count)
	if pad < 1 {
		pad = 1
	}
	return title + strings.Repeat(" ", pad) + count
}

func (m Model) cardAreaHeight() int {
	h := m.height - headerLines - footerLines
	if h < 1 {
		h = 1
	}
	return h
}

func (m Model) cardWidth() int {
	w := m.width - 4
	if w > maxCardWidth {
		w = maxCardWidth
	}
	if w < 16 {
		w = 16
	}
	return w
}

// placement is where a card lands inside the card area, in cells.
type placement struct {
	left, top     int
	width, height int
	lines         []string
}

func (m Model) place(v CardView) placement {
	rendered := renderCard(v, m.cardWidth())
	lines := strings.Split(rendered, "\n")
	dx, dy := m.pointer.CellOffset(v.Offset)
	w := lipgloss.Width(rendered)
	return placement{
		left:   (m.width-w)/2 + dx,
		top:    dy,
		width:  w,
		height: len(lines),
		lines:  lines,
	}
}

func (p placement) visible(areaW, areaH int) bool {
	return p.left < areaW && p.left+p.width > 0 && p.top < areaH && p.top+p.height > 0
}

// topCard picks the first card in stack order that is on screen. A card
// flying out hides the one behind it until it has left.
func (m Model) topCard() (CardView, placement, bool) {
	areaH := m.cardAreaHeight()
	for _, v := range m.board.Snapshot() {
		p := m.place(v)
		if p.visible(m.width, areaH) {
			return v, p, true
		}
	}
	return CardView{}, placement{}, false
}

func (m Model) renderCards() string {
	areaH := m.cardAreaHeight()
	rows := make([]string, areaH)

	if _, p, ok := m.topCard(); ok {
		for i, line := range p.lines {
			row := p.top + i
			if row < 0 || row >= areaH {
				continue
			}
			if p.left >= 0 {
				line = strings.Repeat(" ", p.left) + line
			} else {
				line = ansi.TruncateLeft(line, -p.left, "")
			}
			rows[row] = ansi.Truncate(line, m.width, "")
		}
	} else if m.deck.Refilling() {
		rows[0] = EmptyStyle.Render(m.spinner.View() + " Loading cards...")
	} else {
		rows[0] = EmptyStyle.Render("No cards left.")
	}

	return strings.Join(rows, "\n")
}

// overFront reports whether the terminal cell (x, y) lies on the front card.
func (m Model) overFront(x, y int) bool {
	id, ok := m.board.Front()
	if !ok {
		return false
	}
	for _, v := range m.board.Snapshot() {
		if v.Item.ID != id {
			continue
		}
		p := m.place(v)
		row := y - headerLines
		return x >= p.left && x < p.left+p.width && row >= p.top && row < p.top+p.height
	}
	return false
}

func (m Model) renderDepth() string {
	behind := m.deck.Len() - 1
	if behind <= 0 {
		return ""
	}
	return StackDepth.Render(fmt.Sprintf("  +%d more", behind))
}

func (m Model) renderHistory() string {
	if m.err != nil {
		return ErrorStyle.Render("History unavailable: " + m.err.Error())
	}
	if len(m.recent) == 0 {
		return ""
	}
	line := "Recent: " + strings.Join(m.recent, " · ")
	return HistoryStyle.Render(truncateRunes(line, max(m.width-2, 10)))
}

// renderStatusBar renders the bottom status bar with key hints and the
// refill indicator.
func (m Model) renderStatusBar() string {
	var left string
	switch {
	case m.deck.Refilling():
		left = m.spinner.View() + " Loading more... "
	case m.gesture.Phase() != gesture.Idle:
		left = " " + m.gesture.Phase().String() + " "
	default:
		left = fmt.Sprintf(" %d in stack ", m.deck.Len())
	}

	var keys []string
	for _, b := range m.keys.statusHints() {
		h := b.Help()
		keys = append(keys, StatusBarKey.Render(h.Key)+StatusBarText.Render(":"+h.Desc))
	}
	hints := strings.Join(keys, " ")

	padding := m.width - lipgloss.Width(left) - lipgloss.Width(hints)
	if padding < 0 {
		padding = 0
	}
	return StatusBar.Width(m.width).Render(left + strings.Repeat(" ", padding) + hints)
}

// Debug reports whether the debug overlay is showing (for testing).
func (m Model) Debug() bool {
	return m.debugVisible
}

// renderCard draws one card at the given outer width.
func renderCard(v CardView, width int) string {
	badge := CardBadge.Render(fmt.Sprintf("Card #%d", v.Item.ID))
	if r := math.Round(v.Rotation); r != 0 {
		badge += StackDepth.Render(fmt.Sprintf("  tilt %+.0f°", r))
	}

	inner := width - 6 // border + horizontal padding
	if inner < 4 {
		inner = 4
	}

	lines := []string{
		badge,
		"",
		CardTitle.Render(truncateTitle(v.Item.Title)),
		CardBody.Width(inner).Render(v.Item.Body),
	}
	if mt := v.Item.Metrics; mt != nil && mt.Width > 0 && mt.Height > 0 {
		lines = append(lines, CardMedia.Render(fmt.Sprintf("%d × %d", mt.Width, mt.Height)))
	}
	lines = append(lines, CardMedia.Render(truncateRunes(mediaLabel(v.Item.MediaRef), inner)))

	frame := CardFrame.Width(width - 2)
	if v.Item.Accent != "" {
		frame = frame.BorderForeground(lipgloss.Color(v.Item.Accent))
	}
	return frame.Render(strings.Join(lines, "\n"))
}

// truncateTitle keeps the first 50 runes and marks the cut with "...".
func truncateTitle(s string) string {
	r := []rune(s)
	if len(r) <= 50 {
		return s
	}
	return string(r[:50]) + "..."
}

func mediaLabel(ref string) string {
	switch {
	case ref == "":
		return "[no image]"
	case strings.HasPrefix(ref, "data:"):
		return "[inline image]"
	}
	return ref
}
