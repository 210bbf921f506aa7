package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
)

// CardFrame is the border around a card. The border color is set per card
// from its accent.
var CardFrame = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorPrimary).
	Padding(1, 2)

// CardBadge style for the "Card #id" badge.
var CardBadge = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// CardTitle style for the card heading.
var CardTitle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255"))

// CardBody style for the description line.
var CardBody = lipgloss.NewStyle().
	Foreground(colorSecondary)

// CardMedia style for the media reference line.
var CardMedia = lipgloss.NewStyle().
	Foreground(colorMuted).
	Italic(true)

// StackDepth style for the "+N more" line under the card.
var StackDepth = lipgloss.NewStyle().
	Foreground(colorMuted)

// Header style for the title row.
var Header = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight).
	Padding(0, 1)

// Counter style for the swipe counter.
var Counter = lipgloss.NewStyle().
	Foreground(colorSecondary).
	Padding(0, 1)

// CounterPulse style for the swipe counter right after a swipe.
var CounterPulse = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorSuccess).
	Padding(0, 1)

// Hint style for the onboarding hint.
var Hint = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Italic(true).
	Padding(0, 1)

// HistoryStyle for the recent swipes footer.
var HistoryStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(0, 1)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusBarKey style for key hints in status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBarText style for descriptive text in status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// EmptyStyle for the placeholder shown when the stack is empty.
var EmptyStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(1, 2)

// DebugPanel frames the debug overlay.
var DebugPanel = lipgloss.NewStyle().
	Border(lipgloss.NormalBorder()).
	BorderForeground(colorMuted).
	Padding(1, 1)

// DebugHeaderStyle for section headers inside the debug overlay.
var DebugHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("196")).
	Bold(true).
	Padding(0, 1)
