// Package config holds the swipedeck tunables. Values come from defaults,
// then SWIPEDECK_* environment variables, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/abelbrown/swipedeck/internal/deck"
	"github.com/abelbrown/swipedeck/internal/gesture"
	"github.com/abelbrown/swipedeck/internal/picsum"
	"github.com/abelbrown/swipedeck/internal/source"
)

// EnvPrefix prefixes every environment variable read by FromEnv.
const EnvPrefix = "SWIPEDECK_"

// Config is the full set of construction-time tunables.
type Config struct {
	Endpoint     string
	InitialCount int
	BatchSize    int
	LowWaterMark int
	FetchTimeout time.Duration
	RemoveDelay  time.Duration

	Threshold      float64 // pixels
	MaxRotation    float64 // degrees
	ExitDuration   time.Duration
	SettleDuration time.Duration
	Axis           string // "vertical", "horizontal", "free"
	Direction      string // "any", "positive", "negative"

	// Terminal cell size in pixels, for mapping mouse cells to drag distance.
	CellWidth  float64
	CellHeight float64

	LogDir   string
	LogLevel string
	EventLog bool // write the JSONL event log next to the text log
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Endpoint:       picsum.DefaultEndpoint,
		InitialCount:   5,
		BatchSize:      deck.DefaultBatchSize,
		LowWaterMark:   deck.DefaultLowWaterMark,
		FetchTimeout:   source.DefaultTimeout,
		RemoveDelay:    deck.DefaultRemoveDelay,
		Threshold:      gesture.DefaultThreshold,
		MaxRotation:    gesture.DefaultMaxRotation,
		ExitDuration:   gesture.DefaultExitDuration,
		SettleDuration: gesture.DefaultSettleDuration,
		Axis:           "vertical",
		Direction:      "positive",
		CellWidth:      8,
		CellHeight:     16,
		LogDir:         DefaultLogDir(),
		LogLevel:       "info",
		EventLog:       false,
	}
}

// DefaultLogDir returns ~/.swipedeck/logs.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "swipedeck", "logs")
	}
	return filepath.Join(home, ".swipedeck", "logs")
}

// FromEnv returns Default overlaid with any SWIPEDECK_* variables found by
// lookup (os.LookupEnv in production).
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	var errs []error

	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	float := func(name string, dst *float64) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = f
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	str("ENDPOINT", &c.Endpoint)
	integer("INITIAL_COUNT", &c.InitialCount)
	integer("BATCH_SIZE", &c.BatchSize)
	integer("LOW_WATER_MARK", &c.LowWaterMark)
	duration("FETCH_TIMEOUT", &c.FetchTimeout)
	duration("REMOVE_DELAY", &c.RemoveDelay)
	float("THRESHOLD", &c.Threshold)
	float("MAX_ROTATION", &c.MaxRotation)
	duration("EXIT_DURATION", &c.ExitDuration)
	duration("SETTLE_DURATION", &c.SettleDuration)
	str("AXIS", &c.Axis)
	str("DIRECTION", &c.Direction)
	float("CELL_WIDTH", &c.CellWidth)
	float("CELL_HEIGHT", &c.CellHeight)
	str("LOG_DIR", &c.LogDir)
	str("LOG_LEVEL", &c.LogLevel)
	boolean("EVENT_LOG", &c.EventLog)

	return c, errors.Join(errs...)
}

// Validate reports every invalid tunable.
func (c Config) Validate() error {
	var errs []error
	positive := func(name string, v float64) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("config: %s must be positive, got %v", name, v))
		}
	}

	positive("initial count", float64(c.InitialCount))
	positive("batch size", float64(c.BatchSize))
	positive("low-water mark", float64(c.LowWaterMark))
	positive("threshold", c.Threshold)
	positive("cell width", c.CellWidth)
	positive("cell height", c.CellHeight)
	if c.MaxRotation < 0 {
		errs = append(errs, fmt.Errorf("config: max rotation must not be negative, got %v", c.MaxRotation))
	}
	for name, d := range map[string]time.Duration{
		"fetch timeout":   c.FetchTimeout,
		"remove delay":    c.RemoveDelay,
		"exit duration":   c.ExitDuration,
		"settle duration": c.SettleDuration,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("config: %s must not be negative, got %v", name, d))
		}
	}
	if _, err := ParseAxis(c.Axis); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseDirection(c.Direction); err != nil {
		errs = append(errs, err)
	}
	if c.Endpoint == "" {
		errs = append(errs, errors.New("config: endpoint must not be empty"))
	}
	return errors.Join(errs...)
}

// ParseAxis maps an axis name to a gesture.Axis.
func ParseAxis(s string) (gesture.Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vertical", "y":
		return gesture.AxisVertical, nil
	case "horizontal", "x":
		return gesture.AxisHorizontal, nil
	case "free", "both":
		return gesture.AxisFree, nil
	}
	return 0, fmt.Errorf("config: unknown axis %q", s)
}

// ParseDirection maps a direction name to a gesture.Direction.
func ParseDirection(s string) (gesture.Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "any", "":
		return gesture.DirectionAny, nil
	case "positive", "down", "right":
		return gesture.DirectionPositive, nil
	case "negative", "up", "left":
		return gesture.DirectionNegative, nil
	}
	return 0, fmt.Errorf("config: unknown direction %q", s)
}

// Gesture returns the gesture machine settings. Call Validate first; unknown
// axis or direction names fall back to vertical and any.
func (c Config) Gesture() gesture.Config {
	g := gesture.DefaultConfig()
	g.Threshold = c.Threshold
	g.MaxRotation = c.MaxRotation
	g.ExitDuration = c.ExitDuration
	g.SettleDuration = c.SettleDuration
	if a, err := ParseAxis(c.Axis); err == nil {
		g.Axis = a
	}
	if d, err := ParseDirection(c.Direction); err == nil {
		g.Direction = d
	}
	return g
}

// Deck returns the stream controller settings.
func (c Config) Deck() deck.Config {
	return deck.Config{
		LowWaterMark: c.LowWaterMark,
		BatchSize:    c.BatchSize,
		RemoveDelay:  c.RemoveDelay,
	}
}
