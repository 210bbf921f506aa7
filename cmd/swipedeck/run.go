package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/swipedeck/internal/clock"
	"github.com/abelbrown/swipedeck/internal/config"
	"github.com/abelbrown/swipedeck/internal/deck"
	"github.com/abelbrown/swipedeck/internal/gesture"
	"github.com/abelbrown/swipedeck/internal/logging"
	"github.com/abelbrown/swipedeck/internal/otel"
	"github.com/abelbrown/swipedeck/internal/picsum"
	"github.com/abelbrown/swipedeck/internal/sanitize"
	"github.com/abelbrown/swipedeck/internal/source"
	"github.com/abelbrown/swipedeck/internal/store"
	"github.com/abelbrown/swipedeck/internal/ui"
)

// session holds the shared services both commands build on.
type session struct {
	logFile *logging.File
	log     *log.Logger
	events  *otel.Logger
	ring    *otel.RingBuffer
	store   *store.Store
	source  *source.Source
	closers []func()

	ended  sync.Once
	closed sync.Once
}

func openSession(cfg config.Config) (*session, error) {
	s := &session{}

	lf, err := logging.Open(cfg.LogDir, logging.ParseLevel(cfg.LogLevel))
	if err != nil {
		return nil, err
	}
	s.logFile = lf
	s.log = lf.Logger
	s.closers = append(s.closers, func() { lf.Close() })

	s.ring = otel.NewRingBuffer(otel.DefaultRingSize)
	if cfg.EventLog {
		name := fmt.Sprintf("events-%s.jsonl", time.Now().Format("2006-01-02"))
		f, err := os.OpenFile(filepath.Join(cfg.LogDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open event log: %w", err)
		}
		s.events = otel.NewLogger(f)
		s.closers = append(s.closers, func() { f.Close() })
	} else {
		s.events = otel.NewNullLogger()
	}
	s.events.SetRingBuffer(s.ring)

	st, err := store.Open(":memory:")
	if err != nil {
		s.Close()
		return nil, err
	}
	st.SetLogger(s.log)
	s.store = st
	s.closers = append(s.closers, func() { st.Close() })

	client := picsum.NewClient(cfg.Endpoint, cfg.FetchTimeout)
	s.source = source.New(client,
		source.WithCache(st),
		source.WithTimeout(cfg.FetchTimeout),
		source.WithLogger(s.log),
		source.WithEvents(s.events),
	)

	s.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindStartup, Comp: "main", Msg: "swipedeck " + version})
	s.log.Info("session started", "endpoint", cfg.Endpoint, "session", s.events.SessionID())
	return s, nil
}

// end records the shutdown event and drains the event log, after which the
// ring holds every event of the session. Later calls do nothing.
func (s *session) end() {
	s.ended.Do(func() {
		s.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindShutdown, Comp: "main"})
		s.events.Close()
	})
}

// Close ends the session and releases everything in reverse order of
// opening. Safe to call more than once.
func (s *session) Close() {
	s.closed.Do(func() {
		s.end()
		for i := len(s.closers) - 1; i >= 0; i-- {
			s.closers[i]()
		}
	})
}

func (s *session) shutdown() {
	s.end()
	swipes, err := s.store.CommitCount()
	if err != nil {
		s.log.Warn("count swipes", "err", err)
	}
	pages, err := s.store.PageCount()
	if err != nil {
		s.log.Warn("count cached pages", "err", err)
	}
	s.log.Info("session ended", "swipes", swipes, "cached_pages", pages, "dropped_events", s.events.Dropped())
	s.Close()
}

// report prints the exit summary for the interactive session.
func (s *session) report(w io.Writer) {
	swipes, err := s.store.CommitCount()
	if err != nil {
		return
	}
	fmt.Fprintf(w, "%d swipes this session, log at %s\n", swipes, s.logFile.Path())
}

func runTUI(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.shutdown()
	defer s.report(os.Stderr)

	board := ui.NewBoard(sanitize.New())
	ctl := deck.New(s.source, board, cfg.Deck(),
		deck.WithClock(clock.Real{}),
		deck.WithHistory(s.store),
		deck.WithLogger(s.log),
		deck.WithEvents(s.events),
	)
	defer ctl.Close()

	machine := gesture.New(cfg.Gesture(), board, func(id int) {
		ctl.Remove(id)
		board.Notify()
	},
		gesture.WithClock(clock.Real{}),
		gesture.WithLogger(s.log),
		gesture.WithEvents(s.events),
	)
	defer machine.Close()

	pointer := ui.NewPointer(cfg.CellWidth, cfg.CellHeight)
	machine.Attach(pointer)

	model := ui.New(ui.Config{
		Board:   board,
		Pointer: pointer,
		Gesture: machine,
		Deck:    ctl,
		Ring:    s.ring,
		History: func(n int) ([]string, error) {
			commits, err := s.store.RecentCommits(n)
			if err != nil {
				return nil, err
			}
			titles := make([]string, len(commits))
			for i, c := range commits {
				titles[i] = c.Title
			}
			return titles, nil
		},
	})

	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithReportFocus(),
		tea.WithContext(ctx),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Quitting the UI abandons a startup fetch still in flight.
		defer stop()
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		if err := ctl.Initialize(gctx, cfg.InitialCount); err != nil {
			s.log.Error("initial fetch failed", "err", err)
			s.events.Error(otel.KindError, "main", err)
			program.Quit()
			return fmt.Errorf("initialize deck: %w", err)
		}
		return nil
	})

	return g.Wait()
}
