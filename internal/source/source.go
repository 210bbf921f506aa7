// Package source pages items in from a remote list endpoint, memoizing pages
// by request key and degrading to deterministic synthetic items whenever the
// remote call fails.
package source

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/abelbrown/swipedeck/internal/card"
	"github.com/abelbrown/swipedeck/internal/logging"
	"github.com/abelbrown/swipedeck/internal/otel"
)

// DefaultTimeout bounds a single remote call before falling back.
const DefaultTimeout = 8 * time.Second

// ErrInvalidPageSize is returned for non-positive page sizes. The cursor is
// not advanced.
var ErrInvalidPageSize = errors.New("source: page size must be positive")

// Record is one raw entry from the remote list endpoint.
type Record struct {
	ID          string `json:"id"`
	Author      string `json:"author"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	URL         string `json:"url"`
	DownloadURL string `json:"download_url"`
}

// Transport performs the parameterized remote fetch.
type Transport interface {
	List(ctx context.Context, page, limit int) ([]Record, error)
}

// Source is a paginated item source. Safe for concurrent use; fetches are
// serialized so each call claims exactly one cursor slot.
type Source struct {
	transport Transport
	cache     Cache
	timeout   time.Duration
	retain    bool // keep cached pages across Reset
	log       *log.Logger
	events    *otel.Logger

	fetchMu sync.Mutex // held for the duration of FetchPage

	mu        sync.Mutex // guards the fields below
	cursor    int
	synthetic int // synthetic items generated so far
	gen       int // bumped by Reset
}

// Option configures a Source.
type Option func(*Source)

// WithCache replaces the default in-memory page cache.
func WithCache(c Cache) Option {
	return func(s *Source) { s.cache = c }
}

// WithTimeout sets the per-call remote timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(s *Source) { s.timeout = d }
}

// WithRetainedCache keeps cached pages across Reset, so a rewound cursor is
// served from the cache instead of the remote.
func WithRetainedCache() Option {
	return func(s *Source) { s.retain = true }
}

// WithLogger sets the text logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Source) { s.log = logging.Component(l, "source") }
}

// WithEvents sets the telemetry event logger.
func WithEvents(e *otel.Logger) Option {
	return func(s *Source) { s.events = e }
}

// New creates a Source reading from t. A nil transport always falls back.
func New(t Transport, opts ...Option) *Source {
	s := &Source{
		transport: t,
		cache:     NewMemoryCache(),
		timeout:   DefaultTimeout,
		log:       logging.Discard(),
		cursor:    1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cursor returns the page number the next FetchPage call will request.
func (s *Source) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Reset rewinds the cursor to 1 and, unless WithRetainedCache was given,
// clears the page cache. A fetch already in flight completes but does not
// advance the rewound cursor.
func (s *Source) Reset() {
	s.mu.Lock()
	s.cursor = 1
	s.gen++
	if !s.retain {
		s.cache.Clear()
	}
	s.mu.Unlock()

	s.events.Info(otel.KindSourceReset, "source", "cursor rewound")
}

// FetchPage returns the next page of pageSize items. It never fails for a
// valid size: cache hits and remote pages are returned as-is, anything else
// yields pageSize synthetic items. Every completed call advances the cursor
// by one.
func (s *Source) FetchPage(ctx context.Context, pageSize int) (card.Page, error) {
	if pageSize <= 0 {
		return nil, ErrInvalidPageSize
	}

	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	s.mu.Lock()
	cursor, gen := s.cursor, s.gen
	key := Key{Cursor: cursor, PageSize: pageSize}
	if page, ok := s.cache.Get(key); ok {
		s.cursor++
		s.mu.Unlock()
		s.log.Debug("cache hit", "cursor", cursor, "size", pageSize)
		s.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindCacheHit, Comp: "source", Cursor: cursor, PageSize: pageSize, Count: len(page)})
		return page.Clone(), nil
	}
	s.mu.Unlock()

	start := time.Now()
	s.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindFetchStart, Comp: "source", Cursor: cursor, PageSize: pageSize})

	page, err := s.fetchRemote(ctx, cursor, pageSize)

	s.mu.Lock()
	defer s.mu.Unlock()
	current := gen == s.gen

	if err != nil {
		page = s.synthesize(pageSize)
		s.log.Warn("remote fetch failed, using synthetic page", "cursor", cursor, "size", pageSize, "err", err)
		s.events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindFetchFallback, Comp: "source", Cursor: cursor, PageSize: pageSize, Count: len(page), Dur: time.Since(start), Err: err.Error()})
	} else {
		if current {
			s.cache.Put(key, page.Clone())
		}
		s.log.Debug("fetched page", "cursor", cursor, "size", pageSize, "items", len(page))
		s.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindFetchComplete, Comp: "source", Cursor: cursor, PageSize: pageSize, Count: len(page), Dur: time.Since(start)})
	}

	if current {
		s.cursor++
	}
	return page, nil
}

// fetchRemote calls the transport under the configured timeout and maps the
// records onto items. An empty result counts as a failure so the caller is
// never handed an empty page.
func (s *Source) fetchRemote(ctx context.Context, cursor, pageSize int) (card.Page, error) {
	if s.transport == nil {
		return nil, errors.New("source: no transport configured")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	records, err := s.transport.List(ctx, cursor, pageSize)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("source: page %d is empty", cursor)
	}
	if len(records) > pageSize {
		records = records[:pageSize]
	}
	return toPage(records)
}

// toPage maps remote records onto items. A non-numeric id makes the whole
// payload malformed.
func toPage(records []Record) (card.Page, error) {
	page := make(card.Page, 0, len(records))
	for _, r := range records {
		id, err := strconv.Atoi(r.ID)
		if err != nil {
			return nil, fmt.Errorf("source: malformed record id %q: %w", r.ID, err)
		}
		page = append(page, card.Item{
			ID:       id,
			Title:    r.Author,
			Body:     fmt.Sprintf("Photo by %s - %dx%d", r.Author, r.Width, r.Height),
			MediaRef: r.DownloadURL,
			Metrics:  &card.Metrics{Width: r.Width, Height: r.Height},
		})
	}
	return page, nil
}
