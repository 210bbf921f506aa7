// Package store provides the SQLite session store: a page cache keyed by
// request signature and a log of committed swipes.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"

	"github.com/abelbrown/swipedeck/internal/card"
	"github.com/abelbrown/swipedeck/internal/logging"
	"github.com/abelbrown/swipedeck/internal/source"
)

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	log *log.Logger
}

// Commit is one recorded swipe.
type Commit struct {
	Seq         int64
	ItemID      int
	Title       string
	CommittedAt time.Time
}

// Open creates a new Store with the given database path. ":memory:" gives a
// session-scoped database discarded on Close.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// Each connection to ":memory:" is its own database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db, log: logging.Component(nil, "store")}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create tables: %w", err)
	}
	return s, nil
}

// SetLogger sets the logger used for errors swallowed by the Cache methods.
func (s *Store) SetLogger(l *log.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = logging.Component(l, "store")
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pages (
		cursor INTEGER NOT NULL,
		page_size INTEGER NOT NULL,
		body TEXT NOT NULL,
		stored_at DATETIME NOT NULL,
		PRIMARY KEY (cursor, page_size)
	);

	CREATE TABLE IF NOT EXISTS commits (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		item_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		committed_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_commits_item ON commits(item_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Get implements source.Cache.
func (s *Store) Get(key source.Key) (card.Page, bool) {
	page, ok, err := s.LoadPage(key)
	if err != nil {
		s.mu.RLock()
		s.log.Warn("page lookup failed", "cursor", key.Cursor, "size", key.PageSize, "err", err)
		s.mu.RUnlock()
		return nil, false
	}
	return page, ok
}

// Put implements source.Cache.
func (s *Store) Put(key source.Key, page card.Page) {
	if err := s.SavePage(key, page); err != nil {
		s.mu.RLock()
		s.log.Warn("page store failed", "cursor", key.Cursor, "size", key.PageSize, "err", err)
		s.mu.RUnlock()
	}
}

// Clear implements source.Cache.
func (s *Store) Clear() {
	if err := s.ClearPages(); err != nil {
		s.mu.RLock()
		s.log.Warn("page clear failed", "err", err)
		s.mu.RUnlock()
	}
}

// LoadPage returns the page stored under key.
func (s *Store) LoadPage(key source.Key) (card.Page, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var body string
	err := s.db.QueryRow(
		"SELECT body FROM pages WHERE cursor = ? AND page_size = ?",
		key.Cursor, key.PageSize,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: query page: %w", err)
	}

	var page card.Page
	if err := json.Unmarshal([]byte(body), &page); err != nil {
		return nil, false, fmt.Errorf("store: decode page: %w", err)
	}
	return page, true, nil
}

// SavePage stores page under key, replacing any previous entry.
func (s *Store) SavePage(key source.Key, page card.Page) error {
	body, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("store: encode page: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO pages (cursor, page_size, body, stored_at)
		VALUES (?, ?, ?, ?)
	`, key.Cursor, key.PageSize, string(body), time.Now())
	if err != nil {
		return fmt.Errorf("store: insert page: %w", err)
	}
	return nil
}

// ClearPages drops every cached page. Commits are kept.
func (s *Store) ClearPages() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec("DELETE FROM pages"); err != nil {
		return fmt.Errorf("store: clear pages: %w", err)
	}
	return nil
}

// PageCount returns the number of cached pages.
func (s *Store) PageCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM pages").Scan(&n)
	return n, err
}

// RecordCommit appends a swipe to the history.
func (s *Store) RecordCommit(item card.Item, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		"INSERT INTO commits (item_id, title, committed_at) VALUES (?, ?, ?)",
		item.ID, item.Title, at,
	)
	if err != nil {
		return fmt.Errorf("store: insert commit: %w", err)
	}
	return nil
}

// RecentCommits returns up to limit commits, newest first.
func (s *Store) RecentCommits(limit int) ([]Commit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT seq, item_id, title, committed_at
		FROM commits
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query commits: %w", err)
	}
	defer rows.Close()

	var commits []Commit
	for rows.Next() {
		var c Commit
		if err := rows.Scan(&c.Seq, &c.ItemID, &c.Title, &c.CommittedAt); err != nil {
			return nil, fmt.Errorf("store: scan commit: %w", err)
		}
		commits = append(commits, c)
	}
	return commits, rows.Err()
}

// CommitCount returns the number of recorded swipes.
func (s *Store) CommitCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM commits").Scan(&n)
	return n, err
}
