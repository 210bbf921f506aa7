package source

import (
	"sync"

	"github.com/abelbrown/swipedeck/internal/card"
)

// Key is the exact request signature a page is cached under.
type Key struct {
	Cursor   int
	PageSize int
}

// Cache stores remote pages by request key. Implementations must return
// pages equal to what was stored.
type Cache interface {
	Get(key Key) (card.Page, bool)
	Put(key Key, page card.Page)
	Clear()
}

// MemoryCache is a map-backed Cache. Safe for concurrent use.
type MemoryCache struct {
	mu    sync.RWMutex
	pages map[Key]card.Page
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{pages: make(map[Key]card.Page)}
}

// Get returns a copy of the cached page.
func (c *MemoryCache) Get(key Key) (card.Page, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pages[key]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Put stores a copy of page under key.
func (c *MemoryCache) Put(key Key, page card.Page) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[key] = page.Clone()
}

// Clear drops every cached page.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages = make(map[Key]card.Page)
}

// Len returns the number of cached pages.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pages)
}
