// Package card defines the items that flow through a swipe deck.
package card

// Metrics holds optional counters attached to an item.
type Metrics struct {
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

// Item is one swipeable card. Identity is ID: two items with the same ID are
// the same logical card regardless of content.
type Item struct {
	ID       int      `json:"id"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	MediaRef string   `json:"media_ref"` // URL or data: URI
	Accent   string   `json:"accent,omitempty"`
	Metrics  *Metrics `json:"metrics,omitempty"`
}

// Page is an ordered batch of items returned for one fetch.
type Page []Item

// Clone returns a deep copy of the page. Metrics pointers are not shared.
func (p Page) Clone() Page {
	if p == nil {
		return nil
	}
	out := make(Page, len(p))
	for i, it := range p {
		if it.Metrics != nil {
			m := *it.Metrics
			it.Metrics = &m
		}
		out[i] = it
	}
	return out
}

// IDs returns the item IDs in page order.
func (p Page) IDs() []int {
	ids := make([]int, len(p))
	for i, it := range p {
		ids[i] = it.ID
	}
	return ids
}
