package storefront

import "sync"

// Book is the read-only, server-sourced catalog entry. Inventory is the
// authoritative stock count as of the last sync; prices are integer cents.
type Book struct {
	ISBN        string `json:"isbn"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Publisher   string `json:"publisher,omitempty"`
	Genre       string `json:"genre,omitempty"`
	Description string `json:"description,omitempty"`
	PriceCents  int64  `json:"price_cents"`
	Inventory   int    `json:"inventory"`
	ImageURL    string `json:"image_url,omitempty"`
}

type catalogSub struct {
	id int
	fn func([]Book)
}

// CatalogCache holds the most recently fetched catalog. It is replaced
// wholesale on each fetch and patched in place when a cart or checkout
// response carries fresh inventory. Readers always observe a complete
// snapshot, never a half-applied update.
type CatalogCache struct {
	mu     sync.RWMutex
	byISBN map[string]Book
	order  []string
	subs   []catalogSub
	nextID int
}

func NewCatalogCache() *CatalogCache {
	return &CatalogCache{byISBN: make(map[string]Book)}
}

// Replace swaps the full set atomically, keeping the given order as the
// catalog order.
func (c *CatalogCache) Replace(books []Book) {
	c.mu.Lock()
	c.byISBN = make(map[string]Book, len(books))
	c.order = make([]string, 0, len(books))
	for _, b := range books {
		if _, dup := c.byISBN[b.ISBN]; dup {
			continue
		}
		c.byISBN[b.ISBN] = b
		c.order = append(c.order, b.ISBN)
	}
	snap, subs := c.snapshotLocked()
	c.mu.Unlock()

	notifyCatalog(subs, snap)
}

// ApplyInventoryDeltas patches only the inventory field of matching entries.
// ISBNs not present in the cache are ignored; entries not named are left
// untouched.
func (c *CatalogCache) ApplyInventoryDeltas(updates map[string]int) {
	if len(updates) == 0 {
		return
	}

	c.mu.Lock()
	for isbn, inv := range updates {
		b, ok := c.byISBN[isbn]
		if !ok {
			continue
		}
		b.Inventory = inv
		c.byISBN[isbn] = b
	}
	snap, subs := c.snapshotLocked()
	c.mu.Unlock()

	notifyCatalog(subs, snap)
}

func (c *CatalogCache) Lookup(isbn string) (Book, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.byISBN[isbn]
	return b, ok
}

// Available reports the cached inventory for an ISBN. A book missing from
// the cache counts as zero available, which blocks mutations instead of
// failing them.
func (c *CatalogCache) Available(isbn string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byISBN[isbn].Inventory
}

// Snapshot returns the cached books in catalog order.
func (c *CatalogCache) Snapshot() []Book {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Book, 0, len(c.order))
	for _, isbn := range c.order {
		out = append(out, c.byISBN[isbn])
	}
	return out
}

func (c *CatalogCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Subscribe registers fn to receive the new snapshot synchronously, in
// subscription order, after every Replace or ApplyInventoryDeltas. The
// returned func cancels the subscription.
func (c *CatalogCache) Subscribe(fn func([]Book)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, catalogSub{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

func (c *CatalogCache) snapshotLocked() ([]Book, []catalogSub) {
	snap := make([]Book, 0, len(c.order))
	for _, isbn := range c.order {
		snap = append(snap, c.byISBN[isbn])
	}
	subs := make([]catalogSub, len(c.subs))
	copy(subs, c.subs)
	return snap, subs
}

func notifyCatalog(subs []catalogSub, snap []Book) {
	for _, s := range subs {
		s.fn(snap)
	}
}
