package storefront

import "sync"

// CartLineItem is one cart line. Quantity is always positive; a line at
// zero is removed, never stored.
type CartLineItem struct {
	ISBN       string `json:"isbn"`
	Title      string `json:"title"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int    `json:"quantity"`
	ImageURL   string `json:"image_url,omitempty"`
}

type cartSub struct {
	id int
	fn func([]CartLineItem)
}

// CartStore holds the cart lines last confirmed by the server. Only the
// reconciler and the checkout path write it, and always wholesale; no
// client-side arithmetic ever lands here.
type CartStore struct {
	mu     sync.RWMutex
	items  []CartLineItem
	subs   []cartSub
	nextID int
}

func NewCartStore() *CartStore {
	return &CartStore{}
}

// Items returns a copy of the current lines in cart order.
func (s *CartStore) Items() []CartLineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CartLineItem, len(s.items))
	copy(out, s.items)
	return out
}

// Quantity reports the quantity for an ISBN, zero when absent.
func (s *CartStore) Quantity(isbn string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.ISBN == isbn {
			return it.Quantity
		}
	}
	return 0
}

// ItemCount is the total number of copies across all lines.
func (s *CartStore) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

// TotalCents is the cart total at the line prices last confirmed.
func (s *CartStore) TotalCents() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, it := range s.items {
		total += it.PriceCents * int64(it.Quantity)
	}
	return total
}

// Replace swaps the full set of lines atomically.
func (s *CartStore) Replace(items []CartLineItem) {
	s.mu.Lock()
	s.items = make([]CartLineItem, len(items))
	copy(s.items, items)
	snap, subs := s.snapshotLocked()
	s.mu.Unlock()

	notifyCart(subs, snap)
}

func (s *CartStore) Clear() {
	s.Replace(nil)
}

// Subscribe registers fn to receive the new lines synchronously, in
// subscription order, after every Replace. The returned func cancels.
func (s *CartStore) Subscribe(fn func([]CartLineItem)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, cartSub{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *CartStore) snapshotLocked() ([]CartLineItem, []cartSub) {
	snap := make([]CartLineItem, len(s.items))
	copy(snap, s.items)
	subs := make([]cartSub, len(s.subs))
	copy(subs, s.subs)
	return snap, subs
}

func notifyCart(subs []cartSub, snap []CartLineItem) {
	for _, s := range subs {
		s.fn(snap)
	}
}
