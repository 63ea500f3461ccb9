// Package storefront is the client side of the bookstore: a locally cached
// catalog, a server-reconciled shopping cart, and the checkout flow. Every
// mutation is validated against the cached catalog before the network call,
// and both stores are only ever updated from the server's response:
// wholesale for the cart, inventory-only patches for the catalog.
package storefront

import (
	"context"

	"go.uber.org/zap"
)

// Session ties one user's cart and catalog view to the API client. All
// mutations are awaited sequentially by the caller; while a call is in
// flight both stores keep their last-confirmed values.
type Session struct {
	api     *Client
	catalog *CatalogCache
	cart    *CartStore
	log     *zap.Logger
}

func NewSession(api *Client, log *zap.Logger) *Session {
	return &Session{
		api:     api,
		catalog: NewCatalogCache(),
		cart:    NewCartStore(),
		log:     log,
	}
}

func (s *Session) Catalog() *CatalogCache { return s.catalog }
func (s *Session) Cart() *CartStore       { return s.cart }

// RefreshCatalog replaces the catalog cache wholesale from the service.
func (s *Session) RefreshCatalog(ctx context.Context) error {
	books, err := s.api.FetchCatalog(ctx)
	if err != nil {
		return err
	}

	s.catalog.Replace(books)
	if s.log != nil {
		s.log.Debug("catalog refreshed", zap.Int("books", len(books)))
	}
	return nil
}

// LoadCart replaces cart state wholesale from the service. Call it once
// after the session is established, before relying on any mutation.
func (s *Session) LoadCart(ctx context.Context) error {
	lines, err := s.api.FetchCart(ctx)
	if err != nil {
		return err
	}

	s.applyCart(lines)
	return nil
}

// Browse projects the current catalog snapshot through the criteria.
func (s *Session) Browse(criteria FilterCriteria) []Book {
	return Project(s.catalog.Snapshot(), criteria)
}

// Orders fetches the order history. Read-only; no store is touched.
func (s *Session) Orders(ctx context.Context) ([]Order, error) {
	return s.api.FetchOrders(ctx)
}

// Recommended fetches the recommendation shelf. Read-only; the books are
// for display and are not folded into the catalog cache, which only ever
// holds the full catalog.
func (s *Session) Recommended(ctx context.Context) ([]Book, error) {
	return s.api.FetchRecommended(ctx)
}

// Logout ends the server session and resets the cart locally. The local
// reset happens even when the request fails.
func (s *Session) Logout(ctx context.Context) error {
	err := s.api.Logout(ctx)
	s.cart.Clear()
	return err
}

func (s *Session) ClearCart() {
	s.cart.Clear()
}

// applyCart is the single write path for successful cart responses: cart
// state is replaced wholesale and the inventory each line carries is
// patched into the catalog cache.
func (s *Session) applyCart(lines []CartLine) {
	items := make([]CartLineItem, 0, len(lines))
	deltas := make(map[string]int, len(lines))
	for _, l := range lines {
		items = append(items, CartLineItem{
			ISBN:       l.ISBN,
			Title:      l.Title,
			PriceCents: l.PriceCents,
			Quantity:   l.Quantity,
			ImageURL:   l.ImageURL,
		})
		deltas[l.ISBN] = l.Inventory
	}

	s.cart.Replace(items)
	s.catalog.ApplyInventoryDeltas(deltas)
}
