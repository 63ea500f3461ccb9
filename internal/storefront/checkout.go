package storefront

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Checkout validates the whole cart against cached stock, submits a single
// checkout request, and applies the one authoritative response: inventory
// patched for exactly the books the service names, cart cleared. On any
// failure neither store changes.
//
// The local pass only exists to fail fast with a specific error; the
// service performs the authoritative check and its verdict wins.
func (s *Session) Checkout(ctx context.Context) (Order, error) {
	items := s.cart.Items()
	if len(items) == 0 {
		return Order{}, ErrEmptyCart
	}

	for _, it := range items {
		b, ok := s.catalog.Lookup(it.ISBN)
		if !ok {
			return Order{}, fmt.Errorf("%w: isbn %s", ErrItemUnavailable, it.ISBN)
		}
		if it.Quantity > b.Inventory {
			return Order{}, fmt.Errorf("%w: only %d copies of %q remain", ErrInsufficientStock, b.Inventory, b.Title)
		}
	}

	res, err := s.api.Checkout(ctx)
	if err != nil {
		return Order{}, err
	}

	deltas := make(map[string]int, len(res.UpdatedBooks))
	for _, b := range res.UpdatedBooks {
		deltas[b.ISBN] = b.Inventory
	}
	s.catalog.ApplyInventoryDeltas(deltas)
	s.cart.Clear()

	if s.log != nil {
		s.log.Info("checkout complete",
			zap.String("order_id", res.Order.ID),
			zap.Int("lines", len(res.Order.Items)),
		)
	}
	return res.Order, nil
}
