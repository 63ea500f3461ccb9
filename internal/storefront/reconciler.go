package storefront

import (
	"context"
	"fmt"
)

// AddToCart validates against the cached catalog, then issues one
// set-quantity call for the cumulative quantity. On success the cart is
// replaced from the response; the locally computed value is discarded even
// though the two are expected to match.
func (s *Session) AddToCart(ctx context.Context, book Book, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}

	available := s.catalog.Available(book.ISBN)
	if available == 0 {
		return fmt.Errorf("%w: %q", ErrOutOfStock, book.Title)
	}

	next := s.cart.Quantity(book.ISBN) + quantity
	if next > available {
		return fmt.Errorf("%w: only %d copies of %q remain", ErrInsufficientStock, available, book.Title)
	}

	lines, err := s.api.SetCartItem(ctx, book.ISBN, next)
	if err != nil {
		return err
	}

	s.applyCart(lines)
	return nil
}

// SetQuantity sets a line to an absolute quantity. Zero redirects to
// RemoveFromCart; a line at zero never exists.
func (s *Session) SetQuantity(ctx context.Context, isbn string, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	if quantity == 0 {
		return s.RemoveFromCart(ctx, isbn)
	}

	available := s.catalog.Available(isbn)
	if quantity > available {
		return fmt.Errorf("%w: only %d copies of %q remain", ErrInsufficientStock, available, s.titleFor(isbn))
	}

	lines, err := s.api.SetCartItem(ctx, isbn, quantity)
	if err != nil {
		return err
	}

	s.applyCart(lines)
	return nil
}

// RemoveFromCart deletes the line on the server and replaces the cart from
// the response, so removal is confirmed rather than assumed.
func (s *Session) RemoveFromCart(ctx context.Context, isbn string) error {
	lines, err := s.api.DeleteCartItem(ctx, isbn)
	if err != nil {
		return err
	}

	s.applyCart(lines)
	return nil
}

func (s *Session) titleFor(isbn string) string {
	if b, ok := s.catalog.Lookup(isbn); ok {
		return b.Title
	}
	for _, it := range s.cart.Items() {
		if it.ISBN == isbn {
			return it.Title
		}
	}
	return isbn
}
