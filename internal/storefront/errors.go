package storefront

import "errors"

var (
	// ErrInvalidQuantity rejects non-positive add quantities and negative
	// quantity updates before any request is made.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrOutOfStock means the cached inventory for the book is zero.
	ErrOutOfStock = errors.New("out of stock")

	// ErrInsufficientStock means the requested quantity exceeds the cached
	// inventory; the wrapped message carries the limit and the title.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrItemUnavailable means a cart line references an ISBN no longer in
	// the catalog cache.
	ErrItemUnavailable = errors.New("item unavailable")

	// ErrEmptyCart is the checkout precondition failure.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrRequestFailed wraps any API call that did not succeed. The server's
	// error message is forwarded verbatim when one is present.
	ErrRequestFailed = errors.New("request failed")
)
