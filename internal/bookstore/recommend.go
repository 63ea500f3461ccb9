package bookstore

import "math/rand"

// DefaultRecommendLimit is the size of the recommendation shelf.
const DefaultRecommendLimit = 8

// RecommendBooks builds the recommendation shelf from purchase history.
// Orders vote for their shared contents: any book appearing in two or more
// orders is recommended first. If that yields fewer than limit books, the
// shelf is padded with other previously purchased books, then with books
// never purchased at all, both in random order. With no orders the shelf
// is a random sample of the catalog.
func RecommendBooks(orders []Order, books []Book, limit int) []Book {
	if limit <= 0 {
		limit = DefaultRecommendLimit
	}

	if len(orders) == 0 {
		out := make([]Book, len(books))
		copy(out, books)
		rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		if len(out) > limit {
			out = out[:limit]
		}
		return out
	}

	byISBN := make(map[string]Book, len(books))
	for _, b := range books {
		byISBN[b.ISBN] = b
	}

	baskets := make([]map[string]struct{}, 0, len(orders))
	purchased := make(map[string]struct{})
	for _, o := range orders {
		basket := make(map[string]struct{}, len(o.Items))
		for _, it := range o.Items {
			basket[it.ISBN] = struct{}{}
			purchased[it.ISBN] = struct{}{}
		}
		baskets = append(baskets, basket)
	}

	picked := make(map[string]struct{})
	out := make([]Book, 0, limit)
	add := func(isbn string) {
		if _, dup := picked[isbn]; dup {
			return
		}
		b, ok := byISBN[isbn]
		if !ok {
			return
		}
		picked[isbn] = struct{}{}
		out = append(out, b)
	}

	// Books shared between any pair of orders. Not capped at limit: a
	// strong overlap signal beats the padding below.
	for i := 0; i < len(baskets); i++ {
		for j := i + 1; j < len(baskets); j++ {
			for isbn := range baskets[i] {
				if _, ok := baskets[j][isbn]; ok {
					add(isbn)
				}
			}
		}
	}

	pad := func(wantPurchased bool) {
		pool := make([]Book, 0, len(books))
		for _, b := range books {
			if _, dup := picked[b.ISBN]; dup {
				continue
			}
			if _, was := purchased[b.ISBN]; was == wantPurchased {
				pool = append(pool, b)
			}
		}
		rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		for _, b := range pool {
			if len(out) >= limit {
				return
			}
			picked[b.ISBN] = struct{}{}
			out = append(out, b)
		}
	}
	pad(true)
	pad(false)

	return out
}
