package storefront

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type SortOption int

const (
	SortNone SortOption = iota
	SortTitleAsc
	SortTitleDesc
	SortPriceAsc
	SortPriceDesc
	SortAuthorAsc
	SortAuthorDesc
)

// FilterCriteria narrows and orders a catalog snapshot for display.
// Genres are OR-matched case-insensitively against a book's comma-separated
// genre tags. Price bounds are inclusive; MaxPriceCents <= 0 means no upper
// bound so the zero value matches everything.
type FilterCriteria struct {
	SortBy        SortOption
	Genres        []string
	MinPriceCents int64
	MaxPriceCents int64
	SearchTerm    string
}

// Project derives a filtered, sorted view of books. The pipeline order is
// fixed: search term, genres, price range, then sort. The input is never
// mutated and the result is fully recomputed on every call.
func Project(books []Book, criteria FilterCriteria) []Book {
	out := make([]Book, len(books))
	copy(out, books)

	if term := strings.ToLower(strings.TrimSpace(criteria.SearchTerm)); term != "" {
		out = keep(out, func(b Book) bool {
			return strings.Contains(strings.ToLower(b.Title), term) ||
				strings.Contains(strings.ToLower(b.Author), term) ||
				strings.Contains(strings.ToLower(b.Description), term)
		})
	}

	if len(criteria.Genres) > 0 {
		wanted := make(map[string]struct{}, len(criteria.Genres))
		for _, g := range criteria.Genres {
			wanted[strings.ToLower(strings.TrimSpace(g))] = struct{}{}
		}
		out = keep(out, func(b Book) bool {
			return genreMatch(b.Genre, wanted)
		})
	}

	out = keep(out, func(b Book) bool {
		if b.PriceCents < criteria.MinPriceCents {
			return false
		}
		if criteria.MaxPriceCents > 0 && b.PriceCents > criteria.MaxPriceCents {
			return false
		}
		return true
	})

	sortBooks(out, criteria.SortBy)
	return out
}

func keep(books []Book, pred func(Book) bool) []Book {
	n := 0
	for _, b := range books {
		if pred(b) {
			books[n] = b
			n++
		}
	}
	return books[:n]
}

func genreMatch(tags string, wanted map[string]struct{}) bool {
	if tags == "" {
		return false
	}
	for _, tag := range strings.Split(tags, ",") {
		if _, ok := wanted[strings.ToLower(strings.TrimSpace(tag))]; ok {
			return true
		}
	}
	return false
}

func sortBooks(books []Book, by SortOption) {
	if by == SortNone {
		return
	}

	col := collate.New(language.Und, collate.IgnoreCase)

	var less func(a, b Book) bool
	switch by {
	case SortTitleAsc:
		less = func(a, b Book) bool { return col.CompareString(a.Title, b.Title) < 0 }
	case SortTitleDesc:
		less = func(a, b Book) bool { return col.CompareString(b.Title, a.Title) < 0 }
	case SortPriceAsc:
		less = func(a, b Book) bool { return a.PriceCents < b.PriceCents }
	case SortPriceDesc:
		less = func(a, b Book) bool { return b.PriceCents < a.PriceCents }
	case SortAuthorAsc:
		less = func(a, b Book) bool { return col.CompareString(a.Author, b.Author) < 0 }
	case SortAuthorDesc:
		less = func(a, b Book) bool { return col.CompareString(b.Author, a.Author) < 0 }
	default:
		return
	}

	// Stable so ties keep catalog order.
	sort.SliceStable(books, func(i, j int) bool { return less(books[i], books[j]) })
}
