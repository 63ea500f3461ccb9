package bookstore_test

import (
	"testing"

	"BookNook/internal/bookstore"
)

func shelfBooks() []bookstore.Book {
	return []bookstore.Book{
		{ISBN: "1", Title: "Dune"},
		{ISBN: "2", Title: "Foundation"},
		{ISBN: "3", Title: "Pride and Prejudice"},
		{ISBN: "4", Title: "The Alchemist"},
		{ISBN: "5", Title: "Ready Player One"},
	}
}

func order(isbns ...string) bookstore.Order {
	o := bookstore.Order{ID: "o_" + isbns[0]}
	for _, isbn := range isbns {
		o.Items = append(o.Items, bookstore.OrderItem{ISBN: isbn, Quantity: 1})
	}
	return o
}

func shelfISBNs(books []bookstore.Book) map[string]bool {
	out := make(map[string]bool, len(books))
	for _, b := range books {
		if out[b.ISBN] {
			return nil // duplicate
		}
		out[b.ISBN] = true
	}
	return out
}

func TestRecommendBooks_NoOrdersSamplesCatalog(t *testing.T) {
	got := bookstore.RecommendBooks(nil, shelfBooks(), 3)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if shelfISBNs(got) == nil {
		t.Fatalf("shelf has duplicates: %+v", got)
	}

	// Fewer books than the limit returns them all.
	got = bookstore.RecommendBooks(nil, shelfBooks(), 8)
	if len(got) != 5 {
		t.Fatalf("len = %d, want whole catalog", len(got))
	}
}

func TestRecommendBooks_SharedPurchasesComeFirst(t *testing.T) {
	orders := []bookstore.Order{
		order("1", "2"),
		order("1", "3"),
	}

	got := bookstore.RecommendBooks(orders, shelfBooks(), 8)
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5 (padded to whole catalog)", len(got))
	}
	if got[0].ISBN != "1" {
		t.Fatalf("shelf head = %s, want the book both orders share", got[0].ISBN)
	}
	if shelfISBNs(got) == nil {
		t.Fatalf("shelf has duplicates: %+v", got)
	}
}

func TestRecommendBooks_PadsWithPurchasedBeforeUnpurchased(t *testing.T) {
	// Single order, so no pair overlap: the shelf starts with the
	// purchased books, then the rest of the catalog.
	orders := []bookstore.Order{order("2", "4")}

	got := bookstore.RecommendBooks(orders, shelfBooks(), 3)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	headISBNs := map[string]bool{got[0].ISBN: true, got[1].ISBN: true}
	if !headISBNs["2"] || !headISBNs["4"] {
		t.Fatalf("purchased books not first: %+v", got)
	}
}

func TestRecommendBooks_LimitCapsPadding(t *testing.T) {
	orders := []bookstore.Order{
		order("1", "2"),
		order("2", "3"),
	}

	got := bookstore.RecommendBooks(orders, shelfBooks(), 2)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ISBN != "2" {
		t.Fatalf("shelf head = %s, want shared book 2", got[0].ISBN)
	}
}

func TestRecommendBooks_IgnoresUnknownISBNs(t *testing.T) {
	// Purchases referencing removed books never land on the shelf.
	orders := []bookstore.Order{
		order("gone", "1"),
		order("gone", "1"),
	}

	got := bookstore.RecommendBooks(orders, shelfBooks(), 8)
	for _, b := range got {
		if b.ISBN == "gone" {
			t.Fatalf("removed book recommended: %+v", got)
		}
	}
	if got[0].ISBN != "1" {
		t.Fatalf("shelf head = %s, want shared book 1", got[0].ISBN)
	}
}
