package storefront_test

import (
	"reflect"
	"testing"

	"BookNook/internal/storefront"
)

func TestCatalogCache_ReplaceAndLookup(t *testing.T) {
	c := storefront.NewCatalogCache()
	c.Replace(sampleCatalog())

	b, ok := c.Lookup("2")
	if !ok || b.Title != "Foundation" {
		t.Fatalf("Lookup(2) = %+v, %v", b, ok)
	}
	if _, ok := c.Lookup("missing"); ok {
		t.Fatalf("Lookup(missing) reported present")
	}
	if got := isbns(c.Snapshot()); !reflect.DeepEqual(got, []string{"1", "2", "3"}) {
		t.Fatalf("snapshot order = %v", got)
	}

	// A second replace swaps the whole set.
	c.Replace([]storefront.Book{{ISBN: "9", Title: "New", Inventory: 1}})
	if c.Len() != 1 {
		t.Fatalf("Len = %d after replace, want 1", c.Len())
	}
	if _, ok := c.Lookup("1"); ok {
		t.Fatalf("old entry survived replace")
	}
}

func TestCatalogCache_ApplyInventoryDeltas(t *testing.T) {
	c := storefront.NewCatalogCache()
	c.Replace(sampleCatalog())

	c.ApplyInventoryDeltas(map[string]int{
		"1":       1,
		"unknown": 99, // ignored
	})

	if got := c.Available("1"); got != 1 {
		t.Fatalf("Available(1) = %d, want 1", got)
	}
	if got := c.Available("2"); got != 2 {
		t.Fatalf("Available(2) = %d, want untouched 2", got)
	}
	if _, ok := c.Lookup("unknown"); ok {
		t.Fatalf("delta created a phantom entry")
	}

	// Only inventory changes; the rest of the entry is intact.
	b, _ := c.Lookup("1")
	if b.Title != "Dune" || b.PriceCents != 1299 {
		t.Fatalf("delta clobbered fields: %+v", b)
	}
}

func TestCatalogCache_AvailableAbsentIsZero(t *testing.T) {
	c := storefront.NewCatalogCache()
	if got := c.Available("anything"); got != 0 {
		t.Fatalf("Available on empty cache = %d, want 0", got)
	}
}

func TestCatalogCache_SubscribeOrderAndCancel(t *testing.T) {
	c := storefront.NewCatalogCache()

	var calls []string
	cancelA := c.Subscribe(func(books []storefront.Book) {
		calls = append(calls, "a")
	})
	c.Subscribe(func(books []storefront.Book) {
		calls = append(calls, "b")
		if len(books) != 3 {
			t.Errorf("subscriber saw %d books, want 3", len(books))
		}
	})

	c.Replace(sampleCatalog())
	if want := []string{"a", "b"}; !reflect.DeepEqual(calls, want) {
		t.Fatalf("delivery order = %v, want %v", calls, want)
	}

	cancelA()
	calls = nil
	c.ApplyInventoryDeltas(map[string]int{"1": 0})
	if want := []string{"b"}; !reflect.DeepEqual(calls, want) {
		t.Fatalf("after cancel, delivery = %v, want %v", calls, want)
	}
}
