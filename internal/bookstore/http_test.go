package bookstore_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"BookNook/internal/bookstore"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTS(t *testing.T) *httptest.Server {
	t.Helper()

	s := &bookstore.Server{
		Store: bookstore.NewSeededMemStore(),
		JWT:   bookstore.NewTokenMaker(testSecret),
		Log:   zap.NewNop(),
	}

	h := bookstore.NewHandler(s, bookstore.HTTPDeps{
		Log:     zap.NewNop(),
		Service: "bookstore",
	})

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

func newSessionClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func doJSON(t *testing.T, c *http.Client, method, url string, body any, out any, wantStatus int) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: status=%d want=%d body=%s", method, url, resp.StatusCode, wantStatus, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
	}
}

func login(t *testing.T, c *http.Client, baseURL, email, password string) {
	t.Helper()
	doJSON(t, c, http.MethodPost, baseURL+"/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil, http.StatusOK)
}

func TestListBooksIsPublic(t *testing.T) {
	ts := newTS(t)

	var books []bookstore.Book
	doJSON(t, http.DefaultClient, http.MethodGet, ts.URL+"/api/books", nil, &books, http.StatusOK)
	if len(books) == 0 {
		t.Fatalf("expected seeded books")
	}
}

func TestCartRequiresSession(t *testing.T) {
	ts := newTS(t)

	resp, err := http.Get(ts.URL + "/api/cart")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestCartSetDeleteFlow(t *testing.T) {
	ts := newTS(t)
	c := newSessionClient(t)
	login(t, c, ts.URL, "john@example.com", "password123")

	const dune = "978-0441013593"

	var lines []bookstore.CartLine
	doJSON(t, c, http.MethodPut, ts.URL+"/api/cart/items/"+dune,
		map[string]int{"quantity": 2}, &lines, http.StatusOK)
	if len(lines) != 1 || lines[0].Quantity != 2 || lines[0].Title != "Dune" {
		t.Fatalf("lines = %+v", lines)
	}
	if lines[0].Inventory != 12 {
		t.Fatalf("line inventory = %d, want live stock 12", lines[0].Inventory)
	}

	// Setting over stock is rejected with the limit in the message.
	var errResp struct {
		Error string `json:"error"`
	}
	doJSON(t, c, http.MethodPut, ts.URL+"/api/cart/items/"+dune,
		map[string]int{"quantity": 13}, &errResp, http.StatusConflict)
	if errResp.Error == "" {
		t.Fatalf("expected error message")
	}

	// Quantity below one is a bad request.
	doJSON(t, c, http.MethodPut, ts.URL+"/api/cart/items/"+dune,
		map[string]int{"quantity": 0}, nil, http.StatusBadRequest)

	// Unknown book is a 404.
	doJSON(t, c, http.MethodPut, ts.URL+"/api/cart/items/nope",
		map[string]int{"quantity": 1}, nil, http.StatusNotFound)

	doJSON(t, c, http.MethodDelete, ts.URL+"/api/cart/items/"+dune, nil, &lines, http.StatusOK)
	if len(lines) != 0 {
		t.Fatalf("lines after delete = %+v", lines)
	}
}

func TestCheckoutFlow(t *testing.T) {
	ts := newTS(t)
	c := newSessionClient(t)
	login(t, c, ts.URL, "john@example.com", "password123")

	const (
		dune       = "978-0441013593"
		foundation = "978-0553293357"
	)

	doJSON(t, c, http.MethodPut, ts.URL+"/api/cart/items/"+dune,
		map[string]int{"quantity": 2}, nil, http.StatusOK)
	doJSON(t, c, http.MethodPut, ts.URL+"/api/cart/items/"+foundation,
		map[string]int{"quantity": 1}, nil, http.StatusOK)

	var resp struct {
		Order        bookstore.Order  `json:"order"`
		UpdatedBooks []bookstore.Book `json:"updated_books"`
	}
	doJSON(t, c, http.MethodPost, ts.URL+"/api/cart/checkout", nil, &resp, http.StatusOK)

	if resp.Order.ID == "" || len(resp.Order.Items) != 2 {
		t.Fatalf("order = %+v", resp.Order)
	}
	if len(resp.UpdatedBooks) != 2 {
		t.Fatalf("updated_books = %+v", resp.UpdatedBooks)
	}
	for _, b := range resp.UpdatedBooks {
		switch b.ISBN {
		case dune:
			if b.Inventory != 10 {
				t.Fatalf("dune inventory = %d, want 10", b.Inventory)
			}
		case foundation:
			if b.Inventory != 7 {
				t.Fatalf("foundation inventory = %d, want 7", b.Inventory)
			}
		}
	}

	// Cart is gone; a second checkout is an empty-cart error.
	var lines []bookstore.CartLine
	doJSON(t, c, http.MethodGet, ts.URL+"/api/cart", nil, &lines, http.StatusOK)
	if len(lines) != 0 {
		t.Fatalf("cart after checkout = %+v", lines)
	}
	doJSON(t, c, http.MethodPost, ts.URL+"/api/cart/checkout", nil, nil, http.StatusBadRequest)

	// The order shows up in history.
	var orders []bookstore.Order
	doJSON(t, c, http.MethodGet, ts.URL+"/api/orders", nil, &orders, http.StatusOK)
	if len(orders) != 1 || orders[0].ID != resp.Order.ID {
		t.Fatalf("orders = %+v", orders)
	}
}

func TestCheckoutStockRace(t *testing.T) {
	ts := newTS(t)

	const rpo = "978-0307887436" // inventory 3

	// Two shoppers both put the last copies in their carts; the slower
	// checkout loses at commit time.
	first := newSessionClient(t)
	login(t, first, ts.URL, "john@example.com", "password123")
	second := newSessionClient(t)
	login(t, second, ts.URL, "sarah@example.com", "mypassword")

	doJSON(t, first, http.MethodPut, ts.URL+"/api/cart/items/"+rpo,
		map[string]int{"quantity": 3}, nil, http.StatusOK)
	doJSON(t, second, http.MethodPut, ts.URL+"/api/cart/items/"+rpo,
		map[string]int{"quantity": 2}, nil, http.StatusOK)

	doJSON(t, first, http.MethodPost, ts.URL+"/api/cart/checkout", nil, nil, http.StatusOK)

	var errResp struct {
		Error string `json:"error"`
	}
	doJSON(t, second, http.MethodPost, ts.URL+"/api/cart/checkout", nil, &errResp, http.StatusConflict)
	if errResp.Error == "" {
		t.Fatalf("expected stock error message")
	}
}

func TestRegisterLoginMe(t *testing.T) {
	ts := newTS(t)
	c := newSessionClient(t)

	doJSON(t, c, http.MethodPost, ts.URL+"/api/auth/register", map[string]string{
		"email":    "new@example.com",
		"password": "longenough",
	}, nil, http.StatusCreated)

	// Duplicate registration conflicts.
	doJSON(t, c, http.MethodPost, ts.URL+"/api/auth/register", map[string]string{
		"email":    "new@example.com",
		"password": "longenough",
	}, nil, http.StatusConflict)

	login(t, c, ts.URL, "new@example.com", "longenough")

	var me struct {
		UserID string `json:"user_id"`
		Email  string `json:"email"`
		Role   string `json:"role"`
	}
	doJSON(t, c, http.MethodGet, ts.URL+"/api/auth/me", nil, &me, http.StatusOK)
	if me.Email != "new@example.com" || me.Role != bookstore.RoleUser {
		t.Fatalf("me = %+v", me)
	}
}

func TestOwnerGateOnBookManagement(t *testing.T) {
	ts := newTS(t)

	user := newSessionClient(t)
	login(t, user, ts.URL, "john@example.com", "password123")
	doJSON(t, user, http.MethodPost, ts.URL+"/api/books", bookstore.Book{
		ISBN: "978-1", Title: "X", Author: "Y", PriceCents: 100, Inventory: 1,
	}, nil, http.StatusForbidden)
	doJSON(t, user, http.MethodPut, ts.URL+"/api/books/978-1", bookstore.Book{
		Title: "X", Author: "Y",
	}, nil, http.StatusForbidden)
	doJSON(t, user, http.MethodDelete, ts.URL+"/api/books/978-1", nil, nil, http.StatusForbidden)

	owner := newSessionClient(t)
	login(t, owner, ts.URL, "owner@booknook.local", "letmein123")
	doJSON(t, owner, http.MethodPost, ts.URL+"/api/books", bookstore.Book{
		ISBN: "978-1", Title: "X", Author: "Y", PriceCents: 100, Inventory: 1,
	}, nil, http.StatusCreated)

	var b bookstore.Book
	doJSON(t, owner, http.MethodGet, ts.URL+"/api/books/978-1", nil, &b, http.StatusOK)
	if b.Title != "X" {
		t.Fatalf("book = %+v", b)
	}
}

func TestOwnerUpdateAndDeleteBook(t *testing.T) {
	ts := newTS(t)
	owner := newSessionClient(t)
	login(t, owner, ts.URL, "owner@booknook.local", "letmein123")

	const dune = "978-0441013593"

	// The path ISBN wins over the body's.
	var updated bookstore.Book
	doJSON(t, owner, http.MethodPut, ts.URL+"/api/books/"+dune, bookstore.Book{
		ISBN: "something-else", Title: "Dune", Author: "Frank Herbert",
		PriceCents: 1599, Inventory: 7,
	}, &updated, http.StatusOK)
	if updated.ISBN != dune || updated.PriceCents != 1599 {
		t.Fatalf("updated = %+v", updated)
	}

	var b bookstore.Book
	doJSON(t, owner, http.MethodGet, ts.URL+"/api/books/"+dune, nil, &b, http.StatusOK)
	if b.PriceCents != 1599 || b.Inventory != 7 {
		t.Fatalf("book after update = %+v", b)
	}

	// A blank title is rejected.
	doJSON(t, owner, http.MethodPut, ts.URL+"/api/books/"+dune, bookstore.Book{
		Author: "Frank Herbert",
	}, nil, http.StatusBadRequest)

	doJSON(t, owner, http.MethodDelete, ts.URL+"/api/books/"+dune, nil, nil, http.StatusNoContent)
	doJSON(t, owner, http.MethodGet, ts.URL+"/api/books/"+dune, nil, nil, http.StatusNotFound)
	doJSON(t, owner, http.MethodDelete, ts.URL+"/api/books/"+dune, nil, nil, http.StatusNotFound)
}

func TestRecommendedBooksIsPublic(t *testing.T) {
	ts := newTS(t)

	var shelf []bookstore.Book
	doJSON(t, http.DefaultClient, http.MethodGet, ts.URL+"/api/books/recommended", nil, &shelf, http.StatusOK)
	if len(shelf) != 6 {
		t.Fatalf("shelf = %d books, want the whole seeded catalog", len(shelf))
	}
}

func TestRecommendedBooksReflectPurchases(t *testing.T) {
	ts := newTS(t)

	const dune = "978-0441013593"

	// Two shoppers both buy Dune; the overlap puts it at the head of the
	// shelf.
	for _, creds := range [][2]string{
		{"john@example.com", "password123"},
		{"sarah@example.com", "mypassword"},
	} {
		c := newSessionClient(t)
		login(t, c, ts.URL, creds[0], creds[1])
		doJSON(t, c, http.MethodPut, ts.URL+"/api/cart/items/"+dune,
			map[string]int{"quantity": 1}, nil, http.StatusOK)
		doJSON(t, c, http.MethodPost, ts.URL+"/api/cart/checkout", nil, nil, http.StatusOK)
	}

	var shelf []bookstore.Book
	doJSON(t, http.DefaultClient, http.MethodGet, ts.URL+"/api/books/recommended", nil, &shelf, http.StatusOK)
	if len(shelf) != 6 {
		t.Fatalf("shelf = %d books, want 6", len(shelf))
	}
	if shelf[0].ISBN != dune {
		t.Fatalf("shelf head = %s, want the commonly purchased book", shelf[0].ISBN)
	}
}
