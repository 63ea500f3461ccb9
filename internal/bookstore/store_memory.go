package bookstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type MemStore struct {
	mu        sync.RWMutex
	books     map[string]Book
	bookOrder []string
	carts     map[string]map[string]int // userID -> isbn -> quantity
	cartOrder map[string][]string       // userID -> isbns in insertion order
	orders    map[string][]Order        // userID -> orders, newest first
	users     map[string]User           // by email
}

func NewMemStore() *MemStore {
	return &MemStore{
		books:     map[string]Book{},
		carts:     map[string]map[string]int{},
		cartOrder: map[string][]string{},
		orders:    map[string][]Order{},
		users:     map[string]User{},
	}
}

// NewSeededMemStore returns a memory store preloaded with a small catalog
// and demo accounts, for local runs without a database.
func NewSeededMemStore() *MemStore {
	s := NewMemStore()

	seed := []Book{
		{ISBN: "978-0441013593", Title: "Dune", Author: "Frank Herbert", Publisher: "Ace", Genre: "sci-fi, classic", Description: "Paul Atreides and the spice wars of Arrakis.", PriceCents: 1299, Inventory: 12, ImageURL: "/covers/dune.jpg"},
		{ISBN: "978-0553293357", Title: "Foundation", Author: "Isaac Asimov", Publisher: "Spectra", Genre: "sci-fi", Description: "Psychohistory and the fall of the Galactic Empire.", PriceCents: 899, Inventory: 8, ImageURL: "/covers/foundation.jpg"},
		{ISBN: "978-0261103573", Title: "The Fellowship of the Ring", Author: "J.R.R. Tolkien", Publisher: "HarperCollins", Genre: "fantasy, classic", Description: "The first part of The Lord of the Rings.", PriceCents: 1499, Inventory: 5, ImageURL: "/covers/fellowship.jpg"},
		{ISBN: "978-0141439518", Title: "Pride and Prejudice", Author: "Jane Austen", Publisher: "Penguin Classics", Genre: "romance, classic", Description: "It is a truth universally acknowledged.", PriceCents: 699, Inventory: 15, ImageURL: "/covers/pride.jpg"},
		{ISBN: "978-0307887436", Title: "Ready Player One", Author: "Ernest Cline", Publisher: "Broadway", Genre: "sci-fi, adventure", Description: "A treasure hunt inside the OASIS.", PriceCents: 1099, Inventory: 3, ImageURL: "/covers/rpo.jpg"},
		{ISBN: "978-0062315007", Title: "The Alchemist", Author: "Paulo Coelho", Publisher: "HarperOne", Genre: "fiction", Description: "Santiago follows his personal legend.", PriceCents: 999, Inventory: 20, ImageURL: "/covers/alchemist.jpg"},
	}
	for _, b := range seed {
		s.books[b.ISBN] = b
		s.bookOrder = append(s.bookOrder, b.ISBN)
	}

	ctx := context.Background()
	_ = s.CreateUser(ctx, "john@example.com", "password123", RoleUser, "u_seed_john")
	_ = s.CreateUser(ctx, "sarah@example.com", "mypassword", RoleUser, "u_seed_sarah")
	_ = s.CreateUser(ctx, "owner@booknook.local", "letmein123", RoleOwner, "u_seed_owner")

	return s
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) ListBooks(ctx context.Context) ([]Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Book, 0, len(s.bookOrder))
	for _, isbn := range s.bookOrder {
		out = append(out, s.books[isbn])
	}
	return out, nil
}

func (s *MemStore) GetBook(ctx context.Context, isbn string) (Book, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[isbn]
	return b, ok, nil
}

func (s *MemStore) UpsertBook(ctx context.Context, b Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[b.ISBN]; !ok {
		s.bookOrder = append(s.bookOrder, b.ISBN)
	}
	s.books[b.ISBN] = b
	return nil
}

func (s *MemStore) DeleteBook(ctx context.Context, isbn string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[isbn]; !ok {
		return fmt.Errorf("%w: %s", ErrBookNotFound, isbn)
	}
	delete(s.books, isbn)
	for i, key := range s.bookOrder {
		if key == isbn {
			s.bookOrder = append(s.bookOrder[:i], s.bookOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemStore) CartLines(ctx context.Context, userID string) ([]CartLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cartLinesLocked(userID), nil
}

func (s *MemStore) SetCartQuantity(ctx context.Context, userID, isbn string, quantity int) ([]CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[isbn]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBookNotFound, isbn)
	}
	if quantity > b.Inventory {
		return nil, fmt.Errorf("%w: only %d copies of %q remain", ErrInsufficientStock, b.Inventory, b.Title)
	}

	cart := s.carts[userID]
	if cart == nil {
		cart = map[string]int{}
		s.carts[userID] = cart
	}
	if _, exists := cart[isbn]; !exists {
		s.cartOrder[userID] = append(s.cartOrder[userID], isbn)
	}
	cart[isbn] = quantity

	return s.cartLinesLocked(userID), nil
}

func (s *MemStore) RemoveCartLine(ctx context.Context, userID, isbn string) ([]CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cart := s.carts[userID]; cart != nil {
		delete(cart, isbn)
	}
	order := s.cartOrder[userID]
	for i, key := range order {
		if key == isbn {
			s.cartOrder[userID] = append(order[:i], order[i+1:]...)
			break
		}
	}

	return s.cartLinesLocked(userID), nil
}

func (s *MemStore) Checkout(ctx context.Context, userID, orderID string, now time.Time) (Order, []Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.carts[userID]
	order := s.cartOrder[userID]
	if len(cart) == 0 {
		return Order{}, nil, ErrEmptyCart
	}

	// Validate everything before touching inventory so a failure leaves the
	// store unchanged.
	for _, isbn := range order {
		b, ok := s.books[isbn]
		if !ok {
			return Order{}, nil, fmt.Errorf("%w: %s", ErrBookNotFound, isbn)
		}
		if cart[isbn] > b.Inventory {
			return Order{}, nil, fmt.Errorf("%w: only %d copies of %q remain", ErrInsufficientStock, b.Inventory, b.Title)
		}
	}

	o := Order{ID: orderID, UserID: userID, CreatedAt: now}
	updated := make([]Book, 0, len(order))
	for _, isbn := range order {
		b := s.books[isbn]
		qty := cart[isbn]

		o.Items = append(o.Items, OrderItem{
			ISBN:       b.ISBN,
			Title:      b.Title,
			PriceCents: b.PriceCents,
			Quantity:   qty,
			ImageURL:   b.ImageURL,
		})

		b.Inventory -= qty
		s.books[isbn] = b
		updated = append(updated, b)
	}

	s.orders[userID] = append([]Order{o}, s.orders[userID]...)
	delete(s.carts, userID)
	delete(s.cartOrder, userID)

	return o, updated, nil
}

func (s *MemStore) Orders(ctx context.Context, userID string) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Order, len(s.orders[userID]))
	copy(out, s.orders[userID])
	return out, nil
}

func (s *MemStore) AllOrders(ctx context.Context) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Order
	for _, orders := range s.orders {
		out = append(out, orders...)
	}
	return out, nil
}

func (s *MemStore) CreateUser(ctx context.Context, email, password, role, id string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	password = strings.TrimSpace(password)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[email]; ok {
		return ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	s.users[email] = User{ID: id, Email: email, Hash: hash, Role: role}
	return nil
}

func (s *MemStore) VerifyUser(ctx context.Context, email, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.RLock()
	u, ok := s.users[email]
	s.mu.RUnlock()

	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.Hash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *MemStore) cartLinesLocked(userID string) []CartLine {
	order := s.cartOrder[userID]
	cart := s.carts[userID]

	out := make([]CartLine, 0, len(order))
	for _, isbn := range order {
		b, ok := s.books[isbn]
		if !ok {
			continue
		}
		out = append(out, CartLine{
			ISBN:       b.ISBN,
			Title:      b.Title,
			PriceCents: b.PriceCents,
			Quantity:   cart[isbn],
			ImageURL:   b.ImageURL,
			Inventory:  b.Inventory,
		})
	}
	return out
}
