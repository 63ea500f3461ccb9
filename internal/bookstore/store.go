package bookstore

import (
	"context"
	"errors"
	"time"
)

const (
	RoleUser  = "user"
	RoleOwner = "owner"
)

type Book struct {
	ISBN        string `json:"isbn"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Publisher   string `json:"publisher,omitempty"`
	Genre       string `json:"genre,omitempty"`
	Description string `json:"description,omitempty"`
	PriceCents  int64  `json:"price_cents"`
	Inventory   int    `json:"inventory"`
	ImageURL    string `json:"image_url,omitempty"`
}

// CartLine is a cart row joined with its book: line item fields plus the
// book's live inventory so clients can reconcile their caches.
type CartLine struct {
	ISBN       string `json:"isbn"`
	Title      string `json:"title"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int    `json:"quantity"`
	ImageURL   string `json:"image_url,omitempty"`
	Inventory  int    `json:"inventory"`
}

type OrderItem struct {
	ISBN       string `json:"isbn"`
	Title      string `json:"title"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int    `json:"quantity"`
	ImageURL   string `json:"image_url,omitempty"`
}

type Order struct {
	ID        string      `json:"id"`
	UserID    string      `json:"-"`
	CreatedAt time.Time   `json:"created_at"`
	Items     []OrderItem `json:"items"`
}

type User struct {
	ID    string
	Email string
	Hash  []byte
	Role  string
}

var (
	ErrBookNotFound       = errors.New("book not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Store is the persistence boundary. Checkout must be atomic: either the
// order exists, inventory is decremented, and the cart is gone, or nothing
// changed.
type Store interface {
	Ping(ctx context.Context) error

	ListBooks(ctx context.Context) ([]Book, error)
	GetBook(ctx context.Context, isbn string) (Book, bool, error)
	UpsertBook(ctx context.Context, b Book) error
	DeleteBook(ctx context.Context, isbn string) error

	CartLines(ctx context.Context, userID string) ([]CartLine, error)
	SetCartQuantity(ctx context.Context, userID, isbn string, quantity int) ([]CartLine, error)
	RemoveCartLine(ctx context.Context, userID, isbn string) ([]CartLine, error)
	Checkout(ctx context.Context, userID, orderID string, now time.Time) (Order, []Book, error)
	Orders(ctx context.Context, userID string) ([]Order, error)

	// AllOrders spans every user; it feeds the recommendation shelf.
	AllOrders(ctx context.Context) ([]Order, error)

	CreateUser(ctx context.Context, email, password, role, id string) error
	VerifyUser(ctx context.Context, email, password string) (User, error)
}
