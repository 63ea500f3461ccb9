package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// CartLine is a cart record as the service returns it: the line item fields
// plus the book's current inventory, which the reconciler folds back into
// the catalog cache.
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
	CreatedAt time.Time   `json:"created_at"`
	Items     []OrderItem `json:"items"`
}

// CheckoutResult is the single authoritative checkout response: the created
// order plus fresh inventory for every affected book.
type CheckoutResult struct {
	Order        Order  `json:"order"`
	UpdatedBooks []Book `json:"updated_books"`
}

type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Client is the HTTP boundary to the bookstore service. The session cookie
// set at login rides in the cookie jar; every call carries it implicitly.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}

	jar, _ := cookiejar.New(nil)
	return &Client{
		BaseURL: baseURL,
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
	}
}

func (c *Client) FetchCatalog(ctx context.Context) ([]Book, error) {
	var books []Book
	if err := c.do(ctx, http.MethodGet, "/api/books", nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *Client) FetchBook(ctx context.Context, isbn string) (Book, error) {
	var b Book
	if err := c.do(ctx, http.MethodGet, "/api/books/"+url.PathEscape(isbn), nil, &b); err != nil {
		return Book{}, err
	}
	return b, nil
}

// FetchRecommended returns the storewide recommendation shelf, built by
// the service from purchase overlap across all orders.
func (c *Client) FetchRecommended(ctx context.Context) ([]Book, error) {
	var books []Book
	if err := c.do(ctx, http.MethodGet, "/api/books/recommended", nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *Client) FetchCart(ctx context.Context) ([]CartLine, error) {
	var lines []CartLine
	if err := c.do(ctx, http.MethodGet, "/api/cart", nil, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

type setQuantityReq struct {
	Quantity int `json:"quantity"`
}

func (c *Client) SetCartItem(ctx context.Context, isbn string, quantity int) ([]CartLine, error) {
	var lines []CartLine
	path := "/api/cart/items/" + url.PathEscape(isbn)
	if err := c.do(ctx, http.MethodPut, path, setQuantityReq{Quantity: quantity}, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (c *Client) DeleteCartItem(ctx context.Context, isbn string) ([]CartLine, error) {
	var lines []CartLine
	path := "/api/cart/items/" + url.PathEscape(isbn)
	if err := c.do(ctx, http.MethodDelete, path, nil, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (c *Client) Checkout(ctx context.Context) (CheckoutResult, error) {
	var res CheckoutResult
	if err := c.do(ctx, http.MethodPost, "/api/cart/checkout", nil, &res); err != nil {
		return CheckoutResult{}, err
	}
	return res, nil
}

func (c *Client) FetchOrders(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := c.do(ctx, http.MethodGet, "/api/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) Register(ctx context.Context, email, password string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/register", credentialsReq{Email: email, Password: password}, nil)
}

// Login establishes the session; the service responds with a Set-Cookie the
// jar holds for all later calls.
func (c *Client) Login(ctx context.Context, email, password string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/login", credentialsReq{Email: email, Password: password}, nil)
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

func (c *Client) Whoami(ctx context.Context) (Identity, error) {
	var id Identity
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &id); err != nil {
		return Identity{}, err
	}
	return id, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// apiError forwards the service's error message verbatim when the payload
// carries one, else falls back to the status code.
func apiError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		return fmt.Errorf("%w: %s", ErrRequestFailed, payload.Error)
	}
	return fmt.Errorf("%w: status=%d", ErrRequestFailed, resp.StatusCode)
}
