package bookstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// PostgresStore expects the following tables:
//
//	books       (isbn PK, title, author, publisher, genre, description, price_cents, inventory, image_url)
//	users       (id PK, email UNIQUE, pass_hash, role)
//	cart_items  (id BIGSERIAL PK, user_id, book_isbn, quantity, UNIQUE(user_id, book_isbn))
//	orders      (id PK, user_id, created_at)
//	order_items (id BIGSERIAL PK, order_id, book_isbn, title, price_cents, quantity, image_url)
type PostgresStore struct {
	db *sql.DB
}

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
	txTimeout    = 5 * time.Second

	pgUniqueCode = "23505"
)

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

const bookColumns = `isbn, title, author, publisher, genre, description, price_cents, inventory, image_url`

func scanBook(row interface{ Scan(...any) error }) (Book, error) {
	var b Book
	err := row.Scan(&b.ISBN, &b.Title, &b.Author, &b.Publisher, &b.Genre,
		&b.Description, &b.PriceCents, &b.Inventory, &b.ImageURL)
	return b, err
}

func (s *PostgresStore) ListBooks(ctx context.Context) ([]Book, error) {
	var out []Book

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT `+bookColumns+`
			FROM books
			ORDER BY isbn ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Book, 0, 32)
		for rows.Next() {
			b, err := scanBook(rows)
			if err != nil {
				return err
			}
			out = append(out, b)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) GetBook(ctx context.Context, isbn string) (Book, bool, error) {
	var b Book

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		var scanErr error
		b, scanErr = scanBook(s.db.QueryRowContext(ctx, `
			SELECT `+bookColumns+`
			FROM books
			WHERE isbn = $1
		`, isbn))
		return scanErr
	})

	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, false, nil
	}
	if err != nil {
		return Book{}, false, err
	}
	return b, true, nil
}

func (s *PostgresStore) UpsertBook(ctx context.Context, b Book) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO books (`+bookColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (isbn) DO UPDATE SET
				title = EXCLUDED.title,
				author = EXCLUDED.author,
				publisher = EXCLUDED.publisher,
				genre = EXCLUDED.genre,
				description = EXCLUDED.description,
				price_cents = EXCLUDED.price_cents,
				inventory = EXCLUDED.inventory,
				image_url = EXCLUDED.image_url
		`, b.ISBN, b.Title, b.Author, b.Publisher, b.Genre, b.Description,
			b.PriceCents, b.Inventory, b.ImageURL)
		return err
	})
}

func (s *PostgresStore) DeleteBook(ctx context.Context, isbn string) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, `
			DELETE FROM books WHERE isbn = $1
		`, isbn)
		if err != nil {
			return err
		}

		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrBookNotFound, isbn)
		}
		return nil
	})
}

func (s *PostgresStore) CartLines(ctx context.Context, userID string) ([]CartLine, error) {
	var out []CartLine

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		var qErr error
		out, qErr = queryCartLines(ctx, s.db, userID)
		return qErr
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryCartLines(ctx context.Context, q querier, userID string) ([]CartLine, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT b.isbn, b.title, b.price_cents, ci.quantity, b.image_url, b.inventory
		FROM cart_items ci
		JOIN books b ON b.isbn = ci.book_isbn
		WHERE ci.user_id = $1
		ORDER BY ci.id ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CartLine, 0, 8)
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.ISBN, &l.Title, &l.PriceCents, &l.Quantity, &l.ImageURL, &l.Inventory); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SetCartQuantity(ctx context.Context, userID, isbn string, quantity int) ([]CartLine, error) {
	var out []CartLine

	err := withTimeout(ctx, txTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		var title string
		var inventory int
		err = tx.QueryRowContext(ctx, `
			SELECT title, inventory FROM books WHERE isbn = $1
		`, isbn).Scan(&title, &inventory)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrBookNotFound, isbn)
		}
		if err != nil {
			return err
		}
		if quantity > inventory {
			return fmt.Errorf("%w: only %d copies of %q remain", ErrInsufficientStock, inventory, title)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO cart_items (user_id, book_isbn, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, book_isbn) DO UPDATE SET quantity = EXCLUDED.quantity
		`, userID, isbn, quantity)
		if err != nil {
			return err
		}

		out, err = queryCartLines(ctx, tx, userID)
		if err != nil {
			return err
		}
		return tx.Commit()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) RemoveCartLine(ctx context.Context, userID, isbn string) ([]CartLine, error) {
	var out []CartLine

	err := withTimeout(ctx, txTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM cart_items WHERE user_id = $1 AND book_isbn = $2
		`, userID, isbn); err != nil {
			return err
		}

		out, err = queryCartLines(ctx, tx, userID)
		if err != nil {
			return err
		}
		return tx.Commit()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) Checkout(ctx context.Context, userID, orderID string, now time.Time) (Order, []Book, error) {
	var (
		o       Order
		updated []Book
	)

	err := withTimeout(ctx, txTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		// Lock the cart's books so concurrent checkouts serialize on stock.
		rows, err := tx.QueryContext(ctx, `
			SELECT b.isbn, b.title, b.author, b.publisher, b.genre, b.description,
			       b.price_cents, b.inventory, b.image_url, ci.quantity
			FROM cart_items ci
			JOIN books b ON b.isbn = ci.book_isbn
			WHERE ci.user_id = $1
			ORDER BY ci.id ASC
			FOR UPDATE OF b
		`, userID)
		if err != nil {
			return err
		}

		type lockedLine struct {
			book Book
			qty  int
		}
		lines := make([]lockedLine, 0, 8)
		for rows.Next() {
			var ll lockedLine
			if err := rows.Scan(&ll.book.ISBN, &ll.book.Title, &ll.book.Author,
				&ll.book.Publisher, &ll.book.Genre, &ll.book.Description,
				&ll.book.PriceCents, &ll.book.Inventory, &ll.book.ImageURL, &ll.qty); err != nil {
				rows.Close()
				return err
			}
			lines = append(lines, ll)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		if len(lines) == 0 {
			return ErrEmptyCart
		}
		for _, ll := range lines {
			if ll.qty > ll.book.Inventory {
				return fmt.Errorf("%w: only %d copies of %q remain", ErrInsufficientStock, ll.book.Inventory, ll.book.Title)
			}
		}

		o = Order{ID: orderID, UserID: userID, CreatedAt: now}
		updated = make([]Book, 0, len(lines))

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO orders (id, user_id, created_at) VALUES ($1, $2, $3)
		`, orderID, userID, now); err != nil {
			return err
		}

		for _, ll := range lines {
			if _, err := tx.ExecContext(ctx, `
				UPDATE books SET inventory = inventory - $1 WHERE isbn = $2
			`, ll.qty, ll.book.ISBN); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (order_id, book_isbn, title, price_cents, quantity, image_url)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, orderID, ll.book.ISBN, ll.book.Title, ll.book.PriceCents, ll.qty, ll.book.ImageURL); err != nil {
				return err
			}

			o.Items = append(o.Items, OrderItem{
				ISBN:       ll.book.ISBN,
				Title:      ll.book.Title,
				PriceCents: ll.book.PriceCents,
				Quantity:   ll.qty,
				ImageURL:   ll.book.ImageURL,
			})

			b := ll.book
			b.Inventory -= ll.qty
			updated = append(updated, b)
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM cart_items WHERE user_id = $1
		`, userID); err != nil {
			return err
		}

		return tx.Commit()
	})

	if err != nil {
		return Order{}, nil, err
	}
	return o, updated, nil
}

func (s *PostgresStore) Orders(ctx context.Context, userID string) ([]Order, error) {
	var out []Order

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT o.id, o.created_at, oi.book_isbn, oi.title, oi.price_cents, oi.quantity, oi.image_url
			FROM orders o
			JOIN order_items oi ON oi.order_id = o.id
			WHERE o.user_id = $1
			ORDER BY o.created_at DESC, oi.id ASC
		`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Order, 0, 8)
		var cur *Order
		for rows.Next() {
			var (
				id        string
				createdAt time.Time
				item      OrderItem
			)
			if err := rows.Scan(&id, &createdAt, &item.ISBN, &item.Title,
				&item.PriceCents, &item.Quantity, &item.ImageURL); err != nil {
				return err
			}

			if cur == nil || cur.ID != id {
				out = append(out, Order{ID: id, UserID: userID, CreatedAt: createdAt})
				cur = &out[len(out)-1]
			}
			cur.Items = append(cur.Items, item)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) AllOrders(ctx context.Context) ([]Order, error) {
	var out []Order

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT o.id, o.user_id, o.created_at, oi.book_isbn, oi.title, oi.price_cents, oi.quantity, oi.image_url
			FROM orders o
			JOIN order_items oi ON oi.order_id = o.id
			ORDER BY o.created_at DESC, oi.id ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Order, 0, 32)
		var cur *Order
		for rows.Next() {
			var (
				id        string
				userID    string
				createdAt time.Time
				item      OrderItem
			)
			if err := rows.Scan(&id, &userID, &createdAt, &item.ISBN, &item.Title,
				&item.PriceCents, &item.Quantity, &item.ImageURL); err != nil {
				return err
			}

			if cur == nil || cur.ID != id {
				out = append(out, Order{ID: id, UserID: userID, CreatedAt: createdAt})
				cur = &out[len(out)-1]
			}
			cur.Items = append(cur.Items, item)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, email, password, role, id string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO users (id, email, pass_hash, role)
			VALUES ($1, $2, $3, $4)
		`, id, email, hash, role)

		if err == nil {
			return nil
		}
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return err
	})
}

func (s *PostgresStore) VerifyUser(ctx context.Context, email, password string) (User, error) {
	var u User

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `
			SELECT id, email, pass_hash, role
			FROM users
			WHERE email = $1
		`, email).Scan(&u.ID, &u.Email, &u.Hash, &u.Role)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(u.Hash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueCode
}
