package bookstore

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"BookNook/pkg/kit"
)

const (
	maxBodyBytes = 1 << 20
	sessionTTL   = 24 * time.Hour
	minPassword  = 8
)

type Server struct {
	Store Store
	JWT   *TokenMaker
	Log   *zap.Logger
}

type checkoutResp struct {
	Order        Order  `json:"order"`
	UpdatedBooks []Book `json:"updated_books"`
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.Store.ListBooks(r.Context())
	if err != nil {
		s.logError("list books failed", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, books)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	isbn := chi.URLParam(r, "isbn")

	b, ok, err := s.Store.GetBook(r.Context(), isbn)
	if err != nil {
		s.logError("get book failed", err, zap.String("isbn", isbn))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"isbn": isbn})
		return
	}
	kit.WriteJSON(w, http.StatusOK, b)
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var b Book
	if err := decodeJSON(w, r, &b); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	b.ISBN = strings.TrimSpace(b.ISBN)
	if b.ISBN == "" || strings.TrimSpace(b.Title) == "" || strings.TrimSpace(b.Author) == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "isbn/title/author required", nil)
		return
	}
	if b.PriceCents < 0 || b.Inventory < 0 {
		kit.WriteError(w, r, http.StatusBadRequest, "price and inventory must be non-negative", nil)
		return
	}

	if err := s.Store.UpsertBook(r.Context(), b); err != nil {
		s.logError("upsert book failed", err, zap.String("isbn", b.ISBN))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, b)
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	var b Book
	if err := decodeJSON(w, r, &b); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	// The path ISBN wins over whatever the body carries.
	b.ISBN = chi.URLParam(r, "isbn")
	if strings.TrimSpace(b.Title) == "" || strings.TrimSpace(b.Author) == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "title/author required", nil)
		return
	}
	if b.PriceCents < 0 || b.Inventory < 0 {
		kit.WriteError(w, r, http.StatusBadRequest, "price and inventory must be non-negative", nil)
		return
	}

	if err := s.Store.UpsertBook(r.Context(), b); err != nil {
		s.logError("upsert book failed", err, zap.String("isbn", b.ISBN))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	isbn := chi.URLParam(r, "isbn")

	if err := s.Store.DeleteBook(r.Context(), isbn); err != nil {
		if errors.Is(err, ErrBookNotFound) {
			kit.WriteError(w, r, http.StatusNotFound, err.Error(), nil)
			return
		}
		s.logError("delete book failed", err, zap.String("isbn", isbn))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecommendedBooks(w http.ResponseWriter, r *http.Request) {
	orders, err := s.Store.AllOrders(r.Context())
	if err != nil {
		s.logError("load orders for recommendations failed", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	books, err := s.Store.ListBooks(r.Context())
	if err != nil {
		s.logError("list books failed", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, RecommendBooks(orders, books, DefaultRecommendLimit))
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusUnauthorized, "not logged in", nil)
		return
	}

	lines, err := s.Store.CartLines(r.Context(), u.ID)
	if err != nil {
		s.logError("get cart failed", err, zap.String("user_id", u.ID))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, lines)
}

type setQuantityReq struct {
	Quantity int `json:"quantity"`
}

func (s *Server) handleSetCartItem(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusUnauthorized, "not logged in", nil)
		return
	}

	var req setQuantityReq
	if err := decodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	if req.Quantity < 1 {
		kit.WriteError(w, r, http.StatusBadRequest, "quantity must be at least 1", nil)
		return
	}

	isbn := chi.URLParam(r, "isbn")
	lines, err := s.Store.SetCartQuantity(r.Context(), u.ID, isbn, req.Quantity)
	if err != nil {
		s.writeCartError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, lines)
}

func (s *Server) handleDeleteCartItem(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusUnauthorized, "not logged in", nil)
		return
	}

	isbn := chi.URLParam(r, "isbn")
	lines, err := s.Store.RemoveCartLine(r.Context(), u.ID, isbn)
	if err != nil {
		s.logError("remove cart line failed", err, zap.String("isbn", isbn))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, lines)
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusUnauthorized, "not logged in", nil)
		return
	}

	orderID := "o_" + uuid.NewString()
	order, updated, err := s.Store.Checkout(r.Context(), u.ID, orderID, time.Now().UTC())
	if err != nil {
		s.writeCartError(w, r, err)
		return
	}

	if s.Log != nil {
		s.Log.Info("order placed",
			zap.String("order_id", order.ID),
			zap.String("user_id", u.ID),
			zap.Int("lines", len(order.Items)),
		)
	}
	kit.WriteJSON(w, http.StatusOK, checkoutResp{Order: order, UpdatedBooks: updated})
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusUnauthorized, "not logged in", nil)
		return
	}

	orders, err := s.Store.Orders(r.Context(), u.ID)
	if err != nil {
		s.logError("list orders failed", err, zap.String("user_id", u.ID))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, orders)
}

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if err := decodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Password = strings.TrimSpace(req.Password)

	if req.Email == "" || req.Password == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "email/password required", nil)
		return
	}
	if len(req.Password) < minPassword {
		kit.WriteError(w, r, http.StatusBadRequest, "password too short", map[string]any{"min_len": minPassword})
		return
	}

	id := "u_" + uuid.NewString()
	if err := s.Store.CreateUser(r.Context(), req.Email, req.Password, RoleUser, id); err != nil {
		if errors.Is(err, ErrEmailExists) {
			kit.WriteError(w, r, http.StatusConflict, err.Error(), nil)
			return
		}
		s.logError("create user failed", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if err := decodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Password = strings.TrimSpace(req.Password)

	u, err := s.Store.VerifyUser(r.Context(), req.Email, req.Password)
	if err != nil {
		kit.WriteError(w, r, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}

	tok, err := s.JWT.New(u.ID, u.Email, u.Role, sessionTTL)
	if err != nil {
		s.logError("token issue failed", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	setSessionCookie(w, tok, sessionTTL)
	kit.WriteJSON(w, http.StatusOK, map[string]any{
		"user_id": u.ID,
		"email":   u.Email,
		"role":    u.Role,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusUnauthorized, "not logged in", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, map[string]any{
		"user_id": u.ID,
		"email":   u.Email,
		"role":    u.Role,
	})
}

// writeCartError maps store failures from cart mutations and checkout.
// Stock conflicts keep the store's message so clients can show it as is.
func (s *Server) writeCartError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrBookNotFound):
		kit.WriteError(w, r, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, ErrInsufficientStock):
		kit.WriteError(w, r, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, ErrEmptyCart):
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
	default:
		s.logError("cart operation failed", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after json object")
	}
	return nil
}

func (s *Server) logError(msg string, err error, fields ...zap.Field) {
	if s.Log == nil {
		return
	}
	s.Log.Error(msg, append([]zap.Field{zap.Error(err)}, fields...)...)
}
