package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/go_pos/internal/auth"
	"github.com/fjod/go_pos/internal/domain"
)

// ProductLookup resolves a product at its live catalog price when a line is
// added to the cart.
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

type CartHandler struct {
	catalog  ProductLookup
	sessions *auth.Manager
	timeout  time.Duration
}

func NewCartHandler(catalog ProductLookup, sessions *auth.Manager, timeout time.Duration) *CartHandler {
	return &CartHandler{
		catalog:  catalog,
		sessions: sessions,
		timeout:  timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type PriceRequestDTO struct {
	Price float64 `json:"price"`
}

type SaleDateRequestDTO struct {
	Date time.Time `json:"date"`
}

type CartResponse struct {
	Items    []domain.CartItem `json:"items"`
	Totals   domain.CartTotals `json:"totals"`
	SaleDate time.Time         `json:"sale_date"`
}

func cartResponse(s *auth.Session) CartResponse {
	return CartResponse{
		Items:    s.Cart.Items(),
		Totals:   s.Cart.Totals(),
		SaleDate: s.SaleDate,
	}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	session := getSessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(session))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session := getSessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must not exceed 99")
		return
	}

	product, err := h.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	session.Cart.Add(*product, req.Quantity)
	respondJSON(w, http.StatusCreated, cartResponse(session))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	session := getSessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must not exceed 99")
		return
	}

	session.Cart.UpdateQuantity(chi.URLParam(r, "product_id"), req.Quantity)
	respondJSON(w, http.StatusOK, cartResponse(session))
}

// UpdateUnitPrice overrides the price of a single unit within a line.
func (h *CartHandler) UpdateUnitPrice(w http.ResponseWriter, r *http.Request) {
	session := getSessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	if !session.User.CanEditPrices() {
		respondError(w, http.StatusForbidden, "permission_denied", "price overrides require admin role")
		return
	}

	unitIndex, err := strconv.Atoi(chi.URLParam(r, "unit_index"))
	if err != nil || unitIndex < 0 {
		respondError(w, http.StatusBadRequest, "invalid_unit_index", "unit_index must be a non-negative integer")
		return
	}

	var req PriceRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Price < 0 {
		respondError(w, http.StatusBadRequest, "invalid_price", "price must not be negative")
		return
	}

	session.Cart.UpdateUnitPrice(chi.URLParam(r, "product_id"), unitIndex, req.Price)
	respondJSON(w, http.StatusOK, cartResponse(session))
}

// SetLinePrice overrides the price of every unit in a line at once.
func (h *CartHandler) SetLinePrice(w http.ResponseWriter, r *http.Request) {
	session := getSessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	if !session.User.CanEditPrices() {
		respondError(w, http.StatusForbidden, "permission_denied", "price overrides require admin role")
		return
	}

	var req PriceRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Price < 0 {
		respondError(w, http.StatusBadRequest, "invalid_price", "price must not be negative")
		return
	}

	session.Cart.SetLinePrice(chi.URLParam(r, "product_id"), req.Price)
	respondJSON(w, http.StatusOK, cartResponse(session))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	session := getSessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	session.Cart.Remove(chi.URLParam(r, "product_id"))
	respondJSON(w, http.StatusOK, cartResponse(session))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	session := getSessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	session.Cart.Clear()
	respondJSON(w, http.StatusOK, cartResponse(session))
}

// SetSaleDate changes the date the next completed sale is recorded under.
func (h *CartHandler) SetSaleDate(w http.ResponseWriter, r *http.Request) {
	session := getSessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req SaleDateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Date.IsZero() {
		respondError(w, http.StatusBadRequest, "invalid_date", "date is required")
		return
	}

	if err := h.sessions.SetSaleDate(session.Token, req.Date); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(session))
}
