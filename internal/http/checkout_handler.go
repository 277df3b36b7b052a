package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_pos/internal/cart"
	"github.com/fjod/go_pos/internal/domain"
)

// SalesService finalizes carts into persisted sales.
type SalesService interface {
	CompleteSale(ctx context.Context, c *cart.Cart, cashier domain.User, saleDate time.Time, method domain.PaymentMethod, customerID string) (string, error)
	ListSales(ctx context.Context) ([]*domain.Sale, error)
}

type CheckoutHandler struct {
	service SalesService
	timeout time.Duration
}

func NewCheckoutHandler(service SalesService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		timeout: timeout,
	}
}

type CheckoutRequestDTO struct {
	PaymentMethod string `json:"payment_method"`
	CustomerID    string `json:"customer_id"`
}

type CheckoutResponse struct {
	SaleID string `json:"sale_id"`
	Empty  bool   `json:"empty,omitempty"`
}

func (h *CheckoutHandler) CompleteSale(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session := getSessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	saleID, err := h.service.CompleteSale(
		ctx,
		session.Cart,
		session.User,
		session.SaleDate,
		domain.PaymentMethod(req.PaymentMethod),
		req.CustomerID,
	)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// An empty cart is a no-op, not a sale.
	if saleID == "" {
		respondJSON(w, http.StatusOK, CheckoutResponse{Empty: true})
		return
	}

	respondJSON(w, http.StatusCreated, CheckoutResponse{SaleID: saleID})
}
