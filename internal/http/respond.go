package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/fjod/go_pos/internal/auth"
	"github.com/fjod/go_pos/internal/cart"
	"github.com/fjod/go_pos/internal/catalog"
	"github.com/fjod/go_pos/internal/checkout"
	"github.com/fjod/go_pos/internal/repository"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.WithError(err).Error("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps service layer sentinels to HTTP status codes.
func handleServiceError(w http.ResponseWriter, err error) {
	var ve *catalog.ValidationError
	if errors.As(err, &ve) {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: ve.Reason,
			Code:  "validation_failed",
			Field: ve.Field,
		})
		return
	}

	switch {
	case errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrCategoryNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, repository.ErrDuplicateCategory):
		respondError(w, http.StatusConflict, "already_exists", err.Error())
	case errors.Is(err, repository.ErrCategoryInUse):
		respondError(w, http.StatusConflict, "category_in_use", err.Error())
	case errors.Is(err, catalog.ErrPermissionDenied):
		respondError(w, http.StatusForbidden, "permission_denied", err.Error())
	case errors.Is(err, auth.ErrUnknownUser):
		respondError(w, http.StatusUnauthorized, "unknown_user", err.Error())
	case errors.Is(err, auth.ErrSessionNotFound):
		respondError(w, http.StatusUnauthorized, "session_expired", err.Error())
	case errors.Is(err, auth.ErrFutureSaleDate),
		errors.Is(err, checkout.ErrFutureSaleDate):
		respondError(w, http.StatusBadRequest, "future_sale_date", err.Error())
	case errors.Is(err, checkout.ErrInvalidPayment):
		respondError(w, http.StatusBadRequest, "invalid_payment_method", err.Error())
	case errors.Is(err, cart.ErrCheckoutInProgress):
		respondError(w, http.StatusConflict, "checkout_in_progress", err.Error())
	case errors.Is(err, checkout.ErrSaleFailed):
		respondError(w, http.StatusBadGateway, "sale_failed", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
