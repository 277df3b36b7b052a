package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/fjod/go_pos/internal/reporting"
)

// ReportCatalog is the slice of the catalog the report widgets read.
type ReportCatalog interface {
	ListProducts(ctx context.Context, query, category string) ([]*domain.Product, error)
	CategoryForProduct(ctx context.Context, productID string) (string, bool)
}

type ReportsHandler struct {
	sales   SalesService
	catalog ReportCatalog
	timeout time.Duration
}

func NewReportsHandler(sales SalesService, catalog ReportCatalog, timeout time.Duration) *ReportsHandler {
	return &ReportsHandler{
		sales:   sales,
		catalog: catalog,
		timeout: timeout,
	}
}

// parseRange reads from/to query params as YYYY-MM-DD calendar days,
// inclusive on both ends. Missing params default to the last 30 days.
func parseRange(r *http.Request) (reporting.Range, bool) {
	now := time.Now()
	from := reporting.Day(now.AddDate(0, 0, -29)).From
	to := reporting.Day(now).To

	if v := r.URL.Query().Get("from"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return reporting.Range{}, false
		}
		from = reporting.Day(d).From
	}
	if v := r.URL.Query().Get("to"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return reporting.Range{}, false
		}
		to = reporting.Day(d).To
	}

	return reporting.Range{From: from, To: to}, true
}

func (h *ReportsHandler) listSales(w http.ResponseWriter, r *http.Request) ([]*domain.Sale, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sales, err := h.sales.ListSales(ctx)
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}
	return sales, true
}

func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	rng, ok := parseRange(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_range", "from/to must be YYYY-MM-DD")
		return
	}
	sales, ok := h.listSales(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, reporting.Summarize(sales, rng))
}

func (h *ReportsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	rng, ok := parseRange(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_range", "from/to must be YYYY-MM-DD")
		return
	}
	sales, ok := h.listSales(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, reporting.DailySeries(sales, rng))
}

func (h *ReportsHandler) TopProducts(w http.ResponseWriter, r *http.Request) {
	rng, ok := parseRange(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_range", "from/to must be YYYY-MM-DD")
		return
	}

	limit := 5
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	sales, ok := h.listSales(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, reporting.TopProducts(sales, rng, limit))
}

func (h *ReportsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	rng, ok := parseRange(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_range", "from/to must be YYYY-MM-DD")
		return
	}
	sales, ok := h.listSales(w, r)
	if !ok {
		return
	}

	lookup := func(productID string) (string, bool) {
		return h.catalog.CategoryForProduct(r.Context(), productID)
	}

	respondJSON(w, http.StatusOK, reporting.RevenueByCategory(sales, rng, lookup))
}

func (h *ReportsHandler) PaymentMethods(w http.ResponseWriter, r *http.Request) {
	rng, ok := parseRange(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_range", "from/to must be YYYY-MM-DD")
		return
	}
	sales, ok := h.listSales(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, reporting.PaymentBreakdown(sales, rng))
}

func (h *ReportsHandler) Profit(w http.ResponseWriter, r *http.Request) {
	rng, ok := parseRange(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_range", "from/to must be YYYY-MM-DD")
		return
	}
	sales, ok := h.listSales(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, reporting.Profit(sales, rng))
}

func (h *ReportsHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.ListProducts(ctx, "", "")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, reporting.LowStock(products))
}

func (h *ReportsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sales, err := h.sales.ListSales(ctx)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	products, err := h.catalog.ListProducts(ctx, "", "")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, reporting.Overview(sales, products, time.Now()))
}

func (h *ReportsHandler) Periods(w http.ResponseWriter, r *http.Request) {
	rng, ok := parseRange(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_range", "from/to must be YYYY-MM-DD")
		return
	}
	sales, ok := h.listSales(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, reporting.Periods(sales, time.Now(), rng))
}

// Sales lists raw sale records for the history view.
func (h *ReportsHandler) Sales(w http.ResponseWriter, r *http.Request) {
	rng, ok := parseRange(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_range", "from/to must be YYYY-MM-DD")
		return
	}
	sales, ok := h.listSales(w, r)
	if !ok {
		return
	}

	filtered := make([]*domain.Sale, 0, len(sales))
	for _, s := range sales {
		if rng.Contains(s.Timestamp) {
			filtered = append(filtered, s)
		}
	}

	respondJSON(w, http.StatusOK, filtered)
}
