package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fjod/go_pos/internal/auth"
)

// NewRouter assembles the full API surface. Login and health stay outside
// the session middleware; everything else requires an active session.
func NewRouter(
	sessions *auth.Manager,
	catalogService CatalogService,
	salesService SalesService,
	reportCatalog ReportCatalog,
	requestTimeout time.Duration,
) http.Handler {

	authHandler := NewAuthHandler(sessions)
	catalogHandler := NewCatalogHandler(catalogService, requestTimeout)
	cartHandler := NewCartHandler(catalogService, sessions, requestTimeout)
	checkoutHandler := NewCheckoutHandler(salesService, requestTimeout)
	reportsHandler := NewReportsHandler(salesService, reportCatalog, requestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware(sessions))

			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)

			r.Route("/products", func(r chi.Router) {
				r.Get("/", catalogHandler.ListProducts)
				r.Post("/", catalogHandler.CreateProduct)
				r.Get("/{id}", catalogHandler.GetProduct)
				r.Put("/{id}", catalogHandler.UpdateProduct)
				r.Delete("/{id}", catalogHandler.DeleteProduct)
				r.Put("/{id}/stock", catalogHandler.SetStock)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", catalogHandler.ListCategories)
				r.Post("/", catalogHandler.CreateCategory)
				r.Delete("/{id}", catalogHandler.DeleteCategory)
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
				r.Delete("/items/{product_id}", cartHandler.RemoveItem)
				r.Put("/items/{product_id}/price", cartHandler.SetLinePrice)
				r.Put("/items/{product_id}/units/{unit_index}", cartHandler.UpdateUnitPrice)
				r.Put("/sale-date", cartHandler.SetSaleDate)
			})

			r.Post("/checkout", checkoutHandler.CompleteSale)

			r.Route("/reports", func(r chi.Router) {
				r.Get("/summary", reportsHandler.Summary)
				r.Get("/daily", reportsHandler.Daily)
				r.Get("/top-products", reportsHandler.TopProducts)
				r.Get("/categories", reportsHandler.Categories)
				r.Get("/payment-methods", reportsHandler.PaymentMethods)
				r.Get("/profit", reportsHandler.Profit)
				r.Get("/low-stock", reportsHandler.LowStock)
				r.Get("/stats", reportsHandler.Stats)
				r.Get("/periods", reportsHandler.Periods)
				r.Get("/sales", reportsHandler.Sales)
			})
		})
	})

	return r
}
