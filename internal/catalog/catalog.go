package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_pos/internal/cache"
	"github.com/fjod/go_pos/internal/domain"
	"github.com/fjod/go_pos/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ErrPermissionDenied is returned when a non-admin caller attempts a
// catalog mutation. Role gating lives here, not in the UI.
var ErrPermissionDenied = errors.New("permission denied")

// ValidationError is a structured, user-displayable failure. The operation
// it rejects is a no-op.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ProductInput carries the mutable product fields for create/update.
type ProductInput struct {
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	Cost              float64 `json:"cost"`
	CategoryID        string  `json:"category_id"`
	Stock             int     `json:"stock"`
	LowStockThreshold int     `json:"low_stock_threshold"`
	Barcode           string  `json:"barcode"`
	Description       string  `json:"description"`
}

func (in *ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	if in.Price < 0 {
		return &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	if in.Cost < 0 {
		return &ValidationError{Field: "cost", Reason: "must not be negative"}
	}
	if in.Stock < 0 {
		return &ValidationError{Field: "stock", Reason: "must not be negative"}
	}
	if in.LowStockThreshold < 0 {
		return &ValidationError{Field: "low_stock_threshold", Reason: "must not be negative"}
	}
	return nil
}

// Service is the catalog provider: products and categories backed by the
// repository, with a cache-aside read path.
type Service struct {
	repo  repository.CatalogRepository
	cache cache.CatalogCache
	sfg   singleflight.Group // Prevents cache stampede
	log   *logrus.Logger
}

func NewService(repo repository.CatalogRepository, c cache.CatalogCache, log *logrus.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: c,
		log:   log,
	}
}

// ListProducts returns the catalog, filtered by free-text query and
// category. The unfiltered list is cached; filtering happens in memory so
// every filter combination shares one cached view.
func (s *Service) ListProducts(ctx context.Context, query, category string) ([]*domain.Product, error) {
	v, err, _ := s.sfg.Do(cache.KeyProducts, func() (interface{}, error) {
		products, err := s.cache.GetProducts(ctx)
		if err == nil {
			return products, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WithError(err).Warn("products cache get failed")
		}

		products, err = s.repo.ListProducts(ctx, repository.ProductFilter{})
		if err != nil {
			return nil, err
		}

		go func() {
			if err := s.cache.SetProducts(context.Background(), products); err != nil {
				s.log.WithError(err).Warn("products cache set failed")
			}
		}()

		return products, nil
	})
	if err != nil {
		return nil, err
	}

	return filterProducts(v.([]*domain.Product), query, category), nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, actor domain.User, in ProductInput) (*domain.Product, error) {
	if !actor.CanManageCatalog() {
		return nil, ErrPermissionDenied
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := &domain.Product{
		ID:                uuid.New().String(),
		Name:              strings.TrimSpace(in.Name),
		Price:             in.Price,
		Cost:              in.Cost,
		CategoryID:        in.CategoryID,
		Stock:             in.Stock,
		LowStockThreshold: in.LowStockThreshold,
		Barcode:           in.Barcode,
		Description:       in.Description,
	}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}

	s.invalidate(ctx, cache.KeyProducts)
	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, actor domain.User, id string, in ProductInput) (*domain.Product, error) {
	if !actor.CanManageCatalog() {
		return nil, ErrPermissionDenied
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := &domain.Product{
		ID:                id,
		Name:              strings.TrimSpace(in.Name),
		Price:             in.Price,
		Cost:              in.Cost,
		CategoryID:        in.CategoryID,
		Stock:             in.Stock,
		LowStockThreshold: in.LowStockThreshold,
		Barcode:           in.Barcode,
		Description:       in.Description,
	}
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}

	s.invalidate(ctx, cache.KeyProducts)
	return p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, actor domain.User, id string) error {
	if !actor.CanManageCatalog() {
		return ErrPermissionDenied
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, cache.KeyProducts)
	return nil
}

// AdjustStock sets a product's stock to an absolute quantity.
func (s *Service) AdjustStock(ctx context.Context, actor domain.User, id string, quantity int) error {
	if !actor.CanManageCatalog() {
		return ErrPermissionDenied
	}
	if quantity < 0 {
		return &ValidationError{Field: "stock", Reason: "must not be negative"}
	}
	if err := s.repo.SetStock(ctx, id, quantity); err != nil {
		return err
	}

	s.invalidate(ctx, cache.KeyProducts)
	return nil
}

func (s *Service) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	v, err, _ := s.sfg.Do(cache.KeyCategories, func() (interface{}, error) {
		categories, err := s.cache.GetCategories(ctx)
		if err == nil {
			return categories, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WithError(err).Warn("categories cache get failed")
		}

		categories, err = s.repo.ListCategories(ctx)
		if err != nil {
			return nil, err
		}

		go func() {
			if err := s.cache.SetCategories(context.Background(), categories); err != nil {
				s.log.WithError(err).Warn("categories cache set failed")
			}
		}()

		return categories, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*domain.Category), nil
}

func (s *Service) CreateCategory(ctx context.Context, actor domain.User, name, description string) (*domain.Category, error) {
	if !actor.CanManageCatalog() {
		return nil, ErrPermissionDenied
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "required"}
	}

	c := &domain.Category{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
	}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}

	// Product rows embed the category name, so both views are stale.
	s.invalidate(ctx, cache.KeyCategories, cache.KeyProducts)
	return c, nil
}

func (s *Service) DeleteCategory(ctx context.Context, actor domain.User, id string) error {
	if !actor.CanManageCatalog() {
		return ErrPermissionDenied
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, cache.KeyCategories, cache.KeyProducts)
	return nil
}

// CategoryForProduct resolves a product's current category name, used by
// reporting as a fallback when a sale item carries none.
func (s *Service) CategoryForProduct(ctx context.Context, productID string) (string, bool) {
	products, err := s.ListProducts(ctx, "", "")
	if err != nil {
		return "", false
	}
	for _, p := range products {
		if p.ID == productID && p.Category != "" {
			return p.Category, true
		}
	}
	return "", false
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.log.WithError(err).WithField("keys", keys).Warn("cache invalidation failed")
	}
}

func filterProducts(products []*domain.Product, query, category string) []*domain.Product {
	if query == "" && category == "" {
		return products
	}

	query = strings.ToLower(query)
	var filtered []*domain.Product
	for _, p := range products {
		if category != "" && p.Category != category {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Name), query) &&
			!strings.Contains(strings.ToLower(p.Category), query) {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}
