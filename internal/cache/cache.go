package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_pos/internal/domain"
)

// Cache keys for the read-side views. Every mutating catalog or sales call
// invalidates exactly the keys it affects: product mutations invalidate
// KeyProducts, category mutations invalidate KeyCategories and KeyProducts
// (product rows embed the category name), completed sales invalidate
// KeySales and KeyProducts (stock changed).
const (
	KeyProducts   = "pos:products"
	KeyCategories = "pos:categories"
	KeySales      = "pos:sales"
)

var ErrCacheMiss = errors.New("cache miss")

type CatalogCache interface {
	GetProducts(ctx context.Context) ([]*domain.Product, error)
	SetProducts(ctx context.Context, products []*domain.Product) error
	GetCategories(ctx context.Context) ([]*domain.Category, error)
	SetCategories(ctx context.Context, categories []*domain.Category) error
	GetSales(ctx context.Context) ([]*domain.Sale, error)
	SetSales(ctx context.Context, sales []*domain.Sale) error
	Invalidate(ctx context.Context, keys ...string) error
}
