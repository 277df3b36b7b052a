package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_pos/internal/cache"
	"github.com/fjod/go_pos/internal/cart"
	"github.com/fjod/go_pos/internal/domain"
	"github.com/fjod/go_pos/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrSaleFailed wraps persistence failures during sale completion. The
	// cart is left intact so the operator can retry without re-entering
	// items.
	ErrSaleFailed = errors.New("could not complete sale")

	// ErrInvalidPayment rejects unknown payment methods before anything is
	// persisted.
	ErrInvalidPayment = errors.New("invalid payment method")

	// ErrFutureSaleDate rejects sale dates after the current time; manual
	// backdating is allowed, postdating is not.
	ErrFutureSaleDate = errors.New("sale date must not be in the future")
)

// Service finalizes carts into immutable sales and serves the sales
// history read path.
type Service struct {
	repo  repository.SalesRepository
	cache cache.CatalogCache
	sfg   singleflight.Group
	log   *logrus.Logger
}

func NewService(repo repository.SalesRepository, c cache.CatalogCache, log *logrus.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: c,
		log:   log,
	}
}

// CompleteSale converts a non-empty cart into a Sale record. An empty cart
// returns an empty identifier and does nothing; that is a deliberate no-op,
// not an error. On success the cart is cleared and the sale ID returned; on
// persistence failure the cart keeps its contents.
//
// The sale insert and the per-line stock decrements are a single
// transaction at the repository layer. A second call while one is in
// flight for the same cart fails with cart.ErrCheckoutInProgress.
func (s *Service) CompleteSale(
	ctx context.Context,
	c *cart.Cart,
	cashier domain.User,
	saleDate time.Time,
	method domain.PaymentMethod,
	customerID string,
) (string, error) {

	if c.Empty() {
		return "", nil
	}
	if !method.Valid() {
		return "", ErrInvalidPayment
	}
	if saleDate.After(time.Now()) {
		return "", ErrFutureSaleDate
	}

	if err := c.BeginCheckout(); err != nil {
		return "", err
	}
	defer c.EndCheckout()

	totals := c.Totals()
	sale := &domain.Sale{
		ID:            uuid.New().String(),
		Items:         c.Snapshot(),
		Total:         totals.Total,
		Tax:           totals.Tax,
		Discount:      totals.Discount,
		PaymentMethod: method,
		Timestamp:     saleDate,
		CashierID:     cashier.ID,
		CustomerID:    customerID,
	}

	if err := s.repo.CreateSale(ctx, sale); err != nil {
		s.log.WithError(err).WithField("sale_id", sale.ID).Error("sale persistence failed")
		return "", fmt.Errorf("%w: %v", ErrSaleFailed, err)
	}

	// Stock changed and the history grew; both cached views are stale.
	if err := s.cache.Invalidate(ctx, cache.KeySales, cache.KeyProducts); err != nil {
		s.log.WithError(err).Warn("cache invalidation failed after sale")
	}

	c.Clear()

	s.log.WithFields(logrus.Fields{
		"sale_id": sale.ID,
		"total":   sale.Total,
		"method":  sale.PaymentMethod,
	}).Info("sale completed")

	return sale.ID, nil
}

// ListSales returns the full sales history, cache-aside. Range filtering is
// left to the reporting layer so all report widgets share one cached view.
func (s *Service) ListSales(ctx context.Context) ([]*domain.Sale, error) {
	v, err, _ := s.sfg.Do(cache.KeySales, func() (interface{}, error) {
		sales, err := s.cache.GetSales(ctx)
		if err == nil {
			return sales, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WithError(err).Warn("sales cache get failed")
		}

		sales, err = s.repo.ListSales(ctx, repository.SaleFilter{})
		if err != nil {
			return nil, err
		}

		go func() {
			if err := s.cache.SetSales(context.Background(), sales); err != nil {
				s.log.WithError(err).Warn("sales cache set failed")
			}
		}()

		return sales, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*domain.Sale), nil
}
