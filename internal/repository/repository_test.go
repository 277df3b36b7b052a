package repository

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "../../migrations",
	}

	repo, err := NewRepository(creds)
	require.NoError(t, err)

	err = repo.RunMigrations(creds)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func createTestCategory(t *testing.T, repo *Repository, name string) *domain.Category {
	t.Helper()
	c := &domain.Category{ID: uuid.New().String(), Name: name}
	require.NoError(t, repo.CreateCategory(context.Background(), c))
	return c
}

func createTestProduct(t *testing.T, repo *Repository, name, categoryID string, price float64, stock int) *domain.Product {
	t.Helper()
	p := &domain.Product{
		ID:                uuid.New().String(),
		Name:              name,
		Price:             price,
		CategoryID:        categoryID,
		Stock:             stock,
		LowStockThreshold: 5,
	}
	require.NoError(t, repo.CreateProduct(context.Background(), p))
	return p
}

func TestProductCRUD(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	cat := createTestCategory(t, repo, "Coffee")
	p := createTestProduct(t, repo, "Espresso", cat.ID, 2.99, 50)

	got, err := repo.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Espresso", got.Name)
	assert.Equal(t, "Coffee", got.Category)
	assert.InDelta(t, 2.99, got.Price, 1e-9)
	assert.Equal(t, 50, got.Stock)

	got.Price = 3.49
	got.Stock = 40
	require.NoError(t, repo.UpdateProduct(ctx, got))

	updated, err := repo.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.49, updated.Price, 1e-9)
	assert.Equal(t, 40, updated.Stock)

	require.NoError(t, repo.DeleteProduct(ctx, p.ID))
	_, err = repo.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestUpdateProduct_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	err := repo.UpdateProduct(context.Background(), &domain.Product{
		ID:   uuid.New().String(),
		Name: "Ghost",
	})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestListProducts_Filter(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	coffee := createTestCategory(t, repo, "Coffee")
	pastry := createTestCategory(t, repo, "Pastry")
	createTestProduct(t, repo, "Espresso", coffee.ID, 2.99, 50)
	createTestProduct(t, repo, "Latte", coffee.ID, 5.49, 40)
	createTestProduct(t, repo, "Croissant", pastry.ID, 3.49, 25)

	all, err := repo.ListProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byCategory, err := repo.ListProducts(ctx, ProductFilter{Category: "Coffee"})
	require.NoError(t, err)
	assert.Len(t, byCategory, 2)

	byQuery, err := repo.ListProducts(ctx, ProductFilter{Query: "crois"})
	require.NoError(t, err)
	require.Len(t, byQuery, 1)
	assert.Equal(t, "Croissant", byQuery[0].Name)
}

func TestDeleteCategory_InUse(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	cat := createTestCategory(t, repo, "Coffee")
	createTestProduct(t, repo, "Espresso", cat.ID, 2.99, 50)

	err := repo.DeleteCategory(ctx, cat.ID)
	assert.ErrorIs(t, err, ErrCategoryInUse)

	// Still listed.
	categories, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 1)
}

func TestCreateCategory_Duplicate(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	createTestCategory(t, repo, "Coffee")
	err := repo.CreateCategory(context.Background(), &domain.Category{
		ID:   uuid.New().String(),
		Name: "Coffee",
	})
	assert.ErrorIs(t, err, ErrDuplicateCategory)
}

func TestCreateSale_DecrementsStockAndWritesOutbox(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	cat := createTestCategory(t, repo, "Coffee")
	p := createTestProduct(t, repo, "Espresso", cat.ID, 2.00, 10)

	sale := &domain.Sale{
		ID: uuid.New().String(),
		Items: []domain.SaleItem{
			{ProductID: p.ID, Name: p.Name, Category: "Coffee", Quantity: 3, UnitPrices: []float64{2, 2, 2}, Subtotal: 6},
		},
		Total:         6,
		Tax:           0,
		PaymentMethod: domain.PaymentCash,
		Timestamp:     time.Now().Add(-time.Hour),
		CashierID:     "user-1",
	}
	require.NoError(t, repo.CreateSale(ctx, sale))

	got, err := repo.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Stock)

	sales, err := repo.ListSales(ctx, SaleFilter{})
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, sale.ID, sales[0].ID)
	require.Len(t, sales[0].Items, 1)
	assert.Equal(t, []float64{2, 2, 2}, sales[0].Items[0].UnitPrices)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, sale.ID, events[0].AggregateID)
	assert.Equal(t, "sale.completed", events[0].EventType)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))
	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCreateSale_RollsBackWhenAnyLineFails(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	cat := createTestCategory(t, repo, "Coffee")
	p := createTestProduct(t, repo, "Espresso", cat.ID, 2.00, 10)

	sale := &domain.Sale{
		ID: uuid.New().String(),
		Items: []domain.SaleItem{
			{ProductID: p.ID, Quantity: 2, UnitPrices: []float64{2, 2}, Subtotal: 4},
			{ProductID: uuid.New().String(), Quantity: 1, UnitPrices: []float64{5}, Subtotal: 5},
		},
		Total:         9,
		PaymentMethod: domain.PaymentCard,
		Timestamp:     time.Now(),
		CashierID:     "user-1",
	}
	err := repo.CreateSale(ctx, sale)
	assert.ErrorIs(t, err, ErrProductNotFound)

	// Nothing persisted: no sale, no stock change, no outbox event.
	sales, err := repo.ListSales(ctx, SaleFilter{})
	require.NoError(t, err)
	assert.Empty(t, sales)

	got, err := repo.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Stock)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestListSales_DateRange(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	cat := createTestCategory(t, repo, "Coffee")
	p := createTestProduct(t, repo, "Espresso", cat.ID, 2.00, 100)

	day1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	for _, ts := range []time.Time{day1, day2} {
		sale := &domain.Sale{
			ID:            uuid.New().String(),
			Items:         []domain.SaleItem{{ProductID: p.ID, Quantity: 1, UnitPrices: []float64{2}, Subtotal: 2}},
			Total:         2,
			PaymentMethod: domain.PaymentCash,
			Timestamp:     ts,
			CashierID:     "user-1",
		}
		require.NoError(t, repo.CreateSale(ctx, sale))
	}

	from := day1.Add(-time.Hour)
	to := day1.Add(time.Hour)
	sales, err := repo.ListSales(ctx, SaleFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.True(t, sales[0].Timestamp.Equal(day1))
}

func TestGetUserByEmail(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	// Seeded by migration 000002.
	admin, err := repo.GetUserByEmail(ctx, "admin@pos.local")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)

	_, err = repo.GetUserByEmail(ctx, "nobody@pos.local")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
