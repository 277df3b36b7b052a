package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_pos/internal/auth"
	"github.com/fjod/go_pos/internal/cart"
	"github.com/fjod/go_pos/internal/domain"
	"github.com/fjod/go_pos/internal/repository"
)

type userRepoMock struct {
	users map[string]*domain.User
}

func (m *userRepoMock) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	u, ok := m.users[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

type reportCatalogMock struct {
	products []*domain.Product
}

func (m *reportCatalogMock) ListProducts(context.Context, string, string) ([]*domain.Product, error) {
	return m.products, nil
}

func (m *reportCatalogMock) CategoryForProduct(context.Context, string) (string, bool) {
	return "", false
}

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()

	sessions := auth.NewManager(&userRepoMock{users: map[string]*domain.User{
		"cashier@pos.local": {ID: "u2", Name: "Cashier", Email: "cashier@pos.local", Role: domain.RoleVendor},
	}}, cart.Config{TaxRate: 0.09})
	t.Cleanup(func() { _ = sessions.Close() })

	catalogSvc := &catalogServiceMock{products: []*domain.Product{
		{ID: "p1", Name: "Espresso", Price: 2.00},
	}}
	salesSvc := &salesServiceMock{saleID: "sale-1"}

	server := httptest.NewServer(NewRouter(sessions, catalogSvc, salesSvc, &reportCatalogMock{}, 5*time.Second))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url, token string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestRouter_FullSaleFlow(t *testing.T) {
	server := setupServer(t)
	base := server.URL + "/api/v1"

	// Login.
	resp := doJSON(t, "POST", base+"/login", "", LoginRequestDTO{Email: "cashier@pos.local"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var session SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	resp.Body.Close()
	require.NotEmpty(t, session.Token)

	// Add an item at the live catalog price.
	resp = doJSON(t, "POST", base+"/cart/items", session.Token, AddItemRequestDTO{ProductID: "p1", Quantity: 2})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var cartResp CartResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cartResp))
	resp.Body.Close()
	require.Len(t, cartResp.Items, 1)
	assert.InDelta(t, 4.00, cartResp.Totals.Subtotal, 1e-9)

	// Complete the sale.
	resp = doJSON(t, "POST", base+"/checkout", session.Token, CheckoutRequestDTO{PaymentMethod: "cash"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var checkoutResp CheckoutResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&checkoutResp))
	resp.Body.Close()
	assert.Equal(t, "sale-1", checkoutResp.SaleID)

	// Cart is empty afterwards.
	resp = doJSON(t, "GET", base+"/cart", session.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cartResp))
	resp.Body.Close()
	assert.Empty(t, cartResp.Items)

	// Logout invalidates the token.
	resp = doJSON(t, "POST", base+"/logout", session.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, "GET", base+"/cart", session.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestRouter_RequiresSession(t *testing.T) {
	server := setupServer(t)

	resp := doJSON(t, "GET", server.URL+"/api/v1/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestRouter_LoginUnknownUser(t *testing.T) {
	server := setupServer(t)

	resp := doJSON(t, "POST", server.URL+"/api/v1/login", "", LoginRequestDTO{Email: "nobody@pos.local"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestRouter_SaleDateRoundTrip(t *testing.T) {
	server := setupServer(t)
	base := server.URL + "/api/v1"

	resp := doJSON(t, "POST", base+"/login", "", LoginRequestDTO{Email: "cashier@pos.local"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var session SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	resp.Body.Close()

	yesterday := time.Now().AddDate(0, 0, -1)
	resp = doJSON(t, "PUT", base+"/cart/sale-date", session.Token, SaleDateRequestDTO{Date: yesterday})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cartResp CartResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cartResp))
	resp.Body.Close()
	assert.WithinDuration(t, yesterday, cartResp.SaleDate, time.Second)

	tomorrow := time.Now().AddDate(0, 0, 1)
	resp = doJSON(t, "PUT", base+"/cart/sale-date", session.Token, SaleDateRequestDTO{Date: tomorrow})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
