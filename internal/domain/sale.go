package domain

import "time"

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentDigital  PaymentMethod = "digital"
	PaymentTransfer PaymentMethod = "transfer"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentDigital, PaymentTransfer:
		return true
	}
	return false
}

func (m PaymentMethod) String() string {
	return string(m)
}

// SaleItem is an immutable snapshot of a cart line taken at checkout.
type SaleItem struct {
	ProductID  string    `json:"product_id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Quantity   int       `json:"quantity"`
	UnitPrices []float64 `json:"unit_prices"`
	Subtotal   float64   `json:"subtotal"`
	UnitCost   float64   `json:"unit_cost,omitempty"`
}

// Sale is a finalized transaction. It is never mutated after creation.
type Sale struct {
	ID            string        `json:"id"`
	Items         []SaleItem    `json:"items"`
	Total         float64       `json:"total"`
	Tax           float64       `json:"tax"`
	Discount      float64       `json:"discount"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	// Timestamp is the user-selected sale date, not necessarily the wall
	// clock at checkout. Backdated manual entries are allowed.
	Timestamp  time.Time `json:"timestamp"`
	CashierID  string    `json:"cashier_id"`
	CustomerID string    `json:"customer_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
