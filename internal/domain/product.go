package domain

import "time"

type Product struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Price             float64   `json:"price"`
	Cost              float64   `json:"cost,omitempty"`
	CategoryID        string    `json:"category_id,omitempty"`
	Category          string    `json:"category"`
	Stock             int       `json:"stock"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	Barcode           string    `json:"barcode,omitempty"`
	Description       string    `json:"description,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// LowStock reports whether the product should be flagged for restocking.
func (p *Product) LowStock() bool {
	return p.Stock <= p.LowStockThreshold
}

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
