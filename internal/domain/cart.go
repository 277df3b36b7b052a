package domain

// CartItem is one product's line within an in-progress sale. Each physical
// unit carries its own price so a single unit can be discounted without
// touching the rest of the line.
type CartItem struct {
	ProductID  string    `json:"product_id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Quantity   int       `json:"quantity"`
	UnitPrices []float64 `json:"unit_prices"`
	// Subtotal is always the sum of UnitPrices.
	Subtotal float64 `json:"subtotal"`
	// OriginalPrice is the catalog price captured when the line was first
	// added. Quantity increases append units at this price.
	OriginalPrice float64 `json:"original_price"`
	// Price is the average unit price, kept for display.
	Price float64 `json:"price"`
	// UnitCost is the catalog cost captured at add time, used by profit
	// reporting. Zero when the product has no recorded cost.
	UnitCost float64 `json:"unit_cost,omitempty"`
}

// CartTotals are the derived aggregates over a whole cart. Total is always
// Subtotal + Tax - Discount.
type CartTotals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
}
