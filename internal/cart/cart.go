package cart

import (
	"errors"
	"sync"

	"github.com/fjod/go_pos/internal/domain"
)

// ErrCheckoutInProgress is returned when a second checkout is attempted
// while one is already in flight for the same cart.
var ErrCheckoutInProgress = errors.New("checkout already in progress for this cart")

// Config carries the pricing policy. The tax rate and discount are business
// configuration, never hard-coded in the engine.
type Config struct {
	TaxRate  float64
	Discount float64
}

// Cart holds the in-progress sale for one session. All mutating operations
// recompute the derived totals from scratch; there is no incremental state
// that can drift.
type Cart struct {
	mu     sync.Mutex
	cfg    Config
	items  []domain.CartItem
	totals domain.CartTotals
	busy   bool
}

func New(cfg Config) *Cart {
	return &Cart{cfg: cfg}
}

// Add appends quantity units of the product to the cart. New units are
// priced at the product's current catalog price. Adding never fails; stock
// is not enforced at this layer.
func (c *Cart) Add(p domain.Product, quantity int) {
	if quantity < 1 {
		quantity = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if item := c.find(p.ID); item != nil {
		for i := 0; i < quantity; i++ {
			item.UnitPrices = append(item.UnitPrices, p.Price)
		}
		item.Quantity += quantity
		refreshLine(item)
	} else {
		prices := make([]float64, quantity)
		for i := range prices {
			prices[i] = p.Price
		}
		line := domain.CartItem{
			ProductID:     p.ID,
			Name:          p.Name,
			Category:      p.Category,
			Quantity:      quantity,
			UnitPrices:    prices,
			OriginalPrice: p.Price,
			UnitCost:      p.Cost,
		}
		refreshLine(&line)
		c.items = append(c.items, line)
	}

	c.recompute()
}

// Remove drops the whole line for the product. Unknown product IDs are a
// no-op, not an error.
func (c *Cart) Remove(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, item := range c.items {
		if item.ProductID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			break
		}
	}
	c.recompute()
}

// UpdateQuantity resizes a line. Increases append units at the line's
// original (first-add) price; decreases truncate the most recently added
// unit prices first. A quantity of zero or less removes the line.
func (c *Cart) UpdateQuantity(productID string, quantity int) {
	if quantity <= 0 {
		c.Remove(productID)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	item := c.find(productID)
	if item == nil {
		return
	}

	switch {
	case quantity > item.Quantity:
		for i := 0; i < quantity-item.Quantity; i++ {
			item.UnitPrices = append(item.UnitPrices, item.OriginalPrice)
		}
	case quantity < item.Quantity:
		item.UnitPrices = item.UnitPrices[:quantity]
	}
	item.Quantity = quantity
	refreshLine(item)
	c.recompute()
}

// UpdateUnitPrice overrides the price of one physical unit within a line.
// Out-of-range indices are a no-op.
func (c *Cart) UpdateUnitPrice(productID string, unitIndex int, price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := c.find(productID)
	if item == nil || unitIndex < 0 || unitIndex >= len(item.UnitPrices) {
		return
	}

	item.UnitPrices[unitIndex] = price
	refreshLine(item)
	c.recompute()
}

// SetLinePrice sets every unit in the line to the same price.
func (c *Cart) SetLinePrice(productID string, price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := c.find(productID)
	if item == nil {
		return
	}

	for i := range item.UnitPrices {
		item.UnitPrices[i] = price
	}
	refreshLine(item)
	c.recompute()
}

// Clear empties the cart and zeroes all derived totals.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
	c.recompute()
}

func (c *Cart) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) == 0
}

// Items returns a deep copy of the cart lines.
func (c *Cart) Items() []domain.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]domain.CartItem, len(c.items))
	for i, item := range c.items {
		items[i] = item
		items[i].UnitPrices = append([]float64(nil), item.UnitPrices...)
	}
	return items
}

func (c *Cart) Totals() domain.CartTotals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totals
}

// Snapshot deep-copies the cart lines into immutable sale items. The
// returned slice shares nothing with the cart, so later cart mutations can
// never alter a recorded sale.
func (c *Cart) Snapshot() []domain.SaleItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]domain.SaleItem, len(c.items))
	for i, item := range c.items {
		items[i] = domain.SaleItem{
			ProductID:  item.ProductID,
			Name:       item.Name,
			Category:   item.Category,
			Quantity:   item.Quantity,
			UnitPrices: append([]float64(nil), item.UnitPrices...),
			Subtotal:   item.Subtotal,
			UnitCost:   item.UnitCost,
		}
	}
	return items
}

// BeginCheckout marks the cart as busy while a sale submission is in
// flight. It fails rather than allowing a double submit.
func (c *Cart) BeginCheckout() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		return ErrCheckoutInProgress
	}
	c.busy = true
	return nil
}

func (c *Cart) EndCheckout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
}

func (c *Cart) find(productID string) *domain.CartItem {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			return &c.items[i]
		}
	}
	return nil
}

// refreshLine restores the line invariants: subtotal is the sum of the unit
// prices and the display price is the average.
func refreshLine(item *domain.CartItem) {
	var sum float64
	for _, p := range item.UnitPrices {
		sum += p
	}
	item.Subtotal = sum
	if item.Quantity > 0 {
		item.Price = sum / float64(item.Quantity)
	} else {
		item.Price = 0
	}
}

func (c *Cart) recompute() {
	var subtotal float64
	for _, item := range c.items {
		subtotal += item.Subtotal
	}

	tax := subtotal * c.cfg.TaxRate
	discount := c.cfg.Discount
	if len(c.items) == 0 {
		tax, discount = 0, 0
	}

	c.totals = domain.CartTotals{
		Subtotal: subtotal,
		Tax:      tax,
		Discount: discount,
		Total:    subtotal + tax - discount,
	}
}
