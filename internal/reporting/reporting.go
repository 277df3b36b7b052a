// Package reporting computes read-side sales statistics. Everything here is
// pure and stateless: the same sales list and range always produce the same
// report.
package reporting

import (
	"sort"
	"time"

	"github.com/fjod/go_pos/internal/domain"
)

// NoCategory is the sentinel bucket for items whose category cannot be
// resolved.
const NoCategory = "uncategorized"

// Range is an inclusive date range.
type Range struct {
	From time.Time
	To   time.Time
}

func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// Day returns a range covering one calendar day in t's location.
func Day(t time.Time) Range {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return Range{From: start, To: start.Add(24*time.Hour - time.Nanosecond)}
}

// Month returns a range covering t's calendar month.
func Month(t time.Time) Range {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return Range{From: start, To: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}
}

// Week returns a range covering t's ISO week (Monday through Sunday).
func Week(t time.Time) Range {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).
		AddDate(0, 0, -(weekday - 1))
	return Range{From: start, To: start.AddDate(0, 0, 7).Add(-time.Nanosecond)}
}

type Summary struct {
	Revenue      float64 `json:"revenue"`
	Transactions int     `json:"transactions"`
}

// Summarize reports revenue and transaction count within the range.
func Summarize(sales []*domain.Sale, r Range) Summary {
	var s Summary
	for _, sale := range sales {
		if r.Contains(sale.Timestamp) {
			s.Revenue += sale.Total
			s.Transactions++
		}
	}
	return s
}

type DayPoint struct {
	Day          time.Time `json:"day"`
	Revenue      float64   `json:"revenue"`
	Transactions int       `json:"transactions"`
}

// DailySeries breaks the range out by calendar day. Days with no sales are
// present with zero values, not absent, so charts get a continuous axis.
func DailySeries(sales []*domain.Sale, r Range) []DayPoint {
	loc := r.From.Location()
	first := time.Date(r.From.Year(), r.From.Month(), r.From.Day(), 0, 0, 0, 0, loc)
	last := time.Date(r.To.Year(), r.To.Month(), r.To.Day(), 0, 0, 0, 0, loc)

	var series []DayPoint
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		point := DayPoint{Day: day}
		dayRange := Day(day)
		for _, sale := range sales {
			if r.Contains(sale.Timestamp) && dayRange.Contains(sale.Timestamp) {
				point.Revenue += sale.Total
				point.Transactions++
			}
		}
		series = append(series, point)
	}
	return series
}

type ProductSales struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Quantity  int     `json:"quantity"`
	Revenue   float64 `json:"revenue"`
}

// TopProducts ranks products by quantity sold within the range. Ties keep
// first-seen order.
func TopProducts(sales []*domain.Sale, r Range, limit int) []ProductSales {
	totals := make(map[string]*ProductSales)
	var order []string

	for _, sale := range sales {
		if !r.Contains(sale.Timestamp) {
			continue
		}
		for _, item := range sale.Items {
			ps, ok := totals[item.ProductID]
			if !ok {
				ps = &ProductSales{
					ProductID: item.ProductID,
					Name:      item.Name,
					Category:  item.Category,
				}
				totals[item.ProductID] = ps
				order = append(order, item.ProductID)
			}
			ps.Quantity += item.Quantity
			ps.Revenue += item.Subtotal
		}
	}

	ranked := make([]ProductSales, 0, len(order))
	for _, id := range order {
		ranked = append(ranked, *totals[id])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Quantity > ranked[j].Quantity
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

type CategoryRevenue struct {
	Category     string  `json:"category"`
	Revenue      float64 `json:"revenue"`
	QuantitySold int     `json:"quantity_sold"`
}

// CategoryLookup resolves a product's current category by id. Used as the
// fallback when a sale item carries no category of its own.
type CategoryLookup func(productID string) (string, bool)

// RevenueByCategory groups line revenue by category, highest first. An
// item's category comes from its own stored field, else the lookup, else
// the NoCategory sentinel.
func RevenueByCategory(sales []*domain.Sale, r Range, lookup CategoryLookup) []CategoryRevenue {
	totals := make(map[string]*CategoryRevenue)
	var order []string

	for _, sale := range sales {
		if !r.Contains(sale.Timestamp) {
			continue
		}
		for _, item := range sale.Items {
			category := item.Category
			if category == "" && lookup != nil {
				if name, ok := lookup(item.ProductID); ok {
					category = name
				}
			}
			if category == "" {
				category = NoCategory
			}

			cr, ok := totals[category]
			if !ok {
				cr = &CategoryRevenue{Category: category}
				totals[category] = cr
				order = append(order, category)
			}
			cr.Revenue += item.Subtotal
			cr.QuantitySold += item.Quantity
		}
	}

	result := make([]CategoryRevenue, 0, len(order))
	for _, category := range order {
		result = append(result, *totals[category])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Revenue > result[j].Revenue
	})
	return result
}

type MethodRevenue struct {
	Method       domain.PaymentMethod `json:"method"`
	Revenue      float64              `json:"revenue"`
	Transactions int                  `json:"transactions"`
	Percentage   float64              `json:"percentage"`
}

// PaymentBreakdown splits range revenue by payment method. Every known
// method is present in the result even with zero sales. Percentages sum to
// 100 when total revenue is positive and are all zero otherwise.
func PaymentBreakdown(sales []*domain.Sale, r Range) []MethodRevenue {
	methods := []domain.PaymentMethod{
		domain.PaymentCash,
		domain.PaymentCard,
		domain.PaymentDigital,
		domain.PaymentTransfer,
	}

	byMethod := make(map[domain.PaymentMethod]*MethodRevenue, len(methods))
	result := make([]MethodRevenue, len(methods))
	for i, m := range methods {
		result[i] = MethodRevenue{Method: m}
		byMethod[m] = &result[i]
	}

	var total float64
	for _, sale := range sales {
		if !r.Contains(sale.Timestamp) {
			continue
		}
		if mr, ok := byMethod[sale.PaymentMethod]; ok {
			mr.Revenue += sale.Total
			mr.Transactions++
			total += sale.Total
		}
	}

	if total > 0 {
		for i := range result {
			result[i].Percentage = result[i].Revenue / total * 100
		}
	}
	return result
}

type ProfitSummary struct {
	Revenue float64 `json:"revenue"`
	Cost    float64 `json:"cost"`
	Profit  float64 `json:"profit"`
}

// Profit computes gross profit within the range from stored unit costs.
// Items without a recorded cost contribute revenue with zero cost.
func Profit(sales []*domain.Sale, r Range) ProfitSummary {
	var p ProfitSummary
	for _, sale := range sales {
		if !r.Contains(sale.Timestamp) {
			continue
		}
		p.Revenue += sale.Total
		for _, item := range sale.Items {
			p.Cost += item.UnitCost * float64(item.Quantity)
		}
	}
	p.Profit = p.Revenue - p.Cost
	return p
}

// LowStock returns the products at or below their restock threshold.
func LowStock(products []*domain.Product) []*domain.Product {
	var low []*domain.Product
	for _, p := range products {
		if p.LowStock() {
			low = append(low, p)
		}
	}
	return low
}

type Stats struct {
	TodayRevenue      float64 `json:"today_revenue"`
	TodayTransactions int     `json:"today_transactions"`
	TotalRevenue      float64 `json:"total_revenue"`
	ProductCount      int     `json:"product_count"`
	LowStockCount     int     `json:"low_stock_count"`
}

// Overview computes the dashboard stat cards.
func Overview(sales []*domain.Sale, products []*domain.Product, now time.Time) Stats {
	today := Summarize(sales, Day(now))

	var total float64
	for _, sale := range sales {
		total += sale.Total
	}

	return Stats{
		TodayRevenue:      today.Revenue,
		TodayTransactions: today.Transactions,
		TotalRevenue:      total,
		ProductCount:      len(products),
		LowStockCount:     len(LowStock(products)),
	}
}

type PeriodMetrics struct {
	Today Summary `json:"today"`
	Week  Summary `json:"week"`
	Month Summary `json:"month"`
	Range Summary `json:"range"`
}

// Periods computes the summary for the standard dashboard tabs plus a
// custom range.
func Periods(sales []*domain.Sale, now time.Time, custom Range) PeriodMetrics {
	return PeriodMetrics{
		Today: Summarize(sales, Day(now)),
		Week:  Summarize(sales, Week(now)),
		Month: Summarize(sales, Month(now)),
		Range: Summarize(sales, custom),
	}
}
