package report

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"stockroom/internal/domain"
)

const (
	DefaultMonthLimit = 12
	DefaultTopN       = 5

	// UnknownProduct names a product id missing from the lookup.
	UnknownProduct = "Unknown"
)

type NamedValue struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

type Summary struct {
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	Profit       decimal.Decimal `json:"profit"`
	MonthlySales []NamedValue    `json:"monthly_sales"`
	TopProducts  []NamedValue    `json:"top_products"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

type Options struct {
	// Location decides which calendar month a sale falls in. Nil means time.Local.
	Location   *time.Location
	MonthLimit int
	TopN       int
	Now        func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.MonthLimit <= 0 {
		o.MonthLimit = DefaultMonthLimit
	}
	if o.TopN <= 0 {
		o.TopN = DefaultTopN
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Summarize folds sales and production logs into revenue, cost, profit,
// monthly revenue buckets and the best selling products by quantity.
func Summarize(sales []domain.Sale, logs []domain.ProductionLog, productNames map[string]string, opts Options) Summary {
	opts = opts.withDefaults()

	summary := Summary{
		TotalRevenue: decimal.Zero,
		TotalCost:    decimal.Zero,
		MonthlySales: []NamedValue{},
		TopProducts:  []NamedValue{},
		GeneratedAt:  opts.Now().UTC(),
	}

	months := map[string]decimal.Decimal{}
	quantities := map[string]decimal.Decimal{}
	order := make([]string, 0, 8)
	for _, sale := range sales {
		summary.TotalRevenue = summary.TotalRevenue.Add(sale.TotalRevenue)

		key := sale.CreatedAt.In(opts.Location).Format("2006-01")
		months[key] = months[key].Add(sale.TotalRevenue)

		if _, seen := quantities[sale.ProductID]; !seen {
			order = append(order, sale.ProductID)
		}
		quantities[sale.ProductID] = quantities[sale.ProductID].Add(sale.QuantitySold)
	}
	for _, log := range logs {
		summary.TotalCost = summary.TotalCost.Add(log.TotalCost)
	}
	summary.Profit = summary.TotalRevenue.Sub(summary.TotalCost)

	keys := make([]string, 0, len(months))
	for key := range months {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	if len(keys) > opts.MonthLimit {
		keys = keys[len(keys)-opts.MonthLimit:]
	}
	for _, key := range keys {
		summary.MonthlySales = append(summary.MonthlySales, NamedValue{Name: key, Value: months[key]})
	}

	// order keeps first appearance so the stable sort breaks ties by it.
	slices.SortStableFunc(order, func(a, b string) int {
		return quantities[b].Cmp(quantities[a])
	})
	if len(order) > opts.TopN {
		order = order[:opts.TopN]
	}
	for _, productID := range order {
		name, ok := productNames[productID]
		if !ok || name == "" {
			name = UnknownProduct
		}
		summary.TopProducts = append(summary.TopProducts, NamedValue{Name: name, Value: quantities[productID]})
	}

	return summary
}
