package report

import (
	"math"
	"slices"

	"modelmetrics/internal/domain"
)

// Attribute counts are fixed by the retail schema, not by whatever subset
// of columns this service maps into Go structs.
var censusAttributes = []domain.CensusRow{
	{Table: "customers", AttributeCount: 13},
	{Table: "employees", AttributeCount: 8},
	{Table: "offices", AttributeCount: 9},
	{Table: "orders", AttributeCount: 7},
	{Table: "orderdetails", AttributeCount: 5},
	{Table: "payments", AttributeCount: 4},
	{Table: "products", AttributeCount: 9},
	{Table: "productlines", AttributeCount: 4},
}

// Census reports attribute and row counts per table. Row counts are taken
// from the dataset as loaded, before integrity exclusions.
func (s *Snapshot) Census() []domain.CensusRow {
	rowCounts := map[string]int{
		"customers":    len(s.data.Customers),
		"employees":    len(s.data.Employees),
		"offices":      len(s.data.Offices),
		"orders":       len(s.data.Orders),
		"orderdetails": len(s.data.OrderLines),
		"payments":     len(s.data.Payments),
		"products":     len(s.data.Products),
		"productlines": len(s.data.ProductLines),
	}

	rows := make([]domain.CensusRow, 0, len(censusAttributes))
	for _, row := range censusAttributes {
		row.RowCount = rowCounts[row.Table]
		rows = append(rows, row)
	}
	return rows
}

// LowStock ranks products by stock-to-sales ratio ascending and returns
// the ten closest to stock-out. Products with zero aggregate demand have
// an undefined ratio and are excluded rather than guessed at.
func (s *Snapshot) LowStock() ([]domain.StockRatioRow, error) {
	if !s.hasOrderHistory() {
		return nil, ErrNoData
	}

	rows := make([]domain.StockRatioRow, 0, len(s.demandByProduct))
	for code, demand := range s.demandByProduct {
		if demand < 1 {
			continue
		}
		product := s.productByCode[code]
		rows = append(rows, domain.StockRatioRow{
			ProductCode:     code,
			QuantityInStock: product.QuantityInStock,
			QuantityOrdered: demand,
			Ratio:           round2(float64(product.QuantityInStock) / float64(demand)),
		})
	}

	slices.SortFunc(rows, func(a, b domain.StockRatioRow) int {
		if a.Ratio != b.Ratio {
			if a.Ratio < b.Ratio {
				return -1
			}
			return 1
		}
		return cmpString(a.ProductCode, b.ProductCode)
	})

	return capRows(rows, lowStockLimit), nil
}

// Performance ranks products by total revenue descending and returns the
// top ten.
func (s *Snapshot) Performance() ([]domain.ProductPerformanceRow, error) {
	if !s.hasOrderHistory() {
		return nil, ErrNoData
	}

	rows := performanceRows(s.revenueByProduct)
	return capRows(rows, performanceLimit), nil
}

// RestockPriorities re-ranks the low-stock set by revenue descending and
// joins in the product's descriptive attributes: the high-value products
// closest to stock-out.
func (s *Snapshot) RestockPriorities() ([]domain.RestockPriorityRow, error) {
	lowStock, err := s.LowStock()
	if err != nil {
		return nil, err
	}

	ratioByCode := make(map[string]float64, len(lowStock))
	for _, row := range lowStock {
		ratioByCode[row.ProductCode] = row.Ratio
	}

	restricted := make(map[string]int64, len(lowStock))
	for code := range ratioByCode {
		restricted[code] = s.revenueByProduct[code]
	}

	rows := make([]domain.RestockPriorityRow, 0, len(restricted))
	for _, perf := range capRows(performanceRows(restricted), performanceLimit) {
		product := s.productByCode[perf.ProductCode]
		rows = append(rows, domain.RestockPriorityRow{
			ProductCode:  product.ProductCode,
			Name:         product.Name,
			ProductLine:  product.ProductLine,
			Scale:        product.Scale,
			Vendor:       product.Vendor,
			Description:  product.Description,
			StockRatio:   ratioByCode[perf.ProductCode],
			RevenueCents: perf.RevenueCents,
		})
	}
	return rows, nil
}

// CustomerProfit returns the per-customer profit aggregate for every
// customer with at least one order line, ordered by customer number.
func (s *Snapshot) CustomerProfit() ([]domain.CustomerProfitRow, error) {
	if len(s.profitByCustomer) == 0 {
		return nil, ErrNoData
	}

	rows := make([]domain.CustomerProfitRow, 0, len(s.profitByCustomer))
	for number, profit := range s.profitByCustomer {
		rows = append(rows, domain.CustomerProfitRow{CustomerNumber: number, ProfitCents: profit})
	}
	slices.SortFunc(rows, func(a, b domain.CustomerProfitRow) int {
		return a.CustomerNumber - b.CustomerNumber
	})
	return rows, nil
}

// VIPCustomers returns the five most profitable customers, descending.
func (s *Snapshot) VIPCustomers() ([]domain.CustomerValueRow, error) {
	rows, err := s.customerValueRows()
	if err != nil {
		return nil, err
	}
	slices.SortFunc(rows, func(a, b domain.CustomerValueRow) int {
		if a.ProfitCents != b.ProfitCents {
			if a.ProfitCents > b.ProfitCents {
				return -1
			}
			return 1
		}
		return a.CustomerNumber - b.CustomerNumber
	})
	return capRows(rows, customerLimit), nil
}

// LeastEngaged returns the five least profitable customers, ascending.
// "Least engaged" means lowest profit, nothing else: order counts and
// recency deliberately play no part.
func (s *Snapshot) LeastEngaged() ([]domain.CustomerValueRow, error) {
	rows, err := s.customerValueRows()
	if err != nil {
		return nil, err
	}
	slices.SortFunc(rows, func(a, b domain.CustomerValueRow) int {
		if a.ProfitCents != b.ProfitCents {
			if a.ProfitCents < b.ProfitCents {
				return -1
			}
			return 1
		}
		return a.CustomerNumber - b.CustomerNumber
	})
	return capRows(rows, customerLimit), nil
}

// LTV returns the arithmetic mean of per-customer profits over customers
// with order history. Customers without orders are absent from the
// aggregate, not averaged in as zero.
func (s *Snapshot) LTV() (domain.LifetimeValue, error) {
	if len(s.profitByCustomer) == 0 {
		return domain.LifetimeValue{}, ErrNoData
	}

	total := int64(0)
	for _, profit := range s.profitByCustomer {
		total += profit
	}
	return domain.LifetimeValue{
		CustomerCount:   len(s.profitByCustomer),
		MeanProfitCents: round2(float64(total) / float64(len(s.profitByCustomer))),
	}, nil
}

func (s *Snapshot) customerValueRows() ([]domain.CustomerValueRow, error) {
	if len(s.profitByCustomer) == 0 {
		return nil, ErrNoData
	}

	rows := make([]domain.CustomerValueRow, 0, len(s.profitByCustomer))
	for number, profit := range s.profitByCustomer {
		customer := s.customerByNumber[number]
		rows = append(rows, domain.CustomerValueRow{
			CustomerNumber: number,
			Name:           customer.Name,
			City:           customer.City,
			Country:        customer.Country,
			ProfitCents:    profit,
		})
	}
	return rows, nil
}

func performanceRows(revenueByProduct map[string]int64) []domain.ProductPerformanceRow {
	rows := make([]domain.ProductPerformanceRow, 0, len(revenueByProduct))
	for code, revenue := range revenueByProduct {
		rows = append(rows, domain.ProductPerformanceRow{ProductCode: code, RevenueCents: revenue})
	}
	slices.SortFunc(rows, func(a, b domain.ProductPerformanceRow) int {
		if a.RevenueCents != b.RevenueCents {
			if a.RevenueCents > b.RevenueCents {
				return -1
			}
			return 1
		}
		return cmpString(a.ProductCode, b.ProductCode)
	})
	return rows
}

func capRows[T any](rows []T, limit int) []T {
	if len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func round2(val float64) float64 {
	return math.Round(val*100) / 100
}
