package report

import (
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"modelmetrics/internal/domain"
)

func testDataset() *domain.Dataset {
	day := func(value string) time.Time {
		t, _ := time.Parse("2006-01-02", value)
		return t
	}

	return &domain.Dataset{
		Customers: []domain.Customer{
			{CustomerNumber: 103, Name: "Atelier graphique", City: "Nantes", Country: "France"},
			{CustomerNumber: 112, Name: "Signal Gift Stores", City: "Las Vegas", Country: "USA"},
			{CustomerNumber: 114, Name: "Australian Collectors, Co.", City: "Melbourne", Country: "Australia"},
		},
		Products: []domain.Product{
			{ProductCode: "S10_1949", Name: "1952 Alpine Renault 1300", ProductLine: "Classic Cars", Scale: "1:10", Vendor: "Classic Metal Creations", Description: "Turnable front wheels.", QuantityInStock: 16, BuyPriceCents: 6000},
			{ProductCode: "S12_1099", Name: "1968 Ford Mustang", ProductLine: "Classic Cars", Scale: "1:12", Vendor: "Autoart Studio Design", Description: "Opening hood and doors.", QuantityInStock: 68, BuyPriceCents: 3000},
			{ProductCode: "S24_1937", Name: "1939 Chevrolet Deluxe Coupe", ProductLine: "Vintage Cars", Scale: "1:24", Vendor: "Motor City Art Classics", Description: "Chrome trim.", QuantityInStock: 7332, BuyPriceCents: 2282},
		},
		Orders: []domain.Order{
			{OrderNumber: 10100, CustomerNumber: 103, OrderDate: day("2024-01-06"), Status: "Shipped"},
			{OrderNumber: 10101, CustomerNumber: 112, OrderDate: day("2024-01-09"), Status: "Shipped"},
		},
		OrderLines: []domain.OrderLine{
			// customer 103: 2 units at 100.00 against buy 60.00 and 1 unit at
			// 50.00 against buy 30.00, so profit is 2*4000 + 1*2000 = 10000.
			{OrderNumber: 10100, ProductCode: "S10_1949", QuantityOrdered: 2, PriceEachCents: 10000, LineNumber: 1},
			{OrderNumber: 10100, ProductCode: "S12_1099", QuantityOrdered: 1, PriceEachCents: 5000, LineNumber: 2},
			{OrderNumber: 10101, ProductCode: "S10_1949", QuantityOrdered: 6, PriceEachCents: 9000, LineNumber: 1},
		},
	}
}

func TestCensusReportsAttributeAndRowCounts(t *testing.T) {
	snap := NewSnapshot(testDataset())

	rows := snap.Census()
	if len(rows) != 8 {
		t.Fatalf("expected 8 tables, got %d", len(rows))
	}

	byTable := map[string]domain.CensusRow{}
	for _, row := range rows {
		byTable[row.Table] = row
	}
	if byTable["customers"].AttributeCount != 13 || byTable["customers"].RowCount != 3 {
		t.Fatalf("unexpected customers census %+v", byTable["customers"])
	}
	if byTable["orderdetails"].RowCount != 3 {
		t.Fatalf("expected 3 order lines, got %d", byTable["orderdetails"].RowCount)
	}
	if byTable["offices"].RowCount != 0 {
		t.Fatalf("expected empty offices table, got %d", byTable["offices"].RowCount)
	}
}

func TestLowStockRatioArithmetic(t *testing.T) {
	snap := NewSnapshot(testDataset())

	rows, err := snap.LowStock()
	if err != nil {
		t.Fatalf("low stock failed: %v", err)
	}

	// S10_1949: stock 16, aggregate demand 8, ratio 2.00.
	var found bool
	for _, row := range rows {
		if row.ProductCode == "S10_1949" {
			found = true
			if row.QuantityOrdered != 8 {
				t.Fatalf("expected aggregate demand 8, got %d", row.QuantityOrdered)
			}
			if row.Ratio != 2.0 {
				t.Fatalf("expected ratio 2.0, got %v", row.Ratio)
			}
		}
	}
	if !found {
		t.Fatalf("expected S10_1949 in low stock rows")
	}

	if rows[0].ProductCode != "S10_1949" {
		t.Fatalf("expected tightest ratio first, got %s", rows[0].ProductCode)
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Ratio < rows[i-1].Ratio {
			t.Fatalf("rows not sorted ascending at index %d", i)
		}
	}
}

func TestLowStockExcludesZeroDemandProducts(t *testing.T) {
	snap := NewSnapshot(testDataset())

	rows, err := snap.LowStock()
	if err != nil {
		t.Fatalf("low stock failed: %v", err)
	}
	for _, row := range rows {
		if row.ProductCode == "S24_1937" {
			t.Fatalf("product with no order history must be excluded from ratios")
		}
	}
}

func TestLowStockCapsAtTen(t *testing.T) {
	data := &domain.Dataset{
		Customers: []domain.Customer{{CustomerNumber: 1, Name: "c"}},
		Orders:    []domain.Order{{OrderNumber: 1, CustomerNumber: 1}},
	}
	for i := 0; i < 14; i++ {
		code := fmt.Sprintf("P%02d", i)
		data.Products = append(data.Products, domain.Product{ProductCode: code, QuantityInStock: 10 + i, BuyPriceCents: 100})
		data.OrderLines = append(data.OrderLines, domain.OrderLine{OrderNumber: 1, ProductCode: code, QuantityOrdered: 2, PriceEachCents: 500, LineNumber: i + 1})
	}

	rows, err := NewSnapshot(data).LowStock()
	if err != nil {
		t.Fatalf("low stock failed: %v", err)
	}
	if len(rows) != 10 {
		t.Fatalf("expected 10 rows, got %d", len(rows))
	}
}

func TestLowStockNoOrderHistory(t *testing.T) {
	data := &domain.Dataset{
		Products: []domain.Product{{ProductCode: "S10_1949", QuantityInStock: 16}},
	}

	if _, err := NewSnapshot(data).LowStock(); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData without order history, got %v", err)
	}
}

func TestPerformanceRanksByRevenueDescending(t *testing.T) {
	snap := NewSnapshot(testDataset())

	rows, err := snap.Performance()
	if err != nil {
		t.Fatalf("performance failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 products with revenue, got %d", len(rows))
	}
	// S10_1949 revenue: 2*10000 + 6*9000 = 74000; S12_1099: 5000.
	if rows[0].ProductCode != "S10_1949" || rows[0].RevenueCents != 74000 {
		t.Fatalf("unexpected top performer %+v", rows[0])
	}
	if rows[1].ProductCode != "S12_1099" || rows[1].RevenueCents != 5000 {
		t.Fatalf("unexpected second performer %+v", rows[1])
	}
}

func TestRestockPrioritiesReRanksLowStockByRevenue(t *testing.T) {
	snap := NewSnapshot(testDataset())

	lowStock, err := snap.LowStock()
	if err != nil {
		t.Fatalf("low stock failed: %v", err)
	}
	lowStockCodes := map[string]bool{}
	for _, row := range lowStock {
		lowStockCodes[row.ProductCode] = true
	}

	rows, err := snap.RestockPriorities()
	if err != nil {
		t.Fatalf("restock priorities failed: %v", err)
	}
	if len(rows) == 0 {
		t.Fatalf("expected restock priorities")
	}
	for i, row := range rows {
		if !lowStockCodes[row.ProductCode] {
			t.Fatalf("restock row %s is not in the low stock set", row.ProductCode)
		}
		if row.Name == "" || row.ProductLine == "" || row.Vendor == "" {
			t.Fatalf("expected joined product attributes, got %+v", row)
		}
		if i > 0 && row.RevenueCents > rows[i-1].RevenueCents {
			t.Fatalf("rows not sorted by revenue descending at index %d", i)
		}
	}
}

func TestCustomerProfitArithmetic(t *testing.T) {
	snap := NewSnapshot(testDataset())

	rows, err := snap.CustomerProfit()
	if err != nil {
		t.Fatalf("customer profit failed: %v", err)
	}

	byCustomer := map[int]int64{}
	for _, row := range rows {
		byCustomer[row.CustomerNumber] = row.ProfitCents
	}
	if byCustomer[103] != 10000 {
		t.Fatalf("expected customer 103 profit 10000, got %d", byCustomer[103])
	}
	// customer 112: 6 * (9000-6000) = 18000.
	if byCustomer[112] != 18000 {
		t.Fatalf("expected customer 112 profit 18000, got %d", byCustomer[112])
	}
	if _, ok := byCustomer[114]; ok {
		t.Fatalf("customer without orders must not appear in profit rows")
	}
}

func manyCustomerDataset(count int) *domain.Dataset {
	data := &domain.Dataset{
		Products: []domain.Product{{ProductCode: "P01", QuantityInStock: 100, BuyPriceCents: 100}},
	}
	for i := 1; i <= count; i++ {
		data.Customers = append(data.Customers, domain.Customer{CustomerNumber: i, Name: fmt.Sprintf("customer %d", i)})
		data.Orders = append(data.Orders, domain.Order{OrderNumber: 1000 + i, CustomerNumber: i})
		// profit for customer i is i*100 cents, strictly increasing.
		data.OrderLines = append(data.OrderLines, domain.OrderLine{OrderNumber: 1000 + i, ProductCode: "P01", QuantityOrdered: i, PriceEachCents: 200, LineNumber: 1})
	}
	return data
}

func TestVIPAndLeastEngagedAreDisjointExtremes(t *testing.T) {
	snap := NewSnapshot(manyCustomerDataset(12))

	vip, err := snap.VIPCustomers()
	if err != nil {
		t.Fatalf("vip failed: %v", err)
	}
	least, err := snap.LeastEngaged()
	if err != nil {
		t.Fatalf("least engaged failed: %v", err)
	}
	if len(vip) != 5 || len(least) != 5 {
		t.Fatalf("expected 5 rows each, got %d and %d", len(vip), len(least))
	}

	if vip[0].CustomerNumber != 12 {
		t.Fatalf("expected customer 12 as top VIP, got %d", vip[0].CustomerNumber)
	}
	if least[0].CustomerNumber != 1 {
		t.Fatalf("expected customer 1 as least engaged, got %d", least[0].CustomerNumber)
	}

	seen := map[int]bool{}
	for _, row := range vip {
		seen[row.CustomerNumber] = true
	}
	for _, row := range least {
		if seen[row.CustomerNumber] {
			t.Fatalf("customer %d appears in both extremes", row.CustomerNumber)
		}
	}

	for i := 1; i < len(vip); i++ {
		if vip[i].ProfitCents > vip[i-1].ProfitCents {
			t.Fatalf("vip rows not sorted descending at index %d", i)
		}
	}
	for i := 1; i < len(least); i++ {
		if least[i].ProfitCents < least[i-1].ProfitCents {
			t.Fatalf("least engaged rows not sorted ascending at index %d", i)
		}
	}
}

func TestLTVMeanOverCustomersWithHistory(t *testing.T) {
	snap := NewSnapshot(testDataset())

	ltv, err := snap.LTV()
	if err != nil {
		t.Fatalf("ltv failed: %v", err)
	}
	// two customers with history: (10000 + 18000) / 2.
	if ltv.CustomerCount != 2 {
		t.Fatalf("expected 2 customers in ltv, got %d", ltv.CustomerCount)
	}
	if ltv.MeanProfitCents != 14000 {
		t.Fatalf("expected mean 14000, got %v", ltv.MeanProfitCents)
	}
}

func TestLTVUndefinedForEmptyDataset(t *testing.T) {
	if _, err := NewSnapshot(&domain.Dataset{}).LTV(); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData for empty dataset, got %v", err)
	}
}

func TestReportsInvariantUnderInputOrder(t *testing.T) {
	forward := NewSnapshot(testDataset())

	shuffled := testDataset()
	slices.Reverse(shuffled.OrderLines)
	slices.Reverse(shuffled.Orders)
	slices.Reverse(shuffled.Products)
	slices.Reverse(shuffled.Customers)
	backward := NewSnapshot(shuffled)

	forwardLow, _ := forward.LowStock()
	backwardLow, _ := backward.LowStock()
	if !slices.Equal(forwardLow, backwardLow) {
		t.Fatalf("low stock depends on input order:\n%v\n%v", forwardLow, backwardLow)
	}

	forwardVIP, _ := forward.VIPCustomers()
	backwardVIP, _ := backward.VIPCustomers()
	if !slices.Equal(forwardVIP, backwardVIP) {
		t.Fatalf("vip depends on input order:\n%v\n%v", forwardVIP, backwardVIP)
	}
}

func TestDanglingForeignKeysExcludedAndWarned(t *testing.T) {
	data := testDataset()
	data.OrderLines = append(data.OrderLines,
		domain.OrderLine{OrderNumber: 10100, ProductCode: "MISSING", QuantityOrdered: 5, PriceEachCents: 1000, LineNumber: 3},
		domain.OrderLine{OrderNumber: 99999, ProductCode: "S10_1949", QuantityOrdered: 5, PriceEachCents: 1000, LineNumber: 1},
	)

	snap := NewSnapshot(data)

	warnings := snap.Warnings()
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %d: %v", len(warnings), warnings)
	}
	codes := map[string]bool{}
	for _, w := range warnings {
		codes[w.Code] = true
		if w.ID == "" || w.Detail == "" {
			t.Fatalf("warning missing id or detail: %+v", w)
		}
	}
	if !codes[domain.WarnOrphanOrderLineProduct] || !codes[domain.WarnOrphanOrderLineOrder] {
		t.Fatalf("unexpected warning codes %v", codes)
	}

	// excluded lines must not shift the aggregates
	rows, err := snap.LowStock()
	if err != nil {
		t.Fatalf("low stock failed: %v", err)
	}
	for _, row := range rows {
		if row.ProductCode == "S10_1949" && row.QuantityOrdered != 8 {
			t.Fatalf("orphan line leaked into demand: got %d", row.QuantityOrdered)
		}
	}
}

func TestOrderWithMissingCustomerKeepsProductAggregates(t *testing.T) {
	data := testDataset()
	data.Orders = append(data.Orders, domain.Order{OrderNumber: 10102, CustomerNumber: 999})
	data.OrderLines = append(data.OrderLines,
		domain.OrderLine{OrderNumber: 10102, ProductCode: "S12_1099", QuantityOrdered: 3, PriceEachCents: 4000, LineNumber: 1})

	snap := NewSnapshot(data)

	var sawWarning bool
	for _, w := range snap.Warnings() {
		if w.Code == domain.WarnOrphanOrderCustomer {
			sawWarning = true
		}
	}
	if !sawWarning {
		t.Fatalf("expected order-missing-customer warning")
	}

	perf, err := snap.Performance()
	if err != nil {
		t.Fatalf("performance failed: %v", err)
	}
	for _, row := range perf {
		if row.ProductCode == "S12_1099" && row.RevenueCents != 5000+12000 {
			t.Fatalf("expected product aggregates to keep the line, got %d", row.RevenueCents)
		}
	}

	profit, err := snap.CustomerProfit()
	if err != nil {
		t.Fatalf("customer profit failed: %v", err)
	}
	for _, row := range profit {
		if row.CustomerNumber == 999 {
			t.Fatalf("missing customer must not gain a profit row")
		}
	}
}
