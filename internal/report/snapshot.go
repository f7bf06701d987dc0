package report

import (
	"errors"
	"fmt"
	"time"

	"modelmetrics/internal/domain"
	"modelmetrics/internal/xid"
)

// ErrNoData marks a report that is undefined for the loaded dataset, such
// as a ranking or an average over zero order lines. Callers must surface
// it explicitly instead of returning a zero value.
var ErrNoData = errors.New("no data")

const (
	lowStockLimit    = 10
	performanceLimit = 10
	customerLimit    = 5
)

// Snapshot wraps one immutable Dataset with the join indexes and shared
// aggregates every report reads from. Indexes are built once here, so the
// reports themselves are plain lookups and sorts — no per-row scans.
//
// Referential-integrity policy: rows with a dangling foreign key are
// excluded from aggregation and recorded as data-quality warnings. An
// order line missing its product or order is excluded everywhere; an
// order missing its customer keeps its lines in the product aggregates
// (the product side is intact) but drops them from customer profit.
type Snapshot struct {
	ID       string
	LoadedAt time.Time

	data *domain.Dataset

	productByCode    map[string]domain.Product
	customerByNumber map[int]domain.Customer
	orderByNumber    map[int]domain.Order

	demandByProduct  map[string]int
	revenueByProduct map[string]int64
	profitByCustomer map[int]int64

	warnings []domain.DataQualityWarning
}

func NewSnapshot(data *domain.Dataset) *Snapshot {
	if data == nil {
		data = &domain.Dataset{}
	}

	s := &Snapshot{
		ID:               xid.New("snap"),
		LoadedAt:         time.Now().UTC(),
		data:             data,
		productByCode:    make(map[string]domain.Product, len(data.Products)),
		customerByNumber: make(map[int]domain.Customer, len(data.Customers)),
		orderByNumber:    make(map[int]domain.Order, len(data.Orders)),
		demandByProduct:  make(map[string]int),
		revenueByProduct: make(map[string]int64),
		profitByCustomer: make(map[int]int64),
		warnings:         make([]domain.DataQualityWarning, 0, 4),
	}

	for _, p := range data.Products {
		s.productByCode[p.ProductCode] = p
	}
	for _, c := range data.Customers {
		s.customerByNumber[c.CustomerNumber] = c
	}
	for _, o := range data.Orders {
		s.orderByNumber[o.OrderNumber] = o
		if _, ok := s.customerByNumber[o.CustomerNumber]; !ok {
			s.warn(domain.WarnOrphanOrderCustomer, "order", fmt.Sprintf("%d", o.OrderNumber),
				fmt.Sprintf("order %d references missing customer %d", o.OrderNumber, o.CustomerNumber))
		}
	}

	for _, line := range data.OrderLines {
		lineKey := fmt.Sprintf("%d/%d", line.OrderNumber, line.LineNumber)

		product, productOK := s.productByCode[line.ProductCode]
		if !productOK {
			s.warn(domain.WarnOrphanOrderLineProduct, "order_line", lineKey,
				fmt.Sprintf("order line %s references missing product %s", lineKey, line.ProductCode))
			continue
		}
		order, orderOK := s.orderByNumber[line.OrderNumber]
		if !orderOK {
			s.warn(domain.WarnOrphanOrderLineOrder, "order_line", lineKey,
				fmt.Sprintf("order line %s references missing order %d", lineKey, line.OrderNumber))
			continue
		}

		s.demandByProduct[line.ProductCode] += line.QuantityOrdered
		s.revenueByProduct[line.ProductCode] += int64(line.QuantityOrdered) * line.PriceEachCents

		// Customer profit is the one shared aggregate consumed by the VIP,
		// least-engaged and LTV reports; it is computed exactly once here.
		if _, ok := s.customerByNumber[order.CustomerNumber]; ok {
			margin := line.PriceEachCents - product.BuyPriceCents
			s.profitByCustomer[order.CustomerNumber] += int64(line.QuantityOrdered) * margin
		}
	}

	return s
}

// Warnings returns the data-quality findings collected while indexing, in
// detection order.
func (s *Snapshot) Warnings() []domain.DataQualityWarning {
	out := make([]domain.DataQualityWarning, len(s.warnings))
	copy(out, s.warnings)
	return out
}

func (s *Snapshot) warn(code string, entityType string, entityKey string, detail string) {
	s.warnings = append(s.warnings, domain.DataQualityWarning{
		ID:         xid.New("dq"),
		Code:       code,
		EntityType: entityType,
		EntityKey:  entityKey,
		Detail:     detail,
		DetectedAt: s.LoadedAt,
	})
}

func (s *Snapshot) hasOrderHistory() bool {
	return len(s.demandByProduct) > 0
}
