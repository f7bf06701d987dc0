package domain

import "time"

type Customer struct {
	CustomerNumber   int    `json:"customer_number"`
	Name             string `json:"name"`
	ContactLast      string `json:"contact_last"`
	ContactFirst     string `json:"contact_first"`
	City             string `json:"city"`
	Country          string `json:"country"`
	SalesRepNumber   int    `json:"sales_rep_number,omitempty"`
	CreditLimitCents int64  `json:"credit_limit_cents"`
}

type Employee struct {
	EmployeeNumber int    `json:"employee_number"`
	LastName       string `json:"last_name"`
	FirstName      string `json:"first_name"`
	JobTitle       string `json:"job_title"`
	OfficeCode     string `json:"office_code"`
	ReportsTo      int    `json:"reports_to,omitempty"`
}

type Office struct {
	OfficeCode string `json:"office_code"`
	City       string `json:"city"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
	Territory  string `json:"territory"`
}

type Order struct {
	OrderNumber    int       `json:"order_number"`
	CustomerNumber int       `json:"customer_number"`
	OrderDate      time.Time `json:"order_date"`
	Status         string    `json:"status"`
}

type OrderLine struct {
	OrderNumber     int    `json:"order_number"`
	ProductCode     string `json:"product_code"`
	QuantityOrdered int    `json:"quantity_ordered"`
	PriceEachCents  int64  `json:"price_each_cents"`
	LineNumber      int    `json:"line_number"`
}

type Payment struct {
	CustomerNumber int       `json:"customer_number"`
	CheckNumber    string    `json:"check_number"`
	PaymentDate    time.Time `json:"payment_date"`
	AmountCents    int64     `json:"amount_cents"`
}

type Product struct {
	ProductCode     string `json:"product_code"`
	Name            string `json:"name"`
	ProductLine     string `json:"product_line"`
	Scale           string `json:"scale"`
	Vendor          string `json:"vendor"`
	Description     string `json:"description"`
	QuantityInStock int    `json:"quantity_in_stock"`
	BuyPriceCents   int64  `json:"buy_price_cents"`
	MSRPCents       int64  `json:"msrp_cents"`
}

type ProductLine struct {
	Line        string `json:"line"`
	Description string `json:"description"`
}

// Dataset is one immutable load of the eight retail tables. Reports never
// mutate it; every store load produces a fresh Dataset.
type Dataset struct {
	Customers    []Customer    `json:"customers"`
	Employees    []Employee    `json:"employees"`
	Offices      []Office      `json:"offices"`
	Orders       []Order       `json:"orders"`
	OrderLines   []OrderLine   `json:"order_lines"`
	Payments     []Payment     `json:"payments"`
	Products     []Product     `json:"products"`
	ProductLines []ProductLine `json:"product_lines"`
}

// DataQualityWarning records a row excluded from aggregation because it
// referenced a missing parent. Offending rows are never silently dropped:
// every exclusion produces one warning.
type DataQualityWarning struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	EntityType string    `json:"entity_type"`
	EntityKey  string    `json:"entity_key"`
	Detail     string    `json:"detail"`
	DetectedAt time.Time `json:"detected_at"`
}

type CensusRow struct {
	Table          string `json:"table"`
	AttributeCount int    `json:"attribute_count"`
	RowCount       int    `json:"row_count"`
}

type StockRatioRow struct {
	ProductCode     string  `json:"product_code"`
	QuantityInStock int     `json:"quantity_in_stock"`
	QuantityOrdered int     `json:"quantity_ordered"`
	Ratio           float64 `json:"ratio"`
}

type ProductPerformanceRow struct {
	ProductCode  string `json:"product_code"`
	RevenueCents int64  `json:"revenue_cents"`
}

type RestockPriorityRow struct {
	ProductCode  string  `json:"product_code"`
	Name         string  `json:"name"`
	ProductLine  string  `json:"product_line"`
	Scale        string  `json:"scale"`
	Vendor       string  `json:"vendor"`
	Description  string  `json:"description"`
	StockRatio   float64 `json:"stock_ratio"`
	RevenueCents int64   `json:"revenue_cents"`
}

type CustomerProfitRow struct {
	CustomerNumber int   `json:"customer_number"`
	ProfitCents    int64 `json:"profit_cents"`
}

type CustomerValueRow struct {
	CustomerNumber int    `json:"customer_number"`
	Name           string `json:"name"`
	City           string `json:"city"`
	Country        string `json:"country"`
	ProfitCents    int64  `json:"profit_cents"`
}

type LifetimeValue struct {
	CustomerCount   int     `json:"customer_count"`
	MeanProfitCents float64 `json:"mean_profit_cents"`
}

// ReportBundle is the result of one full reporting run. Sections fail
// independently: a section-level error is recorded in Errors under the
// section name and never aborts the other sections.
type ReportBundle struct {
	SnapshotID        string                  `json:"snapshot_id"`
	LoadedAt          time.Time               `json:"loaded_at"`
	Census            []CensusRow             `json:"census"`
	LowStock          []StockRatioRow         `json:"low_stock"`
	Performance       []ProductPerformanceRow `json:"performance"`
	RestockPriorities []RestockPriorityRow    `json:"restock_priorities"`
	CustomerProfit    []CustomerProfitRow     `json:"customer_profit"`
	VIPCustomers      []CustomerValueRow      `json:"vip_customers"`
	LeastEngaged      []CustomerValueRow      `json:"least_engaged"`
	LTV               *LifetimeValue          `json:"ltv,omitempty"`
	Warnings          []DataQualityWarning    `json:"warnings"`
	Errors            map[string]string       `json:"errors,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type RefreshResponse struct {
	SnapshotID   string `json:"snapshot_id"`
	LoadedAt     string `json:"loaded_at"`
	WarningCount int    `json:"warning_count"`
}

type AnalystCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AnalystUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	RoleAdmin   = "admin"
	RoleAnalyst = "analyst"
)

const (
	WarnOrphanOrderLineProduct = "orderline_missing_product"
	WarnOrphanOrderLineOrder   = "orderline_missing_order"
	WarnOrphanOrderCustomer    = "order_missing_customer"
)

const (
	SectionCensus      = "census"
	SectionLowStock    = "low_stock"
	SectionPerformance = "performance"
	SectionRestock     = "restock_priorities"
	SectionProfit      = "customer_profit"
	SectionVIP         = "vip_customers"
	SectionLeast       = "least_engaged"
	SectionLTV         = "ltv"
)
