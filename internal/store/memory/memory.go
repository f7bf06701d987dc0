package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"modelmetrics/internal/domain"
	"modelmetrics/internal/store"
)

// Store holds a fixed dataset and the API user accounts in memory. It is
// the dev/demo and test backend; the dataset itself never changes after
// construction.
type Store struct {
	mu              sync.RWMutex
	dataset         domain.Dataset
	usersByUsername map[string]domain.UserAccount
}

// New wraps the given dataset without seeding any users. Intended for
// tests that need full control over the tables.
func New(dataset domain.Dataset) *Store {
	return &Store{
		dataset:         dataset,
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

// NewSeeded builds a store with a small scale-model-car retail dataset
// and the default dev accounts.
func NewSeeded() *Store {
	s := New(seedDataset())
	s.usersByUsername = seedUsers()
	return s
}

func (s *Store) LoadDataset(_ context.Context) (*domain.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dup := cloneDataset(s.dataset)
	return &dup, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidInput
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleAnalyst
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

// seedUsers builds the initial in-memory accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_ANALYST_PASSWORD;
// unset variables fall back to hardcoded dev defaults with a warning.
// Production deployments use PostgreSQL (DATABASE_URL) instead.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	analystPwd := envOr("SEED_ANALYST_PASSWORD", "analyst123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_ANALYST_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_ANALYST_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"analyst", analystPwd, domain.RoleAnalyst},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func cloneDataset(src domain.Dataset) domain.Dataset {
	return domain.Dataset{
		Customers:    slices.Clone(src.Customers),
		Employees:    slices.Clone(src.Employees),
		Offices:      slices.Clone(src.Offices),
		Orders:       slices.Clone(src.Orders),
		OrderLines:   slices.Clone(src.OrderLines),
		Payments:     slices.Clone(src.Payments),
		Products:     slices.Clone(src.Products),
		ProductLines: slices.Clone(src.ProductLines),
	}
}

func seedDataset() domain.Dataset {
	day := func(value string) time.Time {
		t, _ := time.Parse("2006-01-02", value)
		return t
	}

	return domain.Dataset{
		ProductLines: []domain.ProductLine{
			{Line: "Classic Cars", Description: "Attention to detail in 1:10 and 1:12 scale die-cast replicas."},
			{Line: "Motorcycles", Description: "Replica motorcycles with rotating wheels and working kickstands."},
			{Line: "Vintage Cars", Description: "Pre-1940s automobiles rendered in collectible scale."},
		},
		Products: []domain.Product{
			{ProductCode: "S10_1678", Name: "1969 Harley Davidson Ultimate Chopper", ProductLine: "Motorcycles", Scale: "1:10", Vendor: "Min Lin Diecast", Description: "Official Harley Davidson logos and detachable rear wheelie bar.", QuantityInStock: 7933, BuyPriceCents: 4881, MSRPCents: 9500},
			{ProductCode: "S10_1949", Name: "1952 Alpine Renault 1300", ProductLine: "Classic Cars", Scale: "1:10", Vendor: "Classic Metal Creations", Description: "Turnable front wheels, detailed interior and engine compartment.", QuantityInStock: 14, BuyPriceCents: 9858, MSRPCents: 21400},
			{ProductCode: "S10_2016", Name: "1996 Moto Guzzi 1100i", ProductLine: "Motorcycles", Scale: "1:10", Vendor: "Highway 66 Mini Classics", Description: "Working suspension and removable saddlebags.", QuantityInStock: 6625, BuyPriceCents: 6899, MSRPCents: 11850},
			{ProductCode: "S10_4698", Name: "2003 Harley-Davidson Eagle Drag Bike", ProductLine: "Motorcycles", Scale: "1:10", Vendor: "Red Start Diecast", Description: "Detailed engine with rotating rear slick.", QuantityInStock: 5582, BuyPriceCents: 9134, MSRPCents: 19366},
			{ProductCode: "S12_1099", Name: "1968 Ford Mustang", ProductLine: "Classic Cars", Scale: "1:12", Vendor: "Autoart Studio Design", Description: "Opening hood and doors, detailed V8 engine bay.", QuantityInStock: 68, BuyPriceCents: 9534, MSRPCents: 19471},
			{ProductCode: "S12_3380", Name: "1968 Dodge Charger", ProductLine: "Classic Cars", Scale: "1:12", Vendor: "Welly Diecast Productions", Description: "Black finish with mag wheels and side pipes.", QuantityInStock: 9123, BuyPriceCents: 7580, MSRPCents: 11775},
			{ProductCode: "S18_2238", Name: "1998 Chrysler Plymouth Prowler", ProductLine: "Classic Cars", Scale: "1:18", Vendor: "Gearbox Collectibles", Description: "Removable hood with detailed engine.", QuantityInStock: 4724, BuyPriceCents: 10151, MSRPCents: 16372},
			{ProductCode: "S18_3232", Name: "1992 Ferrari 360 Spider red", ProductLine: "Classic Cars", Scale: "1:18", Vendor: "Unimax Art Galleries", Description: "Working steering and retractable soft top.", QuantityInStock: 8347, BuyPriceCents: 7790, MSRPCents: 16924},
			{ProductCode: "S24_1937", Name: "1939 Chevrolet Deluxe Coupe", ProductLine: "Vintage Cars", Scale: "1:24", Vendor: "Motor City Art Classics", Description: "Chrome trim, opening trunk with spare tire.", QuantityInStock: 7332, BuyPriceCents: 2282, MSRPCents: 3380},
			{ProductCode: "S24_2022", Name: "1938 Cadillac V-16 Presidential Limousine", ProductLine: "Vintage Cars", Scale: "1:24", Vendor: "Classic Metal Creations", Description: "Presidential flags and detailed interior.", QuantityInStock: 2847, BuyPriceCents: 2015, MSRPCents: 4460},
			{ProductCode: "S24_3969", Name: "1936 Mercedes Benz 500k Roadster", ProductLine: "Vintage Cars", Scale: "1:24", Vendor: "Red Start Diecast", Description: "Convertible top that actually folds.", QuantityInStock: 2081, BuyPriceCents: 2461, MSRPCents: 4135},
			{ProductCode: "S32_4485", Name: "1974 Ducati 350 Mk3 Desmo", ProductLine: "Motorcycles", Scale: "1:32", Vendor: "Second Gear Diecast", Description: "Spoke wheels and gloss tank finish.", QuantityInStock: 3341, BuyPriceCents: 5625, MSRPCents: 10273},
		},
		Offices: []domain.Office{
			{OfficeCode: "1", City: "San Francisco", Country: "USA", Phone: "+1 650 219 4782", Territory: "NA"},
			{OfficeCode: "4", City: "Paris", Country: "France", Phone: "+33 14 723 4404", Territory: "EMEA"},
			{OfficeCode: "5", City: "Tokyo", Country: "Japan", Phone: "+81 33 224 5000", Territory: "Japan"},
		},
		Employees: []domain.Employee{
			{EmployeeNumber: 1002, LastName: "Murphy", FirstName: "Diane", JobTitle: "President", OfficeCode: "1"},
			{EmployeeNumber: 1143, LastName: "Bow", FirstName: "Anthony", JobTitle: "Sales Manager (NA)", OfficeCode: "1", ReportsTo: 1002},
			{EmployeeNumber: 1165, LastName: "Jennings", FirstName: "Leslie", JobTitle: "Sales Rep", OfficeCode: "1", ReportsTo: 1143},
			{EmployeeNumber: 1337, LastName: "Bondur", FirstName: "Loui", JobTitle: "Sales Rep", OfficeCode: "4", ReportsTo: 1143},
			{EmployeeNumber: 1621, LastName: "Nishi", FirstName: "Mami", JobTitle: "Sales Rep", OfficeCode: "5", ReportsTo: 1143},
		},
		Customers: []domain.Customer{
			{CustomerNumber: 103, Name: "Atelier graphique", ContactLast: "Schmitt", ContactFirst: "Carine", City: "Nantes", Country: "France", SalesRepNumber: 1337, CreditLimitCents: 2100000},
			{CustomerNumber: 112, Name: "Signal Gift Stores", ContactLast: "King", ContactFirst: "Jean", City: "Las Vegas", Country: "USA", SalesRepNumber: 1165, CreditLimitCents: 7170000},
			{CustomerNumber: 114, Name: "Australian Collectors, Co.", ContactLast: "Ferguson", ContactFirst: "Peter", City: "Melbourne", Country: "Australia", SalesRepNumber: 1621, CreditLimitCents: 11730000},
			{CustomerNumber: 119, Name: "La Rochelle Gifts", ContactLast: "Labrune", ContactFirst: "Janine", City: "Nantes", Country: "France", SalesRepNumber: 1337, CreditLimitCents: 11810000},
			{CustomerNumber: 121, Name: "Baane Mini Imports", ContactLast: "Bergulfsen", ContactFirst: "Jonas", City: "Stavern", Country: "Norway", SalesRepNumber: 1337, CreditLimitCents: 8170000},
			{CustomerNumber: 124, Name: "Mini Gifts Distributors Ltd.", ContactLast: "Nelson", ContactFirst: "Susan", City: "San Rafael", Country: "USA", SalesRepNumber: 1165, CreditLimitCents: 21060000},
			{CustomerNumber: 128, Name: "Blauer See Auto, Co.", ContactLast: "Keitel", ContactFirst: "Roland", City: "Frankfurt", Country: "Germany", SalesRepNumber: 1337, CreditLimitCents: 5960000},
			{CustomerNumber: 131, Name: "Land of Toys Inc.", ContactLast: "Lee", ContactFirst: "Kwai", City: "NYC", Country: "USA", SalesRepNumber: 1165, CreditLimitCents: 11450000},
			{CustomerNumber: 141, Name: "Euro+ Shopping Channel", ContactLast: "Freyre", ContactFirst: "Diego", City: "Madrid", Country: "Spain", SalesRepNumber: 1337, CreditLimitCents: 22760000},
			{CustomerNumber: 148, Name: "Dragon Souveniers, Ltd.", ContactLast: "Natividad", ContactFirst: "Eric", City: "Singapore", Country: "Singapore", SalesRepNumber: 1621, CreditLimitCents: 10380000},
			{CustomerNumber: 151, Name: "Muscle Machine Inc", ContactLast: "Young", ContactFirst: "Jeff", City: "NYC", Country: "USA", SalesRepNumber: 1165, CreditLimitCents: 13860000},
			{CustomerNumber: 157, Name: "Diecast Classics Inc.", ContactLast: "Leong", ContactFirst: "Kelvin", City: "Allentown", Country: "USA", SalesRepNumber: 1165, CreditLimitCents: 10060000},
		},
		Orders: []domain.Order{
			{OrderNumber: 10100, CustomerNumber: 141, OrderDate: day("2024-01-06"), Status: "Shipped"},
			{OrderNumber: 10101, CustomerNumber: 124, OrderDate: day("2024-01-09"), Status: "Shipped"},
			{OrderNumber: 10102, CustomerNumber: 114, OrderDate: day("2024-01-10"), Status: "Shipped"},
			{OrderNumber: 10103, CustomerNumber: 103, OrderDate: day("2024-01-29"), Status: "Shipped"},
			{OrderNumber: 10104, CustomerNumber: 151, OrderDate: day("2024-02-11"), Status: "Shipped"},
			{OrderNumber: 10105, CustomerNumber: 121, OrderDate: day("2024-02-21"), Status: "Shipped"},
			{OrderNumber: 10106, CustomerNumber: 141, OrderDate: day("2024-02-27"), Status: "Shipped"},
			{OrderNumber: 10107, CustomerNumber: 148, OrderDate: day("2024-03-02"), Status: "Shipped"},
			{OrderNumber: 10108, CustomerNumber: 131, OrderDate: day("2024-03-08"), Status: "Shipped"},
			{OrderNumber: 10109, CustomerNumber: 119, OrderDate: day("2024-03-12"), Status: "Shipped"},
			{OrderNumber: 10110, CustomerNumber: 112, OrderDate: day("2024-03-18"), Status: "Shipped"},
			{OrderNumber: 10111, CustomerNumber: 157, OrderDate: day("2024-03-25"), Status: "Shipped"},
			{OrderNumber: 10112, CustomerNumber: 128, OrderDate: day("2024-04-01"), Status: "In Process"},
		},
		OrderLines: []domain.OrderLine{
			{OrderNumber: 10100, ProductCode: "S10_1949", QuantityOrdered: 30, PriceEachCents: 17170, LineNumber: 1},
			{OrderNumber: 10100, ProductCode: "S12_1099", QuantityOrdered: 22, PriceEachCents: 16324, LineNumber: 2},
			{OrderNumber: 10100, ProductCode: "S24_1937", QuantityOrdered: 49, PriceEachCents: 3135, LineNumber: 3},
			{OrderNumber: 10101, ProductCode: "S10_1949", QuantityOrdered: 25, PriceEachCents: 18864, LineNumber: 1},
			{OrderNumber: 10101, ProductCode: "S18_3232", QuantityOrdered: 45, PriceEachCents: 14895, LineNumber: 2},
			{OrderNumber: 10102, ProductCode: "S12_1099", QuantityOrdered: 39, PriceEachCents: 17189, LineNumber: 1},
			{OrderNumber: 10102, ProductCode: "S10_1678", QuantityOrdered: 41, PriceEachCents: 8370, LineNumber: 2},
			{OrderNumber: 10103, ProductCode: "S24_2022", QuantityOrdered: 21, PriceEachCents: 3953, LineNumber: 1},
			{OrderNumber: 10104, ProductCode: "S12_3380", QuantityOrdered: 34, PriceEachCents: 10232, LineNumber: 1},
			{OrderNumber: 10104, ProductCode: "S18_2238", QuantityOrdered: 24, PriceEachCents: 14730, LineNumber: 2},
			{OrderNumber: 10105, ProductCode: "S24_3969", QuantityOrdered: 41, PriceEachCents: 3629, LineNumber: 1},
			{OrderNumber: 10105, ProductCode: "S10_2016", QuantityOrdered: 27, PriceEachCents: 10742, LineNumber: 2},
			{OrderNumber: 10106, ProductCode: "S18_3232", QuantityOrdered: 48, PriceEachCents: 16037, LineNumber: 1},
			{OrderNumber: 10106, ProductCode: "S10_4698", QuantityOrdered: 22, PriceEachCents: 17270, LineNumber: 2},
			{OrderNumber: 10107, ProductCode: "S10_1678", QuantityOrdered: 30, PriceEachCents: 8134, LineNumber: 1},
			{OrderNumber: 10107, ProductCode: "S32_4485", QuantityOrdered: 25, PriceEachCents: 8676, LineNumber: 2},
			{OrderNumber: 10108, ProductCode: "S24_1937", QuantityOrdered: 36, PriceEachCents: 2939, LineNumber: 1},
			{OrderNumber: 10108, ProductCode: "S12_1099", QuantityOrdered: 19, PriceEachCents: 18253, LineNumber: 2},
			{OrderNumber: 10109, ProductCode: "S18_2238", QuantityOrdered: 31, PriceEachCents: 15312, LineNumber: 1},
			{OrderNumber: 10110, ProductCode: "S24_2022", QuantityOrdered: 44, PriceEachCents: 4080, LineNumber: 1},
			{OrderNumber: 10110, ProductCode: "S10_2016", QuantityOrdered: 26, PriceEachCents: 11377, LineNumber: 2},
			{OrderNumber: 10111, ProductCode: "S12_3380", QuantityOrdered: 26, PriceEachCents: 9833, LineNumber: 1},
			{OrderNumber: 10111, ProductCode: "S24_3969", QuantityOrdered: 35, PriceEachCents: 3473, LineNumber: 2},
			{OrderNumber: 10112, ProductCode: "S10_4698", QuantityOrdered: 29, PriceEachCents: 18559, LineNumber: 1},
			{OrderNumber: 10112, ProductCode: "S32_4485", QuantityOrdered: 38, PriceEachCents: 9146, LineNumber: 2},
		},
		Payments: []domain.Payment{
			{CustomerNumber: 141, CheckNumber: "HQ336336", PaymentDate: day("2024-01-30"), AmountCents: 1617696},
			{CustomerNumber: 124, CheckNumber: "AE215433", PaymentDate: day("2024-02-05"), AmountCents: 1141875},
			{CustomerNumber: 114, CheckNumber: "GG31455", PaymentDate: day("2024-02-10"), AmountCents: 1013541},
			{CustomerNumber: 103, CheckNumber: "JM555205", PaymentDate: day("2024-02-20"), AmountCents: 83013},
			{CustomerNumber: 151, CheckNumber: "LN373447", PaymentDate: day("2024-03-09"), AmountCents: 701408},
			{CustomerNumber: 121, CheckNumber: "MA765515", PaymentDate: day("2024-03-15"), AmountCents: 438863},
		},
	}
}
