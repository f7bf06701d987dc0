package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"modelmetrics/internal/domain"
	"modelmetrics/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// LoadDataset reads all eight retail tables into one Dataset. A missing
// table or column means the database does not carry the expected schema;
// that is fatal for reporting and surfaces as ErrSchemaMismatch.
func (s *Store) LoadDataset(ctx context.Context) (*domain.Dataset, error) {
	var dataset domain.Dataset
	var err error

	if dataset.Customers, err = s.loadCustomers(ctx); err != nil {
		return nil, wrapSchemaErr("customers", err)
	}
	if dataset.Employees, err = s.loadEmployees(ctx); err != nil {
		return nil, wrapSchemaErr("employees", err)
	}
	if dataset.Offices, err = s.loadOffices(ctx); err != nil {
		return nil, wrapSchemaErr("offices", err)
	}
	if dataset.Orders, err = s.loadOrders(ctx); err != nil {
		return nil, wrapSchemaErr("orders", err)
	}
	if dataset.OrderLines, err = s.loadOrderLines(ctx); err != nil {
		return nil, wrapSchemaErr("orderdetails", err)
	}
	if dataset.Payments, err = s.loadPayments(ctx); err != nil {
		return nil, wrapSchemaErr("payments", err)
	}
	if dataset.Products, err = s.loadProducts(ctx); err != nil {
		return nil, wrapSchemaErr("products", err)
	}
	if dataset.ProductLines, err = s.loadProductLines(ctx); err != nil {
		return nil, wrapSchemaErr("productlines", err)
	}

	return &dataset, nil
}

func (s *Store) loadCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT customer_number, customer_name, contact_last_name, contact_first_name,
			city, country, sales_rep_employee_number, credit_limit_cents
		FROM customers
		ORDER BY customer_number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 128)
	for rows.Next() {
		var c domain.Customer
		var salesRep sql.NullInt64
		if err := rows.Scan(&c.CustomerNumber, &c.Name, &c.ContactLast, &c.ContactFirst, &c.City, &c.Country, &salesRep, &c.CreditLimitCents); err != nil {
			return nil, err
		}
		if salesRep.Valid {
			c.SalesRepNumber = int(salesRep.Int64)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *Store) loadEmployees(ctx context.Context) ([]domain.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_number, last_name, first_name, job_title, office_code, reports_to
		FROM employees
		ORDER BY employee_number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := make([]domain.Employee, 0, 32)
	for rows.Next() {
		var e domain.Employee
		var reportsTo sql.NullInt64
		if err := rows.Scan(&e.EmployeeNumber, &e.LastName, &e.FirstName, &e.JobTitle, &e.OfficeCode, &reportsTo); err != nil {
			return nil, err
		}
		if reportsTo.Valid {
			e.ReportsTo = int(reportsTo.Int64)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func (s *Store) loadOffices(ctx context.Context) ([]domain.Office, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT office_code, city, country, phone, territory
		FROM offices
		ORDER BY office_code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	offices := make([]domain.Office, 0, 8)
	for rows.Next() {
		var o domain.Office
		if err := rows.Scan(&o.OfficeCode, &o.City, &o.Country, &o.Phone, &o.Territory); err != nil {
			return nil, err
		}
		offices = append(offices, o)
	}
	return offices, rows.Err()
}

func (s *Store) loadOrders(ctx context.Context) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_number, customer_number, order_date, status
		FROM orders
		ORDER BY order_number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, 256)
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.OrderNumber, &o.CustomerNumber, &o.OrderDate, &o.Status); err != nil {
			return nil, err
		}
		o.OrderDate = o.OrderDate.UTC()
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *Store) loadOrderLines(ctx context.Context) ([]domain.OrderLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_number, product_code, quantity_ordered, price_each_cents, order_line_number
		FROM orderdetails
		ORDER BY order_number, order_line_number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.OrderLine, 0, 1024)
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.OrderNumber, &l.ProductCode, &l.QuantityOrdered, &l.PriceEachCents, &l.LineNumber); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s *Store) loadPayments(ctx context.Context) ([]domain.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT customer_number, check_number, payment_date, amount_cents
		FROM payments
		ORDER BY customer_number, check_number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0, 256)
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.CustomerNumber, &p.CheckNumber, &p.PaymentDate, &p.AmountCents); err != nil {
			return nil, err
		}
		p.PaymentDate = p.PaymentDate.UTC()
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (s *Store) loadProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_code, product_name, product_line, product_scale, product_vendor,
			product_description, quantity_in_stock, buy_price_cents, msrp_cents
		FROM products
		ORDER BY product_code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ProductCode, &p.Name, &p.ProductLine, &p.Scale, &p.Vendor, &p.Description, &p.QuantityInStock, &p.BuyPriceCents, &p.MSRPCents); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) loadProductLines(ctx context.Context) ([]domain.ProductLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_line, COALESCE(text_description, '')
		FROM productlines
		ORDER BY product_line
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.ProductLine, 0, 8)
	for rows.Next() {
		var l domain.ProductLine
		if err := rows.Scan(&l.Line, &l.Description); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = domain.RoleAnalyst
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO report_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM report_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE report_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func wrapSchemaErr(table string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 42P01 undefined_table, 42703 undefined_column
		if pgErr.Code == "42P01" || pgErr.Code == "42703" {
			return fmt.Errorf("%w: table %s: %s", store.ErrSchemaMismatch, table, pgErr.Message)
		}
	}
	return fmt.Errorf("load %s: %w", table, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
