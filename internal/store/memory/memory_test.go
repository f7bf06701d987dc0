package memory

import (
	"context"
	"errors"
	"testing"

	"modelmetrics/internal/domain"
	"modelmetrics/internal/store"
)

func TestSeededDatasetIsReferentiallyIntact(t *testing.T) {
	dataset, err := NewSeeded().LoadDataset(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	products := map[string]bool{}
	for _, p := range dataset.Products {
		products[p.ProductCode] = true
	}
	customers := map[int]bool{}
	for _, c := range dataset.Customers {
		customers[c.CustomerNumber] = true
	}
	orders := map[int]bool{}
	for _, o := range dataset.Orders {
		orders[o.OrderNumber] = true
		if !customers[o.CustomerNumber] {
			t.Fatalf("order %d references missing customer %d", o.OrderNumber, o.CustomerNumber)
		}
	}
	for _, line := range dataset.OrderLines {
		if !orders[line.OrderNumber] {
			t.Fatalf("order line references missing order %d", line.OrderNumber)
		}
		if !products[line.ProductCode] {
			t.Fatalf("order line references missing product %s", line.ProductCode)
		}
	}
	for _, payment := range dataset.Payments {
		if !customers[payment.CustomerNumber] {
			t.Fatalf("payment references missing customer %d", payment.CustomerNumber)
		}
	}
}

func TestLoadDatasetReturnsCopy(t *testing.T) {
	s := NewSeeded()

	first, err := s.LoadDataset(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	first.Products[0].QuantityInStock = -1

	second, err := s.LoadDataset(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if second.Products[0].QuantityInStock == -1 {
		t.Fatalf("mutation of a loaded dataset leaked into the store")
	}
}

func TestUserLifecycle(t *testing.T) {
	s := New(domain.Dataset{})
	ctx := context.Background()

	err := s.CreateUser(ctx, domain.UserAccount{Username: "Analyst1", Password: "hash"})
	if err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	if err := s.CreateUser(ctx, domain.UserAccount{Username: "analyst1", Password: "hash"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected duplicate username to fail, got %v", err)
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(users) != 1 || users[0].Username != "analyst1" {
		t.Fatalf("expected lowercased username, got %+v", users)
	}
	if users[0].Role != domain.RoleAnalyst {
		t.Fatalf("expected default analyst role, got %s", users[0].Role)
	}

	if err := s.UpdateUserPassword(ctx, "analyst1", "newhash"); err != nil {
		t.Fatalf("update password failed: %v", err)
	}
	if err := s.UpdateUserPassword(ctx, "ghost", "newhash"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}
