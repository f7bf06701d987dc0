package store

import (
	"context"
	"errors"

	"modelmetrics/internal/domain"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrSchemaMismatch = errors.New("schema mismatch")
	ErrInvalidInput   = errors.New("invalid input")
)

// DatasetSource loads the eight retail tables as one consistent dataset.
// The reporting engine treats the result as immutable; sources must return
// a fresh Dataset on every call.
type DatasetSource interface {
	LoadDataset(ctx context.Context) (*domain.Dataset, error)
}

// UserStore persists credentials for the report API accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

// Repository is what a backing store must provide in full: the dataset
// plus the API user accounts.
type Repository interface {
	DatasetSource
	UserStore
}
