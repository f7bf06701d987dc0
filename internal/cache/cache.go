package cache

import (
	"context"
	"time"

	"modelmetrics/internal/domain"
)

// ReportCache stores a fully assembled report bundle keyed by snapshot ID.
// A cache miss is not an error; callers fall through to recomputation.
type ReportCache interface {
	Get(ctx context.Context, key string) (*domain.ReportBundle, bool, error)
	Set(ctx context.Context, key string, value *domain.ReportBundle, ttl time.Duration) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string) (*domain.ReportBundle, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ *domain.ReportBundle, _ time.Duration) error {
	return nil
}
