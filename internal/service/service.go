package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"modelmetrics/internal/cache"
	"modelmetrics/internal/domain"
	"modelmetrics/internal/report"
	"modelmetrics/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Service owns the snapshot lifecycle: it loads the dataset from the
// repository, indexes it into a report.Snapshot and serves every report
// from that snapshot until the next refresh. All readers share one
// snapshot; Refresh swaps it atomically under the lock.
type Service struct {
	repo     store.DatasetSource
	cache    cache.ReportCache
	cacheTTL time.Duration

	mu       sync.RWMutex
	snapshot *report.Snapshot
}

func New(repo store.DatasetSource, reportCache cache.ReportCache, cacheTTL time.Duration) *Service {
	if reportCache == nil {
		reportCache = cache.NoopReportCache{}
	}
	if cacheTTL < time.Second {
		cacheTTL = 5 * time.Minute
	}

	return &Service{
		repo:     repo,
		cache:    reportCache,
		cacheTTL: cacheTTL,
	}
}

// Snapshot returns the current snapshot, loading the dataset on first
// use. Concurrent first calls may both load; the second swap wins, which
// is harmless since both snapshots index the same dataset.
func (s *Service) Snapshot(ctx context.Context) (*report.Snapshot, error) {
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	return s.reload(ctx)
}

// Refresh discards the current snapshot and reloads the dataset. Cached
// bundles are keyed by snapshot ID, so the old cache entries simply stop
// being read.
func (s *Service) Refresh(ctx context.Context) (domain.RefreshResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.RefreshResponse{}, fmt.Errorf("admin role required")
	}

	snap, err := s.reload(ctx)
	if err != nil {
		return domain.RefreshResponse{}, err
	}

	log.Printf("[service] dataset refreshed snapshot=%s warnings=%d by=%s", snap.ID, len(snap.Warnings()), actor.Username)
	return domain.RefreshResponse{
		SnapshotID:   snap.ID,
		LoadedAt:     snap.LoadedAt.Format(time.RFC3339),
		WarningCount: len(snap.Warnings()),
	}, nil
}

func (s *Service) reload(ctx context.Context) (*report.Snapshot, error) {
	dataset, err := s.repo.LoadDataset(ctx)
	if err != nil {
		return nil, err
	}
	snap := report.NewSnapshot(dataset)
	for _, w := range snap.Warnings() {
		log.Printf("[service] WARN data quality: %s", w.Detail)
	}

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
	return snap, nil
}

func (s *Service) Census(ctx context.Context) ([]domain.CensusRow, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Census(), nil
}

func (s *Service) LowStock(ctx context.Context) ([]domain.StockRatioRow, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.LowStock()
}

func (s *Service) Performance(ctx context.Context) ([]domain.ProductPerformanceRow, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Performance()
}

func (s *Service) RestockPriorities(ctx context.Context) ([]domain.RestockPriorityRow, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.RestockPriorities()
}

func (s *Service) CustomerProfit(ctx context.Context) ([]domain.CustomerProfitRow, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.CustomerProfit()
}

func (s *Service) VIPCustomers(ctx context.Context) ([]domain.CustomerValueRow, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.VIPCustomers()
}

func (s *Service) LeastEngaged(ctx context.Context) ([]domain.CustomerValueRow, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.LeastEngaged()
}

func (s *Service) LTV(ctx context.Context) (domain.LifetimeValue, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return domain.LifetimeValue{}, err
	}
	return snap.LTV()
}

// FullReport assembles every section into one bundle. Sections that are
// undefined for the dataset are recorded in Errors instead of failing
// the whole bundle. The bundle is cached per snapshot ID, so the cache
// invalidates itself on refresh.
func (s *Service) FullReport(ctx context.Context) (*domain.ReportBundle, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	cacheKey := "report:full:" + snap.ID
	if cached, hit, cacheErr := s.cache.Get(ctx, cacheKey); cacheErr != nil {
		log.Printf("[service] WARN report cache get failed: %v", cacheErr)
	} else if hit {
		return cached, nil
	}

	bundle := &domain.ReportBundle{
		SnapshotID: snap.ID,
		LoadedAt:   snap.LoadedAt,
		Census:     snap.Census(),
		Warnings:   snap.Warnings(),
		Errors:     map[string]string{},
	}

	if bundle.LowStock, err = snap.LowStock(); err != nil {
		bundle.Errors[domain.SectionLowStock] = err.Error()
	}
	if bundle.Performance, err = snap.Performance(); err != nil {
		bundle.Errors[domain.SectionPerformance] = err.Error()
	}
	if bundle.RestockPriorities, err = snap.RestockPriorities(); err != nil {
		bundle.Errors[domain.SectionRestock] = err.Error()
	}
	if bundle.CustomerProfit, err = snap.CustomerProfit(); err != nil {
		bundle.Errors[domain.SectionProfit] = err.Error()
	}
	if bundle.VIPCustomers, err = snap.VIPCustomers(); err != nil {
		bundle.Errors[domain.SectionVIP] = err.Error()
	}
	if bundle.LeastEngaged, err = snap.LeastEngaged(); err != nil {
		bundle.Errors[domain.SectionLeast] = err.Error()
	}
	if ltv, ltvErr := snap.LTV(); ltvErr != nil {
		bundle.Errors[domain.SectionLTV] = ltvErr.Error()
	} else {
		bundle.LTV = &ltv
	}
	if len(bundle.Errors) == 0 {
		bundle.Errors = nil
	}

	if cacheErr := s.cache.Set(ctx, cacheKey, bundle, s.cacheTTL); cacheErr != nil {
		log.Printf("[service] WARN report cache set failed: %v", cacheErr)
	}

	return bundle, nil
}
