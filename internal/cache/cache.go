package cache

import (
	"context"
	"time"

	"hncstore/backend/internal/domain"
)

// MonthlyFinancialsKey is the cache key for the monthly rollup read path.
const MonthlyFinancialsKey = "reports:monthly-financials"

type ReportCache interface {
	Get(ctx context.Context, key string) ([]domain.MonthlyFinancial, bool, error)
	Set(ctx context.Context, key string, rows []domain.MonthlyFinancial, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string) ([]domain.MonthlyFinancial, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ []domain.MonthlyFinancial, _ time.Duration) error {
	return nil
}

func (NoopReportCache) Delete(_ context.Context, _ string) error {
	return nil
}
