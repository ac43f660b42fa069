package noop

import (
	"context"

	"github.com/backdrop-labs/backdrop-proxy-service/clients/database"
)

// Noop is a database client that does nothing,
// used when the metric database is disabled
type Noop struct{}

var _ database.MetricsDatabase = (*Noop)(nil)

func New() *Noop {
	return &Noop{}
}

func (e *Noop) SaveInjectionMetric(ctx context.Context, metric *database.InjectionMetric) error {
	return nil
}

func (e *Noop) ListInjectionMetricsWithPagination(ctx context.Context, cursor int64, limit int) ([]database.InjectionMetric, int64, error) {
	return []database.InjectionMetric{}, 0, nil
}

func (e *Noop) DeleteInjectionMetricsOlderThanNDays(ctx context.Context, days int) error {
	return nil
}

func (e *Noop) HealthCheck() error {
	return nil
}
