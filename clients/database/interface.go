package database

import "context"

// MetricsDatabase stores and maintains the metrics
// recorded for each request handled by the proxy service
type MetricsDatabase interface {
	SaveInjectionMetric(ctx context.Context, metric *InjectionMetric) error
	ListInjectionMetricsWithPagination(ctx context.Context, cursor int64, limit int) ([]InjectionMetric, int64, error)
	DeleteInjectionMetricsOlderThanNDays(ctx context.Context, days int) error
	HealthCheck() error
}
