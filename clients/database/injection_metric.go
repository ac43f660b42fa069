package database

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// InjectionMetric contains metrics for a single request
// proxied to the origin, including whether the response
// body was rewritten to carry the background assets
type InjectionMetric struct {
	bun.BaseModel `bun:"table:injection_metrics,alias:im"`

	ID                          int64 `bun:",pk,autoincrement"`
	RequestID                   string
	Method                      string
	Hostname                    string
	Path                        string
	StatusCode                  int
	ContentType                 string
	Injected                    bool
	ResponseLatencyMilliseconds int64
	RequestTime                 time.Time
}

// Save saves the current InjectionMetric to
// the database, returning error (if any)
func (im *InjectionMetric) Save(ctx context.Context, db *bun.DB) error {
	_, err := db.NewInsert().Model(im).Exec(ctx)

	return err
}

// ListInjectionMetricsWithPagination returns a page of max
// `limit` injection metrics with ids greater than `cursor`,
// the cursor for the next page (zero when there are no more
// pages) and error (if any)
func ListInjectionMetricsWithPagination(ctx context.Context, db *bun.DB, cursor int64, limit int) ([]InjectionMetric, int64, error) {
	var injectionMetrics []InjectionMetric

	err := db.NewSelect().
		Model(&injectionMetrics).
		Where("id > ?", cursor).
		Order("id ASC").
		Limit(limit).
		Scan(ctx)

	if err != nil {
		return nil, 0, err
	}

	var nextCursor int64
	if len(injectionMetrics) == limit && limit > 0 {
		nextCursor = injectionMetrics[len(injectionMetrics)-1].ID
	}

	return injectionMetrics, nextCursor, nil
}

// DeleteInjectionMetricsOlderThanNDays deletes all injection
// metrics recorded more than `n` days ago
func DeleteInjectionMetricsOlderThanNDays(ctx context.Context, db *bun.DB, n int) error {
	cutoff := time.Now().AddDate(0, 0, -n)

	_, err := db.NewDelete().
		Model((*InjectionMetric)(nil)).
		Where("request_time < ?", cutoff).
		Exec(ctx)

	return err
}
