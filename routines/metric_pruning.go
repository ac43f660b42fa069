// package routines provides configuration and logic
// for running background routines such as metric pruning
// for removing historical injection metrics
package routines

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/backdrop-labs/backdrop-proxy-service/clients/database"
	"github.com/backdrop-labs/backdrop-proxy-service/logging"
)

// MetricPruningRoutineConfig wraps values used
// for creating a new metric pruning routine
type MetricPruningRoutineConfig struct {
	Interval       time.Duration
	StartDelay     time.Duration
	MaxHistoryDays int
	Database       database.MetricsDatabase
	Logger         logging.ServiceLogger
}

// MetricPruningRoutine can be used to
// run a background routine on a configurable interval
// to prune historical injection metrics
type MetricPruningRoutine struct {
	id             string
	interval       time.Duration
	startDelay     time.Duration
	maxHistoryDays int
	db             database.MetricsDatabase
	logging.ServiceLogger
}

// Run starts the metric pruning routine, returning error (if any)
// from starting the routine and an error channel which any errors
// encountered during running will be sent on. The routine stops
// and closes the channel once ctx is done.
func (mpr *MetricPruningRoutine) Run(ctx context.Context) (<-chan error, error) {
	if mpr.interval <= 0 {
		return nil, fmt.Errorf("metric pruning interval must be positive, got %s", mpr.interval)
	}

	errorChannel := make(chan error, 1)

	go func() {
		defer close(errorChannel)

		select {
		case <-ctx.Done():
			return
		case <-time.After(mpr.startDelay):
		}

		mpr.prune(ctx, errorChannel)

		ticker := time.NewTicker(mpr.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case tick := <-ticker.C:
				mpr.Trace().Msg(fmt.Sprintf("%s tick at %+v", mpr.id, tick))

				mpr.prune(ctx, errorChannel)
			}
		}
	}()

	return errorChannel, nil
}

func (mpr *MetricPruningRoutine) prune(ctx context.Context, errorChannel chan<- error) {
	err := mpr.db.DeleteInjectionMetricsOlderThanNDays(ctx, mpr.maxHistoryDays)
	if err == nil {
		mpr.Debug().
			Str("routine_id", mpr.id).
			Int("max_history_days", mpr.maxHistoryDays).
			Msg("pruned injection metrics")
		return
	}

	select {
	case errorChannel <- err:
	case <-ctx.Done():
	}
}

// NewMetricPruningRoutine creates a new metric pruning routine
// using the provided config, returning the routine and error (if any)
func NewMetricPruningRoutine(config MetricPruningRoutineConfig) (*MetricPruningRoutine, error) {
	if config.Database == nil {
		return nil, fmt.Errorf("metric pruning routine requires a database")
	}

	return &MetricPruningRoutine{
		id:             uuid.New().String(),
		interval:       config.Interval,
		startDelay:     config.StartDelay,
		maxHistoryDays: config.MaxHistoryDays,
		db:             config.Database,
		ServiceLogger:  config.Logger,
	}, nil
}
