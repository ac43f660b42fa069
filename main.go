// package main reads & validates configuration for the proxy service
// and if the config is valid starts and monitors an instance of the proxy service
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/backdrop-labs/backdrop-proxy-service/config"
	"github.com/backdrop-labs/backdrop-proxy-service/logging"
	"github.com/backdrop-labs/backdrop-proxy-service/routines"
	"github.com/backdrop-labs/backdrop-proxy-service/service"
)

const shutdownTimeout = 15 * time.Second

var (
	serviceConfig config.Config
	serviceLogger logging.ServiceLogger
)

func init() {
	serviceConfig = config.ReadConfig()

	err := config.Validate(serviceConfig)

	if err != nil {
		panic(err)
	}

	serviceLogger, err = logging.New(serviceConfig.LogLevel)

	if err != nil {
		panic(err)
	}
}

func startMetricPruningRoutine(ctx context.Context, proxyService service.ProxyService) {
	if !serviceConfig.MetricDatabaseEnabled || !serviceConfig.MetricPruningEnabled {
		serviceLogger.Info().Msg("skipping starting metric pruning routine since it is disabled via config")
		return
	}

	metricPruningRoutine, err := routines.NewMetricPruningRoutine(routines.MetricPruningRoutineConfig{
		Interval:       serviceConfig.MetricPruningRoutineInterval,
		StartDelay:     serviceConfig.MetricPruningRoutineDelayFirstRun,
		MaxHistoryDays: serviceConfig.MetricPruningMaxHistoryDays,
		Database:       proxyService.Database,
		Logger:         serviceLogger,
	})

	if err != nil {
		serviceLogger.Error().Err(err).Msg("error creating metric pruning routine")
		return
	}

	errChan, err := metricPruningRoutine.Run(ctx)

	if err != nil {
		serviceLogger.Error().Err(err).Msg("error starting metric pruning routine")
		return
	}

	go func() {
		for routineErr := range errChan {
			serviceLogger.Error().Err(routineErr).Msg("metric pruning routine encountered error")
		}
	}()
}

func main() {
	serviceLogger.Debug().Interface("config", serviceConfig).Msg("initial config")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	proxyService, err := service.New(ctx, serviceConfig, &serviceLogger)

	if err != nil {
		serviceLogger.Panic().Err(err).Msg("error creating proxy service")
	}

	startMetricPruningRoutine(ctx, proxyService)

	if err := proxyService.Serve(ctx, shutdownTimeout); err != nil {
		serviceLogger.Panic().Err(err).Msg("proxy service stopped with error")
	}

	serviceLogger.Info().Msg("proxy service stopped")
}
