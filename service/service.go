// package service provides functions and methods
// for creating and running the api of the proxy service
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/urfave/negroni"

	"github.com/backdrop-labs/backdrop-proxy-service/background"
	"github.com/backdrop-labs/backdrop-proxy-service/clients/cache"
	"github.com/backdrop-labs/backdrop-proxy-service/clients/database"
	"github.com/backdrop-labs/backdrop-proxy-service/clients/database/migrations"
	"github.com/backdrop-labs/backdrop-proxy-service/clients/database/noop"
	"github.com/backdrop-labs/backdrop-proxy-service/config"
	"github.com/backdrop-labs/backdrop-proxy-service/logging"
	"github.com/backdrop-labs/backdrop-proxy-service/service/injectmdw"
	"github.com/backdrop-labs/backdrop-proxy-service/service/reportingmdw"
)

const (
	HealthcheckPath      = "/healthcheck"
	ServicecheckPath     = "/servicecheck"
	BackgroundStatusPath = "/status/background"

	// maxMigrationElapsedTime bounds how long startup waits for the database
	maxMigrationElapsedTime = time.Minute
)

// ProxyService represents an instance of the proxy service API
type ProxyService struct {
	Database    database.MetricsDatabase
	Cache       cache.Cache
	background  *background.Client
	config      config.Config
	handler     http.Handler
	httpProxy   *http.Server
	metricSaves *sync.WaitGroup
	*logging.ServiceLogger
}

// New returns a new ProxyService with the specified config and error (if any)
func New(ctx context.Context, config config.Config, serviceLogger *logging.ServiceLogger) (ProxyService, error) {
	service := ProxyService{
		config:        config,
		metricSaves:   &sync.WaitGroup{},
		ServiceLogger: serviceLogger,
	}

	db, err := createDatabaseClient(ctx, config, serviceLogger)
	if err != nil {
		return ProxyService{}, err
	}

	service.Database = db

	service.Cache, err = createCache(config, serviceLogger)
	if err != nil {
		return ProxyService{}, err
	}

	snippetConfig := injectmdw.DefaultSnippetConfig()
	snippetConfig.AppRootID = config.BackgroundAppRootID
	snippetConfig.SysConfigPath = config.BackgroundSysConfigPath

	snippets, err := injectmdw.NewSnippets(snippetConfig)
	if err != nil {
		return ProxyService{}, fmt.Errorf("error rendering background snippets: %w", err)
	}

	service.background = background.NewClient(background.ClientConfig{
		OriginURL:     config.ProxyBackendURLParsed,
		SysConfigPath: config.BackgroundSysConfigPath,
		Cache:         service.Cache,
		CacheTTL:      config.CacheTTL,
		CachePrefix:   config.CachePrefix,
	}, serviceLogger)

	// create an http router for registering handlers for a given route
	mux := http.NewServeMux()

	// operational endpoints are answered by the proxy service itself
	mux.HandleFunc(HealthcheckPath, createHealthcheckHandler(&service))
	mux.HandleFunc(ServicecheckPath, createServicecheckHandler(&service))
	mux.HandleFunc(BackgroundStatusPath, createBackgroundStatusHandler(&service))

	// every other request is proxied to the origin with the
	// background injected into html responses
	chain := negroni.New(
		reportingmdw.New(reportingmdw.Options{DSN: config.ErrorReportingDSN}),
		createRequestMetricsMiddleware(&service),
		injectmdw.NewInjector(snippets, config.BackgroundInjectionEnabled, serviceLogger),
	)
	chain.UseHandler(newOriginProxy(config.ProxyBackendURLParsed, serviceLogger))

	mux.Handle("/", chain)

	service.handler = mux

	// create an http server for the caller to start at their own discretion
	service.httpProxy = &http.Server{
		Addr:         fmt.Sprintf(":%s", config.ProxyServicePort),
		Handler:      mux,
		ReadTimeout:  config.HTTPReadTimeout,
		WriteTimeout: config.HTTPWriteTimeout,
	}

	serviceLogger.Debug().
		Str("origin", config.ProxyBackendURLParsed.String()).
		Bool("injection_enabled", config.BackgroundInjectionEnabled).
		Msg("created proxy service")

	return service, nil
}

// createDatabaseClient connects to the metric database when it is
// enabled, running any migrations, or returns a client discarding metrics
func createDatabaseClient(ctx context.Context, config config.Config, logger *logging.ServiceLogger) (database.MetricsDatabase, error) {
	if !config.MetricDatabaseEnabled {
		logger.Debug().Msg("metric database disabled, injection metrics will not be stored")
		return noop.New(), nil
	}

	serviceDatabase, err := database.NewPostgresClient(database.PostgresDatabaseConfig{
		DatabaseName:                     config.DatabaseName,
		DatabaseEndpointURL:              config.DatabaseEndpointURL,
		DatabaseUsername:                 config.DatabaseUserName,
		DatabasePassword:                 config.DatabasePassword,
		ReadTimeoutSeconds:               config.DatabaseReadTimeoutSeconds,
		DatabaseMaxIdleConnections:       config.DatabaseMaxIdleConnections,
		DatabaseConnectionMaxIdleSeconds: config.DatabaseConnectionMaxIdleSeconds,
		DatabaseMaxOpenConnections:       config.DatabaseMaxOpenConnections,
		SSLEnabled:                       config.DatabaseSSLEnabled,
		QueryLoggingEnabled:              config.DatabaseQueryLoggingEnabled,
		RunDatabaseMigrations:            config.RunDatabaseMigrations,
		Logger:                           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating database client: %w", err)
	}

	if config.RunDatabaseMigrations {
		// the database may still be starting up alongside the service
		retry := backoff.NewExponentialBackOff()
		retry.MaxElapsedTime = maxMigrationElapsedTime

		err = backoff.Retry(func() error {
			_, err := database.Migrate(ctx, serviceDatabase.DB, *migrations.Migrations, logger)
			if err != nil {
				logger.Error().Err(err).Msg("error running migrations, retrying")
			}
			return err
		}, backoff.WithContext(retry, ctx))
		if err != nil {
			return nil, fmt.Errorf("error running migrations: %w", err)
		}
	}

	return &serviceDatabase, nil
}

// createCache connects to redis when the cache is enabled,
// falling back to a cache local to this process otherwise
func createCache(config config.Config, logger *logging.ServiceLogger) (cache.Cache, error) {
	if !config.CacheEnabled {
		return cache.NewInMemoryCache(), nil
	}

	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Address:  config.RedisEndpointURL,
		Password: config.RedisPassword,
		DB:       0,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("error creating redis cache: %w", err)
	}

	return redisCache, nil
}

// Handler returns the http handler serving every request of the service
func (p *ProxyService) Handler() http.Handler {
	return p.handler
}

// Run runs the proxy service, returning error (if any) in the event
// the proxy service stops
func (p *ProxyService) Run() error {
	p.Info().Str("addr", p.httpProxy.Addr).Msg("starting proxy service")

	err := p.httpProxy.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}

	return err
}

// Serve runs the proxy service until ctx is done then shuts it down,
// returning only once the shutdown has finished or shutdownTimeout passed
func (p *ProxyService) Serve(ctx context.Context, shutdownTimeout time.Duration) error {
	shutdownErr := make(chan error, 1)

	go func() {
		<-ctx.Done()

		p.Info().Msg("shutting down proxy service")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		shutdownErr <- p.Shutdown(shutdownCtx)
	}()

	if err := p.Run(); err != nil {
		return err
	}

	return <-shutdownErr
}

// Shutdown gracefully stops the proxy service, waiting for in flight
// requests and injection metric saves until ctx is done
func (p *ProxyService) Shutdown(ctx context.Context) error {
	err := p.httpProxy.Shutdown(ctx)

	saved := make(chan struct{})
	go func() {
		p.metricSaves.Wait()
		close(saved)
	}()

	select {
	case <-saved:
	case <-ctx.Done():
		err = errors.Join(err, fmt.Errorf("error waiting for injection metrics to be saved: %w", ctx.Err()))
	}

	return err
}
