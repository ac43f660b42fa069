package database_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/backdrop-labs/backdrop-proxy-service/clients/database"
	"github.com/backdrop-labs/backdrop-proxy-service/clients/database/migrations"
	"github.com/backdrop-labs/backdrop-proxy-service/clients/database/noop"
	"github.com/backdrop-labs/backdrop-proxy-service/logging"
)

var (
	testContext      = context.Background()
	databaseURL      = os.Getenv("TEST_DATABASE_ENDPOINT_URL")
	databasePassword = os.Getenv("DATABASE_PASSWORD")
	databaseUsername = os.Getenv("DATABASE_USERNAME")
	databaseName     = os.Getenv("DATABASE_NAME")
)

func TestUnitTestNoopDatabaseDoesNothing(t *testing.T) {
	var db database.MetricsDatabase = noop.New()

	require.NoError(t, db.SaveInjectionMetric(testContext, &database.InjectionMetric{}))
	require.NoError(t, db.DeleteInjectionMetricsOlderThanNDays(testContext, 1))
	require.NoError(t, db.HealthCheck())

	metrics, cursor, err := db.ListInjectionMetricsWithPagination(testContext, 0, 10)
	require.NoError(t, err)
	require.Empty(t, metrics)
	require.Zero(t, cursor)
}

func TestUnitTestMigrationsAreRegistered(t *testing.T) {
	sorted := migrations.Migrations.Sorted()

	require.Len(t, sorted, 1)
	require.Equal(t, "create_injection_metrics", sorted[0].Comment)
}

func TestE2ETestInjectionMetricsRoundTrip(t *testing.T) {
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_ENDPOINT_URL not set")
	}

	logger, err := logging.New("ERROR")
	require.NoError(t, err)

	db, err := database.NewPostgresClient(database.PostgresDatabaseConfig{
		DatabaseName:                     databaseName,
		DatabaseEndpointURL:              databaseURL,
		DatabaseUsername:                 databaseUsername,
		DatabasePassword:                 databasePassword,
		ReadTimeoutSeconds:               10,
		DatabaseMaxIdleConnections:       1,
		DatabaseConnectionMaxIdleSeconds: 1,
		DatabaseMaxOpenConnections:       2,
		Logger:                           &logger,
	})
	require.NoError(t, err)
	require.NoError(t, db.HealthCheck())

	_, err = database.Migrate(testContext, db.DB, *migrations.Migrations, &logger)
	require.NoError(t, err)

	requestID := uuid.New().String()
	old := &database.InjectionMetric{
		RequestID:   requestID,
		Method:      "GET",
		Hostname:    "localhost:7777",
		Path:        "/old",
		StatusCode:  200,
		ContentType: "text/html",
		Injected:    true,
		RequestTime: time.Now().AddDate(0, 0, -10),
	}
	require.NoError(t, db.SaveInjectionMetric(testContext, old))
	require.NotZero(t, old.ID)

	recent := &database.InjectionMetric{
		RequestID:   requestID,
		Method:      "GET",
		Hostname:    "localhost:7777",
		Path:        "/recent",
		StatusCode:  200,
		ContentType: "application/json",
		RequestTime: time.Now(),
	}
	require.NoError(t, db.SaveInjectionMetric(testContext, recent))

	require.NoError(t, db.DeleteInjectionMetricsOlderThanNDays(testContext, 5))

	var found []database.InjectionMetric
	var cursor int64
	for {
		page, next, err := db.ListInjectionMetricsWithPagination(testContext, cursor, 100)
		require.NoError(t, err)
		for _, metric := range page {
			if metric.RequestID == requestID {
				found = append(found, metric)
			}
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	require.Len(t, found, 1)
	require.Equal(t, "/recent", found[0].Path)
	require.False(t, found[0].Injected)
}
