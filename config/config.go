// package config provides functions and values
// for reading and validating backdrop proxy service configuration
package config

import (
	"net/url"
	"os"
	"strconv"
	"time"
)

type Config struct {
	LogLevel                          string
	ProxyServicePort                  string
	ProxyBackendURLRaw                string
	ProxyBackendURLParsed             url.URL
	BackgroundInjectionEnabled        bool
	BackgroundSysConfigPath           string
	BackgroundAppRootID               string
	ErrorReportingDSN                 string
	CacheEnabled                      bool
	RedisEndpointURL                  string
	RedisPassword                     string
	CacheTTL                          time.Duration
	CachePrefix                       string
	MetricDatabaseEnabled             bool
	DatabaseName                      string
	DatabaseEndpointURL               string
	DatabaseUserName                  string
	DatabasePassword                  string
	DatabaseSSLEnabled                bool
	DatabaseQueryLoggingEnabled       bool
	RunDatabaseMigrations             bool
	DatabaseReadTimeoutSeconds        int64
	DatabaseMaxIdleConnections        int64
	DatabaseConnectionMaxIdleSeconds  int64
	DatabaseMaxOpenConnections        int64
	MetricPruningEnabled              bool
	MetricPruningRoutineInterval      time.Duration
	MetricPruningRoutineDelayFirstRun time.Duration
	MetricPruningMaxHistoryDays       int
	HTTPReadTimeout                   time.Duration
	HTTPWriteTimeout                  time.Duration
}

const (
	LOG_LEVEL_ENVIRONMENT_KEY                                       = "LOG_LEVEL"
	DEFAULT_LOG_LEVEL                                               = "INFO"
	PROXY_SERVICE_PORT_ENVIRONMENT_KEY                              = "PROXY_SERVICE_PORT"
	DEFAULT_PROXY_SERVICE_PORT                                      = "7777"
	PROXY_BACKEND_URL_ENVIRONMENT_KEY                               = "PROXY_BACKEND_URL"
	BACKGROUND_INJECTION_ENABLED_ENVIRONMENT_KEY                    = "BACKGROUND_INJECTION_ENABLED"
	DEFAULT_BACKGROUND_INJECTION_ENABLED                            = true
	BACKGROUND_SYS_CONFIG_PATH_ENVIRONMENT_KEY                      = "BACKGROUND_SYS_CONFIG_PATH"
	DEFAULT_BACKGROUND_SYS_CONFIG_PATH                              = "/api/manage/sysConfig/page"
	BACKGROUND_APP_ROOT_ID_ENVIRONMENT_KEY                          = "BACKGROUND_APP_ROOT_ID"
	DEFAULT_BACKGROUND_APP_ROOT_ID                                  = "app"
	ERROR_REPORTING_DSN_ENVIRONMENT_KEY                             = "ERROR_REPORTING_DSN"
	CACHE_ENABLED_ENVIRONMENT_KEY                                   = "CACHE_ENABLED"
	REDIS_ENDPOINT_URL_ENVIRONMENT_KEY                              = "REDIS_ENDPOINT_URL"
	REDIS_PASSWORD_ENVIRONMENT_KEY                                  = "REDIS_PASSWORD"
	CACHE_TTL_ENVIRONMENT_KEY                                       = "CACHE_TTL_SECONDS"
	DEFAULT_CACHE_TTL_SECONDS                                       = 60
	CACHE_PREFIX_ENVIRONMENT_KEY                                    = "CACHE_PREFIX"
	DEFAULT_CACHE_PREFIX                                            = "backdrop"
	METRIC_DATABASE_ENABLED_ENVIRONMENT_KEY                         = "METRIC_DATABASE_ENABLED"
	DATABASE_NAME_ENVIRONMENT_KEY                                   = "DATABASE_NAME"
	DATABASE_ENDPOINT_URL_ENVIRONMENT_KEY                           = "DATABASE_ENDPOINT_URL"
	DATABASE_USERNAME_ENVIRONMENT_KEY                               = "DATABASE_USERNAME"
	DATABASE_PASSWORD_ENVIRONMENT_KEY                               = "DATABASE_PASSWORD"
	DATABASE_SSL_ENABLED_ENVIRONMENT_KEY                            = "DATABASE_SSL_ENABLED"
	DATABASE_QUERY_LOGGING_ENABLED_ENVIRONMENT_KEY                  = "DATABASE_QUERY_LOGGING_ENABLED"
	RUN_DATABASE_MIGRATIONS_ENVIRONMENT_KEY                         = "RUN_DATABASE_MIGRATIONS"
	DATABASE_READ_TIMEOUT_SECONDS_ENVIRONMENT_KEY                   = "DATABASE_READ_TIMEOUT_SECONDS"
	DEFAULT_DATABASE_READ_TIMEOUT_SECONDS                           = 60
	DATABASE_MAX_IDLE_CONNECTIONS_ENVIRONMENT_KEY                   = "DATABASE_MAX_IDLE_CONNECTIONS"
	DEFAULT_DATABASE_MAX_IDLE_CONNECTIONS                           = 5
	DATABASE_CONNECTION_MAX_IDLE_SECONDS_ENVIRONMENT_KEY            = "DATABASE_CONNECTION_MAX_IDLE_SECONDS"
	DEFAULT_DATABASE_CONNECTION_MAX_IDLE_SECONDS                    = 5
	DATABASE_MAX_OPEN_CONNECTIONS_ENVIRONMENT_KEY                   = "DATABASE_MAX_OPEN_CONNECTIONS"
	DEFAULT_DATABASE_MAX_OPEN_CONNECTIONS                           = 20
	METRIC_PRUNING_ENABLED_ENVIRONMENT_KEY                          = "METRIC_PRUNING_ENABLED"
	DEFAULT_METRIC_PRUNING_ENABLED                                  = true
	METRIC_PRUNING_ROUTINE_INTERVAL_SECONDS_ENVIRONMENT_KEY         = "METRIC_PRUNING_ROUTINE_INTERVAL_SECONDS"
	DEFAULT_METRIC_PRUNING_ROUTINE_INTERVAL_SECONDS                 = 3600
	METRIC_PRUNING_ROUTINE_DELAY_FIRST_RUN_SECONDS_ENVIRONMENT_KEY  = "METRIC_PRUNING_ROUTINE_DELAY_FIRST_RUN_SECONDS"
	DEFAULT_METRIC_PRUNING_ROUTINE_DELAY_FIRST_RUN_SECONDS          = 10
	METRIC_PRUNING_MAX_REQUEST_METRICS_HISTORY_DAYS_ENVIRONMENT_KEY = "METRIC_PRUNING_MAX_REQUEST_METRICS_HISTORY_DAYS"
	DEFAULT_METRIC_PRUNING_MAX_REQUEST_METRICS_HISTORY_DAYS         = 45
	HTTP_READ_TIMEOUT_SECONDS_ENVIRONMENT_KEY                       = "HTTP_READ_TIMEOUT_SECONDS"
	DEFAULT_HTTP_READ_TIMEOUT_SECONDS                               = 30
	HTTP_WRITE_TIMEOUT_SECONDS_ENVIRONMENT_KEY                      = "HTTP_WRITE_TIMEOUT_SECONDS"
	DEFAULT_HTTP_WRITE_TIMEOUT_SECONDS                              = 60
)

// EnvOrDefault fetches an environment variable value, or if not set returns the fallback value
func EnvOrDefault(key string, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

// EnvOrDefaultBool fetches a boolean environment variable value, or if not set
// or not parseable as a bool returns the fallback value
func EnvOrDefaultBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		boolVal, err := strconv.ParseBool(val)
		if err != nil {
			return fallback
		}
		return boolVal
	}
	return fallback
}

// EnvOrDefaultInt fetches an int environment variable value, or if not set
// or not parseable as an int returns the fallback value
func EnvOrDefaultInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		intVal, err := strconv.Atoi(val)
		if err != nil {
			return fallback
		}
		return intVal
	}
	return fallback
}

// EnvOrDefaultInt64 fetches an int64 environment variable value, or if not set
// or not parseable as an int64 returns the fallback value
func EnvOrDefaultInt64(key string, fallback int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		intVal, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fallback
		}
		return intVal
	}
	return fallback
}

// ReadConfig attempts to parse service config from environment values
// the returned config may be invalid and should be validated via the `Validate`
// function of the Config package before use
func ReadConfig() Config {
	rawBackendURL := os.Getenv(PROXY_BACKEND_URL_ENVIRONMENT_KEY)
	// best effort, Validate reports a malformed value
	parsedBackendURL, _ := ParseProxyBackendURL(rawBackendURL)

	return Config{
		LogLevel:                          EnvOrDefault(LOG_LEVEL_ENVIRONMENT_KEY, DEFAULT_LOG_LEVEL),
		ProxyServicePort:                  EnvOrDefault(PROXY_SERVICE_PORT_ENVIRONMENT_KEY, DEFAULT_PROXY_SERVICE_PORT),
		ProxyBackendURLRaw:                rawBackendURL,
		ProxyBackendURLParsed:             parsedBackendURL,
		BackgroundInjectionEnabled:        EnvOrDefaultBool(BACKGROUND_INJECTION_ENABLED_ENVIRONMENT_KEY, DEFAULT_BACKGROUND_INJECTION_ENABLED),
		BackgroundSysConfigPath:           EnvOrDefault(BACKGROUND_SYS_CONFIG_PATH_ENVIRONMENT_KEY, DEFAULT_BACKGROUND_SYS_CONFIG_PATH),
		BackgroundAppRootID:               EnvOrDefault(BACKGROUND_APP_ROOT_ID_ENVIRONMENT_KEY, DEFAULT_BACKGROUND_APP_ROOT_ID),
		ErrorReportingDSN:                 os.Getenv(ERROR_REPORTING_DSN_ENVIRONMENT_KEY),
		CacheEnabled:                      EnvOrDefaultBool(CACHE_ENABLED_ENVIRONMENT_KEY, false),
		RedisEndpointURL:                  os.Getenv(REDIS_ENDPOINT_URL_ENVIRONMENT_KEY),
		RedisPassword:                     os.Getenv(REDIS_PASSWORD_ENVIRONMENT_KEY),
		CacheTTL:                          time.Duration(EnvOrDefaultInt(CACHE_TTL_ENVIRONMENT_KEY, DEFAULT_CACHE_TTL_SECONDS)) * time.Second,
		CachePrefix:                       EnvOrDefault(CACHE_PREFIX_ENVIRONMENT_KEY, DEFAULT_CACHE_PREFIX),
		MetricDatabaseEnabled:             EnvOrDefaultBool(METRIC_DATABASE_ENABLED_ENVIRONMENT_KEY, false),
		DatabaseName:                      os.Getenv(DATABASE_NAME_ENVIRONMENT_KEY),
		DatabaseEndpointURL:               os.Getenv(DATABASE_ENDPOINT_URL_ENVIRONMENT_KEY),
		DatabaseUserName:                  os.Getenv(DATABASE_USERNAME_ENVIRONMENT_KEY),
		DatabasePassword:                  os.Getenv(DATABASE_PASSWORD_ENVIRONMENT_KEY),
		DatabaseSSLEnabled:                EnvOrDefaultBool(DATABASE_SSL_ENABLED_ENVIRONMENT_KEY, false),
		DatabaseQueryLoggingEnabled:       EnvOrDefaultBool(DATABASE_QUERY_LOGGING_ENABLED_ENVIRONMENT_KEY, false),
		RunDatabaseMigrations:             EnvOrDefaultBool(RUN_DATABASE_MIGRATIONS_ENVIRONMENT_KEY, false),
		DatabaseReadTimeoutSeconds:        EnvOrDefaultInt64(DATABASE_READ_TIMEOUT_SECONDS_ENVIRONMENT_KEY, DEFAULT_DATABASE_READ_TIMEOUT_SECONDS),
		DatabaseMaxIdleConnections:        EnvOrDefaultInt64(DATABASE_MAX_IDLE_CONNECTIONS_ENVIRONMENT_KEY, DEFAULT_DATABASE_MAX_IDLE_CONNECTIONS),
		DatabaseConnectionMaxIdleSeconds:  EnvOrDefaultInt64(DATABASE_CONNECTION_MAX_IDLE_SECONDS_ENVIRONMENT_KEY, DEFAULT_DATABASE_CONNECTION_MAX_IDLE_SECONDS),
		DatabaseMaxOpenConnections:        EnvOrDefaultInt64(DATABASE_MAX_OPEN_CONNECTIONS_ENVIRONMENT_KEY, DEFAULT_DATABASE_MAX_OPEN_CONNECTIONS),
		MetricPruningEnabled:              EnvOrDefaultBool(METRIC_PRUNING_ENABLED_ENVIRONMENT_KEY, DEFAULT_METRIC_PRUNING_ENABLED),
		MetricPruningRoutineInterval:      time.Duration(EnvOrDefaultInt(METRIC_PRUNING_ROUTINE_INTERVAL_SECONDS_ENVIRONMENT_KEY, DEFAULT_METRIC_PRUNING_ROUTINE_INTERVAL_SECONDS)) * time.Second,
		MetricPruningRoutineDelayFirstRun: time.Duration(EnvOrDefaultInt(METRIC_PRUNING_ROUTINE_DELAY_FIRST_RUN_SECONDS_ENVIRONMENT_KEY, DEFAULT_METRIC_PRUNING_ROUTINE_DELAY_FIRST_RUN_SECONDS)) * time.Second,
		MetricPruningMaxHistoryDays:       EnvOrDefaultInt(METRIC_PRUNING_MAX_REQUEST_METRICS_HISTORY_DAYS_ENVIRONMENT_KEY, DEFAULT_METRIC_PRUNING_MAX_REQUEST_METRICS_HISTORY_DAYS),
		HTTPReadTimeout:                   time.Duration(EnvOrDefaultInt(HTTP_READ_TIMEOUT_SECONDS_ENVIRONMENT_KEY, DEFAULT_HTTP_READ_TIMEOUT_SECONDS)) * time.Second,
		HTTPWriteTimeout:                  time.Duration(EnvOrDefaultInt(HTTP_WRITE_TIMEOUT_SECONDS_ENVIRONMENT_KEY, DEFAULT_HTTP_WRITE_TIMEOUT_SECONDS)) * time.Second,
	}
}
