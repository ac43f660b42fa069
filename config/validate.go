package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

var (
	ValidLogLevels = [4]string{"TRACE", "DEBUG", "INFO", "ERROR"}

	ErrEmptyBackendURL = errors.New("backend url must not be empty")
)

// ParseProxyBackendURL parses the url of the origin all requests are proxied to,
// returning an error if it is not an absolute http(s) url
func ParseProxyBackendURL(raw string) (url.URL, error) {
	if raw == "" {
		return url.URL{}, ErrEmptyBackendURL
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return url.URL{}, fmt.Errorf("unable to parse backend url %s: %w", raw, err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return url.URL{}, fmt.Errorf("backend url %s must use http or https scheme", raw)
	}

	if parsed.Host == "" {
		return url.URL{}, fmt.Errorf("backend url %s is missing a host", raw)
	}

	return *parsed, nil
}

// Validate validates the provided config
// returning a list of errors that can be unwrapped with `errors.Unwrap`
// or nil if the config is valid
func Validate(config Config) error {
	var validLogLevel bool
	var allErrs error

	for _, validLevel := range ValidLogLevels {
		if config.LogLevel == validLevel {
			validLogLevel = true
			break
		}
	}

	if !validLogLevel {
		allErrs = fmt.Errorf("invalid %s specified %s, supported values are %v", LOG_LEVEL_ENVIRONMENT_KEY, config.LogLevel, ValidLogLevels)
	}

	_, err := ParseProxyBackendURL(config.ProxyBackendURLRaw)

	if err != nil {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s: %w", PROXY_BACKEND_URL_ENVIRONMENT_KEY, config.ProxyBackendURLRaw, err))
	}

	_, err = strconv.Atoi(config.ProxyServicePort)

	if err != nil {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s", PROXY_SERVICE_PORT_ENVIRONMENT_KEY, config.ProxyServicePort))
	}

	if !strings.HasPrefix(config.BackgroundSysConfigPath, "/") {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, must start with /", BACKGROUND_SYS_CONFIG_PATH_ENVIRONMENT_KEY, config.BackgroundSysConfigPath))
	}

	if config.BackgroundAppRootID == "" {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, must not be empty", BACKGROUND_APP_ROOT_ID_ENVIRONMENT_KEY, config.BackgroundAppRootID))
	}

	if config.CacheEnabled {
		if config.RedisEndpointURL == "" {
			allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, must not be empty", REDIS_ENDPOINT_URL_ENVIRONMENT_KEY, config.RedisEndpointURL))
		}
		if config.CacheTTL <= 0 {
			allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, must be greater than zero", CACHE_TTL_ENVIRONMENT_KEY, config.CacheTTL))
		}
		if strings.Contains(config.CachePrefix, ":") {
			allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, must not contain colon symbol", CACHE_PREFIX_ENVIRONMENT_KEY, config.CachePrefix))
		}
		if config.CachePrefix == "" {
			allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, must not be empty", CACHE_PREFIX_ENVIRONMENT_KEY, config.CachePrefix))
		}
	}

	if config.MetricPruningMaxHistoryDays < 1 {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %d, must be greater than zero", METRIC_PRUNING_MAX_REQUEST_METRICS_HISTORY_DAYS_ENVIRONMENT_KEY, config.MetricPruningMaxHistoryDays))
	}

	return allErrs
}
