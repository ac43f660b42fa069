package background

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/backdrop-labs/backdrop-proxy-service/clients/cache"
	"github.com/backdrop-labs/backdrop-proxy-service/logging"
)

const (
	// maxTextBodyBytes bounds how much of a text api response is searched
	maxTextBodyBytes = 1 << 20

	settingsCacheKeySuffix = "background:settings"
)

// RequestError provides additional details about a failed request
type RequestError struct {
	message    string
	URL        string
	StatusCode int
}

// Error implements the error interface for RequestError.
func (err *RequestError) Error() string {
	return err.message
}

// ClientConfig wraps values used to
// create a new background Client
type ClientConfig struct {
	OriginURL     url.URL
	SysConfigPath string
	HTTPClient    *http.Client
	// Cache is optional, settings are fetched on every call without it
	Cache       cache.Cache
	CacheTTL    time.Duration
	CachePrefix string
	// Now defaults to time.Now
	Now func() time.Time
}

// Client fetches the rotator settings from the origin
// and resolves image urls the way the rotator does
type Client struct {
	config ClientConfig
	*logging.ServiceLogger
}

// NewClient creates a new Client using the provided config
func NewClient(config ClientConfig, logger *logging.ServiceLogger) *Client {
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}

	if config.Now == nil {
		config.Now = time.Now
	}

	return &Client{
		config:        config,
		ServiceLogger: logger,
	}
}

func (c *Client) settingsCacheKey() string {
	if c.config.CachePrefix == "" {
		return settingsCacheKeySuffix
	}
	return c.config.CachePrefix + ":" + settingsCacheKeySuffix
}

// FetchSettings returns the rotator settings configured on the origin,
// ErrNoAPIURL if no api url is configured or a *RequestError
// if the config endpoint did not respond successfully
func (c *Client) FetchSettings(ctx context.Context) (Settings, error) {
	if c.config.Cache != nil {
		settings, err := c.cachedSettings(ctx)
		if err == nil {
			return settings, nil
		}
		if !errors.Is(err, cache.ErrNotFound) {
			c.Logger.Error().Err(err).Msg("error reading background settings from cache")
		}
	}

	page, err := c.fetchConfigPage(ctx)
	if err != nil {
		return Settings{}, err
	}

	settings, err := ParseSettings(page.Config)
	if err != nil {
		return Settings{}, err
	}

	if c.config.Cache != nil {
		encoded, err := json.Marshal(settings)
		if err == nil {
			err = c.config.Cache.Set(ctx, c.settingsCacheKey(), encoded, c.config.CacheTTL)
		}
		if err != nil {
			c.Logger.Error().Err(err).Msg("error caching background settings")
		}
	}

	return settings, nil
}

func (c *Client) cachedSettings(ctx context.Context) (Settings, error) {
	var settings Settings

	encoded, err := c.config.Cache.Get(ctx, c.settingsCacheKey())
	if err != nil {
		return settings, err
	}

	err = json.Unmarshal(encoded, &settings)

	return settings, err
}

func (c *Client) fetchConfigPage(ctx context.Context) (ConfigPage, error) {
	var page ConfigPage

	configURL := c.config.OriginURL.JoinPath(c.config.SysConfigPath)

	response, err := c.get(ctx, configURL.String())
	if err != nil {
		return page, err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return page, &RequestError{
			URL:        configURL.String(),
			StatusCode: response.StatusCode,
			message:    fmt.Sprintf("request to %s error server http error %d", configURL, response.StatusCode),
		}
	}

	if err := json.NewDecoder(response.Body).Decode(&page); err != nil {
		return page, &RequestError{
			URL:     configURL.String(),
			message: fmt.Sprintf("error decoding config page from %s: %s", configURL, err),
		}
	}

	return page, nil
}

// ResolveImage resolves the next image url for the settings,
// returning ErrNoImage when the api response holds no image
func (c *Client) ResolveImage(ctx context.Context, settings Settings) (string, error) {
	apiURL, err := c.absoluteURL(settings.ApiURL)
	if err != nil {
		return "", err
	}

	switch settings.ApiType {
	case ApiTypeJSON:
		response, err := c.get(ctx, apiURL)
		if err != nil {
			return "", err
		}
		defer response.Body.Close()

		var document any
		if err := json.NewDecoder(response.Body).Decode(&document); err != nil {
			return "", fmt.Errorf("error decoding image api response from %s: %w", apiURL, err)
		}

		imageURL, ok := ResolveJSONPath(document, settings.JsonPath)
		if !ok || imageURL == "" {
			return "", ErrNoImage
		}

		return imageURL, nil
	case ApiTypeText:
		response, err := c.get(ctx, apiURL)
		if err != nil {
			return "", err
		}
		defer response.Body.Close()

		body, err := io.ReadAll(io.LimitReader(response.Body, maxTextBodyBytes))
		if err != nil {
			return "", fmt.Errorf("error reading image api response from %s: %w", apiURL, err)
		}

		imageURL := ResolveText(string(body))
		if imageURL == "" {
			return "", ErrNoImage
		}

		return imageURL, nil
	default:
		return CacheBustedURL(settings.ApiURL, c.config.Now()), nil
	}
}

// absoluteURL resolves api urls relative to the origin the
// way the browser resolves them against the proxied page
func (c *Client) absoluteURL(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid image api url %s: %w", raw, err)
	}

	if parsed.IsAbs() || parsed.Host != "" {
		return c.config.OriginURL.ResolveReference(parsed).String(), nil
	}

	// origin base paths are prefixed by the proxy
	resolved := c.config.OriginURL.JoinPath(parsed.Path)
	resolved.RawQuery = parsed.RawQuery

	return resolved.String(), nil
}

func (c *Client) get(ctx context.Context, target string) (*http.Response, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &RequestError{URL: target, message: err.Error()}
	}

	c.Logger.Trace().Str("url", target).Msg("background client request")

	response, err := c.config.HTTPClient.Do(request)
	if err != nil {
		return nil, &RequestError{URL: target, message: err.Error()}
	}

	return response, nil
}
