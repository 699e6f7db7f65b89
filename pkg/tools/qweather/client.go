// Package qweather is a client for the QWeather (和风天气) REST API and the
// weather tools built on it.
package qweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tagus/weather-supervisor/pkg/logging"
	"github.com/tagus/weather-supervisor/pkg/retry"
)

const (
	cityLookupPath     = "/geo/v2/city/lookup"
	weatherWarningPath = "/v7/warning/now"
	dailyForecastPath  = "/v7/weather/%s"

	successCode = "200"

	// DefaultForecastDays is used when no positive day count is given
	DefaultForecastDays = 3
)

// forecastVersions maps supported day counts to the endpoint version
var forecastVersions = map[int]string{
	3:  "3d",
	7:  "7d",
	10: "10d",
	15: "15d",
	30: "30d",
}

// ErrMissingConfig is returned when the API key or base URL is empty
var ErrMissingConfig = errors.New("weather API configuration error")

// ErrCityNotFound is returned when a lookup succeeds but matches no city
var ErrCityNotFound = errors.New("city not found")

// APIError is returned when QWeather answers with a code other than "200"
type APIError struct {
	Op   string
	Code string
	Body string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("failed to %s: code %s: %s", e.Op, e.Code, e.Body)
}

// Service is the weather lookup surface used by tools and the MCP server
type Service interface {
	WeatherWarning(ctx context.Context, city string) (string, error)
	DailyForecast(ctx context.Context, city string, days int) (string, error)
}

// Client talks to the QWeather API
type Client struct {
	apiKey        string
	baseURL       *url.URL
	httpClient    *http.Client
	retryOptions  []retry.Option
	retryExecutor *retry.Executor
	logger        logging.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRetry configures retries of failed HTTP round trips
func WithRetry(opts ...retry.Option) Option {
	return func(c *Client) {
		c.retryOptions = append(c.retryOptions, opts...)
	}
}

// NewClient creates a QWeather client. Both apiKey and baseURL are required.
func NewClient(apiKey, baseURL string, options ...Option) (*Client, error) {
	if apiKey == "" || baseURL == "" {
		return nil, ErrMissingConfig
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse weather base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: base URL %q must be absolute", ErrMissingConfig, baseURL)
	}

	c := &Client{
		apiKey:     apiKey,
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logging.NewNop(),
	}
	for _, option := range options {
		option(c)
	}
	if len(c.retryOptions) == 0 {
		c.retryOptions = []retry.Option{retry.WithMaximumAttempts(1)}
	}
	c.retryExecutor = retry.NewExecutor(retry.NewPolicy(c.retryOptions...), retry.WithLogger(c.logger))
	return c, nil
}

// LookupCity resolves a city name to its QWeather location id
func (c *Client) LookupCity(ctx context.Context, city string) (string, error) {
	var resp cityLookupResponse
	raw, err := c.get(ctx, cityLookupPath, url.Values{
		"location": {city},
		"key":      {c.apiKey},
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("failed to look up city %s: %w", city, err)
	}
	if resp.Code != successCode {
		return "", &APIError{Op: "look up city id", Code: resp.Code, Body: raw}
	}
	if len(resp.Location) == 0 {
		return "", fmt.Errorf("%w: %s", ErrCityNotFound, city)
	}

	c.logger.Debug(ctx, "Resolved city", map[string]interface{}{
		"city":        city,
		"location_id": resp.Location[0].ID,
	})
	return resp.Location[0].ID, nil
}

// WeatherWarning returns the active weather warnings for a city
func (c *Client) WeatherWarning(ctx context.Context, city string) (string, error) {
	locationID, err := c.LookupCity(ctx, city)
	if err != nil {
		return "", err
	}

	var resp warningResponse
	raw, err := c.get(ctx, weatherWarningPath, url.Values{
		"location": {locationID},
		"key":      {c.apiKey},
		"lang":     {"zh"},
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("failed to get weather warning: %w", err)
	}
	if resp.Code != successCode {
		return "", &APIError{Op: "get weather warning", Code: resp.Code, Body: raw}
	}

	return FormatWarnings(resp.Warning), nil
}

// DailyForecast returns the forecast for the next days for a city. Day counts
// without a dedicated endpoint use the 3 day endpoint.
func (c *Client) DailyForecast(ctx context.Context, city string, days int) (string, error) {
	if days <= 0 {
		days = DefaultForecastDays
	}

	locationID, err := c.LookupCity(ctx, city)
	if err != nil {
		return "", err
	}

	var resp dailyResponse
	raw, err := c.get(ctx, fmt.Sprintf(dailyForecastPath, ForecastVersion(days)), url.Values{
		"location": {locationID},
		"key":      {c.apiKey},
		"lang":     {"zh"},
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("failed to get daily forecast: %w", err)
	}
	if resp.Code != successCode {
		return "", &APIError{Op: "get daily forecast", Code: resp.Code, Body: raw}
	}

	daily := resp.Daily
	if len(daily) > days {
		daily = daily[:days]
	}
	return FormatForecast(daily), nil
}

// ForecastVersion returns the endpoint version serving a day count
func ForecastVersion(days int) string {
	if version, ok := forecastVersions[days]; ok {
		return version
	}
	return forecastVersions[DefaultForecastDays]
}

// endpoint resolves an absolute API path against the base URL
func (c *Client) endpoint(path string, params url.Values) string {
	u := c.baseURL.ResolveReference(&url.URL{Path: path})
	u.RawQuery = params.Encode()
	return u.String()
}

// get performs a GET request and decodes the JSON body into out. It returns
// the raw body so callers can report API failures verbatim.
func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) (string, error) {
	endpoint := c.endpoint(path, params)
	var body []byte

	err := c.retryExecutor.Execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return retry.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to send request: %w", err)
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("server error: status %d", resp.StatusCode)
		}
		if err := json.Unmarshal(body, out); err != nil {
			return retry.Permanent(fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err))
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return string(body), nil
}
