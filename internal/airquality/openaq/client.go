package openaq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/i474232898/air-quality-monitor/internal/airquality"
	"github.com/i474232898/air-quality-monitor/internal/metrics"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public OpenAQ API.
const DefaultBaseURL = "https://api.openaq.org"

const (
	endpointLocations    = "locations"
	endpointMeasurements = "measurements"

	maxBodyBytes    = 16 << 20
	maxErrorBodyLen = 500
)

var (
	errRateLimited  = errors.New("rate limited")
	errServerError  = errors.New("server error")
	errUnexpected   = errors.New("unexpected status code")
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

// Config bundles the client's connection settings.
type Config struct {
	BaseURL string
	APIKey  string

	// Timeout bounds every single request.
	Timeout time.Duration

	// RequestsPerSecond spaces sequential requests. Zero disables spacing.
	RequestsPerSecond float64

	HTTPClient *http.Client
}

// StatusError is returned for any non-200 response.
type StatusError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("openaq returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("openaq returned %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return errRateLimited
	case e.StatusCode >= 500:
		return errServerError
	default:
		return errUnexpected
	}
}

// Client talks to the OpenAQ v3 API.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
	circuit *gobreaker.CircuitBreaker
}

// NewClient creates a Client. The API key is sent as given; validating it is
// the caller's job.
func NewClient(cfg Config) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openaq",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		timeout: timeout,
		http:    client,
		limiter: rate.NewLimiter(limit, 1),
		circuit: cb,
	}
}

// APIKey returns the credential the client sends.
func (c *Client) APIKey() string {
	return c.apiKey
}

// Locations lists monitoring sites.
func (c *Client) Locations(ctx context.Context, params url.Values) ([]airquality.Site, error) {
	body, err := c.get(ctx, endpointLocations, params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Results []struct {
			ID       int64  `json:"id"`
			Name     string `json:"name"`
			Locality string `json:"locality"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode locations: %w", err)
	}

	sites := make([]airquality.Site, 0, len(payload.Results))
	for _, r := range payload.Results {
		sites = append(sites, airquality.Site{ID: r.ID, Name: r.Name, Locality: r.Locality})
	}
	return sites, nil
}

// Measurements returns raw measurement records.
func (c *Client) Measurements(ctx context.Context, params url.Values) ([]airquality.RawMeasurement, error) {
	body, err := c.get(ctx, endpointMeasurements, params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Results []airquality.RawMeasurement `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode measurements: %w", err)
	}
	return payload.Results, nil
}

// get issues one request through the limiter and the circuit breaker and
// returns the body of a 200 response.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if c.http == nil {
		return nil, errNoHTTPClient
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait canceled: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := fmt.Sprintf("%s/v3/%s", c.baseURL, endpoint)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	start := time.Now()
	status := 0
	result, err := c.circuit.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-API-Key", c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		status = resp.StatusCode

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, err
		}

		// Only throttling and server failures count against the breaker.
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, newStatusError(resp.StatusCode, body)
		}
		return body, nil
	})
	metrics.RecordUpstreamRequest(endpoint, status, time.Since(start))

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, err
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	if status != http.StatusOK {
		return nil, newStatusError(status, body)
	}
	return body, nil
}

func newStatusError(status int, body []byte) *StatusError {
	return &StatusError{
		StatusCode: status,
		Message:    upstreamMessage(body),
		Body:       airquality.Truncate(strings.TrimSpace(string(body)), maxErrorBodyLen),
	}
}

// upstreamMessage pulls the diagnostic out of an error body. Validation
// errors come back as {"detail": [{"msg": ...}]}.
func upstreamMessage(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	if len(payload.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(payload.Detail, &detail); err == nil && detail != "" {
			return detail
		}
		var items []struct {
			Msg string `json:"msg"`
			Loc []any  `json:"loc"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg == "" {
					continue
				}
				if len(it.Loc) > 0 {
					msgs = append(msgs, fmt.Sprintf("%v: %s", it.Loc[len(it.Loc)-1], it.Msg))
				} else {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
