package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jwulff/bolt/internal/domain"
)

// DefaultBaseURL is where the inference backend listens by default.
const DefaultBaseURL = "http://127.0.0.1:5000"

// ErrUnhealthy is returned when the health check answers with a non-2xx status.
var ErrUnhealthy = errors.New("backend not healthy")

// StatusError reports a non-2xx response from an endpoint.
type StatusError struct {
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Path, e.StatusCode)
}

// Client talks to the inference backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for baseURL. A zero timeout disables the
// per-request deadline; callers still bound requests with their context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the backend root URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Health performs GET / and treats any 2xx answer as healthy.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.get(ctx, healthPath)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// Start asks the backend to begin capture for mode.
func (c *Client) Start(ctx context.Context, mode domain.Mode) (StartResponse, error) {
	resp, err := c.get(ctx, mode.StartPath)
	if err != nil {
		return StartResponse{}, fmt.Errorf("start %s: %w", mode.Type, err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return StartResponse{}, &StatusError{Path: mode.StartPath, StatusCode: resp.StatusCode}
	}

	var body StartResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return StartResponse{}, fmt.Errorf("decode start response: %w", err)
	}
	return body, nil
}

// Stop asks the backend to end capture for mode. The body is ignored.
func (c *Client) Stop(ctx context.Context, mode domain.Mode) error {
	resp, err := c.get(ctx, mode.StopPath)
	if err != nil {
		return fmt.Errorf("stop %s: %w", mode.Type, err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Path: mode.StopPath, StatusCode: resp.StatusCode}
	}
	return nil
}

// LatestResult fetches the most recent recognition result.
func (c *Client) LatestResult(ctx context.Context) (Result, error) {
	resp, err := c.get(ctx, latestResultPath)
	if err != nil {
		return Result{}, fmt.Errorf("latest result: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, &StatusError{Path: latestResultPath, StatusCode: resp.StatusCode}
	}

	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return Result{}, fmt.Errorf("decode latest result: %w", err)
	}
	return res, nil
}

// FeedURL returns the MJPEG preview URL for mode.
func (c *Client) FeedURL(mode domain.Mode) string {
	return c.baseURL + mode.FeedPath
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
