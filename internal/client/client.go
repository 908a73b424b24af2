// Package client is the console's view of the lumen REST API. Error
// responses come back as *APIError values that match the package sentinels
// with errors.Is.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lumen/internal/domain"
	"lumen/internal/report"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnavailable is the dashboard aggregation-unavailable condition.
	ErrUnavailable = errors.New("dashboard unavailable")
	// ErrNoMatch means the generator found nothing renderable for a query.
	ErrNoMatch           = errors.New("no matching report")
	ErrGenerative        = errors.New("report generation failed")
	ErrGenerativeTimeout = fmt.Errorf("%w: timed out", ErrGenerative)
)

// APIError is a non-2xx response.
type APIError struct {
	Status    int    `json:"-"`
	Code      string `json:"error"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.Status, e.Code)
	}
	return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrInvalidInput:
		return e.Status == http.StatusBadRequest
	case ErrUnavailable:
		return e.Status == http.StatusServiceUnavailable
	case ErrNoMatch:
		return e.Status == http.StatusUnprocessableEntity
	case ErrGenerative:
		return e.Status == http.StatusBadGateway || e.Status == http.StatusGatewayTimeout
	case ErrGenerativeTimeout, context.DeadlineExceeded:
		return e.Status == http.StatusGatewayTimeout
	}
	return false
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.httpClient = h } }

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, apiErr) != nil || apiErr.Code == "" {
			apiErr.Code = http.StatusText(resp.StatusCode)
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func anchor(at time.Time) url.Values {
	if at.IsZero() {
		return nil
	}
	return url.Values{"at": {at.Format(time.RFC3339)}}
}

func (c *Client) Now(ctx context.Context, at time.Time) (domain.DashboardNow, error) {
	var out domain.DashboardNow
	err := c.do(ctx, http.MethodGet, "/dashboard/now", anchor(at), nil, &out)
	return out, err
}

func (c *Client) Horizon(ctx context.Context, at time.Time) (domain.DashboardHorizon, error) {
	var out domain.DashboardHorizon
	err := c.do(ctx, http.MethodGet, "/dashboard/horizon", anchor(at), nil, &out)
	return out, err
}

func (c *Client) Landscape(ctx context.Context, at time.Time) (domain.DashboardLandscape, error) {
	var out domain.DashboardLandscape
	err := c.do(ctx, http.MethodGet, "/dashboard/landscape", anchor(at), nil, &out)
	return out, err
}

// Generate asks the server for a report synchronously.
func (c *Client) Generate(ctx context.Context, query string) (report.Spec, error) {
	var out report.Spec
	err := c.do(ctx, http.MethodPost, "/reports/generate", nil, map[string]string{"query": query}, &out)
	return out, err
}

func (c *Client) GetReport(ctx context.Context, id string) (report.Spec, error) {
	var out report.Spec
	err := c.do(ctx, http.MethodGet, "/reports/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}
