// Package summarizer provides the report and briefing generators: an HTTP
// client for an external summarization service and an offline Local
// generator built from dashboard aggregates.
package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"lumen/internal/domain"
	"lumen/internal/ports"
	"lumen/internal/report"
)

const maxResponseBytes = 4 << 20

// StatusError is a non-2xx answer from the summarization service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("summarizer returned status %d: %s", e.Code, e.Body)
}

func (e *StatusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

type HTTP struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retries    uint64
	backoff    time.Duration
}

type Option func(*HTTP)

func WithHTTPClient(c *http.Client) Option { return func(h *HTTP) { h.httpClient = c } }

// WithRetries sets how many times transient failures (429, 5xx, transport
// errors) are retried. The caller's deadline still bounds the total.
func WithRetries(n uint64, base time.Duration) Option {
	return func(h *HTTP) {
		h.retries = n
		h.backoff = base
	}
}

func NewHTTP(baseURL, apiKey string, opts ...Option) *HTTP {
	h := &HTTP{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
		retries:    2,
		backoff:    200 * time.Millisecond,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

type reportRequest struct {
	Query   string              `json:"query"`
	Context ports.ReportContext `json:"context"`
}

type briefingRequest struct {
	Now domain.DashboardNow `json:"now"`
}

type briefingResponse struct {
	Text string `json:"text"`
}

func (h *HTTP) GenerateReport(ctx context.Context, query string, rc ports.ReportContext) (report.Spec, error) {
	var spec report.Spec
	if err := h.post(ctx, "/v1/reports", reportRequest{Query: query, Context: rc}, &spec); err != nil {
		return report.Spec{}, err
	}
	return spec, nil
}

func (h *HTTP) Briefing(ctx context.Context, now domain.DashboardNow) (string, error) {
	var out briefingResponse
	if err := h.post(ctx, "/v1/briefing", briefingRequest{Now: now}, &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Text), nil
}

func (h *HTTP) post(ctx context.Context, path string, in, out any) error {
	reqBody, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	b := retry.WithMaxRetries(h.retries, retry.NewExponential(h.backoff))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		body, err := h.do(ctx, path, reqBody)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
		return nil
	})
}

func (h *HTTP) do(ctx context.Context, path string, reqBody []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, retry.RetryableError(fmt.Errorf("summarizer request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		serr := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		if serr.retryable() {
			return nil, retry.RetryableError(serr)
		}
		return nil, serr
	}
	return body, nil
}
