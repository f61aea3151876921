// Package ocr extracts text from scanned registry pages by running two
// independent OCR engines and reconciling their output into one
// trusted text with a confidence tier.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hyeonwoo-dev/jipcheck/internal/retry"
	"github.com/hyeonwoo-dev/jipcheck/internal/worker"
)

// PageRequest is one page submitted to an engine.
type PageRequest struct {
	CaseID      string
	Page        int
	ContentType string
	Payload     []byte
}

// Engine extracts text from a single page. Implementations are called
// once per page per engine.
type Engine interface {
	Name() string
	ExtractPage(ctx context.Context, req PageRequest) (string, error)
}

// HTTPEngine calls a remote OCR service over HTTP. Requests are rate
// limited per engine name and retried on transient failures.
type HTTPEngine struct {
	name       string
	endpoint   string
	apiKey     string
	httpClient *http.Client
	limiter    *worker.Limiter
	policy     *retry.Policy
}

// NewHTTPEngine creates an engine client for the service at endpoint.
func NewHTTPEngine(name, endpoint string, timeout time.Duration, limiter *worker.Limiter, policy *retry.Policy) *HTTPEngine {
	return &HTTPEngine{
		name:     name,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
		policy:  policy,
	}
}

// SetAPIKey attaches a bearer token to every request.
func (e *HTTPEngine) SetAPIKey(key string) {
	e.apiKey = key
}

// SetProxy routes engine requests through the given proxy selector.
func (e *HTTPEngine) SetProxy(proxy func(*http.Request) (*url.URL, error)) {
	e.httpClient.Transport = &http.Transport{Proxy: proxy}
}

// Name returns the engine name used in consensus results.
func (e *HTTPEngine) Name() string {
	return e.name
}

type extractRequest struct {
	CaseID      string `json:"case_id"`
	Page        int    `json:"page"`
	ContentType string `json:"content_type"`
	Payload     string `json:"payload"`
}

type extractResponse struct {
	Text string `json:"text"`
}

// ExtractPage submits one page and returns the recognized text.
func (e *HTTPEngine) ExtractPage(ctx context.Context, req PageRequest) (string, error) {
	body, err := json.Marshal(extractRequest{
		CaseID:      req.CaseID,
		Page:        req.Page,
		ContentType: req.ContentType,
		Payload:     base64.StdEncoding.EncodeToString(req.Payload),
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var text string
	err = e.policy.Do(ctx, "ocr."+e.name, func(ctx context.Context) error {
		if err := e.limiter.Wait(ctx, "ocr."+e.name); err != nil {
			return err
		}
		got, err := e.extractOnce(ctx, body)
		if err != nil {
			return err
		}
		text = got
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

func (e *HTTPEngine) extractOnce(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/extract", bytes.NewReader(body))
	if err != nil {
		return "", retry.Stop(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		// Parsed below.
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("ocr service %s: status %d", e.name, resp.StatusCode)
	default:
		// Client errors will not heal on retry.
		return "", retry.Stop(fmt.Errorf("ocr service %s: status %d", e.name, resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parsed extractResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", retry.Stop(fmt.Errorf("decode response: %w", err))
	}
	return parsed.Text, nil
}
