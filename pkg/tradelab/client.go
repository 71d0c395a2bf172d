// Package tradelab is a Go client for the tradelab-server HTTP API.
package tradelab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tradelab/internal/domain"
	"tradelab/internal/httpapi"
)

// Payload types shared with the server.
type (
	BacktestRequest       = httpapi.BacktestRequest
	BacktestResponse      = httpapi.BacktestResponse
	StrategySpec          = httpapi.StrategySpec
	StrategyTypeInfo      = httpapi.StrategyTypeInfo
	Strategy              = domain.Strategy
	StrategyType          = domain.StrategyType
	StrategyParameters    = domain.StrategyParameters
	BacktestResult        = domain.BacktestResult
	PerformanceMetrics    = domain.PerformanceMetrics
	strategyTypesResponse = httpapi.StrategyTypesResponse
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tradelab: %d %s", e.StatusCode, e.Message)
}

// Client provides a Go SDK for interacting with the tradelab-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new tradelab API client. Backtests can take a while,
// so the default timeout is generous.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// RunBacktest submits req and returns the results.
func (c *Client) RunBacktest(ctx context.Context, req BacktestRequest) (*BacktestResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	var resp BacktestResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/backtests", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StrategyTypes lists the strategy families and their preset parameters.
func (c *Client) StrategyTypes(ctx context.Context) ([]StrategyTypeInfo, error) {
	var resp strategyTypesResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/strategy-types", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Types, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e httpapi.ErrorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(data))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error, RequestID: resp.Header.Get(httpapi.RequestIDHeader)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
