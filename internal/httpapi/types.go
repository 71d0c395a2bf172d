// Package httpapi provides the HTTP JSON API for running backtests. The
// request and response types here are also the payloads of the gRPC
// service and the Go client.
package httpapi

import (
	"fmt"
	"time"

	"tradelab/internal/domain"
	"tradelab/internal/engine"
	"tradelab/internal/strategy"
)

const dateLayout = "2006-01-02"

// StrategySpec is a strategy in a request. Active defaults to true when
// omitted; an empty parameters object takes the family preset.
type StrategySpec struct {
	domain.Strategy
	Active *bool `json:"active,omitempty"`
}

// BacktestRequest is the body of POST /api/v1/backtests.
type BacktestRequest struct {
	Capital    float64        `json:"capital"`
	Strategies []StrategySpec `json:"strategies"`
	StartDate  string         `json:"startDate"` // YYYY-MM-DD
	EndDate    string         `json:"endDate"`   // YYYY-MM-DD
	Mode       domain.Mode    `json:"mode,omitempty"`
}

// EngineRequest converts r into an engine request. Date errors wrap
// engine.ErrInvalidRequest; everything else is validated by the engine.
func (r BacktestRequest) EngineRequest() (engine.Request, error) {
	start, err := time.Parse(dateLayout, r.StartDate)
	if err != nil {
		return engine.Request{}, fmt.Errorf("%w: startDate %q: expected YYYY-MM-DD", engine.ErrInvalidRequest, r.StartDate)
	}
	end, err := time.Parse(dateLayout, r.EndDate)
	if err != nil {
		return engine.Request{}, fmt.Errorf("%w: endDate %q: expected YYYY-MM-DD", engine.ErrInvalidRequest, r.EndDate)
	}

	strategies := make([]domain.Strategy, 0, len(r.Strategies))
	for i, in := range r.Strategies {
		s := in.Strategy
		s.Active = in.Active == nil || *in.Active
		strategies = append(strategies, strategy.WithDefaults(s, i))
	}
	return engine.Request{
		Capital:    r.Capital,
		Strategies: strategies,
		Start:      start,
		End:        end,
		Mode:       r.Mode,
	}, nil
}

// BacktestResponse is returned by POST /api/v1/backtests.
type BacktestResponse struct {
	RequestID string                  `json:"requestId"`
	Results   []domain.BacktestResult `json:"results"`
}

// StrategyTypeInfo describes one strategy family and its preset.
type StrategyTypeInfo struct {
	Type     domain.StrategyType       `json:"type"`
	Defaults domain.StrategyParameters `json:"defaults"`
}

// StrategyTypesResponse is returned by GET /api/v1/strategy-types.
type StrategyTypesResponse struct {
	Types []StrategyTypeInfo `json:"types"`
}

// StrategyTypes lists every strategy family with its preset parameters.
func StrategyTypes() StrategyTypesResponse {
	all := domain.AllStrategyTypes()
	resp := StrategyTypesResponse{Types: make([]StrategyTypeInfo, 0, len(all))}
	for _, t := range all {
		resp.Types = append(resp.Types, StrategyTypeInfo{Type: t, Defaults: strategy.DefaultParameters(t)})
	}
	return resp
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
