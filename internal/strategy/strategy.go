// Package strategy loads strategy definitions from YAML job files and keeps
// them in a Registry keyed by ID.
package strategy

import (
	"fmt"
	"sort"
	"strings"

	"tradelab/internal/domain"
	"tradelab/internal/simulator"
)

// Registry holds strategies keyed by ID.
type Registry struct {
	strategies map[string]domain.Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]domain.Strategy),
	}
}

// Register adds s under its ID. An empty, duplicate or unknown-type
// strategy is rejected.
func (r *Registry) Register(s domain.Strategy) error {
	if s.ID == "" {
		return fmt.Errorf("strategy %q: empty id", s.Name)
	}
	if !s.Type.Valid() {
		return fmt.Errorf("strategy %s: unknown type %q", s.ID, s.Type)
	}
	if _, dup := r.strategies[s.ID]; dup {
		return fmt.Errorf("strategy %s: duplicate id", s.ID)
	}
	r.strategies[s.ID] = s
	return nil
}

// Get retrieves a strategy by ID. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(id string) (domain.Strategy, bool) {
	s, ok := r.strategies[id]
	return s, ok
}

// List returns a sorted slice of all registered strategy IDs.
func (r *Registry) List() []string {
	ids := make([]string, 0, len(r.strategies))
	for id := range r.strategies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered strategies.
func (r *Registry) Len() int { return len(r.strategies) }

// DefaultParameters returns the preset parameters for a strategy family.
func DefaultParameters(t domain.StrategyType) domain.StrategyParameters {
	return simulator.DefaultParameters(t)
}

// WithDefaults fills the identity fields of s and, when its parameter block
// is entirely empty, the family preset. idx is the strategy's position in
// its job and seeds a generated ID.
func WithDefaults(s domain.Strategy, idx int) domain.Strategy {
	s.Type = domain.StrategyType(strings.ToLower(strings.TrimSpace(string(s.Type))))
	if s.ID == "" {
		s.ID = fmt.Sprintf("%s-%d", s.Type, idx+1)
	}
	if s.Name == "" {
		s.Name = s.ID
	}
	if s.Parameters == (domain.StrategyParameters{}) {
		s.Parameters = DefaultParameters(s.Type)
	}
	return s
}
