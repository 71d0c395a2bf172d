package strategy

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tradelab/internal/domain"
	"tradelab/internal/engine"
)

const dateLayout = "2006-01-02"

// Job is a backtest described in a YAML file:
//
//	capital: 100000
//	start: 2024-01-08
//	end: 2024-03-29
//	mode: single
//	strategies:
//	  - id: scalp
//	    type: microscalping
//	    tickers: [AAPL, MSFT]
//
// Strategies are active unless they say "active: false". A strategy without
// a parameters block gets its family preset.
type Job struct {
	Capital    float64
	Start      time.Time
	End        time.Time
	Mode       domain.Mode
	Strategies []domain.Strategy

	registry *Registry
}

type jobFile struct {
	Capital    float64     `yaml:"capital"`
	Start      string      `yaml:"start"`
	End        string      `yaml:"end"`
	Mode       string      `yaml:"mode"`
	Strategies []yaml.Node `yaml:"strategies"`
}

// LoadJob reads and parses the job file at path.
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	job, err := ParseJob(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return job, nil
}

// ParseJob parses a YAML job document.
func ParseJob(data []byte) (*Job, error) {
	var f jobFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing job: %w", err)
	}

	job := &Job{Capital: f.Capital, Mode: domain.Mode(f.Mode), registry: NewRegistry()}
	var err error
	if job.Start, err = time.Parse(dateLayout, f.Start); err != nil {
		return nil, fmt.Errorf("parsing start date: %w", err)
	}
	if job.End, err = time.Parse(dateLayout, f.End); err != nil {
		return nil, fmt.Errorf("parsing end date: %w", err)
	}

	for i := range f.Strategies {
		node := &f.Strategies[i]
		var s domain.Strategy
		if err := node.Decode(&s); err != nil {
			return nil, fmt.Errorf("strategy %d: %w", i+1, err)
		}
		if !hasKey(node, "active") {
			s.Active = true
		}
		s = WithDefaults(s, i)
		if err := job.registry.Register(s); err != nil {
			return nil, err
		}
		job.Strategies = append(job.Strategies, s)
	}
	return job, nil
}

// Select returns a copy of the job running only the strategies with the
// given IDs, in that order.
func (j *Job) Select(ids ...string) (*Job, error) {
	if j.registry == nil {
		j.registry = NewRegistry()
		for _, s := range j.Strategies {
			if err := j.registry.Register(s); err != nil {
				return nil, err
			}
		}
	}
	out := *j
	out.Strategies = make([]domain.Strategy, 0, len(ids))
	for _, id := range ids {
		s, ok := j.registry.Get(strings.TrimSpace(id))
		if !ok {
			return nil, fmt.Errorf("unknown strategy %q (job has %s)", id, strings.Join(j.registry.List(), ", "))
		}
		out.Strategies = append(out.Strategies, s)
	}
	return &out, nil
}

// Request converts the job into an engine request.
func (j *Job) Request() engine.Request {
	return engine.Request{
		Capital:    j.Capital,
		Strategies: j.Strategies,
		Start:      j.Start,
		End:        j.End,
		Mode:       j.Mode,
	}
}

// hasKey reports whether the mapping node n sets key.
func hasKey(n *yaml.Node, key string) bool {
	if n.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return true
		}
	}
	return false
}
