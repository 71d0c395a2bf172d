package engine

import (
	"fmt"
	"log/slog"
)

// Phase is a step in the per-strategy backtest lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseFetchingData
	PhaseFallbackSynthesis
	PhaseSimulating
	PhaseAggregating
	PhaseDone
)

var phaseNames = [...]string{
	PhaseIdle:              "idle",
	PhaseFetchingData:      "fetching_data",
	PhaseFallbackSynthesis: "fallback_synthesis",
	PhaseSimulating:        "simulating",
	PhaseAggregating:       "aggregating",
	PhaseDone:              "done",
}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// transitions lists the phases reachable from each phase. An inactive
// strategy skips straight from idle to aggregating.
var transitions = map[Phase][]Phase{
	PhaseIdle:              {PhaseFetchingData, PhaseAggregating},
	PhaseFetchingData:      {PhaseSimulating, PhaseFallbackSynthesis},
	PhaseFallbackSynthesis: {PhaseSimulating},
	PhaseSimulating:        {PhaseAggregating},
	PhaseAggregating:       {PhaseDone},
}

// CanTransition reports whether the lifecycle allows moving from one phase
// to another.
func CanTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// lifecycle tracks one strategy's phase.
type lifecycle struct {
	phase Phase
	log   *slog.Logger
}

func newLifecycle(log *slog.Logger) *lifecycle {
	return &lifecycle{phase: PhaseIdle, log: log}
}

// advance moves to the next phase. An illegal move is logged and ignored.
func (l *lifecycle) advance(to Phase) {
	if !CanTransition(l.phase, to) {
		l.log.Error("illegal phase transition", "from", l.phase.String(), "to", to.String())
		return
	}
	l.log.Debug("phase", "from", l.phase.String(), "to", to.String())
	l.phase = to
}
