package allocation

import (
	"elective-allocation/pkg/apperrors"
)

const (
	StrategyMultiRound = "multi_round"
	StrategyGreedy     = "greedy"
)

// Strategy turns students and subjects into assignments. Implementations
// must be deterministic for a given input order.
type Strategy interface {
	Name() string
	Allocate(students []Student, subjects []Subject) Result
}

var (
	_ Strategy = MultiRound{}
	_ Strategy = Greedy{}
)

// NewStrategy resolves a configured strategy name. An empty name selects the
// multi-round allocator, and a non-positive maxRounds selects DefaultMaxRounds.
func NewStrategy(name string, maxRounds int) (Strategy, error) {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	switch name {
	case "", StrategyMultiRound:
		return MultiRound{MaxRounds: maxRounds}, nil
	case StrategyGreedy:
		return Greedy{}, nil
	default:
		return nil, apperrors.New(apperrors.CodeInvalidInput, "unknown allocation strategy %q", name)
	}
}
