package game

import (
	"context"
	"sync"

	"golang.org/x/exp/slices"
)

const (
	DefaultFastestLimit = 10
	MaxFastestLimit     = 100
)

// ClampLimit maps a requested leaderboard size into [1, MaxFastestLimit].
// Non-positive values select DefaultFastestLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultFastestLimit
	case limit > MaxFastestLimit:
		return MaxFastestLimit
	default:
		return limit
	}
}

// OutcomeStore defines the interface for the append-only log of finished games
type OutcomeStore interface {
	Record(ctx context.Context, outcome Outcome) error
	// Fastest returns up to limit won games ordered by elapsed time, then by
	// finish time.
	Fastest(ctx context.Context, limit int) ([]Outcome, error)
}

// MemoryStore keeps outcomes in process memory
type MemoryStore struct {
	mu       sync.RWMutex
	outcomes []Outcome
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Record(ctx context.Context, outcome Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	outcome.Secret = slices.Clone(outcome.Secret)
	outcome.Sequence = slices.Clone(outcome.Sequence)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
	return nil
}

func (m *MemoryStore) Fastest(ctx context.Context, limit int) ([]Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit = ClampLimit(limit)

	m.mu.RLock()
	wins := make([]Outcome, 0, len(m.outcomes))
	for _, o := range m.outcomes {
		if o.Won {
			wins = append(wins, o)
		}
	}
	m.mu.RUnlock()

	SortFastest(wins)
	if len(wins) > limit {
		wins = wins[:limit]
	}
	return wins, nil
}

// SortFastest orders outcomes by elapsed time, breaking ties by finish time.
func SortFastest(outcomes []Outcome) {
	slices.SortStableFunc(outcomes, func(a, b Outcome) int {
		if a.Elapsed != b.Elapsed {
			return a.Elapsed - b.Elapsed
		}
		return a.FinishedAt.Compare(b.FinishedAt)
	})
}
