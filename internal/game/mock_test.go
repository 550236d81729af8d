package game

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockOutcomeStore is a mock implementation of OutcomeStore
type MockOutcomeStore struct {
	mock.Mock
}

func (m *MockOutcomeStore) Record(ctx context.Context, outcome Outcome) error {
	args := m.Called(ctx, outcome)
	return args.Error(0)
}

func (m *MockOutcomeStore) Fastest(ctx context.Context, limit int) ([]Outcome, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Outcome), args.Error(1)
}
