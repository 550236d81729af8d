package game

import (
	"fmt"

	"golang.org/x/exp/slices"
)

const (
	DefaultMaxSize = 10
	MinDigit       = 0
	MaxDigit       = 9
)

// Sequence is the fixed-capacity digit array the player manipulates
type Sequence struct {
	values  []int
	maxSize int
}

func NewSequence(maxSize int) *Sequence {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Sequence{
		values:  make([]int, 0, maxSize),
		maxSize: maxSize,
	}
}

// Insert places value at index, shifting later elements right.
func (s *Sequence) Insert(index, value int) error {
	if len(s.values) >= s.maxSize {
		return ErrCapacityExceeded
	}
	if value < MinDigit || value > MaxDigit {
		return ErrInvalidValue
	}
	if index < 0 || index > len(s.values) {
		return fmt.Errorf("%w (0-%d)", ErrIndexOutOfRange, len(s.values))
	}
	s.values = slices.Insert(s.values, index, value)
	return nil
}

// Delete removes the element at index and returns it.
func (s *Sequence) Delete(index int) (int, error) {
	if len(s.values) == 0 {
		return 0, ErrEmptySequence
	}
	if index < 0 || index >= len(s.values) {
		return 0, fmt.Errorf("%w (0-%d)", ErrIndexOutOfRange, len(s.values)-1)
	}
	removed := s.values[index]
	s.values = slices.Delete(s.values, index, index+1)
	return removed, nil
}

// Slice returns a copy of the n elements starting at start.
func (s *Sequence) Slice(start, n int) ([]int, error) {
	if start < 0 || n < 0 || start+n > len(s.values) {
		return nil, ErrIndexOutOfRange
	}
	return slices.Clone(s.values[start : start+n]), nil
}

func (s *Sequence) Clear() {
	s.values = s.values[:0]
}

func (s *Sequence) Len() int { return len(s.values) }

func (s *Sequence) Cap() int { return s.maxSize }

func (s *Sequence) Values() []int {
	out := make([]int, len(s.values))
	copy(out, s.values)
	return out
}
