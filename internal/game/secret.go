package game

import (
	"math/rand"

	"golang.org/x/exp/slices"
)

const DefaultSecretLength = 3

// SecretPattern is the hidden target subsequence that wins the game
type SecretPattern struct {
	rng    *rand.Rand
	digits []int
}

func NewSecretPattern(rng *rand.Rand) *SecretPattern {
	return &SecretPattern{rng: rng}
}

// Generate replaces the pattern with length independent uniform digits.
func (p *SecretPattern) Generate(length int) {
	if length < 0 {
		length = 0
	}
	digits := make([]int, length)
	for i := range digits {
		digits[i] = p.rng.Intn(MaxDigit + 1)
	}
	p.digits = digits
}

func (p *SecretPattern) Equals(candidate []int) bool {
	return slices.Equal(p.digits, candidate)
}

func (p *SecretPattern) Len() int { return len(p.digits) }

func (p *SecretPattern) Values() []int {
	return slices.Clone(p.digits)
}

// set pins the pattern; tests use it to plant a known secret.
func (p *SecretPattern) set(digits []int) {
	p.digits = slices.Clone(digits)
}
