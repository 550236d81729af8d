package ranking

import "math"

// Rank represents the colour band a finished game falls into
type Rank struct {
	Color     string
	MinPoints int
	MaxPoints int
}

// Available ranks in ascending order
var Ranks = []Rank{
	{Color: "Gray", MinPoints: 0, MaxPoints: 299},
	{Color: "Violet", MinPoints: 300, MaxPoints: 449},
	{Color: "Indigo", MinPoints: 450, MaxPoints: 599},
	{Color: "Blue", MinPoints: 600, MaxPoints: 749},
	{Color: "Green", MinPoints: 750, MaxPoints: 899},
	{Color: "Yellow", MinPoints: 900, MaxPoints: 1049},
	{Color: "Orange", MinPoints: 1050, MaxPoints: 1149},
	{Color: "Red", MinPoints: 1150, MaxPoints: 1200},
}

// MaxPoints is awarded for cracking the code with the full clock remaining
const MaxPoints = 1200

// CalculatePoints scores a game from the seconds it took out of duration.
// Lost games and games with no duration score zero.
func CalculatePoints(won bool, elapsed, duration int) int {
	if !won || duration <= 0 {
		return 0
	}
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := duration - elapsed
	if remaining <= 0 {
		return 0
	}
	return int(math.Round(float64(MaxPoints) * float64(remaining) / float64(duration)))
}

// GetRankByPoints returns the rank for a given point total
func GetRankByPoints(points int) Rank {
	for _, rank := range Ranks {
		if points >= rank.MinPoints && points <= rank.MaxPoints {
			return rank
		}
	}
	return Ranks[0] // Default to Gray if points are out of range
}
