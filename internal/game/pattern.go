package game

import (
	"strconv"
	"strings"
)

// ParsePattern reads a comma-separated list of integers. Each item is trimmed
// and its leading integer is used ("7x" reads as 7); items without one are
// dropped. An input that yields no integers is ErrInvalidPattern.
func ParsePattern(text string) ([]int, error) {
	var out []int
	for _, item := range strings.Split(text, ",") {
		if n, ok := leadingInt(strings.TrimSpace(item)); ok {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return nil, ErrInvalidPattern
	}
	return out, nil
}

func leadingInt(s string) (int, bool) {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// FormatPattern renders digits the way the pattern display shows them.
func FormatPattern(digits []int) string {
	parts := make([]string, len(digits))
	for i, d := range digits {
		parts[i] = strconv.Itoa(d)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
