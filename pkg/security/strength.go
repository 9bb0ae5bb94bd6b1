// Package security provides password strength scoring, duplicate and breach
// detection, and vault-wide health summaries.
package security

import "unicode"

// MaxScore is the top of the strength scale.
const MaxScore = 4

// Level is a password strength score on a 0-4 scale.
type Level int

const (
	// LevelVeryWeak is a password with no redeeming qualities.
	LevelVeryWeak Level = iota
	// LevelWeak meets the minimum length only.
	LevelWeak
	// LevelFair has some length or variety but not both.
	LevelFair
	// LevelGood has decent length and character variety.
	LevelGood
	// LevelStrong has both length and the full character variety.
	LevelStrong
)

// String returns a human-readable label for the level.
func (l Level) String() string {
	switch l {
	case LevelVeryWeak:
		return "Very Weak"
	case LevelWeak:
		return "Weak"
	case LevelFair:
		return "Fair"
	case LevelGood:
		return "Good"
	case LevelStrong:
		return "Strong"
	default:
		return "Unknown"
	}
}

// IsWeak reports whether the level is below the acceptable threshold.
func (l Level) IsWeak() bool { return l < LevelGood }

// CheckStrength scores a password on a 0-4 scale. One point each for length
// of at least 8, length of at least 12, three character classes, and all four
// classes combined with length of at least 10.
func CheckStrength(password string) Level {
	if password == "" {
		return LevelVeryWeak
	}

	length := len([]rune(password))
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	classes := 0
	for _, ok := range []bool{lower, upper, digit, symbol} {
		if ok {
			classes++
		}
	}

	score := Level(0)
	if length >= 8 {
		score++
	}
	if length >= 12 {
		score++
	}
	if classes >= 3 {
		score++
	}
	if classes == 4 && length >= 10 {
		score++
	}
	return score
}

// HealthScore computes a vault-wide percentage from individual strength
// levels. An empty vault is perfectly healthy.
func HealthScore(levels []Level) float64 {
	if len(levels) == 0 {
		return 100
	}
	sum := 0
	for _, l := range levels {
		sum += int(l)
	}
	return float64(sum) / float64(len(levels)*MaxScore) * 100
}
