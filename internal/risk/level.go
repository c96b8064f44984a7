// Package risk maps scorer probabilities to coarse risk tiers and resolves the
// advice shown for each tier.
package risk

import "fmt"

// Level is a coarse risk tier.
type Level string

const (
	Low    Level = "low"
	Medium Level = "medium"
	High   Level = "high"
)

// Levels lists every tier from lowest to highest.
var Levels = []Level{Low, Medium, High}

// Cut points shared by every condition. A probability equal to a cut point
// belongs to the higher tier. Earlier deployments used 0.4/0.75; records
// classified under that pair are not comparable with current ones.
const (
	LowThreshold  = 0.3
	HighThreshold = 0.6
)

// Classify returns the tier for a probability in [0, 1].
func Classify(p float64) Level {
	switch {
	case p < LowThreshold:
		return Low
	case p < HighThreshold:
		return Medium
	default:
		return High
	}
}

// ParseLevel validates a tier name.
func ParseLevel(s string) (Level, error) {
	switch l := Level(s); l {
	case Low, Medium, High:
		return l, nil
	default:
		return "", fmt.Errorf("unknown risk level %q", s)
	}
}

func (l Level) String() string {
	return string(l)
}
