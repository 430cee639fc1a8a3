// Package emotion turns face emotion likelihoods into display modes.
package emotion

import (
	"context"

	"github.com/dudu/facemode/internal/mode"
)

// Likelihood scale, from UNKNOWN to VERY_LIKELY
const (
	Unknown = iota
	VeryUnlikely
	Unlikely
	Possible
	Likely
	VeryLikely
)

// Neutral is the dominant label when no emotion reaches the threshold
const Neutral = "neutral"

// Labels is the fixed label order; earlier labels win ties
var Labels = []string{"joy", "anger", "surprise", "sorrow"}

// Scores maps emotion labels to likelihoods on the 0-5 scale
type Scores map[string]int

// Classifier scores the emotions of the most prominent face in a JPEG image
type Classifier interface {
	Classify(ctx context.Context, jpeg []byte) (Scores, error)
}

// Dominant returns the label with the highest score of at least minScore,
// or Neutral. Unknown never counts, whatever minScore is.
func Dominant(scores Scores, minScore int) string {
	best, bestScore := Neutral, max(minScore, VeryUnlikely)-1
	for _, label := range Labels {
		if s := scores[label]; s > bestScore {
			best, bestScore = label, s
		}
	}
	return best
}

// Mapping maps dominant labels to display modes
type Mapping map[string]int

// Mode returns the mode for label, or mode.None when it has none
func (m Mapping) Mode(label string) int {
	if v, ok := m[label]; ok {
		return v
	}
	return mode.None
}
