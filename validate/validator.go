// Package validate rejects submitted lies that are really the truth. It runs
// synchronously inside submit-answer, so everything here is in-process string
// work: canonical equality, containment, and edit-distance ratio.
package validate

import (
	"context"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/nicksaban20/Fibbage/game"
	"github.com/nicksaban20/Fibbage/textutil"
)

// DefaultThreshold is the maximum edit-distance ratio (distance divided by
// the longer canonical length) still considered "the same answer".
const DefaultThreshold = 0.3

type Validator struct {
	threshold float64
}

func NewValidator(threshold float64) *Validator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Validator{threshold: threshold}
}

// Check reports whether text is acceptable as a fake answer for q. Players
// may resubmit after a rejection until the answering deadline.
func (v *Validator) Check(_ context.Context, text string, q game.Question) (game.ValidationResult, error) {
	submitted := textutil.Canonicalize(text)
	truth := textutil.Canonicalize(q.CorrectAnswer)

	if submitted == "" {
		return game.ValidationResult{Valid: false, Reason: "Answer can't be empty"}, nil
	}
	if submitted == truth {
		return game.ValidationResult{Valid: false, Reason: "That's the correct answer! Try to make up a fake one."}, nil
	}
	if tooSimilar(submitted, truth, v.threshold) {
		return game.ValidationResult{Valid: false, Reason: "Your answer is too similar to the real answer!"}, nil
	}
	return game.ValidationResult{Valid: true, Reason: "Answer accepted"}, nil
}

func tooSimilar(submitted, truth string, threshold float64) bool {
	// Containment catches "the <truth>" style padding.
	if len(submitted) >= 3 && len(truth) >= 3 {
		if strings.Contains(submitted, truth) || strings.Contains(truth, submitted) {
			return true
		}
	}

	longest := len([]rune(submitted))
	if l := len([]rune(truth)); l > longest {
		longest = l
	}
	if longest == 0 {
		return true
	}
	distance := levenshtein.ComputeDistance(submitted, truth)
	return float64(distance)/float64(longest) <= threshold
}
