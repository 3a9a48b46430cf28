package app

import (
	"math"

	"review-game-service/internal/domain"
)

// neutralWeight is used when the selected option id is somehow missing
// from the question's option list. Submission validation makes this
// unreachable in practice.
const neutralWeight = 0.5

// Score grades one prediction. A correct pick earns
// round(100*w*(0.5+0.5*confidence)) where w is the selected option's
// weight, so a maximally confident full-weight pick scores 100. A
// wrong pick still earns round(20*w*confidence): a high-quality,
// confidently held option beats a reckless one even when wrong. The
// result is clamped to [0,100].
func Score(selected, correct string, confidence float64, options []domain.Option) int {
	weight := neutralWeight
	for _, opt := range options {
		if opt.ID == selected {
			weight = opt.Weight
			break
		}
	}

	var score int
	if selected == correct {
		score = int(math.Round(100 * weight * (0.5 + 0.5*confidence)))
	} else {
		score = int(math.Round(20 * weight * confidence))
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
