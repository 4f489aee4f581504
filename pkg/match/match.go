// Package match holds the score policy: it turns a raw comparison score from
// the sensor into a verdict and a normalized confidence. Pure, no I/O.
package match

// DefaultThreshold is the reference policy: raw scores at or below it count
// as a match. Raw scores are distances, lower means more similar.
const DefaultThreshold = 100

type Decision struct {
	IsMatch    bool
	Confidence float64
}

// Decide applies the threshold policy to a raw comparison score.
// Confidence is 1 - min(score, threshold)/threshold clamped to [0, 1]:
// 1.0 at a perfect score of 0, falling linearly to 0.0 at the threshold,
// and 0.0 for any non-match.
func Decide(rawScore, threshold int) Decision {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	capped := rawScore
	if capped > threshold {
		capped = threshold
	}

	confidence := 1 - float64(capped)/float64(threshold)
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return Decision{
		IsMatch:    rawScore <= threshold,
		Confidence: confidence,
	}
}
