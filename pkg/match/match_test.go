package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecideBoundaries(t *testing.T) {
	tests := []struct {
		name       string
		score      int
		isMatch    bool
		confidence float64
	}{
		{"perfect", 0, true, 1.0},
		{"at threshold", 100, true, 0.0},
		{"just over threshold", 101, false, 0.0},
		{"far over threshold", 100000, false, 0.0},
		{"mid range", 40, true, 0.6},
		{"near perfect", 1, true, 0.99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.score, 100)
			assert.Equal(t, tt.isMatch, d.IsMatch)
			assert.InDelta(t, tt.confidence, d.Confidence, 1e-9)
		})
	}
}

func TestDecideMonotonic(t *testing.T) {
	prev := Decide(0, 100)
	for score := 1; score <= 100; score++ {
		d := Decide(score, 100)
		assert.LessOrEqual(t, d.Confidence, prev.Confidence, "score %d", score)
		prev = d
	}
}

func TestDecideConfidenceRange(t *testing.T) {
	for score := 0; score <= 250; score++ {
		d := Decide(score, 100)
		assert.GreaterOrEqual(t, d.Confidence, 0.0)
		assert.LessOrEqual(t, d.Confidence, 1.0)
	}
}

func TestDecideCustomThreshold(t *testing.T) {
	d := Decide(25, 50)
	assert.True(t, d.IsMatch)
	assert.InDelta(t, 0.5, d.Confidence, 1e-9)

	assert.False(t, Decide(51, 50).IsMatch)
}

func TestDecideNonPositiveThresholdFallsBack(t *testing.T) {
	d := Decide(50, 0)
	assert.True(t, d.IsMatch)
	assert.InDelta(t, 0.5, d.Confidence, 1e-9)
}
