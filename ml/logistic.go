package ml

import (
	"fmt"
	"math"
)

// LogisticRegression is a binary model with a sigmoid output; labels are 1
// when the probability reaches Threshold (0.5 when unset).
type LogisticRegression struct {
	Weights   []float64 `json:"weights"`
	Bias      float64   `json:"bias"`
	Threshold float64   `json:"threshold,omitempty"`
}

func (m *LogisticRegression) probability(row []float64) float64 {
	sum := m.Bias
	for j, v := range row {
		sum += m.Weights[j] * v
	}
	return 1 / (1 + math.Exp(-sum))
}

func (m *LogisticRegression) predictRow(row []float64) (float64, error) {
	if len(row) != len(m.Weights) {
		return 0, fmt.Errorf("expected %d features, got %d", len(m.Weights), len(row))
	}
	threshold := m.Threshold
	if threshold <= 0 || threshold >= 1 {
		threshold = 0.5
	}
	if m.probability(row) >= threshold {
		return 1, nil
	}
	return 0, nil
}

func (m *LogisticRegression) validate(width int) error {
	if len(m.Weights) != width {
		return fmt.Errorf("model has %d weights for %d features", len(m.Weights), width)
	}
	return nil
}
