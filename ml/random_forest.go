package ml

import (
	"errors"
	"fmt"
)

// RandomForest predicts the majority label of its trees. Ties go to the
// smallest label.
type RandomForest struct {
	Trees []DecisionTree `json:"trees"`
}

func (rf *RandomForest) predictRow(features []float64) (float64, error) {
	if len(rf.Trees) == 0 {
		return 0, errors.New("forest has no trees")
	}
	votes := make(map[float64]int, 2)
	for i := range rf.Trees {
		label, err := rf.Trees[i].predictRow(features)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		votes[label]++
	}

	best, bestCount := 0.0, -1
	for label, count := range votes {
		if count > bestCount || (count == bestCount && label < best) {
			best, bestCount = label, count
		}
	}
	return best, nil
}

func (rf *RandomForest) validate(width int) error {
	if len(rf.Trees) == 0 {
		return errors.New("forest has no trees")
	}
	for i := range rf.Trees {
		if err := rf.Trees[i].validate(width); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}
