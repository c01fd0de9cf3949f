package ml

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// TrainDecisionTree grows a Gini tree on rows, splitting each feature at its
// median. Node indices in the result are absolute, so it validates against
// the loader's children-after-parent rule.
func TrainDecisionTree(rows [][]float64, labels []float64, maxDepth int) (*DecisionTree, error) {
	if len(rows) == 0 {
		return nil, errors.New("no training rows")
	}
	if len(rows) != len(labels) {
		return nil, fmt.Errorf("%d rows but %d labels", len(rows), len(labels))
	}
	width := len(rows[0])
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d features, want %d", i, len(row), width)
		}
	}
	if maxDepth <= 0 {
		maxDepth = 10
	}

	dt := &DecisionTree{}
	dt.grow(rows, labels, 0, maxDepth)
	return dt, nil
}

// grow appends the subtree for rows and returns its root index.
func (dt *DecisionTree) grow(rows [][]float64, labels []float64, depth, maxDepth int) int {
	idx := len(dt.Nodes)
	leaf := TreeNode{FeatureIdx: -1, LeftChild: -1, RightChild: -1, ClassLabel: majorityLabel(labels), IsLeaf: true}
	dt.Nodes = append(dt.Nodes, leaf)

	if depth >= maxDepth || isPure(labels) {
		return idx
	}
	feature, threshold, ok := findBestSplit(rows, labels)
	if !ok {
		return idx
	}
	leftRows, leftLabels, rightRows, rightLabels := splitData(rows, labels, feature, threshold)

	left := dt.grow(leftRows, leftLabels, depth+1, maxDepth)
	right := dt.grow(rightRows, rightLabels, depth+1, maxDepth)
	dt.Nodes[idx] = TreeNode{
		FeatureIdx: feature,
		Threshold:  threshold,
		LeftChild:  left,
		RightChild: right,
		ClassLabel: leaf.ClassLabel,
	}
	return idx
}

func findBestSplit(rows [][]float64, labels []float64) (int, float64, bool) {
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64
	values := make([]float64, len(rows))

	for f := 0; f < len(rows[0]); f++ {
		for i := range rows {
			values[i] = rows[i][f]
		}
		threshold := median(values)
		left, right := splitLabels(rows, labels, f, threshold)
		if len(left) == 0 || len(right) == 0 {
			continue
		}
		if impurity := weightedGini(left, right); impurity < bestImpurity {
			bestImpurity = impurity
			bestFeature = f
			bestThreshold = threshold
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func splitData(rows [][]float64, labels []float64, f int, threshold float64) ([][]float64, []float64, [][]float64, []float64) {
	var leftRows, rightRows [][]float64
	var leftLabels, rightLabels []float64
	for i, row := range rows {
		if row[f] <= threshold {
			leftRows = append(leftRows, row)
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightRows = append(rightRows, row)
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftRows, leftLabels, rightRows, rightLabels
}

func splitLabels(rows [][]float64, labels []float64, f int, threshold float64) (left, right []float64) {
	for i, row := range rows {
		if row[f] <= threshold {
			left = append(left, labels[i])
		} else {
			right = append(right, labels[i])
		}
	}
	return left, right
}

func weightedGini(left, right []float64) float64 {
	l, r := float64(len(left)), float64(len(right))
	return l/(l+r)*gini(left) + r/(l+r)*gini(right)
}

func gini(labels []float64) float64 {
	if len(labels) == 0 {
		return 0
	}
	counts := make(map[float64]int)
	for _, label := range labels {
		counts[label]++
	}
	impurity := 1.0
	for _, count := range counts {
		p := float64(count) / float64(len(labels))
		impurity -= p * p
	}
	return impurity
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// majorityLabel breaks ties toward the smaller label, like the forest vote.
func majorityLabel(labels []float64) float64 {
	counts := make(map[float64]int)
	for _, label := range labels {
		counts[label]++
	}
	best, bestCount := 0.0, -1
	for label, count := range counts {
		if count > bestCount || count == bestCount && label < best {
			best, bestCount = label, count
		}
	}
	return best
}

func isPure(labels []float64) bool {
	for _, label := range labels[1:] {
		if label != labels[0] {
			return false
		}
	}
	return true
}

// Metrics scores binary predictions with 1 as the positive class.
type Metrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Samples   int     `json:"samples"`
}

func Evaluate(predicted, actual []float64) Metrics {
	m := Metrics{Samples: len(actual)}
	if len(actual) == 0 || len(predicted) != len(actual) {
		return m
	}
	var correct, tp, predPos, actPos int
	for i := range actual {
		if predicted[i] == actual[i] {
			correct++
		}
		if predicted[i] == 1 {
			predPos++
		}
		if actual[i] == 1 {
			actPos++
			if predicted[i] == 1 {
				tp++
			}
		}
	}
	m.Accuracy = float64(correct) / float64(len(actual))
	if predPos > 0 {
		m.Precision = float64(tp) / float64(predPos)
	}
	if actPos > 0 {
		m.Recall = float64(tp) / float64(actPos)
	}
	return m
}
