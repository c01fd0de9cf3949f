package ml

import (
	"context"
	"errors"
	"fmt"
)

// ErrModelLoad marks a missing or unreadable model artifact.
var ErrModelLoad = errors.New("model load failed")

// Classifier is a trained binary classifier taking a matrix of rows laid out
// in FeatureNames order and returning one scalar label per row.
type Classifier interface {
	FeatureNames() []string
	Predict(ctx context.Context, rows [][]float64) ([]float64, error)
}

// rowPredictor is the per-row core shared by the in-process models.
type rowPredictor interface {
	predictRow(row []float64) (float64, error)
}

// localModel adapts a rowPredictor to Classifier and enforces the row width.
type localModel struct {
	names []string
	core  rowPredictor
}

func (m *localModel) FeatureNames() []string {
	return append([]string(nil), m.names...)
}

func (m *localModel) Predict(ctx context.Context, rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(row) != len(m.names) {
			return nil, fmt.Errorf("row %d: expected %d features, got %d", i, len(m.names), len(row))
		}
		label, err := m.core.predictRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = label
	}
	return out, nil
}
