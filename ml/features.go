package ml

import (
	"fmt"
)

// FeatureVector is one row of the model input keyed by the training schema.
// Every column starts at zero.
type FeatureVector struct {
	values []float64
}

func NewFeatureVector() *FeatureVector {
	return &FeatureVector{values: make([]float64, len(featureNames))}
}

// Has reports whether name is a column of the schema.
func (v *FeatureVector) Has(name string) bool {
	_, ok := featureIndex[name]
	return ok
}

func (v *FeatureVector) Set(name string, value float64) error {
	i, ok := featureIndex[name]
	if !ok {
		return fmt.Errorf("unknown feature %q", name)
	}
	v.values[i] = value
	return nil
}

// Get returns the value of name and whether the column exists.
func (v *FeatureVector) Get(name string) (float64, bool) {
	i, ok := featureIndex[name]
	if !ok {
		return 0, false
	}
	return v.values[i], true
}

func (v *FeatureVector) Len() int {
	return len(v.values)
}

// Values returns a copy in schema order.
func (v *FeatureVector) Values() []float64 {
	return append([]float64(nil), v.values...)
}

// Map returns the vector as column name -> value.
func (v *FeatureVector) Map() map[string]float64 {
	out := make(map[string]float64, len(v.values))
	for i, name := range featureNames {
		out[name] = v.values[i]
	}
	return out
}

// Row lays the vector out in the order given by columns. Column matching is
// by exact name, so a classifier may declare its own column order; unknown
// names and repeated names are a shape mismatch.
func (v *FeatureVector) Row(columns []string) ([]float64, error) {
	if err := CheckFeatureNames(columns); err != nil {
		return nil, fmt.Errorf("shape mismatch: %w", err)
	}
	row := make([]float64, len(columns))
	for i, name := range columns {
		row[i] = v.values[featureIndex[name]]
	}
	return row, nil
}

// CheckFeatureNames reports whether columns is a permutation of the
// training schema.
func CheckFeatureNames(columns []string) error {
	if len(columns) != len(featureNames) {
		return fmt.Errorf("model expects %d features, schema has %d", len(columns), len(featureNames))
	}
	seen := make([]bool, len(featureNames))
	for _, name := range columns {
		i, ok := featureIndex[name]
		if !ok {
			return fmt.Errorf("unknown feature %q", name)
		}
		if seen[i] {
			return fmt.Errorf("duplicate feature %q", name)
		}
		seen[i] = true
	}
	return nil
}
