package survival

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lungsurv/ml"
)

// spyClassifier records every row it is asked to score.
type spyClassifier struct {
	names  []string
	labels []float64
	err    error
	panic  bool
	rows   [][]float64
	calls  int
}

func (s *spyClassifier) FeatureNames() []string {
	if s.names != nil {
		return s.names
	}
	return ml.FeatureNames()
}

func (s *spyClassifier) Predict(ctx context.Context, rows [][]float64) ([]float64, error) {
	s.calls++
	s.rows = append(s.rows, rows...)
	if s.panic {
		panic("index out of range")
	}
	return s.labels, s.err
}

func newTestService(spy *spyClassifier) *Service {
	enc := &ml.Encoder{Now: func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }}
	return NewService(enc, func() (ml.Classifier, error) { return spy, nil }, nil)
}

func patient() ml.RawInput {
	return ml.RawInput{
		Age: "65", BMI: "24.5", Cholesterol: "180",
		Gender: "Male", Country: "Italy", FamilyHistory: "Yes",
		CancerStage: "II", SmokingStatus: "Never Smoked", TreatmentType: "Surgery",
		Hypertension: "No", Asthma: "No", Cirrhosis: "No", OtherCancer: "No",
	}
}

func TestPredictHighSurvival(t *testing.T) {
	spy := &spyClassifier{labels: []float64{1}}
	res, err := newTestService(spy).Predict(context.Background(), patient())
	require.NoError(t, err)

	assert.Equal(t, SurvivalHigh, res.Outcome)
	assert.Equal(t, MessageHigh, res.Message)
	require.Equal(t, 1, spy.calls)
	require.Len(t, spy.rows, 1)
	assert.Len(t, spy.rows[0], 44)
	assert.Equal(t, 65.0, spy.rows[0][0])
}

func TestPredictAnyOtherLabelIsLow(t *testing.T) {
	for _, label := range []float64{0, 2, -1} {
		spy := &spyClassifier{labels: []float64{label}}
		res, err := newTestService(spy).Predict(context.Background(), patient())
		require.NoError(t, err)
		assert.Equal(t, SurvivalLow, res.Outcome, "label %v", label)
		assert.Equal(t, MessageLow, res.Message)
	}
}

func TestPredictValidationSkipsClassifier(t *testing.T) {
	for _, mut := range []func(*ml.RawInput){
		func(in *ml.RawInput) { in.Age = "" },
		func(in *ml.RawInput) { in.BMI = "n/a" },
		func(in *ml.RawInput) { in.Cholesterol = "" },
	} {
		spy := &spyClassifier{labels: []float64{1}}
		in := patient()
		mut(&in)

		_, err := newTestService(spy).Predict(context.Background(), in)
		var verr *ml.ValidationError
		require.True(t, errors.As(err, &verr), "got %v", err)
		assert.Zero(t, spy.calls)
	}
}

func TestPredictAlignsToModelColumns(t *testing.T) {
	names := ml.FeatureNames()
	names[0], names[1] = names[1], names[0]
	spy := &spyClassifier{names: names, labels: []float64{1}}

	_, err := newTestService(spy).Predict(context.Background(), patient())
	require.NoError(t, err)
	assert.Equal(t, 24.5, spy.rows[0][0])
	assert.Equal(t, 65.0, spy.rows[0][1])
}

func TestPredictFailures(t *testing.T) {
	tests := []struct {
		name string
		spy  *spyClassifier
	}{
		{name: "classifier error", spy: &spyClassifier{err: errors.New("boom")}},
		{name: "classifier panic", spy: &spyClassifier{panic: true}},
		{name: "no labels", spy: &spyClassifier{labels: []float64{}}},
		{name: "shape mismatch", spy: &spyClassifier{names: ml.FeatureNames()[:40], labels: []float64{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestService(tt.spy).Predict(context.Background(), patient())

			var perr *PredictionError
			require.True(t, errors.As(err, &perr), "got %v", err)
			assert.Equal(t, GenericFailure, perr.UserMessage())
		})
	}
}

func TestPredictModelSourceFailure(t *testing.T) {
	svc := NewService(nil, func() (ml.Classifier, error) { return nil, ml.ErrModelLoad }, nil)
	_, err := svc.Predict(context.Background(), patient())

	var perr *PredictionError
	require.True(t, errors.As(err, &perr))
	assert.True(t, errors.Is(err, ml.ErrModelLoad))
}
