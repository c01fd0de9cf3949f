// Package survival runs one encode-and-predict cycle per form submission.
package survival

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lungsurv/ml"
)

// Outcome is the binary reading of the classifier output.
type Outcome string

const (
	SurvivalHigh Outcome = "high"
	SurvivalLow  Outcome = "low"
)

const (
	MessageHigh = "The model predicts a HIGH chance of survival!"
	MessageLow  = "The model predicts a LOW chance of survival."

	// GenericFailure is all the user sees when the classifier fails.
	GenericFailure = "An unexpected error occurred during prediction. Please check your inputs."
)

// Result is the interpreted prediction for one submission.
type Result struct {
	Label                 float64 `json:"label"`
	Outcome               Outcome `json:"outcome"`
	Message               string  `json:"message"`
	TreatmentDelayDays    int     `json:"treatment_delay_days"`
	TreatmentDurationDays int     `json:"treatment_duration_days"`
}

// PredictionError wraps any failure after validation succeeded.
type PredictionError struct {
	Err error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("prediction failed: %v", e.Err)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

// UserMessage is safe to show to the submitter.
func (e *PredictionError) UserMessage() string {
	return GenericFailure
}

// ModelSource returns the shared classifier, loading it on first use.
type ModelSource func() (ml.Classifier, error)

type Service struct {
	encoder *ml.Encoder
	model   ModelSource
	logger  *zap.Logger
}

func NewService(encoder *ml.Encoder, model ModelSource, logger *zap.Logger) *Service {
	if encoder == nil {
		encoder = ml.NewEncoder()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{encoder: encoder, model: model, logger: logger}
}

// Predict validates in, encodes it and asks the classifier for a label.
// Validation failures return *ml.ValidationError before the classifier is
// touched; everything after that returns *PredictionError.
func (s *Service) Predict(ctx context.Context, in ml.RawInput) (Result, error) {
	enc, err := s.encoder.Encode(in)
	if err != nil {
		return Result{}, err
	}
	s.logger.Debug("encoded submission",
		zap.Int("treatment_delay_days", enc.TreatmentDelayDays),
		zap.Int("treatment_duration_days", enc.TreatmentDurationDays))

	label, err := s.invoke(ctx, enc.Vector)
	if err != nil {
		s.logger.Error("prediction failed", zap.Error(err))
		return Result{}, &PredictionError{Err: err}
	}

	res := Result{
		Label:                 label,
		Outcome:               SurvivalLow,
		Message:               MessageLow,
		TreatmentDelayDays:    enc.TreatmentDelayDays,
		TreatmentDurationDays: enc.TreatmentDurationDays,
	}
	if label == 1 {
		res.Outcome = SurvivalHigh
		res.Message = MessageHigh
	}
	s.logger.Info("prediction served", zap.Float64("label", label), zap.String("outcome", string(res.Outcome)))
	return res, nil
}

// invoke turns classifier panics into errors so a bad artifact cannot take
// the server down.
func (s *Service) invoke(ctx context.Context, vec *ml.FeatureVector) (label float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifier panic: %v", r)
		}
	}()

	if s.model == nil {
		return 0, fmt.Errorf("no model configured")
	}
	model, err := s.model()
	if err != nil {
		return 0, err
	}
	row, err := vec.Row(model.FeatureNames())
	if err != nil {
		return 0, err
	}
	labels, err := model.Predict(ctx, [][]float64{row})
	if err != nil {
		return 0, err
	}
	if len(labels) != 1 {
		return 0, fmt.Errorf("classifier returned %d labels for 1 row", len(labels))
	}
	return labels[0], nil
}
