package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const (
	TypeDecisionTree       = "decision_tree"
	TypeRandomForest       = "random_forest"
	TypeLogisticRegression = "logistic_regression"
	TypeRemote             = "remote"
)

// Artifact is the on-disk envelope of a trained model.
type Artifact struct {
	Type         string          `json:"type"`
	FeatureNames []string        `json:"feature_names"`
	Model        json.RawMessage `json:"model"`
}

type LoadOptions struct {
	// Type overrides the artifact's own type; TypeRemote skips the file.
	Type     string
	Endpoint string
	Timeout  time.Duration
}

// LoadModel opens the artifact at path. Every failure wraps ErrModelLoad.
func LoadModel(path string, opts LoadOptions) (Classifier, error) {
	if opts.Type == TypeRemote {
		if opts.Endpoint == "" {
			return nil, fmt.Errorf("%w: remote model needs an endpoint", ErrModelLoad)
		}
		return NewRemoteClassifier(opts.Endpoint, nil, opts.Timeout), nil
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q file not found", ErrModelLoad, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	model, err := DecodeArtifact(payload, opts.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelLoad, path, err)
	}
	return model, nil
}

// DecodeArtifact parses an artifact body. typeOverride, when set, replaces
// the envelope's type field.
func DecodeArtifact(payload []byte, typeOverride string) (Classifier, error) {
	var art Artifact
	if err := json.Unmarshal(payload, &art); err != nil {
		return nil, fmt.Errorf("corrupt artifact: %w", err)
	}
	if typeOverride != "" {
		art.Type = typeOverride
	}
	names := art.FeatureNames
	if len(names) == 0 {
		names = FeatureNames()
	}
	if err := CheckFeatureNames(names); err != nil {
		return nil, fmt.Errorf("feature_names: %w", err)
	}
	if len(art.Model) == 0 {
		return nil, fmt.Errorf("artifact has no model body")
	}

	var core interface {
		rowPredictor
		validate(width int) error
	}
	switch art.Type {
	case TypeDecisionTree:
		core = &DecisionTree{}
	case TypeRandomForest:
		core = &RandomForest{}
	case TypeLogisticRegression:
		core = &LogisticRegression{}
	default:
		return nil, fmt.Errorf("unsupported model type %q", art.Type)
	}
	if err := json.Unmarshal(art.Model, core); err != nil {
		return nil, fmt.Errorf("corrupt %s body: %w", art.Type, err)
	}
	if err := core.validate(len(names)); err != nil {
		return nil, err
	}
	return &localModel{names: append([]string(nil), names...), core: core}, nil
}

// SaveArtifact writes model as an artifact of the given type. It is used to
// export models trained elsewhere into the format LoadModel reads.
func SaveArtifact(path, modelType string, names []string, model any) error {
	body, err := json.Marshal(model)
	if err != nil {
		return err
	}
	payload, err := json.MarshalIndent(Artifact{Type: modelType, FeatureNames: names, Model: body}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}
