package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"slices"

	"health-risk/internal/schema"
)

// LogisticArtifact is the JSON layout written by the training job.
type LogisticArtifact struct {
	Version       string `json:"version"`
	TrainedAt     string `json:"trained_at"`
	SchemaVersion int    `json:"schema_version"`
	Model         struct {
		Type         string   `json:"type"`
		FeatureNames []string `json:"feature_names"`
		Weights      Weights  `json:"weights"`
	} `json:"model"`
}

// Weights holds a logistic regression's parameters.
type Weights struct {
	Bias         float64   `json:"bias"`
	Coefficients []float64 `json:"coefficients"`
}

// LogisticModel scores with sigmoid(bias + w·x).
type LogisticModel struct {
	weights Weights
}

// NewLogisticModel copies w into a model.
func NewLogisticModel(w Weights) *LogisticModel {
	return &LogisticModel{weights: Weights{
		Bias:         w.Bias,
		Coefficients: slices.Clone(w.Coefficients),
	}}
}

func (m *LogisticModel) PredictProba(features []float64) ([]float64, error) {
	if len(features) != len(m.weights.Coefficients) {
		return nil, fmt.Errorf("expected %d features, got %d", len(m.weights.Coefficients), len(features))
	}
	z := m.weights.Bias
	for i, c := range m.weights.Coefficients {
		z += c * features[i]
	}
	p := sigmoid(z)
	return []float64{1 - p, p}, nil
}

func (m *LogisticModel) Close() error { return nil }

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// loadLogistic reads and validates a JSON artifact against s.
func loadLogistic(path string, s schema.Schema) (*LogisticModel, LogisticArtifact, error) {
	var artifact LogisticArtifact

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, artifact, err
	}
	if err := json.Unmarshal(content, &artifact); err != nil {
		return nil, artifact, fmt.Errorf("decode %s: %w", path, err)
	}

	if t := artifact.Model.Type; t != "" && t != "logistic_regression" {
		return nil, artifact, fmt.Errorf("unsupported model type %q", t)
	}
	if artifact.SchemaVersion != 0 && artifact.SchemaVersion != s.Version {
		return nil, artifact, fmt.Errorf("%w: schema version %d, expected %d",
			ErrSchemaMismatch, artifact.SchemaVersion, s.Version)
	}
	if !slices.Equal(artifact.Model.FeatureNames, s.Features) {
		return nil, artifact, fmt.Errorf("%w: feature names %v, expected %v",
			ErrSchemaMismatch, artifact.Model.FeatureNames, s.Features)
	}
	if n := len(artifact.Model.Weights.Coefficients); n != s.Len() {
		return nil, artifact, fmt.Errorf("%w: %d coefficients for %d features",
			ErrSchemaMismatch, n, s.Len())
	}
	for i, c := range artifact.Model.Weights.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, artifact, fmt.Errorf("coefficient %d is not finite", i)
		}
	}

	return NewLogisticModel(artifact.Model.Weights), artifact, nil
}
