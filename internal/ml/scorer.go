// Package ml loads per-condition risk models and turns feature vectors into
// positive-class probabilities.
//
// A condition is always backed by a Scorer: either a loaded model artifact or
// a fixed fallback used when no usable artifact exists. Callers never see a
// missing model as an error.
package ml

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// FallbackProbability is the positive-class probability reported for any
// condition without a usable model.
const FallbackProbability = 0.7

var (
	// ErrArtifactNotFound means no artifact exists for a condition.
	ErrArtifactNotFound = errors.New("model artifact not found")
	// ErrSchemaMismatch means an artifact was trained on a different feature layout.
	ErrSchemaMismatch = errors.New("model artifact does not match feature schema")
	// ErrInvalidPrediction means a model returned something other than two probabilities.
	ErrInvalidPrediction = errors.New("invalid prediction")
)

// Model is a loaded predictive artifact.
type Model interface {
	// PredictProba returns [P(negative), P(positive)] for one feature vector.
	PredictProba(features []float64) ([]float64, error)
	// Close releases any native resources held by the model.
	Close() error
}

// ArtifactInfo describes where a model came from.
type ArtifactInfo struct {
	Path      string    `json:"path"`
	Format    string    `json:"format"`
	Version   string    `json:"version,omitempty"`
	TrainedAt string    `json:"trained_at,omitempty"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// Scorer is implemented only by LoadedScorer and FallbackScorer.
type Scorer interface {
	isScorer()
}

// LoadedScorer wraps a successfully loaded model.
type LoadedScorer struct {
	Model    Model
	Artifact ArtifactInfo
}

// FallbackScorer always reports the same probability.
type FallbackScorer struct {
	Probability float64
	Reason      string
	Since       time.Time
}

func (LoadedScorer) isScorer()   {}
func (FallbackScorer) isScorer() {}

// NewFallback returns the standard fallback scorer.
func NewFallback(reason string) FallbackScorer {
	return FallbackScorer{
		Probability: FallbackProbability,
		Reason:      reason,
		Since:       time.Now(),
	}
}

// Score returns the positive-class probability for vec.
func Score(s Scorer, vec []float64) (float64, error) {
	switch sc := s.(type) {
	case FallbackScorer:
		return sc.Probability, nil
	case LoadedScorer:
		if sc.Model == nil {
			return 0, fmt.Errorf("loaded scorer has no model")
		}
		probs, err := sc.Model.PredictProba(vec)
		if err != nil {
			return 0, err
		}
		if err := validatePrediction(probs); err != nil {
			return 0, err
		}
		return probs[1], nil
	default:
		return 0, fmt.Errorf("unsupported scorer %T", s)
	}
}

func validatePrediction(probs []float64) error {
	if len(probs) != 2 {
		return fmt.Errorf("%w: expected 2 probabilities, got %d", ErrInvalidPrediction, len(probs))
	}
	for i, p := range probs {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("%w: probability %d is %v", ErrInvalidPrediction, i, p)
		}
	}
	return nil
}
