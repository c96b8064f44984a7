// Package assess runs the end-to-end risk assessment: for every condition it
// builds the feature vector, scores it, classifies the probability and
// attaches advice. A failure in one condition is replaced by a fixed
// medium-risk result and never affects the others.
package assess

import (
	"context"
	"fmt"
	"math"
	"time"

	"health-risk/internal/features"
	"health-risk/internal/risk"
	"health-risk/internal/schema"

	"github.com/rs/zerolog/log"
)

// FallbackRiskScore is reported for a condition whose pipeline failed.
const (
	FallbackRiskScore = 50.0
	FallbackRiskLevel = risk.Medium
)

// Result is the outcome for one condition.
type Result struct {
	RiskScore       float64    `json:"risk_score"`
	RiskLevel       risk.Level `json:"risk_level"`
	Recommendations []string   `json:"recommendations"`
}

// Results maps every condition to its result.
type Results map[schema.Condition]Result

// Scorer returns the positive-class probability for a condition's vector.
type Scorer interface {
	Score(ctx context.Context, c schema.Condition, vec []float64) (float64, error)
}

// MetricsInterface defines metrics methods needed by the service
type MetricsInterface interface {
	AssessmentsInc()
	AssessmentLatencyObserve(float64)
	ConditionResultInc(condition, level string)
	ConditionFallbackInc(condition string)
}

// Service assesses raw answers against every condition.
type Service struct {
	builder *features.Builder
	scorer  Scorer
	metrics MetricsInterface
}

// NewService wires the pipeline. metrics may be nil.
func NewService(builder *features.Builder, scorer Scorer, metrics MetricsInterface) *Service {
	return &Service{builder: builder, scorer: scorer, metrics: metrics}
}

// Assess returns a result for every condition. It does not fail: per-condition
// problems are logged and replaced by the fallback result.
func (s *Service) Assess(ctx context.Context, input features.RawInput) Results {
	start := time.Now()

	results := make(Results, len(schema.Conditions))
	for _, c := range schema.Conditions {
		results[c] = s.assessCondition(ctx, input, c)
	}

	if s.metrics != nil {
		s.metrics.AssessmentsInc()
		s.metrics.AssessmentLatencyObserve(time.Since(start).Seconds())
	}
	return results
}

func (s *Service) assessCondition(ctx context.Context, input features.RawInput, c schema.Condition) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("condition", string(c)).
				Interface("panic", r).
				Msg("Condition assessment panicked, using fallback result")
			res = s.fallback(c)
		}
	}()

	res, err := s.scoreCondition(ctx, input, c)
	if err != nil {
		log.Error().
			Err(err).
			Str("condition", string(c)).
			Msg("Condition assessment failed, using fallback result")
		return s.fallback(c)
	}

	log.Info().
		Str("condition", string(c)).
		Float64("risk_score", res.RiskScore).
		Str("risk_level", string(res.RiskLevel)).
		Msg("Prediction")
	if s.metrics != nil {
		s.metrics.ConditionResultInc(string(c), string(res.RiskLevel))
	}
	return res
}

func (s *Service) scoreCondition(ctx context.Context, input features.RawInput, c schema.Condition) (Result, error) {
	vec, err := s.builder.Build(input, c)
	if err != nil {
		return Result{}, fmt.Errorf("build features: %w", err)
	}

	p, err := s.scorer.Score(ctx, c, vec)
	if err != nil {
		return Result{}, err
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return Result{}, fmt.Errorf("probability %v out of range", p)
	}

	level := risk.Classify(p)
	return Result{
		RiskScore:       RiskScore(p),
		RiskLevel:       level,
		Recommendations: risk.Recommendations(c, level),
	}, nil
}

func (s *Service) fallback(c schema.Condition) Result {
	if s.metrics != nil {
		s.metrics.ConditionFallbackInc(string(c))
		s.metrics.ConditionResultInc(string(c), string(FallbackRiskLevel))
	}
	return FallbackResult(c)
}

// FallbackResult is the fixed result for a condition whose pipeline failed.
func FallbackResult(c schema.Condition) Result {
	return Result{
		RiskScore:       FallbackRiskScore,
		RiskLevel:       FallbackRiskLevel,
		Recommendations: risk.Recommendations(c, FallbackRiskLevel),
	}
}

// RiskScore converts a probability to a 0-100 score with one decimal.
func RiskScore(p float64) float64 {
	return math.Round(p*1000) / 10
}
