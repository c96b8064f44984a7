package ml

import (
	"sync"
	"sync/atomic"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu               sync.Mutex
	predictions      int
	failures         int
	latencySum       float64
	fallbackUse      int
	predictionScores []float64
	loads            map[string]int
	loaded           map[string]bool
}

func (m *MockMetrics) MLPredictionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
}

func (m *MockMetrics) MLFailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *MockMetrics) MLLatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
}

func (m *MockMetrics) MLPredictionScoresObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictionScores = append(m.predictionScores, v)
}

func (m *MockMetrics) MLFallbackUseInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbackUse++
}

func (m *MockMetrics) ModelLoadInc(condition, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loads == nil {
		m.loads = make(map[string]int)
	}
	m.loads[condition+"/"+outcome]++
}

func (m *MockMetrics) ModelLoadedSet(condition string, loaded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded == nil {
		m.loaded = make(map[string]bool)
	}
	m.loaded[condition] = loaded
}

// Predictions returns the number of successful scores.
func (m *MockMetrics) Predictions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.predictions
}

// Failures returns the number of failed scores.
func (m *MockMetrics) Failures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

// FallbackUse returns how many scores came from a fallback scorer.
func (m *MockMetrics) FallbackUse() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fallbackUse
}

// Loads returns the count recorded for a condition and outcome.
func (m *MockMetrics) Loads(condition, outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads[condition+"/"+outcome]
}

// Loaded reports the last loaded state recorded for a condition.
func (m *MockMetrics) Loaded(condition string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded[condition]
}

// StaticModel returns fixed probabilities, or Err when set.
type StaticModel struct {
	Probs  []float64
	Err    error
	closed atomic.Bool
}

func (m *StaticModel) PredictProba([]float64) ([]float64, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Probs, nil
}

func (m *StaticModel) Close() error {
	m.closed.Store(true)
	return nil
}

// IsClosed reports whether Close has been called.
func (m *StaticModel) IsClosed() bool {
	return m.closed.Load()
}
