package ml

import (
	"errors"
	"sync"

	"health-risk/internal/schema"

	"github.com/rs/zerolog/log"
)

// ErrModelClosed is returned by a model that was retired while a caller still
// held its scorer.
var ErrModelClosed = errors.New("model closed")

// guardedModel lets a replaced model be closed without racing predictions
// that already hold it. Close waits for in-flight predictions to return.
type guardedModel struct {
	mu     sync.RWMutex
	model  Model
	closed bool
}

func guard(m Model) Model {
	if m == nil {
		return nil
	}
	if g, ok := m.(*guardedModel); ok {
		return g
	}
	return &guardedModel{model: m}
}

func (g *guardedModel) PredictProba(features []float64) ([]float64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return nil, ErrModelClosed
	}
	return g.model.PredictProba(features)
}

func (g *guardedModel) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	return g.model.Close()
}

// guardScorer wraps the model of a loaded scorer.
func guardScorer(s Scorer) Scorer {
	if loaded, ok := s.(LoadedScorer); ok {
		loaded.Model = guard(loaded.Model)
		return loaded
	}
	return s
}

// retire closes the model behind a replaced slot value.
func retire(c schema.Condition, old *Scorer) {
	if old == nil {
		return
	}
	loaded, ok := (*old).(LoadedScorer)
	if !ok || loaded.Model == nil {
		return
	}
	if err := loaded.Model.Close(); err != nil {
		log.Warn().Err(err).Str("condition", string(c)).Msg("Failed to close replaced model")
	}
}
