package ml

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"health-risk/internal/schema"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// MetricsInterface defines metrics methods needed by the scorer registry.
type MetricsInterface interface {
	MLPredictionsInc()
	MLFailuresInc()
	MLLatencyObserve(float64)
	MLPredictionScoresObserve(float64)
	MLFallbackUseInc()
	ModelLoadInc(condition, outcome string)
	ModelLoadedSet(condition string, loaded bool)
}

// Load outcomes reported to metrics.
const (
	OutcomeLoaded  = "loaded"
	OutcomeMissing = "missing"
	OutcomeFailed  = "failed"
	OutcomeTimeout = "timeout"
)

// Registry owns the scorer for every condition. Each condition has its own
// slot that is replaced as a whole, so concurrent readers see either the old
// or the new scorer. Slots start empty and are filled on first use.
type Registry struct {
	schemas *schema.Registry
	loader  Loader
	timeout time.Duration
	metrics MetricsInterface

	slots map[schema.Condition]*atomic.Pointer[Scorer]
	group singleflight.Group
}

// NewRegistry creates an empty registry. A non-positive timeout disables the
// load bound.
func NewRegistry(schemas *schema.Registry, loader Loader, timeout time.Duration, metrics MetricsInterface) *Registry {
	r := &Registry{
		schemas: schemas,
		loader:  loader,
		timeout: timeout,
		metrics: metrics,
		slots:   make(map[schema.Condition]*atomic.Pointer[Scorer], len(schema.Conditions)),
	}
	for _, c := range schema.Conditions {
		if _, err := schemas.Schema(c); err == nil {
			r.slots[c] = &atomic.Pointer[Scorer]{}
		}
	}
	return r
}

// Get returns the scorer for c, loading it on first use. Concurrent first
// calls share a single load. The only error is an unknown condition.
func (r *Registry) Get(ctx context.Context, c schema.Condition) (Scorer, error) {
	slot, err := r.slot(c)
	if err != nil {
		return nil, err
	}
	if s := slot.Load(); s != nil {
		return *s, nil
	}

	v, _, _ := r.group.Do(string(c), func() (any, error) {
		if s := slot.Load(); s != nil {
			return *s, nil
		}
		// The load outlives a cancelled first caller; it is bounded by r.timeout.
		s := r.build(context.WithoutCancel(ctx), c)
		// A Reload that landed during the load wins.
		if !slot.CompareAndSwap(nil, &s) {
			retire(c, &s)
			cur := *slot.Load()
			r.setLoadedMetric(c, cur)
			return cur, nil
		}
		return s, nil
	})
	return v.(Scorer), nil
}

// Reload builds a fresh scorer for c and swaps it in. The replaced model is
// closed once predictions already running on it return.
func (r *Registry) Reload(ctx context.Context, c schema.Condition) (Scorer, error) {
	slot, err := r.slot(c)
	if err != nil {
		return nil, err
	}
	s := r.build(context.WithoutCancel(ctx), c)
	retire(c, slot.Swap(&s))
	return s, nil
}

// ReloadAll reloads every condition.
func (r *Registry) ReloadAll(ctx context.Context) {
	for _, c := range schema.Conditions {
		if _, err := r.Reload(ctx, c); err != nil {
			log.Error().Err(err).Str("condition", string(c)).Msg("Reload failed")
		}
	}
}

// LoadAll fills every empty slot.
func (r *Registry) LoadAll(ctx context.Context) {
	for _, c := range schema.Conditions {
		if _, err := r.Get(ctx, c); err != nil {
			log.Error().Err(err).Str("condition", string(c)).Msg("Load failed")
		}
	}
}

// Set installs s for c directly.
func (r *Registry) Set(c schema.Condition, s Scorer) error {
	slot, err := r.slot(c)
	if err != nil {
		return err
	}
	s = guardScorer(s)
	if old := slot.Swap(&s); old != nil && *old != s {
		retire(c, old)
	}
	r.setLoadedMetric(c, s)
	return nil
}

// Score returns the positive-class probability for vec under c's scorer.
func (r *Registry) Score(ctx context.Context, c schema.Condition, vec []float64) (float64, error) {
	s, err := r.Get(ctx, c)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	p, err := Score(s, vec)
	for errors.Is(err, ErrModelClosed) {
		// replaced by a reload after Get; the slot now holds its successor
		if s, err = r.Get(ctx, c); err == nil {
			p, err = Score(s, vec)
		}
	}
	if r.metrics != nil {
		r.metrics.MLLatencyObserve(time.Since(start).Seconds())
	}
	if err != nil {
		if r.metrics != nil {
			r.metrics.MLFailuresInc()
		}
		return 0, fmt.Errorf("score %s: %w", c, err)
	}

	if r.metrics != nil {
		r.metrics.MLPredictionsInc()
		r.metrics.MLPredictionScoresObserve(p)
		if _, ok := s.(FallbackScorer); ok {
			r.metrics.MLFallbackUseInc()
		}
	}
	return p, nil
}

// Close releases every loaded model. The registry must not be used afterwards.
func (r *Registry) Close() error {
	var errs []error
	for c, slot := range r.slots {
		s := slot.Swap(nil)
		if s == nil {
			continue
		}
		if loaded, ok := (*s).(LoadedScorer); ok {
			if err := loaded.Model.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s model: %w", c, err))
			}
		}
	}
	return errors.Join(errs...)
}

// ScorerStatus is a snapshot of one condition's slot.
type ScorerStatus struct {
	Condition schema.Condition `json:"condition"`
	Kind      string           `json:"kind"`
	Artifact  *ArtifactInfo    `json:"artifact,omitempty"`
	Reason    string           `json:"fallback_reason,omitempty"`
	Since     time.Time        `json:"since,omitzero"`
}

// Scorer kinds reported in status.
const (
	KindModel    = "model"
	KindFallback = "fallback"
	KindUnloaded = "unloaded"
)

// Status reports every condition in processing order without triggering loads.
func (r *Registry) Status() []ScorerStatus {
	out := make([]ScorerStatus, 0, len(r.slots))
	for _, c := range schema.Conditions {
		slot, ok := r.slots[c]
		if !ok {
			continue
		}
		st := ScorerStatus{Condition: c, Kind: KindUnloaded}
		if s := slot.Load(); s != nil {
			switch sc := (*s).(type) {
			case LoadedScorer:
				info := sc.Artifact
				st.Kind = KindModel
				st.Artifact = &info
				st.Since = info.LoadedAt
			case FallbackScorer:
				st.Kind = KindFallback
				st.Reason = sc.Reason
				st.Since = sc.Since
			}
		}
		out = append(out, st)
	}
	return out
}

func (r *Registry) slot(c schema.Condition) (*atomic.Pointer[Scorer], error) {
	slot, ok := r.slots[c]
	if !ok {
		return nil, fmt.Errorf("%w: %q", schema.ErrUnknownCondition, c)
	}
	return slot, nil
}

type loadResult struct {
	model Model
	info  ArtifactInfo
	err   error
}

// build never fails: any load problem yields a fallback scorer.
func (r *Registry) build(ctx context.Context, c schema.Condition) Scorer {
	s, err := r.schemas.Schema(c)
	if err != nil {
		return r.fallback(c, OutcomeFailed, err)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	done := make(chan loadResult, 1)
	go func() {
		model, info, err := r.loader.Load(ctx, s)
		done <- loadResult{model: model, info: info, err: err}
	}()

	select {
	case res := <-done:
		switch {
		case errors.Is(res.err, ErrArtifactNotFound):
			return r.fallback(c, OutcomeMissing, res.err)
		case res.err != nil:
			return r.fallback(c, OutcomeFailed, res.err)
		}
		log.Info().
			Str("condition", string(c)).
			Str("path", res.info.Path).
			Str("format", res.info.Format).
			Str("version", res.info.Version).
			Msg("Model loaded")
		if r.metrics != nil {
			r.metrics.ModelLoadInc(string(c), OutcomeLoaded)
			r.metrics.ModelLoadedSet(string(c), true)
		}
		return LoadedScorer{Model: guard(res.model), Artifact: res.info}
	case <-ctx.Done():
		// A late load still owns native resources.
		go func() {
			if res := <-done; res.model != nil {
				_ = res.model.Close()
			}
		}()
		return r.fallback(c, OutcomeTimeout, ctx.Err())
	}
}

func (r *Registry) fallback(c schema.Condition, outcome string, err error) Scorer {
	ev := log.Error()
	if outcome == OutcomeMissing {
		ev = log.Warn()
	}
	ev.Err(err).
		Str("condition", string(c)).
		Str("outcome", outcome).
		Float64("fallback_probability", FallbackProbability).
		Msg("Model unavailable, using fallback scorer")

	if r.metrics != nil {
		r.metrics.ModelLoadInc(string(c), outcome)
		r.metrics.ModelLoadedSet(string(c), false)
	}
	return NewFallback(err.Error())
}

func (r *Registry) setLoadedMetric(c schema.Condition, s Scorer) {
	if r.metrics == nil {
		return
	}
	_, loaded := s.(LoadedScorer)
	r.metrics.ModelLoadedSet(string(c), loaded)
}
