package metrics

// MetricsWrapper adapts Metrics to the narrow interfaces consumed by the ml,
// assess and api packages so they do not import Prometheus types.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) AssessmentsInc() {
	w.m.Assessments.Inc()
}

func (w *MetricsWrapper) AssessmentFailuresInc() {
	w.m.AssessmentFailures.Inc()
}

func (w *MetricsWrapper) AssessmentLatencyObserve(v float64) {
	w.m.AssessmentLatency.Observe(v)
}

func (w *MetricsWrapper) ConditionResultInc(condition, level string) {
	w.m.ConditionResults.WithLabelValues(condition, level).Inc()
}

func (w *MetricsWrapper) ConditionFallbackInc(condition string) {
	w.m.ConditionFallbacks.WithLabelValues(condition).Inc()
}

func (w *MetricsWrapper) MLPredictionsInc() {
	w.m.MLPredictions.Inc()
}

func (w *MetricsWrapper) MLFailuresInc() {
	w.m.MLFailures.Inc()
}

func (w *MetricsWrapper) MLLatencyObserve(v float64) {
	w.m.MLLatency.Observe(v)
}

func (w *MetricsWrapper) MLPredictionScoresObserve(v float64) {
	w.m.MLPredictionScores.Observe(v)
}

func (w *MetricsWrapper) MLFallbackUseInc() {
	w.m.MLFallbackUse.Inc()
}

func (w *MetricsWrapper) ModelLoadInc(condition, outcome string) {
	w.m.ModelLoads.WithLabelValues(condition, outcome).Inc()
}

func (w *MetricsWrapper) ModelLoadedSet(condition string, loaded bool) {
	v := 0.0
	if loaded {
		v = 1
	}
	w.m.ModelLoaded.WithLabelValues(condition).Set(v)
}

func (w *MetricsWrapper) ErrorsInc() {
	w.m.ErrorsTotal.Inc()
}
