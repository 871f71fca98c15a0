package metrics

// Wrapper adapts Metrics to the narrow interface the predictor depends
// on, avoiding a circular import between ml and metrics.
type Wrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *Wrapper {
	return &Wrapper{m: m}
}

func (w *Wrapper) PredictionsInc() { w.m.PredictionsTotal.Inc() }

func (w *Wrapper) FailuresInc() { w.m.PredictionFailures.Inc() }

func (w *Wrapper) FallbackUseInc() { w.m.FallbackUse.Inc() }

func (w *Wrapper) LatencyObserve(seconds float64) { w.m.PredictionLatency.Observe(seconds) }

func (w *Wrapper) ModelAgeSet(seconds float64) { w.m.ModelAge.Set(seconds) }
