package metrics

// Wrapper provides a narrow method-per-metric surface so that the search
// and pipeline packages can record metrics without importing Prometheus
// types directly. A nil *Wrapper is safe to call, which keeps metrics
// optional in tests and library use.
type Wrapper struct {
	m *Metrics
}

// NewWrapper wraps a metrics set. Passing nil yields a no-op wrapper.
func NewWrapper(m *Metrics) *Wrapper {
	return &Wrapper{m: m}
}

// IncCandidatesEvaluated counts one scored hyperparameter candidate.
func (w *Wrapper) IncCandidatesEvaluated() {
	if w == nil || w.m == nil {
		return
	}
	w.m.CandidatesEvaluated.Inc()
}

// IncCandidateFailures counts one candidate whose training failed.
func (w *Wrapper) IncCandidateFailures() {
	if w == nil || w.m == nil {
		return
	}
	w.m.CandidateFailures.Inc()
}

// ObserveCandidateDuration records how long one candidate took to
// cross-validate, in seconds.
func (w *Wrapper) ObserveCandidateDuration(seconds float64) {
	if w == nil || w.m == nil {
		return
	}
	w.m.CandidateDuration.Observe(seconds)
}

// SetBestAccuracy publishes the winning cross-validation accuracy for a
// model family.
func (w *Wrapper) SetBestAccuracy(family string, accuracy float64) {
	if w == nil || w.m == nil {
		return
	}
	w.m.BestCVAccuracy.WithLabelValues(family).Set(accuracy)
}

// RunCompletedInc counts one finished evaluation run.
func (w *Wrapper) RunCompletedInc() {
	if w == nil || w.m == nil {
		return
	}
	w.m.RunsCompleted.Inc()
}

// RunAbortedInc counts one evaluation run that stopped before finishing.
func (w *Wrapper) RunAbortedInc() {
	if w == nil || w.m == nil {
		return
	}
	w.m.RunsAborted.Inc()
}

// RunDurationObserve records the end-to-end duration of one evaluation
// run, in seconds.
func (w *Wrapper) RunDurationObserve(seconds float64) {
	if w == nil || w.m == nil {
		return
	}
	w.m.RunDuration.Observe(seconds)
}

// TestAccuracySet publishes the held-out accuracy of one run.
func (w *Wrapper) TestAccuracySet(family, variant string, accuracy float64) {
	if w == nil || w.m == nil {
		return
	}
	w.m.TestAccuracy.WithLabelValues(family, variant).Set(accuracy)
}

// NetProfitSet publishes the cost-weighted net profit of one run.
func (w *Wrapper) NetProfitSet(family, variant string, profit float64) {
	if w == nil || w.m == nil {
		return
	}
	w.m.NetProfit.WithLabelValues(family, variant).Set(profit)
}

// RowsLoadedSet publishes the encoded dataset row count.
func (w *Wrapper) RowsLoadedSet(rows int) {
	if w == nil || w.m == nil {
		return
	}
	w.m.RowsLoaded.Set(float64(rows))
}

// FeaturesSelectedSet publishes how many features the ranking step kept.
func (w *Wrapper) FeaturesSelectedSet(count int) {
	if w == nil || w.m == nil {
		return
	}
	w.m.FeaturesSelected.Set(float64(count))
}

// ErrorsInc counts one pipeline error.
func (w *Wrapper) ErrorsInc() {
	if w == nil || w.m == nil {
		return
	}
	w.m.ErrorsTotal.Inc()
}
