// Package pipeline orchestrates the end-to-end model screening flow:
// feature ranking, stratified splitting, scaling, hyperparameter search,
// and cost-weighted evaluation on the held-out split.
//
// The orchestrator produces one result per model family and feature
// variant. It never ranks the finished runs against each other; reading
// the comparison is left to the reporter and the operator.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"credit-screener/internal/common"
	"credit-screener/internal/dataset"
	"credit-screener/internal/evaluate"
	"credit-screener/internal/features"
	"credit-screener/internal/metrics"
	"credit-screener/internal/model"
	"credit-screener/internal/preprocess"
	"credit-screener/internal/search"
)

// Run states reported by Status for the dashboard.
const (
	StatePending   = "pending"
	StateSearching = "searching"
	StateDone      = "done"
	StateAborted   = "aborted"
)

// Options configures one orchestrated evaluation.
type Options struct {
	TestFraction float64
	Seed         int64
	TopN         int
	Folds        int
	Workers      int
	Weights      evaluate.OutcomeWeights
	Grids        map[string]search.Grid
}

// DefaultOptions returns the standard screening configuration.
func DefaultOptions() Options {
	return Options{
		TestFraction: common.DefaultTestFraction,
		Seed:         common.DefaultRandomSeed,
		TopN:         common.DefaultTopFeatures,
		Folds:        common.DefaultCVFolds,
		Workers:      0,
		Weights:      evaluate.DefaultWeights(),
		Grids:        search.DefaultGrids(),
	}
}

// RunResult captures the outcome of one family and feature variant.
// Aborted runs keep their labels and carry the failure in Error so the
// report always lists every planned combination.
type RunResult struct {
	Family          string                    `json:"family"`
	Variant         string                    `json:"variant"`
	FeatureNames    []string                  `json:"feature_names"`
	Params          model.Params              `json:"params,omitempty"`
	CVAccuracy      float64                   `json:"cv_accuracy"`
	FoldAccuracies  []float64                 `json:"fold_accuracies,omitempty"`
	TestAccuracy    float64                   `json:"test_accuracy"`
	Confusion       *evaluate.ConfusionMatrix `json:"confusion,omitempty"`
	NetProfit       float64                   `json:"net_profit"`
	DurationSeconds float64                   `json:"duration_seconds"`
	Aborted         bool                      `json:"aborted"`
	Error           string                    `json:"error,omitempty"`
}

// Summary is the full record of one orchestrated evaluation, suitable for
// reporting and storage. Runs appear in the fixed planning order.
type Summary struct {
	StartedAt    time.Time               `json:"started_at"`
	FinishedAt   time.Time               `json:"finished_at"`
	Rows         int                     `json:"rows"`
	Features     int                     `json:"features"`
	Target       string                  `json:"target"`
	Seed         int64                   `json:"seed"`
	TestFraction float64                 `json:"test_fraction"`
	Weights      evaluate.OutcomeWeights `json:"weights"`
	TopFeatures  []features.Ranked       `json:"top_features,omitempty"`
	Runs         []RunResult             `json:"runs"`
}

// RunStatus is a point-in-time view of one planned run for the dashboard.
type RunStatus struct {
	Family          string  `json:"family"`
	Variant         string  `json:"variant"`
	State           string  `json:"state"`
	CandidatesDone  int     `json:"candidates_done"`
	CandidatesTotal int     `json:"candidates_total"`
	CVAccuracy      float64 `json:"cv_accuracy"`
	TestAccuracy    float64 `json:"test_accuracy"`
	NetProfit       float64 `json:"net_profit"`
}

type runSpec struct {
	family  string
	variant string
}

// Orchestrator drives every planned family and variant combination over
// one prepared dataset.
type Orchestrator struct {
	opts    Options
	metrics *metrics.Wrapper

	mu       sync.RWMutex
	statuses []RunStatus
	active   *search.Searcher
}

// New creates an orchestrator. The metrics wrapper may be nil.
func New(opts Options, m *metrics.Wrapper) *Orchestrator {
	if opts.Grids == nil {
		opts.Grids = search.DefaultGrids()
	}
	o := &Orchestrator{opts: opts, metrics: m}
	for _, spec := range o.plan() {
		o.statuses = append(o.statuses, RunStatus{
			Family:  spec.family,
			Variant: spec.variant,
			State:   StatePending,
		})
	}
	return o
}

// plan returns the fixed run order: each family first on all features,
// then on the selected subset.
func (o *Orchestrator) plan() []runSpec {
	var specs []runSpec
	for _, family := range model.Families() {
		specs = append(specs, runSpec{family: family, variant: common.VariantAllFeatures})
		specs = append(specs, runSpec{family: family, variant: common.VariantTopFeatures})
	}
	return specs
}

// Status returns a snapshot of every planned run. Safe to call while Run
// is in flight.
func (o *Orchestrator) Status() []RunStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]RunStatus, len(o.statuses))
	copy(out, o.statuses)
	if o.active != nil {
		_, done, total := o.active.Progress()
		for i := range out {
			if out[i].State == StateSearching {
				out[i].CandidatesDone = done
				out[i].CandidatesTotal = total
			}
		}
	}
	return out
}

func (o *Orchestrator) setStatus(i int, mutate func(*RunStatus)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	mutate(&o.statuses[i])
}

func (o *Orchestrator) setActive(s *search.Searcher) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active = s
}

// variantData holds the prepared matrices for one feature variant, or the
// error that made preparation impossible.
type variantData struct {
	names []string
	split *preprocess.TrainTest
	err   error
}

// Run executes every planned combination against the encoded dataset.
// Failed runs are labeled aborted and the remaining independent runs
// still execute; the first failure is returned alongside the summary.
func (o *Orchestrator) Run(ctx context.Context, ds *dataset.Dataset) (*Summary, error) {
	started := time.Now()
	summary := &Summary{
		StartedAt:    started,
		Rows:         ds.NumRows(),
		Features:     len(ds.FeatureNames()),
		Target:       ds.Target,
		Seed:         o.opts.Seed,
		TestFraction: o.opts.TestFraction,
		Weights:      o.opts.Weights,
	}

	log.Info().
		Int("rows", summary.Rows).
		Int("features", summary.Features).
		Str("target", ds.Target).
		Float64("test_fraction", o.opts.TestFraction).
		Int64("seed", o.opts.Seed).
		Msg("Starting model screening")

	o.metrics.RowsLoadedSet(summary.Rows)

	variants, splitErr := o.prepare(ds, summary)

	var firstErr error
	for i, spec := range o.plan() {
		var res RunResult
		var runErr error
		if splitErr != nil {
			res, runErr = o.abortedRun(i, spec, splitErr)
		} else {
			res, runErr = o.runOne(ctx, i, spec, variants[spec.variant])
		}
		if runErr != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s on %s: %w", res.Family, res.Variant, runErr)
		}
		summary.Runs = append(summary.Runs, res)
	}

	summary.FinishedAt = time.Now()
	log.Info().
		Dur("elapsed", summary.FinishedAt.Sub(started)).
		Int("runs", len(summary.Runs)).
		Msg("Model screening finished")
	return summary, firstErr
}

// prepare ranks features and builds the scaled split for each variant.
// A nil map with a non-nil error means nothing could be prepared at all.
func (o *Orchestrator) prepare(ds *dataset.Dataset, summary *Summary) (map[string]*variantData, error) {
	labels, err := ds.Labels()
	if err != nil {
		return nil, fmt.Errorf("target labels: %w", err)
	}
	trainIdx, testIdx, err := preprocess.StratifiedIndices(labels, o.opts.TestFraction, o.opts.Seed)
	if err != nil {
		return nil, fmt.Errorf("stratified split: %w", err)
	}

	variants := make(map[string]*variantData)
	variants[common.VariantAllFeatures] = o.prepareVariant(ds, ds.FeatureNames(), trainIdx, testIdx)

	top := &variantData{}
	names, err := features.TopFeatures(ds, ds.Target, o.opts.TopN)
	if err != nil {
		top.err = fmt.Errorf("feature ranking: %w", err)
	} else {
		if ranked, rerr := features.Rank(ds, ds.Target); rerr == nil {
			summary.TopFeatures = ranked[:len(names)]
		}
		o.metrics.FeaturesSelectedSet(len(names))
		top = o.prepareVariant(ds, names, trainIdx, testIdx)
	}
	variants[common.VariantTopFeatures] = top
	return variants, nil
}

// prepareVariant partitions the chosen columns and standardizes them with
// statistics fitted on the training rows only.
func (o *Orchestrator) prepareVariant(ds *dataset.Dataset, names []string, trainIdx, testIdx []int) *variantData {
	X, err := ds.Matrix(names)
	if err != nil {
		return &variantData{err: err}
	}
	labels, err := ds.Labels()
	if err != nil {
		return &variantData{err: fmt.Errorf("target labels: %w", err)}
	}
	tt, err := preprocess.Partition(X, labels, trainIdx, testIdx)
	if err != nil {
		return &variantData{err: err}
	}
	scaled, _, err := preprocess.ScaleSplit(tt)
	if err != nil {
		return &variantData{err: err}
	}
	return &variantData{names: names, split: scaled}
}

func (o *Orchestrator) abortedRun(idx int, spec runSpec, err error) (RunResult, error) {
	o.metrics.RunAbortedInc()
	o.metrics.ErrorsInc()
	o.setStatus(idx, func(s *RunStatus) { s.State = StateAborted })
	return RunResult{
		Family:  spec.family,
		Variant: spec.variant,
		Aborted: true,
		Error:   err.Error(),
	}, err
}

// runOne searches one family on one variant and evaluates the refit
// winner on the held-out rows.
func (o *Orchestrator) runOne(ctx context.Context, idx int, spec runSpec, data *variantData) (RunResult, error) {
	if data.err != nil {
		log.Warn().Err(data.err).
			Str("family", spec.family).
			Str("variant", spec.variant).
			Msg("Skipping run, variant preparation failed")
		return o.abortedRun(idx, spec, data.err)
	}

	started := time.Now()
	grid := o.opts.Grids[spec.family]
	searcher := search.NewSearcher(o.opts.Folds, o.opts.Workers, o.opts.Seed, o.metrics)
	o.setActive(searcher)
	o.setStatus(idx, func(s *RunStatus) {
		s.State = StateSearching
		s.CandidatesTotal = grid.Size()
	})

	result := RunResult{
		Family:       spec.family,
		Variant:      spec.variant,
		FeatureNames: data.names,
	}

	best, err := searcher.Search(ctx, spec.family, grid, data.split.XTrain, data.split.YTrain)
	if err != nil {
		return o.failRun(idx, result, started, fmt.Errorf("search: %w", err))
	}
	result.Params = best.Params
	result.CVAccuracy = best.MeanAccuracy
	result.FoldAccuracies = best.FoldAccuracies

	preds, err := best.Model.Predict(data.split.XTest)
	if err != nil {
		return o.failRun(idx, result, started, fmt.Errorf("held-out prediction: %w", err))
	}
	cm, profit, err := evaluate.Evaluate(data.split.YTest, preds, o.opts.Weights)
	if err != nil {
		return o.failRun(idx, result, started, fmt.Errorf("held-out evaluation: %w", err))
	}

	result.TestAccuracy = cm.Accuracy()
	result.Confusion = &cm
	result.NetProfit = profit
	result.DurationSeconds = time.Since(started).Seconds()

	o.metrics.RunCompletedInc()
	o.metrics.RunDurationObserve(result.DurationSeconds)
	o.metrics.TestAccuracySet(spec.family, spec.variant, result.TestAccuracy)
	o.metrics.NetProfitSet(spec.family, spec.variant, result.NetProfit)
	o.setStatus(idx, func(s *RunStatus) {
		s.State = StateDone
		s.CandidatesDone = grid.Size()
		s.CandidatesTotal = grid.Size()
		s.CVAccuracy = result.CVAccuracy
		s.TestAccuracy = result.TestAccuracy
		s.NetProfit = result.NetProfit
	})

	log.Info().
		Str("family", spec.family).
		Str("variant", spec.variant).
		Float64("cv_accuracy", result.CVAccuracy).
		Float64("test_accuracy", result.TestAccuracy).
		Float64("net_profit", result.NetProfit).
		Dur("elapsed", time.Since(started)).
		Msg("Run finished")
	return result, nil
}

func (o *Orchestrator) failRun(idx int, result RunResult, started time.Time, err error) (RunResult, error) {
	log.Warn().Err(err).
		Str("family", result.Family).
		Str("variant", result.Variant).
		Msg("Run aborted")

	result.Aborted = true
	result.Error = err.Error()
	result.DurationSeconds = time.Since(started).Seconds()
	o.metrics.RunAbortedInc()
	o.metrics.ErrorsInc()
	o.setStatus(idx, func(s *RunStatus) { s.State = StateAborted })
	return result, err
}
