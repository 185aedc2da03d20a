package search

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"

	"credit-screener/internal/common"
	"credit-screener/internal/evaluate"
	"credit-screener/internal/model"
)

// MetricsInterface is the narrow surface the searcher reports to. A nil
// implementation disables reporting.
type MetricsInterface interface {
	IncCandidatesEvaluated()
	IncCandidateFailures()
	ObserveCandidateDuration(seconds float64)
	SetBestAccuracy(family string, accuracy float64)
}

// Phase tracks where a search is in its lifecycle.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseEvaluating
	PhaseBestSelected
	PhaseRefit
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseEvaluating:
		return "evaluating"
	case PhaseBestSelected:
		return "best-selected"
	case PhaseRefit:
		return "refit"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// CandidateScore is one grid point's cross-validation outcome.
type CandidateScore struct {
	Index          int          `json:"index"`
	Params         model.Params `json:"params"`
	FoldAccuracies []float64    `json:"fold_accuracies,omitempty"`
	MeanAccuracy   float64      `json:"mean_accuracy"`
	Failed         bool         `json:"failed,omitempty"`
	FailureReason  string       `json:"failure_reason,omitempty"`
}

// Result is the terminal state of one search: the winning combination, the
// model refit on the full training partition, and every candidate's score.
type Result struct {
	Family         string           `json:"family"`
	Params         model.Params     `json:"params"`
	MeanAccuracy   float64          `json:"mean_accuracy"`
	FoldAccuracies []float64        `json:"fold_accuracies"`
	Model          model.Classifier `json:"-"`
	Candidates     []CandidateScore `json:"candidates,omitempty"`
}

// Factory builds an unfitted classifier for a family; swapped in tests.
type Factory func(family string, seed int64) (model.Classifier, error)

// Searcher runs k-fold cross-validated grid search. Candidates are
// evaluated on a worker pool; the winner is chosen only after every score
// is collected, so worker scheduling never influences the outcome.
type Searcher struct {
	folds   int
	workers int
	seed    int64
	metrics MetricsInterface
	factory Factory

	phase atomic.Int32
	done  atomic.Int64
	total atomic.Int64
}

// NewSearcher builds a searcher. workers <= 0 means one worker per CPU.
func NewSearcher(folds, workers int, seed int64, m MetricsInterface) *Searcher {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Searcher{
		folds:   folds,
		workers: workers,
		seed:    seed,
		metrics: m,
		factory: model.New,
	}
}

// SetFactory replaces the classifier constructor.
func (s *Searcher) SetFactory(f Factory) {
	s.factory = f
}

// Progress reports the current phase and candidate counts.
func (s *Searcher) Progress() (Phase, int, int) {
	return Phase(s.phase.Load()), int(s.done.Load()), int(s.total.Load())
}

// Search evaluates every grid combination with k-fold cross-validation and
// returns the best one refit on all of X. The context reaches the
// per-candidate loop: cancelling aborts the search without touching scores
// already recorded.
func (s *Searcher) Search(ctx context.Context, family string, grid Grid, X [][]float64, y []int) (*Result, error) {
	candidates := grid.Candidates()
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: hyperparameter grid for family %q is empty", common.ErrConfig, family)
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("%w: %d feature rows vs %d labels", common.ErrConfig, len(X), len(y))
	}

	folds, err := kfoldIndices(len(y), s.folds, s.seed)
	if err != nil {
		return nil, err
	}

	s.phase.Store(int32(PhaseEvaluating))
	s.total.Store(int64(len(candidates)))
	s.done.Store(0)
	defer func() {
		if Phase(s.phase.Load()) != PhaseDone {
			s.phase.Store(int32(PhaseIdle))
		}
	}()

	log.Info().
		Str("family", family).
		Str("grid", grid.Describe()).
		Int("candidates", len(candidates)).
		Int("folds", s.folds).
		Int("workers", s.workers).
		Msg("Starting hyperparameter search")

	scores := make([]CandidateScore, len(candidates))
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := s.workers
	if workers > len(candidates) {
		workers = len(candidates)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				scores[idx] = s.scoreCandidate(ctx, family, idx, candidates[idx], X, y, folds)
				s.done.Add(1)
			}
		}()
	}

feed:
	for i := range candidates {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		log.Warn().
			Str("family", family).
			Int64("scored", s.done.Load()).
			Msg("Hyperparameter search aborted")
		return nil, fmt.Errorf("hyperparameter search aborted: %w", err)
	}

	// Winner selection happens only now, over the complete score table, so
	// arrival order cannot leak into the tie-break.
	best := -1
	failures := 0
	var firstFailure string
	for i := range scores {
		if scores[i].Failed {
			failures++
			if firstFailure == "" {
				firstFailure = scores[i].FailureReason
			}
			continue
		}
		if best < 0 || scores[i].MeanAccuracy > scores[best].MeanAccuracy {
			best = i
		}
	}
	if best < 0 {
		return nil, fmt.Errorf("%w: all %d candidates failed for family %q (grid %s); first failure: %s",
			common.ErrTraining, len(candidates), family, grid.Describe(), firstFailure)
	}

	s.phase.Store(int32(PhaseBestSelected))
	if s.metrics != nil {
		s.metrics.SetBestAccuracy(family, scores[best].MeanAccuracy)
	}
	log.Info().
		Str("family", family).
		Interface("params", scores[best].Params).
		Float64("cv_accuracy", scores[best].MeanAccuracy).
		Int("failed_candidates", failures).
		Msg("Best candidate selected")

	s.phase.Store(int32(PhaseRefit))
	clf, err := s.factory(family, s.seed)
	if err != nil {
		return nil, err
	}
	if err := clf.SetParams(scores[best].Params); err != nil {
		return nil, fmt.Errorf("%w: winning candidate rejected its parameters: %v", common.ErrTraining, err)
	}
	if err := clf.Fit(X, y); err != nil {
		return nil, fmt.Errorf("%w: winning candidate failed to refit on the full training set: %v",
			common.ErrTraining, err)
	}

	s.phase.Store(int32(PhaseDone))
	return &Result{
		Family:         family,
		Params:         scores[best].Params.Clone(),
		MeanAccuracy:   scores[best].MeanAccuracy,
		FoldAccuracies: append([]float64(nil), scores[best].FoldAccuracies...),
		Model:          clf,
		Candidates:     scores,
	}, nil
}

// scoreCandidate fits and scores one combination across all folds. A failure
// on any fold fails the candidate; the search itself continues.
func (s *Searcher) scoreCandidate(ctx context.Context, family string, idx int, params model.Params, X [][]float64, y []int, folds [][]int) CandidateScore {
	start := time.Now()
	cs := CandidateScore{Index: idx, Params: params}

	for f := range folds {
		if err := ctx.Err(); err != nil {
			cs.Failed = true
			cs.FailureReason = err.Error()
			return cs
		}

		trainX, trainY, valX, valY := foldSplit(X, y, folds, f)

		clf, err := s.factory(family, s.seed)
		if err != nil {
			cs.Failed = true
			cs.FailureReason = err.Error()
			break
		}
		if err := clf.SetParams(params); err != nil {
			cs.Failed = true
			cs.FailureReason = err.Error()
			break
		}
		if err := clf.Fit(trainX, trainY); err != nil {
			cs.Failed = true
			cs.FailureReason = err.Error()
			break
		}
		pred, err := clf.Predict(valX)
		if err != nil {
			cs.Failed = true
			cs.FailureReason = err.Error()
			break
		}
		cm, err := evaluate.Confusion(valY, pred)
		if err != nil {
			cs.Failed = true
			cs.FailureReason = err.Error()
			break
		}
		cs.FoldAccuracies = append(cs.FoldAccuracies, cm.Accuracy())
	}

	if !cs.Failed {
		cs.MeanAccuracy = stat.Mean(cs.FoldAccuracies, nil)
	}

	if s.metrics != nil {
		s.metrics.IncCandidatesEvaluated()
		if cs.Failed {
			s.metrics.IncCandidateFailures()
		}
		s.metrics.ObserveCandidateDuration(time.Since(start).Seconds())
	}
	return cs
}

// kfoldIndices deals shuffled row indices round-robin into k folds.
func kfoldIndices(n, k int, seed int64) ([][]int, error) {
	if k < 2 {
		return nil, fmt.Errorf("%w: %d folds, want at least 2", common.ErrConfig, k)
	}
	if n < k {
		return nil, fmt.Errorf("%w: %d rows cannot fill %d folds", common.ErrConfig, n, k)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	folds := make([][]int, k)
	for i, p := range perm {
		folds[i%k] = append(folds[i%k], p)
	}
	return folds, nil
}

// foldSplit assembles the validation rows of fold f and the training rows of
// every other fold. Rows are shared, not copied; models treat them as
// read-only.
func foldSplit(X [][]float64, y []int, folds [][]int, f int) (trainX [][]float64, trainY []int, valX [][]float64, valY []int) {
	for i, fold := range folds {
		for _, r := range fold {
			if i == f {
				valX = append(valX, X[r])
				valY = append(valY, y[r])
			} else {
				trainX = append(trainX, X[r])
				trainY = append(trainY, y[r])
			}
		}
	}
	return trainX, trainY, valX, valY
}
