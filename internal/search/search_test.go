package search

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"sync"
	"testing"

	"credit-screener/internal/common"
	"credit-screener/internal/model"
)

// MockMetrics records searcher metric calls for assertions.
type MockMetrics struct {
	mu        sync.Mutex
	evaluated int
	failures  int
	durations int
	bestCalls map[string]float64
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{bestCalls: make(map[string]float64)}
}

func (m *MockMetrics) IncCandidatesEvaluated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluated++
}

func (m *MockMetrics) IncCandidateFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *MockMetrics) ObserveCandidateDuration(float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations++
}

func (m *MockMetrics) SetBestAccuracy(family string, accuracy float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bestCalls[family] = accuracy
}

// searchData builds rows where the label follows x0 with a little noise.
func searchData(n int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		x0 := rng.NormFloat64()
		X[i] = []float64{x0, rng.NormFloat64()}
		if x0+rng.NormFloat64()*0.3 > 0 {
			y[i] = 1
		}
	}
	return X, y
}

func smallTreeGrid() Grid {
	return Grid{Axes: []Axis{
		{Name: "max_depth", Values: []any{2, 4}},
		{Name: "criterion", Values: []any{model.CriterionGini, model.CriterionEntropy}},
	}}
}

func TestGridEnumerationOrder(t *testing.T) {
	t.Parallel()

	g := Grid{Axes: []Axis{
		{Name: "a", Values: []any{1, 2}},
		{Name: "b", Values: []any{"x", "y"}},
	}}
	got := g.Candidates()
	want := []model.Params{
		{"a": 1, "b": "x"},
		{"a": 1, "b": "y"},
		{"a": 2, "b": "x"},
		{"a": 2, "b": "y"},
	}
	if len(got) != len(want) {
		t.Fatalf("candidate count = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if !reflect.DeepEqual(got[i], want[i]) {
			t.Errorf("candidate %d = %v, want %v", i, got[i], want[i])
		}
	}
	if g.Size() != 4 {
		t.Errorf("Size() = %d, want 4", g.Size())
	}
}

func TestDefaultGridSizes(t *testing.T) {
	t.Parallel()

	grids := DefaultGrids()
	if size := grids[common.FamilyDecisionTree].Size(); size != 36 {
		t.Errorf("decision tree grid size = %d, want 36", size)
	}
	if size := grids[common.FamilyFeedForward].Size(); size != 16 {
		t.Errorf("feed-forward grid size = %d, want 16", size)
	}
}

func TestKFoldIndices(t *testing.T) {
	t.Parallel()

	folds, err := kfoldIndices(10, 3, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(folds) != 3 {
		t.Fatalf("fold count = %d, want 3", len(folds))
	}
	seen := make(map[int]bool)
	for _, fold := range folds {
		for _, i := range fold {
			if seen[i] {
				t.Fatalf("index %d assigned twice", i)
			}
			seen[i] = true
		}
	}
	if len(seen) != 10 {
		t.Errorf("folds cover %d of 10 rows", len(seen))
	}

	if _, err := kfoldIndices(10, 1, 42); !errors.Is(err, common.ErrConfig) {
		t.Errorf("k=1: got %v", err)
	}
	if _, err := kfoldIndices(2, 3, 42); !errors.Is(err, common.ErrConfig) {
		t.Errorf("n<k: got %v", err)
	}
}

func TestSearchDeterministic(t *testing.T) {
	t.Parallel()

	X, y := searchData(120, 10)
	run := func(workers int) *Result {
		s := NewSearcher(3, workers, 42, nil)
		res, err := s.Search(context.Background(), common.FamilyDecisionTree, smallTreeGrid(), X, y)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return res
	}

	first := run(1)
	second := run(1)
	if !reflect.DeepEqual(first.Params, second.Params) {
		t.Errorf("two identical runs selected %v and %v", first.Params, second.Params)
	}
	if first.MeanAccuracy != second.MeanAccuracy {
		t.Errorf("cv accuracy differs: %f vs %f", first.MeanAccuracy, second.MeanAccuracy)
	}

	parallel := run(4)
	if !reflect.DeepEqual(first.Params, parallel.Params) {
		t.Errorf("worker count changed the winner: %v vs %v", first.Params, parallel.Params)
	}
	if first.MeanAccuracy != parallel.MeanAccuracy {
		t.Errorf("worker count changed the score: %f vs %f", first.MeanAccuracy, parallel.MeanAccuracy)
	}
}

func TestSearchFeedForwardIterationCapNotFatal(t *testing.T) {
	t.Parallel()

	X, y := searchData(60, 11)
	grid := Grid{Axes: []Axis{
		{Name: "hidden_size", Values: []any{4}},
		{Name: "learning_rate", Values: []any{0.05}},
		{Name: "max_iter", Values: []any{2, 5}},
	}}
	s := NewSearcher(3, 2, 42, nil)
	res, err := s.Search(context.Background(), common.FamilyFeedForward, grid, X, y)
	if err != nil {
		t.Fatalf("iteration-capped candidates must still score, got: %v", err)
	}
	for _, c := range res.Candidates {
		if c.Failed {
			t.Errorf("candidate %d failed: %s", c.Index, c.FailureReason)
		}
	}
}

func TestSearchEmptyGrid(t *testing.T) {
	t.Parallel()

	X, y := searchData(30, 12)
	s := NewSearcher(3, 1, 42, nil)
	_, err := s.Search(context.Background(), common.FamilyDecisionTree, Grid{}, X, y)
	if !errors.Is(err, common.ErrConfig) {
		t.Errorf("empty grid: got %v, want configuration error", err)
	}
}

// brokenClassifier fails every fit.
type brokenClassifier struct{}

func (b *brokenClassifier) SetParams(model.Params) error { return nil }

func (b *brokenClassifier) Fit([][]float64, []int) error { return fmt.Errorf("singular input") }

func (b *brokenClassifier) Predict([][]float64) ([]int, error) {
	return nil, fmt.Errorf("not fitted")
}

func TestSearchAllCandidatesFail(t *testing.T) {
	t.Parallel()

	X, y := searchData(30, 13)
	m := NewMockMetrics()
	s := NewSearcher(3, 2, 42, m)
	s.SetFactory(func(string, int64) (model.Classifier, error) {
		return &brokenClassifier{}, nil
	})

	_, err := s.Search(context.Background(), common.FamilyDecisionTree, smallTreeGrid(), X, y)
	if !errors.Is(err, common.ErrTraining) {
		t.Fatalf("got %v, want training error", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures != 4 {
		t.Errorf("failure count = %d, want 4", m.failures)
	}
}

// constantClassifier predicts the training majority, so every candidate
// scores identically.
type constantClassifier struct{ label int }

func (c *constantClassifier) SetParams(model.Params) error { return nil }

func (c *constantClassifier) Fit(_ [][]float64, y []int) error {
	ones := 0
	for _, v := range y {
		ones += v
	}
	c.label = 0
	if 2*ones > len(y) {
		c.label = 1
	}
	return nil
}

func (c *constantClassifier) Predict(X [][]float64) ([]int, error) {
	out := make([]int, len(X))
	for i := range out {
		out[i] = c.label
	}
	return out, nil
}

func TestSearchTieBreakFirstCandidate(t *testing.T) {
	t.Parallel()

	X, y := searchData(60, 14)
	grid := smallTreeGrid()
	s := NewSearcher(3, 4, 42, nil)
	s.SetFactory(func(string, int64) (model.Classifier, error) {
		return &constantClassifier{}, nil
	})

	res, err := s.Search(context.Background(), common.FamilyDecisionTree, grid, X, y)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(res.Params, grid.Candidates()[0]) {
		t.Errorf("tie went to %v, want the first enumerated combination %v",
			res.Params, grid.Candidates()[0])
	}
}

func TestSearchCancellation(t *testing.T) {
	t.Parallel()

	X, y := searchData(80, 15)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewSearcher(3, 2, 42, nil)
	_, err := s.Search(ctx, common.FamilyDecisionTree, smallTreeGrid(), X, y)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}

	phase, _, _ := s.Progress()
	if phase == PhaseDone {
		t.Error("cancelled search must not report the done phase")
	}
}

func TestSearchMetricsAndProgress(t *testing.T) {
	t.Parallel()

	X, y := searchData(60, 16)
	m := NewMockMetrics()
	s := NewSearcher(3, 2, 42, m)

	res, err := s.Search(context.Background(), common.FamilyDecisionTree, smallTreeGrid(), X, y)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	phase, done, total := s.Progress()
	if phase != PhaseDone {
		t.Errorf("phase = %s, want done", phase)
	}
	if done != 4 || total != 4 {
		t.Errorf("progress = %d/%d, want 4/4", done, total)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.evaluated != 4 {
		t.Errorf("evaluated = %d, want 4", m.evaluated)
	}
	if m.durations != 4 {
		t.Errorf("duration observations = %d, want 4", m.durations)
	}
	if acc, ok := m.bestCalls[common.FamilyDecisionTree]; !ok || acc != res.MeanAccuracy {
		t.Errorf("best accuracy gauge = %f, want %f", acc, res.MeanAccuracy)
	}
}
