// Package preprocess owns the stratified train/test partition and the
// feature standardizer. The standardizer is always fitted on the training
// partition only; test rows are transformed with training statistics.
package preprocess

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"credit-screener/internal/common"
)

// TrainTest holds one disjoint train/test partition. Matrices are fresh
// copies; the source data is never aliased or mutated.
type TrainTest struct {
	XTrain [][]float64
	YTrain []int
	XTest  [][]float64
	YTest  []int

	TrainIndex []int
	TestIndex  []int
}

// StratifiedIndices partitions row indices so each class's share of the test
// partition matches testFraction within integer rounding. The same seed
// always yields the same partition. Classes are required to have at least 2
// members, and the rounded per-class test count must leave both partitions
// non-empty.
func StratifiedIndices(y []int, testFraction float64, seed int64) (trainIdx, testIdx []int, err error) {
	if testFraction <= common.MinTestFraction || testFraction >= common.MaxTestFraction {
		return nil, nil, fmt.Errorf("%w: test fraction %g outside (0,1)", common.ErrConfig, testFraction)
	}
	if len(y) == 0 {
		return nil, nil, fmt.Errorf("%w: empty label vector", common.ErrConfig)
	}

	byClass := make(map[int][]int)
	for i, label := range y {
		if label != 0 && label != 1 {
			return nil, nil, fmt.Errorf("%w: label %d at row %d is not binary", common.ErrConfig, label, i)
		}
		byClass[label] = append(byClass[label], i)
	}

	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	rng := rand.New(rand.NewSource(seed))
	for _, c := range classes {
		idx := byClass[c]
		if len(idx) < 2 {
			return nil, nil, fmt.Errorf("%w: class %d has %d member(s), stratification needs at least 2",
				common.ErrConfig, c, len(idx))
		}

		shuffled := make([]int, len(idx))
		copy(shuffled, idx)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		nTest := int(math.Round(testFraction * float64(len(idx))))
		if nTest == 0 || nTest == len(idx) {
			return nil, nil, fmt.Errorf("%w: test fraction %g leaves an empty partition for class %d",
				common.ErrConfig, testFraction, c)
		}

		testIdx = append(testIdx, shuffled[:nTest]...)
		trainIdx = append(trainIdx, shuffled[nTest:]...)
	}

	sort.Ints(trainIdx)
	sort.Ints(testIdx)
	return trainIdx, testIdx, nil
}

// Partition copies the given rows of X and y into a TrainTest.
func Partition(X [][]float64, y []int, trainIdx, testIdx []int) (*TrainTest, error) {
	if len(X) != len(y) {
		return nil, fmt.Errorf("%w: %d feature rows vs %d labels", common.ErrConfig, len(X), len(y))
	}
	tt := &TrainTest{
		XTrain:     make([][]float64, len(trainIdx)),
		YTrain:     make([]int, len(trainIdx)),
		XTest:      make([][]float64, len(testIdx)),
		YTest:      make([]int, len(testIdx)),
		TrainIndex: append([]int(nil), trainIdx...),
		TestIndex:  append([]int(nil), testIdx...),
	}
	for i, r := range trainIdx {
		if r < 0 || r >= len(X) {
			return nil, fmt.Errorf("%w: train index %d out of range", common.ErrConfig, r)
		}
		tt.XTrain[i] = append([]float64(nil), X[r]...)
		tt.YTrain[i] = y[r]
	}
	for i, r := range testIdx {
		if r < 0 || r >= len(X) {
			return nil, fmt.Errorf("%w: test index %d out of range", common.ErrConfig, r)
		}
		tt.XTest[i] = append([]float64(nil), X[r]...)
		tt.YTest[i] = y[r]
	}
	return tt, nil
}

// StratifiedSplit is the one-call form: stratified indices plus row copies.
func StratifiedSplit(X [][]float64, y []int, testFraction float64, seed int64) (*TrainTest, error) {
	if len(X) != len(y) {
		return nil, fmt.Errorf("%w: %d feature rows vs %d labels", common.ErrConfig, len(X), len(y))
	}
	trainIdx, testIdx, err := StratifiedIndices(y, testFraction, seed)
	if err != nil {
		return nil, err
	}
	return Partition(X, y, trainIdx, testIdx)
}
