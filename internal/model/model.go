// Package model implements the two classifier families the pipeline
// compares. Both satisfy one Classifier contract so the grid search and
// evaluation code is written once.
package model

import (
	"fmt"

	"credit-screener/internal/common"
)

// Params is one hyperparameter combination, keyed by axis name. Values are
// ints, floats or strings depending on the axis.
type Params map[string]any

// Float reads a numeric parameter, accepting int values for convenience.
func (p Params) Float(name string, dflt float64) float64 {
	switch v := p[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return dflt
	}
}

// Int reads an integer parameter.
func (p Params) Int(name string, dflt int) int {
	switch v := p[name].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return dflt
	}
}

// String reads a string parameter.
func (p Params) String(name, dflt string) string {
	if v, ok := p[name].(string); ok {
		return v
	}
	return dflt
}

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Classifier is the capability both model families expose: configure
// hyperparameters, fit on labeled rows, predict binary labels.
type Classifier interface {
	SetParams(p Params) error
	Fit(X [][]float64, y []int) error
	Predict(X [][]float64) ([]int, error)
}

// New constructs an unfitted classifier for a model family tag. The seed
// drives any randomized initialization the family performs.
func New(family string, seed int64) (Classifier, error) {
	switch family {
	case common.FamilyDecisionTree:
		return NewDecisionTree(), nil
	case common.FamilyFeedForward:
		return NewFeedForward(seed), nil
	default:
		return nil, fmt.Errorf("%w: unknown model family %q", common.ErrConfig, family)
	}
}

// Families lists the supported model family tags in their fixed pipeline
// order.
func Families() []string {
	return []string{common.FamilyDecisionTree, common.FamilyFeedForward}
}

func validateTrainingData(X [][]float64, y []int) error {
	if len(X) == 0 {
		return fmt.Errorf("empty training matrix")
	}
	if len(X) != len(y) {
		return fmt.Errorf("%d feature rows vs %d labels", len(X), len(y))
	}
	width := len(X[0])
	if width == 0 {
		return fmt.Errorf("training matrix has no columns")
	}
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("ragged matrix: row %d has %d columns, want %d", i, len(row), width)
		}
	}
	for i, label := range y {
		if label != 0 && label != 1 {
			return fmt.Errorf("label %d at row %d is not binary", label, i)
		}
	}
	return nil
}
