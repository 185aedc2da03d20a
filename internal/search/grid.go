// Package search runs cross-validated grid search over a model family's
// hyperparameter space and refits the winning combination on the full
// training partition.
package search

import (
	"fmt"
	"strings"

	"credit-screener/internal/common"
	"credit-screener/internal/model"
)

// Axis is one named hyperparameter dimension and its candidate values, in
// the order they are searched.
type Axis struct {
	Name   string `yaml:"name"`
	Values []any  `yaml:"values"`
}

// Grid is an ordered list of axes; the search space is their Cartesian
// product. Axis order fixes the enumeration order: the first axis varies
// slowest, the last fastest.
type Grid struct {
	Axes []Axis `yaml:"axes"`
}

// Size returns the number of combinations, 0 for an empty grid.
func (g Grid) Size() int {
	if len(g.Axes) == 0 {
		return 0
	}
	size := 1
	for _, ax := range g.Axes {
		size *= len(ax.Values)
	}
	return size
}

// Candidates enumerates every combination in the fixed order. Index in the
// returned slice is the candidate's identity for tie-breaking.
func (g Grid) Candidates() []model.Params {
	size := g.Size()
	if size == 0 {
		return nil
	}
	out := make([]model.Params, 0, size)
	idx := make([]int, len(g.Axes))
	for {
		p := make(model.Params, len(g.Axes))
		for i, ax := range g.Axes {
			p[ax.Name] = ax.Values[idx[i]]
		}
		out = append(out, p)

		k := len(idx) - 1
		for k >= 0 {
			idx[k]++
			if idx[k] < len(g.Axes[k].Values) {
				break
			}
			idx[k] = 0
			k--
		}
		if k < 0 {
			break
		}
	}
	return out
}

// Describe returns a compact one-line form for logs and error messages.
func (g Grid) Describe() string {
	parts := make([]string, len(g.Axes))
	for i, ax := range g.Axes {
		parts[i] = fmt.Sprintf("%s(%d)", ax.Name, len(ax.Values))
	}
	return strings.Join(parts, " x ")
}

// DefaultGrids returns the searched space per model family: 36 combinations
// for the decision tree, 16 for the feed-forward classifier.
func DefaultGrids() map[string]Grid {
	return map[string]Grid{
		common.FamilyDecisionTree: {Axes: []Axis{
			{Name: "max_depth", Values: []any{3, 5, 10}},
			{Name: "min_samples_split", Values: []any{2, 5, 10}},
			{Name: "criterion", Values: []any{model.CriterionGini, model.CriterionEntropy}},
			{Name: "min_samples_leaf", Values: []any{1, 2}},
		}},
		common.FamilyFeedForward: {Axes: []Axis{
			{Name: "hidden_size", Values: []any{8, 16}},
			{Name: "learning_rate", Values: []any{0.01, 0.1}},
			{Name: "max_iter", Values: []any{200, 500}},
			{Name: "l2", Values: []any{0.0001, 0.001}},
		}},
	}
}
