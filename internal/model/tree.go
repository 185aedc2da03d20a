package model

import (
	"fmt"
	"math"
	"sort"
)

// Decision tree criteria.
const (
	CriterionGini    = "gini"
	CriterionEntropy = "entropy"
)

// Decision tree hyperparameter defaults.
const (
	defaultMaxDepth        = 5
	defaultMinSamplesSplit = 2
	defaultMinSamplesLeaf  = 1
)

type treeNode struct {
	leaf      bool
	label     int
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

// DecisionTree is a CART-style binary classifier: axis-aligned threshold
// splits chosen by impurity decrease, majority-vote leaves. Fitting is fully
// deterministic for a given input.
type DecisionTree struct {
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	criterion       string

	root      *treeNode
	nFeatures int
}

// NewDecisionTree returns a tree with default hyperparameters.
func NewDecisionTree() *DecisionTree {
	return &DecisionTree{
		maxDepth:        defaultMaxDepth,
		minSamplesSplit: defaultMinSamplesSplit,
		minSamplesLeaf:  defaultMinSamplesLeaf,
		criterion:       CriterionGini,
	}
}

// SetParams configures the tree from a grid point. Unknown keys are ignored
// so one grid definition can carry family-agnostic entries.
func (t *DecisionTree) SetParams(p Params) error {
	t.maxDepth = p.Int("max_depth", defaultMaxDepth)
	t.minSamplesSplit = p.Int("min_samples_split", defaultMinSamplesSplit)
	t.minSamplesLeaf = p.Int("min_samples_leaf", defaultMinSamplesLeaf)
	t.criterion = p.String("criterion", CriterionGini)

	if t.maxDepth < 1 {
		return fmt.Errorf("max_depth %d, want at least 1", t.maxDepth)
	}
	if t.minSamplesSplit < 2 {
		return fmt.Errorf("min_samples_split %d, want at least 2", t.minSamplesSplit)
	}
	if t.minSamplesLeaf < 1 {
		return fmt.Errorf("min_samples_leaf %d, want at least 1", t.minSamplesLeaf)
	}
	if t.criterion != CriterionGini && t.criterion != CriterionEntropy {
		return fmt.Errorf("criterion %q, want %q or %q", t.criterion, CriterionGini, CriterionEntropy)
	}
	return nil
}

// Fit grows the tree on the full training set.
func (t *DecisionTree) Fit(X [][]float64, y []int) error {
	if err := validateTrainingData(X, y); err != nil {
		return fmt.Errorf("decision tree fit: %w", err)
	}
	t.nFeatures = len(X[0])

	indices := make([]int, len(X))
	for i := range indices {
		indices[i] = i
	}
	t.root = t.buildNode(X, y, indices, 0)
	return nil
}

// Predict walks each row down the tree.
func (t *DecisionTree) Predict(X [][]float64) ([]int, error) {
	if t.root == nil {
		return nil, fmt.Errorf("decision tree predict: model is not fitted")
	}
	out := make([]int, len(X))
	for i, row := range X {
		if len(row) != t.nFeatures {
			return nil, fmt.Errorf("decision tree predict: row %d has %d features, model was fitted on %d",
				i, len(row), t.nFeatures)
		}
		node := t.root
		for !node.leaf {
			if row[node.feature] <= node.threshold {
				node = node.left
			} else {
				node = node.right
			}
		}
		out[i] = node.label
	}
	return out, nil
}

// Depth returns the depth of the fitted tree, 0 for a single leaf.
func (t *DecisionTree) Depth() int {
	return nodeDepth(t.root)
}

// NodeCount returns the number of nodes in the fitted tree.
func (t *DecisionTree) NodeCount() int {
	return countNodes(t.root)
}

func (t *DecisionTree) buildNode(X [][]float64, y []int, indices []int, depth int) *treeNode {
	var counts [2]int
	for _, i := range indices {
		counts[y[i]]++
	}
	majority := 0
	if counts[1] > counts[0] {
		majority = 1
	}

	pure := counts[0] == 0 || counts[1] == 0
	if pure || depth >= t.maxDepth || len(indices) < t.minSamplesSplit {
		return &treeNode{leaf: true, label: majority}
	}

	feature, threshold, ok := t.bestSplit(X, y, indices, counts)
	if !ok {
		return &treeNode{leaf: true, label: majority}
	}

	var left, right []int
	for _, i := range indices {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &treeNode{leaf: true, label: majority}
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      t.buildNode(X, y, left, depth+1),
		right:     t.buildNode(X, y, right, depth+1),
	}
}

// bestSplit scans every feature's sorted value boundaries and returns the
// split with the largest impurity decrease. Features are visited in index
// order and only a strict improvement replaces the incumbent, so ties fall
// to the lowest feature index and threshold.
func (t *DecisionTree) bestSplit(X [][]float64, y []int, indices []int, counts [2]int) (int, float64, bool) {
	n := len(indices)
	parent := t.impurity(counts, n)

	bestGain := 1e-12
	bestFeature, bestThreshold := -1, 0.0
	sorted := make([]int, n)

	for f := 0; f < t.nFeatures; f++ {
		copy(sorted, indices)
		sort.Slice(sorted, func(a, b int) bool {
			return X[sorted[a]][f] < X[sorted[b]][f]
		})

		var leftCounts [2]int
		rightCounts := counts
		for i := 0; i < n-1; i++ {
			label := y[sorted[i]]
			leftCounts[label]++
			rightCounts[label]--

			v, next := X[sorted[i]][f], X[sorted[i+1]][f]
			if v == next {
				continue
			}
			nLeft, nRight := i+1, n-1-i
			if nLeft < t.minSamplesLeaf || nRight < t.minSamplesLeaf {
				continue
			}

			weighted := (float64(nLeft)*t.impurity(leftCounts, nLeft) +
				float64(nRight)*t.impurity(rightCounts, nRight)) / float64(n)
			gain := parent - weighted
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (v + next) / 2
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

func (t *DecisionTree) impurity(counts [2]int, n int) float64 {
	if n == 0 {
		return 0
	}
	if t.criterion == CriterionEntropy {
		e := 0.0
		for _, c := range counts {
			if c == 0 {
				continue
			}
			p := float64(c) / float64(n)
			e -= p * math.Log2(p)
		}
		return e
	}
	g := 1.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		g -= p * p
	}
	return g
}

func nodeDepth(n *treeNode) int {
	if n == nil || n.leaf {
		return 0
	}
	l, r := nodeDepth(n.left), nodeDepth(n.right)
	if l > r {
		return l + 1
	}
	return r + 1
}

func countNodes(n *treeNode) int {
	if n == nil {
		return 0
	}
	if n.leaf {
		return 1
	}
	return 1 + countNodes(n.left) + countNodes(n.right)
}
