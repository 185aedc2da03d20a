package model

import (
	"fmt"
	"math"
	"math/rand"
)

// Feed-forward hyperparameter defaults.
const (
	defaultHiddenSize   = 8
	defaultLearningRate = 0.1
	defaultMaxIter      = 500
	defaultL2           = 0.0001

	lossTolerance = 1e-6
	probEpsilon   = 1e-12
)

// FeedForward is a single-hidden-layer binary classifier trained with
// full-batch gradient descent on the cross-entropy loss. Weight
// initialization is driven by the seed, so the same seed and data always
// produce the same fitted weights. Hitting the iteration cap is recorded,
// not treated as a failure; only numerical divergence is an error.
type FeedForward struct {
	hiddenSize   int
	learningRate float64
	maxIter      int
	l2           float64
	seed         int64

	inputSize int
	w1        [][]float64 // input x hidden
	b1        []float64
	w2        []float64 // hidden
	b2        float64

	fitted    bool
	converged bool
	iterRun   int
	finalLoss float64
}

// NewFeedForward returns an unfitted network with default hyperparameters.
func NewFeedForward(seed int64) *FeedForward {
	return &FeedForward{
		hiddenSize:   defaultHiddenSize,
		learningRate: defaultLearningRate,
		maxIter:      defaultMaxIter,
		l2:           defaultL2,
		seed:         seed,
	}
}

// SetParams configures the network from a grid point.
func (ff *FeedForward) SetParams(p Params) error {
	ff.hiddenSize = p.Int("hidden_size", defaultHiddenSize)
	ff.learningRate = p.Float("learning_rate", defaultLearningRate)
	ff.maxIter = p.Int("max_iter", defaultMaxIter)
	ff.l2 = p.Float("l2", defaultL2)

	if ff.hiddenSize < 1 {
		return fmt.Errorf("hidden_size %d, want at least 1", ff.hiddenSize)
	}
	if ff.learningRate <= 0 {
		return fmt.Errorf("learning_rate %g, want positive", ff.learningRate)
	}
	if ff.maxIter < 1 {
		return fmt.Errorf("max_iter %d, want at least 1", ff.maxIter)
	}
	if ff.l2 < 0 {
		return fmt.Errorf("l2 %g, want non-negative", ff.l2)
	}
	return nil
}

// Fit trains the network. Returns an error only on invalid input or
// numerical divergence; an unconverged fit keeps its current weights.
func (ff *FeedForward) Fit(X [][]float64, y []int) error {
	if err := validateTrainingData(X, y); err != nil {
		return fmt.Errorf("feed-forward fit: %w", err)
	}

	n := len(X)
	ff.inputSize = len(X[0])
	ff.initWeights()

	hidden := make([][]float64, n)
	for i := range hidden {
		hidden[i] = make([]float64, ff.hiddenSize)
	}
	probs := make([]float64, n)

	gw1 := make([][]float64, ff.inputSize)
	for i := range gw1 {
		gw1[i] = make([]float64, ff.hiddenSize)
	}
	gb1 := make([]float64, ff.hiddenSize)
	gw2 := make([]float64, ff.hiddenSize)

	prevLoss := math.Inf(1)
	ff.converged = false

	for iter := 0; iter < ff.maxIter; iter++ {
		loss := ff.forward(X, y, hidden, probs)
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			ff.fitted = false
			return fmt.Errorf("feed-forward fit: loss diverged at iteration %d", iter)
		}

		ff.iterRun = iter + 1
		ff.finalLoss = loss
		if math.Abs(prevLoss-loss) < lossTolerance {
			ff.converged = true
			break
		}
		prevLoss = loss

		// Zero accumulators.
		for i := range gw1 {
			for j := range gw1[i] {
				gw1[i][j] = 0
			}
		}
		for j := range gb1 {
			gb1[j] = 0
		}
		for j := range gw2 {
			gw2[j] = 0
		}
		gb2 := 0.0

		// Backward pass over the whole batch.
		for r := 0; r < n; r++ {
			dOut := probs[r] - float64(y[r])
			for j := 0; j < ff.hiddenSize; j++ {
				h := hidden[r][j]
				gw2[j] += dOut * h
				dHidden := dOut * ff.w2[j] * h * (1 - h)
				gb1[j] += dHidden
				for i := 0; i < ff.inputSize; i++ {
					gw1[i][j] += dHidden * X[r][i]
				}
			}
			gb2 += dOut
		}

		scale := 1 / float64(n)
		reg := ff.l2 * scale
		for j := 0; j < ff.hiddenSize; j++ {
			ff.w2[j] -= ff.learningRate * (gw2[j]*scale + reg*ff.w2[j])
			ff.b1[j] -= ff.learningRate * gb1[j] * scale
			for i := 0; i < ff.inputSize; i++ {
				ff.w1[i][j] -= ff.learningRate * (gw1[i][j]*scale + reg*ff.w1[i][j])
			}
		}
		ff.b2 -= ff.learningRate * gb2 * scale
	}

	ff.fitted = true
	return nil
}

// Predict thresholds the positive-class probability at 0.5.
func (ff *FeedForward) Predict(X [][]float64) ([]int, error) {
	probs, err := ff.Proba(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(probs))
	for i, p := range probs {
		if p >= 0.5 {
			out[i] = 1
		}
	}
	return out, nil
}

// Proba returns the positive-class probability per row.
func (ff *FeedForward) Proba(X [][]float64) ([]float64, error) {
	if !ff.fitted {
		return nil, fmt.Errorf("feed-forward predict: model is not fitted")
	}
	out := make([]float64, len(X))
	h := make([]float64, ff.hiddenSize)
	for r, row := range X {
		if len(row) != ff.inputSize {
			return nil, fmt.Errorf("feed-forward predict: row %d has %d features, model was fitted on %d",
				r, len(row), ff.inputSize)
		}
		out[r] = ff.forwardOne(row, h)
	}
	return out, nil
}

// Converged reports whether the last fit reached the loss tolerance before
// the iteration cap.
func (ff *FeedForward) Converged() bool {
	return ff.converged
}

// Iterations returns how many iterations the last fit ran.
func (ff *FeedForward) Iterations() int {
	return ff.iterRun
}

func (ff *FeedForward) initWeights() {
	rng := rand.New(rand.NewSource(ff.seed))
	scale1 := math.Sqrt(1 / float64(ff.inputSize))
	ff.w1 = make([][]float64, ff.inputSize)
	for i := range ff.w1 {
		ff.w1[i] = make([]float64, ff.hiddenSize)
		for j := range ff.w1[i] {
			ff.w1[i][j] = rng.NormFloat64() * scale1
		}
	}
	ff.b1 = make([]float64, ff.hiddenSize)

	scale2 := math.Sqrt(1 / float64(ff.hiddenSize))
	ff.w2 = make([]float64, ff.hiddenSize)
	for j := range ff.w2 {
		ff.w2[j] = rng.NormFloat64() * scale2
	}
	ff.b2 = 0
}

// forward fills the hidden activations and probabilities for the batch and
// returns the regularized cross-entropy loss.
func (ff *FeedForward) forward(X [][]float64, y []int, hidden [][]float64, probs []float64) float64 {
	n := len(X)
	loss := 0.0
	for r := 0; r < n; r++ {
		for j := 0; j < ff.hiddenSize; j++ {
			z := ff.b1[j]
			for i := 0; i < ff.inputSize; i++ {
				z += X[r][i] * ff.w1[i][j]
			}
			hidden[r][j] = sigmoid(z)
		}
		z := ff.b2
		for j := 0; j < ff.hiddenSize; j++ {
			z += hidden[r][j] * ff.w2[j]
		}
		p := sigmoid(z)
		probs[r] = p

		p = math.Min(math.Max(p, probEpsilon), 1-probEpsilon)
		if y[r] == 1 {
			loss -= math.Log(p)
		} else {
			loss -= math.Log(1 - p)
		}
	}
	loss /= float64(n)

	if ff.l2 > 0 {
		sq := 0.0
		for i := range ff.w1 {
			for _, w := range ff.w1[i] {
				sq += w * w
			}
		}
		for _, w := range ff.w2 {
			sq += w * w
		}
		loss += ff.l2 * sq / (2 * float64(n))
	}
	return loss
}

func (ff *FeedForward) forwardOne(row, h []float64) float64 {
	for j := 0; j < ff.hiddenSize; j++ {
		z := ff.b1[j]
		for i := 0; i < ff.inputSize; i++ {
			z += row[i] * ff.w1[i][j]
		}
		h[j] = sigmoid(z)
	}
	z := ff.b2
	for j := 0; j < ff.hiddenSize; j++ {
		z += h[j] * ff.w2[j]
	}
	return sigmoid(z)
}

func sigmoid(z float64) float64 {
	if z < -500 {
		return 0
	}
	if z > 500 {
		return 1
	}
	return 1 / (1 + math.Exp(-z))
}
