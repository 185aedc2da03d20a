// Package evaluate turns binary predictions into a confusion matrix and a
// cost-weighted net-profit figure. Everything here is a pure function over
// its inputs.
package evaluate

import (
	"fmt"

	"credit-screener/internal/common"
)

// ConfusionMatrix holds the 2x2 outcome counts for a binary classifier.
type ConfusionMatrix struct {
	TN int `json:"tn"`
	FP int `json:"fp"`
	FN int `json:"fn"`
	TP int `json:"tp"`
}

// Total returns the number of counted predictions.
func (cm ConfusionMatrix) Total() int {
	return cm.TN + cm.FP + cm.FN + cm.TP
}

// Accuracy returns the fraction of correct predictions, 0 for an empty matrix.
func (cm ConfusionMatrix) Accuracy() float64 {
	total := cm.Total()
	if total == 0 {
		return 0
	}
	return float64(cm.TN+cm.TP) / float64(total)
}

// OutcomeWeights assigns an economic value to each confusion-matrix cell.
// Gains are positive, costs negative.
type OutcomeWeights struct {
	TN float64 `json:"tn" yaml:"true_negative"`
	FP float64 `json:"fp" yaml:"false_positive"`
	FN float64 `json:"fn" yaml:"false_negative"`
	TP float64 `json:"tp" yaml:"true_positive"`
}

// DefaultWeights returns the standard gain/cost matrix for the
// credit-approval decision.
func DefaultWeights() OutcomeWeights {
	return OutcomeWeights{
		TN: common.DefaultWeightTrueNegative,
		FP: common.DefaultWeightFalsePositive,
		FN: common.DefaultWeightFalseNegative,
		TP: common.DefaultWeightTruePositive,
	}
}

// Confusion counts outcomes for predicted vs true labels. Both vectors must
// have the same length and contain only the labels 0 and 1. The returned
// counts always satisfy TN+FP+FN+TP == len(yTrue).
func Confusion(yTrue, yPred []int) (ConfusionMatrix, error) {
	var cm ConfusionMatrix
	if len(yTrue) != len(yPred) {
		return cm, fmt.Errorf("%w: label length mismatch: %d true vs %d predicted",
			common.ErrConfig, len(yTrue), len(yPred))
	}
	for i := range yTrue {
		if yTrue[i] != 0 && yTrue[i] != 1 {
			return cm, fmt.Errorf("%w: true label at index %d is %d, want 0 or 1",
				common.ErrConfig, i, yTrue[i])
		}
		if yPred[i] != 0 && yPred[i] != 1 {
			return cm, fmt.Errorf("%w: predicted label at index %d is %d, want 0 or 1",
				common.ErrConfig, i, yPred[i])
		}
		switch {
		case yTrue[i] == 0 && yPred[i] == 0:
			cm.TN++
		case yTrue[i] == 0 && yPred[i] == 1:
			cm.FP++
		case yTrue[i] == 1 && yPred[i] == 0:
			cm.FN++
		default:
			cm.TP++
		}
	}
	return cm, nil
}

// NetProfit reduces a confusion matrix to a scalar via the element-wise
// product with the outcome weights.
func NetProfit(cm ConfusionMatrix, w OutcomeWeights) float64 {
	return float64(cm.TN)*w.TN + float64(cm.FP)*w.FP +
		float64(cm.FN)*w.FN + float64(cm.TP)*w.TP
}

// Evaluate computes the confusion matrix and net profit in one call.
func Evaluate(yTrue, yPred []int, w OutcomeWeights) (ConfusionMatrix, float64, error) {
	cm, err := Confusion(yTrue, yPred)
	if err != nil {
		return cm, 0, err
	}
	return cm, NetProfit(cm, w), nil
}
