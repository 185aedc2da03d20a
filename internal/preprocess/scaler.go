package preprocess

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"credit-screener/internal/common"
)

// Scaler holds per-column standardization statistics. A fitted Scaler is
// immutable; Transform never modifies its input.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitScaler computes column means and standard deviations from X. Columns
// with zero spread get a unit divisor so transformed values become zero
// rather than NaN.
func FitScaler(X [][]float64) (*Scaler, error) {
	if len(X) == 0 || len(X[0]) == 0 {
		return nil, fmt.Errorf("%w: cannot fit a scaler on an empty matrix", common.ErrConfig)
	}
	cols := len(X[0])
	s := &Scaler{
		Mean: make([]float64, cols),
		Std:  make([]float64, cols),
	}
	column := make([]float64, len(X))
	for c := 0; c < cols; c++ {
		for r, row := range X {
			if len(row) != cols {
				return nil, fmt.Errorf("%w: ragged matrix: row %d has %d columns, want %d",
					common.ErrConfig, r, len(row), cols)
			}
			column[r] = row[c]
		}
		s.Mean[c] = stat.Mean(column, nil)
		std := stat.StdDev(column, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.Std[c] = std
	}
	return s, nil
}

// Transform applies (x-mean)/std column-wise and returns a fresh matrix.
func (s *Scaler) Transform(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for r, row := range X {
		if len(row) != len(s.Mean) {
			return nil, fmt.Errorf("%w: row %d has %d columns, scaler was fitted on %d",
				common.ErrConfig, r, len(row), len(s.Mean))
		}
		scaled := make([]float64, len(row))
		for c, v := range row {
			scaled[c] = (v - s.Mean[c]) / s.Std[c]
		}
		out[r] = scaled
	}
	return out, nil
}

// FitTransform fits on X and returns both the scaled matrix and the scaler.
func FitTransform(X [][]float64) ([][]float64, *Scaler, error) {
	s, err := FitScaler(X)
	if err != nil {
		return nil, nil, err
	}
	scaled, err := s.Transform(X)
	if err != nil {
		return nil, nil, err
	}
	return scaled, s, nil
}

// ScaleSplit standardizes a partition with statistics from the training rows
// only. The returned TrainTest is a new value; the input partition is left
// untouched.
func ScaleSplit(tt *TrainTest) (*TrainTest, *Scaler, error) {
	scaler, err := FitScaler(tt.XTrain)
	if err != nil {
		return nil, nil, err
	}
	xTrain, err := scaler.Transform(tt.XTrain)
	if err != nil {
		return nil, nil, err
	}
	xTest, err := scaler.Transform(tt.XTest)
	if err != nil {
		return nil, nil, err
	}
	scaled := &TrainTest{
		XTrain:     xTrain,
		YTrain:     append([]int(nil), tt.YTrain...),
		XTest:      xTest,
		YTest:      append([]int(nil), tt.YTest...),
		TrainIndex: append([]int(nil), tt.TrainIndex...),
		TestIndex:  append([]int(nil), tt.TestIndex...),
	}
	return scaled, scaler, nil
}
