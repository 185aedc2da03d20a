package preprocess

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/stat"

	"credit-screener/internal/common"
)

func randomMatrix(rows, cols int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, rows)
	for r := range X {
		X[r] = make([]float64, cols)
		for c := range X[r] {
			X[r][c] = rng.NormFloat64()*float64(c+1) + float64(c)*10
		}
	}
	return X
}

func column(X [][]float64, c int) []float64 {
	out := make([]float64, len(X))
	for r, row := range X {
		out[r] = row[c]
	}
	return out
}

func TestScalerZeroMeanUnitStd(t *testing.T) {
	t.Parallel()

	X := randomMatrix(200, 4, 11)
	scaled, _, err := FitTransform(X)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for c := 0; c < 4; c++ {
		col := column(scaled, c)
		if mean := stat.Mean(col, nil); math.Abs(mean) > 1e-9 {
			t.Errorf("column %d mean = %g, want 0 within 1e-9", c, mean)
		}
		if std := stat.StdDev(col, nil); math.Abs(std-1) > 1e-9 {
			t.Errorf("column %d std = %g, want 1 within 1e-9", c, std)
		}
	}
}

func TestScalerIdempotentOnStandardizedData(t *testing.T) {
	t.Parallel()

	X := randomMatrix(150, 3, 21)
	scaled, _, err := FitTransform(X)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Standardizing already-standardized data must change nothing.
	again, _, err := FitTransform(scaled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for r := range scaled {
		for c := range scaled[r] {
			if math.Abs(again[r][c]-scaled[r][c]) > 1e-9 {
				t.Fatalf("restandardizing moved [%d][%d] from %g to %g",
					r, c, scaled[r][c], again[r][c])
			}
		}
	}
}

func TestScalerConstantColumn(t *testing.T) {
	t.Parallel()

	X := [][]float64{{5, 1}, {5, 2}, {5, 3}}
	scaled, scaler, err := FitTransform(X)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scaler.Std[0] != 1 {
		t.Errorf("constant column std = %g, want the unit divisor", scaler.Std[0])
	}
	for r := range scaled {
		if scaled[r][0] != 0 {
			t.Errorf("constant column row %d = %g, want 0", r, scaled[r][0])
		}
	}
}

func TestTransformLeavesInputUntouched(t *testing.T) {
	t.Parallel()

	X := randomMatrix(20, 2, 31)
	before := make([][]float64, len(X))
	for i, row := range X {
		before[i] = append([]float64(nil), row...)
	}

	scaler, err := FitScaler(X)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	scaled, err := scaler.Transform(X)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	scaled[0][0] = 1e6

	if !reflect.DeepEqual(X, before) {
		t.Error("Transform modified its input")
	}
}

func TestScalerErrors(t *testing.T) {
	t.Parallel()

	if _, err := FitScaler(nil); !errors.Is(err, common.ErrConfig) {
		t.Errorf("empty matrix: got %v", err)
	}
	if _, err := FitScaler([][]float64{{1, 2}, {3}}); !errors.Is(err, common.ErrConfig) {
		t.Errorf("ragged matrix: got %v", err)
	}

	scaler, err := FitScaler([][]float64{{1, 2}, {3, 4}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := scaler.Transform([][]float64{{1}}); !errors.Is(err, common.ErrConfig) {
		t.Errorf("width mismatch: got %v", err)
	}
}

func TestScaleSplitFitsOnTrainOnly(t *testing.T) {
	t.Parallel()

	// Train rows center on 0, test rows on 10. If test statistics leaked
	// into the fit, the scaled test mean would collapse toward 0.
	tt := &TrainTest{}
	rng := rand.New(rand.NewSource(17))
	for i := 0; i < 100; i++ {
		tt.XTrain = append(tt.XTrain, []float64{rng.NormFloat64()})
		tt.YTrain = append(tt.YTrain, i%2)
	}
	for i := 0; i < 50; i++ {
		tt.XTest = append(tt.XTest, []float64{rng.NormFloat64() + 10})
		tt.YTest = append(tt.YTest, i%2)
	}

	rawFirstTest := tt.XTest[0][0]

	scaled, scaler, err := ScaleSplit(tt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	trainMean := stat.Mean(column(scaled.XTrain, 0), nil)
	if math.Abs(trainMean) > 1e-9 {
		t.Errorf("scaled train mean = %g, want 0 within 1e-9", trainMean)
	}

	testMean := stat.Mean(column(scaled.XTest, 0), nil)
	if testMean < 5 {
		t.Errorf("scaled test mean = %g; training-only statistics should keep the shift visible", testMean)
	}

	if math.Abs(scaler.Mean[0]) > 0.5 {
		t.Errorf("scaler mean = %g, want close to the training mean 0", scaler.Mean[0])
	}

	// The source partition must be left as it was.
	if tt.XTest[0][0] != rawFirstTest {
		t.Error("ScaleSplit modified the source partition")
	}
}
