package evaluate

import (
	"errors"
	"math"
	"testing"

	"credit-screener/internal/common"
)

func TestConfusion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		yTrue  []int
		yPred  []int
		want   ConfusionMatrix
		wantCM bool
	}{
		{
			name:   "all four outcomes",
			yTrue:  []int{0, 0, 1, 1},
			yPred:  []int{0, 1, 0, 1},
			want:   ConfusionMatrix{TN: 1, FP: 1, FN: 1, TP: 1},
			wantCM: true,
		},
		{
			name:   "perfect predictions",
			yTrue:  []int{1, 0, 1, 0, 1},
			yPred:  []int{1, 0, 1, 0, 1},
			want:   ConfusionMatrix{TN: 2, TP: 3},
			wantCM: true,
		},
		{
			name:   "empty vectors",
			yTrue:  []int{},
			yPred:  []int{},
			want:   ConfusionMatrix{},
			wantCM: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Confusion(tt.yTrue, tt.yPred)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Confusion() = %+v, want %+v", got, tt.want)
			}
			if got.Total() != len(tt.yTrue) {
				t.Errorf("counts sum to %d, want %d", got.Total(), len(tt.yTrue))
			}
		})
	}
}

func TestConfusionErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		yTrue []int
		yPred []int
	}{
		{name: "length mismatch", yTrue: []int{0, 1, 1}, yPred: []int{0, 1}},
		{name: "non-binary true label", yTrue: []int{0, 2}, yPred: []int{0, 1}},
		{name: "non-binary predicted label", yTrue: []int{0, 1}, yPred: []int{0, -1}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Confusion(tt.yTrue, tt.yPred)
			if err == nil {
				t.Fatal("expected error, got none")
			}
			if !errors.Is(err, common.ErrConfig) {
				t.Errorf("error %v is not a configuration error", err)
			}
		})
	}
}

func TestNetProfitScenario(t *testing.T) {
	t.Parallel()

	// TN=120, FP=15, FN=10, TP=55 with the default weights:
	// 120*50 + 15*(-10) + 10*(-20) + 55*100 = 11150.
	cm := ConfusionMatrix{TN: 120, FP: 15, FN: 10, TP: 55}
	got := NetProfit(cm, DefaultWeights())
	if math.Abs(got-11150) > 1e-9 {
		t.Errorf("NetProfit() = %f, want 11150", got)
	}
}

func TestNetProfitPerfectAndAllWrong(t *testing.T) {
	t.Parallel()

	yTrue := []int{1, 1, 1, 0, 0, 0, 0, 1, 0, 1}
	p, n := 0, 0
	for _, v := range yTrue {
		if v == 1 {
			p++
		} else {
			n++
		}
	}

	perfect := make([]int, len(yTrue))
	copy(perfect, yTrue)
	cm, profit, err := Evaluate(yTrue, perfect, DefaultWeights())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cm.FP != 0 || cm.FN != 0 {
		t.Errorf("perfect classifier has misclassifications: %+v", cm)
	}
	want := 100*float64(p) + 50*float64(n)
	if math.Abs(profit-want) > 1e-9 {
		t.Errorf("perfect profit = %f, want %f", profit, want)
	}

	wrong := make([]int, len(yTrue))
	for i, v := range yTrue {
		wrong[i] = 1 - v
	}
	cm, profit, err = Evaluate(yTrue, wrong, DefaultWeights())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cm.TN != 0 || cm.TP != 0 {
		t.Errorf("all-wrong classifier has correct predictions: %+v", cm)
	}
	want = -20*float64(p) - 10*float64(n)
	if math.Abs(profit-want) > 1e-9 {
		t.Errorf("all-wrong profit = %f, want %f", profit, want)
	}
}

func TestAccuracy(t *testing.T) {
	t.Parallel()

	cm := ConfusionMatrix{TN: 3, FP: 1, FN: 1, TP: 5}
	if got := cm.Accuracy(); math.Abs(got-0.8) > 1e-9 {
		t.Errorf("Accuracy() = %f, want 0.8", got)
	}
	var empty ConfusionMatrix
	if got := empty.Accuracy(); got != 0 {
		t.Errorf("empty Accuracy() = %f, want 0", got)
	}
}

func TestDefaultWeights(t *testing.T) {
	t.Parallel()

	w := DefaultWeights()
	if w.TN != 50 || w.FP != -10 || w.FN != -20 || w.TP != 100 {
		t.Errorf("unexpected default weights: %+v", w)
	}
}
