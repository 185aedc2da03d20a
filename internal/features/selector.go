// Package features ranks dataset columns by their linear relationship to the
// approval target and selects the subset the restricted pipeline variants
// train on.
package features

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"

	"credit-screener/internal/common"
	"credit-screener/internal/dataset"
)

// Ranked pairs a feature name with its Pearson correlation to the target.
// Order within a slice of Ranked is strongest absolute correlation first.
type Ranked struct {
	Name        string  `json:"name"`
	Correlation float64 `json:"correlation"`
}

// Rank computes the Pearson correlation of every feature column against the
// target and returns them sorted by descending |r|. Ties keep original
// column order. Zero-variance columns rank last with correlation 0.
func Rank(ds *dataset.Dataset, target string) ([]Ranked, error) {
	if ds.ColumnIndex(target) < 0 {
		return nil, fmt.Errorf("%w: target column %q not found", common.ErrConfig, target)
	}

	y, _ := ds.Column(target)

	var ranked []Ranked
	for _, name := range ds.Columns {
		if name == target {
			continue
		}
		x, _ := ds.Column(name)
		r := stat.Correlation(x, y, nil)
		if math.IsNaN(r) || math.IsInf(r, 0) {
			r = 0
		}
		ranked = append(ranked, Ranked{Name: name, Correlation: r})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return math.Abs(ranked[i].Correlation) > math.Abs(ranked[j].Correlation)
	})
	return ranked, nil
}

// TopFeatures returns the n feature names with the largest absolute
// correlation to the target, strongest first. n must be at least 1 and no
// larger than the number of feature columns.
func TopFeatures(ds *dataset.Dataset, target string, n int) ([]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: top feature count %d, want at least 1", common.ErrConfig, n)
	}

	ranked, err := Rank(ds, target)
	if err != nil {
		return nil, err
	}
	if n > len(ranked) {
		return nil, fmt.Errorf("%w: requested %d features but only %d are available",
			common.ErrConfig, n, len(ranked))
	}

	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = ranked[i].Name
	}

	log.Debug().
		Strs("features", names).
		Float64("strongest", ranked[0].Correlation).
		Msg("Selected top features")

	return names, nil
}
