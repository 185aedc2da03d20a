package common

import "errors"

// Pipeline error taxonomy. Stages wrap these with context via
// fmt.Errorf("%w: ...", ...) and callers branch with errors.Is.
var (
	// ErrConfig marks invalid or unsatisfiable run parameters: a missing
	// target column, a split that would empty a partition, an empty
	// hyperparameter grid, mismatched label vectors. Always fatal to the
	// affected stage, never retried.
	ErrConfig = errors.New("configuration error")

	// ErrTraining marks a search in which every hyperparameter candidate
	// failed fatally. Individual candidate failures are not errors.
	ErrTraining = errors.New("training error")
)
