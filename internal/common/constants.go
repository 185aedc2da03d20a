package common

// Model family tags
const (
	FamilyDecisionTree = "decision-tree"
	FamilyFeedForward  = "feed-forward-classifier"
)

// Feature-set variant tags
const (
	VariantAllFeatures = "all-features"
	VariantTopFeatures = "top-features"
)

// Environment variable keys
const (
	EnvConfigFile     = "CONFIG_FILE"
	EnvDataPath       = "DATA_PATH"
	EnvDataURL        = "DATA_URL"
	EnvTargetColumn   = "TARGET_COLUMN"
	EnvTestFraction   = "TEST_FRACTION"
	EnvRandomSeed     = "RANDOM_SEED"
	EnvTopFeatures    = "TOP_FEATURES"
	EnvCVFolds        = "CV_FOLDS"
	EnvSearchWorkers  = "SEARCH_WORKERS"
	EnvMetricsPort    = "METRICS_PORT"
	EnvDashboardPort  = "DASHBOARD_PORT"
	EnvDashboardOn    = "DASHBOARD_ENABLED"
	EnvOutputDir      = "OUTPUT_DIR"
	EnvStorePath      = "STORE_PATH"
	EnvFetchTimeout   = "FETCH_TIMEOUT"
	EnvWeightTN       = "WEIGHT_TRUE_NEGATIVE"
	EnvWeightFP       = "WEIGHT_FALSE_POSITIVE"
	EnvWeightFN       = "WEIGHT_FALSE_NEGATIVE"
	EnvWeightTP       = "WEIGHT_TRUE_POSITIVE"
	EnvMissingMarker  = "MISSING_MARKER"
	EnvPositiveLabel  = "POSITIVE_LABEL"
)

// Configuration defaults
const (
	DefaultDataPath      = "data/credit.csv"
	DefaultTargetColumn  = "approved"
	DefaultTestFraction  = 0.3
	DefaultRandomSeed    = 42
	DefaultTopFeatures   = 5
	DefaultCVFolds       = 3
	DefaultMetricsPort   = 8080
	DefaultDashboardPort = 8081
	DefaultOutputDir     = "reports"
	DefaultStorePath     = "data/runs.db"
	DefaultMissingMarker = "?"
	DefaultPositiveLabel = "+"
)

// Default outcome weights (per confusion-matrix cell)
const (
	DefaultWeightTrueNegative  = 50.0
	DefaultWeightFalsePositive = -10.0
	DefaultWeightFalseNegative = -20.0
	DefaultWeightTruePositive  = 100.0
)

// Common error messages
const (
	ErrMsgDataPathRequired = "a data path is required"
	ErrMsgTargetRequired   = "a target column name is required"
)

// Validation constants
const (
	MinTestFraction = 0.0
	MaxTestFraction = 1.0
	MinTopFeatures  = 1
	MinCVFolds      = 2
	MaxCVFolds      = 20
	MinPort         = 1024
	MaxPort         = 65535
)
