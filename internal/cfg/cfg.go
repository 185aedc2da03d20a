package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"credit-screener/internal/common"
	"credit-screener/internal/evaluate"
)

type Settings struct {
	DataPath      string
	DataURL       string
	TargetColumn  string
	MissingMarker string
	PositiveLabel string
	TestFraction  float64
	RandomSeed    int64
	TopFeatures   int
	CVFolds       int
	SearchWorkers int
	WeightTN      float64
	WeightFP      float64
	WeightFN      float64
	WeightTP      float64
	MetricsPort   int
	DashboardPort int
	DashboardOn   bool
	OutputDir     string
	StorePath     string
	FetchTimeout  time.Duration
}

type ConfigFile struct {
	Data struct {
		Path          string `yaml:"path"`
		URL           string `yaml:"url"`
		TargetColumn  string `yaml:"targetColumn"`
		MissingMarker string `yaml:"missingMarker"`
		PositiveLabel string `yaml:"positiveLabel"`
	} `yaml:"data"`

	Split struct {
		TestFraction float64 `yaml:"testFraction"`
		RandomSeed   int64   `yaml:"randomSeed"`
	} `yaml:"split"`

	Features struct {
		TopN int `yaml:"topN"`
	} `yaml:"features"`

	Search struct {
		CVFolds int `yaml:"cvFolds"`
		Workers int `yaml:"workers"`
	} `yaml:"search"`

	// Pointer fields so an explicit zero weight survives loading.
	Profit struct {
		TrueNegative  *float64 `yaml:"trueNegative"`
		FalsePositive *float64 `yaml:"falsePositive"`
		FalseNegative *float64 `yaml:"falseNegative"`
		TruePositive  *float64 `yaml:"truePositive"`
	} `yaml:"profit"`

	System struct {
		MetricsPort   int    `yaml:"metricsPort"`
		DashboardPort int    `yaml:"dashboardPort"`
		Dashboard     bool   `yaml:"dashboard"`
		OutputDir     string `yaml:"outputDir"`
		StorePath     string `yaml:"storePath"`
		FetchTimeout  string `yaml:"fetchTimeout"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	fetchTimeout, err := time.ParseDuration(config.System.FetchTimeout)
	if err != nil {
		fetchTimeout = 30 * time.Second
	}
	if env := os.Getenv(common.EnvFetchTimeout); env != "" {
		if d, err := time.ParseDuration(env); err == nil {
			fetchTimeout = d
		}
	}

	settings := Settings{
		DataPath:      getStringFromEnvOrConfig(common.EnvDataPath, config.Data.Path, common.DefaultDataPath),
		DataURL:       getStringFromEnvOrConfig(common.EnvDataURL, config.Data.URL, ""),
		TargetColumn:  getStringFromEnvOrConfig(common.EnvTargetColumn, config.Data.TargetColumn, common.DefaultTargetColumn),
		MissingMarker: getStringFromEnvOrConfig(common.EnvMissingMarker, config.Data.MissingMarker, common.DefaultMissingMarker),
		PositiveLabel: getStringFromEnvOrConfig(common.EnvPositiveLabel, config.Data.PositiveLabel, common.DefaultPositiveLabel),
		TestFraction:  getFloatFromEnvOrConfig(common.EnvTestFraction, config.Split.TestFraction, common.DefaultTestFraction),
		RandomSeed:    getInt64FromEnvOrConfig(common.EnvRandomSeed, config.Split.RandomSeed, common.DefaultRandomSeed),
		TopFeatures:   getIntFromEnvOrConfig(common.EnvTopFeatures, config.Features.TopN, common.DefaultTopFeatures),
		CVFolds:       getIntFromEnvOrConfig(common.EnvCVFolds, config.Search.CVFolds, common.DefaultCVFolds),
		SearchWorkers: getIntFromEnvOrConfig(common.EnvSearchWorkers, config.Search.Workers, 0),
		WeightTN:      resolveWeight(common.EnvWeightTN, config.Profit.TrueNegative, common.DefaultWeightTrueNegative),
		WeightFP:      resolveWeight(common.EnvWeightFP, config.Profit.FalsePositive, common.DefaultWeightFalsePositive),
		WeightFN:      resolveWeight(common.EnvWeightFN, config.Profit.FalseNegative, common.DefaultWeightFalseNegative),
		WeightTP:      resolveWeight(common.EnvWeightTP, config.Profit.TruePositive, common.DefaultWeightTruePositive),
		MetricsPort:   getIntFromEnvOrConfig(common.EnvMetricsPort, config.System.MetricsPort, common.DefaultMetricsPort),
		DashboardPort: getIntFromEnvOrConfig(common.EnvDashboardPort, config.System.DashboardPort, common.DefaultDashboardPort),
		DashboardOn:   getBoolFromEnvOrConfig(common.EnvDashboardOn, config.System.Dashboard),
		OutputDir:     getStringFromEnvOrConfig(common.EnvOutputDir, config.System.OutputDir, common.DefaultOutputDir),
		StorePath:     getStringFromEnvOrConfig(common.EnvStorePath, config.System.StorePath, common.DefaultStorePath),
		FetchTimeout:  fetchTimeout,
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		DataPath:      getEnvOrDefault(common.EnvDataPath, common.DefaultDataPath),
		DataURL:       os.Getenv(common.EnvDataURL), // optional
		TargetColumn:  getEnvOrDefault(common.EnvTargetColumn, common.DefaultTargetColumn),
		MissingMarker: getEnvOrDefault(common.EnvMissingMarker, common.DefaultMissingMarker),
		PositiveLabel: getEnvOrDefault(common.EnvPositiveLabel, common.DefaultPositiveLabel),
		TestFraction:  getFloatOrDefault(common.EnvTestFraction, common.DefaultTestFraction),
		RandomSeed:    getInt64OrDefault(common.EnvRandomSeed, common.DefaultRandomSeed),
		TopFeatures:   getIntOrDefault(common.EnvTopFeatures, common.DefaultTopFeatures),
		CVFolds:       getIntOrDefault(common.EnvCVFolds, common.DefaultCVFolds),
		SearchWorkers: getIntOrDefault(common.EnvSearchWorkers, 0),
		WeightTN:      getFloatOrDefault(common.EnvWeightTN, common.DefaultWeightTrueNegative),
		WeightFP:      getFloatOrDefault(common.EnvWeightFP, common.DefaultWeightFalsePositive),
		WeightFN:      getFloatOrDefault(common.EnvWeightFN, common.DefaultWeightFalseNegative),
		WeightTP:      getFloatOrDefault(common.EnvWeightTP, common.DefaultWeightTruePositive),
		MetricsPort:   getIntOrDefault(common.EnvMetricsPort, common.DefaultMetricsPort),
		DashboardPort: getIntOrDefault(common.EnvDashboardPort, common.DefaultDashboardPort),
		DashboardOn:   getBoolOrDefault(common.EnvDashboardOn, false),
		OutputDir:     getEnvOrDefault(common.EnvOutputDir, common.DefaultOutputDir),
		StorePath:     getEnvOrDefault(common.EnvStorePath, common.DefaultStorePath),
		FetchTimeout:  getDurationOrDefault(common.EnvFetchTimeout, 30*time.Second),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// Weights returns the configured outcome weights ready for evaluation.
func (s *Settings) Weights() evaluate.OutcomeWeights {
	return evaluate.OutcomeWeights{
		TN: s.WeightTN,
		FP: s.WeightFP,
		FN: s.WeightFN,
		TP: s.WeightTP,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getStringFromEnvOrConfig(key, configValue, defaultValue string) string {
	if env := os.Getenv(key); env != "" {
		return env
	}
	if configValue != "" {
		return configValue
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getInt64FromEnvOrConfig(key string, configValue, defaultValue int64) int64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseInt(env, 10, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getBoolFromEnvOrConfig(key string, configValue bool) bool {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseBool(env); err == nil {
			return val
		}
	}
	return configValue
}

func resolveWeight(key string, fileValue *float64, defaultValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	if fileValue != nil {
		return *fileValue
	}
	return defaultValue
}

// validateSettings performs comprehensive validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.DataPath == "" {
		return fmt.Errorf("%s", common.ErrMsgDataPathRequired)
	}
	if settings.TargetColumn == "" {
		return fmt.Errorf("%s", common.ErrMsgTargetRequired)
	}
	if settings.MissingMarker == "" {
		return fmt.Errorf("missing-value marker cannot be empty")
	}

	if settings.TestFraction <= common.MinTestFraction || settings.TestFraction >= common.MaxTestFraction {
		return fmt.Errorf("test fraction must be strictly between 0 and 1, got %f", settings.TestFraction)
	}
	if settings.TopFeatures < common.MinTopFeatures {
		return fmt.Errorf("top feature count must be at least %d, got %d", common.MinTopFeatures, settings.TopFeatures)
	}
	if settings.CVFolds < common.MinCVFolds || settings.CVFolds > common.MaxCVFolds {
		return fmt.Errorf("cross-validation folds must be between %d and %d, got %d",
			common.MinCVFolds, common.MaxCVFolds, settings.CVFolds)
	}
	if settings.SearchWorkers < 0 {
		return fmt.Errorf("search worker count cannot be negative, got %d", settings.SearchWorkers)
	}

	if settings.MetricsPort < common.MinPort || settings.MetricsPort > common.MaxPort {
		return fmt.Errorf("metrics port must be between %d and %d, got %d",
			common.MinPort, common.MaxPort, settings.MetricsPort)
	}
	if settings.DashboardPort < common.MinPort || settings.DashboardPort > common.MaxPort {
		return fmt.Errorf("dashboard port must be between %d and %d, got %d",
			common.MinPort, common.MaxPort, settings.DashboardPort)
	}
	if settings.DashboardOn && settings.DashboardPort == settings.MetricsPort {
		return fmt.Errorf("dashboard and metrics ports must differ, both are %d", settings.MetricsPort)
	}

	if settings.OutputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	if settings.StorePath == "" {
		return fmt.Errorf("store path cannot be empty")
	}
	if settings.FetchTimeout < time.Second || settings.FetchTimeout > 5*time.Minute {
		return fmt.Errorf("fetch timeout must be between 1s and 5m, got %v", settings.FetchTimeout)
	}

	return nil
}
