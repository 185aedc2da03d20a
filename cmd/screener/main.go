package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"credit-screener/internal/cfg"
	"credit-screener/internal/common"
	"credit-screener/internal/dashboard"
	"credit-screener/internal/dataset"
	"credit-screener/internal/metrics"
	"credit-screener/internal/pipeline"
	"credit-screener/internal/report"
	"credit-screener/internal/storage"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML config file")
		dataPath    = flag.String("data", "", "Path to the credit CSV (overrides config)")
		outputPath  = flag.String("output", "", "Output directory for reports (overrides config)")
		logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		useDash     = flag.Bool("dashboard", false, "Serve the live progress dashboard")
		skipReports = flag.Bool("no-reports", false, "Skip writing report files")
	)
	flag.Parse()

	// Setup logging
	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// .env is optional; a missing file is not an error.
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded .env file")
	}
	if *configPath != "" {
		os.Setenv(common.EnvConfigFile, *configPath)
	}

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if *dataPath != "" {
		c.DataPath = *dataPath
	}
	if *outputPath != "" {
		c.OutputDir = *outputPath
	}
	if *useDash {
		c.DashboardOn = true
	}

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	m := metrics.New()
	mw := metrics.NewWrapper(m)
	startMetricsServer(ctx, c.MetricsPort)

	store := initializeStorage(c)
	if store != nil {
		defer store.Close()
	}

	ds, err := loadDataset(c)
	if err != nil {
		log.Fatal().Err(err).Msg("dataset preparation failed")
	}

	opts := pipeline.Options{
		TestFraction: c.TestFraction,
		Seed:         c.RandomSeed,
		TopN:         c.TopFeatures,
		Folds:        c.CVFolds,
		Workers:      c.SearchWorkers,
		Weights:      c.Weights(),
		Grids:        nil, // fixed defaults per family
	}
	orchestrator := pipeline.New(opts, mw)

	var dash *dashboard.Dashboard
	if c.DashboardOn {
		dash = dashboard.New(orchestrator, c.DashboardPort)
		if err := dash.Start(); err != nil {
			log.Warn().Err(err).Msg("dashboard failed to start, continuing without it")
			dash = nil
		}
	}

	summary, runErr := orchestrator.Run(ctx, ds)
	if runErr != nil {
		// Aborted runs are already labeled inside the summary; keep going
		// so the partial results still get reported and stored.
		log.Warn().Err(runErr).Msg("screening finished with failed runs")
	}

	reporter := report.NewReporter(summary, c.OutputDir)
	if !*skipReports {
		if err := reporter.GenerateReport(); err != nil {
			log.Error().Err(err).Msg("report generation failed")
		}
	}
	reporter.PrintSummary()

	if store != nil {
		if id, err := store.SaveRun(summary); err != nil {
			log.Warn().Err(err).Msg("failed to persist run record")
		} else {
			log.Info().Str("run_id", id).Msg("Run record saved")
		}
	}

	if dash != nil {
		if err := dash.Stop(); err != nil {
			log.Warn().Err(err).Msg("dashboard shutdown failed")
		}
	}

	if runErr != nil {
		os.Exit(1)
	}
}

// loadDataset fetches the CSV when configured, then loads, imputes, and
// encodes it into the numeric form the pipeline consumes.
func loadDataset(c cfg.Settings) (*dataset.Dataset, error) {
	fetcher := dataset.NewFetcher(c.FetchTimeout)
	if err := fetcher.Ensure(c.DataURL, c.DataPath); err != nil {
		return nil, err
	}

	table, err := dataset.Load(c.DataPath)
	if err != nil {
		return nil, err
	}
	table.Impute(c.MissingMarker, c.TargetColumn)
	return table.Encode(c.TargetColumn, c.MissingMarker, c.PositiveLabel)
}

// initializeStorage opens the run-history store; the pipeline still runs
// without persistence when the store cannot be opened.
func initializeStorage(c cfg.Settings) *storage.Store {
	store, err := storage.New(c.StorePath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without persistence")
		return nil
	}
	return store
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(ctx context.Context, port int) {
	go func() {
		mux := http.NewServeMux()

		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		mux.Handle("/metrics", promhttp.Handler())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			if err := server.Shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to shutdown metrics server")
			}
		}()

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}
