package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"credit-screener/internal/cfg"
	"credit-screener/internal/storage"
)

func main() {
	var (
		storePath = flag.String("store", "", "Path to the run-history database (overrides config)")
		limit     = flag.Int("limit", 10, "Maximum number of runs to list")
		since     = flag.String("since", "", "Only list runs after this time (RFC 3339)")
		logLevel  = flag.String("log-level", "warn", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	path := *storePath
	if path == "" {
		c, err := cfg.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("config load failed")
		}
		path = c.StorePath
	}

	store, err := storage.New(path)
	if err != nil {
		log.Fatal().Err(err).Str("store", path).Msg("failed to open run history")
	}
	defer store.Close()

	records, err := loadRecords(store, *since, *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read run history")
	}

	if len(records) == 0 {
		fmt.Println("No stored runs.")
		return
	}

	for _, rec := range records {
		printRecord(rec)
	}
}

func loadRecords(store *storage.Store, since string, limit int) ([]storage.RunRecord, error) {
	if since == "" {
		return store.ListRuns(limit)
	}
	start, err := time.Parse(time.RFC3339, since)
	if err != nil {
		return nil, fmt.Errorf("invalid -since value %q: %w", since, err)
	}
	records, err := store.RunsBetween(start, time.Now())
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func printRecord(rec storage.RunRecord) {
	s := rec.Summary
	fmt.Printf("%s  %s  rows=%d features=%d seed=%d\n",
		rec.ID, rec.SavedAt.Format(time.RFC3339), s.Rows, s.Features, s.Seed)
	for _, run := range s.Runs {
		if run.Aborted {
			fmt.Printf("    %-24s %-14s ABORTED: %s\n", run.Family, run.Variant, run.Error)
			continue
		}
		fmt.Printf("    %-24s %-14s accuracy=%.4f profit=%.0f\n",
			run.Family, run.Variant, run.TestAccuracy, run.NetProfit)
	}
}
