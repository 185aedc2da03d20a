// Package report renders finished screening summaries as human-readable
// text, CSV, and JSON artifacts, plus a colored console digest. It lists
// every planned run, including aborted ones, and deliberately does not
// rank them.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"

	"credit-screener/internal/model"
	"credit-screener/internal/pipeline"
)

const (
	summaryFile = "screening_summary.txt"
	runLogFile  = "run_results.csv"
	jsonFile    = "screening_results.json"
)

// Reporter generates screening reports.
type Reporter struct {
	summary    *pipeline.Summary
	outputPath string
}

// NewReporter creates a new reporter writing into outputPath.
func NewReporter(summary *pipeline.Summary, outputPath string) *Reporter {
	return &Reporter{
		summary:    summary,
		outputPath: outputPath,
	}
}

// GenerateReport generates all report formats.
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := r.generateSummary(); err != nil {
		return err
	}
	if err := r.generateRunLog(); err != nil {
		return err
	}
	return r.generateJSONReport()
}

// generateSummary generates a human-readable summary.
func (r *Reporter) generateSummary() error {
	summaryPath := filepath.Join(r.outputPath, summaryFile)
	file, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	s := r.summary
	fmt.Fprintf(file, "MODEL SCREENING SUMMARY\n")
	fmt.Fprintf(file, "=======================\n\n")

	fmt.Fprintf(file, "Started: %s\n", s.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(file, "Finished: %s\n", s.FinishedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(file, "Elapsed: %s\n\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))

	fmt.Fprintf(file, "DATASET\n")
	fmt.Fprintf(file, "-------\n")
	fmt.Fprintf(file, "Rows: %d\n", s.Rows)
	fmt.Fprintf(file, "Features: %d\n", s.Features)
	fmt.Fprintf(file, "Target: %s\n", s.Target)
	fmt.Fprintf(file, "Test Fraction: %.2f (seed %d)\n", s.TestFraction, s.Seed)
	fmt.Fprintf(file, "Outcome Weights: TN=%+g FP=%+g FN=%+g TP=%+g\n\n",
		s.Weights.TN, s.Weights.FP, s.Weights.FN, s.Weights.TP)

	if len(s.TopFeatures) > 0 {
		fmt.Fprintf(file, "TOP RANKED FEATURES\n")
		fmt.Fprintf(file, "-------------------\n")
		for i, f := range s.TopFeatures {
			fmt.Fprintf(file, "%2d. %-30s r=%+.4f\n", i+1, f.Name, f.Correlation)
		}
		fmt.Fprintf(file, "\n")
	}

	fmt.Fprintf(file, "RUN RESULTS\n")
	fmt.Fprintf(file, "-----------\n")
	for i, run := range s.Runs {
		fmt.Fprintf(file, "[%d] %s / %s\n", i+1, run.Family, run.Variant)
		if run.Aborted {
			fmt.Fprintf(file, "    ABORTED: %s\n", run.Error)
			continue
		}
		fmt.Fprintf(file, "    Features: %d\n", len(run.FeatureNames))
		fmt.Fprintf(file, "    Params: %s\n", formatParams(run.Params))
		fmt.Fprintf(file, "    CV Accuracy: %.4f (folds: %s)\n",
			run.CVAccuracy, formatFolds(run.FoldAccuracies))
		fmt.Fprintf(file, "    Test Accuracy: %.4f\n", run.TestAccuracy)
		fmt.Fprintf(file, "    Confusion: TN=%d FP=%d FN=%d TP=%d\n",
			run.Confusion.TN, run.Confusion.FP, run.Confusion.FN, run.Confusion.TP)
		fmt.Fprintf(file, "    Net Profit: %.2f\n", run.NetProfit)
	}

	log.Info().Str("file", summaryPath).Msg("Summary report generated")
	return nil
}

// generateRunLog generates a CSV log of all runs.
func (r *Reporter) generateRunLog() error {
	csvPath := filepath.Join(r.outputPath, runLogFile)
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create run log: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Family", "Variant", "Aborted", "Features", "Params",
		"CV Accuracy", "Test Accuracy", "TN", "FP", "FN", "TP",
		"Net Profit", "Error",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, run := range r.summary.Runs {
		record := []string{
			run.Family,
			run.Variant,
			fmt.Sprintf("%t", run.Aborted),
			fmt.Sprintf("%d", len(run.FeatureNames)),
			formatParams(run.Params),
			fmt.Sprintf("%.4f", run.CVAccuracy),
			fmt.Sprintf("%.4f", run.TestAccuracy),
		}
		if run.Confusion != nil {
			record = append(record,
				fmt.Sprintf("%d", run.Confusion.TN),
				fmt.Sprintf("%d", run.Confusion.FP),
				fmt.Sprintf("%d", run.Confusion.FN),
				fmt.Sprintf("%d", run.Confusion.TP),
			)
		} else {
			record = append(record, "", "", "", "")
		}
		record = append(record,
			fmt.Sprintf("%.2f", run.NetProfit),
			run.Error,
		)
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	log.Info().Str("file", csvPath).Msg("Run log generated")
	return nil
}

// generateJSONReport generates a JSON report with all data.
func (r *Reporter) generateJSONReport() error {
	jsonPath := filepath.Join(r.outputPath, jsonFile)

	report := map[string]interface{}{
		"summary":      r.summary,
		"generated_at": time.Now(),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	log.Info().Str("file", jsonPath).Msg("JSON report generated")
	return nil
}

// PrintSummary prints a colored digest to the console.
func (r *Reporter) PrintSummary() {
	header := color.New(color.Bold)
	good := color.New(color.FgGreen)
	bad := color.New(color.FgRed)

	s := r.summary
	header.Println("\n=== MODEL SCREENING RESULTS ===")
	fmt.Printf("Dataset: %d rows, %d features, target %q\n", s.Rows, s.Features, s.Target)
	fmt.Printf("Test fraction %.2f, seed %d\n", s.TestFraction, s.Seed)

	for _, run := range s.Runs {
		label := fmt.Sprintf("%-24s %-14s", run.Family, run.Variant)
		if run.Aborted {
			bad.Printf("%s ABORTED: %s\n", label, run.Error)
			continue
		}
		fmt.Printf("%s cv=%.4f test=%.4f profit=", label, run.CVAccuracy, run.TestAccuracy)
		if run.NetProfit >= 0 {
			good.Printf("%+.2f\n", run.NetProfit)
		} else {
			bad.Printf("%+.2f\n", run.NetProfit)
		}
	}
	header.Println("===============================")
}

// formatParams renders parameters with sorted keys so report output is
// stable across runs.
func formatParams(p model.Params) string {
	if len(p) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, p[k]))
	}
	return strings.Join(parts, " ")
}

func formatFolds(folds []float64) string {
	parts := make([]string, len(folds))
	for i, f := range folds {
		parts[i] = fmt.Sprintf("%.4f", f)
	}
	return strings.Join(parts, ", ")
}
