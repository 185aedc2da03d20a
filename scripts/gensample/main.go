package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
)

// Generates a synthetic credit-approval CSV for demos and manual testing.
// The label correlates with income and debt so the feature ranking has a
// known answer, and a slice of cells is blanked out to exercise imputation.
func main() {
	var (
		outPath     = flag.String("out", "data/credit.csv", "Output CSV path")
		rows        = flag.Int("rows", 690, "Number of rows to generate")
		seed        = flag.Int64("seed", 42, "Random seed")
		missingRate = flag.Float64("missing-rate", 0.02, "Fraction of cells replaced with '?'")
	)
	flag.Parse()

	fmt.Printf("Generating synthetic credit data...\n")
	fmt.Printf("  Rows: %d\n", *rows)
	fmt.Printf("  Seed: %d\n", *seed)
	fmt.Printf("  Missing rate: %.2f\n", *missingRate)
	fmt.Printf("  Output: %s\n", *outPath)

	if err := generate(*outPath, *rows, *seed, *missingRate); err != nil {
		log.Fatalf("Failed to generate data: %v", err)
	}

	fmt.Printf("✓ Wrote %d rows to %s\n", *rows, *outPath)
}

func generate(path string, rows int, seed int64, missingRate float64) error {
	rng := rand.New(rand.NewSource(seed))

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	header := []string{
		"age", "income", "debt", "years_employed", "credit_history",
		"housing", "purpose", "dependents", "approved",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	housings := []string{"own", "rent", "free"}
	purposes := []string{"car", "education", "furniture", "business", "repairs"}
	histories := []string{"good", "average", "poor"}

	for i := 0; i < rows; i++ {
		age := 18 + rng.Intn(52)
		income := 800 + rng.ExpFloat64()*2200
		debt := rng.ExpFloat64() * 900
		years := rng.Intn(30)
		history := histories[rng.Intn(len(histories))]
		housing := housings[rng.Intn(len(housings))]
		purpose := purposes[rng.Intn(len(purposes))]
		dependents := rng.Intn(4)

		// Approval follows a noisy score over income, debt, and history.
		score := income/1000 - debt/500 + float64(years)*0.1
		switch history {
		case "good":
			score += 1.5
		case "poor":
			score -= 1.5
		}
		score += rng.NormFloat64()

		label := "-"
		if score > 2.0 {
			label = "+"
		}

		record := []string{
			strconv.Itoa(age),
			strconv.FormatFloat(income, 'f', 2, 64),
			strconv.FormatFloat(debt, 'f', 2, 64),
			strconv.Itoa(years),
			history,
			housing,
			purpose,
			strconv.Itoa(dependents),
			label,
		}
		// Blank out feature cells, never the label.
		for c := 0; c < len(record)-1; c++ {
			if rng.Float64() < missingRate {
				record[c] = "?"
			}
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
