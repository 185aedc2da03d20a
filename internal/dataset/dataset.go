// Package dataset loads the raw credit-approval table and prepares the fully
// numeric form the pipeline consumes: missing values imputed, categorical
// columns one-hot encoded, the target mapped to {0,1}.
package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"credit-screener/internal/common"
)

// Table holds raw string-valued records straight from a CSV file.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Dataset is the encoded, fully numeric form. Columns includes the target;
// Data is row-major with one value per column.
type Dataset struct {
	Columns []string
	Data    [][]float64
	Target  string
}

// ColumnIndex returns the position of a column, or -1 when absent.
func (d *Dataset) ColumnIndex(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of one column's values.
func (d *Dataset) Column(name string) ([]float64, bool) {
	idx := d.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]float64, len(d.Data))
	for i, row := range d.Data {
		out[i] = row[idx]
	}
	return out, true
}

// FeatureNames returns all column names except the target, in column order.
func (d *Dataset) FeatureNames() []string {
	names := make([]string, 0, len(d.Columns))
	for _, c := range d.Columns {
		if c != d.Target {
			names = append(names, c)
		}
	}
	return names
}

// Matrix extracts the named feature columns as a fresh row-major matrix.
func (d *Dataset) Matrix(features []string) ([][]float64, error) {
	idx := make([]int, len(features))
	for i, name := range features {
		j := d.ColumnIndex(name)
		if j < 0 {
			return nil, fmt.Errorf("%w: feature column %q not found", common.ErrConfig, name)
		}
		idx[i] = j
	}
	out := make([][]float64, len(d.Data))
	for r, row := range d.Data {
		out[r] = make([]float64, len(idx))
		for c, j := range idx {
			out[r][c] = row[j]
		}
	}
	return out, nil
}

// Labels returns the target column as binary int labels.
func (d *Dataset) Labels() ([]int, error) {
	col, ok := d.Column(d.Target)
	if !ok {
		return nil, fmt.Errorf("%w: target column %q not found", common.ErrConfig, d.Target)
	}
	labels := make([]int, len(col))
	for i, v := range col {
		switch v {
		case 0:
			labels[i] = 0
		case 1:
			labels[i] = 1
		default:
			return nil, fmt.Errorf("%w: target value %g at row %d is not binary", common.ErrConfig, v, i)
		}
	}
	return labels, nil
}

// NumRows returns the record count.
func (d *Dataset) NumRows() int {
	return len(d.Data)
}

// Impute fills missing cells in place: numeric columns get the column mean,
// categorical columns the most frequent value (first seen wins ties). The
// target column is left alone; rows with a missing target are dropped at
// encoding time instead.
func (t *Table) Impute(missing, target string) {
	filled := 0
	for c, name := range t.Columns {
		if name == target {
			continue
		}
		if isNumericColumn(t.Rows, c, missing) {
			mean, ok := columnMean(t.Rows, c, missing)
			if !ok {
				continue
			}
			repl := strconv.FormatFloat(mean, 'f', -1, 64)
			filled += fillMissing(t.Rows, c, missing, repl)
		} else {
			mode, ok := columnMode(t.Rows, c, missing)
			if !ok {
				continue
			}
			filled += fillMissing(t.Rows, c, missing, mode)
		}
	}
	if filled > 0 {
		log.Info().Int("cells", filled).Msg("Imputed missing values")
	}
}

// Encode produces the numeric dataset: numeric columns pass through,
// categorical columns expand to one 0/1 indicator per distinct value
// ("col=value", values in first-seen order), and the target maps to {0,1}
// with positiveLabel as 1. Rows with a missing target are dropped.
func (t *Table) Encode(target, missing, positiveLabel string) (*Dataset, error) {
	targetIdx := -1
	for i, c := range t.Columns {
		if c == target {
			targetIdx = i
		}
	}
	if targetIdx < 0 {
		return nil, fmt.Errorf("%w: target column %q not found", common.ErrConfig, target)
	}

	rows := make([][]string, 0, len(t.Rows))
	dropped := 0
	for _, row := range t.Rows {
		if row[targetIdx] == missing || strings.TrimSpace(row[targetIdx]) == "" {
			dropped++
			continue
		}
		rows = append(rows, row)
	}
	if dropped > 0 {
		log.Warn().Int("rows", dropped).Msg("Dropped rows with missing target")
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows with a target value", common.ErrConfig)
	}

	distinct := distinctValues(rows, targetIdx)
	if len(distinct) > 2 {
		return nil, fmt.Errorf("%w: target column %q has %d distinct values, want 2",
			common.ErrConfig, target, len(distinct))
	}

	var columns []string
	var encoders []func(row []string) []float64

	for c, name := range t.Columns {
		c := c
		if c == targetIdx {
			continue
		}
		switch {
		case isNumericColumn(rows, c, missing):
			columns = append(columns, name)
			encoders = append(encoders, func(row []string) []float64 {
				v, err := strconv.ParseFloat(row[c], 64)
				if err != nil {
					v = 0
				}
				return []float64{v}
			})
		default:
			values := distinctValues(rows, c)
			if len(values) == 0 {
				log.Warn().Str("column", name).Msg("Dropping column with no values")
				continue
			}
			for _, v := range values {
				columns = append(columns, name+"="+v)
			}
			encoders = append(encoders, func(row []string) []float64 {
				out := make([]float64, len(values))
				for i, v := range values {
					if row[c] == v {
						out[i] = 1
					}
				}
				return out
			})
		}
	}
	columns = append(columns, target)

	isPositive := positiveTargetFunc(distinct, positiveLabel)

	data := make([][]float64, len(rows))
	for r, row := range rows {
		enc := make([]float64, 0, len(columns))
		for _, e := range encoders {
			enc = append(enc, e(row)...)
		}
		if isPositive(row[targetIdx]) {
			enc = append(enc, 1)
		} else {
			enc = append(enc, 0)
		}
		data[r] = enc
	}

	log.Info().
		Int("rows", len(data)).
		Int("raw_columns", len(t.Columns)).
		Int("encoded_columns", len(columns)).
		Str("target", target).
		Msg("Dataset encoded")

	return &Dataset{Columns: columns, Data: data, Target: target}, nil
}

// positiveTargetFunc decides which raw target value maps to label 1. The
// configured positive label wins when present; otherwise "1" does; otherwise
// the second distinct value in first-seen order.
func positiveTargetFunc(distinct []string, positiveLabel string) func(string) bool {
	for _, v := range distinct {
		if v == positiveLabel {
			return func(s string) bool { return s == positiveLabel }
		}
	}
	for _, v := range distinct {
		if v == "1" {
			return func(s string) bool { return s == "1" }
		}
	}
	positive := distinct[len(distinct)-1]
	return func(s string) bool { return s == positive }
}

func isNumericColumn(rows [][]string, col int, missing string) bool {
	seen := false
	for _, row := range rows {
		v := row[col]
		if v == missing || strings.TrimSpace(v) == "" {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}

func columnMean(rows [][]string, col int, missing string) (float64, bool) {
	sum, n := 0.0, 0
	for _, row := range rows {
		v := row[col]
		if v == missing || strings.TrimSpace(v) == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		sum += f
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func columnMode(rows [][]string, col int, missing string) (string, bool) {
	counts := make(map[string]int)
	var order []string
	for _, row := range rows {
		v := row[col]
		if v == missing || strings.TrimSpace(v) == "" {
			continue
		}
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}
	if len(order) == 0 {
		return "", false
	}
	best, bestN := order[0], counts[order[0]]
	for _, v := range order[1:] {
		if counts[v] > bestN {
			best, bestN = v, counts[v]
		}
	}
	return best, true
}

func fillMissing(rows [][]string, col int, missing, replacement string) int {
	n := 0
	for _, row := range rows {
		if row[col] == missing || strings.TrimSpace(row[col]) == "" {
			row[col] = replacement
			n++
		}
	}
	return n
}

func distinctValues(rows [][]string, col int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, row := range rows {
		v := row[col]
		if v == "" {
			continue
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
