package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// Load reads a CSV file with a header row into a raw Table. Rows whose field
// count does not match the header are skipped, not fatal.
func Load(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	table, err := Read(file)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("file", path).
		Int("rows", len(table.Rows)).
		Int("columns", len(table.Columns)).
		Msg("Dataset loaded")

	return table, nil
}

// Read parses CSV content from any reader.
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	columns := make([]string, len(header))
	for i, col := range header {
		columns[i] = strings.TrimSpace(col)
	}

	var rows [][]string
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		if len(record) != len(columns) {
			skipped++
			continue
		}
		row := make([]string, len(record))
		for i, v := range record {
			row[i] = strings.TrimSpace(v)
		}
		rows = append(rows, row)
	}
	if skipped > 0 {
		log.Warn().Int("rows", skipped).Msg("Skipped malformed CSV rows")
	}

	return &Table{Columns: columns, Rows: rows}, nil
}
