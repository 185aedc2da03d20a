package dataset

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"credit-screener/internal/common"
)

func sampleTable() *Table {
	return &Table{
		Columns: []string{"age", "income", "housing", "approved"},
		Rows: [][]string{
			{"30", "1200", "own", "+"},
			{"40", "?", "rent", "-"},
			{"?", "1800", "own", "+"},
			{"50", "3000", "free", "-"},
		},
	}
}

func TestRead(t *testing.T) {
	t.Parallel()

	csvData := "a,b,label\n1,x,+\n2,y,-\nbad_row_with_one_field\n3,z,+\n"
	table, err := Read(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(table.Columns, []string{"a", "b", "label"}) {
		t.Errorf("columns = %v", table.Columns)
	}
	if len(table.Rows) != 3 {
		t.Errorf("expected 3 rows after skipping malformed, got %d", len(table.Rows))
	}
}

func TestImpute(t *testing.T) {
	t.Parallel()

	table := &Table{
		Columns: []string{"score", "color", "approved"},
		Rows: [][]string{
			{"10", "red", "+"},
			{"?", "blue", "-"},
			{"20", "?", "+"},
			{"30", "red", "-"},
		},
	}
	table.Impute("?", "approved")

	// Numeric missing becomes mean of present values (10+20+30)/3 = 20.
	if table.Rows[1][0] != "20" {
		t.Errorf("numeric imputation = %q, want 20", table.Rows[1][0])
	}
	// Categorical missing becomes the mode.
	if table.Rows[2][1] != "red" {
		t.Errorf("categorical imputation = %q, want red", table.Rows[2][1])
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	table := sampleTable()
	table.Impute("?", "approved")
	ds, err := table.Encode("approved", "?", "+")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantColumns := []string{"age", "income", "housing=own", "housing=rent", "housing=free", "approved"}
	if !reflect.DeepEqual(ds.Columns, wantColumns) {
		t.Errorf("columns = %v, want %v", ds.Columns, wantColumns)
	}

	labels, err := ds.Labels()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(labels, []int{1, 0, 1, 0}) {
		t.Errorf("labels = %v", labels)
	}

	// Row 0: own housing -> indicator set, others zero.
	row := ds.Data[0]
	if row[2] != 1 || row[3] != 0 || row[4] != 0 {
		t.Errorf("one-hot row 0 = %v", row[2:5])
	}

	// Imputed age in row 2 is the mean of 30, 40, 50.
	if math.Abs(ds.Data[2][0]-40) > 1e-9 {
		t.Errorf("imputed age = %f, want 40", ds.Data[2][0])
	}
}

func TestEncodeDeterministic(t *testing.T) {
	t.Parallel()

	a := sampleTable()
	a.Impute("?", "approved")
	b := sampleTable()
	b.Impute("?", "approved")

	dsA, err := a.Encode("approved", "?", "+")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dsB, err := b.Encode("approved", "?", "+")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(dsA.Columns, dsB.Columns) {
		t.Errorf("encoding not deterministic: %v vs %v", dsA.Columns, dsB.Columns)
	}
	if !reflect.DeepEqual(dsA.Data, dsB.Data) {
		t.Error("encoded data differs between identical inputs")
	}
}

func TestEncodeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		table  *Table
		target string
	}{
		{
			name:   "missing target column",
			table:  sampleTable(),
			target: "nope",
		},
		{
			name: "target with three classes",
			table: &Table{
				Columns: []string{"x", "label"},
				Rows:    [][]string{{"1", "a"}, {"2", "b"}, {"3", "c"}},
			},
			target: "label",
		},
		{
			name: "all rows missing target",
			table: &Table{
				Columns: []string{"x", "label"},
				Rows:    [][]string{{"1", "?"}, {"2", "?"}},
			},
			target: "label",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := tt.table.Encode(tt.target, "?", "+")
			if err == nil {
				t.Fatal("expected error, got none")
			}
			if !errors.Is(err, common.ErrConfig) {
				t.Errorf("error %v is not a configuration error", err)
			}
		})
	}
}

func TestEncodeDropsMissingTargetRows(t *testing.T) {
	t.Parallel()

	table := &Table{
		Columns: []string{"x", "label"},
		Rows:    [][]string{{"1", "+"}, {"2", "?"}, {"3", "-"}},
	}
	ds, err := table.Encode("label", "?", "+")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.NumRows() != 2 {
		t.Errorf("rows = %d, want 2", ds.NumRows())
	}
}

func TestMatrixAndFeatureNames(t *testing.T) {
	t.Parallel()

	ds := &Dataset{
		Columns: []string{"a", "b", "label"},
		Data:    [][]float64{{1, 2, 1}, {3, 4, 0}},
		Target:  "label",
	}

	if names := ds.FeatureNames(); !reflect.DeepEqual(names, []string{"a", "b"}) {
		t.Errorf("FeatureNames() = %v", names)
	}

	X, err := ds.Matrix([]string{"b", "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]float64{{2, 1}, {4, 3}}
	if !reflect.DeepEqual(X, want) {
		t.Errorf("Matrix() = %v, want %v", X, want)
	}

	if _, err := ds.Matrix([]string{"missing"}); !errors.Is(err, common.ErrConfig) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestPositiveLabelFallbacks(t *testing.T) {
	t.Parallel()

	// Numeric 0/1 target without the configured "+" marker.
	table := &Table{
		Columns: []string{"x", "label"},
		Rows:    [][]string{{"1", "0"}, {"2", "1"}},
	}
	ds, err := table.Encode("label", "?", "+")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	labels, err := ds.Labels()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(labels, []int{0, 1}) {
		t.Errorf("labels = %v, want [0 1]", labels)
	}
}
