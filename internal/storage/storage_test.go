package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"credit-screener/internal/common"
	"credit-screener/internal/evaluate"
	"credit-screener/internal/features"
	"credit-screener/internal/model"
	"credit-screener/internal/pipeline"
)

func sampleSummary(rows int) *pipeline.Summary {
	now := time.Now()
	return &pipeline.Summary{
		StartedAt:    now.Add(-time.Minute),
		FinishedAt:   now,
		Rows:         rows,
		Features:     6,
		Target:       "approved",
		Seed:         42,
		TestFraction: 0.3,
		Weights:      evaluate.DefaultWeights(),
		TopFeatures:  []features.Ranked{{Name: "income", Correlation: 0.8}},
		Runs: []pipeline.RunResult{
			{
				Family:       common.FamilyDecisionTree,
				Variant:      common.VariantAllFeatures,
				FeatureNames: []string{"income", "debt"},
				Params:       model.Params{"max_depth": 5},
				CVAccuracy:   0.87,
				TestAccuracy: 0.85,
				Confusion:    &evaluate.ConfusionMatrix{TN: 40, FP: 5, FN: 3, TP: 52},
				NetProfit:    7090,
			},
		},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNew(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "runs.db")

	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	if store.db == nil {
		t.Error("Store database is nil")
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNewCreatesParentDirectories(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "history", "runs.db")

	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store in nested path: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created in nested path")
	}
}

func TestStoreClose(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Errorf("Error closing store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Error closing already closed store: %v", err)
	}

	nilStore := &Store{db: nil}
	if err := nilStore.Close(); err != nil {
		t.Errorf("Expected no error for nil db, got: %v", err)
	}
}

func TestSaveAndGetRun(t *testing.T) {
	store := newTestStore(t)

	id, err := store.SaveRun(sampleSummary(690))
	if err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}
	if !strings.HasPrefix(id, "run_") {
		t.Errorf("run ID %q does not carry the run_ prefix", id)
	}

	record, err := store.GetRun(id)
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}
	if record.ID != id {
		t.Errorf("record ID = %s, want %s", record.ID, id)
	}
	if record.Summary.Rows != 690 {
		t.Errorf("summary rows = %d, want 690", record.Summary.Rows)
	}
	if record.Summary.Target != "approved" {
		t.Errorf("summary target = %s, want approved", record.Summary.Target)
	}
	if len(record.Summary.Runs) != 1 {
		t.Fatalf("stored run count = %d, want 1", len(record.Summary.Runs))
	}

	run := record.Summary.Runs[0]
	if run.Family != common.FamilyDecisionTree || run.Variant != common.VariantAllFeatures {
		t.Errorf("stored run labels = %s/%s", run.Family, run.Variant)
	}
	if depth := run.Params.Int("max_depth", 0); depth != 5 {
		t.Errorf("stored max_depth = %d, want 5", depth)
	}
	if run.Confusion == nil || run.Confusion.TP != 52 {
		t.Errorf("stored confusion matrix lost data: %+v", run.Confusion)
	}
}

func TestGetRunNotFound(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.GetRun("run_123"); err == nil {
		t.Error("Expected error for unknown run ID, got nil")
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := newTestStore(t)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := store.SaveRun(sampleSummary(100 + i))
		if err != nil {
			t.Fatalf("Failed to save run %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	records, err := store.ListRuns(0)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 runs, got %d", len(records))
	}
	for i, record := range records {
		want := ids[len(ids)-1-i]
		if record.ID != want {
			t.Errorf("position %d holds %s, want %s", i, record.ID, want)
		}
	}
}

func TestListRunsLimit(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 5; i++ {
		if _, err := store.SaveRun(sampleSummary(100 + i)); err != nil {
			t.Fatalf("Failed to save run %d: %v", i, err)
		}
	}

	records, err := store.ListRuns(2)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("Expected 2 runs with limit, got %d", len(records))
	}
	if records[0].Summary.Rows != 104 {
		t.Errorf("newest run rows = %d, want 104", records[0].Summary.Rows)
	}
}

func TestListRunsEmpty(t *testing.T) {
	store := newTestStore(t)

	records, err := store.ListRuns(10)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected empty result, got %d runs", len(records))
	}
}

func TestRunsBetween(t *testing.T) {
	store := newTestStore(t)

	before := time.Now().Add(-time.Second)
	firstID, err := store.SaveRun(sampleSummary(100))
	if err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}
	if _, err := store.SaveRun(sampleSummary(101)); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}
	mid := time.Now()
	if _, err := store.SaveRun(sampleSummary(102)); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}

	records, err := store.RunsBetween(before, mid)
	if err != nil {
		t.Fatalf("Failed to query range: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 runs in range, got %d", len(records))
	}
	if records[0].ID != firstID {
		t.Errorf("range scan should return oldest first, got %s", records[0].ID)
	}
}

func TestDeleteRun(t *testing.T) {
	store := newTestStore(t)

	id, err := store.SaveRun(sampleSummary(100))
	if err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}

	if err := store.DeleteRun(id); err != nil {
		t.Fatalf("Failed to delete run: %v", err)
	}
	if _, err := store.GetRun(id); err == nil {
		t.Error("Expected error after deleting run, got nil")
	}

	if err := store.DeleteRun("run_does_not_exist"); err != nil {
		t.Errorf("Deleting unknown ID should be a no-op, got: %v", err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := newTestStore(t)

	done := make(chan bool, 10)
	for i := 0; i < 5; i++ {
		go func() {
			for j := 0; j < 10; j++ {
				store.SaveRun(sampleSummary(j))
			}
			done <- true
		}()
	}
	for i := 0; i < 5; i++ {
		go func() {
			for j := 0; j < 10; j++ {
				store.ListRuns(5)
				store.RunsBetween(time.Now().Add(-time.Minute), time.Now())
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func BenchmarkSaveRun(b *testing.B) {
	store, err := New(filepath.Join(b.TempDir(), "runs.db"))
	if err != nil {
		b.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	summary := sampleSummary(690)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := store.SaveRun(summary); err != nil {
			b.Fatalf("Failed to save run: %v", err)
		}
	}
}
