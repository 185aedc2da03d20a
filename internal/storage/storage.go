// Package storage provides persistent run history for the credit
// screening pipeline. It uses BoltDB as the underlying storage engine to
// keep every evaluation summary, so finished screenings can be listed and
// compared later without rerunning them.
//
// The package provides thread-safe operations for storing and retrieving
// run records with efficient time-range queries.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"credit-screener/internal/pipeline"
)

const runsBucket = "runs" // Bucket name for storing evaluation summaries

// RunRecord is one stored evaluation summary with its storage identity.
type RunRecord struct {
	ID      string            `json:"id"`
	SavedAt time.Time         `json:"saved_at"`
	Summary *pipeline.Summary `json:"summary"`
}

// Store provides persistent storage for evaluation runs using BoltDB.
type Store struct {
	db *bbolt.DB // BoltDB database instance
}

// New creates a new storage instance backed by the given database file.
// Missing parent directories are created. Returns an error if the
// database cannot be opened or the bucket cannot be created.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(runsBucket)); err != nil {
			return fmt.Errorf("create runs bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
// It should be called when the storage is no longer needed to ensure
// proper cleanup of database resources.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRun stores an evaluation summary and returns its assigned ID.
// Records are keyed "run_<unixnano>" so lexicographic key order matches
// chronological order.
func (s *Store) SaveRun(summary *pipeline.Summary) (string, error) {
	record := RunRecord{
		ID:      fmt.Sprintf("run_%d", time.Now().UnixNano()),
		SavedAt: time.Now(),
		Summary: summary,
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal run record: %w", err)
		}
		return b.Put([]byte(record.ID), data)
	})
	if err != nil {
		return "", err
	}
	return record.ID, nil
}

// GetRun retrieves one stored run by its ID.
func (s *Store) GetRun(id string) (*RunRecord, error) {
	var record RunRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("run not found: %s", id)
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListRuns returns stored runs newest first. A limit of zero or less
// returns every stored run.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	var records []RunRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(runsBucket)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var record RunRecord
			if err := json.Unmarshal(v, &record); err != nil {
				continue // Skip malformed records
			}
			records = append(records, record)
		}
		return nil
	})
	return records, err
}

// RunsBetween retrieves runs saved within a time range, oldest first.
// The range is inclusive of both start and end times.
func (s *Store) RunsBetween(start, end time.Time) ([]RunRecord, error) {
	var records []RunRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(runsBucket)).Cursor()

		startKey := []byte(fmt.Sprintf("run_%d", start.UnixNano()))
		endKey := []byte(fmt.Sprintf("run_%d", end.UnixNano()))

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			var record RunRecord
			if err := json.Unmarshal(v, &record); err != nil {
				continue
			}
			records = append(records, record)
		}
		return nil
	})
	return records, err
}

// DeleteRun removes one stored run. Deleting an unknown ID is not an
// error.
func (s *Store) DeleteRun(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(runsBucket)).Delete([]byte(id))
	})
}
