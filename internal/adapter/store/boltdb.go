package store

import (
	"encoding/json"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"genesis/internal/domain"
	"genesis/internal/port"
)

var (
	bucketRuns    = []byte("runs")
	bucketReports = []byte("reports")
	bucketMeta    = []byte("meta")
	keyLatest     = []byte("latest_run")
)

var ErrRunNotFound = port.ErrRunNotFound

var _ port.RunLedger = (*BoltStore)(nil)

// BoltStore is the run ledger.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketRuns, bucketReports, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// PutRun stores run and marks it as the latest.
func (s *BoltStore) PutRun(run domain.Run) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(run)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketRuns).Put([]byte(run.ID), data); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keyLatest, []byte(run.ID))
	})
}

func (s *BoltStore) GetRun(id string) (domain.Run, error) {
	var run domain.Run
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketRuns).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return json.Unmarshal(data, &run)
	})
	return run, err
}

// LatestRun returns the most recently stored run.
func (s *BoltStore) LatestRun() (domain.Run, error) {
	var id string
	err := s.db.View(func(tx *bbolt.Tx) error {
		id = string(tx.Bucket(bucketMeta).Get(keyLatest))
		return nil
	})
	if err != nil {
		return domain.Run{}, err
	}
	if id == "" {
		return domain.Run{}, ErrRunNotFound
	}
	return s.GetRun(id)
}

// ListRuns returns every run, oldest first.
func (s *BoltStore) ListRuns() ([]domain.Run, error) {
	var runs []domain.Run
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(k, v []byte) error {
			var run domain.Run
			if err := json.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("decoding run %s: %w", k, err)
			}
			runs = append(runs, run)
			return nil
		})
	})
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].StartedAt.Before(runs[j].StartedAt) })
	return runs, err
}

// PutReport appends a validation report to its run's history and updates
// the run's status.
func (s *BoltStore) PutReport(report domain.ValidationReport) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		runs := tx.Bucket(bucketRuns)
		data := runs.Get([]byte(report.RunID))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrRunNotFound, report.RunID)
		}
		var run domain.Run
		if err := json.Unmarshal(data, &run); err != nil {
			return err
		}
		run.Report = &report
		run.Status = domain.RunValidated
		if !report.Passed {
			run.Status = domain.RunFailed
		}
		data, err := json.Marshal(run)
		if err != nil {
			return err
		}
		if err := runs.Put([]byte(run.ID), data); err != nil {
			return err
		}

		history, err := tx.Bucket(bucketReports).CreateBucketIfNotExists([]byte(report.RunID))
		if err != nil {
			return err
		}
		seq, err := history.NextSequence()
		if err != nil {
			return err
		}
		reportData, err := json.Marshal(report)
		if err != nil {
			return err
		}
		return history.Put([]byte(fmt.Sprintf("%08d", seq)), reportData)
	})
}

// Reports returns every report recorded for a run, oldest first.
func (s *BoltStore) Reports(runID string) ([]domain.ValidationReport, error) {
	var reports []domain.ValidationReport
	err := s.db.View(func(tx *bbolt.Tx) error {
		history := tx.Bucket(bucketReports).Bucket([]byte(runID))
		if history == nil {
			return nil
		}
		return history.ForEach(func(_, v []byte) error {
			var r domain.ValidationReport
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			reports = append(reports, r)
			return nil
		})
	})
	return reports, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
