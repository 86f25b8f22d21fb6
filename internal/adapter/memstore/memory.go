// Package memstore is an in-memory run ledger for tests.
package memstore

import (
	"fmt"
	"sort"
	"sync"

	"genesis/internal/domain"
	"genesis/internal/port"
)

type MemoryLedger struct {
	mu      sync.RWMutex
	runs    map[string]domain.Run
	reports map[string][]domain.ValidationReport
	latest  string
}

var _ port.RunLedger = (*MemoryLedger)(nil)

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		runs:    make(map[string]domain.Run),
		reports: make(map[string][]domain.ValidationReport),
	}
}

func (s *MemoryLedger) PutRun(run domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = cloneRun(run)
	s.latest = run.ID
	return nil
}

func (s *MemoryLedger) GetRun(id string) (domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return domain.Run{}, fmt.Errorf("%w: %s", port.ErrRunNotFound, id)
	}
	return cloneRun(run), nil
}

func (s *MemoryLedger) LatestRun() (domain.Run, error) {
	s.mu.RLock()
	latest := s.latest
	s.mu.RUnlock()
	if latest == "" {
		return domain.Run{}, port.ErrRunNotFound
	}
	return s.GetRun(latest)
}

// ListRuns returns every run, oldest first.
func (s *MemoryLedger) ListRuns() ([]domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := make([]domain.Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, cloneRun(run))
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].StartedAt.Before(runs[j].StartedAt) })
	return runs, nil
}

// PutReport attaches report to its run and appends it to the run's history.
func (s *MemoryLedger) PutReport(report domain.ValidationReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[report.RunID]
	if !ok {
		return fmt.Errorf("%w: %s", port.ErrRunNotFound, report.RunID)
	}
	run.Report = &report
	run.Status = domain.RunValidated
	if !report.Passed {
		run.Status = domain.RunFailed
	}
	s.runs[run.ID] = run
	s.reports[run.ID] = append(s.reports[run.ID], report)
	return nil
}

// Reports returns every report recorded for a run, oldest first.
func (s *MemoryLedger) Reports(runID string) []domain.ValidationReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ValidationReport(nil), s.reports[runID]...)
}

func (s *MemoryLedger) Close() error {
	return nil
}

// cloneRun copies the slices a caller could mutate.
func cloneRun(run domain.Run) domain.Run {
	run.Written = append([]string(nil), run.Written...)
	run.Removed = append([]string(nil), run.Removed...)
	if run.Report != nil {
		r := *run.Report
		run.Report = &r
	}
	return run
}
