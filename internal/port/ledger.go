package port

import (
	"errors"

	"genesis/internal/domain"
)

// ErrRunNotFound is returned when the ledger has no run with the given ID,
// or no runs at all.
var ErrRunNotFound = errors.New("run not found")

// RunLedger persists what each apply run did so a later validate can
// compare the tree against the snapshot taken before the write.
type RunLedger interface {
	PutRun(run domain.Run) error
	GetRun(id string) (domain.Run, error)
	LatestRun() (domain.Run, error)
	ListRuns() ([]domain.Run, error)
	PutReport(report domain.ValidationReport) error
	Close() error
}
