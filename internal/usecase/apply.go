package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"genesis/config"
	"genesis/internal/adapter/fs"
	"genesis/internal/adapter/store"
	"genesis/internal/domain"
	"genesis/internal/logging"
	"genesis/internal/port"
)

// Confirmation tokens the user must type before destructive steps.
const (
	ProceedToken = "PROCEED"
	RemoveToken  = "YES"
)

// ConfirmFunc asks the user to type token; it reports whether they did.
type ConfirmFunc func(prompt, token string) (bool, error)

// ProgressFunc is called after each file is written.
type ProgressFunc func(processed, total int, currentFile string)

// ApplyOptions controls the destructive parts of an apply.
type ApplyOptions struct {
	// RemoveOriginals deletes the consolidated inputs after validation
	// passes. Inputs that are also outputs are never removed.
	RemoveOriginals bool
	// Confirm gates the write and the removal. nil means confirmed.
	Confirm  ConfirmFunc
	Progress ProgressFunc
}

// ApplyResult contains the results of an apply.
type ApplyResult struct {
	RunID     string
	BackupDir string
	Written   []string
	Removed   []string
	Report    *domain.ValidationReport
}

// ApplyUseCase writes a plan to disk and validates the result.
type ApplyUseCase struct {
	cfg      *config.Config
	tree     *fs.Tree
	ledger   port.RunLedger
	validate *ValidateUseCase
	logger   *logging.Logger
	now      func() time.Time
}

// NewApplyUseCase creates a new apply use case.
func NewApplyUseCase(cfg *config.Config, tree *fs.Tree, ledger port.RunLedger, logger *logging.Logger) (*ApplyUseCase, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	v, err := NewValidateUseCase(cfg, tree, ledger, logger)
	if err != nil {
		return nil, err
	}
	return &ApplyUseCase{
		cfg:      cfg,
		tree:     tree,
		ledger:   ledger,
		validate: v,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Apply backs up the inputs, writes every planned file, validates the tree
// and records the run. Cancellation is honoured only before the write
// starts. A validation failure returns the result with an error wrapping
// domain.ErrValidationFailed; originals are then left in place.
func (u *ApplyUseCase) Apply(ctx context.Context, plan *domain.Plan, opts ApplyOptions) (*ApplyResult, error) {
	ctx, span := startPhase(ctx, "apply")
	defer span.End()
	log := u.logger.WithPhase("write")

	if plan.Fatal() {
		return nil, errors.New("plan has fatal diagnostics; nothing written")
	}

	outputs := planOutputs(plan)
	prompt := fmt.Sprintf("About to write %d files under %s/ from %d sources.",
		len(outputs), plan.OutputRoot, len(plan.Sources))
	if err := confirm(opts.Confirm, prompt, ProceedToken); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	startedAt := u.now()
	toBackup := append([]string(nil), plan.Sources...)
	isSource := make(map[string]bool, len(plan.Sources))
	for _, s := range plan.Sources {
		isSource[s] = true
	}
	for _, o := range outputs {
		if !isSource[o.path] && u.tree.Exists(o.path) {
			toBackup = append(toBackup, o.path)
		}
	}
	backupDir, _, err := fs.Backup(u.tree.Root(), u.cfg.Backup.Dir, toBackup, startedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: backup: %v", domain.ErrIO, err)
	}
	log.Info("backup written", "dir", backupDir, "files", len(toBackup))

	result := &ApplyResult{RunID: uuid.NewString(), BackupDir: backupDir}

	// From here on the run is not cancellable.
	ctx = context.WithoutCancel(ctx)
	for i, o := range outputs {
		if err := u.tree.WriteFile(o.path, o.content); err != nil {
			return result, fmt.Errorf("%w: writing %s (restore from %s): %v", domain.ErrIO, o.path, backupDir, err)
		}
		result.Written = append(result.Written, o.path)
		if opts.Progress != nil {
			opts.Progress(i+1, len(outputs), o.path)
		}
	}
	recordWritten(ctx, len(result.Written))
	span.SetAttributes(attribute.Int("genesis.written", len(result.Written)))

	run := domain.Run{
		ID:         result.RunID,
		StartedAt:  startedAt,
		Root:       plan.Root,
		OutputRoot: plan.OutputRoot,
		ConfigHash: store.ComputeConfigHash(u.cfg),
		Status:     domain.RunWritten,
		BackupDir:  backupDir,
		Written:    result.Written,
		Snapshot:   plan.Snapshot,
	}
	if err := u.ledger.PutRun(run); err != nil {
		return result, fmt.Errorf("recording run: %w", err)
	}

	report, err := u.validate.check(ctx, result.RunID, plan.OutputRoot, plan.Snapshot)
	result.Report = report
	if err != nil {
		return result, err
	}

	if !opts.RemoveOriginals {
		return result, nil
	}
	written := make(map[string]bool, len(result.Written))
	for _, p := range result.Written {
		written[p] = true
	}
	var removable []string
	for _, s := range plan.Sources {
		if !written[s] {
			removable = append(removable, s)
		}
	}
	if len(removable) == 0 {
		return result, nil
	}
	prompt = fmt.Sprintf("Validation passed. Remove %d original files? A backup is in %s.", len(removable), backupDir)
	if err := confirm(opts.Confirm, prompt, RemoveToken); err != nil {
		if errors.Is(err, domain.ErrAborted) {
			log.Info("originals kept")
			return result, nil
		}
		return result, err
	}
	for _, p := range removable {
		if err := u.tree.Remove(p); err != nil {
			return result, fmt.Errorf("%w: removing %s: %v", domain.ErrIO, p, err)
		}
		result.Removed = append(result.Removed, p)
	}

	run, err = u.ledger.GetRun(result.RunID)
	if err != nil {
		return result, fmt.Errorf("recording removal: %w", err)
	}
	run.Removed = result.Removed
	if err := u.ledger.PutRun(run); err != nil {
		return result, fmt.Errorf("recording removal: %w", err)
	}
	log.Info("originals removed", "files", len(result.Removed))
	return result, nil
}

type output struct {
	path    string
	content string
}

// planOutputs lists every file a plan writes: sources, module headers and
// the build list.
func planOutputs(plan *domain.Plan) []output {
	out := make([]output, 0, len(plan.Files)+len(plan.Headers)+1)
	for _, f := range plan.Files {
		out = append(out, output{f.Path, f.Content})
	}
	for _, h := range plan.Headers {
		out = append(out, output{h.Path, h.Content})
	}
	if plan.BuildList.Path != "" {
		out = append(out, output{plan.BuildList.Path, plan.BuildList.Content})
	}
	return out
}

func confirm(fn ConfirmFunc, prompt, token string) error {
	if fn == nil {
		return nil
	}
	ok, err := fn(prompt, token)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrAborted
	}
	return nil
}
