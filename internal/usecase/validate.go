package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"

	"genesis/config"
	"genesis/internal/adapter/fs"
	"genesis/internal/adapter/validator"
	"genesis/internal/domain"
	"genesis/internal/logging"
	"genesis/internal/port"
)

// ValidateUseCase checks an output tree against a recorded run.
type ValidateUseCase struct {
	cfg       *config.Config
	tree      *fs.Tree
	ledger    port.RunLedger
	validator *validator.Validator
	schema    *validator.ReportSchema
	logger    *logging.Logger
}

// NewValidateUseCase creates a new validate use case.
func NewValidateUseCase(cfg *config.Config, tree *fs.Tree, ledger port.RunLedger, logger *logging.Logger) (*ValidateUseCase, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	schema, err := validator.NewReportSchema()
	if err != nil {
		return nil, err
	}
	var counter validator.FunctionCounter
	if cfg.Validate.SyntaxCrossCheck {
		counter = validator.TreeSitterCounter{}
	}
	return &ValidateUseCase{
		cfg:    cfg,
		tree:   tree,
		ledger: ledger,
		validator: validator.New(validator.Options{
			LineTolerance: cfg.Validate.LineTolerance,
			MaxFileSize:   cfg.Validate.MaxFileSize,
		}, counter),
		schema: schema,
		logger: logger,
	}, nil
}

// Validate re-checks the run with the given ID, or the latest run when id is
// empty. A failed comparison returns the report together with an error
// wrapping domain.ErrValidationFailed.
func (u *ValidateUseCase) Validate(ctx context.Context, id string) (*domain.ValidationReport, error) {
	var run domain.Run
	var err error
	if id == "" {
		run, err = u.ledger.LatestRun()
	} else {
		run, err = u.ledger.GetRun(id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run: %w", err)
	}
	return u.check(ctx, run.ID, run.OutputRoot, run.Snapshot)
}

// check validates the tree under outputRoot against snap, then records and
// publishes the report.
func (u *ValidateUseCase) check(ctx context.Context, runID, outputRoot string, snap domain.Snapshot) (*domain.ValidationReport, error) {
	ctx, span := startPhase(ctx, "validate", attribute.String("genesis.run_id", runID))
	defer span.End()
	log := u.logger.WithPhase("validate")

	strays, err := u.strays(outputRoot, snap)
	if err != nil {
		return nil, err
	}
	report, err := u.validator.Validate(ctx, runID, snap, u.tree, strays...)
	if err != nil {
		return nil, err
	}
	if err := u.schema.Check(report); err != nil {
		return nil, fmt.Errorf("internal error: %w", err)
	}
	for _, d := range report.Diagnostics {
		log.Diagnostic(d)
	}
	recordValidation(ctx, report.Passed)
	span.SetAttributes(attribute.Bool("genesis.passed", report.Passed))

	if err := u.writeReport(report); err != nil {
		return nil, err
	}
	if err := u.ledger.PutReport(*report); err != nil {
		return nil, fmt.Errorf("recording report: %w", err)
	}

	log.Info("validation finished", "passed", report.Passed,
		"functions_before", report.FunctionsBefore, "functions_after", report.FunctionsAfter,
		"missing", len(report.Missing), "extra", len(report.Extra))
	if !report.Passed {
		return report, fmt.Errorf("%w: %d functions before, %d after", domain.ErrValidationFailed,
			report.FunctionsBefore, report.FunctionsAfter)
	}
	return report, nil
}

// strays lists generated sources under outputRoot that the run neither wrote
// nor read as input.
func (u *ValidateUseCase) strays(outputRoot string, snap domain.Snapshot) ([]string, error) {
	dir := filepath.Join(u.tree.Root(), filepath.FromSlash(outputRoot))
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, nil
	}
	files, err := fs.NewWalker([]string{"**/*" + u.cfg.Mapping.Extension}, []string{config.StateDirName + "/**"}).Walk(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: scanning %s: %v", domain.ErrIO, outputRoot, err)
	}
	known := make(map[string]bool, len(snap.Outputs)+len(snap.Files))
	for _, p := range snap.Outputs {
		known[p] = true
	}
	for _, f := range snap.Files {
		known[f.Path] = true
	}
	var out []string
	for _, f := range files {
		if p := path.Join(outputRoot, f.Path); !known[p] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (u *ValidateUseCase) writeReport(report *domain.ValidationReport) error {
	root := u.tree.Root()
	if err := config.EnsureStateDir(root); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(config.ReportPath(root), append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("%w: writing report: %v", domain.ErrIO, err)
	}
	return nil
}
