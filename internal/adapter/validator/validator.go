// Package validator checks a generated tree against the snapshot taken
// before it was written. It reports; it never repairs.
package validator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sort"
	"time"

	"genesis/internal/adapter/clex"
	"genesis/internal/adapter/extractor"
	"genesis/internal/domain"
	"genesis/internal/port"
)

const (
	DefaultLineTolerance = 0.20
	DefaultMaxFileSize   = 2048
)

// Options tunes the warning thresholds.
type Options struct {
	// LineTolerance is the allowed relative growth in total lines.
	LineTolerance float64
	// MaxFileSize is the size in bytes above which an output file is flagged.
	MaxFileSize int64
}

// FunctionCounter is an independent count of function definitions, used to
// cross-check the extractor.
type FunctionCounter interface {
	CountFunctions(ctx context.Context, src []byte) (int, error)
}

// Source is one input file as read at run start.
type Source struct {
	Path    string
	Content string
}

// Validator compares pre-run and post-run metrics.
type Validator struct {
	ext     *extractor.Extractor
	opts    Options
	counter FunctionCounter
}

// New creates a Validator. counter may be nil to skip the cross-check.
func New(opts Options, counter FunctionCounter) *Validator {
	if opts.LineTolerance <= 0 {
		opts.LineTolerance = DefaultLineTolerance
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	return &Validator{ext: extractor.New(), opts: opts, counter: counter}
}

// Snapshot records the inputs and the output set the plan promises. units
// are the functions extracted from sources; files are the planned outputs.
func (v *Validator) Snapshot(sources []Source, units []domain.FunctionUnit, files []domain.OutputFile) domain.Snapshot {
	byFile := make(map[string][]string)
	for _, u := range units {
		byFile[u.SourceFile] = append(byFile[u.SourceFile], u.Name)
	}

	snap := domain.Snapshot{
		TakenAt:  time.Now().UTC(),
		Expected: make(map[string][]string, len(files)),
	}
	for _, s := range sources {
		file := domain.FileSnapshot{
			Path:      s.Path,
			Hash:      hash(s.Content),
			Lines:     clex.Lines(s.Content),
			Size:      int64(len(s.Content)),
			Functions: byFile[s.Path],
		}
		snap.Files = append(snap.Files, file)
		snap.Functions += len(file.Functions)
		snap.Lines += file.Lines
	}
	for _, f := range files {
		snap.Expected[f.Path] = append([]string(nil), f.Units...)
		snap.Outputs = append(snap.Outputs, f.Path)
	}
	sort.Strings(snap.Outputs)
	return snap
}

// Validate re-extracts every output the snapshot expects, plus any strays
// found under the output root, and compares the result with the snapshot.
// Functions in a stray count like any other output. A missing output
// contributes no functions. Inputs that survived the run are re-hashed and
// flagged when they changed. The returned error is reserved for I/O
// failures; a failed comparison is reported through the report's Passed
// flag.
func (v *Validator) Validate(ctx context.Context, runID string, snap domain.Snapshot, reader port.FileReader, strays ...string) (*domain.ValidationReport, error) {
	report := &domain.ValidationReport{
		RunID:           runID,
		FunctionsBefore: snap.Functions,
		LinesBefore:     snap.Lines,
		Missing:         []string{},
		Extra:           []string{},
		Diagnostics:     []domain.Diagnostic{},
	}

	before := make(map[string]int)
	for _, f := range snap.Files {
		for _, name := range f.Functions {
			before[name]++
		}
	}
	after := make(map[string]int)

	for _, f := range snap.Files {
		if _, overwritten := snap.Expected[f.Path]; overwritten {
			continue
		}
		content, err := reader.ReadFile(f.Path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrIO, f.Path, err)
		}
		if hash(content) != f.Hash {
			report.Diagnostics = append(report.Diagnostics, domain.Diagnostic{
				Kind:    domain.DiagValidationFailure,
				File:    f.Path,
				Message: "input changed since the snapshot was taken",
			})
		}
	}

	paths := append(append([]string(nil), snap.Outputs...), strays...)
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := reader.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			report.Diagnostics = append(report.Diagnostics, domain.Diagnostic{
				Kind:    domain.DiagValidationFailure,
				File:    path,
				Message: "output file is missing",
			})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrIO, path, err)
		}
		if i >= len(snap.Outputs) {
			report.Diagnostics = append(report.Diagnostics, domain.Diagnostic{
				Kind:    domain.DiagValidationFailure,
				File:    path,
				Message: "not written by this run; its functions are counted",
			})
		}
		report.FilesChecked++
		report.LinesAfter += clex.Lines(content)

		size := int64(len(content))
		if size > report.MaxFileSize {
			report.MaxFileSize = size
		}
		if size > v.opts.MaxFileSize {
			report.Diagnostics = append(report.Diagnostics, domain.Diagnostic{
				Kind:    domain.DiagSizeWarning,
				File:    path,
				Message: fmt.Sprintf("%d bytes exceeds the %d byte ceiling", size, v.opts.MaxFileSize),
			})
		}

		units, err := v.ext.Extract(path, content)
		if err != nil {
			report.Diagnostics = append(report.Diagnostics, domain.Diagnostic{
				Kind:    domain.DiagParseError,
				File:    path,
				Message: err.Error(),
			})
			continue
		}
		for _, u := range units {
			after[u.Name]++
		}
		report.FunctionsAfter += len(units)

		if v.counter != nil {
			n, err := v.counter.CountFunctions(ctx, []byte(content))
			switch {
			case err != nil:
				report.Diagnostics = append(report.Diagnostics, domain.Diagnostic{
					Kind:    domain.DiagCrossCheckMismatch,
					File:    path,
					Message: "syntax cross-check failed: " + err.Error(),
				})
			case n != len(units):
				report.Diagnostics = append(report.Diagnostics, domain.Diagnostic{
					Kind:    domain.DiagCrossCheckMismatch,
					File:    path,
					Message: fmt.Sprintf("extractor found %d functions, syntax tree has %d", len(units), n),
				})
			}
		}
	}

	report.Missing = diff(before, after)
	report.Extra = diff(after, before)
	report.Passed = report.FunctionsBefore == report.FunctionsAfter &&
		len(report.Missing) == 0 && len(report.Extra) == 0

	if report.LinesBefore > 0 {
		report.LineDelta = float64(report.LinesAfter-report.LinesBefore) / float64(report.LinesBefore)
		if math.Abs(report.LineDelta) > v.opts.LineTolerance {
			report.Diagnostics = append(report.Diagnostics, domain.Diagnostic{
				Kind: domain.DiagLineDeltaWarning,
				Message: fmt.Sprintf("line count changed by %.1f%% (%d -> %d), tolerance %.0f%%",
					report.LineDelta*100, report.LinesBefore, report.LinesAfter, v.opts.LineTolerance*100),
			})
		}
	}

	if !report.Passed {
		report.Diagnostics = append(report.Diagnostics, domain.Diagnostic{
			Kind: domain.DiagValidationFailure,
			Message: fmt.Sprintf("%d functions before, %d after; %d missing, %d extra",
				report.FunctionsBefore, report.FunctionsAfter, len(report.Missing), len(report.Extra)),
			Fatal: true,
		})
	}
	return report, nil
}

func hash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// diff returns the names whose count in a exceeds their count in b, each
// repeated by the difference, sorted.
func diff(a, b map[string]int) []string {
	out := []string{}
	for name, n := range a {
		for i := b[name]; i < n; i++ {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
