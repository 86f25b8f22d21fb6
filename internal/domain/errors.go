package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying pipeline failures. Check with errors.Is.
var (
	// ErrParse marks a source file the extractor could not split, usually
	// an unbalanced brace. The whole run aborts.
	ErrParse = errors.New("parse error")

	// ErrCatalogAmbiguity marks a header symbol declared twice with
	// different text.
	ErrCatalogAmbiguity = errors.New("catalog ambiguity")

	ErrDependencyUnresolved = errors.New("unresolved dependency")
	ErrGroupingUnresolved   = errors.New("static helper has no host")

	// ErrValidationFailed means the output tree does not account for every
	// input function. The output is not authoritative.
	ErrValidationFailed = errors.New("validation failed")

	ErrIO           = errors.New("i/o error")
	ErrMissingInput = errors.New("missing input")

	// ErrDuplicateTarget means two units would be written to the same path.
	ErrDuplicateTarget = errors.New("duplicate target path")

	ErrAborted = errors.New("aborted by user")
)

// DiagnosticKind names a class of finding.
type DiagnosticKind string

const (
	DiagParseError           DiagnosticKind = "parse_error"
	DiagCatalogAmbiguity     DiagnosticKind = "catalog_ambiguity"
	DiagDependencyUnresolved DiagnosticKind = "dependency_unresolved"
	DiagGroupingUnresolved   DiagnosticKind = "grouping_unresolved"
	DiagValidationFailure    DiagnosticKind = "validation_failure"
	DiagIOError              DiagnosticKind = "io_error"
	DiagSizeWarning          DiagnosticKind = "size_warning"
	DiagLineDeltaWarning     DiagnosticKind = "line_delta_warning"
	DiagCrossCheckMismatch   DiagnosticKind = "crosscheck_mismatch"
	DiagResidualCode         DiagnosticKind = "residual_code"
)

// Diagnostic is a recorded finding. Fatal diagnostics stop the run.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Subject string         `json:"subject,omitempty"`
	File    string         `json:"file,omitempty"`
	Message string         `json:"message"`
	Fatal   bool           `json:"fatal"`
}

func (d Diagnostic) String() string {
	loc := d.File
	if d.Subject != "" {
		if loc != "" {
			loc += ": "
		}
		loc += d.Subject
	}
	if loc == "" {
		return fmt.Sprintf("[%s] %s", d.Kind, d.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Kind, loc, d.Message)
}
