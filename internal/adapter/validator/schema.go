package validator

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"genesis/internal/domain"
)

//go:embed report_schema.cue
var reportSchema []byte

// ReportSchema checks validation reports against the embedded contract
// before they are persisted or printed.
type ReportSchema struct {
	ctx    *cue.Context
	report cue.Value
}

// NewReportSchema compiles the embedded schema.
func NewReportSchema() (*ReportSchema, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(reportSchema)
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling report schema: %w", schema.Err())
	}
	// #Report is incomplete until a report is unified with it.
	def := schema.LookupPath(cue.ParsePath("#Report"))
	if !def.Exists() {
		return nil, fmt.Errorf("report schema has no #Report definition")
	}
	return &ReportSchema{ctx: ctx, report: def}, nil
}

// Check validates r.
func (s *ReportSchema) Check(r *domain.ValidationReport) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return s.CheckJSON(data)
}

// CheckJSON validates an encoded report.
func (s *ReportSchema) CheckJSON(data []byte) error {
	v := s.ctx.CompileBytes(data)
	if v.Err() != nil {
		return fmt.Errorf("compiling report: %w", v.Err())
	}
	if err := s.report.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("report violates schema: %w", err)
	}
	return nil
}
