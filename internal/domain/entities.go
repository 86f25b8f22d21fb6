package domain

import (
	"sort"
	"strings"
	"time"
)

// FunctionUnit is one function definition lifted out of a source file.
// Everything except TargetPath, Deps and Headers is fixed at extraction time.
type FunctionUnit struct {
	Name        string           `json:"name"`
	ReturnType  string           `json:"return_type"`
	Params      string           `json:"params"`
	Body        string           `json:"-"`
	Docs        string           `json:"-"`
	FullText    string           `json:"-"`
	Static      bool             `json:"static"`
	Inline      bool             `json:"inline,omitempty"`
	SourceFile  string           `json:"source_file"`
	Origin      string           `json:"origin,omitempty"`
	StartLine   int              `json:"start_line"`
	EndLine     int              `json:"end_line"`
	StartOffset int              `json:"-"`
	EndOffset   int              `json:"-"`
	TargetPath  string           `json:"target_path,omitempty"`
	Deps        DependencyRecord `json:"deps"`
	Headers     []string         `json:"headers,omitempty"`
}

// OriginFile is the consolidated file the unit first came from.
func (u FunctionUnit) OriginFile() string {
	if u.Origin != "" {
		return u.Origin
	}
	return u.SourceFile
}

// Key identifies a unit across files; static helpers may share names.
func (u FunctionUnit) Key() string {
	return u.SourceFile + ":" + u.Name
}

// Declarator renders "ret name(params)" with C pointer spacing.
func (u FunctionUnit) Declarator() string {
	ret := u.ReturnType
	if ret == "" {
		return u.Name + "(" + u.Params + ")"
	}
	if strings.HasSuffix(ret, "*") {
		return ret + u.Name + "(" + u.Params + ")"
	}
	return ret + " " + u.Name + "(" + u.Params + ")"
}

// Prototype renders a declaration terminated by ';'.
func (u FunctionUnit) Prototype() string {
	if u.Static {
		return "static " + u.Declarator() + ";"
	}
	return u.Declarator() + ";"
}

// DependencyRecord lists what a unit refers to. All slices are sorted and unique.
type DependencyRecord struct {
	Calls      []string `json:"calls,omitempty"`
	Types      []string `json:"types,omitempty"`
	Primitives []string `json:"primitives,omitempty"`
	Headers    []string `json:"headers,omitempty"`
	Unresolved []string `json:"unresolved,omitempty"`
}

// CallsName reports whether name appears among the record's call targets.
func (d DependencyRecord) CallsName(name string) bool {
	i := sort.SearchStrings(d.Calls, name)
	return i < len(d.Calls) && d.Calls[i] == name
}

// EntryKind distinguishes catalog entries.
type EntryKind string

const (
	KindFunction EntryKind = "function"
	KindType     EntryKind = "type"
)

// CatalogEntry is one identifier declared in a shared header.
type CatalogEntry struct {
	Name    string    `json:"name"`
	Kind    EntryKind `json:"kind"`
	Header  string    `json:"header"`
	Text    string    `json:"text"`
	Forward bool      `json:"forward,omitempty"`
	Line    int       `json:"line"`
}

// TypeDefinition is the type-shaped view of a catalog entry.
type TypeDefinition struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
	Header     string `json:"header"`
	Forward    bool   `json:"forward,omitempty"`
}

// Module is one target directory and the units routed into it.
type Module struct {
	Dir        string         `json:"dir"`
	HeaderPath string         `json:"header_path"`
	Units      []FunctionUnit `json:"units"`
}

// OutputFile is one generated translation unit.
type OutputFile struct {
	Path    string   `json:"path"`
	Primary string   `json:"primary"`
	Units   []string `json:"units"`
	Source  string   `json:"source"`
	Content string   `json:"-"`
}

// HeaderFile is one generated module header.
type HeaderFile struct {
	Path         string   `json:"path"`
	Guard        string   `json:"guard"`
	Declarations []string `json:"declarations"`
	Content      string   `json:"-"`
}

// StaticGroup records the helpers folded into a host file.
type StaticGroup struct {
	Host    string   `json:"host"`
	Tier    string   `json:"tier"`
	Helpers []string `json:"helpers"`
}

// Plan is the full set of changes a run would make.
type Plan struct {
	Root        string         `json:"root"`
	OutputRoot  string         `json:"output_root"`
	Sources     []string       `json:"sources"`
	Units       []FunctionUnit `json:"units"`
	Files       []OutputFile   `json:"files"`
	Headers     []HeaderFile   `json:"headers"`
	Groups      []StaticGroup  `json:"groups,omitempty"`
	BuildList   OutputFile     `json:"build_list"`
	Diagnostics []Diagnostic   `json:"diagnostics,omitempty"`
	Snapshot    Snapshot       `json:"snapshot"`
}

// Dirs returns the distinct target directories, sorted.
func (p *Plan) Dirs() []string {
	seen := make(map[string]struct{})
	for _, h := range p.Headers {
		seen[dirOf(h.Path)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Fatal reports whether any diagnostic in the plan is fatal.
func (p *Plan) Fatal() bool {
	for _, d := range p.Diagnostics {
		if d.Fatal {
			return true
		}
	}
	return false
}

func dirOf(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[:i]
	}
	return "."
}

// FileSnapshot captures one input file before the run.
type FileSnapshot struct {
	Path      string   `json:"path"`
	Hash      string   `json:"hash"`
	Lines     int      `json:"lines"`
	Size      int64    `json:"size"`
	Functions []string `json:"functions"`
}

// Snapshot is the pre-run state the validator compares against.
type Snapshot struct {
	TakenAt   time.Time         `json:"taken_at"`
	Files     []FileSnapshot    `json:"files"`
	Functions int               `json:"functions"`
	Lines     int               `json:"lines"`
	Expected  map[string][]string `json:"expected"`
	Outputs   []string          `json:"outputs"`
}

// ValidationReport is the validator's verdict on a run.
type ValidationReport struct {
	RunID           string       `json:"run_id"`
	Passed          bool         `json:"passed"`
	FunctionsBefore int          `json:"functions_before"`
	FunctionsAfter  int          `json:"functions_after"`
	LinesBefore     int          `json:"lines_before"`
	LinesAfter      int          `json:"lines_after"`
	LineDelta       float64      `json:"line_delta"`
	MaxFileSize     int64        `json:"max_file_size"`
	FilesChecked    int          `json:"files_checked"`
	Missing         []string     `json:"missing"`
	Extra           []string     `json:"extra"`
	Diagnostics     []Diagnostic `json:"diagnostics"`
}

// Warnings returns the non-fatal diagnostics.
func (r *ValidationReport) Warnings() []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if !d.Fatal {
			out = append(out, d)
		}
	}
	return out
}

// RunStatus is the stage a recorded run reached.
type RunStatus string

const (
	RunWritten   RunStatus = "written"
	RunValidated RunStatus = "validated"
	RunFailed    RunStatus = "failed"
)

// Run is one apply invocation as recorded in the ledger.
type Run struct {
	ID         string            `json:"id"`
	StartedAt  time.Time         `json:"started_at"`
	Root       string            `json:"root"`
	OutputRoot string            `json:"output_root"`
	ConfigHash string            `json:"config_hash"`
	Status     RunStatus         `json:"status"`
	BackupDir  string            `json:"backup_dir,omitempty"`
	Written    []string          `json:"written"`
	Removed    []string          `json:"removed,omitempty"`
	Snapshot   Snapshot          `json:"snapshot"`
	Report     *ValidationReport `json:"report,omitempty"`
}
