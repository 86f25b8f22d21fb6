// Package synth renders the generated tree: one source file per host, one
// header per directory and the build source list.
package synth

import (
	"path"
	"path/filepath"
	"sort"
	"strings"

	"genesis/internal/adapter/analyzer"
	"genesis/internal/domain"
)

// Options configures a Synthesizer.
type Options struct {
	// Common headers are included by every generated source file.
	Common []string
	// ModuleHeaders maps run-local function names missing from the catalog
	// to the module header that will declare them.
	ModuleHeaders map[string]string
}

// Synthesizer computes include sets against a catalog.
type Synthesizer struct {
	catalog  analyzer.Catalog
	analyzer *analyzer.Analyzer
	opts     Options
}

// New creates a Synthesizer.
func New(catalog analyzer.Catalog, a *analyzer.Analyzer, opts Options) *Synthesizer {
	return &Synthesizer{catalog: catalog, analyzer: a, opts: opts}
}

// HeaderTokens returns the include tokens u needs: origin headers of the
// functions it calls and the types it uses, plus system headers for the
// standard-library names it mentions. Calls to run-local functions the
// catalog does not know resolve to their module header, relative to
// u.TargetPath. u.Deps must be populated.
func (s *Synthesizer) HeaderTokens(u domain.FunctionUnit) []string {
	set := make(map[string]struct{})
	for _, c := range u.Deps.Calls {
		if e, ok := s.catalog.Lookup(c); ok && e.Kind == domain.KindFunction {
			set[local(e.Header)] = struct{}{}
			continue
		}
		if h, ok := s.opts.ModuleHeaders[c]; ok && u.TargetPath != "" {
			set[local(relativeTo(path.Dir(u.TargetPath), h))] = struct{}{}
		}
	}
	for _, t := range u.Deps.Types {
		if h := s.typeHeader(t); h != "" {
			set[h] = struct{}{}
		}
	}
	for _, p := range u.Deps.Primitives {
		if h, ok := stdHeader(p); ok {
			set[h] = struct{}{}
		}
	}
	return SortIncludes(keys(set))
}

func (s *Synthesizer) typeHeader(ref string) string {
	e, ok := s.catalog.Lookup(analyzer.TypeName(ref))
	if !ok || e.Kind != domain.KindType {
		return ""
	}
	return local(e.Header)
}

var stdHeader = analyzer.StdHeader

// Includes returns the include set of a source file holding units, routed
// into a directory whose module header is moduleHeader.
func (s *Synthesizer) Includes(units []domain.FunctionUnit, moduleHeader string) []string {
	set := make(map[string]struct{})
	for _, u := range units {
		tokens := u.Deps.Headers
		if tokens == nil {
			tokens = s.HeaderTokens(u)
		}
		for _, h := range tokens {
			set[h] = struct{}{}
		}
	}
	for _, h := range s.opts.Common {
		set[normalize(h)] = struct{}{}
	}
	if moduleHeader != "" {
		set[local(path.Base(moduleHeader))] = struct{}{}
	}
	return SortIncludes(keys(set))
}

// relativeTo returns target as seen from dir, both slash-separated paths
// under the same root.
func relativeTo(dir, target string) string {
	rel, err := filepath.Rel(filepath.FromSlash(dir), filepath.FromSlash(target))
	if err != nil {
		return target
	}
	return filepath.ToSlash(rel)
}

// SortIncludes puts system headers before local ones, each group sorted.
func SortIncludes(tokens []string) []string {
	var system, locals []string
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if strings.HasPrefix(t, "<") {
			system = append(system, t)
		} else {
			locals = append(locals, t)
		}
	}
	sort.Strings(system)
	sort.Strings(locals)
	return append(system, locals...)
}

// IncludeLines renders tokens as #include directives.
func IncludeLines(tokens []string) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString("#include ")
		b.WriteString(t)
		b.WriteByte('\n')
	}
	return b.String()
}

func local(header string) string {
	return `"` + header + `"`
}

// normalize accepts "x.h", "\"x.h\"" or "<x.h>".
func normalize(h string) string {
	if strings.HasPrefix(h, "<") || strings.HasPrefix(h, `"`) {
		return h
	}
	return local(h)
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
