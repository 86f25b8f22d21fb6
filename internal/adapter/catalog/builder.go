package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"genesis/internal/adapter/clex"
	"genesis/internal/adapter/extractor"
	"genesis/internal/domain"
)

// Header is one header file to scan. Token is the name other files use to
// include it, e.g. "ast.h" or "util/strings.h".
type Header struct {
	Token   string
	Content string
}

// Options configures a Builder.
type Options struct {
	// Strict turns conflicting duplicate declarations into a build error.
	Strict bool
}

// Builder scans headers into a Catalog.
type Builder struct {
	opts Options
}

// NewBuilder creates a Builder.
func NewBuilder(opts Options) *Builder {
	return &Builder{opts: opts}
}

var (
	fnPtrTypedef  = regexp.MustCompile(`\(\s*\*\s*(\w+)\s*\)`)
	trailingIdent = regexp.MustCompile(`(\w+)\s*(?:\[[^\]]*\]\s*)*$`)
	taggedDef     = regexp.MustCompile(`^(?:typedef\s+)?(?:struct|enum|union)\s+(\w+)\s*\{`)
	forwardDecl   = regexp.MustCompile(`^(?:struct|enum|union)\s+(\w+)\s*$`)
	externC       = regexp.MustCompile(`^extern\s*"\s*"$`)
)

type statement struct {
	text string
	norm string
	line int
}

// Build scans headers in two passes: types first, then prototypes. The first
// declaration of a name wins. Later ones are recorded as duplicates, and a
// later one with different text is an ambiguity.
func (b *Builder) Build(headers []Header) (*Catalog, error) {
	c := &Catalog{entries: make(map[string]domain.CatalogEntry)}

	parsed := make([][]statement, len(headers))
	for i, h := range headers {
		c.headers = append(c.headers, h.Token)
		parsed[i] = statements(h.Content)
	}

	for i, h := range headers {
		for _, st := range parsed[i] {
			if err := b.scanType(c, h.Token, st); err != nil {
				return nil, err
			}
		}
	}
	for i, h := range headers {
		for _, st := range parsed[i] {
			if err := b.scanPrototype(c, h.Token, st); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

func (b *Builder) scanType(c *Catalog, header string, st statement) error {
	body := strings.TrimSuffix(st.norm, ";")

	if strings.HasPrefix(body, "typedef ") {
		if m := taggedDef.FindStringSubmatch(body); m != nil {
			if err := b.addType(c, header, st, m[1], false); err != nil {
				return err
			}
		}
		name := typedefName(body)
		if name == "" {
			return nil
		}
		if m := taggedDef.FindStringSubmatch(body); m != nil && m[1] == name {
			return nil
		}
		return b.addType(c, header, st, name, false)
	}
	if m := taggedDef.FindStringSubmatch(body); m != nil {
		return b.addType(c, header, st, m[1], false)
	}
	if m := forwardDecl.FindStringSubmatch(body); m != nil {
		return b.addType(c, header, st, m[1], true)
	}
	return nil
}

func (b *Builder) scanPrototype(c *Catalog, header string, st statement) error {
	body := strings.TrimSuffix(st.norm, ";")
	if strings.HasPrefix(body, "typedef ") || strings.ContainsAny(body, "={}") {
		return nil
	}
	sig, ok := extractor.ParseSignature(body)
	if !ok {
		return nil
	}
	if existing, ok := c.entries[sig.Name]; ok && existing.Kind == domain.KindType {
		return nil
	}
	entry := domain.CatalogEntry{
		Name:   sig.Name,
		Kind:   domain.KindFunction,
		Header: header,
		Text:   st.norm,
		Line:   st.line,
	}
	return b.add(c, entry)
}

func (b *Builder) addType(c *Catalog, header string, st statement, name string, forward bool) error {
	entry := domain.CatalogEntry{
		Name:    name,
		Kind:    domain.KindType,
		Header:  header,
		Text:    strings.TrimSpace(st.text),
		Forward: forward,
		Line:    st.line,
	}
	existing, ok := c.entries[name]
	switch {
	case !ok:
		c.entries[name] = entry
		return nil
	case forward:
		return nil
	case existing.Forward:
		c.entries[name] = entry
		return nil
	}
	return b.add(c, entry)
}

// add inserts entry or records it as a duplicate of the existing one.
func (b *Builder) add(c *Catalog, entry domain.CatalogEntry) error {
	first, ok := c.entries[entry.Name]
	if !ok {
		c.entries[entry.Name] = entry
		return nil
	}
	conflict := collapse(first.Text) != collapse(entry.Text)
	c.duplicates = append(c.duplicates, Duplicate{
		Name:     entry.Name,
		Header:   entry.Header,
		First:    first.Header,
		Conflict: conflict,
	})
	if !conflict {
		return nil
	}
	d := domain.Diagnostic{
		Kind:    domain.DiagCatalogAmbiguity,
		Subject: entry.Name,
		File:    entry.Header,
		Message: fmt.Sprintf("conflicts with declaration in %s:%d; keeping the first", first.Header, first.Line),
		Fatal:   b.opts.Strict,
	}
	c.diagnostics = append(c.diagnostics, d)
	if b.opts.Strict {
		return fmt.Errorf("%s: %s declared differently in %s and %s: %w",
			entry.Header, entry.Name, first.Header, entry.Header, domain.ErrCatalogAmbiguity)
	}
	return nil
}

func typedefName(body string) string {
	if m := fnPtrTypedef.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	if m := trailingIdent.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	return ""
}

// statements splits header text into top-level declarations ending in ';'.
// Braces opened by extern "C" blocks do not count as nesting.
func statements(src string) []statement {
	spans := clex.Scan(src)
	masked := clex.MaskSpans(src, spans)
	lines := clex.NewLineIndex(src)

	var out []statement
	var stack []bool
	depth := 0
	start := 0
	openAt := 0
	for i := 0; i < len(masked); i++ {
		switch masked[i] {
		case '{':
			transparent := depth == 0 && isExternC(masked[start:i])
			stack = append(stack, transparent)
			if transparent {
				start = i + 1
				continue
			}
			if depth == 0 {
				openAt = i
			}
			depth++
		case '}':
			if len(stack) == 0 {
				start = i + 1
				continue
			}
			transparent := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if transparent {
				start = i + 1
				continue
			}
			depth--
			// inline definitions in headers end at their closing brace
			if depth == 0 && strings.HasSuffix(strings.TrimSpace(masked[start:openAt]), ")") {
				start = i + 1
			}
		case ';':
			if depth != 0 {
				continue
			}
			norm := collapse(masked[start : i+1])
			if norm != ";" {
				off := start + leadingSpace(masked[start:i])
				out = append(out, statement{
					text: src[off : i+1],
					norm: norm,
					line: lines.Line(off),
				})
			}
			start = i + 1
		}
	}
	return out
}

// isExternC matches a linkage block opener. Literal contents are already
// blanked, so "C" arrives as a quoted space.
func isExternC(masked string) bool {
	return externC.MatchString(collapse(masked))
}

func leadingSpace(s string) int {
	return len(s) - len(strings.TrimLeft(s, " \t\r\n\f\v"))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
