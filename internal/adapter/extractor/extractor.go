// Package extractor splits a C source file into its top-level function
// definitions.
package extractor

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"genesis/internal/adapter/clex"
	"genesis/internal/domain"
)

// ParseError reports a source file that cannot be split. It aborts the run.
type ParseError struct {
	File   string
	Line   int
	Offset int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Reason)
}

func (e *ParseError) Unwrap() error { return domain.ErrParse }

var notNames = map[string]struct{}{
	"if": {}, "while": {}, "for": {}, "switch": {}, "return": {}, "sizeof": {},
	"else": {}, "do": {}, "case": {}, "default": {}, "goto": {},
	"typedef": {}, "struct": {}, "enum": {}, "union": {},
}

var qualifiers = map[string]struct{}{
	"static": {}, "inline": {}, "extern": {}, "__inline": {}, "__inline__": {},
}

// Extractor finds function definitions in C source.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// ExtractFile reads path and extracts its functions.
func (e *Extractor) ExtractFile(path string) ([]domain.FunctionUnit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, domain.ErrIO)
	}
	return e.Extract(path, string(data))
}

// Extract returns the function definitions of src in source order. Only
// definitions at brace depth zero are considered. An unbalanced brace
// anywhere fails the whole file with a *ParseError.
func (e *Extractor) Extract(path, src string) ([]domain.FunctionUnit, error) {
	f := newFile(path, src)
	var units []domain.FunctionUnit

	boundary := 0
	for i := 0; i < len(f.masked); i++ {
		switch f.masked[i] {
		case ';':
			boundary = i + 1
		case '}':
			return nil, f.errorf(i, "unmatched '}' at top level")
		case '{':
			end, ok := clex.MatchBrace(f.masked, i)
			if !ok {
				return nil, f.errorf(i, "no closing '}' for '{' opened here")
			}
			start := boundary
			if d := f.directiveEndBefore(i); d > start {
				start = d
			}
			if u, ok := f.function(start, i, end); ok {
				units = append(units, u)
			}
			boundary = end + 1
			i = end
		}
	}
	return units, nil
}

// Count returns the number of functions Extract would find.
func (e *Extractor) Count(path, src string) (int, error) {
	units, err := e.Extract(path, src)
	if err != nil {
		return 0, err
	}
	return len(units), nil
}

// ResidualLines counts lines of top-level code in src that belong to no
// unit. Comments, blank lines and #include directives are not counted.
func ResidualLines(src string, units []domain.FunctionUnit) int {
	spans := clex.Scan(src)
	masked := []byte(clex.MaskSpans(src, spans))
	for _, s := range spans {
		if s.Kind == clex.Directive && !isInclude(s.Text(src)) {
			copy(masked[s.Start:s.End], src[s.Start:s.End])
		}
	}
	for _, u := range units {
		for i := u.StartOffset; i < u.EndOffset && i < len(masked); i++ {
			if masked[i] != '\n' {
				masked[i] = ' '
			}
		}
	}
	n := 0
	for _, line := range strings.Split(string(masked), "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func isInclude(directive string) bool {
	d := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(directive), "#"))
	return strings.HasPrefix(d, "include")
}

type file struct {
	path          string
	src           string
	masked        string
	comments      []clex.Span
	directiveEnds []int
	lines         *clex.LineIndex
}

func newFile(path, src string) *file {
	spans := clex.Scan(src)
	f := &file{
		path:     path,
		src:      src,
		masked:   clex.MaskSpans(src, spans),
		comments: clex.Comments(spans),
		lines:    clex.NewLineIndex(src),
	}
	for _, s := range spans {
		if s.Kind == clex.Directive {
			f.directiveEnds = append(f.directiveEnds, s.End)
		}
	}
	return f
}

func (f *file) errorf(offset int, format string, args ...any) *ParseError {
	return &ParseError{
		File:   f.path,
		Line:   f.lines.Line(offset),
		Offset: offset,
		Reason: fmt.Sprintf(format, args...),
	}
}

func (f *file) directiveEndBefore(pos int) int {
	i := sort.Search(len(f.directiveEnds), func(i int) bool { return f.directiveEnds[i] > pos })
	if i == 0 {
		return 0
	}
	return f.directiveEnds[i-1]
}

// function interprets masked[start:open] as a signature. ok is false for
// any other braced construct (struct bodies, initializers, extern blocks).
func (f *file) function(start, open, end int) (domain.FunctionUnit, bool) {
	sig, ok := ParseSignature(f.masked[start:open])
	if !ok {
		return domain.FunctionUnit{}, false
	}
	u := domain.FunctionUnit{
		Name:       sig.Name,
		ReturnType: sig.ReturnType,
		Params:     sig.Params,
		Static:     sig.Static,
		Inline:     sig.Inline,
		SourceFile: f.path,
	}

	sigStart := start
	for sigStart < open && isSpace(f.masked[sigStart]) {
		sigStart++
	}
	docStart := f.docStart(start, sigStart)
	if docStart < sigStart {
		u.Docs = strings.TrimRight(f.src[docStart:sigStart], " \t\r\n")
	}

	u.FullText = f.src[sigStart : end+1]
	u.Body = f.src[open : end+1]
	u.StartOffset = docStart
	u.EndOffset = end + 1
	u.StartLine = f.lines.Line(sigStart)
	u.EndLine = f.lines.Line(end)
	return u, true
}

// Signature is the parsed head of a function definition or prototype.
type Signature struct {
	Name       string
	ReturnType string
	Params     string
	Static     bool
	Inline     bool
}

// ParseSignature parses "qualifiers type name(params)" from comment-free
// text. Trailing whitespace is ignored; anything after ')' is not.
func ParseSignature(s string) (Signature, bool) {
	header := strings.TrimRight(s, " \t\r\n\f\v")
	if !strings.HasSuffix(header, ")") {
		return Signature{}, false
	}
	closeParen := len(header) - 1
	openParen, ok := clex.OpenParen(header, closeParen)
	if !ok {
		return Signature{}, false
	}

	nameEnd := openParen
	for nameEnd > 0 && isSpace(header[nameEnd-1]) {
		nameEnd--
	}
	nameStart := nameEnd
	for nameStart > 0 && isIdent(header[nameStart-1]) {
		nameStart--
	}
	name := header[nameStart:nameEnd]
	if name == "" || isDigit(name[0]) {
		return Signature{}, false
	}
	if _, bad := notNames[name]; bad {
		return Signature{}, false
	}

	tokens, ok := typeTokens(header[:nameStart])
	if !ok {
		return Signature{}, false
	}
	sig := Signature{Name: name}
	var ret []string
	for _, tok := range tokens {
		if _, q := qualifiers[tok]; q {
			switch tok {
			case "static":
				sig.Static = true
			case "extern":
			default:
				sig.Inline = true
			}
			continue
		}
		switch tok {
		case "struct", "enum", "union":
		default:
			if _, bad := notNames[tok]; bad {
				return Signature{}, false
			}
		}
		ret = append(ret, tok)
	}
	if len(ret) == 0 {
		return Signature{}, false
	}
	sig.ReturnType = joinType(ret)
	sig.Params = collapse(header[openParen+1 : closeParen])
	return sig, true
}

// docStart walks back over the comments directly above a signature. A blank
// line or anything that is not a comment ends the block.
func (f *file) docStart(limit, sigStart int) int {
	cur := sigStart
	i := sort.Search(len(f.comments), func(i int) bool { return f.comments[i].End > sigStart })
	for i--; i >= 0; i-- {
		c := f.comments[i]
		if c.Start < limit {
			break
		}
		gap := f.src[c.End:cur]
		if strings.TrimSpace(gap) != "" || strings.Count(gap, "\n") > 1 {
			break
		}
		cur = c.Start
	}
	return cur
}

func typeTokens(s string) ([]string, bool) {
	var tokens []string
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case isSpace(c):
			i++
		case c == '*':
			tokens = append(tokens, "*")
			i++
		case isIdent(c):
			j := i
			for j < len(s) && isIdent(s[j]) {
				j++
			}
			tokens = append(tokens, s[i:j])
			i = j
		default:
			return nil, false
		}
	}
	return tokens, true
}

func joinType(tokens []string) string {
	var b strings.Builder
	for _, tok := range tokens {
		if tok == "*" {
			out := b.String()
			if out != "" && !strings.HasSuffix(out, "*") {
				b.WriteByte(' ')
			}
			b.WriteByte('*')
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(tok)
	}
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isIdent(c byte) bool {
	return c == '_' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
