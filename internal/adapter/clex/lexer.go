// Package clex is a small C lexer that knows where comments, string and
// character literals and preprocessor directives begin and end. It does not
// tokenize; it partitions source into spans so callers can scan code regions
// with plain string operations without tripping over a '{' inside a string.
package clex

import "sort"

// Kind classifies a span of source text.
type Kind int

const (
	Code Kind = iota
	LineComment
	BlockComment
	String
	Char
	Directive
)

func (k Kind) String() string {
	switch k {
	case Code:
		return "code"
	case LineComment:
		return "line_comment"
	case BlockComment:
		return "block_comment"
	case String:
		return "string"
	case Char:
		return "char"
	case Directive:
		return "directive"
	}
	return "unknown"
}

// IsComment reports whether the kind is either comment form.
func (k Kind) IsComment() bool {
	return k == LineComment || k == BlockComment
}

// Span is a half-open byte range [Start, End) of one kind.
type Span struct {
	Kind  Kind
	Start int
	End   int
}

// Text returns the span's bytes from src.
func (s Span) Text(src string) string {
	return src[s.Start:s.End]
}

// Scan partitions src into contiguous spans. Unterminated block comments run
// to end of input; unterminated literals stop at end of line.
func Scan(src string) []Span {
	var spans []Span
	n := len(src)
	codeStart := 0
	lineStart := true

	emit := func(kind Kind, start, end int) {
		if codeStart < start {
			spans = append(spans, Span{Kind: Code, Start: codeStart, End: start})
		}
		spans = append(spans, Span{Kind: kind, Start: start, End: end})
		codeStart = end
	}

	i := 0
	for i < n {
		c := src[i]
		switch {
		case c == '/' && i+1 < n && src[i+1] == '/':
			j := endOfLine(src, i+2)
			emit(LineComment, i, j)
			i = j
		case c == '/' && i+1 < n && src[i+1] == '*':
			j := endOfBlockComment(src, i+2)
			emit(BlockComment, i, j)
			i = j
			lineStart = false
		case c == '"':
			j := endOfQuoted(src, i, '"')
			emit(String, i, j)
			i = j
			lineStart = false
		case c == '\'':
			j := endOfQuoted(src, i, '\'')
			emit(Char, i, j)
			i = j
			lineStart = false
		case c == '#' && lineStart:
			j := endOfDirective(src, i+1)
			emit(Directive, i, j)
			i = j
		default:
			if c == '\n' {
				lineStart = true
			} else if c != ' ' && c != '\t' && c != '\r' && c != '\f' && c != '\v' {
				lineStart = false
			}
			i++
		}
	}
	if codeStart < n {
		spans = append(spans, Span{Kind: Code, Start: codeStart, End: n})
	}
	return spans
}

// endOfLine returns the index of the newline ending the logical line that
// contains i, honouring backslash continuations.
func endOfLine(src string, i int) int {
	for i < len(src) {
		if src[i] == '\n' && !continued(src, i) {
			return i
		}
		i++
	}
	return len(src)
}

func continued(src string, nl int) bool {
	j := nl - 1
	if j >= 0 && src[j] == '\r' {
		j--
	}
	return j >= 0 && src[j] == '\\'
}

func endOfBlockComment(src string, i int) int {
	for i+1 < len(src) {
		if src[i] == '*' && src[i+1] == '/' {
			return i + 2
		}
		i++
	}
	return len(src)
}

func endOfQuoted(src string, start int, quote byte) int {
	i := start + 1
	for i < len(src) {
		switch src[i] {
		case '\\':
			i += 2
			continue
		case quote:
			return i + 1
		case '\n':
			return i
		}
		i++
	}
	return len(src)
}

// endOfDirective skips a preprocessor line. Comments and literals inside it
// are consumed whole so a block comment cannot leak past the directive.
func endOfDirective(src string, i int) int {
	for i < len(src) {
		switch c := src[i]; {
		case c == '\n' && !continued(src, i):
			return i
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			i = endOfBlockComment(src, i+2)
			continue
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			return endOfLine(src, i+2)
		case c == '"' || c == '\'':
			i = endOfQuoted(src, i, c)
			continue
		}
		i++
	}
	return len(src)
}

// Mask returns src with comments and directives blanked and literal contents
// blanked between their quotes. Newlines and byte offsets are preserved, so
// offsets into the mask are offsets into src.
func Mask(src string) string {
	return MaskSpans(src, Scan(src))
}

// MaskSpans is Mask for callers that already scanned src.
func MaskSpans(src string, spans []Span) string {
	buf := []byte(src)
	for _, s := range spans {
		switch s.Kind {
		case Code:
			continue
		case String, Char:
			blank(buf, s.Start+1, s.End-1)
			if last := s.End - 1; last > s.Start && buf[last] != src[s.Start] {
				blank(buf, last, s.End)
			}
		default:
			blank(buf, s.Start, s.End)
		}
	}
	return string(buf)
}

func blank(buf []byte, from, to int) {
	for i := from; i < to && i < len(buf); i++ {
		if buf[i] != '\n' {
			buf[i] = ' '
		}
	}
}

// Comments returns the comment spans of src in order.
func Comments(spans []Span) []Span {
	var out []Span
	for _, s := range spans {
		if s.Kind.IsComment() {
			out = append(out, s)
		}
	}
	return out
}

// MatchBrace returns the index of the '}' closing the '{' at open in masked
// text. ok is false if input ends first.
func MatchBrace(masked string, open int) (int, bool) {
	depth := 0
	for i := open; i < len(masked); i++ {
		switch masked[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return -1, false
}

// OpenParen walks back from the ')' at close to its matching '('.
func OpenParen(masked string, close int) (int, bool) {
	depth := 0
	for i := close; i >= 0; i-- {
		switch masked[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return -1, false
}

// Balanced reports whether braces in src pair up once comments and literals
// are ignored.
func Balanced(src string) bool {
	depth := 0
	for _, c := range []byte(Mask(src)) {
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// LineIndex maps byte offsets to 1-based line numbers.
type LineIndex struct {
	newlines []int
}

// NewLineIndex records the newline offsets of src.
func NewLineIndex(src string) *LineIndex {
	idx := &LineIndex{}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			idx.newlines = append(idx.newlines, i)
		}
	}
	return idx
}

// Line returns the line containing offset.
func (l *LineIndex) Line(offset int) int {
	return sort.SearchInts(l.newlines, offset) + 1
}

// Lines returns the number of lines in src, counting a final unterminated line.
func Lines(src string) int {
	if src == "" {
		return 0
	}
	n := 0
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			n++
		}
	}
	if src[len(src)-1] != '\n' {
		n++
	}
	return n
}
