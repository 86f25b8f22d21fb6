// Package mapper decides which directory each function lands in.
package mapper

import (
	"fmt"
	"path"
	"regexp"
	"regexp/syntax"
	"strings"
)

// Rule routes names matching Pattern into Dir. Pattern is a regular
// expression anchored at the start of the name.
type Rule struct {
	Pattern string `yaml:"pattern" json:"pattern"`
	Dir     string `yaml:"dir" json:"dir"`
}

// Options holds the path shape around the rule table.
type Options struct {
	OutputRoot string
	Extension  string
	DefaultDir string
}

// Route is where one name goes. Rule is the index of the matching rule, or
// -1 when the name fell through to the default directory.
type Route struct {
	Name string `json:"name"`
	Rule int    `json:"rule"`
	Dir  string `json:"dir"`
	Path string `json:"path"`
}

type compiledRule struct {
	Rule
	re       *regexp.Regexp
	prefix   string
	complete bool
}

// Mapper is an ordered rule table. The first matching rule wins, so rule
// order is part of the configuration. A Mapper is immutable.
type Mapper struct {
	rules []compiledRule
	opts  Options
}

// New compiles rules in order.
func New(rules []Rule, opts Options) (*Mapper, error) {
	if opts.Extension == "" {
		opts.Extension = ".c"
	}
	if opts.DefaultDir == "" {
		opts.DefaultDir = "misc"
	}
	m := &Mapper{opts: opts}
	for i, r := range rules {
		if r.Dir == "" {
			return nil, fmt.Errorf("mapping rule %d (%q): empty dir", i, r.Pattern)
		}
		re, err := regexp.Compile(`^(?:` + r.Pattern + `)`)
		if err != nil {
			return nil, fmt.Errorf("mapping rule %d (%q): %w", i, r.Pattern, err)
		}
		prefix, complete := literalPrefix(r.Pattern)
		m.rules = append(m.rules, compiledRule{Rule: r, re: re, prefix: prefix, complete: complete})
	}
	return m, nil
}

// Route maps name to its directory and file path.
func (m *Mapper) Route(name string) Route {
	idx := m.RuleIndex(name)
	dir := m.opts.DefaultDir
	if idx >= 0 {
		dir = m.rules[idx].Dir
	}
	return Route{
		Name: name,
		Rule: idx,
		Dir:  dir,
		Path: m.FilePath(dir, name),
	}
}

// RuleIndex returns the index of the first rule matching name, or -1.
func (m *Mapper) RuleIndex(name string) int {
	for i, r := range m.rules {
		if r.re.MatchString(name) {
			return i
		}
	}
	return -1
}

// Dir returns the target directory of name.
func (m *Mapper) Dir(name string) string {
	return m.Route(name).Dir
}

// Path returns the target file path of name.
func (m *Mapper) Path(name string) string {
	return m.Route(name).Path
}

// FilePath joins the output root, dir and name into a source file path.
func (m *Mapper) FilePath(dir, name string) string {
	return path.Join(m.opts.OutputRoot, dir, name+m.opts.Extension)
}

// ModuleDir returns the directory of dir under the output root.
func (m *Mapper) ModuleDir(dir string) string {
	return path.Join(m.opts.OutputRoot, dir)
}

// ModuleHeaderPath returns "<root>/<dir>/<basename(dir)>.h".
func (m *Mapper) ModuleHeaderPath(dir string) string {
	return path.Join(m.opts.OutputRoot, dir, path.Base(dir)+".h")
}

// OutputRoot returns the configured output root.
func (m *Mapper) OutputRoot() string {
	return m.opts.OutputRoot
}

// DefaultDir returns the fallback directory.
func (m *Mapper) DefaultDir() string {
	return m.opts.DefaultDir
}

// Rules returns a copy of the rule table in order.
func (m *Mapper) Rules() []Rule {
	out := make([]Rule, len(m.rules))
	for i, r := range m.rules {
		out[i] = r.Rule
	}
	return out
}

// Shadow describes a rule that can never match.
type Shadow struct {
	Rule     int    `json:"rule"`
	Pattern  string `json:"pattern"`
	ShadowBy int    `json:"shadowed_by"`
	ByPat    string `json:"shadowed_by_pattern"`
}

// Shadowed lists rules made unreachable by an earlier rule: one that matches
// every name, or one covering a literal prefix of the later rule's own
// literal prefix. Other overlaps are not detected.
func (m *Mapper) Shadowed() []Shadow {
	var out []Shadow
	for j, later := range m.rules {
		for i := 0; i < j; i++ {
			earlier := m.rules[i]
			if earlier.re.MatchString("") || (earlier.complete && strings.HasPrefix(later.prefix, earlier.prefix)) {
				out = append(out, Shadow{
					Rule:     j,
					Pattern:  later.Pattern,
					ShadowBy: i,
					ByPat:    earlier.Pattern,
				})
				break
			}
		}
	}
	return out
}

// literalPrefix returns the literal text every match of pattern starts
// with, and whether the pattern matches every name starting with it. Under
// prefix matching "xmd_" and "xmd_.*" both cover all of "xmd_...".
func literalPrefix(pattern string) (string, bool) {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return "", false
	}
	re = re.Simplify()
	switch re.Op {
	case syntax.OpEmptyMatch:
		return "", true
	case syntax.OpLiteral:
		if re.Flags&syntax.FoldCase != 0 {
			return "", false
		}
		return string(re.Rune), true
	case syntax.OpConcat:
		first := re.Sub[0]
		if first.Op != syntax.OpLiteral || first.Flags&syntax.FoldCase != 0 {
			return "", false
		}
		rest := &syntax.Regexp{Op: syntax.OpConcat, Sub: re.Sub[1:]}
		restRe, err := regexp.Compile(`^(?:` + rest.String() + `)`)
		return string(first.Rune), err == nil && restRe.MatchString("")
	}
	return "", false
}
