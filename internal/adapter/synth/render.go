package synth

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"genesis/internal/domain"
)

var originLine = regexp.MustCompile(`(?m)^ \* Extracted from (.+)$`)

// Origin returns the consolidated file named in a generated file's banner.
func Origin(content string) (string, bool) {
	m := originLine.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	return strings.SplitN(m[1], ", ", 2)[0], true
}

// ForwardDecls returns the helpers in units (host first, helpers after) that
// are called before their definition appears.
func ForwardDecls(units []domain.FunctionUnit) []domain.FunctionUnit {
	var out []domain.FunctionUnit
	for k := 1; k < len(units); k++ {
		for _, earlier := range units[:k] {
			if earlier.Deps.CallsName(units[k].Name) {
				out = append(out, units[k])
				break
			}
		}
	}
	return out
}

// RenderSource renders one generated translation unit. units[0] is the file's
// primary function; the rest are static helpers in source order.
func (s *Synthesizer) RenderSource(filePath, moduleHeader string, units []domain.FunctionUnit) domain.OutputFile {
	primary := units[0]
	var b strings.Builder

	b.WriteString("/**\n")
	b.WriteString(" * @file " + path.Base(filePath) + "\n")
	b.WriteString(" * @brief Implementation of " + primary.Name + "\n")
	b.WriteString(" *\n")
	b.WriteString(" * Extracted from " + strings.Join(sources(units), ", ") + "\n")
	b.WriteString(" */\n\n")

	b.WriteString(IncludeLines(s.Includes(units, moduleHeader)))

	if fwd := ForwardDecls(units); len(fwd) > 0 {
		b.WriteString("\n/* Forward declarations */\n")
		for _, u := range fwd {
			b.WriteString(u.Prototype())
			b.WriteByte('\n')
		}
	}

	names := make([]string, len(units))
	for i, u := range units {
		names[i] = u.Name
		b.WriteByte('\n')
		if u.Docs != "" {
			b.WriteString(u.Docs)
			b.WriteByte('\n')
		}
		b.WriteString(u.FullText)
		b.WriteByte('\n')
	}

	return domain.OutputFile{
		Path:    filePath,
		Primary: primary.Name,
		Units:   names,
		Source:  primary.SourceFile,
		Content: b.String(),
	}
}

func sources(units []domain.FunctionUnit) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, u := range units {
		src := u.OriginFile()
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		out = append(out, src)
	}
	return out
}

// Guard derives an include guard from a module path: uppercased, every
// non-alphanumeric replaced by '_', suffixed with _H.
func Guard(modulePath string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(modulePath) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	g := b.String() + "_H"
	if g[0] >= '0' && g[0] <= '9' {
		g = "_" + g
	}
	return g
}

// RenderModuleHeader declares every externally visible unit routed into
// moduleDir, ordered by name. Static units are skipped.
func (s *Synthesizer) RenderModuleHeader(headerPath, moduleDir string, units []domain.FunctionUnit) domain.HeaderFile {
	var public []domain.FunctionUnit
	for _, u := range units {
		if !u.Static {
			public = append(public, u)
		}
	}
	sort.SliceStable(public, func(i, j int) bool { return public[i].Name < public[j].Name })

	set := make(map[string]struct{})
	decls := make([]string, 0, len(public))
	for _, u := range public {
		for _, h := range s.signatureHeaders(u) {
			set[h] = struct{}{}
		}
		decls = append(decls, u.Prototype())
	}
	delete(set, local(path.Base(headerPath)))

	guard := Guard(moduleDir)
	var b strings.Builder
	b.WriteString("#ifndef " + guard + "\n")
	b.WriteString("#define " + guard + "\n")
	if incs := SortIncludes(keys(set)); len(incs) > 0 {
		b.WriteByte('\n')
		b.WriteString(IncludeLines(incs))
	}
	if len(decls) > 0 {
		b.WriteByte('\n')
		for _, d := range decls {
			b.WriteString(d)
			b.WriteByte('\n')
		}
	}
	b.WriteString("\n#endif /* " + guard + " */\n")

	return domain.HeaderFile{
		Path:         headerPath,
		Guard:        guard,
		Declarations: decls,
		Content:      b.String(),
	}
}

func (s *Synthesizer) signatureHeaders(u domain.FunctionUnit) []string {
	var out []string
	for _, t := range s.analyzer.SignatureTypes(u) {
		if h := s.typeHeader(t); h != "" {
			out = append(out, h)
		}
	}
	for _, p := range s.analyzer.SignaturePrimitives(u) {
		if h, ok := stdHeader(p); ok {
			out = append(out, h)
		}
	}
	return out
}

// BuildSources renders the CMake source list for the generated files.
func BuildSources(paths []string) string {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	var b strings.Builder
	b.WriteString("# Generated by genesis. Do not edit.\n")
	b.WriteString("set(GENESIS_MODULAR_SOURCES\n")
	for _, p := range sorted {
		b.WriteString("    " + p + "\n")
	}
	b.WriteString(")\n")
	return b.String()
}
