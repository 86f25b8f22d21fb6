// Package analyzer works out what each function refers to: the functions it
// calls, the types it mentions and the standard-library names it uses.
package analyzer

import (
	"regexp"

	"genesis/internal/adapter/clex"
	"genesis/internal/domain"
)

// Catalog is the read-only symbol lookup the analyzer resolves against.
type Catalog interface {
	Lookup(name string) (domain.CatalogEntry, bool)
}

var (
	callPattern   = regexp.MustCompile(`\b([A-Za-z_]\w*)\s*\(`)
	taggedPattern = regexp.MustCompile(`\b(struct|enum|union)\s+([A-Za-z_]\w*)`)
)

var notCalls = map[string]struct{}{
	"if": {}, "while": {}, "for": {}, "switch": {}, "return": {}, "sizeof": {},
}

// DefaultDomainTypes are project type tokens recognised even when no header
// declares them.
var DefaultDomainTypes = []string{
	"ast_node", "ast_value", "ast_evaluator", "variable", "token", "lexer",
	"source_location", "binary_operator", "unary_operator",
}

// Analyzer builds DependencyRecords. It holds no mutable state.
type Analyzer struct {
	catalog     Catalog
	domainTypes map[string]struct{}
}

// New creates an Analyzer over a built catalog.
func New(catalog Catalog, domainTypes []string) *Analyzer {
	dt := make(map[string]struct{}, len(domainTypes))
	for _, t := range domainTypes {
		dt[t] = struct{}{}
	}
	return &Analyzer{catalog: catalog, domainTypes: dt}
}

// Analyze returns the dependency record of u. Calls are read from the body
// only; types and primitives from the signature and body. The result
// depends on nothing but u's text and the catalog.
func (a *Analyzer) Analyze(u domain.FunctionUnit) domain.DependencyRecord {
	body := clex.Mask(u.Body)
	sig := u.ReturnType + " " + u.Name + "(" + u.Params + ")"

	calls := make(stringSet)
	for _, m := range callPattern.FindAllStringSubmatch(body, -1) {
		if _, skip := notCalls[m[1]]; skip {
			continue
		}
		calls.add(m[1])
	}

	types := a.typesIn(sig + "\n" + body)

	prims := make(stringSet)
	unresolved := make(stringSet)
	for _, id := range Identifiers(sig + "\n" + body) {
		if IsPrimitive(id) {
			prims.add(id)
		}
	}
	for c := range calls {
		if IsPrimitive(c) {
			continue
		}
		if _, ok := a.catalog.Lookup(c); !ok {
			unresolved.add(c)
		}
	}

	return domain.DependencyRecord{
		Calls:      calls.sorted(),
		Types:      types.sorted(),
		Primitives: prims.sorted(),
		Unresolved: unresolved.sorted(),
	}
}

// SignatureTypes returns the types a prototype of u needs in scope.
func (a *Analyzer) SignatureTypes(u domain.FunctionUnit) []string {
	return a.typesIn(u.ReturnType + " " + u.Name + "(" + u.Params + ")").sorted()
}

// SignaturePrimitives returns the standard-library names in u's prototype.
func (a *Analyzer) SignaturePrimitives(u domain.FunctionUnit) []string {
	prims := make(stringSet)
	for _, id := range Identifiers(u.ReturnType + " " + u.Params) {
		if IsPrimitive(id) {
			prims.add(id)
		}
	}
	return prims.sorted()
}

func (a *Analyzer) typesIn(masked string) stringSet {
	types := make(stringSet)
	for _, m := range taggedPattern.FindAllStringSubmatch(masked, -1) {
		types.add(m[1] + " " + m[2])
	}
	for _, id := range Identifiers(masked) {
		if _, ok := a.domainTypes[id]; ok {
			types.add(id)
			continue
		}
		if e, ok := a.catalog.Lookup(id); ok && e.Kind == domain.KindType {
			types.add(id)
		}
	}
	return types
}

// TypeName strips a struct/enum/union keyword from a Types entry.
func TypeName(ref string) string {
	if m := taggedPattern.FindStringSubmatch(ref); m != nil && m[0] == ref {
		return m[2]
	}
	return ref
}
