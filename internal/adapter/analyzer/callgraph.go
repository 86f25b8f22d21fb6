package analyzer

import "genesis/internal/domain"

// CallGraph indexes caller/callee relations between the units of one run.
// Units must already carry their DependencyRecord.
type CallGraph struct {
	units  []domain.FunctionUnit
	byName map[string][]int
}

// NewCallGraph indexes units by name. Order is preserved for lookups.
func NewCallGraph(units []domain.FunctionUnit) *CallGraph {
	g := &CallGraph{units: units, byName: make(map[string][]int)}
	for i, u := range units {
		g.byName[u.Name] = append(g.byName[u.Name], i)
	}
	return g
}

// Defines reports whether some unit of the run is named name.
func (g *CallGraph) Defines(name string) bool {
	_, ok := g.byName[name]
	return ok
}

// Callers returns the units calling u, in unit order. With sameFile set,
// only callers from u's source file are returned, which is the only scope
// a static function can be called from.
func (g *CallGraph) Callers(u domain.FunctionUnit, sameFile bool) []domain.FunctionUnit {
	var out []domain.FunctionUnit
	for _, c := range g.units {
		if c.Key() == u.Key() {
			continue
		}
		if sameFile && c.SourceFile != u.SourceFile {
			continue
		}
		if c.Deps.CallsName(u.Name) {
			out = append(out, c)
		}
	}
	return out
}

// Callees returns the run-local units u calls. A static callee resolves to
// the definition in u's own file.
func (g *CallGraph) Callees(u domain.FunctionUnit) []domain.FunctionUnit {
	var out []domain.FunctionUnit
	for _, name := range u.Deps.Calls {
		idx, ok := g.byName[name]
		if !ok {
			continue
		}
		pick := -1
		for _, i := range idx {
			c := g.units[i]
			if c.SourceFile == u.SourceFile {
				pick = i
				break
			}
			if !c.Static && pick < 0 {
				pick = i
			}
		}
		if pick >= 0 && g.units[pick].Key() != u.Key() {
			out = append(out, g.units[pick])
		}
	}
	return out
}

// Unresolved drops from u's unresolved calls the names defined in the run.
func (g *CallGraph) Unresolved(u domain.FunctionUnit) []string {
	var out []string
	for _, name := range u.Deps.Unresolved {
		if !g.Defines(name) {
			out = append(out, name)
		}
	}
	return out
}
