// Package grouper decides which file each static helper is emitted into.
// A static function cannot be called from another translation unit, so it
// has to travel with a function that calls it.
package grouper

import (
	"fmt"

	"genesis/internal/adapter/analyzer"
	"genesis/internal/domain"
)

// Tier names how a host was found.
type Tier string

const (
	TierDirectCaller Tier = "direct_caller"
	TierCategoryHost Tier = "category_host"
	// TierSourceFile hosts a helper whose default-directory file is already
	// taken with the first externally visible function of its own file.
	TierSourceFile Tier = "source_file"
)

// RuleMatcher exposes the rule index a name routes under; -1 means the
// default bucket.
type RuleMatcher interface {
	RuleIndex(name string) int
}

// Assignment places one static helper with a host.
type Assignment struct {
	Helper domain.FunctionUnit
	Host   domain.FunctionUnit
	Tier   Tier
}

// Result is the grouping of one run.
type Result struct {
	// Helpers maps a host's Key to the helpers emitted with it, in unit order.
	Helpers map[string][]Assignment
	// Ungrouped helpers get their own file in the default bucket.
	Ungrouped   []domain.FunctionUnit
	Diagnostics []domain.Diagnostic
}

// HostOf returns the host assignment for helper, if any.
func (r *Result) HostOf(helper domain.FunctionUnit) (Assignment, bool) {
	for _, as := range r.Helpers {
		for _, a := range as {
			if a.Helper.Key() == helper.Key() {
				return a, true
			}
		}
	}
	return Assignment{}, false
}

// Grouper assigns static helpers to hosts.
type Grouper struct {
	graph   *analyzer.CallGraph
	units   []domain.FunctionUnit
	matcher RuleMatcher
}

// New creates a Grouper over analyzed units.
func New(units []domain.FunctionUnit, matcher RuleMatcher) *Grouper {
	return &Grouper{
		graph:   analyzer.NewCallGraph(units),
		units:   units,
		matcher: matcher,
	}
}

// Group assigns every static unit. Non-static units are hosts of themselves
// and do not appear in the result.
func (g *Grouper) Group() *Result {
	res := &Result{Helpers: make(map[string][]Assignment)}
	for _, u := range g.units {
		if !u.Static {
			continue
		}
		host, tier, ok := g.resolve(u, map[string]bool{u.Key(): true})
		if !ok {
			res.Ungrouped = append(res.Ungrouped, u)
			res.Diagnostics = append(res.Diagnostics, domain.Diagnostic{
				Kind:    domain.DiagGroupingUnresolved,
				Subject: u.Name,
				File:    u.SourceFile,
				Message: "no caller and no category host; emitted on its own in the default directory",
			})
			continue
		}
		res.Helpers[host.Key()] = append(res.Helpers[host.Key()], Assignment{Helper: u, Host: host, Tier: tier})
	}
	return res
}

// resolve walks static caller chains until it reaches an externally visible
// function. seen breaks cycles of helpers that only call each other.
func (g *Grouper) resolve(helper domain.FunctionUnit, seen map[string]bool) (domain.FunctionUnit, Tier, bool) {
	if caller, ok := g.DirectCaller(helper); ok {
		if !caller.Static {
			return caller, TierDirectCaller, true
		}
		if !seen[caller.Key()] {
			seen[caller.Key()] = true
			if host, tier, ok := g.resolve(caller, seen); ok {
				return host, tier, true
			}
		}
	}
	if host, ok := g.CategoryHost(helper); ok {
		return host, TierCategoryHost, true
	}
	return domain.FunctionUnit{}, "", false
}

// DirectCaller returns the first other function in helper's source file
// whose calls include helper. Non-static callers are preferred so a helper
// called by both a host and a sibling helper lands with the host.
func (g *Grouper) DirectCaller(helper domain.FunctionUnit) (domain.FunctionUnit, bool) {
	callers := g.graph.Callers(helper, true)
	for _, c := range callers {
		if !c.Static {
			return c, true
		}
	}
	if len(callers) > 0 {
		return callers[0], true
	}
	return domain.FunctionUnit{}, false
}

// CategoryHost returns the first externally visible function routed by the
// same mapping rule as helper. Helpers in the default bucket have no
// category.
func (g *Grouper) CategoryHost(helper domain.FunctionUnit) (domain.FunctionUnit, bool) {
	rule := g.matcher.RuleIndex(helper.Name)
	if rule < 0 {
		return domain.FunctionUnit{}, false
	}
	for _, u := range g.units {
		if u.Static {
			continue
		}
		if g.matcher.RuleIndex(u.Name) == rule {
			return u, true
		}
	}
	return domain.FunctionUnit{}, false
}

func (a Assignment) String() string {
	return fmt.Sprintf("%s -> %s (%s)", a.Helper.Name, a.Host.Name, a.Tier)
}
