// Package catalog builds the read-only table of types and function
// prototypes declared in a project's shared headers.
package catalog

import (
	"sort"

	"genesis/internal/domain"
)

// Duplicate records a name declared more than once.
type Duplicate struct {
	Name     string `json:"name"`
	Header   string `json:"header"`
	First    string `json:"first"`
	Conflict bool   `json:"conflict"`
}

// Catalog maps identifiers to the header that declares them. It is built
// once and never mutated, so it is safe to share between goroutines.
type Catalog struct {
	entries     map[string]domain.CatalogEntry
	headers     []string
	duplicates  []Duplicate
	diagnostics []domain.Diagnostic
}

// Lookup returns the entry for name.
func (c *Catalog) Lookup(name string) (domain.CatalogEntry, bool) {
	if c == nil {
		return domain.CatalogEntry{}, false
	}
	e, ok := c.entries[name]
	return e, ok
}

// Function returns the prototype entry for name.
func (c *Catalog) Function(name string) (domain.CatalogEntry, bool) {
	e, ok := c.Lookup(name)
	if !ok || e.Kind != domain.KindFunction {
		return domain.CatalogEntry{}, false
	}
	return e, true
}

// Type returns the type definition for name.
func (c *Catalog) Type(name string) (domain.TypeDefinition, bool) {
	e, ok := c.Lookup(name)
	if !ok || e.Kind != domain.KindType {
		return domain.TypeDefinition{}, false
	}
	return domain.TypeDefinition{
		Name:       e.Name,
		Definition: e.Text,
		Header:     e.Header,
		Forward:    e.Forward,
	}, true
}

// IsType reports whether name is a known type.
func (c *Catalog) IsType(name string) bool {
	_, ok := c.Type(name)
	return ok
}

// HeaderOf returns the header token declaring name, or "".
func (c *Catalog) HeaderOf(name string) string {
	e, _ := c.Lookup(name)
	return e.Header
}

// FunctionNames returns all prototype names, sorted.
func (c *Catalog) FunctionNames() []string {
	return c.names(domain.KindFunction)
}

// TypeNames returns all type names, sorted.
func (c *Catalog) TypeNames() []string {
	return c.names(domain.KindType)
}

func (c *Catalog) names(kind domain.EntryKind) []string {
	if c == nil {
		return nil
	}
	var out []string
	for name, e := range c.entries {
		if e.Kind == kind {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Headers returns the header tokens that were scanned, in scan order.
func (c *Catalog) Headers() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.headers...)
}

// Duplicates returns every repeated declaration seen during the build.
func (c *Catalog) Duplicates() []Duplicate {
	if c == nil {
		return nil
	}
	return append([]Duplicate(nil), c.duplicates...)
}

// Diagnostics returns the ambiguities found during the build.
func (c *Catalog) Diagnostics() []domain.Diagnostic {
	if c == nil {
		return nil
	}
	return append([]domain.Diagnostic(nil), c.diagnostics...)
}
