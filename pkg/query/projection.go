// Package query builds parameterized SELECT statements over a projection of
// one table's columns.
package query

import (
	"fmt"
	"strings"
)

// ProjectionMap maps view property names (the camel-cased names clients
// sort and filter by) to alias-qualified columns.
type ProjectionMap struct {
	schema  string
	table   string
	alias   string
	columns map[string]string
	ordered []string
}

// NewProjectionMap creates a ProjectionMap for schema.table aliased as alias.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		schema:  schema,
		table:   table,
		alias:   alias,
		columns: make(map[string]string),
	}
}

// Project maps column to viewName. Columns are selected in projection order.
func (p *ProjectionMap) Project(column, viewName string) *ProjectionMap {
	qualified := p.alias + "." + column
	p.columns[viewName] = qualified
	p.ordered = append(p.ordered, qualified)
	return p
}

// Alias returns the table alias.
func (p *ProjectionMap) Alias() string {
	return p.alias
}

// From returns the FROM target: schema.table alias.
func (p *ProjectionMap) From() string {
	return fmt.Sprintf("%s.%s %s", p.schema, p.table, p.alias)
}

// Lookup returns the qualified column for viewName.
func (p *ProjectionMap) Lookup(viewName string) (string, bool) {
	col, ok := p.columns[viewName]
	return col, ok
}

// Column returns the qualified column for viewName. It panics on an unknown
// name: callers pass compile-time constants, never client input.
func (p *ProjectionMap) Column(viewName string) string {
	col, ok := p.columns[viewName]
	if !ok {
		panic(fmt.Sprintf("query: %s has no projected field %q", p.table, viewName))
	}
	return col
}

// Columns returns the projected columns as a select list.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.ordered, ", ")
}
