// Package source abstracts schema introspection over ingested tables.
//
// The engine never owns ingested data; it only asks for declared column
// types and raw column values through an Inspector.
package source

import (
	"context"

	"github.com/teranos/metamap/concept"
)

// Column is one column of an ingested table.
type Column struct {
	Name     string
	BaseType concept.BaseType
}

// Inspector reads schema and values of ingested tables.
// Unknown tables or columns fail with errors.ErrSchemaNotFound.
type Inspector interface {
	// ColumnBaseType returns the normalized declared type of a column.
	ColumnBaseType(ctx context.Context, table, column string) (concept.BaseType, error)

	// ColumnValues returns every non-null value of a column as text, in
	// storage order.
	ColumnValues(ctx context.Context, table, column string) ([]string, error)

	// Columns lists the columns of a table in declaration order.
	Columns(ctx context.Context, table string) ([]Column, error)
}

// HasTemporalColumn reports whether any column has a date or timestamp type.
func HasTemporalColumn(columns []Column) bool {
	for _, c := range columns {
		if c.BaseType.Family() == concept.FamilyTemporal {
			return true
		}
	}
	return false
}

// Find returns the column with the given name.
func Find(columns []Column, name string) (Column, bool) {
	for _, c := range columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}
