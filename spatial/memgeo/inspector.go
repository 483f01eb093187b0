package memgeo

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/teranos/metamap/concept"
	"github.com/teranos/metamap/errors"
	"github.com/teranos/metamap/source"
)

// Columns lists the property names of a table in sorted order followed by
// the geometry column. Types are inferred from the property values.
func (s *Store) Columns(_ context.Context, table string) ([]source.Column, error) {
	fc, err := s.table(table)
	if err != nil {
		return nil, err
	}

	values := map[string][]interface{}{}
	for _, f := range fc.Features {
		for k, v := range f.Properties {
			values[k] = append(values[k], v)
		}
	}

	names := make([]string, 0, len(values))
	for k := range values {
		if k != s.geometryColumn {
			names = append(names, k)
		}
	}
	sort.Strings(names)

	columns := make([]source.Column, 0, len(names)+1)
	for _, name := range names {
		columns = append(columns, source.Column{Name: name, BaseType: inferType(values[name])})
	}
	if s.geometryColumn != "" {
		columns = append(columns, source.Column{Name: s.geometryColumn, BaseType: concept.TypeUnknown})
	}
	return columns, nil
}

// ColumnBaseType returns the inferred type of a property.
func (s *Store) ColumnBaseType(ctx context.Context, table, column string) (concept.BaseType, error) {
	columns, err := s.Columns(ctx, table)
	if err != nil {
		return "", err
	}
	c, ok := source.Find(columns, column)
	if !ok {
		return "", errors.NewSchemaNotFoundError(table, column)
	}
	return c.BaseType, nil
}

// ColumnValues returns the non-null values of a property as text. The
// geometry column has no textual values.
func (s *Store) ColumnValues(ctx context.Context, table, column string) ([]string, error) {
	if _, err := s.ColumnBaseType(ctx, table, column); err != nil {
		return nil, err
	}
	if column == s.geometryColumn {
		return nil, nil
	}

	fc, err := s.table(table)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, f := range fc.Features {
		if v, ok := f.Properties[column]; ok && v != nil {
			out = append(out, formatValue(v))
		}
	}
	return out, nil
}

// inferType picks the narrowest base type that fits every non-null value.
func inferType(values []interface{}) concept.BaseType {
	numeric, integral, date, timestamp, seen := true, true, true, true, false
	for _, v := range values {
		if v == nil {
			continue
		}
		seen = true
		switch v := v.(type) {
		case float64:
			date, timestamp = false, false
			if v != math.Trunc(v) {
				integral = false
			}
		case string:
			numeric, integral = false, false
			if _, err := time.Parse("2006-01-02", v); err != nil {
				date = false
			}
			if _, err := time.Parse(time.RFC3339, v); err != nil {
				timestamp = false
			}
		default:
			return concept.TypeText
		}
	}

	switch {
	case !seen:
		return concept.TypeUnknown
	case integral:
		return concept.TypeInteger
	case numeric:
		return concept.TypeDouble
	case date:
		return concept.TypeDate
	case timestamp:
		return concept.TypeTimestamp
	default:
		return concept.TypeText
	}
}

func formatValue(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
