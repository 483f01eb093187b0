// Package sqlitesource inspects ingested tables stored in a SQLite database.
package sqlitesource

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/metamap/concept"
	"github.com/teranos/metamap/errors"
	"github.com/teranos/metamap/logger"
	"github.com/teranos/metamap/source"
)

const columnsQuery = `SELECT name, type FROM pragma_table_info(?) ORDER BY cid`

// Inspector implements source.Inspector over a SQLite database.
type Inspector struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

var _ source.Inspector = (*Inspector)(nil)

// New creates an inspector reading tables from db.
func New(db *sql.DB, log *zap.SugaredLogger) *Inspector {
	return &Inspector{db: db, logger: logger.OrNop(log)}
}

// Columns lists the columns of table in declaration order.
func (i *Inspector) Columns(ctx context.Context, table string) ([]source.Column, error) {
	rows, err := i.db.QueryContext(ctx, columnsQuery, table)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read columns of %s", table)
	}
	defer rows.Close()

	var columns []source.Column
	for rows.Next() {
		var name, declared string
		if err := rows.Scan(&name, &declared); err != nil {
			return nil, errors.Wrap(err, "failed to scan column")
		}
		columns = append(columns, source.Column{Name: name, BaseType: concept.NormalizeBaseType(declared)})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate columns")
	}

	if len(columns) == 0 {
		return nil, errors.NewSchemaNotFoundError(table, "")
	}
	return columns, nil
}

// ColumnBaseType returns the normalized declared type of table.column.
func (i *Inspector) ColumnBaseType(ctx context.Context, table, column string) (concept.BaseType, error) {
	c, err := i.column(ctx, table, column)
	if err != nil {
		return "", err
	}
	return c.BaseType, nil
}

// ColumnValues returns every non-null value of table.column cast to text.
// Identifiers are checked against the table's columns before being quoted.
func (i *Inspector) ColumnValues(ctx context.Context, table, column string) ([]string, error) {
	if _, err := i.column(ctx, table, column); err != nil {
		return nil, err
	}

	col := QuoteIdentifier(column)
	query := "SELECT CAST(" + col + " AS TEXT) FROM " + QuoteIdentifier(table) + " WHERE " + col + " IS NOT NULL"

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read values of %s.%s", table, column)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, errors.Wrap(err, "failed to scan value")
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate values")
	}

	i.logger.Debugw("Read column values",
		logger.FieldTable, table,
		logger.FieldColumn, column,
		logger.FieldCount, len(values),
	)
	return values, nil
}

func (i *Inspector) column(ctx context.Context, table, column string) (source.Column, error) {
	columns, err := i.Columns(ctx, table)
	if err != nil {
		return source.Column{}, err
	}
	c, ok := source.Find(columns, column)
	if !ok {
		return source.Column{}, errors.NewSchemaNotFoundError(table, column)
	}
	return c, nil
}

// QuoteIdentifier quotes name as a SQLite identifier.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
