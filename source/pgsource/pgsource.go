// Package pgsource inspects ingested tables stored in PostgreSQL.
package pgsource

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"go.uber.org/zap"

	"github.com/teranos/metamap/concept"
	"github.com/teranos/metamap/errors"
	"github.com/teranos/metamap/logger"
	"github.com/teranos/metamap/source"
)

// DriverName is the database/sql driver registered by pgx.
const DriverName = "pgx"

// ColumnsQuery lists the columns of a table in the current schema.
// udt_name distinguishes user-defined types such as PostGIS geometry.
const ColumnsQuery = `
	SELECT column_name, data_type, udt_name
	FROM information_schema.columns
	WHERE table_schema = current_schema() AND table_name = $1
	ORDER BY ordinal_position`

// SQLSTATE codes mapped to ErrSchemaNotFound
const (
	codeUndefinedTable  = "42P01"
	codeUndefinedColumn = "42703"
)

// Inspector implements source.Inspector over a PostgreSQL database.
type Inspector struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

var _ source.Inspector = (*Inspector)(nil)

// Open connects to PostgreSQL with the pgx driver.
func Open(dsn string, log *zap.SugaredLogger) (*Inspector, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres source")
	}
	return New(db, log), nil
}

// New creates an inspector reading tables from db.
func New(db *sql.DB, log *zap.SugaredLogger) *Inspector {
	return &Inspector{db: db, logger: logger.OrNop(log)}
}

// DB exposes the underlying handle so a spatial store can share it.
func (i *Inspector) DB() *sql.DB {
	return i.db
}

// Close closes the underlying database handle.
func (i *Inspector) Close() error {
	return i.db.Close()
}

// Columns lists the columns of table in ordinal order.
func (i *Inspector) Columns(ctx context.Context, table string) ([]source.Column, error) {
	rows, err := i.db.QueryContext(ctx, ColumnsQuery, table)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read columns of %s", table)
	}
	defer rows.Close()

	var columns []source.Column
	for rows.Next() {
		var name, dataType, udt string
		if err := rows.Scan(&name, &dataType, &udt); err != nil {
			return nil, errors.Wrap(err, "failed to scan column")
		}
		if strings.EqualFold(dataType, "USER-DEFINED") {
			dataType = udt
		}
		columns = append(columns, source.Column{Name: name, BaseType: concept.NormalizeBaseType(dataType)})
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
func (i *Inspector) ColumnValues(ctx context.Context, table, column string) ([]string, error) {
	if _, err := i.column(ctx, table, column); err != nil {
		return nil, err
	}

	rows, err := i.db.QueryContext(ctx, ValuesQuery(table, column))
	if err != nil {
		if isUndefined(err) {
			return nil, errors.NewSchemaNotFoundError(table, column)
		}
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

// ValuesQuery builds the value scan for table.column with sanitized
// identifiers. Callers must have checked the names against the catalog.
func ValuesQuery(table, column string) string {
	col := pgx.Identifier{column}.Sanitize()
	return "SELECT " + col + "::text FROM " + pgx.Identifier{table}.Sanitize() + " WHERE " + col + " IS NOT NULL"
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

func isUndefined(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeUndefinedTable || pgErr.Code == codeUndefinedColumn
	}
	return false
}
