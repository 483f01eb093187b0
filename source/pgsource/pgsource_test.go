package pgsource

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/metamap/concept"
	"github.com/teranos/metamap/errors"
	"github.com/teranos/metamap/source"
)

func parcelColumns() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"column_name", "data_type", "udt_name"}).
		AddRow("gid", "integer", "int4").
		AddRow("Surface Area", "double precision", "float8").
		AddRow("zoning", "character varying", "varchar").
		AddRow("surveyed", "timestamp without time zone", "timestamp").
		AddRow("geom", "USER-DEFINED", "geometry")
}

func TestColumns(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	mock.ExpectQuery(regexp.QuoteMeta(ColumnsQuery)).WithArgs("parcels").WillReturnRows(parcelColumns())

	columns, err := New(database, nil).Columns(context.Background(), "parcels")
	require.NoError(t, err)
	assert.Equal(t, []source.Column{
		{Name: "gid", BaseType: concept.TypeInteger},
		{Name: "Surface Area", BaseType: concept.TypeDouble},
		{Name: "zoning", BaseType: concept.TypeText},
		{Name: "surveyed", BaseType: concept.TypeTimestamp},
		{Name: "geom", BaseType: concept.TypeUnknown},
	}, columns)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestColumns_UnknownTable(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	mock.ExpectQuery(regexp.QuoteMeta(ColumnsQuery)).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "udt_name"}))

	_, err = New(database, nil).Columns(context.Background(), "missing")
	assert.True(t, errors.IsSchemaNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestColumnValues(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	mock.ExpectQuery(regexp.QuoteMeta(ColumnsQuery)).WithArgs("parcels").WillReturnRows(parcelColumns())
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "Surface Area"::text FROM "parcels" WHERE "Surface Area" IS NOT NULL`)).
		WillReturnRows(sqlmock.NewRows([]string{"text"}).AddRow("10.5").AddRow("12"))

	values, err := New(database, nil).ColumnValues(context.Background(), "parcels", "Surface Area")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.5", "12"}, values)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestColumnValues_UnknownColumn(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	mock.ExpectQuery(regexp.QuoteMeta(ColumnsQuery)).WithArgs("parcels").WillReturnRows(parcelColumns())

	_, err = New(database, nil).ColumnValues(context.Background(), "parcels", `zoning"; DROP TABLE parcels; --`)
	assert.True(t, errors.IsSchemaNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet(), "no value query is issued for unknown columns")
}

func TestColumnValues_DroppedBetweenQueries(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	mock.ExpectQuery(regexp.QuoteMeta(ColumnsQuery)).WithArgs("parcels").WillReturnRows(parcelColumns())
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "zoning"::text`)).
		WillReturnError(&pgconn.PgError{Code: "42P01", Message: `relation "parcels" does not exist`})

	_, err = New(database, nil).ColumnValues(context.Background(), "parcels", "zoning")
	assert.True(t, errors.IsSchemaNotFound(err))
}

func TestColumnBaseType(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	mock.ExpectQuery(regexp.QuoteMeta(ColumnsQuery)).WithArgs("parcels").WillReturnRows(parcelColumns())

	got, err := New(database, nil).ColumnBaseType(context.Background(), "parcels", "zoning")
	require.NoError(t, err)
	assert.Equal(t, concept.TypeText, got)
}

func TestValuesQuery(t *testing.T) {
	assert.Equal(t, `SELECT "a""b"::text FROM "t" WHERE "a""b" IS NOT NULL`, ValuesQuery("t", `a"b`))
}
