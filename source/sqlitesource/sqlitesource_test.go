package sqlitesource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/metamap/concept"
	"github.com/teranos/metamap/errors"
	testutil "github.com/teranos/metamap/internal/testing"
	"github.com/teranos/metamap/source"
)

func newParcels(t *testing.T) *Inspector {
	t.Helper()
	database := testutil.CreateBareTestDB(t)
	testutil.MustExec(t, database,
		`CREATE TABLE parcels ("Surface Area" REAL, name VARCHAR(64), built DATE, count INTEGER, geom BLOB)`,
		`INSERT INTO parcels VALUES (10.5, 'north', '2020-01-01', 3, NULL)`,
		`INSERT INTO parcels VALUES (NULL, 'south', NULL, 4, NULL)`,
		`INSERT INTO parcels VALUES (12, NULL, '2021-06-30', 5, NULL)`,
	)
	return New(database, nil)
}

func TestColumns(t *testing.T) {
	columns, err := newParcels(t).Columns(context.Background(), "parcels")
	require.NoError(t, err)

	assert.Equal(t, []source.Column{
		{Name: "Surface Area", BaseType: concept.TypeDouble},
		{Name: "name", BaseType: concept.TypeText},
		{Name: "built", BaseType: concept.TypeDate},
		{Name: "count", BaseType: concept.TypeInteger},
		{Name: "geom", BaseType: concept.TypeUnknown},
	}, columns)
	assert.True(t, source.HasTemporalColumn(columns))
}

func TestColumnBaseType(t *testing.T) {
	ctx := context.Background()
	inspector := newParcels(t)

	tests := []struct {
		column string
		want   concept.BaseType
	}{
		{"Surface Area", concept.TypeDouble},
		{"name", concept.TypeText},
		{"count", concept.TypeInteger},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			got, err := inspector.ColumnBaseType(ctx, "parcels", tt.column)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColumnValues(t *testing.T) {
	ctx := context.Background()
	inspector := newParcels(t)

	values, err := inspector.ColumnValues(ctx, "parcels", "name")
	require.NoError(t, err)
	assert.Equal(t, []string{"north", "south"}, values)

	values, err = inspector.ColumnValues(ctx, "parcels", "count")
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "4", "5"}, values)

	values, err = inspector.ColumnValues(ctx, "parcels", "Surface Area")
	require.NoError(t, err)
	assert.Len(t, values, 2, "nulls are excluded")

	values, err = inspector.ColumnValues(ctx, "parcels", "geom")
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestSchemaNotFound(t *testing.T) {
	ctx := context.Background()
	inspector := newParcels(t)

	_, err := inspector.ColumnBaseType(ctx, "missing", "name")
	assert.True(t, errors.IsSchemaNotFound(err))

	_, err = inspector.ColumnValues(ctx, "parcels", "missing")
	assert.True(t, errors.IsSchemaNotFound(err))

	_, err = inspector.ColumnValues(ctx, "parcels", `name" FROM parcels; --`)
	assert.True(t, errors.IsSchemaNotFound(err))

	_, err = inspector.Columns(ctx, "missing")
	assert.True(t, errors.IsSchemaNotFound(err))
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"parcels"`, QuoteIdentifier("parcels"))
	assert.Equal(t, `"Surface Area"`, QuoteIdentifier("Surface Area"))
	assert.Equal(t, `"a""b"`, QuoteIdentifier(`a"b`))
}
