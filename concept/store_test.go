package concept

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/metamap/errors"
	testutil "github.com/teranos/metamap/internal/testing"
)

const base = "http://example.com/"

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	return NewSQLStore(testutil.CreateTestDB(t), zaptest.NewLogger(t).Sugar())
}

func TestCreateConcept(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	created, err := store.CreateConcept(ctx, Concept{URI: base + "area", Name: "area", DataType: TypeDouble})
	require.NoError(t, err)
	assert.True(t, created)

	t.Run("duplicate URI is left alone", func(t *testing.T) {
		created, err := store.CreateConcept(ctx, Concept{URI: base + "area", Name: "other", DataType: TypeText, Verified: true})
		require.NoError(t, err)
		assert.False(t, created)

		c, err := store.GetConcept(ctx, base+"area")
		require.NoError(t, err)
		assert.Equal(t, "area", c.Name)
		assert.Equal(t, TypeDouble, c.DataType)
		assert.False(t, c.Verified)
		assert.True(t, c.IsRoot())
		assert.False(t, c.CreatedAt.IsZero())
	})

	t.Run("empty URI is rejected", func(t *testing.T) {
		_, err := store.CreateConcept(ctx, Concept{})
		assert.True(t, errors.IsInvalidRequestError(err))
	})

	t.Run("missing data type becomes unknown", func(t *testing.T) {
		_, err := store.CreateConcept(ctx, Concept{URI: base + "auto"})
		require.NoError(t, err)

		c, err := store.GetConcept(ctx, base+"auto")
		require.NoError(t, err)
		assert.Equal(t, TypeUnknown, c.DataType)
	})
}

func TestGetConcept_NotFound(t *testing.T) {
	_, err := newTestStore(t).GetConcept(context.Background(), base+"missing")
	assert.True(t, errors.IsNotFoundError(err))
}

func TestListConcepts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, name := range []string{"zoning", "area", "name"} {
		_, err := store.CreateConcept(ctx, Concept{URI: base + name, Name: name, DataType: TypeText})
		require.NoError(t, err)
	}

	concepts, err := store.ListConcepts(ctx)
	require.NoError(t, err)
	require.Len(t, concepts, 3)
	assert.Equal(t, base+"area", concepts[0].URI)
	assert.Equal(t, base+"zoning", concepts[2].URI)
}

func TestSetVerified(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	_, err := store.CreateConcept(ctx, Concept{URI: base + "area", DataType: TypeDouble})
	require.NoError(t, err)

	require.NoError(t, store.SetVerified(ctx, base+"area", true))
	c, err := store.GetConcept(ctx, base+"area")
	require.NoError(t, err)
	assert.True(t, c.Verified)

	require.NoError(t, store.SetVerified(ctx, base+"area", false))
	c, err = store.GetConcept(ctx, base+"area")
	require.NoError(t, err)
	assert.False(t, c.Verified)

	assert.True(t, errors.IsNotFoundError(store.SetVerified(ctx, base+"missing", true)))
}

func TestSetNarrower(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	for _, name := range []string{"measure", "area", "parcel_area"} {
		_, err := store.CreateConcept(ctx, Concept{URI: base + name, DataType: TypeDouble})
		require.NoError(t, err)
	}

	require.NoError(t, store.SetNarrower(ctx, base+"measure", base+"area"))
	require.NoError(t, store.SetNarrower(ctx, base+"area", base+"parcel_area"))

	c, err := store.GetConcept(ctx, base+"measure")
	require.NoError(t, err)
	assert.Equal(t, base+"area", c.Narrower)
	assert.False(t, c.IsRoot())

	t.Run("self reference", func(t *testing.T) {
		err := store.SetNarrower(ctx, base+"area", base+"area")
		assert.True(t, errors.IsInvalidRequestError(err))
	})

	t.Run("cycle", func(t *testing.T) {
		err := store.SetNarrower(ctx, base+"parcel_area", base+"measure")
		assert.True(t, errors.IsInvalidRequestError(err))
		assert.Contains(t, err.Error(), "cycle")
	})

	t.Run("unknown narrower", func(t *testing.T) {
		err := store.SetNarrower(ctx, base+"parcel_area", base+"missing")
		assert.True(t, errors.IsNotFoundError(err))
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, store.SetNarrower(ctx, base+"measure", ""))
		c, err := store.GetConcept(ctx, base+"measure")
		require.NoError(t, err)
		assert.True(t, c.IsRoot())
	})
}

func TestBind(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	for _, name := range []string{"area", "size"} {
		_, err := store.CreateConcept(ctx, Concept{URI: base + name, DataType: TypeDouble})
		require.NoError(t, err)
	}

	bound, err := store.Bind(ctx, base+"area", "parcels", "Oppervlak", []string{"10.5", "12", "10.5"})
	require.NoError(t, err)
	assert.True(t, bound)

	uri, ok, err := store.BoundConcept(ctx, "parcels", "Oppervlak")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, base+"area", uri)

	t.Run("second bind is a no-op", func(t *testing.T) {
		bound, err := store.Bind(ctx, base+"size", "parcels", "Oppervlak", []string{"1"})
		require.NoError(t, err)
		assert.False(t, bound)

		uri, _, err := store.BoundConcept(ctx, "parcels", "Oppervlak")
		require.NoError(t, err)
		assert.Equal(t, base+"area", uri, "at most one concept per column")

		distinct, total, err := store.ValueCounts(ctx, base+"area")
		require.NoError(t, err)
		assert.Equal(t, 2, distinct)
		assert.Equal(t, 3, total)

		_, total, err = store.ValueCounts(ctx, base+"size")
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("unbound column", func(t *testing.T) {
		_, ok, err := store.BoundConcept(ctx, "parcels", "name")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("bindings and columns", func(t *testing.T) {
		_, err := store.Bind(ctx, base+"area", "buildings", "surface_area", []string{"3"})
		require.NoError(t, err)

		columns, err := store.ColumnNames(ctx, base+"area")
		require.NoError(t, err)
		assert.Equal(t, []string{"Oppervlak", "surface_area"}, columns)

		bindings, err := store.Bindings(ctx, "parcels")
		require.NoError(t, err)
		assert.Equal(t, []Binding{{Table: "parcels", Column: "Oppervlak", URI: base + "area"}}, bindings)
	})

	t.Run("unknown concept violates foreign key", func(t *testing.T) {
		_, err := store.Bind(ctx, base+"missing", "parcels", "other", []string{"1"})
		assert.True(t, errors.IsNotFoundError(err), "unexpected error: %v", err)
	})
}

func TestDeleteConcept(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	_, err := store.CreateConcept(ctx, Concept{URI: base + "area", DataType: TypeDouble})
	require.NoError(t, err)
	_, err = store.Bind(ctx, base+"area", "parcels", "area", []string{"1", "2"})
	require.NoError(t, err)

	require.NoError(t, store.DeleteConcept(ctx, base+"area"))

	_, ok, err := store.BoundConcept(ctx, "parcels", "area")
	require.NoError(t, err)
	assert.False(t, ok, "binding cascades with the concept")

	assert.True(t, errors.IsNotFoundError(store.DeleteConcept(ctx, base+"area")))
}

func TestSamples(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	fixtures := []struct {
		concept  Concept
		table    string
		values   []string
		narrower string
	}{
		{Concept{URI: base + "area", DataType: TypeDouble, Verified: true}, "t1", []string{"1", "2"}, ""},
		{Concept{URI: base + "count", DataType: TypeInteger}, "t2", []string{"7"}, ""},
		{Concept{URI: base + "name", DataType: TypeText, Verified: true}, "t3", []string{"a"}, ""},
		{Concept{URI: base + "general", DataType: TypeDouble, Verified: true}, "t4", []string{"9"}, base + "area"},
	}
	for _, f := range fixtures {
		_, err := store.CreateConcept(ctx, f.concept)
		require.NoError(t, err)
		_, err = store.Bind(ctx, f.concept.URI, f.table, "c", f.values)
		require.NoError(t, err)
		if f.narrower != "" {
			require.NoError(t, store.SetNarrower(ctx, f.concept.URI, f.narrower))
		}
	}

	t.Run("root concepts of the requested types", func(t *testing.T) {
		samples, err := store.Samples(ctx, NumericTypes, false)
		require.NoError(t, err)
		assert.Equal(t, map[string][]string{
			base + "area":  {"1", "2"},
			base + "count": {"7"},
		}, samples)
	})

	t.Run("verified only", func(t *testing.T) {
		samples, err := store.Samples(ctx, NumericTypes, true)
		require.NoError(t, err)
		assert.Equal(t, map[string][]string{base + "area": {"1", "2"}}, samples)
	})

	t.Run("no types", func(t *testing.T) {
		samples, err := store.Samples(ctx, nil, false)
		require.NoError(t, err)
		assert.Empty(t, samples)
	})
}

func TestBind_Sqlmock(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	store := NewSQLStore(database, nil)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(BindingInsertQuery)).
		WithArgs("parcels", "area", base+"area").
		WillReturnResult(sqlmock.NewResult(1, 1))
	prep := mock.ExpectPrepare(regexp.QuoteMeta(ObservationInsertQuery))
	prep.ExpectExec().WithArgs(base+"area", "parcels", "area", "1").WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs(base+"area", "parcels", "area", "2").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	bound, err := store.Bind(context.Background(), base+"area", "parcels", "area", []string{"1", "2"})
	require.NoError(t, err)
	assert.True(t, bound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBind_SqlmockAlreadyBound(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	store := NewSQLStore(database, nil)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(BindingInsertQuery)).
		WithArgs("parcels", "area", base+"area").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	bound, err := store.Bind(context.Background(), base+"area", "parcels", "area", []string{"1"})
	require.NoError(t, err)
	assert.False(t, bound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
