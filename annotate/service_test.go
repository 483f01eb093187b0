package annotate

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/metamap/am"
	"github.com/teranos/metamap/concept"
	"github.com/teranos/metamap/errors"
	testutil "github.com/teranos/metamap/internal/testing"
	"github.com/teranos/metamap/source/sqlitesource"
)

const baseURI = "http://example.com/"

type fixture struct {
	db      *sql.DB
	store   *concept.SQLStore
	service *Service
}

func newFixture(t *testing.T, statements ...string) *fixture {
	t.Helper()

	database := testutil.CreateTestDB(t)
	testutil.MustExec(t, database, statements...)

	log := zaptest.NewLogger(t).Sugar()
	store := concept.NewSQLStore(database, log)
	service := New(store, sqlitesource.New(database, log), am.Default().Annotate, log)
	require.NoError(t, service.Refresh(context.Background()))

	return &fixture{db: database, store: store, service: service}
}

var numericTables = []string{
	`CREATE TABLE reference (x REAL, "Surface Area" REAL)`,
	`INSERT INTO reference VALUES (1, 1), (2, 2), (3, 3), (4, 4), (5, 5)`,
	`CREATE TABLE query (x REAL, other REAL, far REAL, surface_area REAL)`,
	`INSERT INTO query VALUES (1.1, 1.1, 1000, 1.1), (2.1, 2.1, 1001, 2.1), (3.1, 3.1, 999, 3.1), (3.9, 3.9, 1002, 3.9), (5.2, 5.2, 998, 5.2)`,
}

func TestSuggestConcept_Numeric(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, numericTables...)

	uri, err := f.service.GenerateConcept(ctx, "reference", "x", "x", true)
	require.NoError(t, err)
	assert.Equal(t, baseURI+"x", uri)

	t.Run("indistinguishable sample matches", func(t *testing.T) {
		got, err := f.service.SuggestConcept(ctx, "query", "x", true, false)
		require.NoError(t, err)
		assert.Equal(t, baseURI+"x", got)

		_, total, err := f.store.ValueCounts(ctx, baseURI+"x")
		require.NoError(t, err)
		assert.Equal(t, 10, total)
	})

	t.Run("second call is idempotent", func(t *testing.T) {
		got, err := f.service.SuggestConcept(ctx, "query", "x", true, false)
		require.NoError(t, err)
		assert.Equal(t, baseURI+"x", got)

		_, total, err := f.store.ValueCounts(ctx, baseURI+"x")
		require.NoError(t, err)
		assert.Equal(t, 10, total, "exactly one observation batch per column")
	})

	t.Run("distant sample has no match", func(t *testing.T) {
		got, err := f.service.SuggestConcept(ctx, "query", "far", false, false)
		require.NoError(t, err)
		assert.Empty(t, got)

		_, ok, err := f.store.BoundConcept(ctx, "query", "far")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("header filter", func(t *testing.T) {
		got, err := f.service.SuggestConcept(ctx, "query", "other", true, false)
		require.NoError(t, err)
		assert.Empty(t, got, "no observation under an equivalent column name")

		got, err = f.service.SuggestConcept(ctx, "query", "other", false, false)
		require.NoError(t, err)
		assert.Equal(t, baseURI+"x", got)
	})
}

func TestSuggestConcept_EquivalentHeader(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, numericTables...)

	_, err := f.service.GenerateConcept(ctx, "reference", "Surface Area", "area", true)
	require.NoError(t, err)

	got, err := f.service.SuggestConcept(ctx, "query", "surface_area", true, false)
	require.NoError(t, err)
	assert.Equal(t, baseURI+"area", got)
}

func TestSuggestConcept_Autogenerate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, numericTables...)

	_, err := f.service.GenerateConcept(ctx, "reference", "x", "x", true)
	require.NoError(t, err)

	uri, err := f.service.SuggestConcept(ctx, "query", "far", true, true)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, baseURI))
	assert.NotEqual(t, baseURI+"x", uri)

	c, err := f.store.GetConcept(ctx, uri)
	require.NoError(t, err)
	assert.False(t, c.Verified)
	assert.True(t, c.IsRoot())
	assert.Equal(t, concept.TypeDouble, c.DataType)

	bound, ok, err := f.store.BoundConcept(ctx, "query", "far")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uri, bound)

	t.Run("minted concept joins the numeric model", func(t *testing.T) {
		assert.Equal(t, 2, f.service.Model(concept.FamilyNumeric).Size())
	})
}

func TestSuggestConcept_Text(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t,
		`CREATE TABLE cats (sound TEXT)`,
		`INSERT INTO cats VALUES ('meow'), ('purr'), ('feline')`,
		`CREATE TABLE dogs (sound TEXT)`,
		`INSERT INTO dogs VALUES ('bark'), ('woof'), ('canine')`,
		`CREATE TABLE unknown (sound TEXT, noise TEXT)`,
		`INSERT INTO unknown VALUES ('meow', 'zzzz')`,
	)

	_, err := f.service.GenerateConcept(ctx, "cats", "sound", "cat", true)
	require.NoError(t, err)
	_, err = f.service.GenerateConcept(ctx, "dogs", "sound", "dog", true)
	require.NoError(t, err)

	got, err := f.service.SuggestConcept(ctx, "unknown", "sound", true, false)
	require.NoError(t, err)
	assert.Equal(t, baseURI+"cat", got)

	got, err = f.service.SuggestConcept(ctx, "unknown", "noise", false, false)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSuggestConcept_Untrained(t *testing.T) {
	f := newFixture(t,
		`CREATE TABLE t (name TEXT)`,
		`INSERT INTO t VALUES ('meow')`,
	)

	got, err := f.service.SuggestConcept(context.Background(), "t", "name", true, false)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSuggestConcept_Temporal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t,
		`CREATE TABLE a (day DATE)`,
		`INSERT INTO a VALUES ('2020-01-01'), ('2020-01-02')`,
		`CREATE TABLE b (day DATE)`,
		`INSERT INTO b VALUES ('2020-01-01'), ('2020-01-02')`,
	)

	_, err := f.service.GenerateConcept(ctx, "a", "day", "day", true)
	require.NoError(t, err)

	got, err := f.service.SuggestConcept(ctx, "b", "day", true, false)
	require.NoError(t, err)
	assert.Empty(t, got, "temporal columns get no automatic match")
}

func TestSuggestConcept_SchemaNotFound(t *testing.T) {
	f := newFixture(t, `CREATE TABLE t (name TEXT)`)

	_, err := f.service.SuggestConcept(context.Background(), "missing", "name", true, true)
	assert.True(t, errors.IsSchemaNotFound(err))

	_, err = f.service.SuggestConcept(context.Background(), "t", "missing", true, true)
	assert.True(t, errors.IsSchemaNotFound(err))
}

func TestGenerateConcept(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, numericTables...)

	t.Run("ambiguous input", func(t *testing.T) {
		for _, args := range [][3]string{{"", "x", "x"}, {"reference", "", "x"}, {"reference", "x", " "}} {
			_, err := f.service.GenerateConcept(ctx, args[0], args[1], args[2], true)
			assert.True(t, errors.Is(err, errors.ErrAmbiguousInput), "args %v", args)
		}
	})

	t.Run("name is escaped into the URI", func(t *testing.T) {
		uri, err := f.service.GenerateConcept(ctx, "reference", "Surface Area", "surface area", false)
		require.NoError(t, err)
		assert.Equal(t, baseURI+"surface%20area", uri)

		c, err := f.store.GetConcept(ctx, uri)
		require.NoError(t, err)
		assert.False(t, c.Verified)
	})

	t.Run("existing concept gets verified", func(t *testing.T) {
		uri, err := f.service.GenerateConcept(ctx, "query", "surface_area", "surface area", true)
		require.NoError(t, err)

		c, err := f.store.GetConcept(ctx, uri)
		require.NoError(t, err)
		assert.True(t, c.Verified)

		columns, err := f.store.ColumnNames(ctx, uri)
		require.NoError(t, err)
		assert.Equal(t, []string{"Surface Area", "surface_area"}, columns)
	})

	t.Run("already bound column keeps its concept", func(t *testing.T) {
		_, err := f.service.GenerateConcept(ctx, "reference", "Surface Area", "other", true)
		require.NoError(t, err)

		uri, _, err := f.store.BoundConcept(ctx, "reference", "Surface Area")
		require.NoError(t, err)
		assert.Equal(t, baseURI+"surface%20area", uri)
	})

	t.Run("unknown column", func(t *testing.T) {
		_, err := f.service.GenerateConcept(ctx, "reference", "missing", "x", true)
		assert.True(t, errors.IsSchemaNotFound(err))
	})
}

func TestNarrowerConceptsLeaveTheModel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, numericTables...)

	_, err := f.service.GenerateConcept(ctx, "reference", "x", "x", true)
	require.NoError(t, err)
	_, err = f.service.GenerateConcept(ctx, "reference", "Surface Area", "specific", true)
	require.NoError(t, err)
	require.Equal(t, 2, f.service.Model(concept.FamilyNumeric).Size())

	require.NoError(t, f.service.SetNarrower(ctx, baseURI+"x", baseURI+"specific"))
	assert.Equal(t, 1, f.service.Model(concept.FamilyNumeric).Size())

	require.NoError(t, f.service.DeleteConcept(ctx, baseURI+"specific"))
	assert.Equal(t, 1, f.service.Model(concept.FamilyNumeric).Size(), "deleting the narrower concept makes x a root again")

	c, err := f.store.GetConcept(ctx, baseURI+"x")
	require.NoError(t, err)
	assert.True(t, c.IsRoot())
}

func TestAnnotateTable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, append(numericTables,
		`CREATE TABLE places (x REAL, geom BLOB)`,
		`INSERT INTO places VALUES (1.1, NULL), (2.1, NULL), (3.1, NULL), (3.9, NULL), (5.2, NULL)`,
	)...)

	_, err := f.service.GenerateConcept(ctx, "reference", "x", "x", true)
	require.NoError(t, err)

	got, err := f.service.AnnotateTable(ctx, "places", true, false, "geom")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"x": baseURI + "x"}, got)

	bindings, err := f.service.ColumnBindings(ctx, "places")
	require.NoError(t, err)
	assert.Len(t, bindings, 1)
}

func TestInferAttributeKind(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, append(numericTables,
		`CREATE TABLE attrs (flag TEXT, color TEXT, code TEXT)`,
		`INSERT INTO attrs VALUES ('yes', 'red', 'a1'), ('no', 'red', 'a2'), ('yes', 'blue', 'a3'), ('no', 'green', 'a4')`,
	)...)

	tests := []struct {
		table, column string
		want          AttributeKind
	}{
		{"reference", "x", KindInterval},
		{"attrs", "flag", KindBoolean},
		{"attrs", "color", KindNominal},
		{"attrs", "code", KindNone},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			uri, err := f.service.GenerateConcept(ctx, tt.table, tt.column, tt.column, true)
			require.NoError(t, err)

			got, err := f.service.InferAttributeKind(ctx, uri)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := f.service.InferAttributeKind(ctx, baseURI+"missing")
	assert.True(t, errors.IsNotFoundError(err))
}

func TestKindFromCounts(t *testing.T) {
	assert.Equal(t, KindBoolean, KindFromCounts(2, 2, 20))
	assert.Equal(t, KindNominal, KindFromCounts(3, 10, 20))
	assert.Equal(t, KindNone, KindFromCounts(3, 3, 20))
	assert.Equal(t, KindNone, KindFromCounts(20, 100, 20))
}

func TestConcurrentRefresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, numericTables...)
	_, err := f.service.GenerateConcept(ctx, "reference", "x", "x", true)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.service.Refresh(ctx))
			f.service.Candidates(concept.TypeDouble, []string{"1", "2", "3"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.service.Model(concept.FamilyNumeric).Size())
}

// racingStore binds table.column to another concept right after the
// first bound-check, as a concurrent caller would.
type racingStore struct {
	*concept.SQLStore
	once  sync.Once
	other string
}

func (r *racingStore) BoundConcept(ctx context.Context, table, column string) (string, bool, error) {
	uri, ok, err := r.SQLStore.BoundConcept(ctx, table, column)
	r.once.Do(func() {
		if _, err := r.SQLStore.CreateConcept(ctx, concept.Concept{URI: r.other, DataType: concept.TypeDouble}); err != nil {
			panic(err)
		}
		if _, err := r.SQLStore.Bind(ctx, r.other, table, column, []string{"7"}); err != nil {
			panic(err)
		}
	})
	return uri, ok, err
}

func TestSuggestConcept_ConcurrentBind(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		name         string
		column       string
		autogenerate bool
	}{
		{name: "matched concept", column: "x"},
		{name: "minted concept", column: "far", autogenerate: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, numericTables...)
			_, err := f.service.GenerateConcept(ctx, "reference", "x", "x", true)
			require.NoError(t, err)

			racing := &racingStore{SQLStore: f.store, other: baseURI + "other"}
			log := zaptest.NewLogger(t).Sugar()
			service := New(racing, sqlitesource.New(f.db, log), am.Default().Annotate, log)
			require.NoError(t, service.Refresh(ctx))

			got, err := service.SuggestConcept(ctx, "query", tc.column, false, tc.autogenerate)
			require.NoError(t, err)
			assert.Equal(t, baseURI+"other", got)

			bound, ok, err := f.store.BoundConcept(ctx, "query", tc.column)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, got, bound)

			concepts, err := f.store.ListConcepts(ctx)
			require.NoError(t, err)
			assert.Len(t, concepts, 2, "no orphaned concept is left behind")
		})
	}
}
