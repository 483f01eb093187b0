package db

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	t.Run("creates engine tables", func(t *testing.T) {
		db, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
		require.NoError(t, err)
		defer db.Close()

		require.NoError(t, Migrate(db, nil))

		for _, table := range []string{"schema_migrations", "concepts", "concept_bindings", "concept_observations", "dataset_types"} {
			var count int
			err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&count)
			require.NoError(t, err)
			assert.Equal(t, 1, count, "table %s should exist", table)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		db, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
		require.NoError(t, err)
		defer db.Close()

		require.NoError(t, Migrate(db, nil))
		require.NoError(t, Migrate(db, nil), "running migrations multiple times should be safe")

		var versions int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
		assert.Equal(t, 3, versions)
	})

	t.Run("fails on closed database", func(t *testing.T) {
		db, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
		require.NoError(t, err)
		db.Close()

		assert.Error(t, Migrate(db, nil))
	})
}

func TestOpenWithMigrations(t *testing.T) {
	db, err := OpenWithMigrations(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	defer db.Close()

	t.Run("observations cascade with their concept", func(t *testing.T) {
		_, err := db.Exec(`INSERT INTO concepts (uri, name, data_type) VALUES ('http://example.com/area', 'area', 'integer')`)
		require.NoError(t, err)
		_, err = db.Exec(`INSERT INTO concept_bindings (table_name, column_name, uri) VALUES ('parcels', 'area', 'http://example.com/area')`)
		require.NoError(t, err)
		_, err = db.Exec(`INSERT INTO concept_observations (uri, table_name, column_name, value) VALUES ('http://example.com/area', 'parcels', 'area', '12')`)
		require.NoError(t, err)

		_, err = db.Exec(`DELETE FROM concepts WHERE uri = 'http://example.com/area'`)
		require.NoError(t, err)

		var remaining int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM concept_observations`).Scan(&remaining))
		assert.Zero(t, remaining)
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM concept_bindings`).Scan(&remaining))
		assert.Zero(t, remaining)
	})

	t.Run("binding primary key rejects a second concept", func(t *testing.T) {
		for _, uri := range []string{"http://example.com/a", "http://example.com/b"} {
			_, err := db.Exec(`INSERT INTO concepts (uri, data_type) VALUES (?, 'text')`, uri)
			require.NoError(t, err)
		}
		_, err := db.Exec(`INSERT INTO concept_bindings (table_name, column_name, uri) VALUES ('t', 'c', 'http://example.com/a')`)
		require.NoError(t, err)

		_, err = db.Exec(`INSERT INTO concept_bindings (table_name, column_name, uri) VALUES ('t', 'c', 'http://example.com/b')`)
		require.Error(t, err)
		assert.True(t, IsConstraintViolation(err), fmt.Sprintf("unexpected error: %v", err))
	})
}
