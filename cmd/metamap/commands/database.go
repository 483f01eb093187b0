package commands

import (
	"database/sql"

	"github.com/teranos/metamap/am"
	"github.com/teranos/metamap/db"
	"github.com/teranos/metamap/errors"
	"github.com/teranos/metamap/logger"
)

// openDatabase opens and migrates the concept database. An empty dbPath
// falls back to database.path from am config.
func openDatabase(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		cfg, err := am.Load()
		if err != nil {
			return nil, errors.Wrap(err, "failed to load configuration")
		}
		dbPath = cfg.Database.Path
	}

	database, err := db.Open(dbPath, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}

	if err := db.Migrate(database, logger.Logger); err != nil {
		database.Close()
		return nil, errors.Wrapf(err, "failed to run migrations on %s", dbPath)
	}

	return database, nil
}
