package commands

import (
	"context"
	"database/sql"

	"github.com/teranos/metamap/am"
	"github.com/teranos/metamap/annotate"
	"github.com/teranos/metamap/concept"
	"github.com/teranos/metamap/dataset"
	"github.com/teranos/metamap/db"
	"github.com/teranos/metamap/errors"
	"github.com/teranos/metamap/logger"
	"github.com/teranos/metamap/source"
	"github.com/teranos/metamap/source/pgsource"
	"github.com/teranos/metamap/source/sqlitesource"
	"github.com/teranos/metamap/spatial"
	"github.com/teranos/metamap/spatial/memgeo"
	"github.com/teranos/metamap/spatial/postgis"
)

// engine holds everything a command needs, wired from am config.
type engine struct {
	cfg       *am.Config
	db        *sql.DB
	concepts  *concept.SQLStore
	inspector source.Inspector
	annotator *annotate.Service

	pg      *pgsource.Inspector
	closers []func() error
}

// openEngine loads config, opens the concept database and the source
// inspector, and trains the rule models.
func openEngine(ctx context.Context) (*engine, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	database, err := openDatabase(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	e := &engine{
		cfg:      cfg,
		db:       database,
		concepts: concept.NewSQLStore(database, logger.ComponentLogger("concept")),
		closers:  []func() error{database.Close},
	}

	if err := e.openSource(); err != nil {
		e.Close()
		return nil, err
	}

	e.annotator = annotate.New(e.concepts, e.inspector, cfg.Annotate, logger.ComponentLogger("annotate"))
	if err := e.annotator.Refresh(ctx); err != nil {
		e.Close()
		return nil, errors.Wrap(err, "failed to train rule models")
	}
	return e, nil
}

func (e *engine) openSource() error {
	log := logger.ComponentLogger("source")
	switch e.cfg.Source.Driver {
	case am.SourceDriverPostgres:
		pg, err := pgsource.Open(e.cfg.Source.DSN, log)
		if err != nil {
			return err
		}
		e.pg = pg
		e.inspector = pg
		e.closers = append(e.closers, pg.Close)

	default:
		if e.cfg.Source.DSN == "" || e.cfg.Source.DSN == e.cfg.Database.Path {
			e.inspector = sqlitesource.New(e.db, log)
			return nil
		}
		src, err := db.Open(e.cfg.Source.DSN, log)
		if err != nil {
			return errors.Wrapf(err, "failed to open source database %s", e.cfg.Source.DSN)
		}
		e.inspector = sqlitesource.New(src, log)
		e.closers = append(e.closers, src.Close)
	}
	return nil
}

// classifier wires the dataset classifier to the configured spatial driver.
// With geojson the tables' attributes are read from the same files.
func (e *engine) classifier(permitGuessing bool) (*dataset.Classifier, error) {
	log := logger.ComponentLogger("dataset")
	cfg := e.cfg.Dataset
	cfg.PermitGuessing = cfg.PermitGuessing || permitGuessing

	var store spatial.Store
	inspector := e.inspector

	switch e.cfg.Spatial.Driver {
	case am.SpatialDriverGeoJSON:
		geo, err := memgeo.Open(e.cfg.Spatial, logger.ComponentLogger("memgeo"))
		if err != nil {
			return nil, err
		}
		store = geo
		inspector = geo

	default:
		dsn := e.cfg.Spatial.DSN
		if dsn == "" {
			dsn = e.cfg.Source.DSN
		}
		if e.pg != nil && dsn == e.cfg.Source.DSN {
			store = postgis.New(e.pg.DB(), e.cfg.Spatial, logger.ComponentLogger("postgis"))
			break
		}
		if dsn == "" {
			return nil, errors.New("spatial.dsn is required for the postgis driver")
		}
		pg, err := pgsource.Open(dsn, logger.ComponentLogger("postgis"))
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, pg.Close)
		store = postgis.New(pg.DB(), e.cfg.Spatial, logger.ComponentLogger("postgis"))
		if e.pg == nil {
			inspector = pg
		}
	}

	return dataset.NewClassifier(dataset.NewSQLStore(e.db), store, inspector, cfg, log), nil
}

// Close releases every connection in reverse order of opening.
func (e *engine) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil && !db.IsDatabaseClosed(err) {
			logger.Warnw("Failed to close connection", "error", err)
		}
	}
}
