// Package postgis implements spatial.Store on PostgreSQL with PostGIS.
package postgis

import (
	"context"
	"database/sql"
	"math"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/teranos/metamap/am"
	"github.com/teranos/metamap/errors"
	"github.com/teranos/metamap/logger"
	"github.com/teranos/metamap/spatial"
)

// GeometryColumnQuery checks that a table has the configured geometry column.
const GeometryColumnQuery = `
	SELECT 1 FROM information_schema.columns
	WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2`

// Query templates. {t} is the row table, {g} its geometry column and {p}
// the reference places table; all are substituted with sanitized
// identifiers after the catalog check.
const (
	geometryTypeTemplate = `SELECT GeometryType({g}) FROM {t} WHERE {g} IS NOT NULL LIMIT 1`

	extentsTemplate = `
		SELECT ST_XMax({g}) - ST_XMin({g}), ST_YMax({g}) - ST_YMin({g})
		FROM {t} WHERE {g} IS NOT NULL`

	referenceDistancesTemplate = `
		SELECT COALESCE(m.distance, 'Infinity'::float8)
		FROM (SELECT {g} AS geom FROM {t} WHERE {g} IS NOT NULL LIMIT $1) s
		LEFT JOIN LATERAL (
			SELECT MIN(ST_HausdorffDistance(ST_Transform(s.geom, $2), ST_Transform(p.{g}, $2))) AS distance
			FROM {p} p
			WHERE ST_Expand(p.{g}, $3) && s.geom
			  AND GeometryType(ST_Multi(p.{g})) = GeometryType(ST_Multi(s.geom))
		) m ON true`

	hullCoverageTemplate = `
		WITH hull AS (
			SELECT ST_ConcaveHull(ST_Union({g}), $1) AS geom, SUM(ST_Area({g})) AS total
			FROM {t} WHERE {g} IS NOT NULL
		)
		SELECT ST_Area(r.{g}),
			COALESCE(ST_Area(ST_Intersection(r.{g}, hull.geom)) * ST_Area(hull.geom) / NULLIF(hull.total, 0), 0)
		FROM {t} r, hull
		WHERE r.{g} IS NOT NULL`
)

// Store runs the classifier's geometry questions as PostGIS queries.
type Store struct {
	db     *sql.DB
	cfg    am.SpatialConfig
	logger *zap.SugaredLogger
}

var _ spatial.Store = (*Store)(nil)

// New creates a store over db. The pgx driver must be registered, for
// example by importing source/pgsource.
func New(db *sql.DB, cfg am.SpatialConfig, log *zap.SugaredLogger) *Store {
	return &Store{db: db, cfg: cfg, logger: logger.OrNop(log)}
}

// GeometryFamily reads the type of one non-null geometry.
func (s *Store) GeometryFamily(ctx context.Context, table string) (spatial.Family, error) {
	query, err := s.query(ctx, geometryTypeTemplate, table)
	if err != nil {
		return "", err
	}

	var geometryType string
	err = s.db.QueryRowContext(ctx, query).Scan(&geometryType)
	if err == sql.ErrNoRows {
		return "", errors.Wrapf(errors.ErrSchemaNotFound, "table %q has no geometry", table)
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to read geometry type of %s", table)
	}
	return spatial.NormalizeFamily(geometryType)
}

// Extents returns the bounding-box size of every row.
func (s *Store) Extents(ctx context.Context, table string) ([]spatial.Extent, error) {
	query, err := s.query(ctx, extentsTemplate, table)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read extents of %s", table)
	}
	defer rows.Close()

	var extents []spatial.Extent
	for rows.Next() {
		var e spatial.Extent
		if err := rows.Scan(&e.Width, &e.Height); err != nil {
			return nil, errors.Wrap(err, "failed to scan extent")
		}
		extents = append(extents, e)
	}
	return extents, errors.Wrap(rows.Err(), "failed to iterate extents")
}

// ReferenceDistances compares a sample of rows with the places table.
func (s *Store) ReferenceDistances(ctx context.Context, table string, sampleSize int, tolerance float64) ([]float64, error) {
	query, err := s.query(ctx, referenceDistancesTemplate, table)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, sampleSize, s.cfg.SRID, tolerance)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to compare %s with reference places", table)
	}
	defer rows.Close()

	var distances []float64
	for rows.Next() {
		var d float64
		if err := rows.Scan(&d); err != nil {
			return nil, errors.Wrap(err, "failed to scan distance")
		}
		if math.IsNaN(d) {
			d = math.Inf(1)
		}
		distances = append(distances, d)
	}
	return distances, errors.Wrap(rows.Err(), "failed to iterate distances")
}

// HullCoverage intersects every row with the concave hull of the table.
func (s *Store) HullCoverage(ctx context.Context, table string, solidity float64) ([]spatial.AreaPair, error) {
	query, err := s.query(ctx, hullCoverageTemplate, table)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, solidity)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to compute hull coverage of %s", table)
	}
	defer rows.Close()

	var pairs []spatial.AreaPair
	for rows.Next() {
		var p spatial.AreaPair
		if err := rows.Scan(&p.RowArea, &p.IntersectedArea); err != nil {
			return nil, errors.Wrap(err, "failed to scan areas")
		}
		pairs = append(pairs, p)
	}
	return pairs, errors.Wrap(rows.Err(), "failed to iterate areas")
}

// query checks table against the catalog and fills in a template.
func (s *Store) query(ctx context.Context, template, table string) (string, error) {
	var one int
	err := s.db.QueryRowContext(ctx, GeometryColumnQuery, table, s.cfg.GeometryColumn).Scan(&one)
	if err == sql.ErrNoRows {
		return "", errors.NewSchemaNotFoundError(table, s.cfg.GeometryColumn)
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to look up %s", table)
	}
	return Render(template, table, s.cfg.GeometryColumn, s.cfg.PlacesTable), nil
}

// Render substitutes sanitized identifiers into a query template.
func Render(template, table, geometryColumn, placesTable string) string {
	return strings.NewReplacer(
		"{t}", pgx.Identifier{table}.Sanitize(),
		"{g}", pgx.Identifier{geometryColumn}.Sanitize(),
		"{p}", pgx.Identifier{placesTable}.Sanitize(),
	).Replace(template)
}
