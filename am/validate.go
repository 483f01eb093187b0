package am

import "github.com/teranos/metamap/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Source.Driver {
	case SourceDriverSQLite:
	case SourceDriverPostgres:
		if c.Source.DSN == "" {
			return errors.New("source.dsn cannot be empty for the postgres driver")
		}
	default:
		return errors.Newf("source.driver must be %q or %q, got %q", SourceDriverSQLite, SourceDriverPostgres, c.Source.Driver)
	}

	switch c.Spatial.Driver {
	case SpatialDriverPostGIS, SpatialDriverGeoJSON:
	default:
		return errors.Newf("spatial.driver must be %q or %q, got %q", SpatialDriverPostGIS, SpatialDriverGeoJSON, c.Spatial.Driver)
	}
	if c.Spatial.GeometryColumn == "" {
		return errors.New("spatial.geometry_column cannot be empty")
	}
	if c.Spatial.SRID <= 0 {
		return errors.Newf("spatial.srid must be > 0, got %d", c.Spatial.SRID)
	}

	// Probabilities and thresholds live in (0, 1]
	if c.Annotate.Alpha <= 0 || c.Annotate.Alpha >= 1 {
		return errors.Newf("annotate.alpha must be in (0, 1), got %f", c.Annotate.Alpha)
	}
	if c.Annotate.MinScore <= 0 || c.Annotate.MinScore > 1 {
		return errors.Newf("annotate.min_score must be in (0, 1], got %f", c.Annotate.MinScore)
	}
	if c.Annotate.BackgroundMinCategories < 0 {
		return errors.Newf("annotate.background_min_categories must be >= 0, got %d", c.Annotate.BackgroundMinCategories)
	}
	if c.Annotate.Smoothing <= 0 {
		return errors.Newf("annotate.smoothing must be > 0, got %f", c.Annotate.Smoothing)
	}
	if c.Annotate.NominalCeiling < 0 {
		return errors.Newf("annotate.nominal_ceiling must be >= 0, got %d", c.Annotate.NominalCeiling)
	}

	if c.Dataset.SampleSize <= 0 {
		return errors.Newf("dataset.sample_size must be > 0, got %d", c.Dataset.SampleSize)
	}
	if c.Dataset.ObjectFraction < 0 || c.Dataset.ObjectFraction > 1 {
		return errors.Newf("dataset.object_fraction must be in [0, 1], got %f", c.Dataset.ObjectFraction)
	}
	if c.Dataset.HullSolidity <= 0 || c.Dataset.HullSolidity > 1 {
		return errors.Newf("dataset.hull_solidity must be in (0, 1], got %f", c.Dataset.HullSolidity)
	}
	if c.Dataset.ReferenceTolerance < 0 || c.Dataset.HausdorffThreshold < 0 ||
		c.Dataset.CoverageTolerance < 0 || c.Dataset.LatticeTolerance < 0 {
		return errors.New("dataset tolerances and thresholds must be >= 0")
	}
	// 0 = no in-process cache, reads always hit the store
	if c.Dataset.CacheTTLSeconds < 0 {
		return errors.Newf("dataset.cache_ttl_seconds must be >= 0, got %d", c.Dataset.CacheTTLSeconds)
	}

	return nil
}
