package am

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "metamap.db")

	// Source defaults: ingested tables live next to the concept store
	v.SetDefault("source.driver", SourceDriverSQLite)
	v.SetDefault("source.dsn", "")

	// Spatial defaults
	v.SetDefault("spatial.driver", SpatialDriverPostGIS)
	v.SetDefault("spatial.dsn", "")
	v.SetDefault("spatial.dir", ".")
	v.SetDefault("spatial.places_table", "places")
	v.SetDefault("spatial.places_file", "places.geojson")
	v.SetDefault("spatial.geometry_column", "geom")
	v.SetDefault("spatial.srid", 3857)

	// Annotate defaults
	v.SetDefault("annotate.base_uri", "http://example.com/")
	v.SetDefault("annotate.alpha", 0.05)
	v.SetDefault("annotate.min_score", 0.5)
	v.SetDefault("annotate.background_min_categories", 10)
	v.SetDefault("annotate.smoothing", 0.01)
	v.SetDefault("annotate.nominal_ceiling", 20)
	v.SetDefault("annotate.compare_headers", true)
	v.SetDefault("annotate.autogenerate", false)
	v.SetDefault("annotate.train_verified_only", false)

	// Dataset classifier defaults
	v.SetDefault("dataset.sample_size", 100)
	v.SetDefault("dataset.reference_tolerance", 15e-5)
	v.SetDefault("dataset.hausdorff_threshold", 15.0)
	v.SetDefault("dataset.object_fraction", 0.2)
	v.SetDefault("dataset.coverage_tolerance", 1e-6)
	v.SetDefault("dataset.hull_solidity", 0.9)
	v.SetDefault("dataset.lattice_tolerance", 0.01)
	v.SetDefault("dataset.permit_guessing", false)
	v.SetDefault("dataset.cache_ttl_seconds", 300)
}

// Default returns a Config populated only from SetDefaults.
// Useful for tests and for embedding the engine without config files.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	if err != nil {
		// Defaults always unmarshal; a failure here is a programming error.
		panic(err)
	}
	return cfg
}
