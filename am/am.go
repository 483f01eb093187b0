// Package am holds metamap configuration ("I am").
//
// Configuration is read with viper from TOML files and METAMAP_* environment
// variables; see load.go for the precedence order.
package am

// Config represents the metamap configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Source   SourceConfig   `mapstructure:"source"`
	Spatial  SpatialConfig  `mapstructure:"spatial"`
	Annotate AnnotateConfig `mapstructure:"annotate"`
	Dataset  DatasetConfig  `mapstructure:"dataset"`
}

// DatabaseConfig configures the SQLite database holding concepts,
// observations and dataset classifications
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// Source drivers
const (
	SourceDriverSQLite   = "sqlite3"
	SourceDriverPostgres = "postgres"
)

// SourceConfig configures where ingested tables are read from
type SourceConfig struct {
	Driver string `mapstructure:"driver"` // sqlite3 (default: the metamap database itself) or postgres
	DSN    string `mapstructure:"dsn"`    // postgres connection string, or sqlite path (empty = database.path)
}

// Spatial drivers
const (
	SpatialDriverPostGIS = "postgis"
	SpatialDriverGeoJSON = "geojson"
)

// SpatialConfig configures geometry introspection and the reference places corpus
type SpatialConfig struct {
	Driver         string `mapstructure:"driver"`          // postgis or geojson
	DSN            string `mapstructure:"dsn"`             // postgis connection string (empty = source.dsn)
	Dir            string `mapstructure:"dir"`             // geojson: directory of <table>.geojson files
	PlacesTable    string `mapstructure:"places_table"`    // postgis: reference corpus table
	PlacesFile     string `mapstructure:"places_file"`     // geojson: reference corpus file
	GeometryColumn string `mapstructure:"geometry_column"` // geometry column name in every table
	SRID           int    `mapstructure:"srid"`            // planar projection for Hausdorff distances
}

// AnnotateConfig configures the concept matcher and rule models
type AnnotateConfig struct {
	BaseURI                 string  `mapstructure:"base_uri"`                  // concept URI prefix
	Alpha                   float64 `mapstructure:"alpha"`                     // significance threshold for numeric tests
	MinScore                float64 `mapstructure:"min_score"`                 // per-value probability and column fraction for text matches
	BackgroundMinCategories int     `mapstructure:"background_min_categories"` // inject background category below this many categories
	Smoothing               float64 `mapstructure:"smoothing"`                 // additive smoothing of the text classifier
	NominalCeiling          int     `mapstructure:"nominal_ceiling"`           // distinct values below which a concept is nominal
	CompareHeaders          bool    `mapstructure:"compare_headers"`
	Autogenerate            bool    `mapstructure:"autogenerate"`
	TrainVerifiedOnly       bool    `mapstructure:"train_verified_only"` // train rule models on verified concepts only
}

// DatasetConfig configures the dataset-type classifier
type DatasetConfig struct {
	SampleSize         int     `mapstructure:"sample_size"`         // rows sampled for the object test
	ReferenceTolerance float64 `mapstructure:"reference_tolerance"` // bbox buffer around reference places (degrees)
	HausdorffThreshold float64 `mapstructure:"hausdorff_threshold"` // max projected distance for a reference match
	ObjectFraction     float64 `mapstructure:"object_fraction"`     // matched fraction needed for object datasets
	CoverageTolerance  float64 `mapstructure:"coverage_tolerance"`  // bbox width/height equality tolerance
	HullSolidity       float64 `mapstructure:"hull_solidity"`       // concave hull parameter
	LatticeTolerance   float64 `mapstructure:"lattice_tolerance"`   // allowed deviation of area ratios from 1.0
	PermitGuessing     bool    `mapstructure:"permit_guessing"`     // enable event/track/network heuristics
	CacheTTLSeconds    int     `mapstructure:"cache_ttl_seconds"`   // in-process cache of classification records (0 = disabled)
}

// File system constants
const (
	DefaultDirPermissions = 0755 // Standard directory permissions (rwxr-xr-x)
)
