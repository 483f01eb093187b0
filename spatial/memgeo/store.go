// Package memgeo is an in-process spatial store over GeoJSON files.
//
// Each table is a FeatureCollection in <dir>/<table>.geojson. Feature
// properties are the table's attribute columns and the geometry is
// exposed under the configured geometry column. The places corpus is
// another FeatureCollection.
//
// Hausdorff distances are measured between vertices in Web Mercator, and
// the concave hull is approximated by the convex hull of all vertices.
package memgeo

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/teranos/metamap/am"
	"github.com/teranos/metamap/errors"
	"github.com/teranos/metamap/logger"
	"github.com/teranos/metamap/source"
	"github.com/teranos/metamap/spatial"
)

// tableName restricts table names to safe file names.
var tableName = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Store implements spatial.Store and source.Inspector over feature
// collections.
type Store struct {
	dir            string
	placesFile     string
	geometryColumn string
	logger         *zap.SugaredLogger

	mu     sync.Mutex
	tables map[string]*geojson.FeatureCollection
	places *geojson.FeatureCollection
}

var (
	_ spatial.Store    = (*Store)(nil)
	_ source.Inspector = (*Store)(nil)
)

// New creates an empty store. Tables and places are added with AddTable
// and SetPlaces.
func New(geometryColumn string, log *zap.SugaredLogger) *Store {
	return &Store{
		geometryColumn: geometryColumn,
		logger:         logger.OrNop(log),
		tables:         map[string]*geojson.FeatureCollection{},
	}
}

// Open creates a store that loads tables lazily from cfg.Dir.
func Open(cfg am.SpatialConfig, log *zap.SugaredLogger) (*Store, error) {
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open geojson directory %s", cfg.Dir)
	}
	if !info.IsDir() {
		return nil, errors.NewInvalidRequestError("%s is not a directory", cfg.Dir)
	}

	s := New(cfg.GeometryColumn, log)
	s.dir = cfg.Dir
	s.placesFile = cfg.PlacesFile
	if s.placesFile != "" && !filepath.IsAbs(s.placesFile) {
		s.placesFile = filepath.Join(cfg.Dir, s.placesFile)
	}
	return s, nil
}

// AddTable registers fc under name.
func (s *Store) AddTable(name string, fc *geojson.FeatureCollection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = fc
}

// SetPlaces replaces the reference places corpus.
func (s *Store) SetPlaces(fc *geojson.FeatureCollection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.places = fc
}

// table returns the features of name, loading them on first use.
func (s *Store) table(name string) (*geojson.FeatureCollection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fc, ok := s.tables[name]; ok {
		return fc, nil
	}
	if s.dir == "" || !tableName.MatchString(name) {
		return nil, errors.NewSchemaNotFoundError(name, "")
	}

	fc, err := readCollection(filepath.Join(s.dir, name+".geojson"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.NewSchemaNotFoundError(name, "")
	}
	if err != nil {
		return nil, err
	}

	s.tables[name] = fc
	s.logger.Debugw("Loaded geojson table",
		logger.FieldTable, name,
		logger.FieldCount, len(fc.Features),
	)
	return fc, nil
}

func (s *Store) placeFeatures() ([]*geojson.Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.places == nil && s.placesFile != "" {
		fc, err := readCollection(s.placesFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load reference places")
		}
		s.places = fc
	}
	if s.places == nil {
		return nil, nil
	}
	return s.places.Features, nil
}

func readCollection(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return fc, nil
}

// geometries returns the non-null geometries of a table in feature order.
func (s *Store) geometries(table string) ([]orb.Geometry, error) {
	fc, err := s.table(table)
	if err != nil {
		return nil, err
	}
	var gs []orb.Geometry
	for _, f := range fc.Features {
		if f.Geometry != nil {
			gs = append(gs, f.Geometry)
		}
	}
	return gs, nil
}

// GeometryFamily returns the family of the first non-null geometry.
func (s *Store) GeometryFamily(_ context.Context, table string) (spatial.Family, error) {
	gs, err := s.geometries(table)
	if err != nil {
		return "", err
	}
	if len(gs) == 0 {
		return "", errors.Wrapf(errors.ErrSchemaNotFound, "table %q has no geometry", table)
	}
	return spatial.NormalizeFamily(gs[0].GeoJSONType())
}

// Extents returns the bounding-box size of every geometry.
func (s *Store) Extents(_ context.Context, table string) ([]spatial.Extent, error) {
	gs, err := s.geometries(table)
	if err != nil {
		return nil, err
	}
	extents := make([]spatial.Extent, len(gs))
	for i, g := range gs {
		b := g.Bound()
		extents[i] = spatial.Extent{Width: b.Max[0] - b.Min[0], Height: b.Max[1] - b.Min[1]}
	}
	return extents, nil
}

// ReferenceDistances compares the first sampleSize geometries with the
// places corpus.
func (s *Store) ReferenceDistances(_ context.Context, table string, sampleSize int, tolerance float64) ([]float64, error) {
	gs, err := s.geometries(table)
	if err != nil {
		return nil, err
	}
	places, err := s.placeFeatures()
	if err != nil {
		return nil, err
	}
	if sampleSize >= 0 && len(gs) > sampleSize {
		gs = gs[:sampleSize]
	}

	distances := make([]float64, len(gs))
	for i, g := range gs {
		distances[i] = math.Inf(1)
		family, err := spatial.NormalizeFamily(g.GeoJSONType())
		if err != nil {
			continue
		}
		bound := g.Bound()
		projected := toMercator(g)

		for _, p := range places {
			if p.Geometry == nil || !p.Geometry.Bound().Pad(tolerance).Intersects(bound) {
				continue
			}
			if pf, err := spatial.NormalizeFamily(p.Geometry.GeoJSONType()); err != nil || pf != family {
				continue
			}
			if d := hausdorff(projected, toMercator(p.Geometry)); d < distances[i] {
				distances[i] = d
			}
		}
	}
	return distances, nil
}

// HullCoverage clips every polygon with the hull of all vertices and
// scales the clipped area by the hull's share per unit of row area. The
// solidity parameter is not used by the convex approximation, so tilings
// with a concave outline read as gapped.
func (s *Store) HullCoverage(_ context.Context, table string, _ float64) ([]spatial.AreaPair, error) {
	gs, err := s.geometries(table)
	if err != nil {
		return nil, err
	}

	var all []orb.Point
	var total float64
	areas := make([]float64, len(gs))
	for i, g := range gs {
		all = append(all, vertices(g)...)
		areas[i] = area(g)
		total += areas[i]
	}
	hull := convexHull(all)

	var share float64
	if total > 0 {
		share = ringArea(hull) / total
	}

	pairs := make([]spatial.AreaPair, len(gs))
	for i, g := range gs {
		pairs[i] = spatial.AreaPair{RowArea: areas[i], IntersectedArea: clipArea(g, hull) * share}
	}
	return pairs, nil
}
