// Package spatial abstracts the geometry facilities the dataset classifier
// needs from a spatial data store.
package spatial

import (
	"context"
	"strings"

	"github.com/teranos/metamap/errors"
)

// Family is the base geometry family of a table, with multi-geometries
// folded into their singular counterpart.
type Family string

const (
	FamilyPoint   Family = "point"
	FamilyLine    Family = "line"
	FamilyPolygon Family = "polygon"
)

// Extent is the bounding-box size of one row's geometry.
type Extent struct {
	Width  float64
	Height float64
}

// AreaPair holds a row's area and its piece of the concave hull of the
// whole table: the row's intersection with the hull, scaled by the hull
// area over the summed row areas. Gaps between rows and overlapping rows
// both push the ratio of the two away from 1.
type AreaPair struct {
	RowArea         float64
	IntersectedArea float64
}

// Store answers geometry questions about one table at a time. Unknown
// tables fail with errors.ErrSchemaNotFound.
type Store interface {
	// GeometryFamily inspects one non-null geometry of table.
	GeometryFamily(ctx context.Context, table string) (Family, error)

	// Extents returns the bounding-box size of every non-null geometry.
	Extents(ctx context.Context, table string) ([]Extent, error)

	// ReferenceDistances samples up to sampleSize rows and returns, per
	// row, the smallest projected Hausdorff distance to a reference place
	// of the same family whose bounding box, padded by tolerance, overlaps
	// the row's. Rows without such a place get +Inf.
	ReferenceDistances(ctx context.Context, table string, sampleSize int, tolerance float64) ([]float64, error)

	// HullCoverage builds the concave hull of the union of all rows and
	// returns each row's area next to the area of its intersection with
	// that hull.
	HullCoverage(ctx context.Context, table string, solidity float64) ([]AreaPair, error)
}

// NormalizeFamily maps a geometry type name as reported by PostGIS
// (POINT, ST_MultiPolygon) or GeoJSON (LineString) onto a Family.
func NormalizeFamily(geometryType string) (Family, error) {
	t := strings.ToUpper(strings.TrimSpace(geometryType))
	t = strings.TrimPrefix(t, "ST_")
	t = strings.TrimPrefix(t, "MULTI")
	t = strings.TrimSuffix(t, "M")
	t = strings.TrimSuffix(t, "Z")

	switch t {
	case "POINT":
		return FamilyPoint, nil
	case "LINESTRING", "LINE", "CIRCULARSTRING", "COMPOUNDCURVE", "CURVE":
		return FamilyLine, nil
	case "POLYGON", "SURFACE", "CURVEPOLYGON":
		return FamilyPolygon, nil
	default:
		return "", errors.NewInvalidRequestError("unsupported geometry type %q", geometryType)
	}
}
