// Package dataset infers what a spatial table represents from its
// geometry and attribute statistics alone.
package dataset

import (
	"time"

	"github.com/teranos/metamap/spatial"
)

// Shape is the geometry shape class of a dataset.
type Shape string

const (
	ShapePoint        Shape = "point"
	ShapeLine         Shape = "line"
	ShapeRegion       Shape = "region"
	ShapeTessellation Shape = "tessellation"
	ShapeRaster       Shape = "raster"
)

// Role is the ontological role of a dataset.
type Role string

const (
	RoleObject      Role = "object-dataset"
	RoleLattice     Role = "lattice-dataset"
	RoleCoverage    Role = "coverage-dataset"
	RoleFieldRaster Role = "field-raster-dataset"
	RoleNetwork     Role = "network-dataset"
	RoleEvent       Role = "event-dataset"
	RoleTrack       Role = "track-dataset"
	RoleUnknown     Role = "unknown"
)

// Classification is the memoized result for one table.
type Classification struct {
	Table        string    `json:"table"`
	Shape        Shape     `json:"geometry_shape"`
	Role         Role      `json:"dataset_role"`
	Rule         string    `json:"rule"` // name of the rule that decided
	ClassifiedAt time.Time `json:"classified_at"`
}

// ShapeFor maps a geometry family onto its generic shape class.
func ShapeFor(f spatial.Family) Shape {
	switch f {
	case spatial.FamilyPoint:
		return ShapePoint
	case spatial.FamilyLine:
		return ShapeLine
	default:
		return ShapeRegion
	}
}
