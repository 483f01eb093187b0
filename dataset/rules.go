package dataset

import (
	"context"
	"math"

	"github.com/teranos/metamap/am"
	"github.com/teranos/metamap/source"
	"github.com/teranos/metamap/spatial"
)

// Facts are the observations rules are evaluated on. Expensive facts are
// computed on first use and shared by every later rule.
type Facts struct {
	ctx       context.Context
	table     string
	family    spatial.Family
	store     spatial.Store
	inspector source.Inspector
	cfg       am.DatasetConfig

	temporal *bool
	object   *bool
}

// Family is the base geometry family of the table.
func (f *Facts) Family() spatial.Family {
	return f.family
}

// Temporal reports whether any column has a date or timestamp type.
func (f *Facts) Temporal() (bool, error) {
	if f.temporal == nil {
		columns, err := f.inspector.Columns(f.ctx, f.table)
		if err != nil {
			return false, err
		}
		v := source.HasTemporalColumn(columns)
		f.temporal = &v
	}
	return *f.temporal, nil
}

// Object reports whether enough sampled rows lie close to a known place.
func (f *Facts) Object() (bool, error) {
	if f.object == nil {
		distances, err := f.store.ReferenceDistances(f.ctx, f.table, f.cfg.SampleSize, f.cfg.ReferenceTolerance)
		if err != nil {
			return false, err
		}
		v := MatchedFraction(distances, f.cfg.HausdorffThreshold) >= f.cfg.ObjectFraction && len(distances) > 0
		f.object = &v
	}
	return *f.object, nil
}

// Rule is one step of the decision chain: when Match holds the table is
// classified as (Shape, Role).
type Rule struct {
	Name  string
	Guess bool  // only evaluated when guessing is permitted
	Shape Shape // empty: the generic shape of the table's family
	Role  Role
	Match func(f *Facts) (bool, error)
}

// DefaultRules is the decision chain, evaluated top to bottom; the first
// match wins. Tables matching nothing fall back to their generic shape
// with an unknown role.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "coverage", Shape: ShapeTessellation, Role: RoleCoverage, Match: coverage},
		{Name: "lattice", Shape: ShapeTessellation, Role: RoleLattice, Match: lattice},
		{Name: "object", Role: RoleObject, Match: object},
		{Name: "event", Guess: true, Shape: ShapePoint, Role: RoleEvent, Match: temporalOf(spatial.FamilyPoint)},
		{Name: "track", Guess: true, Shape: ShapeLine, Role: RoleTrack, Match: temporalOf(spatial.FamilyLine)},
		{Name: "network", Guess: true, Shape: ShapeLine, Role: RoleNetwork, Match: familyIs(spatial.FamilyLine)},
	}
}

// coverage holds for polygon tables whose bounding boxes all have the
// average width and height.
func coverage(f *Facts) (bool, error) {
	if f.family != spatial.FamilyPolygon {
		return false, nil
	}
	extents, err := f.store.Extents(f.ctx, f.table)
	if err != nil {
		return false, err
	}
	return UniformExtents(extents, f.cfg.CoverageTolerance), nil
}

// lattice holds for object polygon tables whose rows are fully covered by
// the concave hull of their union.
func lattice(f *Facts) (bool, error) {
	if f.family != spatial.FamilyPolygon {
		return false, nil
	}
	if ok, err := f.Object(); err != nil || !ok {
		return false, err
	}
	pairs, err := f.store.HullCoverage(f.ctx, f.table, f.cfg.HullSolidity)
	if err != nil {
		return false, err
	}
	return Tiled(pairs, f.cfg.LatticeTolerance), nil
}

func object(f *Facts) (bool, error) {
	return f.Object()
}

func temporalOf(family spatial.Family) func(*Facts) (bool, error) {
	return func(f *Facts) (bool, error) {
		if f.family != family {
			return false, nil
		}
		return f.Temporal()
	}
}

func familyIs(family spatial.Family) func(*Facts) (bool, error) {
	return func(f *Facts) (bool, error) {
		return f.family == family, nil
	}
}

// UniformExtents reports whether every width and height is within
// tolerance of the respective average.
func UniformExtents(extents []spatial.Extent, tolerance float64) bool {
	if len(extents) == 0 {
		return false
	}
	var w, h float64
	for _, e := range extents {
		w += e.Width
		h += e.Height
	}
	w /= float64(len(extents))
	h /= float64(len(extents))

	for _, e := range extents {
		if math.Abs(e.Width-w) > tolerance || math.Abs(e.Height-h) > tolerance {
			return false
		}
	}
	return true
}

// MatchedFraction is the share of distances below threshold.
func MatchedFraction(distances []float64, threshold float64) float64 {
	if len(distances) == 0 {
		return 0
	}
	matched := 0
	for _, d := range distances {
		if d < threshold {
			matched++
		}
	}
	return float64(matched) / float64(len(distances))
}

// Tiled reports whether every row area divided by its intersected hull
// area is within tolerance of 1.
func Tiled(pairs []spatial.AreaPair, tolerance float64) bool {
	if len(pairs) == 0 {
		return false
	}
	for _, p := range pairs {
		if p.IntersectedArea <= 0 || math.Abs(p.RowArea/p.IntersectedArea-1) > tolerance {
			return false
		}
	}
	return true
}
