package annotate

import (
	"context"

	"github.com/teranos/metamap/concept"
)

// AttributeKind is the measurement scale of a concept's values.
type AttributeKind string

const (
	KindInterval AttributeKind = "IntervalA"
	KindBoolean  AttributeKind = "BooleanA"
	KindNominal  AttributeKind = "NominalA"
	KindNone     AttributeKind = "" // defer to the base type
)

// InferAttributeKind classifies a bound concept from its observations.
// Numeric concepts are interval-scaled. Otherwise two distinct values make
// a boolean, and fewer distinct values than the nominal ceiling, with at
// least one repeat, make a nominal attribute.
func (s *Service) InferAttributeKind(ctx context.Context, uri string) (AttributeKind, error) {
	c, err := s.store.GetConcept(ctx, uri)
	if err != nil {
		return KindNone, err
	}
	if c.DataType.Family() == concept.FamilyNumeric {
		return KindInterval, nil
	}

	distinct, total, err := s.store.ValueCounts(ctx, uri)
	if err != nil {
		return KindNone, err
	}
	return KindFromCounts(distinct, total, s.cfg.NominalCeiling), nil
}

// KindFromCounts applies the boolean and nominal tests to value counts.
func KindFromCounts(distinct, total, ceiling int) AttributeKind {
	switch {
	case distinct == 2:
		return KindBoolean
	case distinct < ceiling && distinct < total:
		return KindNominal
	default:
		return KindNone
	}
}
