package annotate

import (
	"context"
	"time"

	"github.com/teranos/metamap/concept"
	"github.com/teranos/metamap/errors"
	"github.com/teranos/metamap/logger"
	"github.com/teranos/metamap/rules"
)

// SuggestConcept returns the concept for table.column, binding the column
// to it. An already bound column returns its concept unchanged.
//
// Candidates come from the rule model of the column's base type. With
// compareHeaders only candidates previously observed under an equivalent
// column name are kept. When nothing matches and autogenerate is set a
// new unverified concept is minted; otherwise the result is empty and
// nothing is bound.
//
// An unknown table or column fails with errors.ErrSchemaNotFound.
func (s *Service) SuggestConcept(ctx context.Context, table, column string, compareHeaders, autogenerate bool) (string, error) {
	start := time.Now()

	uri, ok, err := s.store.BoundConcept(ctx, table, column)
	if err != nil {
		return "", err
	}
	if ok {
		return uri, nil
	}

	baseType, err := s.source.ColumnBaseType(ctx, table, column)
	if err != nil {
		return "", err
	}
	values, err := s.source.ColumnValues(ctx, table, column)
	if err != nil {
		return "", err
	}

	candidates := rules.URIs(s.Candidates(baseType, values))
	if compareHeaders {
		candidates, err = s.filterHeaders(ctx, column, candidates)
		if err != nil {
			return "", err
		}
	}

	minted := false
	if len(candidates) > 0 {
		uri = candidates[0]
	} else if autogenerate {
		minted = true
		uri, err = s.mint(ctx, column, baseType)
		if err != nil {
			return "", err
		}
	}

	if uri == "" {
		s.logger.Infow("No concept matched",
			logger.FieldTable, table,
			logger.FieldColumn, column,
			logger.FieldBaseType, baseType,
		)
		return "", nil
	}

	bound, err := s.bind(ctx, uri, baseType, table, column, values)
	if err != nil {
		return "", err
	}
	if !bound {
		return s.lostBind(ctx, table, column, uri, minted)
	}

	s.logger.Infow("Concept suggested",
		logger.FieldTable, table,
		logger.FieldColumn, column,
		logger.FieldConcept, uri,
		logger.FieldCandidates, len(candidates),
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	return uri, nil
}

// lostBind handles a concurrent caller binding table.column first: the
// winner's concept is returned and a concept minted for the attempt is
// removed again.
func (s *Service) lostBind(ctx context.Context, table, column, uri string, minted bool) (string, error) {
	if minted {
		if err := s.store.DeleteConcept(ctx, uri); err != nil {
			return "", errors.Wrapf(err, "failed to remove unused concept %s", uri)
		}
	}

	winner, ok, err := s.store.BoundConcept(ctx, table, column)
	if err != nil {
		return "", err
	}
	s.logger.Infow("Column bound concurrently",
		logger.FieldTable, table,
		logger.FieldColumn, column,
		logger.FieldConcept, winner,
	)
	if !ok {
		return "", nil
	}
	return winner, nil
}

// filterHeaders keeps candidates with at least one observation under a
// column name equivalent to column.
func (s *Service) filterHeaders(ctx context.Context, column string, candidates []string) ([]string, error) {
	var kept []string
	for _, uri := range candidates {
		names, err := s.store.ColumnNames(ctx, uri)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			if rules.HeaderEquivalent(column, name) {
				kept = append(kept, uri)
				break
			}
		}
	}
	return kept, nil
}

// mint creates an unverified concept with a random URI.
func (s *Service) mint(ctx context.Context, column string, baseType concept.BaseType) (string, error) {
	c := concept.Concept{
		URI:      concept.NewAutoURI(s.cfg.BaseURI),
		Name:     column,
		DataType: baseType,
	}
	if _, err := s.store.CreateConcept(ctx, c); err != nil {
		return "", errors.Wrap(err, "failed to mint concept")
	}
	return c.URI, nil
}

// AnnotateTable suggests a concept for every column of table except those
// named in skip, typically the geometry column. The result maps column
// names to concept URIs and omits columns without a match.
func (s *Service) AnnotateTable(ctx context.Context, table string, compareHeaders, autogenerate bool, skip ...string) (map[string]string, error) {
	columns, err := s.source.Columns(ctx, table)
	if err != nil {
		return nil, err
	}

	skipped := make(map[string]bool, len(skip))
	for _, name := range skip {
		skipped[name] = true
	}

	result := make(map[string]string)
	for _, c := range columns {
		if skipped[c.Name] {
			continue
		}
		uri, err := s.SuggestConcept(ctx, table, c.Name, compareHeaders, autogenerate)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to annotate %s.%s", table, c.Name)
		}
		if uri != "" {
			result[c.Name] = uri
		}
	}
	return result, nil
}
