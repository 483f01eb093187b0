package annotate

import (
	"context"
	"strings"

	"github.com/teranos/metamap/concept"
	"github.com/teranos/metamap/errors"
)

// GenerateConcept is the curator path: it creates the concept named name
// if needed, marks it verified when asked, and binds table.column to it.
// Empty arguments fail with errors.ErrAmbiguousInput.
func (s *Service) GenerateConcept(ctx context.Context, table, column, name string, verified bool) (string, error) {
	if strings.TrimSpace(table) == "" || strings.TrimSpace(column) == "" || strings.TrimSpace(name) == "" {
		return "", errors.NewAmbiguousInputError("table, column and concept name are required (got %q, %q, %q)", table, column, name)
	}

	baseType, err := s.source.ColumnBaseType(ctx, table, column)
	if err != nil {
		return "", err
	}

	uri := concept.URIFor(s.cfg.BaseURI, name)
	created, err := s.store.CreateConcept(ctx, concept.Concept{
		URI:      uri,
		Name:     strings.TrimSpace(name),
		DataType: baseType,
		Verified: verified,
	})
	if err != nil {
		return "", err
	}
	if !created && verified {
		if err := s.SetVerified(ctx, uri, true); err != nil {
			return "", err
		}
	}

	// Observations feed the model of the concept's own type, which may
	// differ from the column's when the concept already existed.
	c, err := s.store.GetConcept(ctx, uri)
	if err != nil {
		return "", err
	}
	if err := s.BindColumnToConcept(ctx, uri, c.DataType, table, column); err != nil {
		return "", err
	}
	return uri, nil
}

// BindColumnToConcept copies the current values of table.column into
// observations of uri and rebuilds the rule model for baseType. It is a
// no-op when the column is already bound.
func (s *Service) BindColumnToConcept(ctx context.Context, uri string, baseType concept.BaseType, table, column string) error {
	if _, ok, err := s.store.BoundConcept(ctx, table, column); err != nil || ok {
		return err
	}

	values, err := s.source.ColumnValues(ctx, table, column)
	if err != nil {
		return err
	}
	_, err = s.bind(ctx, uri, baseType, table, column, values)
	return err
}

func (s *Service) bind(ctx context.Context, uri string, baseType concept.BaseType, table, column string, values []string) (bool, error) {
	bound, err := s.store.Bind(ctx, uri, table, column, values)
	if err != nil || !bound {
		return false, err
	}
	return true, s.RefreshType(ctx, baseType)
}

// ColumnBindings lists the bound columns of table.
func (s *Service) ColumnBindings(ctx context.Context, table string) ([]concept.Binding, error) {
	return s.store.Bindings(ctx, table)
}

// SetVerified sets the verified flag and rebuilds the concept's model.
func (s *Service) SetVerified(ctx context.Context, uri string, verified bool) error {
	if err := s.store.SetVerified(ctx, uri, verified); err != nil {
		return err
	}
	return s.refreshConcept(ctx, uri)
}

// SetNarrower points uri at a more specific concept, or clears the
// relation when narrower is empty. Only root concepts train the models,
// so the concept's model is rebuilt.
func (s *Service) SetNarrower(ctx context.Context, uri, narrower string) error {
	if err := s.store.SetNarrower(ctx, uri, narrower); err != nil {
		return err
	}
	return s.refreshConcept(ctx, uri)
}

// DeleteConcept removes a concept with its bindings and observations.
func (s *Service) DeleteConcept(ctx context.Context, uri string) error {
	c, err := s.store.GetConcept(ctx, uri)
	if err != nil {
		return err
	}
	if err := s.store.DeleteConcept(ctx, uri); err != nil {
		return err
	}
	return s.RefreshType(ctx, c.DataType)
}

func (s *Service) refreshConcept(ctx context.Context, uri string) error {
	c, err := s.store.GetConcept(ctx, uri)
	if err != nil {
		return err
	}
	return s.RefreshType(ctx, c.DataType)
}
