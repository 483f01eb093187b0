// Package annotate matches unlabeled columns to concepts.
//
// A Service owns the rule models derived from the concept store. Models
// are rebuilt wholesale by Refresh or after a column is bound, and swapped
// in under a lock: concurrent rebuilds race benignly and the last one to
// finish wins.
package annotate

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/metamap/am"
	"github.com/teranos/metamap/concept"
	"github.com/teranos/metamap/errors"
	"github.com/teranos/metamap/logger"
	"github.com/teranos/metamap/rules"
	"github.com/teranos/metamap/source"
)

// ConceptStore is the persistence the service needs.
// *concept.SQLStore implements it.
type ConceptStore interface {
	CreateConcept(ctx context.Context, c concept.Concept) (bool, error)
	GetConcept(ctx context.Context, uri string) (*concept.Concept, error)
	ListConcepts(ctx context.Context) ([]concept.Concept, error)
	SetVerified(ctx context.Context, uri string, verified bool) error
	SetNarrower(ctx context.Context, uri, narrower string) error
	DeleteConcept(ctx context.Context, uri string) error
	BoundConcept(ctx context.Context, table, column string) (string, bool, error)
	Bindings(ctx context.Context, table string) ([]concept.Binding, error)
	Bind(ctx context.Context, uri, table, column string, values []string) (bool, error)
	ColumnNames(ctx context.Context, uri string) ([]string, error)
	ValueCounts(ctx context.Context, uri string) (distinct, total int, err error)
	Samples(ctx context.Context, types []concept.BaseType, verifiedOnly bool) (map[string][]string, error)
}

var _ ConceptStore = (*concept.SQLStore)(nil)

// families are rebuilt in this order by Refresh
var families = []concept.RuleFamily{concept.FamilyNumeric, concept.FamilyText, concept.FamilyTemporal}

// Service is the concept matcher and refresh protocol.
type Service struct {
	store  ConceptStore
	source source.Inspector
	cfg    am.AnnotateConfig
	logger *zap.SugaredLogger

	mu     sync.RWMutex
	models map[concept.RuleFamily]rules.Model
}

// New creates a service with untrained models. Call Refresh before
// matching against existing concepts.
func New(store ConceptStore, inspector source.Inspector, cfg am.AnnotateConfig, log *zap.SugaredLogger) *Service {
	return &Service{
		store:  store,
		source: inspector,
		cfg:    cfg,
		logger: logger.OrNop(log),
		models: map[concept.RuleFamily]rules.Model{},
	}
}

// Refresh rebuilds every rule model from the concept store.
func (s *Service) Refresh(ctx context.Context) error {
	for _, family := range families {
		if err := s.RefreshFamily(ctx, family); err != nil {
			return err
		}
	}
	return nil
}

// RefreshType rebuilds the rule model serving base type b.
func (s *Service) RefreshType(ctx context.Context, b concept.BaseType) error {
	return s.RefreshFamily(ctx, b.Family())
}

// RefreshFamily rebuilds one rule model from the root concepts of the
// family's base types.
func (s *Service) RefreshFamily(ctx context.Context, family concept.RuleFamily) error {
	start := time.Now()

	samples, err := s.store.Samples(ctx, family.Types(), s.cfg.TrainVerifiedOnly)
	if err != nil {
		return errors.Wrapf(err, "failed to load %s samples", family)
	}
	model := rules.Build(family, samples, s.options())

	s.mu.Lock()
	s.models[family] = model
	s.mu.Unlock()

	s.logger.Debugw("Rule model rebuilt",
		logger.FieldRule, family,
		logger.FieldCategories, model.Size(),
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	return nil
}

// Model returns the current rule model of a family, or nil before the
// first refresh.
func (s *Service) Model(family concept.RuleFamily) rules.Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.models[family]
}

// Candidates ranks concepts for values of base type b, most confident
// first. Without a model there are no candidates.
func (s *Service) Candidates(b concept.BaseType, values []string) []rules.Candidate {
	model := s.Model(b.Family())
	if model == nil {
		return nil
	}
	return model.Match(values)
}

func (s *Service) options() rules.Options {
	return rules.Options{
		Alpha:                   s.cfg.Alpha,
		MinScore:                s.cfg.MinScore,
		Smoothing:               s.cfg.Smoothing,
		BackgroundMinCategories: s.cfg.BackgroundMinCategories,
	}
}
