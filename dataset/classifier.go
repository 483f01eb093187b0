package dataset

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/teranos/metamap/am"
	"github.com/teranos/metamap/errors"
	"github.com/teranos/metamap/logger"
	"github.com/teranos/metamap/source"
	"github.com/teranos/metamap/spatial"
)

// RuleFallback names the generic classification used when no rule fires.
const RuleFallback = "fallback"

// Classifier runs the decision chain and memoizes the result per table.
// Records are never refreshed automatically; call Invalidate after the
// underlying data changes.
type Classifier struct {
	records   *SQLStore
	store     spatial.Store
	inspector source.Inspector
	cfg       am.DatasetConfig
	rules     []Rule
	cache     *gocache.Cache
	logger    *zap.SugaredLogger
}

// NewClassifier creates a classifier with DefaultRules. A positive
// cfg.CacheTTLSeconds keeps records in memory in front of the database.
func NewClassifier(records *SQLStore, store spatial.Store, inspector source.Inspector, cfg am.DatasetConfig, log *zap.SugaredLogger) *Classifier {
	c := &Classifier{
		records:   records,
		store:     store,
		inspector: inspector,
		cfg:       cfg,
		rules:     DefaultRules(),
		logger:    logger.OrNop(log),
	}
	if cfg.CacheTTLSeconds > 0 {
		ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
		c.cache = gocache.New(ttl, 2*ttl)
	}
	return c
}

// WithRules replaces the decision chain.
func (c *Classifier) WithRules(rules []Rule) *Classifier {
	c.rules = rules
	return c
}

// Classify returns the (shape, role) classification of table, evaluating
// the decision chain only if no record exists yet.
func (c *Classifier) Classify(ctx context.Context, table string) (Classification, error) {
	if c.cache != nil {
		if v, ok := c.cache.Get(table); ok {
			return v.(Classification), nil
		}
	}

	if rec, ok, err := c.records.Get(ctx, table); err != nil {
		return Classification{}, err
	} else if ok {
		c.remember(*rec)
		return *rec, nil
	}

	result, err := c.Evaluate(ctx, table)
	if err != nil {
		return Classification{}, err
	}
	if err := c.records.Save(ctx, result); err != nil {
		return Classification{}, err
	}

	// A concurrent caller may have saved first; its record wins.
	rec, ok, err := c.records.Get(ctx, table)
	if err != nil {
		return Classification{}, err
	}
	if !ok {
		return Classification{}, errors.AssertionFailedf("classification of %s vanished after save", table)
	}
	c.remember(*rec)
	return *rec, nil
}

// Evaluate runs the decision chain without reading or writing records.
func (c *Classifier) Evaluate(ctx context.Context, table string) (Classification, error) {
	start := time.Now()

	family, err := c.store.GeometryFamily(ctx, table)
	if err != nil {
		return Classification{}, err
	}

	facts := &Facts{
		ctx:       ctx,
		table:     table,
		family:    family,
		store:     c.store,
		inspector: c.inspector,
		cfg:       c.cfg,
	}

	result := Classification{Table: table, Shape: ShapeFor(family), Role: RoleUnknown, Rule: RuleFallback}
	for _, rule := range c.rules {
		if rule.Guess && !c.cfg.PermitGuessing {
			continue
		}
		ok, err := rule.Match(facts)
		if err != nil {
			return Classification{}, errors.Wrapf(err, "rule %s failed on %s", rule.Name, table)
		}
		if !ok {
			continue
		}

		result.Rule = rule.Name
		result.Role = rule.Role
		if rule.Shape != "" {
			result.Shape = rule.Shape
		}
		break
	}

	c.logger.Infow("Dataset classified",
		logger.FieldTable, table,
		logger.FieldShape, result.Shape,
		logger.FieldRole, result.Role,
		logger.FieldRule, result.Rule,
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	return result, nil
}

// Invalidate clears the record of table so the next Classify evaluates
// the chain again. It reports whether a record existed.
func (c *Classifier) Invalidate(ctx context.Context, table string) (bool, error) {
	if c.cache != nil {
		c.cache.Delete(table)
	}
	return c.records.Delete(ctx, table)
}

// Records lists every memoized classification.
func (c *Classifier) Records(ctx context.Context) ([]Classification, error) {
	return c.records.List(ctx)
}

func (c *Classifier) remember(rec Classification) {
	if c.cache != nil {
		c.cache.Set(rec.Table, rec, gocache.DefaultExpiration)
	}
}
