package concept

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/metamap/db"
	"github.com/teranos/metamap/errors"
	"github.com/teranos/metamap/logger"
)

// Query constants
const (
	ConceptInsertQuery = `
		INSERT INTO concepts (uri, name, data_type, verified, narrower)
		VALUES (?, ?, ?, ?, NULLIF(?, ''))
		ON CONFLICT (uri) DO NOTHING`

	ConceptSelectQuery = `
		SELECT uri, name, data_type, verified, COALESCE(narrower, ''), created_at
		FROM concepts`

	BindingInsertQuery = `
		INSERT INTO concept_bindings (table_name, column_name, uri)
		VALUES (?, ?, ?)
		ON CONFLICT (table_name, column_name) DO NOTHING`

	BindingSelectQuery = `
		SELECT uri FROM concept_bindings
		WHERE table_name = ? AND column_name = ?`

	ObservationInsertQuery = `
		INSERT INTO concept_observations (uri, table_name, column_name, value)
		VALUES (?, ?, ?, ?)`

	ObservationColumnsQuery = `
		SELECT DISTINCT column_name FROM concept_observations
		WHERE uri = ?
		ORDER BY column_name`

	ObservationCountsQuery = `
		SELECT COUNT(DISTINCT value), COUNT(*) FROM concept_observations
		WHERE uri = ?`
)

// SQLStore is the Concept Store backed by the metamap SQLite database.
// Concurrency control is left to SQLite; no locks are layered on top.
type SQLStore struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewSQLStore creates a new SQL-based concept store
func NewSQLStore(db *sql.DB, log *zap.SugaredLogger) *SQLStore {
	return &SQLStore{
		db:     db,
		logger: logger.OrNop(log),
	}
}

// CreateConcept inserts c unless a concept with the same URI exists.
// Reports whether a row was created.
func (s *SQLStore) CreateConcept(ctx context.Context, c Concept) (bool, error) {
	if c.URI == "" {
		return false, errors.NewInvalidRequestError("concept URI is empty")
	}
	if c.DataType == "" {
		c.DataType = TypeUnknown
	}

	res, err := s.db.ExecContext(ctx, ConceptInsertQuery, c.URI, c.Name, string(c.DataType), c.Verified, c.Narrower)
	if err != nil {
		return false, errors.Wrapf(err, "failed to insert concept %s", c.URI)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read affected rows")
	}

	if n > 0 {
		s.logger.Infow("Concept created",
			logger.FieldConcept, c.URI,
			logger.FieldBaseType, c.DataType,
			"verified", c.Verified,
		)
	}
	return n > 0, nil
}

// GetConcept returns the concept with the given URI, or an ErrNotFound error.
func (s *SQLStore) GetConcept(ctx context.Context, uri string) (*Concept, error) {
	row := s.db.QueryRowContext(ctx, ConceptSelectQuery+" WHERE uri = ?", uri)

	c, err := scanConcept(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("concept %s", uri)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load concept %s", uri)
	}
	return c, nil
}

// ListConcepts returns every concept ordered by URI.
func (s *SQLStore) ListConcepts(ctx context.Context) ([]Concept, error) {
	rows, err := s.db.QueryContext(ctx, ConceptSelectQuery+" ORDER BY uri")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list concepts")
	}
	defer rows.Close()

	var concepts []Concept
	for rows.Next() {
		c, err := scanConcept(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan concept")
		}
		concepts = append(concepts, *c)
	}
	return concepts, errors.Wrap(rows.Err(), "failed to iterate concepts")
}

// SetVerified sets or clears the curator-confirmed flag.
func (s *SQLStore) SetVerified(ctx context.Context, uri string, verified bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE concepts SET verified = ? WHERE uri = ?`, verified, uri)
	if err != nil {
		return errors.Wrapf(err, "failed to update concept %s", uri)
	}
	return requireAffected(res, uri)
}

// SetNarrower points uri at a more specific concept, or clears the relation
// when narrower is empty. Self references and cycles are rejected.
func (s *SQLStore) SetNarrower(ctx context.Context, uri, narrower string) error {
	if narrower != "" {
		if narrower == uri {
			return errors.NewInvalidRequestError("concept %s cannot be narrower than itself", uri)
		}
		if err := s.checkChain(ctx, uri, narrower); err != nil {
			return err
		}
	}

	res, err := s.db.ExecContext(ctx, `UPDATE concepts SET narrower = NULLIF(?, '') WHERE uri = ?`, narrower, uri)
	if err != nil {
		return errors.Wrapf(err, "failed to update concept %s", uri)
	}
	return requireAffected(res, uri)
}

// checkChain follows the narrower index from start and fails if it leads
// back to uri.
func (s *SQLStore) checkChain(ctx context.Context, uri, start string) error {
	seen := map[string]bool{}
	for cur := start; cur != ""; {
		if cur == uri {
			return errors.NewInvalidRequestError("narrower relation %s -> %s would form a cycle", uri, start)
		}
		if seen[cur] {
			return errors.AssertionFailedf("existing narrower chain from %s is cyclic", start)
		}
		seen[cur] = true

		next, err := s.GetConcept(ctx, cur)
		if err != nil {
			return err
		}
		cur = next.Narrower
	}
	return nil
}

// DeleteConcept removes a concept; bindings and observations cascade.
func (s *SQLStore) DeleteConcept(ctx context.Context, uri string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM concepts WHERE uri = ?`, uri)
	if err != nil {
		return errors.Wrapf(err, "failed to delete concept %s", uri)
	}
	return requireAffected(res, uri)
}

// BoundConcept returns the concept bound to (table, column), if any.
func (s *SQLStore) BoundConcept(ctx context.Context, table, column string) (string, bool, error) {
	var uri string
	err := s.db.QueryRowContext(ctx, BindingSelectQuery, table, column).Scan(&uri)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to look up binding for %s.%s", table, column)
	}
	return uri, true, nil
}

// Bindings lists the bound columns of a table ordered by column name.
func (s *SQLStore) Bindings(ctx context.Context, table string) ([]Binding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT table_name, column_name, uri FROM concept_bindings
		WHERE table_name = ?
		ORDER BY column_name`, table)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list bindings of %s", table)
	}
	defer rows.Close()

	var bindings []Binding
	for rows.Next() {
		var b Binding
		if err := rows.Scan(&b.Table, &b.Column, &b.URI); err != nil {
			return nil, errors.Wrap(err, "failed to scan binding")
		}
		bindings = append(bindings, b)
	}
	return bindings, errors.Wrap(rows.Err(), "failed to iterate bindings")
}

// Bind records (table, column) -> uri and stores values as observations in
// one transaction. If the pair is already bound it is left untouched and
// Bind reports false.
func (s *SQLStore) Bind(ctx context.Context, uri, table, column string, values []string) (bool, error) {
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errors.Wrap(err, "failed to begin bind transaction")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, BindingInsertQuery, table, column, uri)
	if db.IsConstraintViolation(err) {
		return false, errors.NewNotFoundError("concept %s", uri)
	}
	if err != nil {
		return false, errors.Wrapf(err, "failed to bind %s.%s to %s", table, column, uri)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return false, nil
	}

	stmt, err := tx.PrepareContext(ctx, ObservationInsertQuery)
	if err != nil {
		return false, errors.Wrap(err, "failed to prepare observation insert")
	}
	defer stmt.Close()

	for _, v := range values {
		if _, err := stmt.ExecContext(ctx, uri, table, column, v); err != nil {
			return false, errors.Wrapf(err, "failed to insert observation for %s.%s", table, column)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, errors.Wrap(err, "failed to commit bind transaction")
	}

	s.logger.Infow("Column bound to concept",
		logger.FieldConcept, uri,
		logger.FieldTable, table,
		logger.FieldColumn, column,
		logger.FieldCount, len(values),
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	return true, nil
}

// ColumnNames returns the distinct column names observed for a concept.
func (s *SQLStore) ColumnNames(ctx context.Context, uri string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, ObservationColumnsQuery, uri)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list columns of %s", uri)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, errors.Wrap(err, "failed to scan column name")
		}
		columns = append(columns, c)
	}
	return columns, errors.Wrap(rows.Err(), "failed to iterate column names")
}

// ValueCounts returns the number of distinct observed values and the total
// number of observations of a concept.
func (s *SQLStore) ValueCounts(ctx context.Context, uri string) (distinct, total int, err error) {
	err = s.db.QueryRowContext(ctx, ObservationCountsQuery, uri).Scan(&distinct, &total)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "failed to count observations of %s", uri)
	}
	return distinct, total, nil
}

// Samples returns observed values grouped by concept URI for all root
// concepts whose data type is in types, optionally restricted to verified
// concepts. Values keep insertion order.
func (s *SQLStore) Samples(ctx context.Context, types []BaseType, verifiedOnly bool) (map[string][]string, error) {
	samples := make(map[string][]string)
	if len(types) == 0 {
		return samples, nil
	}

	args := make([]interface{}, 0, len(types))
	for _, t := range types {
		args = append(args, string(t))
	}

	query := `
		SELECT o.uri, o.value
		FROM concept_observations o
		JOIN concepts c ON c.uri = o.uri
		WHERE c.narrower IS NULL
		  AND c.data_type IN (` + placeholders(len(types)) + `)`
	if verifiedOnly {
		query += ` AND c.verified = 1`
	}
	query += ` ORDER BY o.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load concept samples")
	}
	defer rows.Close()

	for rows.Next() {
		var uri, value string
		if err := rows.Scan(&uri, &value); err != nil {
			return nil, errors.Wrap(err, "failed to scan sample")
		}
		samples[uri] = append(samples[uri], value)
	}
	return samples, errors.Wrap(rows.Err(), "failed to iterate samples")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConcept(row rowScanner) (*Concept, error) {
	var c Concept
	var dataType string
	if err := row.Scan(&c.URI, &c.Name, &dataType, &c.Verified, &c.Narrower, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.DataType = BaseType(dataType)
	return &c, nil
}

func requireAffected(res sql.Result, uri string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return errors.NewNotFoundError("concept %s", uri)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
