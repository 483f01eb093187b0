package dataset

import (
	"context"
	"database/sql"

	"github.com/teranos/metamap/errors"
)

// SQLStore persists classification records in the dataset_types table.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a record store on the metamap database.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const recordSelectQuery = `
	SELECT table_name, geometry_shape, dataset_role, rule, classified_at
	FROM dataset_types`

// Get returns the record of table, if any.
func (s *SQLStore) Get(ctx context.Context, table string) (*Classification, bool, error) {
	row := s.db.QueryRowContext(ctx, recordSelectQuery+" WHERE table_name = ?", table)

	c, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to load classification of %s", table)
	}
	return c, true, nil
}

// Save stores c unless table already has a record; the first record wins.
func (s *SQLStore) Save(ctx context.Context, c Classification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dataset_types (table_name, geometry_shape, dataset_role, rule)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (table_name) DO NOTHING`,
		c.Table, string(c.Shape), string(c.Role), c.Rule)
	return errors.Wrapf(err, "failed to save classification of %s", c.Table)
}

// Delete removes the record of table and reports whether one existed.
func (s *SQLStore) Delete(ctx context.Context, table string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM dataset_types WHERE table_name = ?`, table)
	if err != nil {
		return false, errors.Wrapf(err, "failed to delete classification of %s", table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read affected rows")
	}
	return n > 0, nil
}

// List returns every record ordered by table name.
func (s *SQLStore) List(ctx context.Context) ([]Classification, error) {
	rows, err := s.db.QueryContext(ctx, recordSelectQuery+" ORDER BY table_name")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list classifications")
	}
	defer rows.Close()

	var records []Classification
	for rows.Next() {
		c, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan classification")
		}
		records = append(records, *c)
	}
	return records, errors.Wrap(rows.Err(), "failed to iterate classifications")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*Classification, error) {
	var c Classification
	var shape, role string
	if err := row.Scan(&c.Table, &shape, &role, &c.Rule, &c.ClassifiedAt); err != nil {
		return nil, err
	}
	c.Shape, c.Role = Shape(shape), Role(role)
	return &c, nil
}
