package source

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/matzehuels/spreadline/pkg/errors"
	"github.com/matzehuels/spreadline/pkg/network"
	"github.com/matzehuels/spreadline/pkg/pipeline"
)

// SQLite loads topology rows from a SQLite database. The mapping names the
// columns of the given table the same way it names CSV columns.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (read-only use is expected) a SQLite database file.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error { return s.db.Close() }

// Topology reads interaction rows from the named table using the column
// mapping. The mapping is validated against the table's actual columns
// before any row is read.
func (s *SQLite) Topology(ctx context.Context, table string, m pipeline.Mapping) ([]network.Interaction, error) {
	header, err := s.columns(ctx, table)
	if err != nil {
		return nil, err
	}
	if err := m.ValidateTopology(header); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %q, %q, %q", m.Source, m.Target, m.Time)
	if m.Weight != "" {
		query += fmt.Sprintf(", %q", m.Weight)
	}
	query += fmt.Sprintf(" FROM %q", table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "query topology")
	}
	defer rows.Close()

	var out []network.Interaction
	for rows.Next() {
		row := network.Interaction{Weight: 1}
		if m.Weight != "" {
			err = rows.Scan(&row.Source, &row.Target, &row.Time, &row.Weight)
		} else {
			err = rows.Scan(&row.Source, &row.Target, &row.Time)
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "scan topology row")
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Categories reads entity classification rows from the named table.
func (s *SQLite) Categories(ctx context.Context, table string, m pipeline.Mapping) (map[string]string, error) {
	header, err := s.columns(ctx, table)
	if err != nil {
		return nil, err
	}
	for field, name := range map[string]string{"entity": m.Entity, "category": m.Category} {
		if name == "" {
			return nil, errors.New(errors.ErrCodeInvalidMapping, "no column mapped for %s", field)
		}
		if !indexable(header, name) {
			return nil, errors.New(errors.ErrCodeMissingColumn,
				"column %q (mapped to %s) not found in table %q", name, field, table)
		}
	}

	query := fmt.Sprintf("SELECT %q, %q FROM %q", m.Entity, m.Category, table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "query categories")
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var entity, category string
		if err := rows.Scan(&entity, &category); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "scan category row")
		}
		out[entity] = category
	}
	return out, rows.Err()
}

// columns lists the named table's column names via the table_info pragma.
func (s *SQLite) columns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "inspect table")
	}
	defer rows.Close()

	var header []string
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "scan table info")
		}
		header = append(header, name)
	}
	if len(header) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "table %q does not exist or has no columns", table)
	}
	return header, rows.Err()
}
