package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"rssreceptor/domain"
)

var (
	ErrUnknownSchema    = errors.New("unknown schema")
	ErrUnknownColumn    = errors.New("unknown column")
	ErrInvalidUniqueKey = errors.New("unique key is not a unique column")
	ErrRowMismatch      = errors.New("row does not match table schema")
)

// Repository executes table, write and query requests against a database.
type Repository struct {
	db      *sql.DB
	dialect Dialect
}

func New(db *sql.DB, dialect Dialect) *Repository {
	return &Repository{db: db, dialect: dialect}
}

// RequireTable creates the table described by the named schema if it is
// absent. The table takes the schema's name when tableName is empty.
func (r *Repository) RequireTable(ctx context.Context, tableName, schemaName string) error {
	schema, ok := domain.LookupSchema(schemaName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSchema, schemaName)
	}
	if tableName != "" {
		schema.Name = tableName
	}
	stmt, err := r.dialect.CreateTable(schema)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", schema.Name, err)
	}
	return nil
}

// InsertIfMissing inserts row unless a row with the same uniqueKey value
// exists. It reports whether a row was inserted.
func (r *Repository) InsertIfMissing(ctx context.Context, table string, row domain.Row, uniqueKey string) (bool, error) {
	schema, err := r.schemaFor(table, row)
	if err != nil {
		return false, err
	}
	col, ok := schema.Column(uniqueKey)
	if !ok || !col.Unique {
		return false, fmt.Errorf("%w: %s.%s", ErrInvalidUniqueKey, table, uniqueKey)
	}
	fields := row.Fields()
	if len(fields) != len(schema.Columns) {
		return false, fmt.Errorf("%w: %s has %d fields, schema %d", ErrRowMismatch, table, len(fields), len(schema.Columns))
	}
	for i, f := range fields {
		if f.Name != schema.Columns[i].Name {
			return false, fmt.Errorf("%w: %s field %q at column %q", ErrRowMismatch, table, f.Name, schema.Columns[i].Name)
		}
	}

	q, args := r.dialect.InsertIfMissing(table, fields, uniqueKey)
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, fmt.Errorf("insert into %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Select returns the rows of table matching where, ordered by ID.
func (r *Repository) Select(ctx context.Context, table string, where domain.Criteria) ([]domain.Record, error) {
	schema, ok := domain.LookupSchema(table)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, table)
	}
	if where.Field != domain.IDColumn {
		if _, ok := schema.Column(where.Field); !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, where.Field)
		}
	}

	rows, err := r.db.QueryContext(ctx, r.dialect.SelectWhere(schema, where.Field), where.Value)
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", table, err)
	}
	defer rows.Close()

	var out []domain.Record
	for rows.Next() {
		vals := make([]any, len(schema.Columns)+1)
		ptrs := make([]any, len(vals))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		id, err := toID(vals[0])
		if err != nil {
			return nil, err
		}
		rec := domain.Record{ID: id, Fields: make(map[string]any, len(schema.Columns))}
		for i, c := range schema.Columns {
			rec.Fields[c.Name] = normalize(vals[i+1])
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repository) schemaFor(table string, row domain.Row) (domain.TableSchema, error) {
	if row == nil {
		return domain.TableSchema{}, fmt.Errorf("%w: nil row for %s", ErrRowMismatch, table)
	}
	if row.TableName() != table {
		return domain.TableSchema{}, fmt.Errorf("%w: %s row sent to %s", ErrRowMismatch, row.TableName(), table)
	}
	schema, ok := domain.LookupSchema(table)
	if !ok {
		return domain.TableSchema{}, fmt.Errorf("%w: %s", ErrUnknownSchema, table)
	}
	return schema, nil
}

func toID(v any) (domain.ID, error) {
	switch id := v.(type) {
	case int64:
		return domain.ID(id), nil
	case int32:
		return domain.ID(id), nil
	case int:
		return domain.ID(id), nil
	case []byte:
		n, err := strconv.ParseInt(string(id), 10, 64)
		return domain.ID(n), err
	case string:
		n, err := strconv.ParseInt(id, 10, 64)
		return domain.ID(n), err
	default:
		return 0, fmt.Errorf("unexpected id type %T", v)
	}
}

func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
