package storage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"rssreceptor/domain"
)

// Dialect captures the SQL differences between supported engines.
type Dialect struct {
	Name     string
	idColumn string
	types    map[domain.ColumnType]string
	numbered bool
}

var (
	Postgres = Dialect{
		Name:     "postgres",
		idColumn: "BIGSERIAL PRIMARY KEY",
		types: map[domain.ColumnType]string{
			domain.ColumnText:      "TEXT",
			domain.ColumnInteger:   "BIGINT",
			domain.ColumnTimestamp: "TIMESTAMPTZ",
		},
		numbered: true,
	}
	SQLite = Dialect{
		Name:     "sqlite",
		idColumn: "INTEGER PRIMARY KEY AUTOINCREMENT",
		types: map[domain.ColumnType]string{
			domain.ColumnText:      "TEXT",
			domain.ColumnInteger:   "INTEGER",
			domain.ColumnTimestamp: "TIMESTAMP",
		},
	}
)

// Placeholder returns the bind parameter for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func quote(name string) string { return pq.QuoteIdentifier(name) }

// CreateTable renders CREATE TABLE IF NOT EXISTS for schema.
func (d Dialect) CreateTable(schema domain.TableSchema) (string, error) {
	defs := make([]string, 0, len(schema.Columns)+1)
	defs = append(defs, quote(domain.IDColumn)+" "+d.idColumn)
	for _, c := range schema.Columns {
		typ, ok := d.types[c.Type]
		if !ok {
			return "", fmt.Errorf("column %s.%s: unsupported type %d", schema.Name, c.Name, c.Type)
		}
		def := quote(c.Name) + " " + typ + " NOT NULL"
		if c.Unique {
			def += " UNIQUE"
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)", quote(schema.Name), strings.Join(defs, ",\n    ")), nil
}

// InsertIfMissing renders an insert that does nothing when uniqueKey collides.
func (d Dialect) InsertIfMissing(table string, fields []domain.Field, uniqueKey string) (string, []any) {
	cols := make([]string, len(fields))
	marks := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, f := range fields {
		cols[i] = quote(f.Name)
		marks[i] = d.Placeholder(i + 1)
		args[i] = f.Value
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		quote(table), strings.Join(cols, ", "), strings.Join(marks, ", "), quote(uniqueKey))
	return q, args
}

// SelectWhere renders a select of every column filtered by equality on field.
func (d Dialect) SelectWhere(schema domain.TableSchema, field string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s ORDER BY %s",
		columnList(schema), quote(schema.Name), quote(field), d.Placeholder(1), quote(domain.IDColumn))
}

func columnList(schema domain.TableSchema) string {
	cols := make([]string, 0, len(schema.Columns)+1)
	cols = append(cols, quote(domain.IDColumn))
	for _, c := range schema.Columns {
		cols = append(cols, quote(c.Name))
	}
	return strings.Join(cols, ", ")
}
