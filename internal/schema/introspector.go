package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/observability"
)

// ErrNotFound reports a schema lookup for a table the catalog does not know.
var ErrNotFound = errors.New("table not found")

const (
	listTablesQuery = `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
ORDER BY table_name`

	listColumnsQuery = `
SELECT column_name, data_type
FROM information_schema.columns
WHERE table_schema = 'public' AND table_name = $1
ORDER BY ordinal_position`
)

// Introspector reads table metadata from information_schema through the
// shared cache.
type Introspector struct {
	db    *sql.DB
	cache *Cache
}

func NewIntrospector(db *sql.DB, cache *Cache) *Introspector {
	return &Introspector{db: db, cache: cache}
}

func (i *Introspector) ListTables(ctx context.Context) ([]string, error) {
	if tables, ok := i.cache.Tables(); ok {
		observability.ObserveSchemaCacheLookup(true)
		return tables, nil
	}
	observability.ObserveSchemaCacheLookup(false)

	rows, err := i.db.QueryContext(ctx, listTablesQuery)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tables := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table rows: %w", err)
	}

	i.cache.SetTables(tables)
	return tables, nil
}

// TableSchema renders one line per column, in catalog order. The rendered
// text is what gets embedded in generation prompts, so it stays deterministic.
func (i *Introspector) TableSchema(ctx context.Context, table string) (string, error) {
	if schemaText, ok := i.cache.Schema(table); ok {
		observability.ObserveSchemaCacheLookup(true)
		return schemaText, nil
	}
	observability.ObserveSchemaCacheLookup(false)

	rows, err := i.db.QueryContext(ctx, listColumnsQuery, table)
	if err != nil {
		return "", fmt.Errorf("describe table %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	lines := make([]string, 0)
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return "", fmt.Errorf("scan column row: %w", err)
		}
		lines = append(lines, fmt.Sprintf("- `%s`: %s", name, dataType))
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate column rows: %w", err)
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, table)
	}

	schemaText := fmt.Sprintf("Schema for `%s`:\n%s", table, strings.Join(lines, "\n"))
	i.cache.SetSchema(table, schemaText)
	return schemaText, nil
}

// AllSchemas lists every table and fetches each schema sequentially. A
// failure on any table aborts the aggregate; partial maps are never returned.
func (i *Introspector) AllSchemas(ctx context.Context) (map[string]string, error) {
	tables, err := i.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	schemas := make(map[string]string, len(tables))
	for _, table := range tables {
		schemaText, err := i.TableSchema(ctx, table)
		if err != nil {
			return nil, err
		}
		schemas[table] = schemaText
	}
	return schemas, nil
}
