package datasource

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrTableNotFound = errors.New("table not found")

type Column struct {
	Name string
	Type string
}

type Table struct {
	Name    string
	Columns []Column
}

func (t Table) ColumnNames() []string {
	out := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		out = append(out, c.Name)
	}
	return out
}

// Schema introspects tables and columns through a Handle.
type Schema struct {
	Handle *Handle
}

func NewSchema(h *Handle) *Schema {
	return &Schema{Handle: h}
}

func (s *Schema) ListTables(ctx context.Context) ([]string, error) {
	var query string
	switch s.Handle.Dialect() {
	case DialectMySQL:
		query = `SELECT table_name FROM information_schema.tables
			WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
			ORDER BY table_name`
	case DialectPostgres:
		query = `SELECT table_name FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
			ORDER BY table_name`
	default:
		query = `SELECT name FROM sqlite_master
			WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
			ORDER BY name`
	}

	db, err := s.Handle.DB(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (s *Schema) DescribeTable(ctx context.Context, name string) (Table, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Table{}, fmt.Errorf("%w: empty name", ErrTableNotFound)
	}
	d := s.Handle.Dialect()
	var query string
	switch d {
	case DialectMySQL:
		query = `SELECT column_name, column_type FROM information_schema.columns
			WHERE table_schema = DATABASE() AND table_name = ?
			ORDER BY ordinal_position`
	case DialectPostgres:
		query = `SELECT column_name, data_type FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1
			ORDER BY ordinal_position`
	default:
		query = `SELECT name, type FROM pragma_table_info(?) ORDER BY cid`
	}

	db, err := s.Handle.DB(ctx)
	if err != nil {
		return Table{}, err
	}
	rows, err := db.QueryContext(ctx, query, name)
	if err != nil {
		return Table{}, fmt.Errorf("describe %s: %w", name, err)
	}
	defer rows.Close()

	table := Table{Name: name}
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return Table{}, fmt.Errorf("scan column: %w", err)
		}
		table.Columns = append(table.Columns, c)
	}
	if err := rows.Err(); err != nil {
		return Table{}, err
	}
	if len(table.Columns) == 0 {
		return Table{}, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return table, nil
}

// FetchSchema describes every table.
func (s *Schema) FetchSchema(ctx context.Context) ([]Table, error) {
	names, err := s.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	tables := make([]Table, 0, len(names))
	for _, name := range names {
		t, err := s.DescribeTable(ctx, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// SampleRows returns up to n rows of a known table.
func (s *Schema) SampleRows(ctx context.Context, table string, n int) (QueryResult, error) {
	names, err := s.ListTables(ctx)
	if err != nil {
		return QueryResult{}, err
	}
	found := false
	for _, candidate := range names {
		if candidate == table {
			found = true
			break
		}
	}
	if !found {
		return QueryResult{}, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	if n <= 0 {
		n = 3
	}
	q := &Querier{Handle: s.Handle, MaxRows: n}
	return q.Query(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", s.Handle.Dialect().QuoteIdent(table), n))
}

// PrimaryColumns returns the column names to show the user for the primary
// table. A configured static list wins over introspection.
func (s *Schema) PrimaryColumns(ctx context.Context, table string, static []string) ([]string, error) {
	if len(static) > 0 {
		return append([]string(nil), static...), nil
	}
	t, err := s.DescribeTable(ctx, table)
	if err != nil {
		return nil, err
	}
	return t.ColumnNames(), nil
}

// FormatSchema renders tables as an indented outline for prompts and the CLI.
func FormatSchema(tables []Table) string {
	var sb strings.Builder
	for i, t := range tables {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(t.Name + ":\n")
		for _, c := range t.Columns {
			typ := strings.TrimSpace(c.Type)
			if typ == "" {
				typ = "untyped"
			}
			fmt.Fprintf(&sb, "  - %s (%s)\n", c.Name, typ)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
