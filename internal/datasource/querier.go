package datasource

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yubzen/sqlchat/internal/observability"
)

const (
	DefaultMaxRows = 200
	formatMaxRows  = 50
)

// QueryResult holds the rows of one read-only query as display strings.
type QueryResult struct {
	SQL       string
	Columns   []string
	Rows      [][]string
	Count     int
	Truncated bool
	Elapsed   time.Duration
}

// Querier runs read-only SQL against a Handle.
type Querier struct {
	Handle  *Handle
	MaxRows int
}

func NewQuerier(h *Handle) *Querier {
	return &Querier{Handle: h, MaxRows: DefaultMaxRows}
}

func (q *Querier) Query(ctx context.Context, query string) (QueryResult, error) {
	normalized, err := ReadOnly(q.Handle.Dialect(), query)
	if err != nil {
		return QueryResult{SQL: query}, err
	}
	db, err := q.Handle.DB(ctx)
	if err != nil {
		return QueryResult{SQL: normalized}, err
	}

	maxRows := q.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	start := time.Now()
	rows, err := db.QueryContext(ctx, normalized)
	if err != nil {
		return QueryResult{SQL: normalized}, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return QueryResult{SQL: normalized}, fmt.Errorf("read columns: %w", err)
	}

	result := QueryResult{SQL: normalized, Columns: columns}
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if len(result.Rows) >= maxRows {
			result.Truncated = true
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return result, fmt.Errorf("scan row: %w", err)
		}
		row := make([]string, len(columns))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("iterate rows: %w", err)
	}
	result.Count = len(result.Rows)
	result.Elapsed = time.Since(start)
	observability.QueryDuration.WithLabelValues(string(q.Handle.Dialect())).Observe(result.Elapsed.Seconds())
	return result, nil
}

// Explain validates a query by asking the engine for its plan without running it.
func (q *Querier) Explain(ctx context.Context, query string) (QueryResult, error) {
	normalized, err := ReadOnly(q.Handle.Dialect(), query)
	if err != nil {
		return QueryResult{SQL: query}, err
	}
	prefix := "EXPLAIN "
	if q.Handle.Dialect() == DialectSQLite {
		prefix = "EXPLAIN QUERY PLAN "
	}
	if strings.HasPrefix(strings.ToUpper(normalized), "EXPLAIN") {
		prefix = ""
	}
	return q.Query(ctx, prefix+normalized)
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(t)
	case string:
		return t
	case time.Time:
		return t.Format(time.RFC3339)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Format renders the result for the model: a row count, the column names and
// at most 50 rows.
func (r QueryResult) Format() string {
	if len(r.Columns) == 0 {
		return "Query returned no columns."
	}
	if len(r.Rows) == 0 {
		return "Query returned no rows.\nColumns: " + strings.Join(r.Columns, ", ")
	}

	var sb strings.Builder
	label := fmt.Sprintf("%d", r.Count)
	if r.Truncated {
		label = fmt.Sprintf("first %d", r.Count)
	}
	fmt.Fprintf(&sb, "Results (%s rows):\n", label)
	sb.WriteString("Columns: " + strings.Join(r.Columns, ", ") + "\n")
	shown := r.Rows
	if len(shown) > formatMaxRows {
		shown = shown[:formatMaxRows]
	}
	for _, row := range shown {
		sb.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	if len(r.Rows) > formatMaxRows {
		fmt.Fprintf(&sb, "... and %d more rows\n", len(r.Rows)-formatMaxRows)
	}
	return strings.TrimRight(sb.String(), "\n")
}
