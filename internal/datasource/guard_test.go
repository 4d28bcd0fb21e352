package datasource

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadOnlyAcceptsQueries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dialect Dialect
		input   string
		want    string
	}{
		{"select with semicolon", DialectSQLite, "SELECT COUNT(*) FROM reviews;", "SELECT COUNT(*) FROM reviews"},
		{"cte", DialectPostgres, "WITH t AS (SELECT 1) SELECT * FROM t", "WITH t AS (SELECT 1) SELECT * FROM t"},
		{"literal with keywords", DialectSQLite, "SELECT * FROM reviews WHERE text LIKE '%delete; drop into%'", "SELECT * FROM reviews WHERE text LIKE '%delete; drop into%'"},
		{"leading comment", DialectMySQL, "-- count rows\nSELECT 1", "SELECT 1"},
		{"pragma read", DialectSQLite, "PRAGMA table_info(reviews)", "PRAGMA table_info(reviews)"},
		{"show tables", DialectMySQL, "SHOW TABLES", "SHOW TABLES"},
		{"replace function", DialectSQLite, "SELECT REPLACE(text, 'bad', 'good') FROM reviews", "SELECT REPLACE(text, 'bad', 'good') FROM reviews"},
		{"statement word as alias", DialectSQLite, "SELECT COUNT(*) AS copy FROM reviews", "SELECT COUNT(*) AS copy FROM reviews"},
		{"statement words as columns", DialectMySQL, "SELECT load, lock, call FROM usage_stats", "SELECT load, lock, call FROM usage_stats"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadOnly(tt.dialect, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dialect Dialect
		input   string
		want    error
	}{
		{"empty", DialectSQLite, "  ;  ", ErrEmptyQuery},
		{"delete", DialectSQLite, "DELETE FROM reviews", ErrNotReadOnly},
		{"update", DialectMySQL, "update reviews set stars = 5", ErrNotReadOnly},
		{"drop", DialectPostgres, "DROP TABLE reviews", ErrNotReadOnly},
		{"stacked", DialectSQLite, "SELECT 1; DROP TABLE reviews", ErrMultipleStatements},
		{"writable cte", DialectPostgres, "WITH d AS (DELETE FROM reviews RETURNING *) SELECT * FROM d", ErrNotReadOnly},
		{"select into", DialectPostgres, "SELECT * INTO copy FROM reviews", ErrNotReadOnly},
		{"pragma write", DialectSQLite, "PRAGMA journal_mode = WAL", ErrNotReadOnly},
		{"pragma on mysql", DialectMySQL, "PRAGMA table_info(x)", ErrNotReadOnly},
		{"replace statement", DialectMySQL, "REPLACE INTO reviews VALUES (1)", ErrNotReadOnly},
		{"copy statement", DialectPostgres, "COPY reviews TO '/tmp/out'", ErrNotReadOnly},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadOnly(tt.dialect, tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}
