package datasource

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// newReviewsDB writes a small reviews database to a temp dir and returns its path.
func newReviewsDB(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "reviews.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE reviews (
			id INTEGER PRIMARY KEY,
			product TEXT NOT NULL,
			stars INTEGER,
			text TEXT
		);
		INSERT INTO reviews (product, stars, text) VALUES
			('kettle', 5, 'great service and fast delivery'),
			('kettle', 2, 'broke after a week'),
			('toaster', 4, 'friendly service'),
			('toaster', 1, NULL);
		CREATE TABLE products (name TEXT PRIMARY KEY, price REAL);
		INSERT INTO products VALUES ('kettle', 20.5), ('toaster', 31);
	`)
	require.NoError(t, err)
	return path
}
