package datasource

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrEmptyQuery         = errors.New("query is empty")
	ErrMultipleStatements = errors.New("only one statement per query is allowed")
	ErrNotReadOnly        = errors.New("only read-only queries are allowed")
)

var (
	lineComment  = regexp.MustCompile(`--[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	// Statement keywords such as DROP or COPY only act when they lead, which
	// readOnlyLeaders covers. These can carry a write inside a SELECT or WITH.
	writeKeyword = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|MERGE|INTO)\b`)
)

var readOnlyLeaders = map[string]bool{
	"SELECT":   true,
	"WITH":     true,
	"EXPLAIN":  true,
	"SHOW":     true,
	"DESCRIBE": true,
	"DESC":     true,
	"VALUES":   true,
	"PRAGMA":   true,
}

// ReadOnly normalizes a query (comments and trailing semicolons removed) and
// rejects anything that is not a single read-only statement. String literals
// and quoted identifiers are ignored when looking for write keywords.
func ReadOnly(dialect Dialect, query string) (string, error) {
	q := blockComment.ReplaceAllString(query, " ")
	q = lineComment.ReplaceAllString(q, " ")
	q = strings.TrimSpace(q)
	for strings.HasSuffix(q, ";") {
		q = strings.TrimSpace(strings.TrimSuffix(q, ";"))
	}
	if q == "" {
		return "", ErrEmptyQuery
	}

	bare := blankQuoted(q)
	if strings.Contains(bare, ";") {
		return "", ErrMultipleStatements
	}

	fields := strings.Fields(bare)
	leader := strings.ToUpper(strings.TrimLeft(fields[0], "("))
	if !readOnlyLeaders[leader] {
		return "", fmt.Errorf("%w: %s statements are not permitted", ErrNotReadOnly, leader)
	}
	if leader == "PRAGMA" && (dialect != DialectSQLite || strings.Contains(bare, "=")) {
		return "", fmt.Errorf("%w: PRAGMA assignments are not permitted", ErrNotReadOnly)
	}
	if m := writeKeyword.FindString(bare); m != "" {
		return "", fmt.Errorf("%w: %s is not permitted", ErrNotReadOnly, strings.ToUpper(m))
	}
	return q, nil
}

// blankQuoted replaces the contents of '...', "..." and `...` sections with
// spaces so keyword checks only see SQL structure.
func blankQuoted(q string) string {
	out := []rune(q)
	var quote rune
	for i, r := range out {
		switch {
		case quote == 0 && (r == '\'' || r == '"' || r == '`'):
			quote = r
		case quote != 0 && r == quote:
			quote = 0
		case quote != 0:
			out[i] = ' '
		}
	}
	return string(out)
}
