package agent

import (
	"strings"

	"github.com/yubzen/sqlchat/internal/datasource"
)

type AnswerKind int

const (
	AnswerText AnswerKind = iota
	AnswerTable
)

func (k AnswerKind) String() string {
	if k == AnswerTable {
		return "table"
	}
	return "text"
}

type Table struct {
	Columns   []string   `yaml:"columns"`
	Rows      [][]string `yaml:"rows"`
	Truncated bool       `yaml:"truncated,omitempty"`
}

// Answer is either plain text or a table with an optional caption in Text.
// Table is nil unless Kind is AnswerTable.
type Answer struct {
	Kind  AnswerKind
	Text  string
	Table *Table
}

func TextAnswer(text string) Answer {
	return Answer{Kind: AnswerText, Text: text}
}

func TableAnswer(caption string, res datasource.QueryResult) Answer {
	t := &Table{
		Columns:   append([]string(nil), res.Columns...),
		Rows:      make([][]string, len(res.Rows)),
		Truncated: res.Truncated,
	}
	for i, row := range res.Rows {
		t.Rows[i] = append([]string(nil), row...)
	}
	return Answer{Kind: AnswerTable, Text: caption, Table: t}
}

// PlainText renders the answer for contexts that cannot draw tables, such as
// conversation history sent back to the model.
func (a Answer) PlainText() string {
	if a.Kind != AnswerTable || a.Table == nil {
		return a.Text
	}
	var sb strings.Builder
	if a.Text != "" {
		sb.WriteString(a.Text + "\n")
	}
	sb.WriteString(strings.Join(a.Table.Columns, " | "))
	for _, row := range a.Table.Rows {
		sb.WriteString("\n" + strings.Join(row, " | "))
	}
	return sb.String()
}
