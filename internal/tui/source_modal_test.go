package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/yubzen/sqlchat/internal/datasource"
)

func TestSourceModalDefaultsToLocalFile(t *testing.T) {
	m := NewSourceModal("./csv_to_sql/reviews.db", "")
	m.Open(datasource.Config{})

	assert.False(t, m.Remote)
	assert.Equal(t, datasource.Local("./csv_to_sql/reviews.db"), m.Config())
	view := m.View()
	assert.Contains(t, view, "(•) Use SQLite3 Database - reviews.db")
	assert.Contains(t, view, "( ) Connect to MySQL Database")
	assert.NotContains(t, view, "Password:")
}

func TestSourceModalFocusStaysOnChoiceForLocal(t *testing.T) {
	m := NewSourceModal("reviews.db", datasource.DialectMySQL)
	m.Open(datasource.Config{})
	m.MoveFocus(1)
	assert.Equal(t, 0, m.Focus())
}

func TestSourceModalCollectsRemoteFields(t *testing.T) {
	m := NewSourceModal("reviews.db", datasource.DialectMySQL)
	m.Open(datasource.Config{})
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.True(t, m.Remote)

	values := []string{"db.internal", "analyst", "s3cret", "shop"}
	for _, v := range values {
		m.MoveFocus(1)
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(v)})
	}
	assert.Equal(t, fieldCount, m.Focus())

	assert.Equal(t, datasource.Remote(datasource.DialectMySQL, "db.internal", "analyst", "s3cret", "shop"), m.Config())
	assert.NoError(t, m.Config().Validate())

	view := m.View()
	assert.Contains(t, view, "(•) Connect to MySQL Database")
	assert.False(t, strings.Contains(view, "s3cret"), "password must be masked")
}

func TestSourceModalOpenNeverPrefillsPassword(t *testing.T) {
	m := NewSourceModal("reviews.db", datasource.DialectMySQL)
	m.Open(datasource.Remote(datasource.DialectPostgres, "pg", "u", "pw", "db"))

	cfg := m.Config()
	assert.True(t, m.Remote)
	assert.Equal(t, datasource.DialectPostgres, cfg.Remote.Driver)
	assert.Equal(t, "pg", cfg.Remote.Host)
	assert.Empty(t, cfg.Remote.Password)
	assert.Contains(t, m.View(), "Connect to Postgres Database")
}
