package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(cmds []slashCommand) []string {
	out := make([]string, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.Name)
	}
	return out
}

func TestFilterSlashCommands(t *testing.T) {
	tests := []struct {
		input string
		limit int
		want  []string
	}{
		{"/", 6, []string{"/clear", "/retry", "/schema", "/source", "/key", "/export"}},
		{"clear", 6, []string{}},
		{"", 0, []string{}},
		{"/e", 0, []string{"/export", "/clear", "/retry", "/schema", "/source", "/key", "/help"}},
		{"/e", 2, []string{"/export", "/clear"}},
		{"/SO", 0, []string{"/source"}},
		{"/source extra", 0, []string{"/source"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, names(filterSlashCommands(tt.input, tt.limit)))
		})
	}
}

func TestSlashMenuSelectsFirstMatch(t *testing.T) {
	s := newSlashMenu()
	s.sync("/s")

	c, ok := s.selected()
	require.True(t, ok)
	assert.Equal(t, "/schema", c.Name)
}

func TestSlashMenuHiddenWithoutSlashOrAfterArguments(t *testing.T) {
	s := newSlashMenu()
	for _, input := range []string{"s", "/retry 2"} {
		s.sync(input)
		assert.False(t, s.visible(), input)
		_, ok := s.selected()
		assert.False(t, ok, input)
	}
}

func TestSlashMenuMoveClamps(t *testing.T) {
	s := newSlashMenu()
	assert.False(t, s.move(1), "empty menu ignores movement")

	s.sync("/")
	require.True(t, s.move(1))
	c, _ := s.selected()
	assert.Equal(t, "/retry", c.Name)

	s.move(100)
	c, _ = s.selected()
	assert.Equal(t, "/help", c.Name)

	s.move(-100)
	c, _ = s.selected()
	assert.Equal(t, "/clear", c.Name)
}

func TestSlashMenuKeepsSelectionUntilInputChanges(t *testing.T) {
	s := newSlashMenu()
	s.sync("/")
	s.move(1)

	s.sync("/")
	c, _ := s.selected()
	assert.Equal(t, "/retry", c.Name)

	s.sync("/e")
	c, _ = s.selected()
	assert.Equal(t, "/export", c.Name)
}

func TestSlashMenuHighlightsCursorLine(t *testing.T) {
	s := newSlashMenu()
	s.sync("/sch")

	lines := s.lines(60)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "> /schema")
	assert.Equal(t, 1, s.height(60))
}
