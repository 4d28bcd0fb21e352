package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yubzen/sqlchat/internal/agent"
)

type exportDoc struct {
	ExportedAt time.Time       `yaml:"exported_at"`
	Source     string          `yaml:"source,omitempty"`
	Provider   string          `yaml:"provider,omitempty"`
	Model      string          `yaml:"model,omitempty"`
	Messages   []exportMessage `yaml:"messages"`
}

type exportMessage struct {
	Role  Role         `yaml:"role"`
	Kind  string       `yaml:"kind"`
	Text  string       `yaml:"text,omitempty"`
	Table *agent.Table `yaml:"table,omitempty"`
}

// ExportYAML serializes the transcript.
func (s *Session) ExportYAML() ([]byte, error) {
	doc := exportDoc{
		ExportedAt: time.Now().UTC().Truncate(time.Second),
		Source:     s.Source(),
		Provider:   s.opts.Provider,
		Model:      s.opts.Model,
	}
	for _, m := range s.Messages() {
		doc.Messages = append(doc.Messages, exportMessage{
			Role:  m.Role,
			Kind:  m.Content.Kind.String(),
			Text:  m.Content.Text,
			Table: m.Content.Table,
		})
	}
	return yaml.Marshal(doc)
}

// ExportFile writes the transcript to dir and returns the file path.
func (s *Session) ExportFile(dir string) (string, error) {
	data, err := s.ExportYAML()
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, fmt.Sprintf("sqlchat-%s.yaml", time.Now().Format("20060102-150405")))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}
