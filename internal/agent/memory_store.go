package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ContextStore keeps the agent's active memory context, the medium-term
// memory rendered into the preamble, across restarts.
type ContextStore interface {
	ReadContext() string
	WriteContext(content string) error
}

type FileContextStore struct {
	path string
}

// NewFileContextStore creates a store at workspace/memory/CONTEXT.md.
// The memory/ subdirectory is created if it does not exist.
func NewFileContextStore(workspace string) (*FileContextStore, error) {
	dir := filepath.Join(workspace, "memory")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create memory dir: %w", err)
	}
	return &FileContextStore{path: filepath.Join(dir, "CONTEXT.md")}, nil
}

func (s *FileContextStore) Path() string { return s.path }

// ReadContext returns the stored context, or "" if none has been written.
func (s *FileContextStore) ReadContext() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// WriteContext overwrites the stored context. An empty string clears it.
func (s *FileContextStore) WriteContext(content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("clear context: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(s.path, []byte(content+"\n"), 0o644); err != nil {
		return fmt.Errorf("write context: %w", err)
	}
	return nil
}
