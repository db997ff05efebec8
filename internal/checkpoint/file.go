package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"desk-updater/internal/core"
)

// FileStore persists values to a small YAML file. Writes happen on every Set
// so a process restart recovers the last recorded state exactly.
type FileStore struct {
	mu       sync.Mutex
	filePath string
	values   map[string]int64
}

// OpenFileStore loads (or initializes) a file-backed store at filePath.
func OpenFileStore(filePath string) (*FileStore, error) {
	s := &FileStore{
		filePath: filePath,
		values:   make(map[string]int64),
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			core.Log.Debugf("Checkpoint", "State file %s not found, starting empty", filePath)
			return s, nil
		}
		return nil, fmt.Errorf("read state file %s: %w", filePath, err)
	}

	if err := yaml.Unmarshal(data, &s.values); err != nil {
		// A corrupt state file is not fatal: updates still work, only the
		// last-check timestamp is lost.
		core.Log.Warnf("Checkpoint", "State file %s is corrupt, resetting: %v", filePath, err)
		s.values = make(map[string]int64)
	}
	if s.values == nil {
		s.values = make(map[string]int64)
	}

	return s, nil
}

// Get returns the stored value or def.
func (s *FileStore) Get(key string, def int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

// Set records value under key and writes the file.
func (s *FileStore) Set(key string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value

	data, err := yaml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(s.filePath, data, 0600); err != nil {
		return fmt.Errorf("write state file %s: %w", s.filePath, err)
	}
	return nil
}
