package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// maxRuns bounds the history file.
const maxRuns = 200

// RunStore keeps the run history in a JSON file.
type RunStore struct {
	path string
	runs map[string]RunRecord
	mu   sync.RWMutex
}

// NewRunStore opens the history at path. An empty path keeps it in memory.
func NewRunStore(path string) *RunStore {
	s := &RunStore{
		path: path,
		runs: make(map[string]RunRecord),
	}
	s.loadFromDisk()
	return s
}

// List returns runs, newest first.
func (s *RunStore) List() []RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]RunRecord, 0, len(s.runs))
	for _, r := range s.runs {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Started.After(result[j].Started) })
	return result
}

// Get returns a run by ID.
func (s *RunStore) Get(id string) (RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	return r, ok
}

// Add records a finished run, dropping the oldest beyond maxRuns.
func (s *RunStore) Add(r RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		return fmt.Errorf("run has no id")
	}
	if _, exists := s.runs[r.ID]; exists {
		return fmt.Errorf("run %q already recorded", r.ID)
	}
	s.runs[r.ID] = r

	for len(s.runs) > maxRuns {
		oldest := ""
		for id, run := range s.runs {
			if oldest == "" || run.Started.Before(s.runs[oldest].Started) {
				oldest = id
			}
		}
		delete(s.runs, oldest)
	}
	return s.saveToDisk()
}

// loadFromDisk loads the history from disk.
func (s *RunStore) loadFromDisk() {
	if s.path == "" {
		return
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return // File doesn't exist yet, start empty
	}

	var runs map[string]RunRecord
	if err := json.Unmarshal(data, &runs); err != nil || runs == nil {
		return // Invalid JSON or null, start empty
	}
	s.runs = runs
}

// saveToDisk persists the history.
func (s *RunStore) saveToDisk() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.runs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}
