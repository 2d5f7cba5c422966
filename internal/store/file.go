package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// FileStore persists keys to a single JSON file and watches it for writes
// made by other processes
type FileStore struct {
	path    string
	watcher *fsnotify.Watcher

	mu        sync.Mutex
	values    map[string]string
	callbacks []func()
}

// NewFileStore opens (or creates) the credential file at path and starts
// watching its directory for external writes
func NewFileStore(path string) (*FileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create credential dir: %w", err)
	}

	s := &FileStore{
		path:   path,
		values: make(map[string]string),
	}
	if err := s.load(); err != nil {
		return nil, err
	}

	// Watch the directory, not the file: editors and atomic writers replace
	// the file, and a watch on the old inode would go silent.
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch credential dir: %w", err)
	}
	s.watcher = watcher
	go s.watch()

	return s, nil
}

// Get returns the value for key and whether it is present
func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key and persists the file
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.persist()
}

// Clear removes key and persists the file
func (s *FileStore) Clear(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.persist()
}

// OnExternalChange registers a callback fired after an external write has
// been folded into the in-memory view
func (s *FileStore) OnExternalChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, fn)
}

// Close stops the file watcher
func (s *FileStore) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// load reads the credential file into memory; a missing file is an empty store
func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read credential file: %w", err)
	}
	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("failed to parse credential file: %w", err)
	}
	s.values = values
	return nil
}

// persist writes the in-memory view to disk. Caller holds s.mu.
func (s *FileStore) persist() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	return nil
}

// watch folds external writes into the in-memory view and fires callbacks.
// A reload that matches the current view (our own write coming back through
// the watcher) fires nothing.
func (s *FileStore) watch() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Name != s.path {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			s.reload()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Credential file watch error")
		}
	}
}

// reload re-reads the file and notifies callbacks if the contents changed
func (s *FileStore) reload() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		// Partial write from the other process; the next event will retry
		return
	}

	s.mu.Lock()
	changed := !maps.Equal(s.values, values)
	if changed {
		s.values = values
	}
	callbacks := s.callbacks
	s.mu.Unlock()

	if !changed {
		return
	}
	log.Debug().Str("path", s.path).Msg("Credential store changed externally")
	for _, fn := range callbacks {
		fn()
	}
}
