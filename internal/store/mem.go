package store

import "sync"

// MemStore is an in-memory Store for tests
type MemStore struct {
	mu        sync.Mutex
	values    map[string]string
	callbacks []func()
}

// NewMemStore creates an empty in-memory store
func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]string)}
}

// Get returns the value for key and whether it is present
func (s *MemStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key
func (s *MemStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Clear removes key
func (s *MemStore) Clear(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// OnExternalChange registers a callback for FireExternalChange
func (s *MemStore) OnExternalChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, fn)
}

// FireExternalChange invokes registered callbacks, simulating a write from
// another process
func (s *MemStore) FireExternalChange() {
	s.mu.Lock()
	callbacks := s.callbacks
	s.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
}
