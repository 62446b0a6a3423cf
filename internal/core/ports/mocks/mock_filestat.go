package mocks

import (
	"sync"
	"time"
)

// MockFileStat is an in-memory FileStat for testing
type MockFileStat struct {
	mu    sync.RWMutex
	times map[string]time.Time
}

// NewMockFileStat creates an empty mock file stat
func NewMockFileStat() *MockFileStat {
	return &MockFileStat{times: make(map[string]time.Time)}
}

// Touch sets the modification time of path, creating it if needed
func (m *MockFileStat) Touch(path string, t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.times[path] = t
}

// Remove makes path absent
func (m *MockFileStat) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.times, path)
}

func (m *MockFileStat) ModTime(path string) (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.times[path]
	return t, ok
}
