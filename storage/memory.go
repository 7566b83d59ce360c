package storage

import (
	"context"
	"sync"
)

// Memory keeps values in process memory. It is the default backend and is lost
// on restart.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, visitorID, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[visitorID][key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(_ context.Context, visitorID, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.data[visitorID]
	if !ok {
		ns = make(map[string][]byte)
		m.data[visitorID] = ns
	}
	ns[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Delete(_ context.Context, visitorID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.data[visitorID]
	if !ok {
		return nil
	}
	delete(ns, key)
	if len(ns) == 0 {
		delete(m.data, visitorID)
	}
	return nil
}
