package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// MemoryProvider keeps one Memory per owner for the lifetime of the process.
type MemoryProvider struct {
	mu     sync.Mutex
	scopes map[string]*Memory
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{scopes: make(map[string]*Memory)}
}

func (p *MemoryProvider) Scope(owner string) Storage {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.scopes[owner]
	if !ok {
		s = NewMemory()
		p.scopes[owner] = s
	}
	return s
}
