package store

import (
	"context"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Store used for tests and dry runs. It can be
// primed with errors to exercise failure paths.
type Memory struct {
	mu       sync.Mutex
	entities map[Kind][]*Entity
	err      error
	saves    int
	creates  int
}

func NewMemory() *Memory {
	return &Memory{entities: make(map[Kind][]*Entity)}
}

// WithError makes every subsequent call fail with err.
func (m *Memory) WithError(err error) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Count reports how many entities of the kind exist.
func (m *Memory) Count(kind Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entities[kind])
}

// All returns the stored entities of one kind.
func (m *Memory) All(kind Kind) []*Entity {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Entity, len(m.entities[kind]))
	copy(out, m.entities[kind])
	return out
}

// Saves reports how many Save calls were made.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Creates reports how many Create calls were made.
func (m *Memory) Creates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates
}

func (m *Memory) FindByKey(_ context.Context, kind Kind, key map[string]any) (*Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, e := range m.entities[kind] {
		if matches(e.Fields, key) {
			return e, nil
		}
	}
	return nil, nil
}

func (m *Memory) Create(_ context.Context, kind Kind, fields map[string]any) (*Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.creates++
	e := &Entity{ID: uuid.New(), Kind: kind, Fields: fields}
	m.entities[kind] = append(m.entities[kind], e)
	return e, nil
}

func (m *Memory) Save(_ context.Context, e *Entity, _ Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saves++
	for i, stored := range m.entities[e.Kind] {
		if stored.ID == e.ID {
			m.entities[e.Kind][i] = e
			return nil
		}
	}
	m.entities[e.Kind] = append(m.entities[e.Kind], e)
	return nil
}

func matches(fields, key map[string]any) bool {
	for k, want := range key {
		if !reflect.DeepEqual(fields[k], want) {
			return false
		}
	}
	return true
}
