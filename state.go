package anchor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// StateManager is thread-safe storage shared between the stages of one or
// more chains. Scoped views share the same data and the same lock.
type StateManager struct {
	mu     *sync.RWMutex
	data   map[string]any
	prefix string
}

// NewStateManager creates an empty state manager.
func NewStateManager() *StateManager {
	return &StateManager{
		mu:   &sync.RWMutex{},
		data: make(map[string]any),
	}
}

// Get retrieves a value by key.
func (s *StateManager) Get(ctx context.Context, key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[s.prefix+key]
	return val, ok
}

// Set stores a value with the given key.
func (s *StateManager) Set(ctx context.Context, key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[s.prefix+key] = value
}

// Delete removes key and returns the value it held.
func (s *StateManager) Delete(ctx context.Context, key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fullKey := s.prefix + key
	val, ok := s.data[fullKey]
	delete(s.data, fullKey)
	return val, ok
}

// Push appends value to the list stored under key, creating it when absent.
// A key holding a non-list value is replaced by a new list.
func (s *StateManager) Push(ctx context.Context, key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fullKey := s.prefix + key
	list, _ := s.data[fullKey].([]any)
	s.data[fullKey] = append(list, value)
}

// List returns a copy of the list stored under key.
func (s *StateManager) List(ctx context.Context, key string) []any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, _ := s.data[s.prefix+key].([]any)
	out := make([]any, len(list))
	copy(out, list)
	return out
}

// Len returns the number of keys visible in this scope.
func (s *StateManager) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.prefix == "" {
		return len(s.data)
	}
	n := 0
	for k := range s.data {
		if strings.HasPrefix(k, s.prefix) {
			n++
		}
	}
	return n
}

// Keys returns the sorted keys visible in this scope, without the scope prefix.
func (s *StateManager) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, s.prefix) {
			keys = append(keys, strings.TrimPrefix(k, s.prefix))
		}
	}
	sort.Strings(keys)
	return keys
}

// Clear removes every key visible in this scope.
func (s *StateManager) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.data {
		if strings.HasPrefix(k, s.prefix) {
			delete(s.data, k)
		}
	}
}

// Scope returns a view whose keys are prefixed with prefix.
func (s *StateManager) Scope(prefix string) *StateManager {
	return &StateManager{
		mu:     s.mu,
		data:   s.data,
		prefix: s.prefix + prefix + ":",
	}
}

// Stateful is implemented by nodes that want access to the shared state of
// the chain they are linked into.
type Stateful interface {
	SetState(state *StateManager)
}

// TypedState provides type-safe access to a StateManager.
type TypedState[T any] struct {
	state *StateManager
}

// NewTypedState wraps state.
func NewTypedState[T any](state *StateManager) TypedState[T] {
	return TypedState[T]{state: state}
}

// Get retrieves the value stored under key. Storing a value of another
// type under key is reported as an error.
func (t TypedState[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	val, ok := t.state.Get(ctx, key)
	if !ok {
		return zero, false, nil
	}
	typed, ok := val.(T)
	if !ok {
		return zero, false, fmt.Errorf("state %q: expected %T, got %T", key, zero, val)
	}
	return typed, true, nil
}

// Set stores value under key.
func (t TypedState[T]) Set(ctx context.Context, key string, value T) {
	t.state.Set(ctx, key, value)
}

// Delete removes key.
func (t TypedState[T]) Delete(ctx context.Context, key string) {
	t.state.Delete(ctx, key)
}
