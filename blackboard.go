package hfsm

import (
	"math"
	"sync"
)

// Blackboard is a thread-safe store of host flags that predicates read.
// Host code may write from any goroutine; predicates read on the tick goroutine.
type Blackboard struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewBlackboard creates an empty blackboard.
func NewBlackboard() *Blackboard {
	return &Blackboard{
		data: make(map[string]any),
	}
}

// Get retrieves a value by key.
func (b *Blackboard) Get(key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[key]
	return v, ok
}

// Set stores a value by key.
func (b *Blackboard) Set(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
}

// Delete removes a key.
func (b *Blackboard) Delete(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
}

// Bool returns the value at key as a bool. Missing or non-bool values are false.
func (b *Blackboard) Bool(key string) bool {
	v, _ := b.Get(key)
	flag, _ := v.(bool)
	return flag
}

// Float returns the value at key as a float64. Integer kinds are converted;
// anything else reports ok == false.
func (b *Blackboard) Float(key string) (f float64, ok bool) {
	v, _ := b.Get(key)
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return math.NaN(), false
}

// Flag returns a Predicate reading the bool at key.
func (b *Blackboard) Flag(key string) Predicate {
	return func() bool { return b.Bool(key) }
}

// Snapshot returns a copy of all data.
func (b *Blackboard) Snapshot() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snapshot := make(map[string]any, len(b.data))
	for k, v := range b.data {
		snapshot[k] = v
	}
	return snapshot
}
