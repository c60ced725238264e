package numerator

import (
	"context"
	"sync"
)

// MockSequence is an in-memory Sequence for unit tests.
type MockSequence struct {
	mu       sync.Mutex
	counters map[Key]int64

	// NextFunc overrides the default counter when set.
	NextFunc func(ctx context.Context, key Key) (int64, error)
}

// NewMockSequence creates an empty in-memory sequence.
func NewMockSequence() *MockSequence {
	return &MockSequence{counters: make(map[Key]int64)}
}

// Next implements Sequence.
func (m *MockSequence) Next(ctx context.Context, key Key) (int64, error) {
	if m.NextFunc != nil {
		return m.NextFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[Key]int64)
	}
	m.counters[key]++
	return m.counters[key], nil
}

// Reset implements Sequence.
func (m *MockSequence) Reset(_ context.Context, key Key, last int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[Key]int64)
	}
	m.counters[key] = last
	return nil
}

var _ Sequence = (*MockSequence)(nil)
