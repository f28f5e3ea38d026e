package clock

import (
	"sync"
	"time"
)

// Clock abstracts the current time so expiry logic can be tested
type Clock interface {
	Now() time.Time
}

// Real is the wall clock in UTC
type Real struct{}

// Now returns time.Now in UTC
func (Real) Now() time.Time { return time.Now().UTC() }

// Mock is a settable clock for tests
type Mock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMock creates a mock clock fixed at t
func NewMock(t time.Time) *Mock {
	return &Mock{now: t}
}

// Now returns the mocked time
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to t
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Advance moves the clock forward by d
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}
