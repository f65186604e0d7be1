package command

import (
	"context"
	"sync"
)

// MockRunner is a test Runner that records invocations and replays scripted results.
type MockRunner struct {
	// Handler, when set, decides the result for each call.
	Handler func(cmd Command) (Result, error)
	calls   []Command
	mu      sync.Mutex
}

// NewMockRunner returns a runner where every command succeeds.
func NewMockRunner() *MockRunner {
	return &MockRunner{}
}

// ExitWith returns a runner where every command exits with code.
func ExitWith(code int) *MockRunner {
	return &MockRunner{Handler: func(Command) (Result, error) {
		return Result{ExitCode: code}, nil
	}}
}

// Run records cmd and returns the scripted outcome.
func (m *MockRunner) Run(_ context.Context, cmd Command) (Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, cmd)
	handler := m.Handler
	m.mu.Unlock()

	if handler == nil {
		return Result{}, nil
	}
	return handler(cmd)
}

// Calls returns a copy of the recorded invocations.
func (m *MockRunner) Calls() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Command(nil), m.calls...)
}
