package humanoid

import (
	"context"
	"sync"
	"testing"
	"time"
)

// mockExecutor records keystrokes and pauses instead of driving a browser.
// Overrides replace the default behaviour when set.
type mockExecutor struct {
	t              *testing.T
	mu             sync.Mutex
	sentKeys       []string
	sleepDurations []time.Duration
	visibleChecks  int

	MockSleep        func(ctx context.Context, d time.Duration) error
	MockSendKeys     func(ctx context.Context, keys string) error
	MockInputVisible func(ctx context.Context) (bool, error)
}

func newMockExecutor(t *testing.T) *mockExecutor {
	return &mockExecutor{t: t}
}

func (m *mockExecutor) Sleep(ctx context.Context, d time.Duration) error {
	if m.MockSleep != nil {
		if err := m.MockSleep(ctx, d); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sleepDurations = append(m.sleepDurations, d)
	return ctx.Err()
}

func (m *mockExecutor) SendKeys(ctx context.Context, keys string) error {
	if m.MockSendKeys != nil {
		if err := m.MockSendKeys(ctx, keys); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sentKeys = append(m.sentKeys, keys)
	return nil
}

func (m *mockExecutor) InputVisible(ctx context.Context) (bool, error) {
	m.mu.Lock()
	m.visibleChecks++
	m.mu.Unlock()
	if m.MockInputVisible != nil {
		return m.MockInputVisible(ctx)
	}
	return true, nil
}

func (m *mockExecutor) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sentKeys))
	copy(out, m.sentKeys)
	return out
}

func (m *mockExecutor) sleeps() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Duration, len(m.sleepDurations))
	copy(out, m.sleepDurations)
	return out
}
