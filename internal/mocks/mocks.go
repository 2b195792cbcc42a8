// Package mocks holds testify mocks for the interfaces shared across packages.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/bombparty-cli/api/schemas"
)

// -- Environment Mock --

// MockEnvironment mocks schemas.Environment.
type MockEnvironment struct {
	mock.Mock
}

// NewMockEnvironment returns a mock whose Close always succeeds.
func NewMockEnvironment() *MockEnvironment {
	m := new(MockEnvironment)
	m.On("Close").Return(nil).Maybe()
	return m
}

func (m *MockEnvironment) IsRoundActive(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockEnvironment) IsMyTurnVisible(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockEnvironment) ReadCurrentCombo(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockEnvironment) SubmitKeystroke(ctx context.Context, keys string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func (m *MockEnvironment) JoinNextGame(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockEnvironment) Close() error {
	args := m.Called()
	return args.Error(0)
}

// -- Recorder Mock --

// MockGuessRecorder mocks schemas.GuessRecorder.
type MockGuessRecorder struct {
	mock.Mock
}

func (m *MockGuessRecorder) RecordGuess(ctx context.Context, guess schemas.Guess) error {
	args := m.Called(ctx, guess)
	return args.Error(0)
}

var (
	_ schemas.Environment   = (*MockEnvironment)(nil)
	_ schemas.GuessRecorder = (*MockGuessRecorder)(nil)
)
