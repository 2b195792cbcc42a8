package humanoid

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestType_ObviousBot(t *testing.T) {
	mock := newMockExecutor(t)
	typist := NewTypist(newTestSimulator(Settings{}, 1), mock, zaptest.NewLogger(t))

	res, err := typist.Type(context.Background(), "cat", 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"cat", "\r"}, mock.keys())
	assert.Empty(t, mock.sleeps(), "zero delays never sleep")
	assert.Equal(t, TypeResult{Sent: 2}, res)
}

func TestType_Humanlike(t *testing.T) {
	mock := newMockExecutor(t)
	typist := NewTypist(newTestSimulator(humanSettings(0), 5), mock, nil)

	res, err := typist.Type(context.Background(), "cat", 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"c", "a", "t", "\r"}, mock.keys())
	sleeps := mock.sleeps()
	require.Len(t, sleeps, 4)
	for _, d := range sleeps {
		assert.GreaterOrEqual(t, d, MinKeyDelay)
	}
	assert.Equal(t, 4, res.Sent)
	assert.Zero(t, res.Typos)
}

func TestType_TyposCorrected(t *testing.T) {
	mock := newMockExecutor(t)
	typist := NewTypist(newTestSimulator(humanSettings(1), 11), mock, nil)

	res, err := typist.Type(context.Background(), "frog", 0)
	require.NoError(t, err)

	keys := mock.keys()
	assert.Equal(t, "\r", keys[len(keys)-1])
	var buf []byte
	for _, k := range keys[:len(keys)-1] {
		if k == "\b" {
			buf = buf[:len(buf)-1]
			continue
		}
		buf = append(buf, k...)
	}
	assert.Equal(t, "frog", string(buf))
	assert.GreaterOrEqual(t, res.Typos, 4)
	assert.Equal(t, len(keys), res.Sent)
}

func TestType_DropsKeysWhileHidden(t *testing.T) {
	mock := newMockExecutor(t)
	var visible atomic.Bool
	visible.Store(true)
	mock.MockInputVisible = func(ctx context.Context) (bool, error) {
		return visible.Load(), nil
	}
	mock.MockSendKeys = func(ctx context.Context, keys string) error {
		// The input disappears once the first letter lands.
		visible.Store(false)
		return nil
	}
	typist := NewTypist(newTestSimulator(humanSettings(0), 1), mock, nil)

	res, err := typist.Type(context.Background(), "cat", 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"c"}, mock.keys())
	assert.Equal(t, TypeResult{Sent: 1, Dropped: 3}, res)
}

func TestType_CancellationErasesTypos(t *testing.T) {
	mock := newMockExecutor(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel right after the first letter and its typo are on screen.
	mock.MockSleep = func(ctx context.Context, _ time.Duration) error {
		if len(mock.keys()) >= 2 {
			cancel()
			return ctx.Err()
		}
		return nil
	}
	typist := NewTypist(newTestSimulator(humanSettings(1), 3), mock, nil)

	res, err := typist.Type(ctx, "abcd", 0)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []string{"a", "c", "\b"}, mock.keys())
	assert.Equal(t, 1, res.Typos)
}

func TestType_CancellationWithoutTypos(t *testing.T) {
	mock := newMockExecutor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	typist := NewTypist(newTestSimulator(humanSettings(0), 3), mock, nil)
	_, err := typist.Type(ctx, "abcd", 0)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, mock.keys())
}

func TestType_SendError(t *testing.T) {
	mock := newMockExecutor(t)
	boom := errors.New("element vanished")
	mock.MockSendKeys = func(ctx context.Context, keys string) error {
		return boom
	}
	typist := NewTypist(newTestSimulator(Settings{}, 1), mock, nil)

	_, err := typist.Type(context.Background(), "cat", 0)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to send text")
}

func TestType_VisibilityError(t *testing.T) {
	mock := newMockExecutor(t)
	boom := errors.New("target closed")
	mock.MockInputVisible = func(ctx context.Context) (bool, error) {
		return false, boom
	}
	typist := NewTypist(newTestSimulator(Settings{}, 1), mock, nil)

	_, err := typist.Type(context.Background(), "cat", 0)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, mock.keys())
}
