package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/bombparty-cli/api/schemas"
)

func newDetachedSession(t *testing.T) *Session {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return &Session{
		id:     "s-1",
		logger: zaptest.NewLogger(t),
		ctx:    ctx,
		cancel: cancel,
	}
}

func TestProbeScript(t *testing.T) {
	script := probeScript(`//div[@class="syllable"]`, actionFocus)

	assert.Contains(t, script, `const xpath = "//div[@class=\"syllable\"]", action = "focus";`)
	assert.Contains(t, script, "this.evaluate(xpath, this, null, 9, null)")

	none := probeScript("//input", actionNone)
	assert.Contains(t, none, `action = "";`)
}

func TestFrameXPath(t *testing.T) {
	assert.Equal(t, `//iframe[contains(@src, "bombparty")]`, frameXPath("bombparty"))
}

func TestProbeResult_Decode(t *testing.T) {
	var res probeResult
	require.NoError(t, json.Unmarshal([]byte(`{"found":true,"visible":false,"text":"ING"}`), &res))
	assert.Equal(t, probeResult{Found: true, Visible: false, Text: "ING"}, res)
}

func TestIsTargetGone(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"channel closed", fmt.Errorf("run: %w", chromedp.ErrChannelClosed), true},
		{"invalid context", chromedp.ErrInvalidContext, true},
		{"target closed", errors.New("exception \"Target closed\""), true},
		{"missing target", errors.New("No target with given id found"), true},
		{"timeout", context.DeadlineExceeded, false},
		{"script", errors.New("script exception: boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTargetGone(tt.err))
		})
	}
}

func TestIsStaleObject(t *testing.T) {
	assert.True(t, isStaleObject(errors.New("Could not find object with given id (-32000)")))
	assert.True(t, isStaleObject(errors.New("Cannot find context with specified id")))
	assert.False(t, isStaleObject(errors.New("script exception: boom")))
}

func TestSession_Classify(t *testing.T) {
	t.Run("LiveTabKeepsError", func(t *testing.T) {
		s := newDetachedSession(t)
		err := s.classify(errors.New("script exception: boom"))
		assert.False(t, errors.Is(err, schemas.ErrSessionClosed))
	})

	t.Run("GoneTargetIsClosed", func(t *testing.T) {
		s := newDetachedSession(t)
		err := s.classify(fmt.Errorf("probe: %w", chromedp.ErrChannelClosed))
		assert.ErrorIs(t, err, schemas.ErrSessionClosed)
	})

	t.Run("ClosedTabIsClosed", func(t *testing.T) {
		s := newDetachedSession(t)
		require.NoError(t, s.Close())
		err := s.classify(context.Canceled)
		assert.ErrorIs(t, err, schemas.ErrSessionClosed)
	})

	t.Run("Nil", func(t *testing.T) {
		s := newDetachedSession(t)
		assert.NoError(t, s.classify(nil))
	})
}

func TestSession_ClosedTab(t *testing.T) {
	s := newDetachedSession(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "closing twice is safe")

	err := s.run(context.Background())
	assert.ErrorIs(t, err, schemas.ErrSessionClosed)

	_, err = s.IsRoundActive(context.Background())
	assert.ErrorIs(t, err, schemas.ErrSessionClosed)

	err = s.SubmitKeystroke(context.Background(), "a")
	assert.ErrorIs(t, err, schemas.ErrSessionClosed)
}
