package schemas_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/bombparty-cli/api/schemas"
)

func TestNopRecorder(t *testing.T) {
	var r schemas.GuessRecorder = schemas.NopRecorder{}
	assert.NoError(t, r.RecordGuess(context.Background(), schemas.Guess{Word: "frog"}))
}

func TestErrSessionClosed_Wrapped(t *testing.T) {
	err := fmt.Errorf("read combo: %w", schemas.ErrSessionClosed)
	assert.ErrorIs(t, err, schemas.ErrSessionClosed)
}

func TestGuess_JSONTags(t *testing.T) {
	g := schemas.Guess{
		ID:          "g1",
		BotID:       "b1",
		BotName:     "alpha bot",
		Combo:       "og",
		Word:        "frog",
		Sequence:    3,
		TypingTime:  2 * time.Second,
		SubmittedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(g)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, jsoniter.Unmarshal(data, &fields))
	for _, key := range []string{"id", "bot_id", "bot_name", "combo", "word", "sequence", "no_match", "typing_time", "submitted_at"} {
		assert.Contains(t, fields, key)
	}
	assert.Equal(t, "2026-01-02T03:04:05Z", fields["submitted_at"])
	assert.EqualValues(t, 2e9, fields["typing_time"])
}
