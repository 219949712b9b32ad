package bucket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAllowReply(t *testing.T) {
	allowed, count, oldest, err := decodeAllowReply([]any{int64(1), int64(3), "1700000000000"}, 42)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 3, count)
	assert.Equal(t, int64(1700000000000), oldest)

	allowed, count, oldest, err = decodeAllowReply([]any{int64(0), int64(5), "1700000000000"}, 42)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 5, count)
	assert.Equal(t, int64(1700000000000), oldest)
}

func TestDecodeAllowReplyOldestFallback(t *testing.T) {
	// A missing or unparseable score falls back to the caller's clock so
	// ResetAt stays bounded by the window.
	allowed, count, oldest, err := decodeAllowReply([]any{int64(1), int64(1), nil}, 42)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, count)
	assert.Equal(t, int64(42), oldest)

	_, _, oldest, err = decodeAllowReply([]any{int64(1), int64(1), "not-a-number"}, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), oldest)
}

func TestDecodeAllowReplyMalformed(t *testing.T) {
	for _, raw := range []any{
		nil,
		"OK",
		int64(1),
		[]any{int64(1)},
		[]any{"1", int64(2), "3"},
		[]any{int64(1), "2", "3"},
	} {
		_, _, _, err := decodeAllowReply(raw, 42)
		require.Error(t, err, "reply %v should be rejected", raw)
		assert.ErrorContains(t, err, "unexpected reply")
	}
}
