package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidHTTPURL(t *testing.T) {
	assert.True(t, IsValidHTTPURL("https://utxorpc.example.com:443"))
	assert.True(t, IsValidHTTPURL("http://localhost:50051"))
	assert.False(t, IsValidHTTPURL("ftp://example.com"))
	assert.False(t, IsValidHTTPURL("not a url"))
}

func TestTrimSchema(t *testing.T) {
	assert.Equal(t, "node:3001", TrimSchema("https://node:3001"))
	assert.Equal(t, "node:3001", TrimSchema("http://node:3001"))
	assert.Equal(t, "node:3001", TrimSchema("node:3001"))
}

func TestSplitString(t *testing.T) {
	assert.Nil(t, SplitString("", 40))
	assert.Equal(t, []string{"abc"}, SplitString("abc", 40))
	assert.Equal(t, []string{"abcd", "efgh", "i"}, SplitString("abcdefghi", 4))
}

func TestRetryForever(t *testing.T) {
	t.Run("returns once fn succeeds", func(t *testing.T) {
		calls := 0

		err := RetryForever(context.Background(), time.Millisecond, func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("not yet")
			}

			return nil
		})

		require.NoError(t, err)
		require.Equal(t, 3, calls)
	})

	t.Run("stops on context cancel", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := RetryForever(ctx, time.Millisecond, func(context.Context) error {
			return errors.New("always failing")
		})

		require.Error(t, err)
	})
}
