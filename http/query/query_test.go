package query

import (
	"github.com/indigo-web/loop/http/headers"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuery(t *testing.T) {
	// test the laziness just in place
	header := headers.New()
	query := NewQuery(header)
	query.Set([]byte("hello=world"))
	_, err := query.Unwrap()
	require.NoError(t, err)

	t.Run("get existing key", func(t *testing.T) {
		value, err := query.Get("hello")
		require.NoError(t, err)
		require.Equal(t, "world", value)
	})

	t.Run("get non-existing key", func(t *testing.T) {
		value, err := query.Get("lorem")
		require.ErrorIs(t, err, ErrNoSuchKey)
		require.Empty(t, value)
	})
}
