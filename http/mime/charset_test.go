package mime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Run("utf8 passthrough", func(t *testing.T) {
		out, err := Decode(UTF8, "Alice")
		require.NoError(t, err)
		require.Equal(t, "Alice", out)
	})

	t.Run("cp1252 transcodes high bytes", func(t *testing.T) {
		// 0x80 is the euro sign in windows-1252; ASCII-range bytes pass through unchanged.
		out, err := Decode(CP1252, "5\x80")
		require.NoError(t, err)
		require.Equal(t, "5€", out)
	})

	t.Run("unknown charset returned as-is", func(t *testing.T) {
		out, err := Decode("klingon", "Alice")
		require.NoError(t, err)
		require.Equal(t, "Alice", out)
	})
}
