package link_test

import (
	"testing"

	"github.com/serroba/templink/internal/link"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenerator(t *testing.T) {
	t.Run("produces identifiers of the requested length", func(t *testing.T) {
		gen, err := link.NewGenerator(10)

		require.NoError(t, err)
		assert.Len(t, gen(), 10)
	})

	t.Run("produces url-safe identifiers", func(t *testing.T) {
		gen, err := link.NewGenerator(21)
		require.NoError(t, err)

		id := gen()
		for _, r := range id {
			assert.Contains(t,
				"ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_",
				string(r),
			)
		}
	})

	t.Run("rejects invalid lengths", func(t *testing.T) {
		_, err := link.NewGenerator(0)

		assert.Error(t, err)
	})
}
